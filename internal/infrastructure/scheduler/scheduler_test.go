package scheduler_test

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/courier-billing/internal/infrastructure/scheduler"
	"github.com/jhoicas/courier-billing/pkg/logger"
)

func TestDelayedScheduler_RunsAfterDelay(t *testing.T) {
	s := scheduler.New(logger.Nop(), time.Second)
	done := make(chan struct{})
	s.Schedule("job", 10*time.Millisecond, func(ctx context.Context) {
		_, hasDeadline := ctx.Deadline()
		assert.True(t, hasDeadline)
		close(done)
	})

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("el trabajo no se ejecutó")
	}
	require.NoError(t, s.Shutdown(context.Background()))
}

func TestDelayedScheduler_ShutdownDiscardsPending(t *testing.T) {
	s := scheduler.New(logger.Nop(), time.Second)
	var ran int32
	s.Schedule("later", time.Hour, func(context.Context) { atomic.AddInt32(&ran, 1) })
	assert.Equal(t, 1, s.Pending())

	require.NoError(t, s.Shutdown(context.Background()))
	assert.Equal(t, 0, s.Pending())

	s.Schedule("after-close", time.Millisecond, func(context.Context) { atomic.AddInt32(&ran, 1) })
	time.Sleep(20 * time.Millisecond)
	assert.Zero(t, atomic.LoadInt32(&ran))
}

func TestDelayedScheduler_ShutdownWaitsForRunning(t *testing.T) {
	s := scheduler.New(logger.Nop(), time.Second)
	started := make(chan struct{})
	var finished int32
	s.Schedule("slow", 0, func(context.Context) {
		close(started)
		time.Sleep(50 * time.Millisecond)
		atomic.StoreInt32(&finished, 1)
	})
	<-started
	require.NoError(t, s.Shutdown(context.Background()))
	assert.EqualValues(t, 1, atomic.LoadInt32(&finished))
}

func TestDelayedScheduler_ShutdownTimeout(t *testing.T) {
	s := scheduler.New(logger.Nop(), time.Second)
	started := make(chan struct{})
	release := make(chan struct{})
	s.Schedule("stuck", 0, func(context.Context) {
		close(started)
		<-release
	})
	<-started

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, s.Shutdown(ctx), scheduler.ErrShutdownTimeout)
	close(release)
}

func TestDelayedScheduler_Every(t *testing.T) {
	s := scheduler.New(logger.Nop(), time.Second)
	var n int32
	s.Every("tick", 5*time.Millisecond, func(context.Context) { atomic.AddInt32(&n, 1) })

	assert.Eventually(t, func() bool { return atomic.LoadInt32(&n) >= 3 }, 2*time.Second, 5*time.Millisecond)
	require.NoError(t, s.Shutdown(context.Background()))
	after := atomic.LoadInt32(&n)
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, after, atomic.LoadInt32(&n))
}

func TestDelayedScheduler_PanicIsContained(t *testing.T) {
	s := scheduler.New(logger.Nop(), time.Second)
	done := make(chan struct{})
	s.Schedule("boom", 0, func(context.Context) { panic("boom") })
	s.Schedule("ok", 10*time.Millisecond, func(context.Context) { close(done) })
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("el scheduler dejó de ejecutar trabajos tras un panic")
	}
	require.NoError(t, s.Shutdown(context.Background()))
}
