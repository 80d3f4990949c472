package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/sourcegraph/conc"

	"github.com/jhoicas/courier-billing/internal/application/billing"
	"github.com/jhoicas/courier-billing/pkg/logger"
)

var _ billing.Scheduler = (*DelayedScheduler)(nil)

// ErrShutdownTimeout el contexto de Shutdown venció con trabajos en curso.
var ErrShutdownTimeout = errors.New("scheduler: trabajos en curso al vencer el plazo de cierre")

// DelayedScheduler ejecuta trabajos diferidos en goroutines propias. Cada trabajo recibe un
// contexto con JobTimeout. Shutdown descarta los pendientes y espera a los que ya corren.
type DelayedScheduler struct {
	log        *logger.Logger
	jobTimeout time.Duration

	mu      sync.Mutex
	closed  bool
	timers  map[*time.Timer]string
	tickers []*time.Ticker
	stop    chan struct{}
	running conc.WaitGroup
}

// New construye el scheduler. jobTimeout <= 0 usa 2 minutos.
func New(log *logger.Logger, jobTimeout time.Duration) *DelayedScheduler {
	if log == nil {
		log = logger.Nop()
	}
	if jobTimeout <= 0 {
		jobTimeout = 2 * time.Minute
	}
	return &DelayedScheduler{
		log:        log.Named("scheduler"),
		jobTimeout: jobTimeout,
		timers:     map[*time.Timer]string{},
		stop:       make(chan struct{}),
	}
}

// Schedule ejecuta job una vez tras delay. Tras Shutdown se ignora.
func (s *DelayedScheduler) Schedule(name string, delay time.Duration, job func(ctx context.Context)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		s.log.Warn().Str("job", name).Msg("scheduler cerrado, trabajo descartado")
		return
	}
	var t *time.Timer
	t = time.AfterFunc(delay, func() {
		s.mu.Lock()
		if s.closed {
			s.mu.Unlock()
			return
		}
		delete(s.timers, t)
		s.running.Go(func() { s.run(name, job) })
		s.mu.Unlock()
	})
	s.timers[t] = name
	s.log.Debug().Str("job", name).Dur("delay", delay).Msg("trabajo programado")
}

// Every ejecuta job cada interval hasta Shutdown. Una ejecución lenta no se solapa con la siguiente.
func (s *DelayedScheduler) Every(name string, interval time.Duration, job func(ctx context.Context)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	s.tickers = append(s.tickers, ticker)
	s.running.Go(func() {
		for {
			select {
			case <-s.stop:
				return
			case <-ticker.C:
				s.run(name, job)
			}
		}
	})
}

func (s *DelayedScheduler) run(name string, job func(ctx context.Context)) {
	ctx, cancel := context.WithTimeout(context.Background(), s.jobTimeout)
	defer cancel()
	defer func() {
		if r := recover(); r != nil {
			s.log.Error().Str("job", name).Interface("panic", r).Msg("trabajo abortado")
		}
	}()
	start := time.Now()
	job(ctx)
	s.log.Debug().Str("job", name).Dur("elapsed", time.Since(start)).Msg("trabajo ejecutado")
}

// Pending trabajos diferidos aún no iniciados.
func (s *DelayedScheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.timers)
}

// Shutdown detiene timers y tickers y espera a que terminen los trabajos en curso.
func (s *DelayedScheduler) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	if !s.closed {
		s.closed = true
		for t, name := range s.timers {
			if t.Stop() {
				s.log.Warn().Str("job", name).Msg("trabajo pendiente descartado por cierre")
			}
		}
		s.timers = map[*time.Timer]string{}
		for _, tk := range s.tickers {
			tk.Stop()
		}
		close(s.stop)
	}
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.running.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ErrShutdownTimeout
	}
}
