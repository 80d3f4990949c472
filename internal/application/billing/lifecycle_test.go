package billing_test

import (
	"context"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/courier-billing/internal/application/dto"
	"github.com/jhoicas/courier-billing/internal/domain"
	"github.com/jhoicas/courier-billing/internal/domain/entity"
)

// ──────────────────────────────────────────────────────────────────────────────
// Finalización
// ──────────────────────────────────────────────────────────────────────────────

func TestFinalizeInvoice(t *testing.T) {
	e := newEnv(t)
	c := e.addCustomer(t)
	draft := e.draftInvoice(t, c.ID, 18)

	inv, err := e.svc.FinalizeInvoice(context.Background(), clerk, draft.Number)
	require.NoError(t, err)

	assert.Equal(t, string(entity.InvoiceStatusSent), inv.Status)
	require.NotNil(t, inv.SentAt)
	assert.Equal(t, t0, *inv.SentAt)
	assert.True(t, dec("100.00").Equal(e.customer(t, c.ID).Balance))
	assert.Equal(t, []string{entity.AuditInvoiceCreated, entity.AuditStatusChange}, e.auditActions(t, inv.Number))
	require.Len(t, e.notifier.invoices, 1)
	assert.Equal(t, deliveredInvoice{number: inv.Number, recipient: "ap@acme.test"}, e.notifier.invoices[0])
	assert.Empty(t, e.sched.jobs, "sin cobro automático no se programa nada")
}

func TestFinalizeInvoice_DosVecesNoCambiaNada(t *testing.T) {
	e := newEnv(t)
	c := e.addCustomer(t)
	inv := e.sentInvoice(t, c.ID, 18)
	before := e.auditActions(t, inv.Number)

	_, err := e.svc.FinalizeInvoice(context.Background(), clerk, inv.Number)
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrInvalidStateTransition))

	assert.Equal(t, before, e.auditActions(t, inv.Number))
	assert.Equal(t, string(entity.InvoiceStatusSent), e.invoice(t, inv.Number).Status)
	assert.True(t, dec("100.00").Equal(e.customer(t, c.ID).Balance), "el saldo no se carga dos veces")
}

func TestFinalizeInvoice_ProgramaCobroAutomatico(t *testing.T) {
	e := newEnv(t)
	c := e.addCustomer(t, func(c *entity.Customer) {
		c.AutoPayEnabled = true
		c.DefaultPaymentMethodID = "pm_default"
	})
	inv := e.sentInvoice(t, c.ID, 18)

	require.Len(t, e.sched.jobs, 1)
	assert.Equal(t, "auto-payment:"+inv.Number, e.sched.jobs[0].name)
	assert.Equal(t, time.Minute, e.sched.jobs[0].delay)
	assert.Equal(t, 0, e.gateway.calls(), "el cobro es diferido")

	e.sched.runAll(context.Background())

	require.Equal(t, 1, e.gateway.calls())
	req := e.gateway.requests[0]
	assert.Equal(t, "pm_default", req.PaymentMethodID)
	assert.True(t, dec("100.00").Equal(req.Amount))
	assert.Equal(t, string(entity.InvoiceStatusPaid), e.invoice(t, inv.Number).Status)
	assert.True(t, e.customer(t, c.ID).Balance.IsZero())
}

func TestFinalizeInvoice_NoEncontrada(t *testing.T) {
	e := newEnv(t)
	_, err := e.svc.FinalizeInvoice(context.Background(), clerk, "INV-20250115-NOPE00")
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

// ──────────────────────────────────────────────────────────────────────────────
// Cancelación
// ──────────────────────────────────────────────────────────────────────────────

func TestCancelInvoice(t *testing.T) {
	ctx := context.Background()

	t.Run("draft no toca el saldo", func(t *testing.T) {
		e := newEnv(t)
		c := e.addCustomer(t)
		inv := e.draftInvoice(t, c.ID, 18)

		out, err := e.svc.CancelInvoice(ctx, clerk, inv.Number, "duplicada")
		require.NoError(t, err)
		assert.Equal(t, string(entity.InvoiceStatusCancelled), out.Status)
		assert.NotNil(t, out.CancelledAt)
		assert.True(t, e.customer(t, c.ID).Balance.IsZero())
	})

	t.Run("sent descuenta lo pendiente", func(t *testing.T) {
		e := newEnv(t)
		c := e.addCustomer(t)
		inv := e.sentInvoice(t, c.ID, 18)
		require.True(t, dec("100.00").Equal(e.customer(t, c.ID).Balance))

		_, err := e.svc.CancelInvoice(ctx, clerk, inv.Number, "error de tarifa")
		require.NoError(t, err)
		assert.True(t, e.customer(t, c.ID).Balance.IsZero())
		assert.Equal(t, []string{entity.AuditInvoiceCreated, entity.AuditStatusChange, entity.AuditStatusChange}, e.auditActions(t, inv.Number))
	})

	t.Run("pagada se rechaza", func(t *testing.T) {
		e := newEnv(t)
		c := e.addCustomer(t)
		inv := e.sentInvoice(t, c.ID, 18)
		_, err := e.svc.RecordManualPayment(ctx, clerk, inv.Number, dto.ManualPaymentRequest{Amount: dec("100")})
		require.NoError(t, err)

		_, err = e.svc.CancelInvoice(ctx, clerk, inv.Number, "cliente lo pide")
		assert.True(t, errors.Is(err, domain.ErrBillingInvariant))
		assert.Equal(t, string(entity.InvoiceStatusPaid), e.invoice(t, inv.Number).Status)
	})

	t.Run("cancelada es terminal", func(t *testing.T) {
		e := newEnv(t)
		c := e.addCustomer(t)
		inv := e.draftInvoice(t, c.ID, 1)
		_, err := e.svc.CancelInvoice(ctx, clerk, inv.Number, "")
		require.NoError(t, err)

		_, err = e.svc.CancelInvoice(ctx, clerk, inv.Number, "")
		assert.True(t, errors.Is(err, domain.ErrInvalidStateTransition))
		_, err = e.svc.FinalizeInvoice(ctx, clerk, inv.Number)
		assert.True(t, errors.Is(err, domain.ErrInvalidStateTransition))
	})
}

// ──────────────────────────────────────────────────────────────────────────────
// Edición
// ──────────────────────────────────────────────────────────────────────────────

func TestUpdateInvoice(t *testing.T) {
	e := newEnv(t)
	c := e.addCustomer(t)
	ctx := context.Background()
	inv := e.draftInvoice(t, c.ID, 1)

	name := "ACME Logistics LLC"
	out, err := e.svc.UpdateInvoice(ctx, clerk, inv.Number, dto.UpdateInvoiceRequest{
		CustomerName: &name,
		Metadata:     map[string]string{"po": "PO-77"},
	})
	require.NoError(t, err)
	assert.Equal(t, name, out.CustomerName)
	assert.Equal(t, "PO-77", out.Metadata["po"])
	assert.Equal(t, []string{entity.AuditInvoiceCreated, entity.AuditInvoiceUpdated}, e.auditActions(t, inv.Number))

	_, err = e.svc.UpdateInvoice(ctx, clerk, inv.Number, dto.UpdateInvoiceRequest{})
	assert.True(t, errors.Is(err, domain.ErrInvalidInput))

	early := t0.AddDate(0, 0, -1)
	_, err = e.svc.UpdateInvoice(ctx, clerk, inv.Number, dto.UpdateInvoiceRequest{DueDate: &early})
	assert.True(t, errors.Is(err, domain.ErrInvalidInput))

	_, err = e.svc.FinalizeInvoice(ctx, clerk, inv.Number)
	require.NoError(t, err)
	eur := "EUR"
	_, err = e.svc.UpdateInvoice(ctx, clerk, inv.Number, dto.UpdateInvoiceRequest{Currency: &eur})
	assert.True(t, errors.Is(err, domain.ErrBillingInvariant))
	assert.Equal(t, "USD", e.invoice(t, inv.Number).Currency)
}

// ──────────────────────────────────────────────────────────────────────────────
// Envío
// ──────────────────────────────────────────────────────────────────────────────

func TestSendInvoice_PorDestinatario(t *testing.T) {
	e := newEnv(t)
	e.notifier.failFor["broken@acme.test"] = true
	c := e.addCustomer(t)
	ctx := context.Background()
	inv := e.draftInvoice(t, c.ID, 18)

	out, err := e.svc.SendInvoice(ctx, clerk, inv.Number, dto.SendInvoiceRequest{
		Recipients: []string{"ops@acme.test", "broken@acme.test", "OPS@acme.test"},
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"ops@acme.test"}, out.Delivered)
	assert.Equal(t, []string{"broken@acme.test"}, out.Failed)
	assert.Equal(t, string(entity.InvoiceStatusSent), out.Invoice.Status, "una entrega fallida no revierte la emisión")
	assert.True(t, dec("100.00").Equal(e.customer(t, c.ID).Balance))
	assert.Equal(t,
		[]string{entity.AuditInvoiceCreated, entity.AuditStatusChange, entity.AuditInvoiceSent},
		e.auditActions(t, inv.Number))
}

func TestSendInvoice_ReenvioNoReemite(t *testing.T) {
	e := newEnv(t)
	c := e.addCustomer(t)
	ctx := context.Background()
	inv := e.sentInvoice(t, c.ID, 18)

	e.now = t0.Add(48 * time.Hour)
	out, err := e.svc.SendInvoice(ctx, clerk, inv.Number, dto.SendInvoiceRequest{})
	require.NoError(t, err)

	assert.Equal(t, []string{"ap@acme.test"}, out.Delivered)
	require.NotNil(t, out.Invoice.LastSentAt)
	assert.Equal(t, e.now, *out.Invoice.LastSentAt)
	assert.Equal(t, t0, *out.Invoice.SentAt)
	assert.True(t, dec("100.00").Equal(e.customer(t, c.ID).Balance))
	assert.Equal(t,
		[]string{entity.AuditInvoiceCreated, entity.AuditStatusChange, entity.AuditInvoiceSent},
		e.auditActions(t, inv.Number))
}

func TestSendInvoice_Cancelada(t *testing.T) {
	e := newEnv(t)
	c := e.addCustomer(t)
	ctx := context.Background()
	inv := e.draftInvoice(t, c.ID, 1)
	_, err := e.svc.CancelInvoice(ctx, clerk, inv.Number, "")
	require.NoError(t, err)

	_, err = e.svc.SendInvoice(ctx, clerk, inv.Number, dto.SendInvoiceRequest{})
	assert.True(t, errors.Is(err, domain.ErrBillingInvariant))
	assert.Empty(t, e.notifier.invoices)
}

// ──────────────────────────────────────────────────────────────────────────────
// Vencimientos y consultas
// ──────────────────────────────────────────────────────────────────────────────

func TestMarkOverdueInvoices(t *testing.T) {
	e := newEnv(t)
	c := e.addCustomer(t)
	ctx := context.Background()
	sent := e.sentInvoice(t, c.ID, 18)
	partial := e.sentInvoice(t, c.ID, 18)
	_, err := e.svc.RecordManualPayment(ctx, clerk, partial.Number, dto.ManualPaymentRequest{Amount: dec("10")})
	require.NoError(t, err)
	draft := e.draftInvoice(t, c.ID, 1)

	res, err := e.svc.MarkOverdueInvoices(ctx)
	require.NoError(t, err)
	assert.Empty(t, res.Marked, "nada vence antes de la fecha")

	e.now = t0.AddDate(0, 0, 31)
	res, err = e.svc.MarkOverdueInvoices(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{sent.Number, partial.Number}, res.Marked)
	assert.Equal(t, string(entity.InvoiceStatusOverdue), e.invoice(t, sent.Number).Status)
	assert.Equal(t, string(entity.InvoiceStatusOverdue), e.invoice(t, partial.Number).Status)
	assert.Equal(t, string(entity.InvoiceStatusDraft), e.invoice(t, draft.Number).Status)

	res, err = e.svc.MarkOverdueInvoices(ctx)
	require.NoError(t, err)
	assert.Empty(t, res.Marked)

	overdue, err := e.svc.ListInvoicesByStatus(ctx, "overdue", time.Time{}, time.Time{}, dto.PageRequest{})
	require.NoError(t, err)
	assert.Len(t, overdue, 2)
}

func TestGetInvoice(t *testing.T) {
	e := newEnv(t)
	c := e.addCustomer(t)
	inv := e.draftInvoice(t, c.ID, 18)

	first := e.invoice(t, inv.Number)
	second := e.invoice(t, inv.Number)
	assert.Equal(t, first, second)
	assert.Len(t, first.Items, 1)

	_, err := e.svc.GetInvoice(context.Background(), "missing")
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestListInvoicesByStatus_Validaciones(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	_, err := e.svc.ListInvoicesByStatus(ctx, "ARCHIVED", time.Time{}, time.Time{}, dto.PageRequest{})
	assert.True(t, errors.Is(err, domain.ErrInvalidInput))

	_, err = e.svc.ListInvoicesByStatus(ctx, "SENT", t0, t0.Add(-time.Hour), dto.PageRequest{})
	assert.True(t, errors.Is(err, domain.ErrInvalidInput))
}
