package billing_test

import (
	"context"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/courier-billing/internal/application/billing"
	"github.com/jhoicas/courier-billing/internal/application/dto"
	"github.com/jhoicas/courier-billing/internal/domain"
	"github.com/jhoicas/courier-billing/internal/domain/entity"
)

// ──────────────────────────────────────────────────────────────────────────────
// Pagos manuales
// ──────────────────────────────────────────────────────────────────────────────

func TestRecordManualPayment_ParcialYTotal(t *testing.T) {
	e := newEnv(t)
	c := e.addCustomer(t)
	ctx := context.Background()
	inv := e.sentInvoice(t, c.ID, 18) // total 100

	res, err := e.svc.RecordManualPayment(ctx, clerk, inv.Number, dto.ManualPaymentRequest{Amount: dec("40"), Notes: "transferencia"})
	require.NoError(t, err)
	assert.Equal(t, string(entity.InvoiceStatusPartiallyPaid), res.InvoiceStatus)
	assert.True(t, dec("40.00").Equal(res.TotalPaid))
	assert.Equal(t, string(entity.PaymentMethodManual), res.Payment.MethodType)
	assert.Equal(t, "clerk-1", res.Payment.CreatedBy)
	assert.True(t, dec("60.00").Equal(e.customer(t, c.ID).Balance))

	res, err = e.svc.RecordManualPayment(ctx, clerk, inv.Number, dto.ManualPaymentRequest{Amount: dec("60")})
	require.NoError(t, err)
	assert.Equal(t, string(entity.InvoiceStatusPaid), res.InvoiceStatus)

	got := e.invoice(t, inv.Number)
	assert.True(t, got.BalanceDue.IsZero())
	assert.True(t, dec("100.00").Equal(got.AmountPaid))
	assert.NotNil(t, got.PaidAt)
	assert.True(t, e.customer(t, c.ID).Balance.IsZero())
	assert.Len(t, e.notifier.confirmations, 2)
	assert.Equal(t, 0, e.gateway.calls(), "un pago manual no pasa por la pasarela")

	_, err = e.svc.RecordManualPayment(ctx, clerk, inv.Number, dto.ManualPaymentRequest{Amount: dec("1")})
	assert.True(t, errors.Is(err, domain.ErrBillingInvariant))
	assert.Len(t, e.payments(t, inv.Number), 2)
}

func TestRecordManualPayment_EnDraftEmitePrimero(t *testing.T) {
	e := newEnv(t)
	c := e.addCustomer(t)
	inv := e.draftInvoice(t, c.ID, 18)

	res, err := e.svc.RecordManualPayment(context.Background(), clerk, inv.Number, dto.ManualPaymentRequest{Amount: dec("100")})
	require.NoError(t, err)

	assert.Equal(t, string(entity.InvoiceStatusPaid), res.InvoiceStatus)
	assert.Equal(t,
		[]string{entity.AuditInvoiceCreated, entity.AuditStatusChange, entity.AuditStatusChange, entity.AuditManualPayment},
		e.auditActions(t, inv.Number))
	assert.True(t, e.customer(t, c.ID).Balance.IsZero())
	assert.NotNil(t, e.invoice(t, inv.Number).SentAt)
}

func TestRecordManualPayment_Rechazos(t *testing.T) {
	e := newEnv(t)
	c := e.addCustomer(t)
	ctx := context.Background()
	inv := e.sentInvoice(t, c.ID, 18)

	_, err := e.svc.RecordManualPayment(ctx, clerk, inv.Number, dto.ManualPaymentRequest{Amount: dec("0")})
	assert.True(t, errors.Is(err, domain.ErrInvalidInput))

	_, err = e.svc.RecordManualPayment(ctx, clerk, inv.Number, dto.ManualPaymentRequest{Amount: dec("-5")})
	assert.True(t, errors.Is(err, domain.ErrInvalidInput))

	_, err = e.svc.RecordManualPayment(ctx, clerk, inv.Number, dto.ManualPaymentRequest{Amount: dec("10"), Currency: "EUR"})
	assert.True(t, errors.Is(err, domain.ErrBillingInvariant))

	_, err = e.svc.RecordManualPayment(ctx, clerk, "missing", dto.ManualPaymentRequest{Amount: dec("10")})
	assert.True(t, errors.Is(err, domain.ErrNotFound))

	cancelled := e.draftInvoice(t, c.ID, 1)
	_, err = e.svc.CancelInvoice(ctx, clerk, cancelled.Number, "")
	require.NoError(t, err)
	_, err = e.svc.RecordManualPayment(ctx, clerk, cancelled.Number, dto.ManualPaymentRequest{Amount: dec("10")})
	assert.True(t, errors.Is(err, domain.ErrBillingInvariant))

	assert.Empty(t, e.payments(t, inv.Number))
	assert.Equal(t, string(entity.InvoiceStatusSent), e.invoice(t, inv.Number).Status)
}

// ──────────────────────────────────────────────────────────────────────────────
// Cobros por pasarela
// ──────────────────────────────────────────────────────────────────────────────

func TestProcessPayment_Completado(t *testing.T) {
	e := newEnv(t)
	c := e.addCustomer(t)
	inv := e.sentInvoice(t, c.ID, 18)

	res, err := e.svc.ProcessPayment(context.Background(), clerk, inv.Number, dto.ProcessPaymentRequest{
		Amount:          dec("100"),
		PaymentMethodID: "pm_card",
	})
	require.NoError(t, err)

	assert.Equal(t, string(entity.InvoiceStatusPaid), res.InvoiceStatus)
	assert.Equal(t, string(entity.PaymentStatusCompleted), res.Payment.Status)
	assert.Equal(t, "txn-1", res.Payment.GatewayTransactionID)
	assert.Equal(t, string(entity.PaymentMethodAutomatic), res.Payment.MethodType)
	require.NotNil(t, res.Payment.ProcessedAt)

	require.Equal(t, 1, e.gateway.calls())
	req := e.gateway.requests[0]
	assert.Equal(t, billing.GatewayKindCapture, req.Kind)
	assert.Equal(t, inv.Number, req.ReferenceID)
	assert.Equal(t, "USD", req.Currency)

	assert.Contains(t, e.auditActions(t, inv.Number), entity.AuditPaymentProcessed)
	assert.True(t, e.customer(t, c.ID).Balance.IsZero())
	assert.Len(t, e.notifier.confirmations, 1)
}

func TestProcessPayment_Parcial(t *testing.T) {
	e := newEnv(t)
	c := e.addCustomer(t)
	inv := e.sentInvoice(t, c.ID, 18)

	res, err := e.svc.ProcessPayment(context.Background(), clerk, inv.Number, dto.ProcessPaymentRequest{
		Amount:          dec("30"),
		PaymentMethodID: "pm_card",
	})
	require.NoError(t, err)
	assert.Equal(t, string(entity.InvoiceStatusPartiallyPaid), res.InvoiceStatus)
	assert.True(t, dec("70.00").Equal(e.invoice(t, inv.Number).BalanceDue))
}

func TestProcessPayment_Fallos(t *testing.T) {
	cases := []struct {
		name   string
		handle func(billing.GatewayRequest) (*billing.GatewayResult, error)
		reason string
	}{
		{name: "rechazo reportado", handle: declined("card_declined"), reason: "card_declined"},
		{name: "fallo de transporte", handle: transportError, reason: "connection reset"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			e := newEnv(t)
			e.gateway.handle = tc.handle
			c := e.addCustomer(t)
			inv := e.sentInvoice(t, c.ID, 18)

			_, err := e.svc.ProcessPayment(context.Background(), clerk, inv.Number, dto.ProcessPaymentRequest{
				Amount:          dec("100"),
				PaymentMethodID: "pm_card",
			})
			require.Error(t, err)
			assert.True(t, errors.Is(err, domain.ErrExternalCollaborator))

			// El intento fallido queda registrado aunque la operación falle.
			list := e.payments(t, inv.Number)
			require.Len(t, list, 1)
			assert.Equal(t, string(entity.PaymentStatusFailed), list[0].Status)
			assert.Contains(t, list[0].FailureReason, tc.reason)
			assert.Nil(t, list[0].ProcessedAt)
			assert.Contains(t, e.auditActions(t, inv.Number), entity.AuditPaymentFailed)

			assert.Equal(t, string(entity.InvoiceStatusSent), e.invoice(t, inv.Number).Status)
			assert.True(t, dec("100.00").Equal(e.customer(t, c.ID).Balance))
			assert.Len(t, e.notifier.failures, 1)
		})
	}
}

func TestProcessPayment_Pendiente(t *testing.T) {
	e := newEnv(t)
	e.gateway.handle = func(billing.GatewayRequest) (*billing.GatewayResult, error) {
		return &billing.GatewayResult{PaymentID: "gw-p", Status: entity.PaymentStatusPending}, nil
	}
	c := e.addCustomer(t)
	inv := e.sentInvoice(t, c.ID, 18)

	res, err := e.svc.ProcessPayment(context.Background(), clerk, inv.Number, dto.ProcessPaymentRequest{
		Amount:          dec("100"),
		PaymentMethodID: "pm_pending",
	})
	require.NoError(t, err)
	assert.Equal(t, string(entity.PaymentStatusPending), res.Payment.Status)
	assert.Equal(t, string(entity.InvoiceStatusSent), res.InvoiceStatus)
	assert.True(t, dec("100.00").Equal(e.customer(t, c.ID).Balance))
}

func TestProcessPayment_Validaciones(t *testing.T) {
	e := newEnv(t)
	c := e.addCustomer(t)
	ctx := context.Background()
	inv := e.sentInvoice(t, c.ID, 18)

	_, err := e.svc.ProcessPayment(ctx, clerk, inv.Number, dto.ProcessPaymentRequest{Amount: dec("10")})
	assert.True(t, errors.Is(err, domain.ErrInvalidInput))

	_, err = e.svc.ProcessPayment(ctx, clerk, inv.Number, dto.ProcessPaymentRequest{Amount: dec("0"), PaymentMethodID: "pm"})
	assert.True(t, errors.Is(err, domain.ErrInvalidInput))

	_, err = e.svc.ProcessPayment(ctx, billing.Actor{}, inv.Number, dto.ProcessPaymentRequest{Amount: dec("10"), PaymentMethodID: "pm"})
	assert.True(t, errors.Is(err, domain.ErrUnauthorized))

	assert.Equal(t, 0, e.gateway.calls())
}

// ──────────────────────────────────────────────────────────────────────────────
// Cobro automático
// ──────────────────────────────────────────────────────────────────────────────

func autoPayCustomer(c *entity.Customer) {
	c.AutoPayEnabled = true
	c.DefaultPaymentMethodID = "pm_default"
}

func TestInitiateAutomaticPayment_CobraElSaldo(t *testing.T) {
	e := newEnv(t)
	c := e.addCustomer(t, autoPayCustomer)
	ctx := context.Background()
	inv := e.sentInvoice(t, c.ID, 18)
	_, err := e.svc.RecordManualPayment(ctx, clerk, inv.Number, dto.ManualPaymentRequest{Amount: dec("30")})
	require.NoError(t, err)

	res, err := e.svc.InitiateAutomaticPayment(ctx, billing.AutoPaymentActor, inv.Number)
	require.NoError(t, err)

	require.Equal(t, 1, e.gateway.calls())
	assert.True(t, dec("70.00").Equal(e.gateway.requests[0].Amount))
	assert.Equal(t, "pm_default", e.gateway.requests[0].PaymentMethodID)
	assert.Equal(t, string(entity.InvoiceStatusPaid), res.InvoiceStatus)
	assert.True(t, dec("100.00").Equal(res.TotalPaid))
	assert.Equal(t, entity.ActorSystemAuto, res.Payment.CreatedBy)
	assert.Contains(t, e.auditActions(t, inv.Number), entity.AuditAutomaticPayment)
}

func TestInitiateAutomaticPayment_RechazoConFacturaVencida(t *testing.T) {
	e := newEnv(t)
	e.gateway.handle = declined("insufficient_funds")
	c := e.addCustomer(t, autoPayCustomer)
	inv := e.sentInvoice(t, c.ID, 18)

	e.now = t0.AddDate(0, 0, 31)
	res, err := e.svc.InitiateAutomaticPayment(context.Background(), billing.AutoPaymentActor, inv.Number)
	require.NoError(t, err, "un rechazo reportado no es error para el cobro automático")

	assert.Equal(t, string(entity.PaymentStatusFailed), res.Payment.Status)
	assert.Equal(t, "insufficient_funds", res.Payment.FailureReason)
	assert.Equal(t, string(entity.InvoiceStatusOverdue), res.InvoiceStatus)
	assert.Equal(t, string(entity.InvoiceStatusOverdue), e.invoice(t, inv.Number).Status)
	assert.Len(t, e.notifier.failures, 1)
}

func TestInitiateAutomaticPayment_RechazoEnPlazo(t *testing.T) {
	e := newEnv(t)
	e.gateway.handle = declined("insufficient_funds")
	c := e.addCustomer(t, autoPayCustomer)
	inv := e.sentInvoice(t, c.ID, 18)

	res, err := e.svc.InitiateAutomaticPayment(context.Background(), billing.AutoPaymentActor, inv.Number)
	require.NoError(t, err)
	assert.Equal(t, string(entity.InvoiceStatusSent), res.InvoiceStatus)
}

func TestInitiateAutomaticPayment_PendienteConFacturaVencida(t *testing.T) {
	e := newEnv(t)
	e.gateway.handle = func(billing.GatewayRequest) (*billing.GatewayResult, error) {
		return &billing.GatewayResult{PaymentID: "gw-p", Status: entity.PaymentStatusPending}, nil
	}
	c := e.addCustomer(t, autoPayCustomer)
	inv := e.sentInvoice(t, c.ID, 18)

	e.now = t0.AddDate(0, 0, 31)
	res, err := e.svc.InitiateAutomaticPayment(context.Background(), billing.AutoPaymentActor, inv.Number)
	require.NoError(t, err)

	assert.Equal(t, string(entity.PaymentStatusPending), res.Payment.Status)
	assert.Equal(t, string(entity.InvoiceStatusOverdue), res.InvoiceStatus)
	assert.Equal(t, string(entity.InvoiceStatusOverdue), e.invoice(t, inv.Number).Status)
	assert.Len(t, e.notifier.failures, 1)
	assert.Contains(t, e.auditActions(t, inv.Number), entity.AuditPaymentFailed)
}

func TestInitiateAutomaticPayment_FalloDeTransporte(t *testing.T) {
	e := newEnv(t)
	e.gateway.handle = transportError
	c := e.addCustomer(t, autoPayCustomer)
	inv := e.sentInvoice(t, c.ID, 18)

	_, err := e.svc.InitiateAutomaticPayment(context.Background(), billing.AutoPaymentActor, inv.Number)
	assert.True(t, errors.Is(err, domain.ErrExternalCollaborator))
	assert.Len(t, e.payments(t, inv.Number), 1)
}

func TestInitiateAutomaticPayment_SinMedioDePago(t *testing.T) {
	e := newEnv(t)
	c := e.addCustomer(t)
	inv := e.sentInvoice(t, c.ID, 18)

	_, err := e.svc.InitiateAutomaticPayment(context.Background(), billing.AutoPaymentActor, inv.Number)
	assert.True(t, errors.Is(err, domain.ErrBillingInvariant))
	assert.Equal(t, 0, e.gateway.calls())
	assert.Empty(t, e.payments(t, inv.Number))
}
