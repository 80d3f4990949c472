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

// paidInvoice factura de 50.00 pagada con un único cobro manual.
func (e *env) paidInvoice(t *testing.T) (*entity.Customer, *dto.InvoiceResponse, dto.PaymentResponse) {
	t.Helper()
	c := e.addCustomer(t)
	inv := e.sentInvoice(t, c.ID, 8)
	res, err := e.svc.RecordManualPayment(context.Background(), clerk, inv.Number, dto.ManualPaymentRequest{Amount: dec("50")})
	require.NoError(t, err)
	require.Equal(t, string(entity.InvoiceStatusPaid), res.InvoiceStatus)
	return c, inv, res.Payment
}

func TestProcessRefund_ParcialYTotal(t *testing.T) {
	e := newEnv(t)
	c, inv, payment := e.paidInvoice(t)
	ctx := context.Background()

	res, err := e.svc.ProcessRefund(ctx, clerk, payment.ID, dto.RefundRequest{Amount: dec("30"), Reason: "paquete dañado"})
	require.NoError(t, err)
	assert.Equal(t, string(entity.InvoiceStatusPartiallyRefunded), res.InvoiceStatus)
	assert.True(t, dec("30.00").Equal(res.TotalRefunded))
	assert.False(t, res.FullyRefunded)
	assert.Equal(t, payment.ID, res.OriginalPaymentID)
	assert.True(t, dec("-30.00").Equal(res.Refund.Amount), "los reembolsos llevan importe negativo")
	assert.Equal(t, string(entity.PaymentMethodRefund), res.Refund.MethodType)
	assert.True(t, dec("30.00").Equal(e.customer(t, c.ID).Balance))

	require.Equal(t, 1, e.gateway.calls())
	assert.Equal(t, billing.GatewayKindRefund, e.gateway.requests[0].Kind)
	assert.Equal(t, payment.ID, e.gateway.requests[0].ReferenceID)

	// 30 + 30 > 50
	_, err = e.svc.ProcessRefund(ctx, clerk, payment.ID, dto.RefundRequest{Amount: dec("30"), Reason: "otra vez"})
	assert.True(t, errors.Is(err, domain.ErrBillingInvariant))
	assert.Equal(t, 1, e.gateway.calls(), "un reembolso fuera de límite no llega a la pasarela")

	res, err = e.svc.ProcessRefund(ctx, clerk, payment.ID, dto.RefundRequest{Amount: dec("20"), Reason: "resto"})
	require.NoError(t, err)
	assert.Equal(t, string(entity.InvoiceStatusRefunded), res.InvoiceStatus)
	assert.True(t, res.FullyRefunded)
	assert.True(t, dec("50.00").Equal(res.TotalRefunded))
	assert.True(t, dec("50.00").Equal(e.customer(t, c.ID).Balance))

	// REFUNDED es terminal.
	_, err = e.svc.ProcessRefund(ctx, clerk, payment.ID, dto.RefundRequest{Amount: dec("0.01"), Reason: "x"})
	assert.Error(t, err)

	actions := e.auditActions(t, inv.Number)
	assert.Contains(t, actions, entity.AuditRefundProcessed)
	assert.Len(t, e.payments(t, inv.Number), 3)
	assert.Len(t, e.notifier.refunds, 2)
}

func TestProcessRefund_TotalDeUnaVez(t *testing.T) {
	e := newEnv(t)
	_, _, payment := e.paidInvoice(t)

	res, err := e.svc.ProcessRefund(context.Background(), clerk, payment.ID, dto.RefundRequest{Amount: dec("50"), Reason: "envío perdido"})
	require.NoError(t, err)
	assert.Equal(t, string(entity.InvoiceStatusRefunded), res.InvoiceStatus)
	assert.True(t, res.FullyRefunded)
}

func TestProcessRefund_VariosCobrosUnoDevueltoEntero(t *testing.T) {
	e := newEnv(t)
	c := e.addCustomer(t)
	inv := e.sentInvoice(t, c.ID, 8)
	ctx := context.Background()
	first, err := e.svc.RecordManualPayment(ctx, clerk, inv.Number, dto.ManualPaymentRequest{Amount: dec("20")})
	require.NoError(t, err)
	second, err := e.svc.RecordManualPayment(ctx, clerk, inv.Number, dto.ManualPaymentRequest{Amount: dec("30")})
	require.NoError(t, err)
	require.Equal(t, string(entity.InvoiceStatusPaid), second.InvoiceStatus)

	res, err := e.svc.ProcessRefund(ctx, clerk, first.Payment.ID, dto.RefundRequest{Amount: dec("20"), Reason: "bulto devuelto"})
	require.NoError(t, err)
	assert.True(t, res.FullyRefunded)
	assert.Equal(t, string(entity.InvoiceStatusRefunded), res.InvoiceStatus)

	// REFUNDED es terminal: el otro cobro ya no admite reembolso.
	_, err = e.svc.ProcessRefund(ctx, clerk, second.Payment.ID, dto.RefundRequest{Amount: dec("5"), Reason: "x"})
	assert.True(t, errors.Is(err, domain.ErrInvalidStateTransition))
	assert.Equal(t, 1, e.gateway.calls())
}

func TestProcessRefund_Rechazos(t *testing.T) {
	e := newEnv(t)
	_, _, payment := e.paidInvoice(t)
	ctx := context.Background()

	_, err := e.svc.ProcessRefund(ctx, clerk, payment.ID, dto.RefundRequest{Amount: dec("60"), Reason: "x"})
	assert.True(t, errors.Is(err, domain.ErrBillingInvariant))

	_, err = e.svc.ProcessRefund(ctx, clerk, payment.ID, dto.RefundRequest{Amount: dec("0"), Reason: "x"})
	assert.True(t, errors.Is(err, domain.ErrInvalidInput))

	_, err = e.svc.ProcessRefund(ctx, clerk, "missing", dto.RefundRequest{Amount: dec("1"), Reason: "x"})
	assert.True(t, errors.Is(err, domain.ErrNotFound))

	res, err := e.svc.ProcessRefund(ctx, clerk, payment.ID, dto.RefundRequest{Amount: dec("10"), Reason: "x"})
	require.NoError(t, err)
	_, err = e.svc.ProcessRefund(ctx, clerk, res.RefundID, dto.RefundRequest{Amount: dec("1"), Reason: "x"})
	assert.True(t, errors.Is(err, domain.ErrBillingInvariant), "un reembolso no se reembolsa")
}

func TestProcessRefund_PagoFallido(t *testing.T) {
	e := newEnv(t)
	e.gateway.handle = declined("card_declined")
	c := e.addCustomer(t)
	inv := e.sentInvoice(t, c.ID, 8)
	_, err := e.svc.ProcessPayment(context.Background(), clerk, inv.Number, dto.ProcessPaymentRequest{Amount: dec("50"), PaymentMethodID: "pm_card"})
	require.Error(t, err)
	failed := e.payments(t, inv.Number)[0]

	_, err = e.svc.ProcessRefund(context.Background(), clerk, failed.ID, dto.RefundRequest{Amount: dec("10"), Reason: "x"})
	assert.True(t, errors.Is(err, domain.ErrBillingInvariant))
}

func TestProcessRefund_FacturaParcialmentePagada(t *testing.T) {
	e := newEnv(t)
	c := e.addCustomer(t)
	inv := e.sentInvoice(t, c.ID, 8)
	res, err := e.svc.RecordManualPayment(context.Background(), clerk, inv.Number, dto.ManualPaymentRequest{Amount: dec("20")})
	require.NoError(t, err)

	_, err = e.svc.ProcessRefund(context.Background(), clerk, res.Payment.ID, dto.RefundRequest{Amount: dec("5"), Reason: "x"})
	assert.True(t, errors.Is(err, domain.ErrInvalidStateTransition))
	assert.Equal(t, 0, e.gateway.calls())
}

func TestProcessRefund_RechazoDePasarela(t *testing.T) {
	e := newEnv(t)
	c, inv, payment := e.paidInvoice(t)
	e.gateway.handle = declined("refund_window_closed")

	_, err := e.svc.ProcessRefund(context.Background(), clerk, payment.ID, dto.RefundRequest{Amount: dec("10"), Reason: "x"})
	assert.True(t, errors.Is(err, domain.ErrExternalCollaborator))

	assert.Equal(t, string(entity.InvoiceStatusPaid), e.invoice(t, inv.Number).Status)
	assert.True(t, e.customer(t, c.ID).Balance.IsZero())
	assert.Contains(t, e.auditActions(t, inv.Number), entity.AuditRefundFailed)
}
