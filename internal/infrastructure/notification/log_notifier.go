package notification

import (
	"context"

	"github.com/jhoicas/courier-billing/internal/application/billing"
	"github.com/jhoicas/courier-billing/internal/domain/entity"
	"github.com/jhoicas/courier-billing/internal/domain/money"
	"github.com/jhoicas/courier-billing/pkg/logger"
)

var _ billing.Notifier = (*LogNotifier)(nil)

// LogNotifier escribe las notificaciones en el log (entornos sin SMTP).
type LogNotifier struct {
	log *logger.Logger
}

// NewLogNotifier construye el notificador.
func NewLogNotifier(log *logger.Logger) *LogNotifier {
	if log == nil {
		log = logger.Nop()
	}
	return &LogNotifier{log: log.Named("notification")}
}

func (n *LogNotifier) SendInvoice(_ context.Context, d billing.InvoiceDelivery) error {
	n.log.Info().
		Str("invoice_number", d.Invoice.Number).
		Str("recipient", d.Recipient).
		Int("pdf_bytes", len(d.PDF)).
		Msg("factura enviada")
	return nil
}

func (n *LogNotifier) SendPaymentConfirmation(_ context.Context, inv *entity.Invoice, p *entity.Payment) error {
	n.log.Info().Str("invoice_number", inv.Number).Str("payment_id", p.ID).Str("amount", money.Format(p.Amount)).Msg("confirmación de pago")
	return nil
}

func (n *LogNotifier) SendPaymentFailure(_ context.Context, inv *entity.Invoice, p *entity.Payment) error {
	n.log.Info().Str("invoice_number", inv.Number).Str("payment_id", p.ID).Str("reason", p.FailureReason).Msg("aviso de pago fallido")
	return nil
}

func (n *LogNotifier) SendRefundConfirmation(_ context.Context, inv *entity.Invoice, refund *entity.Payment) error {
	n.log.Info().Str("invoice_number", inv.Number).Str("refund_id", refund.ID).Str("amount", money.Format(refund.Amount)).Msg("confirmación de reembolso")
	return nil
}
