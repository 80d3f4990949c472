package billing

import (
	"context"
	"fmt"

	"github.com/cockroachdb/errors"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/courier-billing/internal/application/dto"
	domainbilling "github.com/jhoicas/courier-billing/internal/domain/billing"
	"github.com/jhoicas/courier-billing/internal/domain/entity"
	"github.com/jhoicas/courier-billing/internal/domain/money"
)

// ProcessRefund reembolsa parte o todo un pago COMPLETED. El acumulado de reembolsos
// completados nunca supera el importe original. La factura pasa a REFUNDED cuando el pago
// queda reembolsado por completo y a PARTIALLY_REFUNDED en otro caso.
func (s *Service) ProcessRefund(ctx context.Context, actor Actor, paymentID string, in dto.RefundRequest) (*dto.RefundResponse, error) {
	if err := validActor(actor); err != nil {
		return nil, err
	}
	amount := money.Round(in.Amount)

	var (
		inv      *entity.Invoice
		original *entity.Payment
		refund   *entity.Payment
		total    decimal.Decimal
		full     bool
		callErr  error
	)
	err := s.tx.RunBilling(ctx, func(r Repos) error {
		var err error
		if original, err = r.Payments.GetByID(ctx, paymentID); err != nil {
			return err
		}
		if original == nil {
			return notFound("pago", paymentID)
		}
		if original.IsRefund() {
			return invariantf("el movimiento %s es un reembolso y no puede reembolsarse", original.ID)
		}
		if !original.IsCompleted() {
			return invariantf("el pago %s no está completado (estado %s)", original.ID, original.Status)
		}
		// El bloqueo de la factura serializa reembolsos concurrentes del mismo pago.
		if inv, err = r.Invoices.GetByIDForUpdate(ctx, original.InvoiceID); err != nil {
			return err
		}
		if inv == nil {
			return notFound("factura", original.InvoiceID)
		}
		refunds, err := r.Payments.ListRefundsOf(ctx, original.ID)
		if err != nil {
			return err
		}
		already := domainbilling.TotalRefunded(refunds, original.ID)
		newTotal, err := domainbilling.CheckRefundBound(original, already, amount)
		if err != nil {
			return err
		}
		full = newTotal.GreaterThanOrEqual(original.Amount)
		target := entity.InvoiceStatusPartiallyRefunded
		if full {
			target = entity.InvoiceStatusRefunded
		}
		if err := domainbilling.ValidateTransition(inv.Status, target); err != nil {
			return transitionErr(err, inv.Number)
		}

		refund, callErr, err = s.capture(ctx, r, inv, GatewayRequest{
			Amount:          amount.Neg(),
			Currency:        original.Currency,
			PaymentMethodID: original.PaymentMethodID,
			CustomerID:      original.CustomerID,
			ReferenceID:     original.ID,
			Kind:            GatewayKindRefund,
		}, entity.PaymentMethodRefund, actor, withOriginal(original.ID, in.Reason))
		if err != nil {
			return err
		}
		if !refund.IsCompleted() {
			total = already
			return nil
		}
		total = newTotal
		if err := s.updateInvoiceStatus(ctx, r, inv, target, actor, in.Reason); err != nil {
			return err
		}
		if err := r.Customers.AdjustBalance(ctx, inv.CustomerID, amount); err != nil {
			return err
		}
		return s.appendAudit(ctx, r, inv.ID, entity.AuditRefundProcessed,
			fmt.Sprintf("reembolso de %s %s del pago %s: %s", money.Format(amount), original.Currency, original.ID, in.Reason), actor)
	})
	if err != nil {
		return nil, err
	}

	switch {
	case callErr != nil:
		s.log.Error().Err(callErr).Str("invoice_number", inv.Number).Str("payment_id", original.ID).Msg("fallo de pasarela en reembolso")
		return nil, collaboratorErr(callErr, "reembolso en pasarela")
	case refund.Status == entity.PaymentStatusFailed:
		s.log.Warn().Str("invoice_number", inv.Number).Str("payment_id", original.ID).Str("reason", refund.FailureReason).Msg("reembolso rechazado")
		return nil, collaboratorErr(errors.Newf("reembolso %s rechazado: %s", refund.ID, refund.FailureReason), "reembolso en pasarela")
	case refund.IsCompleted():
		s.log.Info().
			Str("invoice_number", inv.Number).
			Str("payment_id", original.ID).
			Str("refund_id", refund.ID).
			Str("amount", money.Format(amount)).
			Bool("fully_refunded", full).
			Msg("reembolso procesado")
		if inv.CustomerEmail != "" {
			s.notify("refund_confirmation", inv.Number, func() error {
				return s.notifier.SendRefundConfirmation(ctx, inv, refund)
			})
		}
	}
	return &dto.RefundResponse{
		Refund:            toPaymentResponse(refund),
		RefundID:          refund.ID,
		OriginalPaymentID: original.ID,
		TotalRefunded:     total,
		FullyRefunded:     full && refund.IsCompleted(),
		InvoiceStatus:     string(inv.Status),
	}, nil
}

// paymentOption completa el registro antes de persistirlo.
type paymentOption func(p *entity.Payment)

func withOriginal(originalID, notes string) paymentOption {
	return func(p *entity.Payment) {
		p.OriginalPaymentID = originalID
		p.Notes = notes
	}
}
