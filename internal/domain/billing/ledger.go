package billing

import (
	"github.com/samber/lo"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/courier-billing/internal/domain"
	"github.com/jhoicas/courier-billing/internal/domain/entity"
	"github.com/jhoicas/courier-billing/internal/domain/money"
)

// TotalPaid suma de los cobros COMPLETED que no son reembolsos.
func TotalPaid(payments []*entity.Payment) decimal.Decimal {
	captures := lo.Filter(payments, func(p *entity.Payment, _ int) bool {
		return p.IsCompleted() && !p.IsRefund()
	})
	return money.Round(lo.Reduce(captures, func(acc decimal.Decimal, p *entity.Payment, _ int) decimal.Decimal {
		return acc.Add(p.Amount)
	}, decimal.Zero))
}

// TotalRefunded suma de |importe| de los reembolsos COMPLETED del pago originalID.
func TotalRefunded(payments []*entity.Payment, originalID string) decimal.Decimal {
	refunds := lo.Filter(payments, func(p *entity.Payment, _ int) bool {
		return p.IsRefund() && p.IsCompleted() && p.OriginalPaymentID == originalID
	})
	return money.Round(lo.Reduce(refunds, func(acc decimal.Decimal, p *entity.Payment, _ int) decimal.Decimal {
		return acc.Add(money.Abs(p.Amount))
	}, decimal.Zero))
}

// BalanceDue total - pagado, nunca negativo.
func BalanceDue(inv *entity.Invoice, payments []*entity.Payment) decimal.Decimal {
	due := inv.Total.Sub(TotalPaid(payments))
	if due.IsNegative() {
		return decimal.Zero
	}
	return money.Round(due)
}

// CheckRefundBound valida que alreadyRefunded + requested <= original.Amount.
// Devuelve el nuevo total reembolsado.
func CheckRefundBound(original *entity.Payment, alreadyRefunded, requested decimal.Decimal) (decimal.Decimal, error) {
	if !money.IsPositive(requested) {
		return decimal.Zero, domain.NewError("importe de reembolso no positivo: %s", requested).
			WithHint("el importe del reembolso debe ser mayor que cero").
			Mark(domain.ErrInvalidInput)
	}
	if requested.GreaterThan(original.Amount) {
		return decimal.Zero, domain.NewError("reembolso %s supera el pago %s", requested, original.Amount).
			WithHintf("el reembolso (%s) supera el importe del pago (%s)", money.Format(requested), money.Format(original.Amount)).
			Mark(domain.ErrBillingInvariant)
	}
	total := money.Round(alreadyRefunded.Add(requested))
	if total.GreaterThan(original.Amount) {
		return decimal.Zero, domain.NewError("reembolso acumulado %s supera el pago %s", total, original.Amount).
			WithHintf("el total reembolsado (%s) superaría el importe del pago (%s)", money.Format(total), money.Format(original.Amount)).
			Mark(domain.ErrBillingInvariant)
	}
	return total, nil
}
