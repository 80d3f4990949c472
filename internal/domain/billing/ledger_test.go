package billing_test

import (
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/courier-billing/internal/domain"
	"github.com/jhoicas/courier-billing/internal/domain/billing"
	"github.com/jhoicas/courier-billing/internal/domain/entity"
)

func payment(id string, amount string, method entity.PaymentMethodType, status entity.PaymentStatus, original string) *entity.Payment {
	return &entity.Payment{
		ID:                id,
		Amount:            dec(amount),
		MethodType:        method,
		Status:            status,
		OriginalPaymentID: original,
	}
}

func TestTotalPaid_SoloCobrosCompletados(t *testing.T) {
	list := []*entity.Payment{
		payment("p1", "40", entity.PaymentMethodManual, entity.PaymentStatusCompleted, ""),
		payment("p2", "60", entity.PaymentMethodAutomatic, entity.PaymentStatusCompleted, ""),
		payment("p3", "100", entity.PaymentMethodAutomatic, entity.PaymentStatusFailed, ""),
		payment("r1", "-10", entity.PaymentMethodRefund, entity.PaymentStatusCompleted, "p1"),
	}
	assert.Equal(t, "100.00", billing.TotalPaid(list).StringFixed(2))
	assert.Equal(t, "10.00", billing.TotalRefunded(list, "p1").StringFixed(2))
	assert.True(t, billing.TotalRefunded(list, "p2").IsZero())

	inv := &entity.Invoice{Total: dec("120")}
	assert.Equal(t, "20.00", billing.BalanceDue(inv, list).StringFixed(2))
	inv.Total = dec("90")
	assert.True(t, billing.BalanceDue(inv, list).IsZero())
}

// Pago de 50: reembolso de 30 aceptado; un segundo de 30 (acumulado 60) se rechaza.
func TestCheckRefundBound_Acumulado(t *testing.T) {
	original := payment("p1", "50", entity.PaymentMethodManual, entity.PaymentStatusCompleted, "")

	total, err := billing.CheckRefundBound(original, dec("0"), dec("30"))
	require.NoError(t, err)
	assert.Equal(t, "30.00", total.StringFixed(2))

	_, err = billing.CheckRefundBound(original, total, dec("30"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrBillingInvariant))

	total, err = billing.CheckRefundBound(original, total, dec("20"))
	require.NoError(t, err)
	assert.True(t, total.Equal(original.Amount))
}

func TestCheckRefundBound_ImporteInvalido(t *testing.T) {
	original := payment("p1", "50", entity.PaymentMethodManual, entity.PaymentStatusCompleted, "")

	_, err := billing.CheckRefundBound(original, dec("0"), dec("0"))
	assert.True(t, errors.Is(err, domain.ErrInvalidInput))

	_, err = billing.CheckRefundBound(original, dec("0"), dec("50.01"))
	assert.True(t, errors.Is(err, domain.ErrBillingInvariant))
}
