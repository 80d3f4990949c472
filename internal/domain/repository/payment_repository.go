package repository

import (
	"context"

	"github.com/jhoicas/courier-billing/internal/domain/entity"
)

// PaymentRepository persistencia de pagos y reembolsos (solo inserción y lectura).
type PaymentRepository interface {
	Create(ctx context.Context, payment *entity.Payment) error
	GetByID(ctx context.Context, id string) (*entity.Payment, error)
	ListByInvoice(ctx context.Context, invoiceID string) ([]*entity.Payment, error)
	ListByCustomer(ctx context.Context, customerID string, limit, offset int) ([]*entity.Payment, error)
	ListRefundsOf(ctx context.Context, originalPaymentID string) ([]*entity.Payment, error)
}
