package repository

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/courier-billing/internal/domain/entity"
)

// CustomerRepository define el puerto de persistencia para Customer (facturación).
type CustomerRepository interface {
	Create(ctx context.Context, customer *entity.Customer) error
	GetByID(ctx context.Context, id string) (*entity.Customer, error)
	List(ctx context.Context, limit, offset int) ([]*entity.Customer, error)
	Update(ctx context.Context, customer *entity.Customer) error
	// AdjustBalance suma delta al saldo del cliente (negativo para cobros).
	AdjustBalance(ctx context.Context, id string, delta decimal.Decimal) error
}
