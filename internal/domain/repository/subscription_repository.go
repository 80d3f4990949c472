package repository

import (
	"context"

	"github.com/jhoicas/courier-billing/internal/domain/entity"
)

// SubscriptionRepository persistencia de suscripciones.
type SubscriptionRepository interface {
	Create(ctx context.Context, sub *entity.Subscription) error
	GetByID(ctx context.Context, id string) (*entity.Subscription, error)
	GetByIDForUpdate(ctx context.Context, id string) (*entity.Subscription, error)
	Update(ctx context.Context, sub *entity.Subscription) error
}
