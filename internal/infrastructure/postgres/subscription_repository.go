package postgres

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/courier-billing/internal/domain"
	"github.com/jhoicas/courier-billing/internal/domain/entity"
	"github.com/jhoicas/courier-billing/internal/domain/repository"
)

var _ repository.SubscriptionRepository = (*SubscriptionRepo)(nil)

// SubscriptionRepo implementación de SubscriptionRepository (usable con pool o tx).
type SubscriptionRepo struct {
	q Querier
}

// NewSubscriptionRepository construye el adaptador. Pasar pool o tx (Querier).
func NewSubscriptionRepository(q Querier) *SubscriptionRepo {
	return &SubscriptionRepo{q: q}
}

const subscriptionColumns = `
	id, customer_id, plan_name, monthly_fee, discount_pct, service_type, currency, status,
	next_billing_date, created_at, updated_at`

// Create persiste una suscripción.
func (r *SubscriptionRepo) Create(ctx context.Context, s *entity.Subscription) error {
	_, err := r.q.Exec(ctx, `
		INSERT INTO subscriptions (`+subscriptionColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		s.ID, s.CustomerID, s.PlanName, s.MonthlyFee, s.DiscountPct, s.ServiceType, s.Currency, s.Status,
		s.NextBillingDate, s.CreatedAt, s.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.NewError("suscripción %s duplicada", s.ID).Mark(domain.ErrDuplicate)
		}
		return errors.Wrap(err, "insert subscription")
	}
	return nil
}

func (r *SubscriptionRepo) getOne(ctx context.Context, query, id string) (*entity.Subscription, error) {
	var s entity.Subscription
	err := r.q.QueryRow(ctx, query, id).Scan(
		&s.ID, &s.CustomerID, &s.PlanName, &s.MonthlyFee, &s.DiscountPct, &s.ServiceType, &s.Currency, &s.Status,
		&s.NextBillingDate, &s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, errors.Wrap(err, "get subscription")
	}
	return &s, nil
}

// GetByID obtiene una suscripción por ID.
func (r *SubscriptionRepo) GetByID(ctx context.Context, id string) (*entity.Subscription, error) {
	return r.getOne(ctx, `SELECT `+subscriptionColumns+` FROM subscriptions WHERE id = $1`, id)
}

// GetByIDForUpdate bloquea la fila hasta el fin de la transacción.
func (r *SubscriptionRepo) GetByIDForUpdate(ctx context.Context, id string) (*entity.Subscription, error) {
	return r.getOne(ctx, `SELECT `+subscriptionColumns+` FROM subscriptions WHERE id = $1 FOR UPDATE`, id)
}

// Update persiste estado y próxima fecha de cobro.
func (r *SubscriptionRepo) Update(ctx context.Context, s *entity.Subscription) error {
	tag, err := r.q.Exec(ctx, `
		UPDATE subscriptions
		SET plan_name = $2, monthly_fee = $3, discount_pct = $4, status = $5,
		    next_billing_date = $6, updated_at = $7
		WHERE id = $1`,
		s.ID, s.PlanName, s.MonthlyFee, s.DiscountPct, s.Status, s.NextBillingDate, s.UpdatedAt,
	)
	if err != nil {
		return errors.Wrap(err, "update subscription")
	}
	if tag.RowsAffected() == 0 {
		return domain.NewError("suscripción %s no existe", s.ID).Mark(domain.ErrNotFound)
	}
	return nil
}
