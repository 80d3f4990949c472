package postgres

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/courier-billing/internal/domain"
	"github.com/jhoicas/courier-billing/internal/domain/entity"
	"github.com/jhoicas/courier-billing/internal/domain/repository"
)

var _ repository.CustomerRepository = (*CustomerRepo)(nil)

// CustomerRepo implementación de CustomerRepository (usable con pool o tx).
type CustomerRepo struct {
	q Querier
}

// NewCustomerRepository construye el adaptador. Pasar pool o tx (Querier).
func NewCustomerRepository(q Querier) *CustomerRepo {
	return &CustomerRepo{q: q}
}

const customerColumns = `
	id, name, email, phone,
	billing_line1, billing_line2, billing_city, billing_state, billing_postal_code, billing_country,
	pricing_tier, payment_terms, auto_pay_enabled, default_payment_method_id, balance,
	created_at, updated_at`

func scanCustomer(row pgx.Row) (*entity.Customer, error) {
	var c entity.Customer
	a := &c.BillingAddress
	err := row.Scan(
		&c.ID, &c.Name, &c.Email, &c.Phone,
		&a.Line1, &a.Line2, &a.City, &a.State, &a.PostalCode, &a.Country,
		&c.PricingTier, &c.PaymentTerms, &c.AutoPayEnabled, &c.DefaultPaymentMethodID, &c.Balance,
		&c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// Create persiste un nuevo cliente.
func (r *CustomerRepo) Create(ctx context.Context, c *entity.Customer) error {
	a := c.BillingAddress
	_, err := r.q.Exec(ctx, `
		INSERT INTO customers (`+customerColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)`,
		c.ID, c.Name, c.Email, c.Phone,
		a.Line1, a.Line2, a.City, a.State, a.PostalCode, a.Country,
		c.PricingTier, c.PaymentTerms, c.AutoPayEnabled, c.DefaultPaymentMethodID, c.Balance,
		c.CreatedAt, c.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.NewError("cliente %s duplicado", c.ID).Mark(domain.ErrDuplicate)
		}
		return errors.Wrap(err, "insert customer")
	}
	return nil
}

// GetByID obtiene un cliente por ID.
func (r *CustomerRepo) GetByID(ctx context.Context, id string) (*entity.Customer, error) {
	c, err := scanCustomer(r.q.QueryRow(ctx, `SELECT `+customerColumns+` FROM customers WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, errors.Wrap(err, "get customer")
	}
	return c, nil
}

// List lista clientes con paginación.
func (r *CustomerRepo) List(ctx context.Context, limit, offset int) ([]*entity.Customer, error) {
	rows, err := r.q.Query(ctx, `SELECT `+customerColumns+` FROM customers ORDER BY name LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, errors.Wrap(err, "list customers")
	}
	defer rows.Close()
	var list []*entity.Customer
	for rows.Next() {
		c, err := scanCustomer(rows)
		if err != nil {
			return nil, errors.Wrap(err, "scan customer")
		}
		list = append(list, c)
	}
	return list, rows.Err()
}

// Update actualiza los datos del cliente; el saldo solo cambia con AdjustBalance.
func (r *CustomerRepo) Update(ctx context.Context, c *entity.Customer) error {
	a := c.BillingAddress
	tag, err := r.q.Exec(ctx, `
		UPDATE customers
		SET name = $2, email = $3, phone = $4,
		    billing_line1 = $5, billing_line2 = $6, billing_city = $7, billing_state = $8,
		    billing_postal_code = $9, billing_country = $10,
		    pricing_tier = $11, payment_terms = $12, auto_pay_enabled = $13,
		    default_payment_method_id = $14, updated_at = $15
		WHERE id = $1`,
		c.ID, c.Name, c.Email, c.Phone,
		a.Line1, a.Line2, a.City, a.State, a.PostalCode, a.Country,
		c.PricingTier, c.PaymentTerms, c.AutoPayEnabled, c.DefaultPaymentMethodID, c.UpdatedAt,
	)
	if err != nil {
		return errors.Wrap(err, "update customer")
	}
	if tag.RowsAffected() == 0 {
		return domain.NewError("cliente %s no existe", c.ID).Mark(domain.ErrNotFound)
	}
	return nil
}

// AdjustBalance suma delta al saldo de forma atómica.
func (r *CustomerRepo) AdjustBalance(ctx context.Context, id string, delta decimal.Decimal) error {
	tag, err := r.q.Exec(ctx, `UPDATE customers SET balance = balance + $2, updated_at = now() WHERE id = $1`, id, delta)
	if err != nil {
		return errors.Wrap(err, "adjust customer balance")
	}
	if tag.RowsAffected() == 0 {
		return domain.NewError("cliente %s no existe", id).Mark(domain.ErrNotFound)
	}
	return nil
}
