package postgres

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/courier-billing/internal/domain"
	"github.com/jhoicas/courier-billing/internal/domain/entity"
	"github.com/jhoicas/courier-billing/internal/domain/repository"
)

var _ repository.PaymentRepository = (*PaymentRepo)(nil)

// PaymentRepo implementación de PaymentRepository. Solo inserta y lee: un pago nunca se modifica.
type PaymentRepo struct {
	q Querier
}

// NewPaymentRepository construye el adaptador. Pasar pool o tx (Querier).
func NewPaymentRepository(q Querier) *PaymentRepo {
	return &PaymentRepo{q: q}
}

const paymentColumns = `
	id, invoice_id, customer_id, amount, currency, method_type, status,
	payment_method_id, gateway_transaction_id, gateway_response, failure_reason,
	original_payment_id, notes, processed_at, created_by, created_at`

func scanPayment(row pgx.Row) (*entity.Payment, error) {
	var p entity.Payment
	var methodType, status string
	var originalID *string
	err := row.Scan(
		&p.ID, &p.InvoiceID, &p.CustomerID, &p.Amount, &p.Currency, &methodType, &status,
		&p.PaymentMethodID, &p.GatewayTransactionID, &p.GatewayResponse, &p.FailureReason,
		&originalID, &p.Notes, &p.ProcessedAt, &p.CreatedBy, &p.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	p.MethodType = entity.PaymentMethodType(methodType)
	p.Status = entity.PaymentStatus(status)
	p.OriginalPaymentID = derefStr(originalID)
	return &p, nil
}

// Create persiste un intento de cobro o reembolso.
func (r *PaymentRepo) Create(ctx context.Context, p *entity.Payment) error {
	query := `
		INSERT INTO payments (` + paymentColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`
	_, err := r.q.Exec(ctx, query,
		p.ID, p.InvoiceID, p.CustomerID, p.Amount, p.Currency, string(p.MethodType), string(p.Status),
		p.PaymentMethodID, p.GatewayTransactionID, p.GatewayResponse, p.FailureReason,
		nullIfEmpty(p.OriginalPaymentID), p.Notes, p.ProcessedAt, p.CreatedBy, p.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.NewError("pago %s duplicado", p.ID).Mark(domain.ErrDuplicate)
		}
		return errors.Wrap(err, "insert payment")
	}
	return nil
}

// GetByID obtiene un pago por ID.
func (r *PaymentRepo) GetByID(ctx context.Context, id string) (*entity.Payment, error) {
	p, err := scanPayment(r.q.QueryRow(ctx, `SELECT `+paymentColumns+` FROM payments WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, errors.Wrap(err, "get payment")
	}
	return p, nil
}

func (r *PaymentRepo) list(ctx context.Context, query string, args ...any) ([]*entity.Payment, error) {
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "list payments")
	}
	defer rows.Close()
	var list []*entity.Payment
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, errors.Wrap(err, "scan payment")
		}
		list = append(list, p)
	}
	return list, rows.Err()
}

// ListByInvoice pagos y reembolsos de la factura en orden de creación.
func (r *PaymentRepo) ListByInvoice(ctx context.Context, invoiceID string) ([]*entity.Payment, error) {
	return r.list(ctx, `SELECT `+paymentColumns+` FROM payments WHERE invoice_id = $1 ORDER BY created_at, id`, invoiceID)
}

// ListByCustomer pagos del cliente, más recientes primero.
func (r *PaymentRepo) ListByCustomer(ctx context.Context, customerID string, limit, offset int) ([]*entity.Payment, error) {
	return r.list(ctx, `SELECT `+paymentColumns+` FROM payments WHERE customer_id = $1
		ORDER BY created_at DESC, id LIMIT $2 OFFSET $3`, customerID, limit, offset)
}

// ListRefundsOf reembolsos (de cualquier estado) del pago original.
func (r *PaymentRepo) ListRefundsOf(ctx context.Context, originalPaymentID string) ([]*entity.Payment, error) {
	return r.list(ctx, `SELECT `+paymentColumns+` FROM payments
		WHERE original_payment_id = $1 AND method_type = 'REFUND' ORDER BY created_at, id`, originalPaymentID)
}
