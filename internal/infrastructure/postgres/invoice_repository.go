package postgres

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/courier-billing/internal/domain"
	"github.com/jhoicas/courier-billing/internal/domain/entity"
	"github.com/jhoicas/courier-billing/internal/domain/repository"
)

var _ repository.InvoiceRepository = (*InvoiceRepo)(nil)

// InvoiceRepo implementación de InvoiceRepository (usable con pool o tx).
type InvoiceRepo struct {
	q Querier
}

// NewInvoiceRepository construye el adaptador. Pasar pool o tx (Querier).
func NewInvoiceRepository(q Querier) *InvoiceRepo {
	return &InvoiceRepo{q: q}
}

const invoiceColumns = `
	id, number, customer_id, customer_name, customer_email,
	billing_line1, billing_line2, billing_city, billing_state, billing_postal_code, billing_country,
	subtotal, discount, tax, total, currency, status, due_date,
	shipment_id, subscription_id, metadata, created_by,
	created_at, updated_at, sent_at, last_sent_at, paid_at, cancelled_at, version`

func scanInvoice(row pgx.Row) (*entity.Invoice, error) {
	var inv entity.Invoice
	var shipmentID, subscriptionID *string
	var status string
	err := row.Scan(
		&inv.ID, &inv.Number, &inv.CustomerID, &inv.CustomerName, &inv.CustomerEmail,
		&inv.BillingAddress.Line1, &inv.BillingAddress.Line2, &inv.BillingAddress.City,
		&inv.BillingAddress.State, &inv.BillingAddress.PostalCode, &inv.BillingAddress.Country,
		&inv.Subtotal, &inv.Discount, &inv.Tax, &inv.Total, &inv.Currency, &status, &inv.DueDate,
		&shipmentID, &subscriptionID, &inv.Metadata, &inv.CreatedBy,
		&inv.CreatedAt, &inv.UpdatedAt, &inv.SentAt, &inv.LastSentAt, &inv.PaidAt, &inv.CancelledAt, &inv.Version,
	)
	if err != nil {
		return nil, err
	}
	inv.Status = entity.InvoiceStatus(status)
	inv.ShipmentID = derefStr(shipmentID)
	inv.SubscriptionID = derefStr(subscriptionID)
	if inv.Metadata == nil {
		inv.Metadata = map[string]string{}
	}
	return &inv, nil
}

// Create persiste la cabecera. El número es único: una colisión devuelve domain.ErrDuplicate.
func (r *InvoiceRepo) Create(ctx context.Context, invoice *entity.Invoice) error {
	if invoice.Version == 0 {
		invoice.Version = 1
	}
	if invoice.Metadata == nil {
		invoice.Metadata = map[string]string{}
	}
	query := `
		INSERT INTO invoices (` + invoiceColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18,
		        $19, $20, $21, $22, $23, $24, $25, $26, $27, $28, $29)
		ON CONFLICT (number) DO NOTHING`
	a := invoice.BillingAddress
	tag, err := r.q.Exec(ctx, query,
		invoice.ID, invoice.Number, invoice.CustomerID, invoice.CustomerName, invoice.CustomerEmail,
		a.Line1, a.Line2, a.City, a.State, a.PostalCode, a.Country,
		invoice.Subtotal, invoice.Discount, invoice.Tax, invoice.Total, invoice.Currency, string(invoice.Status), invoice.DueDate,
		nullIfEmpty(invoice.ShipmentID), nullIfEmpty(invoice.SubscriptionID), invoice.Metadata, invoice.CreatedBy,
		invoice.CreatedAt, invoice.UpdatedAt, invoice.SentAt, invoice.LastSentAt, invoice.PaidAt, invoice.CancelledAt, invoice.Version,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return duplicateNumber(invoice.Number)
		}
		return errors.Wrap(err, "insert invoice")
	}
	if tag.RowsAffected() == 0 {
		return duplicateNumber(invoice.Number)
	}
	return nil
}

func duplicateNumber(number string) error {
	return domain.NewError("número de factura %s ya existe", number).Mark(domain.ErrDuplicate)
}

// CreateLineItems persiste las líneas en un batch.
func (r *InvoiceRepo) CreateLineItems(ctx context.Context, items []*entity.LineItem) error {
	if len(items) == 0 {
		return nil
	}
	query := `
		INSERT INTO invoice_line_items (id, invoice_id, position, kind, description, shipment_id, quantity, unit_price, amount)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	batch := &pgx.Batch{}
	for _, it := range items {
		batch.Queue(query, it.ID, it.InvoiceID, it.Position, it.Kind, it.Description,
			nullIfEmpty(it.ShipmentID), it.Quantity, it.UnitPrice, it.Amount)
	}
	br := r.q.SendBatch(ctx, batch)
	defer br.Close()
	for range items {
		if _, err := br.Exec(); err != nil {
			return errors.Wrap(err, "insert line item")
		}
	}
	return nil
}

// Update persiste los campos mutables con control optimista por versión.
func (r *InvoiceRepo) Update(ctx context.Context, invoice *entity.Invoice) error {
	query := `
		UPDATE invoices
		SET customer_name       = $3,
		    customer_email      = $4,
		    billing_line1       = $5,
		    billing_line2       = $6,
		    billing_city        = $7,
		    billing_state       = $8,
		    billing_postal_code = $9,
		    billing_country     = $10,
		    currency            = $11,
		    status              = $12,
		    due_date            = $13,
		    metadata            = $14,
		    updated_at          = $15,
		    sent_at             = $16,
		    last_sent_at        = $17,
		    paid_at             = $18,
		    cancelled_at        = $19,
		    version             = version + 1
		WHERE id = $1 AND version = $2`
	a := invoice.BillingAddress
	tag, err := r.q.Exec(ctx, query,
		invoice.ID, invoice.Version,
		invoice.CustomerName, invoice.CustomerEmail,
		a.Line1, a.Line2, a.City, a.State, a.PostalCode, a.Country,
		invoice.Currency, string(invoice.Status), invoice.DueDate, invoice.Metadata, invoice.UpdatedAt,
		invoice.SentAt, invoice.LastSentAt, invoice.PaidAt, invoice.CancelledAt,
	)
	if err != nil {
		return errors.Wrap(err, "update invoice")
	}
	if tag.RowsAffected() == 0 {
		return domain.NewError("factura %s modificada concurrentemente (versión %d)", invoice.Number, invoice.Version).
			WithHint("la factura cambió mientras se procesaba la operación; reintente").
			Mark(domain.ErrConflict)
	}
	invoice.Version++
	return nil
}

func (r *InvoiceRepo) getOne(ctx context.Context, where string, arg any) (*entity.Invoice, error) {
	inv, err := scanInvoice(r.q.QueryRow(ctx, `SELECT `+invoiceColumns+` FROM invoices WHERE `+where, arg))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, errors.Wrap(err, "get invoice")
	}
	return inv, nil
}

// GetByID obtiene la cabecera por ID.
func (r *InvoiceRepo) GetByID(ctx context.Context, id string) (*entity.Invoice, error) {
	return r.getOne(ctx, "id = $1", id)
}

// GetByNumber obtiene la cabecera por número.
func (r *InvoiceRepo) GetByNumber(ctx context.Context, number string) (*entity.Invoice, error) {
	return r.getOne(ctx, "number = $1", number)
}

// GetByNumberForUpdate bloquea la fila (solo tiene efecto dentro de una tx).
func (r *InvoiceRepo) GetByNumberForUpdate(ctx context.Context, number string) (*entity.Invoice, error) {
	return r.getOne(ctx, "number = $1 FOR UPDATE", number)
}

// GetByIDForUpdate bloquea la fila (solo tiene efecto dentro de una tx).
func (r *InvoiceRepo) GetByIDForUpdate(ctx context.Context, id string) (*entity.Invoice, error) {
	return r.getOne(ctx, "id = $1 FOR UPDATE", id)
}

// GetLineItems líneas en orden de posición.
func (r *InvoiceRepo) GetLineItems(ctx context.Context, invoiceID string) ([]*entity.LineItem, error) {
	query := `
		SELECT id, invoice_id, position, kind, description, shipment_id, quantity, unit_price, amount
		FROM invoice_line_items WHERE invoice_id = $1 ORDER BY position`
	rows, err := r.q.Query(ctx, query, invoiceID)
	if err != nil {
		return nil, errors.Wrap(err, "list line items")
	}
	defer rows.Close()
	var list []*entity.LineItem
	for rows.Next() {
		var it entity.LineItem
		var shipmentID *string
		if err := rows.Scan(&it.ID, &it.InvoiceID, &it.Position, &it.Kind, &it.Description,
			&shipmentID, &it.Quantity, &it.UnitPrice, &it.Amount); err != nil {
			return nil, errors.Wrap(err, "scan line item")
		}
		it.ShipmentID = derefStr(shipmentID)
		list = append(list, &it)
	}
	return list, rows.Err()
}

func (r *InvoiceRepo) list(ctx context.Context, query string, args ...any) ([]*entity.Invoice, error) {
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "list invoices")
	}
	defer rows.Close()
	var list []*entity.Invoice
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, errors.Wrap(err, "scan invoice")
		}
		list = append(list, inv)
	}
	return list, rows.Err()
}

// ListByCustomer facturas del cliente, más recientes primero.
func (r *InvoiceRepo) ListByCustomer(ctx context.Context, customerID string, limit, offset int) ([]*entity.Invoice, error) {
	return r.list(ctx, `SELECT `+invoiceColumns+` FROM invoices WHERE customer_id = $1
		ORDER BY created_at DESC LIMIT $2 OFFSET $3`, customerID, limit, offset)
}

// ListByStatus facturas en status creadas en [from, to). to cero = sin límite.
func (r *InvoiceRepo) ListByStatus(ctx context.Context, status entity.InvoiceStatus, from, to time.Time, limit, offset int) ([]*entity.Invoice, error) {
	var upper *time.Time
	if !to.IsZero() {
		upper = &to
	}
	return r.list(ctx, `SELECT `+invoiceColumns+` FROM invoices
		WHERE status = $1 AND created_at >= $2 AND ($3::timestamptz IS NULL OR created_at < $3)
		ORDER BY created_at LIMIT $4 OFFSET $5`, string(status), from, upper, limit, offset)
}

// ListOverdueCandidates facturas SENT o PARTIALLY_PAID vencidas respecto a now.
func (r *InvoiceRepo) ListOverdueCandidates(ctx context.Context, now time.Time, limit int) ([]*entity.Invoice, error) {
	return r.list(ctx, `SELECT `+invoiceColumns+` FROM invoices
		WHERE status IN ('SENT', 'PARTIALLY_PAID') AND due_date < $1
		ORDER BY due_date LIMIT $2`, now, limit)
}

// CountShipmentsSince envíos facturados al cliente desde since, excluyendo facturas canceladas.
func (r *InvoiceRepo) CountShipmentsSince(ctx context.Context, customerID string, since time.Time) (int, error) {
	query := `
		SELECT COUNT(*)
		FROM invoice_line_items li
		JOIN invoices i ON i.id = li.invoice_id
		WHERE i.customer_id = $1 AND i.created_at >= $2 AND i.status <> 'CANCELLED' AND li.kind = 'SHIPPING'`
	var n int
	if err := r.q.QueryRow(ctx, query, customerID, since).Scan(&n); err != nil {
		return 0, errors.Wrap(err, "count shipments")
	}
	return n, nil
}
