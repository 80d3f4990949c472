package postgres

import (
	"context"

	"github.com/cockroachdb/errors"

	"github.com/jhoicas/courier-billing/internal/domain/entity"
	"github.com/jhoicas/courier-billing/internal/domain/repository"
)

var _ repository.AuditRepository = (*AuditRepo)(nil)

// AuditRepo historial append-only de facturas.
type AuditRepo struct {
	q Querier
}

// NewAuditRepository construye el adaptador. Pasar pool o tx (Querier).
func NewAuditRepository(q Querier) *AuditRepo {
	return &AuditRepo{q: q}
}

// Append inserta una entrada.
func (r *AuditRepo) Append(ctx context.Context, e *entity.BillingAuditEntry) error {
	_, err := r.q.Exec(ctx, `
		INSERT INTO billing_audit_entries (id, invoice_id, action, description, actor, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		e.ID, e.InvoiceID, e.Action, e.Description, e.Actor, e.CreatedAt,
	)
	if err != nil {
		return errors.Wrap(err, "insert audit entry")
	}
	return nil
}

// ListByInvoice entradas de la factura en orden cronológico.
func (r *AuditRepo) ListByInvoice(ctx context.Context, invoiceID string) ([]*entity.BillingAuditEntry, error) {
	rows, err := r.q.Query(ctx, `
		SELECT id, invoice_id, action, description, actor, created_at
		FROM billing_audit_entries WHERE invoice_id = $1 ORDER BY created_at, id`, invoiceID)
	if err != nil {
		return nil, errors.Wrap(err, "list audit entries")
	}
	defer rows.Close()
	var list []*entity.BillingAuditEntry
	for rows.Next() {
		var e entity.BillingAuditEntry
		if err := rows.Scan(&e.ID, &e.InvoiceID, &e.Action, &e.Description, &e.Actor, &e.CreatedAt); err != nil {
			return nil, errors.Wrap(err, "scan audit entry")
		}
		list = append(list, &e)
	}
	return list, rows.Err()
}
