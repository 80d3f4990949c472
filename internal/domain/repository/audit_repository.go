package repository

import (
	"context"

	"github.com/jhoicas/courier-billing/internal/domain/entity"
)

// AuditRepository historial append-only de acciones sobre facturas.
type AuditRepository interface {
	Append(ctx context.Context, entry *entity.BillingAuditEntry) error
	ListByInvoice(ctx context.Context, invoiceID string) ([]*entity.BillingAuditEntry, error)
}
