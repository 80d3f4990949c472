package repository

import (
	"context"
	"time"

	"github.com/jhoicas/courier-billing/internal/domain/entity"
)

// InvoiceRepository define el puerto de persistencia para Invoice y sus líneas.
// Las lecturas devuelven (nil, nil) si no existe el registro.
type InvoiceRepository interface {
	// Create inserta la cabecera. Devuelve domain.ErrDuplicate si el número ya existe.
	Create(ctx context.Context, invoice *entity.Invoice) error
	CreateLineItems(ctx context.Context, items []*entity.LineItem) error
	// Update persiste estado y campos editables si la versión coincide (si no, domain.ErrConflict)
	// e incrementa invoice.Version.
	Update(ctx context.Context, invoice *entity.Invoice) error
	GetByID(ctx context.Context, id string) (*entity.Invoice, error)
	GetByNumber(ctx context.Context, number string) (*entity.Invoice, error)
	// GetByNumberForUpdate bloquea la fila hasta el fin de la transacción.
	GetByNumberForUpdate(ctx context.Context, number string) (*entity.Invoice, error)
	GetByIDForUpdate(ctx context.Context, id string) (*entity.Invoice, error)
	GetLineItems(ctx context.Context, invoiceID string) ([]*entity.LineItem, error)
	ListByCustomer(ctx context.Context, customerID string, limit, offset int) ([]*entity.Invoice, error)
	ListByStatus(ctx context.Context, status entity.InvoiceStatus, from, to time.Time, limit, offset int) ([]*entity.Invoice, error)
	// ListOverdueCandidates facturas SENT o PARTIALLY_PAID con vencimiento anterior a now.
	ListOverdueCandidates(ctx context.Context, now time.Time, limit int) ([]*entity.Invoice, error)
	// CountShipmentsSince envíos facturados al cliente desde since (facturas no canceladas).
	CountShipmentsSince(ctx context.Context, customerID string, since time.Time) (int, error)
}
