package billing

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jhoicas/courier-billing/internal/application/dto"
	domainbilling "github.com/jhoicas/courier-billing/internal/domain/billing"
	"github.com/jhoicas/courier-billing/internal/domain/entity"
)

// GetInvoice factura por número con líneas y saldo.
func (s *Service) GetInvoice(ctx context.Context, number string) (*dto.InvoiceResponse, error) {
	inv, err := s.findInvoice(ctx, number)
	if err != nil {
		return nil, err
	}
	return s.invoiceView(ctx, inv)
}

// ListInvoicesByCustomer facturas del cliente, más recientes primero.
func (s *Service) ListInvoicesByCustomer(ctx context.Context, customerID string, page dto.PageRequest) ([]*dto.InvoiceResponse, error) {
	page.DefaultPage()
	list, err := s.reads.Invoices.ListByCustomer(ctx, customerID, page.Limit, page.Offset)
	if err != nil {
		return nil, err
	}
	return s.invoiceSummaries(ctx, list)
}

// ListInvoicesByStatus facturas en un estado creadas dentro de [from, to).
// Un to cero equivale a "sin límite superior".
func (s *Service) ListInvoicesByStatus(ctx context.Context, status string, from, to time.Time, page dto.PageRequest) ([]*dto.InvoiceResponse, error) {
	st := entity.InvoiceStatus(strings.ToUpper(strings.TrimSpace(status)))
	if !st.Valid() {
		return nil, invalidInput(fmt.Sprintf("estado desconocido: %s", status))
	}
	if !to.IsZero() && to.Before(from) {
		return nil, invalidInput("el rango de fechas es inválido")
	}
	page.DefaultPage()
	list, err := s.reads.Invoices.ListByStatus(ctx, st, from, to, page.Limit, page.Offset)
	if err != nil {
		return nil, err
	}
	return s.invoiceSummaries(ctx, list)
}

// ListPaymentsByInvoice pagos y reembolsos de la factura en orden de creación.
func (s *Service) ListPaymentsByInvoice(ctx context.Context, number string) ([]dto.PaymentResponse, error) {
	inv, err := s.findInvoice(ctx, number)
	if err != nil {
		return nil, err
	}
	payments, err := s.reads.Payments.ListByInvoice(ctx, inv.ID)
	if err != nil {
		return nil, err
	}
	return toPaymentResponses(payments), nil
}

// ListPaymentsByCustomer pagos del cliente, más recientes primero.
func (s *Service) ListPaymentsByCustomer(ctx context.Context, customerID string, page dto.PageRequest) ([]dto.PaymentResponse, error) {
	page.DefaultPage()
	payments, err := s.reads.Payments.ListByCustomer(ctx, customerID, page.Limit, page.Offset)
	if err != nil {
		return nil, err
	}
	return toPaymentResponses(payments), nil
}

// ListAuditTrail historial de la factura en orden cronológico.
func (s *Service) ListAuditTrail(ctx context.Context, number string) ([]dto.AuditEntryResponse, error) {
	inv, err := s.findInvoice(ctx, number)
	if err != nil {
		return nil, err
	}
	entries, err := s.reads.Audit.ListByInvoice(ctx, inv.ID)
	if err != nil {
		return nil, err
	}
	return toAuditResponses(entries), nil
}

// Document representación descargable de una factura.
type Document struct {
	Content     []byte
	ContentType string
	Filename    string
}

// RenderDocument genera la factura en el formato pedido (pdf, xml).
func (s *Service) RenderDocument(ctx context.Context, number, format string) (*Document, error) {
	format = strings.ToLower(strings.TrimSpace(format))
	r, ok := s.documents[format]
	if !ok {
		return nil, invalidInput(fmt.Sprintf("formato de documento no soportado: %s", format))
	}
	inv, err := s.findInvoice(ctx, number)
	if err != nil {
		return nil, err
	}
	items, err := s.reads.Invoices.GetLineItems(ctx, inv.ID)
	if err != nil {
		return nil, err
	}
	inv.Items = items
	customer, err := s.loadCustomer(ctx, s.reads, inv.CustomerID)
	if err != nil {
		return nil, err
	}
	content, err := r.Render(ctx, inv, customer)
	if err != nil {
		return nil, err
	}
	return &Document{
		Content:     content,
		ContentType: r.ContentType(),
		Filename:    fmt.Sprintf("%s.%s", inv.Number, format),
	}, nil
}

// ── Helpers ───────────────────────────────────────────────────────────────────

func (s *Service) findInvoice(ctx context.Context, number string) (*entity.Invoice, error) {
	inv, err := s.reads.Invoices.GetByNumber(ctx, number)
	if err != nil {
		return nil, err
	}
	if inv == nil {
		return nil, notFound("factura", number)
	}
	return inv, nil
}

// invoiceView respuesta completa (líneas + cobrado) leída fuera de la transacción.
func (s *Service) invoiceView(ctx context.Context, inv *entity.Invoice) (*dto.InvoiceResponse, error) {
	items, err := s.reads.Invoices.GetLineItems(ctx, inv.ID)
	if err != nil {
		return nil, err
	}
	payments, err := s.reads.Payments.ListByInvoice(ctx, inv.ID)
	if err != nil {
		return nil, err
	}
	return toInvoiceResponse(inv, items, domainbilling.TotalPaid(payments)), nil
}

func (s *Service) invoiceSummaries(ctx context.Context, list []*entity.Invoice) ([]*dto.InvoiceResponse, error) {
	out := make([]*dto.InvoiceResponse, 0, len(list))
	for _, inv := range list {
		payments, err := s.reads.Payments.ListByInvoice(ctx, inv.ID)
		if err != nil {
			return nil, err
		}
		out = append(out, toInvoiceResponse(inv, nil, domainbilling.TotalPaid(payments)))
	}
	return out, nil
}
