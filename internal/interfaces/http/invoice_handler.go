package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/courier-billing/internal/application/billing"
	"github.com/jhoicas/courier-billing/internal/application/dto"
	"github.com/jhoicas/courier-billing/internal/domain"
)

// InvoiceHandler maneja las peticiones HTTP del ciclo de vida de facturas (protegido).
type InvoiceHandler struct {
	responder
	svc *billing.Service
}

// NewInvoiceHandler construye el handler.
func NewInvoiceHandler(svc *billing.Service, r responder) *InvoiceHandler {
	return &InvoiceHandler{responder: r, svc: svc}
}

// CreateShipment factura un envío en DRAFT.
// POST /api/invoices/shipment
func (h *InvoiceHandler) CreateShipment(c *fiber.Ctx) error {
	var in dto.CreateShipmentInvoiceRequest
	if err := bind(c, &in); err != nil {
		return h.fail(c, err)
	}
	out, err := h.svc.CreateShipmentInvoice(c.Context(), actor(c), in)
	if err != nil {
		return h.fail(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(out)
}

// CreateBulk factura un lote de envíos.
// POST /api/invoices/bulk
func (h *InvoiceHandler) CreateBulk(c *fiber.Ctx) error {
	var in dto.CreateBulkInvoiceRequest
	if err := bind(c, &in); err != nil {
		return h.fail(c, err)
	}
	out, err := h.svc.CreateBulkInvoice(c.Context(), actor(c), in)
	if err != nil {
		return h.fail(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(out)
}

// CreateSubscription factura el periodo de una suscripción y la emite.
// POST /api/invoices/subscription
func (h *InvoiceHandler) CreateSubscription(c *fiber.Ctx) error {
	var in dto.CreateSubscriptionInvoiceRequest
	if err := bind(c, &in); err != nil {
		return h.fail(c, err)
	}
	out, err := h.svc.CreateSubscriptionInvoice(c.Context(), actor(c), in.SubscriptionID)
	if err != nil {
		return h.fail(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(out)
}

// Get GET /api/invoices/:number
func (h *InvoiceHandler) Get(c *fiber.Ctx) error {
	out, err := h.svc.GetInvoice(c.Context(), c.Params("number"))
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(out)
}

// ListByStatus GET /api/invoices?status=OVERDUE&from=2025-01-01&to=2025-02-01&limit=20
func (h *InvoiceHandler) ListByStatus(c *fiber.Ctx) error {
	from, okFrom := timeQuery(c, "from")
	to, okTo := timeQuery(c, "to")
	if !okFrom || !okTo {
		return h.fail(c, domain.NewError("rango de fechas").WithHint("from/to: use RFC3339 o yyyy-MM-dd").Mark(domain.ErrInvalidInput))
	}
	out, err := h.svc.ListInvoicesByStatus(c.Context(), c.Query("status"), from, to, pageFromQuery(c))
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(out)
}

// ListByCustomer GET /api/customers/:id/invoices
func (h *InvoiceHandler) ListByCustomer(c *fiber.Ctx) error {
	out, err := h.svc.ListInvoicesByCustomer(c.Context(), c.Params("id"), pageFromQuery(c))
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(out)
}

// Update PATCH /api/invoices/:number
func (h *InvoiceHandler) Update(c *fiber.Ctx) error {
	var in dto.UpdateInvoiceRequest
	if err := bind(c, &in); err != nil {
		return h.fail(c, err)
	}
	out, err := h.svc.UpdateInvoice(c.Context(), actor(c), c.Params("number"), in)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(out)
}

// Finalize POST /api/invoices/:number/finalize
func (h *InvoiceHandler) Finalize(c *fiber.Ctx) error {
	out, err := h.svc.FinalizeInvoice(c.Context(), actor(c), c.Params("number"))
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(out)
}

// Send POST /api/invoices/:number/send
func (h *InvoiceHandler) Send(c *fiber.Ctx) error {
	var in dto.SendInvoiceRequest
	if len(c.Body()) > 0 {
		if err := bind(c, &in); err != nil {
			return h.fail(c, err)
		}
	}
	out, err := h.svc.SendInvoice(c.Context(), actor(c), c.Params("number"), in)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(out)
}

// Cancel POST /api/invoices/:number/cancel
func (h *InvoiceHandler) Cancel(c *fiber.Ctx) error {
	var in dto.CancelInvoiceRequest
	if len(c.Body()) > 0 {
		if err := bind(c, &in); err != nil {
			return h.fail(c, err)
		}
	}
	out, err := h.svc.CancelInvoice(c.Context(), actor(c), c.Params("number"), in.Reason)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(out)
}

// Audit GET /api/invoices/:number/audit
func (h *InvoiceHandler) Audit(c *fiber.Ctx) error {
	out, err := h.svc.ListAuditTrail(c.Context(), c.Params("number"))
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(out)
}

// Document descarga la factura.
// GET /api/invoices/:number/document?format=pdf|xml
func (h *InvoiceHandler) Document(c *fiber.Ctx) error {
	doc, err := h.svc.RenderDocument(c.Context(), c.Params("number"), c.Query("format", billing.DocumentPDF))
	if err != nil {
		return h.fail(c, err)
	}
	c.Set(fiber.HeaderContentType, doc.ContentType)
	c.Set(fiber.HeaderContentDisposition, `attachment; filename="`+doc.Filename+`"`)
	return c.Send(doc.Content)
}

// MarkOverdue ejecuta el barrido de vencidas bajo demanda.
// POST /api/admin/overdue-sweep
func (h *InvoiceHandler) MarkOverdue(c *fiber.Ctx) error {
	out, err := h.svc.MarkOverdueInvoices(c.Context())
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(out)
}
