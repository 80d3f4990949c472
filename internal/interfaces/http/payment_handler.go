package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/courier-billing/internal/application/billing"
	"github.com/jhoicas/courier-billing/internal/application/dto"
)

// PaymentHandler cobros manuales, por pasarela, automáticos y reembolsos (protegido).
type PaymentHandler struct {
	responder
	svc *billing.Service
}

// NewPaymentHandler construye el handler.
func NewPaymentHandler(svc *billing.Service, r responder) *PaymentHandler {
	return &PaymentHandler{responder: r, svc: svc}
}

// RecordManual POST /api/invoices/:number/payments/manual
func (h *PaymentHandler) RecordManual(c *fiber.Ctx) error {
	var in dto.ManualPaymentRequest
	if err := bind(c, &in); err != nil {
		return h.fail(c, err)
	}
	out, err := h.svc.RecordManualPayment(c.Context(), actor(c), c.Params("number"), in)
	if err != nil {
		return h.fail(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(out)
}

// Process POST /api/invoices/:number/payments
func (h *PaymentHandler) Process(c *fiber.Ctx) error {
	var in dto.ProcessPaymentRequest
	if err := bind(c, &in); err != nil {
		return h.fail(c, err)
	}
	out, err := h.svc.ProcessPayment(c.Context(), actor(c), c.Params("number"), in)
	if err != nil {
		return h.fail(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(out)
}

// Auto cobra el saldo con el medio por defecto del cliente.
// POST /api/invoices/:number/payments/auto
func (h *PaymentHandler) Auto(c *fiber.Ctx) error {
	out, err := h.svc.InitiateAutomaticPayment(c.Context(), actor(c), c.Params("number"))
	if err != nil {
		return h.fail(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(out)
}

// ListByInvoice GET /api/invoices/:number/payments
func (h *PaymentHandler) ListByInvoice(c *fiber.Ctx) error {
	out, err := h.svc.ListPaymentsByInvoice(c.Context(), c.Params("number"))
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(out)
}

// ListByCustomer GET /api/customers/:id/payments
func (h *PaymentHandler) ListByCustomer(c *fiber.Ctx) error {
	out, err := h.svc.ListPaymentsByCustomer(c.Context(), c.Params("id"), pageFromQuery(c))
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(out)
}

// Refund POST /api/payments/:id/refunds
func (h *PaymentHandler) Refund(c *fiber.Ctx) error {
	var in dto.RefundRequest
	if err := bind(c, &in); err != nil {
		return h.fail(c, err)
	}
	out, err := h.svc.ProcessRefund(c.Context(), actor(c), c.Params("id"), in)
	if err != nil {
		return h.fail(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(out)
}
