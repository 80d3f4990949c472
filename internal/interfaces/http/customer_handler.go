package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/courier-billing/internal/application/billing"
	"github.com/jhoicas/courier-billing/internal/application/dto"
)

// CustomerHandler clientes de facturación, suscripciones y tarificación (protegido).
type CustomerHandler struct {
	responder
	uc  *billing.CustomerUseCase
	svc *billing.Service
}

// NewCustomerHandler construye el handler.
func NewCustomerHandler(uc *billing.CustomerUseCase, svc *billing.Service, r responder) *CustomerHandler {
	return &CustomerHandler{responder: r, uc: uc, svc: svc}
}

// Create POST /api/customers
func (h *CustomerHandler) Create(c *fiber.Ctx) error {
	var in dto.CreateBillingCustomerRequest
	if err := bind(c, &in); err != nil {
		return h.fail(c, err)
	}
	out, err := h.uc.Create(c.Context(), in)
	if err != nil {
		return h.fail(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(out)
}

// Get GET /api/customers/:id
func (h *CustomerHandler) Get(c *fiber.Ctx) error {
	out, err := h.uc.Get(c.Context(), c.Params("id"))
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(out)
}

// List GET /api/customers?limit=20&offset=0
func (h *CustomerHandler) List(c *fiber.Ctx) error {
	out, err := h.uc.List(c.Context(), pageFromQuery(c))
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(out)
}

// PricingTier GET /api/customers/:id/pricing-tier
func (h *CustomerHandler) PricingTier(c *fiber.Ctx) error {
	out, err := h.svc.GetPricingTier(c.Context(), c.Params("id"))
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(out)
}

// CreateSubscription POST /api/subscriptions
func (h *CustomerHandler) CreateSubscription(c *fiber.Ctx) error {
	var in dto.CreateSubscriptionRequest
	if err := bind(c, &in); err != nil {
		return h.fail(c, err)
	}
	out, err := h.uc.CreateSubscription(c.Context(), in)
	if err != nil {
		return h.fail(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(out)
}

// GetSubscription GET /api/subscriptions/:id
func (h *CustomerHandler) GetSubscription(c *fiber.Ctx) error {
	out, err := h.uc.GetSubscription(c.Context(), c.Params("id"))
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(out)
}

// ShippingCharge cotiza un envío sin facturarlo.
// POST /api/pricing/shipping-charge
func (h *CustomerHandler) ShippingCharge(c *fiber.Ctx) error {
	var in dto.ShippingChargeRequest
	if err := bind(c, &in); err != nil {
		return h.fail(c, err)
	}
	out, err := h.svc.CalculateShippingCharge(c.Context(), in)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(out)
}
