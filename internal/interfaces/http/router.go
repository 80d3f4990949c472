package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/courier-billing/internal/application/billing"
	"github.com/jhoicas/courier-billing/pkg/logger"
)

// RouterDeps dependencias para el router.
type RouterDeps struct {
	Billing    *billing.Service
	CustomerUC *billing.CustomerUseCase
	JWTSecret  string
	Logger     *logger.Logger
}

// Router registra las rutas de la API.
func Router(app *fiber.App, deps RouterDeps) {
	log := deps.Logger
	if log == nil {
		log = logger.Nop()
	}
	r := responder{log: log.Named("http")}
	invoiceHandler := NewInvoiceHandler(deps.Billing, r)
	paymentHandler := NewPaymentHandler(deps.Billing, r)
	customerHandler := NewCustomerHandler(deps.CustomerUC, deps.Billing, r)

	// Todas las rutas requieren Bearer Token
	api := app.Group("/api", AuthMiddleware(deps.JWTSecret))
	anyRole := RequireRole(RoleAdmin, RoleBilling, RoleAuditor)
	writers := RequireRole(RoleAdmin, RoleBilling)
	admin := RequireRole(RoleAdmin)

	// Customers
	customers := api.Group("/customers")
	customers.Get("/", anyRole, customerHandler.List)
	customers.Post("/", writers, customerHandler.Create)
	customers.Get("/:id", anyRole, customerHandler.Get)
	customers.Get("/:id/pricing-tier", anyRole, customerHandler.PricingTier)
	customers.Get("/:id/invoices", anyRole, invoiceHandler.ListByCustomer)
	customers.Get("/:id/payments", anyRole, paymentHandler.ListByCustomer)

	// Subscriptions
	subscriptions := api.Group("/subscriptions")
	subscriptions.Post("/", writers, customerHandler.CreateSubscription)
	subscriptions.Get("/:id", anyRole, customerHandler.GetSubscription)

	// Pricing
	api.Post("/pricing/shipping-charge", anyRole, customerHandler.ShippingCharge)

	// Invoices
	invoices := api.Group("/invoices")
	invoices.Get("/", anyRole, invoiceHandler.ListByStatus)
	invoices.Post("/shipment", writers, invoiceHandler.CreateShipment)
	invoices.Post("/bulk", writers, invoiceHandler.CreateBulk)
	invoices.Post("/subscription", writers, invoiceHandler.CreateSubscription)
	invoices.Get("/:number", anyRole, invoiceHandler.Get)
	invoices.Patch("/:number", writers, invoiceHandler.Update)
	invoices.Post("/:number/finalize", writers, invoiceHandler.Finalize)
	invoices.Post("/:number/send", writers, invoiceHandler.Send)
	invoices.Post("/:number/cancel", admin, invoiceHandler.Cancel)
	invoices.Get("/:number/audit", anyRole, invoiceHandler.Audit)
	invoices.Get("/:number/document", anyRole, invoiceHandler.Document)

	// Payments
	invoices.Get("/:number/payments", anyRole, paymentHandler.ListByInvoice)
	invoices.Post("/:number/payments", writers, paymentHandler.Process)
	invoices.Post("/:number/payments/manual", writers, paymentHandler.RecordManual)
	invoices.Post("/:number/payments/auto", writers, paymentHandler.Auto)
	api.Post("/payments/:id/refunds", admin, paymentHandler.Refund)

	// Admin
	api.Post("/admin/overdue-sweep", admin, invoiceHandler.MarkOverdue)
}
