package billing

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/text/currency"

	"github.com/jhoicas/courier-billing/internal/domain"
	domainbilling "github.com/jhoicas/courier-billing/internal/domain/billing"
	"github.com/jhoicas/courier-billing/internal/domain/entity"
	"github.com/jhoicas/courier-billing/pkg/logger"
)

// Formatos de documento soportados por RenderDocument.
const (
	DocumentPDF = "pdf"
	DocumentXML = "xml"
)

// Config parámetros del orquestador.
type Config struct {
	DefaultCurrency  string
	AutoPaymentDelay time.Duration
	NumberMaxRetries int
	// NumberRetryInterval intervalo inicial del backoff ante colisión de número.
	NumberRetryInterval time.Duration
	OverdueBatchSize    int
}

// Deps dependencias del orquestador.
type Deps struct {
	Tx        BillingTxRunner
	Reads     Repos // repos fuera de transacción (consultas)
	Numbers   *domainbilling.NumberGenerator
	Gateway   PaymentGateway
	Tax       TaxCalculator
	Tiers     PricingTierLookup
	Charges   ShipmentChargeLookup
	Notifier  Notifier
	Scheduler Scheduler
	Documents map[string]InvoiceDocumentRenderer
	Logger    *logger.Logger
	Clock     Clock
}

// Service orquestador de facturación: creación de facturas, transiciones de estado,
// cobros, reembolsos y auditoría.
type Service struct {
	tx        BillingTxRunner
	reads     Repos
	numbers   *domainbilling.NumberGenerator
	gateway   PaymentGateway
	tax       TaxCalculator
	tiers     PricingTierLookup
	charges   ShipmentChargeLookup
	notifier  Notifier
	scheduler Scheduler
	documents map[string]InvoiceDocumentRenderer
	log       *logger.Logger
	now       Clock
	cfg       Config
}

// NewService construye el orquestador.
func NewService(deps Deps, cfg Config) *Service {
	if cfg.DefaultCurrency == "" {
		cfg.DefaultCurrency = "USD"
	}
	if cfg.NumberMaxRetries < 1 {
		cfg.NumberMaxRetries = 5
	}
	if cfg.NumberRetryInterval <= 0 {
		cfg.NumberRetryInterval = 50 * time.Millisecond
	}
	if cfg.OverdueBatchSize <= 0 {
		cfg.OverdueBatchSize = 500
	}
	if deps.Numbers == nil {
		deps.Numbers = domainbilling.NewNumberGenerator("INV")
	}
	if deps.Logger == nil {
		deps.Logger = logger.Nop()
	}
	if deps.Clock == nil {
		deps.Clock = time.Now
	}
	if deps.Documents == nil {
		deps.Documents = map[string]InvoiceDocumentRenderer{}
	}
	return &Service{
		tx:        deps.Tx,
		reads:     deps.Reads,
		numbers:   deps.Numbers,
		gateway:   deps.Gateway,
		tax:       deps.Tax,
		tiers:     deps.Tiers,
		charges:   deps.Charges,
		notifier:  deps.Notifier,
		scheduler: deps.Scheduler,
		documents: deps.Documents,
		log:       deps.Logger.Named("billing"),
		now:       deps.Clock,
		cfg:       cfg,
	}
}

// ── Transiciones ──────────────────────────────────────────────────────────────

// updateInvoiceStatus único punto de cambio de estado: valida la transición, muta,
// persiste y registra la auditoría. Si la transición no es válida no toca nada.
func (s *Service) updateInvoiceStatus(ctx context.Context, r Repos, inv *entity.Invoice, to entity.InvoiceStatus, actor Actor, reason string) error {
	from := inv.Status
	if err := domainbilling.ValidateTransition(from, to); err != nil {
		return transitionErr(err, inv.Number)
	}
	now := s.now()
	inv.Status = to
	inv.UpdatedAt = now
	switch to {
	case entity.InvoiceStatusSent:
		if inv.SentAt == nil {
			inv.SentAt = &now
		}
		inv.LastSentAt = &now
	case entity.InvoiceStatusPaid:
		inv.PaidAt = &now
	case entity.InvoiceStatusCancelled:
		inv.CancelledAt = &now
	}
	if err := r.Invoices.Update(ctx, inv); err != nil {
		return err
	}
	desc := fmt.Sprintf("%s -> %s", from, to)
	if reason != "" {
		desc += ": " + reason
	}
	return s.appendAudit(ctx, r, inv.ID, entity.AuditStatusChange, desc, actor)
}

// issue DRAFT -> SENT y carga el total al saldo del cliente.
func (s *Service) issue(ctx context.Context, r Repos, inv *entity.Invoice, actor Actor, reason string) error {
	if err := s.updateInvoiceStatus(ctx, r, inv, entity.InvoiceStatusSent, actor, reason); err != nil {
		return err
	}
	return r.Customers.AdjustBalance(ctx, inv.CustomerID, inv.Total)
}

func (s *Service) appendAudit(ctx context.Context, r Repos, invoiceID, action, description string, actor Actor) error {
	return r.Audit.Append(ctx, &entity.BillingAuditEntry{
		ID:          uuid.New().String(),
		InvoiceID:   invoiceID,
		Action:      action,
		Description: description,
		Actor:       actor.String(),
		CreatedAt:   s.now(),
	})
}

// ── Carga con bloqueo ─────────────────────────────────────────────────────────

func (s *Service) lockInvoice(ctx context.Context, r Repos, number string) (*entity.Invoice, error) {
	inv, err := r.Invoices.GetByNumberForUpdate(ctx, number)
	if err != nil {
		return nil, err
	}
	if inv == nil {
		return nil, notFound("factura", number)
	}
	return inv, nil
}

func (s *Service) loadCustomer(ctx context.Context, r Repos, id string) (*entity.Customer, error) {
	c, err := r.Customers.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, notFound("cliente", id)
	}
	return c, nil
}

// rejectSettled las operaciones de cobro no aceptan facturas PAID ni CANCELLED.
func rejectSettled(inv *entity.Invoice) error {
	switch inv.Status {
	case entity.InvoiceStatusPaid:
		return invariantf("la factura %s ya está pagada", inv.Number)
	case entity.InvoiceStatusCancelled:
		return invariantf("la factura %s está cancelada", inv.Number)
	}
	return nil
}

func validActor(a Actor) error {
	if !a.Valid() {
		return domain.NewError("actor vacío").WithHint("actor requerido").Mark(domain.ErrUnauthorized)
	}
	return nil
}

// normalizeCurrency valida un código ISO 4217; vacío => def.
func normalizeCurrency(code, def string) (string, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		code = def
	}
	unit, err := currency.ParseISO(code)
	if err != nil {
		return "", invalidInput(fmt.Sprintf("moneda inválida: %s", code))
	}
	return unit.String(), nil
}

// ── Notificaciones (nunca alteran el resultado) ───────────────────────────────

func (s *Service) notify(op, number string, fn func() error) {
	if s.notifier == nil {
		return
	}
	if err := fn(); err != nil {
		s.log.Warn().Err(err).Str("op", op).Str("invoice_number", number).Msg("notificación fallida")
	}
}
