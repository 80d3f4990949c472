package billing_test

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/courier-billing/internal/application/billing"
	"github.com/jhoicas/courier-billing/internal/application/dto"
	domainbilling "github.com/jhoicas/courier-billing/internal/domain/billing"
	"github.com/jhoicas/courier-billing/internal/domain/entity"
	"github.com/jhoicas/courier-billing/internal/domain/money"
	"github.com/jhoicas/courier-billing/internal/infrastructure/memory"
	"github.com/jhoicas/courier-billing/pkg/logger"
)

// ──────────────────────────────────────────────────────────────────────────────
// Fakes de colaboradores
// ──────────────────────────────────────────────────────────────────────────────

type fakeGateway struct {
	mu       sync.Mutex
	requests []billing.GatewayRequest
	handle   func(req billing.GatewayRequest) (*billing.GatewayResult, error)
}

func (g *fakeGateway) ProcessPayment(_ context.Context, req billing.GatewayRequest) (*billing.GatewayResult, error) {
	g.mu.Lock()
	g.requests = append(g.requests, req)
	n := len(g.requests)
	handle := g.handle
	g.mu.Unlock()
	if handle != nil {
		return handle(req)
	}
	return &billing.GatewayResult{
		PaymentID:     fmt.Sprintf("gw-%d", n),
		Status:        entity.PaymentStatusCompleted,
		TransactionID: fmt.Sprintf("txn-%d", n),
	}, nil
}

func (g *fakeGateway) calls() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.requests)
}

func declined(reason string) func(billing.GatewayRequest) (*billing.GatewayResult, error) {
	return func(billing.GatewayRequest) (*billing.GatewayResult, error) {
		return &billing.GatewayResult{PaymentID: "gw-x", Status: entity.PaymentStatusFailed, FailureReason: reason}, nil
	}
}

func transportError(billing.GatewayRequest) (*billing.GatewayResult, error) {
	return nil, errors.New("connection reset by peer")
}

type fakeTax struct {
	rate decimal.Decimal
	err  error
}

func (f *fakeTax) CalculateTax(_ context.Context, req billing.TaxRequest) (*billing.TaxResult, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &billing.TaxResult{
		TotalTax:     money.Percent(req.Amount, f.rate),
		Rate:         f.rate,
		Jurisdiction: "TEST",
		Basis:        req.Amount,
	}, nil
}

type fakeTiers struct{}

func (fakeTiers) GetPricingTier(_ context.Context, c *entity.Customer) (*entity.PricingTier, error) {
	return &entity.PricingTier{Code: c.PricingTier, Name: c.PricingTier, DiscountPct: domainbilling.TierDiscountPct(c.PricingTier)}, nil
}

// fakeCharges distancia fija de 10.00 y conteo mensual configurable.
type fakeCharges struct {
	count int
}

func (f *fakeCharges) DistanceCharge(context.Context, entity.Address, entity.Address) (decimal.Decimal, error) {
	return decimal.RequireFromString("10.00"), nil
}

func (f *fakeCharges) MonthlyShipmentCount(context.Context, string, time.Time) (int, error) {
	return f.count, nil
}

type deliveredInvoice struct {
	number    string
	recipient string
}

type fakeNotifier struct {
	mu            sync.Mutex
	invoices      []deliveredInvoice
	confirmations []string
	failures      []string
	refunds       []string
	failFor       map[string]bool
}

func (n *fakeNotifier) SendInvoice(_ context.Context, d billing.InvoiceDelivery) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.failFor[d.Recipient] {
		return errors.New("mailbox unavailable")
	}
	n.invoices = append(n.invoices, deliveredInvoice{number: d.Invoice.Number, recipient: d.Recipient})
	return nil
}

func (n *fakeNotifier) SendPaymentConfirmation(_ context.Context, inv *entity.Invoice, p *entity.Payment) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.confirmations = append(n.confirmations, p.ID)
	return nil
}

func (n *fakeNotifier) SendPaymentFailure(_ context.Context, inv *entity.Invoice, p *entity.Payment) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.failures = append(n.failures, p.ID)
	return nil
}

func (n *fakeNotifier) SendRefundConfirmation(_ context.Context, inv *entity.Invoice, refund *entity.Payment) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.refunds = append(n.refunds, refund.ID)
	return nil
}

type scheduledJob struct {
	name  string
	delay time.Duration
	job   func(ctx context.Context)
}

// manualScheduler guarda los trabajos; el test decide cuándo ejecutarlos.
type manualScheduler struct {
	jobs []scheduledJob
}

func (s *manualScheduler) Schedule(name string, delay time.Duration, job func(ctx context.Context)) {
	s.jobs = append(s.jobs, scheduledJob{name: name, delay: delay, job: job})
}

func (s *manualScheduler) runAll(ctx context.Context) {
	jobs := s.jobs
	s.jobs = nil
	for _, j := range jobs {
		j.job(ctx)
	}
}

// ──────────────────────────────────────────────────────────────────────────────
// Entorno
// ──────────────────────────────────────────────────────────────────────────────

var (
	seq   int64
	t0    = time.Date(2025, 1, 15, 10, 0, 0, 0, time.UTC)
	clerk = billing.UserActor("clerk-1")
)

type env struct {
	svc      *billing.Service
	store    *memory.Store
	repos    billing.Repos
	gateway  *fakeGateway
	tax      *fakeTax
	charges  *fakeCharges
	notifier *fakeNotifier
	sched    *manualScheduler
	now      time.Time
}

type envOption func(*billing.Deps)

func withNumberSource(r io.Reader) envOption {
	return func(d *billing.Deps) { d.Numbers = domainbilling.NewNumberGeneratorWithSource("INV", r) }
}

func newEnv(t *testing.T, opts ...envOption) *env {
	t.Helper()
	e := &env{
		store:    memory.NewStore(),
		gateway:  &fakeGateway{},
		tax:      &fakeTax{rate: decimal.Zero},
		charges:  &fakeCharges{},
		notifier: &fakeNotifier{failFor: map[string]bool{}},
		sched:    &manualScheduler{},
		now:      t0,
	}
	e.repos = e.store.Repos()
	deps := billing.Deps{
		Tx:        e.store,
		Reads:     e.repos,
		Gateway:   e.gateway,
		Tax:       e.tax,
		Tiers:     fakeTiers{},
		Charges:   e.charges,
		Notifier:  e.notifier,
		Scheduler: e.sched,
		Logger:    logger.Nop(),
		Clock:     func() time.Time { return e.now },
	}
	for _, opt := range opts {
		opt(&deps)
	}
	e.svc = billing.NewService(deps, billing.Config{
		DefaultCurrency:     "USD",
		AutoPaymentDelay:    time.Minute,
		NumberMaxRetries:    3,
		NumberRetryInterval: time.Millisecond,
	})
	return e
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func (e *env) addCustomer(t *testing.T, mutate ...func(c *entity.Customer)) *entity.Customer {
	t.Helper()
	c := &entity.Customer{
		ID:             fmt.Sprintf("cust-%d", atomic.AddInt64(&seq, 1)),
		Name:           "ACME Logistics",
		Email:          "ap@acme.test",
		BillingAddress: entity.Address{Line1: "Main 1", City: "Austin", State: "TX", Country: "US"},
		PricingTier:    entity.TierStandard,
		PaymentTerms:   entity.PaymentTermsNet30,
		Balance:        decimal.Zero,
		CreatedAt:      e.now,
		UpdatedAt:      e.now,
	}
	for _, m := range mutate {
		m(c)
	}
	require.NoError(t, e.repos.Customers.Create(context.Background(), c))
	return c
}

func (e *env) customer(t *testing.T, id string) *entity.Customer {
	t.Helper()
	c, err := e.repos.Customers.GetByID(context.Background(), id)
	require.NoError(t, err)
	require.NotNil(t, c)
	return c
}

// shipment STANDARD (5.00/kg) sin recargos: con distancia 10.00 y sin descuentos, el cargo es
// 5*kg + 10.
func shipment(id string, kg int64) dto.ShipmentDTO {
	addr := dto.AddressDTO{Line1: "Main 1", City: "Austin", State: "TX", Country: "US"}
	return dto.ShipmentDTO{
		ShipmentID:  id,
		ServiceType: entity.ServiceStandard,
		WeightKg:    decimal.NewFromInt(kg),
		Origin:      addr,
		Destination: addr,
	}
}

// draftInvoice factura DRAFT por 5*kg+10 (antes de impuestos).
func (e *env) draftInvoice(t *testing.T, customerID string, kg int64) *dto.InvoiceResponse {
	t.Helper()
	inv, err := e.svc.CreateShipmentInvoice(context.Background(), clerk, dto.CreateShipmentInvoiceRequest{
		CustomerID: customerID,
		Shipment:   shipment(fmt.Sprintf("shp-%d", atomic.AddInt64(&seq, 1)), kg),
	})
	require.NoError(t, err)
	return inv
}

// sentInvoice factura emitida (SENT).
func (e *env) sentInvoice(t *testing.T, customerID string, kg int64) *dto.InvoiceResponse {
	t.Helper()
	inv := e.draftInvoice(t, customerID, kg)
	out, err := e.svc.FinalizeInvoice(context.Background(), clerk, inv.Number)
	require.NoError(t, err)
	return out
}

func (e *env) invoice(t *testing.T, number string) *dto.InvoiceResponse {
	t.Helper()
	inv, err := e.svc.GetInvoice(context.Background(), number)
	require.NoError(t, err)
	return inv
}

func (e *env) auditActions(t *testing.T, number string) []string {
	t.Helper()
	entries, err := e.svc.ListAuditTrail(context.Background(), number)
	require.NoError(t, err)
	out := make([]string, 0, len(entries))
	for _, a := range entries {
		out = append(out, a.Action)
	}
	return out
}

func (e *env) payments(t *testing.T, number string) []dto.PaymentResponse {
	t.Helper()
	list, err := e.svc.ListPaymentsByInvoice(context.Background(), number)
	require.NoError(t, err)
	return list
}

func zeros(n int) io.Reader { return bytes.NewReader(make([]byte, n)) }
