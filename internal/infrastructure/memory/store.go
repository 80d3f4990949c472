// Package memory implementa los repositorios de facturación sobre mapas en memoria.
// Pensado para tests y demos locales: las transacciones se serializan y un error en fn
// restaura la instantánea tomada al inicio.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/courier-billing/internal/application/billing"
	"github.com/jhoicas/courier-billing/internal/domain"
	"github.com/jhoicas/courier-billing/internal/domain/entity"
	"github.com/jhoicas/courier-billing/internal/domain/repository"
)

var _ billing.BillingTxRunner = (*Store)(nil)

// Store estado completo. El valor cero no es usable; usar NewStore.
type Store struct {
	txMu sync.Mutex   // una transacción a la vez
	mu   sync.RWMutex // acceso a los mapas

	data state
}

type state struct {
	invoices      map[string]*entity.Invoice // por ID
	numbers       map[string]string          // número -> ID
	items         map[string][]*entity.LineItem
	payments      map[string]*entity.Payment
	paymentOrder  []string
	audit         []*entity.BillingAuditEntry
	customers     map[string]*entity.Customer
	subscriptions map[string]*entity.Subscription
}

// NewStore crea un store vacío.
func NewStore() *Store {
	return &Store{data: state{
		invoices:      map[string]*entity.Invoice{},
		numbers:       map[string]string{},
		items:         map[string][]*entity.LineItem{},
		payments:      map[string]*entity.Payment{},
		customers:     map[string]*entity.Customer{},
		subscriptions: map[string]*entity.Subscription{},
	}}
}

// Repos repositorios sobre el store.
func (s *Store) Repos() billing.Repos {
	return billing.Repos{
		Invoices:      &InvoiceRepo{s: s},
		Payments:      &PaymentRepo{s: s},
		Audit:         &AuditRepo{s: s},
		Customers:     &CustomerRepo{s: s},
		Subscriptions: &SubscriptionRepo{s: s},
	}
}

// RunBilling ejecuta fn en exclusiva. Si fn devuelve error se descartan sus cambios.
func (s *Store) RunBilling(ctx context.Context, fn func(repos billing.Repos) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.txMu.Lock()
	defer s.txMu.Unlock()

	s.mu.RLock()
	snap := s.data.clone()
	s.mu.RUnlock()

	if err := fn(s.Repos()); err != nil {
		s.mu.Lock()
		s.data = snap
		s.mu.Unlock()
		return err
	}
	return nil
}

func (st state) clone() state {
	c := state{
		invoices:      make(map[string]*entity.Invoice, len(st.invoices)),
		numbers:       make(map[string]string, len(st.numbers)),
		items:         make(map[string][]*entity.LineItem, len(st.items)),
		payments:      make(map[string]*entity.Payment, len(st.payments)),
		paymentOrder:  append([]string(nil), st.paymentOrder...),
		audit:         append([]*entity.BillingAuditEntry(nil), st.audit...),
		customers:     make(map[string]*entity.Customer, len(st.customers)),
		subscriptions: make(map[string]*entity.Subscription, len(st.subscriptions)),
	}
	for k, v := range st.invoices {
		c.invoices[k] = v.Clone()
	}
	for k, v := range st.numbers {
		c.numbers[k] = v
	}
	for k, v := range st.items {
		c.items[k] = cloneItems(v)
	}
	for k, v := range st.payments {
		p := *v
		c.payments[k] = &p
	}
	for k, v := range st.customers {
		cu := *v
		c.customers[k] = &cu
	}
	for k, v := range st.subscriptions {
		sub := *v
		c.subscriptions[k] = &sub
	}
	return c
}

func cloneItems(items []*entity.LineItem) []*entity.LineItem {
	out := make([]*entity.LineItem, len(items))
	for i, it := range items {
		cp := *it
		out[i] = &cp
	}
	return out
}

func page[T any](list []T, limit, offset int) []T {
	if offset >= len(list) {
		return nil
	}
	end := len(list)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return list[offset:end]
}

// ── Invoices ──────────────────────────────────────────────────────────────────

var _ repository.InvoiceRepository = (*InvoiceRepo)(nil)

// InvoiceRepo repositorio de facturas en memoria.
type InvoiceRepo struct{ s *Store }

func (r *InvoiceRepo) Create(_ context.Context, inv *entity.Invoice) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.data.numbers[inv.Number]; ok {
		return domain.NewError("número de factura %s ya existe", inv.Number).Mark(domain.ErrDuplicate)
	}
	if inv.Version == 0 {
		inv.Version = 1
	}
	c := inv.Clone()
	c.Items = nil
	r.s.data.invoices[inv.ID] = c
	r.s.data.numbers[inv.Number] = inv.ID
	return nil
}

func (r *InvoiceRepo) CreateLineItems(_ context.Context, items []*entity.LineItem) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, it := range items {
		cp := *it
		r.s.data.items[it.InvoiceID] = append(r.s.data.items[it.InvoiceID], &cp)
	}
	return nil
}

func (r *InvoiceRepo) Update(_ context.Context, inv *entity.Invoice) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cur, ok := r.s.data.invoices[inv.ID]
	if !ok || cur.Version != inv.Version {
		return domain.NewError("factura %s modificada concurrentemente", inv.Number).
			WithHint("la factura cambió mientras se procesaba la operación; reintente").
			Mark(domain.ErrConflict)
	}
	inv.Version++
	c := inv.Clone()
	c.Items = nil
	r.s.data.invoices[inv.ID] = c
	return nil
}

func (r *InvoiceRepo) GetByID(_ context.Context, id string) (*entity.Invoice, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return r.s.data.invoices[id].Clone(), nil
}

func (r *InvoiceRepo) GetByNumber(ctx context.Context, number string) (*entity.Invoice, error) {
	r.s.mu.RLock()
	id, ok := r.s.data.numbers[number]
	r.s.mu.RUnlock()
	if !ok {
		return nil, nil
	}
	return r.GetByID(ctx, id)
}

// GetByNumberForUpdate equivale a GetByNumber: la exclusión la da RunBilling.
func (r *InvoiceRepo) GetByNumberForUpdate(ctx context.Context, number string) (*entity.Invoice, error) {
	return r.GetByNumber(ctx, number)
}

func (r *InvoiceRepo) GetByIDForUpdate(ctx context.Context, id string) (*entity.Invoice, error) {
	return r.GetByID(ctx, id)
}

func (r *InvoiceRepo) GetLineItems(_ context.Context, invoiceID string) ([]*entity.LineItem, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	items := cloneItems(r.s.data.items[invoiceID])
	sort.Slice(items, func(i, j int) bool { return items[i].Position < items[j].Position })
	return items, nil
}

func (r *InvoiceRepo) filter(keep func(*entity.Invoice) bool, less func(a, b *entity.Invoice) bool) []*entity.Invoice {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var out []*entity.Invoice
	for _, inv := range r.s.data.invoices {
		if keep(inv) {
			out = append(out, inv.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return less(out[i], out[j]) })
	return out
}

func (r *InvoiceRepo) ListByCustomer(_ context.Context, customerID string, limit, offset int) ([]*entity.Invoice, error) {
	list := r.filter(
		func(inv *entity.Invoice) bool { return inv.CustomerID == customerID },
		func(a, b *entity.Invoice) bool { return a.CreatedAt.After(b.CreatedAt) },
	)
	return page(list, limit, offset), nil
}

func (r *InvoiceRepo) ListByStatus(_ context.Context, status entity.InvoiceStatus, from, to time.Time, limit, offset int) ([]*entity.Invoice, error) {
	list := r.filter(
		func(inv *entity.Invoice) bool {
			return inv.Status == status && !inv.CreatedAt.Before(from) && (to.IsZero() || inv.CreatedAt.Before(to))
		},
		func(a, b *entity.Invoice) bool { return a.CreatedAt.Before(b.CreatedAt) },
	)
	return page(list, limit, offset), nil
}

func (r *InvoiceRepo) ListOverdueCandidates(_ context.Context, now time.Time, limit int) ([]*entity.Invoice, error) {
	list := r.filter(
		func(inv *entity.Invoice) bool {
			return (inv.Status == entity.InvoiceStatusSent || inv.Status == entity.InvoiceStatusPartiallyPaid) &&
				inv.DueDate.Before(now)
		},
		func(a, b *entity.Invoice) bool { return a.DueDate.Before(b.DueDate) },
	)
	return page(list, limit, 0), nil
}

func (r *InvoiceRepo) CountShipmentsSince(_ context.Context, customerID string, since time.Time) (int, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	n := 0
	for id, inv := range r.s.data.invoices {
		if inv.CustomerID != customerID || inv.CreatedAt.Before(since) || inv.Status == entity.InvoiceStatusCancelled {
			continue
		}
		for _, it := range r.s.data.items[id] {
			if it.Kind == entity.LineKindShipping {
				n++
			}
		}
	}
	return n, nil
}

// ── Payments ──────────────────────────────────────────────────────────────────

var _ repository.PaymentRepository = (*PaymentRepo)(nil)

// PaymentRepo repositorio de pagos en memoria.
type PaymentRepo struct{ s *Store }

func (r *PaymentRepo) Create(_ context.Context, p *entity.Payment) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.data.payments[p.ID]; ok {
		return domain.NewError("pago %s duplicado", p.ID).Mark(domain.ErrDuplicate)
	}
	cp := *p
	r.s.data.payments[p.ID] = &cp
	r.s.data.paymentOrder = append(r.s.data.paymentOrder, p.ID)
	return nil
}

func (r *PaymentRepo) GetByID(_ context.Context, id string) (*entity.Payment, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	p, ok := r.s.data.payments[id]
	if !ok {
		return nil, nil
	}
	cp := *p
	return &cp, nil
}

// ordered pagos en orden de inserción.
func (r *PaymentRepo) ordered(keep func(*entity.Payment) bool) []*entity.Payment {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var out []*entity.Payment
	for _, id := range r.s.data.paymentOrder {
		p := r.s.data.payments[id]
		if keep(p) {
			cp := *p
			out = append(out, &cp)
		}
	}
	return out
}

func (r *PaymentRepo) ListByInvoice(_ context.Context, invoiceID string) ([]*entity.Payment, error) {
	return r.ordered(func(p *entity.Payment) bool { return p.InvoiceID == invoiceID }), nil
}

func (r *PaymentRepo) ListByCustomer(_ context.Context, customerID string, limit, offset int) ([]*entity.Payment, error) {
	list := r.ordered(func(p *entity.Payment) bool { return p.CustomerID == customerID })
	for i, j := 0, len(list)-1; i < j; i, j = i+1, j-1 {
		list[i], list[j] = list[j], list[i]
	}
	return page(list, limit, offset), nil
}

func (r *PaymentRepo) ListRefundsOf(_ context.Context, originalPaymentID string) ([]*entity.Payment, error) {
	return r.ordered(func(p *entity.Payment) bool {
		return p.IsRefund() && p.OriginalPaymentID == originalPaymentID
	}), nil
}

// ── Audit ─────────────────────────────────────────────────────────────────────

var _ repository.AuditRepository = (*AuditRepo)(nil)

// AuditRepo historial en memoria.
type AuditRepo struct{ s *Store }

func (r *AuditRepo) Append(_ context.Context, e *entity.BillingAuditEntry) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cp := *e
	r.s.data.audit = append(r.s.data.audit, &cp)
	return nil
}

func (r *AuditRepo) ListByInvoice(_ context.Context, invoiceID string) ([]*entity.BillingAuditEntry, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var out []*entity.BillingAuditEntry
	for _, e := range r.s.data.audit {
		if e.InvoiceID == invoiceID {
			cp := *e
			out = append(out, &cp)
		}
	}
	return out, nil
}

// ── Customers ─────────────────────────────────────────────────────────────────

var _ repository.CustomerRepository = (*CustomerRepo)(nil)

// CustomerRepo clientes en memoria.
type CustomerRepo struct{ s *Store }

func (r *CustomerRepo) Create(_ context.Context, c *entity.Customer) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.data.customers[c.ID]; ok {
		return domain.NewError("cliente %s duplicado", c.ID).Mark(domain.ErrDuplicate)
	}
	cp := *c
	r.s.data.customers[c.ID] = &cp
	return nil
}

func (r *CustomerRepo) GetByID(_ context.Context, id string) (*entity.Customer, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	c, ok := r.s.data.customers[id]
	if !ok {
		return nil, nil
	}
	cp := *c
	return &cp, nil
}

func (r *CustomerRepo) List(_ context.Context, limit, offset int) ([]*entity.Customer, error) {
	r.s.mu.RLock()
	out := make([]*entity.Customer, 0, len(r.s.data.customers))
	for _, c := range r.s.data.customers {
		cp := *c
		out = append(out, &cp)
	}
	r.s.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return page(out, limit, offset), nil
}

func (r *CustomerRepo) Update(_ context.Context, c *entity.Customer) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cur, ok := r.s.data.customers[c.ID]
	if !ok {
		return domain.NewError("cliente %s no existe", c.ID).Mark(domain.ErrNotFound)
	}
	cp := *c
	cp.Balance = cur.Balance
	r.s.data.customers[c.ID] = &cp
	return nil
}

func (r *CustomerRepo) AdjustBalance(_ context.Context, id string, delta decimal.Decimal) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c, ok := r.s.data.customers[id]
	if !ok {
		return domain.NewError("cliente %s no existe", id).Mark(domain.ErrNotFound)
	}
	c.Balance = c.Balance.Add(delta)
	return nil
}

// ── Subscriptions ─────────────────────────────────────────────────────────────

var _ repository.SubscriptionRepository = (*SubscriptionRepo)(nil)

// SubscriptionRepo suscripciones en memoria.
type SubscriptionRepo struct{ s *Store }

func (r *SubscriptionRepo) Create(_ context.Context, sub *entity.Subscription) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.data.subscriptions[sub.ID]; ok {
		return domain.NewError("suscripción %s duplicada", sub.ID).Mark(domain.ErrDuplicate)
	}
	cp := *sub
	r.s.data.subscriptions[sub.ID] = &cp
	return nil
}

func (r *SubscriptionRepo) GetByID(_ context.Context, id string) (*entity.Subscription, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	sub, ok := r.s.data.subscriptions[id]
	if !ok {
		return nil, nil
	}
	cp := *sub
	return &cp, nil
}

func (r *SubscriptionRepo) GetByIDForUpdate(ctx context.Context, id string) (*entity.Subscription, error) {
	return r.GetByID(ctx, id)
}

func (r *SubscriptionRepo) Update(_ context.Context, sub *entity.Subscription) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.data.subscriptions[sub.ID]; !ok {
		return domain.NewError("suscripción %s no existe", sub.ID).Mark(domain.ErrNotFound)
	}
	cp := *sub
	r.s.data.subscriptions[sub.ID] = &cp
	return nil
}
