package billing

import (
	"context"
	"fmt"

	"github.com/cenkalti/backoff/v4"
	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/courier-billing/internal/application/dto"
	"github.com/jhoicas/courier-billing/internal/domain"
	domainbilling "github.com/jhoicas/courier-billing/internal/domain/billing"
	"github.com/jhoicas/courier-billing/internal/domain/entity"
	"github.com/jhoicas/courier-billing/internal/domain/money"
)

// Contextos de cálculo de impuestos.
const (
	taxContextShipment     = "SHIPMENT"
	taxContextBulk         = "BULK"
	taxContextSubscription = "SUBSCRIPTION"
)

// draft factura calculada pendiente de persistir.
type draft struct {
	inv   *entity.Invoice
	items []*entity.LineItem
	note  string // descripción de auditoría
}

// CreateShipmentInvoice factura un envío individual en DRAFT.
// Cualquier fallo de tarificación o de impuestos aborta sin persistir nada.
func (s *Service) CreateShipmentInvoice(ctx context.Context, actor Actor, in dto.CreateShipmentInvoiceRequest) (*dto.InvoiceResponse, error) {
	if err := validActor(actor); err != nil {
		return nil, err
	}
	customer, err := s.loadCustomer(ctx, s.reads, in.CustomerID)
	if err != nil {
		return nil, err
	}
	cur, err := normalizeCurrency(in.Currency, s.cfg.DefaultCurrency)
	if err != nil {
		return nil, err
	}
	shipment := shipmentFromDTO(in.Shipment)
	q, err := s.quote(ctx, customer, []entity.Shipment{shipment}, 0)
	if err != nil {
		return nil, err
	}

	d, err := s.buildDraft(ctx, customer, billingAddress(customer, in.BillingAddress), cur, q, shipment.ServiceType, taxContextShipment, actor)
	if err != nil {
		return nil, err
	}
	d.inv.ShipmentID = shipment.ID
	d.note = fmt.Sprintf("factura de envío %s creada", shipment.ID)
	return s.persistDraft(ctx, d, actor)
}

// CreateBulkInvoice factura un lote de envíos; el descuento por volumen incluye el lote.
func (s *Service) CreateBulkInvoice(ctx context.Context, actor Actor, in dto.CreateBulkInvoiceRequest) (*dto.InvoiceResponse, error) {
	if err := validActor(actor); err != nil {
		return nil, err
	}
	if len(in.Shipments) == 0 {
		return nil, invalidInput("se requiere al menos un envío")
	}
	customer, err := s.loadCustomer(ctx, s.reads, in.CustomerID)
	if err != nil {
		return nil, err
	}
	cur, err := normalizeCurrency(in.Currency, s.cfg.DefaultCurrency)
	if err != nil {
		return nil, err
	}
	shipments := make([]entity.Shipment, 0, len(in.Shipments))
	seen := make(map[string]bool, len(in.Shipments))
	for _, sd := range in.Shipments {
		if seen[sd.ShipmentID] {
			return nil, invalidInput(fmt.Sprintf("envío repetido en el lote: %s", sd.ShipmentID))
		}
		seen[sd.ShipmentID] = true
		shipments = append(shipments, shipmentFromDTO(sd))
	}
	q, err := s.quote(ctx, customer, shipments, len(shipments))
	if err != nil {
		return nil, err
	}

	d, err := s.buildDraft(ctx, customer, billingAddress(customer, in.BillingAddress), cur, q, "", taxContextBulk, actor)
	if err != nil {
		return nil, err
	}
	d.inv.Metadata["shipment_count"] = fmt.Sprintf("%d", len(shipments))
	d.note = fmt.Sprintf("factura agrupada de %d envíos creada", len(shipments))
	return s.persistDraft(ctx, d, actor)
}

// CreateSubscriptionInvoice factura el periodo de una suscripción, avanza su próxima fecha
// de cobro un mes y la finaliza de inmediato pasando por la misma validación que un
// Finalize manual. Si la finalización falla la factura queda en DRAFT y se devuelve el error.
func (s *Service) CreateSubscriptionInvoice(ctx context.Context, actor Actor, subscriptionID string) (*dto.InvoiceResponse, error) {
	if err := validActor(actor); err != nil {
		return nil, err
	}
	sub, err := s.reads.Subscriptions.GetByID(ctx, subscriptionID)
	if err != nil {
		return nil, err
	}
	if sub == nil {
		return nil, notFound("suscripción", subscriptionID)
	}
	if !sub.IsActive() {
		return nil, invariantf("la suscripción %s no está activa", sub.ID)
	}
	customer, err := s.loadCustomer(ctx, s.reads, sub.CustomerID)
	if err != nil {
		return nil, err
	}
	cur, err := normalizeCurrency(sub.Currency, s.cfg.DefaultCurrency)
	if err != nil {
		return nil, err
	}

	fee := money.Round(sub.MonthlyFee)
	if !money.IsPositive(fee) {
		return nil, invariantf("la suscripción %s no tiene cuota positiva", sub.ID)
	}
	period := sub.NextBillingDate
	q := &quoteResult{
		Subtotal:    fee,
		DiscountPct: sub.DiscountPct,
		Discount:    money.Percent(fee, sub.DiscountPct),
		Items: []*entity.LineItem{{
			Kind:        entity.LineKindSubscription,
			Description: fmt.Sprintf("Plan %s, periodo %s", sub.PlanName, period.Format("2006-01")),
			Quantity:    decimal.NewFromInt(1),
			UnitPrice:   fee,
			Amount:      fee,
		}},
	}
	d, err := s.buildDraft(ctx, customer, customer.BillingAddress, cur, q, sub.ServiceType, taxContextSubscription, actor)
	if err != nil {
		return nil, err
	}
	d.inv.SubscriptionID = sub.ID
	d.inv.Metadata["billing_period"] = period.Format("2006-01")
	d.note = fmt.Sprintf("factura de suscripción %s creada", sub.ID)

	created, err := s.persistDraftWith(ctx, d, actor, func(ctx context.Context, r Repos) error {
		locked, err := r.Subscriptions.GetByIDForUpdate(ctx, sub.ID)
		if err != nil {
			return err
		}
		if locked == nil {
			return notFound("suscripción", sub.ID)
		}
		if !locked.NextBillingDate.Equal(period) {
			return domain.NewError("suscripción %s facturada concurrentemente", sub.ID).
				WithHint("el periodo ya fue facturado").
				Mark(domain.ErrConflict)
		}
		locked.NextBillingDate = locked.NextBillingDate.AddDate(0, 1, 0)
		locked.UpdatedAt = s.now()
		return r.Subscriptions.Update(ctx, locked)
	})
	if err != nil {
		return nil, err
	}

	finalized, err := s.FinalizeInvoice(ctx, SystemActor, created.Number)
	if err != nil {
		s.log.Error().Err(err).Str("invoice_number", created.Number).Msg("auto-finalización de suscripción fallida")
		return nil, err
	}
	return finalized, nil
}

// ── Cálculo ───────────────────────────────────────────────────────────────────

// quoteResult importe previo a impuestos.
type quoteResult struct {
	Breakdowns        []domainbilling.ChargeBreakdown
	Items             []*entity.LineItem
	Subtotal          decimal.Decimal
	DiscountPct       decimal.Decimal
	Discount          decimal.Decimal
	MonthlyShipments  int
	TierDiscountPct   decimal.Decimal
	VolumeDescription string
}

// quote tarifica los envíos: cargo por envío con descuento de nivel, recargos, y descuento
// por volumen sobre base+recargos. batch se suma al conteo mensual.
func (s *Service) quote(ctx context.Context, customer *entity.Customer, shipments []entity.Shipment, batch int) (*quoteResult, error) {
	tier, err := s.tiers.GetPricingTier(ctx, customer)
	if err != nil {
		return nil, collaboratorErr(err, "consulta de nivel de precio")
	}
	count, err := s.charges.MonthlyShipmentCount(ctx, customer.ID, s.now())
	if err != nil {
		return nil, collaboratorErr(err, "conteo mensual de envíos")
	}
	count += batch

	q := &quoteResult{TierDiscountPct: tier.DiscountPct, MonthlyShipments: count}
	subtotal := decimal.Zero
	for _, sh := range shipments {
		if !domainbilling.IsKnownServiceType(sh.ServiceType) {
			return nil, invalidInput(fmt.Sprintf("tipo de servicio no soportado: %s", sh.ServiceType))
		}
		distance, err := s.charges.DistanceCharge(ctx, sh.Origin, sh.Destination)
		if err != nil {
			return nil, collaboratorErr(err, "cargo por distancia")
		}
		b, err := domainbilling.ComputeShipmentCharge(sh, distance, tier.DiscountPct)
		if err != nil {
			return nil, err
		}
		q.Breakdowns = append(q.Breakdowns, b)
		q.Items = append(q.Items, shipmentLines(sh, b)...)
		subtotal = subtotal.Add(b.Subtotal)
	}
	q.Subtotal = money.Round(subtotal)
	q.DiscountPct = domainbilling.VolumeDiscountPct(count)
	q.Discount = money.Percent(q.Subtotal, q.DiscountPct)
	q.VolumeDescription = fmt.Sprintf("Descuento por volumen %s%% (%d envíos/mes)", q.DiscountPct.String(), count)
	return q, nil
}

func shipmentLines(sh entity.Shipment, b domainbilling.ChargeBreakdown) []*entity.LineItem {
	one := decimal.NewFromInt(1)
	lines := []*entity.LineItem{{
		Kind:        entity.LineKindShipping,
		Description: fmt.Sprintf("Envío %s (%s, %s kg)", sh.ID, sh.ServiceType, sh.WeightKg.String()),
		ShipmentID:  sh.ID,
		Quantity:    one,
		UnitPrice:   b.ShippingCharge,
		Amount:      b.ShippingCharge,
	}}
	fee := func(desc string, amount decimal.Decimal) {
		if amount.IsZero() {
			return
		}
		lines = append(lines, &entity.LineItem{
			Kind:        entity.LineKindFee,
			Description: desc,
			ShipmentID:  sh.ID,
			Quantity:    one,
			UnitPrice:   amount,
			Amount:      amount,
		})
	}
	fee("Seguro (1% del valor declarado)", b.InsuranceFee)
	fee("Recargo entrega el mismo día", b.RushFee)
	fee("Recargo prioridad nocturna", b.PriorityFee)
	fee("Firma requerida", b.SignatureFee)
	return lines
}

// buildDraft aplica descuento e impuestos y arma la factura DRAFT.
func (s *Service) buildDraft(ctx context.Context, customer *entity.Customer, addr entity.Address, cur string, q *quoteResult, serviceType, taxContext string, actor Actor) (*draft, error) {
	discounted := money.Round(q.Subtotal.Sub(q.Discount))
	taxRes, err := s.tax.CalculateTax(ctx, TaxRequest{
		BillingAddress: addr,
		Amount:         discounted,
		ServiceType:    serviceType,
		Context:        taxContext,
	})
	if err != nil {
		return nil, collaboratorErr(err, "cálculo de impuestos")
	}
	tax := decimal.Zero
	if !taxRes.Exempt {
		tax = money.Round(taxRes.TotalTax)
	}

	now := s.now()
	inv := &entity.Invoice{
		ID:             uuid.New().String(),
		CustomerID:     customer.ID,
		CustomerName:   customer.Name,
		CustomerEmail:  customer.Email,
		BillingAddress: addr,
		Subtotal:       q.Subtotal,
		Discount:       q.Discount,
		Tax:            tax,
		Total:          money.Round(discounted.Add(tax)),
		Currency:       cur,
		Status:         entity.InvoiceStatusDraft,
		DueDate:        domainbilling.CalculateDueDate(now, customer.PaymentTerms),
		Metadata:       map[string]string{},
		CreatedBy:      actor.String(),
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if taxRes.Jurisdiction != "" {
		inv.Metadata["tax_jurisdiction"] = taxRes.Jurisdiction
	}
	if !inv.CheckTotals() {
		return nil, invariantf("totales inconsistentes: %s - %s + %s != %s", inv.Subtotal, inv.Discount, inv.Tax, inv.Total)
	}

	items := q.Items
	if q.Discount.IsPositive() {
		desc := q.VolumeDescription
		if taxContext == taxContextSubscription {
			desc = fmt.Sprintf("Descuento de suscripción %s%%", q.DiscountPct.String())
		}
		items = append(items, &entity.LineItem{
			Kind:        entity.LineKindDiscount,
			Description: desc,
			Quantity:    decimal.NewFromInt(1),
			UnitPrice:   money.Negate(q.Discount),
			Amount:      money.Negate(q.Discount),
		})
	}
	for i, it := range items {
		it.ID = uuid.New().String()
		it.InvoiceID = inv.ID
		it.Position = i + 1
	}
	inv.Items = items
	return &draft{inv: inv, items: items}, nil
}

// ── Persistencia con reintento de número ──────────────────────────────────────

func (s *Service) persistDraft(ctx context.Context, d *draft, actor Actor) (*dto.InvoiceResponse, error) {
	inv, err := s.persistDraftWith(ctx, d, actor, nil)
	if err != nil {
		return nil, err
	}
	return toInvoiceResponse(inv, inv.Items, decimal.Zero), nil
}

// persistDraftWith inserta la factura con un número nuevo por intento. Cada intento es una
// transacción propia; una colisión (ErrDuplicate) reintenta con backoff exponencial acotado.
func (s *Service) persistDraftWith(ctx context.Context, d *draft, actor Actor, extra func(ctx context.Context, r Repos) error) (*entity.Invoice, error) {
	op := func() error {
		number, err := s.numbers.Generate(s.now())
		if err != nil {
			return backoff.Permanent(err)
		}
		d.inv.Number = number
		err = s.tx.RunBilling(ctx, func(r Repos) error {
			if err := r.Invoices.Create(ctx, d.inv); err != nil {
				return err
			}
			if err := r.Invoices.CreateLineItems(ctx, d.items); err != nil {
				return err
			}
			if extra != nil {
				if err := extra(ctx, r); err != nil {
					return err
				}
			}
			return s.appendAudit(ctx, r, d.inv.ID, entity.AuditInvoiceCreated, d.note, actor)
		})
		if err != nil && !errors.Is(err, domain.ErrDuplicate) {
			return backoff.Permanent(err)
		}
		if err != nil {
			s.log.Warn().Str("invoice_number", number).Msg("colisión de número de factura, reintentando")
		}
		return err
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = s.cfg.NumberRetryInterval
	b.MaxInterval = 20 * s.cfg.NumberRetryInterval
	policy := backoff.WithContext(backoff.WithMaxRetries(b, uint64(s.cfg.NumberMaxRetries-1)), ctx)
	if err := backoff.Retry(op, policy); err != nil {
		if errors.Is(err, domain.ErrDuplicate) {
			return nil, domain.WrapError(err, "numeración agotada tras %d intentos", s.cfg.NumberMaxRetries).
				WithHint("no se pudo asignar un número de factura único; reintente").
				Mark(domain.ErrConflict)
		}
		return nil, err
	}
	s.log.Info().
		Str("invoice_number", d.inv.Number).
		Str("customer_id", d.inv.CustomerID).
		Str("total", money.Format(d.inv.Total)).
		Str("actor", actor.String()).
		Msg("factura creada")
	return d.inv, nil
}

// ── Conversión ────────────────────────────────────────────────────────────────

func shipmentFromDTO(in dto.ShipmentDTO) entity.Shipment {
	return entity.Shipment{
		ID:          in.ShipmentID,
		ServiceType: in.ServiceType,
		WeightKg:    in.WeightKg,
		Dimensions: entity.Dimensions{
			Length: in.Dimensions.Length,
			Width:  in.Dimensions.Width,
			Height: in.Dimensions.Height,
		},
		Origin:            addressFromDTO(in.Origin),
		Destination:       addressFromDTO(in.Destination),
		DeclaredValue:     in.DeclaredValue,
		SignatureRequired: in.SignatureRequired,
	}
}

func billingAddress(c *entity.Customer, in *dto.AddressDTO) entity.Address {
	if in == nil {
		return c.BillingAddress
	}
	return addressFromDTO(*in)
}
