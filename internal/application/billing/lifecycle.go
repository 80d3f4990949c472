package billing

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/courier-billing/internal/application/dto"
	domainbilling "github.com/jhoicas/courier-billing/internal/domain/billing"
	"github.com/jhoicas/courier-billing/internal/domain/entity"
)

// FinalizeInvoice DRAFT -> SENT. Tras el commit entrega la factura al cliente y, si tiene
// cobro automático, programa un intento diferido cuyo resultado solo se registra en el log.
func (s *Service) FinalizeInvoice(ctx context.Context, actor Actor, number string) (*dto.InvoiceResponse, error) {
	if err := validActor(actor); err != nil {
		return nil, err
	}
	var (
		inv      *entity.Invoice
		customer *entity.Customer
		items    []*entity.LineItem
	)
	err := s.tx.RunBilling(ctx, func(r Repos) error {
		var err error
		if inv, err = s.lockInvoice(ctx, r, number); err != nil {
			return err
		}
		if customer, err = s.loadCustomer(ctx, r, inv.CustomerID); err != nil {
			return err
		}
		if err = s.issue(ctx, r, inv, actor, "factura finalizada"); err != nil {
			return err
		}
		items, err = r.Invoices.GetLineItems(ctx, inv.ID)
		return err
	})
	if err != nil {
		return nil, err
	}
	inv.Items = items
	s.log.Info().Str("invoice_number", inv.Number).Str("actor", actor.String()).Msg("factura finalizada")

	if inv.CustomerEmail != "" {
		pdf := s.attachment(ctx, inv, customer)
		s.notify("send_invoice", inv.Number, func() error {
			return s.notifier.SendInvoice(ctx, InvoiceDelivery{Invoice: inv, Recipient: inv.CustomerEmail, PDF: pdf})
		})
	}
	if customer.AutoPayEnabled {
		s.scheduleAutoPayment(inv.Number)
	}
	return toInvoiceResponse(inv, items, decimal.Zero), nil
}

func (s *Service) scheduleAutoPayment(number string) {
	if s.scheduler == nil {
		s.log.Warn().Str("invoice_number", number).Msg("sin scheduler: cobro automático no programado")
		return
	}
	s.scheduler.Schedule("auto-payment:"+number, s.cfg.AutoPaymentDelay, func(ctx context.Context) {
		if _, err := s.InitiateAutomaticPayment(ctx, AutoPaymentActor, number); err != nil {
			s.log.Error().Err(err).Str("invoice_number", number).Msg("cobro automático diferido fallido")
		}
	})
	s.log.Debug().Str("invoice_number", number).Dur("delay", s.cfg.AutoPaymentDelay).Msg("cobro automático programado")
}

// attachment PDF opcional para la entrega; un fallo de render no impide el envío.
func (s *Service) attachment(ctx context.Context, inv *entity.Invoice, customer *entity.Customer) []byte {
	r, ok := s.documents[DocumentPDF]
	if !ok {
		return nil
	}
	pdf, err := r.Render(ctx, inv, customer)
	if err != nil {
		s.log.Warn().Err(err).Str("invoice_number", inv.Number).Msg("no se pudo generar el PDF adjunto")
		return nil
	}
	return pdf
}

// SendInvoice emite la factura si está en DRAFT (una sola vez), actualiza lastSentAt y
// entrega a cada destinatario de forma independiente.
func (s *Service) SendInvoice(ctx context.Context, actor Actor, number string, in dto.SendInvoiceRequest) (*dto.SendInvoiceResponse, error) {
	if err := validActor(actor); err != nil {
		return nil, err
	}
	var (
		inv        *entity.Invoice
		customer   *entity.Customer
		recipients []string
	)
	err := s.tx.RunBilling(ctx, func(r Repos) error {
		var err error
		if inv, err = s.lockInvoice(ctx, r, number); err != nil {
			return err
		}
		if inv.Status == entity.InvoiceStatusCancelled {
			return invariantf("la factura %s está cancelada y no puede enviarse", inv.Number)
		}
		recipients = deliveryRecipients(in.Recipients, inv.CustomerEmail)
		if len(recipients) == 0 {
			return invalidInput("la factura no tiene destinatarios")
		}
		if customer, err = s.loadCustomer(ctx, r, inv.CustomerID); err != nil {
			return err
		}
		if inv.Status == entity.InvoiceStatusDraft {
			if err := s.issue(ctx, r, inv, actor, "factura enviada"); err != nil {
				return err
			}
		} else {
			now := s.now()
			inv.LastSentAt = &now
			inv.UpdatedAt = now
			if err := r.Invoices.Update(ctx, inv); err != nil {
				return err
			}
		}
		return s.appendAudit(ctx, r, inv.ID, entity.AuditInvoiceSent,
			fmt.Sprintf("enviada a %s", strings.Join(recipients, ", ")), actor)
	})
	if err != nil {
		return nil, err
	}

	view, err := s.invoiceView(ctx, inv)
	if err != nil {
		return nil, err
	}
	out := &dto.SendInvoiceResponse{Invoice: *view, Delivered: []string{}, Failed: []string{}}
	pdf := s.attachment(ctx, inv, customer)
	for _, rcpt := range recipients {
		if s.notifier == nil {
			out.Failed = append(out.Failed, rcpt)
			continue
		}
		if err := s.notifier.SendInvoice(ctx, InvoiceDelivery{Invoice: inv, Recipient: rcpt, PDF: pdf}); err != nil {
			s.log.Warn().Err(err).Str("invoice_number", inv.Number).Str("recipient", rcpt).Msg("entrega de factura fallida")
			out.Failed = append(out.Failed, rcpt)
			continue
		}
		out.Delivered = append(out.Delivered, rcpt)
	}
	return out, nil
}

func deliveryRecipients(requested []string, fallback string) []string {
	seen := map[string]bool{}
	var out []string
	for _, r := range requested {
		r = strings.TrimSpace(r)
		if r == "" || seen[strings.ToLower(r)] {
			continue
		}
		seen[strings.ToLower(r)] = true
		out = append(out, r)
	}
	if len(out) == 0 && fallback != "" {
		out = append(out, fallback)
	}
	return out
}

// CancelInvoice cancela la factura. Una factura PAID nunca se cancela; si ya había sido
// emitida se descuenta del saldo del cliente lo que quedaba pendiente.
func (s *Service) CancelInvoice(ctx context.Context, actor Actor, number, reason string) (*dto.InvoiceResponse, error) {
	if err := validActor(actor); err != nil {
		return nil, err
	}
	var inv *entity.Invoice
	err := s.tx.RunBilling(ctx, func(r Repos) error {
		var err error
		if inv, err = s.lockInvoice(ctx, r, number); err != nil {
			return err
		}
		if inv.Status == entity.InvoiceStatusPaid {
			return invariantf("la factura %s está pagada y no puede cancelarse", inv.Number)
		}
		from := inv.Status
		if err := s.updateInvoiceStatus(ctx, r, inv, entity.InvoiceStatusCancelled, actor, reason); err != nil {
			return err
		}
		if from == entity.InvoiceStatusDraft {
			return nil
		}
		payments, err := r.Payments.ListByInvoice(ctx, inv.ID)
		if err != nil {
			return err
		}
		due := domainbilling.BalanceDue(inv, payments)
		if due.IsZero() {
			return nil
		}
		return r.Customers.AdjustBalance(ctx, inv.CustomerID, due.Neg())
	})
	if err != nil {
		return nil, err
	}
	s.log.Info().Str("invoice_number", inv.Number).Str("actor", actor.String()).Str("reason", reason).Msg("factura cancelada")
	return s.invoiceView(ctx, inv)
}

// UpdateInvoice edita campos de una factura en DRAFT.
func (s *Service) UpdateInvoice(ctx context.Context, actor Actor, number string, in dto.UpdateInvoiceRequest) (*dto.InvoiceResponse, error) {
	if err := validActor(actor); err != nil {
		return nil, err
	}
	if in.CustomerName == nil && in.CustomerEmail == nil && in.BillingAddress == nil &&
		in.DueDate == nil && in.Currency == nil && len(in.Metadata) == 0 {
		return nil, invalidInput("no hay cambios que aplicar")
	}
	var inv *entity.Invoice
	err := s.tx.RunBilling(ctx, func(r Repos) error {
		var err error
		if inv, err = s.lockInvoice(ctx, r, number); err != nil {
			return err
		}
		if inv.Status != entity.InvoiceStatusDraft {
			if in.Currency != nil {
				return invariantf("la moneda de la factura %s solo puede cambiarse en DRAFT", inv.Number)
			}
			return invariantf("la factura %s ya no es editable (estado %s)", inv.Number, inv.Status)
		}
		changed, err := applyInvoiceUpdate(inv, in)
		if err != nil {
			return err
		}
		inv.UpdatedAt = s.now()
		if err := r.Invoices.Update(ctx, inv); err != nil {
			return err
		}
		return s.appendAudit(ctx, r, inv.ID, entity.AuditInvoiceUpdated,
			"campos modificados: "+strings.Join(changed, ", "), actor)
	})
	if err != nil {
		return nil, err
	}
	return s.invoiceView(ctx, inv)
}

func applyInvoiceUpdate(inv *entity.Invoice, in dto.UpdateInvoiceRequest) ([]string, error) {
	var changed []string
	if in.CustomerName != nil {
		name := strings.TrimSpace(*in.CustomerName)
		if name == "" {
			return nil, invalidInput("el nombre del cliente no puede quedar vacío")
		}
		inv.CustomerName = name
		changed = append(changed, "customer_name")
	}
	if in.CustomerEmail != nil {
		inv.CustomerEmail = strings.TrimSpace(*in.CustomerEmail)
		changed = append(changed, "customer_email")
	}
	if in.BillingAddress != nil {
		inv.BillingAddress = addressFromDTO(*in.BillingAddress)
		changed = append(changed, "billing_address")
	}
	if in.DueDate != nil {
		if in.DueDate.Before(inv.CreatedAt) {
			return nil, invalidInput("la fecha de vencimiento es anterior a la creación")
		}
		inv.DueDate = *in.DueDate
		changed = append(changed, "due_date")
	}
	if in.Currency != nil {
		cur, err := normalizeCurrency(*in.Currency, inv.Currency)
		if err != nil {
			return nil, err
		}
		inv.Currency = cur
		changed = append(changed, "currency")
	}
	if len(in.Metadata) > 0 {
		if inv.Metadata == nil {
			inv.Metadata = map[string]string{}
		}
		keys := make([]string, 0, len(in.Metadata))
		for k, v := range in.Metadata {
			inv.Metadata[k] = v
			keys = append(keys, k)
		}
		sort.Strings(keys)
		changed = append(changed, "metadata("+strings.Join(keys, ",")+")")
	}
	return changed, nil
}

// MarkOverdueInvoices pasa a OVERDUE las facturas SENT/PARTIALLY_PAID vencidas. Cada factura
// va en su propia transacción; un fallo individual se registra y el barrido continúa.
func (s *Service) MarkOverdueInvoices(ctx context.Context) (*dto.OverdueSweepResponse, error) {
	now := s.now()
	candidates, err := s.reads.Invoices.ListOverdueCandidates(ctx, now, s.cfg.OverdueBatchSize)
	if err != nil {
		return nil, err
	}
	out := &dto.OverdueSweepResponse{Marked: []string{}}
	for _, c := range candidates {
		if err := ctx.Err(); err != nil {
			return out, err
		}
		marked := false
		err := s.tx.RunBilling(ctx, func(r Repos) error {
			inv, err := s.lockInvoice(ctx, r, c.Number)
			if err != nil {
				return err
			}
			if !inv.IsPastDue(now) || !domainbilling.CanTransition(inv.Status, entity.InvoiceStatusOverdue) {
				return nil
			}
			marked = true
			return s.updateInvoiceStatus(ctx, r, inv, entity.InvoiceStatusOverdue, SystemActor, "vencimiento superado")
		})
		switch {
		case err != nil:
			s.log.Warn().Err(err).Str("invoice_number", c.Number).Msg("no se pudo marcar como vencida")
			out.Skipped = append(out.Skipped, c.Number)
		case marked:
			out.Marked = append(out.Marked, c.Number)
		default:
			out.Skipped = append(out.Skipped, c.Number)
		}
	}
	if len(out.Marked) > 0 {
		s.log.Info().Int("marked", len(out.Marked)).Msg("barrido de vencidas completado")
	}
	return out, nil
}
