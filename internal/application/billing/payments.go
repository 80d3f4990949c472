package billing

import (
	"context"
	"fmt"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/courier-billing/internal/application/dto"
	domainbilling "github.com/jhoicas/courier-billing/internal/domain/billing"
	"github.com/jhoicas/courier-billing/internal/domain/entity"
	"github.com/jhoicas/courier-billing/internal/domain/money"
)

// RecordManualPayment registra un cobro recibido fuera de la pasarela (transferencia, efectivo).
func (s *Service) RecordManualPayment(ctx context.Context, actor Actor, number string, in dto.ManualPaymentRequest) (*dto.PaymentResultResponse, error) {
	if err := validActor(actor); err != nil {
		return nil, err
	}
	amount := money.Round(in.Amount)
	if !money.IsPositive(amount) {
		return nil, invalidInput("el importe del pago debe ser mayor que cero")
	}
	var (
		inv     *entity.Invoice
		payment *entity.Payment
		paid    decimal.Decimal
	)
	err := s.tx.RunBilling(ctx, func(r Repos) error {
		var err error
		if inv, err = s.lockInvoice(ctx, r, number); err != nil {
			return err
		}
		if err := rejectSettled(inv); err != nil {
			return err
		}
		cur, err := normalizeCurrency(in.Currency, inv.Currency)
		if err != nil {
			return err
		}
		if cur != inv.Currency {
			return invariantf("la moneda del pago (%s) no coincide con la de la factura (%s)", cur, inv.Currency)
		}
		payments, err := r.Payments.ListByInvoice(ctx, inv.ID)
		if err != nil {
			return err
		}
		paid = money.Round(domainbilling.TotalPaid(payments).Add(amount))
		target := paymentTarget(inv, paid)
		if err := checkPaymentTransition(inv, target); err != nil {
			return err
		}
		if inv.Status == entity.InvoiceStatusDraft {
			if err := s.issue(ctx, r, inv, actor, "emitida al registrar un pago"); err != nil {
				return err
			}
		}

		now := s.now()
		payment = &entity.Payment{
			ID:          uuid.New().String(),
			InvoiceID:   inv.ID,
			CustomerID:  inv.CustomerID,
			Amount:      amount,
			Currency:    cur,
			MethodType:  entity.PaymentMethodManual,
			Status:      entity.PaymentStatusCompleted,
			Notes:       in.Notes,
			ProcessedAt: &now,
			CreatedBy:   actor.String(),
			CreatedAt:   now,
		}
		if err := r.Payments.Create(ctx, payment); err != nil {
			return err
		}
		if err := s.updateInvoiceStatus(ctx, r, inv, target, actor, "pago manual "+money.Format(amount)); err != nil {
			return err
		}
		if err := r.Customers.AdjustBalance(ctx, inv.CustomerID, amount.Neg()); err != nil {
			return err
		}
		return s.appendAudit(ctx, r, inv.ID, entity.AuditManualPayment,
			fmt.Sprintf("pago manual de %s %s registrado", money.Format(amount), cur), actor)
	})
	if err != nil {
		return nil, err
	}

	s.log.Info().
		Str("invoice_number", inv.Number).
		Str("payment_id", payment.ID).
		Str("amount", money.Format(amount)).
		Str("actor", actor.String()).
		Msg("pago manual registrado")
	if inv.CustomerEmail != "" {
		s.notify("payment_confirmation", inv.Number, func() error {
			return s.notifier.SendPaymentConfirmation(ctx, inv, payment)
		})
	}
	return paymentResult(inv, payment, paid), nil
}

// ProcessPayment cobra un importe a través de la pasarela con el medio indicado.
func (s *Service) ProcessPayment(ctx context.Context, actor Actor, number string, in dto.ProcessPaymentRequest) (*dto.PaymentResultResponse, error) {
	if err := validActor(actor); err != nil {
		return nil, err
	}
	amount := money.Round(in.Amount)
	if !money.IsPositive(amount) {
		return nil, invalidInput("el importe del pago debe ser mayor que cero")
	}
	if in.PaymentMethodID == "" {
		return nil, invalidInput("medio de pago requerido")
	}
	methodType := entity.PaymentMethodAutomatic
	if in.PaymentMethodType == string(entity.PaymentMethodManual) {
		methodType = entity.PaymentMethodManual
	}

	var (
		inv     *entity.Invoice
		payment *entity.Payment
		paid    decimal.Decimal
		callErr error
	)
	err := s.tx.RunBilling(ctx, func(r Repos) error {
		var err error
		if inv, err = s.lockInvoice(ctx, r, number); err != nil {
			return err
		}
		if err := rejectSettled(inv); err != nil {
			return err
		}
		payments, err := r.Payments.ListByInvoice(ctx, inv.ID)
		if err != nil {
			return err
		}
		paid = domainbilling.TotalPaid(payments)
		target := paymentTarget(inv, money.Round(paid.Add(amount)))
		if err := checkPaymentTransition(inv, target); err != nil {
			return err
		}

		payment, callErr, err = s.capture(ctx, r, inv, GatewayRequest{
			Amount:          amount,
			Currency:        inv.Currency,
			PaymentMethodID: in.PaymentMethodID,
			CustomerID:      inv.CustomerID,
			ReferenceID:     inv.Number,
			Kind:            GatewayKindCapture,
		}, methodType, actor)
		if err != nil || !payment.IsCompleted() {
			return err
		}
		paid = money.Round(paid.Add(amount))
		return s.settle(ctx, r, inv, payment, target, entity.AuditPaymentProcessed, actor)
	})
	if err != nil {
		return nil, err
	}
	return s.afterCapture(ctx, inv, payment, paid, callErr)
}

// InitiateAutomaticPayment cobra el saldo pendiente con el medio de pago por defecto del cliente.
// Un resultado no COMPLETED reportado por la pasarela (rechazo o pendiente) no es error para el
// caller: queda el intento registrado, se avisa al cliente y, si la factura ya venció, pasa a
// OVERDUE. Un fallo de transporte sí se devuelve.
func (s *Service) InitiateAutomaticPayment(ctx context.Context, actor Actor, number string) (*dto.PaymentResultResponse, error) {
	if err := validActor(actor); err != nil {
		return nil, err
	}
	var (
		inv     *entity.Invoice
		payment *entity.Payment
		paid    decimal.Decimal
		callErr error
	)
	err := s.tx.RunBilling(ctx, func(r Repos) error {
		var err error
		if inv, err = s.lockInvoice(ctx, r, number); err != nil {
			return err
		}
		if err := rejectSettled(inv); err != nil {
			return err
		}
		customer, err := s.loadCustomer(ctx, r, inv.CustomerID)
		if err != nil {
			return err
		}
		if !customer.HasDefaultPaymentMethod() {
			return invariantf("el cliente %s no tiene medio de pago por defecto", customer.ID)
		}
		payments, err := r.Payments.ListByInvoice(ctx, inv.ID)
		if err != nil {
			return err
		}
		paid = domainbilling.TotalPaid(payments)
		due := domainbilling.BalanceDue(inv, payments)
		if !due.IsPositive() {
			return invariantf("la factura %s no tiene saldo pendiente", inv.Number)
		}
		if err := checkPaymentTransition(inv, entity.InvoiceStatusPaid); err != nil {
			return err
		}

		payment, callErr, err = s.capture(ctx, r, inv, GatewayRequest{
			Amount:          due,
			Currency:        inv.Currency,
			PaymentMethodID: customer.DefaultPaymentMethodID,
			CustomerID:      customer.ID,
			ReferenceID:     inv.Number,
			Kind:            GatewayKindCapture,
		}, entity.PaymentMethodAutomatic, actor)
		if err != nil {
			return err
		}
		if payment.IsCompleted() {
			paid = money.Round(paid.Add(due))
			return s.settle(ctx, r, inv, payment, entity.InvoiceStatusPaid, entity.AuditAutomaticPayment, actor)
		}
		if callErr == nil && inv.IsPastDue(s.now()) && domainbilling.CanTransition(inv.Status, entity.InvoiceStatusOverdue) {
			return s.updateInvoiceStatus(ctx, r, inv, entity.InvoiceStatusOverdue, actor,
				fmt.Sprintf("cobro automático %s con la factura vencida", payment.Status))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if callErr == nil && !payment.IsCompleted() {
		// Resultado no COMPLETED reportado: se notifica y se devuelve el intento sin error.
		s.log.Warn().Str("invoice_number", inv.Number).Str("payment_id", payment.ID).
			Str("status", string(payment.Status)).Str("reason", payment.FailureReason).Msg("cobro automático no completado")
		s.notifyFailure(ctx, inv, payment)
		return paymentResult(inv, payment, paid), nil
	}
	return s.afterCapture(ctx, inv, payment, paid, callErr)
}

// ── Helpers de cobro ──────────────────────────────────────────────────────────

// paymentTarget PAID si lo cobrado cubre el total, si no PARTIALLY_PAID.
func paymentTarget(inv *entity.Invoice, paid decimal.Decimal) entity.InvoiceStatus {
	if paid.GreaterThanOrEqual(inv.Total) {
		return entity.InvoiceStatusPaid
	}
	return entity.InvoiceStatusPartiallyPaid
}

// checkPaymentTransition valida antes de cualquier efecto. Una factura DRAFT se emite primero,
// por lo que la transición relevante parte de SENT.
func checkPaymentTransition(inv *entity.Invoice, target entity.InvoiceStatus) error {
	from := inv.Status
	if from == entity.InvoiceStatusDraft {
		from = entity.InvoiceStatusSent
	}
	if err := domainbilling.ValidateTransition(from, target); err != nil {
		return transitionErr(err, inv.Number)
	}
	return nil
}

// capture llama a la pasarela y persiste el intento sea cual sea el resultado.
// callErr es el fallo de transporte (la transacción debe confirmarse para conservar el registro);
// err es un fallo de persistencia que aborta la transacción.
func (s *Service) capture(ctx context.Context, r Repos, inv *entity.Invoice, req GatewayRequest, methodType entity.PaymentMethodType, actor Actor, opts ...paymentOption) (payment *entity.Payment, callErr, err error) {
	now := s.now()
	payment = &entity.Payment{
		ID:              uuid.New().String(),
		InvoiceID:       inv.ID,
		CustomerID:      inv.CustomerID,
		Amount:          req.Amount,
		Currency:        req.Currency,
		MethodType:      methodType,
		PaymentMethodID: req.PaymentMethodID,
		CreatedBy:       actor.String(),
		CreatedAt:       now,
	}
	for _, opt := range opts {
		opt(payment)
	}
	res, callErr := s.gateway.ProcessPayment(ctx, req)
	switch {
	case callErr != nil:
		payment.Status = entity.PaymentStatusFailed
		payment.FailureReason = callErr.Error()
	case res == nil:
		callErr = errors.New("respuesta vacía de la pasarela")
		payment.Status = entity.PaymentStatusFailed
		payment.FailureReason = callErr.Error()
	default:
		payment.Status = res.Status
		payment.GatewayTransactionID = res.TransactionID
		if payment.GatewayTransactionID == "" {
			payment.GatewayTransactionID = res.PaymentID
		}
		payment.GatewayResponse = res.GatewayResponse
		payment.FailureReason = res.FailureReason
		if payment.Status == "" {
			payment.Status = entity.PaymentStatusFailed
		}
	}
	if payment.IsCompleted() {
		payment.ProcessedAt = &now
	}
	if err := r.Payments.Create(ctx, payment); err != nil {
		return nil, nil, err
	}
	if !payment.IsCompleted() {
		action := entity.AuditPaymentFailed
		if methodType == entity.PaymentMethodRefund {
			action = entity.AuditRefundFailed
		}
		desc := fmt.Sprintf("intento %s de %s %s: %s", payment.Status, money.Format(req.Amount), req.Currency, payment.FailureReason)
		if err := s.appendAudit(ctx, r, inv.ID, action, desc, actor); err != nil {
			return nil, nil, err
		}
	}
	return payment, callErr, nil
}

// settle cobro confirmado: emite si hace falta, transiciona, descuenta saldo y audita.
func (s *Service) settle(ctx context.Context, r Repos, inv *entity.Invoice, payment *entity.Payment, target entity.InvoiceStatus, action string, actor Actor) error {
	if inv.Status == entity.InvoiceStatusDraft {
		if err := s.issue(ctx, r, inv, actor, "emitida al procesar un pago"); err != nil {
			return err
		}
	}
	if err := s.updateInvoiceStatus(ctx, r, inv, target, actor, "cobro "+money.Format(payment.Amount)); err != nil {
		return err
	}
	if err := r.Customers.AdjustBalance(ctx, inv.CustomerID, payment.Amount.Neg()); err != nil {
		return err
	}
	return s.appendAudit(ctx, r, inv.ID, action,
		fmt.Sprintf("cobro de %s %s (transacción %s)", money.Format(payment.Amount), payment.Currency, payment.GatewayTransactionID), actor)
}

// afterCapture notifica y traduce el resultado del intento ya confirmado en base de datos.
func (s *Service) afterCapture(ctx context.Context, inv *entity.Invoice, payment *entity.Payment, paid decimal.Decimal, callErr error) (*dto.PaymentResultResponse, error) {
	switch {
	case callErr != nil:
		s.log.Error().Err(callErr).Str("invoice_number", inv.Number).Str("payment_id", payment.ID).Msg("fallo de pasarela")
		s.notifyFailure(ctx, inv, payment)
		return nil, collaboratorErr(callErr, "pasarela de pagos")
	case payment.Status == entity.PaymentStatusFailed:
		s.log.Warn().Str("invoice_number", inv.Number).Str("payment_id", payment.ID).Str("reason", payment.FailureReason).Msg("cobro rechazado")
		s.notifyFailure(ctx, inv, payment)
		return nil, collaboratorErr(errors.Newf("pago %s rechazado: %s", payment.ID, payment.FailureReason), "pasarela de pagos")
	case payment.IsCompleted():
		s.log.Info().Str("invoice_number", inv.Number).Str("payment_id", payment.ID).
			Str("amount", money.Format(payment.Amount)).Str("status", string(inv.Status)).Msg("cobro completado")
		if inv.CustomerEmail != "" {
			s.notify("payment_confirmation", inv.Number, func() error {
				return s.notifier.SendPaymentConfirmation(ctx, inv, payment)
			})
		}
	default:
		s.log.Info().Str("invoice_number", inv.Number).Str("payment_id", payment.ID).Msg("cobro pendiente de confirmación")
	}
	return paymentResult(inv, payment, paid), nil
}

func (s *Service) notifyFailure(ctx context.Context, inv *entity.Invoice, payment *entity.Payment) {
	if inv.CustomerEmail == "" {
		return
	}
	s.notify("payment_failure", inv.Number, func() error {
		return s.notifier.SendPaymentFailure(ctx, inv, payment)
	})
}

func paymentResult(inv *entity.Invoice, payment *entity.Payment, paid decimal.Decimal) *dto.PaymentResultResponse {
	return &dto.PaymentResultResponse{
		Payment:       toPaymentResponse(payment),
		InvoiceStatus: string(inv.Status),
		TotalPaid:     paid,
	}
}
