package billing

import (
	"github.com/shopspring/decimal"

	"github.com/jhoicas/courier-billing/internal/application/dto"
	"github.com/jhoicas/courier-billing/internal/domain/entity"
)

func addressFromDTO(a dto.AddressDTO) entity.Address {
	return entity.Address{
		Line1:      a.Line1,
		Line2:      a.Line2,
		City:       a.City,
		State:      a.State,
		PostalCode: a.PostalCode,
		Country:    a.Country,
	}
}

func addressToDTO(a entity.Address) dto.AddressDTO {
	return dto.AddressDTO{
		Line1:      a.Line1,
		Line2:      a.Line2,
		City:       a.City,
		State:      a.State,
		PostalCode: a.PostalCode,
		Country:    a.Country,
	}
}

// toInvoiceResponse paid es el total cobrado (COMPLETED, sin reembolsos).
func toInvoiceResponse(inv *entity.Invoice, items []*entity.LineItem, paid decimal.Decimal) *dto.InvoiceResponse {
	due := inv.Total.Sub(paid)
	if due.IsNegative() {
		due = decimal.Zero
	}
	out := &dto.InvoiceResponse{
		ID:             inv.ID,
		Number:         inv.Number,
		CustomerID:     inv.CustomerID,
		CustomerName:   inv.CustomerName,
		CustomerEmail:  inv.CustomerEmail,
		BillingAddress: addressToDTO(inv.BillingAddress),
		Subtotal:       inv.Subtotal,
		Discount:       inv.Discount,
		Tax:            inv.Tax,
		Total:          inv.Total,
		AmountPaid:     paid,
		BalanceDue:     due,
		Currency:       inv.Currency,
		Status:         string(inv.Status),
		DueDate:        inv.DueDate,
		ShipmentID:     inv.ShipmentID,
		SubscriptionID: inv.SubscriptionID,
		Metadata:       inv.Metadata,
		CreatedAt:      inv.CreatedAt,
		SentAt:         inv.SentAt,
		LastSentAt:     inv.LastSentAt,
		PaidAt:         inv.PaidAt,
		CancelledAt:    inv.CancelledAt,
		Items:          make([]dto.LineItemResponse, 0, len(items)),
	}
	for _, it := range items {
		out.Items = append(out.Items, dto.LineItemResponse{
			ID:          it.ID,
			Position:    it.Position,
			Kind:        it.Kind,
			Description: it.Description,
			ShipmentID:  it.ShipmentID,
			Quantity:    it.Quantity,
			UnitPrice:   it.UnitPrice,
			Amount:      it.Amount,
		})
	}
	return out
}

func toPaymentResponse(p *entity.Payment) dto.PaymentResponse {
	return dto.PaymentResponse{
		ID:                   p.ID,
		InvoiceID:            p.InvoiceID,
		CustomerID:           p.CustomerID,
		Amount:               p.Amount,
		Currency:             p.Currency,
		MethodType:           string(p.MethodType),
		Status:               string(p.Status),
		PaymentMethodID:      p.PaymentMethodID,
		GatewayTransactionID: p.GatewayTransactionID,
		FailureReason:        p.FailureReason,
		OriginalPaymentID:    p.OriginalPaymentID,
		Notes:                p.Notes,
		ProcessedAt:          p.ProcessedAt,
		CreatedBy:            p.CreatedBy,
		CreatedAt:            p.CreatedAt,
	}
}

func toPaymentResponses(ps []*entity.Payment) []dto.PaymentResponse {
	out := make([]dto.PaymentResponse, 0, len(ps))
	for _, p := range ps {
		out = append(out, toPaymentResponse(p))
	}
	return out
}

func toAuditResponses(entries []*entity.BillingAuditEntry) []dto.AuditEntryResponse {
	out := make([]dto.AuditEntryResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, dto.AuditEntryResponse{
			ID:          e.ID,
			Action:      e.Action,
			Description: e.Description,
			Actor:       e.Actor,
			CreatedAt:   e.CreatedAt,
		})
	}
	return out
}

func toCustomerResponse(c *entity.Customer) *dto.BillingCustomerResponse {
	return &dto.BillingCustomerResponse{
		ID:                     c.ID,
		Name:                   c.Name,
		Email:                  c.Email,
		Phone:                  c.Phone,
		BillingAddress:         addressToDTO(c.BillingAddress),
		PricingTier:            c.PricingTier,
		PaymentTerms:           c.PaymentTerms,
		AutoPayEnabled:         c.AutoPayEnabled,
		DefaultPaymentMethodID: c.DefaultPaymentMethodID,
		Balance:                c.Balance,
	}
}

func toSubscriptionResponse(s *entity.Subscription) *dto.SubscriptionResponse {
	return &dto.SubscriptionResponse{
		ID:              s.ID,
		CustomerID:      s.CustomerID,
		PlanName:        s.PlanName,
		MonthlyFee:      s.MonthlyFee,
		DiscountPct:     s.DiscountPct,
		Currency:        s.Currency,
		Status:          s.Status,
		NextBillingDate: s.NextBillingDate,
	}
}
