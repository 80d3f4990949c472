package billing

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/courier-billing/internal/application/dto"
	domainbilling "github.com/jhoicas/courier-billing/internal/domain/billing"
	"github.com/jhoicas/courier-billing/internal/domain/entity"
	"github.com/jhoicas/courier-billing/internal/domain/money"
	"github.com/jhoicas/courier-billing/internal/domain/repository"
)

// CustomerUseCase alta y consulta de clientes de facturación y de sus suscripciones.
type CustomerUseCase struct {
	customers     repository.CustomerRepository
	subscriptions repository.SubscriptionRepository
	defaultCur    string
	now           Clock
}

// NewCustomerUseCase construye el caso de uso.
func NewCustomerUseCase(customers repository.CustomerRepository, subscriptions repository.SubscriptionRepository, defaultCurrency string) *CustomerUseCase {
	if defaultCurrency == "" {
		defaultCurrency = "USD"
	}
	return &CustomerUseCase{customers: customers, subscriptions: subscriptions, defaultCur: defaultCurrency, now: time.Now}
}

// Create crea un nuevo cliente. Nivel y términos vacíos toman STANDARD y NET_30.
func (uc *CustomerUseCase) Create(ctx context.Context, in dto.CreateBillingCustomerRequest) (*dto.BillingCustomerResponse, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, invalidInput("el nombre del cliente es obligatorio")
	}
	tier := strings.ToUpper(in.PricingTier)
	if tier == "" {
		tier = entity.TierStandard
	}
	terms := strings.ToUpper(in.PaymentTerms)
	if terms == "" {
		terms = entity.PaymentTermsNet30
	}
	if in.AutoPayEnabled && in.DefaultPaymentMethodID == "" {
		return nil, invalidInput("el cobro automático requiere un medio de pago por defecto")
	}
	now := uc.now()
	c := &entity.Customer{
		ID:                     uuid.New().String(),
		Name:                   name,
		Email:                  strings.TrimSpace(in.Email),
		Phone:                  in.Phone,
		BillingAddress:         addressFromDTO(in.BillingAddress),
		PricingTier:            tier,
		PaymentTerms:           terms,
		AutoPayEnabled:         in.AutoPayEnabled,
		DefaultPaymentMethodID: in.DefaultPaymentMethodID,
		Balance:                decimal.Zero,
		CreatedAt:              now,
		UpdatedAt:              now,
	}
	if err := uc.customers.Create(ctx, c); err != nil {
		return nil, err
	}
	return toCustomerResponse(c), nil
}

// Get cliente por ID.
func (uc *CustomerUseCase) Get(ctx context.Context, id string) (*dto.BillingCustomerResponse, error) {
	c, err := uc.customers.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, notFound("cliente", id)
	}
	return toCustomerResponse(c), nil
}

// List lista clientes.
func (uc *CustomerUseCase) List(ctx context.Context, page dto.PageRequest) ([]*dto.BillingCustomerResponse, error) {
	page.DefaultPage()
	list, err := uc.customers.List(ctx, page.Limit, page.Offset)
	if err != nil {
		return nil, err
	}
	out := make([]*dto.BillingCustomerResponse, 0, len(list))
	for _, c := range list {
		out = append(out, toCustomerResponse(c))
	}
	return out, nil
}

// CreateSubscription da de alta un plan mensual activo.
func (uc *CustomerUseCase) CreateSubscription(ctx context.Context, in dto.CreateSubscriptionRequest) (*dto.SubscriptionResponse, error) {
	c, err := uc.customers.GetByID(ctx, in.CustomerID)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, notFound("cliente", in.CustomerID)
	}
	if !money.IsPositive(in.MonthlyFee) {
		return nil, invalidInput("la cuota mensual debe ser mayor que cero")
	}
	if in.DiscountPct.IsNegative() || in.DiscountPct.GreaterThan(decimal.NewFromInt(100)) {
		return nil, invalidInput("el descuento debe estar entre 0 y 100")
	}
	if in.ServiceType != "" && !domainbilling.IsKnownServiceType(in.ServiceType) {
		return nil, invalidInput("tipo de servicio no soportado: " + in.ServiceType)
	}
	cur, err := normalizeCurrency(in.Currency, uc.defaultCur)
	if err != nil {
		return nil, err
	}
	now := uc.now()
	sub := &entity.Subscription{
		ID:              uuid.New().String(),
		CustomerID:      c.ID,
		PlanName:        in.PlanName,
		MonthlyFee:      money.Round(in.MonthlyFee),
		DiscountPct:     in.DiscountPct,
		ServiceType:     in.ServiceType,
		Currency:        cur,
		Status:          entity.SubscriptionStatusActive,
		NextBillingDate: in.NextBillingDate,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := uc.subscriptions.Create(ctx, sub); err != nil {
		return nil, err
	}
	return toSubscriptionResponse(sub), nil
}

// GetSubscription suscripción por ID.
func (uc *CustomerUseCase) GetSubscription(ctx context.Context, id string) (*dto.SubscriptionResponse, error) {
	sub, err := uc.subscriptions.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if sub == nil {
		return nil, notFound("suscripción", id)
	}
	return toSubscriptionResponse(sub), nil
}
