package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Estados de suscripción.
const (
	SubscriptionStatusActive    = "ACTIVE"
	SubscriptionStatusCancelled = "CANCELLED"
)

// Subscription plan mensual de un cliente (cuota fija con descuento propio).
type Subscription struct {
	ID              string
	CustomerID      string
	PlanName        string
	MonthlyFee      decimal.Decimal
	DiscountPct     decimal.Decimal
	ServiceType     string
	Currency        string
	Status          string
	NextBillingDate time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// IsActive true si la suscripción puede facturarse.
func (s *Subscription) IsActive() bool {
	return s.Status == SubscriptionStatusActive
}
