package pricing

import (
	"context"
	"strings"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/jhoicas/courier-billing/internal/application/billing"
	domainbilling "github.com/jhoicas/courier-billing/internal/domain/billing"
	"github.com/jhoicas/courier-billing/internal/domain/entity"
	"github.com/jhoicas/courier-billing/pkg/logger"
)

var _ billing.PricingTierLookup = (*TierLookup)(nil)

// TierSource origen de la definición de un nivel de precio. nil, nil = nivel desconocido.
type TierSource func(ctx context.Context, code string) (*entity.PricingTier, error)

// DefaultTierSource tabla fija STANDARD/SILVER/GOLD/PLATINUM.
func DefaultTierSource(_ context.Context, code string) (*entity.PricingTier, error) {
	for _, t := range domainbilling.DefaultTiers() {
		if t.Code == code {
			tier := t
			return &tier, nil
		}
	}
	return nil, nil
}

// TierLookup resuelve el nivel del cliente con caché en memoria por código de nivel.
// Un nivel desconocido se trata como STANDARD.
type TierLookup struct {
	source TierSource
	cache  *gocache.Cache
	log    *logger.Logger
}

// NewTierLookup ttl <= 0 desactiva la expiración.
func NewTierLookup(source TierSource, ttl time.Duration, log *logger.Logger) *TierLookup {
	if source == nil {
		source = DefaultTierSource
	}
	if log == nil {
		log = logger.Nop()
	}
	exp, cleanup := ttl, 2*ttl
	if ttl <= 0 {
		exp, cleanup = gocache.NoExpiration, 0
	}
	return &TierLookup{
		source: source,
		cache:  gocache.New(exp, cleanup),
		log:    log.Named("pricing"),
	}
}

// GetPricingTier nivel vigente del cliente.
func (l *TierLookup) GetPricingTier(ctx context.Context, customer *entity.Customer) (*entity.PricingTier, error) {
	code := strings.ToUpper(strings.TrimSpace(customer.PricingTier))
	if code == "" {
		code = entity.TierStandard
	}
	if v, ok := l.cache.Get(code); ok {
		tier := v.(entity.PricingTier)
		return &tier, nil
	}
	tier, err := l.source(ctx, code)
	if err != nil {
		return nil, err
	}
	if tier == nil {
		l.log.Warn().Str("customer_id", customer.ID).Str("tier", code).Msg("nivel de precio desconocido, se aplica STANDARD")
		tier = &entity.PricingTier{Code: entity.TierStandard, Name: "Standard", DiscountPct: domainbilling.TierDiscountPct(entity.TierStandard)}
		// no se cachea: el nivel puede darse de alta más tarde
		return tier, nil
	}
	l.cache.SetDefault(code, *tier)
	return tier, nil
}

// Invalidate descarta un nivel cacheado (o todos si code es vacío).
func (l *TierLookup) Invalidate(code string) {
	if code == "" {
		l.cache.Flush()
		return
	}
	l.cache.Delete(strings.ToUpper(code))
}
