package billing

import (
	"time"

	"github.com/jhoicas/courier-billing/internal/domain/entity"
)

// CalculateDueDate fecha de vencimiento según los términos de pago.
// NET_n suma n días, COD vence en el mismo instante, IMMEDIATE a las 24 h.
// Un código desconocido se trata como NET_30.
func CalculateDueDate(createdAt time.Time, terms string) time.Time {
	switch terms {
	case entity.PaymentTermsNet15:
		return createdAt.AddDate(0, 0, 15)
	case entity.PaymentTermsNet30:
		return createdAt.AddDate(0, 0, 30)
	case entity.PaymentTermsNet45:
		return createdAt.AddDate(0, 0, 45)
	case entity.PaymentTermsNet60:
		return createdAt.AddDate(0, 0, 60)
	case entity.PaymentTermsCOD:
		return createdAt
	case entity.PaymentTermsImmediate:
		return createdAt.Add(24 * time.Hour)
	default:
		return createdAt.AddDate(0, 0, 30)
	}
}
