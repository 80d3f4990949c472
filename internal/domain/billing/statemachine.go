// Package billing contiene las reglas puras de facturación: máquina de estados de la
// factura, numeración, vencimientos, tarificación y conciliación de pagos.
package billing

import (
	"github.com/jhoicas/courier-billing/internal/domain"
	"github.com/jhoicas/courier-billing/internal/domain/entity"
)

// transitions tabla de transiciones permitidas (origen -> destinos).
// CANCELLED y REFUNDED son terminales.
var transitions = map[entity.InvoiceStatus][]entity.InvoiceStatus{
	entity.InvoiceStatusDraft: {
		entity.InvoiceStatusSent,
		entity.InvoiceStatusCancelled,
	},
	entity.InvoiceStatusSent: {
		entity.InvoiceStatusPaid,
		entity.InvoiceStatusPartiallyPaid,
		entity.InvoiceStatusOverdue,
		entity.InvoiceStatusCancelled,
	},
	entity.InvoiceStatusPartiallyPaid: {
		entity.InvoiceStatusPaid,
		entity.InvoiceStatusPartiallyPaid,
		entity.InvoiceStatusOverdue,
	},
	entity.InvoiceStatusOverdue: {
		entity.InvoiceStatusPaid,
		entity.InvoiceStatusPartiallyPaid,
		entity.InvoiceStatusCancelled,
	},
	entity.InvoiceStatusPaid: {
		entity.InvoiceStatusRefunded,
		entity.InvoiceStatusPartiallyRefunded,
	},
	entity.InvoiceStatusPartiallyRefunded: {
		entity.InvoiceStatusRefunded,
		entity.InvoiceStatusPartiallyRefunded,
		entity.InvoiceStatusPaid,
	},
	entity.InvoiceStatusCancelled: {},
	entity.InvoiceStatusRefunded:  {},
}

// CanTransition true si from -> to está en la tabla.
func CanTransition(from, to entity.InvoiceStatus) bool {
	for _, allowed := range transitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// ValidateTransition devuelve *domain.TransitionError si from -> to no está permitido.
func ValidateTransition(from, to entity.InvoiceStatus) error {
	if !CanTransition(from, to) {
		return &domain.TransitionError{From: string(from), To: string(to)}
	}
	return nil
}

// AllowedTargets destinos permitidos desde from (copia).
func AllowedTargets(from entity.InvoiceStatus) []entity.InvoiceStatus {
	out := make([]entity.InvoiceStatus, len(transitions[from]))
	copy(out, transitions[from])
	return out
}

// IsTerminal true si no hay transiciones de salida.
func IsTerminal(s entity.InvoiceStatus) bool {
	return len(transitions[s]) == 0
}
