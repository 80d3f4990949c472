package domain

import (
	"fmt"

	"github.com/cockroachdb/errors"
)

// Errores de dominio. Los casos de uso marcan sus errores con estos sentinels
// (errors.Mark) para que las capas externas clasifiquen con errors.Is.
var (
	ErrNotFound               = errors.New("recurso no encontrado")
	ErrInvalidInput           = errors.New("entrada inválida")
	ErrDuplicate              = errors.New("recurso duplicado")
	ErrUnauthorized           = errors.New("no autorizado")
	ErrForbidden              = errors.New("acceso denegado")
	ErrConflict               = errors.New("conflicto con el estado actual")
	ErrInvalidStateTransition = errors.New("transición de estado inválida")
	ErrBillingInvariant       = errors.New("violación de invariante de facturación")
	ErrExternalCollaborator   = errors.New("fallo de colaborador externo")
)

// TransitionError identifica el estado origen y el destino rechazado.
// Es errors.Is-compatible con ErrInvalidStateTransition.
type TransitionError struct {
	From string
	To   string
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("transición de estado inválida: %s -> %s", e.From, e.To)
}

// Is permite errors.Is(err, ErrInvalidStateTransition).
func (e *TransitionError) Is(target error) bool {
	return target == ErrInvalidStateTransition
}

// ── Builder ───────────────────────────────────────────────────────────────────

// ErrorBuilder construye errores encadenados. Mark debe ser la última llamada.
type ErrorBuilder struct {
	err error
}

// NewError inicia un builder con un mensaje interno.
func NewError(format string, args ...any) *ErrorBuilder {
	return &ErrorBuilder{err: errors.Newf(format, args...)}
}

// WrapError inicia un builder a partir de un error existente.
func WrapError(err error, format string, args ...any) *ErrorBuilder {
	return &ErrorBuilder{err: errors.Wrapf(err, format, args...)}
}

// WithHint mensaje visible para el cliente HTTP.
func (b *ErrorBuilder) WithHint(hint string) *ErrorBuilder {
	b.err = errors.WithHint(b.err, hint)
	return b
}

// WithHintf igual que WithHint con formato.
func (b *ErrorBuilder) WithHintf(format string, args ...any) *ErrorBuilder {
	b.err = errors.WithHintf(b.err, format, args...)
	return b
}

// Mark marca el error con el sentinel y lo devuelve.
func (b *ErrorBuilder) Mark(reference error) error {
	return errors.Mark(b.err, reference)
}

// Hint devuelve los hints del error concatenados (vacío si no hay).
func Hint(err error) string {
	return errors.FlattenHints(err)
}
