package billing

import (
	"github.com/jhoicas/courier-billing/internal/domain"
)

func notFound(what, id string) error {
	return domain.NewError("%s %q no encontrado", what, id).
		WithHintf("%s no encontrado: %s", what, id).
		Mark(domain.ErrNotFound)
}

func invalidInput(hint string) error {
	return domain.NewError("entrada inválida: %s", hint).
		WithHint(hint).
		Mark(domain.ErrInvalidInput)
}

func invariantf(format string, args ...any) error {
	return domain.NewError(format, args...).
		WithHintf(format, args...).
		Mark(domain.ErrBillingInvariant)
}

// collaboratorErr envuelve un fallo de pasarela o servicio de impuestos.
func collaboratorErr(err error, op string) error {
	return domain.WrapError(err, "%s", op).
		WithHintf("fallo externo en %s; puede reintentarse", op).
		Mark(domain.ErrExternalCollaborator)
}

func transitionErr(err error, number string) error {
	return domain.WrapError(err, "factura %s", number).
		WithHintf("factura %s: %s", number, err.Error()).
		Mark(domain.ErrInvalidStateTransition)
}
