package billing

import "github.com/jhoicas/courier-billing/internal/domain/entity"

// Actor quién ejecuta una operación: un usuario del back-office o un proceso del sistema.
type Actor struct {
	ID     string
	System bool
}

var (
	// SystemActor acciones internas (auto-finalización, barrido de vencidas).
	SystemActor = Actor{ID: entity.ActorSystem, System: true}
	// AutoPaymentActor cobro automático diferido.
	AutoPaymentActor = Actor{ID: entity.ActorSystemAuto, System: true}
)

// UserActor construye el actor de un usuario autenticado.
func UserActor(userID string) Actor {
	return Actor{ID: userID}
}

// String identificador registrado en auditoría y pagos.
func (a Actor) String() string {
	return a.ID
}

// Valid un actor sin ID no puede registrar acciones.
func (a Actor) Valid() bool {
	return a.ID != ""
}
