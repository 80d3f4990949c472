package entity

// Roles del back-office (claim "role" del JWT emitido por el portal de soporte).
const (
	RoleAdmin   = "admin"
	RoleBilling = "facturador"
	RoleAuditor = "auditor"
)

// Usuarios internos del sistema (auditoría).
const (
	ActorSystem     = "SYSTEM"
	ActorSystemAuto = "SYSTEM_AUTO"
)
