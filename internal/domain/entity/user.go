package entity

import (
	"time"

	"github.com/jhoicas/cotizaciones-api/internal/domain/workflow"
	"github.com/shopspring/decimal"
)

// Roles válidos para User.
const (
	RoleAdmin    = "admin"
	RoleGerente  = "gerente"
	RoleVendedor = "vendedor"
)

// Estatus de usuario.
const (
	UserStatusActive   = "active"
	UserStatusInactive = "inactive"
)

// User representa un usuario del sistema.
type User struct {
	ID             string
	Email          string
	PasswordHash   string // bcrypt hash, nunca plano en dominio después de persistir
	Name           string
	Role           string // admin, gerente, vendedor
	Status         string // active, inactive
	CommissionRate decimal.Decimal
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// ValidRole indica si role es uno de los roles del sistema.
func ValidRole(role string) bool {
	switch role {
	case RoleAdmin, RoleGerente, RoleVendedor:
		return true
	}
	return false
}

// ActorForRole traduce el rol del usuario al actor del flujo de autorización.
func ActorForRole(role string) (workflow.Actor, bool) {
	switch role {
	case RoleVendedor:
		return workflow.ActorSales, true
	case RoleGerente:
		return workflow.ActorReviewer, true
	case RoleAdmin:
		return workflow.ActorAdmin, true
	}
	return "", false
}
