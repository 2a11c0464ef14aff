package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// RegisterRequest entrada para alta de usuario (solo admin).
// CommissionRate acepta porcentaje (5) o fracción (0.05).
type RegisterRequest struct {
	Email          string           `json:"email"`
	Password       string           `json:"password"`
	Name           string           `json:"name,omitempty"`
	Role           string           `json:"role,omitempty"` // admin, gerente, vendedor
	CommissionRate *decimal.Decimal `json:"commission_rate,omitempty"`
}

// UserResponse salida de un usuario (sin password).
type UserResponse struct {
	ID             string          `json:"id"`
	Email          string          `json:"email"`
	Name           string          `json:"name"`
	Role           string          `json:"role"`
	Status         string          `json:"status"`
	CommissionRate decimal.Decimal `json:"commission_rate"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// LoginRequest entrada para login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResponse salida con token JWT.
type LoginResponse struct {
	Token string       `json:"token"`
	User  UserResponse `json:"user"`
}
