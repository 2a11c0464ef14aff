package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/jhoicas/cotizaciones-api/internal/domain/entity"
	"github.com/rs/zerolog"
)

// RouterDeps dependencias para el router.
type RouterDeps struct {
	AuthUC      AuthService
	SalesUC     SalesService
	Idempotency IdempotencyStore // nil desactiva la verificación de Idempotency-Key
	JWTSecret   string
	Logger      zerolog.Logger
}

// Router registra las rutas de la API.
func Router(app *fiber.App, deps RouterDeps) {
	api := app.Group("/api")
	idem := Idempotency(deps.Idempotency, deps.Logger)

	// Auth
	authHandler := NewAuthHandler(deps.AuthUC, deps.Logger)
	authGroup := api.Group("/auth")
	authGroup.Post("/login", authHandler.Login)
	authGroup.Post("/register", AuthMiddleware(deps.JWTSecret), RequireRole(), authHandler.Register)
	authGroup.Get("/me", AuthMiddleware(deps.JWTSecret), authHandler.Me)

	// Cotizaciones (protegido). Los permisos por estatus los resuelve el caso de uso.
	orders := api.Group("/orders", AuthMiddleware(deps.JWTSecret))
	h := NewSalesOrderHandler(deps.SalesUC, deps.Logger)
	orders.Get("/", h.List)
	orders.Post("/", h.Create)
	orders.Get("/:id", h.GetByID)
	orders.Patch("/:id", h.Update)
	orders.Delete("/:id", h.Delete)
	orders.Get("/:id/events", h.Events)
	orders.Get("/:id/stale-costs", h.StaleCosts)
	orders.Get("/:id/pdf", h.PDF)
	orders.Post("/:id/actions/:action", idem, h.Transition)

	// Revisión de márgenes: gerente (admin pasa siempre)
	reviewer := RequireRole(entity.RoleGerente)
	orders.Get("/:id/review", reviewer, h.Review)
	orders.Post("/:id/review/simulate", reviewer, h.Simulate)
	orders.Put("/:id/review/pricing", reviewer, h.SavePricing)
	orders.Post("/:id/review/authorize", reviewer, idem, h.Authorize)
}
