package http

import (
	"context"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/jhoicas/cotizaciones-api/internal/application/dto"
	"github.com/jhoicas/cotizaciones-api/internal/application/sales"
	"github.com/jhoicas/cotizaciones-api/internal/domain/workflow"
	"github.com/rs/zerolog"
)

// SalesService casos de uso de cotizaciones que consume el handler.
// Lo implementa *sales.SalesUseCase.
type SalesService interface {
	CreateOrder(ctx context.Context, a sales.Actor, in dto.CreateOrderRequest) (*dto.SalesOrderResponse, error)
	GetOrder(ctx context.Context, a sales.Actor, id string) (*dto.SalesOrderResponse, error)
	ListOrders(ctx context.Context, in dto.OrderListFilter) (*dto.SalesOrderListResponse, error)
	UpdateOrder(ctx context.Context, a sales.Actor, id string, in dto.UpdateOrderRequest) (*dto.SalesOrderResponse, error)
	DeleteOrder(ctx context.Context, a sales.Actor, id string) error
	ListEvents(ctx context.Context, id string) ([]dto.OrderEventResponse, error)
	CheckStaleCosts(ctx context.Context, id string) ([]dto.StaleCostResponse, error)
	RenderPDF(ctx context.Context, id string) ([]byte, string, error)
	Transition(ctx context.Context, a sales.Actor, id string, action workflow.Action) (*dto.TransitionResponse, error)

	OpenReview(ctx context.Context, a sales.Actor, id string) (*dto.ReviewResponse, error)
	Simulate(ctx context.Context, id string, in dto.SimulateRequest) (*dto.SimulationResponse, error)
	SavePricing(ctx context.Context, a sales.Actor, id string, in dto.SimulateRequest) (*dto.SalesOrderResponse, error)
	AuthorizeWithPricing(ctx context.Context, a sales.Actor, id string, in dto.SimulateRequest) (*dto.SalesOrderResponse, error)
}

var _ SalesService = (*sales.SalesUseCase)(nil)

// SalesOrderHandler maneja cotizaciones y su ciclo de vida (protegido).
type SalesOrderHandler struct {
	uc  SalesService
	log zerolog.Logger
}

// NewSalesOrderHandler construye el handler.
func NewSalesOrderHandler(uc SalesService, log zerolog.Logger) *SalesOrderHandler {
	return &SalesOrderHandler{uc: uc, log: log}
}

// Create godoc
// @Summary      Crear cotización en DRAFT
// @Tags         orders
// @Accept       json
// @Produce      json
// @Param        body  body  dto.CreateOrderRequest  true  "encabezado y partidas"
// @Success      201   {object}  dto.SalesOrderResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      403   {object}  dto.ErrorResponse
// @Router       /api/orders [post]
func (h *SalesOrderHandler) Create(c *fiber.Ctx) error {
	var in dto.CreateOrderRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	out, err := h.uc.CreateOrder(c.UserContext(), actorFrom(c), in)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.Status(fiber.StatusCreated).JSON(out)
}

// List godoc
// @Summary      Listar cotizaciones
// @Tags         orders
// @Produce      json
// @Param        status     query  string  false  "estatus"
// @Param        client_id  query  int     false  "cliente"
// @Param        limit      query  int     false  "límite"
// @Param        offset     query  int     false  "offset"
// @Success      200   {object}  dto.SalesOrderListResponse
// @Router       /api/orders [get]
func (h *SalesOrderHandler) List(c *fiber.Ctx) error {
	var in dto.OrderListFilter
	if err := c.QueryParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "parámetros de consulta inválidos"})
	}
	out, err := h.uc.ListOrders(c.UserContext(), in)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(out)
}

// GetByID obtiene la cotización con partidas y capacidades del actor.
// GET /api/orders/:id
func (h *SalesOrderHandler) GetByID(c *fiber.Ctx) error {
	out, err := h.uc.GetOrder(c.UserContext(), actorFrom(c), c.Params("id"))
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(out)
}

// Update godoc
// @Summary      Editar cotización (parcial)
// @Tags         orders
// @Accept       json
// @Produce      json
// @Param        id    path  string                  true  "ID"
// @Param        body  body  dto.UpdateOrderRequest  true  "campos a cambiar"
// @Success      200   {object}  dto.SalesOrderResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/orders/{id} [patch]
func (h *SalesOrderHandler) Update(c *fiber.Ctx) error {
	var in dto.UpdateOrderRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	out, err := h.uc.UpdateOrder(c.UserContext(), actorFrom(c), c.Params("id"), in)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(out)
}

// Delete elimina una cotización en estatus borrable.
// DELETE /api/orders/:id
func (h *SalesOrderHandler) Delete(c *fiber.Ctx) error {
	if err := h.uc.DeleteOrder(c.UserContext(), actorFrom(c), c.Params("id")); err != nil {
		return writeError(c, h.log, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// Events bitácora de transiciones.
// GET /api/orders/:id/events
func (h *SalesOrderHandler) Events(c *fiber.Ctx) error {
	out, err := h.uc.ListEvents(c.UserContext(), c.Params("id"))
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(fiber.Map{"items": out})
}

// StaleCosts partidas cuyo costo de receta cambió desde que se congeló.
// GET /api/orders/:id/stale-costs
func (h *SalesOrderHandler) StaleCosts(c *fiber.Ctx) error {
	out, err := h.uc.CheckStaleCosts(c.UserContext(), c.Params("id"))
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(fiber.Map{"items": out})
}

// PDF descarga la cotización impresa.
// GET /api/orders/:id/pdf
func (h *SalesOrderHandler) PDF(c *fiber.Ctx) error {
	body, filename, err := h.uc.RenderPDF(c.UserContext(), c.Params("id"))
	if err != nil {
		return writeError(c, h.log, err)
	}
	c.Set(fiber.HeaderContentType, "application/pdf")
	c.Set(fiber.HeaderContentDisposition, "attachment; filename="+strconv.Quote(filename))
	return c.Send(body)
}

// Transition godoc
// @Summary      Ejecutar acción del ciclo de vida
// @Tags         orders
// @Produce      json
// @Param        id               path    string  true   "ID"
// @Param        action           path    string  true   "request-auth | authorize | reject | request-changes | mark-sold | mark-lost | re-edit | cancel"
// @Param        Idempotency-Key  header  string  false  "evita doble envío"
// @Success      200   {object}  dto.TransitionResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/orders/{id}/actions/{action} [post]
func (h *SalesOrderHandler) Transition(c *fiber.Ctx) error {
	action, err := sales.ParseAction(c.Params("action"))
	if err != nil {
		return writeError(c, h.log, err)
	}
	out, err := h.uc.Transition(c.UserContext(), actorFrom(c), c.Params("id"), action)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(out)
}
