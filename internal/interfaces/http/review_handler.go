package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/jhoicas/cotizaciones-api/internal/application/dto"
)

// Sesión de revisión del gerente. Rutas bajo /api/orders/:id/review.

// Review abre la sesión con la simulación inicial y los avisos de costo.
// GET /api/orders/:id/review
func (h *SalesOrderHandler) Review(c *fiber.Ctx) error {
	out, err := h.uc.OpenReview(c.UserContext(), actorFrom(c), c.Params("id"))
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(out)
}

// Simulate aplica ediciones de margen sin persistir.
// POST /api/orders/:id/review/simulate
func (h *SalesOrderHandler) Simulate(c *fiber.Ctx) error {
	var in dto.SimulateRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	out, err := h.uc.Simulate(c.UserContext(), c.Params("id"), in)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(out)
}

// SavePricing persiste los precios revisados sin cambiar de estatus.
// PUT /api/orders/:id/review/pricing
func (h *SalesOrderHandler) SavePricing(c *fiber.Ctx) error {
	var in dto.SimulateRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	out, err := h.uc.SavePricing(c.UserContext(), actorFrom(c), c.Params("id"), in)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(out)
}

// Authorize godoc
// @Summary      Guardar precios y autorizar (SENT → ACCEPTED)
// @Tags         review
// @Accept       json
// @Produce      json
// @Param        id               path    string               true   "ID"
// @Param        Idempotency-Key  header  string               false  "evita doble envío"
// @Param        body             body    dto.SimulateRequest  true   "ediciones de margen y comisión"
// @Success      200   {object}  dto.SalesOrderResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/orders/{id}/review/authorize [post]
func (h *SalesOrderHandler) Authorize(c *fiber.Ctx) error {
	var in dto.SimulateRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	out, err := h.uc.AuthorizeWithPricing(c.UserContext(), actorFrom(c), c.Params("id"), in)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(out)
}
