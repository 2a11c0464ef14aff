package http

import (
	"context"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/jhoicas/cotizaciones-api/internal/application/dto"
	"github.com/jhoicas/cotizaciones-api/internal/domain"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

// AccessLog registra una línea por petición.
func AccessLog(log zerolog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()
		status := c.Response().StatusCode()
		ev := log.Info()
		if status >= fiber.StatusInternalServerError {
			ev = log.Error()
		}
		ev.Str("method", c.Method()).
			Str("path", c.Path()).
			Int("status", status).
			Dur("latency", time.Since(start)).
			Str("request_id", c.GetRespHeader(fiber.HeaderXRequestID)).
			Str("user_id", GetUserID(c)).
			Msg("http")
		return err
	}
}

// Tracing abre un span por petición y lo deja en c.UserContext() para los casos de uso.
func Tracing(tracer trace.Tracer) fiber.Handler {
	return func(c *fiber.Ctx) error {
		hdr := http.Header{}
		for k, v := range c.GetReqHeaders() {
			hdr[k] = v
		}
		ctx := otel.GetTextMapPropagator().Extract(c.UserContext(), propagation.HeaderCarrier(hdr))
		ctx, span := tracer.Start(ctx, c.Method()+" "+c.Path(), trace.WithSpanKind(trace.SpanKindServer))
		defer span.End()
		c.SetUserContext(ctx)

		err := c.Next()
		status := c.Response().StatusCode()
		span.SetAttributes(
			attribute.String("http.method", c.Method()),
			attribute.String("http.route", c.Route().Path),
			attribute.Int("http.status_code", status),
		)
		if status >= fiber.StatusInternalServerError {
			span.SetStatus(codes.Error, http.StatusText(status))
		}
		return err
	}
}

// IdempotencyStore reserva llaves Idempotency-Key.
type IdempotencyStore interface {
	Claim(ctx context.Context, key string) (bool, error)
	Release(ctx context.Context, key string) error
}

// Idempotency rechaza con 409 DUPLICATE_SUBMISSION un segundo envío con el mismo
// Idempotency-Key. Sin header o sin store la petición pasa tal cual.
// Si la operación falla la llave se libera para permitir el reintento.
func Idempotency(store IdempotencyStore, log zerolog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		clientKey := c.Get("Idempotency-Key")
		if store == nil || clientKey == "" {
			return c.Next()
		}
		key := GetUserID(c) + ":" + c.Method() + ":" + c.Path() + ":" + clientKey
		ctx := c.UserContext()

		ok, err := store.Claim(ctx, key)
		if err != nil {
			return writeError(c, log, err)
		}
		if !ok {
			return c.Status(fiber.StatusConflict).JSON(dto.ErrorResponse{
				Code: "DUPLICATE_SUBMISSION", Message: "esta operación ya fue enviada",
			})
		}

		err = c.Next()
		if err != nil || c.Response().StatusCode() >= fiber.StatusBadRequest {
			if rerr := store.Release(ctx, key); rerr != nil {
				log.Warn().Err(rerr).Str("key", clientKey).Msg("no se pudo liberar la llave de idempotencia")
			}
		}
		return err
	}
}

// healthDeps verificación de dependencias para /health.
type healthDeps interface {
	Ping(ctx context.Context) error
}

// Health 200 si la base responde, 503 si no.
func Health(service string, db healthDeps) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if db != nil {
			if err := db.Ping(c.UserContext()); err != nil {
				return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
					"status": "degraded", "service": service, "error": domain.ErrUnavailable.Error(),
				})
			}
		}
		return c.JSON(fiber.Map{"status": "ok", "service": service})
	}
}
