// Package sales implementa los casos de uso de cotizaciones: captura, revisión de
// márgenes, autorización y ciclo de vida de la orden de venta.
package sales

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jhoicas/cotizaciones-api/internal/domain"
	"github.com/jhoicas/cotizaciones-api/internal/domain/entity"
	"github.com/jhoicas/cotizaciones-api/internal/domain/repository"
	"github.com/jhoicas/cotizaciones-api/internal/domain/workflow"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Deps dependencias del caso de uso.
type Deps struct {
	Orders   repository.SalesOrderRepository
	Events   repository.OrderEventRepository
	Users    repository.UserRepository
	Clients  repository.ClientRepository
	TaxRates repository.TaxRateRepository
	Config   repository.ConfigRepository
	Recipes  repository.RecipeRepository
	Tx       SalesTxRunner
	PDF      QuotePDFGenerator
	Settings Settings
	Logger   zerolog.Logger
	// Now permite fijar el reloj en pruebas; nil usa time.Now.
	Now func() time.Time
}

// SalesUseCase casos de uso de cotizaciones.
type SalesUseCase struct {
	orders   repository.SalesOrderRepository
	events   repository.OrderEventRepository
	users    repository.UserRepository
	clients  repository.ClientRepository
	taxRates repository.TaxRateRepository
	config   repository.ConfigRepository
	recipes  repository.RecipeRepository
	tx       SalesTxRunner
	pdf      QuotePDFGenerator
	settings Settings
	log      zerolog.Logger
	tracer   trace.Tracer
	now      func() time.Time
}

// NewSalesUseCase construye el caso de uso inyectando todas sus dependencias.
func NewSalesUseCase(d Deps) *SalesUseCase {
	now := d.Now
	if now == nil {
		now = time.Now
	}
	return &SalesUseCase{
		orders:   d.Orders,
		events:   d.Events,
		users:    d.Users,
		clients:  d.Clients,
		taxRates: d.TaxRates,
		config:   d.Config,
		recipes:  d.Recipes,
		tx:       d.Tx,
		pdf:      d.PDF,
		settings: d.Settings,
		log:      d.Logger.With().Str("component", "sales").Logger(),
		tracer:   otel.Tracer("cotizaciones-api/sales"),
		now:      now,
	}
}

func (uc *SalesUseCase) startSpan(ctx context.Context, name, orderID string) (context.Context, trace.Span) {
	ctx, span := uc.tracer.Start(ctx, "sales."+name)
	if orderID != "" {
		span.SetAttributes(attribute.String("order.id", orderID))
	}
	return ctx, span
}

// endSpan registra err en el span, si lo hay, y lo cierra.
func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

func resolveActor(a Actor) (workflow.Actor, error) {
	actor, ok := entity.ActorForRole(a.Role)
	if !ok {
		return "", domain.ErrForbidden
	}
	return actor, nil
}

// loadOrder obtiene la orden o ErrNotFound.
func (uc *SalesUseCase) loadOrder(ctx context.Context, id string) (*entity.SalesOrder, error) {
	o, err := uc.orders.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("obtener orden: %w", err)
	}
	if o == nil {
		return nil, domain.ErrNotFound
	}
	return o, nil
}

// newEvent arma la entrada de bitácora de una transición.
func (uc *SalesUseCase) newEvent(o *entity.SalesOrder, action string, from workflow.Status, a Actor) *entity.OrderEvent {
	return &entity.OrderEvent{
		ID:           newID(),
		SalesOrderID: o.ID,
		Action:       action,
		FromStatus:   string(from),
		ToStatus:     string(o.Status),
		ActorID:      a.UserID,
		ActorRole:    a.Role,
		CreatedAt:    uc.now(),
	}
}

func (uc *SalesUseCase) logTransition(o *entity.SalesOrder, action string, from workflow.Status, a Actor) {
	uc.log.Info().
		Str("order_id", o.ID).
		Str("from", string(from)).
		Str("to", string(o.Status)).
		Str("action", action).
		Str("actor", a.UserID).
		Str("role", a.Role).
		Msg("transición de orden")
}

// isValidation indica si err es un error de captura (no se registra como falla del servicio).
func isValidation(err error) bool {
	return errors.Is(err, domain.ErrInvalidInput) || errors.Is(err, domain.ErrInvalidTransition)
}
