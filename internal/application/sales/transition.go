package sales

import (
	"context"
	"fmt"

	"github.com/jhoicas/cotizaciones-api/internal/application/dto"
	"github.com/jhoicas/cotizaciones-api/internal/domain"
	"github.com/jhoicas/cotizaciones-api/internal/domain/repository"
	"github.com/jhoicas/cotizaciones-api/internal/domain/workflow"
	"go.opentelemetry.io/otel/attribute"
)

// ParseAction valida el nombre de la acción recibida por HTTP.
func ParseAction(s string) (workflow.Action, error) {
	for _, a := range workflow.Actions {
		if string(a) == s {
			return a, nil
		}
	}
	return "", domain.NewValidationError("action", fmt.Sprintf("acción desconocida: %q", s))
}

// Transition ejecuta una acción del ciclo de vida. Nunca se aplica de forma optimista:
// si la tabla de transiciones la rechaza, la orden no cambia.
func (uc *SalesUseCase) Transition(ctx context.Context, a Actor, id string, action workflow.Action) (resp *dto.TransitionResponse, err error) {
	ctx, span := uc.startSpan(ctx, "Transition", id)
	span.SetAttributes(attribute.String("order.action", string(action)))
	defer func() { endSpan(span, err) }()

	actor, err := resolveActor(a)
	if err != nil {
		return nil, err
	}
	o, err := uc.loadOrder(ctx, id)
	if err != nil {
		return nil, err
	}
	from, err := o.Transition(action, actor)
	if err != nil {
		uc.log.Warn().
			Str("order_id", id).
			Str("status", string(from)).
			Str("action", string(action)).
			Str("role", a.Role).
			Msg("transición rechazada")
		return nil, err
	}
	// Enviar o autorizar exige una orden completa y con precios.
	if action == workflow.ActionRequestAuth || action == workflow.ActionAuthorize {
		if err := o.Validate(); err != nil {
			return nil, err
		}
	}
	o.UpdatedAt = uc.now()
	event := uc.newEvent(o, string(action), from, a)

	err = uc.tx.RunSales(ctx, func(orders repository.SalesOrderRepository, events repository.OrderEventRepository) error {
		if err := orders.UpdateStatus(ctx, o.ID, o.Status); err != nil {
			return err
		}
		return events.Create(ctx, event)
	})
	if err != nil {
		if !isValidation(err) {
			uc.log.Error().Err(err).Str("order_id", id).Str("action", string(action)).Msg("persistir transición")
		}
		return nil, fmt.Errorf("transición %s: %w", action, err)
	}
	uc.logTransition(o, string(action), from, a)

	caps := o.Capabilities(actor)
	return &dto.TransitionResponse{
		From:  string(from),
		To:    string(o.Status),
		Order: toOrderResponse(o, &caps),
	}, nil
}
