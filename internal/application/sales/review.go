package sales

import (
	"context"
	"errors"
	"fmt"

	"github.com/jhoicas/cotizaciones-api/internal/application/dto"
	"github.com/jhoicas/cotizaciones-api/internal/domain"
	"github.com/jhoicas/cotizaciones-api/internal/domain/entity"
	"github.com/jhoicas/cotizaciones-api/internal/domain/pricing"
	"github.com/jhoicas/cotizaciones-api/internal/domain/repository"
	"github.com/jhoicas/cotizaciones-api/internal/domain/workflow"
	"github.com/shopspring/decimal"
)

// OpenReview abre la sesión de revisión: márgenes por partida deducidos del precio base
// guardado, margen global ponderado, capacidades del actor y avisos de costo desactualizado.
func (uc *SalesUseCase) OpenReview(ctx context.Context, a Actor, id string) (resp *dto.ReviewResponse, err error) {
	ctx, span := uc.startSpan(ctx, "OpenReview", id)
	defer func() { endSpan(span, err) }()

	actor, err := resolveActor(a)
	if err != nil {
		return nil, err
	}
	o, err := uc.loadOrder(ctx, id)
	if err != nil {
		return nil, err
	}
	rec := pricing.NewMarginReconciler(o.PricingLines())
	taxRate := o.TaxRateValue(uc.settings.FallbackTaxRate)

	// Los avisos de costo son informativos: si la fuente de recetas falla, la sesión se abre igual.
	stale, staleErr := uc.staleCosts(ctx, o)
	if staleErr != nil {
		uc.log.Warn().Err(staleErr).Str("order_id", id).Msg("no se pudo verificar costos vigentes")
	}

	caps := o.Capabilities(actor)
	return &dto.ReviewResponse{
		Order:        toOrderResponse(o, &caps),
		Simulation:   toSimulation(o, rec, o.AppliedCommissionPercent, taxRate),
		Capabilities: caps,
		StaleCosts:   toStaleResponse(stale),
	}, nil
}

// Simulate aplica ediciones de margen y comisión sin persistir nada.
func (uc *SalesUseCase) Simulate(ctx context.Context, id string, in dto.SimulateRequest) (*dto.SimulationResponse, error) {
	o, err := uc.loadOrder(ctx, id)
	if err != nil {
		return nil, err
	}
	rec, commission, err := simulate(o, in)
	if err != nil {
		return nil, err
	}
	out := toSimulation(o, rec, commission, o.TaxRateValue(uc.settings.FallbackTaxRate))
	return &out, nil
}

// SavePricing persiste el resultado de una simulación.
func (uc *SalesUseCase) SavePricing(ctx context.Context, a Actor, id string, in dto.SimulateRequest) (resp *dto.SalesOrderResponse, err error) {
	ctx, span := uc.startSpan(ctx, "SavePricing", id)
	defer func() { endSpan(span, err) }()
	return uc.persistPricing(ctx, a, id, in, false)
}

// AuthorizeWithPricing persiste la simulación y autoriza (SENT → ACCEPTED) en una sola transacción.
// Un precio unitario en cero bloquea la autorización.
func (uc *SalesUseCase) AuthorizeWithPricing(ctx context.Context, a Actor, id string, in dto.SimulateRequest) (resp *dto.SalesOrderResponse, err error) {
	ctx, span := uc.startSpan(ctx, "AuthorizeWithPricing", id)
	defer func() { endSpan(span, err) }()
	return uc.persistPricing(ctx, a, id, in, true)
}

func (uc *SalesUseCase) persistPricing(ctx context.Context, a Actor, id string, in dto.SimulateRequest, authorize bool) (*dto.SalesOrderResponse, error) {
	actor, err := resolveActor(a)
	if err != nil {
		return nil, err
	}
	o, err := uc.loadOrder(ctx, id)
	if err != nil {
		return nil, err
	}
	// La transición se valida antes de tocar precios.
	if authorize {
		if _, err := workflow.Next(o.Status, workflow.ActionAuthorize, actor); err != nil {
			return nil, err
		}
	}
	if err := workflow.Require(o.Status, workflow.OpEditPricing, actor); err != nil {
		return nil, err
	}

	rec, commission, err := simulate(o, in)
	if err != nil {
		return nil, err
	}
	from := o.Status
	if err := o.ApplyPricing(rec.Lines(), commission, o.TaxRateValue(uc.settings.FallbackTaxRate)); err != nil {
		return nil, err
	}
	if err := o.Validate(); err != nil {
		return nil, err
	}

	var event *entity.OrderEvent
	switch {
	case authorize:
		if _, err := o.Transition(workflow.ActionAuthorize, actor); err != nil {
			return nil, err
		}
		event = uc.newEvent(o, string(workflow.ActionAuthorize), from, a)
	case workflow.RequiresReauthorization(from):
		if _, err := o.Transition(workflow.ActionReEdit, actor); err != nil {
			return nil, err
		}
		event = uc.newEvent(o, string(workflow.ActionReEdit), from, a)
	}
	o.UpdatedAt = uc.now()

	err = uc.tx.RunSales(ctx, func(orders repository.SalesOrderRepository, events repository.OrderEventRepository) error {
		if err := orders.Update(ctx, o); err != nil {
			return err
		}
		if event != nil {
			return events.Create(ctx, event)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("guardar precios: %w", err)
	}

	if event != nil {
		uc.logTransition(o, event.Action, from, a)
	}
	uc.log.Info().
		Str("order_id", o.ID).
		Str("actor", a.UserID).
		Str("margin", o.AppliedMarginPercent.String()).
		Str("commission", o.AppliedCommissionPercent.String()).
		Str("total", o.TotalPrice.String()).
		Bool("authorized", authorize).
		Msg("precios de revisión guardados")

	caps := o.Capabilities(actor)
	out := toOrderResponse(o, &caps)
	return &out, nil
}

// simulate reproduce, en orden, las ediciones del revisor sobre los precios guardados.
func simulate(o *entity.SalesOrder, in dto.SimulateRequest) (*pricing.MarginReconciler, decimal.Decimal, error) {
	rec := pricing.NewMarginReconciler(o.PricingLines())
	for i, e := range in.Edits {
		switch e.Scope {
		case dto.MarginScopeGlobal:
			rec.SetGlobalMargin(e.Margin)
		case dto.MarginScopeItem:
			if err := rec.SetItemMargin(e.Index, e.Margin); err != nil {
				if errors.Is(err, pricing.ErrLineOutOfRange) {
					return nil, decimal.Zero, domain.NewValidationError(fmt.Sprintf("edits[%d].index", i), "la partida no existe")
				}
				return nil, decimal.Zero, err
			}
		default:
			return nil, decimal.Zero, domain.NewValidationError(fmt.Sprintf("edits[%d].scope", i), "debe ser global o item")
		}
	}
	commission := o.AppliedCommissionPercent
	if in.CommissionPercent != nil {
		commission = pricing.NormalizePercent(*in.CommissionPercent)
	}
	if !pricing.ValidCommission(commission) {
		return nil, decimal.Zero, domain.NewValidationError("commission_percent",
			fmt.Sprintf("la comisión debe estar entre 0 y %s", pricing.MaxCommissionPercent))
	}
	return rec, commission, nil
}
