package sales

import (
	"context"
	"fmt"

	"github.com/jhoicas/cotizaciones-api/internal/application/dto"
	"github.com/jhoicas/cotizaciones-api/internal/domain/entity"
)

// CheckStaleCosts compara el costo congelado de cada partida de receta con el costo vigente.
// Nunca modifica la orden.
func (uc *SalesUseCase) CheckStaleCosts(ctx context.Context, id string) ([]dto.StaleCostResponse, error) {
	o, err := uc.loadOrder(ctx, id)
	if err != nil {
		return nil, err
	}
	ws, err := uc.staleCosts(ctx, o)
	if err != nil {
		return nil, err
	}
	return toStaleResponse(ws), nil
}

func (uc *SalesUseCase) staleCosts(ctx context.Context, o *entity.SalesOrder) ([]entity.StaleCostWarning, error) {
	var out []entity.StaleCostWarning
	seen := map[int64]*entity.VersionCost{}
	for _, it := range o.Items {
		if it.OriginVersionID == nil {
			continue
		}
		vid := *it.OriginVersionID
		vc, ok := seen[vid]
		if !ok {
			var err error
			if vc, err = uc.recipes.GetVersionCost(ctx, vid); err != nil {
				return nil, fmt.Errorf("costo vigente de versión %d: %w", vid, err)
			}
			seen[vid] = vc
		}
		if vc == nil || vc.UnitCost.Round(4).Equal(it.FrozenUnitCost.Round(4)) {
			continue
		}
		out = append(out, entity.StaleCostWarning{
			ItemID:          it.ID,
			Position:        it.Position,
			ProductName:     it.ProductName,
			OriginVersionID: vid,
			FrozenUnitCost:  it.FrozenUnitCost,
			CurrentUnitCost: vc.UnitCost,
		})
	}
	if len(out) > 0 {
		uc.log.Info().Str("order_id", o.ID).Int("stale_items", len(out)).Msg("costos congelados desactualizados")
	}
	return out, nil
}
