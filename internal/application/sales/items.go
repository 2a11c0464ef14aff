package sales

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jhoicas/cotizaciones-api/internal/application/dto"
	"github.com/jhoicas/cotizaciones-api/internal/domain"
	"github.com/jhoicas/cotizaciones-api/internal/domain/entity"
	"github.com/jhoicas/cotizaciones-api/internal/domain/pricing"
	"github.com/shopspring/decimal"
)

func newID() string { return uuid.New().String() }

// buildItems arma las partidas a partir de la captura.
//
// prev es la orden guardada (nil al crear). Una partida cuyo id coincide con una existente
// de la misma versión de receta conserva costo congelado y snapshot; cualquier otra partida
// de receta se congela de nuevo con el costo vigente. Devuelve también los precios base.
func (uc *SalesUseCase) buildItems(
	ctx context.Context,
	reqs []dto.OrderItemRequest,
	prev *entity.SalesOrder,
	defaultMargin decimal.Decimal,
) ([]entity.SalesOrderItem, []pricing.Line, error) {
	items := make([]entity.SalesOrderItem, 0, len(reqs))
	lines := make([]pricing.Line, 0, len(reqs))
	verr := &domain.ValidationError{}
	costs := map[int64]*entity.VersionCost{}
	now := uc.now()

	for i, r := range reqs {
		item := entity.SalesOrderItem{
			ID:              newID(),
			ProductName:     strings.TrimSpace(r.ProductName),
			OriginVersionID: r.OriginVersionID,
			Quantity:        r.Quantity,
		}

		var kept *entity.SalesOrderItem
		if prev != nil && r.ID != "" {
			if old, ok := prev.FindItem(r.ID); ok && old.SameOrigin(r.OriginVersionID) {
				kept = &old
				item.ID = old.ID
			}
		}

		switch {
		case kept != nil && (kept.OriginVersionID != nil || r.FrozenUnitCost == nil):
			item.FrozenUnitCost = kept.FrozenUnitCost
			item.CostSnapshot = kept.CostSnapshot
		case r.OriginVersionID != nil:
			vc, ok := costs[*r.OriginVersionID]
			if !ok {
				var err error
				vc, err = uc.recipes.GetVersionCost(ctx, *r.OriginVersionID)
				if err != nil {
					return nil, nil, fmt.Errorf("costo de versión %d: %w", *r.OriginVersionID, err)
				}
				costs[*r.OriginVersionID] = vc
			}
			if vc == nil {
				verr.Add(fmt.Sprintf("items[%d].origin_version_id", i), "la versión de receta no existe")
				continue
			}
			item.FrozenUnitCost = vc.UnitCost
			item.CostSnapshot = vc.Snapshot(now)
		default:
			if r.FrozenUnitCost != nil {
				item.FrozenUnitCost = *r.FrozenUnitCost
			}
			switch {
			case r.CostSnapshot != nil:
				item.CostSnapshot = *r.CostSnapshot
			case kept != nil:
				item.CostSnapshot = kept.CostSnapshot
			default:
				item.CostSnapshot = entity.NewManualSnapshot("", nil)
			}
		}

		var base decimal.Decimal
		switch {
		case r.MarginPercent != nil:
			base = pricing.PriceFromMargin(item.FrozenUnitCost, *r.MarginPercent)
		case r.BaseUnitPrice != nil && r.BaseUnitPrice.IsPositive():
			base = *r.BaseUnitPrice
		case kept != nil:
			base = kept.BaseUnitPrice
		default:
			base = pricing.PriceFromMargin(item.FrozenUnitCost, defaultMargin)
		}

		items = append(items, item)
		lines = append(lines, pricing.Line{Cost: item.FrozenUnitCost, Price: base, Quantity: item.Quantity})
	}
	if err := verr.OrNil(); err != nil {
		return nil, nil, err
	}
	return items, lines, nil
}
