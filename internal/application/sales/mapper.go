package sales

import (
	"github.com/jhoicas/cotizaciones-api/internal/application/dto"
	"github.com/jhoicas/cotizaciones-api/internal/domain/entity"
	"github.com/jhoicas/cotizaciones-api/internal/domain/pricing"
	"github.com/jhoicas/cotizaciones-api/internal/domain/workflow"
	"github.com/shopspring/decimal"
)

func toOrderResponse(o *entity.SalesOrder, caps *workflow.Capabilities) dto.SalesOrderResponse {
	items := make([]dto.OrderItemResponse, 0, len(o.Items))
	for _, it := range o.Items {
		margin := pricing.ImpliedMargin(it.FrozenUnitCost, it.BaseUnitPrice)
		items = append(items, dto.OrderItemResponse{
			ID:              it.ID,
			Position:        it.Position,
			ProductName:     it.ProductName,
			OriginVersionID: it.OriginVersionID,
			Quantity:        it.Quantity,
			FrozenUnitCost:  it.FrozenUnitCost,
			BaseUnitPrice:   it.BaseUnitPrice,
			UnitPrice:       it.UnitPrice,
			SubtotalPrice:   it.SubtotalPrice,
			MarginPercent:   margin.Round(2),
			NegativeMargin:  pricing.IsNegativeMargin(margin),
			CostSnapshot:    it.CostSnapshot,
		})
	}
	return dto.SalesOrderResponse{
		ID:                       o.ID,
		ClientID:                 o.ClientID,
		UserID:                   o.UserID,
		Status:                   string(o.Status),
		ProjectName:              o.ProjectName,
		ValidUntil:               o.ValidUntil,
		DeliveryDate:             o.DeliveryDate,
		TaxRateID:                o.TaxRateID,
		AppliedMarginPercent:     o.AppliedMarginPercent,
		AppliedCommissionPercent: o.AppliedCommissionPercent,
		AppliedTolerancePercent:  o.AppliedTolerancePercent,
		CommissionAmount:         o.CommissionAmount,
		Subtotal:                 o.Subtotal,
		TaxAmount:                o.TaxAmount,
		TotalPrice:               o.TotalPrice,
		Currency:                 o.Currency,
		Notes:                    o.Notes,
		Conditions:               o.Conditions,
		ExternalInvoiceRef:       o.ExternalInvoiceRef,
		IsWarranty:               o.IsWarranty,
		Items:                    items,
		Capabilities:             caps,
		CreatedAt:                o.CreatedAt,
		UpdatedAt:                o.UpdatedAt,
	}
}

func toSummary(o *entity.SalesOrder) dto.SalesOrderSummary {
	return dto.SalesOrderSummary{
		ID:                   o.ID,
		ClientID:             o.ClientID,
		ProjectName:          o.ProjectName,
		Status:               string(o.Status),
		AppliedMarginPercent: o.AppliedMarginPercent,
		TotalPrice:           o.TotalPrice,
		CreatedAt:            o.CreatedAt,
	}
}

func toPricingSummary(t pricing.Totals) dto.PricingSummary {
	return dto.PricingSummary{
		TotalCost:        t.TotalCost,
		BaseSubtotal:     t.BaseSubtotal,
		CommissionAmount: t.CommissionAmount,
		Subtotal:         t.Subtotal,
		TaxRate:          t.TaxRate,
		TaxAmount:        t.TaxAmount,
		Total:            t.Total,
		NetUtility:       t.NetUtility,
		WeightedMargin:   t.WeightedMargin,
	}
}

// toSimulation presenta el estado del reconciliador con los mismos importes que se
// guardarían; los márgenes por partida del reconciliador no se redondean.
func toSimulation(o *entity.SalesOrder, rec *pricing.MarginReconciler, commission, taxRate decimal.Decimal) dto.SimulationResponse {
	lines := rec.Lines()
	margins := rec.Margins()
	priced, totals := pricing.Quote(lines, commission.Round(2), taxRate)
	items := make([]dto.ReviewItem, len(lines))
	for i, l := range lines {
		items[i] = dto.ReviewItem{
			Index:          i,
			ItemID:         o.Items[i].ID,
			ProductName:    o.Items[i].ProductName,
			Quantity:       l.Quantity,
			FrozenUnitCost: l.Cost,
			MarginPercent:  margins[i].Round(2),
			BaseUnitPrice:  priced[i].BaseUnitPrice,
			FinalUnitPrice: priced[i].FinalUnitPrice,
			Subtotal:       priced[i].BaseAmount,
			NegativeMargin: pricing.IsNegativeMargin(margins[i]),
			PinnedPrice:    rec.Pinned(i),
		}
	}
	return dto.SimulationResponse{
		GlobalMargin:      totals.WeightedMargin,
		CommissionPercent: commission,
		Items:             items,
		Totals:            toPricingSummary(totals),
	}
}

func toStaleResponse(ws []entity.StaleCostWarning) []dto.StaleCostResponse {
	out := make([]dto.StaleCostResponse, 0, len(ws))
	for _, w := range ws {
		out = append(out, dto.StaleCostResponse{
			ItemID:          w.ItemID,
			Position:        w.Position,
			ProductName:     w.ProductName,
			OriginVersionID: w.OriginVersionID,
			FrozenUnitCost:  w.FrozenUnitCost,
			CurrentUnitCost: w.CurrentUnitCost,
			Delta:           w.Delta(),
		})
	}
	return out
}

func toEventResponse(e *entity.OrderEvent) dto.OrderEventResponse {
	return dto.OrderEventResponse{
		ID:         e.ID,
		Action:     e.Action,
		FromStatus: e.FromStatus,
		ToStatus:   e.ToStatus,
		ActorID:    e.ActorID,
		ActorRole:  e.ActorRole,
		CreatedAt:  e.CreatedAt,
	}
}
