package entity

import (
	"fmt"
	"strings"
	"time"

	"github.com/jhoicas/cotizaciones-api/internal/domain"
	"github.com/jhoicas/cotizaciones-api/internal/domain/pricing"
	"github.com/jhoicas/cotizaciones-api/internal/domain/workflow"
	"github.com/shopspring/decimal"
)

// CurrencyMXN es la única moneda soportada.
const CurrencyMXN = "MXN"

// SalesOrderItem es una partida de la cotización.
// FrozenUnitCost se captura una sola vez; nunca se recalcula en silencio.
type SalesOrderItem struct {
	ID              string
	SalesOrderID    string
	Position        int
	ProductName     string
	OriginVersionID *int64
	Quantity        decimal.Decimal
	FrozenUnitCost  decimal.Decimal
	BaseUnitPrice   decimal.Decimal // costo + margen, sin comisión, a centavos
	UnitPrice       decimal.Decimal // precio final al cliente (con comisión), a centavos
	SubtotalPrice   decimal.Decimal // cantidad × precio base, antes de comisión
	CostSnapshot    CostSnapshot
}

// Amount es el importe del renglón tal como se imprime: precio final × cantidad.
func (i SalesOrderItem) Amount() decimal.Decimal {
	return pricing.RoundMoney(i.UnitPrice.Mul(i.Quantity))
}

// SameOrigin indica si la partida proviene de la misma versión de receta.
func (i SalesOrderItem) SameOrigin(versionID *int64) bool {
	if i.OriginVersionID == nil || versionID == nil {
		return i.OriginVersionID == nil && versionID == nil
	}
	return *i.OriginVersionID == *versionID
}

// SalesOrder es el agregado de cotización: encabezado, partidas con sus snapshots y estatus.
type SalesOrder struct {
	ID                       string
	ClientID                 int64
	UserID                   string
	Status                   workflow.Status
	ProjectName              string
	ValidUntil               *time.Time
	DeliveryDate             *time.Time
	TaxRateID                int64
	AppliedMarginPercent     decimal.Decimal // siempre el margen ponderado
	AppliedCommissionPercent decimal.Decimal
	AppliedTolerancePercent  decimal.Decimal
	CommissionAmount         decimal.Decimal
	Subtotal                 decimal.Decimal
	TaxAmount                decimal.Decimal
	TotalPrice               decimal.Decimal
	Currency                 string
	Notes                    string
	Conditions               string
	ExternalInvoiceRef       string
	IsWarranty               bool
	Items                    []SalesOrderItem
	CreatedAt                time.Time
	UpdatedAt                time.Time
}

// PricingLines devuelve la vista financiera de las partidas (precio base sin comisión).
func (o *SalesOrder) PricingLines() []pricing.Line {
	lines := make([]pricing.Line, len(o.Items))
	for i, it := range o.Items {
		lines[i] = pricing.Line{
			Cost:     it.FrozenUnitCost,
			Price:    it.BaseUnitPrice,
			Quantity: it.Quantity,
		}
	}
	return lines
}

// TaxRateValue deduce la tasa aplicada de los importes guardados.
func (o *SalesOrder) TaxRateValue(fallback decimal.Decimal) decimal.Decimal {
	return pricing.InferTaxRate(o.Subtotal, o.TaxAmount, fallback)
}

// ApplyPricing fija precios de partidas y totales del encabezado a partir de precios base,
// comisión y tasa de impuesto. lines debe corresponder 1:1 con Items.
// Aplicar de nuevo los precios guardados (PricingLines) no cambia ningún importe.
func (o *SalesOrder) ApplyPricing(lines []pricing.Line, commissionPercent, taxRate decimal.Decimal) error {
	if len(lines) != len(o.Items) {
		return fmt.Errorf("apply pricing: %d precios para %d partidas", len(lines), len(o.Items))
	}
	if !pricing.ValidCommission(commissionPercent) {
		return domain.NewValidationError("applied_commission_percent",
			fmt.Sprintf("la comisión debe estar entre 0 y %s", pricing.MaxCommissionPercent))
	}
	commissionPercent = commissionPercent.Round(2)
	priced, totals := pricing.Quote(lines, commissionPercent, taxRate)
	for i := range o.Items {
		it := &o.Items[i]
		it.BaseUnitPrice = priced[i].BaseUnitPrice
		it.UnitPrice = priced[i].FinalUnitPrice
		it.SubtotalPrice = priced[i].BaseAmount
	}

	o.AppliedCommissionPercent = commissionPercent
	o.AppliedMarginPercent = totals.WeightedMargin
	o.CommissionAmount = totals.CommissionAmount
	o.Subtotal = totals.Subtotal
	o.TaxAmount = totals.TaxAmount
	o.TotalPrice = totals.Total
	return nil
}

// Totals recompone el resumen financiero desde los importes guardados.
func (o *SalesOrder) Totals(fallbackTaxRate decimal.Decimal) pricing.Totals {
	_, t := pricing.Quote(o.PricingLines(), o.AppliedCommissionPercent, o.TaxRateValue(fallbackTaxRate))
	t.CommissionAmount = o.CommissionAmount
	t.Subtotal = o.Subtotal
	t.TaxAmount = o.TaxAmount
	t.Total = o.TotalPrice
	t.NetUtility = o.Subtotal.Sub(o.CommissionAmount).Sub(t.TotalCost)
	return t
}

// Validate revisa los datos de captura que bloquean el guardado.
func (o *SalesOrder) Validate() error {
	verr := &domain.ValidationError{}
	if o.ClientID <= 0 {
		verr.Add("client_id", "el cliente es obligatorio")
	}
	if o.TaxRateID <= 0 {
		verr.Add("tax_rate_id", "la tasa de impuesto es obligatoria")
	}
	if strings.TrimSpace(o.ProjectName) == "" {
		verr.Add("project_name", "el nombre del proyecto es obligatorio")
	}
	if len(o.Items) == 0 {
		verr.Add("items", "la cotización requiere al menos una partida")
	}
	for i, it := range o.Items {
		if strings.TrimSpace(it.ProductName) == "" {
			verr.Add(fmt.Sprintf("items[%d].product_name", i), "el nombre del producto es obligatorio")
		}
		if !it.Quantity.IsPositive() {
			verr.Add(fmt.Sprintf("items[%d].quantity", i), "la cantidad debe ser mayor a cero")
		}
		if it.FrozenUnitCost.IsNegative() {
			verr.Add(fmt.Sprintf("items[%d].frozen_unit_cost", i), "el costo no puede ser negativo")
		}
		if !it.UnitPrice.IsPositive() {
			verr.Add(fmt.Sprintf("items[%d].unit_price", i), "el precio unitario no puede ser cero")
		}
	}
	return verr.OrNil()
}

// Transition aplica action por actor y devuelve el estatus anterior.
func (o *SalesOrder) Transition(action workflow.Action, actor workflow.Actor) (workflow.Status, error) {
	from := o.Status
	to, err := workflow.Next(from, action, actor)
	if err != nil {
		return from, err
	}
	o.Status = to
	return from, nil
}

// Capabilities resume qué puede hacer actor sobre la orden.
func (o *SalesOrder) Capabilities(actor workflow.Actor) workflow.Capabilities {
	return workflow.CapabilitiesFor(o.Status, actor)
}

// Renumber asigna posiciones consecutivas a las partidas.
func (o *SalesOrder) Renumber() {
	for i := range o.Items {
		o.Items[i].Position = i + 1
		o.Items[i].SalesOrderID = o.ID
	}
}

// FindItem busca una partida por ID.
func (o *SalesOrder) FindItem(id string) (SalesOrderItem, bool) {
	for _, it := range o.Items {
		if it.ID == id {
			return it, true
		}
	}
	return SalesOrderItem{}, false
}
