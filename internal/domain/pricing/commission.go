package pricing

import "github.com/shopspring/decimal"

// MaxCommissionPercent es el tope de comisión del vendedor.
var MaxCommissionPercent = decimal.NewFromInt(50)

// Totals es el resultado de componer margen, comisión e impuesto sobre las partidas, a centavos.
type Totals struct {
	TotalCost        decimal.Decimal // Σ costo·cant
	BaseSubtotal     decimal.Decimal // Σ importes base
	CommissionAmount decimal.Decimal // Subtotal − BaseSubtotal, ≈ BaseSubtotal × c/100
	Subtotal         decimal.Decimal // Σ importes finales
	TaxRate          decimal.Decimal // fracción, ej. 0.16
	TaxAmount        decimal.Decimal
	Total            decimal.Decimal
	NetUtility       decimal.Decimal // Subtotal − comisión − costo; informativo
	WeightedMargin   decimal.Decimal
}

// ValidCommission indica si c está en [0, MaxCommissionPercent].
func ValidCommission(c decimal.Decimal) bool {
	return !c.IsNegative() && c.LessThanOrEqual(MaxCommissionPercent)
}

// FinalUnitPrice aplica la comisión como multiplicador adicional sobre el precio base.
// La comisión nunca se mezcla con el margen: final/base = 1 + c/100 para toda partida.
func FinalUnitPrice(basePrice, commissionPercent decimal.Decimal) decimal.Decimal {
	return basePrice.Mul(one.Add(commissionPercent.Div(hundred)))
}

// InferTaxRate deduce la tasa de impuesto de una orden ya guardada a partir de
// tax_amount/subtotal. Si el subtotal es cero usa fallback.
// La razón se redondea a 4 decimales para no arrastrar el redondeo de centavos.
func InferTaxRate(subtotal, taxAmount, fallback decimal.Decimal) decimal.Decimal {
	if !subtotal.IsPositive() {
		return fallback
	}
	return taxAmount.Div(subtotal).Round(4)
}

// PricedLine es una partida llevada a centavos.
type PricedLine struct {
	BaseUnitPrice  decimal.Decimal // round2(precio base)
	FinalUnitPrice decimal.Decimal // round2(base × (1 + c/100))
	BaseAmount     decimal.Decimal // round2(base × cant)
	FinalAmount    decimal.Decimal // round2(final × cant), el importe impreso al cliente
}

// Quote fija los importes que se guardan y se imprimen.
//
// El precio base se redondea a centavos una sola vez y todo lo demás se deriva de ese
// valor, de modo que volver a cotizar precios ya redondeados devuelve exactamente lo mismo.
// El subtotal es Σ importes finales, así que los renglones del documento suman el subtotal;
// la comisión es la diferencia contra Σ importes base. El margen ponderado se calcula sobre
// los precios base redondeados.
func Quote(lines []Line, commissionPercent, taxRate decimal.Decimal) ([]PricedLine, Totals) {
	priced := make([]PricedLine, len(lines))
	rounded := make([]Line, len(lines))
	base, subtotal := decimal.Zero, decimal.Zero
	for i, l := range lines {
		b := RoundMoney(l.Price)
		final := RoundMoney(FinalUnitPrice(b, commissionPercent))
		priced[i] = PricedLine{
			BaseUnitPrice:  b,
			FinalUnitPrice: final,
			BaseAmount:     RoundMoney(b.Mul(l.Quantity)),
			FinalAmount:    RoundMoney(final.Mul(l.Quantity)),
		}
		rounded[i] = Line{Cost: l.Cost, Price: b, Quantity: l.Quantity}
		base = base.Add(priced[i].BaseAmount)
		subtotal = subtotal.Add(priced[i].FinalAmount)
	}
	cost := RoundMoney(TotalCost(lines))
	tax := RoundMoney(subtotal.Mul(taxRate))
	return priced, Totals{
		TotalCost:        cost,
		BaseSubtotal:     base,
		CommissionAmount: subtotal.Sub(base),
		Subtotal:         subtotal,
		TaxRate:          taxRate,
		TaxAmount:        tax,
		Total:            subtotal.Add(tax),
		NetUtility:       base.Sub(cost),
		WeightedMargin:   WeightedMargin(rounded).Round(2),
	}
}
