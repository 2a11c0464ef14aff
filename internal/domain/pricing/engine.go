// Package pricing contiene el motor financiero de cotizaciones: precio a partir de margen,
// margen implícito, margen ponderado, comisión e impuestos.
//
// Todas las funciones son puras (sin I/O) y operan con shopspring/decimal sin redondear;
// el redondeo a centavos ocurre solo en Quote, que fija los importes guardados.
package pricing

import "github.com/shopspring/decimal"

var (
	one     = decimal.NewFromInt(1)
	hundred = decimal.NewFromInt(100)

	// SentinelMargin es el margen reportado cuando el costo congelado es cero.
	// Es política explícita: nunca se divide entre cero ni se devuelve error.
	SentinelMargin = decimal.NewFromInt(40)
)

// Line es la vista financiera de una partida: costo unitario congelado,
// precio base unitario (costo + margen, sin comisión) y cantidad.
type Line struct {
	Cost     decimal.Decimal
	Price    decimal.Decimal
	Quantity decimal.Decimal
}

// PriceFromMargin devuelve costo × (1 + margen/100).
// Acepta márgenes negativos o cero; un margen negativo es advertencia, no error.
func PriceFromMargin(cost, marginPercent decimal.Decimal) decimal.Decimal {
	return cost.Mul(one.Add(marginPercent.Div(hundred)))
}

// ImpliedMargin devuelve ((precio/costo) − 1) × 100, o SentinelMargin si costo == 0.
func ImpliedMargin(cost, price decimal.Decimal) decimal.Decimal {
	if cost.IsZero() {
		return SentinelMargin
	}
	return price.Div(cost).Sub(one).Mul(hundred)
}

// WeightedMargin calcula el margen ponderado de la orden:
// ((Σ precio·cant − Σ costo·cant) / Σ costo·cant) × 100.
// No es el promedio simple de márgenes: la partida económicamente mayor domina.
// Si el costo total es cero devuelve 0.
func WeightedMargin(lines []Line) decimal.Decimal {
	totalCost := TotalCost(lines)
	if totalCost.IsZero() {
		return decimal.Zero
	}
	return BaseSubtotal(lines).Sub(totalCost).Div(totalCost).Mul(hundred)
}

// TotalCost devuelve Σ costo·cantidad.
func TotalCost(lines []Line) decimal.Decimal {
	total := decimal.Zero
	for _, l := range lines {
		total = total.Add(l.Cost.Mul(l.Quantity))
	}
	return total
}

// BaseSubtotal devuelve Σ precio base·cantidad (antes de comisión).
func BaseSubtotal(lines []Line) decimal.Decimal {
	total := decimal.Zero
	for _, l := range lines {
		total = total.Add(l.Price.Mul(l.Quantity))
	}
	return total
}

// IsNegativeMargin indica la condición de advertencia visual (venta bajo costo).
func IsNegativeMargin(marginPercent decimal.Decimal) bool {
	return marginPercent.IsNegative()
}

// NormalizePercent convierte tasas capturadas como fracción (0.05) a porcentaje (5).
// Valores fuera de (0, 1) se devuelven sin cambio.
func NormalizePercent(p decimal.Decimal) decimal.Decimal {
	if p.IsPositive() && p.LessThan(one) {
		return p.Mul(hundred)
	}
	return p
}

// RoundMoney redondea a centavos.
func RoundMoney(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}
