package pricing

import (
	"errors"

	"github.com/shopspring/decimal"
)

// ErrLineOutOfRange se devuelve al editar una partida inexistente.
var ErrLineOutOfRange = errors.New("pricing: índice de partida fuera de rango")

type reconLine struct {
	cost     decimal.Decimal
	quantity decimal.Decimal
	margin   decimal.Decimal
	price    decimal.Decimal
	// pinned: costo congelado cero. El precio capturado se conserva y el margen
	// mostrado es SentinelMargin; ninguna edición de margen lo modifica.
	pinned bool
}

// MarginReconciler mantiene sincronizados el margen global y los márgenes por partida.
//
// Los márgenes por partida son la única fuente de verdad; el margen global no se
// almacena, siempre se deriva con WeightedMargin. Una edición global se degrada a
// escribir el mismo margen en todas las partidas.
type MarginReconciler struct {
	lines []reconLine
}

// NewMarginReconciler arranca desde las partidas guardadas: el margen de cada una es el
// implícito entre su costo congelado y su precio base.
func NewMarginReconciler(lines []Line) *MarginReconciler {
	r := &MarginReconciler{lines: make([]reconLine, len(lines))}
	for i, l := range lines {
		r.lines[i] = reconLine{
			cost:     l.Cost,
			quantity: l.Quantity,
			margin:   ImpliedMargin(l.Cost, l.Price),
			price:    l.Price,
			pinned:   l.Cost.IsZero(),
		}
	}
	return r
}

// Len devuelve el número de partidas.
func (r *MarginReconciler) Len() int { return len(r.lines) }

// SetGlobalMargin sobrescribe el margen de todas las partidas y recalcula cada precio
// desde su propio costo. Descarta a propósito los ajustes individuales previos.
func (r *MarginReconciler) SetGlobalMargin(m decimal.Decimal) {
	for i := range r.lines {
		r.setLine(i, m)
	}
}

// SetItemMargin cambia solo la partida i; las demás conservan margen y precio.
func (r *MarginReconciler) SetItemMargin(i int, m decimal.Decimal) error {
	if i < 0 || i >= len(r.lines) {
		return ErrLineOutOfRange
	}
	r.setLine(i, m)
	return nil
}

func (r *MarginReconciler) setLine(i int, m decimal.Decimal) {
	l := &r.lines[i]
	if l.pinned {
		return
	}
	l.margin = m
	l.price = PriceFromMargin(l.cost, m)
}

// GlobalMargin es siempre el margen ponderado de las partidas actuales.
func (r *MarginReconciler) GlobalMargin() decimal.Decimal {
	return WeightedMargin(r.Lines())
}

// Margins devuelve una copia de los márgenes por partida.
func (r *MarginReconciler) Margins() []decimal.Decimal {
	out := make([]decimal.Decimal, len(r.lines))
	for i, l := range r.lines {
		out[i] = l.margin
	}
	return out
}

// Lines devuelve las partidas con su precio base actual.
func (r *MarginReconciler) Lines() []Line {
	out := make([]Line, len(r.lines))
	for i, l := range r.lines {
		out[i] = Line{Cost: l.cost, Price: l.price, Quantity: l.quantity}
	}
	return out
}

// Pinned indica si la partida i conserva su precio capturado (costo cero).
func (r *MarginReconciler) Pinned(i int) bool {
	return i >= 0 && i < len(r.lines) && r.lines[i].pinned
}
