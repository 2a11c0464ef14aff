package entity

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// Tipos de snapshot.
const (
	SnapshotRecipe = "RECIPE"
	SnapshotManual = "MANUAL_ENTRY"
)

// Ingredient es una línea del desglose de costo congelado.
type Ingredient struct {
	SKU            string          `json:"sku,omitempty"`
	Name           string          `json:"name"`
	QtyRecipe      decimal.Decimal `json:"qty_recipe"`
	FrozenUnitCost decimal.Decimal `json:"frozen_unit_cost"`
	LineTotal      decimal.Decimal `json:"line_total"`
}

// CostSnapshot es el registro congelado del costo de una partida (valor inmutable).
// Pertenece a una sola partida; no tiene referencia hacia ella.
type CostSnapshot struct {
	kind          string
	sourceVersion string
	capturedAt    time.Time
	note          string
	ingredients   []Ingredient
}

// NewRecipeSnapshot congela el desglose de una receta. Copia ingredients.
func NewRecipeSnapshot(sourceVersion string, capturedAt time.Time, ingredients []Ingredient) CostSnapshot {
	return CostSnapshot{
		kind:          SnapshotRecipe,
		sourceVersion: sourceVersion,
		capturedAt:    capturedAt.UTC(),
		ingredients:   append([]Ingredient(nil), ingredients...),
	}
}

// NewManualSnapshot registra un costo capturado a mano.
func NewManualSnapshot(note string, ingredients []Ingredient) CostSnapshot {
	return CostSnapshot{
		kind:        SnapshotManual,
		note:        note,
		ingredients: append([]Ingredient(nil), ingredients...),
	}
}

func (s CostSnapshot) Kind() string {
	if s.kind == "" {
		return SnapshotManual
	}
	return s.kind
}

func (s CostSnapshot) SourceVersion() string { return s.sourceVersion }
func (s CostSnapshot) CapturedAt() time.Time { return s.capturedAt }
func (s CostSnapshot) Note() string          { return s.note }

// Ingredients devuelve una copia del desglose.
func (s CostSnapshot) Ingredients() []Ingredient {
	return append([]Ingredient(nil), s.ingredients...)
}

// UnitCost es Σ line_total del desglose.
func (s CostSnapshot) UnitCost() decimal.Decimal {
	total := decimal.Zero
	for _, ing := range s.ingredients {
		total = total.Add(ing.LineTotal)
	}
	return total
}

type snapshotJSON struct {
	Type          string       `json:"type"`
	SourceVersion string       `json:"source_version,omitempty"`
	CapturedAt    *time.Time   `json:"captured_at,omitempty"`
	Note          string       `json:"note,omitempty"`
	Ingredients   []Ingredient `json:"ingredients"`
}

// MarshalJSON serializa al formato de la columna cost_snapshot (JSONB).
func (s CostSnapshot) MarshalJSON() ([]byte, error) {
	out := snapshotJSON{
		Type:          s.Kind(),
		SourceVersion: s.sourceVersion,
		Note:          s.note,
		Ingredients:   s.ingredients,
	}
	if out.Ingredients == nil {
		out.Ingredients = []Ingredient{}
	}
	if !s.capturedAt.IsZero() {
		t := s.capturedAt
		out.CapturedAt = &t
	}
	return json.Marshal(out)
}

// UnmarshalJSON solo se usa al rehidratar desde la base o al recibir un snapshot manual.
func (s *CostSnapshot) UnmarshalJSON(data []byte) error {
	var in snapshotJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	*s = CostSnapshot{
		kind:          in.Type,
		sourceVersion: in.SourceVersion,
		note:          in.Note,
		ingredients:   in.Ingredients,
	}
	if s.kind != SnapshotRecipe {
		s.kind = SnapshotManual
	}
	if in.CapturedAt != nil {
		s.capturedAt = in.CapturedAt.UTC()
	}
	return nil
}
