package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Client es un cliente del catálogo maestro (solo lectura para cotizaciones).
type Client struct {
	ID          int64
	FullName    string
	ContactName string
	Email       string
}

// TaxRate es una tasa de impuesto; Rate es fracción (0.16).
type TaxRate struct {
	ID   int64
	Name string
	Rate decimal.Decimal
}

// GlobalConfig son los parámetros de la organización.
type GlobalConfig struct {
	CompanyName        string
	CompanyEmail       string
	TargetProfitMargin decimal.Decimal
	DefaultTaxRateID   *int64
}

// VersionCost es el costo vigente de una versión de receta, con su desglose.
type VersionCost struct {
	VersionID   int64
	VersionName string
	UnitCost    decimal.Decimal
	Ingredients []Ingredient
}

// Snapshot congela el desglose vigente.
func (v VersionCost) Snapshot(at time.Time) CostSnapshot {
	return NewRecipeSnapshot(v.VersionName, at, v.Ingredients)
}

// OrderEvent es una entrada de la bitácora de transiciones.
type OrderEvent struct {
	ID           string
	SalesOrderID string
	Action       string
	FromStatus   string
	ToStatus     string
	ActorID      string
	ActorRole    string
	CreatedAt    time.Time
}

// StaleCostWarning avisa que el costo congelado difiere del costo actual de la receta.
// Es informativo: nunca bloquea ni modifica la orden.
type StaleCostWarning struct {
	ItemID          string
	Position        int
	ProductName     string
	OriginVersionID int64
	FrozenUnitCost  decimal.Decimal
	CurrentUnitCost decimal.Decimal
}

// Delta es costo actual − costo congelado.
func (w StaleCostWarning) Delta() decimal.Decimal {
	return w.CurrentUnitCost.Sub(w.FrozenUnitCost)
}
