package repository

import (
	"context"

	"github.com/jhoicas/cotizaciones-api/internal/domain/entity"
)

// Catálogos maestros: se administran fuera de este servicio y aquí solo se leen.

type ClientRepository interface {
	GetByID(ctx context.Context, id int64) (*entity.Client, error)
}

type TaxRateRepository interface {
	GetByID(ctx context.Context, id int64) (*entity.TaxRate, error)
	// Upsert lo usa el seed inicial.
	Upsert(ctx context.Context, rate *entity.TaxRate) error
}

type ConfigRepository interface {
	Get(ctx context.Context) (*entity.GlobalConfig, error)
	Save(ctx context.Context, cfg *entity.GlobalConfig) error
}

// RecipeRepository expone el costo vigente de una versión de receta
// (componentes × costo actual de materiales).
type RecipeRepository interface {
	GetVersionCost(ctx context.Context, versionID int64) (*entity.VersionCost, error)
}
