package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jhoicas/cotizaciones-api/internal/domain/entity"
	"github.com/jhoicas/cotizaciones-api/internal/domain/repository"
	"github.com/shopspring/decimal"
)

var (
	_ repository.ClientRepository  = (*ClientRepo)(nil)
	_ repository.TaxRateRepository = (*TaxRateRepo)(nil)
	_ repository.ConfigRepository  = (*ConfigRepo)(nil)
	_ repository.RecipeRepository  = (*RecipeRepo)(nil)
)

// ─── Clientes ───────────────────────────────────────────────────────────────

type ClientRepo struct{ q Querier }

func NewClientRepository(q Querier) *ClientRepo { return &ClientRepo{q: q} }

func (r *ClientRepo) GetByID(ctx context.Context, id int64) (*entity.Client, error) {
	var c entity.Client
	err := r.q.QueryRow(ctx,
		`SELECT id, full_name, COALESCE(contact_name, ''), COALESCE(email, '') FROM clients WHERE id = $1`, id,
	).Scan(&c.ID, &c.FullName, &c.ContactName, &c.Email)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, wrap("get client", err)
	}
	return &c, nil
}

// ─── Tasas de impuesto ──────────────────────────────────────────────────────

type TaxRateRepo struct{ q Querier }

func NewTaxRateRepository(q Querier) *TaxRateRepo { return &TaxRateRepo{q: q} }

func (r *TaxRateRepo) GetByID(ctx context.Context, id int64) (*entity.TaxRate, error) {
	var t entity.TaxRate
	err := r.q.QueryRow(ctx, `SELECT id, name, rate FROM tax_rates WHERE id = $1`, id).Scan(&t.ID, &t.Name, &t.Rate)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, wrap("get tax rate", err)
	}
	return &t, nil
}

func (r *TaxRateRepo) Upsert(ctx context.Context, t *entity.TaxRate) error {
	_, err := r.q.Exec(ctx, `
		INSERT INTO tax_rates (id, name, rate) VALUES ($1, $2, $3)
		ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, rate = EXCLUDED.rate`,
		t.ID, t.Name, t.Rate)
	return wrap("upsert tax rate", err)
}

// ─── Configuración global (fila única id = 1) ───────────────────────────────

type ConfigRepo struct{ q Querier }

func NewConfigRepository(q Querier) *ConfigRepo { return &ConfigRepo{q: q} }

// Get devuelve nil, nil si la organización aún no se configuró.
func (r *ConfigRepo) Get(ctx context.Context) (*entity.GlobalConfig, error) {
	var c entity.GlobalConfig
	err := r.q.QueryRow(ctx, `
		SELECT company_name, COALESCE(company_email, ''), target_profit_margin, default_tax_rate_id
		FROM global_config WHERE id = 1`,
	).Scan(&c.CompanyName, &c.CompanyEmail, &c.TargetProfitMargin, &c.DefaultTaxRateID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, wrap("get global config", err)
	}
	return &c, nil
}

func (r *ConfigRepo) Save(ctx context.Context, c *entity.GlobalConfig) error {
	_, err := r.q.Exec(ctx, `
		INSERT INTO global_config (id, company_name, company_email, target_profit_margin, default_tax_rate_id)
		VALUES (1, $1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE SET
			company_name = EXCLUDED.company_name,
			company_email = EXCLUDED.company_email,
			target_profit_margin = EXCLUDED.target_profit_margin,
			default_tax_rate_id = EXCLUDED.default_tax_rate_id`,
		c.CompanyName, nullIfEmpty(c.CompanyEmail), c.TargetProfitMargin, c.DefaultTaxRateID)
	return wrap("save global config", err)
}

// ─── Recetas ────────────────────────────────────────────────────────────────

type RecipeRepo struct{ q Querier }

func NewRecipeRepository(q Querier) *RecipeRepo { return &RecipeRepo{q: q} }

// GetVersionCost calcula el costo vigente como Σ cantidad × costo actual del material.
// Una versión sin componentes usa estimated_cost. nil, nil si la versión no existe.
func (r *RecipeRepo) GetVersionCost(ctx context.Context, versionID int64) (*entity.VersionCost, error) {
	vc := entity.VersionCost{VersionID: versionID}
	var estimated decimal.Decimal
	err := r.q.QueryRow(ctx,
		`SELECT version_name, COALESCE(estimated_cost, 0) FROM product_versions WHERE id = $1`, versionID,
	).Scan(&vc.VersionName, &estimated)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, wrap("get product version", err)
	}

	rows, err := r.q.Query(ctx, `
		SELECT m.sku, m.name, vc.quantity, m.current_cost
		FROM version_components vc
		JOIN materials m ON m.id = vc.material_id
		WHERE vc.version_id = $1
		ORDER BY vc.id`, versionID)
	if err != nil {
		return nil, wrap("list version components", err)
	}
	defer rows.Close()
	for rows.Next() {
		var ing entity.Ingredient
		if err := rows.Scan(&ing.SKU, &ing.Name, &ing.QtyRecipe, &ing.FrozenUnitCost); err != nil {
			return nil, wrap("scan version component", err)
		}
		ing.LineTotal = ing.QtyRecipe.Mul(ing.FrozenUnitCost)
		vc.Ingredients = append(vc.Ingredients, ing)
	}
	if err := rows.Err(); err != nil {
		return nil, wrap("list version components", err)
	}

	vc.UnitCost = estimated
	if len(vc.Ingredients) > 0 {
		vc.UnitCost = decimal.Zero
		for _, ing := range vc.Ingredients {
			vc.UnitCost = vc.UnitCost.Add(ing.LineTotal)
		}
	}
	return &vc, nil
}
