// seed prepara una base vacía: tasa de IVA, configuración de la empresa y el primer admin.
//
// Uso: go run ./cmd/seed
//
// Variables: SEED_ADMIN_EMAIL, SEED_ADMIN_PASSWORD, SEED_COMPANY_NAME, SEED_COMPANY_EMAIL,
// SEED_TAX_RATE (fracción, por defecto 0.16).
package main

import (
	"context"
	"errors"
	"os"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/cotizaciones-api/internal/application/auth"
	"github.com/jhoicas/cotizaciones-api/internal/application/dto"
	"github.com/jhoicas/cotizaciones-api/internal/domain"
	"github.com/jhoicas/cotizaciones-api/internal/domain/entity"
	"github.com/jhoicas/cotizaciones-api/internal/infrastructure/postgres"
	"github.com/jhoicas/cotizaciones-api/pkg/config"
	"github.com/jhoicas/cotizaciones-api/pkg/logger"
)

const defaultTaxRateID = 1

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("cargar configuración: " + err.Error())
	}
	log := logger.New(logger.Config{Env: cfg.App.Env, Level: cfg.App.LogLevel, Service: "seed"})

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	pool, err := postgres.NewPool(ctx, cfg.DB)
	if err != nil {
		log.Fatal().Err(err).Msg("conexión a PostgreSQL")
	}
	defer pool.Close()

	rate, err := decimal.NewFromString(env("SEED_TAX_RATE", cfg.Pricing.FallbackTaxRate.String()))
	if err != nil {
		log.Fatal().Err(err).Msg("SEED_TAX_RATE inválido")
	}
	if err := postgres.NewTaxRateRepository(pool).Upsert(ctx, &entity.TaxRate{
		ID: defaultTaxRateID, Name: "IVA " + rate.Mul(decimal.NewFromInt(100)).String() + "%", Rate: rate,
	}); err != nil {
		log.Fatal().Err(err).Msg("tasa de impuesto")
	}

	configRepo := postgres.NewConfigRepository(pool)
	current, err := configRepo.Get(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("leer configuración global")
	}
	if current == nil {
		taxRateID := int64(defaultTaxRateID)
		if err := configRepo.Save(ctx, &entity.GlobalConfig{
			CompanyName:        env("SEED_COMPANY_NAME", "Mi Empresa"),
			CompanyEmail:       env("SEED_COMPANY_EMAIL", ""),
			TargetProfitMargin: cfg.Pricing.DefaultMargin,
			DefaultTaxRateID:   &taxRateID,
		}); err != nil {
			log.Fatal().Err(err).Msg("guardar configuración global")
		}
		log.Info().Msg("configuración global creada")
	}

	email := os.Getenv("SEED_ADMIN_EMAIL")
	password := os.Getenv("SEED_ADMIN_PASSWORD")
	if email == "" || password == "" {
		log.Warn().Msg("SEED_ADMIN_EMAIL/SEED_ADMIN_PASSWORD vacíos: no se crea admin")
		return
	}
	authUC := auth.NewAuthUseCase(postgres.NewUserRepository(pool), auth.JWTConfig{
		Secret: cfg.JWT.Secret, ExpMinutes: cfg.JWT.Expiration, Issuer: cfg.JWT.Issuer,
	})
	user, err := authUC.RegisterUser(ctx, dto.RegisterRequest{
		Email: email, Password: password, Name: "Administrador", Role: entity.RoleAdmin,
	})
	switch {
	case errors.Is(err, domain.ErrEmailAlreadyExists):
		log.Info().Str("email", email).Msg("admin ya existe")
	case err != nil:
		log.Fatal().Err(err).Msg("crear admin")
	default:
		log.Info().Str("id", user.ID).Str("email", user.Email).Msg("admin creado")
	}
}

func env(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
