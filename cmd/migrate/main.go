// migrate aplica el esquema embebido con goose.
//
// Uso: go run ./cmd/migrate [up|down|status|version|redo]   (por defecto: up)
package main

import (
	"context"
	"os"
	"time"

	"github.com/jhoicas/cotizaciones-api/internal/infrastructure/postgres"
	"github.com/jhoicas/cotizaciones-api/internal/infrastructure/postgres/migrations"
	"github.com/jhoicas/cotizaciones-api/pkg/config"
	"github.com/jhoicas/cotizaciones-api/pkg/logger"
)

func main() {
	command := "up"
	if len(os.Args) > 1 {
		command = os.Args[1]
	}

	cfg, err := config.Load()
	if err != nil {
		panic("cargar configuración: " + err.Error())
	}
	log := logger.New(logger.Config{Env: cfg.App.Env, Level: cfg.App.LogLevel, Service: "migrate"})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	pool, err := postgres.NewPool(ctx, cfg.DB)
	if err != nil {
		log.Fatal().Err(err).Msg("conexión a PostgreSQL")
	}
	defer pool.Close()

	if err := migrations.Command(ctx, pool, command); err != nil {
		log.Fatal().Err(err).Str("command", command).Msg("migración fallida")
	}
	log.Info().Str("command", command).Msg("migración completada")
}
