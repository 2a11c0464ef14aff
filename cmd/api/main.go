package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/contrib/swagger"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"

	"github.com/jhoicas/cotizaciones-api/docs"
	"github.com/jhoicas/cotizaciones-api/internal/application/auth"
	"github.com/jhoicas/cotizaciones-api/internal/application/sales"
	"github.com/jhoicas/cotizaciones-api/internal/domain/pricing"
	"github.com/jhoicas/cotizaciones-api/internal/infrastructure/observability"
	infrapdf "github.com/jhoicas/cotizaciones-api/internal/infrastructure/pdf"
	"github.com/jhoicas/cotizaciones-api/internal/infrastructure/postgres"
	"github.com/jhoicas/cotizaciones-api/internal/infrastructure/postgres/migrations"
	infraredis "github.com/jhoicas/cotizaciones-api/internal/infrastructure/redis"
	httpRouter "github.com/jhoicas/cotizaciones-api/internal/interfaces/http"
	"github.com/jhoicas/cotizaciones-api/pkg/config"
	"github.com/jhoicas/cotizaciones-api/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("cargar configuración: " + err.Error())
	}

	log := logger.New(logger.Config{
		Env:     cfg.App.Env,
		Level:   cfg.App.LogLevel,
		Service: cfg.App.Name,
	})
	log.Info().
		Str("env", cfg.App.Env).
		Str("app", cfg.App.Name).
		Msg("iniciando aplicación")

	ctx := context.Background()
	shutdownOTel := observability.InitOTel(ctx, log, cfg.App, cfg.OTel)

	pool, err := postgres.NewPool(ctx, cfg.DB)
	if err != nil {
		log.Fatal().Err(err).Msg("conexión a PostgreSQL")
	}
	defer pool.Close()

	if cfg.DB.AutoMigrate {
		if err := migrations.Up(ctx, pool); err != nil {
			log.Fatal().Err(err).Msg("migraciones")
		}
		log.Info().Msg("migraciones aplicadas")
	}

	pricing.MaxCommissionPercent = cfg.Pricing.MaxCommission

	userRepo := postgres.NewUserRepository(pool)
	salesUC := sales.NewSalesUseCase(sales.Deps{
		Orders:   postgres.NewSalesOrderRepository(pool),
		Events:   postgres.NewOrderEventRepository(pool),
		Users:    userRepo,
		Clients:  postgres.NewClientRepository(pool),
		TaxRates: postgres.NewTaxRateRepository(pool),
		Config:   postgres.NewConfigRepository(pool),
		Recipes:  postgres.NewRecipeRepository(pool),
		Tx:       postgres.NewTxRunner(pool),
		PDF:      infrapdf.NewMarotoPDFGenerator(),
		Settings: sales.Settings{
			DefaultMargin:   cfg.Pricing.DefaultMargin,
			FallbackTaxRate: cfg.Pricing.FallbackTaxRate,
		},
		Logger: log.Zerolog(),
	})
	authUC := auth.NewAuthUseCase(userRepo, auth.JWTConfig{
		Secret:     cfg.JWT.Secret,
		ExpMinutes: cfg.JWT.Expiration,
		Issuer:     cfg.JWT.Issuer,
	})

	// Redis es opcional: sin REDIS_ADDR no se verifica Idempotency-Key.
	var idem httpRouter.IdempotencyStore
	if cfg.Redis.Addr != "" {
		rdb, err := infraredis.NewClient(ctx, cfg.Redis)
		if err != nil {
			log.Fatal().Err(err).Msg("conexión a Redis")
		}
		defer rdb.Close()
		idem = infraredis.NewIdempotencyStore(rdb, cfg.Redis.IdempotencyTTL)
	} else {
		log.Warn().Msg("REDIS_ADDR vacío: idempotencia desactivada")
	}

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ReadTimeout:  time.Second * 10,
		WriteTimeout: time.Second * 10,
		IdleTimeout:  time.Second * 60,
	})
	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(cors.New())
	app.Use(httpRouter.Tracing(observability.Tracer()))
	app.Use(httpRouter.AccessLog(log.Zerolog()))

	// Swagger UI en local: http://localhost:<port>/docs
	app.Use(swagger.New(swagger.Config{
		BasePath: "/",
		FilePath: cfg.HTTP.SwaggerFile,
		Path:     "docs",
		Title:    "Cotizaciones API",
	}))

	app.Get("/swagger.json", func(c *fiber.Ctx) error {
		c.Type("json")
		return c.SendString(docs.SwaggerInfo.ReadDoc())
	})
	app.Get("/health", httpRouter.Health(cfg.App.Name, pool))

	httpRouter.Router(app, httpRouter.RouterDeps{
		AuthUC:      authUC,
		SalesUC:     salesUC,
		Idempotency: idem,
		JWTSecret:   cfg.JWT.Secret,
		Logger:      log.Zerolog(),
	})

	go func() {
		if err := app.Listen(cfg.HTTP.Addr()); err != nil {
			log.Error().Err(err).Msg("servidor HTTP finalizado")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("señal de apagado recibida, cerrando servidor...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("apagado del servidor")
	}
	if err := shutdownOTel(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("apagado de otel")
	}

	log.Info().Msg("aplicación detenida")
}
