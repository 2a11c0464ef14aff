// Package observability inicializa las trazas OpenTelemetry del servicio.
package observability

import (
	"context"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.27.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/jhoicas/cotizaciones-api/pkg/config"
	"github.com/jhoicas/cotizaciones-api/pkg/logger"
)

// TracerName nombre del tracer usado por el middleware HTTP y los casos de uso.
const TracerName = "github.com/jhoicas/cotizaciones-api"

var (
	otelOnce     sync.Once
	otelShutdown = func(context.Context) error { return nil }
)

// InitOTel registra el TracerProvider global. Con OTel deshabilitado no hace nada
// y devuelve un shutdown vacío. Es idempotente.
func InitOTel(ctx context.Context, log *logger.Logger, app config.AppConfig, cfg config.OTelConfig) func(context.Context) error {
	otelOnce.Do(func() {
		if !cfg.Enabled {
			return
		}
		serviceName := strings.TrimSpace(app.Name)
		if serviceName == "" {
			serviceName = "cotizaciones-api"
		}
		res, err := resource.New(ctx,
			resource.WithAttributes(
				semconv.ServiceNameKey.String(serviceName),
				attribute.String("deployment.environment", app.Env),
			),
		)
		if err != nil {
			log.Warn().Err(err).Msg("otel: resource incompleto (continuando)")
		}

		opts := []sdktrace.TracerProviderOption{
			sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(SampleRatio(cfg.SamplerRatio)))),
			sdktrace.WithResource(res),
		}
		exporter, err := buildExporter(ctx, cfg.Endpoint)
		if err != nil {
			log.Warn().Err(err).Msg("otel: exportador no disponible (continuando)")
		} else {
			opts = append(opts, sdktrace.WithBatcher(exporter, sdktrace.WithBatchTimeout(5*time.Second)))
		}

		tp := sdktrace.NewTracerProvider(opts...)
		otel.SetTracerProvider(tp)
		otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
			propagation.TraceContext{},
			propagation.Baggage{},
		))
		otelShutdown = tp.Shutdown
		log.Info().Str("service", serviceName).Str("endpoint", cfg.Endpoint).Msg("otel: trazas inicializadas")
	})
	return otelShutdown
}

// Tracer devuelve el tracer del servicio (no-op si InitOTel no registró provider).
func Tracer() trace.Tracer {
	return otel.Tracer(TracerName)
}

// SampleRatio acota la proporción de muestreo a [0, 1].
func SampleRatio(r float64) float64 {
	switch {
	case r < 0:
		return 0
	case r > 1:
		return 1
	}
	return r
}

func buildExporter(ctx context.Context, endpoint string) (sdktrace.SpanExporter, error) {
	endpoint = strings.TrimSpace(endpoint)
	if endpoint == "" {
		return stdouttrace.New(stdouttrace.WithPrettyPrint())
	}
	opts := []otlptracehttp.Option{otlptracehttp.WithEndpoint(stripScheme(endpoint))}
	if strings.HasPrefix(endpoint, "http://") {
		opts = append(opts, otlptracehttp.WithInsecure())
	}
	return otlptracehttp.New(ctx, opts...)
}

// stripScheme WithEndpoint espera host:port sin esquema.
func stripScheme(endpoint string) string {
	endpoint = strings.TrimPrefix(endpoint, "https://")
	return strings.TrimPrefix(endpoint, "http://")
}
