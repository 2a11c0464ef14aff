package observability

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jhoicas/cotizaciones-api/pkg/config"
	"github.com/jhoicas/cotizaciones-api/pkg/logger"
)

func TestSampleRatio(t *testing.T) {
	assert.Equal(t, 0.0, SampleRatio(-1))
	assert.Equal(t, 1.0, SampleRatio(3))
	assert.Equal(t, 0.25, SampleRatio(0.25))
}

func TestStripScheme(t *testing.T) {
	assert.Equal(t, "collector:4318", stripScheme("http://collector:4318"))
	assert.Equal(t, "collector:4318", stripScheme("https://collector:4318"))
	assert.Equal(t, "collector:4318", stripScheme("collector:4318"))
}

func TestInitOTel_DeshabilitadoDevuelveShutdownVacio(t *testing.T) {
	shutdown := InitOTel(context.Background(), logger.Nop(), config.AppConfig{Name: "x"}, config.OTelConfig{Enabled: false})
	assert.NotNil(t, shutdown)
	assert.NoError(t, shutdown(context.Background()))
	assert.NotNil(t, Tracer())
}
