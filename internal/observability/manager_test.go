package observability

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Additional-Code/burgerbar/internal/config"
)

func TestBuildDisabled(t *testing.T) {
	mgr, err := Build(context.Background(), config.Observability{PrometheusPath: "/metrics"}, nil)
	require.NoError(t, err)

	assert.False(t, mgr.TracingEnabled())
	assert.False(t, mgr.MetricsEnabled())
	assert.Nil(t, mgr.MetricsHandler())
	assert.NotNil(t, mgr.Meter("test"))
	assert.Equal(t, "/metrics", mgr.PrometheusPath())
	assert.NoError(t, mgr.Shutdown(context.Background()))
}

func TestPrometheusExposesRecordedMetrics(t *testing.T) {
	mgr, err := Build(context.Background(), config.Observability{
		ServiceName:     "burgerbar",
		Environment:     "test",
		EnableMetrics:   true,
		MetricsExporter: "prometheus",
	}, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = mgr.Shutdown(context.Background()) })

	require.True(t, mgr.MetricsEnabled())
	counter, err := mgr.Meter("test").Int64Counter("orders.created")
	require.NoError(t, err)
	counter.Add(context.Background(), 3)

	handler := mgr.MetricsHandler()
	require.NotNil(t, handler)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "orders_created")
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}

func TestUnknownExportersDisableSignals(t *testing.T) {
	mgr, err := Build(context.Background(), config.Observability{
		EnableTracing:   true,
		TraceExporter:   "zipkin",
		EnableMetrics:   true,
		MetricsExporter: "statsd",
	}, nil)
	require.NoError(t, err)

	assert.False(t, mgr.TracingEnabled())
	assert.False(t, mgr.MetricsEnabled())
}

func TestOTLPRequiresEndpoint(t *testing.T) {
	_, err := Build(context.Background(), config.Observability{
		EnableTracing: true,
		TraceExporter: "otlp",
	}, nil)
	require.Error(t, err)
}
