package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	echo "github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Additional-Code/burgerbar/internal/config"
	"github.com/Additional-Code/burgerbar/internal/observability"
	"github.com/Additional-Code/burgerbar/pkg/errorbank"
)

func newTestEcho(t *testing.T, obs config.Observability) *echo.Echo {
	t.Helper()
	mgr, err := observability.Build(context.Background(), obs, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = mgr.Shutdown(context.Background()) })

	var cfg config.Config
	cfg.HTTP.BasePath = "/api"
	cfg.Observability = obs
	return NewEcho(cfg, mgr, zap.NewNop())
}

func serve(e *echo.Echo, method, path string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(method, path, nil))
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestHealth(t *testing.T) {
	e := newTestEcho(t, config.Observability{})
	rec := serve(e, http.MethodGet, "/health")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestRouterMissUsesErrorShape(t *testing.T) {
	e := newTestEcho(t, config.Observability{})
	rec := serve(e, http.MethodGet, "/api/nope")

	assert.Equal(t, http.StatusNotFound, rec.Code)
	body := decodeError(t, rec)
	assert.Equal(t, "Not Found", body["message"])
	assert.Equal(t, string(errorbank.KindNotFound), body["kind"])
}

func TestHandlerErrorsAreRendered(t *testing.T) {
	e := newTestEcho(t, config.Observability{})
	api := NewAPI(config.Config{HTTP: config.HTTP{BasePath: "/api"}}, e)
	api.GET("/boom", func(echo.Context) error {
		return errorbank.Conflict("User already exists")
	})
	api.GET("/crash", func(echo.Context) error {
		panic("unexpected")
	})

	rec := serve(e, http.MethodGet, "/api/boom")
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "User already exists", decodeError(t, rec)["message"])

	rec = serve(e, http.MethodGet, "/api/crash")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "Internal server error", decodeError(t, rec)["message"])
}

func TestMetricsRoute(t *testing.T) {
	e := newTestEcho(t, config.Observability{
		EnableMetrics:   true,
		MetricsExporter: "prometheus",
		PrometheusPath:  "/metrics",
	})
	rec := serve(e, http.MethodGet, "/metrics")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}
