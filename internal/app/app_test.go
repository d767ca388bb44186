package app

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"DataLink.piwebapi/internal/config"
)

func testConfig(t *testing.T) config.Config {
	return config.Config{
		PI:             config.PIConfig{BaseURL: "https://pi.example.com/piwebapi", AuthMode: config.AuthNone, Timeout: time.Second},
		Port:           "0",
		AllowedOrigins: []string{"https://ui.example.com"},
		CacheDir:       t.TempDir(),
		LogLevel:       "info",
		LogFormat:      "json",
	}
}

func TestNewWithoutOptionalServices(t *testing.T) {
	a, err := New(context.Background(), testConfig(t), zap.NewNop())
	require.NoError(t, err)
	defer a.Close()

	assert.Nil(t, a.store)
	assert.Nil(t, a.exporter)
	assert.Equal(t, "https://pi.example.com/piwebapi", a.Service.BaseURL())
	assert.Equal(t, config.DefaultCatalog(), a.Catalog)
}

func TestNewWithRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := testConfig(t)
	cfg.Redis = config.RedisConfig{Addr: mr.Addr(), TTL: time.Minute}

	a, err := New(context.Background(), cfg, zap.NewNop())
	require.NoError(t, err)
	assert.NotNil(t, a.store)
	assert.NoError(t, a.Close())
}

func TestNewFailsOnBadCatalog(t *testing.T) {
	cfg := testConfig(t)
	cfg.CatalogPath = "/nonexistent/catalog.yaml"
	_, err := New(context.Background(), cfg, zap.NewNop())
	assert.Error(t, err)
}

func TestHandler(t *testing.T) {
	a, err := New(context.Background(), testConfig(t), zap.NewNop())
	require.NoError(t, err)
	defer a.Close()

	h, err := a.Handler()
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	req := httptest.NewRequest(http.MethodOptions, "/api/query/fetch", nil)
	req.Header.Set("Origin", "https://ui.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, "https://ui.example.com", rec.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/api/catalog", nil)
	req.Header.Set("Origin", "https://ui.example.com")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Access-Control-Expose-Headers"), "X-Cache-Key")
}

func TestServeStopsOnCancel(t *testing.T) {
	a, err := New(context.Background(), testConfig(t), zap.NewNop())
	require.NoError(t, err)
	defer a.Close()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.Serve(ctx) }()
	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}
