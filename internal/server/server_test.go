package server

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jerome00253/RIB-Factory/internal/config"
	"github.com/jerome00253/RIB-Factory/internal/handler"
	"github.com/jerome00253/RIB-Factory/internal/metrics"
	"github.com/jerome00253/RIB-Factory/internal/queue"
	"github.com/jerome00253/RIB-Factory/internal/service"
	"github.com/jerome00253/RIB-Factory/internal/storage"
	"github.com/jerome00253/RIB-Factory/pkg/logger"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()

	log := logger.NewNop()
	store := storage.NewResultStore()
	m := metrics.New()
	q := queue.New(nil, store, log, m)

	scanService := service.NewScanService(store, q, log, 24)
	scanHandler := handler.NewScanHandler(scanService, log)
	healthHandler := handler.NewHealthHandler()

	cfg := &config.Config{
		Server: config.ServerConfig{
			Port: "8080",
			Host: "0.0.0.0",
		},
	}

	return New(cfg, log, m, scanHandler, healthHandler)
}

func TestServer_HandlerRegistersOnce(t *testing.T) {
	srv := newTestServer(t)

	// Repeated calls must not stack the middleware chain.
	first := srv.Handler()
	second := srv.Handler()
	assert.Same(t, first, second)

	testServer := httptest.NewServer(second)
	defer testServer.Close()

	resp, err := http.Get(testServer.URL + "/health")
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	// A doubled metrics middleware would count this request twice.
	resp, err = http.Get(testServer.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Contains(t, string(body),
		`ribfactory_http_requests_total{method="GET",path="/health",status="200"} 1`)
}
