package routes

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/receiptwise/backend/pkg/config"
	"github.com/receiptwise/backend/pkg/logger"
)

func testDeps() Deps {
	return Deps{
		Config: &config.Config{
			App: config.AppConfig{Env: "test", Port: "0"},
			JWT: config.JWTConfig{Secret: "secret", Issuer: "receiptwise"},
		},
		Logger:   logger.New(logger.Options{ServiceName: "test", Output: io.Discard}),
		Registry: prometheus.NewRegistry(),
	}
}

func TestRouterHealthLive(t *testing.T) {
	router := NewRouter(testDeps())

	req := httptest.NewRequest(http.MethodGet, "/health/live", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if resp.Header().Get("X-ReceiptWise-Env") != "test" {
		t.Fatal("expected env header on health response")
	}
}

func TestRouterMetricsExposed(t *testing.T) {
	router := NewRouter(testDeps())

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
}

func TestRouterProtectedRoutesRequireAuth(t *testing.T) {
	router := NewRouter(testDeps())

	paths := []struct {
		method string
		path   string
	}{
		{http.MethodPost, "/api/v1/receipts"},
		{http.MethodGet, "/api/v1/receipts"},
		{http.MethodGet, "/api/v1/options"},
	}
	for _, tc := range paths {
		req := httptest.NewRequest(tc.method, tc.path, nil)
		resp := httptest.NewRecorder()
		router.ServeHTTP(resp, req)

		if resp.Code != http.StatusUnauthorized {
			t.Fatalf("%s %s: expected 401 got %d", tc.method, tc.path, resp.Code)
		}
	}
}

func TestRouterRequestIDEchoed(t *testing.T) {
	router := NewRouter(testDeps())

	req := httptest.NewRequest(http.MethodGet, "/health/live", nil)
	req.Header.Set("X-Request-Id", "req-123")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if got := resp.Header().Get("X-Request-Id"); got != "req-123" {
		t.Fatalf("expected request id echoed, got %q", got)
	}
}
