package handler

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/trace"
)

// healthOracle only answers IsInitialized; Health must not touch the rest.
type healthOracle struct {
	Oracle
	initialized bool
	err         error
}

func (o healthOracle) IsInitialized(context.Context) (bool, error) {
	return o.initialized, o.err
}

func serveHealth(o Oracle) *httptest.ResponseRecorder {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	h := New(trace.NewNoopTracerProvider().Tracer("test"), o, "")
	r.GET("/health", h.Health)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/health", nil)
	r.ServeHTTP(w, req)
	return w
}

func TestHealth(t *testing.T) {
	w := serveHealth(healthOracle{initialized: true})

	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}
	body := w.Body.String()
	if body != "{\"initialized\":true,\"status\":\"healthy\"}\n" && body != "{\"initialized\":true,\"status\":\"healthy\"}" {
		t.Errorf("unexpected body: %s", body)
	}
}

func TestHealthStoreDown(t *testing.T) {
	w := serveHealth(healthOracle{err: errors.New("connection refused")})

	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected status 503, got %d", w.Code)
	}
}
