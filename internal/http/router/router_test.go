package router

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	apphttp "sales_crm_backend/internal/http"
	"sales_crm_backend/platform/logger"

	"github.com/gin-gonic/gin"
)

type stubRouterConfig struct{}

func (stubRouterConfig) GetHTTPAddr() string        { return ":0" }
func (stubRouterConfig) GetCORSAllowAll() bool      { return false }
func (stubRouterConfig) GetCORSOrigins() []string   { return []string{"http://localhost:4200"} }
func (stubRouterConfig) GetCORSAllowCreds() bool    { return true }
func (stubRouterConfig) GetJWTAccessSecret() string { return "secret" }

type stubHealth struct{ err error }

func (s stubHealth) Ping(context.Context) error { return s.err }

func TestReadyReportsUnavailableWhenPingFails(t *testing.T) {
	gin.SetMode(gin.TestMode)
	engine := New(&apphttp.App{
		Config: stubRouterConfig{},
		Logger: logger.New("test"),
		Health: stubHealth{err: errors.New("down")},
	})

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/ready", nil))
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", w.Code)
	}
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	gin.SetMode(gin.TestMode)
	engine := New(&apphttp.App{
		Config:  stubRouterConfig{},
		Logger:  logger.New("test"),
		Modules: []apphttp.Module{pingModule{}},
	})

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/ping", nil))
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}
}

type pingModule struct{}

func (pingModule) Name() string { return "ping" }

func (pingModule) RegisterRoutes(ctx *apphttp.RouterContext) {
	ctx.Protected.GET("/ping", func(c *gin.Context) { c.Status(http.StatusNoContent) })
}
