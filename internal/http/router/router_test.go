package router

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	apphttp "homeaccess_backend/internal/http"
	"homeaccess_backend/platform/httpkit"
	"homeaccess_backend/platform/logger"

	"github.com/gin-gonic/gin"
)

type testConfig struct {
	allowAll bool
}

func (testConfig) GetHTTPAddr() string { return ":0" }
func (c testConfig) GetCORSAllowAll() bool { return c.allowAll }
func (testConfig) GetCORSOrigins() []string { return []string{"https://app.example.com"} }
func (c testConfig) GetCORSAllowCreds() bool { return !c.allowAll }
func (testConfig) GetJWTAccessSecret() string { return "test-secret" }

type testHealth struct{ err error }

func (h testHealth) Ping(context.Context) error { return h.err }

type stubModule struct{}

func (stubModule) Name() string { return "stub" }

func (stubModule) RegisterRoutes(ctx *apphttp.RouterContext) {
	ctx.V1.GET("/public-ping", func(c *gin.Context) { c.Status(http.StatusNoContent) })
	ctx.Protected.GET("/private-ping", func(c *gin.Context) { c.Status(http.StatusNoContent) })
}

func newTestApp(health apphttp.HealthChecker) *apphttp.App {
	gin.SetMode(gin.TestMode)
	return &apphttp.App{
		Config:  testConfig{},
		Logger:  logger.New("test"),
		Health:  health,
		Modules: []apphttp.Module{stubModule{}},
	}
}

func serve(engine *gin.Engine, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)
	return rec
}

func TestHealthReportsDatabaseState(t *testing.T) {
	ok := serve(New(newTestApp(testHealth{})), httptest.NewRequest(http.MethodGet, "/api/health", nil))
	if ok.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", ok.Code)
	}

	down := serve(New(newTestApp(testHealth{err: errors.New("refused")})), httptest.NewRequest(http.MethodGet, "/api/health", nil))
	if down.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", down.Code)
	}
}

func TestModuleRoutesAreMounted(t *testing.T) {
	engine := New(newTestApp(testHealth{}))

	public := serve(engine, httptest.NewRequest(http.MethodGet, "/api/v1/public-ping", nil))
	if public.Code != http.StatusNoContent {
		t.Fatalf("expected public route 204, got %d", public.Code)
	}
	if public.Header().Get(httpkit.HeaderRequestID) == "" {
		t.Fatal("expected request id header")
	}
	if public.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Fatal("expected security headers")
	}

	private := serve(engine, httptest.NewRequest(http.MethodGet, "/api/v1/private-ping", nil))
	if private.Code != http.StatusUnauthorized {
		t.Fatalf("expected protected route 401 without token, got %d", private.Code)
	}
}

func TestCORSAllowsConfiguredOrigin(t *testing.T) {
	engine := New(newTestApp(testHealth{}))

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/public-ping", nil)
	req.Header.Set("Origin", "https://app.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodGet)
	rec := serve(engine, req)

	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "https://app.example.com" {
		t.Fatalf("expected origin to be allowed, got %q", got)
	}
}

func TestCORSConfigAllowAllDropsCredentials(t *testing.T) {
	c := corsConfig(testConfig{allowAll: true})
	if !c.AllowAllOrigins || c.AllowCredentials {
		t.Fatalf("unexpected cors config %+v", c)
	}
}
