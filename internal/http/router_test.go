package httpapi

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/anidl-backend/internal/config"
	"github.com/tbourn/anidl-backend/internal/http/handlers"
	"github.com/tbourn/anidl-backend/internal/http/middleware"
	"github.com/tbourn/anidl-backend/internal/repo"
	"github.com/tbourn/anidl-backend/internal/services"
)

type stubFetcher struct{}

func (stubFetcher) Fetch(context.Context, string) (string, error) {
	return `<html><body></body></html>`, nil
}

func newTestDeps(t *testing.T) Deps {
	t.Helper()
	store, err := repo.Open(filepath.Join(t.TempDir(), "router.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close(context.Background()) })

	return Deps{
		Services: handlers.Deps{
			Tokens:   services.NewTokenService(store, store),
			Users:    services.NewUserService(store),
			Comments: services.NewCommentService(store),
			Catalog:  services.NewCatalogService(stubFetcher{}, "https://www.tokyoinsider.com", nil),
		},
		Ping: store.Ping,
	}
}

func baseConfig() config.Config {
	return config.Config{
		APIBasePath: "/api/v1",
		RateRPS:     100,
		RateBurst:   10,
		OTEL:        config.OTELConfig{ServiceName: "test-svc"},
	}
}

func newRouter(t *testing.T, cfg config.Config, deps Deps) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	RegisterRoutes(r, deps, cfg)
	return r
}

func serve(r http.Handler, method, path string, hdr map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	for k, v := range hdr {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRegisterRoutes_CORSAllowAll_Health_Metrics_Fallbacks(t *testing.T) {
	r := newRouter(t, baseConfig(), newTestDeps(t))

	w := serve(r, http.MethodGet, "/health", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("GET /health = %d", w.Code)
	}
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Fatalf("AllowAllOrigins expected '*', got %q", got)
	}
	if w.Header().Get("X-Request-ID") == "" {
		t.Fatal("expected X-Request-ID header")
	}

	w = serve(r, http.MethodGet, "/metrics", nil)
	if w.Code != http.StatusOK || w.Body.Len() == 0 {
		t.Fatalf("GET /metrics bad: code=%d len=%d", w.Code, w.Body.Len())
	}

	if w = serve(r, http.MethodGet, "/nope", nil); w.Code != http.StatusNotFound {
		t.Fatalf("GET /nope expected 404, got %d", w.Code)
	}
	if w = serve(r, http.MethodPost, "/health", nil); w.Code != http.StatusMethodNotAllowed {
		t.Fatalf("POST /health expected 405, got %d", w.Code)
	}
}

func TestRegisterRoutes_HealthReportsStoreFailure(t *testing.T) {
	deps := newTestDeps(t)
	deps.Ping = func(context.Context) error { return errors.New("down") }
	r := newRouter(t, baseConfig(), deps)

	if w := serve(r, http.MethodGet, "/health", nil); w.Code != http.StatusServiceUnavailable {
		t.Fatalf("GET /health = %d; want 503", w.Code)
	}
}

func TestRegisterRoutes_CORSWithOrigins_HeaderEcho(t *testing.T) {
	cfg := baseConfig()
	cfg.CORS = config.CORSConfig{AllowedOrigins: []string{"http://example.com"}}
	r := newRouter(t, cfg, newTestDeps(t))

	w := serve(r, http.MethodGet, "/health", map[string]string{"Origin": "http://example.com"})
	if w.Code != http.StatusOK {
		t.Fatalf("GET /health = %d", w.Code)
	}
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "http://example.com" {
		t.Fatalf("expected ACAO echo, got %q", got)
	}
}

func TestRegisterRoutes_AdminMountedOnlyWithSecret(t *testing.T) {
	r := newRouter(t, baseConfig(), newTestDeps(t))
	hdr := map[string]string{middleware.HeaderAdminToken: ""}
	if w := serve(r, http.MethodGet, "/api/v1/admin/users", hdr); w.Code != http.StatusNotFound {
		t.Fatalf("admin route without secret = %d; want 404", w.Code)
	}

	cfg := baseConfig()
	cfg.AdminToken = "s3cret"
	r = newRouter(t, cfg, newTestDeps(t))
	if w := serve(r, http.MethodGet, "/api/v1/admin/users", nil); w.Code != http.StatusUnauthorized {
		t.Fatalf("admin route without token = %d; want 401", w.Code)
	}
	w := serve(r, http.MethodGet, "/api/v1/admin/users", map[string]string{middleware.HeaderAdminToken: "s3cret"})
	if w.Code != http.StatusOK {
		t.Fatalf("admin route with token = %d; want 200", w.Code)
	}
	if w.Header().Get("Cache-Control") != "no-store" {
		t.Fatalf("admin responses must not be cached: %q", w.Header().Get("Cache-Control"))
	}
}

func TestRegisterRoutes_RateLimitAdminBypass(t *testing.T) {
	cfg := baseConfig()
	cfg.AdminToken = "s3cret"
	cfg.RateRPS = 0.001
	cfg.RateBurst = 1
	r := newRouter(t, cfg, newTestDeps(t))

	user := map[string]string{middleware.HeaderUserID: "9"}
	if w := serve(r, http.MethodGet, "/api/v1/users/9/ban", user); w.Code != http.StatusOK {
		t.Fatalf("first request = %d", w.Code)
	}
	if w := serve(r, http.MethodGet, "/api/v1/users/9/ban", user); w.Code != http.StatusTooManyRequests {
		t.Fatalf("second request = %d; want 429", w.Code)
	}

	admin := map[string]string{middleware.HeaderUserID: "9", middleware.HeaderAdminToken: "s3cret"}
	for i := 0; i < 3; i++ {
		if w := serve(r, http.MethodGet, "/api/v1/admin/users", admin); w.Code != http.StatusOK {
			t.Fatalf("admin request %d = %d; want 200", i, w.Code)
		}
	}
}

func TestRegisterRoutes_TokenRoutesNeedUser(t *testing.T) {
	r := newRouter(t, baseConfig(), newTestDeps(t))

	if w := serve(r, http.MethodPost, "/api/v1/tokens", nil); w.Code != http.StatusUnauthorized {
		t.Fatalf("POST /tokens without user = %d; want 401", w.Code)
	}
	w := serve(r, http.MethodPost, "/api/v1/tokens", map[string]string{middleware.HeaderUserID: "12"})
	if w.Code != http.StatusOK {
		t.Fatalf("POST /tokens = %d (%s)", w.Code, w.Body.String())
	}
	if w.Header().Get("Cache-Control") != "no-store" {
		t.Fatalf("token responses must not be cached: %q", w.Header().Get("Cache-Control"))
	}
}

func TestRegisterRoutes_UserRoutesScoped(t *testing.T) {
	r := newRouter(t, baseConfig(), newTestDeps(t))
	self := map[string]string{middleware.HeaderUserID: "12"}

	cases := []struct {
		method, path string
		hdr          map[string]string
		want         int
	}{
		{http.MethodGet, "/api/v1/users/12", nil, http.StatusUnauthorized},
		{http.MethodGet, "/api/v1/users/13", self, http.StatusForbidden},
		{http.MethodGet, "/api/v1/users/12", self, http.StatusNotFound},
		{http.MethodPut, "/api/v1/users/13/search-count", self, http.StatusForbidden},
		{http.MethodGet, "/api/v1/users/13/ban", self, http.StatusOK},
	}
	for _, tc := range cases {
		if w := serve(r, tc.method, tc.path, tc.hdr); w.Code != tc.want {
			t.Fatalf("%s %s = %d; want %d (%s)", tc.method, tc.path, w.Code, tc.want, w.Body.String())
		}
	}
}

func TestRegisterRoutes_Gzip(t *testing.T) {
	r := newRouter(t, baseConfig(), newTestDeps(t))
	w := serve(r, http.MethodGet, "/health", map[string]string{"Accept-Encoding": "gzip"})
	if got := w.Header().Get("Content-Encoding"); got != "gzip" {
		t.Fatalf("Content-Encoding = %q; want gzip", got)
	}
}

func TestRegisterRoutes_SwaggerToggle(t *testing.T) {
	r := newRouter(t, baseConfig(), newTestDeps(t))
	if w := serve(r, http.MethodGet, "/swagger/doc.json", nil); w.Code != http.StatusNotFound {
		t.Fatalf("swagger disabled = %d; want 404", w.Code)
	}

	cfg := baseConfig()
	cfg.SwaggerEnabled = true
	r = newRouter(t, cfg, newTestDeps(t))
	if w := serve(r, http.MethodGet, "/swagger/doc.json", nil); w.Code != http.StatusOK {
		t.Fatalf("swagger enabled = %d; want 200", w.Code)
	}
}

func Test_limitBody_Middleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(limitBody(10))
	r.POST("/echo", func(c *gin.Context) {
		if _, err := io.ReadAll(c.Request.Body); err != nil {
			c.String(http.StatusRequestEntityTooLarge, "too big")
			return
		}
		c.String(http.StatusOK, "ok")
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/echo", bytes.NewBufferString("0123456789AB"))
	r.ServeHTTP(w, req)
	if w.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("expected 413 from limitBody, got %d", w.Code)
	}
}

func Test_groupWithPrefix_and_joinPath(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	groupWithPrefix(r, "/").GET("/one", func(c *gin.Context) { c.String(http.StatusOK, "one") })
	groupWithPrefix(r, "").GET("/two", func(c *gin.Context) { c.String(http.StatusOK, "two") })
	groupWithPrefix(r, "/api").GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })

	for path, want := range map[string]string{"/one": "one", "/two": "two", "/api/ping": "pong"} {
		w := serve(r, http.MethodGet, path, nil)
		if w.Code != http.StatusOK || w.Body.String() != want {
			t.Fatalf("GET %s got %d %q", path, w.Code, w.Body.String())
		}
	}

	if joinPath("", "/tokens") != "/tokens" || joinPath("/", "/tokens") != "/tokens" || joinPath("/api/v1", "/tokens") != "/api/v1/tokens" {
		t.Fatal("joinPath mismatch")
	}
}

func TestRegisterRoutes_SearchThroughStack(t *testing.T) {
	r := newRouter(t, baseConfig(), newTestDeps(t))
	w := serve(r, http.MethodGet, "/api/v1/catalog/search?q=naruto", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("search = %d (%s)", w.Code, w.Body.String())
	}
}
