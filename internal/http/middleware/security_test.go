package middleware

import (
	"crypto/tls"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
)

// securedRouter mounts SecurityHeaders behind RequestID on a catch-all route.
func securedRouter(opt SecurityOptions, pre ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(pre...)
	r.Use(SecurityHeaders(opt))
	r.Any("/*path", func(c *gin.Context) { c.Status(http.StatusOK) })
	return r
}

func securedRequest(r http.Handler, path string, mut func(*http.Request)) http.Header {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if mut != nil {
		mut(req)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w.Header()
}

func TestSecurityHeaders_Baseline(t *testing.T) {
	h := securedRequest(securedRouter(SecurityOptions{}), "/api/v1/catalog/search", nil)

	want := map[string]string{
		"X-Content-Type-Options": "nosniff",
		"X-Frame-Options":        "DENY",
		"Referrer-Policy":        "no-referrer",
	}
	for k, v := range want {
		if h.Get(k) != v {
			t.Fatalf("%s = %q; want %q", k, h.Get(k), v)
		}
	}
	for _, k := range []string{"Permissions-Policy", "Cache-Control", "Strict-Transport-Security", "Access-Control-Expose-Headers"} {
		if h.Get(k) != "" {
			t.Fatalf("unexpected %s: %q", k, h.Get(k))
		}
	}
}

func TestSecurityHeaders_ExposeRequestID(t *testing.T) {
	cases := []struct {
		name     string
		existing string
		want     string
	}{
		{"added", "", "X-Request-ID"},
		{"appended", "ETag", "ETag, X-Request-ID"},
		{"not duplicated", "X-Request-ID, ETag", "X-Request-ID, ETag"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			pre := func(c *gin.Context) {
				if tc.existing != "" {
					c.Header("Access-Control-Expose-Headers", tc.existing)
				}
				c.Next()
			}
			h := securedRequest(securedRouter(SecurityOptions{}, RequestID(), pre), "/x", nil)
			if got := h.Get("Access-Control-Expose-Headers"); got != tc.want {
				t.Fatalf("expose = %q; want %q", got, tc.want)
			}
		})
	}
}

func TestSecurityHeaders_HSTS(t *testing.T) {
	r := securedRouter(SecurityOptions{EnableHSTS: true, HSTSMaxAge: time.Hour})

	if h := securedRequest(r, "/x", nil); h.Get("Strict-Transport-Security") != "" {
		t.Fatalf("plain HTTP must not get HSTS: %q", h.Get("Strict-Transport-Security"))
	}
	const want = "max-age=3600; includeSubDomains; preload"
	viaTLS := securedRequest(r, "/x", func(req *http.Request) { req.TLS = &tls.ConnectionState{} })
	if viaTLS.Get("Strict-Transport-Security") != want {
		t.Fatalf("TLS HSTS = %q", viaTLS.Get("Strict-Transport-Security"))
	}
	viaProxy := securedRequest(r, "/x", func(req *http.Request) { req.Header.Set("X-Forwarded-Proto", "HTTPS") })
	if viaProxy.Get("Strict-Transport-Security") != want {
		t.Fatalf("proxied HSTS = %q", viaProxy.Get("Strict-Transport-Security"))
	}

	def := securedRouter(SecurityOptions{EnableHSTS: true})
	h := securedRequest(def, "/x", func(req *http.Request) { req.TLS = &tls.ConnectionState{} })
	if h.Get("Strict-Transport-Security") != "max-age=15552000; includeSubDomains; preload" {
		t.Fatalf("default max-age HSTS = %q", h.Get("Strict-Transport-Security"))
	}
}

func TestSecurityHeaders_PolicyAndGlobalNoStore(t *testing.T) {
	h := securedRequest(securedRouter(SecurityOptions{NoStore: true, EnablePolicy: true}), "/anything", nil)
	if h.Get("Permissions-Policy") == "" || h.Get("X-Permitted-Cross-Domain-Policies") != "none" {
		t.Fatalf("policy headers missing: %#v", h)
	}
	if h.Get("Cache-Control") != "no-store" || h.Get("Pragma") != "no-cache" || h.Get("Expires") != "0" {
		t.Fatalf("no-store headers missing: %#v", h)
	}
}

func TestSecurityHeaders_NoStorePrefixes(t *testing.T) {
	r := securedRouter(SecurityOptions{NoStorePrefixes: []string{"/api/v1/tokens", " ", "/api/v1/admin"}})

	for path, noStore := range map[string]bool{
		"/api/v1/tokens":            true,
		"/api/v1/tokens/abc/redeem": true,
		"/api/v1/admin/users":       true,
		"/api/v1/catalog/search":    false,
		"/api/v1/users/1":           false,
		"/health":                   false,
	} {
		h := securedRequest(r, path, nil)
		if got := h.Get("Cache-Control") == "no-store"; got != noStore {
			t.Fatalf("%s: no-store=%v; want %v", path, got, noStore)
		}
	}
}

func Test_hasAnyPrefix(t *testing.T) {
	if hasAnyPrefix("/a/b", nil) {
		t.Fatal("no prefixes must not match")
	}
	if !hasAnyPrefix("/a/b", []string{"/x", "/a"}) {
		t.Fatal("expected match on /a")
	}
	if hasAnyPrefix("/ab", []string{"/b"}) {
		t.Fatal("unexpected match")
	}
}
