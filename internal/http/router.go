// Package httpapi wires the HTTP transport (Gin) to the services, middleware
// and handlers. It owns middleware ordering and the route table.
package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	_ "github.com/tbourn/anidl-backend/docs"
	"github.com/tbourn/anidl-backend/internal/config"
	"github.com/tbourn/anidl-backend/internal/http/handlers"
	"github.com/tbourn/anidl-backend/internal/http/middleware"
)

// Deps carries what the router needs from the composition root.
type Deps struct {
	Services handlers.Deps
	// Ping checks the store for /health; nil reports healthy.
	Ping func(ctx context.Context) error
}

// RegisterRoutes attaches middleware and endpoints to r.
//
// Middleware order:
//  1. OpenTelemetry
//  2. RequestID
//  3. UserIdentity and AdminAuth, so the logger and limiter see the caller
//  4. RedactingLogger (admin token header and token query values masked)
//  5. Recovery
//  6. Body size limiter
//  7. Metrics
//  8. Rate limiter (admin requests bypass it)
//  9. CORS, security headers, gzip
func RegisterRoutes(r *gin.Engine, deps Deps, cfg config.Config) {
	r.HandleMethodNotAllowed = true
	apiBase := cfg.APIBasePath

	r.Use(otelgin.Middleware(cfg.OTEL.ServiceName))
	r.Use(middleware.RequestID())
	r.Use(middleware.UserIdentity(), middleware.AdminAuth(cfg.AdminToken))
	r.Use(middleware.RedactingLogger(middleware.RedactOptions{
		MaskHeaders:     []string{middleware.HeaderAdminToken},
		MaskQueryParams: []string{"token"},
	}))
	r.Use(middleware.Recovery())
	r.Use(limitBody(1 << 20))

	r.Use(middleware.Metrics("/health", "/metrics"))
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	rl := middleware.NewRateLimiter(cfg.RateRPS, cfg.RateBurst, middleware.KeyByUserOrIP())
	r.Use(rl.Handler())

	r.Use(corsMiddleware(cfg.CORS.AllowedOrigins)...)
	r.Use(middleware.SecurityHeaders(middleware.SecurityOptions{
		EnableHSTS:      cfg.Security.EnableHSTS,
		HSTSMaxAge:      cfg.Security.HSTSMaxAge,
		NoStorePrefixes: []string{joinPath(apiBase, "/tokens"), joinPath(apiBase, "/admin")},
		EnablePolicy:    true,
	}))
	r.Use(gzip.Gzip(gzip.DefaultCompression, gzip.WithExcludedPaths([]string{"/metrics"})))

	r.NoRoute(func(c *gin.Context) {
		handlers.Fail(c, http.StatusNotFound, handlers.ErrCodeNotFound, "route not found")
	})
	r.NoMethod(func(c *gin.Context) {
		handlers.Fail(c, http.StatusMethodNotAllowed, handlers.ErrCodeMethodNotAllowed, "method not allowed")
	})

	r.GET("/health", health(deps.Ping))

	if cfg.SwaggerEnabled {
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	h := handlers.New(deps.Services)

	api := groupWithPrefix(r, apiBase)
	{
		// Catalog
		api.GET("/catalog/search", h.SearchCatalog)
		api.GET("/catalog/episodes", h.ListEpisodes)
		api.GET("/catalog/downloads", h.ListDownloads)
		api.GET("/catalog/titles/decode", h.DecodeTitle)
		api.GET("/catalog/titles/encode", h.EncodeTitle)

		// Tokens (acting user only)
		tokens := api.Group("/tokens", middleware.RequireUser())
		tokens.POST("", h.IssueToken)
		tokens.GET("/:token", h.GetToken)
		tokens.PUT("/:token/bindings", h.BindToken)
		tokens.POST("/:token/redeem", h.RedeemToken)

		// Users
		api.POST("/users", middleware.RequireUser(), h.RegisterUser)
		api.GET("/users/:id", middleware.RequireSelfOrAdmin("id"), h.GetUser)
		api.PUT("/users/:id/search-count", middleware.RequireSelfOrAdmin("id"), h.UpdateSearchCount)
		api.GET("/users/:id/ban", h.GetBanStatus)

		// Comments
		api.GET("/comments/:kind", h.GetComment)
		api.PUT("/comments/:kind", h.SaveComment)
	}

	if cfg.AdminToken != "" {
		admin := api.Group("/admin", middleware.RequireAdmin())
		admin.GET("/users", h.ListUsers)
		admin.DELETE("/users/:id", h.DeleteUser)
		admin.PUT("/users/:id/ban", h.BanUser)
		admin.DELETE("/users/:id/ban", h.UnbanUser)
		admin.POST("/tokens/cleanup", h.CleanupTokens)
	}
}

// health reports 200 when ping succeeds within two seconds, 503 otherwise.
func health(ping func(ctx context.Context) error) gin.HandlerFunc {
	return func(c *gin.Context) {
		if ping != nil {
			ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
			defer cancel()
			if err := ping(ctx); err != nil {
				middleware.LoggerFrom(c).Warn().Err(err).Msg("health check failed")
				handlers.Fail(c, http.StatusServiceUnavailable, handlers.ErrCodeUnavailable, "store unavailable")
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
}

// corsMiddleware allows every origin when none are configured, otherwise
// echoes allow-listed origins.
func corsMiddleware(origins []string) []gin.HandlerFunc {
	base := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", middleware.HeaderUserID, middleware.HeaderAdminToken},
		ExposeHeaders:    []string{"X-Request-ID", "Content-Length", "ETag"},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}

	if len(origins) == 0 {
		base.AllowAllOrigins = true
		// ACAO on every response, including requests without an Origin header.
		return []gin.HandlerFunc{
			func(c *gin.Context) {
				c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
				c.Next()
			},
			cors.New(base),
		}
	}

	allowed := make(map[string]struct{}, len(origins))
	for _, o := range origins {
		allowed[o] = struct{}{}
	}
	base.AllowOrigins = origins
	return []gin.HandlerFunc{
		func(c *gin.Context) {
			if origin := c.GetHeader("Origin"); origin != "" {
				if _, ok := allowed[origin]; ok {
					h := c.Writer.Header()
					h.Set("Access-Control-Allow-Origin", origin)
					h.Add("Vary", "Origin")
				}
			}
			c.Next()
		},
		cors.New(base),
	}
}

// limitBody caps request bodies at maxBytes; larger bodies fail on read.
func limitBody(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}

// groupWithPrefix mounts a group at prefix, treating "/" (or empty) as root.
func groupWithPrefix(r *gin.Engine, prefix string) *gin.RouterGroup {
	if prefix == "" || prefix == "/" {
		return r.Group("")
	}
	return r.Group(prefix)
}

func joinPath(base, p string) string {
	if base == "" || base == "/" {
		return p
	}
	return base + p
}
