// Package config provides application configuration loaded from environment
// variables with defaults and validation. It centralizes server timeouts,
// logging, the store backend, the scraper and page cache, token lifetimes,
// admin access, rate limiting, and observability.
package config

import (
	"errors"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

// CORSConfig defines Cross-Origin Resource Sharing settings.
type CORSConfig struct {
	AllowedOrigins []string
}

// SecurityConfig defines security-related settings such as HSTS.
type SecurityConfig struct {
	EnableHSTS bool
	HSTSMaxAge time.Duration
}

// OTELConfig defines OpenTelemetry observability settings.
type OTELConfig struct {
	Enabled     bool    // OTEL_ENABLED
	Endpoint    string  // OTEL_EXPORTER_OTLP_ENDPOINT (e.g. "otel:4317")
	Insecure    bool    // OTEL_EXPORTER_OTLP_INSECURE (true if no TLS)
	ServiceName string  // OTEL_SERVICE_NAME (e.g. "anidl-backend")
	SampleRatio float64 // OTEL_TRACES_SAMPLER_ARG in [0..1]
}

// StoreConfig selects and addresses the persistence backend.
type StoreConfig struct {
	Driver        string // STORE_DRIVER: sqlite|mongo
	DBPath        string // DB_PATH (sqlite)
	MongoURI      string // MONGO_URI
	MongoDatabase string // MONGO_DATABASE
}

// ScraperConfig configures upstream page fetching.
type ScraperConfig struct {
	BaseURL      string        // SCRAPER_BASE_URL
	WorkerURL    string        // SCRAPER_WORKER_URL (optional relay)
	SearchPath   string        // SCRAPER_SEARCH_PATH, one %s for the query
	FetchTimeout time.Duration // SCRAPER_FETCH_TIMEOUT, must be > 0
	UserAgents   []string      // SCRAPER_USER_AGENTS (CSV), overrides the tables file
}

// CacheConfig configures the Redis page cache. An empty Addr disables it.
type CacheConfig struct {
	RedisAddr     string        // REDIS_ADDR
	RedisPassword string        // REDIS_PASSWORD
	RedisDB       int           // REDIS_DB
	PageTTL       time.Duration // PAGE_CACHE_TTL
}

// TokenConfig configures the verification-token lifecycle.
type TokenConfig struct {
	Length          int           // TOKEN_LENGTH
	TTL             time.Duration // TOKEN_TTL
	CleanupAge      time.Duration // TOKEN_CLEANUP_AGE
	CleanupInterval time.Duration // TOKEN_CLEANUP_INTERVAL, 0 disables the in-process sweep
}

// Config holds all configuration values for the application.
type Config struct {
	// Server
	Port              string        // just the number
	ReadTimeout       time.Duration // e.g. 15s
	ReadHeaderTimeout time.Duration // e.g. 10s
	WriteTimeout      time.Duration // e.g. 20s
	IdleTimeout       time.Duration // e.g. 60s
	MaxHeaderBytes    int           // bytes
	GinMode           string        // debug|release|test

	// Logging / Docs
	LogLevel       string // debug|info|warn|error|fatal|panic
	LogPretty      bool   // pretty console logs in dev
	SwaggerEnabled bool   // enable Swagger UI route
	APIBasePath    string // base path for API routes

	// App
	Store      StoreConfig
	Scraper    ScraperConfig
	Cache      CacheConfig
	Tokens     TokenConfig
	AdminToken string // ADMIN_TOKEN, empty disables the admin routes
	TablesPath string // TABLES_PATH, optional TOML file with static tables

	// Rate limiting
	RateRPS   float64 // tokens per second (>= 0)
	RateBurst int     // bucket size (>= 1)

	// Web protection
	CORS     CORSConfig
	Security SecurityConfig

	// Observability
	OTEL OTELConfig
}

// MustLoad loads the configuration and panics if validation fails.
func MustLoad() Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

// Load reads configuration from environment variables,
// applies defaults, normalizes values, and validates the result.
func Load() (Config, error) {
	cfg := Config{
		// Server
		Port:              getenv("PORT", "8080"),
		ReadTimeout:       getdur("READ_TIMEOUT", 15*time.Second),
		ReadHeaderTimeout: getdur("READ_HEADER_TIMEOUT", 10*time.Second),
		WriteTimeout:      getdur("WRITE_TIMEOUT", 20*time.Second),
		IdleTimeout:       getdur("IDLE_TIMEOUT", 60*time.Second),
		MaxHeaderBytes:    getint("MAX_HEADER_BYTES", 1<<20),
		GinMode:           strings.ToLower(getenv("GIN_MODE", "release")),

		// Logging / Docs
		LogLevel:       strings.ToLower(getenv("LOG_LEVEL", "info")),
		LogPretty:      getbool("LOG_PRETTY", false),
		SwaggerEnabled: getbool("SWAGGER_ENABLED", false),
		APIBasePath:    normalizeBasePath(getenv("API_BASE_PATH", "/api/v1")),

		// App
		Store: StoreConfig{
			Driver:        strings.ToLower(getenv("STORE_DRIVER", "sqlite")),
			DBPath:        getenv("DB_PATH", "anidl.db"),
			MongoURI:      getenv("MONGO_URI", "mongodb://localhost:27017"),
			MongoDatabase: getenv("MONGO_DATABASE", "anidl"),
		},
		Scraper: ScraperConfig{
			BaseURL:      strings.TrimRight(getenv("SCRAPER_BASE_URL", "https://www.tokyoinsider.com"), "/"),
			WorkerURL:    getenv("SCRAPER_WORKER_URL", ""),
			SearchPath:   getenv("SCRAPER_SEARCH_PATH", "/anime/search?k=%s"),
			FetchTimeout: getdur("SCRAPER_FETCH_TIMEOUT", 20*time.Second),
			UserAgents:   splitCSV(getenv("SCRAPER_USER_AGENTS", "")),
		},
		Cache: CacheConfig{
			RedisAddr:     getenv("REDIS_ADDR", ""),
			RedisPassword: getenv("REDIS_PASSWORD", ""),
			RedisDB:       getint("REDIS_DB", 0),
			PageTTL:       getdur("PAGE_CACHE_TTL", 10*time.Minute),
		},
		Tokens: TokenConfig{
			Length:          getint("TOKEN_LENGTH", 16),
			TTL:             getdur("TOKEN_TTL", 24*time.Hour),
			CleanupAge:      getdur("TOKEN_CLEANUP_AGE", time.Hour),
			CleanupInterval: getdur("TOKEN_CLEANUP_INTERVAL", 10*time.Minute),
		},
		AdminToken: getenv("ADMIN_TOKEN", ""),
		TablesPath: getenv("TABLES_PATH", ""),

		// Rate limiting
		RateRPS:   getfloat("RATE_RPS", 5.0),
		RateBurst: getint("RATE_BURST", 10),

		// Web protection
		CORS: CORSConfig{
			AllowedOrigins: splitCSV(getenv("CORS_ALLOWED_ORIGINS", "")),
		},
		Security: SecurityConfig{
			EnableHSTS: getbool("ENABLE_HSTS", false),
			HSTSMaxAge: getdur("HSTS_MAX_AGE", 180*24*time.Hour),
		},

		// Observability (OpenTelemetry)
		OTEL: OTELConfig{
			Enabled:     getbool("OTEL_ENABLED", false),
			Endpoint:    getenv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
			Insecure:    getbool("OTEL_EXPORTER_OTLP_INSECURE", true),
			ServiceName: getenv("OTEL_SERVICE_NAME", "anidl-backend"),
			SampleRatio: getfloat("OTEL_TRACES_SAMPLER_ARG", 1.0),
		},
	}

	// --- normalization ---
	if cfg.LogLevel == "warning" {
		cfg.LogLevel = "warn"
	}
	switch cfg.GinMode {
	case "debug", "release", "test":
	default:
		cfg.GinMode = "release"
	}

	// --- validation ---
	switch cfg.LogLevel {
	case "debug", "info", "warn", "error", "fatal", "panic":
	default:
		return cfg, errors.New("LOG_LEVEL must be one of: debug, info, warn, error, fatal, panic")
	}
	if strings.TrimSpace(cfg.Port) == "" {
		return cfg, errors.New("PORT must not be empty")
	}
	if cfg.ReadTimeout <= 0 || cfg.ReadHeaderTimeout <= 0 || cfg.WriteTimeout <= 0 || cfg.IdleTimeout <= 0 {
		return cfg, errors.New("timeouts must be positive durations")
	}
	if cfg.MaxHeaderBytes <= 0 {
		return cfg, errors.New("MAX_HEADER_BYTES must be > 0")
	}
	switch cfg.Store.Driver {
	case "sqlite":
		if strings.TrimSpace(cfg.Store.DBPath) == "" {
			return cfg, errors.New("DB_PATH must not be empty")
		}
	case "mongo":
		if strings.TrimSpace(cfg.Store.MongoURI) == "" || strings.TrimSpace(cfg.Store.MongoDatabase) == "" {
			return cfg, errors.New("MONGO_URI and MONGO_DATABASE must not be empty")
		}
	default:
		return cfg, errors.New("STORE_DRIVER must be one of: sqlite, mongo")
	}
	if v, ok := os.LookupEnv("SCRAPER_FETCH_TIMEOUT"); ok && v != "" {
		if _, err := time.ParseDuration(v); err != nil {
			return cfg, errors.New("SCRAPER_FETCH_TIMEOUT must be a duration")
		}
	}
	if cfg.Scraper.FetchTimeout <= 0 {
		return cfg, errors.New("SCRAPER_FETCH_TIMEOUT must be > 0")
	}
	if u, err := url.Parse(cfg.Scraper.BaseURL); err != nil || u.Host == "" {
		return cfg, errors.New("SCRAPER_BASE_URL must be an absolute URL")
	}
	if strings.Count(cfg.Scraper.SearchPath, "%s") != 1 {
		return cfg, errors.New("SCRAPER_SEARCH_PATH must contain exactly one %s")
	}
	if cfg.Cache.PageTTL < 0 {
		return cfg, errors.New("PAGE_CACHE_TTL must be >= 0")
	}
	if cfg.Tokens.Length < 8 || cfg.Tokens.Length > 64 {
		return cfg, errors.New("TOKEN_LENGTH must be between 8 and 64")
	}
	if cfg.Tokens.TTL <= 0 || cfg.Tokens.CleanupAge <= 0 {
		return cfg, errors.New("TOKEN_TTL and TOKEN_CLEANUP_AGE must be > 0")
	}
	if cfg.Tokens.CleanupInterval < 0 {
		return cfg, errors.New("TOKEN_CLEANUP_INTERVAL must be >= 0")
	}
	if cfg.RateRPS < 0 {
		return cfg, errors.New("RATE_RPS must be >= 0")
	}
	if cfg.RateBurst < 1 {
		return cfg, errors.New("RATE_BURST must be >= 1")
	}
	if cfg.Security.HSTSMaxAge < 0 {
		return cfg, errors.New("HSTS_MAX_AGE must be >= 0")
	}
	if cfg.OTEL.SampleRatio < 0 || cfg.OTEL.SampleRatio > 1 {
		return cfg, errors.New("OTEL_TRACES_SAMPLER_ARG must be in [0,1]")
	}
	return cfg, nil
}

// ---- helpers (no external deps) ----

func getenv(k, def string) string {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		return v
	}
	return def
}

func getfloat(k string, def float64) float64 {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func getint(k string, def int) int {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func getbool(k string, def bool) bool {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "1", "true", "yes", "y", "on":
			return true
		case "0", "false", "no", "n", "off":
			return false
		}
	}
	return def
}

func getdur(k string, def time.Duration) time.Duration {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func splitCSV(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		t := strings.TrimSpace(p)
		if t != "" {
			out = append(out, t)
		}
	}
	return out
}

// normalizeBasePath ensures leading '/' and strips trailing '/' (except root).
func normalizeBasePath(p string) string {
	p = strings.TrimSpace(p)
	if p == "" {
		return "/"
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	if len(p) > 1 && strings.HasSuffix(p, "/") {
		p = strings.TrimRight(p, "/")
	}
	return p
}
