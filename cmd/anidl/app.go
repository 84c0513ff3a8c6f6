package main

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/tbourn/anidl-backend/internal/config"
	"github.com/tbourn/anidl-backend/internal/http/handlers"
	"github.com/tbourn/anidl-backend/internal/mongostore"
	"github.com/tbourn/anidl-backend/internal/repo"
	"github.com/tbourn/anidl-backend/internal/scraper"
	"github.com/tbourn/anidl-backend/internal/services"
	"github.com/tbourn/anidl-backend/internal/sysutil"
)

// store is satisfied by both persistence backends.
type store interface {
	services.TokenStore
	services.TokenVerifier
	services.UserStore
	services.CommentStore
	Ping(ctx context.Context) error
	Close(ctx context.Context) error
}

var (
	_ store = (*repo.Store)(nil)
	_ store = (*mongostore.Store)(nil)
)

// openStore connects the backend selected by STORE_DRIVER and prepares its
// schema or indexes.
func openStore(ctx context.Context, cfg config.StoreConfig) (store, error) {
	switch cfg.Driver {
	case "mongo":
		s, err := mongostore.Connect(ctx, cfg.MongoURI, cfg.MongoDatabase)
		if err != nil {
			return nil, err
		}
		log.Info().Str("database", cfg.MongoDatabase).Msg("connected to mongo")
		return s, nil
	case "sqlite", "":
		s, err := repo.Open(cfg.DBPath)
		if err != nil {
			return nil, fmt.Errorf("open sqlite %s: %w", cfg.DBPath, err)
		}
		log.Info().Str("path", cfg.DBPath).Msg("opened sqlite")
		return s, nil
	}
	return nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
}

// newTokenService configures token lifetimes from cfg.
func newTokenService(s store, cfg config.TokenConfig) *services.TokenService {
	svc := services.NewTokenService(s, s)
	svc.Length = cfg.Length
	svc.TTL = cfg.TTL
	svc.CleanupAge = cfg.CleanupAge
	return svc
}

// app holds what serve needs and what must be released afterwards.
type app struct {
	store  store
	tokens *services.TokenService
	deps   handlers.Deps
	redis  *redis.Client
}

func (a *app) close(ctx context.Context) {
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			log.Warn().Err(err).Msg("redis close")
		}
	}
	if err := a.store.Close(ctx); err != nil {
		log.Warn().Err(err).Msg("store close")
	}
}

// buildApp wires the store, the scraper chain and the services.
//
// User-Agent precedence: SCRAPER_USER_AGENTS, then the tables file, then the
// built-in pool.
func buildApp(ctx context.Context, cfg config.Config) (*app, error) {
	tables, err := config.LoadTables(cfg.TablesPath)
	if err != nil {
		return nil, err
	}

	s, err := openStore(ctx, cfg.Store)
	if err != nil {
		return nil, err
	}
	a := &app{store: s}

	uas := sysutil.FirstNonEmptyList(cfg.Scraper.UserAgents, tables.UserAgents, scraper.DefaultUserAgents)
	httpFetcher, err := scraper.NewHTTPFetcher(cfg.Scraper.BaseURL, cfg.Scraper.WorkerURL, uas, cfg.Scraper.FetchTimeout)
	if err != nil {
		a.close(ctx)
		return nil, err
	}
	var fetcher scraper.Fetcher = httpFetcher

	if cfg.Cache.RedisAddr != "" {
		a.redis = redis.NewClient(&redis.Options{
			Addr:     cfg.Cache.RedisAddr,
			Password: cfg.Cache.RedisPassword,
			DB:       cfg.Cache.RedisDB,
		})
		if err := a.redis.Ping(ctx).Err(); err != nil {
			// The cache is optional; CachingFetcher bypasses it on errors.
			log.Warn().Err(err).Str("addr", cfg.Cache.RedisAddr).Msg("redis unreachable, page cache degraded")
		}
		fetcher = &scraper.CachingFetcher{
			Next:  httpFetcher,
			Cache: scraper.NewRedisPageCache(a.redis, "anidl"),
			TTL:   cfg.Cache.PageTTL,
		}
	}

	replacer := tables.Replacer()
	catalog := services.NewCatalogService(fetcher, cfg.Scraper.BaseURL, replacer)
	catalog.SearchPath = cfg.Scraper.SearchPath

	a.tokens = newTokenService(s, cfg.Tokens)
	a.deps = handlers.Deps{
		Tokens:   a.tokens,
		Users:    services.NewUserService(s),
		Comments: services.NewCommentService(s),
		Catalog:  catalog,
		Titles:   replacer,
	}
	return a, nil
}
