package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel/attribute"

	"github.com/tbourn/anidl-backend/internal/config"
	httpapi "github.com/tbourn/anidl-backend/internal/http"
	"github.com/tbourn/anidl-backend/internal/observability"
	"github.com/tbourn/anidl-backend/internal/services"
	"github.com/tbourn/anidl-backend/internal/sysutil"
)

const shutdownTimeout = 10 * time.Second

func newServeCommand(ctx *commandContext) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), ctx, sysutil.FirstNonEmpty(addr, ":"+ctx.cfg.Port))
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (defaults to :$PORT)")
	return cmd
}

func runServe(parent context.Context, cc *commandContext, addr string) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	cfg := cc.cfg

	shutdownOTel, err := observability.SetupOTel(ctx, cfg.OTEL, version,
		attribute.String("store.driver", cfg.Store.Driver))
	if err != nil {
		return err
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := shutdownOTel(sctx); err != nil {
			log.Warn().Err(err).Msg("otel shutdown")
		}
	}()

	a, err := buildApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.close(context.Background())

	gin.SetMode(cfg.GinMode)
	r := gin.New()
	httpapi.RegisterRoutes(r, httpapi.Deps{Services: a.deps, Ping: a.store.Ping}, cfg)

	srv := newHTTPServer(parent, addr, r, cfg)

	go sweepLoop(ctx, a.tokens, cfg.Tokens.CleanupInterval)

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", addr).Str("version", version).Msg("http server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return err
		}
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down")
	sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(sctx)
}

// newHTTPServer builds the API server. Request contexts derive from base
// without its cancellation, so a shutdown signal lets Shutdown drain
// in-flight requests instead of cancelling them.
func newHTTPServer(base context.Context, addr string, h http.Handler, cfg config.Config) *http.Server {
	reqBase := context.WithoutCancel(base)
	return &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
		MaxHeaderBytes:    cfg.MaxHeaderBytes,
		BaseContext:       func(net.Listener) context.Context { return reqBase },
	}
}

// sweepLoop deletes stale tokens every interval until ctx ends. A zero
// interval disables it.
func sweepLoop(ctx context.Context, tokens *services.TokenService, interval time.Duration) {
	if interval <= 0 {
		return
	}
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			n, err := tokens.Cleanup(ctx)
			if err != nil {
				if !errors.Is(err, context.Canceled) {
					log.Error().Err(err).Msg("token sweep failed")
				}
				continue
			}
			if n > 0 {
				log.Info().Int64("deleted", n).Msg("token sweep")
			}
		}
	}
}
