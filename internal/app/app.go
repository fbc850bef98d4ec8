// Package app provides the top-level application lifecycle for the
// marketfeed connector. It wires together the downstream sinks, the exchange
// feeds and the diagnostic server, and supervises them until shutdown.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/quantex/marketfeed/internal/config"
	"github.com/quantex/marketfeed/internal/server"
	"github.com/quantex/marketfeed/internal/server/handler"
)

// Version is the service version reported by the liveness endpoint. Set at
// build time via -ldflags.
var Version = "dev"

// ServiceName identifies this connector to monitoring.
const ServiceName = "marketfeed"

// App is the root application object. It owns the configuration, logger, and
// a list of cleanup functions that are called in reverse order on shutdown.
type App struct {
	cfg     *config.Config
	logger  *slog.Logger
	closers []func()
}

// New creates a new App from the given configuration and logger.
func New(cfg *config.Config, logger *slog.Logger) *App {
	return &App{
		cfg:    cfg,
		logger: logger.With(slog.String("component", "app")),
	}
}

// Run is the main entry point. It wires all dependencies, starts the feeds
// and the server, and blocks until the context is cancelled. On return it
// runs all registered cleanup functions.
func (a *App) Run(ctx context.Context) error {
	a.logger.InfoContext(ctx, "starting application",
		slog.String("log_level", a.cfg.LogLevel),
		slog.Bool("fake_exchanges", a.cfg.FakeExchanges.Enabled),
	)

	deps, cleanup, err := Wire(ctx, a.cfg, a.logger)
	if err != nil {
		return fmt.Errorf("app: wire dependencies: %w", err)
	}
	a.closers = append(a.closers, cleanup)

	g, ctx := errgroup.WithContext(ctx)

	if deps.Archive != nil {
		g.Go(func() error { return deps.Archive.Run(ctx) })
	}

	pipelines, err := a.startFeeds(ctx, g, deps)
	if err != nil {
		return fmt.Errorf("app: start feeds: %w", err)
	}

	if a.cfg.Server.Enabled {
		redacted := config.RedactedConfig(a.cfg)
		srv := server.NewServer(
			server.Config{Port: a.cfg.Server.Port},
			server.Handlers{
				Health:   handler.NewHealthHandler(ServiceName, Version),
				Settings: handler.NewSettingsHandler(redacted),
				State:    handler.NewStateHandler(pipelines, deps.Socket),
			},
			a.logger.With(slog.String("component", "server")),
		)
		g.Go(srv.Start)
		g.Go(func() error {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})
	}

	return g.Wait()
}

// Close tears down all resources in reverse registration order. It is safe
// to call multiple times; subsequent calls are no-ops.
func (a *App) Close() {
	a.logger.Info("shutting down application")
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
