package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/okian/festa/internal/adapters/http/api"
	"github.com/okian/festa/internal/adapters/http/site"
	"github.com/okian/festa/internal/adapters/http/swagger"
	app "github.com/okian/festa/internal/app"
	"github.com/okian/festa/internal/config"
	"github.com/okian/festa/pkg/logger"
	"github.com/okian/festa/pkg/metrics"
)

// HTTP server timeout constants.
const (
	readTimeout       = 10 * time.Second
	writeTimeout      = 10 * time.Second
	idleTimeout       = 60 * time.Second
	readHeaderTimeout = 5 * time.Second
	shutdownTimeout   = 30 * time.Second
)

func main() {
	os.Exit(run())
}

func run() int {
	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Load configuration (defaults -> optional file -> env)
	cfg, err := config.Load()
	if err != nil {
		// Logger isn't available yet
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		return 1
	}

	if err := logger.Init(logger.WithFormat(cfg.LogFormat)); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		return 1
	}
	defer func() { _ = logger.Sync() }()
	log := logger.Get()

	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		log.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	configureMetrics(cfg)

	svc := newService(cfg, log)
	defer svc.Stop()

	// With fail_fast the process refuses to serve without data. Otherwise the
	// server comes up at once, loading runs once in the background, and
	// /readyz reports 503 until it has succeeded.
	if cfg.FailFast {
		if err := svc.Start(ctx); err != nil {
			log.Error(ctx, "failed to start service", logger.Error(err))
			return 1
		}
	} else {
		go func() {
			if err := svc.Start(ctx); err != nil {
				log.Error(ctx, "service is not ready; continuing without data", logger.Error(err))
			}
		}()
	}

	if err := metrics.StartSystemCollector(ctx); err != nil {
		log.Warn(ctx, "system metrics collector not started", logger.Error(err))
	}

	handler, err := newHandler(ctx, cfg, svc, log)
	if err != nil {
		log.Error(ctx, "failed to build HTTP routes", logger.Error(err))
		return 1
	}

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info(ctx, "starting HTTP server", logger.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	code := 0
	select {
	case <-ctx.Done():
	case err := <-serveErr:
		if err != nil {
			log.Error(ctx, "HTTP server failed", logger.Error(err))
			code = 1
		}
	}
	log.Info(ctx, "shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error(shutdownCtx, "server shutdown failed", logger.Error(err))
	}

	log.Info(shutdownCtx, "server stopped")
	return code
}

func newService(cfg *config.Config, log logger.Logger) *app.Service {
	return app.New(
		app.WithLogger(log),
		app.WithCatalog(cfg.CatalogPath, cfg.CatalogTable),
		app.WithArtifacts(cfg.MatrixPath, cfg.MappingPath),
		app.WithUnpopularDistricts(cfg.UnpopularDistricts),
		app.WithTopN(cfg.DefaultTopN, cfg.MaxTopN),
	)
}

// newHandler assembles the API, its documentation and the optional frontend.
// configureMetrics installs the global metrics manager from cfg. It must
// run before the service records anything and before /healthz is built.
func configureMetrics(cfg *config.Config) {
	metrics.Configure(
		metrics.WithMetricsEnabled(cfg.MetricsEnabled),
		metrics.WithRefreshInterval(cfg.MetricsRefreshInterval),
		metrics.WithCustomLabels(cfg.MetricsLabels),
		metrics.WithTrackBuckets(metrics.TrackBuckets(cfg.MaxTopN)),
	)
}

func newHandler(ctx context.Context, cfg *config.Config, svc *app.Service, log logger.Logger) (http.Handler, error) {
	apiServer := api.NewServer(svc, svc,
		api.WithLogger(log.Named("http")),
		api.WithCORSOrigins(cfg.CORSAllowedOrigins),
		api.WithRateLimit(cfg.RateLimitRequests, cfg.RateLimitWindow),
	)
	var r chi.Router = apiServer.Router(ctx)
	swagger.Register(ctx, r)
	if err := site.Register(ctx, r, cfg.StaticDir); err != nil {
		return nil, err
	}
	return r, nil
}
