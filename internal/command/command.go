// Package command holds the start-up and shutdown sequence shared by the
// ndfd-* job commands.
package command

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/couchcryptid/ndfd-forecast-etl/internal/adapter/httpadapter"
	"github.com/couchcryptid/ndfd-forecast-etl/internal/config"
	"github.com/couchcryptid/ndfd-forecast-etl/internal/observability"
	"github.com/couchcryptid/ndfd-forecast-etl/internal/pipeline"
	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
)

// Env is the configured runtime of one command invocation.
type Env struct {
	Config  *config.Config
	Logger  *slog.Logger
	Metrics *observability.Metrics
}

// Setup loads configuration and builds the logger and metrics.
func Setup() (*Env, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	return &Env{
		Config:  cfg,
		Logger:  sharedobs.NewLogger(cfg.LogLevel, cfg.LogFormat),
		Metrics: observability.NewMetrics(),
	}, nil
}

// Run executes job under a context cancelled by SIGINT or SIGTERM. While the
// job runs, the status server listens on HTTP_ADDR if it is set. Run returns
// the process exit code.
func (e *Env) Run(name string, status *pipeline.Status, job func(ctx context.Context) error) int {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var srv *httpadapter.Server
	if e.Config.HTTPAddr != "" {
		srv = httpadapter.NewServer(e.Config.HTTPAddr, status, func() any { return status.Snapshot() }, e.Logger)
		go func() {
			if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				e.Logger.Error("http server error", "error", err)
			}
		}()
	}

	err := job(ctx)

	if srv != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), e.Config.ShutdownTimeout)
		defer cancel()
		if serr := srv.Shutdown(shutdownCtx); serr != nil {
			e.Logger.Error("http server shutdown error", "error", serr)
		}
	}

	switch {
	case err == nil:
		e.Logger.Info(name+" complete", "status", status.Snapshot())
		return 0
	case ctx.Err() != nil:
		e.Logger.Warn(name+" interrupted", "error", err)
		return 130
	default:
		e.Logger.Error(name+" failed", "error", err)
		return 1
	}
}
