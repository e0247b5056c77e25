package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/sandeepkv93/account-verification-service/internal/config"
	"github.com/sandeepkv93/account-verification-service/internal/database"
	"github.com/sandeepkv93/account-verification-service/internal/health"
	"github.com/sandeepkv93/account-verification-service/internal/observability"
)

const (
	defaultShutdownTimeout      = 20 * time.Second
	defaultHTTPDrainTimeout     = 10 * time.Second
	defaultObservabilityTimeout = 8 * time.Second
)

type App struct {
	Config        *config.Config
	Logger        *slog.Logger
	Server        *http.Server
	Observability *observability.Runtime
	Store         *database.AccountStore
	Readiness     *health.ProbeRunner
}

func New(cfg *config.Config, logger *slog.Logger, server *http.Server, runtime *observability.Runtime, store *database.AccountStore, readiness *health.ProbeRunner) *App {
	return &App{Config: cfg, Logger: logger, Server: server, Observability: runtime, Store: store, Readiness: readiness}
}

// Run serves until ctx is cancelled, then shuts down in stages.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		a.Logger.Info("server starting", "addr", a.Server.Addr, "store", a.Store.Driver)
		if err := a.Server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			_ = a.Shutdown(context.Background())
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}
	return a.Shutdown(context.Background())
}

// Shutdown drains HTTP first, then flushes telemetry, then closes the store.
// Each stage has its own budget carved out of the total.
func (a *App) Shutdown(parent context.Context) error {
	total := durationOr(a.Config.ShutdownTimeout, defaultShutdownTimeout)
	totalCtx, cancel := context.WithTimeout(parent, total)
	defer cancel()

	var errs []error

	if a.Server != nil {
		httpCtx, httpCancel := context.WithTimeout(totalCtx, durationOr(a.Config.ShutdownHTTPDrainTimeout, defaultHTTPDrainTimeout))
		if err := a.Server.Shutdown(httpCtx); err != nil {
			a.Logger.Error("failed to shutdown http server", "error", err)
			errs = append(errs, err)
		}
		httpCancel()
	}

	if a.Observability != nil {
		obsCtx, obsCancel := context.WithTimeout(totalCtx, durationOr(a.Config.ShutdownObservabilityTimeout, defaultObservabilityTimeout))
		if err := a.Observability.Shutdown(obsCtx); err != nil {
			a.Logger.Error("failed to shutdown observability", "error", err)
			errs = append(errs, err)
		}
		obsCancel()
	}

	if err := a.Store.Close(); err != nil {
		a.Logger.Error("failed to close account store", "error", err)
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func durationOr(v, fallback time.Duration) time.Duration {
	if v <= 0 {
		return fallback
	}
	return v
}
