package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	httpadapter "github.com/couchcryptid/nem12-statistics/internal/adapter/http"
	"github.com/couchcryptid/nem12-statistics/internal/adapter/sqlite"
	"github.com/couchcryptid/nem12-statistics/internal/config"
	"github.com/couchcryptid/nem12-statistics/internal/observability"
	"github.com/couchcryptid/nem12-statistics/internal/pipeline"
	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/spf13/cobra"
)

// alwaysReady is used when the server has no downstream dependency.
type alwaysReady struct{}

func (alwaysReady) CheckReadiness(context.Context) error { return nil }

func runServe(cmd *cobra.Command, cfg *config.Config, metrics *observability.Metrics) error {
	ctx := cmd.Context()
	logger := observability.NewLogger(cfg, cmd.ErrOrStderr())

	var ready sharedobs.ReadinessChecker = alwaysReady{}
	settings := httpadapter.ConvertSettings{
		StatisticID:           cfg.StatisticID,
		DefaultIntervalLength: cfg.DefaultIntervalLength,
		MaxUploadBytes:        cfg.MaxUploadBytes,
	}

	if cfg.SQLiteEnabled() {
		db, err := sqlite.InitDB(cfg.SQLitePath)
		if err != nil {
			return err
		}
		defer db.Close()
		ready = sqlite.NewStore(db, "")
		settings.NewStore = func(importID string) httpadapter.ImportStore {
			return sqlite.NewStore(db, importID)
		}
		logger.Info("sqlite store enabled", "path", cfg.SQLitePath)
	}
	if cfg.KafkaEnabled() {
		logger.Warn("kafka sink is not used in serve mode")
	}

	conv := pipeline.NewConverter(logger, metrics)
	srv := httpadapter.NewServer(cfg.HTTPAddr, ready, conv, settings, metrics.Gatherer(), logger)

	errCh := make(chan error, 1)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	}
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}

	logger.Info("shutdown complete")
	return nil
}
