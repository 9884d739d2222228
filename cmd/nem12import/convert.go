package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/couchcryptid/nem12-statistics/internal/adapter/csvfile"
	kafkaadapter "github.com/couchcryptid/nem12-statistics/internal/adapter/kafka"
	"github.com/couchcryptid/nem12-statistics/internal/adapter/sqlite"
	"github.com/couchcryptid/nem12-statistics/internal/config"
	"github.com/couchcryptid/nem12-statistics/internal/observability"
	"github.com/couchcryptid/nem12-statistics/internal/pipeline"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

const pushJob = "nem12import"

func runConvert(cmd *cobra.Command, cfg *config.Config, metrics *observability.Metrics, input, output string) error {
	ctx := cmd.Context()
	logger := observability.NewLogger(cfg, cmd.ErrOrStderr())

	in, err := os.Open(input)
	if err != nil {
		return fmt.Errorf("open input: %w", err)
	}
	defer in.Close()

	var (
		out     io.Writer = cmd.OutOrStdout()
		outFile *os.File
		dest    = "stdout"
	)
	if output != "" && output != "-" {
		outFile, err = os.Create(output)
		if err != nil {
			return fmt.Errorf("create output: %w", err)
		}
		defer outFile.Close()
		out, dest = outFile, output
	}

	importID := uuid.NewString()
	csvOut := csvfile.NewWriter(out)
	sinks := pipeline.MultiSink{csvOut}

	var store *sqlite.Store
	if cfg.SQLiteEnabled() {
		db, err := sqlite.InitDB(cfg.SQLitePath)
		if err != nil {
			return err
		}
		defer db.Close()
		store = sqlite.NewStore(db, importID)
		sinks = append(sinks, store)
		logger.Info("sqlite sink enabled", "path", cfg.SQLitePath)
	}

	if cfg.KafkaEnabled() {
		writer := kafkaadapter.NewWriter(cfg, logger)
		defer func() {
			if err := writer.Close(); err != nil {
				logger.Error("kafka writer close error", "error", err)
			}
		}()
		sinks = append(sinks, writer)
		logger.Info("kafka sink enabled", "brokers", cfg.KafkaBrokers, "topic", cfg.KafkaSinkTopic)
	}

	conv := pipeline.NewConverter(logger, metrics)
	summary, err := conv.Convert(ctx, csvfile.NewReader(in), sinks, pipeline.Options{
		StatisticID:           cfg.StatisticID,
		DefaultIntervalLength: cfg.DefaultIntervalLength,
		Source:                input,
		ImportID:              importID,
	})
	pushMetrics(cfg, metrics, logger)
	if err != nil {
		// Rows already written stay in the output and end on a row boundary.
		// The other sinks are left unflushed.
		if ferr := csvOut.Flush(ctx); ferr != nil {
			logger.Warn("flush partial output failed", "error", ferr)
		}
		return fmt.Errorf("convert %s: %w", input, err)
	}

	if store != nil {
		if err := store.RecordImport(ctx, summary); err != nil {
			return err
		}
	}

	if outFile != nil {
		if err := outFile.Close(); err != nil {
			return fmt.Errorf("close output: %w", err)
		}
	}

	fmt.Fprintf(cmd.ErrOrStderr(), "Conversion complete! Output written to %s\n", dest)
	return nil
}

// pushMetrics is best-effort: a missing Pushgateway never fails a conversion.
func pushMetrics(cfg *config.Config, metrics *observability.Metrics, logger *slog.Logger) {
	if cfg.MetricsPushURL == "" {
		return
	}
	if err := metrics.Push(cfg.MetricsPushURL, pushJob); err != nil {
		logger.Warn("metrics push failed", "error", err)
	}
}
