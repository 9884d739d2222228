package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/couchcryptid/nem12-statistics/internal/config"
	"github.com/couchcryptid/nem12-statistics/internal/observability"
	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
	"github.com/spf13/cobra"
)

// flags holds command-line overrides. Unset flags leave the environment
// configuration untouched.
type flags struct {
	output         string
	statisticID    string
	intervalLength int
	sqlitePath     string
	kafkaBrokers   string
	pushURL        string
	addr           string
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	root := newRootCmd(observability.NewMetrics())
	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		stop()
		os.Exit(1)
	}
}

func newRootCmd(metrics *observability.Metrics) *cobra.Command {
	var f flags

	root := &cobra.Command{
		Use:   "nem12import <input_file>",
		Short: "Convert NEM12 interval data to Home Assistant statistics",
		Long: `nem12import reads a NEM12 meter data file and writes one row per hour in the
Home Assistant statistics import format, carrying a running kWh total.

Examples:
  nem12import meter.csv -o statistics.csv
  nem12import meter.csv -s sensor:grid_import --sqlite statistics.db`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, &f)
			if err != nil {
				return err
			}
			return runConvert(cmd, cfg, metrics, args[0], f.output)
		},
	}

	pf := root.PersistentFlags()
	pf.StringVarP(&f.statisticID, "statistic-id", "s", "sensor:power_usage", "statistic id written to every row")
	pf.IntVar(&f.intervalLength, "interval-length", 30, "interval length in minutes used until a 200 record sets one")
	pf.StringVar(&f.sqlitePath, "sqlite", "", "also store rows in this SQLite database")
	pf.StringVar(&f.kafkaBrokers, "kafka-brokers", "", "also publish rows to these comma-separated Kafka brokers")
	pf.StringVar(&f.pushURL, "push-url", "", "push run metrics to this Prometheus Pushgateway")

	root.Flags().StringVarP(&f.output, "output", "o", "", "output file (default stdout)")

	serve := &cobra.Command{
		Use:   "serve",
		Short: "Serve conversions over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd, &f)
			if err != nil {
				return err
			}
			return runServe(cmd, cfg, metrics)
		},
	}
	serve.Flags().StringVar(&f.addr, "addr", ":8080", "listen address")
	root.AddCommand(serve)

	return root
}

// loadConfig reads the environment and applies flags the user set explicitly.
func loadConfig(cmd *cobra.Command, f *flags) (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	set := cmd.Flags()
	if set.Changed("statistic-id") {
		cfg.StatisticID = f.statisticID
	}
	if set.Changed("interval-length") {
		cfg.DefaultIntervalLength = f.intervalLength
	}
	if set.Changed("sqlite") {
		cfg.SQLitePath = f.sqlitePath
	}
	if set.Changed("kafka-brokers") {
		cfg.KafkaBrokers = sharedcfg.ParseBrokers(f.kafkaBrokers)
	}
	if set.Changed("push-url") {
		cfg.MetricsPushURL = f.pushURL
	}
	if set.Changed("addr") {
		cfg.HTTPAddr = f.addr
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
