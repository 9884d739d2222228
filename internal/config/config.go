package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
)

// Config holds all converter settings, populated from environment variables.
// CLI flags override individual fields after Load.
type Config struct {
	StatisticID           string
	DefaultIntervalLength int

	LogLevel  string
	LogFormat string

	HTTPAddr        string
	ShutdownTimeout time.Duration
	MaxUploadBytes  int64

	// Optional sinks; empty brokers or path disable them.
	KafkaBrokers   []string
	KafkaSinkTopic string
	KafkaBatchSize int
	SQLitePath     string

	MetricsPushURL string
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	intervalLength, err := parsePositiveInt("DEFAULT_INTERVAL_LENGTH", 30)
	if err != nil {
		return nil, err
	}
	if intervalLength > 60 {
		return nil, errors.New("invalid DEFAULT_INTERVAL_LENGTH: must be between 1 and 60 minutes")
	}

	kafkaBatchSize, err := parsePositiveInt("KAFKA_BATCH_SIZE", 100)
	if err != nil {
		return nil, err
	}

	maxUpload, err := parsePositiveInt("MAX_UPLOAD_BYTES", 32<<20)
	if err != nil {
		return nil, err
	}

	var brokers []string
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		brokers = sharedcfg.ParseBrokers(v)
	}

	cfg := &Config{
		StatisticID:           sharedcfg.EnvOrDefault("STATISTIC_ID", "sensor:power_usage"),
		DefaultIntervalLength: intervalLength,
		LogLevel:              sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:             sharedcfg.EnvOrDefault("LOG_FORMAT", "text"),
		HTTPAddr:              sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		ShutdownTimeout:       shutdownTimeout,
		MaxUploadBytes:        int64(maxUpload),
		KafkaBrokers:          brokers,
		KafkaSinkTopic:        sharedcfg.EnvOrDefault("KAFKA_SINK_TOPIC", "energy-statistics"),
		KafkaBatchSize:        kafkaBatchSize,
		SQLitePath:            os.Getenv("SQLITE_PATH"),
		MetricsPushURL:        os.Getenv("METRICS_PUSH_URL"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks settings that flags may have changed after Load.
func (c *Config) Validate() error {
	if c.StatisticID == "" {
		return errors.New("STATISTIC_ID is required")
	}
	if c.DefaultIntervalLength <= 0 || c.DefaultIntervalLength > 60 {
		return fmt.Errorf("invalid DEFAULT_INTERVAL_LENGTH %d: must be between 1 and 60 minutes", c.DefaultIntervalLength)
	}
	if len(c.KafkaBrokers) > 0 && c.KafkaSinkTopic == "" {
		return errors.New("KAFKA_SINK_TOPIC is required when KAFKA_BROKERS is set")
	}
	return nil
}

// KafkaEnabled reports whether rows should also be published to Kafka.
func (c *Config) KafkaEnabled() bool {
	return len(c.KafkaBrokers) > 0
}

// SQLiteEnabled reports whether rows should also be stored in SQLite.
func (c *Config) SQLiteEnabled() bool {
	return c.SQLitePath != ""
}

func parsePositiveInt(key string, def int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid %s %q: must be a positive integer", key, s)
	}
	return n, nil
}
