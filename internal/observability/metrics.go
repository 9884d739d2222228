package observability

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
)

const namespace = "nem12_import"

// Metrics holds the Prometheus collectors for NEM12 conversions.
type Metrics struct {
	RecordsRead        *prometheus.CounterVec // labels: record_type
	HourlyRows         prometheus.Counter
	Warnings           *prometheus.CounterVec // labels: kind
	Conversions        *prometheus.CounterVec // labels: outcome={success,error}
	ConversionDuration prometheus.Histogram
	CumulativeEnergy   prometheus.Gauge

	registry *prometheus.Registry
}

func newMetrics() *Metrics {
	return &Metrics{
		RecordsRead: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_read_total",
			Help:      "NEM12 records read, by record type.",
		}, []string{"record_type"}),
		HourlyRows: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "hourly_rows_total",
			Help:      "Hourly statistic rows written to the sinks.",
		}),
		Warnings: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "warnings_total",
			Help:      "Recoverable input problems, by kind.",
		}, []string{"kind"}),
		Conversions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "conversions_total",
			Help:      "Completed conversion runs, by outcome.",
		}, []string{"outcome"}),
		ConversionDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "conversion_duration_seconds",
			Help:      "Duration of a complete file conversion.",
			Buckets:   []float64{0.005, 0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10},
		}),
		CumulativeEnergy: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "cumulative_energy_kwh",
			Help:      "Cumulative energy total at the end of the last conversion.",
		}),
	}
}

func (m *Metrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.RecordsRead,
		m.HourlyRows,
		m.Warnings,
		m.Conversions,
		m.ConversionDuration,
		m.CumulativeEnergy,
	}
}

// NewMetrics creates and registers all conversion metrics with the default
// Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(m.collectors()...)
	return m
}

// NewMetricsOn creates Metrics registered with reg instead of the default
// registry.
func NewMetricsOn(reg *prometheus.Registry) *Metrics {
	m := newMetrics()
	m.registry = reg
	m.registry.MustRegister(m.collectors()...)
	return m
}

// NewMetricsForTesting creates Metrics on a fresh registry to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return NewMetricsOn(prometheus.NewRegistry())
}

// Gatherer returns the registry the metrics were registered with.
func (m *Metrics) Gatherer() prometheus.Gatherer {
	if m.registry != nil {
		return m.registry
	}
	return prometheus.DefaultGatherer
}

// Push sends the current values to a Prometheus Pushgateway. One-shot CLI
// runs finish before any scrape could happen, so they push instead.
func (m *Metrics) Push(url, job string) error {
	if err := push.New(url, job).Gatherer(m.Gatherer()).Push(); err != nil {
		return fmt.Errorf("push metrics to %s: %w", url, err)
	}
	return nil
}
