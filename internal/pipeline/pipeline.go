package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/couchcryptid/nem12-statistics/internal/domain"
	"github.com/couchcryptid/nem12-statistics/internal/observability"
	"github.com/google/uuid"
)

// RecordSource yields NEM12 records as field rows in file order. Next returns
// io.EOF after the last record.
type RecordSource interface {
	Next() ([]string, error)
}

// RowSink receives hourly statistics in emission order.
type RowSink interface {
	WriteRow(ctx context.Context, row domain.HourlyStatistic) error
	Flush(ctx context.Context) error
}

// Options configures a conversion run.
type Options struct {
	StatisticID           string
	DefaultIntervalLength int

	// Source names the input for logs and the import record, e.g. a file path.
	Source string

	// ImportID tags the run; a random UUID is used when empty.
	ImportID string
}

// Summary describes a finished conversion run.
type Summary struct {
	ImportID       string
	StatisticID    string
	Source         string
	RecordsRead    map[domain.RecordType]int
	DataRecords    int
	HourlyRows     int
	IntervalLength int
	FinalTotal     float64
	Warnings       []RecordWarning
	StartedAt      time.Time
	Duration       time.Duration
}

// RecordWarning ties a warning to the 1-based record number it came from.
type RecordWarning struct {
	Record int `json:"record"`
	domain.Warning
}

// Converter turns a NEM12 record stream into cumulative hourly statistics.
type Converter struct {
	logger  *slog.Logger
	metrics *observability.Metrics
}

// NewConverter creates a Converter with the given observability.
func NewConverter(logger *slog.Logger, metrics *observability.Metrics) *Converter {
	return &Converter{logger: logger, metrics: metrics}
}

// Convert reads every record from src in order and writes the resulting
// hourly statistics to sink. Interval length and the cumulative total live
// for this call only. Recoverable problems are collected in the summary;
// a malformed interval date, a read failure or a sink failure aborts the
// run and is returned with the record number.
func (c *Converter) Convert(ctx context.Context, src RecordSource, sink RowSink, opts Options) (Summary, error) {
	importID := opts.ImportID
	if importID == "" {
		importID = uuid.NewString()
	}

	run := &conversion{
		Converter: c,
		ctx:       ctx,
		sink:      sink,
		tracker:   domain.NewIntervalTracker(opts.DefaultIntervalLength),
		summary: Summary{
			ImportID:    importID,
			StatisticID: opts.StatisticID,
			Source:      opts.Source,
			RecordsRead: make(map[domain.RecordType]int),
			StartedAt:   domain.Now(),
		},
	}
	logger := c.logger.With("import_id", run.summary.ImportID, "source", opts.Source)
	run.logger = logger

	start := time.Now()
	err := run.process(src)
	if err == nil {
		err = sink.Flush(ctx)
		if err != nil {
			err = fmt.Errorf("flush sink: %w", err)
		}
	}

	run.summary.IntervalLength = run.tracker.Length()
	run.summary.FinalTotal = domain.RoundEnergy(run.state.Total())
	run.summary.Duration = time.Since(start)
	c.metrics.ConversionDuration.Observe(run.summary.Duration.Seconds())

	if err != nil {
		c.metrics.Conversions.WithLabelValues("error").Inc()
		logger.Error("conversion failed", "error", err, "hourly_rows", run.summary.HourlyRows)
		return run.summary, err
	}

	c.metrics.Conversions.WithLabelValues("success").Inc()
	c.metrics.CumulativeEnergy.Set(run.summary.FinalTotal)
	logger.Info("conversion complete",
		"data_records", run.summary.DataRecords,
		"hourly_rows", run.summary.HourlyRows,
		"warnings", len(run.summary.Warnings),
		"final_total", run.summary.FinalTotal,
	)
	return run.summary, nil
}

// conversion is the state of a single Convert call.
type conversion struct {
	*Converter
	ctx     context.Context
	logger  *slog.Logger
	sink    RowSink
	tracker *domain.IntervalTracker
	state   domain.CumulativeState
	summary Summary
	record  int
}

func (r *conversion) process(src RecordSource) error {
	for {
		if err := r.ctx.Err(); err != nil {
			return err
		}

		fields, err := src.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		r.record++
		if err != nil {
			return fmt.Errorf("read record %d: %w", r.record, err)
		}

		if err := r.handle(fields); err != nil {
			return fmt.Errorf("record %d: %w", r.record, err)
		}
	}
}

func (r *conversion) handle(fields []string) error {
	rt := domain.ClassifyRecord(fields)
	r.summary.RecordsRead[rt]++
	r.metrics.RecordsRead.WithLabelValues(rt.Label()).Inc()

	switch rt {
	case domain.RecordNMIDetails:
		r.observeDetails(fields)
		return nil
	case domain.RecordIntervalData:
		return r.convertDay(fields)
	default:
		return nil
	}
}

func (r *conversion) observeDetails(fields []string) {
	res := r.tracker.Observe(fields)
	if res.Warning != nil {
		// Malformed lengths fall back silently.
		r.addWarning(*res.Warning)
		r.logger.Debug("interval length not applied",
			"record", r.record, "field", res.Warning.Field, "interval_length", res.IntervalLength)
		return
	}
	if res.Changed {
		r.logger.Info("interval length changed", "record", r.record, "interval_length", res.IntervalLength)
	}
}

func (r *conversion) convertDay(fields []string) error {
	length := r.tracker.Length()
	day, warnings, err := domain.ParseIntervalRecord(fields, length)
	if err != nil {
		return err
	}
	r.summary.DataRecords++

	for _, w := range warnings {
		r.addWarning(w)
		r.logger.Warn("interval count mismatch",
			"record", r.record, "date", w.Date, "expected", w.Expected, "found", w.Found)
	}

	n, err := domain.Aggregate(day, length, &r.state, r.emit)
	r.summary.HourlyRows += n
	r.metrics.HourlyRows.Add(float64(n))
	if err != nil {
		return fmt.Errorf("write statistic for %s: %w", day.RawDate, err)
	}
	return nil
}

func (r *conversion) emit(row domain.HourlyStatistic) error {
	row.StatisticID = r.summary.StatisticID
	return r.sink.WriteRow(r.ctx, row)
}

func (r *conversion) addWarning(w domain.Warning) {
	r.summary.Warnings = append(r.summary.Warnings, RecordWarning{Record: r.record, Warning: w})
	r.metrics.Warnings.WithLabelValues(string(w.Kind)).Inc()
}
