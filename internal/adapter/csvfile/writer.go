package csvfile

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"

	"github.com/couchcryptid/nem12-statistics/internal/domain"
)

// Writer renders hourly statistics in the Home Assistant import layout. The
// header is written before the first row, or on Flush when no rows came.
// It implements pipeline.RowSink.
type Writer struct {
	w             *csv.Writer
	headerWritten bool
}

// NewWriter wraps w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: csv.NewWriter(w)}
}

// WriteHeader writes the column header if it has not been written yet.
func (w *Writer) WriteHeader() error {
	if w.headerWritten {
		return nil
	}
	if err := w.w.Write(domain.StatisticsHeader); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	w.headerWritten = true
	return nil
}

func (w *Writer) WriteRow(_ context.Context, row domain.HourlyStatistic) error {
	if err := w.WriteHeader(); err != nil {
		return err
	}
	if err := w.w.Write(row.Fields()); err != nil {
		return fmt.Errorf("write statistic %s: %w", row.FormatStart(), err)
	}
	return nil
}

func (w *Writer) Flush(context.Context) error {
	if err := w.WriteHeader(); err != nil {
		return err
	}
	w.w.Flush()
	return w.w.Error()
}
