package pipeline

import (
	"context"
	"errors"

	"github.com/couchcryptid/nem12-statistics/internal/domain"
)

// MultiSink writes every row to each of its sinks in order.
type MultiSink []RowSink

func (m MultiSink) WriteRow(ctx context.Context, row domain.HourlyStatistic) error {
	for _, s := range m {
		if err := s.WriteRow(ctx, row); err != nil {
			return err
		}
	}
	return nil
}

// Flush flushes every sink and joins their errors.
func (m MultiSink) Flush(ctx context.Context) error {
	var errs []error
	for _, s := range m {
		if err := s.Flush(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
