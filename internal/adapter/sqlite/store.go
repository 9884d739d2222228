package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/couchcryptid/nem12-statistics/internal/domain"
	"github.com/couchcryptid/nem12-statistics/internal/pipeline"
)

const (
	upsertStatisticSQL = `
		INSERT INTO statistics (statistic_id, start, unit, state, sum, import_id)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(statistic_id, start) DO UPDATE SET
			unit=excluded.unit,
			state=excluded.state,
			sum=excluded.sum,
			import_id=excluded.import_id
	`

	insertImportSQL = `
		INSERT INTO imports (id, statistic_id, source, interval_length, data_records, hourly_rows, final_sum, warnings, imported_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	selectSeriesSQL = `
		SELECT statistic_id, start, unit, state, sum
		FROM statistics WHERE statistic_id=? ORDER BY start
	`
)

// Store persists hourly statistics and import runs. Rows are buffered by
// WriteRow and committed in one transaction on Flush, so a failed
// conversion leaves the table untouched.
type Store struct {
	db       *sql.DB
	importID string
	pending  []domain.HourlyStatistic
}

// NewStore creates a Store. importID tags every row written through it.
func NewStore(db *sql.DB, importID string) *Store {
	return &Store{db: db, importID: importID}
}

func (s *Store) WriteRow(_ context.Context, row domain.HourlyStatistic) error {
	s.pending = append(s.pending, row)
	return nil
}

// Flush upserts all buffered rows in a single transaction. Rows already
// present for the same statistic and hour are replaced.
func (s *Store) Flush(ctx context.Context) error {
	if len(s.pending) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin statistics transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	stmt, err := tx.PrepareContext(ctx, upsertStatisticSQL)
	if err != nil {
		return fmt.Errorf("prepare statistics upsert: %w", err)
	}
	defer stmt.Close()

	for _, row := range s.pending {
		if _, err := stmt.ExecContext(ctx,
			row.StatisticID,
			row.Start.UTC(),
			row.Unit,
			row.State,
			row.Sum,
			s.importID,
		); err != nil {
			return fmt.Errorf("upsert statistic %s: %w", row.Key(), err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit statistics: %w", err)
	}
	s.pending = s.pending[:0]
	return nil
}

// RecordImport stores the summary of a finished conversion.
func (s *Store) RecordImport(ctx context.Context, summary pipeline.Summary) error {
	warnings, err := json.Marshal(summary.Warnings)
	if err != nil {
		return fmt.Errorf("marshal warnings: %w", err)
	}

	importedAt := summary.StartedAt
	if importedAt.IsZero() {
		importedAt = domain.Now()
	}

	_, err = s.db.ExecContext(ctx, insertImportSQL,
		summary.ImportID,
		summary.StatisticID,
		summary.Source,
		summary.IntervalLength,
		summary.DataRecords,
		summary.HourlyRows,
		summary.FinalTotal,
		string(warnings),
		importedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("insert import %s: %w", summary.ImportID, err)
	}
	return nil
}

// Series returns the stored statistics of one series in time order.
func (s *Store) Series(ctx context.Context, statisticID string) ([]domain.HourlyStatistic, error) {
	rows, err := s.db.QueryContext(ctx, selectSeriesSQL, statisticID)
	if err != nil {
		return nil, fmt.Errorf("query series %s: %w", statisticID, err)
	}
	defer rows.Close()

	var out []domain.HourlyStatistic
	for rows.Next() {
		var st domain.HourlyStatistic
		var start time.Time
		if err := rows.Scan(&st.StatisticID, &start, &st.Unit, &st.State, &st.Sum); err != nil {
			return nil, fmt.Errorf("scan statistic: %w", err)
		}
		st.Start = start.UTC()
		out = append(out, st)
	}
	return out, rows.Err()
}

// CheckReadiness reports whether the database answers.
func (s *Store) CheckReadiness(ctx context.Context) error {
	return s.db.PingContext(ctx)
}
