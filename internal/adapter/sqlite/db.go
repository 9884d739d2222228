package sqlite

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

const driverName = "sqlite"

// InitDB opens or creates a SQLite statistics database and ensures the
// schema exists.
func InitDB(path string) (*sql.DB, error) {
	db, err := sql.Open(driverName, path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite at %q: %w", path, err)
	}

	// SQLite allows a single writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	for _, pragma := range []string{
		"PRAGMA journal_mode = WAL;",
		"PRAGMA busy_timeout = 5000;",
	} {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("set %s: %w", pragma, err)
		}
	}

	if err := ensureSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	return db, nil
}

const schemaStatistics = `
CREATE TABLE IF NOT EXISTS statistics (
    statistic_id TEXT NOT NULL,
    start        TIMESTAMP NOT NULL,
    unit         TEXT NOT NULL,
    state        REAL NOT NULL,
    sum          REAL NOT NULL,
    import_id    TEXT NOT NULL,
    PRIMARY KEY (statistic_id, start)
);
`

const schemaImports = `
CREATE TABLE IF NOT EXISTS imports (
    id              TEXT PRIMARY KEY,
    statistic_id    TEXT NOT NULL,
    source          TEXT NOT NULL,
    interval_length INTEGER NOT NULL,
    data_records    INTEGER NOT NULL,
    hourly_rows     INTEGER NOT NULL,
    final_sum       REAL NOT NULL,
    warnings        TEXT,
    imported_at     TIMESTAMP NOT NULL
);
`

func ensureSchema(db *sql.DB) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("begin schema transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	for i, stmt := range []string{schemaStatistics, schemaImports} {
		if _, err := tx.Exec(stmt); err != nil {
			return fmt.Errorf("apply schema statement %d: %w", i+1, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema transaction: %w", err)
	}
	return nil
}
