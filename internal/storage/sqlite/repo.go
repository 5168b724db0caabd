// Package sqlite implements a SQLite-backed storage.Repository using
// database/sql. It performs batched INSERTs inside a transaction; SQLite has
// no dedicated bulk-load API, but transactions keep performance acceptable
// for the row volumes a summary sink sees.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite" // pure-Go SQLite driver
)

// Config holds SQLite repository configuration derived from storage.Config.
type Config struct {
	// DSN is a SQLite connection string or file path, e.g.:
	//   "file:analysis.db?cache=shared"
	//   "analysis.db"
	DSN string

	// Table is the target table name for inserts.
	Table string

	// Columns is the ordered list of destination columns.
	Columns []string
}

// Repository is a SQLite-backed implementation of storage.Repository.
type Repository struct {
	db  *sql.DB
	cfg Config
}

// NewRepository opens a SQLite connection using the provided DSN and returns
// a Repository plus a Close function for cleanup.
func NewRepository(ctx context.Context, cfg Config) (*Repository, func(), error) {
	if strings.TrimSpace(cfg.DSN) == "" {
		return nil, nil, fmt.Errorf("sqlite: DSN must not be empty")
	}

	db, err := sql.Open("sqlite", cfg.DSN)
	if err != nil {
		return nil, nil, fmt.Errorf("sqlite: open: %w", err)
	}

	// Fail fast on invalid DSNs.
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("sqlite: ping: %w", err)
	}

	closeFn := func() { db.Close() }
	return &Repository{db: db, cfg: cfg}, closeFn, nil
}

// CopyFrom inserts the given rows into the configured table using a single
// transaction and a prepared INSERT statement. len(row) must equal
// len(columns) for every row.
func (r *Repository) CopyFrom(
	ctx context.Context,
	columns []string,
	rows [][]any,
) (int64, error) {
	if len(columns) == 0 {
		return 0, fmt.Errorf("sqlite: CopyFrom: columns must not be empty")
	}
	if len(rows) == 0 {
		return 0, nil
	}

	placeholders := make([]string, len(columns))
	for i := range placeholders {
		placeholders[i] = "?"
	}
	stmtSQL := fmt.Sprintf(
		"INSERT INTO %s (%s) VALUES (%s)",
		r.cfg.Table,
		strings.Join(columns, ", "),
		strings.Join(placeholders, ", "),
	)

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("sqlite: begin tx: %w", err)
	}
	stmt, err := tx.PrepareContext(ctx, stmtSQL)
	if err != nil {
		_ = tx.Rollback()
		return 0, fmt.Errorf("sqlite: prepare insert: %w", err)
	}
	defer stmt.Close()

	var inserted int64
	for _, row := range rows {
		if len(row) != len(columns) {
			_ = tx.Rollback()
			return 0, fmt.Errorf("sqlite: CopyFrom: row length %d != columns length %d", len(row), len(columns))
		}
		if _, err := stmt.ExecContext(ctx, row...); err != nil {
			_ = tx.Rollback()
			return 0, fmt.Errorf("sqlite: insert: %w", err)
		}
		inserted++
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("sqlite: commit: %w", err)
	}
	return inserted, nil
}

// Exec executes an arbitrary SQL statement (typically DDL).
func (r *Repository) Exec(ctx context.Context, sql string) error {
	if strings.TrimSpace(sql) == "" {
		return nil
	}
	if _, err := r.db.ExecContext(ctx, sql); err != nil {
		return fmt.Errorf("sqlite: exec: %w", err)
	}
	return nil
}
