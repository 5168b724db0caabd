// Package postgres implements a Postgres-backed storage.Repository using pgx
// v5. CopyFrom maps directly onto the Postgres COPY protocol.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Config holds Postgres repository configuration.
type Config struct {
	DSN     string   // connection string for pgxpool
	Table   string   // possibly schema-qualified target table, e.g. "public.function_summaries"
	Columns []string // ordered columns for COPY
}

// Repository is a Postgres-backed implementation of storage.Repository.
type Repository struct {
	pool *pgxpool.Pool
	cfg  Config
}

// NewRepository constructs a Repository and returns a Close function for
// cleanup. pgxpool connects lazily, so DSN problems surface on first use.
func NewRepository(ctx context.Context, cfg Config) (*Repository, func(), error) {
	if strings.TrimSpace(cfg.DSN) == "" {
		return nil, nil, fmt.Errorf("postgres: DSN must not be empty")
	}
	pool, err := pgxpool.New(ctx, cfg.DSN)
	if err != nil {
		return nil, nil, fmt.Errorf("postgres: pgxpool: %w", err)
	}
	closeFn := func() { pool.Close() }
	return &Repository{pool: pool, cfg: cfg}, closeFn, nil
}

// CopyFrom bulk-loads rows into the configured table via COPY.
func (r *Repository) CopyFrom(ctx context.Context, columns []string, rows [][]any) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	n, err := r.pool.CopyFrom(ctx, splitFQN(r.cfg.Table), columns, pgx.CopyFromRows(rows))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Detail != "" {
			return n, fmt.Errorf("postgres: copy: %s (%s)", pgErr.Detail, pgErr.SQLState())
		}
		return n, fmt.Errorf("postgres: copy: %w", err)
	}
	return n, nil
}

// Exec implements storage.Repository.Exec for Postgres.
func (r *Repository) Exec(ctx context.Context, sql string) error {
	if strings.TrimSpace(sql) == "" {
		return nil
	}
	if _, err := r.pool.Exec(ctx, sql); err != nil {
		return fmt.Errorf("postgres: exec: %w", err)
	}
	return nil
}

// splitFQN converts "schema.table" into a pgx.Identifier {"schema","table"}.
// If no dot is present, returns {"table"}.
func splitFQN(fqn string) pgx.Identifier {
	parts := strings.Split(fqn, ".")
	id := make(pgx.Identifier, 0, len(parts))
	for _, p := range parts {
		if p != "" {
			id = append(id, p)
		}
	}
	return id
}
