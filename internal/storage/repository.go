// Package storage contains storage-agnostic contracts for the optional
// summary sink. Concrete backends (SQLite, Postgres) live in subpackages and
// register themselves with the factory in init, so binaries choose their
// backends with blank imports (see storage/all).
package storage

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// Repository is the minimal contract a sink backend must satisfy.
type Repository interface {
	// CopyFrom bulk-inserts rows aligned to the columns order into the
	// configured table and reports how many rows were written.
	CopyFrom(ctx context.Context, columns []string, rows [][]any) (int64, error)

	// Exec runs an arbitrary statement, typically DDL.
	Exec(ctx context.Context, sql string) error

	// Close releases the backend's connections.
	Close()
}

// Config selects and configures a backend.
type Config struct {
	Kind    string   // registered backend name, e.g. "sqlite", "postgres"
	DSN     string   // backend connection string
	Table   string   // destination table name
	Columns []string // ordered destination columns
}

// Factory constructs a Repository for one backend kind.
type Factory func(ctx context.Context, cfg Config) (Repository, error)

var (
	mu        sync.RWMutex
	factories = map[string]Factory{}
)

// Register installs a backend factory under the given kind. Backends call it
// from init; a duplicate kind panics to surface wiring mistakes early.
func Register(kind string, fn Factory) {
	mu.Lock()
	defer mu.Unlock()
	if _, dup := factories[kind]; dup {
		panic(fmt.Sprintf("storage: duplicate registration for kind %q", kind))
	}
	factories[kind] = fn
}

// Kinds lists the registered backend kinds, sorted.
func Kinds() []string {
	mu.RLock()
	defer mu.RUnlock()
	out := make([]string, 0, len(factories))
	for k := range factories {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// New opens a Repository for cfg.Kind.
func New(ctx context.Context, cfg Config) (Repository, error) {
	mu.RLock()
	fn, ok := factories[cfg.Kind]
	mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("storage: unknown kind %q (registered: %v)", cfg.Kind, Kinds())
	}
	return fn(ctx, cfg)
}
