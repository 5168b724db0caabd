package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
)

type fakeRepo struct {
	calls   [][][]any
	perCall []int64 // inserted count per call; default len(batch)
	failAt  int     // 1-based call index to fail on; 0 never fails
	closed  bool
}

func (f *fakeRepo) CopyFrom(ctx context.Context, columns []string, rows [][]any) (int64, error) {
	cp := make([][]any, len(rows))
	copy(cp, rows)
	f.calls = append(f.calls, cp)

	if f.failAt > 0 && len(f.calls) == f.failAt {
		return 0, errors.New("copy failed")
	}
	if len(f.perCall) >= len(f.calls) {
		return f.perCall[len(f.calls)-1], nil
	}
	return int64(len(rows)), nil
}

func (f *fakeRepo) Exec(ctx context.Context, sql string) error { return nil }
func (f *fakeRepo) Close()                                     { f.closed = true }

func TestNewUnknownKind(t *testing.T) {
	t.Parallel()

	_, err := New(context.Background(), Config{Kind: "cassandra"})
	if err == nil {
		t.Fatalf("New() error = nil, want unknown-kind error")
	}
	if !strings.Contains(err.Error(), "cassandra") {
		t.Fatalf("New() error = %v, want it to name the kind", err)
	}
}

func TestRegisterAndNew(t *testing.T) {
	// Not parallel: mutates the package-level factory map.
	kind := fmt.Sprintf("fake-%s", t.Name())
	want := &fakeRepo{}

	Register(kind, func(ctx context.Context, cfg Config) (Repository, error) {
		if cfg.Table != "summaries" {
			t.Fatalf("factory cfg.Table = %q, want summaries", cfg.Table)
		}
		return want, nil
	})

	got, err := New(context.Background(), Config{Kind: kind, Table: "summaries"})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if got != Repository(want) {
		t.Fatalf("New() returned a different repository")
	}

	found := false
	for _, k := range Kinds() {
		if k == kind {
			found = true
		}
	}
	if !found {
		t.Fatalf("Kinds() = %v, want it to include %q", Kinds(), kind)
	}
}

func TestRegisterDuplicatePanics(t *testing.T) {
	kind := fmt.Sprintf("dup-%s", t.Name())
	Register(kind, func(ctx context.Context, cfg Config) (Repository, error) { return nil, nil })

	defer func() {
		if recover() == nil {
			t.Fatalf("duplicate Register did not panic")
		}
	}()
	Register(kind, func(ctx context.Context, cfg Config) (Repository, error) { return nil, nil })
}

func TestWriteRowsBatching(t *testing.T) {
	t.Parallel()

	rows := make([][]any, 7)
	for i := range rows {
		rows[i] = []any{i}
	}

	repo := &fakeRepo{}
	total, err := WriteRows(context.Background(), repo, []string{"n"}, rows, 3)
	if err != nil {
		t.Fatalf("WriteRows() error = %v", err)
	}
	if total != 7 {
		t.Fatalf("WriteRows() total = %d, want 7", total)
	}
	if len(repo.calls) != 3 {
		t.Fatalf("batches = %d, want 3", len(repo.calls))
	}
	if got := len(repo.calls[2]); got != 1 {
		t.Fatalf("last batch size = %d, want 1", got)
	}
}

func TestWriteRowsStopsOnError(t *testing.T) {
	t.Parallel()

	rows := make([][]any, 6)
	for i := range rows {
		rows[i] = []any{i}
	}

	repo := &fakeRepo{failAt: 2}
	total, err := WriteRows(context.Background(), repo, []string{"n"}, rows, 3)
	if err == nil {
		t.Fatalf("WriteRows() error = nil, want failure from second batch")
	}
	if total != 3 {
		t.Fatalf("WriteRows() total = %d, want 3 (first batch only)", total)
	}
	if len(repo.calls) != 2 {
		t.Fatalf("batches attempted = %d, want 2", len(repo.calls))
	}
}

func TestWriteRowsRejectsBadBatchSize(t *testing.T) {
	t.Parallel()

	if _, err := WriteRows(context.Background(), &fakeRepo{}, []string{"n"}, nil, 0); err == nil {
		t.Fatalf("WriteRows() with batchSize 0 error = nil, want error")
	}
}

func TestSummaryTableDDL(t *testing.T) {
	t.Parallel()

	ddl := SummaryTableDDL("function_summaries")
	if !strings.Contains(ddl, "CREATE TABLE IF NOT EXISTS function_summaries") {
		t.Fatalf("DDL missing table name: %s", ddl)
	}
	for _, col := range SummaryColumns() {
		if !strings.Contains(ddl, col) {
			t.Fatalf("DDL missing column %q: %s", col, ddl)
		}
	}
}
