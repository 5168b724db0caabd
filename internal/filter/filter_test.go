package filter

import (
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/NiranjGaurav/AutomationReader/internal/config"
	"github.com/NiranjGaurav/AutomationReader/pkg/records"
)

func logTable(rows ...records.Record) *records.Table {
	t := records.NewTable("statement_type", "client_application", "execution_status", "query_Hash")
	t.Append(rows...)
	return t
}

func logRow(stmt, app, status, hash string) records.Record {
	return records.Record{
		"statement_type":     stmt,
		"client_application": app,
		"execution_status":   status,
		"query_Hash":         hash,
	}
}

func mustFilter(t *testing.T) *Filter {
	t.Helper()
	f, err := New(config.Default())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return f
}

func TestFilterAndCompare_PredicateSelectsKeys(t *testing.T) {
	t.Parallel()

	chunk := logTable(
		logRow("SELECT", "PowerBI", "FINISHED", "h1"),
		logRow("SELECT", "PowerBI", "FINISHED", "h2"),
		logRow("SELECT", "PowerBI", "FINISHED", "h1"), // duplicate key, deduped
		logRow("INSERT", "PowerBI", "FINISHED", "h3"),
		logRow("SELECT", "Tableau", "FINISHED", "h4"),
		logRow("SELECT", "PowerBI", "FAILED", "h5"),
	)

	m, err := mustFilter(t).FilterAndCompare(*chunk, records.NewTable())
	if err != nil {
		t.Fatalf("FilterAndCompare: %v", err)
	}
	if m.FilteredRows != 3 {
		t.Fatalf("FilteredRows = %d, want 3", m.FilteredRows)
	}
	// Every passing row's key is in the set, no other row's key is, and
	// first-seen order is preserved.
	if want := []string{"h1", "h2"}; !reflect.DeepEqual(m.Keys, want) {
		t.Fatalf("Keys = %v, want %v", m.Keys, want)
	}
}

func TestFilterAndCompare_JoinsByKeyColumn(t *testing.T) {
	t.Parallel()

	chunk := logTable(
		logRow("SELECT", "PowerBI", "FINISHED", "h1"),
		logRow("SELECT", "PowerBI", "FINISHED", "h2"),
	)
	results := records.NewTable("query_Hash", "translated")
	results.Append(
		records.Record{"query_Hash": "h9", "translated": "q0"},
		records.Record{"query_Hash": "h2", "translated": "q1"},
		records.Record{"query_Hash": "h1", "translated": "q2"},
		records.Record{"query_Hash": "h2", "translated": "q3"}, // duplicate key kept
	)

	m, err := mustFilter(t).FilterAndCompare(*chunk, results)
	if err != nil {
		t.Fatalf("FilterAndCompare: %v", err)
	}
	var got []string
	for _, row := range m.Matched.Rows {
		s, _ := row.String("translated")
		got = append(got, s)
	}
	// Results order preserved, no result-side dedup.
	if want := []string{"q1", "q2", "q3"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("matched = %v, want %v", got, want)
	}
}

func TestFilterAndCompare_ExtractsKeyFromOriginalQuery(t *testing.T) {
	t.Parallel()

	hash := strings.Repeat("ab", 32) // 64 hex chars
	chunk := logTable(logRow("SELECT", "PowerBI", "FINISHED", hash))

	results := records.NewTable("original_query")
	results.Append(
		records.Record{"original_query": "SELECT 1 /* inmobi::" + hash + " */"},
		records.Record{"original_query": "SELECT 2 /* no marker */"},
	)

	m, err := mustFilter(t).FilterAndCompare(*chunk, results)
	if err != nil {
		t.Fatalf("FilterAndCompare: %v", err)
	}
	if m.Matched.Len() != 1 {
		t.Fatalf("Matched.Len = %d, want 1", m.Matched.Len())
	}
}

func TestFilterAndCompare_EmptyResultsIsNotAnError(t *testing.T) {
	t.Parallel()

	chunk := logTable(logRow("SELECT", "PowerBI", "FINISHED", "h1"))

	m, err := mustFilter(t).FilterAndCompare(*chunk, records.NewTable())
	if err != nil {
		t.Fatalf("FilterAndCompare: %v", err)
	}
	if m.Matched.Len() != 0 || len(m.Keys) != 1 {
		t.Fatalf("match = %+v, want empty matched table with one key", m)
	}
}

func TestFilterAndCompare_EmptyKeySetShortCircuits(t *testing.T) {
	t.Parallel()

	chunk := logTable(logRow("INSERT", "PowerBI", "FINISHED", "h1"))
	results := records.NewTable("query_Hash")
	results.Append(records.Record{"query_Hash": "h1"})

	m, err := mustFilter(t).FilterAndCompare(*chunk, results)
	if err != nil {
		t.Fatalf("FilterAndCompare: %v", err)
	}
	if m.FilteredRows != 0 || m.Matched.Len() != 0 {
		t.Fatalf("match = %+v, want empty", m)
	}
}

func TestFilterAndCompare_MissingColumnsAreSchemaErrors(t *testing.T) {
	t.Parallel()

	f := mustFilter(t)

	// Chunk missing the key column.
	chunk := records.NewTable("statement_type", "client_application", "execution_status")
	chunk.Append(records.Record{
		"statement_type":     "SELECT",
		"client_application": "PowerBI",
		"execution_status":   "FINISHED",
	})
	_, err := f.FilterAndCompare(*chunk, records.NewTable())
	var se *records.SchemaError
	if !errors.As(err, &se) {
		t.Fatalf("chunk err = %v, want *records.SchemaError", err)
	}

	// Results missing both the key column and original_query.
	full := logTable(logRow("SELECT", "PowerBI", "FINISHED", "h1"))
	results := records.NewTable("translated")
	results.Append(records.Record{"translated": "q"})
	_, err = f.FilterAndCompare(*full, results)
	if !errors.As(err, &se) {
		t.Fatalf("results err = %v, want *records.SchemaError", err)
	}
}

func TestNew_RejectsBadPattern(t *testing.T) {
	t.Parallel()

	cfg := config.Default()
	cfg.KeyPattern = "no capture group"
	if _, err := New(cfg); err == nil {
		t.Fatal("New accepted a pattern without a capture group")
	}
}
