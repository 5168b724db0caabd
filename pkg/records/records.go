// Package records defines the row and table shapes shared by every pipeline
// stage. A Record is a loosely typed map from column name to value, which
// keeps the loader, filter, and analyzer independent of any particular source
// schema; a Table is an ordered sequence of Records plus the column set seen
// while loading.
package records

import (
	"fmt"
	"sort"
	"strings"
)

// Record is one row, keyed by canonical column name. Values are strings,
// numbers, bools, or nil; empty source cells load as nil.
type Record map[string]any

// String returns the value of col rendered as a trimmed string, with ok=false
// when the column is absent or nil. Non-string scalars are formatted with %v
// so parquet int/float columns compare cleanly against CSV text.
func (r Record) String(col string) (string, bool) {
	v, present := r[col]
	if !present || v == nil {
		return "", false
	}
	if s, ok := v.(string); ok {
		s = strings.TrimSpace(s)
		if s == "" {
			return "", false
		}
		return s, true
	}
	return fmt.Sprintf("%v", v), true
}

// Table is an ordered sequence of rows. Columns is the union of column names
// across all appended rows, ordered by first appearance.
type Table struct {
	Columns []string
	Rows    []Record

	seen map[string]struct{}
}

// NewTable returns an empty table with the given column order pre-declared.
func NewTable(columns ...string) *Table {
	t := &Table{seen: make(map[string]struct{}, len(columns))}
	for _, c := range columns {
		t.addColumn(c)
	}
	return t
}

// Append adds rows, extending Columns with any names not seen before.
func (t *Table) Append(rows ...Record) {
	if t.seen == nil {
		t.seen = make(map[string]struct{})
		for _, c := range t.Columns {
			t.seen[c] = struct{}{}
		}
	}
	for _, r := range rows {
		// Column union is deterministic: new names join in sorted order per row.
		var fresh []string
		for c := range r {
			if _, ok := t.seen[c]; !ok {
				fresh = append(fresh, c)
			}
		}
		sort.Strings(fresh)
		for _, c := range fresh {
			t.addColumn(c)
		}
		t.Rows = append(t.Rows, r)
	}
}

func (t *Table) addColumn(c string) {
	if _, ok := t.seen[c]; ok {
		return
	}
	t.seen[c] = struct{}{}
	t.Columns = append(t.Columns, c)
}

// Len returns the number of rows.
func (t *Table) Len() int { return len(t.Rows) }

// HasColumn reports whether col is part of the table's column set.
func (t *Table) HasColumn(col string) bool {
	if t.seen != nil {
		_, ok := t.seen[col]
		return ok
	}
	for _, c := range t.Columns {
		if c == col {
			return true
		}
	}
	return false
}

// Require verifies that every named column is present, returning a
// *SchemaError listing the missing ones. source identifies the offending
// file (or table) in the error.
func (t *Table) Require(source string, cols ...string) error {
	var missing []string
	for _, c := range cols {
		if !t.HasColumn(c) {
			missing = append(missing, c)
		}
	}
	if len(missing) == 0 {
		return nil
	}
	return &SchemaError{Source: source, Missing: missing}
}

// ChunkIter yields consecutive row slices of a table as bounded sub-tables.
// It is finite and non-restartable; chunks share backing rows with the
// parent, so callers must not retain a chunk past the next call to Next.
type ChunkIter struct {
	parent *Table
	size   int
	off    int
}

// Chunks returns an iterator over sub-tables of at most size rows each. The
// last chunk may be shorter. size must be positive; Chunks panics otherwise
// since the caller is expected to have validated configuration already.
func (t *Table) Chunks(size int) *ChunkIter {
	if size <= 0 {
		panic(fmt.Sprintf("records: chunk size must be positive, got %d", size))
	}
	return &ChunkIter{parent: t, size: size}
}

// Next returns the next chunk, or ok=false after the final chunk. An empty
// parent table yields no chunks.
func (it *ChunkIter) Next() (Table, bool) {
	if it.off >= len(it.parent.Rows) {
		return Table{}, false
	}
	end := it.off + it.size
	if end > len(it.parent.Rows) {
		end = len(it.parent.Rows)
	}
	chunk := Table{Columns: it.parent.Columns, Rows: it.parent.Rows[it.off:end], seen: it.parent.seen}
	it.off = end
	return chunk, true
}

// SchemaError reports required columns missing from a loaded table. It aborts
// processing of the offending file only, never the whole run.
type SchemaError struct {
	Source  string
	Missing []string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("%s: missing required columns: %s", e.Source, strings.Join(e.Missing, ", "))
}
