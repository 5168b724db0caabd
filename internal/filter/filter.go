// Package filter implements the fixed query predicate and the key-set join
// against result files.
//
// A row passes when its statement type, client application, and execution
// status columns equal SELECT, PowerBI, and FINISHED respectively. The
// distinct key-column values of passing rows form the key set; result rows
// whose key belongs to the set make up the matched table.
package filter

import (
	"fmt"
	"regexp"

	"github.com/NiranjGaurav/AutomationReader/internal/config"
	"github.com/NiranjGaurav/AutomationReader/pkg/records"
)

// Fixed predicate values. The column names are configurable, the values are
// not.
const (
	WantStatement   = "SELECT"
	WantApplication = "PowerBI"
	WantStatus      = "FINISHED"
)

// Filter evaluates the predicate and join for one run. It is immutable and
// safe to reuse across files and chunks.
type Filter struct {
	cfg        config.Config
	keyPattern *regexp.Regexp
}

// New compiles the configured result-key extraction pattern and returns a
// Filter. The pattern must contain exactly one capture group.
func New(cfg config.Config) (*Filter, error) {
	re, err := regexp.Compile(cfg.KeyPattern)
	if err != nil {
		return nil, fmt.Errorf("filter: compile key pattern: %w", err)
	}
	if re.NumSubexp() != 1 {
		return nil, fmt.Errorf("filter: key pattern %q must have exactly one capture group", cfg.KeyPattern)
	}
	return &Filter{cfg: cfg, keyPattern: re}, nil
}

// Match is the outcome of filtering one chunk against one results table.
type Match struct {
	// FilteredRows counts chunk rows passing the predicate.
	FilteredRows int

	// Keys holds the distinct key values among passing rows, in first-seen
	// order. Empty when no row passed.
	Keys []string

	// Matched holds every results row whose key belongs to Keys, preserving
	// the results table's row order. Duplicate keys on the results side all
	// contribute their own rows.
	Matched *records.Table
}

// FilterAndCompare applies the predicate to chunk, derives the key set, and
// selects the matching rows of results.
//
// An empty key set or an empty results table yields an empty Match, not an
// error; a missing predicate or key column is a *records.SchemaError.
func (f *Filter) FilterAndCompare(chunk records.Table, results *records.Table) (*Match, error) {
	cfg := f.cfg
	if err := chunk.Require("chunk", cfg.StatementColumn(), cfg.ApplicationColumn(), cfg.StatusColumn(), cfg.KeyColumn()); err != nil {
		return nil, err
	}

	m := &Match{Matched: records.NewTable(results.Columns...)}

	seen := make(map[string]struct{})
	for _, row := range chunk.Rows {
		if !f.passes(row) {
			continue
		}
		m.FilteredRows++
		key, ok := row.String(cfg.KeyColumn())
		if !ok {
			continue
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		m.Keys = append(m.Keys, key)
	}

	if len(m.Keys) == 0 || results.Len() == 0 {
		return m, nil
	}

	// Result rows carry the key either in the key column itself or embedded
	// in the original_query text.
	direct := results.HasColumn(cfg.KeyColumn())
	if !direct {
		if err := results.Require("results", "original_query"); err != nil {
			return nil, &records.SchemaError{
				Source:  "results",
				Missing: []string{cfg.KeyColumn() + " (or original_query)"},
			}
		}
	}

	for _, row := range results.Rows {
		key, ok := f.resultKey(row, direct)
		if !ok {
			continue
		}
		if _, hit := seen[key]; hit {
			m.Matched.Append(row)
		}
	}
	return m, nil
}

// passes evaluates the fixed three-column predicate. Comparison is
// string-exact after trimming; nil cells never match.
func (f *Filter) passes(row records.Record) bool {
	stmt, ok := row.String(f.cfg.StatementColumn())
	if !ok || stmt != WantStatement {
		return false
	}
	app, ok := row.String(f.cfg.ApplicationColumn())
	if !ok || app != WantApplication {
		return false
	}
	status, ok := row.String(f.cfg.StatusColumn())
	if !ok || status != WantStatus {
		return false
	}
	return true
}

// resultKey extracts the join key from a results row: the key column when the
// results table carries it, otherwise the capture group of the key pattern
// applied to original_query. Rows with no extractable key never match.
func (f *Filter) resultKey(row records.Record, direct bool) (string, bool) {
	if direct {
		return row.String(f.cfg.KeyColumn())
	}
	q, ok := row.String("original_query")
	if !ok {
		return "", false
	}
	groups := f.keyPattern.FindStringSubmatch(q)
	if groups == nil {
		return "", false
	}
	return groups[1], true
}
