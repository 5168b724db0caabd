// Package config defines the runtime configuration for the query-analysis
// pipeline. It is intentionally small, explicit, and JSON-serializable so a
// run can be described by a config file, by CLI arguments, or programmatically
// without additional glue code.
//
// A Config value is constructed once at process start (Default, optionally
// merged with a file and overrides) and then threaded explicitly through
// every stage; there is no ambient global state and the value is read-only
// for the duration of a run.
package config

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
)

// Defaults applied by Default(). Columns are ordered: the first three carry
// the filter predicate, the fourth is the join key.
const (
	DefaultOutputDir = "query_analysis"
	DefaultChunkSize = 2000
)

// DefaultRequiredColumns is the canonical query-log column set.
func DefaultRequiredColumns() []string {
	return []string{"statement_type", "client_application", "execution_status", "query_Hash"}
}

// DefaultFunctionColumns names the per-row JSON function-list columns in
// result files, in the order (unsupported, udf).
func DefaultFunctionColumns() []string {
	return []string{"unsupported_functions", "udf_list"}
}

// DefaultKeyPattern extracts the join key from a result row's original_query
// text when the key column itself is not present. The single capture group is
// the key value.
const DefaultKeyPattern = `inmobi::([a-f0-9]{64})`

// Config holds all runtime parameters for one pipeline run.
type Config struct {
	// InputPath is the directory scanned (non-recursively) for query-log
	// files (*.parquet, *.csv).
	InputPath string `json:"input_path"`

	// OutputDir receives one subdirectory per input file plus the run-level
	// summaries and report.
	OutputDir string `json:"output_dir"`

	// RequiredColumns must all be present in every loaded query-log file.
	// Position is meaningful: [0]=statement type, [1]=client application,
	// [2]=execution status, [3]=join key. Extra columns may follow.
	RequiredColumns []string `json:"required_columns"`

	// ChunkSize bounds the number of rows processed per chunk.
	ChunkSize int `json:"chunk_size"`

	// FunctionColumns names the JSON function-list columns scanned in matched
	// result rows: [0]=unsupported functions, [1]=UDFs.
	FunctionColumns []string `json:"function_columns"`

	// KeyPattern is the regexp (one capture group) used to extract the join
	// key from a result row's original_query column when the key column is
	// absent from the result file.
	KeyPattern string `json:"key_pattern"`

	// CatalogPath optionally points at a line-list file overriding the
	// embedded known-unsupported-function catalog.
	CatalogPath string `json:"catalog_path,omitempty"`

	// Sink configures the optional SQL summary sink.
	Sink Sink `json:"sink"`
}

// Sink selects where run summaries are persisted. Kind "" or "none" disables
// persistence; "sqlite" and "postgres" are registered backends.
type Sink struct {
	Kind  string `json:"kind"`
	DSN   string `json:"dsn"`
	Table string `json:"table"`
}

// Default returns the documented default configuration.
func Default() Config {
	return Config{
		InputPath:       ".",
		OutputDir:       DefaultOutputDir,
		RequiredColumns: DefaultRequiredColumns(),
		ChunkSize:       DefaultChunkSize,
		FunctionColumns: DefaultFunctionColumns(),
		KeyPattern:      DefaultKeyPattern,
		Sink:            Sink{Kind: "none", Table: "function_summary"},
	}
}

// Load decodes a JSON config file on top of Default. Unknown fields are
// rejected so typos surface immediately.
func Load(path string) (Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return Config{}, fmt.Errorf("open config: %w", err)
	}
	defer f.Close()
	return decode(f)
}

func decode(r io.Reader) (Config, error) {
	cfg := Default()
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	return cfg, nil
}

// Overrides carries optional replacement values for With. Nil fields leave
// the receiver's value untouched.
type Overrides struct {
	InputPath       *string
	OutputDir       *string
	RequiredColumns []string
	ChunkSize       *int
	FunctionColumns []string
	CatalogPath     *string
	Sink            *Sink
}

// With validates o and returns a copy of c with the overrides merged in. On
// error the returned Config equals the receiver, so a failed call never takes
// effect. This is the programmatic override entry point; the CLI builds the
// same Overrides from its arguments.
func (c Config) With(o Overrides) (Config, error) {
	if o.InputPath != nil {
		if strings.TrimSpace(*o.InputPath) == "" {
			return c, fmt.Errorf("config: input path must not be empty")
		}
		c.InputPath = *o.InputPath
	}
	if o.OutputDir != nil {
		if strings.TrimSpace(*o.OutputDir) == "" {
			return c, fmt.Errorf("config: output dir must not be empty")
		}
		c.OutputDir = *o.OutputDir
	}
	if o.RequiredColumns != nil {
		if err := checkRequiredColumns(o.RequiredColumns); err != nil {
			return c, err
		}
		c.RequiredColumns = o.RequiredColumns
	}
	if o.ChunkSize != nil {
		if *o.ChunkSize <= 0 {
			return c, fmt.Errorf("config: chunk size must be positive, got %d", *o.ChunkSize)
		}
		c.ChunkSize = *o.ChunkSize
	}
	if o.FunctionColumns != nil {
		if len(o.FunctionColumns) != 2 {
			return c, fmt.Errorf("config: exactly 2 function columns required (unsupported, udf), got %d", len(o.FunctionColumns))
		}
		c.FunctionColumns = o.FunctionColumns
	}
	if o.CatalogPath != nil {
		c.CatalogPath = *o.CatalogPath
	}
	if o.Sink != nil {
		c.Sink = *o.Sink
	}
	return c, nil
}

func checkRequiredColumns(cols []string) error {
	if len(cols) < 4 {
		return fmt.Errorf("config: at least 4 required columns (statement type, client application, execution status, key), got %d", len(cols))
	}
	for i, c := range cols {
		if strings.TrimSpace(c) == "" {
			return fmt.Errorf("config: required column %d is empty", i)
		}
	}
	return nil
}

// Convenience accessors for the positional required columns.

// StatementColumn is the column compared against "SELECT".
func (c Config) StatementColumn() string { return c.RequiredColumns[0] }

// ApplicationColumn is the column compared against "PowerBI".
func (c Config) ApplicationColumn() string { return c.RequiredColumns[1] }

// StatusColumn is the column compared against "FINISHED".
func (c Config) StatusColumn() string { return c.RequiredColumns[2] }

// KeyColumn is the join-key column (a query hash).
func (c Config) KeyColumn() string { return c.RequiredColumns[3] }

// UnsupportedColumn is the JSON list column holding unsupported functions.
func (c Config) UnsupportedColumn() string { return c.FunctionColumns[0] }

// UDFColumn is the JSON list column holding user-defined functions.
func (c Config) UDFColumn() string { return c.FunctionColumns[1] }
