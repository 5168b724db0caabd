// This file adds a lightweight linter/validator for Config values. It performs
// static checks over a resolved Config and returns a list of issues (errors
// and warnings) that callers can surface in a CLI or tests.
package config

import (
	"fmt"
	"regexp"
	"strings"
)

// IssueSeverity represents the severity of a configuration issue.
type IssueSeverity string

const (
	// SeverityError indicates a configuration error that should block execution.
	SeverityError IssueSeverity = "error"
	// SeverityWarning indicates a configuration warning that should be surfaced
	// to users but may not necessarily block execution.
	SeverityWarning IssueSeverity = "warning"
)

// Issue describes a single validation/lint finding for a Config.
//
// Path is a dotted path into the config (e.g. "required_columns",
// "sink.kind"). Message is human-readable.
type Issue struct {
	Severity IssueSeverity
	Path     string
	Message  string
}

// Error implements the error interface so an Issue can be treated as a single
// error in contexts that expect error.
func (i Issue) Error() string {
	return fmt.Sprintf("%s at %s: %s", i.Severity, i.Path, i.Message)
}

// Validate performs static validation / linting of a Config.
//
// It does not mutate the config. Callers decide whether warnings are fatal;
// the CLI blocks on errors only.
func Validate(c Config) []Issue {
	var issues []Issue

	if strings.TrimSpace(c.InputPath) == "" {
		issues = append(issues, Issue{SeverityError, "input_path", "input path must not be empty"})
	}
	if strings.TrimSpace(c.OutputDir) == "" {
		issues = append(issues, Issue{SeverityError, "output_dir", "output dir must not be empty"})
	}
	if err := checkRequiredColumns(c.RequiredColumns); err != nil {
		issues = append(issues, Issue{SeverityError, "required_columns", err.Error()})
	}
	if c.ChunkSize <= 0 {
		issues = append(issues, Issue{
			SeverityError, "chunk_size",
			fmt.Sprintf("chunk size must be positive, got %d", c.ChunkSize),
		})
	} else if c.ChunkSize > 1_000_000 {
		issues = append(issues, Issue{
			SeverityWarning, "chunk_size",
			fmt.Sprintf("chunk size %d defeats the purpose of chunking; expect high peak memory", c.ChunkSize),
		})
	}
	if len(c.FunctionColumns) != 2 {
		issues = append(issues, Issue{
			SeverityError, "function_columns",
			fmt.Sprintf("exactly 2 function columns required (unsupported, udf), got %d", len(c.FunctionColumns)),
		})
	}

	if strings.TrimSpace(c.KeyPattern) == "" {
		issues = append(issues, Issue{SeverityError, "key_pattern", "key pattern must not be empty"})
	} else if re, err := regexp.Compile(c.KeyPattern); err != nil {
		issues = append(issues, Issue{SeverityError, "key_pattern", fmt.Sprintf("invalid regexp: %v", err)})
	} else if re.NumSubexp() != 1 {
		issues = append(issues, Issue{
			SeverityError, "key_pattern",
			fmt.Sprintf("pattern must have exactly one capture group for the key, has %d", re.NumSubexp()),
		})
	}

	issues = append(issues, validateSink(c.Sink)...)
	return issues
}

// validateSink validates the optional summary-sink configuration.
func validateSink(s Sink) []Issue {
	var issues []Issue

	switch s.Kind {
	case "", "none":
		return nil
	case "sqlite", "postgres":
		// Known sink kinds require a DSN and table.
	default:
		// Unknown kinds are warnings for forward compatibility; the factory
		// will reject them at run time if no implementation registered.
		issues = append(issues, Issue{
			SeverityWarning, "sink.kind",
			fmt.Sprintf("unknown sink kind %q; ensure a matching implementation exists", s.Kind),
		})
	}

	if strings.TrimSpace(s.DSN) == "" {
		issues = append(issues, Issue{SeverityError, "sink.dsn", "sink requires a non-empty DSN"})
	}
	if strings.TrimSpace(s.Table) == "" {
		issues = append(issues, Issue{SeverityError, "sink.table", "sink requires a non-empty table"})
	}
	return issues
}
