// Package parser defines the contract shared by reader-based input parsers.
package parser

import (
	"io"

	"github.com/NiranjGaurav/AutomationReader/pkg/records"
)

// Parser turns raw bytes into records. The int result is the number of rows
// soft-dropped during parsing.
type Parser interface {
	Parse(r io.Reader) ([]records.Record, int, error)
}
