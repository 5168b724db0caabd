// Package csv implements a buffered CSV parser for query-log and result
// files. It tolerates real-world data: BOM-prefixed headers, uneven row
// widths, and malformed rows are soft-dropped and counted rather than
// aborting the file.
package csv

import (
	"encoding/csv"
	"fmt"
	"io"
	"log"
	"strings"

	"github.com/NiranjGaurav/AutomationReader/internal/parser"
	"github.com/NiranjGaurav/AutomationReader/pkg/records"
)

var _ parser.Parser = (*Parser)(nil)

// Options configures the CSV parser behavior. All fields are optional;
// sensible defaults are applied when a field is zero.
type Options struct {
	// HasHeader indicates whether the first row contains column headers.
	HasHeader bool

	// Comma specifies the field delimiter. When zero, ',' is used.
	Comma rune

	// TrimSpace trims leading/trailing spaces from each field value.
	TrimSpace bool

	// ExpectedFields, when > 0, enforces a fixed field count per record. Rows
	// with a different width are skipped (soft-fail) and counted.
	ExpectedFields int

	// HeaderMap maps source header names to canonical keys. Only applies when
	// HasHeader is true. Unmapped headers are lowercased with spaces replaced
	// by underscores, except headers already containing an underscore or
	// mixed case that the pipeline matches verbatim (e.g. query_Hash), which
	// pass through untouched.
	HeaderMap map[string]string
}

// Parser parses CSV input according to Options. It is safe to reuse across
// inputs, but Parser itself is not concurrency-safe.
type Parser struct{ opt Options }

// NewParser constructs a Parser with the provided Options.
func NewParser(opt Options) *Parser { return &Parser{opt: opt} }

// utf8BOM is stripped from the first header cell if present.
const utf8BOM = "\uFEFF"

// logLimit caps per-file soft-fail log lines so a pathological file cannot
// flood stderr.
const logLimit = 400

// Parse consumes CSV records from r and returns the parsed rows along with
// the number of rows that were skipped due to parse errors or field-count
// mismatches.
func (p *Parser) Parse(r io.Reader) ([]records.Record, int, error) {
	cr := csv.NewReader(r)
	if p.opt.Comma != 0 {
		cr.Comma = p.opt.Comma
	}
	cr.FieldsPerRecord = -1 // width enforced after read, so short rows soft-fail
	cr.LazyQuotes = true

	var headers []string
	var out []records.Record
	var skipped int

	// Header handling.
	if p.opt.HasHeader {
		h, err := cr.Read()
		if err != nil {
			return nil, 0, fmt.Errorf("read csv header: %w", err)
		}
		headers = normalizeHeaders(h, p.opt)
	} else if p.opt.ExpectedFields > 0 {
		headers = make([]string, p.opt.ExpectedFields)
		for i := range headers {
			headers[i] = fmt.Sprintf("col_%d", i)
		}
	}

	// Read body rows.
	for line := 1; ; line++ {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			if skipped < logLimit {
				// Soft-fail this row and continue.
				log.Printf("csv: skipping row %d: %v", line, err)
			}
			skipped++
			continue
		}

		// Enforce expected width when known.
		want := len(headers)
		if p.opt.ExpectedFields > 0 {
			want = p.opt.ExpectedFields
		}
		if want > 0 && len(row) != want {
			if skipped < logLimit {
				log.Printf("csv: skipping row %d: incorrect number of fields (expected %d, got %d)", line, want, len(row))
			}
			skipped++
			continue
		}

		rec := make(records.Record, len(row))
		for i, val := range row {
			if p.opt.TrimSpace {
				val = strings.TrimSpace(val)
			}
			rec[keyFor(i, headers)] = emptyToNil(val)
		}
		out = append(out, rec)
	}

	return out, skipped, nil
}

// keyFor returns the column key for index idx, using headers when available,
// otherwise synthesizing a "col_N" name.
func keyFor(idx int, headers []string) string {
	if idx < len(headers) && headers[idx] != "" {
		return headers[idx]
	}
	return fmt.Sprintf("col_%d", idx)
}

// emptyToNil converts an empty string to nil; all other values are returned as-is.
func emptyToNil(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// normalizeHeaders produces canonical header keys using HeaderMap (when
// provided). It strips a UTF-8 BOM from the first cell. Headers that already
// look canonical (contain an underscore) are passed through verbatim so that
// mixed-case keys like query_Hash survive; everything else is lowercased with
// spaces replaced by underscores.
func normalizeHeaders(h []string, opt Options) []string {
	res := make([]string, len(h))
	for i, col := range h {
		c := strings.TrimSpace(col)
		if i == 0 {
			c = strings.TrimPrefix(c, utf8BOM)
		}
		if opt.HeaderMap != nil {
			if m, ok := opt.HeaderMap[c]; ok {
				res[i] = m
				continue
			}
		}
		if strings.Contains(c, "_") {
			res[i] = c
			continue
		}
		res[i] = strings.ReplaceAll(strings.ToLower(c), " ", "_")
	}
	return res
}
