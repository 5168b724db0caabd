package funcs

import (
	"github.com/NiranjGaurav/AutomationReader/internal/config"
	"github.com/NiranjGaurav/AutomationReader/pkg/records"
)

// FileCounts aggregates one matched table's function usage.
type FileCounts struct {
	// Unsupported and UDFs map function name to occurrence count.
	Unsupported map[string]int
	UDFs        map[string]int

	// Unknown counts entries from the unsupported column that carried no tag
	// and missed the catalog, kept for diagnostic visibility: a growing
	// unknown count usually means the catalog is behind the translator.
	Unknown int

	// ParseFailures counts cells that could not be decoded at all.
	ParseFailures int

	// UnsupportedRows and UDFRows hold the rows whose respective list column
	// was non-empty; they become the _final_unsupported.csv and
	// _final_udfs.csv artifacts.
	UnsupportedRows *records.Table
	UDFRows         *records.Table
}

// AnalyzeTable scans the configured function-list columns across all rows of
// t, parsing and classifying every entry. Malformed cells degrade to empty
// lists and are counted, never fatal.
//
// Counting follows the column an entry came from: names in the unsupported
// column count as unsupported, names in the UDF column as UDFs. An explicit
// tag on an object-shaped entry overrides its column.
func AnalyzeTable(t *records.Table, cfg config.Config, cat *Catalog) FileCounts {
	fc := FileCounts{
		Unsupported:     make(map[string]int),
		UDFs:            make(map[string]int),
		UnsupportedRows: records.NewTable(t.Columns...),
		UDFRows:         records.NewTable(t.Columns...),
	}

	for _, row := range t.Rows {
		if raw, ok := row.String(cfg.UnsupportedColumn()); ok {
			entries, parsed := ParseList(raw)
			if !parsed {
				fc.ParseFailures++
			}
			if len(entries) > 0 {
				fc.UnsupportedRows.Append(row)
			}
			for _, e := range entries {
				if e.Tag == UDF {
					fc.UDFs[e.Name]++
					continue
				}
				fc.Unsupported[e.Name]++
				if cat.Classify(e) == Unknown {
					fc.Unknown++
				}
			}
		}

		if raw, ok := row.String(cfg.UDFColumn()); ok {
			entries, parsed := ParseList(raw)
			if !parsed {
				fc.ParseFailures++
			}
			if len(entries) > 0 {
				fc.UDFRows.Append(row)
			}
			for _, e := range entries {
				if e.Tag == Unsupported {
					fc.Unsupported[e.Name]++
					continue
				}
				fc.UDFs[e.Name]++
			}
		}
	}

	return fc
}
