package analyzer

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/olekukonko/tablewriter"
)

// Summary CSV file names, written to the output directory root.
const (
	UnsupportedSummaryFile = "unsupported_functions_summary.csv"
	UDFSummaryFile         = "udf_summary.csv"
	ReportFile             = "pipeline_report.txt"
)

// topN caps the ranked tables embedded in the report; the summary CSVs carry
// the full listings.
const topN = 10

// WriteSummaryCSVs writes the two run-level summary files into dir. Rows are
// ordered by occurrences descending, names ascending on ties.
func (s *Summary) WriteSummaryCSVs(dir string) error {
	if err := writeSummaryCSV(filepath.Join(dir, UnsupportedSummaryFile), "function_name", s.RankedUnsupported()); err != nil {
		return err
	}
	return writeSummaryCSV(filepath.Join(dir, UDFSummaryFile), "udf_name", s.RankedUDFs())
}

func writeSummaryCSV(path, nameHeader string, rows []Ranked) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{nameHeader, "total_occurrences", "number_of_chunks", "chunk_list"}); err != nil {
		return err
	}
	for _, r := range rows {
		rec := []string{
			r.Name,
			strconv.Itoa(r.Occurrences),
			strconv.Itoa(len(r.Chunks)),
			strings.Join(r.Chunks, ","),
		}
		if err := w.Write(rec); err != nil {
			return err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// RenderReport writes the human-readable pipeline report. Output is
// deterministic for a given summary and timestamp.
func (s *Summary) RenderReport(w io.Writer, generatedAt time.Time) error {
	var b strings.Builder

	b.WriteString("Complete Pipeline Report\n")
	fmt.Fprintf(&b, "Generated: %s\n", generatedAt.Format("2006-01-02 15:04:05"))
	fmt.Fprintf(&b, "Run ID: %s\n\n", s.RunID)

	fmt.Fprintf(&b, "Files processed: %d\n", s.FilesProcessed)
	fmt.Fprintf(&b, "Chunks processed: %d\n", s.ChunksProcessed)
	fmt.Fprintf(&b, "Rows loaded: %s\n", humanize.Comma(int64(s.RowsLoaded)))
	fmt.Fprintf(&b, "Rows filtered: %s\n", humanize.Comma(int64(s.RowsFiltered)))
	fmt.Fprintf(&b, "Matched rows: %s\n", humanize.Comma(int64(s.RowsMatched)))
	fmt.Fprintf(&b, "Records with unsupported functions: %d\n", s.RecordsUnsupported)
	fmt.Fprintf(&b, "Records with UDFs: %d\n", s.RecordsUDF)
	fmt.Fprintf(&b, "Unknown function names: %d\n", s.Unknown)
	fmt.Fprintf(&b, "Function-list parse failures: %d\n", s.ParseFailures)
	if s.PeakRSSBytes > 0 {
		fmt.Fprintf(&b, "Peak RSS: %s\n", humanize.IBytes(s.PeakRSSBytes))
	}
	b.WriteString("\n")

	writeCategory(&b, "UNSUPPORTED FUNCTIONS", s.RankedUnsupported())
	writeCategory(&b, "USER DEFINED FUNCTIONS", s.RankedUDFs())

	if len(s.Failures) > 0 {
		b.WriteString("FAILURES:\n")
		b.WriteString(strings.Repeat("-", 80) + "\n")
		for _, f := range s.Failures {
			fmt.Fprintf(&b, "%s: %s\n", f.Source, f.Reason)
		}
		b.WriteString("\n")
	}

	_, err := io.WriteString(w, b.String())
	return err
}

// writeCategory renders one category: a top-N table followed by the full
// listing with chunk detail.
func writeCategory(b *strings.Builder, title string, rows []Ranked) {
	fmt.Fprintf(b, "%s:\n", title)
	b.WriteString(strings.Repeat("-", 80) + "\n")
	if len(rows) == 0 {
		b.WriteString("(none)\n\n")
		return
	}

	tw := tablewriter.NewWriter(b)
	tw.SetHeader([]string{"#", "Function", "Occurrences", "Chunks"})
	tw.SetAutoFormatHeaders(false)
	for i, r := range rows {
		if i == topN {
			break
		}
		tw.Append([]string{
			strconv.Itoa(i + 1),
			r.Name,
			strconv.Itoa(r.Occurrences),
			strconv.Itoa(len(r.Chunks)),
		})
	}
	tw.Render()
	b.WriteString("\n")

	for _, r := range rows {
		fmt.Fprintf(b, "%s: %d occurrences in %d chunks\n", r.Name, r.Occurrences, len(r.Chunks))
		fmt.Fprintf(b, "   Chunks: %s\n", strings.Join(r.Chunks, ","))
	}
	b.WriteString("\n")
}

// WriteReportFile renders the report into dir.
func (s *Summary) WriteReportFile(dir string, generatedAt time.Time) error {
	f, err := os.Create(filepath.Join(dir, ReportFile))
	if err != nil {
		return fmt.Errorf("create report: %w", err)
	}
	defer f.Close()
	return s.RenderReport(f, generatedAt)
}
