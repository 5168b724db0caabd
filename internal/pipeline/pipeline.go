// Package pipeline orchestrates one complete analysis run: load query logs,
// filter and join each chunk against its result file, classify function
// usage, and write the per-chunk artifacts plus the run-level summaries and
// report.
//
// Every stage failure short of "no processable input at all" is recoverable:
// the offending file or chunk is recorded on the summary and the run moves
// on.
package pipeline

import (
	"context"
	"encoding/csv"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/NiranjGaurav/AutomationReader/internal/analyzer"
	"github.com/NiranjGaurav/AutomationReader/internal/config"
	"github.com/NiranjGaurav/AutomationReader/internal/filter"
	"github.com/NiranjGaurav/AutomationReader/internal/funcs"
	"github.com/NiranjGaurav/AutomationReader/internal/loader"
	"github.com/NiranjGaurav/AutomationReader/internal/metrics"
	"github.com/NiranjGaurav/AutomationReader/internal/storage"
	"github.com/NiranjGaurav/AutomationReader/pkg/records"
)

// sinkBatchSize bounds rows per insert batch when persisting summaries.
const sinkBatchSize = 500

// Run executes the pipeline for cfg and returns the populated summary. The
// returned error is non-nil only for conditions fatal to the whole run: no
// processable input, an unwritable output directory, or a sink that could
// not be flushed. Per-file and per-chunk problems land in Summary.Failures
// instead.
func Run(ctx context.Context, cfg config.Config, runID string) (*analyzer.Summary, error) {
	cat, err := loadCatalog(cfg)
	if err != nil {
		return nil, err
	}
	flt, err := filter.New(cfg)
	if err != nil {
		return nil, err
	}

	loadStart := time.Now()
	inputs, loadFailures, err := loader.Load(ctx, cfg)
	metrics.RecordStep(runID, "load", err, time.Since(loadStart))
	if err != nil {
		return nil, err
	}

	summary := analyzer.NewSummary(runID)
	for _, f := range loadFailures {
		summary.Fail(f.File, f.Err)
	}
	if len(inputs) == 0 {
		return nil, fmt.Errorf("pipeline: no processable input files in %s (%d failed to load)", cfg.InputPath, len(loadFailures))
	}

	if err := os.MkdirAll(cfg.OutputDir, 0o755); err != nil {
		return nil, fmt.Errorf("pipeline: create output dir: %w", err)
	}

	procStart := time.Now()
	for _, in := range inputs {
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		processInput(cfg, flt, cat, summary, in)
	}
	metrics.RecordStep(runID, "process", nil, time.Since(procStart))
	recordTotals(summary)

	summary.PeakRSSBytes = analyzer.PeakRSS()

	reportStart := time.Now()
	err = writeRunArtifacts(cfg, summary)
	metrics.RecordStep(runID, "report", err, time.Since(reportStart))
	if err != nil {
		return summary, err
	}

	if wantSink(cfg.Sink) {
		sinkStart := time.Now()
		err = persistSummary(ctx, cfg, summary)
		metrics.RecordStep(runID, "sink", err, time.Since(sinkStart))
		if err != nil {
			return summary, fmt.Errorf("pipeline: persist summary: %w", err)
		}
	}

	return summary, nil
}

func loadCatalog(cfg config.Config) (*funcs.Catalog, error) {
	if cfg.CatalogPath == "" {
		return funcs.DefaultCatalog(), nil
	}
	cat, err := funcs.LoadCatalog(cfg.CatalogPath)
	if err != nil {
		return nil, fmt.Errorf("pipeline: load catalog: %w", err)
	}
	return cat, nil
}

// processInput handles one query-log file: a subdirectory of artifacts, one
// set per chunk. Chunk numbering is 1-based to line up with the
// <name>_part_<n>_result.csv files produced by the translation stage.
func processInput(cfg config.Config, flt *filter.Filter, cat *funcs.Catalog, summary *analyzer.Summary, in *loader.Input) {
	subdir := filepath.Join(cfg.OutputDir, in.Name)
	if err := os.MkdirAll(subdir, 0o755); err != nil {
		summary.Fail(in.Name, fmt.Errorf("create output subdir: %w", err))
		return
	}

	summary.FilesProcessed++
	summary.RowsLoaded += in.Table.Len()

	it := in.Table.Chunks(cfg.ChunkSize)
	for n := 1; ; n++ {
		chunk, ok := it.Next()
		if !ok {
			return
		}
		chunkID := fmt.Sprintf("%s_part_%d", in.Name, n)

		results, err := loader.ReadResultsCSV(filepath.Join(cfg.InputPath, chunkID+"_result.csv"))
		if err != nil {
			summary.Fail(chunkID, err)
			continue
		}

		m, err := flt.FilterAndCompare(chunk, results)
		if err != nil {
			summary.Fail(chunkID, err)
			continue
		}
		summary.RowsFiltered += m.FilteredRows
		summary.RowsMatched += m.Matched.Len()

		fc := funcs.AnalyzeTable(m.Matched, cfg, cat)

		if err := writeKeysCSV(filepath.Join(subdir, chunkID+"_filtered.csv"), cfg.KeyColumn(), m.Keys); err != nil {
			summary.Fail(chunkID, err)
			continue
		}
		artifacts := []struct {
			suffix string
			table  *records.Table
		}{
			{"_final.csv", m.Matched},
			{"_final_unsupported.csv", fc.UnsupportedRows},
			{"_final_udfs.csv", fc.UDFRows},
		}
		failed := false
		for _, a := range artifacts {
			path := filepath.Join(subdir, chunkID+a.suffix)
			if err := writeTableCSV(path, a.table); err != nil {
				summary.Fail(chunkID, err)
				failed = true
				break
			}
		}
		if failed {
			continue
		}

		summary.Accumulate(chunkID, fc)
		log.Printf("pipeline: %s: %d filtered, %d matched, %d unsupported row(s), %d udf row(s)",
			chunkID, m.FilteredRows, m.Matched.Len(), fc.UnsupportedRows.Len(), fc.UDFRows.Len())
	}
}

func recordTotals(s *analyzer.Summary) {
	metrics.RecordChunks(s.RunID, int64(s.ChunksProcessed))
	metrics.RecordRows(s.RunID, "loaded", int64(s.RowsLoaded))
	metrics.RecordRows(s.RunID, "filtered", int64(s.RowsFiltered))
	metrics.RecordRows(s.RunID, "matched", int64(s.RowsMatched))
	metrics.RecordRows(s.RunID, "unsupported_records", int64(s.RecordsUnsupported))
	metrics.RecordRows(s.RunID, "udf_records", int64(s.RecordsUDF))
	metrics.RecordRows(s.RunID, "parse_failures", int64(s.ParseFailures))
}

func writeRunArtifacts(cfg config.Config, summary *analyzer.Summary) error {
	if err := summary.WriteSummaryCSVs(cfg.OutputDir); err != nil {
		return err
	}
	return summary.WriteReportFile(cfg.OutputDir, time.Now())
}

// writeKeysCSV writes the _filtered.csv artifact: the distinct key values of
// the chunk's passing rows, one per line under the key column's name.
func writeKeysCSV(path, header string, keys []string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{header}); err != nil {
		return err
	}
	for _, k := range keys {
		if err := w.Write([]string{k}); err != nil {
			return err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// writeTableCSV writes one artifact: a header row of the table's columns
// followed by every row with nil cells rendered empty.
func writeTableCSV(path string, t *records.Table) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(t.Columns); err != nil {
		return err
	}
	line := make([]string, len(t.Columns))
	for _, row := range t.Rows {
		for i, col := range t.Columns {
			line[i] = cellString(row[col])
		}
		if err := w.Write(line); err != nil {
			return err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

func cellString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	default:
		return fmt.Sprintf("%v", t)
	}
}

func wantSink(s config.Sink) bool {
	return s.Kind != "" && s.Kind != "none"
}

// persistSummary flushes the ranked function listings into the configured
// SQL sink, one row per function name per category.
func persistSummary(ctx context.Context, cfg config.Config, summary *analyzer.Summary) error {
	repo, err := storage.New(ctx, storage.Config{
		Kind:    cfg.Sink.Kind,
		DSN:     cfg.Sink.DSN,
		Table:   cfg.Sink.Table,
		Columns: storage.SummaryColumns(),
	})
	if err != nil {
		return err
	}
	defer repo.Close()

	if err := repo.Exec(ctx, storage.SummaryTableDDL(cfg.Sink.Table)); err != nil {
		return err
	}

	rows := summaryRows(summary)
	n, err := storage.WriteRows(ctx, repo, storage.SummaryColumns(), rows, sinkBatchSize)
	if err != nil {
		return err
	}
	log.Printf("pipeline: sink %s: %d summary row(s) written to %s", cfg.Sink.Kind, n, cfg.Sink.Table)
	return nil
}

func summaryRows(s *analyzer.Summary) [][]any {
	var rows [][]any
	appendCategory := func(category string, ranked []analyzer.Ranked) {
		for _, r := range ranked {
			rows = append(rows, []any{
				s.RunID,
				category,
				r.Name,
				r.Occurrences,
				len(r.Chunks),
				strings.Join(r.Chunks, ","),
			})
		}
	}
	appendCategory("unsupported", s.RankedUnsupported())
	appendCategory("udf", s.RankedUDFs())
	return rows
}
