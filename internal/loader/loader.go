// Package loader discovers and reads tabular query-log files. It scans the
// configured input directory (non-recursively) for parquet and CSV files,
// loads each into an in-memory table, validates the required column set, and
// fingerprints content so the same data is never accumulated twice in a run.
package loader

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/zeebo/xxh3"

	"github.com/NiranjGaurav/AutomationReader/internal/config"
	csvparser "github.com/NiranjGaurav/AutomationReader/internal/parser/csv"
	"github.com/NiranjGaurav/AutomationReader/internal/parser/parquet"
	"github.com/NiranjGaurav/AutomationReader/pkg/records"
)

// ErrNoInputFiles is returned when the input directory holds no parquet or
// CSV files. This is the only loader condition fatal to the whole run.
var ErrNoInputFiles = errors.New("no input files found")

// Input is one successfully loaded query-log file.
type Input struct {
	// Name is the base file name without extension; it names the per-file
	// output subdirectory and artifact prefix.
	Name string

	// Path is the source file path.
	Path string

	// Fingerprint is the xxh3 hash of the raw file content.
	Fingerprint uint64

	// Table holds every row of the file.
	Table *records.Table

	// Skipped counts soft-dropped rows (CSV parse failures).
	Skipped int
}

// Failure records a file that could not be loaded. The run continues past it;
// the orchestrator surfaces failures in the final report.
type Failure struct {
	File string
	Err  error
}

// Load reads every supported file under cfg.InputPath. Files that fail to
// load (I/O or schema errors) are returned as Failures rather than aborting
// the run; Load itself fails only when the directory is unreadable or no
// candidate files exist.
//
// Files with identical content fingerprints are loaded once; later
// duplicates are skipped with a warning so no file is counted twice.
func Load(ctx context.Context, cfg config.Config) ([]*Input, []Failure, error) {
	paths, err := discover(cfg.InputPath)
	if err != nil {
		return nil, nil, err
	}
	log.Printf("loader: found %d input file(s) in %s", len(paths), cfg.InputPath)

	var (
		inputs   []*Input
		failures []Failure
		seen     = make(map[uint64]string, len(paths))
	)
	for _, path := range paths {
		select {
		case <-ctx.Done():
			return inputs, failures, ctx.Err()
		default:
		}

		in, err := loadOne(path, cfg)
		if err != nil {
			log.Printf("loader: %s: %v", filepath.Base(path), err)
			failures = append(failures, Failure{File: filepath.Base(path), Err: err})
			continue
		}
		if prev, dup := seen[in.Fingerprint]; dup {
			log.Printf("loader: %s: identical content to %s, skipping", filepath.Base(path), prev)
			continue
		}
		seen[in.Fingerprint] = filepath.Base(path)
		log.Printf("loader: %s: %d rows, %d columns", in.Name, in.Table.Len(), len(in.Table.Columns))
		inputs = append(inputs, in)
	}
	return inputs, failures, nil
}

// discover lists supported files directly under dir, sorted by name for
// deterministic processing order.
func discover(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read input dir %s: %w", dir, err)
	}
	var paths []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		// Companion result files live next to the logs they belong to; they
		// are joined per chunk, never loaded as inputs themselves.
		if strings.HasSuffix(strings.ToLower(e.Name()), "_result.csv") {
			continue
		}
		switch strings.ToLower(filepath.Ext(e.Name())) {
		case ".parquet", ".csv":
			paths = append(paths, filepath.Join(dir, e.Name()))
		}
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("%w in %s", ErrNoInputFiles, dir)
	}
	sort.Strings(paths)
	return paths, nil
}

func loadOne(path string, cfg config.Config) (*Input, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	base := filepath.Base(path)
	var recs []records.Record
	var skipped int
	switch strings.ToLower(filepath.Ext(base)) {
	case ".parquet":
		recs, err = parquet.ReadBytes(data)
	case ".csv":
		p := csvparser.NewParser(csvparser.Options{HasHeader: true, TrimSpace: true})
		recs, skipped, err = p.Parse(bytes.NewReader(data))
	default:
		err = fmt.Errorf("unsupported file type: %s", base)
	}
	if err != nil {
		return nil, err
	}

	table := records.NewTable()
	table.Append(recs...)
	if err := table.Require(base, cfg.RequiredColumns...); err != nil {
		return nil, err
	}

	name := strings.TrimSuffix(base, filepath.Ext(base))
	return &Input{
		Name:        name,
		Path:        path,
		Fingerprint: xxh3.Hash(data),
		Table:       table,
		Skipped:     skipped,
	}, nil
}

// ReadResultsCSV loads one result file (the translated-query records joined
// against the filter's key set) into a table. Missing files are reported via
// os.ErrNotExist so callers can distinguish "no result yet" from read errors.
func ReadResultsCSV(path string) (*records.Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open results %s: %w", path, err)
	}
	defer f.Close()

	p := csvparser.NewParser(csvparser.Options{HasHeader: true, TrimSpace: true})
	recs, skipped, err := p.Parse(f)
	if err != nil {
		return nil, fmt.Errorf("parse results %s: %w", path, err)
	}
	if skipped > 0 {
		log.Printf("loader: results %s: %d malformed row(s) skipped", filepath.Base(path), skipped)
	}

	table := records.NewTable()
	table.Append(recs...)
	return table, nil
}
