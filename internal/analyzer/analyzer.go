// Package analyzer folds per-chunk function counts into run-level summaries
// and renders the final artifacts: the two summary CSVs and the free-text
// pipeline report.
package analyzer

import (
	"sort"

	"github.com/NiranjGaurav/AutomationReader/internal/funcs"
)

// FunctionStat tracks one function name across the run.
type FunctionStat struct {
	Occurrences int
	Chunks      map[string]struct{}
}

// Failure records one recoverable error surfaced in the report. The run
// continues past every Failure; only a run with zero processable files fails
// outright.
type Failure struct {
	Source string // file or chunk identifier
	Reason string
}

// Summary is the run-level aggregation object. It is mutated only by the
// orchestrator's sequential loop and is not safe for concurrent use.
type Summary struct {
	RunID string

	Unsupported map[string]*FunctionStat
	UDFs        map[string]*FunctionStat

	FilesProcessed  int
	ChunksProcessed int
	RowsLoaded      int
	RowsFiltered    int
	RowsMatched     int

	// RecordsUnsupported and RecordsUDF count matched rows whose respective
	// function list was non-empty.
	RecordsUnsupported int
	RecordsUDF         int

	// Unknown and ParseFailures carry the diagnostic counters from funcs.
	Unknown       int
	ParseFailures int

	// PeakRSSBytes is captured once by the orchestrator before rendering;
	// zero omits the report line.
	PeakRSSBytes uint64

	Failures []Failure
}

// NewSummary returns an empty Summary for the given run.
func NewSummary(runID string) *Summary {
	return &Summary{
		RunID:       runID,
		Unsupported: make(map[string]*FunctionStat),
		UDFs:        make(map[string]*FunctionStat),
	}
}

// Accumulate merges one chunk's counts into the running totals. The fold is
// commutative in chunk order; processing the same chunk twice double-counts,
// so the orchestrator feeds each chunk exactly once.
func (s *Summary) Accumulate(chunkID string, fc funcs.FileCounts) {
	s.ChunksProcessed++
	s.Unknown += fc.Unknown
	s.ParseFailures += fc.ParseFailures
	s.RecordsUnsupported += fc.UnsupportedRows.Len()
	s.RecordsUDF += fc.UDFRows.Len()

	merge(s.Unsupported, chunkID, fc.Unsupported)
	merge(s.UDFs, chunkID, fc.UDFs)
}

func merge(dst map[string]*FunctionStat, chunkID string, counts map[string]int) {
	for name, n := range counts {
		st := dst[name]
		if st == nil {
			st = &FunctionStat{Chunks: make(map[string]struct{})}
			dst[name] = st
		}
		st.Occurrences += n
		st.Chunks[chunkID] = struct{}{}
	}
}

// Fail records a recoverable failure for the report.
func (s *Summary) Fail(source string, err error) {
	s.Failures = append(s.Failures, Failure{Source: source, Reason: err.Error()})
}

// Ranked is one row of a summary listing.
type Ranked struct {
	Name        string
	Occurrences int
	Chunks      []string // sorted chunk identifiers
}

// rank orders a stat map by occurrences descending, ties broken by name
// ascending, so listings and CSVs are deterministic.
func rank(stats map[string]*FunctionStat) []Ranked {
	out := make([]Ranked, 0, len(stats))
	for name, st := range stats {
		chunks := make([]string, 0, len(st.Chunks))
		for c := range st.Chunks {
			chunks = append(chunks, c)
		}
		sort.Strings(chunks)
		out = append(out, Ranked{Name: name, Occurrences: st.Occurrences, Chunks: chunks})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Occurrences != out[j].Occurrences {
			return out[i].Occurrences > out[j].Occurrences
		}
		return out[i].Name < out[j].Name
	})
	return out
}

// RankedUnsupported returns the unsupported-function listing in report order.
func (s *Summary) RankedUnsupported() []Ranked { return rank(s.Unsupported) }

// RankedUDFs returns the UDF listing in report order.
func (s *Summary) RankedUDFs() []Ranked { return rank(s.UDFs) }
