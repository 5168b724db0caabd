package storage

import (
	"context"
	"fmt"
	"log"
	"time"
)

// SummaryColumns is the fixed column order for the function-summary sink
// table. Each row is one function name in one category for one run.
func SummaryColumns() []string {
	return []string{"run_id", "category", "function_name", "occurrences", "chunk_count", "chunks"}
}

// SummaryTableDDL returns a portable CREATE TABLE IF NOT EXISTS for the sink
// table. TEXT/INTEGER affinities work on both SQLite and Postgres.
func SummaryTableDDL(table string) string {
	return fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	run_id TEXT NOT NULL,
	category TEXT NOT NULL,
	function_name TEXT NOT NULL,
	occurrences INTEGER NOT NULL,
	chunk_count INTEGER NOT NULL,
	chunks TEXT NOT NULL
)`, table)
}

// WriteRows splits rows into batches of batchSize and feeds each batch to the
// repository, logging running totals and instantaneous rows/sec per flush. It
// returns the total rows reported inserted and the first error encountered.
func WriteRows(
	ctx context.Context,
	repo Repository,
	columns []string,
	rows [][]any,
	batchSize int,
) (int64, error) {
	if batchSize <= 0 {
		return 0, fmt.Errorf("storage: batchSize must be > 0")
	}
	if repo == nil {
		return 0, fmt.Errorf("storage: repository must not be nil")
	}

	var (
		total    int64
		batches  int64
		start    = time.Now()
		lastTS   = start
		lastRows int64
	)

	for off := 0; off < len(rows); off += batchSize {
		if err := ctx.Err(); err != nil {
			return total, err
		}

		end := off + batchSize
		if end > len(rows) {
			end = len(rows)
		}

		n, err := repo.CopyFrom(ctx, columns, rows[off:end])
		total += n
		if err != nil {
			log.Printf("storage: batch insert failed after=%d total=%d err=%v", n, total, err)
			return total, err
		}

		batches++
		now := time.Now()
		sinceLast := now.Sub(lastTS)
		rps := float64(0)
		if sinceLast > 0 {
			rps = float64(total-lastRows) / sinceLast.Seconds()
		}
		log.Printf(
			"storage: batch #%d inserted=%d total=%d rps=%.0f elapsed=%s",
			batches, n, total, rps, now.Sub(start).Truncate(time.Millisecond),
		)
		lastTS = now
		lastRows = total
	}

	return total, nil
}
