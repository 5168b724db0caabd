// Package parquet reads Apache Parquet query-log files into records. It uses
// the segmentio/parquet-go library and returns rows as maps so downstream
// stages stay schema-agnostic.
package parquet

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/segmentio/parquet-go"

	"github.com/NiranjGaurav/AutomationReader/pkg/records"
)

// Reader reads a single parquet file. It maintains both an OS file handle and
// a parquet file handle to enable proper resource cleanup.
type Reader struct {
	file   *os.File
	pqFile *parquet.File
}

// NewReader opens and validates path as a parquet file.
func NewReader(path string) (*Reader, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}

	stat, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}

	pqFile, err := parquet.OpenFile(file, stat.Size())
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("open parquet %s: %w", path, err)
	}

	return &Reader{file: file, pqFile: pqFile}, nil
}

// ReadAll reads every row into memory as a Record. Chunking happens
// downstream; parquet files in this pipeline are bounded per-file.
func (r *Reader) ReadAll() ([]records.Record, error) {
	out := make([]records.Record, 0)

	pr := parquet.NewReader(r.pqFile)
	defer pr.Close()

	for {
		row := make(map[string]any)
		err := pr.Read(&row)
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("read row: %w", err)
		}
		out = append(out, normalize(row))
	}

	return out, nil
}

// Schema returns the parquet file schema.
func (r *Reader) Schema() *parquet.Schema {
	return r.pqFile.Schema()
}

// Close releases the underlying file handle. Safe to call multiple times.
func (r *Reader) Close() error {
	if r.file != nil {
		err := r.file.Close()
		r.file = nil
		return err
	}
	return nil
}

// ReadFile is a convenience that opens path, reads all rows, and closes it.
func ReadFile(path string) ([]records.Record, error) {
	r, err := NewReader(path)
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return r.ReadAll()
}

// ReadBytes parses an in-memory parquet file. The loader uses this after
// fingerprinting file content, avoiding a second read from disk.
func ReadBytes(data []byte) ([]records.Record, error) {
	pqFile, err := parquet.OpenFile(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("open parquet: %w", err)
	}
	r := &Reader{pqFile: pqFile}
	return r.ReadAll()
}

// normalize converts parquet-specific cell values into the pipeline's record
// shape: byte slices become strings (parquet BYTE_ARRAY columns decode as
// []byte) and empty strings become nil, matching the CSV parser.
func normalize(row map[string]any) records.Record {
	rec := make(records.Record, len(row))
	for k, v := range row {
		switch vv := v.(type) {
		case []byte:
			if len(vv) == 0 {
				rec[k] = nil
			} else {
				rec[k] = string(vv)
			}
		case string:
			if vv == "" {
				rec[k] = nil
			} else {
				rec[k] = vv
			}
		default:
			rec[k] = v
		}
	}
	return rec
}
