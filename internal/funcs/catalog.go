package funcs

import (
	"bufio"
	_ "embed"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/text/cases"
)

// defaultCatalog is the known-unsupported-function list shipped with the
// binary. It tracks the upstream translator's capabilities and is expected to
// change between releases; use LoadCatalog to override it per run.
//
//go:embed catalog.txt
var defaultCatalog string

// Catalog is the lookup table of known unsupported function names. Lookups
// fold case so "Left", "LEFT", and "left" are the same function.
type Catalog struct {
	names map[string]struct{}
	fold  cases.Caser
}

// DefaultCatalog returns the embedded catalog.
func DefaultCatalog() *Catalog {
	c, err := parseCatalog(strings.NewReader(defaultCatalog))
	if err != nil {
		// The embedded list is validated by tests; a failure here is a build
		// defect, not a runtime condition.
		panic(fmt.Sprintf("funcs: embedded catalog: %v", err))
	}
	return c
}

// LoadCatalog reads a catalog from a line-list file: one name per line,
// blank lines and '#' comments skipped.
func LoadCatalog(path string) (*Catalog, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open catalog: %w", err)
	}
	defer f.Close()
	c, err := parseCatalog(f)
	if err != nil {
		return nil, fmt.Errorf("catalog %s: %w", path, err)
	}
	return c, nil
}

func parseCatalog(r io.Reader) (*Catalog, error) {
	c := &Catalog{names: make(map[string]struct{}), fold: cases.Fold()}
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		c.names[c.fold.String(line)] = struct{}{}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return c, nil
}

// Len returns the number of catalog entries.
func (c *Catalog) Len() int { return len(c.names) }

// Contains reports whether name is on the known-unsupported list.
func (c *Catalog) Contains(name string) bool {
	_, ok := c.names[c.fold.String(name)]
	return ok
}

// Classify maps an entry to its category: an explicit tag wins, then catalog
// membership, then Unknown.
func (c *Catalog) Classify(e Entry) Category {
	if e.Tag == Unsupported || e.Tag == UDF {
		return e.Tag
	}
	if c.Contains(e.Name) {
		return Unsupported
	}
	return Unknown
}
