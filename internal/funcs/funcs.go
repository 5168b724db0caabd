// Package funcs parses the per-row JSON function lists carried by result
// files and classifies the names they contain.
//
// Result rows encode the functions referenced by a query as small JSON
// documents in the unsupported_functions and udf_list columns. Real files
// contain several shapes: flat arrays of names, arrays of tagged objects,
// and the single-quoted pseudo-JSON the upstream translator sometimes emits.
// Decoding tries each known shape in a fixed priority order and degrades to
// an empty list on failure; a malformed cell never aborts its row.
package funcs

import (
	"encoding/json"
	"log"
	"strings"
)

// Category classifies a function entry.
type Category string

const (
	// Unsupported marks a function on the known disallowed/incompatible list.
	Unsupported Category = "unsupported"
	// UDF marks a user-defined function.
	UDF Category = "udf"
	// Unknown marks a name with no explicit tag and no catalog hit.
	Unknown Category = "unknown"
)

// Entry is one parsed function reference. Tag is the explicit category from
// object-shaped entries, or Unknown when the entry carried none.
type Entry struct {
	Name string
	Tag  Category
}

// taggedEntry is the object shape emitted by newer translator versions.
// Either "category" or "type" may carry the tag.
type taggedEntry struct {
	Name     string `json:"name"`
	Category string `json:"category"`
	Type     string `json:"type"`
}

// ParseList decodes a function-list cell. ok is false when the cell held
// something unrecognizable; the failure is logged and the returned list is
// empty, never an error.
//
// Accepted shapes, tried in priority order:
//  1. JSON array of name strings: ["LEFT","CONCAT"]
//  2. JSON array of tagged objects: [{"name":"LEFT","category":"unsupported"}]
//  3. Either of the above with single quotes instead of double quotes.
//  4. A bare name, or a bracketed comma-separated list of bare names.
func ParseList(raw string) (entries []Entry, ok bool) {
	s := strings.TrimSpace(raw)
	if s == "" || s == "[]" || s == "null" {
		return nil, true
	}

	if strings.HasPrefix(s, "[") {
		if strings.HasSuffix(s, "]") {
			if entries, ok = parseJSONArray(s); ok {
				return entries, true
			}
			// Single-quoted pseudo-JSON from older translator builds.
			if entries, ok = parseJSONArray(strings.ReplaceAll(s, "'", `"`)); ok {
				return entries, true
			}
			// Last resort: strip brackets and split on commas.
			if entries = parseBareList(strings.Trim(s, "[]")); entries != nil {
				return entries, true
			}
		}
		log.Printf("funcs: unparseable function list %q", truncate(raw))
		return nil, false
	}

	// A lone name outside brackets is a one-element list.
	if entries = parseBareList(s); entries != nil {
		return entries, true
	}
	log.Printf("funcs: unparseable function list %q", truncate(raw))
	return nil, false
}

// parseJSONArray attempts shapes 1 and 2.
func parseJSONArray(s string) ([]Entry, bool) {
	var names []string
	if err := json.Unmarshal([]byte(s), &names); err == nil {
		out := make([]Entry, 0, len(names))
		for _, n := range names {
			if n = strings.TrimSpace(n); n != "" {
				out = append(out, Entry{Name: n, Tag: Unknown})
			}
		}
		return out, true
	}

	var tagged []taggedEntry
	if err := json.Unmarshal([]byte(s), &tagged); err == nil {
		out := make([]Entry, 0, len(tagged))
		for _, te := range tagged {
			name := strings.TrimSpace(te.Name)
			if name == "" {
				continue
			}
			out = append(out, Entry{Name: name, Tag: tagCategory(te)})
		}
		return out, true
	}
	return nil, false
}

// parseBareList splits a plain comma-separated list of names. Returns nil
// when nothing useful remains after quote stripping.
func parseBareList(s string) []Entry {
	s = strings.NewReplacer(`"`, "", "'", "").Replace(s)
	var out []Entry
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, Entry{Name: part, Tag: Unknown})
		}
	}
	return out
}

func tagCategory(te taggedEntry) Category {
	tag := te.Category
	if tag == "" {
		tag = te.Type
	}
	switch strings.ToLower(strings.TrimSpace(tag)) {
	case "unsupported":
		return Unsupported
	case "udf", "user_defined", "user-defined":
		return UDF
	default:
		return Unknown
	}
}

// truncate caps log output for pathological cells.
func truncate(s string) string {
	const max = 120
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
