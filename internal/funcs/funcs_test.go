package funcs

import (
	"reflect"
	"testing"
)

func names(entries []Entry) []string {
	var out []string
	for _, e := range entries {
		out = append(out, e.Name)
	}
	return out
}

func TestParseList_Shapes(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		raw  string
		want []string
		ok   bool
	}{
		{"flat array", `["LEFT","CONCAT"]`, []string{"LEFT", "CONCAT"}, true},
		{"single quoted", `['LEFT', 'DATEADD']`, []string{"LEFT", "DATEADD"}, true},
		{"tagged objects", `[{"name":"LEFT","category":"unsupported"},{"name":"my_fn","type":"udf"}]`, []string{"LEFT", "my_fn"}, true},
		{"bare name", `LEFT`, []string{"LEFT"}, true},
		{"bracketed bare list", `[LEFT, CONCAT]`, []string{"LEFT", "CONCAT"}, true},
		{"empty string", ``, nil, true},
		{"empty array", `[]`, nil, true},
		{"null", `null`, nil, true},
		{"whitespace entries dropped", `[" LEFT ",""]`, []string{"LEFT"}, true},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			entries, ok := ParseList(tc.raw)
			if ok != tc.ok {
				t.Fatalf("ok = %v, want %v", ok, tc.ok)
			}
			if got := names(entries); !reflect.DeepEqual(got, tc.want) {
				t.Fatalf("ParseList(%q) = %v, want %v", tc.raw, got, tc.want)
			}
		})
	}
}

func TestParseList_MalformedNeverPanicsOrErrors(t *testing.T) {
	t.Parallel()

	// "not json" outside brackets still yields a usable one-element list
	// (bare-name fallback); hard garbage inside brackets yields empty + !ok.
	entries, ok := ParseList(`[{"name": unterminated`)
	if ok || entries != nil {
		t.Fatalf("garbage = %v, %v; want nil, false", entries, ok)
	}

	entries, ok = ParseList("not json")
	if !ok || len(entries) != 1 || entries[0].Name != "not json" {
		t.Fatalf("bare fallback = %v, %v", entries, ok)
	}
}

func TestParseList_TaggedCategories(t *testing.T) {
	t.Parallel()

	entries, ok := ParseList(`[{"name":"LEFT","category":"unsupported"},{"name":"my_fn","type":"udf"},{"name":"x"}]`)
	if !ok || len(entries) != 3 {
		t.Fatalf("entries = %v, %v", entries, ok)
	}
	if entries[0].Tag != Unsupported || entries[1].Tag != UDF || entries[2].Tag != Unknown {
		t.Fatalf("tags = %v %v %v", entries[0].Tag, entries[1].Tag, entries[2].Tag)
	}
}

func TestCatalog_Classify(t *testing.T) {
	t.Parallel()

	cat := DefaultCatalog()
	if cat.Len() == 0 {
		t.Fatal("embedded catalog is empty")
	}

	// Catalog hit, case-insensitive.
	for _, n := range []string{"LEFT", "left", "Left"} {
		if got := cat.Classify(Entry{Name: n, Tag: Unknown}); got != Unsupported {
			t.Fatalf("Classify(%s) = %v, want Unsupported", n, got)
		}
	}
	// Not on the list, no tag.
	if got := cat.Classify(Entry{Name: "CONCAT", Tag: Unknown}); got != Unknown {
		t.Fatalf("Classify(CONCAT) = %v, want Unknown", got)
	}
	// Explicit tag wins over catalog membership.
	if got := cat.Classify(Entry{Name: "LEFT", Tag: UDF}); got != UDF {
		t.Fatalf("Classify(tagged LEFT) = %v, want UDF", got)
	}
}
