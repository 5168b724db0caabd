package metrics

import (
	"errors"
	"sync"
	"testing"
	"time"
)

// captureBackend records calls for assertions.
type captureBackend struct {
	mu       sync.Mutex
	counters map[string]float64
	labels   map[string]Labels
	observed map[string][]float64
	flushed  int
}

func newCapture() *captureBackend {
	return &captureBackend{
		counters: map[string]float64{},
		labels:   map[string]Labels{},
		observed: map[string][]float64{},
	}
}

func (c *captureBackend) IncCounter(name string, delta float64, labels Labels) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.counters[name] += delta
	c.labels[name] = labels
}

func (c *captureBackend) ObserveHistogram(name string, value float64, labels Labels) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.observed[name] = append(c.observed[name], value)
}

func (c *captureBackend) Flush() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.flushed++
	return nil
}

// install swaps the package backend for the test's duration. These tests
// cannot run in parallel because the backend is process-wide.
func install(t *testing.T, b Backend) {
	t.Helper()
	SetBackend(b)
	t.Cleanup(func() { SetBackend(nopBackend{}) })
}

func TestRecordStep(t *testing.T) {
	c := newCapture()
	install(t, c)

	RecordStep("run1", "filter", nil, 250*time.Millisecond)
	RecordStep("run1", "filter", errors.New("boom"), time.Second)

	if got := c.counters["pipeline_step_total"]; got != 2 {
		t.Fatalf("step counter = %v, want 2", got)
	}
	if got := c.labels["pipeline_step_total"]["status"]; got != "failure" {
		t.Fatalf("last status label = %q, want failure", got)
	}
	if got := c.observed["pipeline_step_duration_seconds"]; len(got) != 2 || got[1] != 1.0 {
		t.Fatalf("durations = %v", got)
	}
}

func TestRecordRows_IgnoresNonPositive(t *testing.T) {
	c := newCapture()
	install(t, c)

	RecordRows("run1", "matched", 0)
	RecordRows("run1", "matched", -3)
	RecordRows("run1", "matched", 7)

	if got := c.counters["pipeline_rows_total"]; got != 7 {
		t.Fatalf("rows counter = %v, want 7", got)
	}
}

func TestSetBackend_NilKeepsExisting(t *testing.T) {
	c := newCapture()
	install(t, c)

	SetBackend(nil)
	RecordChunks("run1", 2)

	if got := c.counters["pipeline_chunks_total"]; got != 2 {
		t.Fatalf("chunk counter = %v, want 2", got)
	}
}

func TestNopBackendIsSafe(t *testing.T) {
	install(t, nopBackend{})

	RecordStep("run1", "load", nil, time.Millisecond)
	RecordRows("run1", "loaded", 10)
	if err := Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}
}
