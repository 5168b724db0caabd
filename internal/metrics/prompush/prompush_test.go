package prompush

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/NiranjGaurav/AutomationReader/internal/metrics"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func readCounterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()

	m := &dto.Metric{}
	if err := c.Write(m); err != nil {
		t.Fatalf("Counter.Write() error = %v", err)
	}
	if m.GetCounter() == nil {
		t.Fatalf("metric did not contain Counter value")
	}
	return m.GetCounter().GetValue()
}

func readSummaryCountSum(t *testing.T, v *prometheus.SummaryVec, labels ...string) (uint64, float64) {
	t.Helper()

	m := &dto.Metric{}
	metric, ok := v.WithLabelValues(labels...).(prometheus.Metric)
	if !ok {
		t.Fatalf("SummaryVec.WithLabelValues(...) does not implement prometheus.Metric")
	}
	if err := metric.Write(m); err != nil {
		t.Fatalf("Summary.Write() error = %v", err)
	}
	if m.GetSummary() == nil {
		t.Fatalf("metric did not contain Summary value")
	}
	sum := m.GetSummary()
	return sum.GetSampleCount(), sum.GetSampleSum()
}

func TestNewBackend(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		jobName     string
		gatewayURL  string
		wantErr     bool
		wantJobName string
	}{
		{
			name:       "missing gateway URL returns error",
			jobName:    "query-analysis",
			gatewayURL: "",
			wantErr:    true,
		},
		{
			name:        "empty job name uses default",
			jobName:     "",
			gatewayURL:  "http://pushgateway:9091",
			wantJobName: "pipeline",
		},
		{
			name:        "explicit job name is preserved",
			jobName:     "query-analysis-nightly",
			gatewayURL:  "http://pushgateway:9091",
			wantJobName: "query-analysis-nightly",
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			b, err := NewBackend(tt.jobName, tt.gatewayURL)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("NewBackend(%q, %q) error = nil, want non-nil", tt.jobName, tt.gatewayURL)
				}
				return
			}
			if err != nil {
				t.Fatalf("NewBackend(%q, %q) error = %v", tt.jobName, tt.gatewayURL, err)
			}
			if b.jobName != tt.wantJobName {
				t.Fatalf("backend.jobName = %q, want %q", b.jobName, tt.wantJobName)
			}
			if b.gatewayURL != tt.gatewayURL {
				t.Fatalf("backend.gatewayURL = %q, want %q", b.gatewayURL, tt.gatewayURL)
			}

			// These calls must not panic on label cardinality.
			b.stepCounter.WithLabelValues("load", "success").Add(1)
			b.stepDuration.WithLabelValues("filter", "failure").Observe(0.5)
			b.rowCounter.WithLabelValues("matched").Add(1)
			b.chunkCounter.Add(1)
		})
	}
}

func TestIncCounter(t *testing.T) {
	t.Parallel()

	b, err := NewBackend("pipeline", "http://example.com")
	if err != nil {
		t.Fatalf("NewBackend() error = %v", err)
	}

	b.IncCounter("pipeline_step_total", 3, metrics.Labels{"step": "filter", "status": "success"})
	b.IncCounter("pipeline_rows_total", 5, metrics.Labels{"kind": "matched"})
	b.IncCounter("pipeline_chunks_total", 2, nil)
	b.IncCounter("unknown_metric", 10, metrics.Labels{"foo": "bar"})

	if got := readCounterValue(t, b.stepCounter.WithLabelValues("filter", "success")); got != 3 {
		t.Fatalf("stepCounter value = %v, want 3", got)
	}
	if got := readCounterValue(t, b.rowCounter.WithLabelValues("matched")); got != 5 {
		t.Fatalf("rowCounter value = %v, want 5", got)
	}
	if got := readCounterValue(t, b.chunkCounter); got != 2 {
		t.Fatalf("chunkCounter value = %v, want 2", got)
	}
}

func TestIncCounterNilCollectors(t *testing.T) {
	t.Parallel()

	b := &Backend{} // zero-value backend with nil collectors

	b.IncCounter("pipeline_step_total", 1, metrics.Labels{"step": "s", "status": "success"})
	b.IncCounter("pipeline_rows_total", 1, metrics.Labels{"kind": "loaded"})
	b.IncCounter("pipeline_chunks_total", 1, nil)
	b.ObserveHistogram("pipeline_step_duration_seconds", 0.1, nil)
}

func TestObserveHistogram(t *testing.T) {
	t.Parallel()

	b, err := NewBackend("pipeline", "http://example.com")
	if err != nil {
		t.Fatalf("NewBackend() error = %v", err)
	}

	lbls := metrics.Labels{"step": "analyze", "status": "success"}
	b.ObserveHistogram("pipeline_step_duration_seconds", 1.5, lbls)
	b.ObserveHistogram("other_metric", 2.0, lbls)

	count, sum := readSummaryCountSum(t, b.stepDuration, "analyze", "success")
	if count != 1 {
		t.Fatalf("summary sample count = %d, want 1", count)
	}
	if sum != 1.5 {
		t.Fatalf("summary sample sum = %v, want 1.5", sum)
	}
}

// TestFlush verifies that Flush pushes the registry to the configured
// Pushgateway URL.
func TestFlush(t *testing.T) {
	t.Parallel()

	type pushRequestInfo struct {
		method  string
		path    string
		bodyLen int
	}

	reqCh := make(chan pushRequestInfo, 1)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer r.Body.Close()
		body, _ := io.ReadAll(r.Body)

		reqCh <- pushRequestInfo{
			method:  r.Method,
			path:    r.URL.Path,
			bodyLen: len(body),
		}
		w.WriteHeader(http.StatusAccepted)
	}))
	defer server.Close()

	b, err := NewBackend("query-analysis", server.URL)
	if err != nil {
		t.Fatalf("NewBackend() error = %v", err)
	}

	b.IncCounter("pipeline_step_total", 1, metrics.Labels{"step": "load", "status": "success"})

	if err := b.Flush(); err != nil {
		t.Fatalf("Flush() error = %v", err)
	}

	var got pushRequestInfo
	select {
	case got = <-reqCh:
	default:
		t.Fatalf("Flush() did not result in any HTTP request to the Pushgateway")
	}

	if got.method == "" || got.path == "" {
		t.Fatalf("push request incomplete: %+v", got)
	}
	if got.bodyLen == 0 {
		t.Fatalf("push request body length = 0, want > 0")
	}
}
