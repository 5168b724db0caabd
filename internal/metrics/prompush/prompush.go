// Package prompush implements a Prometheus Pushgateway backend for the
// metrics package.
//
// Batch jobs are a poor fit for scrape-based Prometheus, so this backend
// collects everything in a private registry and pushes it once at the end of
// the run. All Prometheus-specific dependencies live here; the rest of the
// project only sees metrics.Backend.
package prompush

import (
	"fmt"

	"github.com/NiranjGaurav/AutomationReader/internal/metrics"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
)

// Backend is a Prometheus Pushgateway metrics backend.
type Backend struct {
	gatewayURL string // e.g. http://pushgateway:9091
	jobName    string // Pushgateway "job" group

	reg *prometheus.Registry

	stepCounter  *prometheus.CounterVec // pipeline_step_total
	stepDuration *prometheus.SummaryVec // pipeline_step_duration_seconds

	rowCounter   *prometheus.CounterVec // pipeline_rows_total
	chunkCounter prometheus.Counter     // pipeline_chunks_total
}

// NewBackend constructs a Pushgateway backend. jobName is the Pushgateway
// grouping key; when empty it defaults to "pipeline".
func NewBackend(jobName, gatewayURL string) (*Backend, error) {
	if gatewayURL == "" {
		return nil, fmt.Errorf("prompush: gateway URL is required")
	}
	if jobName == "" {
		jobName = "pipeline"
	}

	reg := prometheus.NewRegistry()

	// The run ID travels as the Pushgateway job grouping, not as a label,
	// to keep series cardinality bounded.
	stepCounter := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pipeline_step_total",
			Help: "Total pipeline stage executions, partitioned by step and status.",
		},
		[]string{"step", "status"},
	)
	stepDuration := prometheus.NewSummaryVec(
		prometheus.SummaryOpts{
			Name:       "pipeline_step_duration_seconds",
			Help:       "Duration of pipeline stages in seconds, partitioned by step and status.",
			Objectives: map[float64]float64{0.5: 0.05, 0.9: 0.01, 0.99: 0.001},
		},
		[]string{"step", "status"},
	)
	rowCounter := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pipeline_rows_total",
			Help: "Row-level counts per kind (loaded, filtered, matched, unsupported_records, udf_records, parse_failures).",
		},
		[]string{"kind"},
	)
	chunkCounter := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "pipeline_chunks_total",
			Help: "Total number of chunks processed by this run.",
		},
	)

	if err := reg.Register(stepCounter); err != nil {
		return nil, fmt.Errorf("prompush: register step counter: %w", err)
	}
	if err := reg.Register(stepDuration); err != nil {
		return nil, fmt.Errorf("prompush: register step summary: %w", err)
	}
	if err := reg.Register(rowCounter); err != nil {
		return nil, fmt.Errorf("prompush: register row counter: %w", err)
	}
	if err := reg.Register(chunkCounter); err != nil {
		return nil, fmt.Errorf("prompush: register chunk counter: %w", err)
	}

	return &Backend{
		gatewayURL:   gatewayURL,
		jobName:      jobName,
		reg:          reg,
		stepCounter:  stepCounter,
		stepDuration: stepDuration,
		rowCounter:   rowCounter,
		chunkCounter: chunkCounter,
	}, nil
}

func (b *Backend) IncCounter(name string, delta float64, labels metrics.Labels) {
	switch name {
	case "pipeline_step_total":
		if b.stepCounter == nil {
			return
		}
		b.stepCounter.WithLabelValues(labels["step"], labels["status"]).Add(delta)

	case "pipeline_rows_total":
		if b.rowCounter == nil {
			return
		}
		b.rowCounter.WithLabelValues(labels["kind"]).Add(delta)

	case "pipeline_chunks_total":
		if b.chunkCounter == nil {
			return
		}
		b.chunkCounter.Add(delta)

	default:
		// unknown metric name: ignore
	}
}

func (b *Backend) ObserveHistogram(name string, value float64, labels metrics.Labels) {
	if name != "pipeline_step_duration_seconds" || b.stepDuration == nil {
		return
	}
	b.stepDuration.WithLabelValues(labels["step"], labels["status"]).Observe(value)
}

// Flush pushes the current registry to the Pushgateway.
func (b *Backend) Flush() error {
	return push.New(b.gatewayURL, b.jobName).
		Gatherer(b.reg).
		Push()
}
