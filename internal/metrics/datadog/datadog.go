// Package datadog implements a Datadog backend for the metrics package.
//
// It adapts metrics.Backend to DogStatsD using the official statsd client,
// translating metric labels into Datadog tags. Unlike the Pushgateway
// backend it fires metrics as they happen; Flush closes the client, which
// drains any buffered data at process shutdown.
package datadog

import (
	"fmt"

	"github.com/NiranjGaurav/AutomationReader/internal/metrics"

	"github.com/DataDog/datadog-go/v5/statsd"
)

// Config holds Datadog backend configuration.
type Config struct {
	// Addr is the DogStatsD address, e.g. "127.0.0.1:8125" or "unix:///path/to/socket".
	Addr string

	// Namespace is an optional prefix added to all metric names, e.g. "query_analysis.".
	Namespace string

	// GlobalTags are tags applied to all metrics emitted by this backend,
	// e.g. []string{"env:prod", "service:query-analysis"}.
	GlobalTags []string
}

// Backend is a Datadog implementation of metrics.Backend.
type Backend struct {
	client *statsd.Client
}

// NewBackend constructs a Datadog metrics backend. Addr is required.
func NewBackend(cfg Config) (*Backend, error) {
	if cfg.Addr == "" {
		return nil, fmt.Errorf("datadog: Addr is required")
	}

	var opts []statsd.Option
	if cfg.Namespace != "" {
		opts = append(opts, statsd.WithNamespace(cfg.Namespace))
	}
	if len(cfg.GlobalTags) > 0 {
		opts = append(opts, statsd.WithTags(cfg.GlobalTags))
	}

	c, err := statsd.New(cfg.Addr, opts...)
	if err != nil {
		return nil, fmt.Errorf("datadog: create client: %w", err)
	}

	return &Backend{client: c}, nil
}

// IncCounter forwards to a Datadog Count metric. Fractional deltas are
// truncated; the pipeline only emits whole counts.
func (b *Backend) IncCounter(name string, delta float64, labels metrics.Labels) {
	if b.client == nil {
		return
	}
	b.client.Count(name, int64(delta), labelsToTags(labels), 1)
}

// ObserveHistogram forwards to a Datadog Histogram metric.
func (b *Backend) ObserveHistogram(name string, value float64, labels metrics.Labels) {
	if b.client == nil {
		return
	}
	b.client.Histogram(name, value, labelsToTags(labels), 1)
}

// Flush closes the statsd client, draining buffered data.
func (b *Backend) Flush() error {
	if b.client == nil {
		return nil
	}
	return b.client.Close()
}

func labelsToTags(lbls metrics.Labels) []string {
	if len(lbls) == 0 {
		return nil
	}
	out := make([]string, 0, len(lbls))
	for k, v := range lbls {
		out = append(out, fmt.Sprintf("%s:%s", k, v))
	}
	return out
}
