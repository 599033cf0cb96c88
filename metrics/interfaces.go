// Package metrics exports presenced's counters and gauges.
//
// The monitoring mode picks the Registry: ScrapeRegistry serves /metrics,
// PushRegistry batches values for a Prometheus remote-write endpoint and
// Discard drops everything.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Gauge holds a value that may go up or down, such as the connection state.
type Gauge interface {
	Set(float64)
}

// Counter only increases. Add panics on a negative value.
type Counter interface {
	Inc()
	Add(float64)
}

// CounterVec partitions a counter by label values.
type CounterVec interface {
	With(prometheus.Labels) Counter
}

// Registry creates metrics for one monitoring mode. The opts carry the bare
// metric name; registries apply their own prefix.
type Registry interface {
	NewGauge(opts prometheus.GaugeOpts) (Gauge, error)
	NewCounterVec(opts prometheus.CounterOpts, labels []string) (CounterVec, error)
}
