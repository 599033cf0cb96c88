package metrics

import "github.com/prometheus/client_golang/prometheus"

// Discard is a Registry whose metrics ignore every update. It backs the
// "none" monitoring mode.
var Discard Registry = discardRegistry{}

type discardRegistry struct{}

func (discardRegistry) NewGauge(prometheus.GaugeOpts) (Gauge, error) {
	return discardMetric{}, nil
}

func (discardRegistry) NewCounterVec(prometheus.CounterOpts, []string) (CounterVec, error) {
	return discardCounterVec{}, nil
}

type discardMetric struct{}

func (discardMetric) Set(float64) {}
func (discardMetric) Inc()        {}
func (discardMetric) Add(float64) {}

type discardCounterVec struct{}

func (discardCounterVec) With(prometheus.Labels) Counter { return discardMetric{} }
