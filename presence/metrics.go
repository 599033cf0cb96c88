package presence

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/nomis52/presenced/metrics"
)

// Metrics records worker activity. A nil *Metrics records nothing.
type Metrics struct {
	commands  metrics.CounterVec
	faults    metrics.CounterVec
	connected metrics.Gauge
}

// NewMetrics registers the presence metrics with reg.
func NewMetrics(reg metrics.Registry) (*Metrics, error) {
	commands, err := reg.NewCounterVec(prometheus.CounterOpts{
		Name: "presence_commands_total",
		Help: "Presence commands applied by the worker.",
	}, []string{"command"})
	if err != nil {
		return nil, fmt.Errorf("creating commands counter: %w", err)
	}

	faults, err := reg.NewCounterVec(prometheus.CounterOpts{
		Name: "presence_faults_total",
		Help: "Failed presence client calls.",
	}, []string{"op"})
	if err != nil {
		return nil, fmt.Errorf("creating faults counter: %w", err)
	}

	connected, err := reg.NewGauge(prometheus.GaugeOpts{
		Name: "presence_connected",
		Help: "1 while the presence connection is established.",
	})
	if err != nil {
		return nil, fmt.Errorf("creating connected gauge: %w", err)
	}

	return &Metrics{
		commands:  commands,
		faults:    faults,
		connected: connected,
	}, nil
}

func (m *Metrics) commandApplied(cmd Command) {
	if m == nil {
		return
	}
	m.commands.With(prometheus.Labels{"command": cmd.String()}).Inc()
}

func (m *Metrics) faultRecorded(op string) {
	if m == nil {
		return
	}
	m.faults.With(prometheus.Labels{"op": op}).Inc()
}

func (m *Metrics) stateChanged(state ConnectionState) {
	if m == nil {
		return
	}
	if state == Connected {
		m.connected.Set(1)
	} else {
		m.connected.Set(0)
	}
}
