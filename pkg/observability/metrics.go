package observability

import (
	"context"

	"github.com/aretw0/forge/pkg/domain"
	"github.com/aretw0/forge/pkg/instance"
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics exports block and instance activity to Prometheus.
type Metrics struct {
	transitions *prometheus.CounterVec
	ticks       prometheus.Counter
	instances   *prometheus.GaugeVec
}

var _ domain.StateChangeListener = (*Metrics)(nil)

// NewMetrics creates unregistered collectors.
func NewMetrics() *Metrics {
	return &Metrics{
		transitions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "forge_block_transitions_total",
				Help: "Total number of block state transitions",
			},
			[]string{"block_type", "state"},
		),
		ticks: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "forge_ticks_total",
			Help: "Total number of instance ticks",
		}),
		instances: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "forge_instances",
				Help: "Number of scheduled instances per state",
			},
			[]string{"state"},
		),
	}
}

// Register adds the collectors to reg.
func (m *Metrics) Register(reg prometheus.Registerer) error {
	for _, c := range []prometheus.Collector{m.transitions, m.ticks, m.instances} {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}

// MustRegister is like Register but panics on error.
func (m *Metrics) MustRegister(reg prometheus.Registerer) {
	reg.MustRegister(m.transitions, m.ticks, m.instances)
}

// OnStateChanged counts a block transition.
func (m *Metrics) OnStateChanged(_ context.Context, e domain.StateChangeEvent) error {
	m.transitions.WithLabelValues(e.BlockTypeID, e.New.String()).Inc()
	return nil
}

// InstanceHook moves an instance between state gauges.
// Instances are counted from their first transition on.
func (m *Metrics) InstanceHook(_ context.Context, _ *instance.Instance, old, next domain.RunnableState) {
	if old != domain.StateCreated {
		m.instances.WithLabelValues(old.String()).Dec()
	}
	m.instances.WithLabelValues(next.String()).Inc()
}

// TickHook counts an instance tick.
func (m *Metrics) TickHook(context.Context, *instance.Instance) {
	m.ticks.Inc()
}
