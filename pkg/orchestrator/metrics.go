package orchestrator

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/deepaksuthar40128/RemoteDx/pkg/diag"
	"github.com/deepaksuthar40128/RemoteDx/pkg/machine"
	"github.com/deepaksuthar40128/RemoteDx/pkg/monitoring"
)

// Metrics holds the check metrics. A nil *Metrics records nothing.
type Metrics struct {
	ChecksTotal     *prometheus.CounterVec
	CheckAttempts   *prometheus.CounterVec
	CheckDuration   *prometheus.HistogramVec
	MachinesRunning prometheus.Gauge
}

// NewMetrics registers the check metrics on mc.
func NewMetrics(mc *monitoring.MetricsCollector) *Metrics {
	return &Metrics{
		ChecksTotal: mc.NewCounter("checks_total", "Completed checks by outcome",
			[]string{"check", "variant", "status"}),
		CheckAttempts: mc.NewCounter("check_attempts_total", "Check attempts including retries",
			[]string{"check"}),
		CheckDuration: mc.NewHistogram("check_duration_seconds", "Duration of the final check attempt",
			[]string{"check"}, []float64{.01, .025, .05, .1, .2, .3, .5, 1, 2}),
		MachinesRunning: mc.NewGauge("machines_running", "Machines currently being diagnosed", nil).WithLabelValues(),
	}
}

func (m *Metrics) observe(v machine.Variant, rec diag.Record) {
	if m == nil {
		return
	}
	m.ChecksTotal.WithLabelValues(rec.CheckName, v.String(), rec.Status.String()).Inc()
	m.CheckAttempts.WithLabelValues(rec.CheckName).Add(float64(rec.Attempts))
	m.CheckDuration.WithLabelValues(rec.CheckName).Observe(rec.Duration.Seconds())
}

func (m *Metrics) machineStarted() {
	if m != nil {
		m.MachinesRunning.Inc()
	}
}

func (m *Metrics) machineFinished() {
	if m != nil {
		m.MachinesRunning.Dec()
	}
}
