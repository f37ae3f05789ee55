package service

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/BrandonDHaskell/Portunus/doorsync/internal/doorsync/types"
)

// ReconcileMetrics counts reconcile runs and their per-event outcomes. A nil
// *ReconcileMetrics records nothing.
type ReconcileMetrics struct {
	runs   *prometheus.CounterVec
	events *prometheus.CounterVec
}

func NewReconcileMetrics(reg prometheus.Registerer) *ReconcileMetrics {
	m := &ReconcileMetrics{
		runs: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "doorsync_reconcile_runs_total",
				Help: "Reconcile runs by controller and status (ok, failed).",
			},
			[]string{"controller_id", "status"},
		),
		events: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "doorsync_reconcile_events_total",
				Help: "Events seen by reconcile runs by outcome (inserted, duplicate, unknown, error).",
			},
			[]string{"controller_id", "outcome"},
		),
	}
	reg.MustRegister(m.runs, m.events)
	return m
}

func (m *ReconcileMetrics) observe(res types.ReconcileResult) {
	if m == nil {
		return
	}
	id := strconv.FormatUint(uint64(res.ControllerID), 10)

	status := "ok"
	if res.Failed() {
		status = "failed"
	}
	m.runs.WithLabelValues(id, status).Inc()

	m.events.WithLabelValues(id, "inserted").Add(float64(res.Inserted))
	m.events.WithLabelValues(id, "duplicate").Add(float64(res.SkippedDuplicate))
	m.events.WithLabelValues(id, "unknown").Add(float64(res.SkippedUnknown))
	m.events.WithLabelValues(id, "error").Add(float64(res.Errors))
}
