// Package metrics defines the Prometheus collectors of the fleet core.
// Collectors are registered on an injected Registerer, never the global one,
// so tests can use a fresh registry each.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds every collector. A nil *Metrics is valid and records nothing.
type Metrics struct {
	positionsReported prometheus.Counter
	positionsRejected *prometheus.CounterVec
	scans             *prometheus.CounterVec
	alertsCreated     *prometheus.CounterVec
	snapshotCache     *prometheus.CounterVec
	attendanceRetries prometheus.Counter
}

// New creates the collectors and registers them on reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		positionsReported: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "fleet",
			Name:      "positions_reported_total",
			Help:      "Position fixes accepted from drivers.",
		}),
		positionsRejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "fleet",
			Name:      "positions_rejected_total",
			Help:      "Position reports rejected, by reason.",
		}, []string{"reason"}),
		scans: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "fleet",
			Name:      "anomaly_scans_total",
			Help:      "Anomaly scans run, by outcome.",
		}, []string{"outcome"}),
		alertsCreated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "fleet",
			Name:      "alerts_created_total",
			Help:      "Alerts created by the detection engine, by type.",
		}, []string{"type"}),
		snapshotCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "fleet",
			Name:      "snapshot_cache_requests_total",
			Help:      "Fleet snapshot cache lookups, by result.",
		}, []string{"result"}),
		attendanceRetries: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "fleet",
			Name:      "attendance_conflict_retries_total",
			Help:      "Attendance upserts retried after a unique-key conflict.",
		}),
	}
	reg.MustRegister(
		m.positionsReported, m.positionsRejected, m.scans,
		m.alertsCreated, m.snapshotCache, m.attendanceRetries,
	)
	return m
}

func (m *Metrics) PositionReported() {
	if m != nil {
		m.positionsReported.Inc()
	}
}

func (m *Metrics) PositionRejected(reason string) {
	if m != nil {
		m.positionsRejected.WithLabelValues(reason).Inc()
	}
}

// ScanFinished records one tenant scan; ok is false when the scan aborted.
func (m *Metrics) ScanFinished(ok bool) {
	if m == nil {
		return
	}
	outcome := "ok"
	if !ok {
		outcome = "error"
	}
	m.scans.WithLabelValues(outcome).Inc()
}

func (m *Metrics) AlertCreated(alertType string) {
	if m != nil {
		m.alertsCreated.WithLabelValues(alertType).Inc()
	}
}

// SnapshotCache records a cache lookup result: "hit", "miss" or "error".
func (m *Metrics) SnapshotCache(result string) {
	if m != nil {
		m.snapshotCache.WithLabelValues(result).Inc()
	}
}

func (m *Metrics) AttendanceRetry() {
	if m != nil {
		m.attendanceRetries.Inc()
	}
}
