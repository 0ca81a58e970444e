// Package observability holds the Prometheus collectors for the attendance
// service. A nil *Metrics is valid and records nothing.
package observability

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "attendance"

// Sweep outcomes.
const (
	SweepOK       = "ok"
	SweepConflict = "conflict"
	SweepFailed   = "failed"
)

// Metrics groups the service collectors.
type Metrics struct {
	sweeps          *prometheus.CounterVec
	sweepDuration   prometheus.Histogram
	sessionsCreated *prometheus.CounterVec
	sessionsDeleted prometheus.Counter
	lateReports     *prometheus.CounterVec
	optOuts         *prometheus.CounterVec
	httpRequests    *prometheus.CounterVec
}

// NewMetrics registers the collectors on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		sweeps: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sweeps_total",
			Help:      "Sweeps run, by outcome.",
		}, []string{"outcome"}),
		sweepDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "sweep_duration_seconds",
			Help:      "Wall time of completed sweeps.",
			Buckets:   prometheus.DefBuckets,
		}),
		sessionsCreated: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_created_total",
			Help:      "Sessions created, by source.",
		}, []string{"source"}),
		sessionsDeleted: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_deleted_total",
			Help:      "Expired sessions deleted by sweeps.",
		}),
		lateReports: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "late_reports_total",
			Help:      "Lateness reporter calls, by result.",
		}, []string{"result"}),
		optOuts: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "opt_outs_total",
			Help:      "Membership removals, by kind.",
		}, []string{"kind"}),
		httpRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests, by route and status.",
		}, []string{"route", "status"}),
	}
}

// ObserveSweep records a sweep outcome and, for completed sweeps, its counts.
func (m *Metrics) ObserveSweep(outcome string, deleted, created int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.sweeps.WithLabelValues(outcome).Inc()
	if outcome != SweepOK {
		return
	}
	m.sweepDuration.Observe(elapsed.Seconds())
	m.sessionsDeleted.Add(float64(deleted))
	m.sessionsCreated.WithLabelValues("sweep").Add(float64(created))
}

// SessionCreated counts an admin-created session.
func (m *Metrics) SessionCreated() {
	if m == nil {
		return
	}
	m.sessionsCreated.WithLabelValues("admin").Inc()
}

// LateReport counts one reporter call.
func (m *Metrics) LateReport(err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.lateReports.WithLabelValues(result).Inc()
}

// OptOut counts a membership removal. kind is "member" or "admin".
func (m *Metrics) OptOut(kind string) {
	if m == nil {
		return
	}
	m.optOuts.WithLabelValues(kind).Inc()
}

// HTTPRequest counts one served request.
func (m *Metrics) HTTPRequest(route string, status int) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(route, strconv.Itoa(status)).Inc()
}
