package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	auditEventsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "aegis_audit_events_total",
		Help: "Total number of audit events persisted",
	})
	flaggedEventsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "aegis_flagged_events_total",
		Help: "Total number of flagged audit events by anomaly rule",
	}, []string{"rule"})
	deniedRequestsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "aegis_denied_requests_total",
		Help: "Total number of requests denied by the access scope guard",
	})
)

// Register registers Prometheus collectors. Call once at startup.
func Register(registry *prometheus.Registry) {
	registry.MustRegister(auditEventsTotal, flaggedEventsTotal, deniedRequestsTotal)
}

// IncAuditEvent increments the persisted events counter.
func IncAuditEvent() { auditEventsTotal.Inc() }

// IncFlaggedEvent increments the flagged events counter for a rule.
// Guard-generated flags carry an empty rule id and are labelled "scope_guard".
func IncFlaggedEvent(rule string) {
	if rule == "" {
		rule = "scope_guard"
	}
	flaggedEventsTotal.WithLabelValues(rule).Inc()
}

// IncDeniedRequest increments the denied requests counter.
func IncDeniedRequest() { deniedRequestsTotal.Inc() }
