package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics records platform counters. All methods are nil-safe so callers can
// pass a zero value in tests or when a registry is not wired.
type Metrics struct {
	reconcileMerged     prometheus.Counter
	reconcileReparented prometheus.Counter
	reconcileFailures   prometheus.Counter
	mailOutcomes        *prometheus.CounterVec
	requestDuration     *prometheus.HistogramVec
}

// New registers the platform metrics on the provided registerer.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		return &Metrics{}
	}
	reconcileMerged := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cart_reconcile_merged_lines",
		Help: "Guest cart lines merged into an existing user line at sign-in.",
	})
	reconcileReparented := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cart_reconcile_reparented_lines",
		Help: "Guest cart lines re-parented onto the signing-in user.",
	})
	reconcileFailures := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cart_reconcile_failures",
		Help: "Cart reconciliation transactions that rolled back.",
	})
	mailOutcomes := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "mail_deliveries",
		Help: "Outbound email attempts by outcome.",
	}, []string{"kind", "outcome"})
	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route", "status"})
	reg.MustRegister(reconcileMerged, reconcileReparented, reconcileFailures, mailOutcomes, requestDuration)
	return &Metrics{
		reconcileMerged:     reconcileMerged,
		reconcileReparented: reconcileReparented,
		reconcileFailures:   reconcileFailures,
		mailOutcomes:        mailOutcomes,
		requestDuration:     requestDuration,
	}
}

// AddReconcileMerged records lines whose quantities were folded into user rows.
func (m *Metrics) AddReconcileMerged(count int) {
	if m == nil || m.reconcileMerged == nil || count <= 0 {
		return
	}
	m.reconcileMerged.Add(float64(count))
}

// AddReconcileReparented records guest lines adopted by the user as-is.
func (m *Metrics) AddReconcileReparented(count int) {
	if m == nil || m.reconcileReparented == nil || count <= 0 {
		return
	}
	m.reconcileReparented.Add(float64(count))
}

// IncReconcileFailure increments the failed-reconciliation counter.
func (m *Metrics) IncReconcileFailure() {
	if m == nil || m.reconcileFailures == nil {
		return
	}
	m.reconcileFailures.Inc()
}

// ObserveMail records an outbound email attempt for the given message kind.
func (m *Metrics) ObserveMail(kind string, delivered bool) {
	if m == nil || m.mailOutcomes == nil {
		return
	}
	outcome := "failed"
	if delivered {
		outcome = "delivered"
	}
	m.mailOutcomes.WithLabelValues(normalizeLabel(kind), outcome).Inc()
}

// ObserveRequest records the duration of a handled HTTP request.
func (m *Metrics) ObserveRequest(method, route, status string, duration time.Duration) {
	if m == nil || m.requestDuration == nil {
		return
	}
	m.requestDuration.WithLabelValues(method, normalizeLabel(route), status).Observe(duration.Seconds())
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
