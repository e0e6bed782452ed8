// Package metrics holds the Prometheus collectors of the login portal.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Login outcomes.
const (
	LoginSuccess    = "success"
	LoginInvalid    = "invalid_form"
	LoginMismatch   = "mismatch"
	LoginError      = "error"
	LoginInProgress = "in_progress"
)

var (
	loginAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "login_portal_login_attempts_total",
		Help: "Login submissions by outcome",
	}, []string{"result"})

	guardDecisions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "login_portal_guard_decisions_total",
		Help: "Route guard evaluations by decision",
	}, []string{"decision"})

	storageErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "login_portal_storage_errors_total",
		Help: "Session storage reads that failed and fell back to anonymous",
	})

	sessionSubscribers = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "login_portal_session_subscribers",
		Help: "Open websocket subscriptions for session changes",
	})
)

func RecordLoginAttempt(result string) {
	loginAttempts.WithLabelValues(result).Inc()
}

func RecordGuardDecision(decision string) {
	guardDecisions.WithLabelValues(decision).Inc()
}

func RecordStorageError() {
	storageErrors.Inc()
}

func SubscriberAdded() {
	sessionSubscribers.Inc()
}

func SubscriberRemoved() {
	sessionSubscribers.Dec()
}
