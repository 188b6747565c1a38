// Package metrics exposes Prometheus collectors for the auth subsystem.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	loginAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "domainauth_login_attempts_total",
		Help: "Login attempts by tier and outcome",
	}, []string{"tier", "result"})

	lockouts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "domainauth_lockouts_total",
		Help: "Lockout transitions triggered by repeated failures",
	}, []string{"tier"})

	tokensMinted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "domainauth_tokens_minted_total",
		Help: "Bearer tokens minted, by trigger",
	}, []string{"trigger"})

	tokensRejected = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "domainauth_tokens_rejected_total",
		Help: "Bearer tokens rejected at verification, by reason",
	}, []string{"reason"})
)

// ObserveLogin records one login attempt outcome
// (result: success, invalid, locked, error).
func ObserveLogin(tier, result string) {
	loginAttempts.WithLabelValues(tier, result).Inc()
}

// ObserveLockout records a lockout transition.
func ObserveLockout(tier string) {
	lockouts.WithLabelValues(tier).Inc()
}

// ObserveMint records a minted token (trigger: login, refresh).
func ObserveMint(trigger string) {
	tokensMinted.WithLabelValues(trigger).Inc()
}

// ObserveRejection records a failed token verification
// (reason: expired, stale, malformed).
func ObserveRejection(reason string) {
	tokensRejected.WithLabelValues(reason).Inc()
}
