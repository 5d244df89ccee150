// Package metrics exposes prometheus counters for the license and
// authentication engines.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the engine counters. A nil *Metrics is safe to use; all
// record methods are no-ops so tests can run without a registry.
type Metrics struct {
	licenseValidations *prometheus.CounterVec
	authAttempts       *prometheus.CounterVec
	directoryFetches   *prometheus.CounterVec
}

// New creates engine metrics registered against reg
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		licenseValidations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ocrmill",
			Name:      "license_validations_total",
			Help:      "License validation attempts by outcome (valid, invalid, indeterminate, offline_valid, offline_invalid).",
		}, []string{"outcome"}),
		authAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ocrmill",
			Name:      "auth_attempts_total",
			Help:      "Authentication attempts by method (windows, password) and outcome (success, failure).",
		}, []string{"method", "outcome"}),
		directoryFetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ocrmill",
			Name:      "directory_fetches_total",
			Help:      "Identity directory fetches by source (remote, fallback, none).",
		}, []string{"source"}),
	}
	reg.MustRegister(m.licenseValidations, m.authAttempts, m.directoryFetches)
	return m
}

// RecordLicenseValidation records a license validation outcome
func (m *Metrics) RecordLicenseValidation(outcome string) {
	if m == nil {
		return
	}
	m.licenseValidations.WithLabelValues(outcome).Inc()
}

// RecordAuthAttempt records an authentication attempt outcome
func (m *Metrics) RecordAuthAttempt(method, outcome string) {
	if m == nil {
		return
	}
	m.authAttempts.WithLabelValues(method, outcome).Inc()
}

// RecordDirectoryFetch records which source served a directory fetch
func (m *Metrics) RecordDirectoryFetch(source string) {
	if m == nil {
		return
	}
	m.directoryFetches.WithLabelValues(source).Inc()
}
