// Package license implements trial-clock bookkeeping and the hybrid
// online/offline license-validity decision. Status is always recomputed
// from stored inputs, never persisted, so it can never go stale.
package license

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"ocrmill/internal/metrics"
	"ocrmill/internal/store"
)

// Reference policy constants
const (
	// TrialDays is the length of the unlicensed trial window
	TrialDays = 30
	// OfflineGraceDays bounds offline trust after the last successful
	// online verification
	OfflineGraceDays = 7
)

// Status is the derived license state
type Status string

const (
	StatusUnknown Status = "unknown"
	StatusTrial   Status = "trial"
	StatusActive  Status = "active"
	StatusExpired Status = "expired"
	StatusInvalid Status = "invalid"
)

// Info is the license summary exposed for display
type Info struct {
	Status             Status     `json:"status"`
	LicenseKey         string     `json:"license_key,omitempty"`
	Email              string     `json:"email,omitempty"`
	TrialDaysRemaining int        `json:"trial_days_remaining,omitempty"`
	LastVerified       *time.Time `json:"last_verified,omitempty"`
	Message            string     `json:"message"`
}

// Manager is the license status engine. Synchronous, single-caller; the
// configuration store is its only persistence.
type Manager struct {
	store    store.Store
	verifier Verifier
	metrics  *metrics.Metrics
	now      func() time.Time

	licenseKey   string
	licenseEmail string
	lastVerified *time.Time
	status       Status
}

// NewManager creates a license manager
func NewManager(st store.Store, verifier Verifier, m *metrics.Metrics) *Manager {
	return &Manager{
		store:    st,
		verifier: verifier,
		metrics:  m,
		now:      time.Now,
		status:   StatusUnknown,
	}
}

// TrialStart returns the trial start time, initializing it on the
// first-ever call per installation. Once set it is immutable.
func (m *Manager) TrialStart(ctx context.Context) time.Time {
	if raw, ok := m.store.Get(store.KeyTrialStartDate); ok {
		if start, err := time.Parse(time.RFC3339, raw); err == nil {
			return start
		}
	}

	now := m.now()
	if err := m.store.Set(store.KeyTrialStartDate, now.Format(time.RFC3339)); err != nil {
		m.logWarn(ctx, "trial_init", "failed to persist trial start date",
			slog.String("error", err.Error()),
		)
	}
	m.logInfo(ctx, "trial_init", "trial period started",
		slog.Time("trial_start", now),
	)
	return now
}

// TrialDaysRemaining returns the remaining trial days, floored at zero
func (m *Manager) TrialDaysRemaining(ctx context.Context) int {
	start := m.TrialStart(ctx)
	elapsed := int(m.now().Sub(start).Hours() / 24)
	if remaining := TrialDays - elapsed; remaining > 0 {
		return remaining
	}
	return 0
}

// IsTrialExpired reports whether the trial window has ended
func (m *Manager) IsTrialExpired(ctx context.Context) bool {
	return m.TrialDaysRemaining(ctx) <= 0
}

// StoredLicenseKey loads license fields from the store and returns the
// stored key, empty if none.
func (m *Manager) StoredLicenseKey() string {
	m.licenseKey, _ = m.store.Get(store.KeyLicenseKey)
	m.licenseEmail, _ = m.store.Get(store.KeyLicenseEmail)
	m.lastVerified = nil
	if raw, ok := m.store.Get(store.KeyLicenseLastVerified); ok {
		if t, err := time.Parse(time.RFC3339, raw); err == nil {
			m.lastVerified = &t
		}
	}
	return m.licenseKey
}

// ValidateOnline checks the key against the verification service.
// Indeterminate outcomes (network/server failure) are eligible for
// offline fallback; invalid outcomes are authoritative and final.
func (m *Manager) ValidateOnline(ctx context.Context, licenseKey string) VerifyResult {
	result := m.verifier.Verify(ctx, licenseKey)

	switch result.Verdict {
	case VerdictValid:
		m.metrics.RecordLicenseValidation("valid")
	case VerdictInvalid:
		m.metrics.RecordLicenseValidation("invalid")
		m.logWarn(ctx, "online_validation", "license rejected by verification service",
			slog.String("license_key", maskLicenseKey(licenseKey)),
			slog.String("reason", result.Message),
		)
	default:
		m.metrics.RecordLicenseValidation("indeterminate")
		m.logInfo(ctx, "online_validation", "online validation unavailable",
			slog.String("reason", result.Message),
		)
	}
	return result
}

// ValidateOffline reports whether the stored license is still trusted
// without network access: a key must be stored, it must have verified
// online before, and that verification must be within the grace window.
func (m *Manager) ValidateOffline() (bool, string) {
	if m.licenseKey == "" {
		m.StoredLicenseKey()
	}
	if m.licenseKey == "" {
		return false, "No license key stored"
	}
	if m.lastVerified == nil {
		return false, "License has never been verified online"
	}

	// A cached revocation flag invalidates offline trust regardless of
	// the grace window.
	if raw, ok := m.store.Get(store.KeyLicensePurchaseData); ok {
		var purchase Purchase
		if err := json.Unmarshal([]byte(raw), &purchase); err == nil {
			if revoked, reason := purchase.Revoked(); revoked {
				return false, reason
			}
		}
	}

	daysSince := int(m.now().Sub(*m.lastVerified).Hours() / 24)
	if daysSince <= OfflineGraceDays {
		return true, fmt.Sprintf("Offline mode (%d days remaining)", OfflineGraceDays-daysSince)
	}
	return false, "Offline grace period expired, please connect to the internet to re-verify"
}

// ValidateLicense is the hybrid orchestration: online first, offline
// fallback only on an indeterminate online outcome.
func (m *Manager) ValidateLicense(ctx context.Context, licenseKey string) (bool, string) {
	key := licenseKey
	if key == "" {
		key = m.licenseKey
	}
	if key == "" {
		key = m.StoredLicenseKey()
	}
	if key == "" {
		return false, "No license key provided"
	}

	result := m.ValidateOnline(ctx, key)
	switch result.Verdict {
	case VerdictValid:
		m.storeLicense(ctx, key, result.Purchase)
		m.status = StatusActive
		return true, "License validated successfully"

	case VerdictInvalid:
		m.status = StatusInvalid
		return false, result.Message

	default:
		offlineOK, offlineMsg := m.ValidateOffline()
		if offlineOK {
			m.metrics.RecordLicenseValidation("offline_valid")
			m.status = StatusActive
			return true, offlineMsg
		}
		m.metrics.RecordLicenseValidation("offline_invalid")
		m.status = StatusInvalid
		return false, fmt.Sprintf("Online: %s. Offline: %s", result.Message, offlineMsg)
	}
}

// ActivateLicense validates and stores a newly entered license key
func (m *Manager) ActivateLicense(ctx context.Context, licenseKey string) (bool, string) {
	licenseKey = strings.TrimSpace(licenseKey)
	if licenseKey == "" {
		return false, "Please enter a license key"
	}

	ok, message := m.ValidateLicense(ctx, licenseKey)
	if ok {
		m.logInfo(ctx, "activation", "license activated",
			slog.String("license_key", maskLicenseKey(licenseKey)),
		)
		return true, "License activated successfully!"
	}

	m.logWarn(ctx, "activation", "license activation failed",
		slog.String("license_key", maskLicenseKey(licenseKey)),
		slog.String("reason", message),
	)
	return false, message
}

// Status recomputes the current license status. Days is meaningful only
// for StatusTrial. Re-validates on every call by design.
func (m *Manager) Status(ctx context.Context) (Status, int) {
	if key := m.StoredLicenseKey(); key != "" {
		if ok, _ := m.ValidateLicense(ctx, key); ok {
			return StatusActive, 0
		}
	}

	if !m.IsTrialExpired(ctx) {
		return StatusTrial, m.TrialDaysRemaining(ctx)
	}
	return StatusExpired, 0
}

// ClearLicense erases all stored license fields. Subsequent status calls
// fall back to trial/expired logic from the trial start alone.
func (m *Manager) ClearLicense(ctx context.Context) {
	for _, key := range []string{
		store.KeyLicenseKey,
		store.KeyLicenseEmail,
		store.KeyLicenseActivatedDate,
		store.KeyLicenseLastVerified,
		store.KeyLicensePurchaseData,
	} {
		if err := m.store.Delete(key); err != nil {
			m.logWarn(ctx, "clear_license", "failed to delete license field",
				slog.String("key", key),
				slog.String("error", err.Error()),
			)
		}
	}
	m.licenseKey = ""
	m.licenseEmail = ""
	m.lastVerified = nil
	m.status = StatusUnknown
	m.logInfo(ctx, "clear_license", "license cleared")
}

// Info returns a license summary for display
func (m *Manager) Info(ctx context.Context) Info {
	status, days := m.Status(ctx)

	info := Info{
		Status:       status,
		LicenseKey:   maskLicenseKey(m.licenseKey),
		Email:        m.licenseEmail,
		LastVerified: m.lastVerified,
	}

	switch status {
	case StatusTrial:
		info.TrialDaysRemaining = days
		info.Message = fmt.Sprintf("%d days remaining in trial", days)
	case StatusActive:
		info.Message = "Licensed"
	case StatusExpired:
		info.Message = "Trial expired - please activate a license"
	default:
		info.Message = "Unknown license status"
	}
	return info
}

// storeLicense persists the validated key, email, purchase metadata, and
// refreshes the last-verified timestamp. Writes happen strictly after a
// successful outcome.
func (m *Manager) storeLicense(ctx context.Context, licenseKey string, purchase *Purchase) {
	now := m.now()
	m.storeSet(ctx, store.KeyLicenseKey, licenseKey)
	m.storeSet(ctx, store.KeyLicenseActivatedDate, now.Format(time.RFC3339))
	m.storeSet(ctx, store.KeyLicenseLastVerified, now.Format(time.RFC3339))

	email := ""
	if purchase != nil {
		email = purchase.Email
		if data, err := json.Marshal(purchase); err == nil {
			m.storeSet(ctx, store.KeyLicensePurchaseData, string(data))
		}
	}
	if email != "" {
		m.storeSet(ctx, store.KeyLicenseEmail, email)
	}

	m.licenseKey = licenseKey
	m.licenseEmail = email
	m.lastVerified = &now
	m.logInfo(ctx, "store_license", "license stored",
		slog.String("license_key", maskLicenseKey(licenseKey)),
	)
}

func (m *Manager) storeSet(ctx context.Context, key, value string) {
	if err := m.store.Set(key, value); err != nil {
		m.logWarn(ctx, "store_write", "failed to persist license field",
			slog.String("key", key),
			slog.String("error", err.Error()),
		)
	}
}
