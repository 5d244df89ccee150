package license

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"ocrmill/internal/config"
)

// Verdict is the three-valued outcome of an online license check. An
// authoritative invalid must never be overridden by offline fallback;
// only an indeterminate outcome is eligible for it.
type Verdict int

const (
	// VerdictIndeterminate means the verification service could not be
	// reached or answered with a server error
	VerdictIndeterminate Verdict = iota
	// VerdictValid means the service authoritatively accepted the key
	VerdictValid
	// VerdictInvalid means the service authoritatively rejected the key
	VerdictInvalid
)

// Purchase carries the purchase metadata returned by the verification
// service for a valid key.
type Purchase struct {
	Email                   string `json:"email"`
	Refunded                bool   `json:"refunded"`
	Disputed                bool   `json:"disputed"`
	SubscriptionCancelledAt string `json:"subscription_cancelled_at,omitempty"`
	SubscriptionFailedAt    string `json:"subscription_failed_at,omitempty"`
}

// Revoked reports whether the purchase has been invalidated after the
// fact (refund, dispute, or lapsed subscription).
func (p *Purchase) Revoked() (bool, string) {
	if p == nil {
		return false, ""
	}
	if p.Refunded || p.Disputed {
		return true, "License has been refunded or disputed"
	}
	if p.SubscriptionCancelledAt != "" || p.SubscriptionFailedAt != "" {
		return true, "Subscription is no longer active"
	}
	return false, ""
}

// VerifyResult is the classified outcome of an online verification
type VerifyResult struct {
	Verdict  Verdict
	Purchase *Purchase
	Message  string
}

// Verifier validates a license key against the verification service
type Verifier interface {
	Verify(ctx context.Context, licenseKey string) VerifyResult
}

// HTTPVerifier talks to the hosted license verification API
type HTTPVerifier struct {
	productID string
	verifyURL string
	client    *http.Client
}

// NewHTTPVerifier creates a verifier from configuration
func NewHTTPVerifier(cfg config.LicenseConfig) *HTTPVerifier {
	return &HTTPVerifier{
		productID: cfg.ProductID,
		verifyURL: cfg.VerifyURL,
		client:    &http.Client{Timeout: cfg.Timeout},
	}
}

// Verify checks licenseKey with the verification service. An unconfigured
// product id short-circuits to indeterminate without a network call.
func (v *HTTPVerifier) Verify(ctx context.Context, licenseKey string) VerifyResult {
	if v.productID == "" {
		return VerifyResult{
			Verdict: VerdictIndeterminate,
			Message: "Product not configured for online validation",
		}
	}

	form := url.Values{
		"product_id":           {v.productID},
		"license_key":          {licenseKey},
		"increment_uses_count": {"false"},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, v.verifyURL,
		strings.NewReader(form.Encode()))
	if err != nil {
		return VerifyResult{Verdict: VerdictIndeterminate, Message: fmt.Sprintf("Validation error: %v", err)}
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("User-Agent", config.UserAgent)

	resp, err := v.client.Do(req)
	if err != nil {
		return VerifyResult{Verdict: VerdictIndeterminate, Message: fmt.Sprintf("Network error: %v", err)}
	}
	defer resp.Body.Close()

	// The service answers 404 for unknown keys; anything else non-2xx is
	// a server problem eligible for offline fallback.
	if resp.StatusCode == http.StatusNotFound {
		return VerifyResult{Verdict: VerdictInvalid, Message: "Invalid license key"}
	}
	if resp.StatusCode != http.StatusOK {
		return VerifyResult{Verdict: VerdictIndeterminate, Message: fmt.Sprintf("Server error: %d", resp.StatusCode)}
	}

	var payload struct {
		Success  bool      `json:"success"`
		Purchase *Purchase `json:"purchase"`
		Message  string    `json:"message"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return VerifyResult{Verdict: VerdictIndeterminate, Message: fmt.Sprintf("Validation error: %v", err)}
	}

	if !payload.Success {
		msg := payload.Message
		if msg == "" {
			msg = "Invalid license key"
		}
		return VerifyResult{Verdict: VerdictInvalid, Message: msg}
	}

	if revoked, reason := payload.Purchase.Revoked(); revoked {
		return VerifyResult{Verdict: VerdictInvalid, Message: reason}
	}

	return VerifyResult{Verdict: VerdictValid, Purchase: payload.Purchase}
}
