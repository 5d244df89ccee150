package license

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ocrmill/internal/config"
)

func newTestVerifier(productID, url string) *HTTPVerifier {
	return NewHTTPVerifier(config.LicenseConfig{
		ProductID: productID,
		VerifyURL: url,
		Timeout:   5 * time.Second,
	})
}

func TestHTTPVerifier_UnconfiguredProductID(t *testing.T) {
	called := false
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer server.Close()

	v := newTestVerifier("", server.URL)
	result := v.Verify(context.Background(), "KEY-123")
	assert.Equal(t, VerdictIndeterminate, result.Verdict)
	assert.Equal(t, "Product not configured for online validation", result.Message)
	assert.False(t, called, "no network call without a product id")
}

func TestHTTPVerifier_ValidKey(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "prod-1", r.FormValue("product_id"))
		assert.Equal(t, "KEY-123", r.FormValue("license_key"))
		assert.Equal(t, "false", r.FormValue("increment_uses_count"))

		json.NewEncoder(w).Encode(map[string]any{
			"success":  true,
			"purchase": map[string]any{"email": "buyer@example.com"},
		})
	}))
	defer server.Close()

	v := newTestVerifier("prod-1", server.URL)
	result := v.Verify(context.Background(), "KEY-123")
	assert.Equal(t, VerdictValid, result.Verdict)
	require.NotNil(t, result.Purchase)
	assert.Equal(t, "buyer@example.com", result.Purchase.Email)
}

func TestHTTPVerifier_AuthoritativeRejections(t *testing.T) {
	tests := []struct {
		name        string
		purchase    map[string]any
		wantMessage string
	}{
		{
			name:        "refunded",
			purchase:    map[string]any{"refunded": true},
			wantMessage: "License has been refunded or disputed",
		},
		{
			name:        "disputed",
			purchase:    map[string]any{"disputed": true},
			wantMessage: "License has been refunded or disputed",
		},
		{
			name:        "subscription cancelled",
			purchase:    map[string]any{"subscription_cancelled_at": "2026-01-01T00:00:00Z"},
			wantMessage: "Subscription is no longer active",
		},
		{
			name:        "subscription payment failed",
			purchase:    map[string]any{"subscription_failed_at": "2026-01-01T00:00:00Z"},
			wantMessage: "Subscription is no longer active",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				json.NewEncoder(w).Encode(map[string]any{"success": true, "purchase": tt.purchase})
			}))
			defer server.Close()

			v := newTestVerifier("prod-1", server.URL)
			result := v.Verify(context.Background(), "KEY-123")
			assert.Equal(t, VerdictInvalid, result.Verdict)
			assert.Equal(t, tt.wantMessage, result.Message)
		})
	}
}

func TestHTTPVerifier_ServiceRejection(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"success": false, "message": "That license does not exist"})
	}))
	defer server.Close()

	v := newTestVerifier("prod-1", server.URL)
	result := v.Verify(context.Background(), "KEY-123")
	assert.Equal(t, VerdictInvalid, result.Verdict)
	assert.Equal(t, "That license does not exist", result.Message)
}

func TestHTTPVerifier_NotFoundIsInvalid(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	v := newTestVerifier("prod-1", server.URL)
	result := v.Verify(context.Background(), "KEY-123")
	assert.Equal(t, VerdictInvalid, result.Verdict)
	assert.Equal(t, "Invalid license key", result.Message)
}

func TestHTTPVerifier_ServerErrorIsIndeterminate(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	v := newTestVerifier("prod-1", server.URL)
	result := v.Verify(context.Background(), "KEY-123")
	assert.Equal(t, VerdictIndeterminate, result.Verdict)
	assert.Contains(t, result.Message, "Server error")
}

func TestHTTPVerifier_TransportErrorIsIndeterminate(t *testing.T) {
	v := newTestVerifier("prod-1", "http://127.0.0.1:1")
	result := v.Verify(context.Background(), "KEY-123")
	assert.Equal(t, VerdictIndeterminate, result.Verdict)
	assert.Contains(t, result.Message, "Network error")
}

func TestHTTPVerifier_MalformedResponseIsIndeterminate(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("{not json"))
	}))
	defer server.Close()

	v := newTestVerifier("prod-1", server.URL)
	result := v.Verify(context.Background(), "KEY-123")
	assert.Equal(t, VerdictIndeterminate, result.Verdict)
}
