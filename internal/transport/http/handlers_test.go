package http

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ocrmill/internal/auth"
	"ocrmill/internal/license"
	"ocrmill/internal/store"
)

type stubVerifier struct {
	result license.VerifyResult
}

func (s *stubVerifier) Verify(ctx context.Context, licenseKey string) license.VerifyResult {
	return s.result
}

type stubDirectory struct {
	users auth.Directory
}

func (s *stubDirectory) Fetch(ctx context.Context) auth.Directory { return s.users }

type stubIdentity struct{ domain, username string }

func (s stubIdentity) Domain() string   { return s.domain }
func (s stubIdentity) Username() string { return s.username }

type testAPI struct {
	router  http.Handler
	authMgr *auth.Manager
}

func newTestAPI(t *testing.T, verdict license.VerifyResult, users auth.Directory) *testAPI {
	t.Helper()
	st := store.NewMemoryStore()
	logger := slog.Default()

	licenseMgr := license.NewManager(st, &stubVerifier{result: verdict}, nil)
	authMgr := auth.NewManager(st, &stubDirectory{users: users}, stubIdentity{}, nil)

	return &testAPI{
		router:  NewRouter(licenseMgr, authMgr, nil, logger),
		authMgr: authMgr,
	}
}

func (a *testAPI) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	a.router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v))
	return v
}

func indeterminateResult() license.VerifyResult {
	return license.VerifyResult{Verdict: license.VerdictIndeterminate, Message: "Network error"}
}

func directoryWith(t *testing.T, email, password string, role auth.Role) auth.Directory {
	t.Helper()
	digest, salt, err := auth.HashPassword(password)
	require.NoError(t, err)
	return auth.Directory{
		email: {
			Name:         "Alice",
			Role:         role,
			AuthType:     auth.AuthTypePassword,
			PasswordHash: digest,
			Salt:         salt,
		},
	}
}

func TestLicenseStatusEndpoint(t *testing.T) {
	api := newTestAPI(t, indeterminateResult(), nil)

	rec := api.do(t, http.MethodGet, "/api/license/status", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decode[StatusResponse](t, rec)
	assert.Equal(t, license.StatusTrial, resp.Status)
	assert.Equal(t, license.TrialDays, resp.DaysLeft)
}

func TestLicenseActivateEndpoint(t *testing.T) {
	t.Run("missing key", func(t *testing.T) {
		api := newTestAPI(t, indeterminateResult(), nil)
		rec := api.do(t, http.MethodPost, "/api/license/activate", map[string]string{})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("valid key", func(t *testing.T) {
		api := newTestAPI(t, license.VerifyResult{
			Verdict:  license.VerdictValid,
			Purchase: &license.Purchase{Email: "b@e.com"},
		}, nil)

		rec := api.do(t, http.MethodPost, "/api/license/activate", map[string]string{"license_key": "KEY-123"})
		require.Equal(t, http.StatusOK, rec.Code)
		resp := decode[ActivationResponse](t, rec)
		assert.True(t, resp.Success)
		assert.Equal(t, "License activated successfully!", resp.Message)
	})

	t.Run("rejected key", func(t *testing.T) {
		api := newTestAPI(t, license.VerifyResult{
			Verdict: license.VerdictInvalid,
			Message: "Invalid license key",
		}, nil)

		rec := api.do(t, http.MethodPost, "/api/license/activate", map[string]string{"license_key": "KEY-123"})
		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
		resp := decode[ActivationResponse](t, rec)
		assert.False(t, resp.Success)
	})
}

func TestLicenseClearEndpoint(t *testing.T) {
	api := newTestAPI(t, indeterminateResult(), nil)
	rec := api.do(t, http.MethodDelete, "/api/license", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestLoginEndpoint(t *testing.T) {
	users := directoryWith(t, "alice@example.com", "hunter2", auth.RoleAdmin)

	t.Run("malformed email rejected at binding", func(t *testing.T) {
		api := newTestAPI(t, indeterminateResult(), users)
		rec := api.do(t, http.MethodPost, "/api/auth/login", map[string]string{
			"email": "not-an-email", "password": "pw",
		})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("wrong password", func(t *testing.T) {
		api := newTestAPI(t, indeterminateResult(), users)
		rec := api.do(t, http.MethodPost, "/api/auth/login", map[string]string{
			"email": "alice@example.com", "password": "wrong",
		})
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		resp := decode[LoginResponse](t, rec)
		assert.Equal(t, "Invalid email or password", resp.Message)
	})

	t.Run("success", func(t *testing.T) {
		api := newTestAPI(t, indeterminateResult(), users)
		rec := api.do(t, http.MethodPost, "/api/auth/login", map[string]string{
			"email": "alice@example.com", "password": "hunter2",
		})
		require.Equal(t, http.StatusOK, rec.Code)
		resp := decode[LoginResponse](t, rec)
		assert.True(t, resp.Success)
		assert.Equal(t, auth.RoleAdmin, resp.Role)

		me := decode[auth.UserInfo](t, api.do(t, http.MethodGet, "/api/auth/me", nil))
		assert.True(t, me.IsAuthenticated)
		assert.True(t, me.IsAdmin)
	})
}

func TestWindowsLoginEndpoint(t *testing.T) {
	api := newTestAPI(t, indeterminateResult(), nil)
	rec := api.do(t, http.MethodPost, "/api/auth/windows", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	resp := decode[LoginResponse](t, rec)
	assert.Equal(t, "Windows credentials not available", resp.Message)
}

func TestLogoutEndpoint(t *testing.T) {
	users := directoryWith(t, "alice@example.com", "hunter2", auth.RoleUser)
	api := newTestAPI(t, indeterminateResult(), users)

	rec := api.do(t, http.MethodPost, "/api/auth/login", map[string]string{
		"email": "alice@example.com", "password": "hunter2",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = api.do(t, http.MethodPost, "/api/auth/logout", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	me := decode[auth.UserInfo](t, api.do(t, http.MethodGet, "/api/auth/me", nil))
	assert.False(t, me.IsAuthenticated)
}

func TestDomainsEndpoint(t *testing.T) {
	users := directoryWith(t, "alice@example.com", "hunter2", auth.RoleAdmin)
	api := newTestAPI(t, indeterminateResult(), users)

	t.Run("set requires admin", func(t *testing.T) {
		rec := api.do(t, http.MethodPut, "/api/auth/domains", map[string][]string{"domains": {"CORP"}})
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("admin can set and read back", func(t *testing.T) {
		rec := api.do(t, http.MethodPost, "/api/auth/login", map[string]string{
			"email": "alice@example.com", "password": "hunter2",
		})
		require.Equal(t, http.StatusOK, rec.Code)

		rec = api.do(t, http.MethodPut, "/api/auth/domains", map[string][]string{"domains": {"CORP"}})
		require.Equal(t, http.StatusOK, rec.Code)

		rec = api.do(t, http.MethodGet, "/api/auth/domains", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		resp := decode[map[string][]string](t, rec)
		assert.Equal(t, []string{"CORP"}, resp["domains"])
	})
}

func TestHealthEndpoint(t *testing.T) {
	api := newTestAPI(t, indeterminateResult(), nil)
	rec := api.do(t, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}
