// Package http exposes the license and authentication engines over a thin
// chi-based JSON API. Handlers marshal engine results; all policy lives in
// the engines.
package http

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/render"

	"ocrmill/internal/license"
)

// LicenseHandler handles license-related HTTP requests
type LicenseHandler struct {
	manager *license.Manager
	logger  *slog.Logger
}

// NewLicenseHandler creates a new license handler
func NewLicenseHandler(manager *license.Manager, logger *slog.Logger) *LicenseHandler {
	return &LicenseHandler{
		manager: manager,
		logger:  logger.With(slog.String("handler", "license")),
	}
}

// ActivationRequest is the license activation payload
type ActivationRequest struct {
	LicenseKey string `json:"license_key"`
}

// Bind implements the render.Binder interface
func (a *ActivationRequest) Bind(r *http.Request) error {
	if strings.TrimSpace(a.LicenseKey) == "" {
		return errors.New("license_key is required")
	}
	return nil
}

// StatusResponse is the license status payload
type StatusResponse struct {
	Status   license.Status `json:"status"`
	DaysLeft int            `json:"days_left,omitempty"`
	Message  string         `json:"message,omitempty"`
}

// ActivationResponse is the activation outcome payload
type ActivationResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// Status handles GET /api/license/status
func (h *LicenseHandler) Status(w http.ResponseWriter, r *http.Request) {
	status, days := h.manager.Status(r.Context())

	resp := StatusResponse{Status: status, DaysLeft: days}
	if status == license.StatusTrial {
		resp.Message = "Trial period active"
	}
	render.JSON(w, r, resp)
}

// Info handles GET /api/license
func (h *LicenseHandler) Info(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, h.manager.Info(r.Context()))
}

// Activate handles POST /api/license/activate
func (h *LicenseHandler) Activate(w http.ResponseWriter, r *http.Request) {
	var req ActivationRequest
	if err := render.Bind(r, &req); err != nil {
		render.Render(w, r, ErrInvalidRequest(err))
		return
	}

	ok, message := h.manager.ActivateLicense(r.Context(), req.LicenseKey)
	if !ok {
		h.logger.Warn("license activation rejected", slog.String("reason", message))
		render.Status(r, http.StatusUnprocessableEntity)
	}
	render.JSON(w, r, ActivationResponse{Success: ok, Message: message})
}

// Clear handles DELETE /api/license
func (h *LicenseHandler) Clear(w http.ResponseWriter, r *http.Request) {
	h.manager.ClearLicense(r.Context())
	render.JSON(w, r, map[string]bool{"cleared": true})
}
