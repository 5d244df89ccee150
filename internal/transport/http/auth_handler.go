package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"

	"ocrmill/internal/auth"
)

var validate = validator.New()

// AuthHandler handles authentication HTTP requests
type AuthHandler struct {
	manager *auth.Manager
	logger  *slog.Logger
}

// NewAuthHandler creates a new authentication handler
func NewAuthHandler(manager *auth.Manager, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		manager: manager,
		logger:  logger.With(slog.String("handler", "auth")),
	}
}

// LoginRequest is the interactive login payload
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// Bind implements the render.Binder interface
func (l *LoginRequest) Bind(r *http.Request) error {
	return validate.Struct(l)
}

// DomainsRequest is the allowed-domains update payload
type DomainsRequest struct {
	Domains []string `json:"domains" validate:"required"`
}

// Bind implements the render.Binder interface
func (d *DomainsRequest) Bind(r *http.Request) error {
	return validate.Struct(d)
}

// LoginResponse is the authentication outcome payload
type LoginResponse struct {
	Success bool      `json:"success"`
	Message string    `json:"message"`
	Role    auth.Role `json:"role,omitempty"`
}

// Login handles POST /api/auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := render.Bind(r, &req); err != nil {
		render.Render(w, r, ErrInvalidRequest(err))
		return
	}

	ok, message, role := h.manager.Authenticate(r.Context(), req.Email, req.Password)
	if !ok {
		render.Status(r, http.StatusUnauthorized)
	}
	render.JSON(w, r, LoginResponse{Success: ok, Message: message, Role: role})
}

// WindowsLogin handles POST /api/auth/windows
func (h *AuthHandler) WindowsLogin(w http.ResponseWriter, r *http.Request) {
	ok, message, _ := h.manager.TryWindowsAuth(r.Context())
	if !ok {
		render.Status(r, http.StatusUnauthorized)
	}
	role := h.manager.Session().Role
	if !ok {
		role = ""
	}
	render.JSON(w, r, LoginResponse{Success: ok, Message: message, Role: role})
}

// Logout handles POST /api/auth/logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	h.manager.Logout()
	render.JSON(w, r, map[string]bool{"logged_out": true})
}

// Me handles GET /api/auth/me
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, h.manager.CurrentUserInfo())
}

// SetDomains handles PUT /api/auth/domains; admin only
func (h *AuthHandler) SetDomains(w http.ResponseWriter, r *http.Request) {
	if !h.manager.IsAdmin() {
		render.Render(w, r, ErrForbidden("admin role required"))
		return
	}

	var req DomainsRequest
	if err := render.Bind(r, &req); err != nil {
		render.Render(w, r, ErrInvalidRequest(err))
		return
	}

	if err := h.manager.SetAllowedDomains(req.Domains); err != nil {
		h.logger.Error("failed to store allowed domains", slog.String("error", err.Error()))
		render.Render(w, r, &ErrResponse{
			Err:            err,
			HTTPStatusCode: http.StatusInternalServerError,
			StatusText:     "Internal server error",
			ErrorText:      "failed to store allowed domains",
		})
		return
	}
	render.JSON(w, r, map[string][]string{"domains": req.Domains})
}

// Domains handles GET /api/auth/domains
func (h *AuthHandler) Domains(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, map[string][]string{"domains": h.manager.AllowedDomains()})
}
