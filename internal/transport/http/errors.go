package http

import (
	"net/http"

	"github.com/go-chi/render"
)

// ErrResponse implements the render.Renderer interface for API errors
type ErrResponse struct {
	Err            error  `json:"-"`
	HTTPStatusCode int    `json:"-"`
	StatusText     string `json:"status"`
	AppCode        string `json:"code,omitempty"`
	ErrorText      string `json:"error,omitempty"`
}

// Render implements the render.Renderer interface
func (e *ErrResponse) Render(w http.ResponseWriter, r *http.Request) error {
	render.Status(r, e.HTTPStatusCode)
	return nil
}

// Error codes for engine operations
const (
	ErrCodeInvalidRequest = "INVALID_REQUEST"
	ErrCodeUnauthorized   = "UNAUTHORIZED"
	ErrCodeForbidden      = "FORBIDDEN"
)

// ErrInvalidRequest creates a bad request error
func ErrInvalidRequest(err error) *ErrResponse {
	return &ErrResponse{
		Err:            err,
		HTTPStatusCode: http.StatusBadRequest,
		StatusText:     "Invalid request",
		AppCode:        ErrCodeInvalidRequest,
		ErrorText:      err.Error(),
	}
}

// ErrUnauthorized creates an authentication failure response
func ErrUnauthorized(message string) *ErrResponse {
	return &ErrResponse{
		HTTPStatusCode: http.StatusUnauthorized,
		StatusText:     "Unauthorized",
		AppCode:        ErrCodeUnauthorized,
		ErrorText:      message,
	}
}

// ErrForbidden creates an authorization failure response
func ErrForbidden(message string) *ErrResponse {
	return &ErrResponse{
		HTTPStatusCode: http.StatusForbidden,
		StatusText:     "Forbidden",
		AppCode:        ErrCodeForbidden,
		ErrorText:      message,
	}
}
