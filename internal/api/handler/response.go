// internal/api/handler/response.go
package handler

import (
	"net/http"

	"github.com/go-chi/render"
)

// Error wraps error messages for consistent JSON responses
type Error struct {
	Status  int               `json:"status"`
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields,omitempty"`
}

// WriteJSON sends a JSON response with the given status code
func WriteJSON(w http.ResponseWriter, r *http.Request, data interface{}, status int) {
	render.Status(r, status)
	render.JSON(w, r, data)
}

// WriteError sends a JSON error response with the given status code
func WriteError(w http.ResponseWriter, r *http.Request, err error, status int) {
	WriteJSON(w, r, Error{
		Status:  status,
		Message: err.Error(),
	}, status)
}

// WriteFieldError is WriteError with per-field messages attached.
func WriteFieldError(w http.ResponseWriter, r *http.Request, err error, fields map[string]string, status int) {
	WriteJSON(w, r, Error{
		Status:  status,
		Message: err.Error(),
		Fields:  fields,
	}, status)
}
