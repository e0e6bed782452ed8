package middleware

import (
	"net/http"
	"strings"
)

// Navigation records where a request should be sent next. Domain code calls
// Navigate; the handler applies it once it is done writing headers.
type Navigation struct {
	path string
}

func (n *Navigation) Navigate(path string) {
	n.path = path
}

// Path returns the recorded target, or "" if nothing navigated.
func (n *Navigation) Path() string {
	return n.path
}

// Redirect writes the recorded navigation with status, or an HX-Redirect for
// fetch-driven requests. It reports whether anything was written.
func (n *Navigation) Redirect(w http.ResponseWriter, r *http.Request, status int) bool {
	if n.path == "" {
		return false
	}
	if IsHTMXRequest(r) {
		w.Header().Set("HX-Redirect", n.path)
		w.WriteHeader(http.StatusNoContent)
		return true
	}
	http.Redirect(w, r, n.path, status)
	return true
}

func IsHTMXRequest(r *http.Request) bool {
	return strings.EqualFold(r.Header.Get("HX-Request"), "true")
}
