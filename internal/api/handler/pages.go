// internal/api/handler/pages.go
package handler

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"net/http"

	"login-portal/internal/domain/auth"
	"login-portal/internal/logging"
)

//go:embed templates/*.html
var templateFS embed.FS

const (
	pageLogin   = "login"
	pageHome    = "home"
	pageLoading = "loading"
)

// LoginPage is the data behind the login template.
type LoginPage struct {
	Form    auth.LoginForm
	Errors  auth.FieldErrors
	Touched map[string]bool
	Valid   bool
}

type HomePage struct {
	Username string
}

// Pages renders the server-side views.
type Pages struct {
	templates map[string]*template.Template
	logger    logging.Logger
}

func NewPages(logger logging.Logger) (*Pages, error) {
	p := &Pages{templates: make(map[string]*template.Template), logger: logger}
	for _, name := range []string{pageLogin, pageHome, pageLoading} {
		t, err := template.ParseFS(templateFS, "templates/layout.html", "templates/"+name+".html")
		if err != nil {
			return nil, fmt.Errorf("parse %s template: %w", name, err)
		}
		p.templates[name] = t
	}
	return p, nil
}

// render executes into a buffer first so a template failure still yields a
// clean 500.
func (p *Pages) render(w http.ResponseWriter, r *http.Request, name string, data any, status int) {
	var buf bytes.Buffer
	if err := p.templates[name].ExecuteTemplate(&buf, "layout", data); err != nil {
		p.logger.Error(r.Context(), "rendering page", "page", name, "error", err)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

// Loading serves the placeholder shown while the session cannot be read yet.
func (p *Pages) Loading(w http.ResponseWriter, r *http.Request) {
	p.render(w, r, pageLoading, nil, http.StatusServiceUnavailable)
}
