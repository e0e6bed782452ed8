// internal/api/handler/auth.go
package handler

import (
	"net/http"

	"github.com/go-chi/render"

	custommw "login-portal/internal/api/middleware"
	"login-portal/internal/domain/auth"
	"login-portal/internal/identity"
	"login-portal/pkg/errors"
)

const msgLoginFailed = "No se pudo iniciar sesión, inténtalo de nuevo"

type AuthHandler struct {
	authService *auth.AuthService
	pages       *Pages
}

func NewAuthHandler(as *auth.AuthService, pages *Pages) *AuthHandler {
	return &AuthHandler{
		authService: as,
		pages:       pages,
	}
}

func clientID(r *http.Request) (string, bool) {
	return identity.ClientIDFromContext(r.Context())
}

// LoginPage shows the login form, or sends authenticated clients home.
func (h *AuthHandler) LoginPage(w http.ResponseWriter, r *http.Request) {
	id, ok := clientID(r)
	if !ok {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	if h.authService.Session(r.Context(), id).IsAuthenticated() {
		http.Redirect(w, r, auth.HomePath, http.StatusFound)
		return
	}
	h.renderLogin(w, r, auth.LoginForm{}, nil, http.StatusOK)
}

// LoginSubmit handles the HTML form post.
func (h *AuthHandler) LoginSubmit(w http.ResponseWriter, r *http.Request) {
	id, ok := clientID(r)
	if !ok {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	if err := r.ParseForm(); err != nil {
		h.renderLogin(w, r, auth.LoginForm{}, nil, http.StatusBadRequest)
		return
	}
	form := auth.LoginForm{
		Username: r.PostForm.Get(auth.FieldUsername),
		Password: r.PostForm.Get(auth.FieldPassword),
	}

	nav := &custommw.Navigation{}
	if _, err := h.authService.Login(r.Context(), id, form, nav); err != nil {
		status, fields := loginFailure(err)
		h.renderLogin(w, r, form, fields, status)
		return
	}
	nav.Redirect(w, r, http.StatusSeeOther)
}

// Logout clears the session and returns to the login page.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	id, ok := clientID(r)
	if !ok {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	nav := &custommw.Navigation{}
	if err := h.authService.Logout(r.Context(), id, nav); err != nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	nav.Redirect(w, r, http.StatusSeeOther)
}

// Home is the protected dashboard. It expects the guard to have run.
func (h *AuthHandler) Home(w http.ResponseWriter, r *http.Request) {
	s, _ := custommw.SessionFromContext(r.Context())
	name, _ := s.Username()
	h.pages.render(w, r, pageHome, HomePage{Username: name}, http.StatusOK)
}

// renderLogin re-renders the form. The password is never echoed back.
func (h *AuthHandler) renderLogin(w http.ResponseWriter, r *http.Request, form auth.LoginForm, errs auth.FieldErrors, status int) {
	shown := auth.LoginForm{Username: form.Username}
	h.pages.render(w, r, pageLogin, LoginPage{
		Form:    shown,
		Errors:  errs,
		Touched: map[string]bool{},
		Valid:   h.authService.Validator().IsFormValid(shown, errs),
	}, status)
}

// loginFailure maps a Login error onto a status and the messages to show.
func loginFailure(err error) (int, auth.FieldErrors) {
	switch e := err.(type) {
	case *errors.ValidationError:
		return http.StatusBadRequest, e.Fields
	case *errors.AuthenticationError:
		return http.StatusUnauthorized, auth.FieldErrors{auth.FieldGeneral: e.Message}
	case *errors.BadRequestError:
		return http.StatusConflict, auth.FieldErrors{auth.FieldGeneral: e.Message}
	default:
		return http.StatusInternalServerError, auth.FieldErrors{auth.FieldGeneral: msgLoginFailed}
	}
}

// APILogin is the JSON variant of LoginSubmit.
func (h *AuthHandler) APILogin(w http.ResponseWriter, r *http.Request) {
	id, ok := clientID(r)
	if !ok {
		WriteError(w, r, errors.NewInternalError(), http.StatusInternalServerError)
		return
	}
	var form auth.LoginForm
	if err := render.DecodeJSON(r.Body, &form); err != nil {
		WriteError(w, r, errors.NewBadRequestError("invalid request payload"), http.StatusBadRequest)
		return
	}

	nav := &custommw.Navigation{}
	resp, err := h.authService.Login(r.Context(), id, form, nav)
	if err != nil {
		status, fields := loginFailure(err)
		if status == http.StatusInternalServerError {
			err = errors.NewInternalError()
		}
		WriteFieldError(w, r, err, fields, status)
		return
	}
	WriteJSON(w, r, resp, http.StatusOK)
}

func (h *AuthHandler) APILogout(w http.ResponseWriter, r *http.Request) {
	id, ok := clientID(r)
	if !ok {
		WriteError(w, r, errors.NewInternalError(), http.StatusInternalServerError)
		return
	}
	nav := &custommw.Navigation{}
	if err := h.authService.Logout(r.Context(), id, nav); err != nil {
		WriteError(w, r, err, http.StatusInternalServerError)
		return
	}
	WriteJSON(w, r, auth.NewSessionView(auth.Anonymous()), http.StatusOK)
}

// Session reports the client's current session.
func (h *AuthHandler) Session(w http.ResponseWriter, r *http.Request) {
	id, ok := clientID(r)
	if !ok {
		WriteError(w, r, errors.NewInternalError(), http.StatusInternalServerError)
		return
	}
	WriteJSON(w, r, auth.NewSessionView(h.authService.Session(r.Context(), id)), http.StatusOK)
}

type validateRequest struct {
	Username string           `json:"username"`
	Password string           `json:"password"`
	Field    string           `json:"field"`
	Event    string           `json:"event"`
	Touched  map[string]bool  `json:"touched"`
	Errors   auth.FieldErrors `json:"errors"`
}

type validateResponse struct {
	Errors  auth.FieldErrors `json:"errors"`
	Touched map[string]bool  `json:"touched"`
	Valid   bool             `json:"valid"`
}

const (
	eventChange = "change"
	eventBlur   = "blur"
)

// Validate runs keystroke and blur validation for the login form. A change
// re-checks the field only once it has been touched; a blur marks it touched
// and always re-checks it. With no field the whole form is checked. Editing
// clears a pending credential error so the form can be resubmitted.
func (h *AuthHandler) Validate(w http.ResponseWriter, r *http.Request) {
	var req validateRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		WriteError(w, r, errors.NewBadRequestError("invalid request payload"), http.StatusBadRequest)
		return
	}

	v := h.authService.Validator()
	form := auth.LoginForm{Username: req.Username, Password: req.Password}
	touched := make(map[string]bool, 2)
	for k, t := range req.Touched {
		if k == auth.FieldUsername || k == auth.FieldPassword {
			touched[k] = t
		}
	}

	var errs auth.FieldErrors
	switch req.Field {
	case "":
		errs = v.ValidateForm(form)
	case auth.FieldUsername, auth.FieldPassword:
		value := form.Username
		if req.Field == auth.FieldPassword {
			value = form.Password
		}
		errs = req.Errors.Clone()
		delete(errs, auth.FieldGeneral)
		switch req.Event {
		case eventBlur:
			touched[req.Field] = true
			errs = v.ValidateField(errs, req.Field, value)
		case eventChange:
			if touched[req.Field] {
				errs = v.ValidateField(errs, req.Field, value)
			}
		default:
			WriteError(w, r, errors.NewBadRequestError("unknown event"), http.StatusBadRequest)
			return
		}
	default:
		WriteError(w, r, errors.NewBadRequestError("unknown field"), http.StatusBadRequest)
		return
	}

	WriteJSON(w, r, validateResponse{
		Errors:  errs,
		Touched: touched,
		Valid:   v.IsFormValid(form, errs),
	}, http.StatusOK)
}
