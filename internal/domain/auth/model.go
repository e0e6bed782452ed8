// internal/domain/auth/model.go
package auth

const (
	// Persisted key layout. The values mirror what the browser build kept in
	// local storage, so existing data stays readable.
	KeyIsAuthenticated = "isAuthenticated"
	KeyUsername        = "username"

	LoginPath = "/login"
	HomePath  = "/"
)

// Form field names, also used as FieldErrors keys.
const (
	FieldUsername = "username"
	FieldPassword = "password"
	FieldGeneral  = "general"
)

// Session is either anonymous or authenticated with a username. The zero
// value is anonymous.
type Session struct {
	username      string
	authenticated bool
}

func Anonymous() Session {
	return Session{}
}

func Authenticated(username string) Session {
	return Session{username: username, authenticated: true}
}

func (s Session) IsAuthenticated() bool {
	return s.authenticated
}

// Username returns the username and whether one is present. It is present
// exactly when the session is authenticated.
func (s Session) Username() (string, bool) {
	return s.username, s.authenticated
}

// AuthState is what views observe: the session plus whether it has been read
// yet.
type AuthState struct {
	Session Session
	Loading bool
}

// FieldErrors maps a field name to its message. A missing key means the
// field currently passes.
type FieldErrors map[string]string

func (e FieldErrors) Clone() FieldErrors {
	out := make(FieldErrors, len(e))
	for k, v := range e {
		out[k] = v
	}
	return out
}

type LoginForm struct {
	Username string `json:"username" form:"username"`
	Password string `json:"password" form:"password"`
}

type LoginResult struct {
	Username    string `json:"username"`
	RedirectURI string `json:"redirectUri"`
}

// SessionView is the JSON shape of a session.
type SessionView struct {
	IsAuthenticated bool    `json:"isAuthenticated"`
	Username        *string `json:"username"`
}

func NewSessionView(s Session) SessionView {
	v := SessionView{IsAuthenticated: s.IsAuthenticated()}
	if name, ok := s.Username(); ok {
		v.Username = &name
	}
	return v
}
