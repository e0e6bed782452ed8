// internal/domain/auth/manager.go
package auth

import (
	"context"
	"sync"

	"login-portal/internal/logging"
	"login-portal/internal/metrics"
)

// AuthManager owns the authentication state of one client. It starts out
// loading; the first CheckStatus settles it.
type AuthManager struct {
	clientID  string
	store     *SessionStore
	nav       Navigator
	publisher SessionPublisher
	logger    logging.Logger

	mu    sync.Mutex
	state AuthState
}

// NewAuthManager wires a manager for clientID. publisher may be nil.
func NewAuthManager(clientID string, store *SessionStore, nav Navigator, publisher SessionPublisher, logger logging.Logger) *AuthManager {
	return &AuthManager{
		clientID:  clientID,
		store:     store,
		nav:       nav,
		publisher: publisher,
		logger:    logger.With("client", clientID),
		state:     AuthState{Loading: true},
	}
}

func (m *AuthManager) State() AuthState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// CheckStatus reads the persisted session. Storage failures are logged and
// reported as anonymous.
func (m *AuthManager) CheckStatus(ctx context.Context) Session {
	sess, err := m.store.Load(ctx)
	if err != nil {
		m.logger.Error(ctx, "checking auth status", "error", err)
		metrics.RecordStorageError()
		sess = Anonymous()
	}

	m.setState(AuthState{Session: sess})
	return sess
}

// Login persists an authenticated session for username. The in-memory state
// only changes once the write went through.
func (m *AuthManager) Login(ctx context.Context, username string) error {
	if err := m.store.Save(ctx, username); err != nil {
		return err
	}

	sess := Authenticated(username)
	m.setState(AuthState{Session: sess})
	m.publish(sess)
	return nil
}

// Logout drops the persisted session and navigates to the login page.
func (m *AuthManager) Logout(ctx context.Context) error {
	if err := m.store.Clear(ctx); err != nil {
		return err
	}

	m.setState(AuthState{Session: Anonymous()})
	m.publish(Anonymous())
	m.nav.Navigate(LoginPath)
	return nil
}

// RedirectToLogin navigates to the login page without touching storage.
func (m *AuthManager) RedirectToLogin() {
	m.nav.Navigate(LoginPath)
}

func (m *AuthManager) setState(s AuthState) {
	m.mu.Lock()
	m.state = s
	m.mu.Unlock()
}

func (m *AuthManager) publish(sess Session) {
	if m.publisher != nil {
		m.publisher.Publish(m.clientID, sess)
	}
}
