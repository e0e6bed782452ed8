// internal/domain/auth/store.go
package auth

import (
	"context"
	"fmt"

	"login-portal/internal/logging"
)

// SessionStore maps a Session onto the two persisted keys of one client
// namespace. Writes go through a single SetItems/RemoveItems call so the two
// keys never disagree because of a half-finished write.
type SessionStore struct {
	kv     KeyValueStore
	logger logging.Logger
}

func NewSessionStore(kv KeyValueStore, logger logging.Logger) *SessionStore {
	return &SessionStore{
		kv:     kv,
		logger: logger,
	}
}

// Load reads the session. Anything other than isAuthenticated="true" with a
// non-empty username decodes as anonymous.
func (s *SessionStore) Load(ctx context.Context) (Session, error) {
	items, err := s.kv.GetItems(ctx, KeyIsAuthenticated, KeyUsername)
	if err != nil {
		return Anonymous(), fmt.Errorf("load session: %w", err)
	}

	if items[KeyIsAuthenticated] != "true" {
		return Anonymous(), nil
	}
	username := items[KeyUsername]
	if username == "" {
		s.logger.Warn(ctx, "session marker set without username, treating as anonymous")
		return Anonymous(), nil
	}
	return Authenticated(username), nil
}

func (s *SessionStore) Save(ctx context.Context, username string) error {
	err := s.kv.SetItems(ctx, map[string]string{
		KeyIsAuthenticated: "true",
		KeyUsername:        username,
	})
	if err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

func (s *SessionStore) Clear(ctx context.Context) error {
	if err := s.kv.RemoveItems(ctx, KeyIsAuthenticated, KeyUsername); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	return nil
}
