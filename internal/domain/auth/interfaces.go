// internal/domain/auth/interfaces.go
package auth

import "context"

// KeyValueStore is one client's persistent string store, the server-side
// counterpart of a browser's local storage. A missing key is simply absent
// from the map returned by GetItems; it is not an error.
type KeyValueStore interface {
	GetItems(ctx context.Context, keys ...string) (map[string]string, error)
	// SetItems writes every pair in a single atomic operation.
	SetItems(ctx context.Context, items map[string]string) error
	RemoveItems(ctx context.Context, keys ...string) error
}

// StorageProvider hands out the namespace belonging to a client identity.
type StorageProvider interface {
	Namespace(clientID string) KeyValueStore
	Ping(ctx context.Context) error
}

// Navigator triggers navigation to path. HTTP handlers implement it with a
// redirect.
type Navigator interface {
	Navigate(path string)
}

// CredentialVerifier reports whether the username/password pair is accepted.
// A false result with a nil error is a plain mismatch.
type CredentialVerifier interface {
	Verify(ctx context.Context, username, password string) (bool, error)
}

// SessionPublisher is told about every session change of a client so that
// other open tabs can re-evaluate.
type SessionPublisher interface {
	Publish(clientID string, session Session)
}

type UserRepository interface {
	GetPasswordHash(ctx context.Context, username string) (string, error)
}
