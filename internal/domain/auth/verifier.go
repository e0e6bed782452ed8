// internal/domain/auth/verifier.go
package auth

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"time"

	"golang.org/x/crypto/bcrypt"
)

// ErrUserNotFound is returned by a UserRepository for unknown usernames.
var ErrUserNotFound = errors.New("user not found")

// StaticVerifier accepts exactly one username/password pair.
type StaticVerifier struct {
	username string
	password string
}

func NewStaticVerifier(username, password string) *StaticVerifier {
	return &StaticVerifier{username: username, password: password}
}

func (v *StaticVerifier) Verify(_ context.Context, username, password string) (bool, error) {
	userOK := subtle.ConstantTimeCompare([]byte(username), []byte(v.username)) == 1
	passOK := subtle.ConstantTimeCompare([]byte(password), []byte(v.password)) == 1
	return userOK && passOK, nil
}

// DelayedVerifier waits a fixed latency before asking next.
type DelayedVerifier struct {
	next  CredentialVerifier
	delay time.Duration
	after func(time.Duration) <-chan time.Time
}

func NewDelayedVerifier(next CredentialVerifier, delay time.Duration) *DelayedVerifier {
	return &DelayedVerifier{
		next:  next,
		delay: delay,
		after: time.After,
	}
}

func (v *DelayedVerifier) Verify(ctx context.Context, username, password string) (bool, error) {
	if v.delay > 0 {
		select {
		case <-v.after(v.delay):
		case <-ctx.Done():
			return false, ctx.Err()
		}
	}
	return v.next.Verify(ctx, username, password)
}

// PasswordVerifier checks a password against the bcrypt hash kept for the
// user.
type PasswordVerifier struct {
	users UserRepository
}

func NewPasswordVerifier(users UserRepository) *PasswordVerifier {
	return &PasswordVerifier{users: users}
}

func (v *PasswordVerifier) Verify(ctx context.Context, username, password string) (bool, error) {
	hash, err := v.users.GetPasswordHash(ctx, username)
	if errors.Is(err, ErrUserNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("lookup user: %w", err)
	}

	err = bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("compare password: %w", err)
	}
	return true, nil
}

// HashPassword produces the bcrypt hash stored for a user.
func HashPassword(password string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}
