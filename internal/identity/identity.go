// Package identity issues and verifies the signed cookie that names a
// browser's storage namespace.
package identity

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const CookieName = "lp_client"

var ErrInvalidToken = errors.New("invalid client token")

type Claims struct {
	jwt.RegisteredClaims
}

type Issuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewIssuer(secret []byte, ttl time.Duration) *Issuer {
	return &Issuer{
		secret: secret,
		ttl:    ttl,
		now:    time.Now,
	}
}

// Issue creates a new client id and its signed token.
func (i *Issuer) Issue() (clientID, token string, err error) {
	clientID = uuid.NewString()
	now := i.now()

	claims := Claims{RegisteredClaims: jwt.RegisteredClaims{
		Subject:  clientID,
		IssuedAt: jwt.NewNumericDate(now),
	}}
	if i.ttl > 0 {
		claims.ExpiresAt = jwt.NewNumericDate(now.Add(i.ttl))
	}

	token, err = jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
	if err != nil {
		return "", "", fmt.Errorf("sign client token: %w", err)
	}
	return clientID, token, nil
}

// Parse verifies token and returns the client id it names.
func (i *Issuer) Parse(token string) (string, error) {
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (interface{}, error) {
		return i.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(i.now),
	)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !parsed.Valid {
		return "", ErrInvalidToken
	}
	if _, err := uuid.Parse(claims.Subject); err != nil {
		return "", fmt.Errorf("%w: subject is not a client id", ErrInvalidToken)
	}
	return claims.Subject, nil
}

type contextKey string

const clientIDKey contextKey = "identity.client"

func WithClientID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, clientIDKey, id)
}

func ClientIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(clientIDKey).(string)
	return id, ok && id != ""
}

// Middleware makes sure every request carries a client id, issuing a new
// cookie when the current one is missing or does not verify.
func (i *Issuer) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if c, err := r.Cookie(CookieName); err == nil {
			if id, err := i.Parse(c.Value); err == nil {
				next.ServeHTTP(w, r.WithContext(WithClientID(r.Context(), id)))
				return
			}
		}

		id, token, err := i.Issue()
		if err != nil {
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			return
		}

		cookie := &http.Cookie{
			Name:     CookieName,
			Value:    token,
			Path:     "/",
			HttpOnly: true,
			Secure:   r.TLS != nil,
			SameSite: http.SameSiteLaxMode,
		}
		if i.ttl > 0 {
			cookie.MaxAge = int(i.ttl.Seconds())
		}
		http.SetCookie(w, cookie)

		next.ServeHTTP(w, r.WithContext(WithClientID(r.Context(), id)))
	})
}
