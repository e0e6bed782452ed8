// internal/domain/auth/service.go
package auth

import (
	"context"
	"time"

	"golang.org/x/sync/singleflight"

	"login-portal/internal/logging"
	"login-portal/internal/metrics"
	"login-portal/pkg/errors"
)

const msgLoginInProgress = "Ya hay un inicio de sesión en curso"

const loginFlightTimeout = 30 * time.Second

type AuthService struct {
	storage   StorageProvider
	verifier  CredentialVerifier
	validator *Validator
	publisher SessionPublisher
	logger    logging.Logger

	inflight singleflight.Group
}

func NewAuthService(sp StorageProvider, cv CredentialVerifier, v *Validator, pub SessionPublisher, logger logging.Logger) *AuthService {
	return &AuthService{
		storage:   sp,
		verifier:  cv,
		validator: v,
		publisher: pub,
		logger:    logger,
	}
}

func (s *AuthService) Validator() *Validator {
	return s.validator
}

// Manager returns the auth state manager of clientID, navigating through nav.
func (s *AuthService) Manager(clientID string, nav Navigator) *AuthManager {
	store := NewSessionStore(s.storage.Namespace(clientID), s.logger)
	return NewAuthManager(clientID, store, nav, s.publisher, s.logger)
}

// Ready reports whether the storage backend answers.
func (s *AuthService) Ready(ctx context.Context) error {
	return s.storage.Ping(ctx)
}

type loginFlight struct {
	form   LoginForm
	result *LoginResult
}

// Login validates the form, verifies the credentials and stores the session.
// On success it navigates to the protected root. A submit that arrives while
// another one of the same client is still being verified joins it when the
// form is identical and is refused otherwise.
func (s *AuthService) Login(ctx context.Context, clientID string, form LoginForm, nav Navigator) (*LoginResult, error) {
	if errs := s.validator.ValidateForm(form); len(errs) > 0 {
		metrics.RecordLoginAttempt(metrics.LoginInvalid)
		return nil, errors.NewValidationError("invalid login form", errs)
	}

	// A submit that has started runs to completion even if the caller goes
	// away, bounded by loginFlightTimeout.
	v, err, shared := s.inflight.Do(clientID, func() (interface{}, error) {
		flightCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), loginFlightTimeout)
		defer cancel()
		res, err := s.login(flightCtx, clientID, form)
		return &loginFlight{form: form, result: res}, err
	})
	flight := v.(*loginFlight)
	if shared && flight.form != form {
		metrics.RecordLoginAttempt(metrics.LoginInProgress)
		return nil, errors.NewBadRequestError(msgLoginInProgress)
	}
	if err != nil {
		return nil, err
	}

	nav.Navigate(flight.result.RedirectURI)
	return flight.result, nil
}

func (s *AuthService) login(ctx context.Context, clientID string, form LoginForm) (*LoginResult, error) {
	ok, err := s.verifier.Verify(ctx, form.Username, form.Password)
	if err != nil {
		metrics.RecordLoginAttempt(metrics.LoginError)
		s.logger.Error(ctx, "verifying credentials", "client", clientID, "error", err)
		return nil, errors.NewInternalError()
	}
	if !ok {
		metrics.RecordLoginAttempt(metrics.LoginMismatch)
		return nil, errors.NewAuthenticationError(MsgInvalidCredentials)
	}

	// The manager navigates only on logout; login navigation is done by the
	// caller once the flight settles.
	mgr := s.Manager(clientID, nil)
	if err := mgr.Login(ctx, form.Username); err != nil {
		metrics.RecordLoginAttempt(metrics.LoginError)
		s.logger.Error(ctx, "storing session", "client", clientID, "error", err)
		return nil, errors.NewInternalError()
	}

	metrics.RecordLoginAttempt(metrics.LoginSuccess)
	s.logger.Info(ctx, "login succeeded", "client", clientID, "username", form.Username)
	return &LoginResult{Username: form.Username, RedirectURI: HomePath}, nil
}

// Logout clears the client's session and navigates to the login page.
func (s *AuthService) Logout(ctx context.Context, clientID string, nav Navigator) error {
	if err := s.Manager(clientID, nav).Logout(ctx); err != nil {
		s.logger.Error(ctx, "clearing session", "client", clientID, "error", err)
		return errors.NewInternalError()
	}
	return nil
}

// Session reads the client's session, falling back to anonymous when the
// storage cannot be read.
func (s *AuthService) Session(ctx context.Context, clientID string) Session {
	return s.Manager(clientID, nil).CheckStatus(ctx)
}
