package middleware

import (
	"context"
	"net/http"

	"login-portal/internal/domain/auth"
	"login-portal/internal/identity"
	"login-portal/internal/metrics"
)

type sessionContextKey string

const sessionKey sessionContextKey = "auth.session"

// Readiness reports whether the session storage can be read yet.
type Readiness interface {
	Ready() bool
}

func WithSession(ctx context.Context, s auth.Session) context.Context {
	return context.WithValue(ctx, sessionKey, s)
}

func SessionFromContext(ctx context.Context) (auth.Session, bool) {
	s, ok := ctx.Value(sessionKey).(auth.Session)
	return s, ok
}

// Guard protects next. Until ready reports true the loading page is served
// with a Refresh header; afterwards anonymous clients are sent to the login
// page and authenticated ones get the session in the request context.
func Guard(svc *auth.AuthService, ready Readiness, loading http.Handler) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			clientID, ok := identity.ClientIDFromContext(r.Context())
			if !ok {
				http.Redirect(w, r, auth.LoginPath, http.StatusFound)
				return
			}

			nav := &Navigation{}
			mgr := svc.Manager(clientID, nav)
			if ready.Ready() {
				mgr.CheckStatus(r.Context())
			}
			state := mgr.State()

			// A page load is a fresh mount: one evaluation, which redirects on
			// its first Redirect decision. Pushed changes after that go through
			// the session websocket.
			decision := auth.NewRouteGuard().Evaluate(state, mgr)
			metrics.RecordGuardDecision(decision.String())

			switch decision {
			case auth.GuardLoading:
				w.Header().Set("Refresh", "1")
				w.Header().Set("Cache-Control", "no-store")
				loading.ServeHTTP(w, r)
			case auth.GuardRedirect:
				nav.Redirect(w, r, http.StatusFound)
			default:
				next.ServeHTTP(w, r.WithContext(WithSession(r.Context(), state.Session)))
			}
		})
	}
}
