// internal/domain/auth/guard.go
package auth

import "sync"

type GuardDecision int

const (
	GuardLoading GuardDecision = iota
	GuardRedirect
	GuardRender
)

func (d GuardDecision) String() string {
	switch d {
	case GuardLoading:
		return "loading"
	case GuardRedirect:
		return "redirect"
	case GuardRender:
		return "render"
	default:
		return "unknown"
	}
}

// Decide maps an auth state to what a protected view should do.
func Decide(state AuthState) GuardDecision {
	switch {
	case state.Loading:
		return GuardLoading
	case !state.Session.IsAuthenticated():
		return GuardRedirect
	default:
		return GuardRender
	}
}

// RouteGuard evaluates the decision each time the observed state changes and
// fires the redirect as a side effect of a change, never twice for the same
// decision.
type RouteGuard struct {
	mu      sync.Mutex
	last    GuardDecision
	started bool
}

func NewRouteGuard() *RouteGuard {
	return &RouteGuard{}
}

type redirector interface {
	RedirectToLogin()
}

func (g *RouteGuard) Evaluate(state AuthState, r redirector) GuardDecision {
	d := Decide(state)

	g.mu.Lock()
	changed := !g.started || d != g.last
	g.last = d
	g.started = true
	g.mu.Unlock()

	if changed && d == GuardRedirect {
		r.RedirectToLogin()
	}
	return d
}
