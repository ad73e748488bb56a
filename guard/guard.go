package guard

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/MrEthical07/hrdesk/permission"
	"github.com/MrEthical07/hrdesk/session"
)

// Decision is the outcome of evaluating the guard.
type Decision int

const (
	Suspend Decision = iota
	Redirect
	Render
)

func (d Decision) String() string {
	switch d {
	case Suspend:
		return "suspend"
	case Redirect:
		return "redirect"
	case Render:
		return "render"
	default:
		return "unknown"
	}
}

// Guard reads the session store it was built with.
type Guard struct {
	store *session.Store
}

func New(store *session.Store) *Guard {
	return &Guard{store: store}
}

// Decide evaluates the current session. A guard without a store suspends.
func (g *Guard) Decide() Decision {
	if g == nil || g.store == nil {
		return Suspend
	}
	return decide(g.store.Snapshot())
}

func decide(s session.Snapshot) Decision {
	switch {
	case !s.Initialized:
		return Suspend
	case !s.LoggedIn:
		return Redirect
	default:
		return Render
	}
}

// Wait blocks until the store is initialized and returns the decision at
// that point.
func (g *Guard) Wait(ctx context.Context) (Decision, error) {
	if g == nil || g.store == nil {
		return Suspend, context.Cause(ctx)
	}

	ready := make(chan struct{}, 1)
	unsubscribe := g.store.Subscribe(func(s session.Snapshot) {
		if s.Initialized {
			select {
			case ready <- struct{}{}:
			default:
			}
		}
	})
	defer unsubscribe()

	if d := g.Decide(); d != Suspend {
		return d, nil
	}
	select {
	case <-ready:
		return g.Decide(), nil
	case <-ctx.Done():
		return Suspend, ctx.Err()
	}
}

type snapshotContextKey struct{}

// SnapshotFromContext returns the session a rendered request was admitted with.
func SnapshotFromContext(ctx context.Context) (session.Snapshot, bool) {
	s, ok := ctx.Value(snapshotContextKey{}).(session.Snapshot)
	return s, ok
}

// RetryAfter is advertised on suspended responses.
const RetryAfter = time.Second

// Middleware maps decisions onto HTTP: Suspend answers 503 with
// Retry-After, Redirect answers 303 to loginPath, Render calls next with
// the snapshot in the request context.
func (g *Guard) Middleware(loginPath string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var snap session.Snapshot
			if g != nil && g.store != nil {
				snap = g.store.Snapshot()
			}
			switch decide(snap) {
			case Suspend:
				w.Header().Set("Retry-After", strconv.Itoa(int(RetryAfter/time.Second)))
				http.Error(w, "session not ready", http.StatusServiceUnavailable)
			case Redirect:
				http.Redirect(w, r, loginPath, http.StatusSeeOther)
			default:
				ctx := context.WithValue(r.Context(), snapshotContextKey{}, snap)
				next.ServeHTTP(w, r.WithContext(ctx))
			}
		})
	}
}

// RequireCapability rejects rendered requests whose claims lack capability
// over the employee returned by target. It must run inside Middleware.
func RequireCapability(capability string, target func(*http.Request) string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			snap, ok := SnapshotFromContext(r.Context())
			if !ok {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
			employee := ""
			if target != nil {
				employee = target(r)
			}
			if !permission.Can(snap.Claims, employee, capability) {
				http.Error(w, "forbidden", http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
