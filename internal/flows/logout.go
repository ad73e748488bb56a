package flows

import (
	"context"

	"github.com/MrEthical07/hrdesk/session"
)

// LogoutDeps captures logout flow dependencies. CallLogout and ClearMirror may be nil.
type LogoutDeps struct {
	CallLogout   func(ctx context.Context) error
	DeleteToken  func(ctx context.Context) error
	ClearSession func() session.Snapshot
	ClearMirror  func(ctx context.Context) error
	Warn         func(string, ...any)
}

// LogoutResult reports the backend outcome separately from local cleanup.
// Cleared is false when local state was left in place.
type LogoutResult struct {
	RemoteErr error
	LocalErr  error
	Cleared   bool
	Session   session.Snapshot
}

// RunLogout tells the backend to drop the refresh cookie, then clears local
// state. When the backend call fails the session is left untouched unless
// force is set.
func RunLogout(ctx context.Context, force bool, deps LogoutDeps) LogoutResult {
	var res LogoutResult
	if deps.CallLogout != nil {
		if err := deps.CallLogout(ctx); err != nil {
			warn(deps.Warn, "backend logout failed", "error", err, "force", force)
			res.RemoteErr = err
			if !force {
				return res
			}
		}
	}

	local := context.WithoutCancel(ctx)
	if err := deps.DeleteToken(local); err != nil {
		res.LocalErr = err
	}
	res.Session = deps.ClearSession()
	res.Cleared = true
	if deps.ClearMirror != nil {
		if err := deps.ClearMirror(local); err != nil && res.LocalErr == nil {
			res.LocalErr = err
		}
	}
	return res
}
