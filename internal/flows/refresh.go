package flows

import (
	"context"

	"github.com/MrEthical07/hrdesk/session"
)

// RefreshFailureKind classifies refresh flow failures for root-level mapping.
type RefreshFailureKind int

const (
	RefreshFailureNone RefreshFailureKind = iota
	RefreshFailureCall
	RefreshFailureDecode
)

// RefreshDeps captures refresh flow dependencies.
type RefreshDeps struct {
	CallRefresh  func(ctx context.Context) (string, error)
	PersistToken func(ctx context.Context, token string) error
	DeleteToken  func(ctx context.Context) error
	ApplySession func(loggedIn bool, token string) session.Snapshot
	ClearSession func() session.Snapshot
	Warn         func(string, ...any)
}

// RefreshResult carries either the new token or failure metadata.
type RefreshResult struct {
	Failure RefreshFailureKind
	Err     error
	Token   string
	Session session.Snapshot
}

// RunRefresh obtains a new access token. On success the token is persisted and
// applied; on any failure the persisted token is removed and the session is
// cleared before returning.
func RunRefresh(ctx context.Context, deps RefreshDeps) RefreshResult {
	token, err := deps.CallRefresh(ctx)
	if err != nil {
		return RefreshResult{Failure: RefreshFailureCall, Err: err, Session: expire(ctx, deps)}
	}

	if err := deps.PersistToken(ctx, token); err != nil {
		warn(deps.Warn, "refreshed token not persisted", "error", err)
	}

	snap := deps.ApplySession(true, token)
	if !snap.LoggedIn {
		return RefreshResult{Failure: RefreshFailureDecode, Session: expire(ctx, deps)}
	}
	return RefreshResult{Token: token, Session: snap}
}

func expire(ctx context.Context, deps RefreshDeps) session.Snapshot {
	if err := deps.DeleteToken(context.WithoutCancel(ctx)); err != nil {
		warn(deps.Warn, "expired token not removed", "error", err)
	}
	return deps.ClearSession()
}
