package flows

import (
	"context"
	"errors"
	"strings"

	"github.com/MrEthical07/hrdesk/session"
)

// LoginFailureKind classifies login flow failures for root-level mapping.
type LoginFailureKind int

const (
	LoginFailureNone LoginFailureKind = iota
	LoginFailureInput
	LoginFailureRejected
	LoginFailureDecode
)

// ErrMissingCredentials is returned for an empty employee number or password.
var ErrMissingCredentials = errors.New("flows: employee number and password are required")

// LoginDeps captures login flow dependencies.
type LoginDeps struct {
	CallLogin    func(ctx context.Context, employeeNumber, password string) (string, error)
	PersistToken func(ctx context.Context, token string) error
	DeleteToken  func(ctx context.Context) error
	ApplySession func(loggedIn bool, token string) session.Snapshot
	Warn         func(string, ...any)
}

// LoginResult carries the resulting session or failure metadata.
type LoginResult struct {
	Failure LoginFailureKind
	Err     error
	Session session.Snapshot
}

// RunLogin authenticates, persists the returned token, and applies it to the
// session store. A token that cannot be decoded leaves the session logged out
// and is removed from storage again.
func RunLogin(ctx context.Context, employeeNumber, password string, deps LoginDeps) LoginResult {
	if strings.TrimSpace(employeeNumber) == "" || password == "" {
		return LoginResult{Failure: LoginFailureInput, Err: ErrMissingCredentials}
	}

	token, err := deps.CallLogin(ctx, employeeNumber, password)
	if err != nil {
		return LoginResult{Failure: LoginFailureRejected, Err: err}
	}

	if err := deps.PersistToken(ctx, token); err != nil {
		warn(deps.Warn, "login token not persisted", "error", err)
	}

	snap := deps.ApplySession(true, token)
	if !snap.LoggedIn {
		if err := deps.DeleteToken(ctx); err != nil {
			warn(deps.Warn, "undecodable login token not removed", "error", err)
		}
		return LoginResult{Failure: LoginFailureDecode, Err: errors.New("flows: login returned an unreadable token"), Session: snap}
	}

	return LoginResult{Session: snap}
}
