package session

import (
	"context"
	"log/slog"
)

// Bootstrap rehydrates store from the persisted token. It always leaves the
// store initialized: a stored token is passed to SetSession(true, token), and
// a missing or unreadable slot yields SetSession(false, ""). A slot read
// failure is returned after the store has been initialized logged-out.
func Bootstrap(ctx context.Context, store *Store, tokens *TokenSlot, logger *slog.Logger) (Snapshot, error) {
	if logger == nil {
		logger = slog.Default()
	}

	token, ok, err := tokens.Load(ctx)
	if err != nil {
		logger.Warn("session bootstrap could not read token", "error", err)
		return store.SetSession(false, ""), err
	}
	if !ok {
		logger.Debug("session bootstrap found no token")
		return store.SetSession(false, ""), nil
	}

	snap := store.SetSession(true, token)
	logger.Debug("session bootstrap complete", "logged_in", snap.LoggedIn, "employee", snap.EmployeeNumber())
	return snap, nil
}
