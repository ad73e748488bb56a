package session

import (
	"context"
	"fmt"

	"github.com/MrEthical07/hrdesk/persist"
)

// AccessTokenKey is the storage key of the persisted access token.
const AccessTokenKey = "accessToken"

// TokenSlot persists the raw access token in a KV under AccessTokenKey.
type TokenSlot struct {
	kv persist.KV
}

// NewTokenSlot wraps kv. A nil kv gets an in-memory store.
func NewTokenSlot(kv persist.KV) *TokenSlot {
	if kv == nil {
		kv = persist.NewMemory()
	}
	return &TokenSlot{kv: kv}
}

// Load returns the stored token. ok is false when nothing (or only an empty
// value) is stored.
func (t *TokenSlot) Load(ctx context.Context) (string, bool, error) {
	raw, ok, err := t.kv.Get(ctx, AccessTokenKey)
	if err != nil {
		return "", false, fmt.Errorf("session: load access token: %w", err)
	}
	if !ok || len(raw) == 0 {
		return "", false, nil
	}
	return string(raw), true, nil
}

// Save stores token. Saving "" deletes the slot.
func (t *TokenSlot) Save(ctx context.Context, token string) error {
	if token == "" {
		return t.Delete(ctx)
	}
	if err := t.kv.Set(ctx, AccessTokenKey, []byte(token)); err != nil {
		return fmt.Errorf("session: save access token: %w", err)
	}
	return nil
}

// Delete removes the stored token.
func (t *TokenSlot) Delete(ctx context.Context) error {
	if err := t.kv.Delete(ctx, AccessTokenKey); err != nil {
		return fmt.Errorf("session: delete access token: %w", err)
	}
	return nil
}
