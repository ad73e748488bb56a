package session

import (
	"context"
	"log/slog"
	"time"

	"github.com/MrEthical07/hrdesk/persist"
)

// MirrorKey is the storage key of the mirrored snapshot.
const MirrorKey = "persist:root"

// Mirror writes every session state to a KV so external tooling (and the CLI's
// whoami) can inspect it. It is write-only from the store's point of view: the
// store is never rehydrated from the mirror, only from the token slot.
type Mirror struct {
	kv      persist.KV
	logger  *slog.Logger
	timeout time.Duration
	now     func() time.Time
}

// NewMirror returns a Mirror over kv.
func NewMirror(kv persist.KV, logger *slog.Logger) *Mirror {
	if logger == nil {
		logger = slog.Default()
	}
	return &Mirror{
		kv:      kv,
		logger:  logger.With("component", "session_mirror"),
		timeout: 2 * time.Second,
		now:     time.Now,
	}
}

// Attach subscribes the mirror to store. Nothing is written until the store
// changes, so a previous process's mirror survives until bootstrap. The
// returned function detaches it.
func (m *Mirror) Attach(store *Store) func() {
	return store.Subscribe(m.Write)
}

// Write persists s. Failures are logged; the session keeps working without a mirror.
func (m *Mirror) Write(s Snapshot) {
	data, err := EncodeSnapshot(s, m.now())
	if err != nil {
		m.logger.Error("mirror encode failed", "error", err)
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), m.timeout)
	defer cancel()
	if err := m.kv.Set(ctx, MirrorKey, data); err != nil {
		m.logger.Warn("mirror write failed", "error", err)
	}
}

// Load reads the mirrored snapshot. ok is false when no mirror exists.
func (m *Mirror) Load(ctx context.Context) (Snapshot, time.Time, bool, error) {
	data, ok, err := m.kv.Get(ctx, MirrorKey)
	if err != nil || !ok {
		return Snapshot{}, time.Time{}, false, err
	}
	s, savedAt, err := DecodeSnapshot(data)
	if err != nil {
		return Snapshot{}, time.Time{}, false, err
	}
	return s, savedAt, true, nil
}

// Clear removes the mirrored snapshot.
func (m *Mirror) Clear(ctx context.Context) error {
	return m.kv.Delete(ctx, MirrorKey)
}
