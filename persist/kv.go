package persist

import (
	"context"
	"errors"
	"strings"
)

// ErrInvalidKey is returned for empty keys or keys that cannot be stored by a backend.
var ErrInvalidKey = errors.New("persist: invalid key")

// KV is a minimal durable key/value slot.
//
// Get reports ok=false with a nil error when the key is absent. Delete of an
// absent key is not an error. Implementations must be safe for concurrent use.
type KV interface {
	Get(ctx context.Context, key string) (value []byte, ok bool, err error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}

func checkKey(key string) error {
	if strings.TrimSpace(key) == "" {
		return ErrInvalidKey
	}
	return nil
}

func cloneBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
