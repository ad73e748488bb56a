package refresh

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"
)

// Mode selects how concurrent refresh requests are handled.
type Mode int

const (
	// Shared collapses concurrent refreshes into one call.
	Shared Mode = iota
	// PerRequest performs one refresh call per caller.
	PerRequest
)

func (m Mode) String() string {
	switch m {
	case Shared:
		return "shared"
	case PerRequest:
		return "per_request"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// ParseMode accepts "shared" and "per_request" (also "per-request").
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "shared":
		return Shared, nil
	case "per_request", "per-request", "perrequest":
		return PerRequest, nil
	default:
		return Shared, fmt.Errorf("refresh: unknown mode %q", s)
	}
}

// MarshalText implements encoding.TextMarshaler.
func (m Mode) MarshalText() ([]byte, error) {
	switch m {
	case Shared, PerRequest:
		return []byte(m.String()), nil
	}
	return nil, fmt.Errorf("refresh: unknown mode %d", int(m))
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (m *Mode) UnmarshalText(text []byte) error {
	parsed, err := ParseMode(string(text))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// ErrEmptyToken is returned when a refresh call succeeds without a token.
var ErrEmptyToken = errors.New("refresh: empty access token")

// Func performs one refresh call and returns the new access token.
type Func func(ctx context.Context) (string, error)

// Result is the outcome of Refresh.
type Result struct {
	Token string
	// Shared reports that this caller joined a call started by another caller.
	Shared bool
}

// Coordinator runs refresh calls according to its Mode. It is safe for
// concurrent use.
type Coordinator struct {
	mode    Mode
	fn      Func
	timeout time.Duration
	group   singleflight.Group

	started atomic.Uint64
	joined  atomic.Uint64
}

// New returns a Coordinator. timeout bounds each refresh call independently
// of the callers' contexts; zero means no extra bound.
func New(mode Mode, timeout time.Duration, fn Func) *Coordinator {
	return &Coordinator{mode: mode, fn: fn, timeout: timeout}
}

// Mode returns the configured mode.
func (c *Coordinator) Mode() Mode { return c.mode }

// Refresh obtains a fresh access token. In Shared mode the call runs detached
// from ctx so one waiter giving up does not fail the others; ctx still bounds
// how long this caller waits.
func (c *Coordinator) Refresh(ctx context.Context) (Result, error) {
	if c.mode == PerRequest {
		token, err := c.call(ctx)
		return Result{Token: token}, err
	}

	ch := c.group.DoChan("access_token", func() (any, error) {
		return c.call(context.WithoutCancel(ctx))
	})

	select {
	case res := <-ch:
		if res.Shared {
			c.joined.Add(1)
		}
		token, _ := res.Val.(string)
		return Result{Token: token, Shared: res.Shared}, res.Err
	case <-ctx.Done():
		return Result{}, ctx.Err()
	}
}

func (c *Coordinator) call(ctx context.Context) (string, error) {
	c.started.Add(1)
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}
	token, err := c.fn(ctx)
	if err != nil {
		return "", err
	}
	if token == "" {
		return "", ErrEmptyToken
	}
	return token, nil
}

// Stats reports how many refresh calls were started and how many callers
// shared another caller's result.
func (c *Coordinator) Stats() (started, joined uint64) {
	return c.started.Load(), c.joined.Load()
}
