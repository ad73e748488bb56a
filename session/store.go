package session

import (
	"log/slog"
	"strings"
	"sync"

	"github.com/MrEthical07/hrdesk/jwt"
)

// Decoder turns an access token into claims. *jwt.Codec satisfies it.
type Decoder interface {
	Decode(token string) (jwt.Claims, error)
}

type subscriber struct {
	id int
	fn func(Snapshot)
}

// Store is the process-wide session state for one client. It is safe for
// concurrent use.
type Store struct {
	decoder Decoder
	logger  *slog.Logger

	// writeMu serializes mutations together with subscriber delivery so every
	// subscriber sees mutations in the order they were applied.
	writeMu sync.Mutex

	mu    sync.RWMutex
	state Snapshot

	subsMu sync.Mutex
	subs   []subscriber
	nextID int
}

// NewStore returns an uninitialized, logged-out Store. A nil decoder uses
// jwt.Codec; a nil logger uses slog.Default().
func NewStore(decoder Decoder, logger *slog.Logger) *Store {
	if decoder == nil {
		decoder = jwt.NewCodec()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		decoder: decoder,
		logger:  logger.With("component", "session"),
	}
}

// SetSession applies a login state. A non-empty accessToken is decoded: on
// success the claims are stored and LoggedIn takes the requested value; on
// failure the token and claims are dropped and LoggedIn is forced false. An
// empty accessToken always yields a logged-out state. The store is marked
// initialized in every case. Decode failures are logged, never returned.
func (s *Store) SetSession(loggedIn bool, accessToken string) Snapshot {
	next := Snapshot{Initialized: true}
	accessToken = strings.TrimSpace(accessToken)

	if accessToken != "" {
		claims, err := s.decoder.Decode(accessToken)
		if err != nil {
			s.logger.Warn("discarding unreadable access token", "error", err)
		} else {
			next.AccessToken = accessToken
			next.Claims = &claims
			next.LoggedIn = loggedIn
		}
	}

	return s.apply(next)
}

// ClearSession logs the session out. Initialized stays true.
func (s *Store) ClearSession() Snapshot {
	return s.apply(Snapshot{Initialized: true})
}

func (s *Store) apply(next Snapshot) Snapshot {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.mu.Lock()
	s.state = next
	s.mu.Unlock()

	s.notify(next)
	return next.clone()
}

// Snapshot returns a copy of the current state.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.clone()
}

// AccessToken returns the current token and whether one is held.
func (s *Store) AccessToken() (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.AccessToken, s.state.AccessToken != ""
}

// Initialized reports whether the state has been set at least once.
func (s *Store) Initialized() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Initialized
}

// LoggedIn reports the logged-in flag.
func (s *Store) LoggedIn() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.LoggedIn
}

// Subscribe registers fn to receive every subsequent state, synchronously and
// in mutation order. fn must not call SetSession or ClearSession. The
// returned function removes the subscription.
func (s *Store) Subscribe(fn func(Snapshot)) func() {
	if fn == nil {
		return func() {}
	}
	s.subsMu.Lock()
	id := s.nextID
	s.nextID++
	s.subs = append(s.subs, subscriber{id: id, fn: fn})
	s.subsMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.subsMu.Lock()
			defer s.subsMu.Unlock()
			for i, sub := range s.subs {
				if sub.id == id {
					s.subs = append(s.subs[:i:i], s.subs[i+1:]...)
					return
				}
			}
		})
	}
}

func (s *Store) notify(state Snapshot) {
	s.subsMu.Lock()
	subs := make([]subscriber, len(s.subs))
	copy(subs, s.subs)
	s.subsMu.Unlock()

	for _, sub := range subs {
		sub.fn(state.clone())
	}
}
