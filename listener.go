package hrdesk

import "sync"

// Listener receives the signals the HTTP layer raises instead of acting on
// the user interface itself. Methods run synchronously on the goroutine that
// observed the condition and must not block for long.
type Listener interface {
	// SessionExpired is raised once per failed refresh, after the session has
	// been cleared. The shell is expected to send the user to the login view.
	SessionExpired(err error)
	// PermissionDenied is raised once per 403 response with the server's
	// message or the configured fallback.
	PermissionDenied(message string)
}

// ListenerFuncs adapts plain functions to Listener. Nil fields are skipped.
type ListenerFuncs struct {
	OnSessionExpired   func(err error)
	OnPermissionDenied func(message string)
}

func (f ListenerFuncs) SessionExpired(err error) {
	if f.OnSessionExpired != nil {
		f.OnSessionExpired(err)
	}
}

func (f ListenerFuncs) PermissionDenied(message string) {
	if f.OnPermissionDenied != nil {
		f.OnPermissionDenied(message)
	}
}

type listenerEntry struct {
	id int
	l  Listener
}

type listenerSet struct {
	mu      sync.RWMutex
	entries []listenerEntry
	nextID  int
}

func (s *listenerSet) add(l Listener) func() {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.entries = append(s.entries, listenerEntry{id: id, l: l})
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			for i, e := range s.entries {
				if e.id == id {
					s.entries = append(s.entries[:i:i], s.entries[i+1:]...)
					return
				}
			}
		})
	}
}

func (s *listenerSet) snapshot() []Listener {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Listener, len(s.entries))
	for i, e := range s.entries {
		out[i] = e.l
	}
	return out
}

func (s *listenerSet) sessionExpired(err error) {
	for _, l := range s.snapshot() {
		l.SessionExpired(err)
	}
}

func (s *listenerSet) permissionDenied(message string) {
	for _, l := range s.snapshot() {
		l.PermissionDenied(message)
	}
}
