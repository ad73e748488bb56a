package hrdesk

import (
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
)

var (
	// ErrSessionExpired is matched by every error produced when a refresh
	// fails and the session has been cleared.
	ErrSessionExpired = errors.New("session expired")
	// ErrPermissionDenied is matched by *APIError values with status 403.
	ErrPermissionDenied = errors.New("permission denied")
	// ErrUnauthorized is matched by *APIError values with status 401.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrNotLoggedIn is returned by operations that need a session when none is held.
	ErrNotLoggedIn = errors.New("not logged in")
	// ErrMissingCredentials is returned by Login for an empty employee number or password.
	ErrMissingCredentials = errors.New("employee number and password are required")
	// ErrUnreadableToken is returned by Login when the backend issues a token
	// that cannot be decoded.
	ErrUnreadableToken = errors.New("backend issued an unreadable access token")
	// ErrLogoutFailed is returned when the backend rejects a logout; the local
	// session is kept.
	ErrLogoutFailed = errors.New("logout failed")
	// ErrMissingToken is returned when a login or refresh response carries no access token.
	ErrMissingToken = errors.New("response carried no access token")
	// ErrInvalidConfig is wrapped by every configuration validation failure.
	ErrInvalidConfig = errors.New("invalid config")
	// ErrBuilderUsed is returned by a second Build call on the same Builder.
	ErrBuilderUsed = errors.New("builder already used")
)

// APIError is a non-2xx response from the backend.
type APIError struct {
	Status  int
	Message string
	Body    []byte
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("hrdesk: %d %s: %s", e.Status, http.StatusText(e.Status), e.Message)
	}
	return fmt.Sprintf("hrdesk: %d %s", e.Status, http.StatusText(e.Status))
}

// Is maps well-known statuses onto the package sentinels.
func (e *APIError) Is(target error) bool {
	switch target {
	case ErrPermissionDenied:
		return e.Status == http.StatusForbidden
	case ErrUnauthorized:
		return e.Status == http.StatusUnauthorized
	}
	return false
}

// RefreshError reports a failed token refresh. The session has already been
// cleared when one is returned.
type RefreshError struct {
	Err error
}

func (e *RefreshError) Error() string {
	if e.Err == nil {
		return "hrdesk: session expired"
	}
	return "hrdesk: session expired: " + e.Err.Error()
}

func (e *RefreshError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrSessionExpired}
	}
	return []error{ErrSessionExpired, e.Err}
}

// ValidationErrors maps field names to messages. It is returned both for
// client-side validation and for 400 responses whose body is a field map.
type ValidationErrors map[string]string

func (v ValidationErrors) Error() string {
	fields := make([]string, 0, len(v))
	for f := range v {
		fields = append(fields, f)
	}
	sort.Strings(fields)

	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		parts = append(parts, f+": "+v[f])
	}
	return "hrdesk: validation failed: " + strings.Join(parts, "; ")
}

// Field returns the message for field, or "".
func (v ValidationErrors) Field(field string) string {
	return v[field]
}

func (v ValidationErrors) orNil() error {
	if len(v) == 0 {
		return nil
	}
	return v
}
