package hrdesk

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/MrEthical07/hrdesk/internal/audit"
	"github.com/MrEthical07/hrdesk/internal/flows"
	"github.com/MrEthical07/hrdesk/refresh"
	"github.com/MrEthical07/hrdesk/session"
)

// Client is an authenticated client for the task/HR backend. It owns one
// session store and is safe for concurrent use. Build one with New().
type Client struct {
	cfg    Config
	http   *http.Client
	logger *slog.Logger

	store  *session.Store
	tokens *session.TokenSlot
	mirror *session.Mirror
	detach func()

	refresher *refresh.Coordinator
	flows     flows.Deps

	metrics   *Metrics
	audit     *audit.Dispatcher
	listeners listenerSet

	closers   []func() error
	closeOnce sync.Once
	closeErr  error
}

// Send dispatches req with the current bearer token and recovers from an
// expired token once.
//
// The token comes from the session store, or from the persisted slot while
// the store has not been initialized yet. Without a token the request is
// sent unmodified. A 401 triggers a refresh (shared with concurrent callers
// unless the client runs in per-request mode) followed by a single replay
// with the new token; the caller receives the replay's outcome. A 401 on a
// request whose context carries WithRetried is returned as-is. If the
// refresh fails the session is cleared, listeners receive SessionExpired and
// the returned error is a *RefreshError. A 403 raises one PermissionDenied
// notice and the response is returned unchanged. Transport errors are
// returned unchanged.
func (c *Client) Send(req *http.Request) (*http.Response, error) {
	start := time.Now()
	defer func() { c.metrics.Observe(MetricRequestLatency, time.Since(start)) }()

	req, err := replayable(req)
	if err != nil {
		return nil, err
	}
	ctx := req.Context()
	token := c.requestToken(ctx)

	resp, err := c.roundTrip(req, token)
	if err != nil {
		c.metrics.Inc(MetricTransportError)
		return nil, err
	}

	switch resp.StatusCode {
	case http.StatusUnauthorized:
		c.metrics.Inc(MetricUnauthorized)
		if IsRetried(ctx) {
			c.metrics.Inc(MetricReplayUnauthorized)
			return resp, nil
		}
		return c.recoverUnauthorized(req, token, resp)
	case http.StatusForbidden:
		c.permissionDenied(req, resp)
	}
	return resp, nil
}

func (c *Client) recoverUnauthorized(req *http.Request, sentToken string, resp *http.Response) (*http.Response, error) {
	ctx := req.Context()
	discard(resp)

	// Another request may already have refreshed while this one was in
	// flight; the current token is then tried without a new refresh.
	if c.refresher.Mode() == refresh.Shared {
		if current, ok := c.store.AccessToken(); ok && current != sentToken {
			c.metrics.Inc(MetricRefreshSkipped)
			return c.replay(req)
		}
	}

	res, err := c.refresher.Refresh(ctx)
	if err != nil {
		return nil, err
	}
	if res.Shared {
		c.metrics.Inc(MetricRefreshShared)
	}
	return c.replay(req)
}

func (c *Client) replay(req *http.Request) (*http.Response, error) {
	c.metrics.Inc(MetricReplay)
	return c.Send(req.WithContext(WithRetried(req.Context())))
}

func (c *Client) requestToken(ctx context.Context) string {
	if c.store.Initialized() {
		token, _ := c.store.AccessToken()
		return token
	}
	token, ok, err := c.tokens.Load(ctx)
	if err != nil {
		c.logger.Warn("persisted token unavailable", "error", err)
		return ""
	}
	if !ok {
		return ""
	}
	return token
}

func (c *Client) roundTrip(req *http.Request, token string) (*http.Response, error) {
	out := req.Clone(req.Context())
	if req.GetBody != nil && req.Body != nil && req.Body != http.NoBody {
		body, err := req.GetBody()
		if err != nil {
			return nil, fmt.Errorf("hrdesk: rewind request body: %w", err)
		}
		out.Body = body
	}
	if token != "" {
		out.Header.Set("Authorization", "Bearer "+token)
		if h := c.cfg.RequestIDHeader; h != "" && out.Header.Get(h) == "" {
			out.Header.Set(h, uuid.NewString())
		}
	}

	c.metrics.Inc(MetricRequestSent)
	return c.http.Do(out)
}

// refreshSession is the coordinator's refresh function. In shared mode it runs
// once per burst of 401s, so its side effects (clearing, notices) happen once.
func (c *Client) refreshSession(ctx context.Context) (string, error) {
	res := flows.RunRefresh(ctx, c.flows.Refresh)
	if res.Failure == flows.RefreshFailureNone {
		c.metrics.Inc(MetricRefreshSuccess)
		c.logger.Debug("access token refreshed", "employee", res.Session.EmployeeNumber())
		c.emit(ctx, audit.Event{EventType: AuditRefresh, EmployeeNumber: res.Session.EmployeeNumber(), Success: true})
		return res.Token, nil
	}

	cause := res.Err
	if cause == nil {
		cause = ErrUnreadableToken
	}
	rerr := &RefreshError{Err: cause}

	c.metrics.Inc(MetricRefreshFailure)
	c.metrics.Inc(MetricSessionExpired)
	c.logger.Warn("session expired", "error", cause)
	c.emit(ctx, audit.Event{EventType: AuditRefreshFailed, Error: cause.Error()})
	c.emit(ctx, audit.Event{EventType: AuditSessionExpired, Success: true})
	c.listeners.sessionExpired(rerr)
	return "", rerr
}

func (c *Client) callRefresh(ctx context.Context) (string, error) {
	req, err := c.newRequest(ctx, http.MethodPost, c.cfg.Endpoints.Refresh, nil, nil)
	if err != nil {
		return "", err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return "", err
	}
	defer discard(resp)

	var env envelopeOf[tokenData]
	if err := decodeResponse(resp, &env); err != nil {
		return "", err
	}
	if env.Data.AccessToken == "" {
		return "", ErrMissingToken
	}
	return env.Data.AccessToken, nil
}

func (c *Client) permissionDenied(req *http.Request, resp *http.Response) {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	resp.Body = struct {
		io.Reader
		io.Closer
	}{io.MultiReader(bytes.NewReader(body), resp.Body), resp.Body}

	msg := errorMessage(body, "message", "error")
	if msg == "" {
		msg = c.cfg.Messages.PermissionDenied
	}

	c.metrics.Inc(MetricPermissionDenied)
	c.logger.Info("permission denied", "method", req.Method, "path", req.URL.Path)
	c.emit(req.Context(), audit.Event{
		EventType:      AuditPermissionDenied,
		EmployeeNumber: c.store.Snapshot().EmployeeNumber(),
		Method:         req.Method,
		Path:           req.URL.Path,
		Status:         resp.StatusCode,
		Error:          msg,
	})
	c.listeners.permissionDenied(msg)
}

// Bootstrap seeds the session store from the persisted token. The store is
// initialized when Bootstrap returns, even on error.
func (c *Client) Bootstrap(ctx context.Context) (session.Snapshot, error) {
	snap, err := session.Bootstrap(ctx, c.store, c.tokens, c.logger)
	c.metrics.Inc(MetricBootstrap)
	ev := audit.Event{EventType: AuditBootstrap, EmployeeNumber: snap.EmployeeNumber(), Success: err == nil}
	if err != nil {
		ev.Error = err.Error()
	}
	c.emit(ctx, ev)
	return snap, err
}

// Session returns a copy of the current session state.
func (c *Client) Session() session.Snapshot {
	return c.store.Snapshot()
}

// Store returns the session store owned by this client.
func (c *Client) Store() *session.Store {
	return c.store
}

// Mirror returns the session mirror, or nil when mirroring is disabled.
func (c *Client) Mirror() *session.Mirror {
	return c.mirror
}

// AddListener registers l and returns a function that removes it.
func (c *Client) AddListener(l Listener) func() {
	if l == nil {
		return func() {}
	}
	return c.listeners.add(l)
}

// Config returns the configuration the client was built with.
func (c *Client) Config() Config {
	return cloneConfig(c.cfg)
}

// Metrics returns the client's counters.
func (c *Client) Metrics() *Metrics {
	return c.metrics
}

// MetricsSnapshot copies the current counters.
func (c *Client) MetricsSnapshot() MetricsSnapshot {
	return c.metrics.Snapshot()
}

// AuditDropped returns the number of audit events dropped for backpressure.
func (c *Client) AuditDropped() uint64 {
	return c.audit.Dropped()
}

// RefreshStats reports started refresh calls and callers that joined one.
func (c *Client) RefreshStats() (started, joined uint64) {
	return c.refresher.Stats()
}

func (c *Client) emit(ctx context.Context, ev audit.Event) {
	c.audit.Emit(ctx, ev)
}

// Close detaches the mirror, flushes audit events, and releases storage
// connections. It is safe to call more than once.
func (c *Client) Close() error {
	c.closeOnce.Do(func() {
		if c.detach != nil {
			c.detach()
		}
		c.audit.Close()
		c.closeErr = c.closeStorage()
	})
	return c.closeErr
}

// closeStorage runs the persistence closers in reverse order of opening.
func (c *Client) closeStorage() error {
	var errs []error
	for i := len(c.closers) - 1; i >= 0; i-- {
		if err := c.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	c.closers = nil
	return errors.Join(errs...)
}
