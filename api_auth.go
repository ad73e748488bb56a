package hrdesk

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/MrEthical07/hrdesk/internal/audit"
	"github.com/MrEthical07/hrdesk/internal/flows"
	"github.com/MrEthical07/hrdesk/session"
)

// Login authenticates with the backend, persists the returned access token,
// and updates the session. The backend also sets the refresh cookie on the
// client's cookie jar.
func (c *Client) Login(ctx context.Context, employeeNumber, password string) (session.Snapshot, error) {
	res := flows.RunLogin(ctx, employeeNumber, password, c.flows.Login)

	var err error
	switch res.Failure {
	case flows.LoginFailureNone:
		c.metrics.Inc(MetricLoginSuccess)
		c.logger.Info("logged in", "employee", res.Session.EmployeeNumber())
		c.emit(ctx, audit.Event{EventType: AuditLogin, EmployeeNumber: res.Session.EmployeeNumber(), Success: true})
		return res.Session, nil
	case flows.LoginFailureInput:
		err = ErrMissingCredentials
	case flows.LoginFailureDecode:
		err = ErrUnreadableToken
	default:
		err = res.Err
	}

	c.metrics.Inc(MetricLoginFailure)
	c.emit(ctx, audit.Event{EventType: AuditLoginFailed, EmployeeNumber: employeeNumber, Error: err.Error()})
	return res.Session, err
}

// Logout asks the backend to end the session, then deletes the persisted
// token and clears the session. If the backend call fails the local session
// is kept and the error wraps ErrLogoutFailed.
func (c *Client) Logout(ctx context.Context) error {
	return c.logout(ctx, false)
}

// ForceLogout behaves like Logout but clears local state even when the
// backend cannot be reached. The backend error, if any, is still returned.
func (c *Client) ForceLogout(ctx context.Context) error {
	return c.logout(ctx, true)
}

func (c *Client) logout(ctx context.Context, force bool) error {
	employee := c.store.Snapshot().EmployeeNumber()
	res := flows.RunLogout(ctx, force, c.flows.Logout)

	if res.Cleared {
		c.metrics.Inc(MetricLogout)
		c.emit(ctx, audit.Event{EventType: AuditLogout, EmployeeNumber: employee, Success: res.RemoteErr == nil})
	}
	if res.RemoteErr != nil {
		c.metrics.Inc(MetricLogoutFailure)
		return fmt.Errorf("%w: %w", ErrLogoutFailed, res.RemoteErr)
	}
	if res.LocalErr != nil {
		return fmt.Errorf("hrdesk: logout cleanup: %w", res.LocalErr)
	}
	return nil
}

func (c *Client) callLogin(ctx context.Context, employeeNumber, password string) (string, error) {
	req, err := c.newRequest(ctx, http.MethodPost, c.cfg.Endpoints.Login, nil, loginRequest{
		EmployeeNumber: employeeNumber,
		Password:       password,
	})
	if err != nil {
		return "", err
	}
	// Login is unauthenticated; a 401 means bad credentials, not an expired token.
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

func (c *Client) callLogout(ctx context.Context) error {
	err := c.doJSON(WithRetried(ctx), http.MethodPost, c.cfg.Endpoints.Logout, nil, nil, nil)
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Status == http.StatusUnauthorized {
		// Already logged out server-side.
		return nil
	}
	return err
}
