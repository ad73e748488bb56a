package hrdesk

import (
	"context"
	"net/http"
	"net/url"
	"strings"
)

// GetUser fetches an employee record.
func (c *Client) GetUser(ctx context.Context, employeeNumber string) (User, error) {
	if strings.TrimSpace(employeeNumber) == "" {
		return User{}, ValidationErrors{"employeeNumber": "Employee number is required."}
	}
	var env envelopeOf[User]
	if err := c.doJSON(ctx, http.MethodGet, userPath(employeeNumber), nil, nil, &env); err != nil {
		return User{}, err
	}
	return env.Data, nil
}

// Me fetches the record of the logged-in employee.
func (c *Client) Me(ctx context.Context) (User, error) {
	emp := c.store.Snapshot().EmployeeNumber()
	if emp == "" {
		return User{}, ErrNotLoggedIn
	}
	return c.GetUser(ctx, emp)
}

// RegisterUser validates r locally, then creates the employee. Field errors
// reported by the backend with status 400 are returned as ValidationErrors.
func (c *Client) RegisterUser(ctx context.Context, r Registration) error {
	r.PhoneNumber = NormalizePhoneNumber(r.PhoneNumber)
	if errs := ValidateRegistration(r); len(errs) > 0 {
		return errs
	}
	return fieldErrors(c.doJSON(ctx, http.MethodPost, "/users", nil, r, nil))
}

// UpdatePhoneNumber changes an employee's phone number.
func (c *Client) UpdatePhoneNumber(ctx context.Context, employeeNumber, phone string) error {
	phone = NormalizePhoneNumber(phone)
	if errs := ValidatePhoneNumber(phone); len(errs) > 0 {
		return errs
	}
	body := map[string]string{"phoneNumber": phone}
	return fieldErrors(c.doJSON(ctx, http.MethodPatch, userPath(employeeNumber), nil, body, nil))
}

// ResetPassword resets an employee's password and returns the temporary one.
func (c *Client) ResetPassword(ctx context.Context, employeeNumber string) (string, error) {
	var out struct {
		TempPassword string `json:"tempPassword"`
		Data         struct {
			TempPassword string `json:"tempPassword"`
		} `json:"data"`
	}
	if err := c.doJSON(ctx, http.MethodPost, userPath(employeeNumber)+"/reset", nil, nil, &out); err != nil {
		return "", err
	}
	if out.TempPassword != "" {
		return out.TempPassword, nil
	}
	return out.Data.TempPassword, nil
}

// ChangePassword sets a new password for the logged-in employee and then
// logs out, since the backend revokes the session.
func (c *Client) ChangePassword(ctx context.Context, password, confirm string) error {
	emp := c.store.Snapshot().EmployeeNumber()
	if emp == "" {
		return ErrNotLoggedIn
	}
	if errs := ValidatePassword(password, confirm); len(errs) > 0 {
		return errs
	}
	body := map[string]string{"password": password}
	if err := c.doJSON(ctx, http.MethodPatch, userPath(emp)+"/password", nil, body, nil); err != nil {
		return fieldErrors(err)
	}
	return c.ForceLogout(ctx)
}

func userPath(employeeNumber string) string {
	return "/users/" + url.PathEscape(strings.TrimSpace(employeeNumber))
}
