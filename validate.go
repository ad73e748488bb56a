package hrdesk

import (
	"encoding/json"
	"errors"
	"net/http"
	"regexp"
	"strings"
)

const minPasswordLength = 8

var (
	specialCharPattern = regexp.MustCompile(`[!@#$%^&*(),.?":{}|<>]`)
	phonePattern       = regexp.MustCompile(`^[0-9]{10,11}$`)
)

// ValidatePassword checks length, the special-character rule, and that
// confirm matches.
func ValidatePassword(password, confirm string) ValidationErrors {
	errs := ValidationErrors{}
	switch {
	case len(password) < minPasswordLength:
		errs["password"] = "Password must be at least 8 characters."
	case !specialCharPattern.MatchString(password):
		errs["password"] = "Password must contain at least one special character."
	}
	if password != confirm {
		errs["confirmPassword"] = "Passwords do not match."
	}
	return errs
}

// NormalizePhoneNumber drops every non-digit.
func NormalizePhoneNumber(s string) string {
	return strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, s)
}

// ValidatePhoneNumber requires 10 or 11 digits.
func ValidatePhoneNumber(phone string) ValidationErrors {
	if !phonePattern.MatchString(phone) {
		return ValidationErrors{"phoneNumber": "Phone Number must be 10 or 11 digits."}
	}
	return ValidationErrors{}
}

// ValidateRegistration checks a registration before it is sent.
func ValidateRegistration(r Registration) ValidationErrors {
	errs := ValidatePassword(r.Password, r.ConfirmPassword)
	if strings.TrimSpace(r.EmployeeNumber) == "" {
		errs["employeeNumber"] = "Employee number is required."
	}
	for k, v := range ValidatePhoneNumber(r.PhoneNumber) {
		errs[k] = v
	}
	if r.RoleID == nil {
		errs["roleId"] = "Role is required"
	}
	return errs
}

// ValidateTaskUpdate requires priority, deadline, and status.
func ValidateTaskUpdate(t Task) ValidationErrors {
	errs := ValidationErrors{}
	if !t.Priority.Valid() {
		errs["priority"] = "Priority is required."
	}
	if t.Deadline == nil || t.Deadline.IsZero() {
		errs["deadline"] = "Deadline is required."
	}
	if !t.TaskStatus.Valid() {
		errs["taskStatus"] = "Status is required."
	}
	return errs
}

// ValidateNewTask requires a title and known enum values; startDate must not
// be after the deadline.
func ValidateNewTask(t Task) ValidationErrors {
	errs := ValidationErrors{}
	if strings.TrimSpace(t.Title) == "" {
		errs["title"] = "Title is required."
	}
	if !t.Priority.Valid() {
		errs["priority"] = "Priority must be LOW, MEDIUM or HIGH."
	}
	if !t.TaskStatus.Valid() {
		errs["taskStatus"] = "Status must be PENDING, PROGRESS or COMPLETED."
	}
	if t.StartDate != nil && t.Deadline != nil && t.StartDate.After(t.Deadline.Time) {
		errs["deadline"] = "Deadline must not be before the start date."
	}
	return errs
}

// fieldErrors turns a 400 response whose body is a flat field map into
// ValidationErrors. Any other error is returned unchanged.
func fieldErrors(err error) error {
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.Status != http.StatusBadRequest {
		return err
	}
	var fields map[string]string
	if json.Unmarshal(apiErr.Body, &fields) != nil || len(fields) == 0 {
		return err
	}
	if _, ok := fields["error"]; ok && len(fields) == 1 {
		return err
	}
	return ValidationErrors(fields)
}
