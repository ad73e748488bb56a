package hrdesk

import (
	"context"
	"net/http"
	"strings"
)

// Departments lists all departments.
func (c *Client) Departments(ctx context.Context) ([]Department, error) {
	var env envelopeOf[[]Department]
	if err := c.doJSON(ctx, http.MethodGet, "/departments", nil, nil, &env); err != nil {
		return nil, err
	}
	return env.Data, nil
}

// Roles lists all roles.
func (c *Client) Roles(ctx context.Context) ([]Role, error) {
	var env envelopeOf[[]Role]
	if err := c.doJSON(ctx, http.MethodGet, "/roles", nil, nil, &env); err != nil {
		return nil, err
	}
	return env.Data, nil
}

// FilterDepartments keeps departments whose name contains term, ignoring case.
func FilterDepartments(ds []Department, term string) []Department {
	term = strings.ToLower(strings.TrimSpace(term))
	if term == "" {
		return ds
	}
	var out []Department
	for _, d := range ds {
		if strings.Contains(strings.ToLower(d.DepartmentName), term) {
			out = append(out, d)
		}
	}
	return out
}

// FilterRoles keeps roles whose name contains term, ignoring case.
func FilterRoles(rs []Role, term string) []Role {
	term = strings.ToLower(strings.TrimSpace(term))
	if term == "" {
		return rs
	}
	var out []Role
	for _, r := range rs {
		if strings.Contains(strings.ToLower(r.RoleName), term) {
			out = append(out, r)
		}
	}
	return out
}
