package permission

import (
	"strings"

	"github.com/MrEthical07/hrdesk/jwt"
)

// Capability names.
const (
	ViewProfile       = "user.profile.view"
	UpdatePhone       = "user.phone.update"
	UpdateOwnPassword = "user.password.update_own"
	ResetPassword     = "user.password.reset"
	ManageTasks       = "task.manage"
)

// HR staff at or above this level administer other employees.
const hrAdminLevel = 4

var defaultRegistry = func() *Registry {
	r := NewRegistry()
	for _, name := range []string{ViewProfile, UpdatePhone, UpdateOwnPassword, ResetPassword, ManageTasks} {
		if _, err := r.Register(name); err != nil {
			panic("permission: " + err.Error())
		}
	}
	r.Freeze()
	return r
}()

// DefaultRegistry returns the registry of the built-in capabilities.
func DefaultRegistry() *Registry {
	return defaultRegistry
}

// IsHRAdmin reports whether claims belong to an HR employee at level 4 or above.
func IsHRAdmin(c *jwt.Claims) bool {
	return c != nil && strings.HasPrefix(c.Department, "HR") && int(c.Level) >= hrAdminLevel
}

// For derives the capabilities claims hold over target's record. A nil
// claims value (no session) holds none.
func For(c *jwt.Claims, target string) Mask64 {
	var m Mask64
	if c == nil || c.EmployeeNumber == "" {
		return m
	}
	self := target == "" || target == c.EmployeeNumber
	admin := IsHRAdmin(c)

	set := func(name string) {
		bit, _ := defaultRegistry.Bit(name)
		m.Set(bit)
	}

	set(ManageTasks)
	set(ViewProfile)
	if self {
		set(UpdateOwnPassword)
	}
	if self || admin {
		set(UpdatePhone)
	}
	if admin {
		set(ResetPassword)
	}
	return m
}

// Can reports whether claims hold capability name over target's record.
func Can(c *jwt.Claims, target, name string) bool {
	bit, ok := defaultRegistry.Bit(name)
	if !ok {
		return false
	}
	return For(c, target).Has(bit)
}
