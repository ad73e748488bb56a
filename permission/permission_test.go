package permission

import (
	"errors"
	"reflect"
	"testing"

	"github.com/MrEthical07/hrdesk/jwt"
)

func TestMask64SetClear(t *testing.T) {
	var m Mask64
	m.Set(3)
	m.Set(63)
	m.Set(64)
	if !m.Has(3) || !m.Has(63) || m.Has(64) || m.Has(-1) {
		t.Fatalf("unexpected mask %064b", m.Raw())
	}
	m.Clear(3)
	if m.Has(3) {
		t.Fatalf("bit 3 still set")
	}
}

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	a, err := r.Register("a")
	if err != nil || a != 0 {
		t.Fatalf("register a: %d %v", a, err)
	}
	if _, err := r.Register("a"); !errors.Is(err, ErrDuplicateName) {
		t.Fatalf("expected duplicate error, got %v", err)
	}
	r.Freeze()
	if _, err := r.Register("b"); !errors.Is(err, ErrRegistryFrozen) {
		t.Fatalf("expected frozen error, got %v", err)
	}
	if name, ok := r.Name(0); !ok || name != "a" {
		t.Fatalf("Name(0) = %q %v", name, ok)
	}
}

func TestRegistryFull(t *testing.T) {
	r := NewRegistry()
	for i := 0; i < 64; i++ {
		if _, err := r.Register(string(rune('A' + i))); err != nil {
			t.Fatalf("register %d: %v", i, err)
		}
	}
	if _, err := r.Register("overflow"); !errors.Is(err, ErrRegistryFull) {
		t.Fatalf("expected full error, got %v", err)
	}
}

func TestCapabilities(t *testing.T) {
	hrAdmin := &jwt.Claims{EmployeeNumber: "E1", Department: "HR1", Level: 5}
	hrJunior := &jwt.Claims{EmployeeNumber: "E2", Department: "HR2", Level: 3}
	dev := &jwt.Claims{EmployeeNumber: "E3", Department: "DEV", Level: 9}

	tests := []struct {
		name   string
		claims *jwt.Claims
		target string
		want   []string
	}{
		{"no session", nil, "E1", nil},
		{"hr admin self", hrAdmin, "E1", []string{ManageTasks, ResetPassword, UpdateOwnPassword, UpdatePhone, ViewProfile}},
		{"hr admin other", hrAdmin, "E9", []string{ManageTasks, ResetPassword, UpdatePhone, ViewProfile}},
		{"hr junior other", hrJunior, "E9", []string{ManageTasks, ViewProfile}},
		{"dev self", dev, "E3", []string{ManageTasks, UpdateOwnPassword, UpdatePhone, ViewProfile}},
		{"dev other", dev, "E1", []string{ManageTasks, ViewProfile}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DefaultRegistry().Names(For(tt.claims, tt.target))
			if !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCan(t *testing.T) {
	c := &jwt.Claims{EmployeeNumber: "E1", Department: "HR1", Level: 4}
	if !Can(c, "E2", ResetPassword) {
		t.Fatalf("level 4 HR should reset passwords")
	}
	if Can(c, "E2", UpdateOwnPassword) {
		t.Fatalf("own-password capability must not extend to others")
	}
	if Can(c, "E2", "unknown") {
		t.Fatalf("unknown capability must be denied")
	}
}
