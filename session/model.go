package session

import "github.com/MrEthical07/hrdesk/jwt"

// Snapshot is a point-in-time copy of the session state.
//
// Invariants maintained by Store:
//   - LoggedIn implies AccessToken != "".
//   - Claims is nil exactly when no decodable token is held.
//   - Initialized never goes back to false.
type Snapshot struct {
	LoggedIn    bool
	AccessToken string
	Claims      *jwt.Claims
	Initialized bool
}

// EmployeeNumber returns the employee number claim, or "" without claims.
func (s Snapshot) EmployeeNumber() string {
	if s.Claims == nil {
		return ""
	}
	return s.Claims.EmployeeNumber
}

// Department returns the department claim, or "" without claims.
func (s Snapshot) Department() string {
	if s.Claims == nil {
		return ""
	}
	return s.Claims.Department
}

// Level returns the level claim, or 0 without claims.
func (s Snapshot) Level() int {
	if s.Claims == nil {
		return 0
	}
	return int(s.Claims.Level)
}

func (s Snapshot) clone() Snapshot {
	if s.Claims != nil {
		c := *s.Claims
		s.Claims = &c
	}
	return s
}
