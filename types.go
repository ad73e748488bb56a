package hrdesk

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Priority is a task priority.
type Priority string

const (
	PriorityLow    Priority = "LOW"
	PriorityMedium Priority = "MEDIUM"
	PriorityHigh   Priority = "HIGH"
)

// Valid reports whether p is one of the known priorities.
func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	}
	return false
}

// ParsePriority accepts any letter case.
func ParsePriority(s string) (Priority, error) {
	p := Priority(strings.ToUpper(strings.TrimSpace(s)))
	if !p.Valid() {
		return "", fmt.Errorf("unknown priority %q", s)
	}
	return p, nil
}

// TaskStatus is a task's progress state.
type TaskStatus string

const (
	StatusPending   TaskStatus = "PENDING"
	StatusProgress  TaskStatus = "PROGRESS"
	StatusCompleted TaskStatus = "COMPLETED"
)

// Valid reports whether s is one of the known statuses.
func (s TaskStatus) Valid() bool {
	switch s {
	case StatusPending, StatusProgress, StatusCompleted:
		return true
	}
	return false
}

// ParseTaskStatus accepts any letter case.
func ParseTaskStatus(s string) (TaskStatus, error) {
	st := TaskStatus(strings.ToUpper(strings.TrimSpace(s)))
	if !st.Valid() {
		return "", fmt.Errorf("unknown task status %q", s)
	}
	return st, nil
}

// Task is a calendar task as exchanged with the backend.
type Task struct {
	TaskID      int64      `json:"taskId,omitempty"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	Priority    Priority   `json:"priority"`
	TaskStatus  TaskStatus `json:"taskStatus"`
	TaskType    string     `json:"taskType,omitempty"`
	StartDate   *DateTime  `json:"startDate,omitempty"`
	Deadline    *DateTime  `json:"deadline,omitempty"`
}

// DateTime is a timestamp as the backend writes it. Zone-less values
// ("2024-03-01T09:00:00") are read as UTC.
type DateTime struct {
	time.Time
}

var dateTimeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04",
	"2006-01-02",
}

// ParseDateTime accepts RFC 3339 and the zone-less layouts the backend emits.
func ParseDateTime(s string) (DateTime, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dateTimeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return DateTime{Time: t}, nil
		}
	}
	return DateTime{}, fmt.Errorf("unrecognized time %q", s)
}

// At returns a *DateTime for t.
func At(t time.Time) *DateTime {
	return &DateTime{Time: t}
}

func (d DateTime) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.UTC().Format("2006-01-02T15:04:05.000Z07:00"))
}

func (d *DateTime) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw == "" {
		d.Time = time.Time{}
		return nil
	}
	parsed, err := ParseDateTime(raw)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// NewTask returns a task with the defaults the backend expects for creation.
func NewTask(title string) Task {
	return Task{Title: title, Priority: PriorityLow, TaskStatus: StatusPending}
}

// User is an employee record.
type User struct {
	EmployeeNumber string `json:"employeeNumber"`
	Username       string `json:"username"`
	PhoneNumber    string `json:"phoneNumber,omitempty"`
	DepartmentID   *int64 `json:"departmentId,omitempty"`
	DepartmentName string `json:"departmentName,omitempty"`
	RoleID         *int64 `json:"roleId,omitempty"`
	RoleName       string `json:"roleName,omitempty"`
}

// Registration is the payload of RegisterUser. ConfirmPassword is checked
// locally and never sent.
type Registration struct {
	EmployeeNumber  string `json:"employeeNumber"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"-"`
	Username        string `json:"username"`
	PhoneNumber     string `json:"phoneNumber"`
	DepartmentID    *int64 `json:"departmentId"`
	RoleID          *int64 `json:"roleId"`
}

// Department is a lookup entry.
type Department struct {
	ID             int64  `json:"id"`
	DepartmentName string `json:"departmentName"`
}

// Role is a lookup entry.
type Role struct {
	ID       int64  `json:"id"`
	RoleName string `json:"roleName"`
}

type tokenData struct {
	AccessToken string `json:"accessToken"`
}

type loginRequest struct {
	EmployeeNumber string `json:"employeeNumber"`
	Password       string `json:"password"`
}
