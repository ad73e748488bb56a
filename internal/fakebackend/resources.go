package fakebackend

import (
	"encoding/json"
	"errors"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

var errUnknownEmployee = errors.New("fakebackend: unknown employee")

var phonePattern = regexp.MustCompile(`^[0-9]{10,11}$`)

type task struct {
	TaskID      int64      `json:"taskId"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	Priority    string     `json:"priority"`
	TaskStatus  string     `json:"taskStatus"`
	TaskType    string     `json:"taskType,omitempty"`
	StartDate   *time.Time `json:"startDate,omitempty"`
	Deadline    *time.Time `json:"deadline,omitempty"`
}

type userView struct {
	EmployeeNumber string `json:"employeeNumber"`
	Username       string `json:"username"`
	PhoneNumber    string `json:"phoneNumber,omitempty"`
	DepartmentID   int64  `json:"departmentId"`
	DepartmentName string `json:"departmentName"`
	RoleID         int64  `json:"roleId"`
	RoleName       string `json:"roleName"`
}

// ====================================
// Tasks
// ====================================

func (b *Backend) handleListTasks(w http.ResponseWriter, r *http.Request) {
	owner := claimsFrom(r).EmployeeNumber
	from, errFrom := time.Parse(time.RFC3339, r.URL.Query().Get("startDate"))
	to, errTo := time.Parse(time.RFC3339, r.URL.Query().Get("endDate"))
	if errFrom != nil || errTo != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "startDate and endDate are required"})
		return
	}

	b.mu.Lock()
	out := make([]task, 0, len(b.tasks[owner]))
	for _, t := range b.tasks[owner] {
		if overlaps(t, from, to) {
			out = append(out, *t)
		}
	}
	b.mu.Unlock()
	writeJSON(w, http.StatusOK, envelope{Data: out})
}

func overlaps(t *task, from, to time.Time) bool {
	start, end := t.StartDate, t.Deadline
	if start == nil {
		start = end
	}
	if end == nil {
		end = start
	}
	if start == nil {
		return false
	}
	return !start.After(to) && !end.Before(from)
}

func (b *Backend) handleCreateTask(w http.ResponseWriter, r *http.Request) {
	owner := claimsFrom(r).EmployeeNumber
	var in task
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Malformed body"})
		return
	}
	if fields := validateTask(in); len(fields) > 0 {
		writeJSON(w, http.StatusBadRequest, fields)
		return
	}

	b.mu.Lock()
	b.nextTaskID++
	in.TaskID = b.nextTaskID
	b.tasks[owner] = append(b.tasks[owner], &in)
	b.mu.Unlock()
	writeJSON(w, http.StatusCreated, envelope{Data: in})
}

func (b *Backend) handleUpdateTask(w http.ResponseWriter, r *http.Request) {
	owner := claimsFrom(r).EmployeeNumber
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid task id"})
		return
	}
	var in task
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Malformed body"})
		return
	}
	if fields := validateTask(in); len(fields) > 0 {
		writeJSON(w, http.StatusBadRequest, fields)
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	for _, t := range b.tasks[owner] {
		if t.TaskID == id {
			in.TaskID = id
			*t = in
			writeJSON(w, http.StatusOK, envelope{Data: *t})
			return
		}
	}
	writeJSON(w, http.StatusNotFound, map[string]string{"message": "Task not found"})
}

func (b *Backend) handleDeleteTask(w http.ResponseWriter, r *http.Request) {
	owner := claimsFrom(r).EmployeeNumber
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid task id"})
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	list := b.tasks[owner]
	for i, t := range list {
		if t.TaskID == id {
			b.tasks[owner] = append(list[:i:i], list[i+1:]...)
			writeJSON(w, http.StatusOK, map[string]string{"message": "Task deleted"})
			return
		}
	}
	writeJSON(w, http.StatusNotFound, map[string]string{"message": "Task not found"})
}

func validateTask(t task) map[string]string {
	fields := map[string]string{}
	if strings.TrimSpace(t.Title) == "" {
		fields["title"] = "Title is required."
	}
	switch t.Priority {
	case "LOW", "MEDIUM", "HIGH":
	default:
		fields["priority"] = "Priority must be LOW, MEDIUM or HIGH."
	}
	switch t.TaskStatus {
	case "PENDING", "PROGRESS", "COMPLETED":
	default:
		fields["taskStatus"] = "Status must be PENDING, PROGRESS or COMPLETED."
	}
	return fields
}

// ====================================
// Users
// ====================================

func (b *Backend) viewLocked(a *Account) userView {
	return userView{
		EmployeeNumber: a.EmployeeNumber,
		Username:       a.Username,
		PhoneNumber:    a.PhoneNumber,
		DepartmentID:   a.DepartmentID,
		DepartmentName: b.departmentNameLocked(a.DepartmentID),
		RoleID:         a.RoleID,
		RoleName:       b.roleNameLocked(a.RoleID),
	}
}

func (b *Backend) handleGetUser(w http.ResponseWriter, r *http.Request) {
	emp := chi.URLParam(r, "emp")
	b.mu.Lock()
	a, ok := b.accounts[emp]
	var view userView
	if ok {
		view = b.viewLocked(a)
	}
	b.mu.Unlock()
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"message": "User not found"})
		return
	}
	writeJSON(w, http.StatusOK, envelope{Data: view})
}

func (b *Backend) handleRegister(w http.ResponseWriter, r *http.Request) {
	var in struct {
		EmployeeNumber string `json:"employeeNumber"`
		Password       string `json:"password"`
		Username       string `json:"username"`
		PhoneNumber    string `json:"phoneNumber"`
		DepartmentID   *int64 `json:"departmentId"`
		RoleID         *int64 `json:"roleId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Malformed body"})
		return
	}
	fields := map[string]string{}
	if in.EmployeeNumber == "" {
		fields["employeeNumber"] = "Employee number is required."
	}
	if in.RoleID == nil {
		fields["roleId"] = "Role is required."
	}
	if !phonePattern.MatchString(in.PhoneNumber) {
		fields["phoneNumber"] = "Phone number must be 10 or 11 digits."
	}
	hash, err := b.hasher.Hash(in.Password)
	if err != nil {
		fields["password"] = "Password must be at least 8 characters."
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if _, exists := b.accounts[in.EmployeeNumber]; exists {
		fields["employeeNumber"] = "Employee number already exists."
	}
	if len(fields) > 0 {
		writeJSON(w, http.StatusBadRequest, fields)
		return
	}
	a := &Account{
		EmployeeNumber: in.EmployeeNumber,
		Password:       hash,
		Username:       in.Username,
		PhoneNumber:    in.PhoneNumber,
		RoleID:         *in.RoleID,
		Level:          1,
	}
	if in.DepartmentID != nil {
		a.DepartmentID = *in.DepartmentID
	}
	b.accounts[a.EmployeeNumber] = a
	writeJSON(w, http.StatusCreated, envelope{Data: b.viewLocked(a)})
}

func (b *Backend) handleUpdatePhone(w http.ResponseWriter, r *http.Request) {
	caller := claimsFrom(r)
	emp := chi.URLParam(r, "emp")
	if caller.EmployeeNumber != emp && !caller.hrAdmin() {
		writeJSON(w, http.StatusForbidden, map[string]string{"message": "You can only update your own phone number."})
		return
	}
	var in struct {
		PhoneNumber string `json:"phoneNumber"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Malformed body"})
		return
	}
	if !phonePattern.MatchString(in.PhoneNumber) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"phoneNumber": "Phone number must be 10 or 11 digits."})
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	a, ok := b.accounts[emp]
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"message": "User not found"})
		return
	}
	a.PhoneNumber = in.PhoneNumber
	writeJSON(w, http.StatusOK, envelope{Data: b.viewLocked(a)})
}

func (b *Backend) handleResetPassword(w http.ResponseWriter, r *http.Request) {
	if !claimsFrom(r).hrAdmin() {
		writeJSON(w, http.StatusForbidden, map[string]string{"message": "Only HR administrators can reset passwords."})
		return
	}
	emp := chi.URLParam(r, "emp")

	b.mu.Lock()
	defer b.mu.Unlock()
	a, ok := b.accounts[emp]
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"message": "User not found"})
		return
	}
	temp := strings.ReplaceAll(uuid.NewString(), "-", "")[:10] + "!"
	hash, err := b.hasher.Hash(temp)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	a.Password = hash
	b.revokeLocked(emp)
	writeJSON(w, http.StatusOK, map[string]string{"tempPassword": temp})
}

func (b *Backend) handleChangePassword(w http.ResponseWriter, r *http.Request) {
	emp := chi.URLParam(r, "emp")
	if claimsFrom(r).EmployeeNumber != emp {
		writeJSON(w, http.StatusForbidden, map[string]string{"message": "You can only change your own password."})
		return
	}
	var in struct {
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Malformed body"})
		return
	}
	hash, err := b.hasher.Hash(in.Password)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"password": "Password must be at least 8 characters."})
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	a, ok := b.accounts[emp]
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"message": "User not found"})
		return
	}
	a.Password = hash
	b.revokeLocked(emp)
	writeJSON(w, http.StatusOK, map[string]string{"message": "Password updated"})
}

func (b *Backend) revokeLocked(emp string) {
	for token, owner := range b.refresh {
		if owner == emp {
			delete(b.refresh, token)
		}
	}
}
