package fakebackend

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/MrEthical07/hrdesk/internal/password"
	"github.com/MrEthical07/hrdesk/internal/rate"
)

// RefreshCookie carries the refresh token.
const RefreshCookie = "refreshToken"

// Account is a seeded employee. Password is plaintext in Options.Accounts;
// the backend keeps only its Argon2id hash.
type Account struct {
	EmployeeNumber string
	Password       string
	Username       string
	PhoneNumber    string
	DepartmentID   int64
	RoleID         int64
	Level          int
}

// Request is one recorded inbound request.
type Request struct {
	Method        string
	Path          string
	Authorization string
	RequestID     string
}

type Options struct {
	Secret    []byte
	AccessTTL time.Duration
	Logger    *slog.Logger
	// Accounts replaces the default seed.
	Accounts []Account
	// Limiter throttles failed logins and refresh calls. Nil disables it.
	Limiter *rate.Limiter
}

type forbidRule struct {
	method string
	path   string
	body   string
}

// Backend implements http.Handler.
type Backend struct {
	router chi.Router
	secret []byte
	ttl    time.Duration
	logger *slog.Logger
	limit  *rate.Limiter
	hasher *password.Hasher

	mu          sync.Mutex
	generation  int
	accounts    map[string]*Account
	departments []department
	roles       []role
	refresh     map[string]string // refresh token -> employee
	tasks       map[string][]*task
	nextTaskID  int64
	requests    []Request

	refreshStatus   int
	refreshOverride string
	refreshDelay    time.Duration
	logoutStatus    int
	forbidden       []forbidRule

	loginCalls   atomic.Int64
	refreshCalls atomic.Int64
	logoutCalls  atomic.Int64
}

type department struct {
	ID             int64  `json:"id"`
	DepartmentName string `json:"departmentName"`
}

type role struct {
	ID       int64  `json:"id"`
	RoleName string `json:"roleName"`
}

type accessClaims struct {
	EmployeeNumber string `json:"employeeNumber"`
	Department     string `json:"department"`
	Level          int    `json:"level"`
	Generation     int    `json:"gen"`
	jwt.RegisteredClaims
}

type claimsKey struct{}

// DefaultAccounts are seeded when Options.Accounts is empty. E1 is an HR
// administrator, E2 a developer.
func DefaultAccounts() []Account {
	return []Account{
		{EmployeeNumber: "E1", Password: "Passw0rd!", Username: "Hana Ruiz", PhoneNumber: "0123456789", DepartmentID: 1, RoleID: 1, Level: 5},
		{EmployeeNumber: "E2", Password: "Passw0rd!", Username: "Dev Ito", PhoneNumber: "0987654321", DepartmentID: 2, RoleID: 2, Level: 2},
	}
}

func New(opts Options) *Backend {
	if len(opts.Secret) == 0 {
		opts.Secret = []byte("fakebackend-secret")
	}
	if opts.AccessTTL <= 0 {
		opts.AccessTTL = 15 * time.Minute
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.DiscardHandler)
	}
	if len(opts.Accounts) == 0 {
		opts.Accounts = DefaultAccounts()
	}

	b := &Backend{
		secret:      opts.Secret,
		ttl:         opts.AccessTTL,
		logger:      opts.Logger.With("component", "fakebackend"),
		limit:       opts.Limiter,
		hasher:      mustHasher(),
		accounts:    make(map[string]*Account, len(opts.Accounts)),
		departments: []department{{ID: 1, DepartmentName: "HR1"}, {ID: 2, DepartmentName: "DEV"}, {ID: 3, DepartmentName: "HR2"}},
		roles:       []role{{ID: 1, RoleName: "Manager"}, {ID: 2, RoleName: "Engineer"}, {ID: 3, RoleName: "Recruiter"}},
		refresh:     make(map[string]string),
		tasks:       make(map[string][]*task),
	}
	for _, a := range opts.Accounts {
		a := a
		hash, err := b.hasher.Hash(a.Password)
		if err != nil {
			panic("fakebackend: seed account " + a.EmployeeNumber + ": " + err.Error())
		}
		a.Password = hash
		b.accounts[a.EmployeeNumber] = &a
	}
	b.router = b.routes()
	return b
}

func (b *Backend) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(b.record)

	r.Post("/login", b.handleLogin)
	r.Post("/refresh", b.handleRefresh)
	r.Post("/logout", b.handleLogout)

	r.Group(func(r chi.Router) {
		r.Use(b.authenticate)
		r.Use(b.forbid)

		r.Route("/task", func(r chi.Router) {
			r.Get("/", b.handleListTasks)
			r.Post("/", b.handleCreateTask)
			r.Patch("/{id}", b.handleUpdateTask)
			r.Delete("/{id}", b.handleDeleteTask)
		})
		r.Route("/users", func(r chi.Router) {
			r.Post("/", b.handleRegister)
			r.Get("/{emp}", b.handleGetUser)
			r.Patch("/{emp}", b.handleUpdatePhone)
			r.Post("/{emp}/reset", b.handleResetPassword)
			r.Patch("/{emp}/password", b.handleChangePassword)
		})
		r.Get("/departments", b.handleDepartments)
		r.Get("/roles", b.handleRoles)
	})
	return r
}

func (b *Backend) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	b.router.ServeHTTP(w, r)
}

// ====================================
// Hooks
// ====================================

// ExpireAccessTokens invalidates every access token issued so far.
func (b *Backend) ExpireAccessTokens() {
	b.mu.Lock()
	b.generation++
	b.mu.Unlock()
}

// FailRefresh makes /refresh answer status. Zero restores normal behavior.
func (b *Backend) FailRefresh(status int) {
	b.mu.Lock()
	b.refreshStatus = status
	b.mu.Unlock()
}

// OverrideRefreshToken makes /refresh return token verbatim.
func (b *Backend) OverrideRefreshToken(token string) {
	b.mu.Lock()
	b.refreshOverride = token
	b.mu.Unlock()
}

// DelayRefresh holds every /refresh response for d.
func (b *Backend) DelayRefresh(d time.Duration) {
	b.mu.Lock()
	b.refreshDelay = d
	b.mu.Unlock()
}

// FailLogout makes /logout answer status. Zero restores normal behavior.
func (b *Backend) FailLogout(status int) {
	b.mu.Lock()
	b.logoutStatus = status
	b.mu.Unlock()
}

// Forbid answers 403 with body for authenticated requests matching method
// and path. An empty body sends no JSON.
func (b *Backend) Forbid(method, path, body string) {
	b.mu.Lock()
	b.forbidden = append(b.forbidden, forbidRule{method: method, path: path, body: body})
	b.mu.Unlock()
}

// IssueToken signs a current access token for employee.
func (b *Backend) IssueToken(employee string) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	a, ok := b.accounts[employee]
	if !ok {
		return "", errUnknownEmployee
	}
	return b.signLocked(a)
}

func (b *Backend) LoginCalls() int64   { return b.loginCalls.Load() }
func (b *Backend) RefreshCalls() int64 { return b.refreshCalls.Load() }
func (b *Backend) LogoutCalls() int64  { return b.logoutCalls.Load() }

// Requests returns the recorded requests in arrival order.
func (b *Backend) Requests() []Request {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]Request(nil), b.requests...)
}

// RequestsTo filters Requests by path.
func (b *Backend) RequestsTo(path string) []Request {
	var out []Request
	for _, r := range b.Requests() {
		if r.Path == path {
			out = append(out, r)
		}
	}
	return out
}

// CheckPassword reports whether pw is the current password of employee.
func (b *Backend) CheckPassword(employee, pw string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	a, ok := b.accounts[employee]
	return ok && b.checkPassword(a.Password, pw)
}

func (b *Backend) checkPassword(hash, pw string) bool {
	ok, err := b.hasher.Verify(pw, hash)
	return err == nil && ok
}

func mustHasher() *password.Hasher {
	h, err := password.NewHasher(password.FastConfig())
	if err != nil {
		panic(err)
	}
	return h
}

// Account returns a copy of a seeded or registered employee. Its Password
// holds the stored hash.
func (b *Backend) Account(employee string) (Account, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	a, ok := b.accounts[employee]
	if !ok {
		return Account{}, false
	}
	return *a, true
}

// ====================================
// Middleware
// ====================================

func (b *Backend) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		b.requests = append(b.requests, Request{
			Method:        r.Method,
			Path:          r.URL.Path,
			Authorization: r.Header.Get("Authorization"),
			RequestID:     r.Header.Get("X-Request-Id"),
		})
		b.mu.Unlock()
		next.ServeHTTP(w, r)
	})
}

func (b *Backend) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !ok || raw == "" {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "Access token missing"})
			return
		}
		claims := &accessClaims{}
		_, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
			return b.secret, nil
		}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
		if err != nil {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "Invalid access token"})
			return
		}
		b.mu.Lock()
		current := b.generation
		b.mu.Unlock()
		if claims.Generation != current {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "Access token expired"})
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), claimsKey{}, claims)))
	})
}

func (b *Backend) forbid(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		var rule *forbidRule
		for i := range b.forbidden {
			f := b.forbidden[i]
			if (f.method == "" || f.method == r.Method) && f.path == r.URL.Path {
				rule = &f
				break
			}
		}
		b.mu.Unlock()
		if rule == nil {
			next.ServeHTTP(w, r)
			return
		}
		if rule.body == "" {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(rule.body))
	})
}

func claimsFrom(r *http.Request) *accessClaims {
	c, _ := r.Context().Value(claimsKey{}).(*accessClaims)
	return c
}

func (c *accessClaims) hrAdmin() bool {
	return strings.HasPrefix(c.Department, "HR") && c.Level >= 4
}

// ====================================
// Auth
// ====================================

func (b *Backend) handleLogin(w http.ResponseWriter, r *http.Request) {
	b.loginCalls.Add(1)
	var in struct {
		EmployeeNumber string `json:"employeeNumber"`
		Password       string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Malformed body"})
		return
	}

	ip := clientIP(r)
	if err := b.limit.CheckLogin(r.Context(), in.EmployeeNumber, ip); err != nil {
		b.writeLimited(w, err)
		return
	}

	b.mu.Lock()
	a, ok := b.accounts[in.EmployeeNumber]
	if !ok || !b.checkPassword(a.Password, in.Password) {
		b.mu.Unlock()
		if err := b.limit.FailLogin(r.Context(), in.EmployeeNumber, ip); err != nil {
			b.logger.Warn("record failed login", "error", err)
		}
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "Invalid employee number or password"})
		return
	}
	token, err := b.signLocked(a)
	refreshToken := uuid.NewString()
	b.refresh[refreshToken] = a.EmployeeNumber
	b.mu.Unlock()
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}

	if err := b.limit.ResetLogin(r.Context(), a.EmployeeNumber, ip); err != nil {
		b.logger.Warn("reset login budget", "error", err)
	}

	http.SetCookie(w, &http.Cookie{Name: RefreshCookie, Value: refreshToken, Path: "/", HttpOnly: true, SameSite: http.SameSiteStrictMode})
	b.logger.Info("login", "employee", a.EmployeeNumber)
	writeJSON(w, http.StatusOK, envelope{Data: map[string]string{"accessToken": token}})
}

func (b *Backend) handleRefresh(w http.ResponseWriter, r *http.Request) {
	b.refreshCalls.Add(1)

	b.mu.Lock()
	delay, status, override := b.refreshDelay, b.refreshStatus, b.refreshOverride
	b.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-r.Context().Done():
			return
		}
	}
	if status != 0 {
		writeJSON(w, status, map[string]string{"error": "Refresh rejected"})
		return
	}

	cookie, err := r.Cookie(RefreshCookie)
	if err != nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "Refresh token missing"})
		return
	}
	if err := b.limit.AllowRefresh(r.Context(), cookie.Value); err != nil {
		b.writeLimited(w, err)
		return
	}

	b.mu.Lock()
	emp, ok := b.refresh[cookie.Value]
	var a *Account
	if ok {
		a = b.accounts[emp]
	}
	if a == nil {
		b.mu.Unlock()
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "Refresh token invalid"})
		return
	}
	token, err := b.signLocked(a)
	b.mu.Unlock()
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	if override != "" {
		token = override
	}
	writeJSON(w, http.StatusOK, envelope{Data: map[string]string{"accessToken": token}})
}

func (b *Backend) handleLogout(w http.ResponseWriter, r *http.Request) {
	b.logoutCalls.Add(1)

	b.mu.Lock()
	status := b.logoutStatus
	if status == 0 {
		if cookie, err := r.Cookie(RefreshCookie); err == nil {
			delete(b.refresh, cookie.Value)
		}
	}
	b.mu.Unlock()

	if status != 0 {
		writeJSON(w, status, map[string]string{"error": "Logout failed"})
		return
	}
	http.SetCookie(w, &http.Cookie{Name: RefreshCookie, Value: "", Path: "/", MaxAge: -1, HttpOnly: true})
	writeJSON(w, http.StatusOK, map[string]string{"message": "Logged out"})
}

func (b *Backend) writeLimited(w http.ResponseWriter, err error) {
	if errors.Is(err, rate.ErrRateLimited) {
		w.Header().Set("Retry-After", "60")
		writeJSON(w, http.StatusTooManyRequests, map[string]string{"message": "Too many attempts. Try again later."})
		return
	}
	b.logger.Error("rate limiter unavailable", "error", err)
	writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "Service unavailable"})
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func (b *Backend) signLocked(a *Account) (string, error) {
	now := time.Now()
	claims := accessClaims{
		EmployeeNumber: a.EmployeeNumber,
		Department:     b.departmentNameLocked(a.DepartmentID),
		Level:          a.Level,
		Generation:     b.generation,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   a.EmployeeNumber,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(b.ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(b.secret)
}

func (b *Backend) departmentNameLocked(id int64) string {
	for _, d := range b.departments {
		if d.ID == id {
			return d.DepartmentName
		}
	}
	return ""
}

func (b *Backend) roleNameLocked(id int64) string {
	for _, r := range b.roles {
		if r.ID == id {
			return r.RoleName
		}
	}
	return ""
}

// ====================================
// Lookups
// ====================================

func (b *Backend) handleDepartments(w http.ResponseWriter, _ *http.Request) {
	b.mu.Lock()
	out := append([]department(nil), b.departments...)
	b.mu.Unlock()
	writeJSON(w, http.StatusOK, envelope{Data: out})
}

func (b *Backend) handleRoles(w http.ResponseWriter, _ *http.Request) {
	b.mu.Lock()
	out := append([]role(nil), b.roles...)
	b.mu.Unlock()
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	writeJSON(w, http.StatusOK, envelope{Data: out})
}

type envelope struct {
	Data any `json:"data"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
