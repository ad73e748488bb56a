package hrdesk

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/MrEthical07/hrdesk/internal/fakebackend"
	"github.com/MrEthical07/hrdesk/internal/rate"
	"github.com/MrEthical07/hrdesk/persist"
	"github.com/MrEthical07/hrdesk/refresh"
	"github.com/MrEthical07/hrdesk/session"
)

func TestSendWithoutTokenIsUnaltered(t *testing.T) {
	h := newHarness(t)
	if _, err := h.client.Bootstrap(context.Background()); err != nil {
		t.Fatalf("Bootstrap: %v", err)
	}

	req, _ := http.NewRequest(http.MethodPost, h.server.URL+"/logout", nil)
	req.Header.Set("X-Custom", "kept")
	resp, err := h.client.Send(req)
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	resp.Body.Close()

	got := h.backend.RequestsTo("/logout")
	if len(got) != 1 {
		t.Fatalf("expected one request, got %d", len(got))
	}
	if got[0].Authorization != "" || got[0].RequestID != "" {
		t.Fatalf("no-token request was modified: %+v", got[0])
	}
	if req.Header.Get("Authorization") != "" {
		t.Fatalf("caller's request mutated")
	}
}

func TestSendAttachesBearerAndRequestID(t *testing.T) {
	h := newHarness(t)
	snap := h.login(t, "E1")

	resp := h.get(t, context.Background(), "/departments")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status %d", resp.StatusCode)
	}
	got := h.backend.RequestsTo("/departments")
	if len(got) != 1 {
		t.Fatalf("expected one request, got %d", len(got))
	}
	if got[0].Authorization != "Bearer "+snap.AccessToken {
		t.Fatalf("authorization = %q", got[0].Authorization)
	}
	if got[0].RequestID == "" {
		t.Fatalf("request id missing")
	}
}

func TestSendUsesPersistedTokenBeforeBootstrap(t *testing.T) {
	backend := fakebackend.New(fakebackend.Options{})
	server := httptest.NewServer(backend)
	t.Cleanup(server.Close)

	token, err := backend.IssueToken("E2")
	if err != nil {
		t.Fatalf("IssueToken: %v", err)
	}
	kv := persist.NewMemory()
	if err := kv.Set(context.Background(), session.AccessTokenKey, []byte(token)); err != nil {
		t.Fatalf("seed: %v", err)
	}
	h := newHarnessFor(t, backend, server, kv)

	resp := h.get(t, context.Background(), "/roles")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status %d", resp.StatusCode)
	}
	if got := backend.RequestsTo("/roles"); got[0].Authorization != "Bearer "+token {
		t.Fatalf("persisted token not used: %q", got[0].Authorization)
	}
}

func TestUnauthorizedRefreshesOnceAndReplays(t *testing.T) {
	h := newHarness(t)
	first := h.login(t, "E1")
	h.backend.ExpireAccessTokens()

	deps, err := h.client.Departments(context.Background())
	if err != nil {
		t.Fatalf("Departments: %v", err)
	}
	if len(deps) == 0 {
		t.Fatalf("expected departments from the replay")
	}

	if n := h.backend.RefreshCalls(); n != 1 {
		t.Fatalf("refresh calls = %d, want 1", n)
	}
	reqs := h.backend.RequestsTo("/departments")
	if len(reqs) != 2 {
		t.Fatalf("departments requests = %d, want 2", len(reqs))
	}
	if reqs[0].Authorization == reqs[1].Authorization {
		t.Fatalf("replay reused the expired token")
	}
	for _, r := range h.backend.RequestsTo("/refresh") {
		if r.Authorization != "" {
			t.Fatalf("refresh call carried a bearer token")
		}
	}

	snap := h.client.Session()
	if !snap.LoggedIn || snap.AccessToken == first.AccessToken || snap.EmployeeNumber() != "E1" {
		t.Fatalf("session not updated: %+v", snap)
	}
	if persisted, ok := h.persistedToken(t); !ok || persisted != snap.AccessToken {
		t.Fatalf("persisted token = %q %v", persisted, ok)
	}
	if got := h.client.Metrics().Value(MetricReplay); got != 1 {
		t.Fatalf("replay metric = %d", got)
	}
}

func TestReplayUnauthorizedIsNotRetriedAgain(t *testing.T) {
	h := newHarness(t)
	stale := h.login(t, "E1").AccessToken
	h.backend.ExpireAccessTokens()
	// The refresh hands back a decodable token the backend no longer accepts.
	h.backend.OverrideRefreshToken(stale)

	resp := h.get(t, context.Background(), "/departments")
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status %d, want 401", resp.StatusCode)
	}
	if n := h.backend.RefreshCalls(); n != 1 {
		t.Fatalf("refresh calls = %d, want 1", n)
	}
	if n := len(h.backend.RequestsTo("/departments")); n != 2 {
		t.Fatalf("departments requests = %d, want 2", n)
	}
	if expired, _ := h.events.counts(); expired != 0 {
		t.Fatalf("session expired raised %d times", expired)
	}
}

func TestRetriedContextSkipsRefresh(t *testing.T) {
	h := newHarness(t)
	h.login(t, "E1")
	h.backend.ExpireAccessTokens()

	resp := h.get(t, WithRetried(context.Background()), "/roles")
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status %d", resp.StatusCode)
	}
	if n := h.backend.RefreshCalls(); n != 0 {
		t.Fatalf("refresh calls = %d, want 0", n)
	}
}

func TestRefreshFailureExpiresSession(t *testing.T) {
	h := newHarness(t)
	h.login(t, "E1")
	h.backend.ExpireAccessTokens()
	h.backend.FailRefresh(http.StatusUnauthorized)

	_, err := h.client.Departments(context.Background())
	if !errors.Is(err, ErrSessionExpired) {
		t.Fatalf("expected ErrSessionExpired, got %v", err)
	}
	var rerr *RefreshError
	if !errors.As(err, &rerr) {
		t.Fatalf("expected *RefreshError, got %T", err)
	}
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.Status != http.StatusUnauthorized {
		t.Fatalf("refresh cause not preserved: %v", err)
	}

	snap := h.client.Session()
	if snap.LoggedIn || snap.AccessToken != "" || snap.Claims != nil || !snap.Initialized {
		t.Fatalf("session not cleared: %+v", snap)
	}
	if _, ok := h.persistedToken(t); ok {
		t.Fatalf("persisted token not deleted")
	}
	if expired, _ := h.events.counts(); expired != 1 {
		t.Fatalf("session expired raised %d times, want 1", expired)
	}
	if n := len(h.backend.RequestsTo("/departments")); n != 1 {
		t.Fatalf("request replayed after failed refresh: %d", n)
	}
}

func TestRefreshWithUnreadableTokenExpiresSession(t *testing.T) {
	h := newHarness(t)
	h.login(t, "E2")
	h.backend.ExpireAccessTokens()
	h.backend.OverrideRefreshToken("not-a-jwt")

	_, err := h.client.Roles(context.Background())
	if !errors.Is(err, ErrSessionExpired) || !errors.Is(err, ErrUnreadableToken) {
		t.Fatalf("got %v", err)
	}
	if h.client.Session().LoggedIn {
		t.Fatalf("session kept after unreadable refresh")
	}
	if _, ok := h.persistedToken(t); ok {
		t.Fatalf("unreadable token left persisted")
	}
}

func TestForbiddenNotifiesOnceAndKeepsBody(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"message", `{"message":"HR only"}`, "HR only"},
		{"error", `{"error":"Not yours"}`, "Not yours"},
		{"fallback", "", defaultPermissionDeniedMessage},
		{"non-json", "nope", defaultPermissionDeniedMessage},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			h.login(t, "E2")
			h.backend.Forbid(http.MethodGet, "/roles", tt.body)

			resp := h.get(t, context.Background(), "/roles")
			if resp.StatusCode != http.StatusForbidden {
				t.Fatalf("status %d", resp.StatusCode)
			}
			body, err := io.ReadAll(resp.Body)
			if err != nil {
				t.Fatalf("read body: %v", err)
			}
			if string(body) != tt.body {
				t.Fatalf("body = %q, want %q", body, tt.body)
			}
			got := h.events.deniedMessages()
			if len(got) != 1 || got[0] != tt.want {
				t.Fatalf("notices = %v, want [%q]", got, tt.want)
			}
			if n := h.backend.RefreshCalls(); n != 0 {
				t.Fatalf("403 triggered a refresh")
			}
		})
	}
}

func TestForbiddenThroughAPIReturnsPermissionError(t *testing.T) {
	h := newHarness(t)
	h.login(t, "E2")

	_, err := h.client.ResetPassword(context.Background(), "E1")
	if !errors.Is(err, ErrPermissionDenied) {
		t.Fatalf("expected ErrPermissionDenied, got %v", err)
	}
	if _, denied := h.events.counts(); denied != 1 {
		t.Fatalf("notices = %d, want 1", denied)
	}
}

func TestTransportErrorReturnedUnchanged(t *testing.T) {
	h := newHarness(t)
	h.login(t, "E1")
	h.server.Close()

	_, err := h.client.Departments(context.Background())
	if err == nil {
		t.Fatalf("expected transport error")
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) || errors.Is(err, ErrSessionExpired) {
		t.Fatalf("transport error was translated: %v", err)
	}
	if !h.client.Session().LoggedIn {
		t.Fatalf("transport error cleared the session")
	}
	if got := h.client.Metrics().Value(MetricTransportError); got != 1 {
		t.Fatalf("transport metric = %d", got)
	}
}

func TestSendReplaysRequestBody(t *testing.T) {
	h := newHarness(t)
	h.login(t, "E1")
	h.backend.ExpireAccessTokens()

	task := NewTask("Quarterly review")
	task.Deadline = At(time.Date(2026, 10, 20, 9, 0, 0, 0, time.UTC))
	if err := h.client.CreateTask(context.Background(), task); err != nil {
		t.Fatalf("CreateTask after expiry: %v", err)
	}
	from := time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2026, 10, 31, 0, 0, 0, 0, time.UTC)
	tasks, err := h.client.ListTasks(context.Background(), from, to)
	if err != nil {
		t.Fatalf("ListTasks: %v", err)
	}
	if len(tasks) != 1 || tasks[0].Title != "Quarterly review" {
		t.Fatalf("replayed body lost: %+v", tasks)
	}
}

func TestConcurrentUnauthorizedShareOneRefresh(t *testing.T) {
	h := newHarness(t, withMode(refresh.Shared))
	h.login(t, "E1")
	h.backend.ExpireAccessTokens()
	h.backend.DelayRefresh(150 * time.Millisecond)

	const n = 8
	start := make(chan struct{})
	errs := make(chan error, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			_, err := h.client.Departments(context.Background())
			errs <- err
		}()
	}
	close(start)
	wg.Wait()
	close(errs)

	for err := range errs {
		if err != nil {
			t.Fatalf("Departments: %v", err)
		}
	}
	if got := h.backend.RefreshCalls(); got != 1 {
		t.Fatalf("refresh calls = %d, want 1", got)
	}
	if expired, _ := h.events.counts(); expired != 0 {
		t.Fatalf("session expired raised")
	}
}

// A backend that allows one refresh per window still serves a burst of
// expired requests, since they share a single refresh call.
func TestSharedRefreshFitsBackendRefreshBudget(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis.Run failed: %v", err)
	}
	t.Cleanup(mr.Close)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	backend := fakebackend.New(fakebackend.Options{
		Limiter: rate.New(rdb, rate.Config{MaxRefreshCalls: 1, RefreshWindow: time.Minute}),
	})
	server := httptest.NewServer(backend)
	t.Cleanup(server.Close)

	h := newHarnessFor(t, backend, server, persist.NewMemory(), withMode(refresh.Shared))
	h.login(t, "E2")
	h.backend.ExpireAccessTokens()
	h.backend.DelayRefresh(150 * time.Millisecond)

	const n = 6
	start := make(chan struct{})
	errs := make(chan error, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			_, err := h.client.Roles(context.Background())
			errs <- err
		}()
	}
	close(start)
	wg.Wait()
	close(errs)

	for err := range errs {
		if err != nil {
			t.Fatalf("Roles: %v", err)
		}
	}
	if got := h.backend.RefreshCalls(); got != 1 {
		t.Fatalf("refresh calls = %d, want 1", got)
	}
}

func TestConcurrentRefreshFailureNotifiesOnce(t *testing.T) {
	h := newHarness(t, withMode(refresh.Shared))
	h.login(t, "E1")
	h.backend.ExpireAccessTokens()
	h.backend.FailRefresh(http.StatusUnauthorized)
	h.backend.DelayRefresh(150 * time.Millisecond)

	const n = 6
	start := make(chan struct{})
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			_, _ = h.client.Roles(context.Background())
		}()
	}
	close(start)
	wg.Wait()

	if got := h.backend.RefreshCalls(); got != 1 {
		t.Fatalf("refresh calls = %d, want 1", got)
	}
	if expired, _ := h.events.counts(); expired != 1 {
		t.Fatalf("session expired raised %d times, want 1", expired)
	}
}

func TestPerRequestModeRefreshesEachUnauthorized(t *testing.T) {
	h := newHarness(t, withMode(refresh.PerRequest))
	h.login(t, "E1")
	h.backend.ExpireAccessTokens()
	h.backend.DelayRefresh(300 * time.Millisecond)

	const n = 4
	start := make(chan struct{})
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			if _, err := h.client.Departments(context.Background()); err != nil {
				t.Errorf("Departments: %v", err)
			}
		}()
	}
	close(start)
	wg.Wait()

	if got := h.backend.RefreshCalls(); got != n {
		t.Fatalf("refresh calls = %d, want %d", got, n)
	}
}

func TestBootstrapScenarios(t *testing.T) {
	backend := fakebackend.New(fakebackend.Options{})
	server := httptest.NewServer(backend)
	t.Cleanup(server.Close)
	valid, err := backend.IssueToken("E1")
	if err != nil {
		t.Fatalf("IssueToken: %v", err)
	}

	tests := []struct {
		name     string
		seed     string
		loggedIn bool
		employee string
	}{
		{"no token", "", false, ""},
		{"valid token", valid, true, "E1"},
		{"undecodable token", "garbage", false, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			kv := persist.NewMemory()
			if tt.seed != "" {
				if err := kv.Set(context.Background(), session.AccessTokenKey, []byte(tt.seed)); err != nil {
					t.Fatalf("seed: %v", err)
				}
			}
			h := newHarnessFor(t, backend, server, kv)
			if h.client.Session().Initialized {
				t.Fatalf("initialized before bootstrap")
			}
			snap, err := h.client.Bootstrap(context.Background())
			if err != nil {
				t.Fatalf("Bootstrap: %v", err)
			}
			if !snap.Initialized || snap.LoggedIn != tt.loggedIn || snap.EmployeeNumber() != tt.employee {
				t.Fatalf("snapshot %+v", snap)
			}
		})
	}
}

func TestLoginRejectedDoesNotRefresh(t *testing.T) {
	h := newHarness(t)
	_, err := h.client.Login(context.Background(), "E1", "wrong")
	if !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
	if n := h.backend.RefreshCalls(); n != 0 {
		t.Fatalf("bad credentials triggered refresh")
	}
	if h.client.Session().LoggedIn {
		t.Fatalf("logged in after rejection")
	}
	if _, err := h.client.Login(context.Background(), "", "x"); !errors.Is(err, ErrMissingCredentials) {
		t.Fatalf("expected ErrMissingCredentials, got %v", err)
	}
}

func TestLoginPersistsAndDecodes(t *testing.T) {
	h := newHarness(t)
	snap := h.login(t, "E1")
	if !snap.LoggedIn || snap.Department() != "HR1" || snap.Level() != 5 {
		t.Fatalf("snapshot %+v", snap)
	}
	if persisted, ok := h.persistedToken(t); !ok || persisted != snap.AccessToken {
		t.Fatalf("token not persisted")
	}
}

func TestLogout(t *testing.T) {
	h := newHarness(t)
	h.login(t, "E1")

	if err := h.client.Logout(context.Background()); err != nil {
		t.Fatalf("Logout: %v", err)
	}
	snap := h.client.Session()
	if snap.LoggedIn || !snap.Initialized {
		t.Fatalf("session %+v", snap)
	}
	if _, ok := h.persistedToken(t); ok {
		t.Fatalf("token still persisted")
	}
	if h.backend.LogoutCalls() != 1 {
		t.Fatalf("logout calls = %d", h.backend.LogoutCalls())
	}
	// The refresh cookie is gone, so a later refresh fails.
	h.backend.ExpireAccessTokens()
	if _, err := h.client.callRefresh(context.Background()); err == nil {
		t.Fatalf("refresh succeeded after logout")
	}
}

func TestLogoutFailureKeepsSession(t *testing.T) {
	h := newHarness(t)
	h.login(t, "E1")
	h.backend.FailLogout(http.StatusInternalServerError)

	err := h.client.Logout(context.Background())
	if !errors.Is(err, ErrLogoutFailed) {
		t.Fatalf("expected ErrLogoutFailed, got %v", err)
	}
	if !h.client.Session().LoggedIn {
		t.Fatalf("session cleared despite failed logout")
	}
	if _, ok := h.persistedToken(t); !ok {
		t.Fatalf("token deleted despite failed logout")
	}

	if err := h.client.ForceLogout(context.Background()); !errors.Is(err, ErrLogoutFailed) {
		t.Fatalf("ForceLogout should report the backend error, got %v", err)
	}
	if h.client.Session().LoggedIn {
		t.Fatalf("ForceLogout kept the session")
	}
}

func TestLogoutWithExpiredTokenSucceeds(t *testing.T) {
	h := newHarness(t)
	h.login(t, "E1")
	h.backend.ExpireAccessTokens()

	if err := h.client.Logout(context.Background()); err != nil {
		t.Fatalf("Logout: %v", err)
	}
	if h.backend.RefreshCalls() != 0 {
		t.Fatalf("logout triggered a refresh")
	}
}

func TestMirrorFollowsSession(t *testing.T) {
	h := newHarness(t, withMirror())
	h.login(t, "E1")

	snap, _, ok, err := h.client.Mirror().Load(context.Background())
	if err != nil || !ok {
		t.Fatalf("mirror load: %v %v", ok, err)
	}
	if snap.EmployeeNumber() != "E1" || !snap.LoggedIn {
		t.Fatalf("mirror %+v", snap)
	}

	if err := h.client.Logout(context.Background()); err != nil {
		t.Fatalf("Logout: %v", err)
	}
	if _, _, ok, _ := h.client.Mirror().Load(context.Background()); ok {
		t.Fatalf("mirror kept after logout")
	}
}

func TestBuilderSingleUse(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Persistence.Backend = BackendMemory
	b := New().WithConfig(cfg)
	c, err := b.Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	defer c.Close()
	if _, err := b.Build(); !errors.Is(err, ErrBuilderUsed) {
		t.Fatalf("expected ErrBuilderUsed, got %v", err)
	}

	bad := DefaultConfig()
	bad.BaseURL = "ftp://x"
	if _, err := New().WithConfig(bad).Build(); !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("expected ErrInvalidConfig, got %v", err)
	}
}

func TestBuildReleasesPersistenceOnLaterFailure(t *testing.T) {
	var closed int
	origOpen, origJar := openPersistence, newCookieJar
	t.Cleanup(func() { openPersistence, newCookieJar = origOpen, origJar })

	openPersistence = func(context.Context, PersistenceConfig, *slog.Logger) (persist.KV, func() error, error) {
		return persist.NewMemory(), func() error { closed++; return nil }, nil
	}
	jarErr := errors.New("no jar")
	newCookieJar = func() (http.CookieJar, error) { return nil, jarErr }

	c, err := New().WithConfig(DefaultConfig()).Build()
	if !errors.Is(err, jarErr) || c != nil {
		t.Fatalf("Build = %v, %v; want jar error", c, err)
	}
	if closed != 1 {
		t.Fatalf("persistence closed %d times, want 1", closed)
	}
}

func TestAddListenerRemove(t *testing.T) {
	h := newHarness(t)
	h.login(t, "E2")
	h.backend.Forbid("", "/roles", `{"message":"no"}`)

	extra := &recorder{}
	remove := h.client.AddListener(extra)
	h.get(t, context.Background(), "/roles")
	remove()
	h.get(t, context.Background(), "/roles")

	if _, denied := extra.counts(); denied != 1 {
		t.Fatalf("removed listener notified: %d", denied)
	}
	if msgs := h.events.deniedMessages(); len(msgs) != 2 || !strings.EqualFold(msgs[0], "no") {
		t.Fatalf("builder listener notices = %v", msgs)
	}
}
