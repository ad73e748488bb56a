package flows

import (
	"context"
	"errors"
	"testing"

	"github.com/MrEthical07/hrdesk/jwt"
	"github.com/MrEthical07/hrdesk/session"
)

type fakeEnv struct {
	store   *session.Store
	slot    *session.TokenSlot
	deleted int
}

type mapDecoder map[string]jwt.Claims

func (d mapDecoder) Decode(token string) (jwt.Claims, error) {
	if c, ok := d[token]; ok {
		return c, nil
	}
	return jwt.Claims{}, &jwt.DecodeError{Err: errors.New("unknown")}
}

func newFakeEnv() *fakeEnv {
	return &fakeEnv{
		store: session.NewStore(mapDecoder{"T1": {EmployeeNumber: "E1"}, "T2": {EmployeeNumber: "E1"}}, nil),
		slot:  session.NewTokenSlot(nil),
	}
}

func (e *fakeEnv) deleteToken(ctx context.Context) error {
	e.deleted++
	return e.slot.Delete(ctx)
}

func TestRunLoginPersistsAndApplies(t *testing.T) {
	env := newFakeEnv()
	res := RunLogin(context.Background(), "E1", "pw", LoginDeps{
		CallLogin:    func(context.Context, string, string) (string, error) { return "T1", nil },
		PersistToken: env.slot.Save,
		DeleteToken:  env.deleteToken,
		ApplySession: env.store.SetSession,
	})
	if res.Failure != LoginFailureNone || res.Err != nil {
		t.Fatalf("unexpected failure %v: %v", res.Failure, res.Err)
	}
	if !res.Session.LoggedIn {
		t.Fatalf("expected logged in")
	}
	if tok, ok, _ := env.slot.Load(context.Background()); !ok || tok != "T1" {
		t.Fatalf("token not persisted: %q", tok)
	}
}

func TestRunLoginRejectsEmptyInput(t *testing.T) {
	env := newFakeEnv()
	called := false
	res := RunLogin(context.Background(), " ", "pw", LoginDeps{
		CallLogin: func(context.Context, string, string) (string, error) {
			called = true
			return "", nil
		},
		PersistToken: env.slot.Save,
		DeleteToken:  env.deleteToken,
		ApplySession: env.store.SetSession,
	})
	if res.Failure != LoginFailureInput || !errors.Is(res.Err, ErrMissingCredentials) {
		t.Fatalf("expected input failure, got %v %v", res.Failure, res.Err)
	}
	if called {
		t.Fatalf("backend must not be called")
	}
}

func TestRunLoginUnreadableTokenIsRemoved(t *testing.T) {
	env := newFakeEnv()
	res := RunLogin(context.Background(), "E1", "pw", LoginDeps{
		CallLogin:    func(context.Context, string, string) (string, error) { return "junk", nil },
		PersistToken: env.slot.Save,
		DeleteToken:  env.deleteToken,
		ApplySession: env.store.SetSession,
	})
	if res.Failure != LoginFailureDecode {
		t.Fatalf("expected decode failure, got %v", res.Failure)
	}
	if _, ok, _ := env.slot.Load(context.Background()); ok {
		t.Fatalf("unreadable token left in storage")
	}
}

func TestRunRefreshSuccess(t *testing.T) {
	env := newFakeEnv()
	env.store.SetSession(true, "T1")
	res := RunRefresh(context.Background(), RefreshDeps{
		CallRefresh:  func(context.Context) (string, error) { return "T2", nil },
		PersistToken: env.slot.Save,
		DeleteToken:  env.deleteToken,
		ApplySession: env.store.SetSession,
		ClearSession: env.store.ClearSession,
	})
	if res.Failure != RefreshFailureNone || res.Token != "T2" {
		t.Fatalf("unexpected result %+v", res)
	}
	if tok, _ := env.store.AccessToken(); tok != "T2" {
		t.Fatalf("store holds %q", tok)
	}
}

func TestRunRefreshFailureClearsEverything(t *testing.T) {
	env := newFakeEnv()
	_ = env.slot.Save(context.Background(), "T1")
	env.store.SetSession(true, "T1")

	boom := errors.New("401")
	res := RunRefresh(context.Background(), RefreshDeps{
		CallRefresh:  func(context.Context) (string, error) { return "", boom },
		PersistToken: env.slot.Save,
		DeleteToken:  env.deleteToken,
		ApplySession: env.store.SetSession,
		ClearSession: env.store.ClearSession,
	})
	if res.Failure != RefreshFailureCall || !errors.Is(res.Err, boom) {
		t.Fatalf("unexpected result %+v", res)
	}
	if env.store.LoggedIn() || env.deleted != 1 {
		t.Fatalf("expected cleared session and deleted token (deleted=%d)", env.deleted)
	}
	if !env.store.Initialized() {
		t.Fatalf("expected initialized to stay true")
	}
}

func TestRunLogoutKeepsSessionWhenBackendFails(t *testing.T) {
	env := newFakeEnv()
	env.store.SetSession(true, "T1")

	res := RunLogout(context.Background(), false, LogoutDeps{
		CallLogout:   func(context.Context) error { return errors.New("offline") },
		DeleteToken:  env.deleteToken,
		ClearSession: env.store.ClearSession,
	})
	if res.RemoteErr == nil || res.Cleared {
		t.Fatalf("expected remote error without cleanup, got %+v", res)
	}
	if !env.store.LoggedIn() || env.deleted != 0 {
		t.Fatalf("session must be kept")
	}
}

func TestRunLogoutForceClearsLocalStateWhenBackendFails(t *testing.T) {
	env := newFakeEnv()
	env.store.SetSession(true, "T1")
	mirrorCleared := false

	res := RunLogout(context.Background(), true, LogoutDeps{
		CallLogout:   func(context.Context) error { return errors.New("offline") },
		DeleteToken:  env.deleteToken,
		ClearSession: env.store.ClearSession,
		ClearMirror: func(context.Context) error {
			mirrorCleared = true
			return nil
		},
	})
	if res.RemoteErr == nil {
		t.Fatalf("expected remote error")
	}
	if res.LocalErr != nil || res.Session.LoggedIn || !res.Cleared || !mirrorCleared {
		t.Fatalf("local state not cleared: %+v mirror=%v", res, mirrorCleared)
	}
}
