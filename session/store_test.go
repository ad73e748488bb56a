package session

import (
	"context"
	"encoding/base64"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/MrEthical07/hrdesk/jwt"
	"github.com/MrEthical07/hrdesk/persist"
)

// stubDecoder maps opaque test tokens to fixed claims.
type stubDecoder map[string]jwt.Claims

func (d stubDecoder) Decode(token string) (jwt.Claims, error) {
	c, ok := d[token]
	if !ok {
		return jwt.Claims{}, &jwt.DecodeError{Err: errors.New("unknown test token")}
	}
	return c, nil
}

func testDecoder() stubDecoder {
	return stubDecoder{
		"T1": {EmployeeNumber: "E1", Department: "HR1", Level: 5},
		"T2": {EmployeeNumber: "E1", Department: "HR1", Level: 5},
		"T3": {EmployeeNumber: "E2", Department: "DEV", Level: 2},
	}
}

func TestStoreStartsUninitialized(t *testing.T) {
	s := NewStore(testDecoder(), nil)
	snap := s.Snapshot()
	if snap.Initialized || snap.LoggedIn || snap.AccessToken != "" || snap.Claims != nil {
		t.Fatalf("unexpected initial state %+v", snap)
	}
}

func TestSetSessionDecodesClaims(t *testing.T) {
	s := NewStore(testDecoder(), nil)
	snap := s.SetSession(true, "T1")

	if !snap.LoggedIn || snap.AccessToken != "T1" || !snap.Initialized {
		t.Fatalf("unexpected state %+v", snap)
	}
	if snap.EmployeeNumber() != "E1" || snap.Department() != "HR1" || snap.Level() != 5 {
		t.Fatalf("unexpected claims %+v", snap.Claims)
	}
}

func TestSetSessionUndecodableTokenLogsOut(t *testing.T) {
	s := NewStore(testDecoder(), nil)
	s.SetSession(true, "T1")

	snap := s.SetSession(true, "garbage")
	if snap.LoggedIn || snap.AccessToken != "" || snap.Claims != nil {
		t.Fatalf("expected logged-out state, got %+v", snap)
	}
	if !snap.Initialized {
		t.Fatalf("expected initialized")
	}
}

func TestSetSessionEmptyTokenNeverLoggedIn(t *testing.T) {
	s := NewStore(testDecoder(), nil)
	snap := s.SetSession(true, "")
	if snap.LoggedIn {
		t.Fatalf("logged in without token")
	}
	if !snap.Initialized {
		t.Fatalf("expected initialized")
	}
}

func TestSetSessionStoresTrimmedToken(t *testing.T) {
	s := NewStore(testDecoder(), nil)
	snap := s.SetSession(true, "  T1\n")
	if !snap.LoggedIn || snap.AccessToken != "T1" {
		t.Fatalf("unexpected state %+v", snap)
	}
	if tok, ok := s.AccessToken(); !ok || tok != "T1" {
		t.Fatalf("AccessToken() = %q, %v", tok, ok)
	}
}

func TestSetSessionNullPayloadLogsOut(t *testing.T) {
	enc := base64.RawURLEncoding
	tok := enc.EncodeToString([]byte(`{"alg":"HS256"}`)) + "." + enc.EncodeToString([]byte(`null`)) + ".sig"

	s := NewStore(jwt.NewCodec(), nil)
	snap := s.SetSession(true, tok)
	if snap.LoggedIn || snap.AccessToken != "" || snap.Claims != nil || !snap.Initialized {
		t.Fatalf("expected initialized logged-out state, got %+v", snap)
	}
}

func TestClearSessionKeepsInitialized(t *testing.T) {
	s := NewStore(testDecoder(), nil)
	s.SetSession(true, "T1")
	snap := s.ClearSession()

	if snap.LoggedIn || snap.AccessToken != "" || snap.Claims != nil {
		t.Fatalf("expected cleared state, got %+v", snap)
	}
	if !s.Initialized() {
		t.Fatalf("initialized must not reset")
	}
	if _, ok := s.AccessToken(); ok {
		t.Fatalf("token still present")
	}
}

func TestSnapshotIsACopy(t *testing.T) {
	s := NewStore(testDecoder(), nil)
	s.SetSession(true, "T1")

	snap := s.Snapshot()
	snap.Claims.EmployeeNumber = "mutated"

	if got := s.Snapshot().EmployeeNumber(); got != "E1" {
		t.Fatalf("store state leaked through snapshot: %q", got)
	}
}

func TestSubscribersSeeMutationsInOrder(t *testing.T) {
	s := NewStore(testDecoder(), nil)

	var got []string
	cancel := s.Subscribe(func(snap Snapshot) {
		got = append(got, snap.AccessToken)
	})

	s.SetSession(true, "T1")
	s.SetSession(true, "T2")
	s.ClearSession()
	cancel()
	s.SetSession(true, "T3")

	want := []string{"T1", "T2", ""}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, got)
		}
	}
}

func TestSubscriberMayReadStore(t *testing.T) {
	s := NewStore(testDecoder(), nil)
	var seen string
	s.Subscribe(func(Snapshot) {
		seen, _ = s.AccessToken()
	})
	s.SetSession(true, "T1")
	if seen != "T1" {
		t.Fatalf("subscriber read %q", seen)
	}
}

func TestStoreInvariantsUnderConcurrency(t *testing.T) {
	s := NewStore(testDecoder(), nil)
	tokens := []string{"T1", "T2", "T3", "garbage", ""}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				if j%7 == 0 {
					s.ClearSession()
					continue
				}
				s.SetSession(true, tokens[(i+j)%len(tokens)])
			}
		}(i)
	}

	stop := make(chan struct{})
	readerErr := make(chan string, 1)
	go func() {
		for {
			select {
			case <-stop:
				close(readerErr)
				return
			default:
			}
			snap := s.Snapshot()
			if snap.LoggedIn && snap.AccessToken == "" {
				readerErr <- "logged in without token"
				return
			}
			if (snap.Claims == nil) != (snap.AccessToken == "") {
				readerErr <- "claims not all-or-nothing"
				return
			}
		}
	}()

	wg.Wait()
	close(stop)
	if msg, ok := <-readerErr; ok {
		t.Fatal(msg)
	}
	if !s.Initialized() {
		t.Fatalf("expected initialized")
	}
}

func TestBootstrapWithStoredToken(t *testing.T) {
	kv := persist.NewMemory()
	slot := NewTokenSlot(kv)
	if err := slot.Save(context.Background(), "T1"); err != nil {
		t.Fatalf("save: %v", err)
	}

	s := NewStore(testDecoder(), nil)
	snap, err := Bootstrap(context.Background(), s, slot, nil)
	if err != nil {
		t.Fatalf("bootstrap: %v", err)
	}
	if !snap.LoggedIn || snap.AccessToken != "T1" || snap.EmployeeNumber() != "E1" || !snap.Initialized {
		t.Fatalf("unexpected state %+v", snap)
	}
}

func TestBootstrapWithoutToken(t *testing.T) {
	s := NewStore(testDecoder(), nil)
	snap, err := Bootstrap(context.Background(), s, NewTokenSlot(persist.NewMemory()), nil)
	if err != nil {
		t.Fatalf("bootstrap: %v", err)
	}
	if snap.LoggedIn || !snap.Initialized {
		t.Fatalf("unexpected state %+v", snap)
	}
}

func TestBootstrapWithUnreadableToken(t *testing.T) {
	kv := persist.NewMemory()
	_ = kv.Set(context.Background(), AccessTokenKey, []byte("garbage"))

	s := NewStore(testDecoder(), nil)
	snap, err := Bootstrap(context.Background(), s, NewTokenSlot(kv), nil)
	if err != nil {
		t.Fatalf("bootstrap: %v", err)
	}
	if snap.LoggedIn || snap.AccessToken != "" || !snap.Initialized {
		t.Fatalf("unexpected state %+v", snap)
	}
}

type failingKV struct{ persist.KV }

var errBroken = errors.New("broken storage")

func (failingKV) Get(context.Context, string) ([]byte, bool, error) { return nil, false, errBroken }

func TestBootstrapStorageFailureStillInitializes(t *testing.T) {
	s := NewStore(testDecoder(), nil)
	snap, err := Bootstrap(context.Background(), s, NewTokenSlot(failingKV{persist.NewMemory()}), nil)
	if !errors.Is(err, errBroken) {
		t.Fatalf("expected storage error, got %v", err)
	}
	if !snap.Initialized || snap.LoggedIn {
		t.Fatalf("unexpected state %+v", snap)
	}
}

func TestTokenSlotSaveEmptyDeletes(t *testing.T) {
	ctx := context.Background()
	slot := NewTokenSlot(nil)
	if err := slot.Save(ctx, "T1"); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := slot.Save(ctx, ""); err != nil {
		t.Fatalf("save empty: %v", err)
	}
	if _, ok, _ := slot.Load(ctx); ok {
		t.Fatalf("expected slot to be empty")
	}
}

func TestMirrorFollowsStore(t *testing.T) {
	ctx := context.Background()
	kv := persist.NewMemory()
	s := NewStore(testDecoder(), nil)
	m := NewMirror(kv, nil)
	m.now = func() time.Time { return time.Unix(1700000000, 0) }

	detach := m.Attach(s)
	defer detach()

	s.SetSession(true, "T1")
	got, savedAt, ok, err := m.Load(ctx)
	if err != nil || !ok {
		t.Fatalf("load: ok=%v err=%v", ok, err)
	}
	if !got.LoggedIn || got.AccessToken != "T1" || got.EmployeeNumber() != "E1" || got.Level() != 5 {
		t.Fatalf("unexpected mirror %+v", got)
	}
	if savedAt.Unix() != 1700000000 {
		t.Fatalf("unexpected savedAt %v", savedAt)
	}

	s.ClearSession()
	got, _, ok, err = m.Load(ctx)
	if err != nil || !ok {
		t.Fatalf("load after clear: ok=%v err=%v", ok, err)
	}
	if got.LoggedIn || got.AccessToken != "" || got.Claims != nil || !got.Initialized {
		t.Fatalf("unexpected mirror after clear %+v", got)
	}
}

func TestDecodeSnapshotRejectsBadRecords(t *testing.T) {
	good, err := EncodeSnapshot(Snapshot{LoggedIn: true, AccessToken: "T1", Claims: &jwt.Claims{EmployeeNumber: "E1"}, Initialized: true}, time.Now())
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if _, _, err := DecodeSnapshot(good); err != nil {
		t.Fatalf("decode good record: %v", err)
	}

	bad, _ := encMode.Marshal(mirrorRecord{Version: mirrorFormatVersion, LoggedIn: true})
	if _, _, err := DecodeSnapshot(bad); !errors.Is(err, ErrMirrorCorrupt) {
		t.Fatalf("expected corrupt error, got %v", err)
	}

	future, _ := encMode.Marshal(mirrorRecord{Version: 9})
	if _, _, err := DecodeSnapshot(future); !errors.Is(err, ErrMirrorVersion) {
		t.Fatalf("expected version error, got %v", err)
	}

	if _, _, err := DecodeSnapshot([]byte{0xff, 0x00}); !errors.Is(err, ErrMirrorCorrupt) {
		t.Fatalf("expected corrupt error for junk, got %v", err)
	}
}
