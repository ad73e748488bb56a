package hrdesk

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/MrEthical07/hrdesk/internal/fakebackend"
	"github.com/MrEthical07/hrdesk/internal/logging"
	"github.com/MrEthical07/hrdesk/persist"
	"github.com/MrEthical07/hrdesk/refresh"
	"github.com/MrEthical07/hrdesk/session"
)

// recorder collects listener signals.
type recorder struct {
	mu      sync.Mutex
	expired []error
	denied  []string
}

func (r *recorder) SessionExpired(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.expired = append(r.expired, err)
}

func (r *recorder) PermissionDenied(msg string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.denied = append(r.denied, msg)
}

func (r *recorder) counts() (expired, denied int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.expired), len(r.denied)
}

func (r *recorder) deniedMessages() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.denied...)
}

type harness struct {
	backend *fakebackend.Backend
	server  *httptest.Server
	kv      *persist.Memory
	client  *Client
	events  *recorder
}

type harnessSetup struct {
	cfg  Config
	sink AuditSink
}

type harnessOption func(*harnessSetup)

func withMode(mode refresh.Mode) harnessOption {
	return func(s *harnessSetup) { s.cfg.Refresh.Mode = mode }
}

func withAudit(sink AuditSink) harnessOption {
	return func(s *harnessSetup) {
		s.cfg.Audit.Enabled = true
		s.cfg.Audit.DropIfFull = false
		s.sink = sink
	}
}

func withMirror() harnessOption {
	return func(s *harnessSetup) { s.cfg.Persistence.MirrorSession = true }
}

func newHarness(t testing.TB, opts ...harnessOption) *harness {
	t.Helper()

	backend := fakebackend.New(fakebackend.Options{})
	server := httptest.NewServer(backend)
	t.Cleanup(server.Close)

	return newHarnessFor(t, backend, server, persist.NewMemory(), opts...)
}

func newHarnessFor(t testing.TB, backend *fakebackend.Backend, server *httptest.Server, kv *persist.Memory, opts ...harnessOption) *harness {
	t.Helper()

	setup := harnessSetup{cfg: DefaultConfig()}
	setup.cfg.BaseURL = server.URL
	setup.cfg.Persistence.Backend = BackendMemory
	setup.cfg.Persistence.MirrorSession = false
	for _, opt := range opts {
		opt(&setup)
	}

	events := &recorder{}
	b := New().WithConfig(setup.cfg).WithKV(kv).WithLogger(logging.Discard()).WithListener(events)
	if setup.sink != nil {
		b.WithAuditSink(setup.sink)
	}
	client, err := b.Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })

	return &harness{backend: backend, server: server, kv: kv, client: client, events: events}
}

func (h *harness) login(t testing.TB, emp string) session.Snapshot {
	t.Helper()
	snap, err := h.client.Login(context.Background(), emp, "Passw0rd!")
	if err != nil {
		t.Fatalf("Login(%s): %v", emp, err)
	}
	return snap
}

func (h *harness) persistedToken(t *testing.T) (string, bool) {
	t.Helper()
	v, ok, err := h.kv.Get(context.Background(), session.AccessTokenKey)
	if err != nil {
		t.Fatalf("kv get: %v", err)
	}
	return string(v), ok
}

func (h *harness) get(t testing.TB, ctx context.Context, path string) *http.Response {
	t.Helper()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, h.server.URL+path, nil)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	resp, err := h.client.Send(req)
	if err != nil {
		t.Fatalf("Send %s: %v", path, err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}
