package hrdesk

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/cookiejar"

	"github.com/MrEthical07/hrdesk/internal/audit"
	"github.com/MrEthical07/hrdesk/internal/flows"
	"github.com/MrEthical07/hrdesk/persist"
	"github.com/MrEthical07/hrdesk/refresh"
	"github.com/MrEthical07/hrdesk/session"
)

// Builder assembles a Client. Configure it during initialization; a Builder
// can build exactly one Client.
type Builder struct {
	config     Config
	httpClient *http.Client
	logger     *slog.Logger
	kv         persist.KV
	decoder    session.Decoder
	auditSink  AuditSink
	listeners  []Listener

	built bool
}

// New returns a Builder seeded with DefaultConfig.
func New() *Builder {
	return &Builder{config: defaultConfig()}
}

func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithHTTPClient sets the transport. A cookie jar is added to a copy of hc
// when it has none, since the refresh endpoint authenticates by cookie.
func (b *Builder) WithHTTPClient(hc *http.Client) *Builder {
	b.httpClient = hc
	return b
}

func (b *Builder) WithLogger(logger *slog.Logger) *Builder {
	b.logger = logger
	return b
}

// WithKV overrides the configured persistence backend.
func (b *Builder) WithKV(kv persist.KV) *Builder {
	b.kv = kv
	return b
}

// WithDecoder replaces the token decoder (jwt.Codec by default).
func (b *Builder) WithDecoder(d session.Decoder) *Builder {
	b.decoder = d
	return b
}

func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

func (b *Builder) WithListener(l Listener) *Builder {
	if l != nil {
		b.listeners = append(b.listeners, l)
	}
	return b
}

func (b *Builder) WithRefreshMode(mode refresh.Mode) *Builder {
	b.config.Refresh.Mode = mode
	return b
}

func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// Build is BuildContext with a background context.
func (b *Builder) Build() (*Client, error) {
	return b.BuildContext(context.Background())
}

// BuildContext validates the configuration, opens the persistence backend,
// and wires the client. ctx bounds backend connection setup only.
func (b *Builder) BuildContext(ctx context.Context) (*Client, error) {
	if b.built {
		return nil, ErrBuilderUsed
	}
	cfg := cloneConfig(b.config)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger := b.logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "hrdesk")

	c := &Client{
		cfg:     cfg,
		logger:  logger,
		metrics: NewMetrics(cfg.Metrics),
	}

	kv := b.kv
	if kv == nil {
		opened, closer, err := openPersistence(ctx, cfg.Persistence, logger)
		if err != nil {
			return nil, fmt.Errorf("hrdesk: open %s persistence: %w", cfg.Persistence.Backend, err)
		}
		kv = opened
		c.closers = append(c.closers, closer)
	}

	hc, err := withCookieJar(b.httpClient, cfg)
	if err != nil {
		return nil, errors.Join(fmt.Errorf("hrdesk: cookie jar: %w", err), c.closeStorage())
	}
	c.http = hc

	c.store = session.NewStore(b.decoder, logger)
	c.tokens = session.NewTokenSlot(kv)
	if cfg.Persistence.MirrorSession {
		c.mirror = session.NewMirror(kv, logger)
		c.detach = c.mirror.Attach(c.store)
	}

	c.audit = audit.NewDispatcher(audit.Config{
		Enabled:    cfg.Audit.Enabled,
		BufferSize: cfg.Audit.BufferSize,
		DropIfFull: cfg.Audit.DropIfFull,
		Keep:       []string{AuditLogout, AuditSessionExpired},
	}, b.auditSink)

	for _, l := range b.listeners {
		c.listeners.add(l)
	}

	c.flows = c.buildFlowDeps()
	c.refresher = refresh.New(cfg.Refresh.Mode, cfg.Refresh.Timeout, c.refreshSession)

	b.built = true
	return c, nil
}

// Replaced in tests.
var (
	openPersistence = openKV
	newCookieJar    = func() (http.CookieJar, error) { return cookiejar.New(nil) }
)

func withCookieJar(hc *http.Client, cfg Config) (*http.Client, error) {
	var out http.Client
	if hc != nil {
		out = *hc
	} else {
		out.Timeout = cfg.Timeout
	}
	if out.Jar == nil {
		jar, err := newCookieJar()
		if err != nil {
			return nil, err
		}
		out.Jar = jar
	}
	return &out, nil
}

func (c *Client) buildFlowDeps() flows.Deps {
	warn := func(msg string, args ...any) { c.logger.Warn(msg, args...) }

	return flows.Deps{
		Login: flows.LoginDeps{
			CallLogin:    c.callLogin,
			PersistToken: c.tokens.Save,
			DeleteToken:  c.tokens.Delete,
			ApplySession: c.store.SetSession,
			Warn:         warn,
		},
		Refresh: flows.RefreshDeps{
			CallRefresh:  c.callRefresh,
			PersistToken: c.tokens.Save,
			DeleteToken:  c.tokens.Delete,
			ApplySession: c.store.SetSession,
			ClearSession: c.store.ClearSession,
			Warn:         warn,
		},
		Logout: flows.LogoutDeps{
			CallLogout:   c.callLogout,
			DeleteToken:  c.tokens.Delete,
			ClearSession: c.store.ClearSession,
			ClearMirror:  c.clearMirror,
			Warn:         warn,
		},
	}
}

func (c *Client) clearMirror(ctx context.Context) error {
	if c.mirror == nil {
		return nil
	}
	return c.mirror.Clear(ctx)
}
