package hrdesk

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/MrEthical07/hrdesk/refresh"
)

// Config holds everything a Client needs. Obtain one from DefaultConfig or
// LoadConfigFile and adjust fields before passing it to the Builder.
type Config struct {
	BaseURL         string            `yaml:"base_url"`
	Timeout         time.Duration     `yaml:"timeout"`
	UserAgent       string            `yaml:"user_agent"`
	RequestIDHeader string            `yaml:"request_id_header"`
	Endpoints       EndpointsConfig   `yaml:"endpoints"`
	Refresh         RefreshConfig     `yaml:"refresh"`
	Persistence     PersistenceConfig `yaml:"persistence"`
	Metrics         MetricsConfig     `yaml:"metrics"`
	Audit           AuditConfig       `yaml:"audit"`
	Messages        MessagesConfig    `yaml:"messages"`
	Log             LogConfig         `yaml:"log"`
}

/*
====================================
ENDPOINTS
====================================
*/

// EndpointsConfig holds the auth endpoint paths, relative to BaseURL.
type EndpointsConfig struct {
	Login   string `yaml:"login"`
	Refresh string `yaml:"refresh"`
	Logout  string `yaml:"logout"`
}

/*
====================================
REFRESH
====================================
*/

// RefreshConfig controls how 401 responses are recovered.
type RefreshConfig struct {
	// Mode is refresh.Shared (one in-flight refresh for all callers) or
	// refresh.PerRequest (one refresh per rejected request).
	Mode refresh.Mode `yaml:"mode"`
	// Timeout bounds a single refresh call.
	Timeout time.Duration `yaml:"timeout"`
}

/*
====================================
PERSISTENCE
====================================
*/

// Persistence backends.
const (
	BackendMemory   = "memory"
	BackendFile     = "file"
	BackendRedis    = "redis"
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
)

// PersistenceConfig selects where the access token (and the optional session
// mirror) are stored.
type PersistenceConfig struct {
	Backend string `yaml:"backend"`

	// Dir is the file backend directory. Empty means ~/.hrdesk.
	Dir string `yaml:"dir"`

	RedisAddr     string        `yaml:"redis_addr"`
	RedisPassword string        `yaml:"redis_password"`
	RedisDB       int           `yaml:"redis_db"`
	RedisPrefix   string        `yaml:"redis_prefix"`
	RedisTTL      time.Duration `yaml:"redis_ttl"`

	SQLitePath string `yaml:"sqlite_path"`

	PostgresDSN   string `yaml:"postgres_dsn"`
	PostgresTable string `yaml:"postgres_table"`

	// Owner scopes rows in shared backends (Postgres). Empty means the OS user.
	Owner string `yaml:"owner"`

	// MirrorSession writes the whole session snapshot under persist:root.
	MirrorSession bool `yaml:"mirror_session"`
}

/*
====================================
METRICS / AUDIT
====================================
*/

// MetricsConfig toggles in-process counters.
type MetricsConfig struct {
	Enabled                 bool `yaml:"enabled"`
	EnableLatencyHistograms bool `yaml:"enable_latency_histograms"`
}

// AuditConfig controls the asynchronous audit dispatcher.
type AuditConfig struct {
	Enabled    bool `yaml:"enabled"`
	BufferSize int  `yaml:"buffer_size"`
	DropIfFull bool `yaml:"drop_if_full"`
}

/*
====================================
MESSAGES / LOG
====================================
*/

// MessagesConfig holds the fallback texts of user-visible notices.
type MessagesConfig struct {
	PermissionDenied string `yaml:"permission_denied"`
	SessionExpired   string `yaml:"session_expired"`
}

// LogConfig selects the slog handler built by the CLI.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

const (
	defaultPermissionDeniedMessage = "You do not have permission to perform this action."
	defaultSessionExpiredMessage   = "Your session has expired. Please log in again."
)

// DefaultConfig returns a config for a backend on localhost:8080 with file
// persistence and shared refresh.
func DefaultConfig() Config {
	return defaultConfig()
}

func defaultConfig() Config {
	return Config{
		BaseURL:         "http://localhost:8080",
		Timeout:         15 * time.Second,
		UserAgent:       "hrdesk",
		RequestIDHeader: "X-Request-Id",
		Endpoints: EndpointsConfig{
			Login:   "/login",
			Refresh: "/refresh",
			Logout:  "/logout",
		},
		Refresh: RefreshConfig{
			Mode:    refresh.Shared,
			Timeout: 10 * time.Second,
		},
		Persistence: PersistenceConfig{
			Backend:       BackendFile,
			RedisPrefix:   "hrdesk:",
			PostgresTable: "hrdesk_slots",
			MirrorSession: true,
		},
		Metrics: MetricsConfig{
			Enabled:                 true,
			EnableLatencyHistograms: false,
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 1024,
			DropIfFull: true,
		},
		Messages: MessagesConfig{
			PermissionDenied: defaultPermissionDeniedMessage,
			SessionExpired:   defaultSessionExpiredMessage,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

func cloneConfig(cfg Config) Config {
	return cfg
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidConfig, fmt.Sprintf(format, args...))
}

// Validate reports the first configuration problem found.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.BaseURL) == "" {
		return invalid("BaseURL is required")
	}
	u, err := url.Parse(c.BaseURL)
	if err != nil {
		return invalid("BaseURL: %v", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return invalid("BaseURL scheme must be http or https")
	}
	if u.Host == "" {
		return invalid("BaseURL must include a host")
	}
	if c.Timeout < 0 {
		return invalid("Timeout must be >= 0")
	}

	for name, path := range map[string]string{
		"Login":   c.Endpoints.Login,
		"Refresh": c.Endpoints.Refresh,
		"Logout":  c.Endpoints.Logout,
	} {
		if !strings.HasPrefix(path, "/") {
			return invalid("Endpoints.%s must start with /", name)
		}
	}

	if c.Refresh.Mode != refresh.Shared && c.Refresh.Mode != refresh.PerRequest {
		return invalid("Refresh.Mode %d is unknown", int(c.Refresh.Mode))
	}
	if c.Refresh.Timeout < 0 {
		return invalid("Refresh.Timeout must be >= 0")
	}

	switch c.Persistence.Backend {
	case BackendMemory, BackendFile:
	case BackendRedis:
		if c.Persistence.RedisAddr == "" {
			return invalid("Persistence.RedisAddr is required for the redis backend")
		}
		if c.Persistence.RedisTTL < 0 {
			return invalid("Persistence.RedisTTL must be >= 0")
		}
	case BackendSQLite:
		if c.Persistence.SQLitePath == "" {
			return invalid("Persistence.SQLitePath is required for the sqlite backend")
		}
	case BackendPostgres:
		if c.Persistence.PostgresDSN == "" {
			return invalid("Persistence.PostgresDSN is required for the postgres backend")
		}
	default:
		return invalid("Persistence.Backend %q is unknown", c.Persistence.Backend)
	}

	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return invalid("Audit.BufferSize must be > 0 when audit is enabled")
	}
	if c.Metrics.EnableLatencyHistograms && !c.Metrics.Enabled {
		return invalid("Metrics.EnableLatencyHistograms requires Metrics.Enabled")
	}

	switch strings.ToLower(c.Log.Format) {
	case "", "text", "json":
	default:
		return invalid("Log.Format must be text or json")
	}
	return nil
}

// LintWarning is a non-fatal configuration observation.
type LintWarning struct {
	Code    string
	Message string
}

// LintWarnings is the result of Config.Lint.
type LintWarnings []LintWarning

// Codes returns the warning codes in order.
func (ws LintWarnings) Codes() []string {
	out := make([]string, len(ws))
	for i, w := range ws {
		out[i] = w.Code
	}
	return out
}

// Lint reports settings that are valid but probably unintended.
func (c *Config) Lint() LintWarnings {
	var ws LintWarnings
	add := func(code, msg string) {
		ws = append(ws, LintWarning{Code: code, Message: msg})
	}

	if u, err := url.Parse(c.BaseURL); err == nil && u.Scheme == "http" && !isLoopbackHost(u.Hostname()) {
		add("plaintext_base_url", "tokens are sent over plain HTTP to a non-loopback host")
	}
	if c.Refresh.Mode == refresh.PerRequest {
		add("per_request_refresh", "concurrent 401s each issue their own refresh call")
	}
	if c.Persistence.Backend == BackendMemory && c.Persistence.MirrorSession {
		add("mirror_in_memory", "the session mirror is not durable with the memory backend")
	}
	if c.Audit.Enabled && !c.Audit.DropIfFull {
		add("audit_blocking", "a slow audit sink will block requests")
	}
	if c.Timeout == 0 {
		add("no_timeout", "requests without a context deadline can hang forever")
	}
	return ws
}

func isLoopbackHost(host string) bool {
	switch host {
	case "localhost", "127.0.0.1", "::1":
		return true
	}
	return false
}

func (c *Config) endpointURL(path string) (string, error) {
	base, err := url.Parse(c.BaseURL)
	if err != nil {
		return "", err
	}
	return base.JoinPath(path).String(), nil
}
