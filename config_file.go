package hrdesk

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"

	"github.com/MrEthical07/hrdesk/refresh"
)

// EnvPrefix is the prefix of every environment override.
const EnvPrefix = "HRDESK_"

// LoadConfigFile reads path over DefaultConfig. Files ending in .json or
// .jsonc may contain comments and trailing commas; anything else is YAML.
// Environment overrides are applied afterwards and the result is validated.
func LoadConfigFile(path string) (Config, error) {
	cfg := defaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := decodeConfig(path, data, &cfg); err != nil {
		return Config{}, err
	}
	if err := ApplyEnv(&cfg, os.LookupEnv); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

func decodeConfig(path string, data []byte, cfg *Config) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json", ".jsonc":
		// JSON is a subset of YAML, so the stripped document goes through the
		// same decoder and the same field tags.
		data = jsonc.ToJSON(data)
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

// ApplyEnv overrides cfg from HRDESK_* variables obtained through lookup
// (os.LookupEnv in production).
func ApplyEnv(cfg *Config, lookup func(string) (string, bool)) error {
	get := func(name string) (string, bool) {
		v, ok := lookup(EnvPrefix + name)
		v = strings.TrimSpace(v)
		return v, ok && v != ""
	}

	setString := func(name string, dst *string) {
		if v, ok := get(name); ok {
			*dst = v
		}
	}
	setBool := func(name string, dst *bool) error {
		v, ok := get(name)
		if !ok {
			return nil
		}
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%s%s: %w", EnvPrefix, name, err)
		}
		*dst = b
		return nil
	}
	setInt := func(name string, dst *int) error {
		v, ok := get(name)
		if !ok {
			return nil
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s%s: %w", EnvPrefix, name, err)
		}
		*dst = n
		return nil
	}
	setDuration := func(name string, dst *time.Duration) error {
		v, ok := get(name)
		if !ok {
			return nil
		}
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%s%s: %w", EnvPrefix, name, err)
		}
		*dst = d
		return nil
	}

	setString("BASE_URL", &cfg.BaseURL)
	setString("PERSISTENCE", &cfg.Persistence.Backend)
	setString("DIR", &cfg.Persistence.Dir)
	setString("REDIS_ADDR", &cfg.Persistence.RedisAddr)
	setString("REDIS_PASSWORD", &cfg.Persistence.RedisPassword)
	setString("REDIS_PREFIX", &cfg.Persistence.RedisPrefix)
	setString("SQLITE_PATH", &cfg.Persistence.SQLitePath)
	setString("POSTGRES_DSN", &cfg.Persistence.PostgresDSN)
	setString("OWNER", &cfg.Persistence.Owner)
	setString("LOG_LEVEL", &cfg.Log.Level)
	setString("LOG_FORMAT", &cfg.Log.Format)

	if v, ok := get("REFRESH_MODE"); ok {
		mode, err := refresh.ParseMode(v)
		if err != nil {
			return fmt.Errorf("%sREFRESH_MODE: %w", EnvPrefix, err)
		}
		cfg.Refresh.Mode = mode
	}

	for _, err := range []error{
		setDuration("TIMEOUT", &cfg.Timeout),
		setDuration("REFRESH_TIMEOUT", &cfg.Refresh.Timeout),
		setDuration("REDIS_TTL", &cfg.Persistence.RedisTTL),
		setInt("REDIS_DB", &cfg.Persistence.RedisDB),
		setBool("MIRROR_SESSION", &cfg.Persistence.MirrorSession),
		setBool("METRICS", &cfg.Metrics.Enabled),
		setBool("AUDIT", &cfg.Audit.Enabled),
	} {
		if err != nil {
			return err
		}
	}
	return nil
}
