// Package config loads codebot settings from an optional JSON5 or YAML file,
// environment variables and the OS keyring.
package config

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/titanous/json5"
	"gopkg.in/yaml.v3"
)

// Config is the root configuration.
type Config struct {
	Telegram  TelegramConfig  `json:"telegram" yaml:"telegram"`
	Storage   StorageConfig   `json:"storage" yaml:"storage"`
	Sessions  SessionsConfig  `json:"sessions" yaml:"sessions"`
	Cache     CacheConfig     `json:"cache" yaml:"cache"`
	Metrics   MetricsConfig   `json:"metrics" yaml:"metrics"`
	Telemetry TelemetryConfig `json:"telemetry" yaml:"telemetry"`
	Backup    BackupConfig    `json:"backup" yaml:"backup"`
	Log       LogConfig       `json:"log" yaml:"log"`
}

type TelegramConfig struct {
	Token       string `json:"token,omitempty" yaml:"token,omitempty"`
	ChannelID   int64  `json:"channel_id" yaml:"channel_id"`
	AdminUserID int64  `json:"admin_user_id" yaml:"admin_user_id"`
	PageSize    int    `json:"page_size,omitempty" yaml:"page_size,omitempty"`
}

type StorageConfig struct {
	Driver      string `json:"driver" yaml:"driver"` // "sqlite" (default) or "postgres"
	Path        string `json:"path,omitempty" yaml:"path,omitempty"`
	PostgresDSN string `json:"postgres_dsn,omitempty" yaml:"postgres_dsn,omitempty"`
	TimeoutMs   int    `json:"timeout_ms,omitempty" yaml:"timeout_ms,omitempty"`
}

// Timeout returns the per-operation storage deadline.
func (s StorageConfig) Timeout() time.Duration {
	if s.TimeoutMs <= 0 {
		return 5 * time.Second
	}
	return time.Duration(s.TimeoutMs) * time.Millisecond
}

type SessionsConfig struct {
	Backend    string `json:"backend" yaml:"backend"` // "memory" (default) or "redis"
	RedisURL   string `json:"redis_url,omitempty" yaml:"redis_url,omitempty"`
	TTLMinutes int    `json:"ttl_minutes,omitempty" yaml:"ttl_minutes,omitempty"`
}

// TTL returns how long a pending prompt survives in Redis.
func (s SessionsConfig) TTL() time.Duration {
	return time.Duration(s.TTLMinutes) * time.Minute
}

// CacheConfig sizes the in-process lookup cache. It is off by default:
// deletes and imports run by the index CLI against a live store reach a
// cached bot only when the entry expires.
type CacheConfig struct {
	Size       int `json:"size" yaml:"size"` // 0 disables the lookup cache
	TTLSeconds int `json:"ttl_seconds,omitempty" yaml:"ttl_seconds,omitempty"`
}

func (c CacheConfig) TTL() time.Duration {
	return time.Duration(c.TTLSeconds) * time.Second
}

type MetricsConfig struct {
	Listen string `json:"listen,omitempty" yaml:"listen,omitempty"` // empty disables /metrics and /healthz
	Token  string `json:"token,omitempty" yaml:"token,omitempty"`   // bearer token for /metrics
}

type TelemetryConfig struct {
	Enabled     bool   `json:"enabled" yaml:"enabled"`
	Endpoint    string `json:"endpoint,omitempty" yaml:"endpoint,omitempty"`
	Protocol    string `json:"protocol,omitempty" yaml:"protocol,omitempty"` // "grpc" (default) or "http"
	Insecure    bool   `json:"insecure,omitempty" yaml:"insecure,omitempty"`
	ServiceName string `json:"service_name,omitempty" yaml:"service_name,omitempty"`
}

type BackupConfig struct {
	Schedule string `json:"schedule,omitempty" yaml:"schedule,omitempty"` // cron expression; empty disables
	Target   string `json:"target,omitempty" yaml:"target,omitempty"`     // file path or s3://bucket/key
}

type LogConfig struct {
	Level  string `json:"level,omitempty" yaml:"level,omitempty"`
	Format string `json:"format,omitempty" yaml:"format,omitempty"` // "text" (default) or "json"
}

// Default returns a config with every default applied.
func Default() *Config {
	return &Config{
		Telegram: TelegramConfig{PageSize: 20},
		Storage:  StorageConfig{Driver: "sqlite", Path: "codebot.db", TimeoutMs: 5000},
		Sessions: SessionsConfig{Backend: "memory", TTLMinutes: 30},
		Cache:    CacheConfig{TTLSeconds: 60},
		Telemetry: TelemetryConfig{
			Protocol:    "grpc",
			ServiceName: "codebot",
		},
		Log: LogConfig{Level: "info", Format: "text"},
	}
}

// Load builds the config: defaults, then the file at path (if path is not
// empty), then environment overrides. A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
			slog.Debug("config file not found, using defaults", "path", path)
		case err != nil:
			return nil, fmt.Errorf("read config: %w", err)
		default:
			if err := decode(path, data, cfg); err != nil {
				return nil, fmt.Errorf("parse config %s: %w", path, err)
			}
		}
	}

	cfg.ApplyEnvOverrides()
	return cfg, nil
}

func decode(path string, data []byte, cfg *Config) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return yaml.Unmarshal(data, cfg)
	default:
		return json5.Unmarshal(data, cfg)
	}
}

// ApplyEnvOverrides copies set environment variables over file values.
func (c *Config) ApplyEnvOverrides() {
	envStr := func(key string, dst *string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	envInt64 := func(key string, dst *int64) {
		v := os.Getenv(key)
		if v == "" {
			return
		}
		n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		if err != nil {
			slog.Warn("ignoring invalid integer env var", "key", key, "error", err)
			return
		}
		*dst = n
	}

	envStr("BOT_TOKEN", &c.Telegram.Token)
	envInt64("CHANNEL_ID", &c.Telegram.ChannelID)
	envInt64("ADMIN_USER_ID", &c.Telegram.AdminUserID)
	envStr("CODEBOT_DB_PATH", &c.Storage.Path)
	envStr("CODEBOT_REDIS_URL", &c.Sessions.RedisURL)
	envStr("CODEBOT_LOG_LEVEL", &c.Log.Level)
	envStr("CODEBOT_METRICS_LISTEN", &c.Metrics.Listen)

	if v := os.Getenv("CODEBOT_POSTGRES_DSN"); v != "" {
		c.Storage.PostgresDSN = v
		c.Storage.Driver = "postgres"
	}
	if os.Getenv("CODEBOT_REDIS_URL") != "" {
		c.Sessions.Backend = "redis"
	}
}

// Validate reports missing or inconsistent settings needed to serve.
func (c *Config) Validate() error {
	var errs []error
	if c.Telegram.Token == "" {
		errs = append(errs, errors.New("telegram token is not set (BOT_TOKEN, config file or `codebot token set`)"))
	}
	if c.Telegram.ChannelID == 0 {
		errs = append(errs, errors.New("telegram channel_id is not set (CHANNEL_ID)"))
	}
	if c.Telegram.AdminUserID == 0 {
		errs = append(errs, errors.New("telegram admin_user_id is not set (ADMIN_USER_ID)"))
	}
	errs = append(errs, c.validateStorage()...)
	switch c.Sessions.Backend {
	case "", "memory":
	case "redis":
		if c.Sessions.RedisURL == "" {
			errs = append(errs, errors.New("sessions backend redis requires redis_url"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown sessions backend %q", c.Sessions.Backend))
	}
	return errors.Join(errs...)
}

// ValidateStorage checks only the storage section, for commands that do not
// talk to Telegram.
func (c *Config) ValidateStorage() error {
	return errors.Join(c.validateStorage()...)
}

func (c *Config) validateStorage() []error {
	switch c.Storage.Driver {
	case "", "sqlite":
		if c.Storage.Path == "" {
			return []error{errors.New("storage path is not set")}
		}
	case "postgres":
		if c.Storage.PostgresDSN == "" {
			return []error{errors.New("storage driver postgres requires postgres_dsn")}
		}
	default:
		return []error{fmt.Errorf("unknown storage driver %q", c.Storage.Driver)}
	}
	return nil
}

// ParseLevel maps a level name to a slog level, defaulting to info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// MaskedCopy returns a copy safe to print, with secrets replaced.
func (c *Config) MaskedCopy() *Config {
	cp := *c
	cp.Telegram.Token = maskSecret(cp.Telegram.Token)
	cp.Storage.PostgresDSN = maskSecret(cp.Storage.PostgresDSN)
	cp.Sessions.RedisURL = maskSecret(cp.Sessions.RedisURL)
	cp.Metrics.Token = maskSecret(cp.Metrics.Token)
	return &cp
}

func maskSecret(s string) string {
	if s == "" {
		return ""
	}
	if len(s) <= 8 {
		return "***"
	}
	return s[:4] + "***"
}

// Hash returns a short content hash of the config, used to log reloads.
func (c *Config) Hash() string {
	data, _ := json.Marshal(c)
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:8])
}
