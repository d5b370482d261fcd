package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config represents the overall application configuration.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Upstream   UpstreamConfig   `yaml:"upstream"`
	Wizard     WizardConfig     `yaml:"wizard"`
	Database   DatabaseConfig   `yaml:"database"`
	Push       PushConfig       `yaml:"push"`
	WorkerPool WorkerPoolConfig `yaml:"worker_pool"`
	Log        LogConfig        `yaml:"log"`
}

// WorkerPoolConfig holds the configuration for the push notification worker pool.
type WorkerPoolConfig struct {
	Size int `yaml:"size"`
}

// PushConfig holds the VAPID keys for web push notifications. Push is disabled without keys.
type PushConfig struct {
	PublicKey  string `yaml:"vapid_public_key"`
	PrivateKey string `yaml:"vapid_private_key"`
	Subject    string `yaml:"subject"`
	TTL        int    `yaml:"ttl"`
}

// Enabled reports whether both VAPID keys are configured.
func (p PushConfig) Enabled() bool {
	return p.PublicKey != "" && p.PrivateKey != ""
}

// ServerConfig holds the server-related configuration.
type ServerConfig struct {
	Port            int           `yaml:"port"`
	RateLimitPerSec float64       `yaml:"rate_limit_per_sec"`
	RateLimitBurst  int           `yaml:"rate_limit_burst"`
	CacheTTLSeconds int           `yaml:"cache_ttl_seconds"`
	CacheTTL        time.Duration `yaml:"-"`
	MaxUploadMB     int           `yaml:"max_upload_mb"`
}

// UpstreamConfig describes the back-office REST API the service drives.
type UpstreamConfig struct {
	BaseURL                 string            `yaml:"base_url"`
	Headers                 map[string]string `yaml:"headers"`
	Token                   string            `yaml:"token"`
	HTTPProxy               string            `yaml:"http_proxy"`
	TimeoutSeconds          int               `yaml:"timeout_seconds"`
	Timeout                 time.Duration     `yaml:"-"`
	RequestsPerSec          float64           `yaml:"requests_per_sec"`
	DropdownCacheTTLSeconds int               `yaml:"dropdown_cache_ttl_seconds"`
	DropdownCacheTTL        time.Duration     `yaml:"-"`
}

// WizardConfig holds the asset wizard session settings.
type WizardConfig struct {
	SessionTTLMinutes int           `yaml:"session_ttl_minutes"`
	SessionTTL        time.Duration `yaml:"-"`
}

// DatabaseConfig holds the database connection configuration.
// A DSN starting with "file:" or ending in ".db" selects sqlite; anything else is postgres.
type DatabaseConfig struct {
	DSN                    string `yaml:"dsn"`
	MaxOpenConns           int    `yaml:"max_open_conns"`
	MaxIdleConns           int    `yaml:"max_idle_conns"`
	ConnMaxLifetimeMinutes int    `yaml:"conn_max_lifetime_minutes"`
}

// LogConfig controls the zap logger.
type LogConfig struct {
	Level      string `yaml:"level"`
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
}

// Environment overrides, applied after the YAML file and the optional .env file.
const (
	EnvUpstreamURL   = "ASSETDESK_UPSTREAM_URL"
	EnvUpstreamToken = "ASSETDESK_UPSTREAM_TOKEN"
	EnvDatabaseDSN   = "ASSETDESK_DATABASE_DSN"
)

// Load reads the configuration from the given path.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var cfg Config
	decoder := yaml.NewDecoder(f)
	if err := decoder.Decode(&cfg); err != nil {
		return nil, err
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to read .env: %w", err)
	}
	applyEnv(&cfg)
	applyDefaults(&cfg)

	if cfg.Upstream.BaseURL == "" {
		return nil, errors.New("upstream.base_url is required")
	}
	return &cfg, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv(EnvUpstreamURL); v != "" {
		cfg.Upstream.BaseURL = v
	}
	if v := os.Getenv(EnvUpstreamToken); v != "" {
		cfg.Upstream.Token = v
	}
	if v := os.Getenv(EnvDatabaseDSN); v != "" {
		cfg.Database.DSN = v
	}
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Port <= 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.RateLimitPerSec <= 0 {
		cfg.Server.RateLimitPerSec = 10
	}
	if cfg.Server.RateLimitBurst <= 0 {
		cfg.Server.RateLimitBurst = 20
	}
	if cfg.Server.CacheTTLSeconds <= 0 {
		cfg.Server.CacheTTLSeconds = 60
	}
	cfg.Server.CacheTTL = time.Duration(cfg.Server.CacheTTLSeconds) * time.Second
	if cfg.Server.MaxUploadMB <= 0 {
		cfg.Server.MaxUploadMB = 64
	}

	if cfg.Upstream.TimeoutSeconds <= 0 {
		cfg.Upstream.TimeoutSeconds = 30
	}
	cfg.Upstream.Timeout = time.Duration(cfg.Upstream.TimeoutSeconds) * time.Second
	if cfg.Upstream.DropdownCacheTTLSeconds <= 0 {
		cfg.Upstream.DropdownCacheTTLSeconds = 300
	}
	cfg.Upstream.DropdownCacheTTL = time.Duration(cfg.Upstream.DropdownCacheTTLSeconds) * time.Second

	if cfg.Wizard.SessionTTLMinutes <= 0 {
		cfg.Wizard.SessionTTLMinutes = 30
	}
	cfg.Wizard.SessionTTL = time.Duration(cfg.Wizard.SessionTTLMinutes) * time.Minute

	if cfg.Database.DSN == "" {
		cfg.Database.DSN = "file:assetdesk.db"
	}

	if cfg.Push.TTL <= 0 {
		cfg.Push.TTL = 3600
	}
	if cfg.WorkerPool.Size <= 0 {
		cfg.WorkerPool.Size = 1
	}

	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
}
