// Package config loads the YAML configuration file and applies
// environment overrides on top of it.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type StorageConfig struct {
	Driver  string `yaml:"driver"` // sqlite | postgres | mysql | mongo
	DSN     string `yaml:"dsn"`
	DataDir string `yaml:"data_dir"`
}

type FilesConfig struct {
	UploadDir     string `yaml:"upload_dir"`
	PublicBaseURL string `yaml:"public_base_url"`
	MaxUploadMB   int    `yaml:"max_upload_mb"`
}

type HTTPConfig struct {
	Addr string `yaml:"addr"`
}

type CanvasConfig struct {
	DebounceMs       int `yaml:"debounce_ms"`
	ExtendStep       int `yaml:"extend_step"`
	ExtendCooldownMs int `yaml:"extend_cooldown_ms"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	File   string `yaml:"file"`
}

type EventsConfig struct {
	RedisAddr string `yaml:"redis_addr"`
	Channel   string `yaml:"channel"`
}

type MaintenanceConfig struct {
	Schedule string `yaml:"schedule"` // cron expression; empty disables
}

// Config is the full application configuration.
type Config struct {
	Storage     StorageConfig     `yaml:"storage"`
	Files       FilesConfig       `yaml:"files"`
	HTTP        HTTPConfig        `yaml:"http"`
	Canvas      CanvasConfig      `yaml:"canvas"`
	Logging     LoggingConfig     `yaml:"logging"`
	Events      EventsConfig      `yaml:"events"`
	Maintenance MaintenanceConfig `yaml:"maintenance"`
}

// Env var names used as overrides.
const (
	EnvStorageDriver = "BLOCKCANVAS_STORAGE_DRIVER"
	EnvStorageDSN    = "BLOCKCANVAS_STORAGE_DSN"
	EnvDataDir       = "BLOCKCANVAS_DATA_DIR"
	EnvUploadDir     = "BLOCKCANVAS_UPLOAD_DIR"
	EnvPublicBaseURL = "BLOCKCANVAS_PUBLIC_BASE_URL"
	EnvHTTPAddr      = "BLOCKCANVAS_HTTP_ADDR"
	EnvDebounceMs    = "BLOCKCANVAS_DEBOUNCE_MS"
	EnvLogLevel      = "BLOCKCANVAS_LOG_LEVEL"
	EnvLogFormat     = "BLOCKCANVAS_LOG_FORMAT"
	EnvLogFile       = "BLOCKCANVAS_LOG_FILE"
	EnvRedisAddr     = "BLOCKCANVAS_REDIS_ADDR"
	EnvSchedule      = "BLOCKCANVAS_MAINTENANCE_SCHEDULE"
)

// Defaults returns the application defaults. Data lives under
// ~/.local/share/blockcanvas.
func Defaults() Config {
	homeDir, _ := os.UserHomeDir()
	dataDir := filepath.Join(homeDir, ".local", "share", "blockcanvas")
	return Config{
		Storage: StorageConfig{
			Driver:  "sqlite",
			DSN:     filepath.Join(dataDir, "canvas.db"),
			DataDir: dataDir,
		},
		Files: FilesConfig{
			UploadDir:     filepath.Join(dataDir, "uploads"),
			PublicBaseURL: "/files",
			MaxUploadMB:   10,
		},
		HTTP:        HTTPConfig{Addr: "127.0.0.1:8420"},
		Canvas:      CanvasConfig{DebounceMs: 1000, ExtendStep: 300, ExtendCooldownMs: 800},
		Logging:     LoggingConfig{Level: "info", Format: "text"},
		Events:      EventsConfig{Channel: "blockcanvas:events"},
		Maintenance: MaintenanceConfig{Schedule: "@hourly"},
	}
}

// Load reads path (if it exists) over the defaults, then applies env
// overrides. A missing file is not an error.
func Load(path string) (Config, error) {
	cfg := Defaults()
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return cfg, fmt.Errorf("parse config %s: %w", path, err)
			}
		case errors.Is(err, os.ErrNotExist):
		default:
			return cfg, fmt.Errorf("read config %s: %w", path, err)
		}
	}
	if err := applyEnv(&cfg); err != nil {
		return cfg, err
	}
	return cfg, cfg.Validate()
}

// Save writes cfg as YAML, creating the parent directory.
func Save(path string, cfg Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	return os.WriteFile(path, data, 0644)
}

func applyEnv(cfg *Config) error {
	strs := map[string]*string{
		EnvStorageDriver: &cfg.Storage.Driver,
		EnvStorageDSN:    &cfg.Storage.DSN,
		EnvDataDir:       &cfg.Storage.DataDir,
		EnvUploadDir:     &cfg.Files.UploadDir,
		EnvPublicBaseURL: &cfg.Files.PublicBaseURL,
		EnvHTTPAddr:      &cfg.HTTP.Addr,
		EnvLogLevel:      &cfg.Logging.Level,
		EnvLogFormat:     &cfg.Logging.Format,
		EnvLogFile:       &cfg.Logging.File,
		EnvRedisAddr:     &cfg.Events.RedisAddr,
		EnvSchedule:      &cfg.Maintenance.Schedule,
	}
	for key, dst := range strs {
		if v, ok := os.LookupEnv(key); ok {
			*dst = strings.TrimSpace(v)
		}
	}
	if v := os.Getenv(EnvDebounceMs); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvDebounceMs, err)
		}
		cfg.Canvas.DebounceMs = n
	}
	return nil
}

// Validate checks the values that would otherwise fail late.
func (c Config) Validate() error {
	switch c.Storage.Driver {
	case "sqlite", "postgres", "mysql", "mongo":
	default:
		return fmt.Errorf("storage.driver %q: want sqlite, postgres, mysql or mongo", c.Storage.Driver)
	}
	if c.Storage.DSN == "" {
		return errors.New("storage.dsn is required")
	}
	if c.Canvas.DebounceMs <= 0 {
		return fmt.Errorf("canvas.debounce_ms must be positive, got %d", c.Canvas.DebounceMs)
	}
	if c.Canvas.ExtendStep <= 0 || c.Canvas.ExtendCooldownMs < 0 {
		return errors.New("canvas.extend_step must be positive and extend_cooldown_ms non-negative")
	}
	return nil
}

func (c CanvasConfig) Debounce() time.Duration {
	return time.Duration(c.DebounceMs) * time.Millisecond
}

func (c CanvasConfig) ExtendCooldown() time.Duration {
	return time.Duration(c.ExtendCooldownMs) * time.Millisecond
}
