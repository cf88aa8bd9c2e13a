package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaults_Valid(t *testing.T) {
	cfg := Defaults()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults invalid: %v", err)
	}
	if cfg.Canvas.Debounce() != time.Second {
		t.Errorf("default debounce = %v", cfg.Canvas.Debounce())
	}
	if cfg.Canvas.ExtendStep != 300 || cfg.Canvas.ExtendCooldown() != 800*time.Millisecond {
		t.Errorf("unexpected extension defaults: %+v", cfg.Canvas)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Storage.Driver != "sqlite" {
		t.Errorf("driver = %q", cfg.Storage.Driver)
	}
}

func TestLoad_FileAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	yml := "storage:\n  driver: postgres\n  dsn: postgres://localhost/canvas\ncanvas:\n  debounce_ms: 250\n"
	if err := os.WriteFile(path, []byte(yml), 0644); err != nil {
		t.Fatal(err)
	}
	t.Setenv(EnvLogLevel, "debug")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Storage.Driver != "postgres" || cfg.Storage.DSN != "postgres://localhost/canvas" {
		t.Errorf("storage = %+v", cfg.Storage)
	}
	if cfg.Canvas.DebounceMs != 250 {
		t.Errorf("debounce = %d", cfg.Canvas.DebounceMs)
	}
	if cfg.Canvas.ExtendStep != 300 {
		t.Errorf("unset field lost its default: %d", cfg.Canvas.ExtendStep)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("env override ignored: %q", cfg.Logging.Level)
	}
}

func TestLoad_BadEnvNumber(t *testing.T) {
	t.Setenv(EnvDebounceMs, "soon")
	if _, err := Load(""); err == nil {
		t.Fatal("expected error for non-numeric debounce")
	}
}

func TestValidate_RejectsDriver(t *testing.T) {
	cfg := Defaults()
	cfg.Storage.Driver = "oracle"
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for unknown driver")
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "config.yaml")
	cfg := Defaults()
	cfg.HTTP.Addr = ":9999"
	if err := Save(path, cfg); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.HTTP.Addr != ":9999" {
		t.Errorf("addr = %q", got.HTTP.Addr)
	}
}
