package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"blockcanvas/internal/config"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestConfigShow_AppliesEnv(t *testing.T) {
	dir := t.TempDir()
	t.Setenv(config.EnvStorageDSN, filepath.Join(dir, "x.db"))
	t.Setenv(config.EnvHTTPAddr, "127.0.0.1:9999")

	out, err := run(t, "--config", filepath.Join(dir, "missing.yaml"), "config", "show")
	if err != nil {
		t.Fatalf("config show: %v", err)
	}
	if !strings.Contains(out, "127.0.0.1:9999") {
		t.Errorf("output missing env addr:\n%s", out)
	}
}

func TestConfigInit_WritesOnce(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cfg", "config.yaml")
	if _, err := run(t, "--config", path, "config", "init"); err != nil {
		t.Fatalf("init: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("config not written: %v", err)
	}
	if _, err := run(t, "--config", path, "config", "init"); err == nil {
		t.Error("second init should refuse to overwrite")
	}
}

func TestMigrate_CreatesDatabase(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "data", "canvas.db")
	t.Setenv(config.EnvStorageDSN, dbPath)
	t.Setenv(config.EnvUploadDir, filepath.Join(dir, "uploads"))
	t.Setenv(config.EnvSchedule, "")

	if _, err := run(t, "--config", "", "migrate"); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	if _, err := os.Stat(dbPath); err != nil {
		t.Errorf("database not created: %v", err)
	}
}

func TestBadConfigFails(t *testing.T) {
	t.Setenv(config.EnvStorageDriver, "oracle")
	if _, err := run(t, "--config", "", "migrate"); err == nil {
		t.Fatal("expected invalid driver error")
	}
}
