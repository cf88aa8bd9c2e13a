package app

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"blockcanvas/internal/config"
	"blockcanvas/internal/domain"
	"blockcanvas/internal/logging"
)

func testConfig(t *testing.T) config.Config {
	t.Helper()
	dir := t.TempDir()
	cfg := config.Defaults()
	cfg.Storage.DataDir = dir
	cfg.Storage.DSN = filepath.Join(dir, "canvas.db")
	cfg.Files.UploadDir = filepath.Join(dir, "uploads")
	cfg.HTTP.Addr = "127.0.0.1:0"
	return cfg
}

func openTestApp(t *testing.T, cfg config.Config) *App {
	t.Helper()
	a, err := Open(context.Background(), cfg, logging.New(io.Discard, logging.Options{}))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { a.Close() })
	return a
}

func TestOpen_SQLiteWiring(t *testing.T) {
	a := openTestApp(t, testConfig(t))
	ctx := context.Background()

	b, err := a.Blocks().CreateBlock(ctx, 1, domain.Rect{X: 10, Y: 10})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if b.Width != domain.DefaultBlockWidth || b.Height != domain.DefaultBlockHeight {
		t.Errorf("size = %dx%d", b.Width, b.Height)
	}
	if a.Files() == nil || a.Emitter() == nil {
		t.Error("files and emitter should be wired")
	}
}

func TestOpen_RedisDownStillOpens(t *testing.T) {
	cfg := testConfig(t)
	cfg.Events.RedisAddr = "127.0.0.1:1"
	a := openTestApp(t, cfg)
	if a.redis != nil {
		t.Error("redis emitter should be absent when the server is unreachable")
	}
}

func TestStartMaintenance_BadSchedule(t *testing.T) {
	cfg := testConfig(t)
	cfg.Maintenance.Schedule = "every now and then"
	a := openTestApp(t, cfg)
	if err := a.StartMaintenance(); err == nil {
		t.Fatal("expected schedule error")
	}
}

func TestHandler_ServesAPIAndReportsViews(t *testing.T) {
	a := openTestApp(t, testConfig(t))
	var viewed []int64
	ts := httptest.NewServer(a.Handler(func(id int64) { viewed = append(viewed, id) }))
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/healthz")
	if err != nil {
		t.Fatalf("healthz: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("healthz status = %d", resp.StatusCode)
	}

	resp, err = http.Get(ts.URL + "/pages/3/state")
	if err != nil {
		t.Fatalf("state: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if !strings.Contains(string(body), `"pageId":3`) {
		t.Errorf("state body = %s", body)
	}
	if len(viewed) != 1 || viewed[0] != 3 {
		t.Errorf("viewed = %v, want [3]", viewed)
	}
}

func TestServeHTTP_StopsOnCancel(t *testing.T) {
	a := openTestApp(t, testConfig(t))
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.ServeHTTP(ctx) }()
	cancel()
	if err := <-done; err != nil {
		t.Fatalf("serve: %v", err)
	}
}

func TestCanvas_UsesConfiguredDebounce(t *testing.T) {
	cfg := testConfig(t)
	cfg.Canvas.DebounceMs = 10
	a := openTestApp(t, cfg)
	ctx := context.Background()

	b, err := a.Blocks().CreateBlock(ctx, 5, domain.Rect{})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	c := a.Canvas(5)
	if err := c.Load(ctx); err != nil {
		t.Fatalf("load: %v", err)
	}
	if !c.EditContent(ctx, b.ID, "<p>hello</p>") {
		t.Fatal("edit refused")
	}
	if err := c.Close(ctx); err != nil {
		t.Fatalf("close: %v", err)
	}
	got, err := a.Blocks().GetBlock(ctx, b.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Content != "<p>hello</p>" {
		t.Errorf("content = %q", got.Content)
	}
}
