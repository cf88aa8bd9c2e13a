package httpapi_test

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/png"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"blockcanvas/internal/canvas"
	"blockcanvas/internal/domain"
	"blockcanvas/internal/filestore"
	"blockcanvas/internal/httpapi"
	"blockcanvas/internal/service"
	"blockcanvas/internal/storage"

	"github.com/charmbracelet/log"
)

type fixture struct {
	srv    *httptest.Server
	client *httpapi.Client
	events *service.MockEmitter
	ctx    context.Context
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	dir := t.TempDir()
	db, err := storage.Open(ctx, "sqlite", filepath.Join(dir, "canvas.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	store := storage.NewStore(db)
	files := filestore.New(filepath.Join(dir, "uploads"), "/files", 1<<20)
	events := &service.MockEmitter{}
	logger := log.New(io.Discard)
	svc := service.NewBlockService(store, files, events, logger)

	srv := httptest.NewServer(httpapi.NewServer(svc, files, httpapi.Options{
		FilesPrefix:    "/files",
		ViewportHeight: 800,
		Logger:         logger,
	}))
	t.Cleanup(func() {
		srv.Close()
		store.Close()
	})
	return &fixture{srv: srv, client: httpapi.NewClient(srv.URL, srv.Client()), events: events, ctx: ctx}
}

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, w, h))); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

// ─────────────────────────────────────────────────────────────
// Blocks
// ─────────────────────────────────────────────────────────────

func TestClient_BlockLifecycle(t *testing.T) {
	f := newFixture(t)

	b, err := f.client.CreateBlock(f.ctx, 1, domain.Rect{X: 50, Y: 50})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if b.ID == 0 || b.Width != 300 || b.Height != 200 {
		t.Fatalf("unexpected block: %+v", b)
	}

	hello := "<p>Hello</p>"
	if _, err := f.client.UpdateBlock(f.ctx, b.ID, domain.BlockPatch{Content: &hello}); err != nil {
		t.Fatalf("update: %v", err)
	}
	got, err := f.client.GetBlock(f.ctx, b.ID)
	if err != nil || got.Content != hello {
		t.Fatalf("get: %v %+v", err, got)
	}
	blocks, err := f.client.ListBlocksForPage(f.ctx, 1)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(blocks) != 1 || blocks[0].Content != hello {
		t.Fatalf("unexpected list: %+v", blocks)
	}

	if err := f.client.DeleteBlock(f.ctx, b.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := f.client.DeleteBlock(f.ctx, b.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected ErrNotFound on second delete, got %v", err)
	}
}

func TestClient_BlankWriteRejected(t *testing.T) {
	f := newFixture(t)
	b, _ := f.client.CreateBlock(f.ctx, 1, domain.Rect{})
	hello := "<p>Hello</p>"
	f.client.UpdateBlock(f.ctx, b.ID, domain.BlockPatch{Content: &hello})

	blank := "<p><br></p>"
	_, err := f.client.UpdateBlock(f.ctx, b.ID, domain.BlockPatch{Content: &blank})
	if !errors.Is(err, domain.ErrValidationRejected) {
		t.Fatalf("expected ErrValidationRejected, got %v", err)
	}
	blocks, _ := f.client.ListBlocksForPage(f.ctx, 1)
	if blocks[0].Content != hello {
		t.Errorf("content changed to %q", blocks[0].Content)
	}
}

func TestClient_EmptyPage(t *testing.T) {
	f := newFixture(t)
	blocks, err := f.client.ListBlocksForPage(f.ctx, 42)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(blocks) != 0 {
		t.Errorf("expected no blocks, got %d", len(blocks))
	}
	st, err := f.client.PageState(f.ctx, 42, 0)
	if err != nil {
		t.Fatalf("state: %v", err)
	}
	if st.Extent.Height != 1600 {
		t.Errorf("expected 2 × 800 extent, got %d", st.Extent.Height)
	}
}

func TestClient_PageStateOrder(t *testing.T) {
	f := newFixture(t)
	low, _ := f.client.CreateBlock(f.ctx, 1, domain.Rect{X: 0, Y: 500})
	right, _ := f.client.CreateBlock(f.ctx, 1, domain.Rect{X: 400, Y: 10})
	left, _ := f.client.CreateBlock(f.ctx, 1, domain.Rect{X: 0, Y: 30})

	st, err := f.client.PageState(f.ctx, 1, 1000)
	if err != nil {
		t.Fatalf("state: %v", err)
	}
	want := []int64{left.ID, right.ID, low.ID}
	for i, b := range st.Blocks {
		if b.ID != want[i] {
			t.Fatalf("position %d: expected block %d, got %d", i, want[i], b.ID)
		}
	}
	if st.Extent.Height != 900 {
		t.Errorf("expected extent 700+200, got %d", st.Extent.Height)
	}
}

func TestServer_BadParams(t *testing.T) {
	f := newFixture(t)
	for _, tc := range []struct {
		method, path string
		status       int
	}{
		{http.MethodGet, "/pages/abc/blocks", http.StatusUnprocessableEntity},
		{http.MethodGet, "/pages/1/state?viewport=-3", http.StatusUnprocessableEntity},
		{http.MethodDelete, "/blocks/1/images", http.StatusUnprocessableEntity},
		{http.MethodPatch, "/blocks/999", http.StatusNotFound},
		{http.MethodGet, "/healthz", http.StatusOK},
	} {
		req, _ := http.NewRequest(tc.method, f.srv.URL+tc.path, nil)
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			t.Fatalf("%s %s: %v", tc.method, tc.path, err)
		}
		resp.Body.Close()
		if resp.StatusCode != tc.status {
			t.Errorf("%s %s: expected %d, got %d", tc.method, tc.path, tc.status, resp.StatusCode)
		}
		if resp.Header.Get("X-Request-ID") == "" {
			t.Errorf("%s %s: missing request id", tc.method, tc.path)
		}
	}
}

// ─────────────────────────────────────────────────────────────
// Images and attachments
// ─────────────────────────────────────────────────────────────

func TestClient_ImageDimensions(t *testing.T) {
	f := newFixture(t)
	b, _ := f.client.CreateBlock(f.ctx, 1, domain.Rect{})
	url := "/files/a b.png"

	w := 420
	d, err := f.client.UpsertImageDimension(f.ctx, b.ID, url, domain.ImageDimensionFields{Width: &w})
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if d.ImageURL != url || d.Width != 420 || d.Height != 200 {
		t.Errorf("unexpected row: %+v", d)
	}
	dims, _ := f.client.ListImageDimensions(f.ctx, b.ID)
	if len(dims) != 1 {
		t.Fatalf("expected one row, got %d", len(dims))
	}

	zero := 0
	if _, err := f.client.UpsertImageDimension(f.ctx, b.ID, url, domain.ImageDimensionFields{Height: &zero}); !errors.Is(err, domain.ErrValidationRejected) {
		t.Errorf("expected ErrValidationRejected, got %v", err)
	}
	if err := f.client.DeleteImageDimension(f.ctx, b.ID, url); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := f.client.DeleteImageDimension(f.ctx, b.ID, url); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestClient_UploadContentImage(t *testing.T) {
	f := newFixture(t)
	b, _ := f.client.CreateBlock(f.ctx, 1, domain.Rect{})

	img, err := f.client.UploadContentImage(f.ctx, b.ID, "photo.PNG", pngBytes(t, 800, 600))
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	if img.Dimension.OriginalWidth != 800 || img.Dimension.Width != 300 {
		t.Errorf("unexpected dimension: %+v", img.Dimension)
	}

	resp, err := http.Get(f.srv.URL + img.URL)
	if err != nil {
		t.Fatalf("fetch file: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 serving %s, got %d", img.URL, resp.StatusCode)
	}
	cfg, err := png.DecodeConfig(resp.Body)
	if err != nil || cfg.Width != 800 {
		t.Errorf("served file is not the uploaded png: %v", err)
	}
}

func TestClient_Attachments(t *testing.T) {
	f := newFixture(t)
	b, _ := f.client.CreateBlock(f.ctx, 1, domain.Rect{})

	a, err := f.client.UploadAttachment(f.ctx, b.ID, "notes.txt", []byte("plain text"))
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	if a.Type != domain.AttachmentTypeFile || a.Name != "notes.txt" {
		t.Errorf("unexpected attachment: %+v", a)
	}
	if _, err := f.client.UploadAttachment(f.ctx, b.ID, "big.bin", make([]byte, 2<<20)); !errors.Is(err, domain.ErrValidationRejected) {
		t.Errorf("oversized upload: expected ErrValidationRejected, got %v", err)
	}

	linked, err := f.client.CreateAttachment(f.ctx, b.ID, "cat.png", "https://example.com/cat.png", domain.AttachmentTypeImage)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	gone, err := f.client.DeleteAttachment(f.ctx, linked.ID)
	if err != nil || gone.ID != linked.ID {
		t.Fatalf("delete: %v %+v", err, gone)
	}
	if _, err := f.client.DeleteAttachment(f.ctx, linked.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestClient_ServerDown(t *testing.T) {
	c := httpapi.NewClient("http://127.0.0.1:1", &http.Client{Timeout: 200 * time.Millisecond})
	if _, err := c.ListBlocksForPage(context.Background(), 1); !errors.Is(err, domain.ErrStorageUnavailable) {
		t.Errorf("expected ErrStorageUnavailable, got %v", err)
	}
}

// ─────────────────────────────────────────────────────────────
// Canvas over the remote gateway
// ─────────────────────────────────────────────────────────────

func TestContainerOverClient(t *testing.T) {
	f := newFixture(t)
	b, _ := f.client.CreateBlock(f.ctx, 1, domain.Rect{X: 50, Y: 50})
	hello := "<p>Hello</p>"
	f.client.UpdateBlock(f.ctx, b.ID, domain.BlockPatch{Content: &hello})

	c := canvas.NewContainer(f.client, 1, canvas.Options{Debounce: 10 * time.Millisecond, Logger: log.New(io.Discard)})
	if err := c.Load(f.ctx); err != nil {
		t.Fatalf("load: %v", err)
	}
	if !c.EditContent(f.ctx, b.ID, "<p>Hello, world</p>") {
		t.Fatal("edit refused")
	}
	if err := c.Close(f.ctx); err != nil {
		t.Fatalf("close: %v", err)
	}

	blocks, _ := f.client.ListBlocksForPage(f.ctx, 1)
	if blocks[0].Content != "<p>Hello, world</p>" {
		t.Errorf("expected flushed content, got %q", blocks[0].Content)
	}
}
