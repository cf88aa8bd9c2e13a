package filestore

import (
	"context"
	"errors"
	"io"
	"os"
	"strings"
	"testing"
	"time"

	"blockcanvas/internal/domain"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s := New(t.TempDir(), "/files/", 0)
	s.now = func() time.Time { return time.Date(2025, 3, 7, 10, 0, 0, 0, time.UTC) }
	return s
}

func TestUpload_WritesUnderDatePath(t *testing.T) {
	s := newTestStore(t)
	url, err := s.Upload(context.Background(), "Photo.PNG", []byte("data"))
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	if !strings.HasPrefix(url, "/files/2025/03/07/") || !strings.HasSuffix(url, ".png") {
		t.Errorf("unexpected url %q", url)
	}

	f, err := s.Open(url)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer f.Close()
	b, _ := io.ReadAll(f)
	if string(b) != "data" {
		t.Errorf("expected content 'data', got %q", b)
	}
}

func TestUpload_UniqueNames(t *testing.T) {
	s := newTestStore(t)
	a, _ := s.Upload(context.Background(), "a.png", []byte("1"))
	b, _ := s.Upload(context.Background(), "a.png", []byte("2"))
	if a == b {
		t.Fatalf("expected distinct urls, both %q", a)
	}
}

func TestUpload_SizeLimit(t *testing.T) {
	s := newTestStore(t)
	s.MaxBytes = 3
	_, err := s.Upload(context.Background(), "a.txt", []byte("four"))
	if !errors.Is(err, domain.ErrValidationRejected) {
		t.Fatalf("expected ErrValidationRejected, got %v", err)
	}
}

func TestDelete(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	url, _ := s.Upload(ctx, "a.txt", []byte("x"))
	p, _ := s.Path(url)

	if err := s.Delete(ctx, url); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := os.Stat(p); !os.IsNotExist(err) {
		t.Errorf("expected file removed, stat err %v", err)
	}
	if err := s.Delete(ctx, url); err != nil {
		t.Errorf("second delete should be a no-op, got %v", err)
	}
}

func TestPath_RejectsEscapes(t *testing.T) {
	s := newTestStore(t)
	for _, url := range []string{
		"/files/../etc/passwd",
		"/files/a/../../b",
		"/other/a.png",
		"/files/",
		"https://example.com/a.png",
	} {
		if _, err := s.Path(url); !errors.Is(err, domain.ErrFileIO) {
			t.Errorf("Path(%q): expected ErrFileIO, got %v", url, err)
		}
		if s.Owns(url) {
			t.Errorf("Owns(%q) should be false", url)
		}
	}
}

func TestOpen_Missing(t *testing.T) {
	s := newTestStore(t)
	if _, err := s.Open("/files/2025/01/01/nope.png"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
