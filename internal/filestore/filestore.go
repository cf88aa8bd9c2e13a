// Package filestore keeps uploaded files on local disk and maps them to
// public URLs.
package filestore

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"blockcanvas/internal/domain"

	"github.com/google/uuid"
)

// Store saves files under Root, laid out as YYYY/MM/DD/<uuid><ext>, and
// serves them under BaseURL.
type Store struct {
	Root    string
	BaseURL string
	// MaxBytes rejects larger uploads when positive.
	MaxBytes int64

	now func() time.Time
}

func New(root, baseURL string, maxBytes int64) *Store {
	return &Store{
		Root:     root,
		BaseURL:  strings.TrimRight(baseURL, "/"),
		MaxBytes: maxBytes,
		now:      time.Now,
	}
}

// Upload writes data under a fresh name keeping the extension of name,
// and returns its public URL.
func (s *Store) Upload(ctx context.Context, name string, data []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if s.MaxBytes > 0 && int64(len(data)) > s.MaxBytes {
		return "", domain.Rejectf("file %q is %d bytes, limit is %d", name, len(data), s.MaxBytes)
	}

	now := s.now()
	rel := path.Join(now.Format("2006"), now.Format("01"), now.Format("02"),
		uuid.New().String()+strings.ToLower(filepath.Ext(name)))
	dst := filepath.Join(s.Root, filepath.FromSlash(rel))

	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return "", fmt.Errorf("%w: create upload dir: %w", domain.ErrFileIO, err)
	}
	out, err := os.Create(dst)
	if err != nil {
		return "", fmt.Errorf("%w: create file: %w", domain.ErrFileIO, err)
	}
	if _, err := io.Copy(out, bytes.NewReader(data)); err != nil {
		out.Close()
		os.Remove(dst)
		return "", fmt.Errorf("%w: write file: %w", domain.ErrFileIO, err)
	}
	if err := out.Close(); err != nil {
		os.Remove(dst)
		return "", fmt.Errorf("%w: close file: %w", domain.ErrFileIO, err)
	}
	return s.BaseURL + "/" + rel, nil
}

// Delete removes the file behind url. A missing file is not an error.
func (s *Store) Delete(ctx context.Context, url string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p, err := s.Path(url)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("%w: remove %s: %w", domain.ErrFileIO, url, err)
	}
	return nil
}

// Open returns a reader for the file behind url.
func (s *Store) Open(url string) (*os.File, error) {
	p, err := s.Path(url)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(p)
	if os.IsNotExist(err) {
		return nil, domain.NotFoundf("file %s", url)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %w", domain.ErrFileIO, url, err)
	}
	return f, nil
}

// Owns reports whether url points into this store.
func (s *Store) Owns(url string) bool {
	_, err := s.Path(url)
	return err == nil
}

// Path maps a public URL to its location on disk, refusing anything that
// would escape Root.
func (s *Store) Path(url string) (string, error) {
	rel, ok := strings.CutPrefix(url, s.BaseURL+"/")
	if !ok {
		return "", fmt.Errorf("%w: %s is not served from %s", domain.ErrFileIO, url, s.BaseURL)
	}
	clean := path.Clean("/" + rel)[1:]
	if clean == "" || clean != rel {
		return "", fmt.Errorf("%w: invalid file path %q", domain.ErrFileIO, rel)
	}
	return filepath.Join(s.Root, filepath.FromSlash(clean)), nil
}
