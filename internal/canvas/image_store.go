package canvas

import (
	"context"
	"errors"
	"sync"

	"blockcanvas/internal/domain"
	"blockcanvas/internal/richtext"
)

// ImageDimensionStore is the block-scoped cache of stored geometry for the
// images embedded in one block's content. The stored rows always win over
// whatever size the markup implies.
type ImageDimensionStore struct {
	gw      domain.Gateway
	blockID int64

	mu   sync.RWMutex
	dims map[string]domain.ImageDimension
}

func NewImageDimensionStore(gw domain.Gateway, blockID int64) *ImageDimensionStore {
	return &ImageDimensionStore{gw: gw, blockID: blockID, dims: make(map[string]domain.ImageDimension)}
}

// Load replaces the cache with the block's stored rows.
func (s *ImageDimensionStore) Load(ctx context.Context) error {
	rows, err := s.gw.ListImageDimensions(ctx, s.blockID)
	if err != nil {
		return err
	}
	s.seed(rows)
	return nil
}

func (s *ImageDimensionStore) seed(rows []domain.ImageDimension) {
	dims := make(map[string]domain.ImageDimension, len(rows))
	for _, d := range rows {
		if d.BlockID == s.blockID {
			dims[d.ImageURL] = d
		}
	}
	s.mu.Lock()
	s.dims = dims
	s.mu.Unlock()
}

// Get returns the stored row for url.
func (s *ImageDimensionStore) Get(url string) (domain.ImageDimension, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.dims[url]
	return d, ok
}

// Len returns the number of cached rows.
func (s *ImageDimensionStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.dims)
}

// ApplyToContent forces every <img> with a stored row to the stored size
// and position. Content that cannot be parsed is returned unchanged.
func (s *ImageDimensionStore) ApplyToContent(content string) string {
	s.mu.RLock()
	boxes := make(map[string]richtext.Box, len(s.dims))
	for url, d := range s.dims {
		boxes[url] = richtext.Box{Width: d.Width, Height: d.Height, Left: d.PositionX, Top: d.PositionY}
	}
	s.mu.RUnlock()
	if len(boxes) == 0 {
		return content
	}
	out, err := richtext.ApplyBoxes(content, boxes)
	if err != nil {
		return content
	}
	return out
}

// Save upserts the row for url and caches the stored result.
func (s *ImageDimensionStore) Save(ctx context.Context, url string, f domain.ImageDimensionFields) (*domain.ImageDimension, error) {
	d, err := s.gw.UpsertImageDimension(ctx, s.blockID, url, f)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	s.dims[url] = *d
	s.mu.Unlock()
	return d, nil
}

// Insert records a newly inserted image at the default 300×200 display
// size. A zero intrinsic size falls back to 300×200 as well.
func (s *ImageDimensionStore) Insert(ctx context.Context, url, name string, originalWidth, originalHeight int) (*domain.ImageDimension, error) {
	if originalWidth <= 0 || originalHeight <= 0 {
		originalWidth, originalHeight = domain.DefaultImageWidth, domain.DefaultImageHeight
	}
	w, h := domain.DefaultImageWidth, domain.DefaultImageHeight
	return s.Save(ctx, url, domain.ImageDimensionFields{
		ImageName:      &name,
		Width:          &w,
		Height:         &h,
		OriginalWidth:  &originalWidth,
		OriginalHeight: &originalHeight,
	})
}

// Resize persists an observed user resize.
func (s *ImageDimensionStore) Resize(ctx context.Context, url string, width, height int) (*domain.ImageDimension, error) {
	return s.Save(ctx, url, domain.ImageDimensionFields{Width: &width, Height: &height})
}

// Move persists a new offset within the content flow.
func (s *ImageDimensionStore) Move(ctx context.Context, url string, x, y int) (*domain.ImageDimension, error) {
	return s.Save(ctx, url, domain.ImageDimensionFields{PositionX: &x, PositionY: &y})
}

// Delete removes the row for url. A row that is already gone counts as deleted.
func (s *ImageDimensionStore) Delete(ctx context.Context, url string) error {
	err := s.gw.DeleteImageDimension(ctx, s.blockID, url)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return err
	}
	s.mu.Lock()
	delete(s.dims, url)
	s.mu.Unlock()
	return nil
}

// Reset discards the cache when the owning block unmounts.
func (s *ImageDimensionStore) Reset() {
	s.mu.Lock()
	s.dims = make(map[string]domain.ImageDimension)
	s.mu.Unlock()
}
