package service

import (
	"context"
	"errors"
	"fmt"

	"blockcanvas/internal/domain"
	"blockcanvas/internal/richtext"

	"github.com/charmbracelet/log"
)

// ─────────────────────────────────────────────────────────────
// Block Service: server side of the persistence gateway
// ─────────────────────────────────────────────────────────────

// FileStore holds uploaded bytes behind public URLs.
type FileStore interface {
	Upload(ctx context.Context, name string, data []byte) (string, error)
	Delete(ctx context.Context, url string) error
}

// BlockService applies the commit-time rules (sanitization, the
// anti-deletion guard, geometry clamping, cascades) on top of a store.
type BlockService struct {
	store   domain.Store
	files   FileStore
	emitter EventEmitter
	logger  *log.Logger
}

var _ domain.Gateway = (*BlockService)(nil)

// NewBlockService creates a BlockService. files may be nil when uploads
// are not served; emitter and logger default to no-op and log.Default.
func NewBlockService(store domain.Store, files FileStore, emitter EventEmitter, logger *log.Logger) *BlockService {
	if emitter == nil {
		emitter = NopEmitter{}
	}
	if logger == nil {
		logger = log.Default()
	}
	return &BlockService{store: store, files: files, emitter: emitter, logger: logger}
}

// CreateBlock creates a text block at r. A zero size gets the default
// 300×200 and the rectangle is clamped to the allowed range.
func (s *BlockService) CreateBlock(ctx context.Context, pageID int64, r domain.Rect) (*domain.Block, error) {
	if pageID <= 0 {
		return nil, domain.Rejectf("invalid page id %d", pageID)
	}
	if r.Width == 0 && r.Height == 0 {
		r.Width, r.Height = domain.DefaultBlockWidth, domain.DefaultBlockHeight
	}
	b := &domain.Block{PageID: pageID, Type: domain.BlockTypeText}
	b.SetRect(r.Clamp())
	if err := s.store.CreateBlock(ctx, b); err != nil {
		return nil, fmt.Errorf("create block: %w", err)
	}
	s.emitter.Emit(ctx, EventBlockCreated, b)
	return b, nil
}

// GetBlock returns a block with its attachments and image dimensions.
func (s *BlockService) GetBlock(ctx context.Context, id int64) (*domain.Block, error) {
	b, err := s.store.GetBlock(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.resolve(ctx, b); err != nil {
		return nil, err
	}
	return b, nil
}

// maxWriteAttempts bounds the re-read loop of a content write that keeps
// losing its precondition to concurrent writers.
const maxWriteAttempts = 5

// UpdateBlock applies p to the committed row. Only the fields p sets are
// written. Content is sanitized and checked against the committed content:
// a write that would blank non-blank content is dropped with
// ErrValidationRejected. The check is bound to the write through a content
// precondition, so a commit that slips in between is re-checked.
func (s *BlockService) UpdateBlock(ctx context.Context, id int64, p domain.BlockPatch) (*domain.Block, error) {
	if p.Type != nil && !p.Type.Valid() {
		return nil, domain.Rejectf("unknown block type %q", *p.Type)
	}
	if p.Content != nil {
		clean := richtext.Sanitize(*p.Content)
		p.Content = &clean
	}
	if p.Title != nil {
		title := richtext.StripBidi(*p.Title)
		p.Title = &title
	}
	p = p.Clamped()

	for attempt := 1; ; attempt++ {
		cur, err := s.store.GetBlock(ctx, id)
		if err != nil {
			return nil, err
		}
		if p.Empty() {
			return cur, nil
		}

		var ifContent *string
		if p.Content != nil {
			if richtext.IsDestructiveWrite(cur.Content, *p.Content) {
				s.logger.Warn("rejected blank content write", "block", id, "page", cur.PageID)
				s.emitter.Emit(ctx, EventBlockWriteRejected, map[string]any{"blockId": id, "pageId": cur.PageID})
				return nil, domain.Rejectf("block %d: blank content would replace existing content", id)
			}
			ifContent = &cur.Content
		}

		next, err := s.store.PatchBlock(ctx, id, p, ifContent)
		if errors.Is(err, domain.ErrWriteConflict) {
			if attempt < maxWriteAttempts {
				s.logger.Debug("content changed under write, retrying", "block", id, "attempt", attempt)
				continue
			}
			return nil, domain.Unavailable(fmt.Sprintf("update block %d", id), err)
		}
		if err != nil {
			return nil, fmt.Errorf("update block %d: %w", id, err)
		}
		s.emitter.Emit(ctx, EventBlockUpdated, next)
		return next, nil
	}
}

// DeleteBlock removes a block with its attachments and image dimensions,
// then removes the attachment files on a best-effort basis.
func (s *BlockService) DeleteBlock(ctx context.Context, id int64) error {
	b, err := s.store.GetBlock(ctx, id)
	if err != nil {
		return err
	}
	attachments, err := s.store.ListAttachments(ctx, id)
	if err != nil {
		return err
	}
	if err := s.store.DeleteBlock(ctx, id); err != nil {
		return fmt.Errorf("delete block %d: %w", id, err)
	}
	for _, a := range attachments {
		s.removeFile(ctx, a.URL)
	}
	s.emitter.Emit(ctx, EventBlockDeleted, map[string]any{"blockId": id, "pageId": b.PageID})
	return nil
}

// ListBlocksForPage returns the page's blocks with attachments and image
// dimensions resolved.
func (s *BlockService) ListBlocksForPage(ctx context.Context, pageID int64) ([]domain.Block, error) {
	blocks, err := s.store.ListBlocks(ctx, pageID)
	if err != nil {
		return nil, err
	}
	out := blocks[:0]
	for i := range blocks {
		if blocks[i].PageID != pageID {
			continue
		}
		if err := s.resolve(ctx, &blocks[i]); err != nil {
			return nil, err
		}
		out = append(out, blocks[i])
	}
	return out, nil
}

func (s *BlockService) resolve(ctx context.Context, b *domain.Block) error {
	var err error
	if b.Attachments, err = s.store.ListAttachments(ctx, b.ID); err != nil {
		return err
	}
	if b.ImageDimensions, err = s.store.ListImageDimensions(ctx, b.ID); err != nil {
		return err
	}
	return nil
}

// ── Image dimensions ────────────────────────────────────────

func (s *BlockService) ListImageDimensions(ctx context.Context, blockID int64) ([]domain.ImageDimension, error) {
	return s.store.ListImageDimensions(ctx, blockID)
}

func (s *BlockService) UpsertImageDimension(ctx context.Context, blockID int64, imageURL string, f domain.ImageDimensionFields) (*domain.ImageDimension, error) {
	if imageURL == "" {
		return nil, domain.Rejectf("image url is required")
	}
	d, err := s.store.UpsertImageDimension(ctx, blockID, imageURL, f)
	if err != nil {
		return nil, err
	}
	s.emitter.Emit(ctx, EventImageUpdated, d)
	return d, nil
}

func (s *BlockService) DeleteImageDimension(ctx context.Context, blockID int64, imageURL string) error {
	if err := s.store.DeleteImageDimension(ctx, blockID, imageURL); err != nil {
		return err
	}
	s.emitter.Emit(ctx, EventImageDeleted, map[string]any{"blockId": blockID, "imageUrl": imageURL})
	return nil
}

// ── Attachments ─────────────────────────────────────────────

func (s *BlockService) CreateAttachment(ctx context.Context, blockID int64, name, url string, t domain.AttachmentType) (*domain.Attachment, error) {
	if t != domain.AttachmentTypeImage && t != domain.AttachmentTypeFile {
		return nil, domain.Rejectf("unknown attachment type %q", t)
	}
	if url == "" {
		return nil, domain.Rejectf("attachment url is required")
	}
	a := &domain.Attachment{BlockID: blockID, Name: name, URL: url, Type: t}
	if err := s.store.CreateAttachment(ctx, a); err != nil {
		return nil, err
	}
	s.emitter.Emit(ctx, EventAttachmentCreated, a)
	return a, nil
}

// DeleteAttachment removes the record, then the stored file. A failed
// file removal is logged and does not fail the call.
func (s *BlockService) DeleteAttachment(ctx context.Context, id int64) (*domain.Attachment, error) {
	a, err := s.store.GetAttachment(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.store.DeleteAttachment(ctx, id); err != nil {
		return nil, err
	}
	s.removeFile(ctx, a.URL)
	s.emitter.Emit(ctx, EventAttachmentDeleted, a)
	return a, nil
}

func (s *BlockService) removeFile(ctx context.Context, url string) {
	if s.files == nil {
		return
	}
	if err := s.files.Delete(ctx, url); err != nil {
		if !errors.Is(err, domain.ErrFileIO) {
			err = fmt.Errorf("%w: %w", domain.ErrFileIO, err)
		}
		s.logger.Warn("file removal failed", "url", url, "err", err)
	}
}
