package service

import (
	"context"
	"fmt"

	"blockcanvas/internal/domain"
	"blockcanvas/internal/imagemeta"
)

// ContentImage is the result of uploading an image meant to be inlined
// into a block's rich content.
type ContentImage struct {
	URL       string                 `json:"url"`
	Dimension *domain.ImageDimension `json:"dimension"`
}

// UploadContentImage stores an image and seeds its dimension row with the
// default display size and its intrinsic size. Unreadable images are
// accepted and recorded with a 300×200 intrinsic size.
func (s *BlockService) UploadContentImage(ctx context.Context, blockID int64, name string, data []byte) (*ContentImage, error) {
	if s.files == nil {
		return nil, fmt.Errorf("%w: uploads are not configured", domain.ErrFileIO)
	}
	if _, err := s.store.GetBlock(ctx, blockID); err != nil {
		return nil, err
	}
	size, ok := imagemeta.SizeOrFallback(data)
	if !ok {
		s.logger.Debug("image size unreadable, using default", "name", name)
	}

	url, err := s.files.Upload(ctx, name, data)
	if err != nil {
		return nil, fmt.Errorf("upload %s: %w", name, err)
	}
	d, err := s.UpsertImageDimension(ctx, blockID, url, domain.ImageDimensionFields{
		ImageName:      &name,
		OriginalWidth:  &size.Width,
		OriginalHeight: &size.Height,
	})
	if err != nil {
		s.removeFile(ctx, url)
		return nil, err
	}
	return &ContentImage{URL: url, Dimension: d}, nil
}

// UploadAttachment stores a file and records it as an attachment of the
// block. Decodable images become image attachments.
func (s *BlockService) UploadAttachment(ctx context.Context, blockID int64, name string, data []byte) (*domain.Attachment, error) {
	if s.files == nil {
		return nil, fmt.Errorf("%w: uploads are not configured", domain.ErrFileIO)
	}
	if _, err := s.store.GetBlock(ctx, blockID); err != nil {
		return nil, err
	}
	t := domain.AttachmentTypeFile
	if _, ok := imagemeta.SizeOrFallback(data); ok {
		t = domain.AttachmentTypeImage
	}

	url, err := s.files.Upload(ctx, name, data)
	if err != nil {
		return nil, fmt.Errorf("upload %s: %w", name, err)
	}
	a, err := s.CreateAttachment(ctx, blockID, name, url, t)
	if err != nil {
		s.removeFile(ctx, url)
		return nil, err
	}
	return a, nil
}
