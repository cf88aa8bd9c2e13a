package domain

import "context"

// Gateway is the boundary between the canvas engine and storage.
// Every call may suspend and may fail with ErrStorageUnavailable or ErrNotFound.
type Gateway interface {
	CreateBlock(ctx context.Context, pageID int64, r Rect) (*Block, error)
	UpdateBlock(ctx context.Context, id int64, p BlockPatch) (*Block, error)
	// DeleteBlock cascades to the block's attachments and image dimensions.
	DeleteBlock(ctx context.Context, id int64) error
	ListBlocksForPage(ctx context.Context, pageID int64) ([]Block, error)

	ListImageDimensions(ctx context.Context, blockID int64) ([]ImageDimension, error)
	UpsertImageDimension(ctx context.Context, blockID int64, imageURL string, f ImageDimensionFields) (*ImageDimension, error)
	DeleteImageDimension(ctx context.Context, blockID int64, imageURL string) error

	CreateAttachment(ctx context.Context, blockID int64, name, url string, t AttachmentType) (*Attachment, error)
	DeleteAttachment(ctx context.Context, id int64) (*Attachment, error)
}

// Store is what a storage backend provides to the server-side gateway.
type Store interface {
	BlockStore
	AttachmentStore
	ImageDimensionStore
	Close() error
}
