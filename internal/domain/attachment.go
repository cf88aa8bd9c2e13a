package domain

import (
	"context"
	"time"
)

type AttachmentType string

const (
	AttachmentTypeImage AttachmentType = "image"
	AttachmentTypeFile  AttachmentType = "file"
)

// Attachment is a file associated with a block but not inlined into its content.
type Attachment struct {
	ID        int64          `json:"id" bson:"_id"`
	BlockID   int64          `json:"blockId" bson:"block_id"`
	Name      string         `json:"name" bson:"name"`
	URL       string         `json:"url" bson:"url"`
	Type      AttachmentType `json:"type" bson:"type"`
	CreatedAt time.Time      `json:"createdAt" bson:"created_at"`
}

type AttachmentStore interface {
	CreateAttachment(ctx context.Context, a *Attachment) error
	GetAttachment(ctx context.Context, id int64) (*Attachment, error)
	ListAttachments(ctx context.Context, blockID int64) ([]Attachment, error)
	DeleteAttachment(ctx context.Context, id int64) error
}
