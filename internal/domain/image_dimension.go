package domain

import (
	"context"
	"time"
)

// Size used for an embedded image until the user resizes it, and as the
// intrinsic size when the image metadata cannot be read.
const (
	DefaultImageWidth  = 300
	DefaultImageHeight = 200
)

// ImageDimension is the persisted geometry of one image embedded in a
// block's rich content. At most one row exists per (BlockID, ImageURL).
type ImageDimension struct {
	ID             int64     `json:"id" bson:"_id"`
	BlockID        int64     `json:"blockId" bson:"block_id"`
	AttachmentID   *int64    `json:"attachmentId" bson:"attachment_id,omitempty"`
	ImageURL       string    `json:"imageUrl" bson:"image_url"`
	ImageName      string    `json:"imageName" bson:"image_name"`
	Width          int       `json:"width" bson:"width"`
	Height         int       `json:"height" bson:"height"`
	OriginalWidth  int       `json:"originalWidth" bson:"original_width"`
	OriginalHeight int       `json:"originalHeight" bson:"original_height"`
	PositionX      int       `json:"positionX" bson:"position_x"`
	PositionY      int       `json:"positionY" bson:"position_y"`
	UpdatedAt      time.Time `json:"updatedAt" bson:"updated_at"`
}

// ImageDimensionFields is the partial payload of an upsert. On insert,
// unset sizes fall back to the defaults.
type ImageDimensionFields struct {
	AttachmentID   *int64  `json:"attachmentId,omitempty"`
	ImageName      *string `json:"imageName,omitempty"`
	Width          *int    `json:"width,omitempty"`
	Height         *int    `json:"height,omitempty"`
	OriginalWidth  *int    `json:"originalWidth,omitempty"`
	OriginalHeight *int    `json:"originalHeight,omitempty"`
	PositionX      *int    `json:"positionX,omitempty"`
	PositionY      *int    `json:"positionY,omitempty"`
}

// NewImageDimension builds the row inserted the first time a URL is seen.
func NewImageDimension(blockID int64, imageURL string, f ImageDimensionFields) ImageDimension {
	d := ImageDimension{
		BlockID:        blockID,
		ImageURL:       imageURL,
		Width:          DefaultImageWidth,
		Height:         DefaultImageHeight,
		OriginalWidth:  DefaultImageWidth,
		OriginalHeight: DefaultImageHeight,
	}
	f.Apply(&d)
	return d
}

// Apply copies the set fields onto d.
func (f ImageDimensionFields) Apply(d *ImageDimension) {
	if f.AttachmentID != nil {
		id := *f.AttachmentID
		d.AttachmentID = &id
	}
	if f.ImageName != nil {
		d.ImageName = *f.ImageName
	}
	if f.Width != nil {
		d.Width = *f.Width
	}
	if f.Height != nil {
		d.Height = *f.Height
	}
	if f.OriginalWidth != nil {
		d.OriginalWidth = *f.OriginalWidth
	}
	if f.OriginalHeight != nil {
		d.OriginalHeight = *f.OriginalHeight
	}
	if f.PositionX != nil {
		d.PositionX = *f.PositionX
	}
	if f.PositionY != nil {
		d.PositionY = *f.PositionY
	}
}

// Validate rejects sizes that cannot be rendered.
func (f ImageDimensionFields) Validate() error {
	for _, v := range []*int{f.Width, f.Height, f.OriginalWidth, f.OriginalHeight} {
		if v != nil && *v <= 0 {
			return Rejectf("image size must be positive, got %d", *v)
		}
	}
	return nil
}

type ImageDimensionStore interface {
	UpsertImageDimension(ctx context.Context, blockID int64, imageURL string, f ImageDimensionFields) (*ImageDimension, error)
	ListImageDimensions(ctx context.Context, blockID int64) ([]ImageDimension, error)
	DeleteImageDimension(ctx context.Context, blockID int64, imageURL string) error
}
