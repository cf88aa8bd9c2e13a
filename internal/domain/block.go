package domain

import (
	"context"
	"time"
)

type BlockType string

const (
	BlockTypeText  BlockType = "text"
	BlockTypeImage BlockType = "image"
	BlockTypeFile  BlockType = "file"
)

// Valid reports whether t is one of the known block types.
func (t BlockType) Valid() bool {
	switch t {
	case BlockTypeText, BlockTypeImage, BlockTypeFile:
		return true
	}
	return false
}

// Block is one positioned content unit on a page's canvas.
type Block struct {
	ID              int64            `json:"id" bson:"_id"`
	PageID          int64            `json:"pageId" bson:"page_id"`
	Type            BlockType        `json:"type" bson:"type"`
	X               int              `json:"x" bson:"x"`
	Y               int              `json:"y" bson:"y"`
	Width           int              `json:"width" bson:"width"`
	Height          int              `json:"height" bson:"height"`
	Title           string           `json:"title" bson:"title"`
	Content         string           `json:"content" bson:"content"` // rich HTML fragment
	Attachments     []Attachment     `json:"attachments" bson:"-"`
	ImageDimensions []ImageDimension `json:"imageDimensions" bson:"-"`
	CreatedAt       time.Time        `json:"createdAt" bson:"created_at"`
	UpdatedAt       time.Time        `json:"updatedAt" bson:"updated_at"`
}

// Rect returns the block's geometry.
func (b Block) Rect() Rect {
	return Rect{X: b.X, Y: b.Y, Width: b.Width, Height: b.Height}
}

// SetRect replaces the block's geometry.
func (b *Block) SetRect(r Rect) {
	b.X, b.Y, b.Width, b.Height = r.X, r.Y, r.Width, r.Height
}

// BlockPatch is a partial update. Nil fields are left untouched.
type BlockPatch struct {
	Title   *string    `json:"title,omitempty"`
	Content *string    `json:"content,omitempty"`
	Type    *BlockType `json:"type,omitempty"`
	X       *int       `json:"x,omitempty"`
	Y       *int       `json:"y,omitempty"`
	Width   *int       `json:"width,omitempty"`
	Height  *int       `json:"height,omitempty"`
}

// GeometryPatch builds a patch carrying the full rectangle.
func GeometryPatch(r Rect) BlockPatch {
	return BlockPatch{X: &r.X, Y: &r.Y, Width: &r.Width, Height: &r.Height}
}

// HasGeometry reports whether any geometry field is set.
func (p BlockPatch) HasGeometry() bool {
	return p.X != nil || p.Y != nil || p.Width != nil || p.Height != nil
}

// Empty reports whether the patch carries no fields at all.
func (p BlockPatch) Empty() bool {
	return p.Title == nil && p.Content == nil && p.Type == nil && !p.HasGeometry()
}

// Apply copies the set fields of p onto b.
func (p BlockPatch) Apply(b *Block) {
	if p.Title != nil {
		b.Title = *p.Title
	}
	if p.Content != nil {
		b.Content = *p.Content
	}
	if p.Type != nil {
		b.Type = *p.Type
	}
	if p.X != nil {
		b.X = *p.X
	}
	if p.Y != nil {
		b.Y = *p.Y
	}
	if p.Width != nil {
		b.Width = *p.Width
	}
	if p.Height != nil {
		b.Height = *p.Height
	}
}

// Clamped returns p with its geometry fields inside the block limits.
// Each field is clamped on its own, so a partial patch stays partial.
func (p BlockPatch) Clamped() BlockPatch {
	if p.X != nil {
		x := max(*p.X, 0)
		p.X = &x
	}
	if p.Y != nil {
		y := max(*p.Y, 0)
		p.Y = &y
	}
	if p.Width != nil {
		w := ClampWidth(*p.Width)
		p.Width = &w
	}
	if p.Height != nil {
		h := ClampHeight(*p.Height)
		p.Height = &h
	}
	return p
}

type BlockStore interface {
	CreateBlock(ctx context.Context, b *Block) error
	GetBlock(ctx context.Context, id int64) (*Block, error)
	ListBlocks(ctx context.Context, pageID int64) ([]Block, error)
	// PatchBlock writes only the fields p sets and returns the stored row.
	// With a non-nil ifContent the write lands only while the stored
	// content still equals *ifContent, else it fails with ErrWriteConflict.
	PatchBlock(ctx context.Context, id int64, p BlockPatch, ifContent *string) (*Block, error)
	DeleteBlock(ctx context.Context, id int64) error
}
