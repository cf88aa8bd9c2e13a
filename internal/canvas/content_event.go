package canvas

import (
	"context"
	"math"

	"blockcanvas/internal/domain"
)

// Role tags what a content event is about.
type Role string

const (
	RoleImageInsert Role = "image-insert"
	RoleImageResize Role = "image-resize"
	RoleImageDelete Role = "image-delete"
	RoleImageMove   Role = "image-move"
)

// ContentEvent is raised from inside a block's rich content. The container
// routes every event through one dispatcher keyed on Role.
type ContentEvent struct {
	Role Role   `json:"role"`
	URL  string `json:"url"`
	Name string `json:"name,omitempty"`
	// Display size for resize events. Fractional sizes are rounded.
	Width  float64 `json:"width,omitempty"`
	Height float64 `json:"height,omitempty"`
	// Offset within the content flow for move events.
	X float64 `json:"x,omitempty"`
	Y float64 `json:"y,omitempty"`
	// Intrinsic size for insert events, zero when unknown.
	OriginalWidth  int `json:"originalWidth,omitempty"`
	OriginalHeight int `json:"originalHeight,omitempty"`
}

type contentHandler func(ctx context.Context, ed *Editor, ev ContentEvent) error

func contentHandlers() map[Role]contentHandler {
	return map[Role]contentHandler{
		RoleImageInsert: func(ctx context.Context, ed *Editor, ev ContentEvent) error {
			_, err := ed.images.Insert(ctx, ev.URL, ev.Name, ev.OriginalWidth, ev.OriginalHeight)
			return err
		},
		RoleImageResize: func(ctx context.Context, ed *Editor, ev ContentEvent) error {
			w, h := int(math.Round(ev.Width)), int(math.Round(ev.Height))
			if w <= 0 || h <= 0 {
				return domain.Rejectf("image size must be positive, got %vx%v", ev.Width, ev.Height)
			}
			_, err := ed.images.Resize(ctx, ev.URL, w, h)
			return err
		},
		RoleImageMove: func(ctx context.Context, ed *Editor, ev ContentEvent) error {
			_, err := ed.images.Move(ctx, ev.URL, int(math.Round(ev.X)), int(math.Round(ev.Y)))
			return err
		},
		RoleImageDelete: func(ctx context.Context, ed *Editor, ev ContentEvent) error {
			return ed.images.Delete(ctx, ev.URL)
		},
	}
}
