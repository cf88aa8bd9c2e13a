package canvas

import "blockcanvas/internal/domain"

// Handle identifies the edge or corner being dragged in a resize.
type Handle int

const (
	HandleRight Handle = iota
	HandleBottom
	HandleBottomRight
	HandleLeft
	HandleTop
	HandleTopLeft
	HandleTopRight
	HandleBottomLeft
)

var handleNames = map[string]Handle{
	"e": HandleRight, "s": HandleBottom, "se": HandleBottomRight, "w": HandleLeft,
	"n": HandleTop, "nw": HandleTopLeft, "ne": HandleTopRight, "sw": HandleBottomLeft,
}

// ParseHandle maps compass names ("se", "n", ...) to a Handle.
func ParseHandle(s string) (Handle, bool) {
	h, ok := handleNames[s]
	return h, ok
}

func (h Handle) west() bool  { return h == HandleLeft || h == HandleTopLeft || h == HandleBottomLeft }
func (h Handle) east() bool  { return h == HandleRight || h == HandleTopRight || h == HandleBottomRight }
func (h Handle) north() bool { return h == HandleTop || h == HandleTopLeft || h == HandleTopRight }
func (h Handle) south() bool { return h == HandleBottom || h == HandleBottomLeft || h == HandleBottomRight }

// BeginResize starts a resize from handle h. It fails while a drag or
// another resize is in progress.
func (i *Interaction) BeginResize(r domain.Rect, h Handle, pointer domain.Point) bool {
	if i.state != Idle {
		return false
	}
	i.state = Resizing
	i.origin = r
	i.live = r
	i.start = pointer
	i.handle = h
	return true
}

// ResizeMove updates the visual rectangle only; nothing is persisted
// until EndResize.
func (i *Interaction) ResizeMove(pointer domain.Point) domain.Rect {
	if i.state != Resizing {
		return i.live
	}
	i.live = i.resized(pointer)
	return i.live
}

// EndResize finishes the gesture and returns the rounded, clamped
// rectangle to persist.
func (i *Interaction) EndResize(pointer domain.Point) (domain.Rect, bool) {
	if i.state != Resizing {
		return i.live, false
	}
	r := i.resized(pointer)
	i.reset(r)
	return r, true
}

// CancelResize abandons a resize and restores the original rectangle.
func (i *Interaction) CancelResize() domain.Rect {
	if i.state != Resizing {
		return i.live
	}
	r := i.origin
	i.reset(r)
	return r
}

// resized applies the pointer delta to the dragged edges. Sizes are
// clamped to the block limits with the opposite edge held in place.
func (i *Interaction) resized(pointer domain.Point) domain.Rect {
	d := pointer.Sub(i.start)
	o := i.origin
	w, h := float64(o.Width), float64(o.Height)

	switch {
	case i.handle.east():
		w += d.X
	case i.handle.west():
		w -= d.X
	}
	switch {
	case i.handle.south():
		h += d.Y
	case i.handle.north():
		h -= d.Y
	}

	r := domain.RoundRect(float64(o.X), float64(o.Y), w, h)
	r.Width = domain.ClampWidth(r.Width)
	r.Height = domain.ClampHeight(r.Height)
	if i.handle.west() {
		r.X = max(o.X+o.Width-r.Width, 0)
	}
	if i.handle.north() {
		r.Y = max(o.Y+o.Height-r.Height, 0)
	}
	return r
}
