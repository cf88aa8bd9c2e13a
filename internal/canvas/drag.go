package canvas

import "blockcanvas/internal/domain"

// InteractionState is the gesture a block is currently in.
type InteractionState int

const (
	Idle InteractionState = iota
	Dragging
	Resizing
)

func (s InteractionState) String() string {
	switch s {
	case Dragging:
		return "dragging"
	case Resizing:
		return "resizing"
	default:
		return "idle"
	}
}

// Interaction is the per-block drag/resize state machine. It never talks
// to the gateway; callers persist the rectangle returned by Drop or
// EndResize.
//
//	Idle --BeginDrag--> Dragging --Drop/Cancel--> Idle
//	Idle --BeginResize--> Resizing --EndResize/CancelResize--> Idle
type Interaction struct {
	state  InteractionState
	origin domain.Rect  // geometry when the gesture began
	start  domain.Point // pointer when the gesture began
	grab   domain.Point // pointer offset from the block's top-left
	live   domain.Rect  // geometry rendered during the gesture
	handle Handle
}

func (i *Interaction) State() InteractionState { return i.state }

// Live returns the geometry to render while a gesture is in progress.
func (i *Interaction) Live() domain.Rect { return i.live }

// BeginDrag starts a drag of the block at r. canvasOrigin is the canvas
// container's offset in pointer coordinates. A targeted resize handle
// takes priority and suppresses the drag, as does any gesture already in
// progress.
func (i *Interaction) BeginDrag(r domain.Rect, pointer, canvasOrigin domain.Point, handleTargeted bool) bool {
	if i.state != Idle || handleTargeted {
		return false
	}
	i.state = Dragging
	i.origin = r
	i.live = r
	i.start = pointer
	i.grab = pointer.Sub(canvasOrigin).Sub(domain.Point{X: float64(r.X), Y: float64(r.Y)})
	return true
}

// DragMove updates the visual position only.
func (i *Interaction) DragMove(pointer domain.Point) domain.Rect {
	if i.state != Dragging {
		return i.live
	}
	d := pointer.Sub(i.start)
	i.live = domain.RoundRect(float64(i.origin.X)+d.X, float64(i.origin.Y)+d.Y,
		float64(i.origin.Width), float64(i.origin.Height))
	return i.live
}

// Drop ends the drag. Inside the drop target the new position is
// pointer - grab offset - canvasOrigin, rounded and clamped to be
// non-negative, and ok is true. Outside, the drag is cancelled and the
// original rectangle is returned with ok false.
func (i *Interaction) Drop(pointer, canvasOrigin domain.Point, insideTarget bool) (r domain.Rect, ok bool) {
	if i.state != Dragging {
		return i.live, false
	}
	if !insideTarget {
		return i.Cancel(), false
	}
	p := pointer.Sub(i.grab).Sub(canvasOrigin)
	r = domain.RoundRect(max(p.X, 0), max(p.Y, 0), float64(i.origin.Width), float64(i.origin.Height))
	i.reset(r)
	return r, true
}

// Cancel abandons a drag and snaps back to the pre-drag rectangle.
func (i *Interaction) Cancel() domain.Rect {
	if i.state != Dragging {
		return i.live
	}
	r := i.origin
	i.reset(r)
	return r
}

func (i *Interaction) reset(r domain.Rect) {
	*i = Interaction{live: r}
}
