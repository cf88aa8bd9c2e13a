package canvas

import (
	"testing"

	"blockcanvas/internal/domain"
)

func pt(x, y float64) domain.Point { return domain.Point{X: x, Y: y} }

// ─────────────────────────────────────────────────────────────
// Drag
// ─────────────────────────────────────────────────────────────

func TestDrag_DropComputesPosition(t *testing.T) {
	var i Interaction
	r := domain.Rect{X: 0, Y: 0, Width: 300, Height: 200}

	// grab 10px right and below the block's corner
	if !i.BeginDrag(r, pt(10, 10), pt(0, 0), false) {
		t.Fatal("expected drag to start")
	}
	if i.State() != Dragging {
		t.Fatalf("expected dragging, got %s", i.State())
	}
	got, ok := i.Drop(pt(200, 200), pt(0, 0), true)
	if !ok {
		t.Fatal("expected drop inside the target to succeed")
	}
	want := domain.Rect{X: 190, Y: 190, Width: 300, Height: 200}
	if got != want {
		t.Errorf("expected %+v, got %+v", want, got)
	}
	if i.State() != Idle {
		t.Errorf("expected idle after drop, got %s", i.State())
	}
}

func TestDrag_CanvasOffsetAndRounding(t *testing.T) {
	var i Interaction
	r := domain.Rect{X: 100, Y: 40, Width: 300, Height: 200}
	origin := pt(30, 80)

	// pointer at block corner + (5.25, 5.75) in page coordinates
	i.BeginDrag(r, pt(135.25, 125.75), origin, false)
	got, _ := i.Drop(pt(335.75, 425.5), origin, true)
	// 335.75 - 5.25 - 30 = 300.5 -> 301; 425.5 - 5.75 - 80 = 339.75 -> 340
	if got.X != 301 || got.Y != 340 {
		t.Errorf("expected (301,340), got (%d,%d)", got.X, got.Y)
	}
}

func TestDrag_ClampsToOrigin(t *testing.T) {
	var i Interaction
	i.BeginDrag(domain.Rect{X: 20, Y: 20, Width: 300, Height: 200}, pt(30, 30), pt(0, 0), false)
	got, ok := i.Drop(pt(2, 5), pt(0, 0), true)
	if !ok || got.X != 0 || got.Y != 0 {
		t.Errorf("expected clamped (0,0), got %+v ok=%v", got, ok)
	}
}

func TestDrag_OutsideTargetSnapsBack(t *testing.T) {
	var i Interaction
	r := domain.Rect{X: 50, Y: 50, Width: 300, Height: 200}
	i.BeginDrag(r, pt(60, 60), pt(0, 0), false)
	if moved := i.DragMove(pt(500, 500)); moved.X != 490 || moved.Y != 490 {
		t.Errorf("expected visual offset (490,490), got %+v", moved)
	}

	got, ok := i.Drop(pt(5000, 5000), pt(0, 0), false)
	if ok {
		t.Fatal("drop outside the target must cancel")
	}
	if got != r {
		t.Errorf("expected snap back to %+v, got %+v", r, got)
	}
	if i.State() != Idle {
		t.Errorf("expected idle, got %s", i.State())
	}
}

func TestDrag_HandleTakesPriority(t *testing.T) {
	var i Interaction
	if i.BeginDrag(domain.Rect{Width: 300, Height: 200}, pt(299, 199), pt(0, 0), true) {
		t.Fatal("drag must not start when a resize handle is targeted")
	}
	if i.State() != Idle {
		t.Errorf("expected idle, got %s", i.State())
	}
}

// ─────────────────────────────────────────────────────────────
// Resize
// ─────────────────────────────────────────────────────────────

func TestResize_DisablesDrag(t *testing.T) {
	var i Interaction
	r := domain.Rect{X: 10, Y: 10, Width: 300, Height: 200}
	if !i.BeginResize(r, HandleBottomRight, pt(310, 210)) {
		t.Fatal("expected resize to start")
	}
	if i.BeginDrag(r, pt(100, 100), pt(0, 0), false) {
		t.Fatal("drag must be disabled while resizing")
	}
	if i.BeginResize(r, HandleRight, pt(310, 100)) {
		t.Fatal("a second resize must not start")
	}
}

func TestResize_RoundsAndClamps(t *testing.T) {
	tests := []struct {
		name   string
		handle Handle
		to     domain.Point
		want   domain.Rect
	}{
		{"grow corner", HandleBottomRight, pt(410.6, 260.4), domain.Rect{X: 10, Y: 10, Width: 401, Height: 250}},
		{"shrink below min", HandleBottomRight, pt(0, 0), domain.Rect{X: 10, Y: 10, Width: 50, Height: 30}},
		{"grow above max", HandleRight, pt(9000, 210), domain.Rect{X: 10, Y: 10, Width: 2000, Height: 200}},
		{"left edge keeps right edge", HandleLeft, pt(110, 100), domain.Rect{X: 110, Y: 10, Width: 200, Height: 200}},
		{"top edge clamped", HandleTop, pt(100, 200), domain.Rect{X: 10, Y: 180, Width: 300, Height: 30}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var i Interaction
			r := domain.Rect{X: 10, Y: 10, Width: 300, Height: 200}
			start := pt(310, 210)
			if tt.handle == HandleLeft {
				start = pt(10, 100)
			}
			if tt.handle == HandleTop {
				start = pt(100, 10)
			}
			i.BeginResize(r, tt.handle, start)
			got, ok := i.EndResize(tt.to)
			if !ok {
				t.Fatal("expected resize to end")
			}
			if got != tt.want {
				t.Errorf("expected %+v, got %+v", tt.want, got)
			}
		})
	}
}

func TestResize_CancelRestores(t *testing.T) {
	var i Interaction
	r := domain.Rect{X: 10, Y: 10, Width: 300, Height: 200}
	i.BeginResize(r, HandleBottom, pt(100, 210))
	i.ResizeMove(pt(100, 400))
	if got := i.CancelResize(); got != r {
		t.Errorf("expected %+v, got %+v", r, got)
	}
}

func TestParseHandle(t *testing.T) {
	if h, ok := ParseHandle("se"); !ok || h != HandleBottomRight {
		t.Errorf("se: got %v %v", h, ok)
	}
	if _, ok := ParseHandle("middle"); ok {
		t.Error("expected unknown handle")
	}
}
