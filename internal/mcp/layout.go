package mcpserver

import (
	"math"

	"blockcanvas/internal/domain"
)

const (
	GridSize = 30 // placement grid for agent-created blocks
	Padding  = 60 // 2 grid cells between blocks
	MaxRowW  = 1800
)

// LayoutEngine handles automatic placement of blocks on the canvas
// so that agent-created blocks don't overlap existing ones.
type LayoutEngine struct {
	gridSize int
	padding  int
	maxRowW  int
}

func NewLayoutEngine() *LayoutEngine {
	return &LayoutEngine{
		gridSize: GridSize,
		padding:  Padding,
		maxRowW:  MaxRowW,
	}
}

// snap rounds v to the nearest grid point.
func (le *LayoutEngine) snap(v int) int {
	return int(math.Round(float64(v)/float64(le.gridSize))) * le.gridSize
}

func intersects(a, b domain.Rect) bool {
	return a.X < b.X+b.Width && a.X+a.Width > b.X &&
		a.Y < b.Y+b.Height && a.Y+a.Height > b.Y
}

// padded grows r by the layout padding on every side.
func (le *LayoutEngine) padded(r domain.Rect) domain.Rect {
	return domain.Rect{
		X:      r.X - le.padding,
		Y:      r.Y - le.padding,
		Width:  r.Width + le.padding*2,
		Height: r.Height + le.padding*2,
	}
}

// NextPosition finds the first free grid position, scanning rows top to
// bottom, for a block of size w×h given the existing blocks on the page.
func (le *LayoutEngine) NextPosition(existing []domain.Block, w, h int) (int, int) {
	if len(existing) == 0 {
		return 0, 0
	}

	occupied := make([]domain.Rect, len(existing))
	bottom := 0
	for i, b := range existing {
		occupied[i] = le.padded(b.Rect())
		bottom = max(bottom, b.Rect().Bottom())
	}

	candidate := domain.Rect{Width: w, Height: h}
	for y := 0; y <= bottom+le.padding; y += le.gridSize {
		for x := 0; x+w <= le.maxRowW; x += le.gridSize {
			candidate.X, candidate.Y = x, y
			free := true
			for _, occ := range occupied {
				if intersects(candidate, occ) {
					free = false
					break
				}
			}
			if free {
				return x, y
			}
		}
	}

	// Fallback: place below all existing blocks
	return 0, le.snap(bottom + le.padding)
}

// ArrangeGroup places blocks in rows starting from (startX, startY),
// wrapping at the maximum row width. It modifies positions in place.
func (le *LayoutEngine) ArrangeGroup(blocks []domain.Block, startX, startY int) []domain.Block {
	x := le.snap(startX)
	y := le.snap(startY)
	rowHeight := 0

	for i := range blocks {
		if x > le.snap(startX) && x+blocks[i].Width > le.maxRowW {
			x = le.snap(startX)
			y += le.snap(rowHeight + le.padding)
			rowHeight = 0
		}
		blocks[i].X = x
		blocks[i].Y = y
		rowHeight = max(rowHeight, blocks[i].Height)
		x += le.snap(blocks[i].Width + le.padding)
	}

	return blocks
}
