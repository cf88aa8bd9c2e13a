package domain

import "math"

// Block size limits and defaults, in canvas pixels.
const (
	MinBlockWidth      = 50
	MinBlockHeight     = 30
	MaxBlockWidth      = 2000
	MaxBlockHeight     = 1500
	DefaultBlockWidth  = 300
	DefaultBlockHeight = 200
)

// Rect is a block's rectangle in canvas-local integer pixels.
type Rect struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Point is a position in pixels. Pointer coordinates may be fractional.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Sub returns p - q.
func (p Point) Sub(q Point) Point { return Point{X: p.X - q.X, Y: p.Y - q.Y} }

// RoundRect builds a Rect from fractional values. It rounds half away from
// zero so repeated moves do not drift toward the origin.
func RoundRect(x, y, w, h float64) Rect {
	return Rect{
		X:      int(math.Round(x)),
		Y:      int(math.Round(y)),
		Width:  int(math.Round(w)),
		Height: int(math.Round(h)),
	}
}

// Clamp returns r with a non-negative origin and a size inside the block limits.
func (r Rect) Clamp() Rect {
	r.X = max(r.X, 0)
	r.Y = max(r.Y, 0)
	r.Width = ClampWidth(r.Width)
	r.Height = ClampHeight(r.Height)
	return r
}

func ClampWidth(w int) int  { return min(max(w, MinBlockWidth), MaxBlockWidth) }
func ClampHeight(h int) int { return min(max(h, MinBlockHeight), MaxBlockHeight) }

// Bottom is the y coordinate of the lower edge.
func (r Rect) Bottom() int { return r.Y + r.Height }

// Contains reports whether p lies inside r.
func (r Rect) Contains(p Point) bool {
	return p.X >= float64(r.X) && p.X < float64(r.X+r.Width) &&
		p.Y >= float64(r.Y) && p.Y < float64(r.Y+r.Height)
}

// Extent is the current scrollable size of a page's canvas.
type Extent struct {
	Height int `json:"height"`
}
