package canvas

import (
	"sync"
	"time"

	"blockcanvas/internal/domain"
)

// Extension defaults, in canvas pixels.
const (
	DefaultExtendStep     = 300
	DefaultExtendCooldown = 800 * time.Millisecond
	ExtentMargin          = 200 // below the lowest block
	EmptyExtentViewports  = 2   // initial extent of an empty page, in viewport heights

	scrollThreshold = 150
	wheelThreshold  = 200
	keyThreshold    = 300
)

// ExtendState is the canvas extension state.
type ExtendState int

const (
	Settled ExtendState = iota
	Extending
)

func (s ExtendState) String() string {
	if s == Extending {
		return "extending"
	}
	return "settled"
}

// InitialExtent is the lowest block edge plus ExtentMargin, or
// EmptyExtentViewports viewport heights for a page without blocks.
func InitialExtent(blocks []domain.Block, viewportHeight int) int {
	if len(blocks) == 0 {
		return EmptyExtentViewports * viewportHeight
	}
	bottom := 0
	for _, b := range blocks {
		bottom = max(bottom, b.Rect().Bottom())
	}
	return bottom + ExtentMargin
}

// Extender grows a canvas's scrollable height in fixed steps when the
// viewport nears the bottom. After each step it ignores triggers for a
// cooldown so one continuous gesture cannot run away.
type Extender struct {
	mu       sync.Mutex
	extent   int
	step     int
	cooldown time.Duration
	until    time.Time
	now      func() time.Time
}

func NewExtender(initial, step int, cooldown time.Duration) *Extender {
	if step <= 0 {
		step = DefaultExtendStep
	}
	if cooldown <= 0 {
		cooldown = DefaultExtendCooldown
	}
	return &Extender{extent: initial, step: step, cooldown: cooldown, now: time.Now}
}

// Extent returns the current scrollable height.
func (e *Extender) Extent() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.extent
}

// State reports Extending while the cooldown of the last step runs.
func (e *Extender) State() ExtendState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.stateLocked()
}

func (e *Extender) stateLocked() ExtendState {
	if e.now().Before(e.until) {
		return Extending
	}
	return Settled
}

// Scroll handles a scroll position change. scrollTop is the viewport's top
// edge in canvas coordinates.
func (e *Extender) Scroll(scrollTop, viewportHeight float64) (int, bool) {
	return e.trigger(scrollTop, viewportHeight, scrollThreshold)
}

// Wheel handles a wheel event. Only downward motion (deltaY > 0) counts.
func (e *Extender) Wheel(deltaY, scrollTop, viewportHeight float64) (int, bool) {
	if deltaY <= 0 {
		return e.Extent(), false
	}
	return e.trigger(scrollTop, viewportHeight, wheelThreshold)
}

// Key handles a key press. Only ArrowDown and PageDown count.
func (e *Extender) Key(key string, scrollTop, viewportHeight float64) (int, bool) {
	if key != "ArrowDown" && key != "PageDown" {
		return e.Extent(), false
	}
	return e.trigger(scrollTop, viewportHeight, keyThreshold)
}

func (e *Extender) trigger(scrollTop, viewportHeight, threshold float64) (int, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	remaining := float64(e.extent) - (scrollTop + viewportHeight)
	if remaining > threshold || e.stateLocked() == Extending {
		return e.extent, false
	}
	e.extent += e.step
	e.until = e.now().Add(e.cooldown)
	return e.extent, true
}

// Fit grows the extent so that bottom plus ExtentMargin is visible. It
// never shrinks the canvas and ignores the cooldown.
func (e *Extender) Fit(bottom int) (int, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if need := bottom + ExtentMargin; need > e.extent {
		e.extent = need
		return e.extent, true
	}
	return e.extent, false
}
