package canvas

import (
	"context"
	"errors"
	"sync"
	"time"

	"blockcanvas/internal/domain"

	"github.com/charmbracelet/log"
)

// DefaultViewportHeight is assumed until SetViewport is called.
const DefaultViewportHeight = 900

// Options configures a Container. Zero values take defaults.
type Options struct {
	Debounce       time.Duration
	ExtendStep     int
	ExtendCooldown time.Duration
	ViewportHeight int
	// Timeout bounds background gateway calls.
	Timeout time.Duration
	Logger  *log.Logger
	Emitter Emitter
}

// DropTarget is the canvas area that accepts dropped blocks, in pointer
// coordinates. A zero Width means the canvas is unbounded horizontally.
type DropTarget struct {
	Origin domain.Point `json:"origin"`
	Width  float64      `json:"width"`
	Height float64      `json:"height"`
}

// Contains reports whether p lies on the canvas.
func (t DropTarget) Contains(p domain.Point) bool {
	if p.X < t.Origin.X || p.Y < t.Origin.Y || p.Y >= t.Origin.Y+t.Height {
		return false
	}
	return t.Width <= 0 || p.X < t.Origin.X+t.Width
}

// Container is the canvas of one page. It owns the page's editors, the
// extent, and the single drop target and content event dispatcher.
type Container struct {
	gw       domain.Gateway
	pageID   int64
	opts     Options
	coord    CoordinatorOptions
	logger   *log.Logger
	guard    inflightGuard
	handlers map[Role]contentHandler

	mu       sync.Mutex
	editors  map[int64]*Editor
	extender *Extender
	origin   domain.Point
	width    float64
	viewport int
}

func NewContainer(gw domain.Gateway, pageID int64, opts Options) *Container {
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	if opts.Emitter == nil {
		opts.Emitter = nopEmitter{}
	}
	if opts.ViewportHeight <= 0 {
		opts.ViewportHeight = DefaultViewportHeight
	}
	logger := opts.Logger.With("page", pageID)
	return &Container{
		gw:     gw,
		pageID: pageID,
		opts:   opts,
		coord: CoordinatorOptions{
			Debounce: opts.Debounce,
			Timeout:  opts.Timeout,
			Logger:   logger,
			Emitter:  opts.Emitter,
		},
		logger:   logger,
		handlers: contentHandlers(),
		editors:  make(map[int64]*Editor),
		extender: NewExtender(EmptyExtentViewports*opts.ViewportHeight, opts.ExtendStep, opts.ExtendCooldown),
		viewport: opts.ViewportHeight,
	}
}

// PageID returns the page this container shows.
func (c *Container) PageID() int64 { return c.pageID }

// SetViewport records where the canvas sits in pointer coordinates, its
// visible width and the viewport height.
func (c *Container) SetViewport(origin domain.Point, width float64, viewportHeight int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.origin = origin
	c.width = width
	if viewportHeight > 0 {
		c.viewport = viewportHeight
	}
}

// DropTarget returns the single drop target used by drags.
func (c *Container) DropTarget() DropTarget {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.dropTargetLocked()
}

func (c *Container) dropTargetLocked() DropTarget {
	return DropTarget{Origin: c.origin, Width: c.width, Height: float64(c.extender.Extent())}
}

// Load fetches the page's blocks, mounts an editor per block and resets
// the extent. Editors from a previous load are flushed and unmounted
// first, so the fresh editors start from what those edits stored.
func (c *Container) Load(ctx context.Context) error {
	c.mu.Lock()
	old := c.editors
	c.editors = make(map[int64]*Editor)
	c.mu.Unlock()
	for _, ed := range old {
		if err := ed.unmount(ctx, false); err != nil {
			c.logger.Warn("unmount failed", "block", ed.Block().ID, "err", err)
		}
	}

	blocks, err := c.gw.ListBlocksForPage(ctx, c.pageID)
	if err != nil {
		notify(ctx, c.logger, c.opts.Emitter, 0, "load page", err)
		return err
	}
	onPage := blocks[:0]
	for _, b := range blocks {
		if b.PageID == c.pageID {
			onPage = append(onPage, b)
		}
	}

	editors := make(map[int64]*Editor, len(onPage))
	for _, b := range onPage {
		ed := newEditor(c.gw, b, &c.guard, c.coord)
		if b.ImageDimensions != nil {
			ed.images.seed(b.ImageDimensions)
		} else if err := ed.images.Load(ctx); err != nil {
			notify(ctx, c.logger, c.opts.Emitter, b.ID, "load image dimensions", err)
		}
		editors[b.ID] = ed
	}

	c.mu.Lock()
	c.editors = editors
	c.extender = NewExtender(InitialExtent(onPage, c.viewport), c.opts.ExtendStep, c.opts.ExtendCooldown)
	c.mu.Unlock()

	c.logger.Debug("page loaded", "blocks", len(onPage), "extent", c.Extent())
	return nil
}

// Blocks returns the page's blocks in reading order with display numbers.
func (c *Container) Blocks() []BlockView {
	editors := c.snapshot()
	blocks := make([]domain.Block, len(editors))
	byID := make(map[int64]*Editor, len(editors))
	for i, ed := range editors {
		blocks[i] = ed.Block()
		byID[blocks[i].ID] = ed
	}
	SortReadingOrder(blocks)

	views := make([]BlockView, len(blocks))
	for i, b := range blocks {
		views[i] = BlockView{Block: b, Number: i + 1, Rendered: byID[b.ID].images.ApplyToContent(b.Content)}
	}
	return views
}

// Editor returns the mounted editor of a block.
func (c *Container) Editor(id int64) (*Editor, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	ed, ok := c.editors[id]
	return ed, ok
}

func (c *Container) editor(id int64) (*Editor, error) {
	if ed, ok := c.Editor(id); ok {
		return ed, nil
	}
	return nil, domain.NotFoundf("block %d is not on page %d", id, c.pageID)
}

// AddBlockAt creates a 300×200 block with its top-left at (x, y).
func (c *Container) AddBlockAt(ctx context.Context, x, y float64) (*domain.Block, error) {
	r := domain.RoundRect(x, y, domain.DefaultBlockWidth, domain.DefaultBlockHeight).Clamp()
	b, err := c.gw.CreateBlock(ctx, c.pageID, r)
	if err != nil {
		notify(ctx, c.logger, c.opts.Emitter, 0, "add block", err)
		return nil, err
	}
	ed := newEditor(c.gw, *b, &c.guard, c.coord)
	c.mu.Lock()
	c.editors[b.ID] = ed
	c.mu.Unlock()
	c.fit(ctx, b.Rect())
	return b, nil
}

// DeleteBlock deletes a block through the gateway, which cascades to its
// attachments and image dimensions, then unmounts its editor. A block the
// gateway no longer knows is unmounted as well.
func (c *Container) DeleteBlock(ctx context.Context, id int64) error {
	ed, err := c.editor(id)
	if err != nil {
		return err
	}
	err = c.gw.DeleteBlock(ctx, id)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		notify(ctx, c.logger, c.opts.Emitter, id, "delete block", err)
		return err
	}
	c.mu.Lock()
	delete(c.editors, id)
	c.mu.Unlock()
	ed.unmount(ctx, true)
	if err != nil {
		notify(ctx, c.logger, c.opts.Emitter, id, "delete block", err)
	}
	return err
}

// ── Drag ────────────────────────────────────────────────────

// BeginDrag starts dragging a block. It returns false when a resize
// handle is targeted or another gesture is running on the block.
func (c *Container) BeginDrag(id int64, pointer domain.Point, handleTargeted bool) bool {
	ed, err := c.editor(id)
	if err != nil {
		return false
	}
	origin := c.DropTarget().Origin
	ed.mu.Lock()
	defer ed.mu.Unlock()
	return ed.gesture.BeginDrag(ed.block.Rect(), pointer, origin, handleTargeted)
}

// DragMove returns the rectangle to render while dragging.
func (c *Container) DragMove(id int64, pointer domain.Point) (domain.Rect, bool) {
	ed, err := c.editor(id)
	if err != nil {
		return domain.Rect{}, false
	}
	ed.mu.Lock()
	defer ed.mu.Unlock()
	if ed.gesture.State() != Dragging {
		return ed.block.Rect(), false
	}
	return ed.gesture.DragMove(pointer), true
}

// Drop ends a drag. Inside the drop target the block takes its new
// position and the geometry is written immediately; outside it snaps
// back without a write.
func (c *Container) Drop(ctx context.Context, id int64, pointer domain.Point) (domain.Rect, bool) {
	ed, err := c.editor(id)
	if err != nil {
		return domain.Rect{}, false
	}
	target := c.DropTarget()

	ed.mu.Lock()
	if ed.gesture.State() != Dragging {
		r := ed.block.Rect()
		ed.mu.Unlock()
		return r, false
	}
	r, ok := ed.gesture.Drop(pointer, target.Origin, target.Contains(pointer))
	if ok {
		ed.setRect(r)
	}
	ed.mu.Unlock()

	if ok {
		ed.saves.SaveGeometry(ctx, r)
		c.fit(ctx, r)
	}
	return r, ok
}

// CancelDrag abandons a drag without writing.
func (c *Container) CancelDrag(id int64) domain.Rect {
	ed, err := c.editor(id)
	if err != nil {
		return domain.Rect{}
	}
	ed.mu.Lock()
	defer ed.mu.Unlock()
	return ed.gesture.Cancel()
}

// ── Resize ──────────────────────────────────────────────────

// BeginResize starts resizing a block from handle h. Dragging the block
// is impossible until the resize ends.
func (c *Container) BeginResize(id int64, h Handle, pointer domain.Point) bool {
	ed, err := c.editor(id)
	if err != nil {
		return false
	}
	ed.mu.Lock()
	defer ed.mu.Unlock()
	return ed.gesture.BeginResize(ed.block.Rect(), h, pointer)
}

// ResizeMove returns the rectangle to render while resizing. Nothing is
// written.
func (c *Container) ResizeMove(id int64, pointer domain.Point) (domain.Rect, bool) {
	ed, err := c.editor(id)
	if err != nil {
		return domain.Rect{}, false
	}
	ed.mu.Lock()
	defer ed.mu.Unlock()
	if ed.gesture.State() != Resizing {
		return ed.block.Rect(), false
	}
	return ed.gesture.ResizeMove(pointer), true
}

// EndResize finishes a resize and writes the final geometry immediately.
func (c *Container) EndResize(ctx context.Context, id int64, pointer domain.Point) (domain.Rect, bool) {
	ed, err := c.editor(id)
	if err != nil {
		return domain.Rect{}, false
	}
	ed.mu.Lock()
	r, ok := ed.gesture.EndResize(pointer)
	if ok {
		ed.setRect(r)
	}
	ed.mu.Unlock()

	if ok {
		ed.saves.SaveGeometry(ctx, r)
		c.fit(ctx, r)
	}
	return r, ok
}

// CancelResize abandons a resize and returns the original rectangle.
// Nothing is written.
func (c *Container) CancelResize(id int64) domain.Rect {
	ed, err := c.editor(id)
	if err != nil {
		return domain.Rect{}
	}
	ed.mu.Lock()
	defer ed.mu.Unlock()
	return ed.gesture.CancelResize()
}

// ── Content ─────────────────────────────────────────────────

// EditContent applies a content edit to a block. It returns false when the
// edit was refused by the anti-deletion guard or the block is unknown.
func (c *Container) EditContent(ctx context.Context, id int64, content string) bool {
	ed, err := c.editor(id)
	if err != nil {
		return false
	}
	return ed.EditContent(ctx, content)
}

// EditTitle applies a title edit to a block.
func (c *Container) EditTitle(id int64, title string) bool {
	ed, err := c.editor(id)
	if err != nil {
		return false
	}
	ed.EditTitle(title)
	return true
}

// HandleContentEvent is the container's single listener for events raised
// inside block content. Failures are reported as notices and returned.
func (c *Container) HandleContentEvent(ctx context.Context, blockID int64, ev ContentEvent) error {
	handle, ok := c.handlers[ev.Role]
	if !ok {
		return domain.Rejectf("unknown content event role %q", ev.Role)
	}
	if ev.URL == "" {
		return domain.Rejectf("%s event without image url", ev.Role)
	}
	ed, err := c.editor(blockID)
	if err != nil {
		return err
	}
	if err := handle(ctx, ed, ev); err != nil {
		notify(ctx, c.logger, c.opts.Emitter, blockID, string(ev.Role), err)
		return err
	}
	return nil
}

// ── Extent ──────────────────────────────────────────────────

// Extent returns the canvas's current scrollable height.
func (c *Container) Extent() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.extender.Extent()
}

// ExtendState reports whether an extension cooldown is running.
func (c *Container) ExtendState() ExtendState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.extender.State()
}

// Scroll, Wheel and Key feed viewport signals to the extender.
func (c *Container) Scroll(ctx context.Context, scrollTop float64) (int, bool) {
	return c.extend(ctx, func(e *Extender, vh float64) (int, bool) { return e.Scroll(scrollTop, vh) })
}

func (c *Container) Wheel(ctx context.Context, deltaY, scrollTop float64) (int, bool) {
	return c.extend(ctx, func(e *Extender, vh float64) (int, bool) { return e.Wheel(deltaY, scrollTop, vh) })
}

func (c *Container) Key(ctx context.Context, key string, scrollTop float64) (int, bool) {
	return c.extend(ctx, func(e *Extender, vh float64) (int, bool) { return e.Key(key, scrollTop, vh) })
}

func (c *Container) extend(ctx context.Context, fn func(*Extender, float64) (int, bool)) (int, bool) {
	c.mu.Lock()
	extent, ok := fn(c.extender, float64(c.viewport))
	c.mu.Unlock()
	if ok {
		c.opts.Emitter.Emit(ctx, EventExtent, domain.Extent{Height: extent})
	}
	return extent, ok
}

// fit grows the extent to keep r above the bottom margin.
func (c *Container) fit(ctx context.Context, r domain.Rect) {
	c.mu.Lock()
	extent, ok := c.extender.Fit(r.Bottom())
	c.mu.Unlock()
	if ok {
		c.opts.Emitter.Emit(ctx, EventExtent, domain.Extent{Height: extent})
	}
}

// State returns the page's blocks and extent.
func (c *Container) State() domain.PageState {
	views := c.Blocks()
	blocks := make([]domain.Block, len(views))
	for i, v := range views {
		blocks[i] = v.Block
	}
	return domain.PageState{PageID: c.pageID, Blocks: blocks, Extent: domain.Extent{Height: c.Extent()}}
}

// ── Lifecycle ───────────────────────────────────────────────

// Flush sends every block's buffered edits now.
func (c *Container) Flush(ctx context.Context) error {
	var errs []error
	for _, ed := range c.snapshot() {
		if err := ed.saves.Flush(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Close flushes and unmounts every editor and waits for outstanding writes.
func (c *Container) Close(ctx context.Context) error {
	var errs []error
	for _, ed := range c.snapshot() {
		if err := ed.unmount(ctx, false); err != nil {
			errs = append(errs, err)
		}
	}
	if err := c.guard.WaitAll(ctx); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func (c *Container) snapshot() []*Editor {
	c.mu.Lock()
	defer c.mu.Unlock()
	editors := make([]*Editor, 0, len(c.editors))
	for _, ed := range c.editors {
		editors = append(editors, ed)
	}
	return editors
}
