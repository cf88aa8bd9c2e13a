package canvas

import (
	"context"
	"sync"
	"time"

	"blockcanvas/internal/domain"
	"blockcanvas/internal/richtext"

	"github.com/bep/debounce"
	"github.com/charmbracelet/log"
)

// DefaultDebounce is the quiet period before buffered edits are written.
const DefaultDebounce = time.Second

// edit holds the buffered content/title fields of one block.
type edit struct {
	title   *string
	content *string
}

func (e edit) empty() bool { return e.title == nil && e.content == nil }

func (e edit) patch() domain.BlockPatch {
	return domain.BlockPatch{Title: e.title, Content: e.content}
}

// under fills the fields e lacks from older.
func (e edit) under(older edit) edit {
	if e.title == nil {
		e.title = older.title
	}
	if e.content == nil {
		e.content = older.content
	}
	return e
}

// SaveCoordinator is the only path by which one block's fields reach the
// gateway. Content and title edits are sanitized, guarded against blanking
// and coalesced over a quiet period; geometry is written immediately.
type SaveCoordinator struct {
	gw       domain.Gateway
	blockID  int64
	guard    *inflightGuard
	debounce func(func())
	timeout  time.Duration
	logger   *log.Logger
	emitter  Emitter

	mu       sync.Mutex
	snapshot string // last content accepted locally
	pending  edit
	deferred bool // the timer fired while a write was in flight
	closed   bool

	geometry sync.WaitGroup
}

// CoordinatorOptions tunes a SaveCoordinator. Zero values take defaults.
type CoordinatorOptions struct {
	Debounce time.Duration
	// Timeout bounds each gateway call made outside a caller's context.
	Timeout time.Duration
	Logger  *log.Logger
	Emitter Emitter
}

func (o CoordinatorOptions) withDefaults() CoordinatorOptions {
	if o.Debounce <= 0 {
		o.Debounce = DefaultDebounce
	}
	if o.Timeout <= 0 {
		o.Timeout = 30 * time.Second
	}
	if o.Logger == nil {
		o.Logger = log.Default()
	}
	if o.Emitter == nil {
		o.Emitter = nopEmitter{}
	}
	return o
}

// NewSaveCoordinator creates the coordinator for block b. guard is shared
// by every coordinator of a container; nil gives the block its own.
func NewSaveCoordinator(gw domain.Gateway, b domain.Block, guard *inflightGuard, opts CoordinatorOptions) *SaveCoordinator {
	opts = opts.withDefaults()
	if guard == nil {
		guard = &inflightGuard{}
	}
	return &SaveCoordinator{
		gw:       gw,
		blockID:  b.ID,
		guard:    guard,
		debounce: debounce.New(opts.Debounce),
		timeout:  opts.Timeout,
		logger:   opts.Logger.With("block", b.ID),
		emitter:  opts.Emitter,
		snapshot: b.Content,
	}
}

// EditContent buffers new content. It returns false when the edit would
// blank non-blank content; such an edit is dropped before it is buffered.
func (c *SaveCoordinator) EditContent(ctx context.Context, content string) bool {
	clean := richtext.Sanitize(content)

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return false
	}
	if richtext.IsDestructiveWrite(c.snapshot, clean) {
		c.mu.Unlock()
		c.logger.Warn("dropped blank content edit")
		c.emitter.Emit(ctx, EventWriteRejected, map[string]any{"blockId": c.blockID})
		return false
	}
	c.snapshot = clean
	c.pending.content = &clean
	c.mu.Unlock()

	c.debounce(c.fire)
	return true
}

// EditTitle buffers a new title.
func (c *SaveCoordinator) EditTitle(title string) {
	title = richtext.StripBidi(title)
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.pending.title = &title
	c.mu.Unlock()

	c.debounce(c.fire)
}

// Snapshot returns the last content accepted locally.
func (c *SaveCoordinator) Snapshot() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshot
}

// Pending reports whether edits are buffered and not yet sent.
func (c *SaveCoordinator) Pending() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return !c.pending.empty()
}

// fire runs when the quiet period ends.
func (c *SaveCoordinator) fire() {
	c.mu.Lock()
	if c.closed || c.pending.empty() {
		c.mu.Unlock()
		return
	}
	if !c.guard.TryLock(c.blockID) {
		c.deferred = true
		c.mu.Unlock()
		return
	}
	e := c.pending
	c.pending = edit{}
	c.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()
	c.drain(ctx, e)
}

// drain writes e and then every edit deferred while it was in flight. The
// caller holds the block's guard slot; drain releases it.
func (c *SaveCoordinator) drain(ctx context.Context, e edit) error {
	for {
		err := c.send(ctx, e)

		c.mu.Lock()
		if c.deferred && !c.pending.empty() {
			c.deferred = false
			e = c.pending
			c.pending = edit{}
			c.mu.Unlock()
			continue
		}
		c.deferred = false
		c.guard.Unlock(c.blockID)
		c.mu.Unlock()
		return err
	}
}

// send issues one update. A failed write keeps its fields buffered, under
// any newer edits, so the next edit re-issues them. Rejections are final.
func (c *SaveCoordinator) send(ctx context.Context, e edit) error {
	_, err := c.gw.UpdateBlock(ctx, c.blockID, e.patch())
	if err == nil {
		return nil
	}
	if domain.KindOf(err) == domain.KindValidationRejected {
		c.emitter.Emit(ctx, EventWriteRejected, map[string]any{"blockId": c.blockID})
	} else if domain.KindOf(err) != domain.KindNotFound {
		c.mu.Lock()
		c.pending = c.pending.under(e)
		c.mu.Unlock()
	}
	notify(ctx, c.logger, c.emitter, c.blockID, "save content", err)
	return err
}

// Flush sends buffered edits now instead of waiting for the quiet period.
// If a write is in flight, the buffered edits follow it and Flush waits
// for both.
func (c *SaveCoordinator) Flush(ctx context.Context) error {
	c.mu.Lock()
	if c.pending.empty() {
		c.mu.Unlock()
		return c.guard.Wait(ctx, c.blockID)
	}
	if !c.guard.TryLock(c.blockID) {
		c.deferred = true
		c.mu.Unlock()
		return c.guard.Wait(ctx, c.blockID)
	}
	e := c.pending
	c.pending = edit{}
	c.mu.Unlock()
	return c.drain(ctx, e)
}

// SaveGeometry writes the full rectangle immediately, bypassing the quiet
// period. The write runs in the background; failures become notices and
// local geometry is kept.
func (c *SaveCoordinator) SaveGeometry(ctx context.Context, r domain.Rect) {
	c.geometry.Add(1)
	go func() {
		defer c.geometry.Done()
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.timeout)
		defer cancel()
		if _, err := c.gw.UpdateBlock(ctx, c.blockID, domain.GeometryPatch(r)); err != nil {
			notify(ctx, c.logger, c.emitter, c.blockID, "save geometry", err)
		}
	}()
}

// WaitGeometry blocks until background geometry writes have finished.
func (c *SaveCoordinator) WaitGeometry(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		c.geometry.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close flushes buffered edits, waits for outstanding writes and stops
// the coordinator. Later edits are ignored.
func (c *SaveCoordinator) Close(ctx context.Context) error {
	err := c.Flush(ctx)
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
	if werr := c.WaitGeometry(ctx); err == nil {
		err = werr
	}
	return err
}

// Discard drops buffered edits and stops the coordinator without writing.
// Used when the block itself is deleted.
func (c *SaveCoordinator) Discard() {
	c.mu.Lock()
	c.pending = edit{}
	c.closed = true
	c.mu.Unlock()
}
