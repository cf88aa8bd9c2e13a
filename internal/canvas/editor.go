package canvas

import (
	"context"
	"sync"

	"blockcanvas/internal/domain"
	"blockcanvas/internal/richtext"
)

// Editor is the mounted state of one block: its local copy, its save
// coordinator, its image dimension store and its current gesture.
type Editor struct {
	saves  *SaveCoordinator
	images *ImageDimensionStore

	mu      sync.Mutex
	block   domain.Block
	gesture Interaction
}

func newEditor(gw domain.Gateway, b domain.Block, guard *inflightGuard, opts CoordinatorOptions) *Editor {
	ed := &Editor{
		saves:  NewSaveCoordinator(gw, b, guard, opts),
		images: NewImageDimensionStore(gw, b.ID),
		block:  b,
	}
	ed.gesture.live = b.Rect()
	return ed
}

// Block returns the local copy of the block.
func (e *Editor) Block() domain.Block {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.block
}

// Rendered returns the content with stored image geometry applied.
func (e *Editor) Rendered() string {
	return e.images.ApplyToContent(e.Block().Content)
}

func (e *Editor) Saves() *SaveCoordinator      { return e.saves }
func (e *Editor) Images() *ImageDimensionStore { return e.images }

// Gesture returns the current interaction state.
func (e *Editor) Gesture() InteractionState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.gesture.State()
}

// EditContent applies a content edit locally and buffers it for saving.
// A blanking edit is refused and the local copy keeps its content.
func (e *Editor) EditContent(ctx context.Context, content string) bool {
	if !e.saves.EditContent(ctx, content) {
		return false
	}
	e.mu.Lock()
	e.block.Content = e.saves.Snapshot()
	e.mu.Unlock()
	return true
}

// EditTitle applies a title edit locally and buffers it for saving.
// Bidi control characters are stripped so the local copy matches what is
// saved.
func (e *Editor) EditTitle(title string) {
	title = richtext.StripBidi(title)
	e.saves.EditTitle(title)
	e.mu.Lock()
	e.block.Title = title
	e.mu.Unlock()
}

func (e *Editor) setRect(r domain.Rect) {
	e.block.SetRect(r)
}

// unmount stops the editor. With discard, buffered edits are dropped.
func (e *Editor) unmount(ctx context.Context, discard bool) error {
	defer e.images.Reset()
	if discard {
		e.saves.Discard()
		return nil
	}
	return e.saves.Close(ctx)
}
