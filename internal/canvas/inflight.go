package canvas

import (
	"context"
	"sync"
)

// inflightGuard ensures at most one debounced write per block is on the
// wire. A block's slot is held from the moment its write starts until the
// coordinator has drained every deferred write for it.
type inflightGuard struct {
	mu      sync.Mutex
	running map[int64]chan struct{}
	wg      sync.WaitGroup
}

// TryLock marks blockID as busy. Returns false if a write is already in flight.
func (g *inflightGuard) TryLock(blockID int64) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.running == nil {
		g.running = make(map[int64]chan struct{})
	}
	if _, ok := g.running[blockID]; ok {
		return false
	}
	g.running[blockID] = make(chan struct{})
	g.wg.Add(1)
	return true
}

// Unlock releases blockID. Must be called after TryLock returns true.
func (g *inflightGuard) Unlock(blockID int64) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if done, ok := g.running[blockID]; ok {
		close(done)
		delete(g.running, blockID)
		g.wg.Done()
	}
}

// Busy reports whether blockID has a write in flight.
func (g *inflightGuard) Busy(blockID int64) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	_, ok := g.running[blockID]
	return ok
}

// Wait blocks until blockID is idle or ctx is cancelled.
func (g *inflightGuard) Wait(ctx context.Context, blockID int64) error {
	g.mu.Lock()
	done, ok := g.running[blockID]
	g.mu.Unlock()
	if !ok {
		return nil
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// WaitAll blocks until every in-flight write completes or ctx is cancelled.
func (g *inflightGuard) WaitAll(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		g.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
