package app

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"blockcanvas/internal/service"

	"github.com/bep/debounce"
	"github.com/charmbracelet/log"
	"github.com/fsnotify/fsnotify"
)

// fingerprinter summarizes a page so changes can be detected without
// loading its blocks. storage.BlockStore implements it.
type fingerprinter interface {
	PageFingerprint(ctx context.Context, pageID int64) (string, error)
}

// pageWatcher follows the SQLite database file and, when it changes,
// compares the fingerprint of every watched page. Pages written by another
// process (e.g. the standalone MCP server) produce a blocks:changed event
// so open canvases reload.
type pageWatcher struct {
	store   fingerprinter
	emitter service.EventEmitter
	logger  *log.Logger
	dbPath  string

	watcher  *fsnotify.Watcher
	debounce func(func())

	mu    sync.Mutex
	pages map[int64]string // pageID -> last fingerprint

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

func newPageWatcher(store fingerprinter, dbPath string, quiet time.Duration, emitter service.EventEmitter, logger *log.Logger) *pageWatcher {
	return &pageWatcher{
		store:    store,
		emitter:  emitter,
		logger:   logger,
		dbPath:   dbPath,
		debounce: debounce.New(quiet),
		pages:    map[int64]string{},
	}
}

// Watch adds pageID to the watched set, recording its current fingerprint.
func (w *pageWatcher) Watch(ctx context.Context, pageID int64) {
	w.mu.Lock()
	_, ok := w.pages[pageID]
	w.mu.Unlock()
	if ok {
		return
	}
	fp, err := w.store.PageFingerprint(ctx, pageID)
	if err != nil {
		w.logger.Warn("fingerprint failed", "page", pageID, "err", err)
		return
	}
	w.mu.Lock()
	if _, ok := w.pages[pageID]; !ok {
		w.pages[pageID] = fp
	}
	w.mu.Unlock()
}

// Unwatch drops pageID.
func (w *pageWatcher) Unwatch(pageID int64) {
	w.mu.Lock()
	delete(w.pages, pageID)
	w.mu.Unlock()
}

// Start begins following the database file. The directory is watched
// because SQLite writes land in the -wal and -journal siblings.
func (w *pageWatcher) Start(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	dir, err := filepath.Abs(filepath.Dir(w.dbPath))
	if err != nil {
		fw.Close()
		return err
	}
	if err := fw.Add(dir); err != nil {
		fw.Close()
		return fmt.Errorf("watch %s: %w", dir, err)
	}
	w.watcher = fw
	w.ctx, w.cancel = context.WithCancel(ctx)
	w.done = make(chan struct{})
	go w.watchLoop()
	return nil
}

// Stop ends the watch loop and waits for it.
func (w *pageWatcher) Stop() {
	if w.watcher == nil {
		return
	}
	w.cancel()
	w.watcher.Close()
	<-w.done
	w.watcher = nil
}

func (w *pageWatcher) watchLoop() {
	defer close(w.done)
	for {
		select {
		case <-w.ctx.Done():
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if (event.Has(fsnotify.Write) || event.Has(fsnotify.Create)) && w.isDBFile(event.Name) {
				w.debounce(func() { w.check(w.ctx) })
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("watcher error", "err", err)
		}
	}
}

func (w *pageWatcher) isDBFile(name string) bool {
	base := filepath.Base(w.dbPath)
	return strings.HasPrefix(filepath.Base(name), base)
}

// check compares every watched page against its last fingerprint and
// emits blocks:changed for the ones that moved.
func (w *pageWatcher) check(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	w.mu.Lock()
	ids := make([]int64, 0, len(w.pages))
	for id := range w.pages {
		ids = append(ids, id)
	}
	w.mu.Unlock()

	for _, id := range ids {
		fp, err := w.store.PageFingerprint(ctx, id)
		if err != nil {
			w.logger.Warn("fingerprint failed", "page", id, "err", err)
			continue
		}
		w.mu.Lock()
		last, watched := w.pages[id]
		changed := watched && last != fp
		if changed {
			w.pages[id] = fp
		}
		w.mu.Unlock()

		if changed {
			w.logger.Debug("page changed", "page", id)
			w.emitter.Emit(ctx, service.EventBlocksChanged, map[string]any{"pageId": id, "source": "watcher"})
		}
	}
}
