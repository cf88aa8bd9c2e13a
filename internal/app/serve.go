package app

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"blockcanvas/internal/httpapi"
	"blockcanvas/internal/logging"
	"blockcanvas/internal/storage"
)

const (
	shutdownTimeout = 10 * time.Second
	watchQuiet      = 250 * time.Millisecond
)

// Handler builds the HTTP API for this app. onPageView may be nil.
func (a *App) Handler(onPageView func(pageID int64)) http.Handler {
	return httpapi.NewServer(a.blocks, a.files, httpapi.Options{
		FilesPrefix:    "/files",
		FilesBaseURL:   a.cfg.Files.PublicBaseURL,
		MaxUploadBytes: int64(a.cfg.Files.MaxUploadMB) << 20,
		OnPageView:     onPageView,
		Logger:         a.logger,
	})
}

// ServeHTTP runs the HTTP API on the configured address until ctx is
// cancelled, then shuts down gracefully. With SQLite storage it also
// watches the database file for writes made by other processes.
func (a *App) ServeHTTP(ctx context.Context) error {
	if err := a.StartMaintenance(); err != nil {
		return err
	}

	var onView func(int64)
	if a.db != nil && a.db.Path() != "" {
		w := newPageWatcher(storage.NewBlockStore(a.db), a.db.Path(), watchQuiet, a.emitter, logging.Component(a.logger, "watcher"))
		if err := w.Start(ctx); err != nil {
			a.logger.Warn("page watcher disabled", "err", err)
		} else {
			defer w.Stop()
			onView = func(pageID int64) { w.Watch(ctx, pageID) }
		}
	}

	ln, err := net.Listen("tcp", a.cfg.HTTP.Addr)
	if err != nil {
		return err
	}
	srv := &http.Server{
		Handler:           a.Handler(onView),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(ln) }()
	a.logger.Info("listening", "addr", ln.Addr().String())

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	a.logger.Info("server stopped")
	return nil
}
