// Package app wires the configuration into storage, services, event
// fan-out and the HTTP and MCP front ends.
package app

import (
	"context"
	"errors"
	"fmt"

	"blockcanvas/internal/canvas"
	"blockcanvas/internal/config"
	"blockcanvas/internal/domain"
	"blockcanvas/internal/events"
	"blockcanvas/internal/filestore"
	"blockcanvas/internal/logging"
	"blockcanvas/internal/service"
	"blockcanvas/internal/storage"
	"blockcanvas/internal/storage/mongostore"

	"github.com/charmbracelet/log"
)

// App owns every long-lived resource of a running process.
type App struct {
	cfg    config.Config
	logger *log.Logger

	store  domain.Store
	db     *storage.DB // nil when the store is mongo
	files  *filestore.Store
	redis  *events.RedisEmitter
	maint  *storage.Maintenance
	blocks *service.BlockService

	emitter service.EventEmitter
}

// Open connects storage and event fan-out and builds the services.
// Close releases everything Open acquired.
func Open(ctx context.Context, cfg config.Config, logger *log.Logger) (*App, error) {
	if logger == nil {
		logger = logging.Default()
	}
	a := &App{cfg: cfg, logger: logger}

	if err := a.openStore(ctx); err != nil {
		return nil, err
	}

	a.files = filestore.New(cfg.Files.UploadDir, cfg.Files.PublicBaseURL, int64(cfg.Files.MaxUploadMB)<<20)

	emitters := service.MultiEmitter{events.LogEmitter{Logger: logging.Component(logger, "events")}}
	if cfg.Events.RedisAddr != "" {
		client, err := events.DialRedis(ctx, cfg.Events.RedisAddr)
		if err != nil {
			// Events are advisory; the canvas still works without fan-out.
			logger.Warn("redis unavailable, events stay local", "addr", cfg.Events.RedisAddr, "err", err)
		} else {
			a.redis = events.NewRedisEmitter(client, cfg.Events.Channel, logging.Component(logger, "redis"))
			emitters = append(emitters, a.redis)
		}
	}
	a.emitter = emitters

	a.blocks = service.NewBlockService(a.store, a.files, a.emitter, logging.Component(logger, "blocks"))
	return a, nil
}

func (a *App) openStore(ctx context.Context) error {
	if a.cfg.Storage.Driver == "mongo" {
		st, err := mongostore.Open(ctx, a.cfg.Storage.DSN)
		if err != nil {
			return fmt.Errorf("open storage: %w", err)
		}
		a.store = st
		a.logger.Info("storage ready", "driver", "mongo")
		return nil
	}

	db, err := storage.Open(ctx, a.cfg.Storage.Driver, a.cfg.Storage.DSN)
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}
	a.db = db
	a.store = storage.NewStore(db)
	a.logger.Info("storage ready", "driver", db.Dialect(), "path", db.Path())
	return nil
}

// StartMaintenance schedules SQL housekeeping. It is a no-op for mongo.
func (a *App) StartMaintenance() error {
	if a.db == nil || a.maint != nil {
		return nil
	}
	m, err := storage.StartMaintenance(a.db, a.cfg.Maintenance.Schedule, logging.Component(a.logger, "maintenance"))
	if err != nil {
		return err
	}
	a.maint = m
	return nil
}

// Canvas returns an unloaded canvas for pageID over the block service,
// configured from the canvas section. The caller loads and closes it.
func (a *App) Canvas(pageID int64) *canvas.Container {
	return NewCanvas(a.blocks, pageID, a.cfg.Canvas, a.emitter, a.logger)
}

// NewCanvas builds a canvas over any gateway, e.g. an httpapi.Client.
func NewCanvas(gw domain.Gateway, pageID int64, cfg config.CanvasConfig, em service.EventEmitter, logger *log.Logger) *canvas.Container {
	return canvas.NewContainer(gw, pageID, canvas.Options{
		Debounce:       cfg.Debounce(),
		ExtendStep:     cfg.ExtendStep,
		ExtendCooldown: cfg.ExtendCooldown(),
		Logger:         logging.Component(logger, "canvas"),
		Emitter:        em,
	})
}

// Blocks returns the block service.
func (a *App) Blocks() *service.BlockService { return a.blocks }

// Emitter returns the process-wide event emitter.
func (a *App) Emitter() service.EventEmitter { return a.emitter }

// Files returns the upload store.
func (a *App) Files() *filestore.Store { return a.files }

// Close stops maintenance, closes the redis client and the store.
func (a *App) Close() error {
	var errs []error
	if a.maint != nil {
		a.maint.Stop()
	}
	if a.redis != nil {
		errs = append(errs, a.redis.Close())
	}
	if a.store != nil {
		errs = append(errs, a.store.Close())
	}
	return errors.Join(errs...)
}
