package canvas

import (
	"context"

	"blockcanvas/internal/domain"

	"github.com/charmbracelet/log"
)

// Event names emitted by the engine.
const (
	EventWriteRejected = "block:write-rejected"
	EventNotice        = "canvas:notice"
	EventExtent        = "canvas:extent"
)

// Emitter receives engine events. service.EventEmitter satisfies it.
type Emitter interface {
	Emit(ctx context.Context, event string, data any)
}

type nopEmitter struct{}

func (nopEmitter) Emit(context.Context, string, any) {}

// Notice is a transient, user-visible report of a failed operation.
// Interaction code never returns panics or hard failures to the renderer;
// it emits a Notice instead.
type Notice struct {
	BlockID int64            `json:"blockId"`
	Op      string           `json:"op"`
	Kind    domain.ErrorKind `json:"kind"`
	Message string           `json:"message"`
}

// notify logs err according to its kind and emits a Notice. Rejections are
// protective no-ops and are only logged.
func notify(ctx context.Context, logger *log.Logger, em Emitter, blockID int64, op string, err error) {
	kind := domain.KindOf(err)
	switch kind {
	case domain.KindNone:
		return
	case domain.KindValidationRejected:
		logger.Warn(op+" rejected", "block", blockID, "err", err)
		return
	case domain.KindNotFound:
		logger.Info(op+" target missing", "block", blockID, "err", err)
	default:
		logger.Error(op+" failed", "block", blockID, "err", err)
	}
	em.Emit(ctx, EventNotice, Notice{BlockID: blockID, Op: op, Kind: kind, Message: err.Error()})
}
