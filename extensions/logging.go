// Package extensions provides cross-cutting extensions for the slot
// layer: operation logging and tree visualization.
package extensions

import (
	"context"
	"time"

	"go.uber.org/zap"

	slot "github.com/slot-fn/slot-go"
)

// OpLogger logs every slot-layer operation with its duration.
type OpLogger struct {
	slot.BaseExtension
	logger *zap.Logger
}

// NewOpLogger creates a logging extension writing through the given
// zap logger.
func NewOpLogger(logger *zap.Logger) *OpLogger {
	return &OpLogger{
		BaseExtension: slot.NewBaseExtension("op-logger"),
		logger:        logger,
	}
}

func (e *OpLogger) Wrap(ctx context.Context, next func() (any, error), op *slot.Operation) (any, error) {
	start := time.Now()
	result, err := next()

	fields := []zap.Field{
		zap.String("kind", string(op.Kind)),
		zap.Stringer("tag", op.Tag),
		zap.Duration("took", time.Since(start)),
	}

	if err != nil {
		e.logger.Warn("slot operation failed", append(fields, zap.Error(err))...)
		return result, err
	}

	e.logger.Debug("slot operation", fields...)
	return result, err
}

func (e *OpLogger) OnBridge(from *slot.Node, carried []slot.Slot) {
	tags := make([]string, 0, len(carried))
	for _, s := range carried {
		tags = append(tags, s.Tag().String())
	}
	e.logger.Info("bridging visible slots", zap.Strings("tags", tags))
}

func (e *OpLogger) OnCleanupError(err *slot.CleanupError) bool {
	e.logger.Warn("cleanup failed", zap.Error(err.Err))
	return true
}

func (e *OpLogger) Dispose(t *slot.Tree) error {
	return e.logger.Sync()
}
