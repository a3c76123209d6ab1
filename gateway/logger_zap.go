package gateway

import (
	"context"

	"go.uber.org/zap"
)

// ZapAdapter adapts a go.uber.org/zap.Logger to the Logger interface.
// The teacher only ships a slog adapter; this one follows the same
// shape for operators who already run zap (grounded on
// BaSui01-agentflow's zap dependency, which this module otherwise has
// no direct use for).
type ZapAdapter struct {
	logger *zap.Logger
}

func NewZapAdapter(logger *zap.Logger) *ZapAdapter {
	return &ZapAdapter{logger: logger}
}

func (z *ZapAdapter) Debug(ctx context.Context, msg string, fields ...Field) {
	z.logger.Debug(msg, z.convert(fields)...)
}

func (z *ZapAdapter) Info(ctx context.Context, msg string, fields ...Field) {
	z.logger.Info(msg, z.convert(fields)...)
}

func (z *ZapAdapter) Warn(ctx context.Context, msg string, fields ...Field) {
	z.logger.Warn(msg, z.convert(fields)...)
}

func (z *ZapAdapter) Error(ctx context.Context, msg string, fields ...Field) {
	z.logger.Error(msg, z.convert(fields)...)
}

func (z *ZapAdapter) convert(fields []Field) []zap.Field {
	out := make([]zap.Field, len(fields))
	for i, f := range fields {
		out[i] = zap.Any(f.Key, f.Value)
	}
	return out
}
