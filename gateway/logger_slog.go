package gateway

import (
	"context"
	"log/slog"
)

// SlogAdapter adapts the standard library's slog.Logger to the Logger
// interface, the way the teacher's SlogAdapter does for its own
// Logger interface.
type SlogAdapter struct {
	logger *slog.Logger
}

func NewSlogAdapter(logger *slog.Logger) *SlogAdapter {
	return &SlogAdapter{logger: logger}
}

func (s *SlogAdapter) Debug(ctx context.Context, msg string, fields ...Field) {
	s.logger.DebugContext(ctx, msg, s.convert(fields)...)
}

func (s *SlogAdapter) Info(ctx context.Context, msg string, fields ...Field) {
	s.logger.InfoContext(ctx, msg, s.convert(fields)...)
}

func (s *SlogAdapter) Warn(ctx context.Context, msg string, fields ...Field) {
	s.logger.WarnContext(ctx, msg, s.convert(fields)...)
}

func (s *SlogAdapter) Error(ctx context.Context, msg string, fields ...Field) {
	s.logger.ErrorContext(ctx, msg, s.convert(fields)...)
}

func (s *SlogAdapter) convert(fields []Field) []any {
	args := make([]any, 0, len(fields)*2)
	for _, f := range fields {
		args = append(args, f.Key, f.Value)
	}
	return args
}
