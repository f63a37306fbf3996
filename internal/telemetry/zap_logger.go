package telemetry

import (
	"context"

	"go.uber.org/zap"
)

// ZapLogger wraps a *zap.Logger for the runtime Logger interface.
type ZapLogger struct {
	l *zap.Logger
}

// NewZapLogger constructs a Logger backed by l.
func NewZapLogger(l *zap.Logger) Logger {
	return &ZapLogger{l: l}
}

func (z *ZapLogger) Debug(_ context.Context, msg string, keyvals ...any) {
	z.l.Sugar().Debugw(msg, keyvals...)
}

func (z *ZapLogger) Info(_ context.Context, msg string, keyvals ...any) {
	z.l.Sugar().Infow(msg, keyvals...)
}

func (z *ZapLogger) Warn(_ context.Context, msg string, keyvals ...any) {
	z.l.Sugar().Warnw(msg, keyvals...)
}

func (z *ZapLogger) Error(_ context.Context, msg string, keyvals ...any) {
	z.l.Sugar().Errorw(msg, keyvals...)
}
