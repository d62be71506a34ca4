package logger

import (
	"context"

	pcontext "github.com/lowmemd/lowmemd/pkg/context"
)

// LoggerContext extends the Logger interface with context-aware methods
// so evaluation passes can be correlated across log lines.
type LoggerContext interface {
	Logger
	InfoContext(ctx context.Context, message string, fields ...Field)
	ErrorContext(ctx context.Context, message string, fields ...Field)
	WarnContext(ctx context.Context, message string, fields ...Field)
	DebugContext(ctx context.Context, message string, fields ...Field)
}

// Ensure ProcessLogger implements LoggerContext
var _ LoggerContext = (*ProcessLogger)(nil)

// InfoContext logs an info message with pass tracing
func (l *ProcessLogger) InfoContext(ctx context.Context, message string, fields ...Field) {
	allFields := append(l.extractContextFields(ctx), fields...)
	l.Info(message, allFields...)
}

// ErrorContext logs an error message with pass tracing
func (l *ProcessLogger) ErrorContext(ctx context.Context, message string, fields ...Field) {
	allFields := append(l.extractContextFields(ctx), fields...)
	l.Error(message, allFields...)
}

// WarnContext logs a warning message with pass tracing
func (l *ProcessLogger) WarnContext(ctx context.Context, message string, fields ...Field) {
	allFields := append(l.extractContextFields(ctx), fields...)
	l.Warn(message, allFields...)
}

// DebugContext logs a debug message with pass tracing
func (l *ProcessLogger) DebugContext(ctx context.Context, message string, fields ...Field) {
	allFields := append(l.extractContextFields(ctx), fields...)
	l.Debug(message, allFields...)
}

// extractContextFields pulls tracing fields out of the context
func (l *ProcessLogger) extractContextFields(ctx context.Context) []Field {
	if ctx == nil {
		return nil
	}

	fields := make([]Field, 0, 2)
	if passID := pcontext.GetPassID(ctx); passID != "unknown-pass" {
		fields = append(fields, WithField("pass_id", passID))
	}
	if op := pcontext.GetOperation(ctx); op != "unknown-operation" {
		fields = append(fields, WithField("operation", op))
	}
	return fields
}
