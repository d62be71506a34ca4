// Package engine interfaces, discovered through use rather than designed
// up front: only abstractions with more than one implementation (or a
// test double) live here.
package engine

import (
	"context"

	"github.com/lowmemd/lowmemd/pkg/logger"
)

// Logger represents the logging capabilities the engine needs. Satisfied
// by logger.ProcessLogger; tests substitute a recording double.
type Logger interface {
	Debug(msg string, fields ...logger.Field)
	Info(msg string, fields ...logger.Field)
	Warn(msg string, fields ...logger.Field)
	Error(msg string, fields ...logger.Field)
	DebugContext(ctx context.Context, msg string, fields ...logger.Field)
	InfoContext(ctx context.Context, msg string, fields ...logger.Field)
	WarnContext(ctx context.Context, msg string, fields ...logger.Field)
}
