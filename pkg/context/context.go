package context

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Context keys for evaluation-pass tracing and correlation.
// Using unexported struct pointers prevents key collisions.
var (
	passIDKey    = &struct{}{}
	operationKey = &struct{}{}
	startTimeKey = &struct{}{}
)

// WithPassID adds an evaluation-pass ID to the context
func WithPassID(parent context.Context, passID string) context.Context {
	if passID == "" {
		passID = GeneratePassID()
	}
	return context.WithValue(parent, passIDKey, passID)
}

// GetPassID retrieves the evaluation-pass ID from context
func GetPassID(ctx context.Context) string {
	if id, ok := ctx.Value(passIDKey).(string); ok && id != "" {
		return id
	}
	return "unknown-pass"
}

// WithOperation adds an operation name to the context
func WithOperation(parent context.Context, operation string) context.Context {
	return context.WithValue(parent, operationKey, operation)
}

// GetOperation retrieves the operation name from context
func GetOperation(ctx context.Context) string {
	if op, ok := ctx.Value(operationKey).(string); ok && op != "" {
		return op
	}
	return "unknown-operation"
}

// WithStartTime adds the operation start time to the context
func WithStartTime(parent context.Context, startTime time.Time) context.Context {
	return context.WithValue(parent, startTimeKey, startTime)
}

// GetStartTime retrieves the operation start time from context
func GetStartTime(ctx context.Context) time.Time {
	if t, ok := ctx.Value(startTimeKey).(time.Time); ok {
		return t
	}
	return time.Now()
}

// GetDuration calculates the duration since the start time in context
func GetDuration(ctx context.Context) time.Duration {
	startTime := GetStartTime(ctx)
	return time.Since(startTime)
}

// GeneratePassID creates a new unique evaluation-pass ID
func GeneratePassID() string {
	return "pass_" + uuid.New().String()
}

// GenerateKillID creates a new unique kill-event ID
func GenerateKillID() string {
	return "kill_" + uuid.New().String()
}

// EnrichContext adds pass-tracing information to a context
func EnrichContext(parent context.Context) context.Context {
	ctx := parent

	if GetPassID(ctx) == "unknown-pass" {
		ctx = WithPassID(ctx, GeneratePassID())
	}
	if _, ok := ctx.Value(startTimeKey).(time.Time); !ok {
		ctx = WithStartTime(ctx, time.Now())
	}

	return ctx
}
