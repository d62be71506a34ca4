// Package interfaces provides abstractions for dependency injection and testability
package interfaces

import (
	"context"

	"github.com/lowmemd/lowmemd/pkg/types"
)

// MemoryStats supplies point-in-time memory accounting from the host
type MemoryStats interface {
	Snapshot() (types.PressureSnapshot, error)
	ReclaimStats() (types.ReclaimStats, error)
}

// ProcessSource enumerates live processes. The engine never mutates
// anything it yields.
type ProcessSource interface {
	Processes() ([]types.ProcessRecord, error)
}

// Terminator dispatches a one-way termination request. There is no
// synchronous confirmation; completion arrives later as an ExitEvent.
type Terminator interface {
	Kill(pid int) error
}

// ExitSource delivers terminated-process notifications. Watch registers
// interest in a pid; Events yields one ExitEvent per observed death; Run
// drives the source until the context is cancelled.
type ExitSource interface {
	Watch(pid int)
	Events() <-chan types.ExitEvent
	Run(ctx context.Context) error
}

// KillNotifier surfaces eviction activity to the operator
type KillNotifier interface {
	NotifyKill(event types.KillEvent)
	NotifyPressure(level types.PressureLevel, snapshot types.PressureSnapshot)
}

// PolicyEngine is the eviction decision core
type PolicyEngine interface {
	Evaluate(ctx context.Context, requestedPages int64, snapshot types.PressureSnapshot) (types.EvictionDecision, error)
	SetPolicy(policy types.EvictionPolicyConfig)
	WatchExits(ctx context.Context)
}

// StateTracker records eviction history for the status surface
type StateTracker interface {
	RecordKill(event types.KillEvent) error
	RecordHeartbeat() error
	History(limit int) ([]types.KillEvent, error)
}

// ConfigReloader hot-reloads configuration from disk
type ConfigReloader interface {
	StartWatching() error
	StopWatching() error
	IsWatching() bool
}

// Dependencies groups the engine's external collaborators. Notifier and
// State are optional; their absence degrades observability only.
type Dependencies struct {
	Memory     MemoryStats
	Processes  ProcessSource
	Terminator Terminator
	Exits      ExitSource
	Notifier   KillNotifier
	State      StateTracker
}
