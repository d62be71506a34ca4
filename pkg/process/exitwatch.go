package process

import (
	"context"
	"sync"
	"time"

	"github.com/lowmemd/lowmemd/pkg/logger"
	"github.com/lowmemd/lowmemd/pkg/types"
)

// exitEventBuffer bounds the event channel; the tracker is the sole
// consumer and only ever has one armed victim, so a small buffer keeps
// producers from blocking if the consumer lags.
const exitEventBuffer = 16

// ExitWatcher observes watched pids and publishes an ExitEvent when one
// terminates. It stands in for a kernel-side task-exit notifier: userspace
// cannot wait on non-child processes, so liveness is polled.
type ExitWatcher struct {
	logger   logger.Logger
	interval time.Duration
	events   chan types.ExitEvent

	mu      sync.Mutex
	watched map[int]struct{}

	// alive is swappable for tests
	alive func(pid int) bool
}

// NewExitWatcher creates a watcher polling at the given interval
func NewExitWatcher(log logger.Logger, interval time.Duration) *ExitWatcher {
	if interval <= 0 {
		interval = 50 * time.Millisecond
	}
	return &ExitWatcher{
		logger:   log,
		interval: interval,
		events:   make(chan types.ExitEvent, exitEventBuffer),
		watched:  make(map[int]struct{}),
		alive:    IsAlive,
	}
}

// Watch registers interest in a pid
func (w *ExitWatcher) Watch(pid int) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.watched[pid] = struct{}{}
}

// Events yields one event per observed death
func (w *ExitWatcher) Events() <-chan types.ExitEvent {
	return w.events
}

// Run polls until the context is cancelled
func (w *ExitWatcher) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			w.sweep()
		}
	}
}

// Private methods

func (w *ExitWatcher) sweep() {
	w.mu.Lock()
	dead := make([]int, 0, len(w.watched))
	for pid := range w.watched {
		if !w.alive(pid) {
			dead = append(dead, pid)
			delete(w.watched, pid)
		}
	}
	w.mu.Unlock()

	for _, pid := range dead {
		event := types.ExitEvent{PID: pid, ExitedAt: time.Now()}
		select {
		case w.events <- event:
			w.logger.Debug("observed process exit", logger.WithField("pid", pid))
		default:
			w.logger.Warn("exit event dropped, channel full", logger.WithField("pid", pid))
		}
	}
}

// NewExitWatcherWithProbe creates a watcher with a custom liveness probe
// (for tests)
func NewExitWatcherWithProbe(log logger.Logger, interval time.Duration, alive func(pid int) bool) *ExitWatcher {
	w := NewExitWatcher(log, interval)
	w.alive = alive
	return w
}
