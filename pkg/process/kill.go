package process

import (
	"fmt"
	"syscall"

	"github.com/lowmemd/lowmemd/pkg/logger"
)

// Killer dispatches SIGKILL to a victim. Fire-and-forget: the request
// carries no synchronous confirmation, completion is observed via the
// exit watcher. The victim is past the point of graceful shutdown by the
// time the policy selects it, so no SIGTERM escalation is attempted.
type Killer struct {
	logger logger.Logger
}

// NewKiller creates a SIGKILL terminator
func NewKiller(log logger.Logger) *Killer {
	return &Killer{logger: log}
}

// Kill sends SIGKILL to the pid
func (k *Killer) Kill(pid int) error {
	if err := syscall.Kill(pid, syscall.SIGKILL); err != nil {
		return fmt.Errorf("failed to signal pid %d: %w", pid, err)
	}
	return nil
}

// DryRunKiller logs instead of signaling. Used by the check command and
// the daemon's dry-run mode.
type DryRunKiller struct {
	logger logger.Logger
}

// NewDryRunKiller creates a terminator that never signals anything
func NewDryRunKiller(log logger.Logger) *DryRunKiller {
	return &DryRunKiller{logger: log}
}

// Kill logs the would-be termination
func (k *DryRunKiller) Kill(pid int) error {
	k.logger.Info("dry-run: would send SIGKILL", logger.WithField("pid", pid))
	return nil
}
