package engine

import (
	"time"

	"github.com/lowmemd/lowmemd/pkg/interfaces"
	"github.com/lowmemd/lowmemd/pkg/logger"
	"github.com/lowmemd/lowmemd/pkg/notifier"
	"github.com/lowmemd/lowmemd/pkg/process"
	"github.com/lowmemd/lowmemd/pkg/procfs"
	"github.com/lowmemd/lowmemd/pkg/state"
	"github.com/lowmemd/lowmemd/pkg/types"
)

// exitPollInterval is how often the default exit watcher probes an armed
// victim. Well under the grace quantum so a prompt death re-arms the next
// pass instead of waiting out the timeout.
const exitPollInterval = 50 * time.Millisecond

// DependencyFactory creates default implementations of dependencies.
// This follows the dependency injection pattern and removes hidden
// concrete fallbacks from constructors.
type DependencyFactory struct {
	stateDir string
	logger   logger.Logger
	config   *types.LowmemdConfig
}

// NewDependencyFactory creates a new dependency factory
func NewDependencyFactory(stateDir string, logger logger.Logger, config *types.LowmemdConfig) *DependencyFactory {
	return &DependencyFactory{
		stateDir: stateDir,
		logger:   logger,
		config:   config,
	}
}

// CreateDefaults creates all default dependencies for lowmemd.
// This centralizes dependency creation and makes it explicit and testable.
func (f *DependencyFactory) CreateDefaults() interfaces.Dependencies {
	deps := interfaces.Dependencies{
		Memory:     procfs.NewMemInfoReader(),
		Processes:  procfs.NewProcessLister(),
		Terminator: f.createTerminator(),
		Exits:      process.NewExitWatcher(f.logger, exitPollInterval),
		State:      state.NewManager(f.stateDir, f.logger),
	}

	// Create notifier only if notifications are enabled
	if f.config.Notifications != nil &&
		f.config.Notifications.Enabled != nil &&
		*f.config.Notifications.Enabled {
		deps.Notifier = notifier.FromConfig(f.config.Notifications, f.logger)
	}

	return deps
}

// CreateWithOverrides creates dependencies with specific overrides.
// This is useful for testing or custom configurations.
func (f *DependencyFactory) CreateWithOverrides(overrides interfaces.Dependencies) interfaces.Dependencies {
	deps := f.CreateDefaults()

	// Apply overrides (non-nil values replace defaults)
	if overrides.Memory != nil {
		deps.Memory = overrides.Memory
	}
	if overrides.Processes != nil {
		deps.Processes = overrides.Processes
	}
	if overrides.Terminator != nil {
		deps.Terminator = overrides.Terminator
	}
	if overrides.Exits != nil {
		deps.Exits = overrides.Exits
	}
	if overrides.Notifier != nil {
		deps.Notifier = overrides.Notifier
	}
	if overrides.State != nil {
		deps.State = overrides.State
	}

	return deps
}

// Private methods

func (f *DependencyFactory) createTerminator() interfaces.Terminator {
	if f.config.Daemon != nil && f.config.Daemon.DryRun {
		return process.NewDryRunKiller(f.logger)
	}
	return process.NewKiller(f.logger)
}
