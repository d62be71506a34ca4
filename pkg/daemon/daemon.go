// Package daemon provides the background memory-pressure monitor
package daemon

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/lowmemd/lowmemd/internal/engine"
	"github.com/lowmemd/lowmemd/pkg/config"
	"github.com/lowmemd/lowmemd/pkg/interfaces"
	"github.com/lowmemd/lowmemd/pkg/logger"
	"github.com/lowmemd/lowmemd/pkg/process"
	"github.com/lowmemd/lowmemd/pkg/state"
	"github.com/lowmemd/lowmemd/pkg/types"
)

// Manager manages the lowmemd daemon: the poll loop that samples memory
// pressure and asks the engine for an eviction decision every interval.
type Manager struct {
	configPath     string
	stateDir       string
	pidFile        string
	dryRun         bool
	logger         logger.LoggerContext
	processManager *process.Manager
	engine         *engine.Engine
	reloadManager  *config.ReloadManager
	stateManager   *state.Manager

	mu       sync.RWMutex
	cfg      *types.LowmemdConfig
	deps     interfaces.Dependencies
	lastSeen types.PressureLevel
	cancel   context.CancelFunc
}

// Config represents daemon configuration
type Config struct {
	ConfigPath string
	StateDir   string
	LogFile    string
	LogLevel   string
	DryRun     bool
}

// NewManager creates a new daemon manager
func NewManager(cfg Config) *Manager {
	stateDir := cfg.StateDir
	if stateDir == "" {
		stateDir = state.DefaultStateDir()
	}

	log := logger.CreateLogger(cfg.LogFile, cfg.LogLevel)

	return &Manager{
		configPath:     cfg.ConfigPath,
		stateDir:       stateDir,
		pidFile:        filepath.Join(stateDir, "daemon.pid"),
		dryRun:         cfg.DryRun,
		logger:         log,
		processManager: process.NewManager(log),
		stateManager:   state.NewManager(stateDir, log),
	}
}

// NewManagerWithDependencies creates a daemon manager with injected
// collaborators (for tests)
func NewManagerWithDependencies(cfg Config, deps interfaces.Dependencies, log logger.LoggerContext) *Manager {
	m := NewManager(cfg)
	if log != nil {
		m.logger = log
		m.processManager = process.NewManager(log)
		m.stateManager = state.NewManager(m.stateDir, log)
	}
	m.deps = deps
	return m
}

// StartWithContext starts the daemon with the given context
func (m *Manager) StartWithContext(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.isRunning() {
		return ErrDaemonAlreadyRunning
	}

	if err := os.MkdirAll(m.stateDir, 0755); err != nil {
		return fmt.Errorf("failed to create state directory: %w", err)
	}
	if err := m.writePIDFile(); err != nil {
		return fmt.Errorf("failed to write PID file: %w", err)
	}

	cfg, err := config.NewManager().LoadConfig(m.configPath)
	if err != nil {
		m.removePIDFile()
		return fmt.Errorf("failed to load config: %w", err)
	}

	// The --dry-run flag overrides the config file: the factory picks
	// its terminator from cfg.Daemon.DryRun.
	if m.dryRun {
		daemonCfg := types.DaemonConfig{}
		if cfg.Daemon != nil {
			daemonCfg = *cfg.Daemon
		}
		daemonCfg.DryRun = true
		cfg.Daemon = &daemonCfg
	}
	m.cfg = cfg

	if err := m.stateManager.Initialize(); err != nil {
		m.logger.Warn("Failed to initialize state file", logger.WithField("error", err))
	}

	// Build collaborators unless a test injected them
	if m.deps.Memory == nil {
		factory := engine.NewDependencyFactory(m.stateDir, m.logger, cfg)
		m.deps = factory.CreateWithOverrides(interfaces.Dependencies{
			State: m.stateManager,
		})
	}

	m.engine = engine.New(cfg.Policy, m.deps, m.logger)

	m.reloadManager = config.NewReloadManager(m.configPath, m.logger)
	m.reloadManager.AddCallback(m.onConfigReload)
	if err := m.reloadManager.StartWatching(); err != nil {
		m.logger.Warn("Config hot-reload unavailable", logger.WithField("error", err))
		m.reloadManager = nil
	}

	runCtx, cancel := context.WithCancel(ctx)
	m.cancel = cancel

	m.processManager.RegisterShutdownHandler(func() {
		shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancelShutdown()
		m.StopWithContext(shutdownCtx)
	})
	m.processManager.SetHeartbeat(func() {
		if err := m.stateManager.RecordHeartbeat(); err != nil {
			m.logger.Debug("Heartbeat write failed", logger.WithField("error", err))
		}
	})
	m.processManager.Start(runCtx)

	group, groupCtx := engine.NewSafeGroup(runCtx, m.logger)
	group.Go(func() error {
		return m.deps.Exits.Run(groupCtx)
	})
	group.Go(func() error {
		m.engine.WatchExits(groupCtx)
		return nil
	})
	group.Go(func() error {
		return m.pollLoop(groupCtx)
	})

	go func() {
		if err := group.Wait(); err != nil && groupCtx.Err() == nil {
			m.logger.Error("Daemon loop exited", logger.WithField("error", err))
		}
	}()

	m.logger.Info("Daemon started",
		logger.WithField("config", m.configPath),
		logger.WithField("tiers", len(cfg.Policy.Tiers())))

	return nil
}

// StopWithContext stops the daemon
func (m *Manager) StopWithContext(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.isRunning() {
		return ErrDaemonNotRunning
	}

	m.logger.Info("Stopping daemon...")

	if m.cancel != nil {
		m.cancel()
		m.cancel = nil
	}
	if m.reloadManager != nil {
		m.reloadManager.StopWatching()
		m.reloadManager = nil
	}
	m.processManager.Stop()
	m.removePIDFile()

	m.logger.Info("Daemon stopped")
	return nil
}

// IsRunning checks if the daemon is running
func (m *Manager) IsRunning() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.isRunning()
}

// Status returns the daemon status, or nil when not running
func (m *Manager) Status() (*Status, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if !m.isRunning() {
		return nil, nil
	}

	status := &Status{Running: true}

	if pid, err := m.readPIDFile(); err == nil {
		status.PID = pid
	}

	if doc, err := m.stateManager.Read(); err == nil {
		status.StartedAt = doc.StartedAt
		status.Heartbeat = doc.Heartbeat
		status.KillCount = doc.KillCount
		status.LastKill = doc.LastKill
	}

	return status, nil
}

// Evaluate runs a single evaluation pass against the live system. Used by
// the one-shot check command; the daemon itself calls the engine from its
// poll loop.
func (m *Manager) Evaluate(ctx context.Context, requestedPages int64) (types.EvictionDecision, error) {
	m.mu.RLock()
	eng := m.engine
	deps := m.deps
	m.mu.RUnlock()

	if eng == nil {
		return types.EvictionDecision{}, ErrDaemonNotRunning
	}

	snapshot, err := deps.Memory.Snapshot()
	if err != nil {
		return types.EvictionDecision{}, fmt.Errorf("failed to read memory snapshot: %w", err)
	}

	return eng.Evaluate(ctx, requestedPages, snapshot)
}

// Status represents daemon status
type Status struct {
	Running   bool             `json:"running"`
	PID       int              `json:"pid"`
	StartedAt time.Time        `json:"startedAt"`
	Heartbeat time.Time        `json:"heartbeat"`
	KillCount int              `json:"killCount"`
	LastKill  *types.KillEvent `json:"lastKill,omitempty"`
}

// ComputeRequested derives the reclaim request from the watermark
// deficit: how many pages short of the highest configured floor the
// system currently sits, scaled down by the proportional multiplier so
// the selector's target lands near the deficit itself. Zero when memory
// is healthy, which makes the pass query-only.
func ComputeRequested(cfg *types.LowmemdConfig, snapshot types.PressureSnapshot) int64 {
	if cfg.Daemon != nil && cfg.Daemon.TargetReclaimPages > 0 {
		return cfg.Daemon.TargetReclaimPages
	}

	tiers := cfg.Policy.Tiers()
	if len(tiers) == 0 {
		return 0
	}

	highest := tiers[len(tiers)-1].FreePagesFloor
	low := snapshot.FreePages
	if snapshot.CachedFilePages < low {
		low = snapshot.CachedFilePages
	}

	deficit := highest - low
	if deficit <= 0 {
		return 0
	}

	multiplier := cfg.Policy.Multiplier
	if multiplier <= 0 {
		return deficit
	}
	return (deficit + multiplier - 1) / multiplier
}

// Private methods

func (m *Manager) pollLoop(ctx context.Context) error {
	m.mu.RLock()
	interval := time.Second
	if m.cfg.Daemon != nil {
		interval = m.cfg.Daemon.PollInterval()
	}
	m.mu.RUnlock()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			m.pollOnce(ctx)
		}
	}
}

func (m *Manager) pollOnce(ctx context.Context) {
	m.mu.RLock()
	cfg := m.cfg
	deps := m.deps
	eng := m.engine
	m.mu.RUnlock()

	snapshot, err := deps.Memory.Snapshot()
	if err != nil {
		m.logger.Warn("Failed to read memory snapshot", logger.WithField("error", err))
		return
	}

	m.observePressure(cfg, snapshot)

	requested := ComputeRequested(cfg, snapshot)

	decision, err := eng.Evaluate(ctx, requested, snapshot)
	if err != nil {
		m.logger.Warn("Evaluation pass failed", logger.WithField("error", err))
		return
	}

	if decision.Victim != nil {
		m.logger.Info("Eviction pass killed a process",
			logger.WithField("pid", decision.Victim.PID),
			logger.WithField("name", decision.Victim.Name),
			logger.WithField("estimate", decision.ReclaimEstimate))
	}
}


func (m *Manager) observePressure(cfg *types.LowmemdConfig, snapshot types.PressureSnapshot) {
	level := types.ClassifyPressure(snapshot, cfg.Policy.Tiers())

	m.mu.Lock()
	changed := level != m.lastSeen
	m.lastSeen = level
	m.mu.Unlock()

	if !changed {
		return
	}

	m.logger.Debug("Memory pressure level changed",
		logger.WithField("level", level),
		logger.WithField("free", snapshot.FreePages),
		logger.WithField("cached", snapshot.CachedFilePages))

	if m.deps.Notifier != nil {
		m.deps.Notifier.NotifyPressure(level, snapshot)
	}
}

func (m *Manager) onConfigReload(cfg *types.LowmemdConfig, err error) {
	if err != nil {
		// Keep the previous policy; a malformed edit must never take the
		// daemon down.
		m.logger.Warn("Config reload rejected, keeping previous policy",
			logger.WithField("error", err))
		return
	}

	m.mu.Lock()
	m.cfg = cfg
	eng := m.engine
	m.mu.Unlock()

	if eng != nil {
		eng.SetPolicy(cfg.Policy)
	}

	m.logger.Info("Policy updated from config file",
		logger.WithField("tiers", len(cfg.Policy.Tiers())))
}

func (m *Manager) isRunning() bool {
	pid, err := m.readPIDFile()
	if err != nil {
		return false
	}
	return process.IsAlive(pid)
}

func (m *Manager) writePIDFile() error {
	return os.WriteFile(m.pidFile, []byte(fmt.Sprintf("%d", os.Getpid())), 0644)
}

func (m *Manager) readPIDFile() (int, error) {
	data, err := os.ReadFile(m.pidFile)
	if err != nil {
		return 0, err
	}

	var pid int
	if _, err := fmt.Sscanf(string(data), "%d", &pid); err != nil {
		return 0, err
	}
	return pid, nil
}

func (m *Manager) removePIDFile() {
	os.Remove(m.pidFile)
}
