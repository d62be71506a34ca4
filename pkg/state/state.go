// Package state provides persistent daemon state and kill history for lowmemd
package state

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/lowmemd/lowmemd/pkg/logger"
	"github.com/lowmemd/lowmemd/pkg/types"
)

// maxHistory caps the retained kill history
const maxHistory = 50

// stateFileName is the on-disk state document name
const stateFileName = "lowmemd.state.json"

// DaemonState is the persistent state document
type DaemonState struct {
	PID       int               `json:"pid"`
	StartedAt time.Time         `json:"startedAt"`
	Heartbeat time.Time         `json:"heartbeat"`
	KillCount int               `json:"killCount"`
	LastKill  *types.KillEvent  `json:"lastKill,omitempty"`
	History   []types.KillEvent `json:"history,omitempty"`
}

// Manager handles the persistent state file
type Manager struct {
	stateDir string
	logger   logger.Logger
	mu       sync.Mutex
	state    *DaemonState
}

// NewManager creates a state manager rooted at stateDir
func NewManager(stateDir string, log logger.Logger) *Manager {
	return &Manager{
		stateDir: stateDir,
		logger:   log,
	}
}

// DefaultStateDir returns the per-user default state location
func DefaultStateDir() string {
	return filepath.Join(os.TempDir(), "lowmemd")
}

// Initialize creates the state directory and writes a fresh document,
// preserving kill statistics from a previous run when present.
func (m *Manager) Initialize() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := os.MkdirAll(m.stateDir, 0755); err != nil {
		return fmt.Errorf("failed to create state directory: %w", err)
	}

	state := &DaemonState{
		PID:       os.Getpid(),
		StartedAt: time.Now(),
		Heartbeat: time.Now(),
	}

	// Preserve statistics across restarts
	if existing, err := m.load(); err == nil && existing != nil {
		state.KillCount = existing.KillCount
		state.LastKill = existing.LastKill
		state.History = existing.History
	}

	m.state = state
	return m.save()
}

// RecordKill appends a kill event to the history
func (m *Manager) RecordKill(event types.KillEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state == nil {
		if err := m.reloadLocked(); err != nil {
			return err
		}
	}

	m.state.KillCount++
	m.state.LastKill = &event
	m.state.History = append(m.state.History, event)
	if len(m.state.History) > maxHistory {
		m.state.History = m.state.History[len(m.state.History)-maxHistory:]
	}

	return m.save()
}

// RecordHeartbeat refreshes the heartbeat timestamp
func (m *Manager) RecordHeartbeat() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state == nil {
		if err := m.reloadLocked(); err != nil {
			return err
		}
	}

	m.state.Heartbeat = time.Now()
	return m.save()
}

// History returns up to limit most-recent kill events, newest last
func (m *Manager) History(limit int) ([]types.KillEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	state := m.state
	if state == nil {
		loaded, err := m.load()
		if err != nil {
			return nil, err
		}
		state = loaded
	}

	history := state.History
	if limit > 0 && len(history) > limit {
		history = history[len(history)-limit:]
	}

	out := make([]types.KillEvent, len(history))
	copy(out, history)
	return out, nil
}

// Read loads the state document from disk
func (m *Manager) Read() (*DaemonState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.load()
}

// Remove deletes the state file
func (m *Manager) Remove() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.state = nil
	err := os.Remove(m.path())
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove state file: %w", err)
	}
	return nil
}

// Private methods

func (m *Manager) path() string {
	return filepath.Join(m.stateDir, stateFileName)
}

func (m *Manager) load() (*DaemonState, error) {
	data, err := os.ReadFile(m.path())
	if err != nil {
		return nil, fmt.Errorf("failed to read state file: %w", err)
	}

	var state DaemonState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("failed to parse state file: %w", err)
	}
	return &state, nil
}

func (m *Manager) reloadLocked() error {
	state, err := m.load()
	if err != nil {
		// Missing or corrupt state file: start over rather than fail the
		// caller; history is advisory.
		state = &DaemonState{PID: os.Getpid(), StartedAt: time.Now()}
	}
	m.state = state
	return nil
}

func (m *Manager) save() error {
	data, err := json.MarshalIndent(m.state, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal state: %w", err)
	}

	if err := os.WriteFile(m.path(), data, 0644); err != nil {
		return fmt.Errorf("failed to write state file: %w", err)
	}
	return nil
}
