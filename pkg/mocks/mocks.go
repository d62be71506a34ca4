// Package mocks provides mock implementations of interfaces for testing.
// These follow Go best practices for test doubles.
package mocks

import (
	"context"
	"sync"

	"github.com/lowmemd/lowmemd/pkg/interfaces"
	"github.com/lowmemd/lowmemd/pkg/types"
)

// MockMemoryStats is a mock implementation of MemoryStats for testing
type MockMemoryStats struct {
	mu          sync.RWMutex
	snapshot    types.PressureSnapshot
	stats       types.ReclaimStats
	snapshotErr error
	statsErr    error
}

// NewMockMemoryStats creates a new mock memory source
func NewMockMemoryStats() *MockMemoryStats {
	return &MockMemoryStats{}
}

// Snapshot returns the configured snapshot
func (m *MockMemoryStats) Snapshot() (types.PressureSnapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.snapshot, m.snapshotErr
}

// ReclaimStats returns the configured reclaim stats
func (m *MockMemoryStats) ReclaimStats() (types.ReclaimStats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.stats, m.statsErr
}

// SetSnapshot configures the snapshot returned by Snapshot
func (m *MockMemoryStats) SetSnapshot(snapshot types.PressureSnapshot) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snapshot = snapshot
}

// SetReclaimStats configures the stats returned by ReclaimStats
func (m *MockMemoryStats) SetReclaimStats(stats types.ReclaimStats) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stats = stats
}

// SetErrors configures errors returned by both accessors
func (m *MockMemoryStats) SetErrors(snapshotErr, statsErr error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snapshotErr = snapshotErr
	m.statsErr = statsErr
}

// MockProcessSource is a mock implementation of ProcessSource for testing
type MockProcessSource struct {
	mu      sync.RWMutex
	records []types.ProcessRecord
	err     error
}

// NewMockProcessSource creates a new mock process source
func NewMockProcessSource(records ...types.ProcessRecord) *MockProcessSource {
	return &MockProcessSource{records: records}
}

// Processes returns the configured records
func (m *MockProcessSource) Processes() ([]types.ProcessRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.err != nil {
		return nil, m.err
	}
	out := make([]types.ProcessRecord, len(m.records))
	copy(out, m.records)
	return out, nil
}

// SetRecords replaces the process table
func (m *MockProcessSource) SetRecords(records []types.ProcessRecord) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = records
}

// SetError makes Processes fail
func (m *MockProcessSource) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// MockTerminator is a mock implementation of Terminator for testing
type MockTerminator struct {
	mu     sync.RWMutex
	killed []int
	err    error
}

// NewMockTerminator creates a new mock terminator
func NewMockTerminator() *MockTerminator {
	return &MockTerminator{}
}

// Kill records the pid and returns the configured error
func (m *MockTerminator) Kill(pid int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.killed = append(m.killed, pid)
	return m.err
}

// Killed returns the pids killed so far
func (m *MockTerminator) Killed() []int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]int, len(m.killed))
	copy(out, m.killed)
	return out
}

// SetError makes Kill fail
func (m *MockTerminator) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// MockExitSource is a mock implementation of ExitSource for testing
type MockExitSource struct {
	mu      sync.RWMutex
	watched []int
	events  chan types.ExitEvent
}

// NewMockExitSource creates a new mock exit source
func NewMockExitSource() *MockExitSource {
	return &MockExitSource{events: make(chan types.ExitEvent, 16)}
}

// Watch records the registration
func (m *MockExitSource) Watch(pid int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.watched = append(m.watched, pid)
}

// Events returns the event channel
func (m *MockExitSource) Events() <-chan types.ExitEvent {
	return m.events
}

// Run blocks until the context is cancelled
func (m *MockExitSource) Run(ctx context.Context) error {
	<-ctx.Done()
	return nil
}

// Emit publishes an exit event
func (m *MockExitSource) Emit(event types.ExitEvent) {
	m.events <- event
}

// Watched returns the pids registered so far
func (m *MockExitSource) Watched() []int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]int, len(m.watched))
	copy(out, m.watched)
	return out
}

// MockKillNotifier is a mock implementation of KillNotifier for testing
type MockKillNotifier struct {
	mu        sync.RWMutex
	kills     []types.KillEvent
	pressures []types.PressureLevel
}

// NewMockKillNotifier creates a new mock notifier
func NewMockKillNotifier() *MockKillNotifier {
	return &MockKillNotifier{}
}

// NotifyKill records the event
func (m *MockKillNotifier) NotifyKill(event types.KillEvent) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.kills = append(m.kills, event)
}

// NotifyPressure records the level
func (m *MockKillNotifier) NotifyPressure(level types.PressureLevel, snapshot types.PressureSnapshot) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pressures = append(m.pressures, level)
}

// Kills returns the recorded kill events
func (m *MockKillNotifier) Kills() []types.KillEvent {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]types.KillEvent, len(m.kills))
	copy(out, m.kills)
	return out
}

// Pressures returns the recorded pressure levels
func (m *MockKillNotifier) Pressures() []types.PressureLevel {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]types.PressureLevel, len(m.pressures))
	copy(out, m.pressures)
	return out
}

// MockStateTracker is a mock implementation of StateTracker for testing
type MockStateTracker struct {
	mu         sync.RWMutex
	kills      []types.KillEvent
	heartbeats int
	err        error
}

// NewMockStateTracker creates a new mock state tracker
func NewMockStateTracker() *MockStateTracker {
	return &MockStateTracker{}
}

// RecordKill appends the event
func (m *MockStateTracker) RecordKill(event types.KillEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.kills = append(m.kills, event)
	return nil
}

// Kills returns the recorded kill events
func (m *MockStateTracker) Kills() []types.KillEvent {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]types.KillEvent, len(m.kills))
	copy(out, m.kills)
	return out
}

// RecordHeartbeat counts the call
func (m *MockStateTracker) RecordHeartbeat() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.heartbeats++
	return nil
}

// History returns up to limit most-recent events
func (m *MockStateTracker) History(limit int) ([]types.KillEvent, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.err != nil {
		return nil, m.err
	}
	history := m.kills
	if limit > 0 && len(history) > limit {
		history = history[len(history)-limit:]
	}
	out := make([]types.KillEvent, len(history))
	copy(out, history)
	return out, nil
}

// SetError makes every method fail
func (m *MockStateTracker) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Compile-time interface conformance checks
var (
	_ interfaces.MemoryStats   = (*MockMemoryStats)(nil)
	_ interfaces.ProcessSource = (*MockProcessSource)(nil)
	_ interfaces.Terminator    = (*MockTerminator)(nil)
	_ interfaces.ExitSource    = (*MockExitSource)(nil)
	_ interfaces.KillNotifier  = (*MockKillNotifier)(nil)
	_ interfaces.StateTracker  = (*MockStateTracker)(nil)
)
