package state

import (
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/lowmemd/lowmemd/pkg/logger"
	"github.com/lowmemd/lowmemd/pkg/types"
)

func newTestStateManager(t *testing.T) *Manager {
	t.Helper()
	log := logger.CreateLoggerWithOutput("error", io.Discard)
	return NewManager(t.TempDir(), log)
}

func killEvent(pid int) types.KillEvent {
	return types.KillEvent{
		ID:        "test",
		PID:       pid,
		Name:      "proc",
		Timestamp: time.Now(),
		Status:    types.KillStatusArmed,
	}
}

func TestInitializeWritesStateFile(t *testing.T) {
	m := newTestStateManager(t)

	if err := m.Initialize(); err != nil {
		t.Fatalf("Initialize: %v", err)
	}

	doc, err := m.Read()
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if doc.PID != os.Getpid() {
		t.Errorf("pid = %d, want %d", doc.PID, os.Getpid())
	}
	if doc.KillCount != 0 {
		t.Errorf("kill count = %d, want 0", doc.KillCount)
	}
}

func TestRecordKillAccumulates(t *testing.T) {
	m := newTestStateManager(t)
	if err := m.Initialize(); err != nil {
		t.Fatalf("Initialize: %v", err)
	}

	for pid := 1; pid <= 3; pid++ {
		if err := m.RecordKill(killEvent(pid)); err != nil {
			t.Fatalf("RecordKill: %v", err)
		}
	}

	doc, err := m.Read()
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if doc.KillCount != 3 {
		t.Errorf("kill count = %d, want 3", doc.KillCount)
	}
	if doc.LastKill == nil || doc.LastKill.PID != 3 {
		t.Errorf("last kill = %+v, want pid 3", doc.LastKill)
	}

	history, err := m.History(2)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(history) != 2 || history[0].PID != 2 || history[1].PID != 3 {
		t.Errorf("history = %+v, want pids [2 3]", history)
	}
}

func TestHistoryCapped(t *testing.T) {
	m := newTestStateManager(t)
	if err := m.Initialize(); err != nil {
		t.Fatalf("Initialize: %v", err)
	}

	for pid := 1; pid <= maxHistory+10; pid++ {
		if err := m.RecordKill(killEvent(pid)); err != nil {
			t.Fatalf("RecordKill: %v", err)
		}
	}

	history, err := m.History(0)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(history) != maxHistory {
		t.Errorf("history length = %d, want %d", len(history), maxHistory)
	}
	if history[len(history)-1].PID != maxHistory+10 {
		t.Errorf("newest pid = %d, want %d", history[len(history)-1].PID, maxHistory+10)
	}
}

func TestStatisticsSurviveRestart(t *testing.T) {
	dir := t.TempDir()
	log := logger.CreateLoggerWithOutput("error", io.Discard)

	first := NewManager(dir, log)
	if err := first.Initialize(); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	if err := first.RecordKill(killEvent(42)); err != nil {
		t.Fatalf("RecordKill: %v", err)
	}

	second := NewManager(dir, log)
	if err := second.Initialize(); err != nil {
		t.Fatalf("second Initialize: %v", err)
	}

	doc, err := second.Read()
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if doc.KillCount != 1 {
		t.Errorf("kill count after restart = %d, want 1", doc.KillCount)
	}
	if doc.LastKill == nil || doc.LastKill.PID != 42 {
		t.Errorf("last kill after restart = %+v, want pid 42", doc.LastKill)
	}
}

func TestHeartbeatAdvances(t *testing.T) {
	m := newTestStateManager(t)
	if err := m.Initialize(); err != nil {
		t.Fatalf("Initialize: %v", err)
	}

	before, _ := m.Read()
	time.Sleep(5 * time.Millisecond)
	if err := m.RecordHeartbeat(); err != nil {
		t.Fatalf("RecordHeartbeat: %v", err)
	}
	after, _ := m.Read()

	if !after.Heartbeat.After(before.Heartbeat) {
		t.Error("heartbeat timestamp did not advance")
	}
}

func TestRemove(t *testing.T) {
	m := newTestStateManager(t)
	if err := m.Initialize(); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	if err := m.Remove(); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if _, err := m.Read(); err == nil {
		t.Error("Read should fail after Remove")
	}
	// Removing again is not an error
	if err := m.Remove(); err != nil {
		t.Errorf("second Remove: %v", err)
	}
}

func TestDefaultStateDirIsAbsolute(t *testing.T) {
	if !filepath.IsAbs(DefaultStateDir()) {
		t.Errorf("DefaultStateDir() = %q, want an absolute path", DefaultStateDir())
	}
}
