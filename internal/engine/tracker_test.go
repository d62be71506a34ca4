package engine

import (
	"context"
	"testing"
	"time"

	"github.com/lowmemd/lowmemd/pkg/types"
)

// fakeClock drives the tracker's notion of time in tests
type fakeClock struct {
	current time.Time
}

func (c *fakeClock) now() time.Time {
	return c.current
}

func (c *fakeClock) advance(d time.Duration) {
	c.current = c.current.Add(d)
}

func newTestTracker(t *testing.T) (*Tracker, *fakeClock) {
	t.Helper()
	clock := &fakeClock{current: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	tracker := NewTracker(newTestLogger())
	tracker.now = clock.now
	return tracker, clock
}

func TestTrackerArmAndPending(t *testing.T) {
	tracker, _ := newTestTracker(t)

	if tracker.Pending() {
		t.Fatal("fresh tracker must be idle")
	}

	event, armed := tracker.Arm(candidate(42, 5, 3600), time.Second)
	if !armed {
		t.Fatal("arming an idle tracker must succeed")
	}
	if event.PID != 42 || event.Status != types.KillStatusArmed {
		t.Fatalf("event = %+v, want armed pid 42", event)
	}
	if event.ID == "" {
		t.Error("kill event must carry an ID")
	}

	if !tracker.Pending() {
		t.Error("tracker must report pending while armed and unexpired")
	}
	if tracker.Victim() != 42 {
		t.Errorf("victim = %d, want 42", tracker.Victim())
	}
}

func TestTrackerRefusesSecondArmWhileArmed(t *testing.T) {
	tracker, _ := newTestTracker(t)

	if _, armed := tracker.Arm(candidate(42, 5, 3600), time.Second); !armed {
		t.Fatal("first arm must succeed")
	}
	if _, armed := tracker.Arm(candidate(43, 5, 3600), time.Second); armed {
		t.Fatal("second arm while a kill is outstanding must be refused")
	}
}

func TestTrackerExpiryClearsLazily(t *testing.T) {
	tracker, clock := newTestTracker(t)

	tracker.Arm(candidate(42, 5, 3600), time.Second)
	clock.advance(time.Second) // exactly the grace quantum: expired

	if tracker.Pending() {
		t.Fatal("expired slot must clear on query")
	}
	if tracker.Victim() != 0 {
		t.Errorf("victim = %d after expiry, want 0", tracker.Victim())
	}

	if _, armed := tracker.Arm(candidate(43, 5, 3600), time.Second); !armed {
		t.Error("arming must succeed after the previous slot expired")
	}
}

func TestTrackerExitEventRearms(t *testing.T) {
	tracker, _ := newTestTracker(t)

	tracker.Arm(candidate(42, 5, 3600), time.Minute)

	if cleared := tracker.ObserveExit(types.ExitEvent{PID: 42}); !cleared {
		t.Fatal("matching exit event must clear the slot")
	}
	if tracker.Pending() {
		t.Error("tracker must be idle after the victim's exit")
	}
	if _, armed := tracker.Arm(candidate(43, 5, 3600), time.Minute); !armed {
		t.Error("arming must succeed immediately after exit confirmation")
	}
}

func TestTrackerIgnoresUnrelatedExit(t *testing.T) {
	tracker, _ := newTestTracker(t)

	tracker.Arm(candidate(42, 5, 3600), time.Minute)

	if cleared := tracker.ObserveExit(types.ExitEvent{PID: 999}); cleared {
		t.Fatal("exit of an unrelated pid must not clear the slot")
	}
	if !tracker.Pending() {
		t.Error("tracker must stay armed after an unrelated exit")
	}
}

func TestTrackerIgnoresExitWhileIdle(t *testing.T) {
	tracker, _ := newTestTracker(t)

	if cleared := tracker.ObserveExit(types.ExitEvent{PID: 42}); cleared {
		t.Fatal("idle tracker must ignore exit events")
	}
}

func TestTrackerSubscribeConsumesFeed(t *testing.T) {
	tracker, _ := newTestTracker(t)
	tracker.Arm(candidate(42, 5, 3600), time.Minute)

	events := make(chan types.ExitEvent, 1)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		tracker.Subscribe(ctx, events)
		close(done)
	}()

	events <- types.ExitEvent{PID: 42, ExitedAt: time.Now()}

	deadline := time.After(time.Second)
	for tracker.Pending() {
		select {
		case <-deadline:
			t.Fatal("slot not cleared after exit event on the feed")
		case <-time.After(5 * time.Millisecond):
		}
	}

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Subscribe did not return on context cancellation")
	}
}
