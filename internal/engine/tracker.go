package engine

import (
	"context"
	"sync"
	"time"

	pcontext "github.com/lowmemd/lowmemd/pkg/context"
	"github.com/lowmemd/lowmemd/pkg/logger"
	"github.com/lowmemd/lowmemd/pkg/types"
)

// trackerState is the pending-termination state machine state
type trackerState int

const (
	trackerIdle trackerState = iota
	trackerArmed
)

// Tracker is the debounced single-slot registry of the one outstanding
// termination request. At most one entry is armed at any time; the slot
// clears on a matching exit event, or lazily once the grace quantum has
// passed. While armed and unexpired, new selections short-circuit, which
// prevents issuing a second kill before the first is confirmed or has had
// a fair chance to complete.
type Tracker struct {
	logger Logger

	mu         sync.Mutex
	state      trackerState
	victimPID  int
	victimName string
	eventID    string
	armedUntil time.Time

	// now is swappable for tests
	now func() time.Time
}

// NewTracker creates an idle tracker
func NewTracker(log Logger) *Tracker {
	return &Tracker{
		logger: log,
		state:  trackerIdle,
		now:    time.Now,
	}
}

// Arm transitions IDLE -> ARMED for the given victim and returns the kill
// event recording the transition. Returns false if a request is still
// outstanding; the caller must not dispatch in that case.
func (t *Tracker) Arm(victim types.Candidate, grace time.Duration) (types.KillEvent, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.state == trackerArmed && t.now().Before(t.armedUntil) {
		return types.KillEvent{}, false
	}

	t.state = trackerArmed
	t.victimPID = victim.PID
	t.victimName = victim.Name
	t.eventID = pcontext.GenerateKillID()
	t.armedUntil = t.now().Add(grace)

	return types.KillEvent{
		ID:            t.eventID,
		PID:           victim.PID,
		Name:          victim.Name,
		Priority:      victim.Priority,
		ResidentPages: victim.ResidentPages,
		Timestamp:     t.now(),
		Status:        types.KillStatusArmed,
	}, true
}

// Pending reports whether a termination request is outstanding. An armed
// entry whose grace quantum has passed is cleared here, on query: the
// time-based fallback covering a missed or delayed exit notification.
func (t *Tracker) Pending() bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.state != trackerArmed {
		return false
	}

	if !t.now().Before(t.armedUntil) {
		t.logger.Debug("pending kill expired without exit confirmation",
			logger.WithField("pid", t.victimPID),
			logger.WithField("name", t.victimName))
		t.clearLocked()
		return false
	}

	return true
}

// ObserveExit clears the slot if the exit event names the armed victim.
// Fires as soon as the host confirms the death; does not wait for the
// grace quantum. Returns true when the slot was cleared.
func (t *Tracker) ObserveExit(event types.ExitEvent) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.state != trackerArmed || event.PID != t.victimPID {
		return false
	}

	t.logger.Debug("exit confirmed for pending kill",
		logger.WithField("pid", event.PID),
		logger.WithField("name", t.victimName))
	t.clearLocked()
	return true
}

// Victim returns the armed victim's pid, or 0 when idle
func (t *Tracker) Victim() int {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.state != trackerArmed {
		return 0
	}
	return t.victimPID
}

// Subscribe consumes exit events until the context is cancelled or the
// channel closes. The exit feed is a many-producer/one-consumer stream;
// the tracker is its sole consumer.
func (t *Tracker) Subscribe(ctx context.Context, events <-chan types.ExitEvent) {
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-events:
			if !ok {
				return
			}
			t.ObserveExit(event)
		}
	}
}

// clearLocked resets to IDLE. Caller holds t.mu.
func (t *Tracker) clearLocked() {
	t.state = trackerIdle
	t.victimPID = 0
	t.victimName = ""
	t.eventID = ""
	t.armedUntil = time.Time{}
}
