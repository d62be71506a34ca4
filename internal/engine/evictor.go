package engine

import (
	"context"
	"fmt"
	"sync"

	pcontext "github.com/lowmemd/lowmemd/pkg/context"
	"github.com/lowmemd/lowmemd/pkg/interfaces"
	"github.com/lowmemd/lowmemd/pkg/logger"
	"github.com/lowmemd/lowmemd/pkg/types"
)

// Engine is the eviction policy core. One Evaluate call runs the full
// threshold -> scan -> select -> arm sequence under a single mutex so the
// pending-kill tracker and the selection pass stay consistent against
// concurrent invocations. The termination dispatch itself happens after
// the lock is released; the tracker is already armed by then, so a
// concurrent pass short-circuits.
type Engine struct {
	logger  Logger
	deps    interfaces.Dependencies
	tracker *Tracker

	mu     sync.Mutex
	policy *types.EvictionPolicyConfig

	telemetry bool
}

// New creates an engine with the given policy and collaborators
func New(policy types.EvictionPolicyConfig, deps interfaces.Dependencies, log Logger) *Engine {
	p := policy
	return &Engine{
		logger:    log,
		deps:      deps,
		tracker:   NewTracker(log),
		policy:    &p,
		telemetry: policy.DebugLevel >= 3,
	}
}

// SetPolicy swaps the policy parameters. Whole-pointer replacement: an
// in-flight pass keeps the table it started with, the next pass sees the
// update.
func (e *Engine) SetPolicy(policy types.EvictionPolicyConfig) {
	p := policy
	e.mu.Lock()
	e.policy = &p
	e.telemetry = policy.DebugLevel >= 3
	e.mu.Unlock()
}

// Tracker exposes the pending-kill tracker for status queries
func (e *Engine) Tracker() *Tracker {
	return e.tracker
}

// WatchExits consumes the exit-notification feed until ctx is cancelled.
// Run once, from the owning daemon.
func (e *Engine) WatchExits(ctx context.Context) {
	e.tracker.Subscribe(ctx, e.deps.Exits.Events())
}

// Evaluate runs one eviction pass: computes the eligibility floor for the
// snapshot, scans and selects at most one victim, arms the tracker, and
// dispatches the termination. The returned decision carries the reclaim
// estimate the host uses to decide whether further reclaim passes are
// needed. requestedPages <= 0 is the query-only form: it reports the
// estimate without scanning and can never arm a kill.
func (e *Engine) Evaluate(ctx context.Context, requestedPages int64, snapshot types.PressureSnapshot) (types.EvictionDecision, error) {
	ctx = pcontext.EnrichContext(ctx)

	// Debounce: a death is already outstanding, nothing further to offer
	// on this pass.
	if e.tracker.Pending() {
		e.logger.DebugContext(ctx, "kill pending, skipping pass",
			logger.WithField("pid", e.tracker.Victim()))
		return types.EvictionDecision{Pending: true}, nil
	}

	e.mu.Lock()
	policy := e.policy
	telemetry := e.telemetry

	table := NewThresholdTable(policy)
	floor, matched := table.EligibilityFloor(snapshot)

	stats, err := e.deps.Memory.ReclaimStats()
	if err != nil {
		e.mu.Unlock()
		return types.EvictionDecision{}, fmt.Errorf("failed to read reclaim stats: %w", err)
	}
	rem := stats.Total()

	decision := types.EvictionDecision{
		Floor:           floor,
		FloorMatched:    matched,
		ReclaimEstimate: rem,
	}

	if requestedPages <= 0 || !matched {
		e.mu.Unlock()
		e.logger.DebugContext(ctx, "no eviction this pass",
			logger.WithField("requested", requestedPages),
			logger.WithField("free", snapshot.FreePages),
			logger.WithField("cached", snapshot.CachedFilePages),
			logger.WithField("estimate", rem))
		return decision, nil
	}

	hist := newAdjHistogram(telemetry)
	candidates, err := scanCandidates(e.deps.Processes, floor, hist)
	if err != nil {
		e.mu.Unlock()
		return types.EvictionDecision{}, err
	}

	sel := newSelection(floor, requestedPages, policy.Multiplier, policy.LegacyMode)
	for _, candidate := range candidates {
		sel.consider(candidate)
	}

	victim := sel.victim()
	if victim == nil {
		e.mu.Unlock()
		e.logger.DebugContext(ctx, "no eligible candidate",
			logger.WithField("floor", floor),
			logger.WithField("scanned", len(candidates)))
		return decision, nil
	}

	event, armed := e.tracker.Arm(*victim, policy.GracePeriod())
	if !armed {
		// Raced with another pass; treat as pending
		e.mu.Unlock()
		decision.Pending = true
		decision.ReclaimEstimate = 0
		return decision, nil
	}

	event.Requested = requestedPages
	decision.Victim = victim
	decision.ReclaimEstimate = rem - victim.ResidentPages
	e.mu.Unlock()

	if summary := hist.Summary(); summary != "" {
		e.logger.DebugContext(ctx, "priorities seen", logger.WithField("histogram", summary))
	}

	e.dispatch(ctx, event)

	return decision, nil
}

// Private methods

// dispatch sends the one-way termination request and fans out the kill
// event to the exit watcher, state tracker, and notifier. Runs outside
// the engine mutex; none of these failures unwind the decision.
func (e *Engine) dispatch(ctx context.Context, event types.KillEvent) {
	e.logger.InfoContext(ctx, "sending kill",
		logger.WithField("pid", event.PID),
		logger.WithField("name", event.Name),
		logger.WithField("priority", event.Priority),
		logger.WithField("resident_pages", event.ResidentPages))

	if err := e.deps.Terminator.Kill(event.PID); err != nil {
		// The grace quantum still expires the slot, so a failed dispatch
		// only delays the next pass.
		e.logger.WarnContext(ctx, "kill dispatch failed",
			logger.WithField("pid", event.PID),
			logger.WithField("error", err))
	}

	e.deps.Exits.Watch(event.PID)

	if e.deps.State != nil {
		if err := e.deps.State.RecordKill(event); err != nil {
			e.logger.DebugContext(ctx, "failed to record kill",
				logger.WithField("error", err))
		}
	}
	if e.deps.Notifier != nil {
		e.deps.Notifier.NotifyKill(event)
	}
}
