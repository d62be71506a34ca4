// Package engine provides the core eviction policy engine for lowmemd.
// This package consolidates the following functionality:
// - Threshold table (thresholds.go): pressure snapshot -> eligibility floor
// - Candidate scanner (scanner.go): process enumeration and filtering
// - Victim selector (selector.go): tie-break policy and per-pass state
// - Pending-kill tracker (tracker.go): single-slot debounce state machine
// - Evaluation orchestration (evictor.go): scan, select, arm, dispatch
package engine

// This file serves as the package documentation.
// The actual implementation is split across multiple files for clarity:
// - evictor.go: Evaluation orchestration and reclaim estimation
// - thresholds.go: Ordered threshold table
// - scanner.go: Candidate scanning with optional telemetry histogram
// - selector.go: Victim selection and tie-breaking
// - tracker.go: Pending-termination state machine
// - factory.go: Dependency injection factory
// - safegroup.go: Panic-safe concurrency utilities
