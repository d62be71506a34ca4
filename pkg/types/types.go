// Package types provides core types and configurations for lowmemd
package types

import (
	"time"
)

// PressureLevel classifies how constrained system memory currently is
type PressureLevel string

const (
	PressureLevelNone     PressureLevel = "none"
	PressureLevelModerate PressureLevel = "moderate"
	PressureLevelHigh     PressureLevel = "high"
	PressureLevelCritical PressureLevel = "critical"
)

// LogLevel represents logging verbosity levels
type LogLevel string

const (
	LogLevelDebug LogLevel = "debug"
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"
)

// KillStatus represents the state of a termination request
type KillStatus string

const (
	KillStatusArmed     KillStatus = "armed"
	KillStatusConfirmed KillStatus = "confirmed"
	KillStatusExpired   KillStatus = "expired"
)

// MaxTierSlots bounds the threshold table size. Twelve slots is enough
// for any practical adj/minfree tuning.
const MaxTierSlots = 12

// PressureSnapshot is a point-in-time read of system memory state.
// FreePages counts unallocated pages; CachedFilePages counts page-cache
// pages that could be dropped (file pages minus shmem, which cannot).
type PressureSnapshot struct {
	FreePages       int64 `json:"freePages"`
	CachedFilePages int64 `json:"cachedFilePages"`
}

// ReclaimStats carries the page counts the reclaim estimate is summed from
type ReclaimStats struct {
	ActiveAnonPages   int64 `json:"activeAnonPages"`
	InactiveAnonPages int64 `json:"inactiveAnonPages"`
	ActiveFilePages   int64 `json:"activeFilePages"`
	InactiveFilePages int64 `json:"inactiveFilePages"`
}

// Total returns the summed reclaimable-page estimate
func (r ReclaimStats) Total() int64 {
	return r.ActiveAnonPages + r.InactiveAnonPages + r.ActiveFilePages + r.InactiveFilePages
}

// Candidate is one eligible process at scan time. Constructed fresh per
// scan; never retained across passes.
type Candidate struct {
	PID           int    `json:"pid"`
	Name          string `json:"name"`
	Priority      int    `json:"priority"`
	ResidentPages int64  `json:"residentPages"`
}

// ProcessRecord is what the process source yields for every live process,
// before eligibility filtering.
type ProcessRecord struct {
	PID           int
	Name          string
	Priority      int
	ResidentPages int64
	HasMemory     bool
}

// ThresholdTier pairs a priority floor with the free-memory floor below
// which that priority becomes eligible for eviction.
type ThresholdTier struct {
	PriorityFloor  int   `json:"priorityFloor" yaml:"priorityFloor"`
	FreePagesFloor int64 `json:"freePagesFloor" yaml:"freePagesFloor"`
}

// EvictionPolicyConfig holds the operator-tunable policy parameters.
// The priority and minfree tables are independently sized; only the
// common prefix is consulted.
type EvictionPolicyConfig struct {
	PriorityFloors []int   `json:"priorityFloors" yaml:"priorityFloors"`
	MinFreePages   []int64 `json:"minFreePages" yaml:"minFreePages"`
	Multiplier     int64   `json:"multiplier" yaml:"multiplier"`
	LegacyMode     bool    `json:"legacyMode" yaml:"legacyMode"`
	DebugLevel     uint    `json:"debugLevel" yaml:"debugLevel"`
	GracePeriodMS  int     `json:"gracePeriodMs" yaml:"gracePeriodMs"`
}

// GracePeriod returns the tracker grace quantum, defaulting to one second.
func (c *EvictionPolicyConfig) GracePeriod() time.Duration {
	if c.GracePeriodMS <= 0 {
		return time.Second
	}
	return time.Duration(c.GracePeriodMS) * time.Millisecond
}

// Tiers pairs the two tables positionally. Trailing unpaired entries are
// ignored, never an error.
func (c *EvictionPolicyConfig) Tiers() []ThresholdTier {
	n := len(c.PriorityFloors)
	if len(c.MinFreePages) < n {
		n = len(c.MinFreePages)
	}
	if n > MaxTierSlots {
		n = MaxTierSlots
	}

	tiers := make([]ThresholdTier, 0, n)
	for i := 0; i < n; i++ {
		tiers = append(tiers, ThresholdTier{
			PriorityFloor:  c.PriorityFloors[i],
			FreePagesFloor: c.MinFreePages[i],
		})
	}
	return tiers
}

// DaemonConfig configures the background poll loop
type DaemonConfig struct {
	PollIntervalMS     int    `json:"pollIntervalMs" yaml:"pollIntervalMs"`
	LogFile            string `json:"logFile,omitempty" yaml:"logFile,omitempty"`
	LogLevel           string `json:"logLevel,omitempty" yaml:"logLevel,omitempty"`
	DryRun             bool   `json:"dryRun,omitempty" yaml:"dryRun,omitempty"`
	TargetReclaimPages int64  `json:"targetReclaimPages,omitempty" yaml:"targetReclaimPages,omitempty"`
}

// PollInterval returns the poll period, defaulting to one second
func (c *DaemonConfig) PollInterval() time.Duration {
	if c.PollIntervalMS <= 0 {
		return time.Second
	}
	return time.Duration(c.PollIntervalMS) * time.Millisecond
}

// NotificationConfig configures operator notifications
type NotificationConfig struct {
	Enabled      *bool  `json:"enabled,omitempty" yaml:"enabled,omitempty"`
	KillSound    string `json:"killSound,omitempty" yaml:"killSound,omitempty"`
	MinimumLevel string `json:"minimumLevel,omitempty" yaml:"minimumLevel,omitempty"`
}

// LowmemdConfig is the root configuration document
type LowmemdConfig struct {
	Version       string               `json:"version" yaml:"version"`
	Policy        EvictionPolicyConfig `json:"policy" yaml:"policy"`
	Daemon        *DaemonConfig        `json:"daemon,omitempty" yaml:"daemon,omitempty"`
	Notifications *NotificationConfig  `json:"notifications,omitempty" yaml:"notifications,omitempty"`
}

// KillEvent records one armed termination for logging and notification
type KillEvent struct {
	ID            string     `json:"id"`
	PID           int        `json:"pid"`
	Name          string     `json:"name"`
	Priority      int        `json:"priority"`
	ResidentPages int64      `json:"residentPages"`
	Requested     int64      `json:"requestedPages"`
	Timestamp     time.Time  `json:"timestamp"`
	Status        KillStatus `json:"status"`
}

// ExitEvent is delivered on the exit-notification channel when a process
// is observed to have terminated.
type ExitEvent struct {
	PID      int       `json:"pid"`
	ExitedAt time.Time `json:"exitedAt"`
}

// EvictionDecision is the outcome of one evaluation pass
type EvictionDecision struct {
	Victim          *Candidate `json:"victim,omitempty"`
	Floor           int        `json:"floor"`
	FloorMatched    bool       `json:"floorMatched"`
	ReclaimEstimate int64      `json:"reclaimEstimate"`
	Pending         bool       `json:"pending"`
}

// ClassifyPressure maps a snapshot against the lowest and highest
// configured floors into a coarse level for notifications and logs.
func ClassifyPressure(snapshot PressureSnapshot, tiers []ThresholdTier) PressureLevel {
	if len(tiers) == 0 {
		return PressureLevelNone
	}

	lowest := tiers[0].FreePagesFloor
	highest := tiers[len(tiers)-1].FreePagesFloor

	switch {
	case snapshot.FreePages < lowest && snapshot.CachedFilePages < lowest:
		return PressureLevelCritical
	case snapshot.FreePages < highest && snapshot.CachedFilePages < highest:
		return PressureLevelHigh
	case snapshot.FreePages < highest*2:
		return PressureLevelModerate
	default:
		return PressureLevelNone
	}
}
