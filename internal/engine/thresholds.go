package engine

import (
	"github.com/lowmemd/lowmemd/pkg/types"
)

// ThresholdTable is the ordered priority-floor / free-pages-floor pairing
// consulted to compute the eligibility threshold for a pressure snapshot.
// Built fresh from the policy at the start of each pass, so a concurrent
// parameter update is picked up on the next pass at the latest.
type ThresholdTable struct {
	tiers []types.ThresholdTier
}

// NewThresholdTable pairs the policy's two tables positionally. Only the
// common prefix of the independently-sized tables is used; trailing
// unpaired entries are ignored, never an error.
func NewThresholdTable(policy *types.EvictionPolicyConfig) ThresholdTable {
	return ThresholdTable{tiers: policy.Tiers()}
}

// EligibilityFloor walks the table in ascending order and returns the
// priority floor of the first tier where both free pages and cached file
// pages sit below the tier's free-pages floor. ok is false when no tier
// matches, including the empty-table case: memory is not under pressure
// by this policy's definition and nobody is eligible this pass.
func (t ThresholdTable) EligibilityFloor(snapshot types.PressureSnapshot) (int, bool) {
	for _, tier := range t.tiers {
		if snapshot.FreePages < tier.FreePagesFloor &&
			snapshot.CachedFilePages < tier.FreePagesFloor {
			return tier.PriorityFloor, true
		}
	}
	return 0, false
}

// Tiers returns the paired tiers in ascending order
func (t ThresholdTable) Tiers() []types.ThresholdTier {
	return t.tiers
}

// Empty reports whether no tiers are configured
func (t ThresholdTable) Empty() bool {
	return len(t.tiers) == 0
}
