package engine

import (
	"github.com/lowmemd/lowmemd/pkg/types"
)

// pageSize is the assumed page granularity for the closeness floor
const pageSize = 4096

// initialClosenessFloor is one GiB expressed in pages. The proportional
// tie-break starts from this floor and only tightens within a single pass.
const initialClosenessFloor = int64(1<<30) / pageSize

// selection is the per-pass selection state. It exists only for the
// duration of one pass; the closeness floor is re-initialized by the
// constructor so a tightened floor can never bias a later pass.
type selection struct {
	best         *types.Candidate
	bestPriority int

	requested  int64
	multiplier int64
	legacy     bool

	closenessFloor int64
	tightened      bool
}

// newSelection starts a selection pass at the given eligibility floor
func newSelection(floor int, requested, multiplier int64, legacy bool) *selection {
	return &selection{
		bestPriority:   floor,
		requested:      requested,
		multiplier:     multiplier,
		legacy:         legacy,
		closenessFloor: initialClosenessFloor,
	}
}

// consider applies the tie-break policy to one candidate. Priority
// dominates: a strictly higher-priority candidate always replaces the
// current best. At equal priority, legacy mode keeps the largest resident
// size while proportional mode keeps the candidate whose size lands
// closest to requested*multiplier pages, first-seen winning exact ties.
func (s *selection) consider(candidate types.Candidate) {
	if candidate.Priority < s.bestPriority {
		return
	}

	if s.best != nil && candidate.Priority == s.bestPriority {
		if s.legacy {
			if candidate.ResidentPages <= s.best.ResidentPages {
				return
			}
		} else {
			delta := s.delta(candidate.ResidentPages)
			if delta > s.closenessFloor {
				return
			}
			// First-seen wins when deltas are exactly equal
			if s.tightened && delta >= s.closenessFloor {
				return
			}
		}
	}

	if !s.legacy {
		if delta := s.delta(candidate.ResidentPages); delta <= s.closenessFloor {
			s.closenessFloor = delta
			s.tightened = true
		}
	}

	chosen := candidate
	s.best = &chosen
	s.bestPriority = candidate.Priority
}

// victim returns the selected candidate, or nil when nothing qualified
func (s *selection) victim() *types.Candidate {
	return s.best
}

// delta measures how far a resident size lands from the target reclaim
func (s *selection) delta(residentPages int64) int64 {
	target := s.requested * s.multiplier
	if residentPages > target {
		return residentPages - target
	}
	return target - residentPages
}
