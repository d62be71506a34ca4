package engine

import (
	"fmt"
	"strings"

	"github.com/lowmemd/lowmemd/pkg/interfaces"
	"github.com/lowmemd/lowmemd/pkg/types"
)

// histogramSlots bounds the per-priority diagnostic histogram.
const histogramSlots = 20

// adjHistogram accumulates a per-priority count of processes seen during
// a scan. Purely advisory telemetry: a nil histogram is a valid state and
// selection outcomes never depend on it.
type adjHistogram struct {
	counts []int
}

// newAdjHistogram returns a histogram, or nil when the scratch buffer is
// unavailable. Callers treat nil as "telemetry off for this pass".
func newAdjHistogram(enabled bool) *adjHistogram {
	if !enabled {
		return nil
	}
	return &adjHistogram{counts: make([]int, histogramSlots)}
}

// Observe counts one process at the given priority
func (h *adjHistogram) Observe(priority int) {
	if h == nil || priority < 0 || priority >= len(h.counts) {
		return
	}
	h.counts[priority]++
}

// Summary renders the non-zero buckets for debug logging
func (h *adjHistogram) Summary() string {
	if h == nil {
		return ""
	}

	var sb strings.Builder
	for priority, count := range h.counts {
		if count == 0 {
			continue
		}
		if sb.Len() > 0 {
			sb.WriteString(" ")
		}
		fmt.Fprintf(&sb, "%d:%d", priority, count)
	}
	return sb.String()
}

// scanCandidates enumerates live processes and filters them down to
// eviction candidates: a process qualifies when it has a memory context,
// its priority is at or above the eligibility floor, and its resident
// size is positive. The histogram, when present, sees every process with
// a memory context regardless of eligibility.
func scanCandidates(source interfaces.ProcessSource, floor int, hist *adjHistogram) ([]types.Candidate, error) {
	records, err := source.Processes()
	if err != nil {
		return nil, fmt.Errorf("failed to enumerate processes: %w", err)
	}

	candidates := make([]types.Candidate, 0, len(records))
	for _, record := range records {
		if !record.HasMemory {
			continue
		}

		hist.Observe(record.Priority)

		if record.Priority < floor {
			continue
		}
		if record.ResidentPages <= 0 {
			continue
		}

		candidates = append(candidates, types.Candidate{
			PID:           record.PID,
			Name:          record.Name,
			Priority:      record.Priority,
			ResidentPages: record.ResidentPages,
		})
	}

	return candidates, nil
}
