package procfs

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/lowmemd/lowmemd/pkg/types"
)

// ProcessLister enumerates live processes from /proc. The priority of a
// process is its oom_score_adj: higher means more reclaim-worthy. Kernel
// threads carry no memory context (zero-sized statm) and are yielded with
// HasMemory false so the scanner can exclude them.
type ProcessLister struct {
	root string
}

// NewProcessLister enumerates from the real /proc
func NewProcessLister() *ProcessLister {
	return NewProcessListerAt("/proc")
}

// NewProcessListerAt enumerates from an alternate proc root (for tests)
func NewProcessListerAt(root string) *ProcessLister {
	return &ProcessLister{root: root}
}

// Processes yields one record per live pid. A process that disappears
// mid-walk is skipped silently; enumeration order is whatever the
// directory listing provides and is not guaranteed stable across calls.
func (l *ProcessLister) Processes() ([]types.ProcessRecord, error) {
	entries, err := os.ReadDir(l.root)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", l.root, err)
	}

	records := make([]types.ProcessRecord, 0, len(entries))
	for _, entry := range entries {
		pid, err := strconv.Atoi(entry.Name())
		if err != nil {
			continue
		}

		record, ok := l.readProcess(pid)
		if !ok {
			continue
		}
		records = append(records, record)
	}

	return records, nil
}

// Private methods

func (l *ProcessLister) readProcess(pid int) (types.ProcessRecord, bool) {
	dir := filepath.Join(l.root, strconv.Itoa(pid))

	record := types.ProcessRecord{PID: pid}

	if name, err := os.ReadFile(filepath.Join(dir, "comm")); err == nil {
		record.Name = strings.TrimSpace(string(name))
	}

	adj, err := os.ReadFile(filepath.Join(dir, "oom_score_adj"))
	if err != nil {
		// Raced with process exit
		return types.ProcessRecord{}, false
	}
	priority, err := strconv.Atoi(strings.TrimSpace(string(adj)))
	if err != nil {
		return types.ProcessRecord{}, false
	}
	record.Priority = priority

	statm, err := os.ReadFile(filepath.Join(dir, "statm"))
	if err != nil {
		return types.ProcessRecord{}, false
	}
	size, resident, ok := parseStatm(string(statm))
	if !ok {
		return types.ProcessRecord{}, false
	}

	record.HasMemory = size > 0
	record.ResidentPages = resident

	return record, true
}

// parseStatm extracts the total program size and resident set size, both
// in pages, from a /proc/<pid>/statm line.
func parseStatm(data string) (size, resident int64, ok bool) {
	fields := strings.Fields(data)
	if len(fields) < 2 {
		return 0, 0, false
	}

	size, err := strconv.ParseInt(fields[0], 10, 64)
	if err != nil {
		return 0, 0, false
	}
	resident, err = strconv.ParseInt(fields[1], 10, 64)
	if err != nil {
		return 0, 0, false
	}

	return size, resident, true
}
