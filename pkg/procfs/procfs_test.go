package procfs_test

import (
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/lowmemd/lowmemd/pkg/procfs"
)

const sampleMemInfo = `MemTotal:       16303428 kB
MemFree:          409600 kB
MemAvailable:    8165432 kB
Buffers:          212992 kB
Cached:          4214784 kB
SwapCached:            0 kB
Active:          5872640 kB
Inactive:        3964928 kB
Active(anon):    3145728 kB
Inactive(anon):   524288 kB
Active(file):    2726912 kB
Inactive(file):  3440640 kB
Shmem:            118784 kB
`

func pageKB() int64 {
	return int64(os.Getpagesize()) / 1024
}

func writeMemInfo(t *testing.T, content string) string {
	t.Helper()
	root := t.TempDir()
	if err := os.WriteFile(filepath.Join(root, "meminfo"), []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return root
}

func TestSnapshot(t *testing.T) {
	root := writeMemInfo(t, sampleMemInfo)
	reader := procfs.NewMemInfoReaderAt(root)

	snapshot, err := reader.Snapshot()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	wantFree := 409600 / pageKB()
	wantCached := (4214784 - 118784) / pageKB()

	if snapshot.FreePages != wantFree {
		t.Errorf("expected %d free pages, got %d", wantFree, snapshot.FreePages)
	}
	if snapshot.CachedFilePages != wantCached {
		t.Errorf("expected %d cached file pages, got %d", wantCached, snapshot.CachedFilePages)
	}
}

func TestReclaimStats(t *testing.T) {
	root := writeMemInfo(t, sampleMemInfo)
	reader := procfs.NewMemInfoReaderAt(root)

	stats, err := reader.ReclaimStats()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	wantTotal := (3145728 + 524288 + 2726912 + 3440640) / pageKB()
	if stats.Total() != wantTotal {
		t.Errorf("expected total %d pages, got %d", wantTotal, stats.Total())
	}
}

func TestSnapshotMissingMemInfo(t *testing.T) {
	reader := procfs.NewMemInfoReaderAt(t.TempDir())
	if _, err := reader.Snapshot(); err == nil {
		t.Error("expected error for missing meminfo")
	}
}

func TestSnapshotMalformedLinesSkipped(t *testing.T) {
	root := writeMemInfo(t, "MemFree: not-a-number kB\ngarbage line\nCached: 4096 kB\nShmem: 0 kB\n")
	reader := procfs.NewMemInfoReaderAt(root)

	snapshot, err := reader.Snapshot()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if snapshot.FreePages != 0 {
		t.Errorf("expected malformed MemFree to read as zero, got %d", snapshot.FreePages)
	}
	if snapshot.CachedFilePages != 4096/pageKB() {
		t.Errorf("unexpected cached pages: %d", snapshot.CachedFilePages)
	}
}

func writeProcess(t *testing.T, root string, pid int, comm, adj, statm string) {
	t.Helper()
	dir := filepath.Join(root, strconv.Itoa(pid))
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatal(err)
	}
	files := map[string]string{"comm": comm, "oom_score_adj": adj, "statm": statm}
	for name, content := range files {
		if content == "" {
			continue
		}
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0644); err != nil {
			t.Fatal(err)
		}
	}
}

func TestProcesses(t *testing.T) {
	root := t.TempDir()
	writeProcess(t, root, 100, "init\n", "0\n", "2000 500 100 10 0 300 0\n")
	writeProcess(t, root, 250, "browser\n", "300\n", "90000 45000 2000 50 0 60000 0\n")
	// Kernel thread: no memory context
	writeProcess(t, root, 2, "kthreadd\n", "-1000\n", "0 0 0 0 0 0 0\n")
	// Non-pid directories must be ignored
	if err := os.MkdirAll(filepath.Join(root, "sys"), 0755); err != nil {
		t.Fatal(err)
	}

	lister := procfs.NewProcessListerAt(root)
	records, err := lister.Processes()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(records) != 3 {
		t.Fatalf("expected 3 records, got %d", len(records))
	}

	byPID := make(map[int]int)
	for i, record := range records {
		byPID[record.PID] = i
	}

	browser := records[byPID[250]]
	if browser.Name != "browser" || browser.Priority != 300 || browser.ResidentPages != 45000 {
		t.Errorf("unexpected browser record: %+v", browser)
	}
	if !browser.HasMemory {
		t.Error("expected browser to have a memory context")
	}

	kthread := records[byPID[2]]
	if kthread.HasMemory {
		t.Error("expected kernel thread to have no memory context")
	}
}

func TestProcessesSkipsVanishedPid(t *testing.T) {
	root := t.TempDir()
	writeProcess(t, root, 100, "init\n", "0\n", "2000 500 100 10 0 300 0\n")
	// Entry with no oom_score_adj simulates a process that exited mid-walk
	if err := os.MkdirAll(filepath.Join(root, "999"), 0755); err != nil {
		t.Fatal(err)
	}

	lister := procfs.NewProcessListerAt(root)
	records, err := lister.Processes()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(records) != 1 {
		t.Errorf("expected vanished pid skipped, got %d records", len(records))
	}
}
