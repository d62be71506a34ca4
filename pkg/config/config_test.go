package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/lowmemd/lowmemd/pkg/logger"
	"github.com/lowmemd/lowmemd/pkg/types"
)

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadConfigJSON(t *testing.T) {
	path := writeConfig(t, "lowmemd.config.json", `{
		"version": "1.0",
		"policy": {
			"priorityFloors": [0, 1, 6, 12],
			"minFreePages": [1536, 2048, 4096, 16384],
			"multiplier": 36,
			"debugLevel": 2
		}
	}`)

	cfg, err := NewManager().LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if len(cfg.Policy.Tiers()) != 4 {
		t.Errorf("tiers = %d, want 4", len(cfg.Policy.Tiers()))
	}
	if cfg.Policy.Multiplier != 36 {
		t.Errorf("multiplier = %d, want 36", cfg.Policy.Multiplier)
	}
}

func TestLoadConfigYAML(t *testing.T) {
	path := writeConfig(t, "lowmemd.config.yaml", `
version: "1.0"
policy:
  priorityFloors: [0, 6]
  minFreePages: [1536, 4096]
  multiplier: 36
daemon:
  pollIntervalMs: 250
`)

	cfg, err := NewManager().LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if len(cfg.Policy.Tiers()) != 2 {
		t.Errorf("tiers = %d, want 2", len(cfg.Policy.Tiers()))
	}
	if cfg.Daemon == nil || cfg.Daemon.PollInterval() != 250*time.Millisecond {
		t.Errorf("poll interval = %v, want 250ms", cfg.Daemon.PollInterval())
	}
}

func TestLoadConfigGarbage(t *testing.T) {
	path := writeConfig(t, "lowmemd.config.json", `{{{not a config`)

	if _, err := NewManager().LoadConfig(path); err == nil {
		t.Fatal("expected error for unparseable config")
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	if _, err := NewManager().LoadConfig("/nonexistent/lowmemd.config.json"); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestValidateConfig(t *testing.T) {
	m := NewManager()

	tests := []struct {
		name    string
		mutate  func(*types.LowmemdConfig)
		wantErr bool
	}{
		{
			name:   "defaults are valid",
			mutate: func(*types.LowmemdConfig) {},
		},
		{
			name:    "wrong version",
			mutate:  func(c *types.LowmemdConfig) { c.Version = "2.0" },
			wantErr: true,
		},
		{
			name:    "descending priority floors",
			mutate:  func(c *types.LowmemdConfig) { c.Policy.PriorityFloors = []int{6, 0} },
			wantErr: true,
		},
		{
			name:    "descending minfree",
			mutate:  func(c *types.LowmemdConfig) { c.Policy.MinFreePages = []int64{4096, 1536} },
			wantErr: true,
		},
		{
			name:    "zero minfree slot",
			mutate:  func(c *types.LowmemdConfig) { c.Policy.MinFreePages = []int64{0, 4096} },
			wantErr: true,
		},
		{
			name:    "negative multiplier",
			mutate:  func(c *types.LowmemdConfig) { c.Policy.Multiplier = -1 },
			wantErr: true,
		},
		{
			name:    "negative poll interval",
			mutate:  func(c *types.LowmemdConfig) { c.Daemon.PollIntervalMS = -1 },
			wantErr: true,
		},
		{
			name: "empty tables are legal",
			mutate: func(c *types.LowmemdConfig) {
				c.Policy.PriorityFloors = nil
				c.Policy.MinFreePages = nil
			},
		},
		{
			name: "unpaired trailing entries are legal",
			mutate: func(c *types.LowmemdConfig) {
				c.Policy.PriorityFloors = []int{0}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := m.GetDefaultConfig()
			tt.mutate(cfg)
			err := m.ValidateConfig(cfg)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateConfig error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestDefaultConfigMatchesClassicTuning(t *testing.T) {
	cfg := NewManager().GetDefaultConfig()

	wantFloors := []int{0, 1, 6, 12}
	for i, floor := range wantFloors {
		if cfg.Policy.PriorityFloors[i] != floor {
			t.Errorf("floor[%d] = %d, want %d", i, cfg.Policy.PriorityFloors[i], floor)
		}
	}
	wantMinFree := []int64{1536, 2048, 4096, 16384}
	for i, pages := range wantMinFree {
		if cfg.Policy.MinFreePages[i] != pages {
			t.Errorf("minfree[%d] = %d, want %d", i, cfg.Policy.MinFreePages[i], pages)
		}
	}
	if cfg.Policy.Multiplier != 36 {
		t.Errorf("multiplier = %d, want 36", cfg.Policy.Multiplier)
	}
	if cfg.Policy.LegacyMode {
		t.Error("legacy mode must default off")
	}
}

func TestWriteDefaultConfigRefusesOverwrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, DefaultConfigName)

	m := NewManager()
	if err := m.WriteDefaultConfig(path); err != nil {
		t.Fatalf("WriteDefaultConfig: %v", err)
	}
	if err := m.WriteDefaultConfig(path); err == nil {
		t.Fatal("second write must refuse to overwrite")
	}

	cfg, err := m.LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig of written default: %v", err)
	}
	if cfg.Version != "1.0" {
		t.Errorf("version = %q, want 1.0", cfg.Version)
	}
}

func TestFindConfigWalksAncestors(t *testing.T) {
	root := t.TempDir()
	nested := filepath.Join(root, "a", "b")
	if err := os.MkdirAll(nested, 0755); err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(root, DefaultConfigName)
	if err := os.WriteFile(path, []byte("{}"), 0644); err != nil {
		t.Fatal(err)
	}

	found, err := NewManager().FindConfig(nested)
	if err != nil {
		t.Fatalf("FindConfig: %v", err)
	}
	if found != path {
		t.Errorf("found = %q, want %q", found, path)
	}
}

func TestReloadManagerDetectsChange(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, DefaultConfigName)
	if err := NewManager().WriteDefaultConfig(path); err != nil {
		t.Fatalf("WriteDefaultConfig: %v", err)
	}

	log := logger.CreateLoggerWithOutput("error", os.Stderr)
	rm := NewReloadManager(path, log)
	rm.SetDebouncePeriod(20 * time.Millisecond)

	reloaded := make(chan *types.LowmemdConfig, 1)
	rm.AddCallback(func(cfg *types.LowmemdConfig, err error) {
		if err == nil {
			select {
			case reloaded <- cfg:
			default:
			}
		}
	})

	if err := rm.StartWatching(); err != nil {
		t.Fatalf("StartWatching: %v", err)
	}
	defer rm.StopWatching()

	if !rm.IsWatching() {
		t.Fatal("manager should report watching")
	}

	// Rewrite with a modified multiplier
	time.Sleep(10 * time.Millisecond)
	content := `{"version":"1.0","policy":{"priorityFloors":[0],"minFreePages":[1536],"multiplier":72}}`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	select {
	case cfg := <-reloaded:
		if cfg.Policy.Multiplier != 72 {
			t.Errorf("reloaded multiplier = %d, want 72", cfg.Policy.Multiplier)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("reload callback never fired")
	}
}

func TestReloadManagerBadConfigReportsError(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, DefaultConfigName)
	if err := NewManager().WriteDefaultConfig(path); err != nil {
		t.Fatalf("WriteDefaultConfig: %v", err)
	}

	log := logger.CreateLoggerWithOutput("error", os.Stderr)
	rm := NewReloadManager(path, log)
	rm.SetDebouncePeriod(20 * time.Millisecond)

	errs := make(chan error, 1)
	rm.AddCallback(func(cfg *types.LowmemdConfig, err error) {
		if err != nil {
			select {
			case errs <- err:
			default:
			}
		}
	})

	if err := rm.StartWatching(); err != nil {
		t.Fatalf("StartWatching: %v", err)
	}
	defer rm.StopWatching()

	time.Sleep(10 * time.Millisecond)
	if err := os.WriteFile(path, []byte("not a config"), 0644); err != nil {
		t.Fatal(err)
	}

	select {
	case <-errs:
	case <-time.After(3 * time.Second):
		t.Fatal("error callback never fired for malformed config")
	}
}
