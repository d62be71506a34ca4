package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/lowmemd/lowmemd/internal/engine"
	"github.com/lowmemd/lowmemd/pkg/config"
	"github.com/lowmemd/lowmemd/pkg/daemon"
	"github.com/lowmemd/lowmemd/pkg/logger"
	"github.com/lowmemd/lowmemd/pkg/state"
	"github.com/lowmemd/lowmemd/pkg/types"
	"github.com/lowmemd/lowmemd/pkg/utils"
)

func newMonitorCmd() *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "monitor",
		Short: "Monitor memory pressure in the foreground",
		Long: `Run the eviction loop in the foreground, logging every pass. With
--dry-run no process is actually signaled; the daemon only reports what
it would have killed.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMonitor(dryRun)
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "log would-be kills without signaling")

	return cmd
}

func newCheckCmd() *cobra.Command {
	var requested int64

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Run a single dry-run evaluation pass",
		Long: `Read the current memory state, run one evaluation pass without
signaling anything, and print the would-be victim and reclaim estimate.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck(requested)
		},
	}

	cmd.Flags().Int64Var(&requested, "requested", 0, "requested reclaim in pages (default: derived from the watermark deficit)")

	return cmd
}

func newInitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Write a default configuration file",
		Long:  `Create lowmemd.config.json in the current directory with the classic adj/minfree tuning.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInit()
		},
	}
}

func newValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Validate the configuration file",
		Long:  `Check that the configuration file parses and that its threshold tables are well formed.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate()
		},
	}
}

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show daemon status and recent kills",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStatus()
		},
	}
}

func newDaemonCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "daemon",
		Short: "Manage the lowmemd background daemon",
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "start",
			Short: "Start the daemon",
			RunE: func(cmd *cobra.Command, args []string) error {
				return runDaemonStart()
			},
		},
		&cobra.Command{
			Use:   "stop",
			Short: "Stop the daemon",
			RunE: func(cmd *cobra.Command, args []string) error {
				return runDaemonStop()
			},
		},
		&cobra.Command{
			Use:   "status",
			Short: "Show daemon status",
			RunE: func(cmd *cobra.Command, args []string) error {
				return runStatus()
			},
		},
	)

	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version number of lowmemd",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("lowmemd v%s\n", version)
		},
	}
}

// Implementation functions

func runMonitor(dryRun bool) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	m := daemon.NewManager(daemon.Config{
		ConfigPath: getConfigPath(),
		StateDir:   stateDir,
		LogLevel:   verbosity,
		DryRun:     dryRun,
	})

	printInfo(fmt.Sprintf("Starting lowmemd v%s", version))
	if dryRun {
		printWarning("Dry-run mode: no process will be signaled")
	}

	if err := m.StartWithContext(ctx); err != nil {
		return fmt.Errorf("failed to start: %w", err)
	}

	// Run until interrupted
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	printInfo("Shutting down...")
	stopCtx, stopCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer stopCancel()
	return ignoreNotRunning(m.StopWithContext(stopCtx))
}

// ignoreNotRunning treats an already-stopped daemon as a clean exit. The
// daemon's own signal handling races the CLI's on SIGINT/SIGTERM; whoever
// loses the race must not turn a clean shutdown into a failure.
func ignoreNotRunning(err error) error {
	if errors.Is(err, daemon.ErrDaemonNotRunning) {
		return nil
	}
	return err
}

func runCheck(requested int64) error {
	cfg, err := config.NewManager().LoadConfig(getConfigPath())
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	log := logger.CreateLogger("", verbosity)

	// Force a dry-run terminator regardless of the daemon config
	checkCfg := *cfg
	daemonCfg := types.DaemonConfig{DryRun: true}
	if cfg.Daemon != nil {
		daemonCfg = *cfg.Daemon
		daemonCfg.DryRun = true
	}
	checkCfg.Daemon = &daemonCfg

	factory := engine.NewDependencyFactory(state.DefaultStateDir(), log, &checkCfg)
	deps := factory.CreateDefaults()
	// A one-shot check must not touch daemon state or notify anyone
	deps.State = nil
	deps.Notifier = nil

	eng := engine.New(checkCfg.Policy, deps, log)

	snapshot, err := deps.Memory.Snapshot()
	if err != nil {
		return fmt.Errorf("failed to read memory snapshot: %w", err)
	}

	if requested <= 0 {
		requested = daemon.ComputeRequested(&checkCfg, snapshot)
	}

	decision, err := eng.Evaluate(context.Background(), requested, snapshot)
	if err != nil {
		return fmt.Errorf("evaluation failed: %w", err)
	}

	printInfo(fmt.Sprintf("free: %d pages (%s), file cache: %d pages (%s)",
		snapshot.FreePages, utils.FormatPages(snapshot.FreePages),
		snapshot.CachedFilePages, utils.FormatPages(snapshot.CachedFilePages)))
	printInfo(fmt.Sprintf("pressure: %s, requested reclaim: %d pages",
		types.ClassifyPressure(snapshot, checkCfg.Policy.Tiers()), requested))

	switch {
	case !decision.FloorMatched:
		printSuccess("memory is healthy, no tier matched")
	case decision.Victim == nil:
		printWarning(fmt.Sprintf("tier matched (priority floor %d) but no eligible process found", decision.Floor))
	default:
		printWarning(fmt.Sprintf("would kill pid %d (%s), priority %d, %d pages resident",
			decision.Victim.PID, decision.Victim.Name,
			decision.Victim.Priority, decision.Victim.ResidentPages))
		printInfo(fmt.Sprintf("reclaim estimate after kill: %d pages (%s)",
			decision.ReclaimEstimate, utils.FormatPages(decision.ReclaimEstimate)))
	}

	return nil
}

func runInit() error {
	path := config.DefaultConfigName
	if cfgFile != "" {
		path = cfgFile
	}

	if err := config.NewManager().WriteDefaultConfig(path); err != nil {
		return err
	}

	printSuccess(fmt.Sprintf("Wrote default configuration to %s", path))
	return nil
}

func runValidate() error {
	path := getConfigPath()

	cfg, err := config.NewManager().LoadConfig(path)
	if err != nil {
		printError(fmt.Sprintf("Configuration is invalid: %v", err))
		return err
	}

	tiers := cfg.Policy.Tiers()
	printSuccess(fmt.Sprintf("Configuration is valid: %s", path))
	printInfo(fmt.Sprintf("%d threshold tier(s), multiplier %d, legacy mode %v",
		len(tiers), cfg.Policy.Multiplier, cfg.Policy.LegacyMode))
	if len(tiers) == 0 {
		printWarning("no threshold tiers: the daemon will idle")
	}

	return nil
}

func runStatus() error {
	dir := stateDir
	if dir == "" {
		dir = state.DefaultStateDir()
	}

	m := daemon.NewManager(daemon.Config{
		ConfigPath: getConfigPath(),
		StateDir:   dir,
		LogLevel:   "error",
	})

	status, err := m.Status()
	if err != nil {
		return err
	}
	if status == nil {
		printInfo("Daemon is not running")
		return nil
	}

	printSuccess(fmt.Sprintf("Daemon is running (pid %d)", status.PID))

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintf(w, "started\t%s\n", status.StartedAt.Format(time.RFC3339))
	fmt.Fprintf(w, "heartbeat\t%s\n", status.Heartbeat.Format(time.RFC3339))
	fmt.Fprintf(w, "kills\t%d\n", status.KillCount)
	if status.LastKill != nil {
		fmt.Fprintf(w, "last kill\t%s (pid %d) at %s\n",
			status.LastKill.Name, status.LastKill.PID,
			status.LastKill.Timestamp.Format(time.RFC3339))
	}
	w.Flush()

	return nil
}

func runDaemonStart() error {
	m := daemon.NewManager(daemon.Config{
		ConfigPath: getConfigPath(),
		StateDir:   stateDir,
		LogLevel:   verbosity,
	})

	if err := m.StartWithContext(context.Background()); err != nil {
		return err
	}

	printSuccess("Daemon started")

	// Block for the daemon's lifetime; service managers handle backgrounding
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	stopCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return ignoreNotRunning(m.StopWithContext(stopCtx))
}

func runDaemonStop() error {
	dir := stateDir
	if dir == "" {
		dir = state.DefaultStateDir()
	}

	m := daemon.NewManager(daemon.Config{
		ConfigPath: getConfigPath(),
		StateDir:   dir,
		LogLevel:   "error",
	})

	status, err := m.Status()
	if err != nil || status == nil {
		printInfo("Daemon is not running")
		return nil
	}

	if err := syscall.Kill(status.PID, syscall.SIGTERM); err != nil {
		return fmt.Errorf("failed to signal daemon (pid %d): %w", status.PID, err)
	}

	printSuccess(fmt.Sprintf("Sent SIGTERM to daemon (pid %d)", status.PID))
	return nil
}
