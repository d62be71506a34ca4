package daemon

import "errors"

// Sentinel errors for daemon operations. These enable reliable error
// checking with errors.Is()
var (
	// ErrDaemonNotRunning indicates the daemon is not currently running
	ErrDaemonNotRunning = errors.New("daemon is not running")

	// ErrDaemonAlreadyRunning indicates the daemon is already running
	ErrDaemonAlreadyRunning = errors.New("daemon is already running")

	// ErrNoPolicy indicates the configuration yields no threshold tiers
	ErrNoPolicy = errors.New("no threshold tiers configured")
)
