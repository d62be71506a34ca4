// Package notifier provides operator-facing kill and pressure notifications
package notifier

import (
	"fmt"
	"runtime"

	"github.com/gen2brain/beeep"

	"github.com/lowmemd/lowmemd/pkg/logger"
	"github.com/lowmemd/lowmemd/pkg/types"
)

// KillNotifier surfaces eviction activity as desktop notifications
type KillNotifier struct {
	enabled      bool
	killSound    string
	minimumLevel types.PressureLevel
	logger       logger.Logger
}

// Config represents notification configuration
type Config struct {
	Enabled      bool
	KillSound    string
	MinimumLevel types.PressureLevel
}

// New creates a new kill notifier
func New(config Config, log logger.Logger) *KillNotifier {
	minimum := config.MinimumLevel
	if minimum == "" {
		minimum = types.PressureLevelCritical
	}
	return &KillNotifier{
		enabled:      config.Enabled,
		killSound:    config.KillSound,
		minimumLevel: minimum,
		logger:       log,
	}
}

// FromConfig builds a notifier from the root configuration document
func FromConfig(cfg *types.NotificationConfig, log logger.Logger) *KillNotifier {
	config := Config{}
	if cfg != nil {
		config.Enabled = cfg.Enabled != nil && *cfg.Enabled
		config.KillSound = cfg.KillSound
		config.MinimumLevel = types.PressureLevel(cfg.MinimumLevel)
	}
	return New(config, log)
}

// NotifyKill notifies that a victim was terminated
func (n *KillNotifier) NotifyKill(event types.KillEvent) {
	if !n.enabled {
		return
	}

	title := "lowmemd: process killed"
	message := fmt.Sprintf("%s (pid %d, priority %d, %d pages resident)",
		event.Name, event.PID, event.Priority, event.ResidentPages)

	n.sendNotification(title, message, n.killSound)
}

// NotifyPressure notifies about memory pressure at or above the minimum level
func (n *KillNotifier) NotifyPressure(level types.PressureLevel, snapshot types.PressureSnapshot) {
	if !n.enabled {
		return
	}
	if rankLevel(level) < rankLevel(n.minimumLevel) {
		return
	}

	title := fmt.Sprintf("lowmemd: %s memory pressure", level)
	message := fmt.Sprintf("%d free pages, %d file-cache pages",
		snapshot.FreePages, snapshot.CachedFilePages)

	n.sendNotification(title, message, "")
}

// Private methods

func (n *KillNotifier) sendNotification(title, message, soundName string) {
	if err := beeep.Notify(title, message, ""); err != nil {
		n.logger.Debug("Failed to send notification", logger.WithField("error", err))
	}

	// Audible cue only where a sound server is plausible
	if soundName != "" && runtime.GOOS != "windows" {
		if err := beeep.Beep(beeep.DefaultFreq, beeep.DefaultDuration); err != nil {
			n.logger.Debug("Failed to play sound", logger.WithField("error", err))
		}
	}
}

func rankLevel(level types.PressureLevel) int {
	switch level {
	case types.PressureLevelCritical:
		return 3
	case types.PressureLevelHigh:
		return 2
	case types.PressureLevelModerate:
		return 1
	default:
		return 0
	}
}
