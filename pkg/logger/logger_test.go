package logger_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/lowmemd/lowmemd/pkg/logger"
)

func TestLoggerLevels(t *testing.T) {
	var buf bytes.Buffer
	log := logger.CreateLoggerWithOutput("debug", &buf)

	log.Debug("debug message")
	log.Info("info message")
	log.Warn("warn message")
	log.Error("error message")

	output := buf.String()
	for _, want := range []string{"DEBUG", "INFO", "WARN", "ERROR"} {
		if !strings.Contains(output, want) {
			t.Errorf("expected output to contain %s, got: %s", want, output)
		}
	}
}

func TestLoggerLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	log := logger.CreateLoggerWithOutput("warn", &buf)

	log.Debug("hidden debug")
	log.Info("hidden info")
	log.Warn("visible warn")

	output := buf.String()
	if strings.Contains(output, "hidden") {
		t.Errorf("expected debug/info suppressed at warn level, got: %s", output)
	}
	if !strings.Contains(output, "visible warn") {
		t.Errorf("expected warn message, got: %s", output)
	}
}

func TestLoggerFields(t *testing.T) {
	var buf bytes.Buffer
	log := logger.CreateLoggerWithOutput("info", &buf)

	log.Info("scan complete", logger.WithField("candidates", 3))

	if !strings.Contains(buf.String(), "candidates=3") {
		t.Errorf("expected structured field in output, got: %s", buf.String())
	}
}

func TestWithProcess(t *testing.T) {
	var buf bytes.Buffer
	log := logger.CreateLoggerWithOutput("info", &buf)

	procLog := log.WithProcess(4211, "chromium")
	procLog.Info("selected for eviction")

	if !strings.Contains(buf.String(), "chromium:4211") {
		t.Errorf("expected process prefix in output, got: %s", buf.String())
	}
}

func TestFromDebugLevel(t *testing.T) {
	tests := []struct {
		debugLevel uint
		expected   string
	}{
		{0, "warn"},
		{1, "info"},
		{2, "info"},
		{3, "debug"},
		{5, "debug"},
	}

	for _, tt := range tests {
		if got := logger.FromDebugLevel(tt.debugLevel); got != tt.expected {
			t.Errorf("FromDebugLevel(%d): expected %s, got %s", tt.debugLevel, tt.expected, got)
		}
	}
}
