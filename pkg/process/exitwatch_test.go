package process_test

import (
	"context"
	"testing"
	"time"

	"github.com/lowmemd/lowmemd/pkg/process"
)

func TestExitWatcherEmitsOnDeath(t *testing.T) {
	w := process.NewExitWatcherWithProbe(testLogger(), 10*time.Millisecond, func(pid int) bool {
		return pid != 4211
	})

	w.Watch(4211)
	w.Watch(1) // stays alive

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = w.Run(ctx) }()

	select {
	case event := <-w.Events():
		if event.PID != 4211 {
			t.Errorf("expected exit event for 4211, got %d", event.PID)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("expected an exit event")
	}

	// The live pid must not produce an event
	select {
	case event := <-w.Events():
		t.Errorf("unexpected exit event for pid %d", event.PID)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestExitWatcherEmitsOnce(t *testing.T) {
	w := process.NewExitWatcherWithProbe(testLogger(), 10*time.Millisecond, func(pid int) bool {
		return false
	})
	w.Watch(99)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = w.Run(ctx) }()

	<-w.Events()

	select {
	case event := <-w.Events():
		t.Errorf("pid %d reported dead twice", event.PID)
	case <-time.After(100 * time.Millisecond):
	}
}
