package cliconfig

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestRuntimePacingSnapshot(t *testing.T) {
	cfg := DefaultConfig()
	cfg.DelayFixed = 2 * time.Second
	cfg.MaxSendsPerMinute = 10
	rt := NewRuntime(cfg)

	fixed, min, max, perMin := rt.Pacing()
	if fixed != 2*time.Second || min != 3*time.Second || max != 5*time.Second || perMin != 10 {
		t.Fatalf("pacing = %v/%v/%v/%d", fixed, min, max, perMin)
	}
}

func TestReloadAppliesPacingChanges(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")

	base := DefaultConfig()
	base.StateDir = dir
	rt := NewRuntime(base)
	w := NewWatcher(path, base, nil, rt, nil)

	body := "delay_min = \"1s\"\ndelay_max = \"2s\"\nmax_per_minute = 30\n"
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	w.reload()

	_, min, max, perMin := rt.Pacing()
	if min != time.Second || max != 2*time.Second || perMin != 30 {
		t.Fatalf("pacing after reload = %v/%v/%d", min, max, perMin)
	}
}

func TestReloadRejectsInvalidConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")

	base := DefaultConfig()
	base.StateDir = dir
	rt := NewRuntime(base)
	w := NewWatcher(path, base, nil, rt, nil)

	// Inverted window must not make it into the runtime.
	body := "delay_min = \"9s\"\ndelay_max = \"1s\"\n"
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	w.reload()

	_, min, max, _ := rt.Pacing()
	if min != 3*time.Second || max != 5*time.Second {
		t.Fatalf("invalid reload applied: %v..%v", min, max)
	}
}

func TestWatcherPicksUpFileWrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")

	base := DefaultConfig()
	base.StateDir = dir
	rt := NewRuntime(base)
	w := NewWatcher(path, base, nil, rt, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := w.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer w.Stop()

	body := "max_per_minute = 42\n"
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if _, _, _, perMin := rt.Pacing(); perMin == 42 {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatal("watcher did not apply file change")
}
