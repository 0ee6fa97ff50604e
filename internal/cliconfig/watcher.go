package cliconfig

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/outflow-sh/outflow/pkg/log"
)

// Runtime holds the pacing settings that may be reloaded while the process
// runs. Dispatch reads a snapshot at the start of every run.
type Runtime struct {
	mu sync.RWMutex

	delayFixed        time.Duration
	delayMin          time.Duration
	delayMax          time.Duration
	maxSendsPerMinute int
}

// NewRuntime seeds the runtime settings from the startup configuration.
func NewRuntime(cfg Config) *Runtime {
	r := &Runtime{}
	r.apply(cfg)
	return r
}

func (r *Runtime) apply(cfg Config) {
	r.mu.Lock()
	r.delayFixed = cfg.DelayFixed
	r.delayMin = cfg.DelayMin
	r.delayMax = cfg.DelayMax
	r.maxSendsPerMinute = cfg.MaxSendsPerMinute
	r.mu.Unlock()
}

// Pacing returns the current inter-send pacing settings.
func (r *Runtime) Pacing() (fixed, min, max time.Duration, maxPerMinute int) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.delayFixed, r.delayMin, r.delayMax, r.maxSendsPerMinute
}

const watchDebounce = 100 * time.Millisecond

// Watcher monitors the config file and applies pacing changes to a Runtime
// without restarting the process. Flags explicitly set on the command line
// keep winning over reloaded file values.
type Watcher struct {
	path    string
	base    Config
	changed map[string]bool
	runtime *Runtime
	log     log.Logger

	mu       sync.Mutex
	debounce *time.Timer
	cancel   context.CancelFunc
	wg       sync.WaitGroup
}

// NewWatcher creates a watcher for the config file at path. base is the
// fully resolved startup configuration; changed marks flags set explicitly.
func NewWatcher(path string, base Config, changed map[string]bool, rt *Runtime, logger log.Logger) *Watcher {
	if logger == nil {
		logger = log.NewNoopLogger()
	}
	return &Watcher{
		path:    path,
		base:    base,
		changed: changed,
		runtime: rt,
		log:     logger,
	}
}

// Start begins watching. Returns an error only when the watcher cannot be
// created; a missing config file is fine, it may appear later.
func (w *Watcher) Start(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := fw.Add(filepath.Dir(w.path)); err != nil {
		fw.Close()
		return err
	}

	watchCtx, cancel := context.WithCancel(ctx)
	w.cancel = cancel

	w.wg.Add(1)
	go w.loop(watchCtx, fw)
	return nil
}

// Stop ends watching and waits for the loop to exit.
func (w *Watcher) Stop() {
	if w.cancel != nil {
		w.cancel()
	}
	w.wg.Wait()
}

func (w *Watcher) loop(ctx context.Context, fw *fsnotify.Watcher) {
	defer w.wg.Done()
	defer fw.Close()

	name := filepath.Base(w.path)
	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-fw.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != name {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			w.scheduleReload()

		case err, ok := <-fw.Errors:
			if !ok {
				return
			}
			w.log.Error("config watcher error", log.Err(err))
		}
	}
}

func (w *Watcher) scheduleReload() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.debounce != nil {
		w.debounce.Stop()
	}
	w.debounce = time.AfterFunc(watchDebounce, w.reload)
}

func (w *Watcher) reload() {
	fc, err := LoadFileConfig(w.path)
	if err != nil {
		w.log.Warn("config reload failed", log.Err(err))
		return
	}
	cfg := w.base
	if err := ApplyFileConfig(&cfg, fc, w.changed); err != nil {
		w.log.Warn("config reload rejected", log.Err(err))
		return
	}
	if err := cfg.Validate(); err != nil {
		w.log.Warn("config reload invalid", log.Err(err))
		return
	}
	w.runtime.apply(cfg)
	w.log.Info("pacing settings reloaded",
		log.Duration("delayMin", cfg.DelayMin),
		log.Duration("delayMax", cfg.DelayMax),
		log.Int("maxPerMinute", cfg.MaxSendsPerMinute))
}
