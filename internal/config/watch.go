package config

import (
	"context"
	"log"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// ReloadWatcher watches a config file's directory (plus any extra paths
// passed to NewReloadWatcher) for writes and debounces them into a single
// reload signal.
type ReloadWatcher struct {
	configPath string
	debug      bool
	watcher    *fsnotify.Watcher
	changed    chan struct{}
}

// NewReloadWatcher starts watching configPath's directory (and any
// additional paths, typically _include targets discovered at load time) for
// write events. Watching directories rather than files tolerates editors
// that replace the file instead of writing in place.
func NewReloadWatcher(configPath string, debug bool, includePaths []string) (*ReloadWatcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	dirs := map[string]bool{filepath.Dir(configPath): true}
	for _, p := range includePaths {
		dirs[filepath.Dir(p)] = true
	}
	for dir := range dirs {
		if err := w.Add(dir); err != nil {
			w.Close()
			return nil, err
		}
	}

	rw := &ReloadWatcher{
		configPath: configPath,
		debug:      debug,
		watcher:    w,
		changed:    make(chan struct{}, 1),
	}
	return rw, nil
}

// Changed signals (coalesced, never blocking) whenever the watched config
// tree is modified.
func (w *ReloadWatcher) Changed() <-chan struct{} {
	return w.changed
}

// Run debounces raw fsnotify events into Changed signals until ctx is
// cancelled. Call it in its own goroutine.
func (w *ReloadWatcher) Run(ctx context.Context, debounce time.Duration) {
	var pending *time.Timer
	var fire <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			w.watcher.Close()
			return
		case ev, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if w.debug {
				log.Printf("[config] change detected: %s", ev.Name)
			}
			if pending == nil {
				pending = time.NewTimer(debounce)
			} else {
				pending.Reset(debounce)
			}
			fire = pending.C
		case <-fire:
			select {
			case w.changed <- struct{}{}:
			default:
			}
			fire = nil
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			log.Printf("[config] watch error: %v", err)
		}
	}
}

// Close stops the underlying fsnotify watcher.
func (w *ReloadWatcher) Close() error {
	return w.watcher.Close()
}
