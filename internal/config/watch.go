package config

import (
	"context"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

var watchLogger = slog.Default().With("component", "config.watch")

// debounceWindow coalesces editor write bursts into one reload.
const debounceWindow = 250 * time.Millisecond

// Watch reloads the config whenever the file changes and hands the fresh
// value to onChange. Watching the directory rather than the file keeps
// the watch alive across the rename dance editors do on save. Blocks
// until ctx is cancelled.
func Watch(ctx context.Context, path string, onChange func(*Config)) error {
	if path == "" {
		path = DefaultPath()
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	if err := watcher.Add(filepath.Dir(path)); err != nil {
		return err
	}

	var timer *time.Timer
	reload := func() {
		cfg, err := Load(path)
		if err != nil {
			watchLogger.Warn("config reload failed, keeping previous", "path", path, "error", err)
			return
		}
		watchLogger.Info("config reloaded", "path", path)
		onChange(cfg)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != filepath.Clean(path) {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(debounceWindow, reload)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			watchLogger.Warn("config watcher error", "error", err)
		}
	}
}
