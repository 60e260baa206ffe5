package config

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"taskbot/pkg/logging"
)

const watchDebounce = 250 * time.Millisecond

// Watch calls onChange with the reloaded configuration each time the file
// at path is written, created or replaced, until ctx is cancelled. The
// parent directory is watched so editors that save by rename are noticed.
// Reloads that fail to load or validate are logged and skipped.
func Watch(ctx context.Context, path string, onChange func(Config)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}

	dir := filepath.Dir(path)
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return fmt.Errorf("failed to watch %s: %w", dir, err)
	}
	logging.Info("ConfigWatcher", "Watching %s for changes", path)

	go func() {
		defer watcher.Close()

		var timer *time.Timer
		var fire <-chan time.Time
		target := filepath.Clean(path)

		for {
			select {
			case <-ctx.Done():
				if timer != nil {
					timer.Stop()
				}
				return

			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != target {
					continue
				}
				if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
					continue
				}
				if timer == nil {
					timer = time.NewTimer(watchDebounce)
				} else {
					timer.Reset(watchDebounce)
				}
				fire = timer.C

			case <-fire:
				fire = nil
				cfg, err := Load(path)
				if err != nil {
					logging.Warn("ConfigWatcher", "Ignoring invalid configuration change: %v", err)
					continue
				}
				logging.Info("ConfigWatcher", "Configuration reloaded from %s", path)
				onChange(cfg)

			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				logging.Error("ConfigWatcher", err, "File watcher error")
			}
		}
	}()
	return nil
}
