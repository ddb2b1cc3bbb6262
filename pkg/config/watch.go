package config

import (
	"context"
	"log"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watch reloads path whenever it changes and hands the result to apply.
// Falls back to polling at interval as a safety net (and entirely, when the
// watcher cannot be created). Blocks until ctx is done.
func Watch(ctx context.Context, path string, interval time.Duration, apply func(Config)) {
	if interval <= 0 {
		interval = time.Minute
	}

	reload := func() {
		cfg, err := Load(path)
		if err != nil {
			log.Printf("config: reload %s: %v", path, err)
			return
		}
		apply(cfg)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		// Fallback to pure polling if fsnotify fails
		watchPoll(ctx, interval, reload)
		return
	}
	defer func() { _ = watcher.Close() }()

	// Watch the directory: editors replace the file, which drops a watch
	// placed on the file itself.
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		watchPoll(ctx, interval, reload)
		return
	}

	fallbackTicker := time.NewTicker(interval)
	defer fallbackTicker.Stop()

	base := filepath.Base(path)
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-watcher.Events:
			if filepath.Base(ev.Name) == base {
				reload()
			}
		case err := <-watcher.Errors:
			if err != nil {
				log.Printf("config: watcher error: %v", err)
			}
		case <-fallbackTicker.C:
			// Safety net poll
			reload()
		}
	}
}

// watchPoll is a fallback polling loop when fsnotify is unavailable.
func watchPoll(ctx context.Context, interval time.Duration, reload func()) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			reload()
		}
	}
}
