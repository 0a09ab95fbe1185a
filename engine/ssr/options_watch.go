package ssr

import (
	"context"
	"fmt"
	"log"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// WatchOptions reloads the options file at path every time it is written, created or renamed
// into place, and hands the result to apply. A file that fails to load is logged and skipped;
// the previous options stay in effect. The parent directory is watched so editors that save
// through a rename are seen.
//
// Parameters:
//   - ctx: stops the watch when done
//   - path: the .toml, .yaml or .yml file
//   - apply: receives each successfully loaded option set; its error is logged
//
// Returns:
//   - error: an error if the watch cannot be started, otherwise nil once ctx is done
func WatchOptions(ctx context.Context, path string, apply func(Options) error) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("watch options: %w", err)
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("watch options: %w", err)
	}
	defer watcher.Close()
	if err := watcher.Add(filepath.Dir(abs)); err != nil {
		return fmt.Errorf("watch options %s: %w", path, err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != abs || !event.Has(fsnotify.Write|fsnotify.Create|fsnotify.Rename) {
				continue
			}
			opts, err := LoadOptions(abs)
			if err != nil {
				log.Printf("[SSR] config reload skipped: %v", err)
				continue
			}
			if err := apply(opts); err != nil {
				log.Printf("[SSR] config reload rejected: %v", err)
				continue
			}
			log.Printf("[SSR] config reloaded from %s", path)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Printf("[SSR] config watch error: %v", err)
		}
	}
}
