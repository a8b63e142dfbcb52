package config

import (
	"context"
	"fmt"

	"github.com/fsnotify/fsnotify"

	"github.com/okian/etaflow/pkg/logger"
)

// Watch monitors path and calls onChange with the reloaded Config each time
// the file is written. It runs until ctx is cancelled. A reload that fails
// is logged and onChange is not called.
func Watch(ctx context.Context, path string, log logger.Logger, onChange func(*Config)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("%w: watcher: %w", ErrLoadConfig, err)
	}
	defer func() { _ = watcher.Close() }()

	if err := watcher.Add(path); err != nil {
		return fmt.Errorf("%w: watch %s: %w", ErrLoadConfig, path, err)
	}
	log.Info(ctx, "watching config for changes", logger.String("path", path))

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			// Atomic saves arrive as Create.
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}

			cfg, err := LoadFile(ctx, path)
			if err != nil {
				log.Error(ctx, "config reload failed, keeping previous config",
					logger.String("path", path), logger.Error(err))
				continue
			}
			log.Info(ctx, "config reloaded", logger.String("path", path))
			onChange(cfg)

			_ = watcher.Add(path)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Warn(ctx, "config watcher error", logger.Error(err))
		}
	}
}
