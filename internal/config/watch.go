package config

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// DefaultDebounce collapses the burst of events an editor or a ConfigMap
// update produces into one reload.
const DefaultDebounce = 200 * time.Millisecond

// Watch reloads the config file at path whenever it changes and passes
// every valid result to onReload. Invalid files are logged and skipped; the
// previous configuration stays in effect. The parent directory is watched so
// that atomic renames and symlink swaps are seen. Blocks until ctx is done.
func Watch(ctx context.Context, path string, logger *zap.Logger, onReload func(*Config)) error {
	if path == "" {
		return errors.New("config watch: no file to watch")
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("config watch: %w", err)
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}
	defer func() { _ = w.Close() }()

	if err := w.Add(filepath.Dir(abs)); err != nil {
		return fmt.Errorf("failed to watch %s: %w", filepath.Dir(abs), err)
	}
	logger.Info("config watcher started", zap.String("path", abs))

	var (
		mu    sync.Mutex
		timer *time.Timer
	)
	reload := func() {
		cfg, errs := Load(abs)
		if len(errs) > 0 {
			logger.Error("config reload rejected", zap.String("path", abs), zap.Errors("errors", errs))
			return
		}
		logger.Info("config reloaded", zap.String("path", abs), zap.Int("endpoints", len(cfg.Endpoints)))
		onReload(cfg)
	}
	defer func() {
		mu.Lock()
		if timer != nil {
			timer.Stop()
		}
		mu.Unlock()
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return errors.New("config watch: events channel closed")
			}
			if !relevant(ev, abs) {
				continue
			}
			mu.Lock()
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(DefaultDebounce, reload)
			mu.Unlock()
		case err, ok := <-w.Errors:
			if !ok {
				return errors.New("config watch: errors channel closed")
			}
			logger.Warn("config watcher error", zap.Error(err))
		}
	}
}

// relevant reports whether ev may have changed the file at path. Kubernetes
// ConfigMaps swap a ..data symlink, so events on it count too.
func relevant(ev fsnotify.Event, path string) bool {
	if ev.Has(fsnotify.Chmod) && !ev.Has(fsnotify.Write) {
		return false
	}
	name := filepath.Clean(ev.Name)
	return name == path || filepath.Base(name) == "..data"
}
