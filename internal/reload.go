package internal

import (
	"context"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	pkgconfig "github.com/starford/anchorage/pkg/config"
)

const reloadDebounce = 200 * time.Millisecond

// WatchConfig reloads path whenever it changes and passes every config that
// validates to apply. Invalid rewrites are logged and skipped. It returns when
// ctx is cancelled.
//
// The parent directory is watched so that editors replacing the file by
// rename are still seen.
func WatchConfig(ctx context.Context, path string, logger *slog.Logger, apply func(*Config)) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	if err := w.Add(filepath.Dir(abs)); err != nil {
		return err
	}
	logger.Info("config watcher: started", slog.String("path", abs))

	var timer *time.Timer
	var fire <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			logger.Info("config watcher: stopped")
			return nil

		case <-fire:
			fire = nil
			cfg := NewDefaultConfig()
			if err := pkgconfig.Load(abs, cfg); err != nil {
				logger.Warn("config watcher: reload rejected", slog.String("error", err.Error()))
				continue
			}
			logger.Info("config watcher: reloaded", slog.String("log_level", cfg.App.LogLevel.String()))
			apply(cfg)

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != abs || ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(reloadDebounce)
			} else {
				timer.Reset(reloadDebounce)
			}
			fire = timer.C

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("config watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}
