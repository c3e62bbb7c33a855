package config

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"videooutputd/internal/aspect"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce collapses the burst of events an editor or an atomic
// replace produces into one reload.
const DefaultDebounce = 500 * time.Millisecond

// SettingsWatcher reloads a SettingsFile whenever it changes on disk.
type SettingsWatcher struct {
	file     *SettingsFile
	log      *slog.Logger
	onChange func(aspect.Settings)
	debounce time.Duration
}

// NewSettingsWatcher calls onChange with every successfully loaded
// version of file. Invalid versions are logged and skipped.
func NewSettingsWatcher(file *SettingsFile, log *slog.Logger, onChange func(aspect.Settings)) *SettingsWatcher {
	return &SettingsWatcher{
		file:     file,
		log:      log,
		onChange: onChange,
		debounce: DefaultDebounce,
	}
}

func (w *SettingsWatcher) String() string {
	return "settings-watcher"
}

// Serve watches the settings directory until ctx is done. The directory is
// watched rather than the file so atomic replaces are seen.
func (w *SettingsWatcher) Serve(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	dir := filepath.Dir(w.file.Path())
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}
	w.log.Info("watching settings file", slog.String("path", w.file.Path()))

	name := filepath.Clean(w.file.Path())
	timer := time.NewTimer(w.debounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != name {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Rename) {
				w.log.Debug("settings file changed", slog.String("op", event.Op.String()))
				timer.Reset(w.debounce)
			}

		case <-timer.C:
			w.reload()

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			w.log.Error("settings watcher error", slog.String("error", err.Error()))
		}
	}
}

func (w *SettingsWatcher) reload() {
	s, err := w.file.Load()
	if err != nil {
		w.log.Error("settings reload failed", slog.String("error", err.Error()))
		return
	}
	w.onChange(s)
}
