// Package watch re-runs configuration validation when a project's
// configuration file changes on disk.
package watch

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"git.home.luguber.info/inful/buildconfig/internal/config"
	"git.home.luguber.info/inful/buildconfig/internal/logfields"
)

// DefaultDebounce collapses the bursts of events editors produce on save.
const DefaultDebounce = 500 * time.Millisecond

// ChangeFunc is called once per debounced burst with the last changed file.
type ChangeFunc func(ctx context.Context, changed string)

// Watcher watches a project directory for configuration file changes.
type Watcher struct {
	project  string
	explicit string
	debounce time.Duration
	onChange ChangeFunc
	logger   *slog.Logger
	watcher  *fsnotify.Watcher
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithDebounce overrides DefaultDebounce.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) { w.debounce = d }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(w *Watcher) { w.logger = l }
}

// New creates a watcher for project. configPath, relative to project,
// restricts the watcher to one file; when empty every file name accepted by
// configuration discovery is watched.
func New(project, configPath string, onChange ChangeFunc, opts ...Option) (*Watcher, error) {
	abs, err := filepath.Abs(project)
	if err != nil {
		return nil, fmt.Errorf("resolve project path: %w", err)
	}
	w := &Watcher{
		project:  abs,
		debounce: DefaultDebounce,
		onChange: onChange,
		logger:   slog.Default(),
	}
	if configPath != "" {
		w.explicit = filepath.Join(abs, configPath)
	}
	for _, opt := range opts {
		opt(w)
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create file watcher: %w", err)
	}
	// Directories are watched rather than files so that editors replacing
	// the file by rename keep being followed.
	dir := abs
	if w.explicit != "" {
		dir = filepath.Dir(w.explicit)
	}
	if err := fw.Add(dir); err != nil {
		_ = fw.Close()
		return nil, fmt.Errorf("watch %s: %w", dir, err)
	}
	w.watcher = fw
	return w, nil
}

// Run blocks until ctx is canceled, then releases the underlying watcher.
func (w *Watcher) Run(ctx context.Context) error {
	defer func() {
		if err := w.watcher.Close(); err != nil {
			w.logger.Warn("Error closing file watcher", logfields.Error(err))
		}
	}()
	w.logger.Info("Watching configuration", logfields.Project(w.project))

	timer := time.NewTimer(w.debounce)
	timer.Stop()
	defer timer.Stop()
	var pending string

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			if !w.matches(event) {
				continue
			}
			w.logger.Debug("Configuration change detected",
				logfields.Path(event.Name),
				slog.String("op", event.Op.String()))
			pending = event.Name
			timer.Reset(w.debounce)
		case <-timer.C:
			w.onChange(ctx, pending)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Error("Config watcher error", logfields.Error(err))
		}
	}
}

func (w *Watcher) matches(event fsnotify.Event) bool {
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) &&
		!event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
		return false
	}
	if w.explicit != "" {
		return filepath.Clean(event.Name) == w.explicit
	}
	return filepath.Dir(event.Name) == w.project &&
		config.ConfigFilePattern.MatchString(filepath.Base(event.Name))
}
