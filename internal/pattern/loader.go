package pattern

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
)

// Loader reads .vibepattern files from a directory into the registry.
//
// Files are upserted by slug, so editing a file and saving it updates
// the stored pattern in place. Deleting a file does not delete the
// stored pattern; patterns are removed through the API only.
type Loader struct {
	dir      string
	registry *Registry
	logger   Logger
	watcher  *fsnotify.Watcher
	done     chan struct{}
}

// NewLoader creates a loader for the given directory.
func NewLoader(dir string, registry *Registry) *Loader {
	return &Loader{
		dir:      dir,
		registry: registry,
		logger:   noopLogger{},
	}
}

// SetLogger sets the logger for the loader.
func (l *Loader) SetLogger(logger Logger) {
	l.logger = logger
}

// LoadAll parses every pattern file in the directory and upserts it.
//
// A missing directory is not an error: the feature is optional and the
// directory may simply not exist yet. Individual file failures are
// logged and skipped; one malformed file must not block the rest.
func (l *Loader) LoadAll(ctx context.Context) error {
	entries, err := os.ReadDir(l.dir)
	if err != nil {
		if os.IsNotExist(err) {
			l.logger.Debug("pattern directory does not exist, skipping", "dir", l.dir)
			return nil
		}
		return fmt.Errorf("pattern: reading directory %s: %w", l.dir, err)
	}

	loaded := 0
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), FileExtension) {
			continue
		}
		if err := l.loadFile(ctx, filepath.Join(l.dir, entry.Name())); err != nil {
			l.logger.Warn("skipping pattern file", "file", entry.Name(), "error", err)
			continue
		}
		loaded++
	}

	l.logger.Info("pattern files loaded", "dir", l.dir, "count", loaded)
	return nil
}

// Watch starts watching the directory for pattern file changes.
// Created and modified files are re-parsed and upserted. Runs until
// Close is called.
func (l *Loader) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("pattern: creating watcher: %w", err)
	}
	if err := watcher.Add(l.dir); err != nil {
		watcher.Close()
		return fmt.Errorf("pattern: watching %s: %w", l.dir, err)
	}

	l.watcher = watcher
	l.done = make(chan struct{})

	go l.watchLoop(ctx)

	l.logger.Info("watching pattern directory", "dir", l.dir)
	return nil
}

func (l *Loader) watchLoop(ctx context.Context) {
	defer close(l.done)

	for {
		select {
		case event, ok := <-l.watcher.Events:
			if !ok {
				return
			}
			if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
				continue
			}
			if !strings.HasSuffix(event.Name, FileExtension) {
				continue
			}
			if err := l.loadFile(ctx, event.Name); err != nil {
				l.logger.Warn("reloading pattern file failed", "file", event.Name, "error", err)
			}

		case err, ok := <-l.watcher.Errors:
			if !ok {
				return
			}
			l.logger.Error("pattern watcher error", "error", err)

		case <-ctx.Done():
			return
		}
	}
}

// Close stops the watcher. Safe to call when Watch was never started.
func (l *Loader) Close() error {
	if l.watcher == nil {
		return nil
	}
	err := l.watcher.Close()
	<-l.done
	l.watcher = nil
	return err
}

// loadFile parses a single file and upserts the pattern by slug.
// Files that yield no playable steps are ignored: editors save
// half-written files, and a stray non-pattern file in the directory
// should not become an empty library entry.
func (l *Loader) loadFile(ctx context.Context, path string) error {
	p, err := ParseFile(path)
	if err != nil {
		return err
	}
	if len(p.Steps) == 0 {
		l.logger.Debug("ignoring pattern file with no steps", "file", filepath.Base(path))
		return nil
	}

	if err := l.registry.UpsertBySlug(ctx, p); err != nil {
		return err
	}

	l.logger.Debug("pattern file loaded", "file", filepath.Base(path), "slug", p.Slug, "steps", len(p.Steps))
	return nil
}
