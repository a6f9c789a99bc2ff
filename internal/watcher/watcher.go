// Package watcher keeps a catalog continuously in sync with the
// filesystem. It watches directory trees recursively through fsnotify,
// debounces bursts of events, and triggers an incremental indexing pass
// once activity settles.
package watcher

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/davidMcneil/glance/internal/domain"
	"github.com/davidMcneil/glance/internal/extract"
)

// Reindexer runs incremental catalog passes. The directory indexer
// satisfies it.
type Reindexer interface {
	AddDirectory(ctx context.Context, root string, opts extract.Options) (*domain.IndexSummary, error)
	DeindexMissing(ctx context.Context) (int, error)
}

// Options configures watching behavior.
type Options struct {
	// SettleDelay is how long the tree must stay quiet before a pass runs.
	SettleDelay time.Duration
	// IgnorePatterns are base-name glob patterns to ignore.
	IgnorePatterns []string
	// IgnoreHidden skips dotfiles and dot-directories.
	IgnoreHidden bool
}

func (o *Options) setDefaults() {
	if o.SettleDelay == 0 {
		o.SettleDelay = 2 * time.Second
	}
	if o.IgnorePatterns == nil {
		o.IgnorePatterns = []string{
			".DS_Store",
			"*.tmp",
			"*.temp",
			"Thumbs.db",
			"glance.db*",
		}
		o.IgnoreHidden = true
	}
}

// shouldIgnore checks a path against the hidden rule and ignore patterns.
func (o *Options) shouldIgnore(path string) bool {
	parts := splitPath(path)
	for _, part := range parts {
		if o.IgnoreHidden && len(part) > 1 && part[0] == '.' {
			return true
		}
		if part == "glance-exports" {
			return true
		}
	}

	base := filepath.Base(path)
	for _, pattern := range o.IgnorePatterns {
		matched, err := filepath.Match(pattern, base)
		if err == nil && matched {
			return true
		}
	}
	return false
}

func splitPath(path string) []string {
	return strings.Split(filepath.Clean(path), string(filepath.Separator))
}

// Watcher runs debounced incremental passes over a set of roots.
type Watcher struct {
	indexer     Reindexer
	extractOpts extract.Options
	opts        Options
	logger      *slog.Logger

	fs    *fsnotify.Watcher
	roots []string
}

// New creates a watcher that reindexes through the given Reindexer using
// the given extraction options.
func New(indexer Reindexer, extractOpts extract.Options, opts Options, logger *slog.Logger) (*Watcher, error) {
	opts.setDefaults()

	fs, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create fsnotify watcher: %w", err)
	}

	return &Watcher{
		indexer:     indexer,
		extractOpts: extractOpts,
		opts:        opts,
		logger:      logger,
		fs:          fs,
	}, nil
}

// Watch adds a directory tree to the watched set. Every subdirectory gets
// its own watch; directories created later are picked up from events.
func (w *Watcher) Watch(root string) error {
	root, err := filepath.Abs(root)
	if err != nil {
		return fmt.Errorf("resolve root %s: %w", root, err)
	}
	if err := w.watchTree(root); err != nil {
		return err
	}
	w.roots = append(w.roots, root)
	return nil
}

func (w *Watcher) watchTree(root string) error {
	return filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			w.logger.Warn("failed to access path", "path", path, "error", err)
			return nil
		}
		if !info.IsDir() {
			return nil
		}
		if path != root && w.opts.shouldIgnore(path) {
			return filepath.SkipDir
		}
		if err := w.fs.Add(path); err != nil {
			w.logger.Error("failed to add watch", "path", path, "error", err)
			return nil
		}
		w.logger.Debug("added watch", "path", path)
		return nil
	})
}

// Run watches until the context is canceled. Every relevant filesystem
// event restarts the settle timer; when the timer fires, one incremental
// pass runs over all roots followed by a deindex of missing files.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.fs.Close()

	// The timer starts disarmed; the first event arms it.
	settle := time.NewTimer(w.opts.SettleDelay)
	if !settle.Stop() {
		<-settle.C
	}

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-w.fs.Events:
			if !ok {
				return nil
			}
			if w.opts.shouldIgnore(event.Name) {
				continue
			}
			if event.Op&fsnotify.Create != 0 {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					if err := w.watchTree(event.Name); err != nil {
						w.logger.Error("failed to watch new directory", "path", event.Name, "error", err)
					}
				}
			}
			w.logger.Debug("filesystem event", "op", event.Op.String(), "path", event.Name)
			settle.Reset(w.opts.SettleDelay)

		case err, ok := <-w.fs.Errors:
			if !ok {
				return nil
			}
			w.logger.Error("watch error", "error", err)

		case <-settle.C:
			w.reindex(ctx)
		}
	}
}

// reindex runs one incremental pass over all roots. Failures are logged;
// watching continues.
func (w *Watcher) reindex(ctx context.Context) {
	for _, root := range w.roots {
		summary, err := w.indexer.AddDirectory(ctx, root, w.extractOpts)
		if err != nil {
			w.logger.Error("incremental pass failed", "root", root, "error", err)
			continue
		}
		w.logger.Info("incremental pass complete",
			"root", root,
			"added", summary.Added,
			"unmodified", summary.Unmodified,
			"failed", summary.Failed)
	}
	if _, err := w.indexer.DeindexMissing(ctx); err != nil {
		w.logger.Error("deindex of missing files failed", "error", err)
	}
}
