package indexer

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

const (
	// exportsDirName is the subtree holding label export symlinks; its
	// contents must never be indexed.
	exportsDirName = "glance-exports"
	// catalogFileName is the catalog database file itself. The WAL
	// sidecars it leaves behind are skipped with it.
	catalogFileName = "glance.db"
)

// walkResult is one filesystem entry discovered during walking.
// Directories are emitted for counting; only files carry Info.
type walkResult struct {
	Path  string
	Info  fs.FileInfo
	IsDir bool
}

// walker traverses a directory tree and streams discovered entries.
type walker struct {
	logger *slog.Logger
}

func newWalker(logger *slog.Logger) *walker {
	return &walker{logger: logger}
}

// walk traverses root and streams entries on the returned channel. The
// channel closes when the walk is complete or the context is canceled.
// Walk errors are logged and skipped; they never end the walk.
func (w *walker) walk(ctx context.Context, root string) <-chan walkResult {
	results := make(chan walkResult, 100)

	go func() {
		defer close(results)

		err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}

			if err != nil {
				w.logger.Error("walk error", "path", path, "error", err)
				return nil
			}

			// Skip hidden files/directories.
			if d.Name() != "." && strings.HasPrefix(d.Name(), ".") {
				if d.IsDir() {
					return filepath.SkipDir
				}
				return nil
			}

			if d.IsDir() {
				if d.Name() == exportsDirName {
					return filepath.SkipDir
				}
				select {
				case results <- walkResult{Path: path, IsDir: true}:
				case <-ctx.Done():
					return ctx.Err()
				}
				return nil
			}

			// Skip the catalog file and its WAL sidecars.
			if isCatalogFile(d.Name()) {
				return nil
			}

			info, err := d.Info()
			if err != nil {
				w.logger.Error("failed to get file info", "path", path, "error", err)
				return nil
			}

			select {
			case results <- walkResult{Path: path, Info: info}:
			case <-ctx.Done():
				return ctx.Err()
			}
			return nil
		})

		if err != nil && !errors.Is(err, context.Canceled) {
			w.logger.Error("walk failed", "root", root, "error", err)
		}
	}()

	return results
}

func isCatalogFile(name string) bool {
	return name == catalogFileName ||
		name == catalogFileName+"-wal" ||
		name == catalogFileName+"-shm"
}
