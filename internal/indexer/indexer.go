// Package indexer walks directory trees and keeps the catalog in sync
// with what it finds. A pass over one root runs inside a single catalog
// transaction; per-file failures are logged and counted, never fatal.
package indexer

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/davidMcneil/glance/internal/catalog"
	"github.com/davidMcneil/glance/internal/domain"
	"github.com/davidMcneil/glance/internal/errors"
	"github.com/davidMcneil/glance/internal/extract"
	"github.com/davidMcneil/glance/internal/id"
)

// Indexer orchestrates directory passes over a catalog.
type Indexer struct {
	store     *catalog.Store
	extractor *extract.Extractor
	logger    *slog.Logger

	walker *walker
}

// New creates an indexer.
func New(store *catalog.Store, extractor *extract.Extractor, logger *slog.Logger) *Indexer {
	return &Indexer{
		store:     store,
		extractor: extractor,
		logger:    logger,
		walker:    newWalker(logger),
	}
}

// AddDirectory indexes one directory tree. All catalog mutations for the
// pass are applied in a single transaction, so a crash mid-pass leaves the
// catalog at its pre-pass state for this root.
//
// Cancellation is cooperative at the per-file boundary: on context
// cancellation the transaction commits the work done so far and the
// summary is returned with Cancelled set, without an error.
func (ix *Indexer) AddDirectory(ctx context.Context, root string, opts extract.Options) (*domain.IndexSummary, error) {
	root, err := filepath.Abs(root)
	if err != nil {
		return nil, errors.Validationf("resolve root %s", root).WithCause(err)
	}

	summary := &domain.IndexSummary{
		StartedAt: time.Now().UTC(),
		Root:      root,
	}
	log := ix.logger.With("pass", id.MustGenerate("pass"), "root", root)
	log.Info("directory pass starting")

	// The transaction must survive cancellation so work done before the
	// cancellation point can still commit.
	txCtx := context.WithoutCancel(ctx)
	tx, err := ix.store.Begin(txCtx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	walkCtx, stopWalk := context.WithCancel(context.Background())
	defer stopWalk()

	for res := range ix.walker.walk(walkCtx, root) {
		select {
		case <-ctx.Done():
			summary.Cancelled = true
			stopWalk()
		default:
		}
		if summary.Cancelled {
			continue
		}

		if res.IsDir {
			summary.Dirs++
			continue
		}
		summary.Files++

		if err := ix.indexFile(txCtx, tx, res.Path, res.Info, opts, summary); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	summary.CompletedAt = time.Now().UTC()
	log.Info("directory pass complete",
		"files", summary.Files,
		"added", summary.Added,
		"unmodified", summary.Unmodified,
		"filtered", summary.Filtered,
		"failed", summary.Failed,
		"cancelled", summary.Cancelled)
	return summary, nil
}

// indexFile processes one file inside the pass transaction. Extraction
// failures are counted on the summary; only catalog engine errors are
// returned and abort the pass.
func (ix *Indexer) indexFile(ctx context.Context, tx *catalog.Tx, path string, info os.FileInfo, opts extract.Options, summary *domain.IndexSummary) error {
	existing, err := tx.GetByPath(ctx, path)
	if err != nil && !errors.Is(err, errors.ErrNotFound) {
		return err
	}

	res, err := ix.extractor.ExtractFile(ctx, path, info, existing, opts)
	if err != nil {
		ix.logger.Error("failed to extract", "path", path, "error", err)
		summary.Failed++
		return nil
	}

	if res.Flags.UsedExiftoolFallback {
		summary.UsedExiftoolFallback++
	}
	if res.Flags.FailedToReadExif {
		summary.FailedToReadExif++
	}
	if res.Flags.FailedCreatedFromExif {
		summary.FailedCreatedFromExif++
	}
	if res.Flags.FailedCreated {
		summary.FailedCreated++
	}

	switch res.Outcome {
	case extract.OutcomeUnmodified:
		summary.Unmodified++
	case extract.OutcomeSkipped:
		summary.Filtered++
	case extract.OutcomeNew:
		// A modified file's record is rewritten in place so its labels
		// survive the re-extraction.
		if existing != nil {
			if err := tx.Update(ctx, res.Media); err != nil {
				return err
			}
			summary.Added++
			return nil
		}
		if err := tx.Insert(ctx, res.Media); err != nil {
			if errors.Is(err, errors.ErrAlreadyExists) {
				ix.logger.Warn("path already cataloged", "path", path)
				summary.Failed++
				return nil
			}
			return err
		}
		summary.Added++
	}
	return nil
}

// AddDirectories indexes several roots, one transaction per root, and
// merges the per-root summaries.
func (ix *Indexer) AddDirectories(ctx context.Context, roots []string, opts extract.Options) (*domain.IndexSummary, error) {
	total := &domain.IndexSummary{StartedAt: time.Now().UTC()}
	for _, root := range roots {
		s, err := ix.AddDirectory(ctx, root, opts)
		if err != nil {
			return nil, err
		}
		total.Merge(s)
		if s.Cancelled {
			break
		}
	}
	total.CompletedAt = time.Now().UTC()
	return total, nil
}

// DeindexMissing removes every catalog record whose file no longer exists
// on disk, in a single transaction. Returns the number of removed records.
func (ix *Indexer) DeindexMissing(ctx context.Context) (int, error) {
	records, err := ix.store.Search(ctx, catalog.SearchFilter{})
	if err != nil {
		return 0, err
	}

	tx, err := ix.store.Begin(ctx)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	removed := 0
	for _, m := range records {
		_, err := os.Stat(m.Filepath)
		if err == nil {
			continue
		}
		if !os.IsNotExist(err) {
			ix.logger.Error("failed to stat", "path", m.Filepath, "error", err)
			continue
		}
		if err := tx.Delete(ctx, m.Filepath); err != nil {
			return 0, err
		}
		ix.logger.Debug("deindexed missing file", "path", m.Filepath)
		removed++
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	ix.logger.Info("deindexed missing files", "removed", removed)
	return removed, nil
}

// DeindexPaths removes the records for the given paths. Paths not in the
// catalog are ignored. Returns the number of removed records.
func (ix *Indexer) DeindexPaths(ctx context.Context, paths []string) (int, error) {
	tx, err := ix.store.Begin(ctx)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	removed := 0
	for _, path := range paths {
		abs, err := filepath.Abs(path)
		if err != nil {
			return 0, errors.Validationf("resolve path %s", path).WithCause(err)
		}
		if _, err := tx.GetByPath(ctx, abs); err != nil {
			if errors.Is(err, errors.ErrNotFound) {
				continue
			}
			return 0, err
		}
		if err := tx.Delete(ctx, abs); err != nil {
			return 0, err
		}
		removed++
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return removed, nil
}
