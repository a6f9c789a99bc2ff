// Package organizer relocates cataloged files into capture-time-derived
// folders and materializes label exports as symlink trees.
package organizer

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/davidMcneil/glance/internal/catalog"
	"github.com/davidMcneil/glance/internal/domain"
	"github.com/davidMcneil/glance/internal/errors"
)

const exportsDirName = "glance-exports"

// Options configures one standardization pass.
type Options struct {
	// Daily selects day-granular folders (2006-01-02) instead of monthly
	// ones (2006-01).
	Daily bool
	// Dirs scopes the pass to records under the given directories. Empty
	// means the whole catalog.
	Dirs []string
}

// Organizer keeps file layout and catalog paths in sync.
type Organizer struct {
	store  *catalog.Store
	logger *slog.Logger
}

// New creates an organizer over the given catalog.
func New(store *catalog.Store, logger *slog.Logger) *Organizer {
	return &Organizer{store: store, logger: logger}
}

// Standardize moves every record with a known capture time into
// <root>/<period>/ where period derives from the capture time. The file
// moves on disk first, the catalog row follows; a crash between the two is
// healed by a deindex-missing plus re-index pass. Records already in place
// count as unmodified, occupied destinations are logged conflicts, and
// records without a capture time are left untouched.
//
// Cancellation is cooperative at the per-record boundary; renames done
// before the cancellation point remain done.
func (o *Organizer) Standardize(ctx context.Context, root string, opts Options) (*domain.OrganizeSummary, error) {
	root, err := filepath.Abs(root)
	if err != nil {
		return nil, errors.Validationf("resolve root %s", root).WithCause(err)
	}
	scope, err := absAll(opts.Dirs)
	if err != nil {
		return nil, err
	}

	layout := "2006-01"
	if opts.Daily {
		layout = "2006-01-02"
	}

	records, err := o.store.Search(ctx, catalog.SearchFilter{})
	if err != nil {
		return nil, err
	}

	summary := &domain.OrganizeSummary{}
	for _, m := range records {
		select {
		case <-ctx.Done():
			summary.Cancelled = true
			return summary, nil
		default:
		}

		if !inScope(m.Filepath, scope) {
			continue
		}
		summary.Total++

		if m.Created == nil {
			summary.MissingCreated++
			continue
		}

		destDir := filepath.Join(root, m.Created.Format(layout))
		destPath := filepath.Join(destDir, filepath.Base(m.Filepath))
		if destPath == m.Filepath {
			summary.Unmodified++
			continue
		}

		if err := os.MkdirAll(destDir, 0o755); err != nil {
			return nil, errors.Internalf("create folder %s", destDir).WithCause(err)
		}
		if _, err := os.Lstat(destPath); err == nil {
			o.logger.Warn("destination occupied, skipping", "source", m.Filepath, "dest", destPath)
			summary.Conflicts++
			continue
		}

		// Filesystem first, catalog second.
		if err := os.Rename(m.Filepath, destPath); err != nil {
			o.logger.Error("failed to move file", "source", m.Filepath, "dest", destPath, "error", err)
			summary.Conflicts++
			continue
		}
		if err := o.store.Rename(ctx, m.Filepath, destPath); err != nil {
			return nil, err
		}
		summary.Renamed++
	}

	o.logger.Info("standardization complete",
		"root", root,
		"total", summary.Total,
		"renamed", summary.Renamed,
		"unmodified", summary.Unmodified,
		"missing_created", summary.MissingCreated,
		"conflicts", summary.Conflicts)
	return summary, nil
}

// ExportLabeled symlinks every record carrying the label into
// <root>/glance-exports/<label>/. Existing links are left alone so repeated
// exports are idempotent. Returns the number of links created.
func (o *Organizer) ExportLabeled(ctx context.Context, root, label string) (int, error) {
	if label == "" {
		return 0, errors.Validation("label must not be empty")
	}
	root, err := filepath.Abs(root)
	if err != nil {
		return 0, errors.Validationf("resolve root %s", root).WithCause(err)
	}

	records, err := o.store.Search(ctx, catalog.SearchFilter{Label: label})
	if err != nil {
		return 0, err
	}

	exportDir := filepath.Join(root, exportsDirName, label)
	if err := os.MkdirAll(exportDir, 0o755); err != nil {
		return 0, errors.Internalf("create export folder %s", exportDir).WithCause(err)
	}

	created := 0
	for _, m := range records {
		link := filepath.Join(exportDir, filepath.Base(m.Filepath))
		if err := os.Symlink(m.Filepath, link); err != nil {
			if os.IsExist(err) {
				continue
			}
			return created, errors.Internalf("create link %s", link).WithCause(err)
		}
		created++
	}

	o.logger.Info("label export complete", "label", label, "dir", exportDir, "links", created)
	return created, nil
}

func absAll(dirs []string) ([]string, error) {
	out := make([]string, 0, len(dirs))
	for _, d := range dirs {
		abs, err := filepath.Abs(d)
		if err != nil {
			return nil, errors.Validationf("resolve path %s", d).WithCause(err)
		}
		out = append(out, abs)
	}
	return out, nil
}

// inScope reports whether path sits under any of the scope directories.
// An empty scope matches everything.
func inScope(path string, scope []string) bool {
	if len(scope) == 0 {
		return true
	}
	for _, dir := range scope {
		if path == dir || strings.HasPrefix(path, dir+string(filepath.Separator)) {
			return true
		}
	}
	return false
}
