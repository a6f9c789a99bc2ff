// Package importer merges one catalog into another by content identity.
// Every source file whose hash is absent from the destination is copied
// into the destination media directory and recorded there under its
// original filename.
package importer

import (
	"context"
	"database/sql"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/davidMcneil/glance/internal/catalog"
	"github.com/davidMcneil/glance/internal/domain"
	"github.com/davidMcneil/glance/internal/errors"
)

// Importer copies new-by-hash records from a source catalog into the
// destination catalog.
type Importer struct {
	store  *catalog.Store
	logger *slog.Logger
}

// New creates an importer writing into the given destination catalog.
func New(store *catalog.Store, logger *slog.Logger) *Importer {
	return &Importer{store: store, logger: logger}
}

// sourceRow is one media row read from the attached source catalog. Column
// values other than the path are carried verbatim into the destination so
// no information is reinterpreted in transit.
type sourceRow struct {
	filepath string
	size     int64
	format   string
	created  sql.NullString
	modified string
	location sql.NullString
	device   sql.NullString
	hash     sql.NullString
}

// Import merges the catalog at sourceDBPath into the destination. New
// files land in mediaDir under their original base name. Both catalogs
// must be fully hashed; any record without a hash refuses the import
// before anything is touched. All destination inserts commit together.
//
// Conflicts (destination path already occupied on disk) and duplicates
// (insert refused by the uniqueness constraint) are logged and counted,
// never fatal.
func (i *Importer) Import(ctx context.Context, sourceDBPath, mediaDir string, dryRun bool) (*domain.ImportSummary, error) {
	if _, err := os.Stat(sourceDBPath); err != nil {
		return nil, errors.Validationf("source catalog %s", sourceDBPath).WithCause(err)
	}
	mediaDir, err := filepath.Abs(mediaDir)
	if err != nil {
		return nil, errors.Validationf("resolve media dir %s", mediaDir).WithCause(err)
	}

	// ATTACH is session-scoped, so the whole import holds one connection.
	conn, err := i.store.Conn(ctx)
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	if err := checkFullyHashed(ctx, conn, "media", "destination"); err != nil {
		return nil, err
	}

	if _, err := conn.ExecContext(ctx, `ATTACH DATABASE ? AS source`, sourceDBPath); err != nil {
		return nil, errors.Catalogf("attach source catalog %s", sourceDBPath).WithCause(err)
	}
	defer conn.ExecContext(context.WithoutCancel(ctx), `DETACH DATABASE source`)

	if err := checkFullyHashed(ctx, conn, "source.media", "source"); err != nil {
		return nil, err
	}

	var sourceCount int
	if err := conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM source.media`).Scan(&sourceCount); err != nil {
		return nil, err
	}

	rows, err := newFromSource(ctx, conn)
	if err != nil {
		return nil, err
	}

	// Source records already present in the destination by hash count as
	// duplicates.
	summary := &domain.ImportSummary{
		DryRun:     dryRun,
		Duplicates: sourceCount - len(rows),
	}
	if dryRun {
		summary.Imported = len(rows)
		return summary, nil
	}

	if err := os.MkdirAll(mediaDir, 0o755); err != nil {
		return nil, errors.Internalf("create media dir %s", mediaDir).WithCause(err)
	}

	tx, err := conn.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	// Hashes inserted during this run; a second source row with the same
	// hash is a duplicate, not a new file.
	seen := make(map[string]bool)

	for _, row := range rows {
		destPath := filepath.Join(mediaDir, filepath.Base(row.filepath))

		if row.hash.Valid && seen[row.hash.String] {
			i.logger.Warn("duplicate hash within source, skipping", "source", row.filepath)
			summary.Duplicates++
			continue
		}

		if _, err := os.Lstat(destPath); err == nil {
			i.logger.Warn("destination path occupied, skipping", "source", row.filepath, "dest", destPath)
			summary.Conflicts++
			continue
		}
		if err := copyFile(row.filepath, destPath); err != nil {
			i.logger.Error("failed to copy file", "source", row.filepath, "dest", destPath, "error", err)
			summary.Conflicts++
			continue
		}

		_, err := tx.ExecContext(ctx, `
			INSERT INTO media (filepath, size, format, created, modified, location, device, hash)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			destPath, row.size, row.format, row.created, row.modified,
			row.location, row.device, row.hash)
		if err != nil {
			if isUniqueViolation(err) {
				i.logger.Warn("duplicate record, skipping", "dest", destPath)
				summary.Duplicates++
				continue
			}
			return nil, err
		}
		if row.hash.Valid {
			seen[row.hash.String] = true
		}
		summary.Imported++
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	i.logger.Info("import complete",
		"source", sourceDBPath,
		"imported", summary.Imported,
		"duplicates", summary.Duplicates,
		"conflicts", summary.Conflicts)
	return summary, nil
}

// checkFullyHashed refuses the import when any record in the named table
// is missing a content hash. Path-based matching cannot reliably detect
// pre-existing duplicates.
func checkFullyHashed(ctx context.Context, conn *sql.Conn, table, which string) error {
	var missing int64
	err := conn.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM `+table+` WHERE hash IS NULL`).Scan(&missing)
	if err != nil {
		return err
	}
	if missing > 0 {
		return errors.Preconditionf("%s catalog has %d records without a content hash; import requires hashing on both catalogs", which, missing)
	}
	return nil
}

// newFromSource returns every source record whose hash has no match in the
// destination. Rows are fully materialized because the single pinned
// connection cannot run inserts while a result set is open.
func newFromSource(ctx context.Context, conn *sql.Conn) ([]sourceRow, error) {
	rows, err := conn.QueryContext(ctx, `
		SELECT s.filepath, s.size, s.format, s.created, s.modified, s.location, s.device, s.hash
		FROM source.media s
		LEFT JOIN media d ON d.hash = s.hash
		WHERE d.hash IS NULL`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []sourceRow
	for rows.Next() {
		var r sourceRow
		err := rows.Scan(&r.filepath, &r.size, &r.format, &r.created,
			&r.modified, &r.location, &r.device, &r.hash)
		if err != nil {
			return nil, err
		}
		result = append(result, r)
	}
	return result, rows.Err()
}

func copyFile(src, dest string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dest, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		os.Remove(dest)
		return err
	}
	return out.Close()
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
