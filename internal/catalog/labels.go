package catalog

import (
	"context"
	"strings"

	"github.com/davidMcneil/glance/internal/errors"
)

// AddLabel attaches a label to a cataloged path. Adding the same label
// twice is a no-op. Returns errors.ErrNotFound when the path is not in the
// catalog (labels reference media rows).
func (s *Store) AddLabel(ctx context.Context, filepath, label string) error {
	if label == "" {
		return errors.Validation("label must not be empty")
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO labels (filepath, label) VALUES (?, ?)
		ON CONFLICT(filepath, label) DO NOTHING`,
		filepath, label)
	if err != nil {
		if strings.Contains(err.Error(), "FOREIGN KEY constraint failed") {
			return errors.NotFoundf("no media record for %s", filepath)
		}
		return err
	}
	return nil
}

// DeleteLabel detaches a label from a path. Deleting a missing label is a
// no-op.
func (s *Store) DeleteLabel(ctx context.Context, filepath, label string) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM labels WHERE filepath = ? AND label = ?`, filepath, label)
	return err
}

// GetLabels returns the sorted, deduplicated labels attached to a path.
func (s *Store) GetLabels(ctx context.Context, filepath string) ([]string, error) {
	return s.queryLabels(ctx,
		`SELECT DISTINCT label FROM labels WHERE filepath = ? ORDER BY label`, filepath)
}

// GetAllLabels returns every distinct label in the catalog, sorted.
func (s *Store) GetAllLabels(ctx context.Context) ([]string, error) {
	return s.queryLabels(ctx, `SELECT DISTINCT label FROM labels ORDER BY label`)
}

func (s *Store) queryLabels(ctx context.Context, query string, args ...any) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var labels []string
	for rows.Next() {
		var label string
		if err := rows.Scan(&label); err != nil {
			return nil, err
		}
		labels = append(labels, label)
	}
	return labels, rows.Err()
}
