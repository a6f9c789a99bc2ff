package catalog

import (
	"context"

	"github.com/davidMcneil/glance/internal/domain"
)

// unknownBucket groups records whose dimension value is absent. Dropping
// them from the counts would hide those files from the user.
const unknownBucket = "Unknown"

// Count returns the total number of media records.
func (s *Store) Count(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM media`).Scan(&count)
	return count, err
}

// CountByFormat returns record counts grouped by detected format.
func (s *Store) CountByFormat(ctx context.Context) (map[string]int64, error) {
	return s.countBy(ctx, `
		SELECT COALESCE(NULLIF(format, ''), ?), COUNT(*)
		FROM media GROUP BY 1`)
}

// CountByDevice returns record counts grouped by capture device. Records
// without a device fall into the Unknown bucket.
func (s *Store) CountByDevice(ctx context.Context) (map[string]int64, error) {
	return s.countBy(ctx, `
		SELECT COALESCE(device, ?), COUNT(*)
		FROM media GROUP BY 1`)
}

// CountByYear returns record counts grouped by capture year. Records
// without a capture time fall into the Unknown bucket.
func (s *Store) CountByYear(ctx context.Context) (map[string]int64, error) {
	return s.countBy(ctx, `
		SELECT COALESCE(strftime('%Y', created), ?), COUNT(*)
		FROM media GROUP BY 1`)
}

func (s *Store) countBy(ctx context.Context, query string) (map[string]int64, error) {
	rows, err := s.db.QueryContext(ctx, query, unknownBucket)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[string]int64)
	for rows.Next() {
		var (
			key   string
			count int64
		)
		if err := rows.Scan(&key, &count); err != nil {
			return nil, err
		}
		counts[key] = count
	}
	return counts, rows.Err()
}

// Stats computes a snapshot of the catalog: total count, counts grouped by
// format, device, and year, and the number of records participating in a
// duplicate hash group.
func (s *Store) Stats(ctx context.Context) (*domain.Stats, error) {
	count, err := s.Count(ctx)
	if err != nil {
		return nil, err
	}
	byFormat, err := s.CountByFormat(ctx)
	if err != nil {
		return nil, err
	}
	byDevice, err := s.CountByDevice(ctx)
	if err != nil {
		return nil, err
	}
	byYear, err := s.CountByYear(ctx)
	if err != nil {
		return nil, err
	}

	var duplicates int64
	err = s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM media
		WHERE hash IS NOT NULL AND hash IN (
			SELECT hash FROM media
			WHERE hash IS NOT NULL
			GROUP BY hash
			HAVING COUNT(*) > 1
		)`).Scan(&duplicates)
	if err != nil {
		return nil, err
	}

	return &domain.Stats{
		Count:         count,
		CountByFormat: byFormat,
		CountByDevice: byDevice,
		CountByYear:   byYear,
		Duplicates:    duplicates,
	}, nil
}
