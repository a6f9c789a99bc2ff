package catalog

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/davidMcneil/glance/internal/domain"
	"github.com/davidMcneil/glance/internal/errors"
)

// mediaColumns is the ordered list of columns selected in media queries.
// Must match the scan order in scanMedia.
const mediaColumns = `filepath, size, format, created, modified, location, device, hash`

// scanMedia scans a sql.Row (or sql.Rows via its Scan method) into a
// domain.Media.
func scanMedia(scanner interface{ Scan(dest ...any) error }) (*domain.Media, error) {
	var m domain.Media

	var (
		created  sql.NullString
		modified string
		location sql.NullString
		device   sql.NullString
		hash     sql.NullString
	)

	err := scanner.Scan(
		&m.Filepath,
		&m.Size,
		&m.Format,
		&created,
		&modified,
		&location,
		&device,
		&hash,
	)
	if err != nil {
		return nil, err
	}

	m.Created, err = parseNullableTime(created)
	if err != nil {
		return nil, err
	}
	m.Modified, err = parseTime(modified)
	if err != nil {
		return nil, err
	}

	if location.Valid {
		m.Location = location.String
	}
	if device.Valid {
		m.Device = device.String
	}
	if hash.Valid {
		m.Hash = hash.String
	}

	return &m, nil
}

func insertMedia(ctx context.Context, q querier, m *domain.Media) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO media (`+mediaColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		m.Filepath,
		m.Size,
		m.Format,
		nullTime(m.Created),
		formatTime(m.Modified),
		nullString(m.Location),
		nullString(m.Device),
		nullString(m.Hash),
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return errors.ErrAlreadyExists
		}
		return err
	}
	return nil
}

// updateMedia rewrites every non-key column of an existing record. The
// path is untouched, so label rows keyed on it survive.
func updateMedia(ctx context.Context, q querier, m *domain.Media) error {
	res, err := q.ExecContext(ctx, `
		UPDATE media
		SET size = ?, format = ?, created = ?, modified = ?, location = ?, device = ?, hash = ?
		WHERE filepath = ?`,
		m.Size,
		m.Format,
		nullTime(m.Created),
		formatTime(m.Modified),
		nullString(m.Location),
		nullString(m.Device),
		nullString(m.Hash),
		m.Filepath,
	)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return errors.ErrNotFound
	}
	return nil
}

func deleteMedia(ctx context.Context, q querier, filepath string) error {
	_, err := q.ExecContext(ctx, `DELETE FROM media WHERE filepath = ?`, filepath)
	return err
}

func getMedia(ctx context.Context, q querier, filepath string) (*domain.Media, error) {
	row := q.QueryRowContext(ctx,
		`SELECT `+mediaColumns+` FROM media WHERE filepath = ?`, filepath)

	m, err := scanMedia(row)
	if err == sql.ErrNoRows {
		return nil, errors.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return m, nil
}

// Insert adds a new media record.
// Returns errors.ErrAlreadyExists when the path is already cataloged; the
// caller distinguishes this from other failures and treats it as "already
// present" rather than aborting.
func (s *Store) Insert(ctx context.Context, m *domain.Media) error {
	return insertMedia(ctx, s.db, m)
}

// Delete removes the record for the given path. Labels cascade.
func (s *Store) Delete(ctx context.Context, filepath string) error {
	return deleteMedia(ctx, s.db, filepath)
}

// GetByPath retrieves a media record by its path.
// Returns errors.ErrNotFound if the path is not cataloged.
func (s *Store) GetByPath(ctx context.Context, filepath string) (*domain.Media, error) {
	return getMedia(ctx, s.db, filepath)
}

// Rename updates the path column of a record. It performs only the catalog
// side; the caller must have moved the backing file first. Labels follow
// the rename through the cascading foreign key.
// Returns errors.ErrNotFound if old is not cataloged and
// errors.ErrAlreadyExists if new already is.
func (s *Store) Rename(ctx context.Context, oldPath, newPath string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE media SET filepath = ? WHERE filepath = ?`, newPath, oldPath)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return errors.ErrAlreadyExists
		}
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return errors.ErrNotFound
	}
	return nil
}

// SearchFilter selects media records. Absent predicates impose no
// constraint; set predicates are ANDed. The capture-time bounds are
// inclusive.
type SearchFilter struct {
	CreatedFrom *time.Time
	CreatedTo   *time.Time
	Label       string
	Device      string
	Format      string
}

// Search returns records matching the filter, ordered by capture time
// ascending. Records without a capture time sort first (SQLite null
// ordering).
func (s *Store) Search(ctx context.Context, f SearchFilter) ([]*domain.Media, error) {
	var (
		conds []string
		args  []any
	)

	query := `SELECT ` + qualify(mediaColumns, "m") + ` FROM media m`
	if f.Label != "" {
		query += ` JOIN labels l ON l.filepath = m.filepath`
		conds = append(conds, `l.label = ?`)
		args = append(args, f.Label)
	}
	// Bounds compare the parsed time value, not the stored string: with
	// lexicographic comparison a fractional second would sort before its
	// own whole second ("...05.5Z" < "...05Z").
	if f.CreatedFrom != nil {
		conds = append(conds, `unixepoch(m.created, 'subsec') >= unixepoch(?, 'subsec')`)
		args = append(args, formatTime(*f.CreatedFrom))
	}
	if f.CreatedTo != nil {
		conds = append(conds, `unixepoch(m.created, 'subsec') <= unixepoch(?, 'subsec')`)
		args = append(args, formatTime(*f.CreatedTo))
	}
	if f.Device != "" {
		conds = append(conds, `m.device = ?`)
		args = append(args, f.Device)
	}
	if f.Format != "" {
		conds = append(conds, `m.format = ?`)
		args = append(args, f.Format)
	}
	if len(conds) > 0 {
		query += ` WHERE ` + strings.Join(conds, ` AND `)
	}
	query += ` ORDER BY unixepoch(m.created, 'subsec') ASC`

	return s.queryMedia(ctx, query, args...)
}

// Duplicates returns every record whose hash is shared by two or more
// records, across the whole catalog.
func (s *Store) Duplicates(ctx context.Context) ([]*domain.Media, error) {
	return s.queryMedia(ctx, `
		SELECT `+mediaColumns+` FROM media
		WHERE hash IS NOT NULL AND hash IN (
			SELECT hash FROM media
			WHERE hash IS NOT NULL
			GROUP BY hash
			HAVING COUNT(*) > 1
		)
		ORDER BY hash, filepath`)
}

// ExistsHash reports whether any record carries the given content hash.
func (s *Store) ExistsHash(ctx context.Context, hash string) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx,
		`SELECT 1 FROM media WHERE hash = ? LIMIT 1`, hash).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (s *Store) queryMedia(ctx context.Context, query string, args ...any) ([]*domain.Media, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []*domain.Media
	for rows.Next() {
		m, err := scanMedia(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, m)
	}
	return result, rows.Err()
}

// qualify prefixes each column in a comma-separated list with a table
// alias.
func qualify(columns, alias string) string {
	parts := strings.Split(columns, ",")
	for i, p := range parts {
		parts[i] = alias + "." + strings.TrimSpace(p)
	}
	return strings.Join(parts, ", ")
}

// Transaction-scoped variants used by the directory indexer.

// Insert adds a new media record inside the transaction.
func (t *Tx) Insert(ctx context.Context, m *domain.Media) error {
	return insertMedia(ctx, t.tx, m)
}

// Update rewrites an existing record in place inside the transaction.
// Labels on the path are preserved.
// Returns errors.ErrNotFound if the path is not cataloged.
func (t *Tx) Update(ctx context.Context, m *domain.Media) error {
	return updateMedia(ctx, t.tx, m)
}

// Delete removes a record inside the transaction.
func (t *Tx) Delete(ctx context.Context, filepath string) error {
	return deleteMedia(ctx, t.tx, filepath)
}

// GetByPath retrieves a record inside the transaction.
func (t *Tx) GetByPath(ctx context.Context, filepath string) (*domain.Media, error) {
	return getMedia(ctx, t.tx, filepath)
}
