package catalog

import (
	"context"
	"testing"
	"time"

	"github.com/davidMcneil/glance/internal/domain"
	"github.com/davidMcneil/glance/internal/errors"
)

// makeTestMedia creates a domain.Media with sensible defaults for testing.
func makeTestMedia(path string) *domain.Media {
	created := time.Date(2021, 6, 15, 10, 30, 0, 0, time.UTC)
	return &domain.Media{
		Filepath: path,
		Size:     2048,
		Format:   "JPEG",
		Created:  &created,
		Modified: time.Date(2021, 6, 15, 11, 0, 0, 0, time.UTC),
		Device:   "Canon EOS R5",
		Hash:     "hash-" + path,
	}
}

func TestInsertAndGetByPath(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	m := makeTestMedia("/photos/a.jpg")
	m.Location = "Lisbon"
	if err := s.Insert(ctx, m); err != nil {
		t.Fatalf("insert: %v", err)
	}

	got, err := s.GetByPath(ctx, "/photos/a.jpg")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Size != m.Size || got.Format != m.Format || got.Device != m.Device {
		t.Errorf("got %+v, want %+v", got, m)
	}
	if got.Location != "Lisbon" {
		t.Errorf("location = %q, want Lisbon", got.Location)
	}
	if got.Created == nil || !got.Created.Equal(*m.Created) {
		t.Errorf("created = %v, want %v", got.Created, m.Created)
	}
	if !got.Modified.Equal(m.Modified) {
		t.Errorf("modified = %v, want %v", got.Modified, m.Modified)
	}
}

func TestInsertDuplicatePath(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.Insert(ctx, makeTestMedia("/photos/a.jpg")); err != nil {
		t.Fatalf("insert: %v", err)
	}
	err := s.Insert(ctx, makeTestMedia("/photos/a.jpg"))
	if !errors.Is(err, errors.ErrAlreadyExists) {
		t.Fatalf("err = %v, want ErrAlreadyExists", err)
	}
}

func TestGetByPathNotFound(t *testing.T) {
	s := newTestStore(t)

	_, err := s.GetByPath(context.Background(), "/nope.jpg")
	if !errors.Is(err, errors.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestInsertNullableFields(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	m := &domain.Media{
		Filepath: "/photos/bare.png",
		Size:     10,
		Format:   "PNG",
		Modified: time.Now().UTC(),
	}
	if err := s.Insert(ctx, m); err != nil {
		t.Fatalf("insert: %v", err)
	}

	got, err := s.GetByPath(ctx, m.Filepath)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Created != nil || got.Location != "" || got.Device != "" || got.Hash != "" {
		t.Errorf("optional fields not empty: %+v", got)
	}
}

func TestDelete(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.Insert(ctx, makeTestMedia("/photos/a.jpg")); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if err := s.Delete(ctx, "/photos/a.jpg"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := s.GetByPath(ctx, "/photos/a.jpg"); !errors.Is(err, errors.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound after delete", err)
	}
}

func TestRename(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.Insert(ctx, makeTestMedia("/photos/old.jpg")); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if err := s.Rename(ctx, "/photos/old.jpg", "/photos/2021-06/old.jpg"); err != nil {
		t.Fatalf("rename: %v", err)
	}

	if _, err := s.GetByPath(ctx, "/photos/old.jpg"); !errors.Is(err, errors.ErrNotFound) {
		t.Fatalf("old path still present: %v", err)
	}
	got, err := s.GetByPath(ctx, "/photos/2021-06/old.jpg")
	if err != nil {
		t.Fatalf("get new path: %v", err)
	}
	if got.Hash != "hash-/photos/old.jpg" {
		t.Errorf("record fields did not follow rename: %+v", got)
	}
}

func TestRenameMissing(t *testing.T) {
	s := newTestStore(t)

	err := s.Rename(context.Background(), "/photos/none.jpg", "/photos/other.jpg")
	if !errors.Is(err, errors.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestRenameOntoExisting(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.Insert(ctx, makeTestMedia("/photos/a.jpg")); err != nil {
		t.Fatalf("insert a: %v", err)
	}
	if err := s.Insert(ctx, makeTestMedia("/photos/b.jpg")); err != nil {
		t.Fatalf("insert b: %v", err)
	}

	err := s.Rename(ctx, "/photos/a.jpg", "/photos/b.jpg")
	if !errors.Is(err, errors.ErrAlreadyExists) {
		t.Fatalf("err = %v, want ErrAlreadyExists", err)
	}
}

func TestSearch(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	june := time.Date(2021, 6, 1, 0, 0, 0, 0, time.UTC)
	august := time.Date(2021, 8, 1, 0, 0, 0, 0, time.UTC)

	a := makeTestMedia("/photos/a.jpg")
	a.Created = &june
	b := makeTestMedia("/photos/b.jpg")
	b.Created = &august
	b.Device = "Pixel 6"
	c := makeTestMedia("/photos/c.png")
	c.Created = &august
	c.Format = "PNG"
	for _, m := range []*domain.Media{a, b, c} {
		if err := s.Insert(ctx, m); err != nil {
			t.Fatalf("insert %s: %v", m.Filepath, err)
		}
	}
	if err := s.AddLabel(ctx, "/photos/b.jpg", "vacation"); err != nil {
		t.Fatalf("label: %v", err)
	}

	all, err := s.Search(ctx, SearchFilter{})
	if err != nil {
		t.Fatalf("search all: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("all = %d records, want 3", len(all))
	}
	// Ordered by capture time ascending.
	if all[0].Filepath != "/photos/a.jpg" {
		t.Errorf("first record = %s, want /photos/a.jpg", all[0].Filepath)
	}

	july := time.Date(2021, 7, 1, 0, 0, 0, 0, time.UTC)
	late, err := s.Search(ctx, SearchFilter{CreatedFrom: &july})
	if err != nil {
		t.Fatalf("search from: %v", err)
	}
	if len(late) != 2 {
		t.Errorf("from july = %d records, want 2", len(late))
	}

	byDevice, err := s.Search(ctx, SearchFilter{Device: "Pixel 6"})
	if err != nil {
		t.Fatalf("search device: %v", err)
	}
	if len(byDevice) != 1 || byDevice[0].Filepath != "/photos/b.jpg" {
		t.Errorf("device filter = %+v", byDevice)
	}

	byFormat, err := s.Search(ctx, SearchFilter{Format: "PNG"})
	if err != nil {
		t.Fatalf("search format: %v", err)
	}
	if len(byFormat) != 1 || byFormat[0].Filepath != "/photos/c.png" {
		t.Errorf("format filter = %+v", byFormat)
	}

	byLabel, err := s.Search(ctx, SearchFilter{Label: "vacation"})
	if err != nil {
		t.Fatalf("search label: %v", err)
	}
	if len(byLabel) != 1 || byLabel[0].Filepath != "/photos/b.jpg" {
		t.Errorf("label filter = %+v", byLabel)
	}

	combined, err := s.Search(ctx, SearchFilter{Label: "vacation", Format: "JPEG", CreatedFrom: &july})
	if err != nil {
		t.Fatalf("search combined: %v", err)
	}
	if len(combined) != 1 {
		t.Errorf("combined filter = %d records, want 1", len(combined))
	}
}

func TestDuplicates(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	a := makeTestMedia("/photos/a.jpg")
	a.Hash = "same"
	b := makeTestMedia("/photos/b.jpg")
	b.Hash = "same"
	c := makeTestMedia("/photos/c.jpg")
	c.Hash = "unique"
	d := &domain.Media{Filepath: "/photos/d.jpg", Size: 1, Format: "JPEG", Modified: time.Now().UTC()}
	for _, m := range []*domain.Media{a, b, c, d} {
		if err := s.Insert(ctx, m); err != nil {
			t.Fatalf("insert %s: %v", m.Filepath, err)
		}
	}

	dups, err := s.Duplicates(ctx)
	if err != nil {
		t.Fatalf("duplicates: %v", err)
	}
	if len(dups) != 2 {
		t.Fatalf("duplicates = %d records, want 2", len(dups))
	}
	for _, m := range dups {
		if m.Hash != "same" {
			t.Errorf("unexpected duplicate %+v", m)
		}
	}
}

func TestExistsHash(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.Insert(ctx, makeTestMedia("/photos/a.jpg")); err != nil {
		t.Fatalf("insert: %v", err)
	}

	ok, err := s.ExistsHash(ctx, "hash-/photos/a.jpg")
	if err != nil {
		t.Fatalf("exists: %v", err)
	}
	if !ok {
		t.Error("hash not found")
	}

	ok, err = s.ExistsHash(ctx, "missing")
	if err != nil {
		t.Fatalf("exists missing: %v", err)
	}
	if ok {
		t.Error("missing hash reported present")
	}
}

func TestTxCommitAndRollback(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	tx, err := s.Begin(ctx)
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	if err := tx.Insert(ctx, makeTestMedia("/photos/tx.jpg")); err != nil {
		t.Fatalf("tx insert: %v", err)
	}
	if err := tx.Rollback(); err != nil {
		t.Fatalf("rollback: %v", err)
	}
	if _, err := s.GetByPath(ctx, "/photos/tx.jpg"); !errors.Is(err, errors.ErrNotFound) {
		t.Fatalf("rolled-back insert visible: %v", err)
	}

	tx, err = s.Begin(ctx)
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	if err := tx.Insert(ctx, makeTestMedia("/photos/tx.jpg")); err != nil {
		t.Fatalf("tx insert: %v", err)
	}
	if err := tx.Commit(); err != nil {
		t.Fatalf("commit: %v", err)
	}
	// Rollback after commit is a no-op.
	if err := tx.Rollback(); err != nil {
		t.Fatalf("rollback after commit: %v", err)
	}
	if _, err := s.GetByPath(ctx, "/photos/tx.jpg"); err != nil {
		t.Fatalf("committed insert missing: %v", err)
	}
}

func TestTxUpdateKeepsLabels(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.Insert(ctx, makeTestMedia("/photos/up.jpg")); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if err := s.AddLabel(ctx, "/photos/up.jpg", "vacation"); err != nil {
		t.Fatalf("add label: %v", err)
	}

	changed := makeTestMedia("/photos/up.jpg")
	changed.Size = 4096
	changed.Hash = "hash-rewritten"
	changed.Modified = changed.Modified.Add(time.Minute)

	tx, err := s.Begin(ctx)
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	if err := tx.Update(ctx, changed); err != nil {
		t.Fatalf("tx update: %v", err)
	}
	if err := tx.Commit(); err != nil {
		t.Fatalf("commit: %v", err)
	}

	got, err := s.GetByPath(ctx, "/photos/up.jpg")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Size != 4096 || got.Hash != "hash-rewritten" {
		t.Errorf("record not rewritten: size=%d hash=%q", got.Size, got.Hash)
	}
	labels, err := s.GetLabels(ctx, "/photos/up.jpg")
	if err != nil {
		t.Fatalf("get labels: %v", err)
	}
	if len(labels) != 1 || labels[0] != "vacation" {
		t.Errorf("labels = %v, want [vacation]", labels)
	}
}

func TestTxUpdateMissing(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	tx, err := s.Begin(ctx)
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	defer tx.Rollback()

	if err := tx.Update(ctx, makeTestMedia("/photos/absent.jpg")); !errors.Is(err, errors.ErrNotFound) {
		t.Fatalf("update of missing path: %v, want ErrNotFound", err)
	}
}

func TestSearchCreatedFractionalBoundary(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	insertAt := func(path string, created time.Time) {
		t.Helper()
		m := makeTestMedia(path)
		m.Created = &created
		if err := s.Insert(ctx, m); err != nil {
			t.Fatalf("insert %s: %v", path, err)
		}
	}

	whole := time.Date(2021, 6, 15, 15, 4, 5, 0, time.UTC)
	insertAt("/photos/whole.jpg", whole)
	insertAt("/photos/half.jpg", whole.Add(500*time.Millisecond))
	insertAt("/photos/next.jpg", whole.Add(time.Second))

	got, err := s.Search(ctx, SearchFilter{CreatedTo: &whole})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(got) != 1 || got[0].Filepath != "/photos/whole.jpg" {
		t.Errorf("CreatedTo at whole second returned %d records, want only the whole-second one", len(got))
	}

	from := whole.Add(500 * time.Millisecond)
	got, err = s.Search(ctx, SearchFilter{CreatedFrom: &from})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("CreatedFrom at fractional second returned %d records, want 2", len(got))
	}
	if got[0].Filepath != "/photos/half.jpg" || got[1].Filepath != "/photos/next.jpg" {
		t.Errorf("order = [%s %s], want fractional second between its neighbours",
			got[0].Filepath, got[1].Filepath)
	}

	all, err := s.Search(ctx, SearchFilter{})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	var order []string
	for _, m := range all {
		order = append(order, m.Filepath)
	}
	want := []string{"/photos/whole.jpg", "/photos/half.jpg", "/photos/next.jpg"}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("order = %v, want %v", order, want)
		}
	}
}
