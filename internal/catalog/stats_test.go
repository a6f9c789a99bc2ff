package catalog

import (
	"context"
	"testing"
	"time"

	"github.com/davidMcneil/glance/internal/domain"
)

func TestStats(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	created2019 := time.Date(2019, 8, 2, 0, 0, 0, 0, time.UTC)
	created2021 := time.Date(2021, 6, 15, 0, 0, 0, 0, time.UTC)

	a := makeTestMedia("/photos/a.jpg")
	a.Created = &created2019
	a.Hash = "same"
	b := makeTestMedia("/photos/b.jpg")
	b.Created = &created2021
	b.Hash = "same"
	c := makeTestMedia("/photos/c.png")
	c.Created = &created2021
	c.Format = "PNG"
	c.Hash = "unique"
	// No capture time, no device.
	d := &domain.Media{Filepath: "/photos/d.jpg", Size: 1, Format: "JPEG", Modified: time.Now().UTC()}

	for _, m := range []*domain.Media{a, b, c, d} {
		if err := s.Insert(ctx, m); err != nil {
			t.Fatalf("insert %s: %v", m.Filepath, err)
		}
	}

	stats, err := s.Stats(ctx)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}

	if stats.Count != 4 {
		t.Errorf("count = %d, want 4", stats.Count)
	}
	if stats.CountByFormat["JPEG"] != 3 || stats.CountByFormat["PNG"] != 1 {
		t.Errorf("count_by_format = %v", stats.CountByFormat)
	}
	if stats.CountByDevice["Canon EOS R5"] != 3 || stats.CountByDevice[unknownBucket] != 1 {
		t.Errorf("count_by_device = %v", stats.CountByDevice)
	}
	if stats.CountByYear["2019"] != 1 || stats.CountByYear["2021"] != 2 || stats.CountByYear[unknownBucket] != 1 {
		t.Errorf("count_by_year = %v", stats.CountByYear)
	}
	if stats.Duplicates != 2 {
		t.Errorf("duplicates = %d, want 2", stats.Duplicates)
	}
}

// Stats must agree with the operations it summarizes.
func TestStatsConsistency(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for _, m := range []*domain.Media{
		makeTestMedia("/photos/a.jpg"),
		makeTestMedia("/photos/b.jpg"),
		makeTestMedia("/photos/c.jpg"),
	} {
		if err := s.Insert(ctx, m); err != nil {
			t.Fatalf("insert %s: %v", m.Filepath, err)
		}
	}

	stats, err := s.Stats(ctx)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	all, err := s.Search(ctx, SearchFilter{})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if stats.Count != int64(len(all)) {
		t.Errorf("count = %d, search returned %d", stats.Count, len(all))
	}

	dups, err := s.Duplicates(ctx)
	if err != nil {
		t.Fatalf("duplicates: %v", err)
	}
	if stats.Duplicates != int64(len(dups)) {
		t.Errorf("stats.duplicates = %d, Duplicates returned %d", stats.Duplicates, len(dups))
	}
}
