// Command dbinspect prints a human-readable overview of a glance catalog
// file: totals, per-dimension counts, duplicate groups, and a handful of
// sample records. Read-only; useful when debugging a catalog by hand.
package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"

	"github.com/davidMcneil/glance/internal/catalog"
)

func main() {
	dbPath := os.Getenv("GLANCE_DB")
	if dbPath == "" {
		dbPath = "glance.db"
	}
	if len(os.Args) > 1 {
		dbPath = os.Args[1]
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store, err := catalog.Open(dbPath, logger)
	if err != nil {
		log.Fatalf("Failed to open catalog: %v", err)
	}
	defer store.Close()

	ctx := context.Background()

	fmt.Println("=== Catalog Inspection ===")
	fmt.Println()

	stats, err := store.Stats(ctx)
	if err != nil {
		log.Fatalf("Failed to compute stats: %v", err)
	}

	fmt.Printf("Total records: %d\n", stats.Count)
	fmt.Println()

	fmt.Println("By format:")
	for format, count := range stats.CountByFormat {
		fmt.Printf("  %-16s %d\n", format, count)
	}
	fmt.Println()

	fmt.Println("By device:")
	for device, count := range stats.CountByDevice {
		fmt.Printf("  %-24s %d\n", device, count)
	}
	fmt.Println()

	fmt.Println("By year:")
	for year, count := range stats.CountByYear {
		fmt.Printf("  %-8s %d\n", year, count)
	}
	fmt.Println()

	dups, err := store.Duplicates(ctx)
	if err != nil {
		log.Fatalf("Failed to list duplicates: %v", err)
	}
	fmt.Printf("Records in duplicate groups: %d\n", len(dups))
	for i, m := range dups {
		if i >= 10 {
			fmt.Printf("  ... and %d more\n", len(dups)-10)
			break
		}
		fmt.Printf("  %s  %s\n", m.Hash[:min(12, len(m.Hash))], m.Filepath)
	}
	fmt.Println()

	records, err := store.Search(ctx, catalog.SearchFilter{})
	if err != nil {
		log.Fatalf("Failed to search: %v", err)
	}
	fmt.Println("Sample records:")
	for i, m := range records {
		if i >= 5 {
			fmt.Printf("  ... and %d more\n", len(records)-5)
			break
		}
		created := "unknown"
		if m.Created != nil {
			created = m.Created.Format("2006-01-02")
		}
		fmt.Printf("  %s\n    format=%s size=%d created=%s device=%q\n",
			m.Filepath, m.Format, m.Size, created, m.Device)
	}

	labels, err := store.GetAllLabels(ctx)
	if err != nil {
		log.Fatalf("Failed to list labels: %v", err)
	}
	fmt.Println()
	fmt.Printf("Labels: %v\n", labels)
}
