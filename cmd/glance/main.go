// Package main provides the glance command line interface: a local media
// cataloging engine over a single SQLite catalog file.
package main

import (
	"context"
	"encoding/json/jsontext"
	"encoding/json/v2"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/davidMcneil/glance/internal/catalog"
	"github.com/davidMcneil/glance/internal/config"
	"github.com/davidMcneil/glance/internal/exiftool"
	"github.com/davidMcneil/glance/internal/extract"
	"github.com/davidMcneil/glance/internal/geocode"
	"github.com/davidMcneil/glance/internal/importer"
	"github.com/davidMcneil/glance/internal/indexer"
	"github.com/davidMcneil/glance/internal/logger"
	"github.com/davidMcneil/glance/internal/organizer"
	"github.com/davidMcneil/glance/internal/watcher"
)

const usage = `glance - local media cataloging engine

Usage: glance [flags] <command> [args]

Commands:
  index <dir>...            index directory trees into the catalog
  deindex <path>...         remove specific paths from the catalog
  deindex-missing           remove records whose files are gone
  import <db> <media-dir>   merge another catalog into this one by hash
  organize <root> [dir]...  move files into capture-time folders
  export <root> <label>     symlink labeled records under <root>/glance-exports
  stats                     print catalog statistics
  duplicates                print records sharing a content hash
  search                    print records matching filters
  label <path> <label>      attach a label to a record
  unlabel <path> <label>    detach a label from a record
  labels [path]             list labels, optionally for one path
  watch <dir>...            keep the catalog in sync continuously

Run 'glance -h' for global flags.
`

func main() {
	cfg, args, err := config.Load(os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "glance: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(logger.Config{
		Environment: cfg.App.Environment,
		Level:       logger.ParseLevel(cfg.Logger.Level),
	})

	if len(args) == 0 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log, args[0], args[1:]); err != nil {
		log.Error("command failed", "command", args[0], "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, log *logger.Logger, command string, args []string) error {
	store, err := catalog.Open(cfg.Catalog.Path, log.Logger)
	if err != nil {
		return err
	}
	defer store.Close()

	extractOpts := extract.Options{
		Hash:                       cfg.Extract.Hash,
		FilterByMedia:              cfg.Extract.FilterByMedia,
		MetadataFallbackForCreated: cfg.Extract.MetadataFallbackForCreated,
		CalculateNearestCity:       cfg.Extract.CalculateNearestCity,
		UseExiftool:                cfg.Extract.UseExiftool,
	}
	tool := exiftool.New(cfg.Extract.ExiftoolPath, log.Logger)
	extractor := extract.New(geocode.Noop{}, tool, log.Logger)
	ix := indexer.New(store, extractor, log.Logger)

	switch command {
	case "index":
		if len(args) == 0 {
			return fmt.Errorf("index: at least one directory required")
		}
		summary, err := ix.AddDirectories(ctx, args, extractOpts)
		if err != nil {
			return err
		}
		return printJSON(summary)

	case "deindex":
		if len(args) == 0 {
			return fmt.Errorf("deindex: at least one path required")
		}
		removed, err := ix.DeindexPaths(ctx, args)
		if err != nil {
			return err
		}
		return printJSON(map[string]int{"removed": removed})

	case "deindex-missing":
		removed, err := ix.DeindexMissing(ctx)
		if err != nil {
			return err
		}
		return printJSON(map[string]int{"removed": removed})

	case "import":
		if len(args) != 2 {
			return fmt.Errorf("import: usage: import <source-db> <media-dir>")
		}
		summary, err := importer.New(store, log.Logger).Import(ctx, args[0], args[1], cfg.Import.DryRun)
		if err != nil {
			return err
		}
		return printJSON(summary)

	case "organize":
		if len(args) == 0 {
			return fmt.Errorf("organize: usage: organize <root> [dir]...")
		}
		org := organizer.New(store, log.Logger)
		summary, err := org.Standardize(ctx, args[0], organizer.Options{
			Daily: cfg.Organize.Daily,
			Dirs:  args[1:],
		})
		if err != nil {
			return err
		}
		return printJSON(summary)

	case "export":
		if len(args) != 2 {
			return fmt.Errorf("export: usage: export <root> <label>")
		}
		links, err := organizer.New(store, log.Logger).ExportLabeled(ctx, args[0], args[1])
		if err != nil {
			return err
		}
		return printJSON(map[string]int{"links": links})

	case "stats":
		stats, err := store.Stats(ctx)
		if err != nil {
			return err
		}
		return printJSON(stats)

	case "duplicates":
		dups, err := store.Duplicates(ctx)
		if err != nil {
			return err
		}
		return printJSON(dups)

	case "search":
		filter, err := parseSearchArgs(args)
		if err != nil {
			return err
		}
		records, err := store.Search(ctx, filter)
		if err != nil {
			return err
		}
		return printJSON(records)

	case "label":
		if len(args) != 2 {
			return fmt.Errorf("label: usage: label <path> <label>")
		}
		path, err := filepath.Abs(args[0])
		if err != nil {
			return err
		}
		return store.AddLabel(ctx, path, args[1])

	case "unlabel":
		if len(args) != 2 {
			return fmt.Errorf("unlabel: usage: unlabel <path> <label>")
		}
		path, err := filepath.Abs(args[0])
		if err != nil {
			return err
		}
		return store.DeleteLabel(ctx, path, args[1])

	case "labels":
		var labels []string
		var err error
		if len(args) > 0 {
			path, absErr := filepath.Abs(args[0])
			if absErr != nil {
				return absErr
			}
			labels, err = store.GetLabels(ctx, path)
		} else {
			labels, err = store.GetAllLabels(ctx)
		}
		if err != nil {
			return err
		}
		return printJSON(labels)

	case "watch":
		if len(args) == 0 {
			return fmt.Errorf("watch: at least one directory required")
		}
		w, err := watcher.New(ix, extractOpts, watcher.Options{SettleDelay: cfg.Watch.SettleDelay}, log.Logger)
		if err != nil {
			return err
		}
		for _, root := range args {
			if err := w.Watch(root); err != nil {
				return err
			}
		}
		// An initial pass catches changes made while not watching.
		if _, err := ix.AddDirectories(ctx, args, extractOpts); err != nil {
			return err
		}
		log.Info("watching", "roots", args)
		return w.Run(ctx)

	default:
		fmt.Fprint(os.Stderr, usage)
		return fmt.Errorf("unknown command %q", command)
	}
}

// parseSearchArgs parses search-specific flags.
func parseSearchArgs(args []string) (catalog.SearchFilter, error) {
	fs := flag.NewFlagSet("search", flag.ContinueOnError)
	from := fs.String("from", "", "Earliest capture time (RFC 3339)")
	to := fs.String("to", "", "Latest capture time (RFC 3339)")
	label := fs.String("label", "", "Filter by label")
	device := fs.String("device", "", "Filter by capture device")
	format := fs.String("format", "", "Filter by format")

	var filter catalog.SearchFilter
	if err := fs.Parse(args); err != nil {
		return filter, err
	}

	if *from != "" {
		t, err := time.Parse(time.RFC3339, *from)
		if err != nil {
			return filter, fmt.Errorf("invalid -from: %w", err)
		}
		filter.CreatedFrom = &t
	}
	if *to != "" {
		t, err := time.Parse(time.RFC3339, *to)
		if err != nil {
			return filter, fmt.Errorf("invalid -to: %w", err)
		}
		filter.CreatedTo = &t
	}
	filter.Label = *label
	filter.Device = *device
	filter.Format = *format
	return filter, nil
}

func printJSON(v any) error {
	if err := json.MarshalWrite(os.Stdout, v, jsontext.WithIndent("  ")); err != nil {
		return err
	}
	fmt.Println()
	return nil
}
