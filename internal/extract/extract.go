// Package extract produces candidate catalog records from filesystem
// entries: size, sniffed format, capture timestamp resolved through a
// layered fallback chain, device model, optional location, and optional
// content hash.
package extract

import (
	"context"
	"io/fs"
	"log/slog"

	"github.com/davidMcneil/glance/internal/domain"
	"github.com/davidMcneil/glance/internal/errors"
	"github.com/davidMcneil/glance/internal/exiftool"
	"github.com/davidMcneil/glance/internal/geocode"
)

// ErrHashMissing is returned when hashing is required but an existing,
// unmodified record has no hash. The hash cannot silently be skipped; the
// caller counts this as a per-file failure.
var ErrHashMissing = errors.Extraction("hashing enabled but hash missing from media row")

// Options configures extraction for one indexing run.
type Options struct {
	// Hash enables content hashing, the identity used for deduplication.
	Hash bool
	// FilterByMedia drops files whose sniffed kind is not an image.
	FilterByMedia bool
	// MetadataFallbackForCreated allows the file's modification time as the
	// capture-time fallback of last resort.
	MetadataFallbackForCreated bool
	// CalculateNearestCity resolves embedded GPS coordinates to a place
	// name through the geocoding collaborator.
	CalculateNearestCity bool
	// UseExiftool allows the external exiftool subprocess as a capture-time
	// fallback when embedded metadata cannot be read.
	UseExiftool bool
}

// Outcome classifies the result of extracting one file.
type Outcome int

const (
	// OutcomeNew means a candidate record was produced.
	OutcomeNew Outcome = iota
	// OutcomeUnmodified means the existing record is up to date.
	OutcomeUnmodified
	// OutcomeSkipped means the file was filtered out by kind.
	OutcomeSkipped
)

// Flags are per-file diagnostics the caller aggregates into pass counters.
type Flags struct {
	UsedExiftoolFallback  bool
	FailedToReadExif      bool
	FailedCreatedFromExif bool
	FailedCreated         bool
}

// Result is the output of extracting one file.
type Result struct {
	Outcome Outcome
	Media   *domain.Media
	Flags   Flags
}

// Extractor turns filesystem entries into candidate media records.
type Extractor struct {
	geocoder geocode.Geocoder
	exiftool *exiftool.Client
	logger   *slog.Logger
}

// New creates an extractor. The exiftool client may be nil when the
// external fallback is never enabled.
func New(geocoder geocode.Geocoder, tool *exiftool.Client, logger *slog.Logger) *Extractor {
	if geocoder == nil {
		geocoder = geocode.Noop{}
	}
	return &Extractor{
		geocoder: geocoder,
		exiftool: tool,
		logger:   logger,
	}
}

// ExtractFile produces a candidate record for path. existing is the current
// catalog record for the same path, or nil. Errors are per-file: the caller
// logs and counts them but never aborts the pass.
func (e *Extractor) ExtractFile(ctx context.Context, path string, info fs.FileInfo, existing *domain.Media, opts Options) (*Result, error) {
	modified := info.ModTime().UTC()

	// Change detection: an unchanged modification time means the record is
	// up to date and extraction is skipped entirely.
	if existing != nil && existing.Modified.Equal(modified) {
		if opts.Hash && existing.Hash == "" {
			return nil, ErrHashMissing
		}
		return &Result{Outcome: OutcomeUnmodified}, nil
	}

	format, isImage, err := sniffFormat(path)
	if err != nil {
		return nil, errors.Extractionf("sniff format of %s", path).WithCause(err)
	}
	if opts.FilterByMedia && !isImage {
		return &Result{Outcome: OutcomeSkipped}, nil
	}

	var hash string
	if opts.Hash {
		hash, err = hashFile(path)
		if err != nil {
			return nil, errors.Extractionf("hash %s", path).WithCause(err)
		}
	}

	media := &domain.Media{
		Filepath: path,
		Size:     info.Size(),
		Format:   format,
		Modified: modified,
		Hash:     hash,
	}
	var flags Flags

	fields, err := readExif(path)
	switch {
	case err == nil:
		if fields.Created != nil {
			media.Created = fields.Created
		}
		media.Device = fields.Device
		if opts.CalculateNearestCity && fields.HasLocation {
			if name, ok := e.geocoder.ReverseGeocode(fields.Latitude, fields.Longitude); ok {
				media.Location = name
			}
		}
	case opts.UseExiftool && e.exiftool != nil:
		flags.UsedExiftoolFallback = true
		created, toolErr := e.exiftool.CaptureTime(ctx, path)
		if toolErr != nil {
			e.logger.Error("failed reading exif", "path", path, "exif_error", err, "exiftool_error", toolErr)
			flags.FailedToReadExif = true
		} else {
			media.Created = &created
		}
	default:
		e.logger.Error("failed reading exif", "path", path, "error", err)
		flags.FailedToReadExif = true
	}

	// Capture-time fallback chain of last resort.
	if media.Created == nil {
		flags.FailedCreatedFromExif = true
		if opts.MetadataFallbackForCreated {
			created := modified
			media.Created = &created
		}
	}
	if media.Created == nil {
		flags.FailedCreated = true
		e.logger.Error("failed to determine created", "path", path)
	}

	return &Result{Outcome: OutcomeNew, Media: media, Flags: flags}, nil
}
