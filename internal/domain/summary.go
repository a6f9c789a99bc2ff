package domain

import "time"

// IndexSummary reports the outcome of one directory pass. Per-file failures
// are visible only through these counters; the pass itself always makes
// maximum forward progress.
type IndexSummary struct {
	StartedAt   time.Time `json:"started_at"`
	CompletedAt time.Time `json:"completed_at"`
	Root        string    `json:"root"`

	Files      int `json:"files"`
	Dirs       int `json:"dirs"`
	Added      int `json:"added"`
	Unmodified int `json:"unmodified"`
	Filtered   int `json:"filtered"`
	Failed     int `json:"failed"`

	// Extraction diagnostics aggregated from per-file flags.
	UsedExiftoolFallback  int `json:"used_exiftool_fallback"`
	FailedToReadExif      int `json:"failed_to_read_exif"`
	FailedCreatedFromExif int `json:"failed_created_from_exif"`
	FailedCreated         int `json:"failed_created"`

	// Cancelled is set when the pass stopped at a per-file boundary due to
	// context cancellation. Work completed before the cancellation point is
	// already committed.
	Cancelled bool `json:"cancelled,omitempty"`
}

// Merge folds another summary into this one, for multi-root passes.
func (s *IndexSummary) Merge(other *IndexSummary) {
	s.Files += other.Files
	s.Dirs += other.Dirs
	s.Added += other.Added
	s.Unmodified += other.Unmodified
	s.Filtered += other.Filtered
	s.Failed += other.Failed
	s.UsedExiftoolFallback += other.UsedExiftoolFallback
	s.FailedToReadExif += other.FailedToReadExif
	s.FailedCreatedFromExif += other.FailedCreatedFromExif
	s.FailedCreated += other.FailedCreated
	s.Cancelled = s.Cancelled || other.Cancelled
}

// ImportSummary reports the outcome of a cross-catalog import.
type ImportSummary struct {
	Imported   int  `json:"imported"`
	Duplicates int  `json:"duplicates"`
	Conflicts  int  `json:"conflicts"`
	DryRun     bool `json:"dry_run,omitempty"`
}

// OrganizeSummary reports the outcome of a naming standardization pass.
type OrganizeSummary struct {
	Total          int  `json:"total"`
	Renamed        int  `json:"renamed"`
	Unmodified     int  `json:"unmodified"`
	MissingCreated int  `json:"missing_created"`
	Conflicts      int  `json:"conflicts"`
	Cancelled      bool `json:"cancelled,omitempty"`
}
