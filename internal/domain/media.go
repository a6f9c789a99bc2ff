// Package domain contains the core types shared across the glance engine.
package domain

import "time"

// Media is one indexed file in the catalog. Filepath is the unique key and
// is always absolute and canonical. Created, Location, Device, and Hash are
// best-effort and may be empty when no extraction strategy produced them.
type Media struct {
	Filepath string     `json:"filepath"`
	Size     int64      `json:"size"`
	Format   string     `json:"format"`
	Created  *time.Time `json:"created,omitempty"`
	Modified time.Time  `json:"modified"`
	Location string     `json:"location,omitempty"`
	Device   string     `json:"device,omitempty"`
	Hash     string     `json:"hash,omitempty"`
}

// Label is a tag attached to a catalog path. A (filepath, label) pair is
// unique.
type Label struct {
	Filepath string `json:"filepath"`
	Label    string `json:"label"`
}

// Stats is a derived snapshot of the catalog. Grouping keys that are absent
// on a record appear under the "Unknown" bucket so that no file is hidden
// from the totals.
type Stats struct {
	Count         int64            `json:"count"`
	CountByFormat map[string]int64 `json:"count_by_format"`
	CountByDevice map[string]int64 `json:"count_by_device"`
	CountByYear   map[string]int64 `json:"count_by_year"`
	Duplicates    int64            `json:"duplicates"`
}
