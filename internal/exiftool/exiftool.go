// Package exiftool invokes the external exiftool program as a best-effort
// capture-time fallback. The program is treated as an opaque subprocess:
// it is handed a file path and expected to emit a JSON array of metadata
// objects. Failures here are ordinary extraction failures, never fatal.
package exiftool

import (
	"bytes"
	"context"
	"encoding/json/v2"
	"fmt"
	"log/slog"
	"os/exec"
	"time"

	"github.com/davidMcneil/glance/internal/errors"
)

// Layouts recognized in exiftool output. The native exiftool layout comes
// first; timezone-naive values are treated as UTC.
var timeLayouts = []string{
	"2006:01:02 15:04:05-07:00",
	"2006:01:02 15:04:05",
	time.RFC3339,
	"2006-01-02 15:04:05",
}

// Client runs exiftool. The zero value is not usable; use New.
type Client struct {
	binary string
	logger *slog.Logger
}

// New creates a client that invokes the given binary ("exiftool" when
// empty).
func New(binary string, logger *slog.Logger) *Client {
	if binary == "" {
		binary = "exiftool"
	}
	return &Client{binary: binary, logger: logger}
}

// record mirrors the subset of exiftool's JSON output the engine uses.
// Both recognized capture-time field names are decoded; DateTimeOriginal
// wins when both are present.
type record struct {
	DateTimeOriginal string `json:"DateTimeOriginal"`
	CreateDate       string `json:"CreateDate"`
}

// CaptureTime extracts a best-effort capture timestamp for path.
func (c *Client) CaptureTime(ctx context.Context, path string) (time.Time, error) {
	cmd := exec.CommandContext(ctx, c.binary, "-json", path)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return time.Time{}, errors.Extractionf("exiftool failed for %s", path).WithCause(err)
	}

	var records []record
	if err := json.Unmarshal(stdout.Bytes(), &records); err != nil {
		return time.Time{}, errors.Extraction("exiftool returned unparseable output").WithCause(err)
	}
	if len(records) == 0 {
		return time.Time{}, errors.Extractionf("exiftool returned no metadata for %s", path)
	}
	if len(records) > 1 {
		c.logger.Warn("multiple exiftool records returned, ignoring all but first", "path", path, "records", len(records))
	}

	raw := records[0].DateTimeOriginal
	if raw == "" {
		raw = records[0].CreateDate
	}
	if raw == "" {
		return time.Time{}, errors.Extractionf("exiftool output has no capture time for %s", path)
	}

	t, err := ParseTime(raw)
	if err != nil {
		return time.Time{}, err
	}
	return t, nil
}

// ParseTime parses a capture time in any recognized layout. Values without
// a zone are treated as UTC.
func ParseTime(raw string) (time.Time, error) {
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, errors.Extraction(fmt.Sprintf("unrecognized capture time %q", raw))
}
