package extract

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/davidMcneil/glance/internal/domain"
	"github.com/davidMcneil/glance/internal/errors"
	"github.com/davidMcneil/glance/internal/geocode"
)

var jpegMagic = []byte{0xFF, 0xD8, 0xFF, 0xE0, 0x00, 0x10, 'J', 'F', 'I', 'F', 0x00}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func writeFile(t *testing.T, dir, name string, content []byte) (string, os.FileInfo) {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat %s: %v", name, err)
	}
	return path, info
}

func TestFormatLabel(t *testing.T) {
	cases := map[string]string{
		"image/jpeg":        "JPEG",
		"image/png":         "PNG",
		"image/svg+xml":     "SVG",
		"image/x-canon-cr2": "CANON-CR2",
		"video/mp4":         "MP4",
		"text/plain":        "PLAIN",
	}
	for mime, want := range cases {
		if got := formatLabel(mime); got != want {
			t.Errorf("formatLabel(%q) = %q, want %q", mime, got, want)
		}
	}
}

func TestHashFile(t *testing.T) {
	dir := t.TempDir()
	content := []byte("hello glance")
	path, _ := writeFile(t, dir, "a.txt", content)

	sum := sha256.Sum256(content)
	want := hex.EncodeToString(sum[:])

	got, err := hashFile(path)
	if err != nil {
		t.Fatalf("hashFile: %v", err)
	}
	if got != want {
		t.Errorf("hashFile = %q, want %q", got, want)
	}
}

func TestSniffFormat(t *testing.T) {
	dir := t.TempDir()

	jpegPath, _ := writeFile(t, dir, "photo.jpg", jpegMagic)
	label, isImage, err := sniffFormat(jpegPath)
	if err != nil {
		t.Fatalf("sniffFormat jpeg: %v", err)
	}
	if label != "JPEG" || !isImage {
		t.Errorf("sniffFormat jpeg = (%q, %v), want (JPEG, true)", label, isImage)
	}

	textPath, _ := writeFile(t, dir, "notes.txt", []byte("plain text, nothing more"))
	_, isImage, err = sniffFormat(textPath)
	if err != nil {
		t.Fatalf("sniffFormat text: %v", err)
	}
	if isImage {
		t.Error("sniffFormat classified plain text as an image")
	}
}

func TestExtractFileUnmodified(t *testing.T) {
	dir := t.TempDir()
	path, info := writeFile(t, dir, "photo.jpg", jpegMagic)

	e := New(geocode.Noop{}, nil, discardLogger())
	existing := &domain.Media{
		Filepath: path,
		Modified: info.ModTime().UTC(),
		Hash:     "abc",
	}

	res, err := e.ExtractFile(context.Background(), path, info, existing, Options{Hash: true})
	if err != nil {
		t.Fatalf("ExtractFile: %v", err)
	}
	if res.Outcome != OutcomeUnmodified {
		t.Errorf("outcome = %v, want OutcomeUnmodified", res.Outcome)
	}
}

func TestExtractFileHashMissing(t *testing.T) {
	dir := t.TempDir()
	path, info := writeFile(t, dir, "photo.jpg", jpegMagic)

	e := New(geocode.Noop{}, nil, discardLogger())
	existing := &domain.Media{
		Filepath: path,
		Modified: info.ModTime().UTC(),
	}

	_, err := e.ExtractFile(context.Background(), path, info, existing, Options{Hash: true})
	if !errors.Is(err, ErrHashMissing) {
		t.Fatalf("err = %v, want ErrHashMissing", err)
	}
}

func TestExtractFileFiltersNonMedia(t *testing.T) {
	dir := t.TempDir()
	path, info := writeFile(t, dir, "notes.txt", []byte("plain text, nothing more"))

	e := New(geocode.Noop{}, nil, discardLogger())
	res, err := e.ExtractFile(context.Background(), path, info, nil, Options{FilterByMedia: true})
	if err != nil {
		t.Fatalf("ExtractFile: %v", err)
	}
	if res.Outcome != OutcomeSkipped {
		t.Errorf("outcome = %v, want OutcomeSkipped", res.Outcome)
	}
}

func TestExtractFileModifiedFallback(t *testing.T) {
	dir := t.TempDir()
	path, info := writeFile(t, dir, "photo.jpg", jpegMagic)

	e := New(geocode.Noop{}, nil, discardLogger())
	res, err := e.ExtractFile(context.Background(), path, info, nil, Options{
		Hash:                       true,
		MetadataFallbackForCreated: true,
	})
	if err != nil {
		t.Fatalf("ExtractFile: %v", err)
	}
	if res.Outcome != OutcomeNew {
		t.Fatalf("outcome = %v, want OutcomeNew", res.Outcome)
	}
	// The magic-byte file carries no embedded metadata, so the capture
	// time must fall back to the modification time.
	if !res.Flags.FailedToReadExif || !res.Flags.FailedCreatedFromExif {
		t.Errorf("flags = %+v, want FailedToReadExif and FailedCreatedFromExif", res.Flags)
	}
	if res.Flags.FailedCreated {
		t.Error("FailedCreated set despite modification-time fallback")
	}
	if res.Media.Created == nil || !res.Media.Created.Equal(info.ModTime().UTC()) {
		t.Errorf("created = %v, want modification time %v", res.Media.Created, info.ModTime().UTC())
	}
	if res.Media.Format != "JPEG" {
		t.Errorf("format = %q, want JPEG", res.Media.Format)
	}
	if res.Media.Hash == "" {
		t.Error("hash empty despite hashing enabled")
	}
}

func TestExtractFileNoFallbackFlagsFailure(t *testing.T) {
	dir := t.TempDir()
	path, info := writeFile(t, dir, "photo.jpg", jpegMagic)

	e := New(geocode.Noop{}, nil, discardLogger())
	res, err := e.ExtractFile(context.Background(), path, info, nil, Options{})
	if err != nil {
		t.Fatalf("ExtractFile: %v", err)
	}
	if !res.Flags.FailedCreated {
		t.Error("FailedCreated not set with all fallbacks disabled")
	}
	if res.Media.Created != nil {
		t.Errorf("created = %v, want nil", res.Media.Created)
	}
}

func TestParseExifTime(t *testing.T) {
	got := parseExifTime("2021:06:15 10:30:00")
	if got == nil {
		t.Fatal("parseExifTime returned nil for valid input")
	}
	want := time.Date(2021, 6, 15, 10, 30, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Errorf("parseExifTime = %v, want %v", got, want)
	}
	if parseExifTime("not a time") != nil {
		t.Error("parseExifTime accepted garbage")
	}
}

func TestNormalizeDevice(t *testing.T) {
	if got := normalizeDevice("  Canon  EOS   R5 "); got != "Canon EOS R5" {
		t.Errorf("normalizeDevice = %q", got)
	}
}
