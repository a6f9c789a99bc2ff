package extract

import (
	"crypto/sha256"
	"encoding/hex"
	"io"
	"os"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// sniffFormat classifies a file by content sniffing and returns a short
// format label (e.g. "JPEG") plus whether the file is an image.
func sniffFormat(path string) (label string, isImage bool, err error) {
	mt, err := mimetype.DetectFile(path)
	if err != nil {
		return "", false, err
	}
	mime := mt.String()
	return formatLabel(mime), strings.HasPrefix(mime, "image/"), nil
}

// formatLabel derives a display label from a MIME type:
// image/jpeg -> JPEG, image/x-canon-cr2 -> CANON-CR2, image/svg+xml -> SVG.
func formatLabel(mime string) string {
	sub := mime
	if i := strings.IndexByte(sub, '/'); i >= 0 {
		sub = sub[i+1:]
	}
	if i := strings.IndexByte(sub, '+'); i >= 0 {
		sub = sub[:i]
	}
	sub = strings.TrimPrefix(sub, "x-")
	return strings.ToUpper(sub)
}

// hashFile computes the hex-encoded SHA-256 of a file's full byte content,
// streaming so large videos do not land in memory at once.
func hashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
