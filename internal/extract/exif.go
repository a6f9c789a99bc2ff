package extract

import (
	"os"
	"strings"
	"time"

	"github.com/rwcarlsen/goexif/exif"
	"github.com/rwcarlsen/goexif/tiff"

	"github.com/davidMcneil/glance/internal/exiftool"
)

// exifFields is the subset of embedded metadata the extractor uses.
type exifFields struct {
	Created     *time.Time
	Device      string
	Latitude    float64
	Longitude   float64
	HasLocation bool
}

// readExif decodes embedded metadata from the file. The capture timestamp
// prefers the original tag over the generic one; the device model is
// whitespace-normalized; GPS coordinates are converted from
// degrees/minutes/seconds plus hemisphere letters to signed decimal
// degrees.
func readExif(path string) (*exifFields, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	x, err := exif.Decode(f)
	if err != nil {
		return nil, err
	}

	fields := &exifFields{}

	if raw, ok := tagString(x, exif.DateTimeOriginal); ok {
		fields.Created = parseExifTime(raw)
	}
	if fields.Created == nil {
		if raw, ok := tagString(x, exif.DateTime); ok {
			fields.Created = parseExifTime(raw)
		}
	}

	if model, ok := tagString(x, exif.Model); ok {
		fields.Device = normalizeDevice(model)
	}

	if lat, lon, ok := gpsCoordinates(x); ok {
		fields.Latitude = lat
		fields.Longitude = lon
		fields.HasLocation = true
	}

	return fields, nil
}

func tagString(x *exif.Exif, name exif.FieldName) (string, bool) {
	tag, err := x.Get(name)
	if err != nil {
		return "", false
	}
	s, err := tag.StringVal()
	if err != nil || s == "" {
		return "", false
	}
	return s, true
}

// parseExifTime parses a capture time with timezone-aware layouts; naive
// values are treated as UTC. Unparseable values yield nil rather than an
// error because a bad timestamp must not fail the file.
func parseExifTime(raw string) *time.Time {
	t, err := exiftool.ParseTime(strings.TrimSpace(raw))
	if err != nil {
		return nil
	}
	return &t
}

// normalizeDevice trims and joins multi-part text fields with single
// spaces.
func normalizeDevice(model string) string {
	return strings.Join(strings.Fields(model), " ")
}

// gpsCoordinates extracts signed decimal degrees from the GPS tags.
func gpsCoordinates(x *exif.Exif) (lat, lon float64, ok bool) {
	latTag, err := x.Get(exif.GPSLatitude)
	if err != nil {
		return 0, 0, false
	}
	latRef, refOK := tagString(x, exif.GPSLatitudeRef)
	if !refOK {
		return 0, 0, false
	}
	lonTag, err := x.Get(exif.GPSLongitude)
	if err != nil {
		return 0, 0, false
	}
	lonRef, refOK := tagString(x, exif.GPSLongitudeRef)
	if !refOK {
		return 0, 0, false
	}

	lat, ok = dmsToDecimal(latTag, latRef)
	if !ok {
		return 0, 0, false
	}
	lon, ok = dmsToDecimal(lonTag, lonRef)
	if !ok {
		return 0, 0, false
	}
	return lat, lon, true
}

// dmsToDecimal converts a degrees/minutes/seconds rational triple and a
// hemisphere letter to signed decimal degrees.
func dmsToDecimal(tag *tiff.Tag, ref string) (float64, bool) {
	read := func(i int) (float64, bool) {
		num, den, err := tag.Rat2(i)
		if err != nil || den == 0 {
			return 0, false
		}
		return float64(num) / float64(den), true
	}

	degrees, ok := read(0)
	if !ok {
		return 0, false
	}
	minutes, ok := read(1)
	if !ok {
		return 0, false
	}
	seconds, ok := read(2)
	if !ok {
		return 0, false
	}

	decimal := degrees + minutes/60 + seconds/3600
	switch strings.TrimSpace(ref) {
	case "N", "E":
		return decimal, true
	case "S", "W":
		return -decimal, true
	default:
		return 0, false
	}
}
