// Package geocode defines the reverse-geocoding collaborator used to turn
// GPS coordinates into a place name. The engine supplies signed decimal
// degrees and accepts a place name or none; how the lookup happens is the
// caller's concern.
package geocode

// Geocoder resolves a coordinate pair to a human-readable place name.
type Geocoder interface {
	// ReverseGeocode returns a place name for the given latitude and
	// longitude in signed decimal degrees, or ok=false when no name could
	// be resolved.
	ReverseGeocode(lat, lon float64) (name string, ok bool)
}

// Func adapts a plain function to the Geocoder interface.
type Func func(lat, lon float64) (string, bool)

// ReverseGeocode implements Geocoder.
func (f Func) ReverseGeocode(lat, lon float64) (string, bool) {
	return f(lat, lon)
}

// Noop is a Geocoder that never resolves a place name.
type Noop struct{}

// ReverseGeocode implements Geocoder.
func (Noop) ReverseGeocode(_, _ float64) (string, bool) {
	return "", false
}
