// =============================================================================
// Geo Format Converter - Coordinate Normalizer
// =============================================================================
//
// Internally every point is held as (lat, lon). KML and GeoJSON store points
// as (lon, lat). The helpers here are the only place the axis order changes:
// each KML/GeoJSON-sourced pair goes through ToCanonical exactly once on the
// way in and each KML/GeoJSON-bound pair goes through ToKML exactly once on
// the way out.
//
// =============================================================================

package coords

import (
	"math"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"
)

const (
	MinLatitude  = -90.0
	MaxLatitude  = 90.0
	MinLongitude = -180.0
	MaxLongitude = 180.0
)

// ToCanonical converts a (lon, lat) pair, as stored in KML and GeoJSON,
// into canonical (lat, lon) order.
func ToCanonical(lon, lat float64) (float64, float64) {
	return lat, lon
}

// ToKML converts a canonical (lat, lon) pair into the (lon, lat) order used
// by KML and GeoJSON.
func ToKML(lat, lon float64) (float64, float64) {
	return lon, lat
}

// CheckLatitude returns an error when lat is not finite or outside [-90, 90].
func CheckLatitude(lat float64) error {
	if math.IsNaN(lat) || math.IsInf(lat, 0) {
		return errors.Newf("latitude %v is not finite", lat)
	}
	if lat < MinLatitude || lat > MaxLatitude {
		return errors.Newf("latitude %v out of range [%v, %v]", lat, MinLatitude, MaxLatitude)
	}
	return nil
}

// CheckLongitude returns an error when lon is not finite or outside [-180, 180].
func CheckLongitude(lon float64) error {
	if math.IsNaN(lon) || math.IsInf(lon, 0) {
		return errors.Newf("longitude %v is not finite", lon)
	}
	if lon < MinLongitude || lon > MaxLongitude {
		return errors.Newf("longitude %v out of range [%v, %v]", lon, MinLongitude, MaxLongitude)
	}
	return nil
}

// ParseDegrees parses a single decimal-degree value. Surrounding whitespace
// is ignored; NaN and infinities are rejected.
func ParseDegrees(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, errors.New("empty value")
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, errors.Newf("%q is not a number", s)
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, errors.Newf("%q is not finite", s)
	}
	return v, nil
}

// Tuple is one comma separated coordinate group, e.g. "lon,lat,alt" in KML
// or "lat, lon" in the XML <geo> element. Values are in source order.
type Tuple struct {
	First  float64
	Second float64
	// Third is the raw text of the optional third component, empty if absent.
	Third string
}

// ParseTuple splits "a,b[,c]" into its components. The first two must be
// numbers. A third component is returned verbatim after validating that it
// is numeric. More than three components is an error.
func ParseTuple(s string) (Tuple, error) {
	parts := strings.Split(strings.TrimSpace(s), ",")
	if len(parts) < 2 {
		return Tuple{}, errors.Newf("expected at least 2 comma separated values, got %q", s)
	}
	if len(parts) > 3 {
		return Tuple{}, errors.Newf("expected at most 3 comma separated values, got %q", s)
	}
	first, err := ParseDegrees(parts[0])
	if err != nil {
		return Tuple{}, err
	}
	second, err := ParseDegrees(parts[1])
	if err != nil {
		return Tuple{}, err
	}
	t := Tuple{First: first, Second: second}
	if len(parts) == 3 {
		third := strings.TrimSpace(parts[2])
		if third != "" {
			if _, err := ParseDegrees(third); err != nil {
				return Tuple{}, errors.Wrap(err, "altitude")
			}
		}
		t.Third = third
	}
	return t, nil
}

// FormatDegrees renders v with the shortest representation that parses back
// to the same float64.
func FormatDegrees(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
