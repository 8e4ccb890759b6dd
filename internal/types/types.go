// =============================================================================
// Geo Format Converter - Shared Types
// =============================================================================
//
// This package contains the location data model shared by every parser,
// serializer and the conversion engine. Keeping it here avoids import cycles
// between the format packages and the converter.
//
// DATA MODEL:
//   Record     - one named point with canonical (lat, lon) and attributes
//   Collection - the ordered records of one input document
//   Format     - the closed set of supported formats (XML, KML, GeoJSON)
//
// =============================================================================

package types

import (
	"bytes"
	"maps"
	"path/filepath"
	"strings"
)

// =============================================================================
// ATTRIBUTE KEYS
// =============================================================================

const (
	// AltitudeKey holds the third coordinate of a KML or GeoJSON point.
	// The value is kept exactly as it appeared in the source document.
	AltitudeKey = "altitude"

	// DescriptionKey maps to the KML <description> element.
	DescriptionKey = "description"

	// NameKey is the attribute/property name used for Record.Name in formats
	// that carry the name as an ordinary field (GeoJSON properties).
	NameKey = "name"
)

// =============================================================================
// LOCATION RECORD
// =============================================================================

// Record is a single named geographic point.
//
// Latitude and Longitude are always in canonical (lat, lon) order, no matter
// which axis order the source format used. A parsed Record always carries
// finite coordinates inside [-90, 90] and [-180, 180].
type Record struct {
	// Name is the human-readable label. May be empty, never missing.
	Name string

	// Latitude in decimal degrees.
	Latitude float64

	// Longitude in decimal degrees.
	Longitude float64

	// Attributes holds every non-coordinate field: description, altitude
	// and any custom tags or properties. Keys are unique.
	Attributes map[string]string
}

// Attr returns the attribute stored under key and whether it was present.
func (r Record) Attr(key string) (string, bool) {
	v, ok := r.Attributes[key]
	return v, ok
}

// Clone returns a deep copy of the record.
func (r Record) Clone() Record {
	out := r
	if r.Attributes != nil {
		out.Attributes = maps.Clone(r.Attributes)
	}
	return out
}

// Collection is the ordered list of records parsed from one document.
// Order is preserved across every parse and serialize path.
type Collection []Record

// Clone returns a deep copy of the collection.
func (c Collection) Clone() Collection {
	if c == nil {
		return nil
	}
	out := make(Collection, len(c))
	for i, r := range c {
		out[i] = r.Clone()
	}
	return out
}

// =============================================================================
// FORMAT TAGS
// =============================================================================

// Format identifies one of the supported document formats.
type Format int

const (
	// FormatUnknown is the zero value and never a valid conversion target.
	FormatUnknown Format = iota
	FormatXML
	FormatKML
	FormatGeoJSON
)

// Formats lists every supported format in a stable order.
var Formats = []Format{FormatXML, FormatKML, FormatGeoJSON}

// String returns the lowercase name of the format.
func (f Format) String() string {
	switch f {
	case FormatXML:
		return "xml"
	case FormatKML:
		return "kml"
	case FormatGeoJSON:
		return "geojson"
	default:
		return "unknown"
	}
}

// Extension returns the file extension written for this format, without dot.
func (f Format) Extension() string {
	switch f {
	case FormatXML:
		return "xml"
	case FormatKML:
		return "kml"
	case FormatGeoJSON:
		return "geojson"
	default:
		return ""
	}
}

// Valid reports whether f is one of the supported formats.
func (f Format) Valid() bool {
	return f == FormatXML || f == FormatKML || f == FormatGeoJSON
}

// ParseFormat resolves a format name. "json" is accepted as an alias for
// GeoJSON. Matching is case-insensitive.
func ParseFormat(name string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "xml":
		return FormatXML, nil
	case "kml":
		return FormatKML, nil
	case "geojson", "json":
		return FormatGeoJSON, nil
	default:
		return FormatUnknown, &UnsupportedFormatError{Name: name}
	}
}

// FormatFromExtension maps a file path to its format by extension.
// Recognized: .xml, .kml, .json, .geojson.
func FormatFromExtension(path string) (Format, error) {
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".xml":
		return FormatXML, nil
	case ".kml":
		return FormatKML, nil
	case ".json", ".geojson":
		return FormatGeoJSON, nil
	default:
		return FormatUnknown, &UnsupportedFormatError{Name: ext}
	}
}

// utf8BOM is stripped from the start of every input document.
var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// StripBOM removes a leading UTF-8 byte order mark, if present.
func StripBOM(data []byte) []byte {
	return bytes.TrimPrefix(data, utf8BOM)
}
