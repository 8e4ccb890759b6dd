// =============================================================================
// Geo Format Converter - Attribute Key Map
// =============================================================================
//
// Attribute keys are held in canonical form inside a Record. Some formats
// spell the same field differently: the legacy XML schema stores the street
// address under <adr>, while GeoJSON and KML use "address". A Map translates
// between the canonical key and the per-format key in both directions.
//
// SOURCES:
//   - Default()         : built-in aliases (address <-> adr for XML)
//   - FromConfig()      : the field_aliases block of config.yaml
//   - LoadTemplate()    : an XLSX workbook, one alias row per canonical key
//
// A Map is read-only once built and safe for concurrent lookups.
//
// =============================================================================

package fieldmap

import (
	"maps"
	"slices"
	"strings"

	"github.com/cockroachdb/errors"

	"github.com/ginjaninja78/geo-format-converter/internal/types"
)

// Map holds per-format aliases for canonical attribute keys.
type Map struct {
	// toFormat[format][canonical] = format-specific key
	toFormat map[types.Format]map[string]string
	// toCanonical[format][format-specific key] = canonical
	toCanonical map[types.Format]map[string]string
}

// New returns an empty Map. Every key translates to itself.
func New() *Map {
	return &Map{
		toFormat:    make(map[types.Format]map[string]string),
		toCanonical: make(map[types.Format]map[string]string),
	}
}

// Default returns the built-in aliases.
func Default() *Map {
	m := New()
	m.Set("address", types.FormatXML, "adr")
	return m
}

// Set registers key as the spelling of canonical in format f. Keys are
// compared case-insensitively. Registering a second alias for the same
// canonical key in the same format replaces the first.
func (m *Map) Set(canonical string, f types.Format, key string) {
	canonical = strings.ToLower(strings.TrimSpace(canonical))
	key = strings.ToLower(strings.TrimSpace(key))
	if canonical == "" || key == "" {
		return
	}
	if m.toFormat[f] == nil {
		m.toFormat[f] = make(map[string]string)
		m.toCanonical[f] = make(map[string]string)
	}
	if old, ok := m.toFormat[f][canonical]; ok {
		delete(m.toCanonical[f], old)
	}
	m.toFormat[f][canonical] = key
	m.toCanonical[f][key] = canonical
}

// Merge copies every alias of other into m, overriding existing entries.
func (m *Map) Merge(other *Map) {
	if other == nil {
		return
	}
	for f, aliases := range other.toFormat {
		for canonical, key := range aliases {
			m.Set(canonical, f, key)
		}
	}
}

// Canonical translates a key read from format f into its canonical key.
// Unknown keys are returned unchanged.
func (m *Map) Canonical(f types.Format, key string) string {
	if m == nil {
		return key
	}
	if c, ok := m.toCanonical[f][strings.ToLower(key)]; ok {
		return c
	}
	return key
}

// ForFormat translates a canonical key into the spelling used by format f.
// Unknown keys are returned unchanged.
func (m *Map) ForFormat(f types.Format, canonical string) string {
	if m == nil {
		return canonical
	}
	if k, ok := m.toFormat[f][strings.ToLower(canonical)]; ok {
		return k
	}
	return canonical
}

// Aliases returns the canonical -> key table for format f, sorted by
// canonical key, for display.
func (m *Map) Aliases(f types.Format) [][2]string {
	var out [][2]string
	for _, canonical := range slices.Sorted(maps.Keys(m.toFormat[f])) {
		out = append(out, [2]string{canonical, m.toFormat[f][canonical]})
	}
	return out
}

// FromConfig builds a Map from the config file layout:
//
//	field_aliases:
//	  address: { xml: adr }
func FromConfig(aliases map[string]map[string]string) (*Map, error) {
	m := New()
	for canonical, perFormat := range aliases {
		for formatName, key := range perFormat {
			f, err := types.ParseFormat(formatName)
			if err != nil {
				return nil, errors.Wrapf(err, "field alias %q", canonical)
			}
			m.Set(canonical, f, key)
		}
	}
	return m, nil
}
