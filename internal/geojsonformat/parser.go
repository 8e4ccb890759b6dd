// =============================================================================
// Geo Format Converter - GeoJSON Feature Parser
// =============================================================================
//
// Reads a FeatureCollection (or a single Feature) of Point features using
// go-geom's GeoJSON codec. Positions are [lon, lat] or [lon, lat, alt].
//
// PROPERTIES -> ATTRIBUTES:
//   string        verbatim
//   number        shortest decimal form
//   bool          "true" / "false"
//   object/array  compact JSON
//   null          skipped
//
// The record name is taken from the first configured name key that is
// present (default: name, then title).
//
// =============================================================================

package geojsonformat

import (
	"encoding/json"
	"maps"
	"slices"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"

	"github.com/ginjaninja78/geo-format-converter/internal/coords"
	"github.com/ginjaninja78/geo-format-converter/internal/fieldmap"
	"github.com/ginjaninja78/geo-format-converter/internal/types"
)

// Options controls both the parser and the writer.
type Options struct {
	// NameKeys are the property keys tried, in order, for Record.Name.
	// Default: ["name", "title"]
	NameKeys []string

	// NormalizeKeys lowercases property keys on parse.
	// Default: true
	NormalizeKeys bool

	// BBox adds a bounding box to the written FeatureCollection.
	// Default: false
	BBox bool

	// Indent is the indentation unit of written documents. Empty writes
	// compact JSON.
	// Default: "  "
	Indent string

	// FieldMap translates attribute keys to and from property names.
	FieldMap *fieldmap.Map
}

// DefaultOptions returns the default GeoJSON options.
func DefaultOptions() Options {
	return Options{
		NameKeys:      []string{"name", "title"},
		NormalizeKeys: true,
		Indent:        "  ",
		FieldMap:      fieldmap.Default(),
	}
}

// document is the envelope read before handing each feature to go-geom, so
// that a broken feature can be reported with its index.
type document struct {
	Type     string            `json:"type"`
	Features []json.RawMessage `json:"features"`
}

// Parser reads GeoJSON documents.
type Parser struct {
	opts Options
}

// NewParser creates a Parser.
func NewParser(opts Options) *Parser {
	return &Parser{opts: opts}
}

// Format implements converter.Parser.
func (p *Parser) Format() types.Format { return types.FormatGeoJSON }

// Parse decodes every feature in order. The first bad feature rejects the
// whole document.
func (p *Parser) Parse(data []byte) (types.Collection, error) {
	data = types.StripBOM(data)

	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, documentError("malformed document", err)
	}

	var raws []json.RawMessage
	switch doc.Type {
	case "FeatureCollection":
		raws = doc.Features
	case "Feature":
		raws = []json.RawMessage{data}
	default:
		return nil, documentError("", errors.Newf("unsupported GeoJSON type %q, expected FeatureCollection", doc.Type))
	}

	out := make(types.Collection, 0, len(raws))
	for i, raw := range raws {
		var f geojson.Feature
		if err := json.Unmarshal(raw, &f); err != nil {
			return nil, &types.ParseError{Format: types.FormatGeoJSON, Index: i, Field: "feature", Err: err}
		}
		rec, err := p.convert(i, &f)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}

func (p *Parser) convert(index int, f *geojson.Feature) (types.Record, error) {
	rec := types.Record{Attributes: make(map[string]string, len(f.Properties))}

	for _, key := range slices.Sorted(maps.Keys(f.Properties)) {
		value := f.Properties[key]
		if value == nil {
			continue
		}
		text, err := propertyText(value)
		if err != nil {
			return types.Record{}, &types.ParseError{Format: types.FormatGeoJSON, Index: index, Field: "properties." + key, Err: err}
		}
		rec.Attributes[p.attributeKey(key)] = text
	}

	for _, key := range p.opts.NameKeys {
		key = strings.ToLower(key)
		if name, ok := rec.Attributes[key]; ok {
			rec.Name = name
			break
		}
	}
	delete(rec.Attributes, types.NameKey)

	fail := func(field string, err error) error {
		return &types.ParseError{Format: types.FormatGeoJSON, Index: index, Name: rec.Name, Field: field, Err: err}
	}

	if f.Geometry == nil {
		return types.Record{}, fail("geometry", errors.New("missing geometry"))
	}
	pt, ok := f.Geometry.(*geom.Point)
	if !ok {
		return types.Record{}, fail("geometry", errors.Newf("unsupported geometry %T, only Point is supported", f.Geometry))
	}
	if pt.Empty() {
		return types.Record{}, fail("coordinates", errors.New("missing coordinates"))
	}

	lat, lon := coords.ToCanonical(pt.X(), pt.Y())
	if err := coords.CheckLatitude(lat); err != nil {
		return types.Record{}, fail("latitude", err)
	}
	if err := coords.CheckLongitude(lon); err != nil {
		return types.Record{}, fail("longitude", err)
	}
	rec.Latitude, rec.Longitude = lat, lon

	if zi := pt.Layout().ZIndex(); zi != -1 {
		rec.Attributes[types.AltitudeKey] = coords.FormatDegrees(pt.FlatCoords()[zi])
	}

	return rec, nil
}

func (p *Parser) attributeKey(key string) string {
	if p.opts.NormalizeKeys {
		key = strings.ToLower(key)
	}
	return p.opts.FieldMap.Canonical(types.FormatGeoJSON, key)
}

// propertyText renders a decoded JSON value as attribute text.
func propertyText(v interface{}) (string, error) {
	switch t := v.(type) {
	case string:
		return t, nil
	case bool:
		return strconv.FormatBool(t), nil
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), nil
	case json.Number:
		return t.String(), nil
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return "", err
		}
		return string(b), nil
	}
}

func documentError(reason string, err error) error {
	return &types.ParseError{
		Format: types.FormatGeoJSON,
		Index:  types.NoRecord,
		Reason: reason,
		Err:    err,
	}
}
