// =============================================================================
// Geo Format Converter - XML Location Parser
// =============================================================================
//
// Reads the legacy marker schema:
//
//   <markers>
//     <marker>
//       <name>Central Park</name>
//       <geo>40.785091, -73.968285</geo>
//       <adr>New York, NY</adr>
//       <note>Bring a map</note>
//     </marker>
//   </markers>
//
// Any root element is accepted. Its children named marker or item (or the
// configured point element) are points; everything else is ignored.
//
// COORDINATES (first match wins):
//   1. <geo>lat, lon</geo>
//   2. <lat>/<latitude> and <lon>/<lng>/<longitude> child elements
//   3. the same names as attributes of the point element
//
// Every other child element and attribute becomes a record attribute. A child
// with elements of its own is kept as its inner XML text.
//
// =============================================================================

package xmlformat

import (
	"bytes"
	"encoding/xml"
	"strings"

	"github.com/cockroachdb/errors"
	"golang.org/x/net/html/charset"

	"github.com/ginjaninja78/geo-format-converter/internal/coords"
	"github.com/ginjaninja78/geo-format-converter/internal/fieldmap"
	"github.com/ginjaninja78/geo-format-converter/internal/types"
)

// =============================================================================
// OPTIONS
// =============================================================================

// Options controls both the parser and the writer.
type Options struct {
	// RootElement is the document element written by the serializer.
	// Default: "markers"
	RootElement string

	// PointElement is the per-record element written by the serializer. The
	// parser accepts it in addition to "marker" and "item".
	// Default: "marker"
	PointElement string

	// Indent is the indentation unit. Empty writes a single line.
	// Default: "  "
	Indent string

	// NormalizeKeys lowercases attribute keys on parse.
	// Default: true
	NormalizeKeys bool

	// FieldMap translates attribute keys to and from the XML spelling.
	FieldMap *fieldmap.Map
}

// DefaultOptions returns the default XML options.
func DefaultOptions() Options {
	return Options{
		RootElement:   "markers",
		PointElement:  "marker",
		Indent:        "  ",
		NormalizeKeys: true,
		FieldMap:      fieldmap.Default(),
	}
}

var (
	latitudeNames   = []string{"lat", "latitude"}
	longitudeNames  = []string{"lon", "lng", "longitude"}
	coordinateNames = append(append([]string{}, latitudeNames...), longitudeNames...)
)

// node is a generic element tree used to walk documents of unknown shape.
type node struct {
	XMLName xml.Name
	Attrs   []xml.Attr `xml:",any,attr"`
	Text    string     `xml:",chardata"`
	Inner   string     `xml:",innerxml"`
	Nodes   []node     `xml:",any"`
}

// value is the trimmed text of a leaf element, or the trimmed inner XML of an
// element that has children.
func (n node) value() string {
	if len(n.Nodes) > 0 {
		return strings.TrimSpace(n.Inner)
	}
	return strings.TrimSpace(n.Text)
}

// =============================================================================
// PARSER
// =============================================================================

// Parser reads XML marker documents.
type Parser struct {
	opts Options
}

// NewParser creates a Parser.
func NewParser(opts Options) *Parser {
	return &Parser{opts: opts}
}

// Format implements converter.Parser.
func (p *Parser) Format() types.Format { return types.FormatXML }

// Parse reads every point element in document order. Any malformed point
// rejects the whole document.
func (p *Parser) Parse(data []byte) (types.Collection, error) {
	dec := xml.NewDecoder(bytes.NewReader(types.StripBOM(data)))
	dec.CharsetReader = charset.NewReaderLabel

	var root node
	if err := dec.Decode(&root); err != nil {
		return nil, &types.ParseError{
			Format: types.FormatXML,
			Index:  types.NoRecord,
			Reason: "malformed document",
			Err:    err,
		}
	}

	var out types.Collection
	for _, child := range root.Nodes {
		if !p.isPointElement(child.XMLName.Local) {
			continue
		}
		rec, err := p.parsePoint(len(out), child)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}

	if len(out) == 0 {
		return nil, &types.ParseError{
			Format: types.FormatXML,
			Index:  types.NoRecord,
			Reason: "no <marker> or <item> elements found under <" + root.XMLName.Local + ">",
		}
	}

	return out, nil
}

func (p *Parser) isPointElement(local string) bool {
	return strings.EqualFold(local, "marker") ||
		strings.EqualFold(local, "item") ||
		(p.opts.PointElement != "" && strings.EqualFold(local, p.opts.PointElement))
}

// parsePoint converts a single point element into a record.
func (p *Parser) parsePoint(index int, el node) (types.Record, error) {
	rec := types.Record{Attributes: make(map[string]string)}

	fail := func(field string, err error) error {
		return &types.ParseError{
			Format: types.FormatXML,
			Index:  index,
			Name:   rec.Name,
			Field:  field,
			Err:    err,
		}
	}

	children := make(map[string]string, len(el.Nodes))
	for _, child := range el.Nodes {
		children[strings.ToLower(child.XMLName.Local)] = child.value()
	}
	attrs := make(map[string]string, len(el.Attrs))
	for _, a := range el.Attrs {
		if isNamespaceDecl(a) {
			continue
		}
		attrs[strings.ToLower(a.Name.Local)] = strings.TrimSpace(a.Value)
	}

	// A name attribute is only accepted when it agrees with the <name> child.
	usedChild := map[string]bool{"name": true}
	usedAttr := map[string]bool{"name": true}
	nameChild, hasChild := children["name"]
	nameAttr, hasAttr := attrs["name"]
	switch {
	case hasChild:
		rec.Name = nameChild
		if hasAttr && nameAttr != nameChild {
			return types.Record{}, fail("name", errors.Newf("name attribute %q conflicts with <name> element %q", nameAttr, nameChild))
		}
	case hasAttr:
		rec.Name = nameAttr
	}

	lat, lon, source, err := locate(children, attrs)
	if err != nil {
		return types.Record{}, fail(source, err)
	}
	if err := coords.CheckLatitude(lat); err != nil {
		return types.Record{}, fail("latitude", err)
	}
	if err := coords.CheckLongitude(lon); err != nil {
		return types.Record{}, fail("longitude", err)
	}
	rec.Latitude, rec.Longitude = lat, lon

	switch source {
	case "geo":
		usedChild["geo"] = true
	case "elements":
		for _, n := range coordinateNames {
			usedChild[n] = true
		}
	case "attributes":
		for _, n := range coordinateNames {
			usedAttr[n] = true
		}
	}

	// Element attributes first so that child elements win on key conflicts.
	for _, a := range el.Attrs {
		if isNamespaceDecl(a) || usedAttr[strings.ToLower(a.Name.Local)] {
			continue
		}
		key, err := p.attributeKey(a.Name.Local)
		if err != nil {
			return types.Record{}, fail(a.Name.Local, err)
		}
		rec.Attributes[key] = strings.TrimSpace(a.Value)
	}
	for _, child := range el.Nodes {
		if usedChild[strings.ToLower(child.XMLName.Local)] {
			continue
		}
		key, err := p.attributeKey(child.XMLName.Local)
		if err != nil {
			return types.Record{}, fail(child.XMLName.Local, err)
		}
		rec.Attributes[key] = child.value()
	}

	return rec, nil
}

// locate finds the coordinate pair of a point. The returned source names
// where it came from ("geo", "elements" or "attributes") or, on failure, the
// offending field.
func locate(children, attrs map[string]string) (lat, lon float64, source string, err error) {
	if geo, ok := children["geo"]; ok {
		tup, err := coords.ParseTuple(geo)
		if err != nil {
			return 0, 0, "geo", err
		}
		if tup.Third != "" {
			return 0, 0, "geo", errMalformedGeo(geo)
		}
		return tup.First, tup.Second, "geo", nil
	}

	for _, set := range []struct {
		name   string
		values map[string]string
	}{
		{"elements", children},
		{"attributes", attrs},
	} {
		latText, hasLat := first(set.values, latitudeNames)
		lonText, hasLon := first(set.values, longitudeNames)
		if !hasLat && !hasLon {
			continue
		}
		if !hasLat {
			return 0, 0, "latitude", errMissing("latitude")
		}
		if !hasLon {
			return 0, 0, "longitude", errMissing("longitude")
		}
		lat, err := coords.ParseDegrees(latText)
		if err != nil {
			return 0, 0, "latitude", err
		}
		lon, err := coords.ParseDegrees(lonText)
		if err != nil {
			return 0, 0, "longitude", err
		}
		return lat, lon, set.name, nil
	}

	return 0, 0, "geo", errMissing("coordinates")
}

// attributeKey maps an element or attribute name to its record key. Keys the
// writer would emit as <name> or <geo> are rejected.
func (p *Parser) attributeKey(local string) (string, error) {
	key := local
	if p.opts.NormalizeKeys {
		key = strings.ToLower(key)
	}
	key = p.opts.FieldMap.Canonical(types.FormatXML, key)
	if tag := p.opts.FieldMap.ForFormat(types.FormatXML, key); reservedElements[strings.ToLower(tag)] || key == types.NameKey {
		return "", errors.Newf("%q clashes with the <%s> element of the point", local, tag)
	}
	return key, nil
}

func first(values map[string]string, names []string) (string, bool) {
	for _, n := range names {
		if v, ok := values[n]; ok {
			return v, true
		}
	}
	return "", false
}

func errMissing(what string) error {
	return errors.Newf("missing %s", what)
}

func errMalformedGeo(text string) error {
	return errors.Newf("expected \"lat, lon\", got %q", text)
}

func isNamespaceDecl(a xml.Attr) bool {
	return a.Name.Space == "xmlns" || a.Name.Local == "xmlns"
}
