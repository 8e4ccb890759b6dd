// =============================================================================
// Geo Format Converter - KML Placemark Parser
// =============================================================================
//
// Reads every <Placemark> of a KML 2.2 document, at any depth (Document,
// Folder, or directly under <kml>), in document order.
//
// MAPPING:
//   <name>                          -> Record.Name
//   <description>                   -> attribute "description"
//   <Point><coordinates>lon,lat,alt -> Record.Latitude/Longitude, "altitude"
//   <ExtendedData><Data name=k>     -> attribute k
//   <ExtendedData><SchemaData>      -> one attribute per <SimpleData name=k>
//
// Only Point placemarks are supported. A placemark without a Point, or with
// more than one coordinate tuple, rejects the whole document. So does an
// ExtendedData entry named "name".
//
// Names, descriptions and values are not trimmed. Keys are lowercased when
// NormalizeKeys is set, which is the one change a KML round trip can make.
//
// =============================================================================

package kmlformat

import (
	"bytes"
	"encoding/xml"
	"io"
	"regexp"
	"strings"

	"github.com/cockroachdb/errors"
	"golang.org/x/net/html/charset"

	"github.com/ginjaninja78/geo-format-converter/internal/coords"
	"github.com/ginjaninja78/geo-format-converter/internal/fieldmap"
	"github.com/ginjaninja78/geo-format-converter/internal/types"
)

// Options controls both the parser and the writer.
type Options struct {
	// Indent is the indentation unit of written documents.
	// Default: "  "
	Indent string

	// NormalizeKeys lowercases ExtendedData keys on parse.
	// Default: true
	NormalizeKeys bool

	// FieldMap translates attribute keys to and from the KML spelling.
	FieldMap *fieldmap.Map
}

// DefaultOptions returns the default KML options.
func DefaultOptions() Options {
	return Options{
		Indent:        "  ",
		NormalizeKeys: true,
		FieldMap:      fieldmap.Default(),
	}
}

type placemark struct {
	Name         *string      `xml:"name"`
	Description  *string      `xml:"description"`
	Points       []point      `xml:"Point"`
	ExtendedData extendedData `xml:"ExtendedData"`
}

type point struct {
	Coordinates []string `xml:"coordinates"`
}

type extendedData struct {
	Data []struct {
		Name  string `xml:"name,attr"`
		Value string `xml:"value"`
	} `xml:"Data"`
	SchemaData []struct {
		SimpleData []struct {
			Name  string `xml:"name,attr"`
			Value string `xml:",chardata"`
		} `xml:"SimpleData"`
	} `xml:"SchemaData"`
}

// Loose KML writers put blanks after the commas of a tuple.
var commaSpace = regexp.MustCompile(`\s*,\s*`)

// Parser reads KML documents.
type Parser struct {
	opts Options
}

// NewParser creates a Parser.
func NewParser(opts Options) *Parser {
	return &Parser{opts: opts}
}

// Format implements converter.Parser.
func (p *Parser) Format() types.Format { return types.FormatKML }

// Parse streams the document and decodes each Placemark as it is reached.
func (p *Parser) Parse(data []byte) (types.Collection, error) {
	dec := xml.NewDecoder(bytes.NewReader(types.StripBOM(data)))
	dec.CharsetReader = charset.NewReaderLabel

	out := types.Collection{}
	sawRoot := false
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, malformed(err)
		}
		start, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}
		sawRoot = true
		if start.Name.Local != "Placemark" {
			continue
		}

		var pm placemark
		if err := dec.DecodeElement(&pm, &start); err != nil {
			return nil, malformed(err)
		}
		rec, err := p.convert(len(out), pm)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}

	if !sawRoot {
		return nil, malformed(errors.New("document has no root element"))
	}
	return out, nil
}

func (p *Parser) convert(index int, pm placemark) (types.Record, error) {
	// Text is kept verbatim, untrimmed.
	rec := types.Record{Attributes: make(map[string]string)}
	if pm.Name != nil {
		rec.Name = *pm.Name
	}

	fail := func(field string, err error) error {
		return &types.ParseError{Format: types.FormatKML, Index: index, Name: rec.Name, Field: field, Err: err}
	}
	set := func(name, value string) error {
		key := p.attributeKey(name)
		if key == types.NameKey {
			return fail(types.NameKey, errors.Newf("ExtendedData entry %q clashes with the placemark name", name))
		}
		rec.Attributes[key] = value
		return nil
	}

	for _, d := range pm.ExtendedData.Data {
		if err := set(d.Name, d.Value); err != nil {
			return types.Record{}, err
		}
	}
	for _, sd := range pm.ExtendedData.SchemaData {
		for _, s := range sd.SimpleData {
			if err := set(s.Name, s.Value); err != nil {
				return types.Record{}, err
			}
		}
	}
	if pm.Description != nil {
		rec.Attributes[types.DescriptionKey] = *pm.Description
	}

	if len(pm.Points) == 0 {
		return types.Record{}, fail("Point", errors.New("placemark has no Point geometry"))
	}
	if len(pm.Points) > 1 {
		return types.Record{}, fail("Point", errors.New("placemark has more than one Point"))
	}
	if len(pm.Points[0].Coordinates) != 1 {
		return types.Record{}, fail("coordinates", errors.New("Point must have exactly one <coordinates> element"))
	}

	text := strings.TrimSpace(commaSpace.ReplaceAllString(pm.Points[0].Coordinates[0], ","))
	tuples := strings.Fields(text)
	if len(tuples) != 1 {
		return types.Record{}, fail("coordinates", errors.Newf("expected exactly one lon,lat[,alt] tuple, got %d", len(tuples)))
	}
	tup, err := coords.ParseTuple(tuples[0])
	if err != nil {
		return types.Record{}, fail("coordinates", err)
	}

	lat, lon := coords.ToCanonical(tup.First, tup.Second)
	if err := coords.CheckLatitude(lat); err != nil {
		return types.Record{}, fail("latitude", err)
	}
	if err := coords.CheckLongitude(lon); err != nil {
		return types.Record{}, fail("longitude", err)
	}
	rec.Latitude, rec.Longitude = lat, lon
	if tup.Third != "" {
		rec.Attributes[types.AltitudeKey] = tup.Third
	}

	return rec, nil
}

func (p *Parser) attributeKey(name string) string {
	key := name
	if p.opts.NormalizeKeys {
		key = strings.ToLower(key)
	}
	return p.opts.FieldMap.Canonical(types.FormatKML, key)
}

func malformed(err error) error {
	return &types.ParseError{
		Format: types.FormatKML,
		Index:  types.NoRecord,
		Reason: "malformed document",
		Err:    err,
	}
}
