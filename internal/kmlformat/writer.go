package kmlformat

import (
	"bytes"
	"encoding/xml"
	"maps"
	"slices"
	"strconv"

	"github.com/twpayne/go-kml"

	"github.com/ginjaninja78/geo-format-converter/internal/coords"
	"github.com/ginjaninja78/geo-format-converter/internal/types"
	"github.com/ginjaninja78/geo-format-converter/internal/validation"
)

// Writer serializes collections as a KML 2.2 Document of Point placemarks.
type Writer struct {
	opts Options
}

// NewWriter creates a Writer.
func NewWriter(opts Options) *Writer {
	return &Writer{opts: opts}
}

// Format implements converter.Serializer.
func (w *Writer) Format() types.Format { return types.FormatKML }

// Serialize builds kml/Document/Placemark* with go-kml and writes it with an
// XML header.
func (w *Writer) Serialize(c types.Collection) ([]byte, error) {
	placemarks := make([]kml.Element, 0, len(c))
	for i, rec := range c {
		pm, err := w.placemark(i, rec)
		if err != nil {
			return nil, err
		}
		placemarks = append(placemarks, pm)
	}

	var buf bytes.Buffer
	doc := kml.KML(kml.Document(placemarks...))
	if err := doc.WriteIndent(&buf, "", w.opts.Indent); err != nil {
		return nil, &types.SerializeError{Format: types.FormatKML, Index: types.NoRecord, Reason: "encoding failed", Err: err}
	}
	buf.WriteByte('\n')
	return buf.Bytes(), nil
}

func (w *Writer) placemark(index int, rec types.Record) (kml.Element, error) {
	if ve := validation.Record(rec); ve != nil {
		return nil, &types.SerializeError{
			Format: types.FormatKML,
			Index:  index,
			Name:   rec.Name,
			Field:  ve.Field,
			Err:    ve,
		}
	}

	lon, lat := coords.ToKML(rec.Latitude, rec.Longitude)
	coord := kml.Coordinate{Lon: lon, Lat: lat}

	extra := make(map[string]string, len(rec.Attributes))
	for k, v := range rec.Attributes {
		if k == types.DescriptionKey {
			continue
		}
		extra[k] = v
	}
	if alt, ok := coordinateAltitude(rec); ok {
		coord.Alt = alt
		delete(extra, types.AltitudeKey)
	}

	children := []kml.Element{kml.Name(rec.Name)}
	if desc, ok := rec.Attr(types.DescriptionKey); ok {
		children = append(children, kml.Description(desc))
	}
	if len(extra) > 0 {
		data := make([]kml.Element, 0, len(extra))
		for _, k := range slices.Sorted(maps.Keys(extra)) {
			data = append(data, dataElement(w.opts.FieldMap.ForFormat(types.FormatKML, k), extra[k]))
		}
		children = append(children, kml.ExtendedData(data...))
	}
	children = append(children, kml.Point(kml.Coordinates(coord)))

	return kml.Placemark(children...), nil
}

// coordinateAltitude returns the altitude to embed in the coordinate tuple.
// go-kml drops a zero altitude and formats with the shortest representation,
// so only values that survive that unchanged are embedded; anything else is
// written as ExtendedData instead.
func coordinateAltitude(rec types.Record) (float64, bool) {
	text, ok := rec.Attr(types.AltitudeKey)
	if !ok || text == "" {
		return 0, false
	}
	v, err := coords.ParseDegrees(text)
	if err != nil || v == 0 {
		return 0, false
	}
	if strconv.FormatFloat(v, 'f', -1, 64) != text {
		return 0, false
	}
	return v, true
}

func dataElement(name, value string) *kml.CompoundElement {
	d := kml.Data(kml.Value(value))
	d.Attr = append(d.Attr, xml.Attr{Name: xml.Name{Local: "name"}, Value: name})
	return d
}
