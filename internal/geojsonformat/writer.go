package geojsonformat

import (
	"encoding/json"

	"github.com/cockroachdb/errors"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"

	"github.com/ginjaninja78/geo-format-converter/internal/coords"
	"github.com/ginjaninja78/geo-format-converter/internal/types"
	"github.com/ginjaninja78/geo-format-converter/internal/validation"
)

// Writer serializes collections as a GeoJSON FeatureCollection of 2D points.
type Writer struct {
	opts Options
}

// NewWriter creates a Writer.
func NewWriter(opts Options) *Writer {
	return &Writer{opts: opts}
}

// Format implements converter.Serializer.
func (w *Writer) Format() types.Format { return types.FormatGeoJSON }

// Serialize writes one Point feature per record. Positions are [lon, lat];
// the record name becomes the "name" property next to the attributes.
// Numbers take encoding/json's shortest form, so 40.0 is written as 40.
func (w *Writer) Serialize(c types.Collection) ([]byte, error) {
	fc := &geojson.FeatureCollection{Features: make([]*geojson.Feature, 0, len(c))}

	var bounds *geom.Bounds
	if w.opts.BBox && len(c) > 0 {
		bounds = geom.NewBounds(geom.XY)
	}

	for i, rec := range c {
		f, err := w.feature(i, rec)
		if err != nil {
			return nil, err
		}
		if bounds != nil {
			bounds.Extend(f.Geometry)
		}
		fc.Features = append(fc.Features, f)
	}
	fc.BBox = bounds

	var (
		out []byte
		err error
	)
	if w.opts.Indent == "" {
		out, err = json.Marshal(fc)
	} else {
		out, err = json.MarshalIndent(fc, "", w.opts.Indent)
	}
	if err != nil {
		return nil, &types.SerializeError{Format: types.FormatGeoJSON, Index: types.NoRecord, Reason: "encoding failed", Err: err}
	}
	return append(out, '\n'), nil
}

func (w *Writer) feature(index int, rec types.Record) (*geojson.Feature, error) {
	fail := func(field string, err error) error {
		return &types.SerializeError{Format: types.FormatGeoJSON, Index: index, Name: rec.Name, Field: field, Err: err}
	}

	if ve := validation.Record(rec); ve != nil {
		return nil, fail(ve.Field, ve)
	}

	props := make(map[string]interface{}, len(rec.Attributes)+1)
	for k, v := range rec.Attributes {
		key := w.opts.FieldMap.ForFormat(types.FormatGeoJSON, k)
		if key == types.NameKey {
			return nil, fail(k, errors.Newf("attribute %q collides with the %q property", k, types.NameKey))
		}
		props[key] = v
	}
	props[types.NameKey] = rec.Name

	lon, lat := coords.ToKML(rec.Latitude, rec.Longitude)
	return &geojson.Feature{
		Geometry:   geom.NewPointFlat(geom.XY, []float64{lon, lat}),
		Properties: props,
	}, nil
}
