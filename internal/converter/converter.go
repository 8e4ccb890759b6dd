// =============================================================================
// Geo Format Converter - Conversion Engine
// =============================================================================
//
// The engine turns the bytes of one document into the bytes of one or more
// target formats. It is pure: it never touches the filesystem, never logs
// and never reads configuration. Everything it needs arrives through Options.
//
// CONVERSION PIPELINE:
//   1. Resolve the source parser and every target serializer
//      (unknown tag -> UnsupportedFormatError, nothing is parsed)
//   2. Parse the input once into an ordered Collection
//      (any ParseError aborts the call, no outputs)
//   3. Run each requested serializer against the same Collection
//      (a SerializeError only removes that target from the outputs)
//
// CONCURRENCY:
//   A Converter is immutable after New and holds no per-call state, so one
//   value can be shared across goroutines.
//
// =============================================================================

package converter

import (
	"github.com/cockroachdb/errors"

	"github.com/ginjaninja78/geo-format-converter/internal/fieldmap"
	"github.com/ginjaninja78/geo-format-converter/internal/geojsonformat"
	"github.com/ginjaninja78/geo-format-converter/internal/kmlformat"
	"github.com/ginjaninja78/geo-format-converter/internal/types"
	"github.com/ginjaninja78/geo-format-converter/internal/xmlformat"
)

// =============================================================================
// CODEC INTERFACES
// =============================================================================

// Parser turns raw bytes of one format into a Collection.
type Parser interface {
	Format() types.Format
	Parse(data []byte) (types.Collection, error)
}

// Serializer turns a Collection into raw bytes of one format. It must treat
// the Collection as read-only.
type Serializer interface {
	Format() types.Format
	Serialize(c types.Collection) ([]byte, error)
}

// =============================================================================
// OPTIONS
// =============================================================================

// Options configures the codecs built by New.
type Options struct {
	// FieldMap translates attribute keys between formats. It overrides the
	// FieldMap of the per-format options below.
	// Default: fieldmap.Default()
	FieldMap *fieldmap.Map

	// NormalizeKeys lowercases attribute keys on parse in every format.
	// Default: true
	NormalizeKeys bool

	XML     xmlformat.Options
	KML     kmlformat.Options
	GeoJSON geojsonformat.Options
}

// DefaultOptions returns the default engine options.
func DefaultOptions() Options {
	return Options{
		FieldMap:      fieldmap.Default(),
		NormalizeKeys: true,
		XML:           xmlformat.DefaultOptions(),
		KML:           kmlformat.DefaultOptions(),
		GeoJSON:       geojsonformat.DefaultOptions(),
	}
}

// =============================================================================
// CONVERTER
// =============================================================================

// Converter holds one parser and one serializer per supported format.
type Converter struct {
	parsers     map[types.Format]Parser
	serializers map[types.Format]Serializer
}

// New builds the XML, KML and GeoJSON codecs from opts.
func New(opts Options) *Converter {
	opts.XML.FieldMap = opts.FieldMap
	opts.KML.FieldMap = opts.FieldMap
	opts.GeoJSON.FieldMap = opts.FieldMap
	opts.XML.NormalizeKeys = opts.NormalizeKeys
	opts.KML.NormalizeKeys = opts.NormalizeKeys
	opts.GeoJSON.NormalizeKeys = opts.NormalizeKeys

	return NewWithCodecs(
		[]Parser{
			xmlformat.NewParser(opts.XML),
			kmlformat.NewParser(opts.KML),
			geojsonformat.NewParser(opts.GeoJSON),
		},
		[]Serializer{
			xmlformat.NewWriter(opts.XML),
			kmlformat.NewWriter(opts.KML),
			geojsonformat.NewWriter(opts.GeoJSON),
		},
	)
}

// NewWithCodecs builds a Converter from an explicit codec set. A later codec
// for the same format replaces an earlier one.
func NewWithCodecs(parsers []Parser, serializers []Serializer) *Converter {
	c := &Converter{
		parsers:     make(map[types.Format]Parser, len(parsers)),
		serializers: make(map[types.Format]Serializer, len(serializers)),
	}
	for _, p := range parsers {
		c.parsers[p.Format()] = p
	}
	for _, s := range serializers {
		c.serializers[s.Format()] = s
	}
	return c
}

// Result is the outcome of a conversion whose input parsed successfully.
type Result struct {
	// Records is the number of records parsed from the input.
	Records int

	// Outputs holds the bytes of every target that serialized successfully.
	Outputs map[types.Format][]byte

	// Failures holds the error of every target that did not.
	Failures map[types.Format]*types.SerializeError
}

// Convert parses data as source and serializes it into every target.
//
// The returned map holds every target that succeeded. The error is:
//   - an *types.UnsupportedFormatError or *types.ParseError, with a nil map;
//   - a join of *types.SerializeError for the targets that failed, next to
//     the outputs of the targets that succeeded;
//   - nil when every target succeeded.
func (c *Converter) Convert(data []byte, source types.Format, targets []types.Format) (map[types.Format][]byte, error) {
	res, err := c.ConvertDetailed(data, source, targets)
	if err != nil {
		return nil, err
	}
	if len(res.Failures) == 0 {
		return res.Outputs, nil
	}
	errs := make([]error, 0, len(res.Failures))
	for _, t := range dedupe(targets) {
		if f, ok := res.Failures[t]; ok {
			errs = append(errs, f)
		}
	}
	return res.Outputs, errors.Join(errs...)
}

// ConvertDetailed is Convert with per-target failures kept apart. The error
// is only set for failures that prevent any output.
func (c *Converter) ConvertDetailed(data []byte, source types.Format, targets []types.Format) (*Result, error) {
	// =========================================================================
	// STEP 1: RESOLVE CODECS
	// =========================================================================

	parser, ok := c.parsers[source]
	if !ok {
		return nil, &types.UnsupportedFormatError{Name: source.String()}
	}
	targets = dedupe(targets)
	serializers := make([]Serializer, 0, len(targets))
	for _, t := range targets {
		s, ok := c.serializers[t]
		if !ok {
			return nil, &types.UnsupportedFormatError{Name: t.String()}
		}
		serializers = append(serializers, s)
	}

	// =========================================================================
	// STEP 2: PARSE ONCE
	// =========================================================================

	coll, err := parser.Parse(data)
	if err != nil {
		return nil, asParseError(source, err)
	}

	// =========================================================================
	// STEP 3: SERIALIZE EACH TARGET
	// =========================================================================

	res := &Result{
		Records:  len(coll),
		Outputs:  make(map[types.Format][]byte, len(serializers)),
		Failures: make(map[types.Format]*types.SerializeError),
	}
	for _, s := range serializers {
		out, err := s.Serialize(coll)
		if err != nil {
			res.Failures[s.Format()] = asSerializeError(s.Format(), err)
			continue
		}
		res.Outputs[s.Format()] = out
	}
	return res, nil
}

// ParseOnly parses data as source without serializing it.
func (c *Converter) ParseOnly(data []byte, source types.Format) (types.Collection, error) {
	parser, ok := c.parsers[source]
	if !ok {
		return nil, &types.UnsupportedFormatError{Name: source.String()}
	}
	coll, err := parser.Parse(data)
	if err != nil {
		return nil, asParseError(source, err)
	}
	return coll, nil
}

func dedupe(targets []types.Format) []types.Format {
	seen := make(map[types.Format]bool, len(targets))
	out := make([]types.Format, 0, len(targets))
	for _, t := range targets {
		if seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}

// asParseError guarantees the ParseError contract for third-party parsers.
func asParseError(f types.Format, err error) error {
	var pe *types.ParseError
	if errors.As(err, &pe) {
		return err
	}
	return &types.ParseError{Format: f, Index: types.NoRecord, Err: err}
}

func asSerializeError(f types.Format, err error) *types.SerializeError {
	var se *types.SerializeError
	if errors.As(err, &se) {
		return se
	}
	return &types.SerializeError{Format: f, Index: types.NoRecord, Err: err}
}
