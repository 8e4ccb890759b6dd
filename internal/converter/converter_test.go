package converter

import (
	"encoding/json"
	"strings"
	"sync"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ginjaninja78/geo-format-converter/internal/types"
)

const nycXML = `<markers><marker><name>NYC</name><geo>40.0, -74.0</geo></marker></markers>`

func TestConvertXMLToGeoJSON(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	c := New(DefaultOptions())

	// --- Act ---
	out, err := c.Convert([]byte(nycXML), types.FormatXML, []types.Format{types.FormatGeoJSON})

	// --- Assert ---
	require.NoError(t, err)
	require.Contains(t, out, types.FormatGeoJSON)

	var doc struct {
		Features []struct {
			Geometry struct {
				Coordinates []float64 `json:"coordinates"`
			} `json:"geometry"`
			Properties map[string]string `json:"properties"`
		} `json:"features"`
	}
	require.NoError(t, json.Unmarshal(out[types.FormatGeoJSON], &doc))
	require.Len(t, doc.Features, 1)
	assert.Equal(t, []float64{-74, 40}, doc.Features[0].Geometry.Coordinates)
	assert.Equal(t, "NYC", doc.Features[0].Properties["name"])
}

func TestParseKMLAltitude(t *testing.T) {
	t.Parallel()

	doc := `<kml xmlns="http://www.opengis.net/kml/2.2"><Placemark><name>P</name>` +
		`<Point><coordinates>-74.0,40.0,10</coordinates></Point></Placemark></kml>`

	coll, err := New(DefaultOptions()).ParseOnly([]byte(doc), types.FormatKML)
	require.NoError(t, err)
	require.Len(t, coll, 1)
	assert.Equal(t, 40.0, coll[0].Latitude)
	assert.Equal(t, -74.0, coll[0].Longitude)
	assert.Equal(t, "10", coll[0].Attributes["altitude"])
}

func TestConvertGeoJSONMissingCoordinates(t *testing.T) {
	t.Parallel()

	doc := `{"type":"FeatureCollection","features":[{"type":"Feature","geometry":{"type":"Point"},"properties":{"name":"x"}}]}`

	out, err := New(DefaultOptions()).Convert([]byte(doc), types.FormatGeoJSON, []types.Format{types.FormatXML, types.FormatKML})
	require.Error(t, err)
	assert.Nil(t, out)
	assert.True(t, errors.Is(err, types.ErrParse))

	var pe *types.ParseError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, 0, pe.Index)
	assert.Equal(t, "coordinates", pe.Field)
}

// countingParser wraps a Parser and records how often it ran and what it
// returned.
type countingParser struct {
	Parser
	mu    sync.Mutex
	calls int
	last  types.Collection
}

func (p *countingParser) Parse(data []byte) (types.Collection, error) {
	c, err := p.Parser.Parse(data)
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++
	p.last = c
	return c, err
}

func TestConvertMultipleTargetsParsesOnce(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	base := New(DefaultOptions())
	parser := &countingParser{Parser: base.parsers[types.FormatKML]}
	var serializers []Serializer
	for _, s := range base.serializers {
		serializers = append(serializers, s)
	}
	c := NewWithCodecs([]Parser{parser}, serializers)

	doc := `<kml xmlns="http://www.opengis.net/kml/2.2"><Document>` +
		`<Placemark><name>A</name><description>first</description><Point><coordinates>1,2,3</coordinates></Point></Placemark>` +
		`<Placemark><name>B</name><Point><coordinates>4,5</coordinates></Point></Placemark>` +
		`</Document></kml>`

	// --- Act ---
	out, err := c.Convert([]byte(doc), types.FormatKML, []types.Format{types.FormatXML, types.FormatGeoJSON, types.FormatXML})

	// --- Assert ---
	require.NoError(t, err)
	assert.Equal(t, 1, parser.calls)
	assert.Len(t, out, 2)
	assert.Contains(t, out, types.FormatXML)
	assert.Contains(t, out, types.FormatGeoJSON)

	want := types.Collection{
		{Name: "A", Latitude: 2, Longitude: 1, Attributes: map[string]string{"description": "first", "altitude": "3"}},
		{Name: "B", Latitude: 5, Longitude: 4, Attributes: map[string]string{}},
	}
	if diff := cmp.Diff(want, parser.last); diff != "" {
		t.Errorf("collection was modified by serializers (-want +got):\n%s", diff)
	}
}

// failingSerializer always fails.
type failingSerializer struct{ format types.Format }

func (f failingSerializer) Format() types.Format { return f.format }

func (f failingSerializer) Serialize(types.Collection) ([]byte, error) {
	return nil, errors.New("disk full")
}

func TestConvertIsolatesSerializerFailures(t *testing.T) {
	t.Parallel()

	base := New(DefaultOptions())
	c := NewWithCodecs(
		[]Parser{base.parsers[types.FormatXML]},
		[]Serializer{base.serializers[types.FormatKML], failingSerializer{format: types.FormatGeoJSON}},
	)

	out, err := c.Convert([]byte(nycXML), types.FormatXML, []types.Format{types.FormatGeoJSON, types.FormatKML})
	require.Error(t, err)
	assert.True(t, errors.Is(err, types.ErrSerialize))
	assert.False(t, errors.Is(err, types.ErrParse))

	var se *types.SerializeError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, types.FormatGeoJSON, se.Format)
	assert.Contains(t, se.Error(), "disk full")

	require.Contains(t, out, types.FormatKML)
	assert.NotContains(t, out, types.FormatGeoJSON)
	assert.Contains(t, string(out[types.FormatKML]), "<coordinates>-74,40</coordinates>")

	res, err := c.ConvertDetailed([]byte(nycXML), types.FormatXML, []types.Format{types.FormatGeoJSON, types.FormatKML})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Records)
	assert.Len(t, res.Outputs, 1)
	assert.Len(t, res.Failures, 1)
}

func TestConvertUnsupportedFormat(t *testing.T) {
	t.Parallel()

	c := New(DefaultOptions())

	_, err := c.Convert([]byte(nycXML), types.FormatUnknown, []types.Format{types.FormatKML})
	assert.True(t, errors.Is(err, types.ErrUnsupportedFormat))

	// An unknown target is rejected before the (broken) input is parsed.
	_, err = c.Convert([]byte("not xml"), types.FormatXML, []types.Format{types.FormatKML, types.Format(42)})
	assert.True(t, errors.Is(err, types.ErrUnsupportedFormat))
	assert.False(t, errors.Is(err, types.ErrParse))

	_, err = c.ParseOnly(nil, types.Format(9))
	assert.True(t, errors.Is(err, types.ErrUnsupportedFormat))
}

func TestKMLRoundTripThroughEngine(t *testing.T) {
	t.Parallel()

	c := New(DefaultOptions())
	src := types.Collection{
		{Name: "One", Latitude: 12.5, Longitude: -45.25, Attributes: map[string]string{"note": "x", "altitude": "250"}},
		{Name: "Two", Latitude: -89.999, Longitude: 179.999, Attributes: map[string]string{}},
		{Name: "Three", Latitude: 0.000001, Longitude: -0.000001, Attributes: map[string]string{"description": "tiny"}},
	}

	kml, err := c.serializers[types.FormatKML].Serialize(src)
	require.NoError(t, err)

	got, err := c.ParseOnly(kml, types.FormatKML)
	require.NoError(t, err)
	if diff := cmp.Diff(src, got); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestOrderPreservedAcrossFormats(t *testing.T) {
	t.Parallel()

	var b strings.Builder
	b.WriteString("<markers>")
	names := []string{"delta", "alpha", "charlie", "bravo", "echo"}
	for i, n := range names {
		b.WriteString("<marker><name>" + n + "</name><geo>" + string(rune('1'+i)) + ", 0</geo></marker>")
	}
	b.WriteString("</markers>")

	c := New(DefaultOptions())
	for _, target := range []types.Format{types.FormatKML, types.FormatGeoJSON, types.FormatXML} {
		out, err := c.Convert([]byte(b.String()), types.FormatXML, []types.Format{target})
		require.NoError(t, err)

		coll, err := c.ParseOnly(out[target], target)
		require.NoError(t, err)

		var got []string
		for _, r := range coll {
			got = append(got, r.Name)
		}
		assert.Equal(t, names, got, "target %s", target)
	}
}

func TestConverterIsSafeForConcurrentUse(t *testing.T) {
	t.Parallel()

	c := New(DefaultOptions())
	targets := []types.Format{types.FormatKML, types.FormatGeoJSON}

	want, err := c.Convert([]byte(nycXML), types.FormatXML, targets)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got, err := c.Convert([]byte(nycXML), types.FormatXML, targets)
			assert.NoError(t, err)
			assert.Equal(t, want, got)
		}()
	}
	wg.Wait()
}
