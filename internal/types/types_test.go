package types

import (
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFormat(t *testing.T) {
	t.Parallel()

	tests := map[string]Format{
		"xml":       FormatXML,
		"KML":       FormatKML,
		" geojson ": FormatGeoJSON,
		"json":      FormatGeoJSON,
	}
	for in, want := range tests {
		got, err := ParseFormat(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseFormat("csv")
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
	assert.EqualError(t, err, `unsupported format "csv"`)
}

func TestFormatFromExtension(t *testing.T) {
	t.Parallel()

	tests := map[string]Format{
		"a/b/places.xml":     FormatXML,
		"places.KML":         FormatKML,
		"places.json":        FormatGeoJSON,
		"places.tar.geojson": FormatGeoJSON,
	}
	for in, want := range tests {
		got, err := FormatFromExtension(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	for _, in := range []string{"places.csv", "places", "kml"} {
		_, err := FormatFromExtension(in)
		assert.ErrorIs(t, err, ErrUnsupportedFormat, in)
	}
}

func TestFormatNames(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "geojson", FormatGeoJSON.String())
	assert.Equal(t, "geojson", FormatGeoJSON.Extension())
	assert.Equal(t, "unknown", FormatUnknown.String())
	assert.False(t, FormatUnknown.Valid())
	assert.False(t, Format(42).Valid())
	for _, f := range Formats {
		assert.True(t, f.Valid(), f.String())
	}
}

func TestStripBOM(t *testing.T) {
	t.Parallel()

	assert.Equal(t, []byte("<a/>"), StripBOM([]byte("\xEF\xBB\xBF<a/>")))
	assert.Equal(t, []byte("<a/>"), StripBOM([]byte("<a/>")))
	assert.Empty(t, StripBOM(nil))
}

func TestCloneIsDeep(t *testing.T) {
	t.Parallel()

	orig := Collection{{Name: "a", Latitude: 1, Longitude: 2, Attributes: map[string]string{"k": "v"}}}
	cp := orig.Clone()
	cp[0].Attributes["k"] = "changed"
	cp[0].Name = "b"

	assert.Equal(t, "v", orig[0].Attributes["k"])
	assert.Equal(t, "a", orig[0].Name)
	assert.Nil(t, Collection(nil).Clone())

	v, ok := orig[0].Attr("k")
	assert.True(t, ok)
	assert.Equal(t, "v", v)
}

func TestErrorMessages(t *testing.T) {
	t.Parallel()

	pe := &ParseError{Format: FormatKML, Index: 1, Name: "Pole", Field: "latitude", Reason: "out of range", Err: errors.New("95")}
	assert.Equal(t, `kml parse error: record 1 ("Pole"), field latitude: out of range: 95`, pe.Error())
	assert.ErrorIs(t, pe, ErrParse)
	assert.NotErrorIs(t, pe, ErrSerialize)

	doc := &ParseError{Format: FormatXML, Index: NoRecord, Reason: "no marker elements"}
	assert.Equal(t, "xml parse error: no marker elements", doc.Error())

	se := &SerializeError{Format: FormatGeoJSON, Index: 0, Field: "name", Reason: "collides with record name"}
	assert.Equal(t, "geojson serialize error: record 0, field name: collides with record name", se.Error())
	assert.ErrorIs(t, se, ErrSerialize)

	var target *ParseError
	wrapped := errors.Wrap(pe, "converting")
	require.True(t, errors.As(wrapped, &target))
	assert.Equal(t, "latitude", target.Field)
	assert.True(t, errors.Is(wrapped, ErrParse))
}
