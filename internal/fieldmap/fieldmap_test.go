package fieldmap

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/ginjaninja78/geo-format-converter/internal/types"
)

func TestDefaultAddressAlias(t *testing.T) {
	t.Parallel()

	m := Default()
	assert.Equal(t, "address", m.Canonical(types.FormatXML, "adr"))
	assert.Equal(t, "address", m.Canonical(types.FormatXML, "ADR"))
	assert.Equal(t, "adr", m.ForFormat(types.FormatXML, "address"))
	assert.Equal(t, "address", m.ForFormat(types.FormatGeoJSON, "address"))
	assert.Equal(t, "note", m.Canonical(types.FormatXML, "note"))
}

func TestSetReplacesAlias(t *testing.T) {
	t.Parallel()

	m := Default()
	m.Set("address", types.FormatXML, "street")
	assert.Equal(t, "street", m.ForFormat(types.FormatXML, "address"))
	assert.Equal(t, "adr", m.Canonical(types.FormatXML, "adr"))
	assert.Equal(t, [][2]string{{"address", "street"}}, m.Aliases(types.FormatXML))
}

func TestNilMapIsIdentity(t *testing.T) {
	t.Parallel()

	var m *Map
	assert.Equal(t, "adr", m.Canonical(types.FormatXML, "adr"))
	assert.Equal(t, "address", m.ForFormat(types.FormatXML, "address"))
}

func TestFromConfig(t *testing.T) {
	t.Parallel()

	m, err := FromConfig(map[string]map[string]string{
		"phone": {"xml": "tel", "json": "telephone"},
	})
	require.NoError(t, err)
	assert.Equal(t, "tel", m.ForFormat(types.FormatXML, "phone"))
	assert.Equal(t, "phone", m.Canonical(types.FormatGeoJSON, "telephone"))

	_, err = FromConfig(map[string]map[string]string{"phone": {"csv": "tel"}})
	require.Error(t, err)
	assert.ErrorIs(t, err, types.ErrUnsupportedFormat)
}

func TestLoadTemplate(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	path := filepath.Join(t.TempDir(), "aliases.xlsx")
	f := excelize.NewFile()
	rows := [][]interface{}{
		{"Canonical Key", "XML", "KML", "GeoJSON"},
		{"address", "adr", "", ""},
		{"phone", "tel", "phone", "telephone"},
		{"", "ignored", "", ""},
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow("Sheet1", cell, &row))
	}
	require.NoError(t, f.SaveAs(path))
	require.NoError(t, f.Close())

	// --- Act ---
	m, err := LoadTemplate(path)

	// --- Assert ---
	require.NoError(t, err)
	assert.Equal(t, "adr", m.ForFormat(types.FormatXML, "address"))
	assert.Equal(t, "tel", m.ForFormat(types.FormatXML, "phone"))
	assert.Equal(t, "phone", m.ForFormat(types.FormatKML, "phone"))
	assert.Equal(t, "phone", m.Canonical(types.FormatGeoJSON, "telephone"))
	assert.Equal(t, "ignored", m.Canonical(types.FormatXML, "ignored"))
}

func TestLoadTemplateMissingFile(t *testing.T) {
	t.Parallel()

	_, err := LoadTemplate(filepath.Join(t.TempDir(), "missing.xlsx"))
	assert.Error(t, err)
}
