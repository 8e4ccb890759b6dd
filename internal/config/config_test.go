package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ginjaninja78/geo-format-converter/internal/types"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	t.Parallel()

	cfg, err := Load(filepath.Join(t.TempDir(), "config.yaml"), false)
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)

	_, err = Load(filepath.Join(t.TempDir(), "config.yaml"), true)
	assert.Error(t, err)
}

func TestLoadOverridesDefaults(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
log_level: debug
skip_same_format: false
name_format: "{stem}_{date}.{ext}"
geojson:
  bbox: true
xml:
  root_element: places
`), 0o644))

	cfg, err := Load(path, true)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.LogLevel)
	assert.False(t, cfg.SkipSameFormat)
	assert.True(t, cfg.ContinueOnError)
	assert.Equal(t, "{stem}_{date}.{ext}", cfg.NameFormat)
	assert.True(t, cfg.GeoJSON.BBox)
	assert.Equal(t, "  ", cfg.GeoJSON.Indent)
	assert.Equal(t, "places", cfg.XML.RootElement)
	assert.Equal(t, "marker", cfg.XML.PointElement)
}

func TestLoadRejectsInvalid(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		"bad yaml":      "log_level: [",
		"bad level":     "log_level: loud",
		"bad format":    "log_format: xml",
		"clashing name": `name_format: "out.{ext}"`,
		"bad indent":    "xml:\n  indent: \"--\"",
		"bad alias":     "field_aliases:\n  address: { csv: adr }",
	}
	for name, body := range tests {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.yaml")
			require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
			_, err := Load(path, true)
			assert.Error(t, err)
		})
	}
}

func TestApplyEnv(t *testing.T) {
	t.Parallel()

	dotenv := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(dotenv, []byte("GEOCONV_TEST_ONLY_FILE=1\n"), 0o644))
	lookupFile, err := EnvLookup(dotenv)
	require.NoError(t, err)
	v, ok := lookupFile("GEOCONV_TEST_ONLY_FILE")
	assert.True(t, ok)
	assert.Equal(t, "1", v)

	env := map[string]string{
		"GEOCONV_LOG_LEVEL":        "warn",
		"GEOCONV_OUTPUT_DIR":       "/tmp/out",
		"GEOCONV_SKIP_SAME_FORMAT": "false",
		"GEOCONV_GEOJSON_BBOX":     "true",
	}
	lookup := func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	}

	cfg := Default()
	require.NoError(t, cfg.ApplyEnv(lookup))
	assert.Equal(t, "warn", cfg.LogLevel)
	assert.Equal(t, "/tmp/out", cfg.OutputDir)
	assert.False(t, cfg.SkipSameFormat)
	assert.True(t, cfg.GeoJSON.BBox)

	env["GEOCONV_SUMMARY_REPORT"] = "maybe"
	assert.Error(t, Default().ApplyEnv(lookup))
}

func TestEnvLookupMissingFile(t *testing.T) {
	t.Parallel()

	lookup, err := EnvLookup(filepath.Join(t.TempDir(), ".env"))
	require.NoError(t, err)
	_, ok := lookup("GEOCONV_DEFINITELY_NOT_SET_ANYWHERE")
	assert.False(t, ok)
}

func TestConverterOptions(t *testing.T) {
	t.Parallel()

	cfg := Default()
	cfg.FieldAliases["phone"] = map[string]string{"kml": "telephone"}
	cfg.GeoJSON.BBox = true
	cfg.XML.PointElement = "place"

	opts, err := cfg.ConverterOptions()
	require.NoError(t, err)
	assert.True(t, opts.NormalizeKeys)
	assert.True(t, opts.GeoJSON.BBox)
	assert.Equal(t, "place", opts.XML.PointElement)
	assert.Equal(t, "adr", opts.FieldMap.ForFormat(types.FormatXML, "address"))
	assert.Equal(t, "telephone", opts.FieldMap.ForFormat(types.FormatKML, "phone"))

	cfg.FieldMapTemplate = filepath.Join(t.TempDir(), "missing.xlsx")
	_, err = cfg.ConverterOptions()
	assert.Error(t, err)
}

func TestWriteDefault(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, WriteDefault(path, false))
	assert.Error(t, WriteDefault(path, false))
	require.NoError(t, WriteDefault(path, true))

	cfg, err := Load(path, true)
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}
