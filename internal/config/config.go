// =============================================================================
// Geo Format Converter - Configuration Module
// =============================================================================
//
// This module loads the application configuration. The conversion engine
// never reads it directly; the CLI turns it into converter.Options and
// batch.Options.
//
// PRECEDENCE (lowest to highest):
//   1. Built-in defaults (Default())
//   2. config.yaml (missing file at the default path means "use defaults")
//   3. .env file in the working directory (via godotenv)
//   4. GEOCONV_* environment variables
//   5. Command line flags (applied by the cmd package)
//
// =============================================================================

package config

import (
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/ginjaninja78/geo-format-converter/internal/converter"
	"github.com/ginjaninja78/geo-format-converter/internal/fieldmap"
	"github.com/ginjaninja78/geo-format-converter/internal/geojsonformat"
	"github.com/ginjaninja78/geo-format-converter/internal/kmlformat"
	"github.com/ginjaninja78/geo-format-converter/internal/xmlformat"
)

// DefaultPath is the configuration file used when --config is not given.
const DefaultPath = "config.yaml"

// EnvPrefix is the prefix of every environment override.
const EnvPrefix = "GEOCONV_"

// =============================================================================
// CONFIGURATION STRUCTURE
// =============================================================================

// Config holds the application configuration.
type Config struct {
	// =========================================================================
	// LOGGING SETTINGS
	// =========================================================================

	// LogLevel controls the verbosity of logging.
	// Valid values: "debug", "info", "warn", "error"
	// Default: "info"
	LogLevel string `yaml:"log_level"`

	// LogFormat selects the slog handler.
	// Valid values: "text", "json"
	// Default: "text"
	LogFormat string `yaml:"log_format"`

	// =========================================================================
	// OUTPUT SETTINGS
	// =========================================================================

	// OutputDir is where converted files are written. Nested input
	// directories are mirrored underneath it. Empty writes each output next
	// to its input file.
	// Default: ""
	OutputDir string `yaml:"output_dir"`

	// NameFormat defines output file names.
	// Placeholders:
	//   {stem}      - input file name without extension
	//   {ext}       - target extension (xml, kml, geojson)
	//   {format}    - target format name
	//   {uuid}      - a random UUID
	//   {timestamp} - current timestamp (YYYYMMDD_HHMMSS)
	//   {date}      - current date (YYYYMMDD)
	// Default: "{stem}.{ext}"
	NameFormat string `yaml:"name_format"`

	// =========================================================================
	// PROCESSING SETTINGS
	// =========================================================================

	// SkipSameFormat skips targets equal to the input format.
	// Default: true
	SkipSameFormat bool `yaml:"skip_same_format"`

	// ContinueOnError keeps a batch going after a file fails.
	// Default: true
	ContinueOnError bool `yaml:"continue_on_error"`

	// SummaryReport writes conversion_summary_<timestamp>.txt after a batch.
	// Default: false
	SummaryReport bool `yaml:"summary_report"`

	// =========================================================================
	// ATTRIBUTE SETTINGS
	// =========================================================================

	// NormalizeKeys lowercases attribute keys on parse.
	// Default: true
	NormalizeKeys bool `yaml:"normalize_keys"`

	// NameKeys are the GeoJSON properties tried, in order, for the record name.
	// Default: ["name", "title"]
	NameKeys []string `yaml:"name_keys"`

	// FieldAliases maps a canonical attribute key to its per-format spelling.
	// Example:
	//   field_aliases:
	//     address: { xml: adr }
	FieldAliases map[string]map[string]string `yaml:"field_aliases"`

	// FieldMapTemplate is an optional XLSX workbook with more aliases.
	// Default: ""
	FieldMapTemplate string `yaml:"field_map_template"`

	// =========================================================================
	// FORMAT SETTINGS
	// =========================================================================

	GeoJSON GeoJSONConfig `yaml:"geojson"`
	XML     XMLConfig     `yaml:"xml"`
	KML     KMLConfig     `yaml:"kml"`
}

// GeoJSONConfig holds GeoJSON writer settings.
type GeoJSONConfig struct {
	// BBox adds a bounding box to written FeatureCollections.
	// Default: false
	BBox bool `yaml:"bbox"`

	// Indent is the indentation unit. Empty writes compact JSON.
	// Default: "  "
	Indent string `yaml:"indent"`
}

// XMLConfig holds XML writer settings.
type XMLConfig struct {
	// RootElement is the document element.
	// Default: "markers"
	RootElement string `yaml:"root_element"`

	// PointElement is the per-record element.
	// Default: "marker"
	PointElement string `yaml:"point_element"`

	// Default: "  "
	Indent string `yaml:"indent"`
}

// KMLConfig holds KML writer settings.
type KMLConfig struct {
	// Default: "  "
	Indent string `yaml:"indent"`
}

// =============================================================================
// LOADING
// =============================================================================

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		LogLevel:        "info",
		LogFormat:       "text",
		NameFormat:      "{stem}.{ext}",
		SkipSameFormat:  true,
		ContinueOnError: true,
		NormalizeKeys:   true,
		NameKeys:        []string{"name", "title"},
		FieldAliases: map[string]map[string]string{
			"address": {"xml": "adr"},
		},
		GeoJSON: GeoJSONConfig{Indent: "  "},
		XML:     XMLConfig{RootElement: "markers", PointElement: "marker", Indent: "  "},
		KML:     KMLConfig{Indent: "  "},
	}
}

// Load reads the configuration file at path on top of the defaults. When the
// file does not exist, Load returns the defaults unless mustExist is set.
func Load(path string, mustExist bool) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist) && !mustExist:
		// Defaults only.
	case err != nil:
		return nil, errors.Wrap(err, "failed to read config file")
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, errors.Wrap(err, "failed to parse config file")
		}
	}

	applyDefaults(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid configuration")
	}
	return cfg, nil
}

// applyDefaults fills settings left empty by the file.
func applyDefaults(cfg *Config) {
	def := Default()
	if cfg.LogLevel == "" {
		cfg.LogLevel = def.LogLevel
	}
	if cfg.LogFormat == "" {
		cfg.LogFormat = def.LogFormat
	}
	if cfg.NameFormat == "" {
		cfg.NameFormat = def.NameFormat
	}
	if len(cfg.NameKeys) == 0 {
		cfg.NameKeys = def.NameKeys
	}
	if cfg.XML.RootElement == "" {
		cfg.XML.RootElement = def.XML.RootElement
	}
	if cfg.XML.PointElement == "" {
		cfg.XML.PointElement = def.XML.PointElement
	}
}

// Validate checks settings that cannot be fixed by defaults.
func (c *Config) Validate() error {
	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return errors.Newf("log_level %q must be one of debug, info, warn, error", c.LogLevel)
	}
	switch strings.ToLower(c.LogFormat) {
	case "text", "json":
	default:
		return errors.Newf("log_format %q must be text or json", c.LogFormat)
	}
	if !strings.Contains(c.NameFormat, "{stem}") && !strings.Contains(c.NameFormat, "{uuid}") {
		return errors.Newf("name_format %q must contain {stem} or {uuid} so outputs do not overwrite each other", c.NameFormat)
	}
	for name, indent := range map[string]string{
		"geojson.indent": c.GeoJSON.Indent,
		"xml.indent":     c.XML.Indent,
		"kml.indent":     c.KML.Indent,
	} {
		if strings.TrimSpace(indent) != "" {
			return errors.Newf("%s must contain only whitespace", name)
		}
	}
	if _, err := fieldmap.FromConfig(c.FieldAliases); err != nil {
		return err
	}
	return nil
}

// =============================================================================
// ENVIRONMENT OVERRIDES
// =============================================================================

// EnvLookup returns a lookup that prefers the process environment and falls
// back to the variables of a .env file. A missing .env file is not an error.
func EnvLookup(dotenvPath string) (func(string) (string, bool), error) {
	fileVars := map[string]string{}
	if dotenvPath != "" {
		vars, err := godotenv.Read(dotenvPath)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return nil, errors.Wrapf(err, "failed to read %s", dotenvPath)
		default:
			fileVars = vars
		}
	}
	return func(key string) (string, bool) {
		if v, ok := os.LookupEnv(key); ok {
			return v, true
		}
		v, ok := fileVars[key]
		return v, ok
	}, nil
}

// ApplyEnv overrides settings from GEOCONV_* variables and validates the
// result.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	strVars := map[string]*string{
		"LOG_LEVEL":          &c.LogLevel,
		"LOG_FORMAT":         &c.LogFormat,
		"OUTPUT_DIR":         &c.OutputDir,
		"NAME_FORMAT":        &c.NameFormat,
		"FIELD_MAP_TEMPLATE": &c.FieldMapTemplate,
	}
	for name, dst := range strVars {
		if v, ok := lookup(EnvPrefix + name); ok {
			*dst = v
		}
	}

	boolVars := map[string]*bool{
		"SKIP_SAME_FORMAT":  &c.SkipSameFormat,
		"CONTINUE_ON_ERROR": &c.ContinueOnError,
		"SUMMARY_REPORT":    &c.SummaryReport,
		"GEOJSON_BBOX":      &c.GeoJSON.BBox,
	}
	for name, dst := range boolVars {
		v, ok := lookup(EnvPrefix + name)
		if !ok {
			continue
		}
		b, err := strconv.ParseBool(v)
		if err != nil {
			return errors.Newf("%s%s=%q is not a boolean", EnvPrefix, name, v)
		}
		*dst = b
	}

	applyDefaults(c)
	return c.Validate()
}

// =============================================================================
// ENGINE OPTIONS
// =============================================================================

// FieldMap builds the attribute alias table: built-in aliases, then the
// field_aliases block, then the XLSX template.
func (c *Config) FieldMap() (*fieldmap.Map, error) {
	m := fieldmap.Default()

	fromConfig, err := fieldmap.FromConfig(c.FieldAliases)
	if err != nil {
		return nil, err
	}
	m.Merge(fromConfig)

	if c.FieldMapTemplate != "" {
		fromTemplate, err := fieldmap.LoadTemplate(c.FieldMapTemplate)
		if err != nil {
			return nil, errors.Wrapf(err, "field_map_template %s", c.FieldMapTemplate)
		}
		m.Merge(fromTemplate)
	}
	return m, nil
}

// ConverterOptions translates the configuration into engine options.
func (c *Config) ConverterOptions() (converter.Options, error) {
	fm, err := c.FieldMap()
	if err != nil {
		return converter.Options{}, err
	}

	xmlOpts := xmlformat.DefaultOptions()
	xmlOpts.RootElement = c.XML.RootElement
	xmlOpts.PointElement = c.XML.PointElement
	xmlOpts.Indent = c.XML.Indent

	kmlOpts := kmlformat.DefaultOptions()
	kmlOpts.Indent = c.KML.Indent

	geoOpts := geojsonformat.DefaultOptions()
	geoOpts.NameKeys = c.NameKeys
	geoOpts.BBox = c.GeoJSON.BBox
	geoOpts.Indent = c.GeoJSON.Indent

	return converter.Options{
		FieldMap:      fm,
		NormalizeKeys: c.NormalizeKeys,
		XML:           xmlOpts,
		KML:           kmlOpts,
		GeoJSON:       geoOpts,
	}, nil
}

// =============================================================================
// WRITING
// =============================================================================

// WriteDefault writes the default configuration to path. An existing file is
// only replaced when force is set.
func WriteDefault(path string, force bool) error {
	if !force {
		if _, err := os.Stat(path); err == nil {
			return errors.Newf("%s already exists (use --force to overwrite)", path)
		}
	}

	data, err := yaml.Marshal(Default())
	if err != nil {
		return errors.Wrap(err, "failed to encode default config")
	}
	header := "# Geo Format Converter configuration\n" +
		"# Environment variables prefixed with " + EnvPrefix + " override these settings.\n\n"
	if err := os.WriteFile(path, append([]byte(header), data...), 0o644); err != nil {
		return errors.Wrap(err, "failed to write config file")
	}
	return nil
}
