// =============================================================================
// Geo Format Converter - Main Entry Point
// =============================================================================
//
// USAGE:
//   geoconv convert -i PATH -x -k -g  - Convert files between formats
//   geoconv validate -i PATH          - Check files without converting them
//   geoconv config init               - Write a default config.yaml
//   geoconv version                   - Display the application version
//
// ARCHITECTURE:
//   - cmd/                    : CLI command definitions (Cobra)
//   - internal/types          : Record, Collection, Format and error types
//   - internal/coords         : Coordinate parsing, ranges and axis order
//   - internal/xmlformat      : Marker XML parser and writer
//   - internal/kmlformat      : KML parser and writer
//   - internal/geojsonformat  : GeoJSON parser and writer
//   - internal/converter      : The conversion engine
//   - internal/validation     : Record validation rules
//   - internal/fieldmap       : Per-format attribute key aliases
//   - internal/batch          : File discovery, output naming, batch runs
//   - internal/config         : config.yaml, .env and environment overrides
//   - internal/logging        : slog setup
//
// =============================================================================

package main

import (
	"github.com/ginjaninja78/geo-format-converter/cmd"
)

func main() {
	cmd.Execute()
}
