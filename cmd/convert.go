// =============================================================================
// Geo Format Converter - Convert Command
// =============================================================================
//
// This file defines the 'convert' command, the main command of the tool.
//
// COMMAND USAGE:
//   geoconv convert -i PATH [-x] [-k] [-g] [-o DIR] [--name-format F]
//
// FLAGS:
//   -i, --input       : Input file or directory (required)
//   -x, --xml         : Write marker XML
//   -k, --kml         : Write KML
//   -g, --geojson     : Write GeoJSON
//   -o, --output      : Output directory (overrides output_dir)
//   --name-format     : Output file name format (overrides name_format)
//   --summary         : Write a summary report (overrides summary_report)
//
// PROCESSING PIPELINE:
//   1. Load configuration
//   2. Build the conversion engine from it
//   3. Run the batch over the input
//   4. Print the summary
//
// =============================================================================

package cmd

import (
	"fmt"
	"io"
	"path/filepath"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"

	"github.com/ginjaninja78/geo-format-converter/internal/batch"
	"github.com/ginjaninja78/geo-format-converter/internal/config"
	"github.com/ginjaninja78/geo-format-converter/internal/converter"
	"github.com/ginjaninja78/geo-format-converter/internal/logging"
	"github.com/ginjaninja78/geo-format-converter/internal/types"
)

// convertOptions holds the flags of the convert command.
type convertOptions struct {
	input      string
	toXML      bool
	toKML      bool
	toGeoJSON  bool
	outputDir  string
	nameFormat string
	summary    bool
}

// targets returns the selected formats in the fixed xml, kml, geojson order.
func (o *convertOptions) targets() []types.Format {
	var out []types.Format
	if o.toXML {
		out = append(out, types.FormatXML)
	}
	if o.toKML {
		out = append(out, types.FormatKML)
	}
	if o.toGeoJSON {
		out = append(out, types.FormatGeoJSON)
	}
	return out
}

// =============================================================================
// CONVERT COMMAND DEFINITION
// =============================================================================

func newConvertCmd(global *globalOptions) *cobra.Command {
	opts := &convertOptions{}

	cmd := &cobra.Command{
		Use:   "convert",
		Short: "Convert location files to XML, KML and/or GeoJSON",
		Long: `The convert command reads a file, or every .xml, .kml, .json and .geojson file
under a directory, and writes one output per selected target format.

Each input is parsed once. A record that cannot be parsed fails the whole
file; a target that cannot be written fails only that target. Targets equal
to the input format are skipped unless skip_same_format is disabled.

The command exits with a non-zero status when any file failed.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConvert(cmd, global, opts)
		},
	}

	// ==========================================================================
	// LOCAL FLAGS
	// ==========================================================================

	cmd.Flags().StringVarP(&opts.input, "input", "i", "", "Input file or directory")
	cmd.Flags().BoolVarP(&opts.toXML, "xml", "x", false, "Write marker XML output")
	cmd.Flags().BoolVarP(&opts.toKML, "kml", "k", false, "Write KML output")
	cmd.Flags().BoolVarP(&opts.toGeoJSON, "geojson", "g", false, "Write GeoJSON output")
	cmd.Flags().StringVarP(&opts.outputDir, "output", "o", "", "Output directory (default: next to each input)")
	cmd.Flags().StringVar(&opts.nameFormat, "name-format", "", "Output file name format, e.g. {stem}_{date}.{ext}")
	cmd.Flags().BoolVar(&opts.summary, "summary", false, "Write a summary report after the run")
	_ = cmd.MarkFlagRequired("input")

	return cmd
}

// =============================================================================
// MAIN PROCESSING FUNCTION
// =============================================================================

func runConvert(cmd *cobra.Command, global *globalOptions, opts *convertOptions) error {
	targets := opts.targets()
	if len(targets) == 0 {
		return errors.New("select at least one target format (-x, -k or -g)")
	}

	// =========================================================================
	// STEP 1: LOAD CONFIGURATION
	// =========================================================================

	cfg, err := loadRuntime(cmd, global)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("output") {
		cfg.OutputDir = opts.outputDir
	}
	if cmd.Flags().Changed("name-format") {
		cfg.NameFormat = opts.nameFormat
	}
	if cmd.Flags().Changed("summary") {
		cfg.SummaryReport = opts.summary
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	// =========================================================================
	// STEP 2: BUILD THE ENGINE
	// =========================================================================

	convOpts, err := cfg.ConverterOptions()
	if err != nil {
		return err
	}
	runner := batch.NewRunner(converter.New(convOpts), batchOptions(cfg), logging.FromContext(cmd.Context()))

	// =========================================================================
	// STEP 3: RUN
	// =========================================================================

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "=== Geo Format Converter ===")
	fmt.Fprintf(out, "Converting %s\n", opts.input)

	summary, runErr := runner.Run(cmd.Context(), opts.input, targets)
	if summary == nil {
		return runErr
	}

	// =========================================================================
	// STEP 4: PRINT SUMMARY
	// =========================================================================

	printSummary(out, summary)
	return runErr
}

// batchOptions maps the configuration onto the batch runner.
func batchOptions(cfg *config.Config) batch.Options {
	opts := batch.DefaultOptions()
	opts.OutputDir = cfg.OutputDir
	opts.NameFormat = cfg.NameFormat
	opts.SkipSameFormat = cfg.SkipSameFormat
	opts.ContinueOnError = cfg.ContinueOnError
	opts.SummaryReport = cfg.SummaryReport
	return opts
}

// printSummary writes one line per file and target, then the totals.
func printSummary(out io.Writer, s *batch.Summary) {
	for _, f := range s.Files {
		name := filepath.Base(f.Input)
		switch {
		case f.Validation != nil:
			fmt.Fprintf(out, "  %s %s: %d records, %d errors, %d warnings\n",
				mark(f), name, f.Records, f.Validation.ErrorCount, f.Validation.WarningCount)
			continue
		case f.Err != nil:
			fmt.Fprintf(out, "  ✗ %s: %v\n", name, f.Err)
			continue
		case f.Skipped():
			fmt.Fprintf(out, "  - %s: skipped (same format)\n", name)
			continue
		}
		for _, t := range types.Formats {
			if path, ok := f.Outputs[t]; ok {
				fmt.Fprintf(out, "  ✓ %s -> %s\n", name, path)
			}
			if err, ok := f.TargetErrors[t]; ok {
				fmt.Fprintf(out, "  ✗ %s (%s): %v\n", name, t, err)
			}
		}
	}

	fmt.Fprintln(out, "\n=== Processing Complete ===")
	fmt.Fprintf(out, "Total files:     %d\n", s.TotalFiles)
	fmt.Fprintf(out, "Successful:      %d\n", s.Succeeded)
	fmt.Fprintf(out, "Skipped:         %d\n", s.Skipped)
	fmt.Fprintf(out, "Errors:          %d\n", s.Failed)
	fmt.Fprintf(out, "Records:         %d\n", s.TotalRecords)
	fmt.Fprintf(out, "Time elapsed:    %s\n", s.EndTime.Sub(s.StartTime))
	if s.ReportPath != "" {
		fmt.Fprintf(out, "Summary report:  %s\n", s.ReportPath)
	}
}

func mark(f batch.FileResult) string {
	if f.Failed() {
		return "✗"
	}
	return "✓"
}
