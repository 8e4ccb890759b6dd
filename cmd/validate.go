// =============================================================================
// Geo Format Converter - Validate Command
// =============================================================================
//
// This file defines the 'validate' command. It parses every input and runs
// the record validator without writing any output.
//
// COMMAND USAGE:
//   geoconv validate -i PATH [--require-name] [--strict]
//
// EXIT STATUS:
//   Non-zero when a file cannot be parsed or has validation errors.
//   Warnings (unnamed records, duplicates, non-numeric altitude) are only
//   reported, unless --strict is given.
//
// =============================================================================

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ginjaninja78/geo-format-converter/internal/batch"
	"github.com/ginjaninja78/geo-format-converter/internal/converter"
	"github.com/ginjaninja78/geo-format-converter/internal/logging"
)

// validateOptions holds the flags of the validate command.
type validateOptions struct {
	input       string
	requireName bool
	strict      bool
}

func newValidateCmd(global *globalOptions) *cobra.Command {
	opts := &validateOptions{}

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Check input files without converting them",
		Long: `The validate command parses each input file with the same rules as convert
and reports every record-level problem it finds. Nothing is written.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(cmd, global, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.input, "input", "i", "", "Input file or directory")
	cmd.Flags().BoolVar(&opts.requireName, "require-name", false, "Treat records without a name as errors")
	cmd.Flags().BoolVar(&opts.strict, "strict", false, "Treat warnings as errors")
	_ = cmd.MarkFlagRequired("input")

	return cmd
}

func runValidate(cmd *cobra.Command, global *globalOptions, opts *validateOptions) error {
	cfg, err := loadRuntime(cmd, global)
	if err != nil {
		return err
	}

	convOpts, err := cfg.ConverterOptions()
	if err != nil {
		return err
	}

	bopts := batchOptions(cfg)
	bopts.Validation.RequireName = opts.requireName
	bopts.Validation.TreatWarningsAsErrors = opts.strict
	runner := batch.NewRunner(converter.New(convOpts), bopts, logging.FromContext(cmd.Context()))

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "=== Geo Format Converter ===")
	fmt.Fprintf(out, "Validating %s\n", opts.input)

	summary, runErr := runner.Check(cmd.Context(), opts.input)
	if summary == nil {
		return runErr
	}

	printSummary(out, summary)
	return runErr
}
