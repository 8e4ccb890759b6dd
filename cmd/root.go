// =============================================================================
// Geo Format Converter - Root Command
// =============================================================================
//
// This file defines the root command for the Cobra CLI. Every subcommand is
// attached to it.
//
// COBRA CLI STRUCTURE:
//   geoconv
//   ├── convert   (geoconv convert -i PATH -x -k -g)
//   ├── validate  (geoconv validate -i PATH)
//   ├── config
//   │   └── init  (geoconv config init)
//   └── version
//
// CONFIGURATION:
//   The root command owns the global flags (--config, --verbose). Commands
//   that need configuration call loadRuntime, which loads config.yaml, the
//   .env file and GEOCONV_* overrides, then builds the logger.
//
// =============================================================================

package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ginjaninja78/geo-format-converter/internal/config"
	"github.com/ginjaninja78/geo-format-converter/internal/logging"
)

// dotenvPath is the .env file read from the working directory.
const dotenvPath = ".env"

// =============================================================================
// GLOBAL OPTIONS
// =============================================================================

// globalOptions holds the persistent flags shared by every subcommand.
type globalOptions struct {
	// cfgFile holds the path to the configuration file.
	cfgFile string

	// verbose forces debug logging.
	verbose bool
}

// =============================================================================
// ROOT COMMAND DEFINITION
// =============================================================================

// NewRootCmd builds the command tree. Each call returns an independent tree.
func NewRootCmd() *cobra.Command {
	opts := &globalOptions{}

	rootCmd := &cobra.Command{
		Use:   "geoconv",
		Short: "Geo Format Converter - Convert point locations between XML, KML and GeoJSON",
		Long: `Geo Format Converter reads point-location documents in a simple marker XML
dialect, KML 2.2 or GeoJSON, and writes them out in any of the other formats.

Key Features:
  - One parse, many targets: -x, -k and -g can be combined
  - Whole directory trees, mirrored under the output directory
  - Strict coordinate validation with record-level error reporting
  - Attribute key aliases per format, from config.yaml or an XLSX template

Example Usage:
  geoconv convert -i places.xml -k -g     # Write places.kml and places.geojson
  geoconv convert -i ./data -g -o ./out   # Convert a whole tree to GeoJSON
  geoconv validate -i ./data              # Check inputs without writing anything
  geoconv config init                     # Write a default config.yaml`,

		SilenceUsage:  true,
		SilenceErrors: true,

		// Without a subcommand, print the help message.
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	// ==========================================================================
	// PERSISTENT FLAGS
	// ==========================================================================

	rootCmd.PersistentFlags().StringVar(
		&opts.cfgFile,
		"config",
		config.DefaultPath,
		"Path to the configuration file",
	)
	rootCmd.PersistentFlags().BoolVarP(
		&opts.verbose,
		"verbose",
		"v",
		false,
		"Enable verbose output for debugging",
	)

	rootCmd.AddCommand(
		newConvertCmd(opts),
		newValidateCmd(opts),
		newConfigCmd(opts),
		newVersionCmd(),
	)

	return rootCmd
}

// =============================================================================
// EXECUTE FUNCTION
// =============================================================================

// Execute runs the CLI. It is called by main.main().
func Execute() {
	if err := NewRootCmd().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// =============================================================================
// RUNTIME SETUP
// =============================================================================

// loadRuntime loads the configuration and attaches a logger to the command
// context. An explicit --config must exist; the default path may be absent.
func loadRuntime(cmd *cobra.Command, opts *globalOptions) (*config.Config, error) {
	explicit := cmd.Flags().Changed("config")

	cfg, err := config.Load(opts.cfgFile, explicit)
	if err != nil {
		return nil, err
	}

	lookup, err := config.EnvLookup(dotenvPath)
	if err != nil {
		return nil, err
	}
	if err := cfg.ApplyEnv(lookup); err != nil {
		return nil, err
	}

	if opts.verbose {
		cfg.LogLevel = "debug"
	}

	logger := logging.New(cmd.ErrOrStderr(), cfg.LogLevel, cfg.LogFormat)
	cmd.SetContext(logging.WithLogger(cmd.Context(), logger))

	logger.Debug("configuration loaded", "path", opts.cfgFile, "explicit", explicit)
	return cfg, nil
}
