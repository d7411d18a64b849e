package main

import (
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/geoprep/panprep/internal/version"
	"github.com/geoprep/panprep/pkg/logging"
)

var (
	verbosity int
	paramFile string

	rootCmd = &cobra.Command{
		Use:   "panprep",
		Short: "Discover, pair and name satellite raster assets for pan-sharpening",
		Long: `panprep scans inconsistent vendor directory layouts for multispectral
and panchromatic raster pairs, recognizes already pan-sharpened assets,
derives deterministic output names, and hands resolved path tuples to
the external pan-sharpening and COG-conversion tools.`,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logging.SetupLogger(verbosity)
			log.Debug().Str("command", cmd.Name()).Msg("Command started")
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}
)

// Execute runs the root command. Called once from main.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().CountVarP(&verbosity, "verbose", "v", "Increase verbosity (-v INFO, -vv DEBUG, -vvv TRACE)")
	rootCmd.PersistentFlags().StringVarP(&paramFile, "params", "p", "params.yaml", "Path to the YAML parameter file")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(scanCmd)
	rootCmd.AddCommand(runCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("panprep version %s\n", version.Version)
		fmt.Printf("  commit: %s\n", version.Commit)
		fmt.Printf("  built:  %s\n", version.Date)
	},
}
