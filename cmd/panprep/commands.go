package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/geoprep/panprep/pkg/config"
	"github.com/geoprep/panprep/pkg/pairing"
	"github.com/geoprep/panprep/pkg/pipeline"
	"github.com/geoprep/panprep/pkg/registry"
)

var (
	dryRun      bool
	resumeCSV   string
	pansharpCmd []string
	cogCmd      []string
)

func init() {
	runCmd.Flags().BoolVar(&dryRun, "dry-run", false, "Log tasks without invoking the external tools")
	runCmd.Flags().StringVar(&resumeCSV, "from-csv", "", "Resume from a previously exported registry instead of rescanning")
	runCmd.Flags().StringSliceVar(&pansharpCmd, "pansharp-cmd", nil, "Pan-sharpening argv template ({mul} {pan} {output} {method})")
	runCmd.Flags().StringSliceVar(&cogCmd, "cog-cmd", nil, "COG conversion argv template ({input} {output})")
}

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Scan the base directory and export the pairing registry",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(paramFile)
		if err != nil {
			return err
		}
		reg, err := scan(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		return exportRegistry(cfg, reg, cmd)
	},
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Scan (or resume from csv) and drive the processing tools",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(paramFile)
		if err != nil {
			return err
		}

		var reg *registry.Registry
		if resumeCSV != "" {
			f, err := os.Open(resumeCSV)
			if err != nil {
				return err
			}
			defer f.Close()
			reg, err = registry.ReadCSV(f, cfg.Glob.BaseDir)
			if err != nil {
				return err
			}
		} else {
			reg, err = scan(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			if err := exportRegistry(cfg, reg, cmd); err != nil {
				return err
			}
		}

		if !reg.Complete() {
			log.Warn().
				Int("unresolved", len(reg.UnresolvedEntries())).
				Msg("Registry has unresolved entries; only resolved pairs will be processed")
		}

		runner := pipeline.NewRunner(
			&pipeline.ExecPansharpener{Command: pansharpCmd},
			&pipeline.ExecCogConverter{Command: cogCmd},
		)
		summary, err := runner.Run(cmd.Context(), reg, pipeline.Options{
			Method:       cfg.Process.Method,
			Cog:          cfg.Process.Cog,
			DeleteSource: cfg.Process.CogDeleteSource,
			DryRun:       dryRun || cfg.Process.DryRun,
		})
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(),
			"pansharpened: %d  skipped: %d  cogged: %d  failed: %d\n",
			summary.Pansharpened, summary.Skipped, summary.Converted, summary.Failed)
		return nil
	},
}

func scan(ctx context.Context, cfg *config.Config) (*registry.Registry, error) {
	rs, err := cfg.RuleSet()
	if err != nil {
		return nil, err
	}
	if cfg.Process.ScanTimeoutSec > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(cfg.Process.ScanTimeoutSec)*time.Second)
		defer cancel()
	}
	return pairing.New(cfg.Deriver()).Pair(ctx, cfg.Glob.BaseDir, rs)
}

func exportRegistry(cfg *config.Config, reg *registry.Registry, cmd *cobra.Command) error {
	if cfg.Glob.OutCSV == "" {
		return reg.WriteCSV(cmd.OutOrStdout())
	}
	f, err := os.Create(cfg.Glob.OutCSV)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := reg.WriteCSV(f); err != nil {
		return err
	}
	log.Info().Str("path", cfg.Glob.OutCSV).Int("records", reg.Len()).Msg("Registry exported")
	return nil
}
