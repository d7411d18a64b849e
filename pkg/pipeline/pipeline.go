// Package pipeline drives the external processing tools over a sealed
// registry. Pan-sharpening and COG conversion are black boxes invoked
// with resolved path tuples; nothing here reads raster data.
package pipeline

import (
	"context"
	"os"

	"github.com/rs/zerolog"

	"github.com/geoprep/panprep/pkg/logging"
	"github.com/geoprep/panprep/pkg/registry"
)

// Pansharpener fuses one MUL/PAN pair into the task's output path
type Pansharpener interface {
	Pansharpen(ctx context.Context, task registry.PansharpTask) error
}

// CogConverter converts one raster to Cloud-Optimized GeoTIFF
type CogConverter interface {
	Convert(ctx context.Context, task registry.CogTask) error
}

// Options configures one pipeline run. Cog and DeleteSource are the
// opaque flags from configuration.
type Options struct {
	Method       string
	Cog          bool
	DeleteSource bool
	DryRun       bool
}

// Summary reports what a run did. Failures are per-task and recorded,
// never fatal to the run.
type Summary struct {
	Pansharpened int
	Skipped      int
	Converted    int
	Failed       int
	Errors       []error
}

// Runner walks a registry's task views and hands each task to the
// collaborators in order.
type Runner struct {
	pansharpener Pansharpener
	converter    CogConverter
	logger       zerolog.Logger
}

// NewRunner creates a Runner with the given collaborators. converter
// may be nil when COG conversion is not requested.
func NewRunner(p Pansharpener, c CogConverter) *Runner {
	return &Runner{
		pansharpener: p,
		converter:    c,
		logger:       logging.GetLogger("pipeline"),
	}
}

// Run processes every task derived from reg. Pass-through tasks skip
// pan-sharpening. With DryRun set, tasks are logged but nothing runs.
func (r *Runner) Run(ctx context.Context, reg *registry.Registry, opts Options) (*Summary, error) {
	summary := &Summary{}

	for _, task := range reg.PansharpTasks(opts.Method) {
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		if task.Skip {
			summary.Skipped++
			r.logger.Info().Str("output", task.OutputPath).Msg("Already pansharpened, skipping")
			continue
		}
		if opts.DryRun {
			summary.Pansharpened++
			r.logger.Info().
				Str("mul", task.MulPath).
				Str("pan", task.PanPath).
				Str("output", task.OutputPath).
				Msg("Dry-run: would pansharpen")
			continue
		}
		if err := r.pansharpener.Pansharpen(ctx, task); err != nil {
			summary.Failed++
			summary.Errors = append(summary.Errors, err)
			r.logger.Error().Err(err).Str("mul", task.MulPath).Msg("Pansharpening failed")
			continue
		}
		summary.Pansharpened++
	}

	if !opts.Cog || r.converter == nil {
		return summary, nil
	}

	for _, task := range reg.CogTasks(opts.Cog, opts.DeleteSource) {
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		if opts.DryRun {
			summary.Converted++
			r.logger.Info().
				Str("input", task.InputPath).
				Str("output", task.OutputPath).
				Msg("Dry-run: would convert to COG")
			continue
		}
		if err := r.converter.Convert(ctx, task); err != nil {
			summary.Failed++
			summary.Errors = append(summary.Errors, err)
			r.logger.Error().Err(err).Str("input", task.InputPath).Msg("COG conversion failed")
			continue
		}
		summary.Converted++
		if task.DeleteSource {
			if err := os.Remove(task.InputPath); err != nil {
				r.logger.Warn().Err(err).Str("path", task.InputPath).Msg("Failed to delete source after conversion")
			}
		}
	}

	return summary, nil
}
