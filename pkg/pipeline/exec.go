package pipeline

import (
	"context"
	"os/exec"
	"strings"

	"github.com/geoprep/panprep/pkg/errors"
	"github.com/geoprep/panprep/pkg/registry"
)

// Command placeholders substituted before execution
const (
	placeholderMul    = "{mul}"
	placeholderPan    = "{pan}"
	placeholderInput  = "{input}"
	placeholderOutput = "{output}"
	placeholderMethod = "{method}"
)

// ExecPansharpener shells out to an external pan-sharpening tool. The
// command is an argv template, e.g.
//
//	["otbcli_BundleToPerfectSensor", "-inp", "{pan}", "-inxs", "{mul}", "-out", "{output}"]
type ExecPansharpener struct {
	Command []string
}

// Pansharpen runs the command with task paths substituted
func (e *ExecPansharpener) Pansharpen(ctx context.Context, task registry.PansharpTask) error {
	argv := expand(e.Command, map[string]string{
		placeholderMul:    task.MulPath,
		placeholderPan:    task.PanPath,
		placeholderOutput: task.OutputPath,
		placeholderMethod: task.Method,
	})
	if len(argv) == 0 {
		return errors.New(errors.ErrCollaborator, "pansharpener command is empty")
	}
	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	if out, err := cmd.CombinedOutput(); err != nil {
		return errors.Wrapf(err, errors.ErrCollaborator, "%s: %s", argv[0], strings.TrimSpace(string(out)))
	}
	return nil
}

// ExecCogConverter shells out to an external COG conversion tool
type ExecCogConverter struct {
	Command []string
}

// Convert runs the command with task paths substituted
func (e *ExecCogConverter) Convert(ctx context.Context, task registry.CogTask) error {
	argv := expand(e.Command, map[string]string{
		placeholderInput:  task.InputPath,
		placeholderOutput: task.OutputPath,
	})
	if len(argv) == 0 {
		return errors.New(errors.ErrCollaborator, "cog converter command is empty")
	}
	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	if out, err := cmd.CombinedOutput(); err != nil {
		return errors.Wrapf(err, errors.ErrCollaborator, "%s: %s", argv[0], strings.TrimSpace(string(out)))
	}
	return nil
}

func expand(template []string, vars map[string]string) []string {
	out := make([]string, len(template))
	for i, arg := range template {
		for k, v := range vars {
			arg = strings.ReplaceAll(arg, k, v)
		}
		out[i] = arg
	}
	return out
}
