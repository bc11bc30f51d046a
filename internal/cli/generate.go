package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"ovid/internal/manager"
	"ovid/pkg/types"
)

func newGenerateCmd(a *app) *cobra.Command {
	req := types.NewGenerateRequest("")
	var (
		out  string
		seed int64
	)
	cmd := &cobra.Command{
		Use:     "generate PROMPT",
		Short:   "Generate a video clip with a local model",
		Example: "  ovid generate \"a neon city at night\" --frames 24 --seed 42",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req.Prompt = args[0]
			if cmd.Flags().Changed("seed") {
				req.Seed = &seed
			}
			res, err := a.manager().Generate(cmd.Context(), req, manager.GenerateOptions{OutputPath: out})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", res.Path)
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&req.Model, "model", "", "Model name (defaults to the configured or first local model)")
	f.StringVar(&out, "out", "", "Output file (defaults to <outputs>/<job id>.mp4)")
	f.IntVar(&req.Frames, "frames", types.DefaultFrames, "Number of frames (1-240)")
	f.IntVar(&req.FPS, "fps", types.DefaultFPS, "Frames per second (1-60)")
	f.IntVar(&req.Width, "width", types.DefaultWidth, "Frame width (128-1024)")
	f.IntVar(&req.Height, "height", types.DefaultHeight, "Frame height (128-1024)")
	f.IntVar(&req.Steps, "steps", types.DefaultSteps, "Denoising steps (5-60)")
	f.Float64Var(&req.Guidance, "guidance", types.DefaultGuidance, "Guidance scale (1.0-15.0)")
	f.StringVar(&req.NegativePrompt, "negative", "", "Negative prompt")
	f.Int64Var(&seed, "seed", 0, "Seed for deterministic output")
	return cmd
}
