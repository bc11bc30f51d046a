// Package pipeline dispatches generation jobs to the implementation that matches a
// model's declared pipeline kind.
package pipeline

import (
	"context"
	"sort"

	"ovid/pkg/types"
)

// Params are the normalized generation parameters handed to a pipeline.
type Params struct {
	Prompt         string
	NegativePrompt string
	Frames         int
	FPS            int
	Width          int
	Height         int
	Steps          int
	Guidance       float64
	Seed           *int64
	// OutputPath is where the finished video must be written.
	OutputPath string
}

// ParamsFromRequest copies a validated request into Params.
func ParamsFromRequest(req types.GenerateRequest, outputPath string) Params {
	return Params{
		Prompt:         req.Prompt,
		NegativePrompt: req.NegativePrompt,
		Frames:         req.Frames,
		FPS:            req.FPS,
		Width:          req.Width,
		Height:         req.Height,
		Steps:          req.Steps,
		Guidance:       req.Guidance,
		Seed:           req.Seed,
		OutputPath:     outputPath,
	}
}

// Pipeline turns a prompt into a video file for models of one kind.
type Pipeline interface {
	Kind() string
	Generate(ctx context.Context, model types.ModelDescriptor, p Params) error
}

// Dispatcher routes a model to the Pipeline registered for its kind.
type Dispatcher struct {
	byKind map[string]Pipeline
}

// NewDispatcher registers ps by kind. A later pipeline of the same kind replaces an earlier one.
func NewDispatcher(ps ...Pipeline) *Dispatcher {
	d := &Dispatcher{byKind: make(map[string]Pipeline, len(ps))}
	for _, p := range ps {
		d.byKind[p.Kind()] = p
	}
	return d
}

// Kinds returns the registered kinds sorted.
func (d *Dispatcher) Kinds() []string {
	out := make([]string, 0, len(d.byKind))
	for k := range d.byKind {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Generate runs the pipeline matching model.Pipeline.
func (d *Dispatcher) Generate(ctx context.Context, model types.ModelDescriptor, p Params) error {
	pl, ok := d.byKind[model.Pipeline]
	if !ok {
		return &UnsupportedPipelineError{Pipeline: model.Pipeline, Supported: d.Kinds()}
	}
	return pl.Generate(ctx, model, p)
}
