package manager

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"ovid/internal/common/fsutil"
	"ovid/internal/pipeline"
	"ovid/pkg/types"
)

// OutputsURLPrefix is the HTTP path outputs are served under.
const OutputsURLPrefix = "/outputs/"

// GenerateOptions adjust a single Generate call.
type GenerateOptions struct {
	// OutputPath overrides the job's output location. The result then
	// reports the path instead of an /outputs/ URI.
	OutputPath string
}

// Generate validates req, resolves its model, waits for the device and runs the
// model's pipeline. Validation happens before any filesystem or device access.
// The pipeline writes to a temporary file next to the output path which is renamed
// into place on success, so a failed run never touches an existing file there.
func (m *Manager) Generate(ctx context.Context, req types.GenerateRequest, opts GenerateOptions) (types.GenerateResult, error) {
	if err := req.Validate(); err != nil {
		return types.GenerateResult{}, &Error{Kind: KindInvalidRequest, Msg: err.Error(), Err: err}
	}
	model, err := m.ResolveModel(req.Model)
	if err != nil {
		return types.GenerateResult{}, err
	}

	id := m.newID()
	outPath := opts.OutputPath
	outRef := ""
	if outPath == "" {
		outPath = filepath.Join(m.settings.OutputsDir, id+".mp4")
		outRef = OutputsURLPrefix + id + ".mp4"
	} else {
		abs, err := filepath.Abs(outPath)
		if err != nil {
			return types.GenerateResult{}, &Error{Kind: KindInternal, Msg: fmt.Sprintf("output path: %v", err), Err: err}
		}
		outPath = abs
		outRef = abs
	}
	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return types.GenerateResult{}, &Error{Kind: KindInternal, Msg: fmt.Sprintf("create outputs dir: %v", err), Err: err}
	}

	log := m.log.With().Str("job", id).Str("model", model.Name).Str("pipeline", model.Pipeline).Logger()
	release, err := m.beginGeneration(ctx)
	if err != nil {
		if IsTooBusy(err) {
			m.publisher.Publish(Event{Name: EventGenerateRejected, JobID: id, Model: model.Name})
		}
		log.Warn().Err(err).Msg("generation not admitted")
		return types.GenerateResult{}, err
	}
	defer release()

	m.publisher.Publish(Event{Name: EventGenerateStart, JobID: id, Model: model.Name, Fields: map[string]any{"output": outPath}})
	log.Info().Int("frames", req.Frames).Int("steps", req.Steps).Msg("generation started")
	start := time.Now()
	workPath := partialPath(outPath, id)
	runErr := m.pipelines.Generate(ctx, model, pipeline.ParamsFromRequest(req, workPath))
	if runErr == nil {
		if err := os.Rename(workPath, outPath); err != nil {
			runErr = &pipeline.RuntimeError{Msg: "move output into place", Err: err}
		}
	}
	elapsed := time.Since(start)
	generationSeconds.WithLabelValues(model.Pipeline).Observe(elapsed.Seconds())

	if runErr != nil {
		if rmErr := fsutil.RemoveIfExists(workPath); rmErr != nil {
			log.Warn().Err(rmErr).Msg("remove partial output")
		}
		merr := classifyPipelineError(runErr)
		m.failures.Add(1)
		m.setLastError(merr.Error())
		generationsTotal.WithLabelValues(model.Pipeline, string(merr.Kind)).Inc()
		m.publisher.Publish(Event{Name: EventGenerateFailed, JobID: id, Model: model.Name, Fields: map[string]any{"kind": string(merr.Kind), "error": merr.Error()}})
		log.Error().Err(runErr).Str("kind", string(merr.Kind)).Dur("elapsed", elapsed).Msg("generation failed")
		return types.GenerateResult{}, merr
	}

	m.generations.Add(1)
	generationsTotal.WithLabelValues(model.Pipeline, "ok").Inc()
	m.publisher.Publish(Event{Name: EventGenerateDone, JobID: id, Model: model.Name, Fields: map[string]any{"duration_ms": elapsed.Milliseconds()}})
	log.Info().Dur("elapsed", elapsed).Str("output", outPath).Msg("generation finished")
	return types.GenerateResult{ID: id, Status: "ok", Output: outRef, Path: outPath}, nil
}

// partialPath names the in-progress file for outPath. It keeps the extension
// because workers pick the container format from it.
func partialPath(outPath, id string) string {
	ext := filepath.Ext(outPath)
	return filepath.Join(filepath.Dir(outPath), "."+id+".partial"+ext)
}
