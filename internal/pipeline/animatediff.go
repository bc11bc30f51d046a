package pipeline

import (
	"context"
	"errors"
	"path/filepath"

	"ovid/internal/common/fsutil"
	"ovid/pkg/types"
)

// KindAnimateDiff is the pipeline value of AnimateDiff models.
const KindAnimateDiff = "animatediff"

// Manifest keys an AnimateDiff model must declare.
const (
	KeyAdapterPath   = "adapter_path"
	KeyBaseModelPath = "base_model_path"
)

// AnimateDiff checks the motion adapter and base model dependencies of a model and
// the accelerator before handing the job to its Runner.
type AnimateDiff struct {
	Accelerator Accelerator
	Runner      Runner
}

func (a *AnimateDiff) Kind() string { return KindAnimateDiff }

// Generate validates in order: manifest keys, dependency paths, accelerator. Only then
// is the runner invoked.
func (a *AnimateDiff) Generate(ctx context.Context, model types.ModelDescriptor, p Params) error {
	deps, err := ResolveDependencies(model, KindAnimateDiff, KeyAdapterPath, KeyBaseModelPath)
	if err != nil {
		return err
	}
	if a.Accelerator != nil {
		if err := a.Accelerator.Check(ctx); err != nil {
			return &HardwareUnavailableError{Requirement: "CUDA GPU", Err: err}
		}
	}
	if a.Runner == nil {
		return &RuntimeError{Msg: "no inference worker configured"}
	}
	job := Job{
		Pipeline:       KindAnimateDiff,
		Model:          model.Name,
		ModelPath:      model.Path,
		AdapterPath:    deps[KeyAdapterPath],
		BaseModelPath:  deps[KeyBaseModelPath],
		Prompt:         p.Prompt,
		NegativePrompt: p.NegativePrompt,
		Frames:         p.Frames,
		FPS:            p.FPS,
		Width:          p.Width,
		Height:         p.Height,
		Steps:          p.Steps,
		Guidance:       p.Guidance,
		Seed:           p.Seed,
		OutputPath:     p.OutputPath,
	}
	if err := a.Runner.Run(ctx, job); err != nil {
		var re *RuntimeError
		if errors.As(err, &re) {
			return err
		}
		return &RuntimeError{Msg: "inference failed", Err: err}
	}
	return nil
}

// ResolveDependencies reads keys from the model's extra fields as paths. Every missing
// key is reported together. Relative paths resolve against the model directory, then
// the working directory, and each path must exist.
func ResolveDependencies(model types.ModelDescriptor, pipelineKind string, keys ...string) (map[string]string, error) {
	var missing []string
	raw := make(map[string]string, len(keys))
	for _, k := range keys {
		v, ok := model.Extra.String(k)
		if !ok {
			missing = append(missing, k)
			continue
		}
		raw[k] = v
	}
	if len(missing) > 0 {
		return nil, &MissingConfigError{Pipeline: pipelineKind, Keys: missing}
	}
	out := make(map[string]string, len(keys))
	for _, k := range keys {
		p, err := fsutil.ExpandHome(raw[k])
		if err != nil {
			return nil, &PathNotFoundError{Key: k, Path: raw[k]}
		}
		resolved, ok := resolveDependencyPath(model.Path, p)
		if !ok {
			return nil, &PathNotFoundError{Key: k, Path: resolved}
		}
		out[k] = resolved
	}
	return out, nil
}

// resolveDependencyPath returns the first existing candidate for p. When none exists
// it returns the model-directory candidate for error reporting.
func resolveDependencyPath(modelDir, p string) (string, bool) {
	if filepath.IsAbs(p) {
		p = filepath.Clean(p)
		return p, fsutil.PathExists(p)
	}
	inModel := filepath.Join(modelDir, p)
	if fsutil.PathExists(inModel) {
		return inModel, true
	}
	if abs, err := filepath.Abs(p); err == nil && fsutil.PathExists(abs) {
		return abs, true
	}
	return inModel, false
}
