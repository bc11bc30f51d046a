package manager

import (
	"context"
	"errors"

	"ovid/internal/pipeline"
)

// Kind classifies manager errors for HTTP status mapping and CLI messages.
type Kind string

const (
	KindInvalidRequest          Kind = "invalid_request"
	KindNoModelsAvailable       Kind = "no_models_available"
	KindManifestParse           Kind = "manifest_parse"
	KindModelNotFound           Kind = "model_not_found"
	KindUnsupportedPipeline     Kind = "unsupported_pipeline"
	KindMissingDependencyConfig Kind = "missing_dependency_config"
	KindDependencyPathNotFound  Kind = "dependency_path_not_found"
	KindMissingHardware         Kind = "missing_hardware_capability"
	KindInferenceFailed         Kind = "inference_failed"
	KindBusy                    Kind = "busy"
	KindCanceled                Kind = "canceled"
	KindInternal                Kind = "internal"
)

// Error is returned by Manager operations.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Msg != "" {
		return e.Msg
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return string(e.Kind)
}

func (e *Error) Unwrap() error { return e.Err }

// KindOf returns the Kind carried by err, KindInternal for foreign errors and
// "" for nil.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// ErrModelNotFound returns an error for a model name absent from the models directory.
func ErrModelNotFound(name string) error {
	return &Error{Kind: KindModelNotFound, Msg: "model '" + name + "' not found"}
}

// IsTooBusy reports whether err indicates backpressure (return 429).
func IsTooBusy(err error) bool { return KindOf(err) == KindBusy }

// IsModelNotFound reports whether the error indicates a missing model name.
func IsModelNotFound(err error) bool { return KindOf(err) == KindModelNotFound }

// IsInvalidRequest reports whether request validation failed.
func IsInvalidRequest(err error) bool { return KindOf(err) == KindInvalidRequest }

// IsNoModels reports whether the models directory is empty.
func IsNoModels(err error) bool { return KindOf(err) == KindNoModelsAvailable }

// IsPipelineFailure reports whether a pipeline refused or failed the job.
func IsPipelineFailure(err error) bool {
	switch KindOf(err) {
	case KindUnsupportedPipeline, KindMissingDependencyConfig, KindDependencyPathNotFound,
		KindMissingHardware, KindInferenceFailed:
		return true
	}
	return false
}

// classifyPipelineError maps pipeline errors 1:1 onto manager kinds.
func classifyPipelineError(err error) *Error {
	var (
		ue *pipeline.UnsupportedPipelineError
		me *pipeline.MissingConfigError
		pe *pipeline.PathNotFoundError
		he *pipeline.HardwareUnavailableError
	)
	kind := KindInferenceFailed
	switch {
	case errors.As(err, &ue):
		kind = KindUnsupportedPipeline
	case errors.As(err, &me):
		kind = KindMissingDependencyConfig
	case errors.As(err, &pe):
		kind = KindDependencyPathNotFound
	case errors.As(err, &he):
		kind = KindMissingHardware
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		kind = KindCanceled
	}
	return &Error{Kind: kind, Msg: err.Error(), Err: err}
}
