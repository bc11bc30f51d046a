package pipeline

import (
	"fmt"
	"strings"
)

// UnsupportedPipelineError reports a model whose pipeline kind has no implementation.
type UnsupportedPipelineError struct {
	Pipeline  string
	Supported []string
}

func (e *UnsupportedPipelineError) Error() string {
	return fmt.Sprintf("unsupported pipeline %q (supported: %s); set \"pipeline\" in model.json",
		e.Pipeline, strings.Join(e.Supported, ", "))
}

// MissingConfigError reports manifest keys a pipeline requires but the model lacks.
type MissingConfigError struct {
	Pipeline string
	Keys     []string
}

func (e *MissingConfigError) Error() string {
	quoted := make([]string, len(e.Keys))
	for i, k := range e.Keys {
		quoted[i] = "'" + k + "'"
	}
	return fmt.Sprintf("%s requires %s in model.json", e.Pipeline, strings.Join(quoted, " and "))
}

// PathNotFoundError reports a configured dependency path that does not exist.
type PathNotFoundError struct {
	Key  string
	Path string
}

func (e *PathNotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", strings.ReplaceAll(e.Key, "_", " "), e.Path)
}

// HardwareUnavailableError reports that the required accelerator is absent.
type HardwareUnavailableError struct {
	Requirement string
	Err         error
}

func (e *HardwareUnavailableError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s is required: %v", e.Requirement, e.Err)
	}
	return e.Requirement + " is required"
}

func (e *HardwareUnavailableError) Unwrap() error { return e.Err }

// RuntimeError reports a failure of the inference worker itself.
type RuntimeError struct {
	Msg    string
	Stderr string
	Err    error
}

func (e *RuntimeError) Error() string {
	msg := e.Msg
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	if tail := strings.TrimSpace(e.Stderr); tail != "" {
		msg += "; stderr: " + tail
	}
	return msg
}

func (e *RuntimeError) Unwrap() error { return e.Err }
