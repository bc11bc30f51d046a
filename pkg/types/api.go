package types

import (
	"errors"
	"fmt"
	"math"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Defaults applied to a GenerateRequest when the caller leaves a field unset.
const (
	DefaultFrames   = 16
	DefaultFPS      = 8
	DefaultWidth    = 512
	DefaultHeight   = 512
	DefaultSteps    = 20
	DefaultGuidance = 7.5
)

// GenerateRequest represents a video generation request payload.
type GenerateRequest struct {
	// Required prompt text describing the clip.
	// example: a neon city at night
	Prompt string `json:"prompt" validate:"nonblank" example:"a neon city at night"`
	// Optional negative prompt.
	NegativePrompt string `json:"negative_prompt,omitempty"`
	// Optional model name. If empty, the server default is used.
	// example: animatediff-v3
	Model string `json:"model,omitempty" example:"animatediff-v3"`
	// Number of frames to generate.
	// example: 16
	Frames int `json:"frames" validate:"min=1,max=240" example:"16"`
	// Frame rate of the written video.
	// example: 8
	FPS int `json:"fps" validate:"min=1,max=60" example:"8"`
	Width  int `json:"width" validate:"min=128,max=1024" example:"512"`
	Height int `json:"height" validate:"min=128,max=1024" example:"512"`
	// Number of denoising steps.
	Steps int `json:"steps" validate:"min=5,max=60" example:"20"`
	// Classifier-free guidance scale.
	Guidance float64 `json:"guidance" validate:"finite,min=1,max=15" example:"7.5"`
	// Optional deterministic seed.
	// example: 42
	Seed *int64 `json:"seed,omitempty" example:"42"`
}

// NewGenerateRequest returns a request for prompt with every optional field at its default.
// JSON bodies are decoded on top of it so omitted fields keep their defaults.
func NewGenerateRequest(prompt string) GenerateRequest {
	return GenerateRequest{
		Prompt:   prompt,
		Frames:   DefaultFrames,
		FPS:      DefaultFPS,
		Width:    DefaultWidth,
		Height:   DefaultHeight,
		Steps:    DefaultSteps,
		Guidance: DefaultGuidance,
	}
}

var requestValidate *validator.Validate

func init() {
	requestValidate = validator.New(validator.WithRequiredStructEnabled())
	requestValidate.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	if err := requestValidate.RegisterValidation("nonblank", func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	}); err != nil {
		panic(err)
	}
	if err := requestValidate.RegisterValidation("finite", func(fl validator.FieldLevel) bool {
		f := fl.Field().Float()
		return !math.IsNaN(f) && !math.IsInf(f, 0)
	}); err != nil {
		panic(err)
	}
}

// Validate checks field bounds and reports the first violations in a readable form.
func (r *GenerateRequest) Validate() error {
	err := requestValidate.Struct(r)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, describeFieldError(fe))
	}
	return errors.New(strings.Join(msgs, "; "))
}

func describeFieldError(fe validator.FieldError) string {
	switch fe.Tag() {
	case "nonblank":
		return fe.Field() + " is required"
	case "finite":
		return fe.Field() + " must be a finite number"
	case "min":
		return fmt.Sprintf("%s must be >= %s", fe.Field(), fe.Param())
	case "max":
		return fmt.Sprintf("%s must be <= %s", fe.Field(), fe.Param())
	default:
		return fmt.Sprintf("%s failed %s validation", fe.Field(), fe.Tag())
	}
}

// GenerateResult is returned by POST /v1/generate.
type GenerateResult struct {
	// Opaque job identifier.
	// example: 3f2b8c0e9d0a4a0c8f6c2f1e5b7d9a10
	ID string `json:"id" example:"3f2b8c0e9d0a4a0c8f6c2f1e5b7d9a10"`
	// example: ok
	Status string `json:"status" example:"ok"`
	// Output reference: a URI under /outputs/ or a local path.
	// example: /outputs/3f2b8c0e9d0a4a0c8f6c2f1e5b7d9a10.mp4
	Output string `json:"output" example:"/outputs/3f2b8c0e9d0a4a0c8f6c2f1e5b7d9a10.mp4"`
	// Absolute path of the written video; not exposed over HTTP.
	Path string `json:"-"`
}

// ModelsResponse wraps the list of model names returned by GET /v1/models.
type ModelsResponse struct {
	Models []string `json:"models"`
}

// RemoteModelSummary is one entry of GET /v1/registry.
type RemoteModelSummary struct {
	Name  string `json:"name"`
	Dir   string `json:"dir"`
	Files int    `json:"files"`
}

// RegistryResponse wraps the catalog summary returned by GET /v1/registry.
type RegistryResponse struct {
	Models []RemoteModelSummary `json:"models"`
}

// ErrorResponse is a consistent JSON error payload.
type ErrorResponse struct {
	// Error message.
	// example: invalid JSON body
	Error string `json:"error" example:"invalid JSON body"`
	// HTTP status code.
	// example: 400
	Code int `json:"code" example:"400"`
}

// StatusResponse is returned by GET /status.
type StatusResponse struct {
	// Device state: idle or busy.
	// example: idle
	State string `json:"state" example:"idle"`
	// Requests holding a queue slot, including the one running.
	QueueLen int `json:"queue_len" example:"0"`
	// Generations currently running on the device (0 or 1).
	Inflight int `json:"inflight" example:"0"`
	// example: 8
	MaxQueueDepth int `json:"max_queue_depth" example:"8"`
	// Supported pipeline kinds.
	Pipelines        []string `json:"pipelines"`
	GenerationsTotal uint64   `json:"generations_total" example:"3"`
	FailuresTotal    uint64   `json:"failures_total" example:"1"`
	// Last generation error observed (if any).
	LastError      string `json:"last_error,omitempty"`
	UptimeSeconds  int64  `json:"uptime_seconds" example:"3600"`
	ServerTimeUnix int64  `json:"server_time_unix" example:"1700000000"`
}
