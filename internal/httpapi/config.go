package httpapi

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"ovid/internal/registry"
)

// defaultMaxBodyBytes bounds JSON request bodies when Options.MaxBodyBytes is unset.
const defaultMaxBodyBytes int64 = 1 << 20

// CORSOptions configures cross-origin access (opt-in). If disabled, no CORS
// middleware is added.
type CORSOptions struct {
	Enabled        bool
	AllowedOrigins []string
	AllowedMethods []string
	AllowedHeaders []string
}

// Options configures the HTTP surface.
type Options struct {
	// OutputsDir is the only directory /outputs/ serves from.
	OutputsDir string
	// Catalog loads the remote registry for /v1/registry; nil serves an empty list.
	Catalog func() (registry.Catalog, error)
	// MaxBodyBytes limits JSON bodies (default 1 MiB).
	MaxBodyBytes int64
	// GenerateTimeout bounds a /v1/generate call; zero disables it.
	GenerateTimeout time.Duration
	// BaseContext is a process-level context canceled on shutdown.
	// Defaults to Background if not set.
	BaseContext context.Context
	CORS        CORSOptions
	Logger      zerolog.Logger
}

func (o Options) withDefaults() Options {
	if o.MaxBodyBytes <= 0 {
		o.MaxBodyBytes = defaultMaxBodyBytes
	}
	if o.BaseContext == nil {
		o.BaseContext = context.Background()
	}
	if len(o.CORS.AllowedMethods) == 0 {
		o.CORS.AllowedMethods = []string{"GET", "POST", "OPTIONS"}
	}
	if len(o.CORS.AllowedHeaders) == 0 {
		o.CORS.AllowedHeaders = []string{"Accept", "Content-Type", "X-Request-Id"}
	}
	return o
}
