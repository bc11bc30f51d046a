package manager

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"ovid/internal/config"
	"ovid/internal/pipeline"
	"ovid/internal/registry"
	"ovid/pkg/types"
)

// Defaults applied when corresponding Config fields are unset.
const (
	defaultMaxQueueDepth = 8
	defaultMaxWait       = 10 * time.Minute
)

// Pipelines runs a generation for a model. *pipeline.Dispatcher satisfies it.
type Pipelines interface {
	Generate(ctx context.Context, model types.ModelDescriptor, p pipeline.Params) error
	Kinds() []string
}

// Config encapsulates all tunables for Manager construction.
type Config struct {
	Settings  config.Settings
	Pipelines Pipelines
	// DefaultModel is used when a request names no model. Empty means the
	// first model in discovery order.
	DefaultModel  string
	MaxQueueDepth int
	MaxWait       time.Duration
	Logger        zerolog.Logger
	Publisher     EventPublisher
	// NewJobID overrides job id generation in tests.
	NewJobID func() string
}

// NewJobID returns a random 32-character hex job identifier.
func NewJobID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

// New constructs a Manager from Config.
func New(cfg Config) *Manager {
	if cfg.MaxQueueDepth <= 0 {
		cfg.MaxQueueDepth = defaultMaxQueueDepth
	}
	if cfg.MaxWait <= 0 {
		cfg.MaxWait = defaultMaxWait
	}
	if cfg.Publisher == nil {
		cfg.Publisher = noopPublisher{}
	}
	if cfg.NewJobID == nil {
		cfg.NewJobID = NewJobID
	}
	if cfg.Pipelines == nil {
		cfg.Pipelines = pipeline.NewDispatcher()
	}
	return &Manager{
		settings:     cfg.Settings,
		pipelines:    cfg.Pipelines,
		scanner:      registry.NewScanner(cfg.Logger),
		defaultModel: strings.TrimSpace(cfg.DefaultModel),
		maxWait:      cfg.MaxWait,
		log:          cfg.Logger,
		publisher:    cfg.Publisher,
		newID:        cfg.NewJobID,
		queueCh:      make(chan struct{}, cfg.MaxQueueDepth),
		genCh:        make(chan struct{}, 1),
		startTime:    time.Now(),
	}
}
