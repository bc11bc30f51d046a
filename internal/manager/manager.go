package manager

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"ovid/internal/config"
	"ovid/internal/registry"
	"ovid/pkg/types"
)

// Manager validates generation requests, resolves models from the models
// directory and serializes pipeline runs on the device.
type Manager struct {
	settings     config.Settings
	pipelines    Pipelines
	scanner      *registry.Scanner
	defaultModel string
	maxWait      time.Duration
	log          zerolog.Logger
	publisher    EventPublisher
	newID        func() string

	// Queueing primitives
	queueCh chan struct{} // buffered: queue slots
	genCh   chan struct{} // size 1: single in-flight generation

	mu        sync.RWMutex
	lastErr   string
	startTime time.Time

	generations atomic.Uint64
	failures    atomic.Uint64
}

// ListModels scans the models directory. The result reflects the filesystem at call time.
func (m *Manager) ListModels() (registry.ModelSet, error) {
	set, err := m.scanner.Scan(m.settings.ModelsDir)
	if err != nil {
		return registry.ModelSet{}, &Error{Kind: KindManifestParse, Msg: err.Error(), Err: err}
	}
	return set, nil
}

// ResolveModel picks the model for a request: the named one, else the configured
// default, else the first model in discovery order.
func (m *Manager) ResolveModel(name string) (types.ModelDescriptor, error) {
	set, err := m.ListModels()
	if err != nil {
		return types.ModelDescriptor{}, err
	}
	if set.Len() == 0 {
		return types.ModelDescriptor{}, &Error{
			Kind: KindNoModelsAvailable,
			Msg:  fmt.Sprintf("no local models found in %s", m.settings.ModelsDir),
		}
	}
	if name == "" {
		name = m.defaultModel
	}
	if name == "" {
		first, _ := set.First()
		return first, nil
	}
	md, ok := set.Get(name)
	if !ok {
		return types.ModelDescriptor{}, ErrModelNotFound(name)
	}
	return md, nil
}

// Ready reports whether the models directory parses and holds at least one model.
func (m *Manager) Ready() bool {
	set, err := m.ListModels()
	return err == nil && set.Len() > 0
}

func (m *Manager) setLastError(msg string) {
	m.mu.Lock()
	m.lastErr = msg
	m.mu.Unlock()
}
