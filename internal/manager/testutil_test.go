package manager

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"ovid/internal/config"
	"ovid/internal/pipeline"
	"ovid/pkg/types"
)

// writeModel creates modelsDir/dir/model.json with manifest as content.
func writeModel(t *testing.T, modelsDir, dir, manifest string) string {
	t.Helper()
	p := filepath.Join(modelsDir, dir)
	if err := os.MkdirAll(p, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(p, "model.json"), []byte(manifest), 0o644); err != nil {
		t.Fatalf("write manifest: %v", err)
	}
	return p
}

// fakePipelines records calls and optionally writes output or fails.
type fakePipelines struct {
	mu       sync.Mutex
	calls    []types.ModelDescriptor
	params   []pipeline.Params
	err      error
	write    bool
	delay    time.Duration
	active   int
	maxSeen  int
	started  chan struct{}
	blockFor chan struct{}
}

func (f *fakePipelines) Kinds() []string { return []string{"fake"} }

func (f *fakePipelines) Generate(ctx context.Context, model types.ModelDescriptor, p pipeline.Params) error {
	f.mu.Lock()
	f.calls = append(f.calls, model)
	f.params = append(f.params, p)
	f.active++
	if f.active > f.maxSeen {
		f.maxSeen = f.active
	}
	f.mu.Unlock()
	defer func() {
		f.mu.Lock()
		f.active--
		f.mu.Unlock()
	}()
	if f.started != nil {
		f.started <- struct{}{}
	}
	if f.blockFor != nil {
		select {
		case <-f.blockFor:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	if f.write {
		if err := os.WriteFile(p.OutputPath, []byte("mp4"), 0o644); err != nil {
			return err
		}
	}
	return f.err
}

func (f *fakePipelines) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

type fixture struct {
	settings config.Settings
	pipes    *fakePipelines
	events   *MemoryPublisher
	mgr      *Manager
}

func newFixture(t *testing.T, mutate func(*Config)) *fixture {
	t.Helper()
	home := t.TempDir()
	s := config.Settings{
		Home:         home,
		ModelsDir:    filepath.Join(home, "models"),
		OutputsDir:   filepath.Join(home, "outputs"),
		RegistryPath: filepath.Join(home, "registry.json"),
	}
	f := &fixture{settings: s, pipes: &fakePipelines{write: true}, events: NewMemoryPublisher()}
	cfg := Config{
		Settings:  s,
		Pipelines: f.pipes,
		Publisher: f.events,
		NewJobID:  func() string { return "job123" },
	}
	if mutate != nil {
		mutate(&cfg)
	}
	f.mgr = New(cfg)
	return f
}

func outputsEntries(t *testing.T, dir string) []string {
	t.Helper()
	ents, err := os.ReadDir(dir)
	if err != nil && !os.IsNotExist(err) {
		t.Fatalf("readdir: %v", err)
	}
	var out []string
	for _, e := range ents {
		out = append(out, e.Name())
	}
	return out
}
