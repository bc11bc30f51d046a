package registry

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"

	"ovid/internal/common/fsutil"
	"ovid/pkg/types"
)

const (
	// ManifestFileName is the per-directory manifest that marks a model.
	ManifestFileName = "model.json"
	// DefaultPipeline is used when a manifest does not declare one.
	DefaultPipeline = "diffusers"
)

// ModelSet is an ordered set of model descriptors keyed by name.
// Iteration order is discovery order. The zero value is empty.
type ModelSet struct {
	order  []string
	byName map[string]types.ModelDescriptor
}

func (s *ModelSet) put(m types.ModelDescriptor) (replaced bool) {
	if s.byName == nil {
		s.byName = make(map[string]types.ModelDescriptor)
	}
	_, replaced = s.byName[m.Name]
	if !replaced {
		s.order = append(s.order, m.Name)
	}
	s.byName[m.Name] = m
	return replaced
}

// Len returns the number of models.
func (s ModelSet) Len() int { return len(s.order) }

// Names returns model names in discovery order.
func (s ModelSet) Names() []string { return append([]string(nil), s.order...) }

// Get looks a model up by name.
func (s ModelSet) Get(name string) (types.ModelDescriptor, bool) {
	m, ok := s.byName[name]
	return m, ok
}

// First returns the first model in discovery order.
func (s ModelSet) First() (types.ModelDescriptor, bool) {
	if len(s.order) == 0 {
		return types.ModelDescriptor{}, false
	}
	return s.byName[s.order[0]], true
}

// All returns the descriptors in discovery order.
func (s ModelSet) All() []types.ModelDescriptor {
	out := make([]types.ModelDescriptor, 0, len(s.order))
	for _, n := range s.order {
		out = append(out, s.byName[n])
	}
	return out
}

// Scanner discovers model directories under a models root.
type Scanner struct {
	Logger zerolog.Logger
}

// NewScanner returns a Scanner that logs duplicate names to logger.
func NewScanner(logger zerolog.Logger) *Scanner { return &Scanner{Logger: logger} }

// Discover scans modelsDir with a silent Scanner.
func Discover(modelsDir string) (ModelSet, error) {
	return NewScanner(zerolog.Nop()).Scan(modelsDir)
}

// Scan enumerates the immediate subdirectories of modelsDir in lexicographic order
// and parses each model.json. A missing root yields an empty set. Directories without
// a manifest are skipped. A malformed manifest aborts the scan with ManifestParseError.
// When two manifests declare the same name, the later directory wins.
func (s *Scanner) Scan(modelsDir string) (ModelSet, error) {
	var set ModelSet
	abs, err := filepath.Abs(modelsDir)
	if err != nil {
		return set, fmt.Errorf("abs path: %w", err)
	}
	entries, err := os.ReadDir(abs)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return set, nil
		}
		return set, fmt.Errorf("read models dir: %w", err)
	}
	// os.ReadDir returns entries sorted by filename.
	for _, e := range entries {
		dir := filepath.Join(abs, e.Name())
		// follow symlinked model directories
		if !e.IsDir() && !fsutil.IsDir(dir) {
			continue
		}
		m, ok, err := readManifest(dir)
		if err != nil {
			return ModelSet{}, err
		}
		if !ok {
			continue
		}
		if set.put(m) {
			s.Logger.Warn().Str("model", m.Name).Str("dir", dir).Msg("duplicate model name; later directory wins")
		}
	}
	return set, nil
}

// readManifest parses dir/model.json. ok is false when no manifest exists.
func readManifest(dir string) (types.ModelDescriptor, bool, error) {
	path := filepath.Join(dir, ManifestFileName)
	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return types.ModelDescriptor{}, false, nil
		}
		return types.ModelDescriptor{}, false, &ManifestParseError{Path: path, Err: err}
	}
	m, err := ParseManifest(b, dir)
	if err != nil {
		return types.ModelDescriptor{}, false, &ManifestParseError{Path: path, Err: err}
	}
	return m, true, nil
}

// ParseManifest builds a descriptor from manifest bytes for a model living in dir.
// name defaults to the directory name and pipeline to DefaultPipeline; every other
// key lands in Extra in document order.
func ParseManifest(data []byte, dir string) (types.ModelDescriptor, error) {
	m := types.ModelDescriptor{
		Name:     filepath.Base(dir),
		Path:     dir,
		Pipeline: DefaultPipeline,
	}
	err := types.DecodeObject(data, func(key string, raw json.RawMessage) error {
		switch key {
		case "name", "pipeline":
			var s string
			if err := json.Unmarshal(raw, &s); err != nil {
				return fmt.Errorf("%q must be a string", key)
			}
			if s == "" {
				return nil
			}
			if key == "name" {
				m.Name = s
			} else {
				m.Pipeline = s
			}
			return nil
		}
		var v any
		if err := json.Unmarshal(raw, &v); err != nil {
			return err
		}
		m.Extra.Set(key, v)
		return nil
	})
	if err != nil {
		return types.ModelDescriptor{}, err
	}
	return m, nil
}
