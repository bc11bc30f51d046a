package registry

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/rs/zerolog"

	"ovid/pkg/types"
)

// Catalog holds the downloadable model bundles declared by a registry file.
// The zero value is an empty catalog.
type Catalog struct {
	models map[string]types.RemoteModel
}

// Len returns the number of remote models.
func (c Catalog) Len() int { return len(c.models) }

// Get looks a remote model up by name.
func (c Catalog) Get(name string) (types.RemoteModel, bool) {
	m, ok := c.models[name]
	return m, ok
}

// Names returns the model names sorted lexicographically.
func (c Catalog) Names() []string {
	out := make([]string, 0, len(c.models))
	for n := range c.models {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// All returns the remote models sorted by name.
func (c Catalog) All() []types.RemoteModel {
	out := make([]types.RemoteModel, 0, len(c.models))
	for _, n := range c.Names() {
		out = append(out, c.models[n])
	}
	return out
}

// LoadCatalog reads the registry file at path. A missing file is the normal
// "no registry configured" state and yields an empty catalog. A malformed file is
// logged and also yields an empty catalog; only read failures are returned.
func LoadCatalog(path string, logger zerolog.Logger) (Catalog, error) {
	if path == "" {
		return Catalog{}, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Catalog{}, nil
		}
		return Catalog{}, fmt.Errorf("read registry: %w", err)
	}
	cat, err := parseCatalog(b, func(model, reason string) {
		logger.Debug().Str("model", model).Str("reason", reason).Msg("registry entry dropped")
	})
	if err != nil {
		var pe *CatalogParseError
		if errors.As(err, &pe) {
			pe.Path = path
		}
		logger.Warn().Err(err).Msg("ignoring registry catalog")
		return Catalog{}, nil
	}
	return cat, nil
}

// ParseCatalog parses catalog bytes of the form
//
//	{"models": {"<name>": {"dir": "...", "files": [{"url", "sha256", "path"}]}}}
//
// Invalid entries are dropped. A malformed document returns an empty catalog and a
// CatalogParseError.
func ParseCatalog(data []byte) (Catalog, error) {
	return parseCatalog(data, nil)
}

func parseCatalog(data []byte, drop func(model, reason string)) (Catalog, error) {
	if drop == nil {
		drop = func(string, string) {}
	}
	var doc any
	if err := json.Unmarshal(data, &doc); err != nil {
		return Catalog{}, &CatalogParseError{Err: err}
	}
	top, ok := doc.(map[string]any)
	if !ok {
		return Catalog{}, &CatalogParseError{Err: errors.New("top level is not an object")}
	}
	rawModels, ok := top["models"]
	if !ok || rawModels == nil {
		return Catalog{}, nil
	}
	models, ok := rawModels.(map[string]any)
	if !ok {
		return Catalog{}, &CatalogParseError{Err: errors.New(`"models" is not an object`)}
	}
	cat := Catalog{models: make(map[string]types.RemoteModel, len(models))}
	for name, rawEntry := range models {
		entry, ok := rawEntry.(map[string]any)
		if !ok {
			drop(name, "entry is not an object")
			continue
		}
		dir, _ := entry["dir"].(string)
		if dir == "" {
			dir = name
		}
		if !filepath.IsLocal(dir) {
			drop(name, "dir escapes the models directory")
			continue
		}
		items, _ := entry["files"].([]any)
		var files []types.RemoteFile
		for i, rawItem := range items {
			f, ok := parseRemoteFile(rawItem)
			if !ok {
				drop(name, fmt.Sprintf("file %d is missing url, sha256 or a relative path", i))
				continue
			}
			files = append(files, f)
		}
		if len(files) == 0 {
			drop(name, "no valid files")
			continue
		}
		cat.models[name] = types.RemoteModel{Name: name, Dir: dir, Files: files}
	}
	return cat, nil
}

func parseRemoteFile(raw any) (types.RemoteFile, bool) {
	item, ok := raw.(map[string]any)
	if !ok {
		return types.RemoteFile{}, false
	}
	url, _ := item["url"].(string)
	sum, _ := item["sha256"].(string)
	path, _ := item["path"].(string)
	if url == "" || sum == "" || path == "" {
		return types.RemoteFile{}, false
	}
	if !filepath.IsLocal(filepath.FromSlash(path)) {
		return types.RemoteFile{}, false
	}
	return types.RemoteFile{URL: url, SHA256: sum, Path: path}, true
}
