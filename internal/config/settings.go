package config

import (
	"os"
	"path/filepath"

	"ovid/internal/common/fsutil"
)

// Environment variables consulted by ResolveFromEnv.
const (
	EnvHome     = "OVID_HOME"
	EnvModels   = "OVID_MODELS"
	EnvOutputs  = "OVID_OUTPUTS"
	EnvRegistry = "OVID_REGISTRY"
	EnvConfig   = "OVID_CONFIG"

	// RegistryFileName is the catalog looked up in the working directory by default.
	RegistryFileName = "registry.json"
)

// Settings holds the filesystem roots every component works against.
// It is resolved once and passed explicitly; no component reads the environment itself.
type Settings struct {
	Home         string
	ModelsDir    string
	OutputsDir   string
	RegistryPath string
}

// LookupFunc matches os.LookupEnv.
type LookupFunc func(key string) (string, bool)

// ResolveFromEnv resolves Settings from the process environment and working directory.
func ResolveFromEnv() (Settings, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return Settings{}, &ConfigError{Op: "working directory", Err: err}
	}
	return Resolve(os.LookupEnv, cwd)
}

// Resolve derives Settings from lookup and cwd. Nothing is created on disk.
//
//	home     = $OVID_HOME     or cwd
//	models   = $OVID_MODELS   or home/models
//	outputs  = $OVID_OUTPUTS  or home/outputs
//	registry = $OVID_REGISTRY or cwd/registry.json
func Resolve(lookup LookupFunc, cwd string) (Settings, error) {
	if lookup == nil {
		lookup = func(string) (string, bool) { return "", false }
	}
	resolve := func(key, def string) (string, error) {
		v, ok := lookup(key)
		if !ok || v == "" {
			v = def
		}
		v, err := fsutil.ExpandHome(v)
		if err != nil {
			return "", &ConfigError{Op: key, Err: err}
		}
		if !filepath.IsAbs(v) {
			v = filepath.Join(cwd, v)
		}
		return filepath.Clean(v), nil
	}
	if cwd == "" {
		return Settings{}, &ConfigError{Op: "working directory is empty"}
	}
	var (
		s   Settings
		err error
	)
	if s.Home, err = resolve(EnvHome, cwd); err != nil {
		return Settings{}, err
	}
	if s.ModelsDir, err = resolve(EnvModels, filepath.Join(s.Home, "models")); err != nil {
		return Settings{}, err
	}
	if s.OutputsDir, err = resolve(EnvOutputs, filepath.Join(s.Home, "outputs")); err != nil {
		return Settings{}, err
	}
	if s.RegistryPath, err = resolve(EnvRegistry, filepath.Join(cwd, RegistryFileName)); err != nil {
		return Settings{}, err
	}
	return s, nil
}
