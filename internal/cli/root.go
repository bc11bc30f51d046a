// Package cli implements the ovid command tree.
package cli

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"ovid/internal/config"
	"ovid/internal/fetch"
	"ovid/internal/logging"
)

// Deps are the process-level inputs of the command tree. Tests substitute them.
type Deps struct {
	Stdout    io.Writer
	Stderr    io.Writer
	LookupEnv config.LookupFunc
	Getwd     func() (string, error)
	// HTTPClient is used by pull.
	HTTPClient fetch.HTTPClient

	// notifyServing is called with the bound address once serve accepts connections.
	notifyServing func(net.Addr)
}

// DefaultDeps wires the real process environment.
func DefaultDeps() Deps {
	return Deps{
		Stdout:     os.Stdout,
		Stderr:     os.Stderr,
		LookupEnv:  os.LookupEnv,
		Getwd:      os.Getwd,
		HTTPClient: &http.Client{},
	}
}

// app carries state resolved once per invocation by the root pre-run hook.
type app struct {
	deps       Deps
	configPath string
	logLevel   string
	logFormat  string

	settings config.Settings
	cfg      config.Config
	log      zerolog.Logger
}

// Execute runs the command tree and returns the process exit code.
func Execute(ctx context.Context, args []string, d Deps) int {
	root := NewRootCmd(d)
	root.SetArgs(args)
	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(d.Stderr, "error:", err)
		return 1
	}
	return 0
}

// NewRootCmd builds the ovid command tree.
func NewRootCmd(d Deps) *cobra.Command {
	a := &app{deps: d}
	root := &cobra.Command{
		Use:           "ovid",
		Short:         "Local video model registry and generation server",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(d.Stdout)
	root.SetErr(d.Stderr)

	root.PersistentFlags().StringVar(&a.configPath, "config", "", "Config file (.yaml, .json or .toml); defaults to $"+config.EnvConfig)
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "Log level: debug|info|warn|error (overrides config)")
	root.PersistentFlags().StringVar(&a.logFormat, "log-format", "", "Log format: console|json (overrides config)")
	root.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		return a.init()
	}

	root.AddCommand(
		newModelsCmd(a),
		newRegistryCmd(a),
		newPullCmd(a),
		newServeCmd(a),
		newGenerateCmd(a),
	)
	return root
}

// init resolves settings, the config file and the logger.
func (a *app) init() error {
	cwd, err := a.deps.Getwd()
	if err != nil {
		return &config.ConfigError{Op: "working directory", Err: err}
	}
	s, err := config.Resolve(a.deps.LookupEnv, cwd)
	if err != nil {
		return err
	}
	path := a.configPath
	if path == "" {
		path, _ = a.deps.LookupEnv(config.EnvConfig)
	}
	cfg, err := config.LoadOptional(path)
	if err != nil {
		return err
	}
	if a.logLevel != "" {
		cfg.LogLevel = a.logLevel
	}
	if a.logFormat != "" {
		cfg.LogFormat = a.logFormat
	}
	a.settings = s
	a.cfg = cfg.WithDefaults()
	a.log = logging.New(a.cfg.LogLevel, a.cfg.LogFormat, a.deps.Stderr)
	return nil
}
