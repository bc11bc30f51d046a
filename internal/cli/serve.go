package cli

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"ovid/internal/httpapi"
)

const shutdownTimeout = 5 * time.Second

func newServeCmd(a *app) *cobra.Command {
	var (
		host string
		port int
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("host") {
				a.cfg.Host = host
			}
			if cmd.Flags().Changed("port") {
				a.cfg.Port = port
			}
			return a.serve(cmd.Context())
		},
	}
	cmd.Flags().StringVar(&host, "host", "127.0.0.1", "Listen host (overrides config)")
	cmd.Flags().IntVar(&port, "port", 8000, "Listen port (overrides config)")
	return cmd
}

// serve runs until ctx is canceled, then shuts down gracefully.
func (a *app) serve(ctx context.Context) error {
	mgr := a.manager()
	mux := httpapi.NewMux(mgr, httpapi.Options{
		OutputsDir:      a.settings.OutputsDir,
		Catalog:         a.catalog,
		MaxBodyBytes:    a.cfg.MaxBodyBytes,
		GenerateTimeout: a.cfg.GenerateTimeout(),
		BaseContext:     ctx,
		CORS: httpapi.CORSOptions{
			Enabled:        a.cfg.CORSEnabled,
			AllowedOrigins: a.cfg.CORSAllowedOrigins,
			AllowedMethods: a.cfg.CORSAllowedMethods,
			AllowedHeaders: a.cfg.CORSAllowedHeaders,
		},
		Logger: a.log.With().Str("component", "http").Logger(),
	})

	ln, err := net.Listen("tcp", a.cfg.Addr())
	if err != nil {
		return err
	}
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 10 * time.Second}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(ln)
	}()
	a.log.Info().
		Str("addr", ln.Addr().String()).
		Str("models_dir", a.settings.ModelsDir).
		Str("outputs_dir", a.settings.OutputsDir).
		Msg("ovid listening")
	if a.deps.notifyServing != nil {
		a.deps.notifyServing(ln.Addr())
	}

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}
	// Graceful shutdown (Ctrl+C / SIGTERM)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		a.log.Warn().Err(err).Msg("graceful shutdown error")
		return err
	}
	a.log.Info().Msg("ovid stopped")
	return nil
}
