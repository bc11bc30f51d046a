package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"ovid/internal/common/fsutil"
	"ovid/internal/manager"
	"ovid/internal/registry"
	"ovid/pkg/types"
)

// Service defines the methods required by the HTTP API layer.
type Service interface {
	ListModels() (registry.ModelSet, error)
	Generate(ctx context.Context, req types.GenerateRequest, opts manager.GenerateOptions) (types.GenerateResult, error)
	Status() types.StatusResponse
	Ready() bool
}

type server struct {
	svc  Service
	opts Options
}

func NewMux(svc Service, opts Options) http.Handler {
	s := &server{svc: svc, opts: opts.withDefaults()}
	r := chi.NewRouter()
	// Basic middlewares: request id, real ip, recoverer
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(RequestLogger(s.opts.Logger))
	r.Use(middleware.Recoverer)
	r.Use(MetricsMiddleware)
	if s.opts.CORS.Enabled {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: s.opts.CORS.AllowedOrigins,
			AllowedMethods: s.opts.CORS.AllowedMethods,
			AllowedHeaders: s.opts.CORS.AllowedHeaders,
			MaxAge:         300,
		}))
	}
	// Compression for JSON endpoints
	r.Use(middleware.Compress(5))
	// Security headers
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Content-Type-Options", "nosniff")
			next.ServeHTTP(w, r)
		})
	})

	r.Get("/v1/models", s.handleModels)
	r.Get("/v1/registry", s.handleRegistry)
	r.Post("/v1/generate", s.handleGenerate)
	r.Get("/outputs/{filename}", s.handleOutput)
	r.Get("/status", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, s.svc.Status())
	})

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if s.svc.Ready() {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte("ready"))
			return
		}
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("no models"))
	})

	// Prometheus metrics endpoint
	r.Get("/metrics", promhttp.Handler().ServeHTTP)

	return r
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, "failed to encode response")
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(append(b, '\n'))
}

func (s *server) handleModels(w http.ResponseWriter, r *http.Request) {
	set, err := s.svc.ListModels()
	if err != nil {
		writeJSONError(w, statusForError(err), err.Error())
		return
	}
	names := set.Names()
	if names == nil {
		names = []string{}
	}
	writeJSON(w, http.StatusOK, types.ModelsResponse{Models: names})
}

func (s *server) handleRegistry(w http.ResponseWriter, r *http.Request) {
	resp := types.RegistryResponse{Models: []types.RemoteModelSummary{}}
	if s.opts.Catalog != nil {
		cat, err := s.opts.Catalog()
		if err != nil {
			writeJSONError(w, http.StatusInternalServerError, err.Error())
			return
		}
		for _, m := range cat.All() {
			resp.Models = append(resp.Models, types.RemoteModelSummary{Name: m.Name, Dir: m.Dir, Files: len(m.Files)})
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleOutput serves a generated video. The resolved path must lie strictly
// inside the outputs directory; that check runs before any file access.
func (s *server) handleOutput(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "filename")
	// chi routes on the escaped path when one exists, so "%2F" arrives still encoded.
	if r.URL.RawPath != "" {
		unescaped, err := url.PathUnescape(name)
		if err != nil {
			writeJSONError(w, http.StatusBadRequest, "invalid filename")
			return
		}
		name = unescaped
	}
	root := s.opts.OutputsDir
	target := filepath.Join(root, filepath.FromSlash(name))
	if root == "" || name == "" || strings.ContainsRune(name, 0) || !fsutil.IsWithin(root, target) {
		writeJSONError(w, http.StatusBadRequest, "invalid filename")
		return
	}
	// symlinks must not lead out of the outputs directory either
	if resolved, err := filepath.EvalSymlinks(target); err == nil {
		realRoot, rerr := filepath.EvalSymlinks(root)
		if rerr != nil || !fsutil.IsWithin(realRoot, resolved) {
			writeJSONError(w, http.StatusBadRequest, "invalid filename")
			return
		}
	}
	f, err := os.Open(target)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			writeJSONError(w, http.StatusNotFound, "output not found")
			return
		}
		writeJSONError(w, http.StatusInternalServerError, "failed to open output")
		return
	}
	defer f.Close()
	fi, err := f.Stat()
	if err != nil || fi.IsDir() {
		writeJSONError(w, http.StatusNotFound, "output not found")
		return
	}
	w.Header().Set("Content-Type", "video/mp4")
	http.ServeContent(w, r, fi.Name(), fi.ModTime(), f)
}

func (s *server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	// Content-Type check
	ct := r.Header.Get("Content-Type")
	if ct == "" || !strings.HasPrefix(strings.ToLower(ct), "application/json") {
		writeJSONError(w, http.StatusUnsupportedMediaType, "Content-Type must be application/json")
		return
	}
	// Limit body size (configurable, default 1MiB)
	r.Body = http.MaxBytesReader(w, r.Body, s.opts.MaxBodyBytes)
	req := types.NewGenerateRequest("")
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		// If exceeded size, MaxBytesReader may cause an error; still return 400 to avoid size leak details
		writeJSONError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if err := req.Validate(); err != nil {
		writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	// Join server base context with request context so shutdown cancels work too.
	ctx, cancel := joinContexts(s.opts.BaseContext, r.Context())
	defer cancel()
	if s.opts.GenerateTimeout > 0 {
		var tcancel context.CancelFunc
		ctx, tcancel = context.WithTimeout(ctx, s.opts.GenerateTimeout)
		defer tcancel()
	}
	res, err := s.svc.Generate(ctx, req, manager.GenerateOptions{})
	if err != nil {
		// If the client went away there is nobody to answer.
		if r.Context().Err() != nil {
			return
		}
		status := statusForError(err)
		if status == http.StatusTooManyRequests {
			IncrementBackpressure("generate_queue")
		}
		writeJSONError(w, status, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, res)
}
