package e2e

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"ovid/internal/config"
	"ovid/internal/fetch"
	"ovid/internal/httpapi"
	"ovid/internal/manager"
	"ovid/internal/pipeline"
	"ovid/internal/registry"
)

// stack is a fully wired ovid instance rooted at a temp home.
type stack struct {
	settings config.Settings
	mgr      *manager.Manager
	srv      *httptest.Server
}

// artifactServer serves name -> payload and returns the catalog file entries for it.
func artifactServer(t *testing.T, files map[string]string) (*httptest.Server, string) {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, ok := files[strings.TrimPrefix(r.URL.Path, "/")]
		if !ok {
			http.NotFound(w, r)
			return
		}
		_, _ = io.WriteString(w, body)
	}))
	t.Cleanup(srv.Close)
	var items []string
	for path, body := range files {
		sum := sha256.Sum256([]byte(body))
		items = append(items, fmt.Sprintf(`{"url":%q,"sha256":%q,"path":%q}`, srv.URL+"/"+path, hex.EncodeToString(sum[:]), path))
	}
	return srv, "[" + strings.Join(items, ",") + "]"
}

// newStack wires settings, manager and HTTP server the way `ovid serve` does, with
// a shell worker in place of the inference runtime.
func newStack(t *testing.T, workerScript string, mutate func(*manager.Config)) *stack {
	t.Helper()
	sh, err := exec.LookPath("sh")
	if err != nil {
		t.Skip("sh not available")
	}
	home := t.TempDir()
	s, err := config.Resolve(func(k string) (string, bool) {
		if k == config.EnvHome {
			return home, true
		}
		return "", false
	}, home)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	runner := &pipeline.WorkerRunner{Command: []string{sh, "-c", workerScript}, Logger: zerolog.Nop()}
	cfg := manager.Config{
		Settings:  s,
		Pipelines: pipeline.NewDispatcher(&pipeline.AnimateDiff{Accelerator: pipeline.NoAcceleratorCheck, Runner: runner}),
		MaxWait:   time.Second,
	}
	if mutate != nil {
		mutate(&cfg)
	}
	mgr := manager.New(cfg)
	mux := httpapi.NewMux(mgr, httpapi.Options{
		OutputsDir: s.OutputsDir,
		Catalog: func() (registry.Catalog, error) {
			return registry.LoadCatalog(s.RegistryPath, zerolog.Nop())
		},
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return &stack{settings: s, mgr: mgr, srv: srv}
}

func (st *stack) pull(t *testing.T, name string) string {
	t.Helper()
	cat, err := registry.LoadCatalog(st.settings.RegistryPath, zerolog.Nop())
	if err != nil {
		t.Fatalf("load catalog: %v", err)
	}
	f := fetch.New(fetch.Config{ModelsDir: st.settings.ModelsDir, Catalog: cat, InitialBackoff: time.Millisecond})
	dir, err := f.Pull(context.Background(), name, false)
	if err != nil {
		t.Fatalf("pull %s: %v", name, err)
	}
	return dir
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func httpGet(t *testing.T, url string) (*http.Response, []byte) {
	t.Helper()
	req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, url, nil)
	if err != nil {
		t.Fatalf("new req: %v", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do req: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	return resp, body
}

func httpPostJSON(t *testing.T, url string, payload []byte) (*http.Response, []byte) {
	t.Helper()
	req, err := http.NewRequestWithContext(context.Background(), http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		t.Fatalf("new req: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do req: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	return resp, body
}
