package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"ovid/internal/manager"
	"ovid/internal/registry"
	"ovid/pkg/types"
)

type mockService struct {
	models   registry.ModelSet
	listErr  error
	status   types.StatusResponse
	ready    bool
	genErr   error
	result   types.GenerateResult
	gotReq   *types.GenerateRequest
	genCalls int
}

func (m *mockService) ListModels() (registry.ModelSet, error) { return m.models, m.listErr }
func (m *mockService) Status() types.StatusResponse           { return m.status }
func (m *mockService) Ready() bool                            { return m.ready }
func (m *mockService) Generate(ctx context.Context, req types.GenerateRequest, _ manager.GenerateOptions) (types.GenerateResult, error) {
	m.genCalls++
	m.gotReq = &req
	if m.genErr != nil {
		return types.GenerateResult{}, m.genErr
	}
	return m.result, nil
}

// modelSet builds a ModelSet by scanning a temp dir with the given model dirs.
func modelSet(t *testing.T, names ...string) registry.ModelSet {
	t.Helper()
	root := t.TempDir()
	for _, n := range names {
		if err := os.MkdirAll(filepath.Join(root, n), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(filepath.Join(root, n, "model.json"), []byte(`{}`), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	set, err := registry.Discover(root)
	if err != nil {
		t.Fatalf("discover: %v", err)
	}
	return set
}

func postJSON(t *testing.T, h http.Handler, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/v1/generate", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) types.ErrorResponse {
	t.Helper()
	var e types.ErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &e); err != nil {
		t.Fatalf("error body %q: %v", w.Body.String(), err)
	}
	return e
}

func TestModelsHandler(t *testing.T) {
	svc := &mockService{models: modelSet(t, "m1", "m2")}
	r := NewMux(svc, Options{})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/v1/models", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); !strings.Contains(ct, "application/json") {
		t.Fatalf("content-type=%s", ct)
	}
	var body types.ModelsResponse
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("json: %v", err)
	}
	if strings.Join(body.Models, ",") != "m1,m2" {
		t.Fatalf("models=%v", body.Models)
	}
}

func TestModelsHandler_EmptyIsArray(t *testing.T) {
	r := NewMux(&mockService{}, Options{})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/v1/models", nil))
	if strings.TrimSpace(w.Body.String()) != `{"models":[]}` {
		t.Fatalf("body=%s", w.Body.String())
	}
}

func TestModelsHandler_ManifestError(t *testing.T) {
	svc := &mockService{listErr: &manager.Error{Kind: manager.KindManifestParse, Msg: "bad manifest"}}
	w := httptest.NewRecorder()
	NewMux(svc, Options{}).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/v1/models", nil))
	if w.Code != http.StatusInternalServerError || decodeError(t, w).Error != "bad manifest" {
		t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
	}
}

func TestRegistryHandler(t *testing.T) {
	cat, err := registry.ParseCatalog([]byte(`{"models":{"b":{"files":[{"url":"u","sha256":"s","path":"p"}]},"a":{"dir":"x","files":[{"url":"u","sha256":"s","path":"p"},{"url":"u","sha256":"s","path":"q"}]}}}`))
	if err != nil {
		t.Fatal(err)
	}
	r := NewMux(&mockService{}, Options{Catalog: func() (registry.Catalog, error) { return cat, nil }})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/v1/registry", nil))
	var body types.RegistryResponse
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("json: %v", err)
	}
	if len(body.Models) != 2 || body.Models[0].Name != "a" || body.Models[0].Dir != "x" || body.Models[0].Files != 2 {
		t.Fatalf("body=%+v", body)
	}
}

func TestStatusHandler(t *testing.T) {
	svc := &mockService{status: types.StatusResponse{State: "idle", MaxQueueDepth: 8}}
	w := httptest.NewRecorder()
	NewMux(svc, Options{}).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/status", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d", w.Code)
	}
	var body types.StatusResponse
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("json: %v", err)
	}
	if body.MaxQueueDepth != 8 || body.State != "idle" {
		t.Fatalf("unexpected body: %+v", body)
	}
}

func TestReadyz(t *testing.T) {
	w := httptest.NewRecorder()
	NewMux(&mockService{ready: true}, Options{}).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d", w.Code)
	}
}

func TestReadyz_NotReady(t *testing.T) {
	w := httptest.NewRecorder()
	NewMux(&mockService{}, Options{}).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("status=%d", w.Code)
	}
}

func TestHealthz(t *testing.T) {
	w := httptest.NewRecorder()
	NewMux(&mockService{}, Options{}).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if w.Code != http.StatusOK || w.Body.String() != "ok" {
		t.Fatalf("status=%d body=%q", w.Code, w.Body.String())
	}
}

func TestGenerate_Success(t *testing.T) {
	svc := &mockService{result: types.GenerateResult{ID: "abc", Status: "ok", Output: "/outputs/abc.mp4", Path: "/secret/abc.mp4"}}
	w := postJSON(t, NewMux(svc, Options{}), `{"prompt":"a cat","frames":24,"seed":5}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
	}
	if strings.Contains(w.Body.String(), "/secret") {
		t.Fatalf("local path leaked: %s", w.Body.String())
	}
	var res types.GenerateResult
	if err := json.Unmarshal(w.Body.Bytes(), &res); err != nil {
		t.Fatalf("json: %v", err)
	}
	if res.ID != "abc" || res.Output != "/outputs/abc.mp4" {
		t.Fatalf("res=%+v", res)
	}
	got := svc.gotReq
	if got.Frames != 24 || got.FPS != types.DefaultFPS || got.Steps != types.DefaultSteps || got.Seed == nil || *got.Seed != 5 {
		t.Fatalf("request not normalized: %+v", got)
	}
}

func TestGenerate_ValidationRejectedBeforeService(t *testing.T) {
	for _, body := range []string{`{"prompt":"a cat","frames":0}`, `{"prompt":"a cat","frames":500}`, `{"prompt":"  "}`, `{}`} {
		svc := &mockService{}
		w := postJSON(t, NewMux(svc, Options{}), body)
		if w.Code != http.StatusBadRequest {
			t.Fatalf("%s: status=%d", body, w.Code)
		}
		if svc.genCalls != 0 {
			t.Fatalf("%s: service called", body)
		}
	}
}

func TestGenerate_BadJSONAndContentType(t *testing.T) {
	svc := &mockService{}
	h := NewMux(svc, Options{})
	if w := postJSON(t, h, `{"prompt":`); w.Code != http.StatusBadRequest || decodeError(t, w).Error != "invalid JSON body" {
		t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
	}
	req := httptest.NewRequest(http.MethodPost, "/v1/generate", strings.NewReader(`{"prompt":"x"}`))
	req.Header.Set("Content-Type", "text/plain")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	if w.Code != http.StatusUnsupportedMediaType {
		t.Fatalf("status=%d", w.Code)
	}
}

func TestGenerate_BodyTooLarge(t *testing.T) {
	big := `{"prompt":"` + strings.Repeat("x", 2048) + `"}`
	w := postJSON(t, NewMux(&mockService{}, Options{MaxBodyBytes: 64}), big)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status=%d", w.Code)
	}
}

func TestGenerate_ErrorMapping(t *testing.T) {
	cases := []struct {
		kind manager.Kind
		want int
	}{
		{manager.KindNoModelsAvailable, http.StatusBadRequest},
		{manager.KindInvalidRequest, http.StatusBadRequest},
		{manager.KindModelNotFound, http.StatusNotFound},
		{manager.KindUnsupportedPipeline, http.StatusNotImplemented},
		{manager.KindMissingDependencyConfig, http.StatusNotImplemented},
		{manager.KindDependencyPathNotFound, http.StatusNotImplemented},
		{manager.KindMissingHardware, http.StatusNotImplemented},
		{manager.KindInferenceFailed, http.StatusNotImplemented},
		{manager.KindBusy, http.StatusTooManyRequests},
		{manager.KindManifestParse, http.StatusInternalServerError},
	}
	for _, tc := range cases {
		svc := &mockService{genErr: &manager.Error{Kind: tc.kind, Msg: "boom " + string(tc.kind)}}
		w := postJSON(t, NewMux(svc, Options{}), `{"prompt":"a cat"}`)
		if w.Code != tc.want {
			t.Fatalf("%s: status=%d want %d", tc.kind, w.Code, tc.want)
		}
		e := decodeError(t, w)
		if e.Code != tc.want || e.Error != "boom "+string(tc.kind) {
			t.Fatalf("%s: body=%+v", tc.kind, e)
		}
	}
	svc := &mockService{genErr: errors.New("plain")}
	if w := postJSON(t, NewMux(svc, Options{}), `{"prompt":"a cat"}`); w.Code != http.StatusInternalServerError {
		t.Fatalf("foreign error status=%d", w.Code)
	}
}

func TestOutputs(t *testing.T) {
	root := t.TempDir()
	outputs := filepath.Join(root, "outputs")
	if err := os.MkdirAll(outputs, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(outputs, "abc.mp4"), []byte("video-bytes"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(root, "secrets.txt"), []byte("secret"), 0o644); err != nil {
		t.Fatal(err)
	}
	h := NewMux(&mockService{}, Options{OutputsDir: outputs})

	cases := []struct {
		path string
		want int
	}{
		{"/outputs/abc.mp4", http.StatusOK},
		{"/outputs/missing.mp4", http.StatusNotFound},
		{"/outputs/..%2Fsecrets.txt", http.StatusBadRequest},
		{"/outputs/%2e%2e", http.StatusBadRequest},
	}
	for _, tc := range cases {
		w := httptest.NewRecorder()
		h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, tc.path, nil))
		if w.Code != tc.want {
			t.Fatalf("%s: status=%d want %d body=%s", tc.path, w.Code, tc.want, w.Body.String())
		}
		if tc.want == http.StatusBadRequest && strings.Contains(w.Body.String(), "secret") {
			t.Fatalf("%s: leaked content", tc.path)
		}
		if tc.want == http.StatusOK {
			if ct := w.Header().Get("Content-Type"); ct != "video/mp4" {
				t.Fatalf("content-type=%s", ct)
			}
			if !bytes.Equal(w.Body.Bytes(), []byte("video-bytes")) {
				t.Fatalf("body=%q", w.Body.String())
			}
		}
	}
}

func TestOutputs_SymlinkEscape(t *testing.T) {
	root := t.TempDir()
	outputs := filepath.Join(root, "outputs")
	if err := os.MkdirAll(outputs, 0o755); err != nil {
		t.Fatal(err)
	}
	secret := filepath.Join(root, "secret.mp4")
	if err := os.WriteFile(secret, []byte("secret"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.Symlink(secret, filepath.Join(outputs, "link.mp4")); err != nil {
		t.Skipf("symlink: %v", err)
	}
	w := httptest.NewRecorder()
	NewMux(&mockService{}, Options{OutputsDir: outputs}).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/outputs/link.mp4", nil))
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status=%d", w.Code)
	}
}

func TestCORS_Enabled(t *testing.T) {
	h := NewMux(&mockService{}, Options{CORS: CORSOptions{Enabled: true, AllowedOrigins: []string{"http://ui.local"}}})
	req := httptest.NewRequest(http.MethodGet, "/v1/models", nil)
	req.Header.Set("Origin", "http://ui.local")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "http://ui.local" {
		t.Fatalf("allow-origin=%q", got)
	}
}

func TestCORS_DisabledByDefault(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/v1/models", nil)
	req.Header.Set("Origin", "http://ui.local")
	w := httptest.NewRecorder()
	NewMux(&mockService{}, Options{}).ServeHTTP(w, req)
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Fatalf("unexpected allow-origin=%q", got)
	}
}
