// Package fetch downloads catalog artifacts with content-hash verification.
//
// Every file is streamed into a temporary file next to its destination while a
// SHA-256 is computed over the bytes written. Only a verified temp file is renamed
// onto the destination, so a partial or corrupt artifact is never visible there.
package fetch

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"ovid/internal/common/fsutil"
	"ovid/internal/registry"
	"ovid/pkg/types"
)

// Defaults applied by New when the corresponding Config field is unset.
const (
	defaultMaxAttempts    = 3
	defaultInitialBackoff = 500 * time.Millisecond
	defaultMaxBackoff     = 10 * time.Second
)

// HTTPClient is the subset of *http.Client used by the fetcher.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Config controls a Fetcher.
type Config struct {
	ModelsDir string
	Catalog   registry.Catalog
	Client    HTTPClient
	// MaxAttempts bounds download attempts per file, the first one included.
	MaxAttempts    int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	// AttemptTimeout bounds a single download attempt; zero disables it.
	AttemptTimeout time.Duration
	Logger         zerolog.Logger
}

// Fetcher pulls remote models declared by a catalog into the models directory.
type Fetcher struct {
	cfg   Config
	group singleflight.Group
}

// New constructs a Fetcher, applying defaults for unset fields.
func New(cfg Config) *Fetcher {
	if cfg.Client == nil {
		cfg.Client = &http.Client{}
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = defaultMaxAttempts
	}
	if cfg.InitialBackoff <= 0 {
		cfg.InitialBackoff = defaultInitialBackoff
	}
	if cfg.MaxBackoff <= 0 {
		cfg.MaxBackoff = defaultMaxBackoff
	}
	return &Fetcher{cfg: cfg}
}

// TargetDir returns where model's files are placed.
func (f *Fetcher) TargetDir(model types.RemoteModel) string {
	return filepath.Join(f.cfg.ModelsDir, model.Dir)
}

// Pull makes every file of the named catalog model present and verified under the
// models directory and returns the model's target directory. Files already present
// with a matching hash are skipped unless force is set, so repeating a successful
// pull performs no network requests. Concurrent pulls of the same model share one run.
func (f *Fetcher) Pull(ctx context.Context, name string, force bool) (string, error) {
	model, ok := f.cfg.Catalog.Get(name)
	if !ok {
		return "", &registry.NotFoundError{Name: name}
	}
	key := fmt.Sprintf("%s|force=%t", name, force)
	v, err, _ := f.group.Do(key, func() (any, error) {
		return f.pullModel(ctx, model, force)
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

func (f *Fetcher) pullModel(ctx context.Context, model types.RemoteModel, force bool) (string, error) {
	target := f.TargetDir(model)
	log := f.cfg.Logger.With().Str("model", model.Name).Logger()
	for _, file := range model.Files {
		dest, ok := fsutil.JoinWithin(target, file.Path)
		if !ok {
			filesTotal.WithLabelValues("failed").Inc()
			return "", fmt.Errorf("artifact path %q escapes %s", file.Path, target)
		}
		if !force {
			satisfied, err := hasHash(dest, file.SHA256)
			if err != nil {
				filesTotal.WithLabelValues("failed").Inc()
				return "", err
			}
			if satisfied {
				filesTotal.WithLabelValues("skipped").Inc()
				log.Debug().Str("file", file.Path).Msg("artifact already verified")
				continue
			}
		}
		n, err := f.fetchFile(ctx, dest, file)
		if err != nil {
			filesTotal.WithLabelValues("failed").Inc()
			return "", fmt.Errorf("pull %s: %w", model.Name, err)
		}
		filesTotal.WithLabelValues("downloaded").Inc()
		bytesTotal.Add(float64(n))
		log.Info().Str("file", file.Path).Int64("bytes", n).Msg("artifact downloaded")
	}
	return target, nil
}

// fetchFile downloads file to dest, retrying transient failures with exponential backoff.
// Each attempt writes its own temp file, so a failed attempt never touches dest.
func (f *Fetcher) fetchFile(ctx context.Context, dest string, file types.RemoteFile) (int64, error) {
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return 0, fmt.Errorf("create %s: %w", filepath.Dir(dest), err)
	}
	op := func() (int64, error) {
		n, err := f.downloadOnce(ctx, dest, file)
		if err != nil && !isRetryable(err) {
			return 0, backoff.Permanent(err)
		}
		return n, err
	}
	b := &backoff.ExponentialBackOff{
		InitialInterval:     f.cfg.InitialBackoff,
		RandomizationFactor: 0.1,
		Multiplier:          2,
		MaxInterval:         f.cfg.MaxBackoff,
	}
	return backoff.Retry(ctx, op,
		backoff.WithBackOff(b),
		backoff.WithMaxTries(uint(f.cfg.MaxAttempts)),
		backoff.WithNotify(func(err error, d time.Duration) {
			retriesTotal.Inc()
			f.cfg.Logger.Warn().Err(err).Str("url", file.URL).Dur("backoff", d).Msg("download failed; retrying")
		}),
	)
}

func (f *Fetcher) downloadOnce(ctx context.Context, dest string, file types.RemoteFile) (int64, error) {
	tmp, err := os.CreateTemp(filepath.Dir(dest), "."+filepath.Base(dest)+".*.part")
	if err != nil {
		return 0, fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			_ = tmp.Close()
			_ = os.Remove(tmpName)
		}
	}()

	if f.cfg.AttemptTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.cfg.AttemptTimeout)
		defer cancel()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, file.URL, nil)
	if err != nil {
		return 0, fmt.Errorf("creating request: %w", err)
	}
	resp, err := f.cfg.Client.Do(req)
	if err != nil {
		return 0, transientError{fmt.Errorf("GET %s: %w", file.URL, err)}
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return 0, &HTTPStatusError{URL: file.URL, StatusCode: resp.StatusCode}
	}

	h := sha256.New()
	n, err := io.Copy(io.MultiWriter(tmp, h), resp.Body)
	if err != nil {
		return 0, transientError{fmt.Errorf("reading %s: %w", file.URL, err)}
	}
	if err := tmp.Chmod(0o644); err != nil {
		return 0, fmt.Errorf("chmod temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return 0, fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return 0, fmt.Errorf("close temp file: %w", err)
	}
	actual := hex.EncodeToString(h.Sum(nil))
	if !strings.EqualFold(actual, file.SHA256) {
		return 0, &ChecksumMismatchError{File: file.Path, Expected: strings.ToLower(file.SHA256), Actual: actual}
	}
	if err := os.Rename(tmpName, dest); err != nil {
		return 0, fmt.Errorf("install %s: %w", dest, err)
	}
	committed = true
	return n, nil
}

// hasHash reports whether path exists and its SHA-256 equals expected (case-insensitive).
func hasHash(path, expected string) (bool, error) {
	sum, err := HashFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		return false, err
	}
	return strings.EqualFold(sum, expected), nil
}

// HashFile returns the lowercase hex SHA-256 of the file at path.
func HashFile(path string) (string, error) {
	fh, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer fh.Close()
	h := sha256.New()
	if _, err := io.Copy(h, fh); err != nil {
		return "", fmt.Errorf("hash %s: %w", path, err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
