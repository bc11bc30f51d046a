package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"sync"

	"github.com/rs/zerolog"

	"ovid/internal/common/fsutil"
)

// Job is the document a worker reads from stdin. Paths are absolute.
type Job struct {
	Pipeline       string  `json:"pipeline"`
	Model          string  `json:"model"`
	ModelPath      string  `json:"model_path"`
	AdapterPath    string  `json:"adapter_path,omitempty"`
	BaseModelPath  string  `json:"base_model_path,omitempty"`
	Prompt         string  `json:"prompt"`
	NegativePrompt string  `json:"negative_prompt,omitempty"`
	Frames         int     `json:"frames"`
	FPS            int     `json:"fps"`
	Width          int     `json:"width"`
	Height         int     `json:"height"`
	Steps          int     `json:"steps"`
	Guidance       float64 `json:"guidance"`
	Seed           *int64  `json:"seed,omitempty"`
	OutputPath     string  `json:"output_path"`
}

// Runner executes a fully resolved job and leaves the video at job.OutputPath.
type Runner interface {
	Run(ctx context.Context, job Job) error
}

// EnvOutputPath is set in the worker environment alongside the JSON job on stdin.
const EnvOutputPath = "OVID_OUTPUT_PATH"

const defaultStderrTail = 4096

// WorkerRunner runs an external worker process per job.
type WorkerRunner struct {
	// Command is argv of the worker; empty means no worker is configured.
	Command []string
	Logger  zerolog.Logger
	// StderrTail bounds how much stderr is kept for error reports.
	StderrTail int
}

// Run starts the worker, writes the job to its stdin and waits for it to exit.
func (w *WorkerRunner) Run(ctx context.Context, job Job) error {
	if len(w.Command) == 0 {
		return &RuntimeError{Msg: "no inference worker configured (set worker_command)"}
	}
	payload, err := json.Marshal(job)
	if err != nil {
		return &RuntimeError{Msg: "encode job", Err: err}
	}
	limit := w.StderrTail
	if limit <= 0 {
		limit = defaultStderrTail
	}
	stderr := &tailBuffer{limit: limit}
	cmd := exec.CommandContext(ctx, w.Command[0], w.Command[1:]...)
	cmd.Stdin = bytes.NewReader(payload)
	cmd.Stdout = &lineLogger{log: w.Logger}
	cmd.Stderr = stderr
	cmd.Env = append(os.Environ(), EnvOutputPath+"="+job.OutputPath)

	w.Logger.Debug().Strs("argv", w.Command).Str("model", job.Model).Msg("worker start")
	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return &RuntimeError{Msg: "worker canceled", Err: ctx.Err(), Stderr: stderr.String()}
		}
		return &RuntimeError{Msg: "worker failed", Err: err, Stderr: stderr.String()}
	}
	if !fsutil.PathExists(job.OutputPath) {
		return &RuntimeError{Msg: fmt.Sprintf("worker exited without writing %s", job.OutputPath), Stderr: stderr.String()}
	}
	return nil
}

// tailBuffer keeps the last limit bytes written to it.
type tailBuffer struct {
	mu    sync.Mutex
	limit int
	buf   []byte
}

func (t *tailBuffer) Write(p []byte) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.buf = append(t.buf, p...)
	if over := len(t.buf) - t.limit; over > 0 {
		t.buf = append(t.buf[:0], t.buf[over:]...)
	}
	return len(p), nil
}

func (t *tailBuffer) String() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return string(t.buf)
}

// lineLogger forwards complete worker stdout lines to the debug log.
type lineLogger struct {
	log     zerolog.Logger
	pending []byte
}

func (l *lineLogger) Write(p []byte) (int, error) {
	l.pending = append(l.pending, p...)
	for {
		i := bytes.IndexByte(l.pending, '\n')
		if i < 0 {
			break
		}
		if line := bytes.TrimSpace(l.pending[:i]); len(line) > 0 {
			l.log.Debug().Str("worker", string(line)).Msg("worker output")
		}
		l.pending = l.pending[i+1:]
	}
	return len(p), nil
}
