package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// Accelerator reports whether the compute device a pipeline needs is usable.
type Accelerator interface {
	Check(ctx context.Context) error
}

// AcceleratorFunc adapts a function to Accelerator.
type AcceleratorFunc func(ctx context.Context) error

func (f AcceleratorFunc) Check(ctx context.Context) error { return f(ctx) }

// NoAcceleratorCheck accepts any host. Used when require_accelerator is false.
var NoAcceleratorCheck Accelerator = AcceleratorFunc(func(context.Context) error { return nil })

// NvidiaSMI probes for a CUDA device by listing GPUs with nvidia-smi.
type NvidiaSMI struct {
	// Bin defaults to "nvidia-smi" on PATH.
	Bin     string
	Timeout time.Duration
}

// Check succeeds when nvidia-smi runs and lists at least one GPU.
func (n NvidiaSMI) Check(ctx context.Context) error {
	bin := n.Bin
	if bin == "" {
		bin = "nvidia-smi"
	}
	path, err := exec.LookPath(bin)
	if err != nil {
		return fmt.Errorf("%s not found: %w", bin, err)
	}
	timeout := n.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	out, err := exec.CommandContext(ctx, path, "-L").Output()
	if err != nil {
		return fmt.Errorf("%s -L: %w", bin, err)
	}
	for _, line := range strings.Split(string(out), "\n") {
		if strings.HasPrefix(strings.TrimSpace(line), "GPU ") {
			return nil
		}
	}
	return errors.New("no GPU listed")
}
