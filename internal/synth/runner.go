package synth

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"

	"github.com/book-expert/piper-web/internal/core"
)

// Runner is the subprocess seam. The engine never spawns a process
// directly; tests substitute a recording double to assert that failed
// validation short-circuits before any spawn.
type Runner interface {
	// Run executes the binary with stdin connected to the file at
	// stdinPath. A nonzero exit surfaces as *core.EngineError.
	Run(ctx context.Context, binary string, args []string, stdinPath string) error
}

// execRunner runs the engine with os/exec.
type execRunner struct{}

func (r *execRunner) Run(ctx context.Context, binary string, args []string, stdinPath string) error {
	input, openErr := os.Open(stdinPath)
	if openErr != nil {
		return fmt.Errorf("failed to open transient text artifact: %w", openErr)
	}

	defer func() {
		_ = input.Close()
	}()

	var stderr bytes.Buffer

	// #nosec G204 -- the binary path comes from configuration, the
	// voice path from the registry, and the output path from the
	// store; none are user input.
	cmd := exec.CommandContext(ctx, binary, args...)
	cmd.Stdin = input
	cmd.Stderr = &stderr

	runErr := cmd.Run()
	if runErr != nil {
		var exitErr *exec.ExitError
		if errors.As(runErr, &exitErr) {
			return &core.EngineError{
				ExitCode: exitErr.ExitCode(),
				Stderr:   stderr.String(),
			}
		}

		return fmt.Errorf("failed to run synthesis engine: %w", runErr)
	}

	return nil
}
