package worker

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/sbischoff-ai/exobrain/internal/contracts"
)

// PermanentExitCode is how the run-job subprocess reports a permanent
// failure back to the parent; plain error classification does not survive
// the process boundary.
const PermanentExitCode = 3

// ProcessRunner launches one isolated process per job by re-executing the
// orchestrator binary with the run-job subcommand and the serialized
// envelope. A non-zero exit maps to a failure carrying the child's stderr;
// exit code PermanentExitCode maps to a permanent failure.
type ProcessRunner struct {
	// Binary to execute; defaults to the current executable.
	Binary string
	// ExtraEnv is appended to the child's environment.
	ExtraEnv []string
}

// NewProcessRunner builds a runner that re-executes the current binary.
func NewProcessRunner() *ProcessRunner { return &ProcessRunner{} }

// RunJobArgs returns the argv (after the binary) used to hand the envelope to
// the child process.
func RunJobArgs(job contracts.JobEnvelope) []string {
	return []string{"run-job", "--envelope", string(job.Encode())}
}

// RunJob executes the job in a child process and waits for it.
func (r *ProcessRunner) RunJob(ctx context.Context, job contracts.JobEnvelope) error {
	binary := r.Binary
	if binary == "" {
		exe, err := os.Executable()
		if err != nil {
			return fmt.Errorf("resolve executable: %w", err)
		}
		binary = exe
	}

	cmd := exec.CommandContext(ctx, binary, RunJobArgs(job)...)
	cmd.Env = append(os.Environ(), r.ExtraEnv...)
	var stderr bytes.Buffer
	cmd.Stdout = nil
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			msg = fmt.Sprintf("worker process failed for %s: %v", job.JobType, err)
		}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && exitErr.ExitCode() == PermanentExitCode {
			return Permanent(fmt.Errorf("%s", msg))
		}
		return fmt.Errorf("%s", msg)
	}
	return nil
}
