package worker

import (
	"context"
	"errors"
	"fmt"

	"github.com/sbischoff-ai/exobrain/internal/contracts"
)

// Runner executes the opaque job body for a validated envelope. The
// orchestrator only observes the returned error: nil means success, a
// permanent error means no retry will ever help, anything else is transient
// and retried within the attempt budget.
type Runner interface {
	RunJob(ctx context.Context, job contracts.JobEnvelope) error
}

// permanentError marks a failure that retrying cannot fix.
type permanentError struct {
	err error
}

func (p permanentError) Error() string { return p.err.Error() }
func (p permanentError) Unwrap() error { return p.err }

// Permanent wraps err so the orchestrator dead-letters the job immediately
// instead of retrying.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return permanentError{err: err}
}

// IsPermanent reports whether err was marked with Permanent.
func IsPermanent(err error) bool {
	var p permanentError
	return errors.As(err, &p)
}

// Handler is one job type's in-process implementation.
type Handler func(ctx context.Context, job contracts.JobEnvelope) error

// HandlerRunner dispatches jobs to in-process handlers. It backs the
// run-job subprocess entrypoint and serves as the Runner for embedded and
// test setups.
type HandlerRunner struct {
	handlers map[string]Handler
}

// NewHandlerRunner copies handlers into an immutable runner.
func NewHandlerRunner(handlers map[string]Handler) *HandlerRunner {
	owned := make(map[string]Handler, len(handlers))
	for k, v := range handlers {
		owned[k] = v
	}
	return &HandlerRunner{handlers: owned}
}

// RunJob dispatches by job type. An unregistered job type is permanent: the
// envelope passed enqueue validation against a different deployment's
// registry and this process will never learn how to run it.
func (r *HandlerRunner) RunJob(ctx context.Context, job contracts.JobEnvelope) error {
	h, ok := r.handlers[job.JobType]
	if !ok {
		return Permanent(fmt.Errorf("no worker handler configured for job type %q", job.JobType))
	}
	return h(ctx, job)
}
