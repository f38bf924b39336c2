package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/sbischoff-ai/exobrain/internal/contracts"
)

// Persisted job statuses. The lifecycle mapping to client-visible states
// lives in the gRPC layer.
const (
	StatusRequested  = "requested"
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
)

// Terminal reasons recorded on permanent failure.
const (
	TerminalReasonMaxAttempts      = "max-attempts"
	TerminalReasonPermanentFailure = "permanent-failure"
)

// ErrNotFound reports a job id with no persisted record.
var ErrNotFound = errors.New("job not found")

// Snapshot is the persisted view of one job, read by the status APIs.
type Snapshot struct {
	JobID          string
	Status         string
	Attempt        int
	LastError      string
	IsTerminal     bool
	TerminalReason string
	UpdatedAt      time.Time
}

// JobRepository persists job state in the orchestrator_jobs table. Every
// write is a single-row statement and attempts only increase, so
// last-write-wins concurrency is sufficient without explicit locking.
type JobRepository struct {
	db DB
}

// New builds a repository over db.
func New(db DB) *JobRepository { return &JobRepository{db: db} }

// RegisterRequested inserts the job's first-seen record. The insert is
// idempotent per job_id; the return value reports whether this call performed
// the insert, so a false return signals a redelivered duplicate.
func (r *JobRepository) RegisterRequested(ctx context.Context, job contracts.JobEnvelope) (bool, error) {
	payload, err := json.Marshal(job.Payload)
	if err != nil {
		return false, fmt.Errorf("encode payload: %w", err)
	}
	var jobID string
	err = r.db.QueryRow(ctx, `
		INSERT INTO orchestrator_jobs (job_id, job_type, correlation_id, payload, attempt, status)
		VALUES ($1, $2, $3, $4::jsonb, $5, 'requested')
		ON CONFLICT (job_id) DO NOTHING
		RETURNING job_id`,
		job.JobID, job.JobType, job.CorrelationID, string(payload), job.Attempt,
	).Scan(&jobID)
	if errors.Is(err, ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("register job %s: %w", job.JobID, err)
	}
	return true, nil
}

// MarkProcessing records that a delivery attempt has started.
func (r *JobRepository) MarkProcessing(ctx context.Context, jobID string, attempt int) error {
	err := r.db.Exec(ctx, `
		UPDATE orchestrator_jobs
		SET status = 'processing', attempt = $2, updated_at = NOW()
		WHERE job_id = $1`,
		jobID, attempt)
	if err != nil {
		return fmt.Errorf("mark processing %s: %w", jobID, err)
	}
	return nil
}

// MarkCompleted records terminal success, clearing any lingering terminal
// reason from earlier failed attempts.
func (r *JobRepository) MarkCompleted(ctx context.Context, jobID string) error {
	err := r.db.Exec(ctx, `
		UPDATE orchestrator_jobs
		SET status = 'completed',
		    is_terminal = TRUE,
		    terminal_reason = NULL,
		    completed_at = NOW(),
		    updated_at = NOW()
		WHERE job_id = $1`,
		jobID)
	if err != nil {
		return fmt.Errorf("mark completed %s: %w", jobID, err)
	}
	return nil
}

// MarkRetryingFailure records a failed attempt with retries remaining.
func (r *JobRepository) MarkRetryingFailure(ctx context.Context, jobID, errorMessage string) error {
	err := r.db.Exec(ctx, `
		UPDATE orchestrator_jobs
		SET status = 'failed',
		    last_error = $2,
		    is_terminal = FALSE,
		    terminal_reason = NULL,
		    updated_at = NOW()
		WHERE job_id = $1`,
		jobID, errorMessage)
	if err != nil {
		return fmt.Errorf("mark retrying failure %s: %w", jobID, err)
	}
	return nil
}

// MarkTerminalFailure records a permanent failure with its reason.
func (r *JobRepository) MarkTerminalFailure(ctx context.Context, jobID, errorMessage, terminalReason string) error {
	err := r.db.Exec(ctx, `
		UPDATE orchestrator_jobs
		SET status = 'failed',
		    last_error = $2,
		    is_terminal = TRUE,
		    terminal_reason = $3,
		    updated_at = NOW()
		WHERE job_id = $1`,
		jobID, errorMessage, terminalReason)
	if err != nil {
		return fmt.Errorf("mark terminal failure %s: %w", jobID, err)
	}
	return nil
}

// GetStatus returns the persisted snapshot for jobID, or ErrNotFound.
func (r *JobRepository) GetStatus(ctx context.Context, jobID string) (Snapshot, error) {
	var (
		snap           Snapshot
		lastError      *string
		terminalReason *string
	)
	err := r.db.QueryRow(ctx, `
		SELECT job_id, status, attempt, last_error, is_terminal, terminal_reason, updated_at
		FROM orchestrator_jobs
		WHERE job_id = $1`,
		jobID,
	).Scan(&snap.JobID, &snap.Status, &snap.Attempt, &lastError, &snap.IsTerminal, &terminalReason, &snap.UpdatedAt)
	if errors.Is(err, ErrNoRows) {
		return Snapshot{}, ErrNotFound
	}
	if err != nil {
		return Snapshot{}, fmt.Errorf("get status %s: %w", jobID, err)
	}
	if lastError != nil {
		snap.LastError = *lastError
	}
	if terminalReason != nil {
		snap.TerminalReason = *terminalReason
	}
	return snap, nil
}
