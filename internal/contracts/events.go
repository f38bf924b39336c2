package contracts

import (
	"encoding/json"
	"time"
)

// Lifecycle states reported to clients. Terminal states are SUCCEEDED and
// FAILED_FINAL; RETRYING loops back to STARTED on the next delivery.
const (
	StateEnqueuedOrPending = "ENQUEUED_OR_PENDING"
	StateStarted           = "STARTED"
	StateRetrying          = "RETRYING"
	StateSucceeded         = "SUCCEEDED"
	StateFailedFinal       = "FAILED_FINAL"
)

// JobStatusEvent is broadcast on the per-job status subject. It is transient;
// the repository snapshot is the durable record.
type JobStatusEvent struct {
	SchemaVersion int       `json:"schema_version"`
	JobID         string    `json:"job_id"`
	State         string    `json:"state"`
	Attempt       int       `json:"attempt"`
	Detail        string    `json:"detail,omitempty"`
	Terminal      bool      `json:"terminal"`
	EmittedAt     time.Time `json:"emitted_at"`
}

// NewJobStatusEvent stamps a status event with the current time.
func NewJobStatusEvent(jobID, state string, attempt int, detail string, terminal bool) JobStatusEvent {
	return JobStatusEvent{
		SchemaVersion: SchemaVersion,
		JobID:         jobID,
		State:         state,
		Attempt:       attempt,
		Detail:        detail,
		Terminal:      terminal,
		EmittedAt:     time.Now().UTC(),
	}
}

// Encode serializes the event for publishing.
func (e JobStatusEvent) Encode() []byte {
	b, _ := json.Marshal(e)
	return b
}

// DecodeJobStatusEvent parses a status event from the wire.
func DecodeJobStatusEvent(data []byte) (JobStatusEvent, error) {
	var ev JobStatusEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		return JobStatusEvent{}, err
	}
	return ev, nil
}

// Result outcomes published per job type for downstream fan-out.
const (
	ResultCompleted = "completed"
	ResultFailed    = "failed"
)

// JobResultEvent records the outcome of a terminal attempt.
type JobResultEvent struct {
	SchemaVersion int       `json:"schema_version"`
	JobID         string    `json:"job_id"`
	JobType       string    `json:"job_type"`
	Status        string    `json:"status"`
	CorrelationID string    `json:"correlation_id"`
	Attempt       int       `json:"attempt"`
	Detail        string    `json:"detail,omitempty"`
	EmittedAt     time.Time `json:"emitted_at"`
}

// NewJobResultEvent builds a result event for the given envelope and outcome.
func NewJobResultEvent(env JobEnvelope, status string, attempt int, detail string) JobResultEvent {
	return JobResultEvent{
		SchemaVersion: SchemaVersion,
		JobID:         env.JobID,
		JobType:       env.JobType,
		Status:        status,
		CorrelationID: env.CorrelationID,
		Attempt:       attempt,
		Detail:        detail,
		EmittedAt:     time.Now().UTC(),
	}
}

// Encode serializes the event for publishing.
func (e JobResultEvent) Encode() []byte {
	b, _ := json.Marshal(e)
	return b
}

// Dead-letter reasons.
const (
	DLQReasonInvalidEnvelope  = "invalid-envelope"
	DLQReasonInvalidPayload   = "invalid-payload"
	DLQReasonMaxAttempts      = "max-attempts"
	DLQReasonPermanentFailure = "permanent-failure"
)

// DeadLetterEvent marks a message the orchestrator will never process,
// carrying a length-clipped copy of the raw message for operators.
type DeadLetterEvent struct {
	SchemaVersion int       `json:"schema_version"`
	JobID         string    `json:"job_id,omitempty"`
	JobType       string    `json:"job_type,omitempty"`
	Reason        string    `json:"reason"`
	Detail        string    `json:"detail,omitempty"`
	RawMessage    string    `json:"raw_message"`
	EmittedAt     time.Time `json:"emitted_at"`
}

// NewDeadLetterEvent clips raw to at most maxChars characters.
func NewDeadLetterEvent(reason, detail string, raw []byte, maxChars int) DeadLetterEvent {
	clipped := string(raw)
	if maxChars > 0 && len(clipped) > maxChars {
		clipped = clipped[:maxChars]
	}
	return DeadLetterEvent{
		SchemaVersion: SchemaVersion,
		Reason:        reason,
		Detail:        detail,
		RawMessage:    clipped,
		EmittedAt:     time.Now().UTC(),
	}
}

// Encode serializes the event for publishing.
func (e DeadLetterEvent) Encode() []byte {
	b, _ := json.Marshal(e)
	return b
}
