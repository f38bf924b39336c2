package contracts

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// SchemaVersion is the current envelope schema version.
const SchemaVersion = 1

// JobEnvelope is the canonical, versioned description of one unit of work.
// It is immutable once published; only Attempt is rehydrated per delivery
// from the broker's redelivery count.
type JobEnvelope struct {
	SchemaVersion int            `json:"schema_version"`
	JobID         string         `json:"job_id"`
	JobType       string         `json:"job_type"`
	CorrelationID string         `json:"correlation_id"`
	Payload       map[string]any `json:"payload"`
	Attempt       int            `json:"attempt"`
	CreatedAt     time.Time      `json:"created_at"`
}

// NewJobEnvelope builds a fresh envelope for enqueueing: new job id,
// attempt zero, created now.
func NewJobEnvelope(jobType, correlationID string, payload map[string]any) JobEnvelope {
	return JobEnvelope{
		SchemaVersion: SchemaVersion,
		JobID:         uuid.NewString(),
		JobType:       jobType,
		CorrelationID: correlationID,
		Payload:       payload,
		Attempt:       0,
		CreatedAt:     time.Now().UTC(),
	}
}

// Encode serializes the envelope for publishing.
func (e JobEnvelope) Encode() []byte {
	b, _ := json.Marshal(e)
	return b
}

// ErrInvalidEnvelope reports bytes that cannot be decoded into a usable
// envelope.
var ErrInvalidEnvelope = errors.New("invalid job envelope")

// DecodeJobEnvelope parses envelope bytes. Envelopes from legacy producers
// may omit payload; those default to an empty map. Anything else malformed
// is rejected.
func DecodeJobEnvelope(data []byte) (JobEnvelope, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return JobEnvelope{}, fmt.Errorf("%w: %v", ErrInvalidEnvelope, err)
	}
	if _, ok := raw["payload"]; !ok {
		raw["payload"] = json.RawMessage(`{}`)
	}
	patched, err := json.Marshal(raw)
	if err != nil {
		return JobEnvelope{}, fmt.Errorf("%w: %v", ErrInvalidEnvelope, err)
	}
	var env JobEnvelope
	if err := json.Unmarshal(patched, &env); err != nil {
		return JobEnvelope{}, fmt.Errorf("%w: %v", ErrInvalidEnvelope, err)
	}
	if env.JobID == "" || env.JobType == "" || env.CorrelationID == "" {
		return JobEnvelope{}, fmt.Errorf("%w: job_id, job_type and correlation_id are required", ErrInvalidEnvelope)
	}
	if env.Attempt < 0 {
		return JobEnvelope{}, fmt.Errorf("%w: attempt must not be negative", ErrInvalidEnvelope)
	}
	if env.Payload == nil {
		env.Payload = map[string]any{}
	}
	return env, nil
}
