package jobsv1

// JobLifecycleState is the client-visible lifecycle of a job.
type JobLifecycleState string

// Lifecycle states. SUCCEEDED and FAILED_FINAL are terminal.
const (
	StateUnspecified       JobLifecycleState = "STATE_UNSPECIFIED"
	StateEnqueuedOrPending JobLifecycleState = "ENQUEUED_OR_PENDING"
	StateStarted           JobLifecycleState = "STARTED"
	StateRetrying          JobLifecycleState = "RETRYING"
	StateSucceeded         JobLifecycleState = "SUCCEEDED"
	StateFailedFinal       JobLifecycleState = "FAILED_FINAL"
)

// ChatMessage is one conversation message in a knowledge-update payload.
type ChatMessage struct {
	Role      string `json:"role,omitempty"`
	Content   string `json:"content,omitempty"`
	Sequence  int32  `json:"sequence,omitempty"`
	CreatedAt string `json:"created_at,omitempty"`
}

// KnowledgeUpdatePayload is the typed payload for knowledge.update jobs.
type KnowledgeUpdatePayload struct {
	JournalReference  string        `json:"journal_reference,omitempty"`
	Messages          []ChatMessage `json:"messages,omitempty"`
	RequestedByUserID string        `json:"requested_by_user_id,omitempty"`
}

// EnqueueJobRequest submits one asynchronous job. Exactly one payload form
// applies: the typed KnowledgeUpdate sub-message for knowledge.update jobs,
// or PayloadJSON (a JSON object) for every other job type.
type EnqueueJobRequest struct {
	JobType         string                  `json:"job_type,omitempty"`
	UserID          string                  `json:"user_id,omitempty"`
	PayloadJSON     string                  `json:"payload_json,omitempty"`
	KnowledgeUpdate *KnowledgeUpdatePayload `json:"knowledge_update,omitempty"`
}

// EnqueueJobReply carries the generated job id.
type EnqueueJobReply struct {
	JobID string `json:"job_id,omitempty"`
}

// GetJobStatusRequest asks for the point-in-time status of a job.
type GetJobStatusRequest struct {
	JobID string `json:"job_id,omitempty"`
}

// GetJobStatusReply is the repository snapshot mapped to lifecycle terms.
type GetJobStatusReply struct {
	JobID     string            `json:"job_id,omitempty"`
	State     JobLifecycleState `json:"state,omitempty"`
	Attempt   int32             `json:"attempt,omitempty"`
	Detail    string            `json:"detail,omitempty"`
	Terminal  bool              `json:"terminal,omitempty"`
	UpdatedAt string            `json:"updated_at,omitempty"`
}

// WatchJobStatusRequest opens a live status stream for a job.
type WatchJobStatusRequest struct {
	JobID          string `json:"job_id,omitempty"`
	IncludeCurrent bool   `json:"include_current,omitempty"`
}

// JobStatusEvent is one element of the watch stream.
type JobStatusEvent struct {
	JobID     string            `json:"job_id,omitempty"`
	State     JobLifecycleState `json:"state,omitempty"`
	Attempt   int32             `json:"attempt,omitempty"`
	Detail    string            `json:"detail,omitempty"`
	Terminal  bool              `json:"terminal,omitempty"`
	EmittedAt string            `json:"emitted_at,omitempty"`
}
