package grpcserver

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	jobsv1 "github.com/sbischoff-ai/exobrain/api/jobs/v1"
	"github.com/sbischoff-ai/exobrain/internal/contracts"
	"github.com/sbischoff-ai/exobrain/internal/queue"
	"github.com/sbischoff-ai/exobrain/internal/repository"
)

// StatusFetcher reads point-in-time job snapshots.
type StatusFetcher interface {
	GetStatus(ctx context.Context, jobID string) (repository.Snapshot, error)
}

// JobServiceOptions configures the ingress service. Fetcher and Subscriber
// are optional; requests needing them fail with UNIMPLEMENTED when unset.
type JobServiceOptions struct {
	Registry   *contracts.Registry
	Publisher  queue.Publisher
	Fetcher    StatusFetcher
	Subscriber queue.StatusSubscriber
	Logger     *logrus.Logger
}

// JobService implements the exobrain.jobs.v1.JobOrchestrator gRPC service:
// synchronous enqueue, point-in-time status and live status watch.
type JobService struct {
	jobsv1.UnimplementedJobOrchestratorServer

	registry   *contracts.Registry
	publisher  queue.Publisher
	fetcher    StatusFetcher
	subscriber queue.StatusSubscriber
	log        *logrus.Logger
}

// NewJobService builds the ingress service.
func NewJobService(opts JobServiceOptions) *JobService {
	log := opts.Logger
	if log == nil {
		log = logrus.New()
	}
	return &JobService{
		registry:   opts.Registry,
		publisher:  opts.Publisher,
		fetcher:    opts.Fetcher,
		subscriber: opts.Subscriber,
		log:        log,
	}
}

// EnqueueJob validates the request, publishes a fresh envelope to the work
// subject and an initial status event, and returns the generated job id.
func (s *JobService) EnqueueJob(ctx context.Context, req *jobsv1.EnqueueJobRequest) (*jobsv1.EnqueueJobReply, error) {
	if req.JobType == "" {
		return nil, status.Error(codes.InvalidArgument, "job_type is required")
	}
	if req.UserID == "" {
		return nil, status.Error(codes.InvalidArgument, "user_id is required")
	}
	if !s.registry.Known(req.JobType) {
		return nil, status.Errorf(codes.InvalidArgument, "unsupported job_type: %s", req.JobType)
	}

	payload, err := resolvePayload(req)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	if err := s.registry.ValidatePayload(req.JobType, payload); err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	job := contracts.NewJobEnvelope(req.JobType, req.UserID, payload)
	if err := s.publisher.Publish(queue.WorkSubject(job.JobType), job.Encode()); err != nil {
		s.log.WithError(err).WithField("job_type", job.JobType).Error("publish job failed")
		return nil, status.Error(codes.Internal, "failed to enqueue job")
	}
	initial := contracts.NewJobStatusEvent(job.JobID, contracts.StateEnqueuedOrPending, 0, "", false)
	if err := s.publisher.Publish(queue.StatusSubject(job.JobID), initial.Encode()); err != nil {
		// The job itself is queued; a missed initial status event only delays
		// watchers until the next event.
		s.log.WithError(err).WithField("job_id", job.JobID).Warn("publish initial status failed")
	}

	s.log.WithFields(logrus.Fields{
		"job_id":   job.JobID,
		"job_type": job.JobType,
	}).Info("job enqueued")
	return &jobsv1.EnqueueJobReply{JobID: job.JobID}, nil
}

// GetJobStatus returns the repository snapshot mapped to lifecycle terms.
func (s *JobService) GetJobStatus(ctx context.Context, req *jobsv1.GetJobStatusRequest) (*jobsv1.GetJobStatusReply, error) {
	jobID, err := validateJobID(req.JobID)
	if err != nil {
		return nil, err
	}
	if s.fetcher == nil {
		return nil, status.Error(codes.Unimplemented, "status lookup is not configured")
	}
	snap, err := s.fetcher.GetStatus(ctx, jobID)
	if err == repository.ErrNotFound {
		return nil, status.Error(codes.NotFound, "job not found")
	}
	if err != nil {
		s.log.WithError(err).WithField("job_id", jobID).Error("status lookup failed")
		return nil, status.Error(codes.Internal, "status lookup failed")
	}
	state, err := mapLifecycleState(snap.Status, snap.IsTerminal)
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	return &jobsv1.GetJobStatusReply{
		JobID:     snap.JobID,
		State:     state,
		Attempt:   int32(snap.Attempt),
		Detail:    snap.LastError,
		Terminal:  snap.IsTerminal,
		UpdatedAt: formatTime(snap.UpdatedAt),
	}, nil
}

// WatchJobStatus streams status events for one job until the first terminal
// event or client cancellation, always releasing the status subscription.
func (s *JobService) WatchJobStatus(req *jobsv1.WatchJobStatusRequest, stream jobsv1.JobOrchestrator_WatchJobStatusServer) error {
	jobID, err := validateJobID(req.JobID)
	if err != nil {
		return err
	}
	if s.subscriber == nil {
		return status.Error(codes.Unimplemented, "status stream is not configured")
	}

	if req.IncludeCurrent {
		if s.fetcher == nil {
			return status.Error(codes.Unimplemented, "status lookup is not configured")
		}
		snap, err := s.fetcher.GetStatus(stream.Context(), jobID)
		if err == repository.ErrNotFound {
			return status.Error(codes.NotFound, "job not found")
		}
		if err != nil {
			s.log.WithError(err).WithField("job_id", jobID).Error("status lookup failed")
			return status.Error(codes.Internal, "status lookup failed")
		}
		state, err := mapLifecycleState(snap.Status, snap.IsTerminal)
		if err != nil {
			return status.Error(codes.Internal, err.Error())
		}
		current := &jobsv1.JobStatusEvent{
			JobID:     snap.JobID,
			State:     state,
			Attempt:   int32(snap.Attempt),
			Detail:    snap.LastError,
			Terminal:  snap.IsTerminal,
			EmittedAt: formatTime(snap.UpdatedAt),
		}
		if err := stream.Send(current); err != nil {
			return err
		}
		if current.Terminal {
			return nil
		}
	}

	sub, err := s.subscriber.SubscribeStatus(jobID)
	if err != nil {
		s.log.WithError(err).WithField("job_id", jobID).Error("status subscribe failed")
		return status.Error(codes.Internal, "status subscribe failed")
	}
	defer func() {
		if err := sub.Unsubscribe(); err != nil {
			s.log.WithError(err).WithField("job_id", jobID).Warn("status unsubscribe failed")
		}
	}()

	ctx := stream.Context()
	for {
		select {
		case <-ctx.Done():
			return nil
		case data, ok := <-sub.Events():
			if !ok {
				return nil
			}
			ev, err := contracts.DecodeJobStatusEvent(data)
			if err != nil {
				s.log.WithError(err).WithField("job_id", jobID).Warn("dropping undecodable status event")
				continue
			}
			if ev.JobID != jobID {
				continue
			}
			out := &jobsv1.JobStatusEvent{
				JobID:     ev.JobID,
				State:     jobsv1.JobLifecycleState(ev.State),
				Attempt:   int32(ev.Attempt),
				Detail:    ev.Detail,
				Terminal:  ev.Terminal,
				EmittedAt: formatTime(ev.EmittedAt),
			}
			if err := stream.Send(out); err != nil {
				return err
			}
			if out.Terminal {
				return nil
			}
		}
	}
}

func validateJobID(jobID string) (string, error) {
	if jobID == "" {
		return "", status.Error(codes.InvalidArgument, "job_id is required")
	}
	if _, err := uuid.Parse(jobID); err != nil {
		return "", status.Error(codes.InvalidArgument, "job_id must be a valid UUID")
	}
	return jobID, nil
}

// mapLifecycleState converts persisted (status, is_terminal) pairs to the
// client-visible lifecycle enum.
func mapLifecycleState(persisted string, isTerminal bool) (jobsv1.JobLifecycleState, error) {
	switch persisted {
	case repository.StatusRequested:
		return jobsv1.StateEnqueuedOrPending, nil
	case repository.StatusProcessing:
		return jobsv1.StateStarted, nil
	case repository.StatusCompleted:
		return jobsv1.StateSucceeded, nil
	case repository.StatusFailed:
		if isTerminal {
			return jobsv1.StateFailedFinal, nil
		}
		return jobsv1.StateRetrying, nil
	}
	return jobsv1.StateUnspecified, fmt.Errorf("unsupported lifecycle state: %s", persisted)
}

// resolvePayload extracts the canonical payload map from the request's typed
// sub-message or generic JSON, keyed by job type.
func resolvePayload(req *jobsv1.EnqueueJobRequest) (map[string]any, error) {
	if req.JobType == contracts.JobTypeKnowledgeUpdate {
		if req.KnowledgeUpdate == nil {
			return nil, fmt.Errorf("knowledge_update payload is required for %s jobs", contracts.JobTypeKnowledgeUpdate)
		}
		typed := req.KnowledgeUpdate
		payload := contracts.KnowledgeUpdatePayload{
			JournalReference:  typed.JournalReference,
			RequestedByUserID: typed.RequestedByUserID,
		}
		for _, m := range typed.Messages {
			payload.Messages = append(payload.Messages, contracts.ChatMessage{
				Role:      m.Role,
				Content:   m.Content,
				Sequence:  int(m.Sequence),
				CreatedAt: m.CreatedAt,
			})
		}
		return payload.ToMap(), nil
	}

	if req.PayloadJSON == "" {
		return nil, fmt.Errorf("payload_json is required for %s jobs", req.JobType)
	}
	var decoded map[string]any
	if err := json.Unmarshal([]byte(req.PayloadJSON), &decoded); err != nil {
		return nil, fmt.Errorf("payload_json must decode to an object: %w", err)
	}
	if decoded == nil {
		return nil, fmt.Errorf("payload_json must decode to an object")
	}
	return decoded, nil
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(time.RFC3339Nano)
}
