package orchestrator

import (
	"context"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/sbischoff-ai/exobrain/internal/contracts"
	"github.com/sbischoff-ai/exobrain/internal/queue"
	"github.com/sbischoff-ai/exobrain/internal/worker"
)

// workSubjectSuffix guards against non-work subjects reaching the consumer.
const workSubjectSuffix = ".requested"

// Repository is the persistence surface the orchestrator drives.
type Repository interface {
	RegisterRequested(ctx context.Context, job contracts.JobEnvelope) (bool, error)
	MarkProcessing(ctx context.Context, jobID string, attempt int) error
	MarkCompleted(ctx context.Context, jobID string) error
	MarkRetryingFailure(ctx context.Context, jobID, errorMessage string) error
	MarkTerminalFailure(ctx context.Context, jobID, errorMessage, terminalReason string) error
}

// Options configures an Orchestrator.
type Options struct {
	Repository         Repository
	Runner             worker.Runner
	Registry           *contracts.Registry
	Publisher          queue.Publisher
	EventsPrefix       string
	DLQSubject         string
	MaxAttempts        int
	DLQRawMessageLimit int
	Logger             *logrus.Logger
}

// Orchestrator is the retry/dead-letter state machine consuming the durable
// work queue. Acknowledgement discipline is the only concurrency primitive:
// ack exactly when this message must never be redelivered, nak otherwise.
type Orchestrator struct {
	repo         Repository
	runner       worker.Runner
	registry     *contracts.Registry
	publisher    queue.Publisher
	eventsPrefix string
	dlqSubject   string
	maxAttempts  int
	dlqClip      int
	log          *logrus.Logger
}

// New builds an Orchestrator.
func New(opts Options) *Orchestrator {
	log := opts.Logger
	if log == nil {
		log = logrus.New()
	}
	maxAttempts := opts.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return &Orchestrator{
		repo:         opts.Repository,
		runner:       opts.Runner,
		registry:     opts.Registry,
		publisher:    opts.Publisher,
		eventsPrefix: opts.EventsPrefix,
		dlqSubject:   opts.DLQSubject,
		maxAttempts:  maxAttempts,
		dlqClip:      opts.DLQRawMessageLimit,
		log:          log,
	}
}

// ProcessMessage handles one delivery from the work queue end to end.
func (o *Orchestrator) ProcessMessage(ctx context.Context, msg queue.Msg) {
	if !strings.HasSuffix(msg.Subject(), workSubjectSuffix) {
		o.log.WithField("subject", msg.Subject()).Warn("dropping message from unexpected subject")
		o.ack(msg)
		return
	}

	delivery := msg.DeliveryAttempt()
	if delivery < 1 {
		delivery = 1
	}

	job, err := contracts.DecodeJobEnvelope(msg.Data())
	if err != nil {
		if delivery < o.maxAttempts {
			o.log.WithError(err).WithField("delivery_attempt", delivery).
				Warn("invalid job envelope, leaving for redelivery")
			o.nak(msg)
			return
		}
		o.log.WithError(err).Warn("invalid job envelope, dead-lettering")
		o.publishDeadLetter("", "", contracts.DLQReasonInvalidEnvelope, err.Error(), msg.Data())
		o.ack(msg)
		return
	}

	logger := o.log.WithFields(logrus.Fields{
		"job_id":           job.JobID,
		"job_type":         job.JobType,
		"delivery_attempt": delivery,
	})

	// A schema mismatch will not be fixed by retrying, so it is permanent no
	// matter how many attempts remain.
	if o.registry != nil && o.registry.Known(job.JobType) {
		if err := o.registry.ValidatePayload(job.JobType, job.Payload); err != nil {
			logger.WithError(err).Warn("payload failed schema validation, dead-lettering")
			o.publishDeadLetter(job.JobID, job.JobType, contracts.DLQReasonInvalidPayload, err.Error(), msg.Data())
			o.ack(msg)
			return
		}
	}

	// Zero-based attempt derived from the broker's redelivery count, so it
	// survives orchestrator restarts.
	job.Attempt = delivery - 1

	if delivery == 1 {
		inserted, err := o.repo.RegisterRequested(ctx, job)
		if err != nil {
			logger.WithError(err).Error("register job failed, leaving for redelivery")
			o.nak(msg)
			return
		}
		if !inserted {
			// The broker redelivered before the first ack landed.
			logger.Info("skipping duplicate job")
			o.ack(msg)
			return
		}
	}

	if err := o.repo.MarkProcessing(ctx, job.JobID, delivery); err != nil {
		logger.WithError(err).Error("mark processing failed")
	}
	o.publishStatus(contracts.NewJobStatusEvent(job.JobID, contracts.StateStarted, delivery, "", false))

	runErr := o.runner.RunJob(ctx, job)
	if runErr == nil {
		if err := o.repo.MarkCompleted(ctx, job.JobID); err != nil {
			logger.WithError(err).Error("mark completed failed")
		}
		o.publishResult(job, contracts.ResultCompleted, delivery, "")
		o.publishStatus(contracts.NewJobStatusEvent(job.JobID, contracts.StateSucceeded, delivery, "", true))
		logger.Info("job completed")
		o.ack(msg)
		return
	}

	logger.WithError(runErr).Warn("job attempt failed")
	if err := o.repo.MarkRetryingFailure(ctx, job.JobID, runErr.Error()); err != nil {
		logger.WithError(err).Error("mark retrying failure failed")
	}

	permanent := worker.IsPermanent(runErr)
	if delivery >= o.maxAttempts || permanent {
		reason := contracts.DLQReasonMaxAttempts
		if permanent {
			reason = contracts.DLQReasonPermanentFailure
		}
		o.publishResult(job, contracts.ResultFailed, delivery, runErr.Error())
		if err := o.repo.MarkTerminalFailure(ctx, job.JobID, runErr.Error(), reason); err != nil {
			logger.WithError(err).Error("mark terminal failure failed")
		}
		o.publishStatus(contracts.NewJobStatusEvent(job.JobID, contracts.StateFailedFinal, delivery, runErr.Error(), true))
		o.publishDeadLetter(job.JobID, job.JobType, reason, runErr.Error(), msg.Data())
		logger.WithField("reason", reason).Error("job failed permanently")
		o.ack(msg)
		return
	}

	o.publishStatus(contracts.NewJobStatusEvent(job.JobID, contracts.StateRetrying, delivery, runErr.Error(), false))
	o.nak(msg)
}

func (o *Orchestrator) publishStatus(ev contracts.JobStatusEvent) {
	if err := o.publisher.Publish(queue.StatusSubject(ev.JobID), ev.Encode()); err != nil {
		o.log.WithError(err).WithField("job_id", ev.JobID).Error("publish status event failed")
	}
}

func (o *Orchestrator) publishResult(job contracts.JobEnvelope, status string, attempt int, detail string) {
	ev := contracts.NewJobResultEvent(job, status, attempt, detail)
	subject := queue.ResultSubject(o.eventsPrefix, job.JobType, status)
	if err := o.publisher.Publish(subject, ev.Encode()); err != nil {
		o.log.WithError(err).WithField("job_id", job.JobID).Error("publish result event failed")
	}
}

// publishDeadLetter never blocks the queue on DLQ availability: a failed
// publish is logged and the message is still acknowledged by the caller,
// accepting the risk of a silently lost alert.
func (o *Orchestrator) publishDeadLetter(jobID, jobType, reason, detail string, raw []byte) {
	ev := contracts.NewDeadLetterEvent(reason, detail, raw, o.dlqClip)
	ev.JobID = jobID
	ev.JobType = jobType
	if err := o.publisher.Publish(o.dlqSubject, ev.Encode()); err != nil {
		o.log.WithError(err).WithFields(logrus.Fields{
			"job_id": jobID,
			"reason": reason,
		}).Error("publish dead letter failed")
	}
}

func (o *Orchestrator) ack(msg queue.Msg) {
	if err := msg.Ack(); err != nil {
		o.log.WithError(err).Error("ack failed")
	}
}

func (o *Orchestrator) nak(msg queue.Msg) {
	if err := msg.Nak(); err != nil {
		o.log.WithError(err).Error("nak failed")
	}
}
