package serverrun

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/semaphore"

	"github.com/sbischoff-ai/exobrain/internal/config"
	"github.com/sbischoff-ai/exobrain/internal/contracts"
	"github.com/sbischoff-ai/exobrain/internal/orchestrator"
	"github.com/sbischoff-ai/exobrain/internal/queue"
	"github.com/sbischoff-ai/exobrain/internal/repository"
	grpcserver "github.com/sbischoff-ai/exobrain/internal/server/grpc"
	"github.com/sbischoff-ai/exobrain/internal/worker"
)

// NewLogger builds the process-wide logger from config: text output for
// local development, JSON elsewhere.
func NewLogger(cfg config.Config) *logrus.Logger {
	logger := logrus.New()
	level, err := logrus.ParseLevel(cfg.EffectiveLogLevel())
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)
	if cfg.AppEnv == "local" {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	} else {
		logger.SetFormatter(&logrus.JSONFormatter{})
	}
	return logger
}

// RunAPI starts the gRPC ingress and blocks until ctx is cancelled.
func RunAPI(ctx context.Context, cfg config.Config, logger *logrus.Logger) error {
	sctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := repository.OpenPool(sctx, cfg.DatabaseDSN)
	if err != nil {
		return err
	}
	defer pool.Close()
	if err := repository.EnsureSchema(sctx, pool); err != nil {
		return err
	}
	logger.Info("job orchestrator database connected")

	nc, js, err := queue.Connect(cfg.NATSURL)
	if err != nil {
		return err
	}
	defer func() { _ = nc.Drain() }()
	if err := queue.EnsureJobsStream(js); err != nil {
		return err
	}
	logger.WithField("nats_url", cfg.NATSURL).Info("job orchestrator nats connected")

	svc := grpcserver.NewJobService(grpcserver.JobServiceOptions{
		Registry:   contracts.DefaultRegistry(),
		Publisher:  queue.NewJetStreamPublisher(js),
		Fetcher:    repository.New(pool),
		Subscriber: queue.NewNATSStatusSubscriber(nc),
		Logger:     logger,
	})
	srv := grpcserver.New(svc)
	defer srv.Close()

	logger.WithField("bind_target", cfg.APIBindTarget).Info("job orchestrator api started")
	if err := srv.ListenAndServe(sctx, cfg.APIBindTarget); err != nil {
		return err
	}
	logger.Info("job orchestrator api shutdown complete")
	return nil
}

// RunWorker starts the durable work consumer and blocks until ctx is
// cancelled. In-process concurrency is capped by the replica count; each
// handler holds its semaphore slot until the message is acked or nak'd.
func RunWorker(ctx context.Context, cfg config.Config, logger *logrus.Logger) error {
	sctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := repository.OpenPool(sctx, cfg.DatabaseDSN)
	if err != nil {
		return err
	}
	defer pool.Close()
	if err := repository.EnsureSchema(sctx, pool); err != nil {
		return err
	}
	logger.Info("job orchestrator database connected")

	nc, js, err := queue.Connect(cfg.NATSURL)
	if err != nil {
		return err
	}
	defer func() { _ = nc.Drain() }()
	if err := queue.EnsureJobsStream(js); err != nil {
		return err
	}
	logger.WithField("nats_url", cfg.NATSURL).Info("job orchestrator nats connected")

	orch := orchestrator.New(orchestrator.Options{
		Repository:         repository.New(pool),
		Runner:             worker.NewProcessRunner(),
		Registry:           contracts.DefaultRegistry(),
		Publisher:          queue.NewJetStreamPublisher(js),
		EventsPrefix:       cfg.EventsSubjectPrefix,
		DLQSubject:         cfg.DLQSubject,
		MaxAttempts:        cfg.MaxAttempts,
		DLQRawMessageLimit: cfg.DLQRawMessageLimit,
		Logger:             logger,
	})

	guard := semaphore.NewWeighted(int64(cfg.WorkerReplicaCount))
	handler := func(msg queue.Msg) {
		logger.WithField("subject", msg.Subject()).Debug("received job message")
		if err := guard.Acquire(sctx, 1); err != nil {
			return
		}
		go func() {
			defer guard.Release(1)
			orch.ProcessMessage(sctx, msg)
		}()
	}

	sub, err := queue.SubscribeWork(js, cfg.QueueSubject, cfg.ConsumerDurable, handler)
	if err != nil {
		return err
	}
	defer func() { _ = sub.Drain() }()

	logger.WithFields(logrus.Fields{
		"subject":  cfg.QueueSubject,
		"durable":  cfg.ConsumerDurable,
		"replicas": cfg.WorkerReplicaCount,
	}).Info("job orchestrator worker started")

	<-sctx.Done()
	logger.Info("job orchestrator shutdown complete")
	return nil
}
