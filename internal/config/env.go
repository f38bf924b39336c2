package config

import (
	"os"
	"strconv"
)

// FromEnv overlays environment variables onto cfg. Variable names follow the
// deployment's compose files; unset or unparsable values leave the existing
// value in place.
func FromEnv(cfg *Config) {
	if v := os.Getenv("APP_ENV"); v != "" {
		cfg.AppEnv = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("JOB_ORCHESTRATOR_DB_DSN"); v != "" {
		cfg.DatabaseDSN = v
	}
	if v := os.Getenv("EXOBRAIN_NATS_URL"); v != "" {
		cfg.NATSURL = v
	}
	if v := os.Getenv("JOB_QUEUE_SUBJECT"); v != "" {
		cfg.QueueSubject = v
	}
	if v := os.Getenv("JOB_EVENTS_SUBJECT_PREFIX"); v != "" {
		cfg.EventsSubjectPrefix = v
	}
	if v := os.Getenv("JOB_DLQ_SUBJECT"); v != "" {
		cfg.DLQSubject = v
	}
	if v := os.Getenv("JOB_CONSUMER_DURABLE"); v != "" {
		cfg.ConsumerDurable = v
	}
	if v := os.Getenv("JOB_MAX_ATTEMPTS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 1 {
			cfg.MaxAttempts = n
		}
	}
	if v := os.Getenv("JOB_DLQ_RAW_MESSAGE_MAX_CHARS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 256 {
			cfg.DLQRawMessageLimit = n
		}
	}
	if v := os.Getenv("WORKER_REPLICA_COUNT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 1 {
			cfg.WorkerReplicaCount = n
		}
	}
	if v := os.Getenv("JOB_ORCHESTRATOR_API_BIND_TARGET"); v != "" {
		cfg.APIBindTarget = v
	}
	if v := os.Getenv("KNOWLEDGE_INTERFACE_GRPC_TARGET"); v != "" {
		cfg.KnowledgeInterfaceTarget = v
	}
	if v := os.Getenv("KNOWLEDGE_INTERFACE_CONNECT_TIMEOUT_SECONDS"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f > 0 {
			cfg.KnowledgeInterfaceConnectTimeout = f
		}
	}
}
