package config

import "testing"

func TestDefaults(t *testing.T) {
	cfg := Default()
	if cfg.AppEnv != "local" {
		t.Fatalf("AppEnv = %q", cfg.AppEnv)
	}
	if cfg.QueueSubject != "jobs.*.*.requested" {
		t.Fatalf("QueueSubject = %q", cfg.QueueSubject)
	}
	if cfg.DLQSubject != "jobs.dlq" {
		t.Fatalf("DLQSubject = %q", cfg.DLQSubject)
	}
	if cfg.ConsumerDurable != "job-orchestrator-worker-v2" {
		t.Fatalf("ConsumerDurable = %q", cfg.ConsumerDurable)
	}
	if cfg.MaxAttempts != 3 || cfg.DLQRawMessageLimit != 4096 || cfg.WorkerReplicaCount != 1 {
		t.Fatalf("policy defaults = %d/%d/%d", cfg.MaxAttempts, cfg.DLQRawMessageLimit, cfg.WorkerReplicaCount)
	}
}

func TestFromEnvOverlay(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("JOB_ORCHESTRATOR_DB_DSN", "postgres://u:p@db:5432/jobs")
	t.Setenv("EXOBRAIN_NATS_URL", "nats://broker:4222")
	t.Setenv("JOB_MAX_ATTEMPTS", "5")
	t.Setenv("WORKER_REPLICA_COUNT", "8")
	t.Setenv("JOB_ORCHESTRATOR_API_BIND_TARGET", ":6000")

	cfg := Load()
	if cfg.AppEnv != "production" {
		t.Fatalf("AppEnv = %q", cfg.AppEnv)
	}
	if cfg.DatabaseDSN != "postgres://u:p@db:5432/jobs" {
		t.Fatalf("DatabaseDSN = %q", cfg.DatabaseDSN)
	}
	if cfg.NATSURL != "nats://broker:4222" {
		t.Fatalf("NATSURL = %q", cfg.NATSURL)
	}
	if cfg.MaxAttempts != 5 || cfg.WorkerReplicaCount != 8 {
		t.Fatalf("MaxAttempts/WorkerReplicaCount = %d/%d", cfg.MaxAttempts, cfg.WorkerReplicaCount)
	}
	if cfg.APIBindTarget != ":6000" {
		t.Fatalf("APIBindTarget = %q", cfg.APIBindTarget)
	}
}

func TestFromEnvRejectsOutOfRangeValues(t *testing.T) {
	t.Setenv("JOB_MAX_ATTEMPTS", "0")
	t.Setenv("JOB_DLQ_RAW_MESSAGE_MAX_CHARS", "10")
	t.Setenv("WORKER_REPLICA_COUNT", "not-a-number")

	cfg := Load()
	if cfg.MaxAttempts != 3 {
		t.Fatalf("MaxAttempts = %d, want default 3", cfg.MaxAttempts)
	}
	if cfg.DLQRawMessageLimit != 4096 {
		t.Fatalf("DLQRawMessageLimit = %d, want default 4096", cfg.DLQRawMessageLimit)
	}
	if cfg.WorkerReplicaCount != 1 {
		t.Fatalf("WorkerReplicaCount = %d, want default 1", cfg.WorkerReplicaCount)
	}
}

func TestEffectiveLogLevel(t *testing.T) {
	tests := []struct {
		name  string
		cfg   Config
		level string
	}{
		{name: "explicit wins", cfg: Config{AppEnv: "local", LogLevel: "warning"}, level: "warning"},
		{name: "local defaults to debug", cfg: Config{AppEnv: "local"}, level: "debug"},
		{name: "production defaults to info", cfg: Config{AppEnv: "production"}, level: "info"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.cfg.EffectiveLogLevel(); got != tt.level {
				t.Fatalf("EffectiveLogLevel() = %q, want %q", got, tt.level)
			}
		})
	}
}
