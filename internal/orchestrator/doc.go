// Package orchestrator implements the retry/dead-letter state machine at the
// heart of the job system. It consumes durable work-queue deliveries, derives
// attempt counts from broker redelivery metadata, registers jobs
// idempotently, executes them through the worker runner, and routes outcomes
// to the repository, the per-job status subject, the result subjects and the
// dead-letter subject.
package orchestrator
