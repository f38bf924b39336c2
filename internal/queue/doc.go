// Package queue holds the NATS JetStream glue: connection setup, the JOBS
// stream definition, subject naming, the durable work subscription with
// manual acknowledgement, and the per-job status fan-out subscription used by
// the watch API.
package queue
