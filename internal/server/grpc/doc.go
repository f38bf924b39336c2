// Package grpcserver hosts the job orchestrator's gRPC ingress: job
// enqueueing, point-in-time status lookup and the live status watch stream.
package grpcserver
