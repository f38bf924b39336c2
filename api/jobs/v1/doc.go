// Package jobsv1 defines the exobrain.jobs.v1.JobOrchestrator gRPC contract:
// message types, the JSON codec they travel in, the hand-maintained service
// descriptor and the client. Field names and lifecycle states mirror the
// deployment's historical wire contract.
package jobsv1
