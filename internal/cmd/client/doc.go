// Package clientcmd provides the CLI verbs that talk to the job
// orchestrator's gRPC API: enqueue, status and watch.
package clientcmd
