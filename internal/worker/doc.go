// Package worker executes job bodies. The default ProcessRunner isolates
// each job in its own child process; HandlerRunner dispatches in-process.
// Failures are classified by value: Permanent marks errors that no retry can
// fix.
package worker
