// Package repository persists job lifecycle state in Postgres. Registration
// is an idempotent insert keyed by job_id; every status transition is a
// single-row update, so concurrent redeliveries resolve by last write.
package repository
