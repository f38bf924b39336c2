// Package contracts defines the wire contracts shared by the job ingress and
// the orchestrator: the JobEnvelope describing one unit of work, the
// transient status/result/dead-letter events, and the immutable payload
// registry mapping job types to their payload schemas.
package contracts
