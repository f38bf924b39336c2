package queue

// Subject layout. Work and result subjects embed the job type, which itself
// contains a dot (e.g. "knowledge.update"), so the work pattern in config is
// "jobs.*.*.requested".
const (
	subjectRoot         = "jobs"
	statusSubjectPrefix = subjectRoot + ".status."
)

// WorkSubject is the durable work subject for a job type.
func WorkSubject(jobType string) string {
	return subjectRoot + "." + jobType + ".requested"
}

// StatusSubject is the ephemeral per-job status fan-out subject.
func StatusSubject(jobID string) string {
	return statusSubjectPrefix + jobID
}

// ResultSubject is the per-job-type result event subject for downstream
// subscribers, e.g. "jobs.events.knowledge.update.completed".
func ResultSubject(eventsPrefix, jobType, outcome string) string {
	return eventsPrefix + "." + jobType + "." + outcome
}
