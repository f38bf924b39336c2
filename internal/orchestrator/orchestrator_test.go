package orchestrator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"

	"github.com/sbischoff-ai/exobrain/internal/contracts"
	"github.com/sbischoff-ai/exobrain/internal/queue"
	"github.com/sbischoff-ai/exobrain/internal/worker"
)

type fakeMsg struct {
	subject  string
	data     []byte
	delivery int
	acked    bool
	naked    bool
}

func (m *fakeMsg) Subject() string      { return m.subject }
func (m *fakeMsg) Data() []byte         { return m.data }
func (m *fakeMsg) DeliveryAttempt() int { return m.delivery }
func (m *fakeMsg) Ack() error           { m.acked = true; return nil }
func (m *fakeMsg) Nak() error           { m.naked = true; return nil }

type fakeRepo struct {
	inserted bool
	calls    []string
}

func (r *fakeRepo) RegisterRequested(_ context.Context, job contracts.JobEnvelope) (bool, error) {
	r.calls = append(r.calls, "register:"+job.JobID)
	return r.inserted, nil
}

func (r *fakeRepo) MarkProcessing(_ context.Context, jobID string, attempt int) error {
	r.calls = append(r.calls, fmt.Sprintf("processing:%s:%d", jobID, attempt))
	return nil
}

func (r *fakeRepo) MarkCompleted(_ context.Context, jobID string) error {
	r.calls = append(r.calls, "completed:"+jobID)
	return nil
}

func (r *fakeRepo) MarkRetryingFailure(_ context.Context, jobID, _ string) error {
	r.calls = append(r.calls, "retrying-failure:"+jobID)
	return nil
}

func (r *fakeRepo) MarkTerminalFailure(_ context.Context, jobID, _, reason string) error {
	r.calls = append(r.calls, "terminal-failure:"+jobID+":"+reason)
	return nil
}

type fakeRunner struct {
	err  error
	runs int
}

func (r *fakeRunner) RunJob(context.Context, contracts.JobEnvelope) error {
	r.runs++
	return r.err
}

type published struct {
	subject string
	data    []byte
}

type fakePublisher struct {
	events       []published
	failSubjects map[string]bool
}

func (p *fakePublisher) Publish(subject string, data []byte) error {
	if p.failSubjects[subject] {
		return errors.New("publish unavailable")
	}
	p.events = append(p.events, published{subject: subject, data: data})
	return nil
}

func (p *fakePublisher) subjects() []string {
	out := make([]string, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.subject)
	}
	return out
}

func (p *fakePublisher) countSubject(subject string) int {
	n := 0
	for _, e := range p.events {
		if e.subject == subject {
			n++
		}
	}
	return n
}

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func newTestOrchestrator(repo Repository, runner worker.Runner, pub queue.Publisher, maxAttempts int) *Orchestrator {
	return New(Options{
		Repository:         repo,
		Runner:             runner,
		Registry:           contracts.DefaultRegistry(),
		Publisher:          pub,
		EventsPrefix:       "jobs.events",
		DLQSubject:         "jobs.dlq",
		MaxAttempts:        maxAttempts,
		DLQRawMessageLimit: 4096,
		Logger:             quietLogger(),
	})
}

func validEnvelope(jobID string) contracts.JobEnvelope {
	payload := contracts.KnowledgeUpdatePayload{
		JournalReference:  "2026/02/19",
		Messages:          []contracts.ChatMessage{{Role: "user", Content: "hi"}},
		RequestedByUserID: "u1",
	}
	return contracts.JobEnvelope{
		SchemaVersion: 1,
		JobID:         jobID,
		JobType:       contracts.JobTypeKnowledgeUpdate,
		CorrelationID: "u1",
		Payload:       payload.ToMap(),
		Attempt:       0,
	}
}

func workMsg(env contracts.JobEnvelope, delivery int) *fakeMsg {
	return &fakeMsg{
		subject:  "jobs.knowledge.update.requested",
		data:     env.Encode(),
		delivery: delivery,
	}
}

func TestProcessMessageCompletesNewJob(t *testing.T) {
	repo := &fakeRepo{inserted: true}
	runner := &fakeRunner{}
	pub := &fakePublisher{}
	o := newTestOrchestrator(repo, runner, pub, 3)

	env := validEnvelope("job-1")
	msg := workMsg(env, 1)
	o.ProcessMessage(context.Background(), msg)

	if !msg.acked || msg.naked {
		t.Fatalf("expected ack without nak, got acked=%v naked=%v", msg.acked, msg.naked)
	}
	if runner.runs != 1 {
		t.Fatalf("expected 1 run, got %d", runner.runs)
	}
	want := []string{"register:job-1", "processing:job-1:1", "completed:job-1"}
	if strings.Join(repo.calls, ",") != strings.Join(want, ",") {
		t.Fatalf("repo calls = %v, want %v", repo.calls, want)
	}
	if got := pub.countSubject("jobs.events.knowledge.update.completed"); got != 1 {
		t.Fatalf("expected 1 completed result event, got %d (subjects=%v)", got, pub.subjects())
	}
	if got := pub.countSubject("jobs.status.job-1"); got != 2 {
		t.Fatalf("expected STARTED and SUCCEEDED status events, got %d", got)
	}
	var last contracts.JobStatusEvent
	if err := json.Unmarshal(pub.events[len(pub.events)-1].data, &last); err != nil {
		t.Fatalf("decode status event: %v", err)
	}
	if last.State != contracts.StateSucceeded || !last.Terminal {
		t.Fatalf("final status event = %+v, want terminal SUCCEEDED", last)
	}
}

func TestProcessMessageSkipsDuplicateJob(t *testing.T) {
	repo := &fakeRepo{inserted: false}
	runner := &fakeRunner{}
	pub := &fakePublisher{}
	o := newTestOrchestrator(repo, runner, pub, 3)

	msg := workMsg(validEnvelope("job-dup"), 1)
	o.ProcessMessage(context.Background(), msg)

	if !msg.acked {
		t.Fatal("duplicate must be acked")
	}
	if runner.runs != 0 {
		t.Fatalf("duplicate must not run, got %d runs", runner.runs)
	}
	if len(repo.calls) != 1 || repo.calls[0] != "register:job-dup" {
		t.Fatalf("repo calls = %v, want only registration", repo.calls)
	}
	if got := pub.countSubject("jobs.events.knowledge.update.completed"); got != 0 {
		t.Fatalf("duplicate must not emit result events, got %d", got)
	}
}

func TestProcessMessageRedeliverySkipsRegistration(t *testing.T) {
	// inserted=false would stop a first delivery; a redelivery must not even
	// consult registration.
	repo := &fakeRepo{inserted: false}
	runner := &fakeRunner{}
	pub := &fakePublisher{}
	o := newTestOrchestrator(repo, runner, pub, 3)

	msg := workMsg(validEnvelope("job-2"), 2)
	o.ProcessMessage(context.Background(), msg)

	if !msg.acked {
		t.Fatal("expected ack")
	}
	want := []string{"processing:job-2:2", "completed:job-2"}
	if strings.Join(repo.calls, ",") != strings.Join(want, ",") {
		t.Fatalf("repo calls = %v, want %v", repo.calls, want)
	}
}

func TestProcessMessageRetriesTransientFailure(t *testing.T) {
	repo := &fakeRepo{inserted: true}
	runner := &fakeRunner{err: errors.New("downstream flaked")}
	pub := &fakePublisher{}
	o := newTestOrchestrator(repo, runner, pub, 3)

	msg := workMsg(validEnvelope("job-3"), 1)
	o.ProcessMessage(context.Background(), msg)

	if msg.acked || !msg.naked {
		t.Fatalf("transient failure must nak, got acked=%v naked=%v", msg.acked, msg.naked)
	}
	if got := pub.countSubject("jobs.dlq"); got != 0 {
		t.Fatalf("no DLQ before exhaustion, got %d", got)
	}
	var retrying contracts.JobStatusEvent
	if err := json.Unmarshal(pub.events[len(pub.events)-1].data, &retrying); err != nil {
		t.Fatalf("decode status event: %v", err)
	}
	if retrying.State != contracts.StateRetrying || retrying.Terminal {
		t.Fatalf("final status event = %+v, want non-terminal RETRYING", retrying)
	}
	if !strings.Contains(strings.Join(repo.calls, ","), "retrying-failure:job-3") {
		t.Fatalf("repo calls = %v, want retrying failure", repo.calls)
	}
}

func TestProcessMessageExhaustedAttemptsDeadLetters(t *testing.T) {
	repo := &fakeRepo{inserted: true}
	runner := &fakeRunner{err: errors.New("still broken")}
	pub := &fakePublisher{}
	o := newTestOrchestrator(repo, runner, pub, 3)

	msg := workMsg(validEnvelope("job-4"), 3)
	o.ProcessMessage(context.Background(), msg)

	if !msg.acked || msg.naked {
		t.Fatalf("exhausted failure must ack, got acked=%v naked=%v", msg.acked, msg.naked)
	}
	if got := pub.countSubject("jobs.dlq"); got != 1 {
		t.Fatalf("expected exactly one DLQ event, got %d", got)
	}
	if got := pub.countSubject("jobs.events.knowledge.update.failed"); got != 1 {
		t.Fatalf("expected one failed result event, got %d", got)
	}
	if !strings.Contains(strings.Join(repo.calls, ","), "terminal-failure:job-4:max-attempts") {
		t.Fatalf("repo calls = %v, want terminal failure with max-attempts", repo.calls)
	}
	var dlq contracts.DeadLetterEvent
	for _, e := range pub.events {
		if e.subject == "jobs.dlq" {
			if err := json.Unmarshal(e.data, &dlq); err != nil {
				t.Fatalf("decode DLQ event: %v", err)
			}
		}
	}
	if dlq.Reason != contracts.DLQReasonMaxAttempts || dlq.JobID != "job-4" {
		t.Fatalf("DLQ event = %+v, want max-attempts for job-4", dlq)
	}
}

func TestProcessMessagePermanentFailureShortCircuits(t *testing.T) {
	repo := &fakeRepo{inserted: true}
	runner := &fakeRunner{err: worker.Permanent(errors.New("payload names a deleted journal"))}
	pub := &fakePublisher{}
	o := newTestOrchestrator(repo, runner, pub, 3)

	msg := workMsg(validEnvelope("job-5"), 1)
	o.ProcessMessage(context.Background(), msg)

	if !msg.acked || msg.naked {
		t.Fatalf("permanent failure must ack on first attempt, got acked=%v naked=%v", msg.acked, msg.naked)
	}
	if !strings.Contains(strings.Join(repo.calls, ","), "terminal-failure:job-5:permanent-failure") {
		t.Fatalf("repo calls = %v, want permanent terminal failure", repo.calls)
	}
	if got := pub.countSubject("jobs.dlq"); got != 1 {
		t.Fatalf("expected one DLQ event, got %d", got)
	}
}

func TestProcessMessageInvalidEnvelope(t *testing.T) {
	tests := []struct {
		name     string
		delivery int
		wantAck  bool
		wantNak  bool
		wantDLQ  int
	}{
		{name: "attempts remain", delivery: 1, wantNak: true},
		{name: "final attempt", delivery: 3, wantAck: true, wantDLQ: 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := &fakeRepo{inserted: true}
			pub := &fakePublisher{}
			o := newTestOrchestrator(repo, &fakeRunner{}, pub, 3)

			msg := &fakeMsg{subject: "jobs.knowledge.update.requested", data: []byte("not-json"), delivery: tt.delivery}
			o.ProcessMessage(context.Background(), msg)

			if msg.acked != tt.wantAck || msg.naked != tt.wantNak {
				t.Fatalf("acked=%v naked=%v, want acked=%v naked=%v", msg.acked, msg.naked, tt.wantAck, tt.wantNak)
			}
			if got := pub.countSubject("jobs.dlq"); got != tt.wantDLQ {
				t.Fatalf("DLQ events = %d, want %d", got, tt.wantDLQ)
			}
			if len(repo.calls) != 0 {
				t.Fatalf("invalid envelope must not touch the repository, got %v", repo.calls)
			}
		})
	}
}

func TestProcessMessageInvalidPayloadIsPermanent(t *testing.T) {
	repo := &fakeRepo{inserted: true}
	runner := &fakeRunner{}
	pub := &fakePublisher{}
	o := newTestOrchestrator(repo, runner, pub, 3)

	env := validEnvelope("job-6")
	env.Payload = map[string]any{"journal_reference": "2026/02/19"}
	msg := workMsg(env, 1)
	o.ProcessMessage(context.Background(), msg)

	if !msg.acked || msg.naked {
		t.Fatalf("schema mismatch must ack immediately, got acked=%v naked=%v", msg.acked, msg.naked)
	}
	if runner.runs != 0 {
		t.Fatal("schema mismatch must not run the job")
	}
	if got := pub.countSubject("jobs.dlq"); got != 1 {
		t.Fatalf("expected one DLQ event, got %d", got)
	}
	var dlq contracts.DeadLetterEvent
	_ = json.Unmarshal(pub.events[0].data, &dlq)
	if dlq.Reason != contracts.DLQReasonInvalidPayload {
		t.Fatalf("DLQ reason = %q, want %q", dlq.Reason, contracts.DLQReasonInvalidPayload)
	}
}

func TestProcessMessageDropsForeignSubject(t *testing.T) {
	repo := &fakeRepo{inserted: true}
	runner := &fakeRunner{}
	pub := &fakePublisher{}
	o := newTestOrchestrator(repo, runner, pub, 3)

	msg := &fakeMsg{subject: "jobs.status.abc", data: validEnvelope("job-7").Encode(), delivery: 1}
	o.ProcessMessage(context.Background(), msg)

	if !msg.acked {
		t.Fatal("foreign subject must be ack-dropped")
	}
	if runner.runs != 0 || len(repo.calls) != 0 || len(pub.events) != 0 {
		t.Fatalf("foreign subject must have no side effects, got runs=%d repo=%v events=%v", runner.runs, repo.calls, pub.subjects())
	}
}

func TestProcessMessageAcksWhenDLQPublishFails(t *testing.T) {
	repo := &fakeRepo{inserted: true}
	runner := &fakeRunner{err: errors.New("broken")}
	pub := &fakePublisher{failSubjects: map[string]bool{"jobs.dlq": true}}
	o := newTestOrchestrator(repo, runner, pub, 1)

	msg := workMsg(validEnvelope("job-8"), 1)
	o.ProcessMessage(context.Background(), msg)

	if !msg.acked {
		t.Fatal("message must be acked even when the DLQ publish fails")
	}
}

func TestProcessMessageClipsDLQRawMessage(t *testing.T) {
	repo := &fakeRepo{inserted: true}
	pub := &fakePublisher{}
	o := New(Options{
		Repository:         repo,
		Runner:             &fakeRunner{},
		Registry:           contracts.DefaultRegistry(),
		Publisher:          pub,
		EventsPrefix:       "jobs.events",
		DLQSubject:         "jobs.dlq",
		MaxAttempts:        1,
		DLQRawMessageLimit: 16,
		Logger:             quietLogger(),
	})

	raw := []byte(strings.Repeat("x", 100))
	msg := &fakeMsg{subject: "jobs.knowledge.update.requested", data: raw, delivery: 1}
	o.ProcessMessage(context.Background(), msg)

	var dlq contracts.DeadLetterEvent
	if err := json.Unmarshal(pub.events[0].data, &dlq); err != nil {
		t.Fatalf("decode DLQ event: %v", err)
	}
	if len(dlq.RawMessage) != 16 {
		t.Fatalf("raw message length = %d, want 16", len(dlq.RawMessage))
	}
}

func TestProcessMessageFailThenSucceedKeepsAttemptCount(t *testing.T) {
	repo := &fakeRepo{inserted: true}
	pub := &fakePublisher{}
	runner := &fakeRunner{err: errors.New("first try fails")}
	o := newTestOrchestrator(repo, runner, pub, 3)

	env := validEnvelope("job-9")
	first := workMsg(env, 1)
	o.ProcessMessage(context.Background(), first)
	if !first.naked {
		t.Fatal("first delivery should be nak'd")
	}

	runner.err = nil
	second := workMsg(env, 2)
	o.ProcessMessage(context.Background(), second)
	if !second.acked {
		t.Fatal("second delivery should be acked")
	}
	joined := strings.Join(repo.calls, ",")
	if !strings.Contains(joined, "processing:job-9:2") {
		t.Fatalf("repo calls = %v, want processing attempt 2", repo.calls)
	}
	if !strings.Contains(joined, "completed:job-9") {
		t.Fatalf("repo calls = %v, want completion", repo.calls)
	}
	if got := pub.countSubject("jobs.events.knowledge.update.completed"); got != 1 {
		t.Fatalf("expected exactly one completed result event, got %d", got)
	}
}
