package queue

import (
	"errors"
	"fmt"

	"github.com/nats-io/nats.go"
)

// JobsStreamName backs every "jobs.>" subject: the durable work queue, the
// per-job status fan-out, result events and the DLQ.
const JobsStreamName = "JOBS"

// Connect establishes the NATS connection and its JetStream context.
func Connect(url string) (*nats.Conn, nats.JetStreamContext, error) {
	nc, err := nats.Connect(url)
	if err != nil {
		return nil, nil, fmt.Errorf("connect nats: %w", err)
	}
	js, err := nc.JetStream()
	if err != nil {
		nc.Close()
		return nil, nil, fmt.Errorf("jetstream context: %w", err)
	}
	return nc, js, nil
}

// EnsureJobsStream creates the JOBS stream if it does not exist yet.
func EnsureJobsStream(js nats.JetStreamContext) error {
	_, err := js.AddStream(&nats.StreamConfig{
		Name:     JobsStreamName,
		Subjects: []string{subjectRoot + ".>"},
	})
	if err != nil && !errors.Is(err, nats.ErrStreamNameAlreadyInUse) {
		return fmt.Errorf("ensure stream %s: %w", JobsStreamName, err)
	}
	return nil
}

// Publisher is the narrow publish surface the ingress and orchestrator need.
type Publisher interface {
	Publish(subject string, data []byte) error
}

// JetStreamPublisher publishes through a JetStream context so events land in
// the JOBS stream.
type JetStreamPublisher struct {
	js nats.JetStreamContext
}

// NewJetStreamPublisher wraps js as a Publisher.
func NewJetStreamPublisher(js nats.JetStreamContext) *JetStreamPublisher {
	return &JetStreamPublisher{js: js}
}

// Publish sends data to subject.
func (p *JetStreamPublisher) Publish(subject string, data []byte) error {
	_, err := p.js.Publish(subject, data)
	return err
}

// Msg is one delivery from the work queue. DeliveryAttempt is the broker's
// redelivery count starting at 1; implementations default to 1 when the
// broker does not supply metadata.
type Msg interface {
	Subject() string
	Data() []byte
	DeliveryAttempt() int
	Ack() error
	Nak() error
}

// jetStreamMsg adapts *nats.Msg to Msg.
type jetStreamMsg struct {
	msg *nats.Msg
}

// WrapMsg adapts a JetStream message for the orchestrator.
func WrapMsg(msg *nats.Msg) Msg { return jetStreamMsg{msg: msg} }

func (m jetStreamMsg) Subject() string { return m.msg.Subject }
func (m jetStreamMsg) Data() []byte    { return m.msg.Data }

func (m jetStreamMsg) DeliveryAttempt() int {
	meta, err := m.msg.Metadata()
	if err != nil || meta.NumDelivered == 0 {
		return 1
	}
	return int(meta.NumDelivered)
}

func (m jetStreamMsg) Ack() error { return m.msg.Ack() }
func (m jetStreamMsg) Nak() error { return m.msg.Nak() }

// SubscribeWork attaches a durable manual-ack consumer to the work subject.
// The handler owns acknowledgement; unacknowledged messages are redelivered
// by the broker with its own backoff.
func SubscribeWork(js nats.JetStreamContext, subject, durable string, handler func(Msg)) (*nats.Subscription, error) {
	sub, err := js.Subscribe(subject, func(msg *nats.Msg) {
		handler(WrapMsg(msg))
	}, nats.Durable(durable), nats.ManualAck())
	if err != nil {
		return nil, fmt.Errorf("subscribe %s: %w", subject, err)
	}
	return sub, nil
}

// StatusSubscription is a live feed of raw status event payloads for one job.
type StatusSubscription interface {
	Events() <-chan []byte
	Unsubscribe() error
}

// StatusSubscriber opens per-job status subscriptions. Implemented over core
// NATS; ingress tests substitute fakes.
type StatusSubscriber interface {
	SubscribeStatus(jobID string) (StatusSubscription, error)
}

// NATSStatusSubscriber subscribes to per-job status subjects on a core NATS
// connection.
type NATSStatusSubscriber struct {
	nc *nats.Conn
}

// NewNATSStatusSubscriber wraps nc as a StatusSubscriber.
func NewNATSStatusSubscriber(nc *nats.Conn) *NATSStatusSubscriber {
	return &NATSStatusSubscriber{nc: nc}
}

// SubscribeStatus opens a channel subscription on the job's status subject.
func (s *NATSStatusSubscriber) SubscribeStatus(jobID string) (StatusSubscription, error) {
	ch := make(chan *nats.Msg, 64)
	sub, err := s.nc.ChanSubscribe(StatusSubject(jobID), ch)
	if err != nil {
		return nil, fmt.Errorf("subscribe status %s: %w", jobID, err)
	}
	out := make(chan []byte, 64)
	done := make(chan struct{})
	go func() {
		defer close(out)
		for {
			select {
			case msg, ok := <-ch:
				if !ok {
					return
				}
				out <- msg.Data
			case <-done:
				return
			}
		}
	}()
	return &natsStatusSubscription{sub: sub, out: out, done: done}, nil
}

type natsStatusSubscription struct {
	sub  *nats.Subscription
	out  chan []byte
	done chan struct{}
}

func (s *natsStatusSubscription) Events() <-chan []byte { return s.out }

func (s *natsStatusSubscription) Unsubscribe() error {
	select {
	case <-s.done:
	default:
		close(s.done)
	}
	return s.sub.Unsubscribe()
}
