package nats

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"rag-lab-ui/pkg/events"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

// Subscriber listens for mirrored state changes.
type Subscriber struct {
	nc      *nats.Conn
	js      jetstream.JetStream
	consume jetstream.ConsumeContext
}

func NewSubscriber(url string) (*Subscriber, error) {
	nc, js, err := connect(url)
	if err != nil {
		return nil, err
	}
	return &Subscriber{nc: nc, js: js}, nil
}

// Subscribe delivers new events matching subject to handler. An empty
// durableName creates an ephemeral consumer that only sees events
// published from now on.
func (s *Subscriber) Subscribe(ctx context.Context, subject, durableName string, handler events.EventHandler) error {
	cfg := jetstream.ConsumerConfig{
		Durable:       durableName,
		FilterSubject: subject,
		AckPolicy:     jetstream.AckExplicitPolicy,
		DeliverPolicy: jetstream.DeliverNewPolicy,
	}

	consumer, err := s.js.CreateOrUpdateConsumer(ctx, StreamName, cfg)
	if err != nil {
		return fmt.Errorf("failed to create consumer: %w", err)
	}

	cc, err := consumer.Consume(func(msg jetstream.Msg) {
		handleMsg(ctx, msg, handler)
	})
	if err != nil {
		return fmt.Errorf("failed to start consuming: %w", err)
	}
	s.consume = cc

	log.Printf("Subscribed to %s", subject)
	return nil
}

// handleMsg settles every message exactly once. Malformed payloads are
// terminated. A failing handler is logged and the message acked anyway: a
// newer snapshot supersedes it, and redelivering would loop on a persistent
// failure.
func handleMsg(ctx context.Context, msg jetstream.Msg, handler events.EventHandler) {
	var event events.BaseEvent
	if err := json.Unmarshal(msg.Data(), &event); err != nil {
		log.Printf("Error unmarshalling event data: %v", err)
		msg.Term()
		return
	}

	if err := handler(ctx, event); err != nil {
		log.Printf("Handler failed for event %s: %v", msg.Subject(), err)
	}
	msg.Ack()
}

func (s *Subscriber) Close() {
	if s.consume != nil {
		s.consume.Stop()
	}
	if s.nc != nil {
		s.nc.Close()
	}
}
