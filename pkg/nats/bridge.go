package nats

import (
	"context"

	"rag-lab-ui/pkg/events"
)

// Sink is anything events can be forwarded to; *Publisher is one.
type Sink interface {
	Publish(ctx context.Context, event events.Event) error
}

// Bridge forwards every event of the local bus to NATS so that other
// processes can watch sessions they do not own.
func Bridge(ctx context.Context, bus *events.Bus, sink Sink) error {
	return bus.Subscribe(ctx, "nats-bridge", func(ctx context.Context, event events.Event) error {
		return sink.Publish(ctx, event)
	})
}
