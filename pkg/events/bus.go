package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
)

const DefaultTopic = "raglab.state"

// EventHandler is a function that processes an event.
type EventHandler func(ctx context.Context, event Event) error

// Bus is the in-process fan-out for state changes. Unless built with
// WithSynchronousDelivery, deliveries to one subscriber are not guaranteed to
// keep publish order; consumers order snapshots by their version.
type Bus struct {
	pubSub *gochannel.GoChannel
	topic  string
	logger watermill.LoggerAdapter
}

// BusOption tunes the underlying channel pub/sub.
type BusOption func(*gochannel.Config)

// WithSynchronousDelivery makes Publish return only after every subscriber
// has handled the event, so delivery follows publish order.
func WithSynchronousDelivery() BusOption {
	return func(c *gochannel.Config) {
		c.BlockPublishUntilSubscriberAck = true
	}
}

func NewBus(logger watermill.LoggerAdapter, opts ...BusOption) *Bus {
	if logger == nil {
		logger = watermill.NopLogger{}
	}
	cfg := gochannel.Config{OutputChannelBuffer: 64}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Bus{
		pubSub: gochannel.NewGoChannel(cfg, logger),
		topic:  DefaultTopic,
		logger: logger,
	}
}

// Publish sends an event to every current subscriber.
func (b *Bus) Publish(ctx context.Context, event Event) error {
	data, err := json.Marshal(FromEvent(event))
	if err != nil {
		return fmt.Errorf("failed to marshal event %s: %w", event.EventType(), err)
	}

	msg := message.NewMessage(watermill.NewUUID(), data)
	msg.SetContext(ctx)
	msg.Metadata.Set("type", event.EventType())

	if err := b.pubSub.Publish(b.topic, msg); err != nil {
		return fmt.Errorf("failed to publish event %s: %w", event.EventType(), err)
	}
	return nil
}

// Subscribe runs handler for every event until ctx is done or the bus is
// closed. Handler errors are logged and the message is still acked: state
// snapshots are superseded by the next one, so redelivery is pointless.
func (b *Bus) Subscribe(ctx context.Context, name string, handler EventHandler) error {
	messages, err := b.pubSub.Subscribe(ctx, b.topic)
	if err != nil {
		return fmt.Errorf("failed to subscribe %s: %w", name, err)
	}

	fields := watermill.LogFields{"subscriber": name}
	go func() {
		for msg := range messages {
			var event BaseEvent
			if err := json.Unmarshal(msg.Payload, &event); err != nil {
				b.logger.Error("Dropping malformed event", err, fields)
				msg.Ack()
				continue
			}
			if err := handler(msg.Context(), event); err != nil {
				b.logger.Error("Event handler failed", err, fields.Add(watermill.LogFields{"type": event.Type}))
			}
			msg.Ack()
		}
	}()
	return nil
}

func (b *Bus) Close() error {
	return b.pubSub.Close()
}
