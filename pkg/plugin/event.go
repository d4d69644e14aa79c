package plugin

import (
	"context"
	"time"
)

// Event is a domain notification published on the bus.
type Event struct {
	Topic     string
	Source    string
	Timestamp time.Time
	Payload   any
}

// EventHandler receives published events.
type EventHandler func(ctx context.Context, event Event)

// EventBus is an in-process publish/subscribe channel between modules.
type EventBus interface {
	// Publish delivers the event to all matching handlers before returning.
	Publish(ctx context.Context, event Event) error

	// PublishAsync delivers the event on separate goroutines.
	PublishAsync(ctx context.Context, event Event)

	// Subscribe registers a handler for one topic and returns its unsubscribe func.
	Subscribe(topic string, handler EventHandler) func()

	// SubscribeAll registers a handler for every topic.
	SubscribeAll(handler EventHandler) func()
}

// Subscription pairs a topic with its handler.
type Subscription struct {
	Topic   string
	Handler EventHandler
}
