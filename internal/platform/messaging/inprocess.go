package messaging

import (
	"context"
	"log/slog"
	"sync"

	"bazaar/contexts/marketplace/listing-engine/ports"
)

const subscriberBuffer = 128

type subscription struct {
	group   string
	events  chan ports.EventEnvelope
	stopped chan struct{}
}

// InProcessBus delivers events to subscribers in the same process. Publish
// waits for every live subscriber to accept the event, so a slow consumer
// applies backpressure to the relay instead of losing events.
type InProcessBus struct {
	mu        sync.Mutex
	topics    map[string][]*subscription
	delivered map[string]int
	logger    *slog.Logger
}

func NewInProcessBus(logger *slog.Logger) *InProcessBus {
	return &InProcessBus{
		topics:    make(map[string][]*subscription),
		delivered: make(map[string]int),
		logger:    resolveLogger(logger),
	}
}

// Delivered reports how many events on topic reached every subscriber.
func (b *InProcessBus) Delivered(topic string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.delivered[topic]
}

// Publish returns ctx.Err() when ctx ends before all subscribers accepted
// the event; the caller must then treat the event as unsent.
func (b *InProcessBus) Publish(ctx context.Context, topic string, event ports.EventEnvelope) error {
	b.mu.Lock()
	subs := append([]*subscription(nil), b.topics[topic]...)
	b.mu.Unlock()

	for _, sub := range subs {
		select {
		case sub.events <- event:
		case <-sub.stopped:
		case <-ctx.Done():
			b.logger.Warn("event delivery interrupted",
				"event", "bus_publish_interrupted",
				"module", "internal/platform/messaging",
				"layer", "platform",
				"topic", topic,
				"consumer_group", sub.group,
				"event_id", event.EventID,
			)
			return ctx.Err()
		}
	}

	b.mu.Lock()
	b.delivered[topic]++
	b.mu.Unlock()
	b.logger.Debug("event delivered",
		"event", "bus_publish",
		"module", "internal/platform/messaging",
		"layer", "platform",
		"topic", topic,
		"event_id", event.EventID,
		"event_type", event.EventType,
		"subscribers", len(subs),
	)
	return nil
}

// Subscribe runs handler for each event on topic until ctx is cancelled.
// Handler errors are logged; the event is not redelivered.
func (b *InProcessBus) Subscribe(
	ctx context.Context,
	topic string,
	consumerGroup string,
	handler func(context.Context, ports.EventEnvelope) error,
) error {
	sub := &subscription{
		group:   consumerGroup,
		events:  make(chan ports.EventEnvelope, subscriberBuffer),
		stopped: make(chan struct{}),
	}
	b.mu.Lock()
	b.topics[topic] = append(b.topics[topic], sub)
	b.mu.Unlock()

	go func() {
		defer b.unsubscribe(topic, sub)
		for {
			select {
			case <-ctx.Done():
				return
			case event := <-sub.events:
				if err := handler(ctx, event); err != nil {
					logHandlerFailure(b.logger, topic, consumerGroup, event, err)
				}
			}
		}
	}()
	return nil
}

func (b *InProcessBus) unsubscribe(topic string, target *subscription) {
	close(target.stopped)

	b.mu.Lock()
	defer b.mu.Unlock()
	kept := b.topics[topic][:0]
	for _, sub := range b.topics[topic] {
		if sub != target {
			kept = append(kept, sub)
		}
	}
	b.topics[topic] = kept
}

func logHandlerFailure(logger *slog.Logger, topic string, group string, event ports.EventEnvelope, err error) {
	logger.Error("consumer handler failed",
		"event", "bus_consume_failed",
		"module", "internal/platform/messaging",
		"layer", "platform",
		"topic", topic,
		"consumer_group", group,
		"event_id", event.EventID,
		"event_type", event.EventType,
		"error", err.Error(),
	)
}

func resolveLogger(logger *slog.Logger) *slog.Logger {
	if logger == nil {
		return slog.Default()
	}
	return logger
}

var (
	_ ports.EventPublisher  = (*InProcessBus)(nil)
	_ ports.EventSubscriber = (*InProcessBus)(nil)
)
