package workers

import (
	"context"
	"encoding/json"
	"log/slog"

	application "bazaar/contexts/marketplace/listing-engine/application"
	"bazaar/contexts/marketplace/listing-engine/ports"
)

// ListingEventLogger consumes relayed listing events and writes one
// structured log line per event, giving operators an activity trail.
type ListingEventLogger struct {
	Subscriber    ports.EventSubscriber
	Topic         string
	ConsumerGroup string
	Logger        *slog.Logger
}

func (c ListingEventLogger) Start(ctx context.Context) error {
	topic := c.Topic
	if topic == "" {
		topic = DefaultOutboxTopic
	}
	group := c.ConsumerGroup
	if group == "" {
		group = "listing-engine-activity-cg"
	}
	return c.Subscriber.Subscribe(ctx, topic, group, c.Handle)
}

func (c ListingEventLogger) Handle(_ context.Context, envelope ports.EventEnvelope) error {
	logger := application.ResolveLogger(c.Logger)

	var data map[string]any
	if len(envelope.Data) > 0 {
		if err := json.Unmarshal(envelope.Data, &data); err != nil {
			logger.Warn("listing event payload undecodable",
				"event", "listing_event_decode_failed",
				"module", application.ModuleName,
				"layer", "worker",
				"event_id", envelope.EventID,
				"error", err.Error(),
			)
			return err
		}
	}

	logger.Info("listing event observed",
		"event", "listing_event_observed",
		"module", application.ModuleName,
		"layer", "worker",
		"event_id", envelope.EventID,
		"event_type", envelope.EventType,
		"partition_key", envelope.PartitionKey,
		"occurred_at", envelope.OccurredAt,
		"data", data,
	)
	return nil
}
