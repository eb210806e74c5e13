package workers

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	application "bazaar/contexts/marketplace/listing-engine/application"
	"bazaar/contexts/marketplace/listing-engine/ports"
)

const DefaultOutboxTopic = "marketplace.listing"

// OutboxRelay publishes committed listing events and marks them sent.
type OutboxRelay struct {
	Outbox    ports.OutboxRepository
	Publisher ports.EventPublisher
	Clock     ports.Clock
	Topic     string
	BatchSize int
	Logger    *slog.Logger
}

// RunOnce relays one batch. It stops at the first failure so that events
// leave the outbox in order.
func (r OutboxRelay) RunOnce(ctx context.Context) (int, error) {
	logger := application.ResolveLogger(r.Logger)
	limit := r.BatchSize
	if limit <= 0 {
		limit = 100
	}
	topic := r.Topic
	if topic == "" {
		topic = DefaultOutboxTopic
	}

	pending, err := r.Outbox.ListPendingOutbox(ctx, limit)
	if err != nil {
		logger.Error("listing outbox list failed",
			"event", "listing_outbox_list_failed",
			"module", application.ModuleName,
			"layer", "worker",
			"error", err.Error(),
		)
		return 0, err
	}

	now := time.Now().UTC()
	if r.Clock != nil {
		now = r.Clock.Now().UTC()
	}

	relayed := 0
	for _, row := range pending {
		var envelope ports.EventEnvelope
		if err := json.Unmarshal(row.Payload, &envelope); err != nil {
			logger.Error("listing outbox decode failed",
				"event", "listing_outbox_decode_failed",
				"module", application.ModuleName,
				"layer", "worker",
				"outbox_id", row.OutboxID,
				"error", err.Error(),
			)
			return relayed, err
		}
		if err := r.Publisher.Publish(ctx, topic, envelope); err != nil {
			logger.Error("listing outbox publish failed",
				"event", "listing_outbox_publish_failed",
				"module", application.ModuleName,
				"layer", "worker",
				"outbox_id", row.OutboxID,
				"topic", topic,
				"error", err.Error(),
			)
			return relayed, err
		}
		if err := r.Outbox.MarkOutboxSent(ctx, row.OutboxID, now); err != nil {
			return relayed, err
		}
		relayed++
	}

	if relayed > 0 {
		logger.Debug("listing outbox relayed",
			"event", "listing_outbox_relayed",
			"module", application.ModuleName,
			"layer", "worker",
			"topic", topic,
			"count", relayed,
		)
	}
	return relayed, nil
}

// Run relays batches every interval until ctx is cancelled.
func (r OutboxRelay) Run(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		interval = 2 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if _, err := r.RunOnce(ctx); err != nil && ctx.Err() == nil {
			application.ResolveLogger(r.Logger).Warn("listing outbox relay iteration failed",
				"event", "listing_outbox_relay_iteration_failed",
				"module", application.ModuleName,
				"layer", "worker",
				"error", err.Error(),
			)
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}
