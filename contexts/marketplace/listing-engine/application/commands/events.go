package commands

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"bazaar/contexts/marketplace/listing-engine/ports"
)

const (
	EventListingCreated   = "listing.created"
	EventListingPurchased = "listing.purchased"
	EventListingUnlisted  = "listing.unlisted"
	EventPriceUpdated     = "listing.price_updated"
	EventFeeRecipientSet  = "marketplace.fee_recipient_set"
)

const (
	eventSourceService      = "listing-engine"
	eventSchemaVersion      = 1
	listingPartitionKeyPath = "listing_id"
	configPartitionKeyPath  = "admin_config_key"
)

// appendEvent writes an integration event to the outbox of the current
// transaction. Events are only relayed if the transaction commits.
func appendEvent(
	ctx context.Context,
	outbox ports.OutboxWriter,
	ids ports.IDGenerator,
	eventType string,
	partitionKey string,
	occurredAt time.Time,
	data map[string]any,
) error {
	eventID, err := ids.NewID(ctx)
	if err != nil {
		return err
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return err
	}
	keyPath := listingPartitionKeyPath
	if eventType == EventFeeRecipientSet {
		keyPath = configPartitionKeyPath
	}
	return outbox.AppendOutbox(ctx, ports.EventEnvelope{
		EventID:          strings.TrimSpace(eventID),
		EventType:        eventType,
		OccurredAt:       occurredAt.UTC(),
		SourceService:    eventSourceService,
		TraceID:          strings.TrimSpace(eventID),
		SchemaVersion:    eventSchemaVersion,
		PartitionKeyPath: keyPath,
		PartitionKey:     partitionKey,
		Data:             raw,
	})
}

func resolveNow(clock ports.Clock) time.Time {
	if clock == nil {
		return time.Now().UTC()
	}
	return clock.Now().UTC()
}
