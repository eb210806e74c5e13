package ports

import (
	"context"
	"time"

	"bazaar/contexts/marketplace/listing-engine/domain/entities"
	contractsv1 "bazaar/contracts/gen/events/v1"
)

// ListingStore owns Listing and PriceEntry records keyed by listing id.
// Reads on a missing id fail; there is no zero-value fallback.
type ListingStore interface {
	// CreateListing persists a listing together with its price entry.
	CreateListing(ctx context.Context, listing entities.Listing, price entities.PriceEntry) error
	GetListing(ctx context.Context, listingID entities.ListingID) (entities.Listing, error)
	// GetPrice fails with ErrPriceNotFound when the entry is absent or in another currency.
	GetPrice(ctx context.Context, listingID entities.ListingID, currency entities.CurrencyTag) (entities.PriceEntry, error)
	SetPrice(ctx context.Context, listingID entities.ListingID, currency entities.CurrencyTag, amount entities.Amount, updatedAt time.Time) error
	// DeleteListing removes both the listing and its price entry.
	DeleteListing(ctx context.Context, listingID entities.ListingID) error
}

// SellerIndex keeps the ordered listing ids of each seller. An index is
// created on first append and is never deleted, even once empty.
type SellerIndex interface {
	AppendSellerListing(ctx context.Context, seller entities.AccountID, listingID entities.ListingID) error
	// RemoveSellerListing reports whether the seller's index became empty.
	RemoveSellerListing(ctx context.Context, seller entities.AccountID, listingID entities.ListingID) (bool, error)
	SellerIndexContains(ctx context.Context, seller entities.AccountID, listingID entities.ListingID) (bool, error)
	// SellerIndexExists distinguishes an empty index from one never created.
	SellerIndexExists(ctx context.Context, seller entities.AccountID) (bool, error)
	// SellerListings returns an empty slice for unknown sellers.
	SellerListings(ctx context.Context, seller entities.AccountID) ([]entities.ListingID, error)
}

// SellerSet holds the sellers that currently have at least one listing.
type SellerSet interface {
	EnsureSeller(ctx context.Context, seller entities.AccountID) error
	// RemoveSeller fails with ErrSellerNotFound when the seller is absent.
	RemoveSeller(ctx context.Context, seller entities.AccountID) error
	Sellers(ctx context.Context) ([]entities.AccountID, error)
}

// AdminConfigStore keeps fee configurations keyed by the registering account.
type AdminConfigStore interface {
	UpsertAdminConfig(ctx context.Context, config entities.AdminConfig) error
	GetAdminConfig(ctx context.Context, key entities.AccountID) (entities.AdminConfig, error)
}

// OutboxWriter appends integration events inside the caller's transaction.
type OutboxWriter interface {
	AppendOutbox(ctx context.Context, envelope EventEnvelope) error
}

// Stores is the transactional view handed to a unit of work.
type Stores interface {
	ListingStore
	SellerIndex
	SellerSet
	AdminConfigStore
	OutboxWriter
}

// UnitOfWork runs fn against the four stores as one atomic unit. Nothing fn
// writes is visible to other callers unless fn returns nil and the commit
// succeeds.
type UnitOfWork interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context, stores Stores) error) error
}

// Repository is the read side plus the transactional entry point.
type Repository interface {
	Stores
	UnitOfWork
}

// Custody is the external asset custody backend.
type Custody interface {
	OwnerOf(ctx context.Context, asset entities.AssetHandle) (entities.AccountID, error)
	CreateContainer(ctx context.Context, owner entities.AccountID) (entities.Container, error)
	DisableExternalTransfer(ctx context.Context, handle entities.AssetHandle) error
	// MoveIn transfers asset from its owner into the container.
	MoveIn(ctx context.Context, owner entities.AccountID, asset entities.AssetHandle, container entities.Container) error
	// Transfer moves an asset held by the container identified by capability to an account.
	Transfer(ctx context.Context, capability entities.CustodyCapability, asset entities.AssetHandle, to entities.AccountID) error
	DeleteContainer(ctx context.Context, capability entities.CustodyCapability) error
}

// Ledger is the external currency backend.
type Ledger interface {
	// Withdraw fails with ErrInsufficientBalance when the account cannot cover amount.
	Withdraw(ctx context.Context, account entities.AccountID, currency entities.CurrencyTag, amount entities.Amount) (entities.Tokens, error)
	Deposit(ctx context.Context, account entities.AccountID, tokens entities.Tokens) error
}

// Provisioning seeds custody and the ledger from outside the engine:
// operator tooling, seed files and dev routes. Listing operations never
// call it.
type Provisioning interface {
	// RegisterAsset records owner as the holder of asset, replacing any
	// previous owner.
	RegisterAsset(ctx context.Context, asset entities.AssetHandle, owner entities.AccountID) error
	// Credit mints amount of currency into account.
	Credit(ctx context.Context, account entities.AccountID, currency entities.CurrencyTag, amount entities.Amount) error
}

// Metrics records operation outcomes.
type Metrics interface {
	ObserveOperation(operation string, outcome string)
}

// Clock allows deterministic timestamps in tests.
type Clock interface {
	Now() time.Time
}

// IDGenerator produces outbox event identifiers.
type IDGenerator interface {
	NewID(ctx context.Context) (string, error)
}

// EventEnvelope reuses the canonical cross-runtime envelope contract.
type EventEnvelope = contractsv1.Envelope

// OutboxMessage is a row ready to relay from the module outbox.
type OutboxMessage struct {
	OutboxID     string
	EventType    string
	PartitionKey string
	Payload      []byte
	CreatedAt    time.Time
}

// OutboxRepository models worker-side outbox polling/acknowledgement.
type OutboxRepository interface {
	ListPendingOutbox(ctx context.Context, limit int) ([]OutboxMessage, error)
	MarkOutboxSent(ctx context.Context, outboxID string, sentAt time.Time) error
}

// EventPublisher publishes canonical envelopes to a topic.
type EventPublisher interface {
	Publish(ctx context.Context, topic string, event EventEnvelope) error
}

// EventSubscriber registers a topic consumer callback.
type EventSubscriber interface {
	Subscribe(
		ctx context.Context,
		topic string,
		consumerGroup string,
		handler func(context.Context, EventEnvelope) error,
	) error
}
