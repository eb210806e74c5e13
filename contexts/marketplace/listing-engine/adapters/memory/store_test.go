package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"bazaar/contexts/marketplace/listing-engine/domain/entities"
	domainerrors "bazaar/contexts/marketplace/listing-engine/domain/errors"
	"bazaar/contexts/marketplace/listing-engine/ports"
)

func seedListing(t *testing.T, stores ports.Stores, id entities.ListingID, seller entities.AccountID) {
	t.Helper()
	ctx := context.Background()
	now := time.Now().UTC()

	listing, err := entities.NewListing(id, entities.AssetHandle("asset_"+string(id)), seller, entities.CustodyCapability("cap_"+string(id)), now)
	require.NoError(t, err)
	price, err := entities.NewPriceEntry(id, "SUI", 100, now)
	require.NoError(t, err)
	require.NoError(t, stores.CreateListing(ctx, listing, price))
	require.NoError(t, stores.AppendSellerListing(ctx, seller, id))
	require.NoError(t, stores.EnsureSeller(ctx, seller))
}

func TestListingReadsFailOnMissingRecords(t *testing.T) {
	store := NewStore(nil)
	ctx := context.Background()

	_, err := store.GetListing(ctx, "lst_missing")
	require.ErrorIs(t, err, domainerrors.ErrListingNotFound)
	require.ErrorIs(t, err, domainerrors.ErrNotFound)

	_, err = store.GetPrice(ctx, "lst_missing", "SUI")
	require.ErrorIs(t, err, domainerrors.ErrPriceNotFound)

	require.ErrorIs(t, store.DeleteListing(ctx, "lst_missing"), domainerrors.ErrListingNotFound)
	require.ErrorIs(t, store.SetPrice(ctx, "lst_missing", "SUI", 5, time.Now()), domainerrors.ErrPriceNotFound)
}

func TestGetPriceRejectsCurrencyMismatch(t *testing.T) {
	store := NewStore(nil)
	ctx := context.Background()
	seedListing(t, store, "lst_1", "seller_1")

	_, err := store.GetPrice(ctx, "lst_1", "USDC")
	require.ErrorIs(t, err, domainerrors.ErrPriceNotFound)
	require.ErrorIs(t, store.SetPrice(ctx, "lst_1", "USDC", 5, time.Now()), domainerrors.ErrPriceNotFound)

	require.NoError(t, store.SetPrice(ctx, "lst_1", "SUI", 250, time.Now()))
	price, err := store.GetPrice(ctx, "lst_1", "SUI")
	require.NoError(t, err)
	require.Equal(t, entities.Amount(250), price.Amount)
}

func TestSellerIndexRetainsEmptyEntry(t *testing.T) {
	store := NewStore(nil)
	ctx := context.Background()

	exists, err := store.SellerIndexExists(ctx, "seller_1")
	require.NoError(t, err)
	require.False(t, exists)
	ids, err := store.SellerListings(ctx, "seller_1")
	require.NoError(t, err)
	require.Empty(t, ids)

	require.NoError(t, store.AppendSellerListing(ctx, "seller_1", "lst_1"))
	require.NoError(t, store.AppendSellerListing(ctx, "seller_1", "lst_2"))

	emptied, err := store.RemoveSellerListing(ctx, "seller_1", "lst_1")
	require.NoError(t, err)
	require.False(t, emptied)
	ids, err = store.SellerListings(ctx, "seller_1")
	require.NoError(t, err)
	require.Equal(t, []entities.ListingID{"lst_2"}, ids)

	emptied, err = store.RemoveSellerListing(ctx, "seller_1", "lst_2")
	require.NoError(t, err)
	require.True(t, emptied)

	exists, err = store.SellerIndexExists(ctx, "seller_1")
	require.NoError(t, err)
	require.True(t, exists)

	_, err = store.RemoveSellerListing(ctx, "seller_1", "lst_2")
	require.ErrorIs(t, err, domainerrors.ErrSellerIndexEntryNotFound)
	_, err = store.RemoveSellerListing(ctx, "seller_unknown", "lst_2")
	require.ErrorIs(t, err, domainerrors.ErrSellerIndexEntryNotFound)
}

func TestSellerSetEnsureIsIdempotent(t *testing.T) {
	store := NewStore(nil)
	ctx := context.Background()

	require.NoError(t, store.EnsureSeller(ctx, "seller_1"))
	require.NoError(t, store.EnsureSeller(ctx, "seller_1"))
	require.NoError(t, store.EnsureSeller(ctx, "seller_2"))

	sellers, err := store.Sellers(ctx)
	require.NoError(t, err)
	require.Equal(t, []entities.AccountID{"seller_1", "seller_2"}, sellers)

	require.NoError(t, store.RemoveSeller(ctx, "seller_1"))
	require.ErrorIs(t, store.RemoveSeller(ctx, "seller_1"), domainerrors.ErrSellerNotFound)
}

func TestWithinTxDiscardsDraftOnError(t *testing.T) {
	store := NewStore(nil)
	ctx := context.Background()
	boom := errors.New("boom")

	err := store.WithinTx(ctx, func(ctx context.Context, stores ports.Stores) error {
		seedListing(t, stores, "lst_1", "seller_1")
		return boom
	})
	require.ErrorIs(t, err, boom)

	_, err = store.GetListing(ctx, "lst_1")
	require.ErrorIs(t, err, domainerrors.ErrListingNotFound)
	exists, err := store.SellerIndexExists(ctx, "seller_1")
	require.NoError(t, err)
	require.False(t, exists)
	sellers, err := store.Sellers(ctx)
	require.NoError(t, err)
	require.Empty(t, sellers)
}

func TestWithinTxCommitsOnSuccess(t *testing.T) {
	store := NewStore(nil)
	ctx := context.Background()

	err := store.WithinTx(ctx, func(ctx context.Context, stores ports.Stores) error {
		seedListing(t, stores, "lst_1", "seller_1")
		return nil
	})
	require.NoError(t, err)

	listing, err := store.GetListing(ctx, "lst_1")
	require.NoError(t, err)
	require.Equal(t, entities.AccountID("seller_1"), listing.Seller)
	require.NoError(t, store.CheckInvariants())
}

func TestCheckInvariantsDetectsDanglingSeller(t *testing.T) {
	store := NewStore(nil)
	ctx := context.Background()

	require.NoError(t, store.EnsureSeller(ctx, "seller_1"))
	require.ErrorIs(t, store.CheckInvariants(), domainerrors.ErrRepositoryInvariantBroke)
}

func TestOutboxPendingAndMarkSent(t *testing.T) {
	store := NewStore(nil)
	ctx := context.Background()
	now := time.Now().UTC()

	for _, id := range []string{"evt-a", "evt-b"} {
		require.NoError(t, store.AppendOutbox(ctx, ports.EventEnvelope{
			EventID:      id,
			EventType:    "listing.created",
			OccurredAt:   now,
			PartitionKey: "lst_1",
		}))
	}
	require.ErrorIs(t, store.AppendOutbox(ctx, ports.EventEnvelope{EventID: "evt-a"}), domainerrors.ErrRepositoryInvariantBroke)

	pending, err := store.ListPendingOutbox(ctx, 10)
	require.NoError(t, err)
	require.Len(t, pending, 2)
	require.Equal(t, "evt-a", pending[0].OutboxID)

	require.NoError(t, store.MarkOutboxSent(ctx, "evt-a", now))
	pending, err = store.ListPendingOutbox(ctx, 10)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	require.Equal(t, "evt-b", pending[0].OutboxID)
	require.Len(t, store.OutboxEvents(), 2)

	require.ErrorIs(t, store.MarkOutboxSent(ctx, "evt-missing", now), domainerrors.ErrRepositoryInvariantBroke)
}

func TestWithinTxStagesOutboxWithoutCopyingHistory(t *testing.T) {
	store := NewStore(nil)
	ctx := context.Background()

	for i := 0; i < 50; i++ {
		id, err := store.NewID(ctx)
		require.NoError(t, err)
		require.NoError(t, store.AppendOutbox(ctx, ports.EventEnvelope{EventID: id, EventType: "listing.created"}))
	}

	draft := store.state.clone()
	require.Empty(t, draft.staged)
	require.Same(t, store.outbox, draft.committed)

	err := store.WithinTx(ctx, func(ctx context.Context, stores ports.Stores) error {
		require.NoError(t, stores.AppendOutbox(ctx, ports.EventEnvelope{EventID: "evt-discarded"}))
		require.ErrorIs(t, stores.AppendOutbox(ctx, ports.EventEnvelope{EventID: "evt-discarded"}), domainerrors.ErrRepositoryInvariantBroke)
		require.ErrorIs(t, stores.AppendOutbox(ctx, ports.EventEnvelope{EventID: "evt-1"}), domainerrors.ErrRepositoryInvariantBroke)
		return errors.New("abort")
	})
	require.Error(t, err)
	require.Len(t, store.OutboxEvents(), 50)

	require.NoError(t, store.WithinTx(ctx, func(ctx context.Context, stores ports.Stores) error {
		return stores.AppendOutbox(ctx, ports.EventEnvelope{EventID: "evt-kept"})
	}))
	events := store.OutboxEvents()
	require.Len(t, events, 51)
	require.Equal(t, "evt-kept", events[50].OutboxID)
	require.Empty(t, store.state.staged)
}

func TestMarkOutboxSentAdvancesPendingCursor(t *testing.T) {
	store := NewStore(nil)
	ctx := context.Background()
	now := time.Now().UTC()
	for _, id := range []string{"evt-a", "evt-b", "evt-c"} {
		require.NoError(t, store.AppendOutbox(ctx, ports.EventEnvelope{EventID: id}))
	}

	require.NoError(t, store.MarkOutboxSent(ctx, "evt-b", now))
	require.Equal(t, 0, store.outbox.firstPending)
	require.NoError(t, store.MarkOutboxSent(ctx, "evt-a", now))
	require.Equal(t, 2, store.outbox.firstPending)

	pending, err := store.ListPendingOutbox(ctx, 10)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	require.Equal(t, "evt-c", pending[0].OutboxID)
}
