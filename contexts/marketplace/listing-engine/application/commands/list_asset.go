package commands

import (
	"context"
	"log/slog"

	application "bazaar/contexts/marketplace/listing-engine/application"
	"bazaar/contexts/marketplace/listing-engine/domain/entities"
	domainerrors "bazaar/contexts/marketplace/listing-engine/domain/errors"
	"bazaar/contexts/marketplace/listing-engine/ports"
)

const OperationList = "list"

type ListAssetCommand struct {
	Seller   entities.AccountID
	Asset    entities.AssetHandle
	Price    entities.Amount
	Currency entities.CurrencyTag
}

type ListAssetResult struct {
	Listing entities.Listing
	Price   entities.PriceEntry
}

type ListAssetUseCase struct {
	UnitOfWork  ports.UnitOfWork
	Custody     ports.Custody
	Clock       ports.Clock
	IDGenerator ports.IDGenerator
	Metrics     ports.Metrics
	Logger      *slog.Logger
}

// Execute places the seller's asset into a fresh custody container and
// records the listing, its price and the seller's index membership.
func (u ListAssetUseCase) Execute(ctx context.Context, cmd ListAssetCommand) (result ListAssetResult, err error) {
	logger := application.ResolveLogger(u.Logger)
	defer func() { application.Observe(u.Metrics, OperationList, err) }()

	if cmd.Seller.IsZero() || cmd.Asset.IsZero() || cmd.Currency.IsZero() {
		return ListAssetResult{}, domainerrors.ErrInvalidInput
	}

	logger.Info("list asset started",
		"event", "list_asset_started",
		"module", application.ModuleName,
		"layer", "application",
		"seller", cmd.Seller,
		"asset", cmd.Asset,
		"currency", cmd.Currency,
		"amount", uint64(cmd.Price),
	)

	now := resolveNow(u.Clock)
	var undo journal
	err = withinUnit(ctx, u.UnitOfWork, func(ctx context.Context, stores ports.Stores) error {
		owner, err := u.Custody.OwnerOf(ctx, cmd.Asset)
		if err != nil {
			return err
		}
		if owner != cmd.Seller {
			return domainerrors.ErrForbidden
		}

		container, err := u.Custody.CreateContainer(ctx, cmd.Seller)
		if err != nil {
			return err
		}
		undo.record("create container", func(ctx context.Context) error {
			return u.Custody.DeleteContainer(ctx, container.Capability)
		})
		if err := u.Custody.DisableExternalTransfer(ctx, container.Handle); err != nil {
			return err
		}

		listing, err := entities.NewListing(
			entities.ListingID(container.Handle),
			cmd.Asset,
			cmd.Seller,
			container.Capability,
			now,
		)
		if err != nil {
			return err
		}
		price, err := entities.NewPriceEntry(listing.ListingID, cmd.Currency, cmd.Price, now)
		if err != nil {
			return err
		}
		if err := stores.CreateListing(ctx, listing, price); err != nil {
			return err
		}

		if err := u.Custody.MoveIn(ctx, cmd.Seller, cmd.Asset, container); err != nil {
			return err
		}
		undo.record("move asset into custody", func(ctx context.Context) error {
			return u.Custody.Transfer(ctx, container.Capability, cmd.Asset, cmd.Seller)
		})

		if err := stores.AppendSellerListing(ctx, cmd.Seller, listing.ListingID); err != nil {
			return err
		}
		if err := stores.EnsureSeller(ctx, cmd.Seller); err != nil {
			return err
		}

		if err := appendEvent(ctx, stores, u.IDGenerator, EventListingCreated, string(listing.ListingID), now, map[string]any{
			"listing_id": listing.ListingID,
			"asset":      listing.Asset,
			"seller":     listing.Seller,
			"currency":   price.Currency,
			"price":      uint64(price.Amount),
		}); err != nil {
			return err
		}

		result = ListAssetResult{Listing: listing, Price: price}
		return nil
	})
	if err = undo.settle(ctx, err); err != nil {
		logger.Error("list asset failed",
			"event", "list_asset_failed",
			"module", application.ModuleName,
			"layer", "application",
			"seller", cmd.Seller,
			"asset", cmd.Asset,
			"error", err.Error(),
		)
		return ListAssetResult{}, err
	}

	logger.Info("asset listed",
		"event", "listing_created",
		"module", application.ModuleName,
		"layer", "application",
		"listing_id", result.Listing.ListingID,
		"seller", result.Listing.Seller,
		"asset", result.Listing.Asset,
		"currency", result.Price.Currency,
		"amount", uint64(result.Price.Amount),
	)
	return result, nil
}
