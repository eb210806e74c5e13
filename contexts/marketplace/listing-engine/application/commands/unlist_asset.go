package commands

import (
	"context"
	"log/slog"

	application "bazaar/contexts/marketplace/listing-engine/application"
	"bazaar/contexts/marketplace/listing-engine/domain/entities"
	domainerrors "bazaar/contexts/marketplace/listing-engine/domain/errors"
	"bazaar/contexts/marketplace/listing-engine/ports"
)

const OperationUnlist = "unlist"

type UnlistAssetCommand struct {
	Seller    entities.AccountID
	ListingID entities.ListingID
	Currency  entities.CurrencyTag
}

type UnlistAssetResult struct {
	Listing entities.Listing
	Price   entities.PriceEntry
}

type UnlistAssetUseCase struct {
	UnitOfWork  ports.UnitOfWork
	Custody     ports.Custody
	Clock       ports.Clock
	IDGenerator ports.IDGenerator
	Metrics     ports.Metrics
	Logger      *slog.Logger
}

// Execute returns the asset to its seller and removes the listing.
func (u UnlistAssetUseCase) Execute(ctx context.Context, cmd UnlistAssetCommand) (result UnlistAssetResult, err error) {
	logger := application.ResolveLogger(u.Logger)
	defer func() { application.Observe(u.Metrics, OperationUnlist, err) }()

	if cmd.Seller.IsZero() || cmd.ListingID.IsZero() || cmd.Currency.IsZero() {
		return UnlistAssetResult{}, domainerrors.ErrInvalidInput
	}

	now := resolveNow(u.Clock)
	var undo journal
	err = withinUnit(ctx, u.UnitOfWork, func(ctx context.Context, stores ports.Stores) error {
		listing, err := stores.GetListing(ctx, cmd.ListingID)
		if err != nil {
			return err
		}
		if !listing.OwnedBy(cmd.Seller) {
			return domainerrors.ErrForbidden
		}
		price, err := stores.GetPrice(ctx, cmd.ListingID, cmd.Currency)
		if err != nil {
			return err
		}

		if err := u.Custody.Transfer(ctx, listing.Capability, listing.Asset, listing.Seller); err != nil {
			return err
		}
		undo.record("return asset", func(ctx context.Context) error {
			return u.Custody.MoveIn(ctx, listing.Seller, listing.Asset, entities.Container{
				Handle:     entities.AssetHandle(listing.ListingID),
				Capability: listing.Capability,
			})
		})

		if err := removeListing(ctx, stores, listing); err != nil {
			return err
		}

		if err := appendEvent(ctx, stores, u.IDGenerator, EventListingUnlisted, string(listing.ListingID), now, map[string]any{
			"listing_id": listing.ListingID,
			"asset":      listing.Asset,
			"seller":     listing.Seller,
			"currency":   price.Currency,
			"price":      uint64(price.Amount),
		}); err != nil {
			return err
		}

		if err := u.Custody.DeleteContainer(ctx, listing.Capability); err != nil {
			return err
		}
		undo.markIrreversible("delete custody container")

		result = UnlistAssetResult{Listing: listing, Price: price}
		return nil
	})
	if err = undo.settle(ctx, err); err != nil {
		logger.Warn("unlist asset failed",
			"event", "unlist_asset_failed",
			"module", application.ModuleName,
			"layer", "application",
			"listing_id", cmd.ListingID,
			"seller", cmd.Seller,
			"error", err.Error(),
		)
		return UnlistAssetResult{}, err
	}

	logger.Info("asset unlisted",
		"event", "listing_unlisted",
		"module", application.ModuleName,
		"layer", "application",
		"listing_id", result.Listing.ListingID,
		"seller", result.Listing.Seller,
	)
	return result, nil
}
