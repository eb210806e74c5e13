package queries

import (
	"context"
	"log/slog"

	application "bazaar/contexts/marketplace/listing-engine/application"
	"bazaar/contexts/marketplace/listing-engine/domain/entities"
	"bazaar/contexts/marketplace/listing-engine/ports"
)

type GetListingQuery struct {
	ListingID entities.ListingID
}

type GetListingResult struct {
	Asset  entities.AssetHandle
	Seller entities.AccountID
}

type GetListingUseCase struct {
	Listings ports.ListingStore
	Logger   *slog.Logger
}

func (u GetListingUseCase) Execute(ctx context.Context, query GetListingQuery) (GetListingResult, error) {
	logger := application.ResolveLogger(u.Logger)

	listing, err := u.Listings.GetListing(ctx, query.ListingID)
	if err != nil {
		logger.Debug("get listing failed",
			"event", "get_listing_failed",
			"module", application.ModuleName,
			"layer", "application",
			"listing_id", query.ListingID,
			"error", err.Error(),
		)
		return GetListingResult{}, err
	}
	return GetListingResult{Asset: listing.Asset, Seller: listing.Seller}, nil
}
