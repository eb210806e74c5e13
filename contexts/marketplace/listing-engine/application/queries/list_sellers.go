package queries

import (
	"context"
	"log/slog"

	application "bazaar/contexts/marketplace/listing-engine/application"
	"bazaar/contexts/marketplace/listing-engine/domain/entities"
	"bazaar/contexts/marketplace/listing-engine/ports"
)

type ListSellerListingsQuery struct {
	Seller entities.AccountID
}

type ListSellerListingsResult struct {
	ListingIDs []entities.ListingID
}

type ListSellerListingsUseCase struct {
	Index  ports.SellerIndex
	Logger *slog.Logger
}

// Execute returns an empty list for sellers that never listed.
func (u ListSellerListingsUseCase) Execute(ctx context.Context, query ListSellerListingsQuery) (ListSellerListingsResult, error) {
	ids, err := u.Index.SellerListings(ctx, query.Seller)
	if err != nil {
		application.ResolveLogger(u.Logger).Error("list seller listings failed",
			"event", "list_seller_listings_failed",
			"module", application.ModuleName,
			"layer", "application",
			"seller", query.Seller,
			"error", err.Error(),
		)
		return ListSellerListingsResult{}, err
	}
	if ids == nil {
		ids = []entities.ListingID{}
	}
	return ListSellerListingsResult{ListingIDs: ids}, nil
}

type ListSellersResult struct {
	Sellers []entities.AccountID
}

type ListSellersUseCase struct {
	Sellers ports.SellerSet
	Logger  *slog.Logger
}

func (u ListSellersUseCase) Execute(ctx context.Context) (ListSellersResult, error) {
	sellers, err := u.Sellers.Sellers(ctx)
	if err != nil {
		application.ResolveLogger(u.Logger).Error("list sellers failed",
			"event", "list_sellers_failed",
			"module", application.ModuleName,
			"layer", "application",
			"error", err.Error(),
		)
		return ListSellersResult{}, err
	}
	if sellers == nil {
		sellers = []entities.AccountID{}
	}
	return ListSellersResult{Sellers: sellers}, nil
}
