package queries

import (
	"context"
	"errors"
	"log/slog"

	application "bazaar/contexts/marketplace/listing-engine/application"
	"bazaar/contexts/marketplace/listing-engine/domain/entities"
	domainerrors "bazaar/contexts/marketplace/listing-engine/domain/errors"
	"bazaar/contexts/marketplace/listing-engine/ports"
)

type GetPriceQuery struct {
	ListingID entities.ListingID
	Currency  entities.CurrencyTag
}

// GetPriceResult is absent, not an error, when no matching entry exists.
type GetPriceResult struct {
	Amount entities.Amount
	Found  bool
}

type GetPriceUseCase struct {
	Listings ports.ListingStore
	Logger   *slog.Logger
}

func (u GetPriceUseCase) Execute(ctx context.Context, query GetPriceQuery) (GetPriceResult, error) {
	logger := application.ResolveLogger(u.Logger)

	entry, err := u.Listings.GetPrice(ctx, query.ListingID, query.Currency)
	if err != nil {
		if errors.Is(err, domainerrors.ErrNotFound) {
			return GetPriceResult{}, nil
		}
		logger.Error("get price failed",
			"event", "get_price_failed",
			"module", application.ModuleName,
			"layer", "application",
			"listing_id", query.ListingID,
			"currency", query.Currency,
			"error", err.Error(),
		)
		return GetPriceResult{}, err
	}
	return GetPriceResult{Amount: entry.Amount, Found: true}, nil
}
