package commands

import (
	"context"
	"log/slog"

	application "bazaar/contexts/marketplace/listing-engine/application"
	"bazaar/contexts/marketplace/listing-engine/domain/entities"
	domainerrors "bazaar/contexts/marketplace/listing-engine/domain/errors"
	"bazaar/contexts/marketplace/listing-engine/ports"
)

const OperationUpdatePrice = "update_price"

type UpdatePriceCommand struct {
	Seller    entities.AccountID
	ListingID entities.ListingID
	NewPrice  entities.Amount
	Currency  entities.CurrencyTag
}

type UpdatePriceResult struct {
	Price    entities.PriceEntry
	Previous entities.Amount
}

type UpdatePriceUseCase struct {
	UnitOfWork  ports.UnitOfWork
	Clock       ports.Clock
	IDGenerator ports.IDGenerator
	Metrics     ports.Metrics
	Logger      *slog.Logger
}

func (u UpdatePriceUseCase) Execute(ctx context.Context, cmd UpdatePriceCommand) (result UpdatePriceResult, err error) {
	logger := application.ResolveLogger(u.Logger)
	defer func() { application.Observe(u.Metrics, OperationUpdatePrice, err) }()

	if cmd.Seller.IsZero() || cmd.ListingID.IsZero() || cmd.Currency.IsZero() {
		return UpdatePriceResult{}, domainerrors.ErrInvalidInput
	}

	now := resolveNow(u.Clock)
	err = withinUnit(ctx, u.UnitOfWork, func(ctx context.Context, stores ports.Stores) error {
		listing, err := stores.GetListing(ctx, cmd.ListingID)
		if err != nil {
			return err
		}
		if !listing.OwnedBy(cmd.Seller) {
			return domainerrors.ErrForbidden
		}
		current, err := stores.GetPrice(ctx, cmd.ListingID, cmd.Currency)
		if err != nil {
			return err
		}
		if err := stores.SetPrice(ctx, cmd.ListingID, cmd.Currency, cmd.NewPrice, now); err != nil {
			return err
		}

		if err := appendEvent(ctx, stores, u.IDGenerator, EventPriceUpdated, string(listing.ListingID), now, map[string]any{
			"listing_id":     listing.ListingID,
			"seller":         listing.Seller,
			"currency":       cmd.Currency,
			"previous_price": uint64(current.Amount),
			"price":          uint64(cmd.NewPrice),
		}); err != nil {
			return err
		}

		previous := current.Amount
		current.Amount = cmd.NewPrice
		current.UpdatedAt = now
		result = UpdatePriceResult{Price: current, Previous: previous}
		return nil
	})
	if err != nil {
		logger.Warn("update price failed",
			"event", "update_price_failed",
			"module", application.ModuleName,
			"layer", "application",
			"listing_id", cmd.ListingID,
			"seller", cmd.Seller,
			"error", err.Error(),
		)
		return UpdatePriceResult{}, err
	}

	logger.Info("listing price updated",
		"event", "listing_price_updated",
		"module", application.ModuleName,
		"layer", "application",
		"listing_id", cmd.ListingID,
		"seller", cmd.Seller,
		"currency", cmd.Currency,
		"previous_price", uint64(result.Previous),
		"price", uint64(result.Price.Amount),
	)
	return result, nil
}
