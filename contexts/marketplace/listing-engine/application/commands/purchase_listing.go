package commands

import (
	"context"
	"errors"
	"log/slog"

	application "bazaar/contexts/marketplace/listing-engine/application"
	"bazaar/contexts/marketplace/listing-engine/domain/entities"
	domainerrors "bazaar/contexts/marketplace/listing-engine/domain/errors"
	"bazaar/contexts/marketplace/listing-engine/domain/services"
	"bazaar/contexts/marketplace/listing-engine/ports"
)

const OperationPurchase = "purchase"

type PurchaseListingCommand struct {
	Purchaser entities.AccountID
	ListingID entities.ListingID
	// AdminConfigKey selects the fee configuration. It is chosen by the
	// purchaser, not fixed to the marketplace administrator: any account that
	// has registered a config can be named here, including one the purchaser
	// controls. Integrators that need a single authoritative fee schedule must
	// pin this value before it reaches the engine.
	AdminConfigKey entities.AccountID
	Currency       entities.CurrencyTag
}

type PurchaseListingResult struct {
	Listing      entities.Listing
	Split        services.FeeSplit
	FeeRecipient entities.AccountID
}

type PurchaseListingUseCase struct {
	UnitOfWork  ports.UnitOfWork
	Custody     ports.Custody
	Ledger      ports.Ledger
	Clock       ports.Clock
	IDGenerator ports.IDGenerator
	Metrics     ports.Metrics
	Logger      *slog.Logger
}

// Execute swaps the listed asset for payment in this order:
// 1) resolve fee config, listing and price
// 2) withdraw seller amount and fee from the purchaser
// 3) release the asset to the purchaser
// 4) remove listing, price, index entry and, if emptied, seller set membership
// 5) pay seller and fee recipient
// 6) delete the custody container.
// Container deletion has no inverse so it runs after every other fallible step.
func (u PurchaseListingUseCase) Execute(ctx context.Context, cmd PurchaseListingCommand) (result PurchaseListingResult, err error) {
	logger := application.ResolveLogger(u.Logger)
	defer func() { application.Observe(u.Metrics, OperationPurchase, err) }()

	if cmd.Purchaser.IsZero() || cmd.ListingID.IsZero() || cmd.AdminConfigKey.IsZero() || cmd.Currency.IsZero() {
		return PurchaseListingResult{}, domainerrors.ErrInvalidInput
	}

	logger.Info("purchase listing started",
		"event", "purchase_listing_started",
		"module", application.ModuleName,
		"layer", "application",
		"listing_id", cmd.ListingID,
		"purchaser", cmd.Purchaser,
		"admin_config_key", cmd.AdminConfigKey,
		"currency", cmd.Currency,
	)

	now := resolveNow(u.Clock)
	var undo journal
	err = withinUnit(ctx, u.UnitOfWork, func(ctx context.Context, stores ports.Stores) error {
		config, err := stores.GetAdminConfig(ctx, cmd.AdminConfigKey)
		if err != nil {
			if errors.Is(err, domainerrors.ErrAdminConfigNotFound) {
				return domainerrors.ErrUnauthorized
			}
			return err
		}
		listing, err := stores.GetListing(ctx, cmd.ListingID)
		if err != nil {
			return err
		}
		price, err := stores.GetPrice(ctx, cmd.ListingID, cmd.Currency)
		if err != nil {
			return err
		}
		split, err := services.ComputeFeeSplit(price.Amount, config.FeeRatePercent)
		if err != nil {
			return err
		}

		sellerTokens, err := u.Ledger.Withdraw(ctx, cmd.Purchaser, cmd.Currency, split.SellerAmount)
		if err != nil {
			return err
		}
		undo.record("withdraw seller amount", func(ctx context.Context) error {
			return u.Ledger.Deposit(ctx, cmd.Purchaser, sellerTokens)
		})
		feeTokens, err := u.Ledger.Withdraw(ctx, cmd.Purchaser, cmd.Currency, split.Fee)
		if err != nil {
			return err
		}
		undo.record("withdraw fee", func(ctx context.Context) error {
			return u.Ledger.Deposit(ctx, cmd.Purchaser, feeTokens)
		})

		if err := u.Custody.Transfer(ctx, listing.Capability, listing.Asset, cmd.Purchaser); err != nil {
			return err
		}
		undo.record("release asset", func(ctx context.Context) error {
			return u.Custody.MoveIn(ctx, cmd.Purchaser, listing.Asset, entities.Container{
				Handle:     entities.AssetHandle(listing.ListingID),
				Capability: listing.Capability,
			})
		})

		if err := removeListing(ctx, stores, listing); err != nil {
			return err
		}

		if err := u.Ledger.Deposit(ctx, listing.Seller, sellerTokens); err != nil {
			return err
		}
		undo.record("pay seller", func(ctx context.Context) error {
			_, err := u.Ledger.Withdraw(ctx, listing.Seller, sellerTokens.Currency, sellerTokens.Amount)
			return err
		})
		if err := u.Ledger.Deposit(ctx, config.FeeRecipient, feeTokens); err != nil {
			return err
		}
		undo.record("pay fee recipient", func(ctx context.Context) error {
			_, err := u.Ledger.Withdraw(ctx, config.FeeRecipient, feeTokens.Currency, feeTokens.Amount)
			return err
		})

		if err := appendEvent(ctx, stores, u.IDGenerator, EventListingPurchased, string(listing.ListingID), now, map[string]any{
			"listing_id":    listing.ListingID,
			"asset":         listing.Asset,
			"seller":        listing.Seller,
			"purchaser":     cmd.Purchaser,
			"currency":      cmd.Currency,
			"price":         uint64(split.Price),
			"fee":           uint64(split.Fee),
			"seller_amount": uint64(split.SellerAmount),
			"fee_recipient": config.FeeRecipient,
		}); err != nil {
			return err
		}

		if err := u.Custody.DeleteContainer(ctx, listing.Capability); err != nil {
			return err
		}
		undo.markIrreversible("delete custody container")

		result = PurchaseListingResult{
			Listing:      listing,
			Split:        split,
			FeeRecipient: config.FeeRecipient,
		}
		return nil
	})
	if err = undo.settle(ctx, err); err != nil {
		logger.Error("purchase listing failed",
			"event", "purchase_listing_failed",
			"module", application.ModuleName,
			"layer", "application",
			"listing_id", cmd.ListingID,
			"purchaser", cmd.Purchaser,
			"error", err.Error(),
		)
		return PurchaseListingResult{}, err
	}

	logger.Info("listing purchased",
		"event", "listing_purchased",
		"module", application.ModuleName,
		"layer", "application",
		"listing_id", result.Listing.ListingID,
		"seller", result.Listing.Seller,
		"purchaser", cmd.Purchaser,
		"currency", cmd.Currency,
		"price", uint64(result.Split.Price),
		"fee", uint64(result.Split.Fee),
		"seller_amount", uint64(result.Split.SellerAmount),
	)
	return result, nil
}

// removeListing deletes the listing records and keeps the seller index and
// seller set consistent. The seller's index container is left in place even
// when it becomes empty; only the seller set membership is dropped.
func removeListing(ctx context.Context, stores ports.Stores, listing entities.Listing) error {
	if err := stores.DeleteListing(ctx, listing.ListingID); err != nil {
		return err
	}
	emptied, err := stores.RemoveSellerListing(ctx, listing.Seller, listing.ListingID)
	if err != nil {
		return err
	}
	if emptied {
		return stores.RemoveSeller(ctx, listing.Seller)
	}
	return nil
}
