package listingengine

import (
	"context"

	"bazaar/contexts/marketplace/listing-engine/application/commands"
	"bazaar/contexts/marketplace/listing-engine/application/queries"
	"bazaar/contexts/marketplace/listing-engine/domain/entities"
	"bazaar/contexts/marketplace/listing-engine/domain/services"
)

// Engine is the library entry point. Every caller identity passed in is
// trusted as already authenticated.
type Engine struct {
	list            commands.ListAssetUseCase
	purchase        commands.PurchaseListingUseCase
	unlist          commands.UnlistAssetUseCase
	updatePrice     commands.UpdatePriceUseCase
	setFeeRecipient commands.SetFeeRecipientUseCase
	price           queries.GetPriceUseCase
	listing         queries.GetListingUseCase
	sellerListings  queries.ListSellerListingsUseCase
	sellers         queries.ListSellersUseCase
}

func (e Engine) List(
	ctx context.Context,
	seller entities.AccountID,
	asset entities.AssetHandle,
	price entities.Amount,
	currency entities.CurrencyTag,
) (entities.ListingID, error) {
	result, err := e.list.Execute(ctx, commands.ListAssetCommand{
		Seller:   seller,
		Asset:    asset,
		Price:    price,
		Currency: currency,
	})
	if err != nil {
		return "", err
	}
	return result.Listing.ListingID, nil
}

// Purchase settles a listing using the fee config stored at adminConfigKey.
// The key is caller-supplied; see PurchaseListingCommand.
func (e Engine) Purchase(
	ctx context.Context,
	purchaser entities.AccountID,
	listingID entities.ListingID,
	adminConfigKey entities.AccountID,
	currency entities.CurrencyTag,
) (services.FeeSplit, error) {
	result, err := e.purchase.Execute(ctx, commands.PurchaseListingCommand{
		Purchaser:      purchaser,
		ListingID:      listingID,
		AdminConfigKey: adminConfigKey,
		Currency:       currency,
	})
	if err != nil {
		return services.FeeSplit{}, err
	}
	return result.Split, nil
}

func (e Engine) Unlist(ctx context.Context, seller entities.AccountID, listingID entities.ListingID, currency entities.CurrencyTag) error {
	_, err := e.unlist.Execute(ctx, commands.UnlistAssetCommand{
		Seller:    seller,
		ListingID: listingID,
		Currency:  currency,
	})
	return err
}

func (e Engine) UpdatePrice(
	ctx context.Context,
	seller entities.AccountID,
	listingID entities.ListingID,
	newPrice entities.Amount,
	currency entities.CurrencyTag,
) error {
	_, err := e.updatePrice.Execute(ctx, commands.UpdatePriceCommand{
		Seller:    seller,
		ListingID: listingID,
		NewPrice:  newPrice,
		Currency:  currency,
	})
	return err
}

func (e Engine) SetFeeRecipient(ctx context.Context, caller entities.AccountID, recipient entities.AccountID, feeRatePercent uint64) error {
	_, err := e.setFeeRecipient.Execute(ctx, commands.SetFeeRecipientCommand{
		Caller:         caller,
		Recipient:      recipient,
		FeeRatePercent: feeRatePercent,
	})
	return err
}

// Price reports false when no entry in currency exists for the listing.
func (e Engine) Price(ctx context.Context, listingID entities.ListingID, currency entities.CurrencyTag) (entities.Amount, bool, error) {
	result, err := e.price.Execute(ctx, queries.GetPriceQuery{ListingID: listingID, Currency: currency})
	if err != nil {
		return 0, false, err
	}
	return result.Amount, result.Found, nil
}

func (e Engine) Listing(ctx context.Context, listingID entities.ListingID) (entities.AssetHandle, entities.AccountID, error) {
	result, err := e.listing.Execute(ctx, queries.GetListingQuery{ListingID: listingID})
	if err != nil {
		return "", "", err
	}
	return result.Asset, result.Seller, nil
}

func (e Engine) SellerListings(ctx context.Context, seller entities.AccountID) ([]entities.ListingID, error) {
	result, err := e.sellerListings.Execute(ctx, queries.ListSellerListingsQuery{Seller: seller})
	if err != nil {
		return nil, err
	}
	return result.ListingIDs, nil
}

func (e Engine) Sellers(ctx context.Context) ([]entities.AccountID, error) {
	result, err := e.sellers.Execute(ctx)
	if err != nil {
		return nil, err
	}
	return result.Sellers, nil
}
