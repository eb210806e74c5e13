package entities

import (
	"time"

	domainerrors "bazaar/contexts/marketplace/listing-engine/domain/errors"
)

// Listing is an asset held in marketplace custody pending sale.
type Listing struct {
	ListingID  ListingID
	Asset      AssetHandle
	Seller     AccountID
	Capability CustodyCapability
	CreatedAt  time.Time
}

// PriceEntry is the ask for a listing in one currency.
type PriceEntry struct {
	ListingID ListingID
	Currency  CurrencyTag
	Amount    Amount
	UpdatedAt time.Time
}

func NewListing(
	listingID ListingID,
	asset AssetHandle,
	seller AccountID,
	capability CustodyCapability,
	createdAt time.Time,
) (Listing, error) {
	if listingID.IsZero() || asset.IsZero() || seller.IsZero() || capability == "" {
		return Listing{}, domainerrors.ErrInvalidInput
	}
	return Listing{
		ListingID:  listingID,
		Asset:      asset,
		Seller:     seller,
		Capability: capability,
		CreatedAt:  createdAt.UTC(),
	}, nil
}

func NewPriceEntry(listingID ListingID, currency CurrencyTag, amount Amount, at time.Time) (PriceEntry, error) {
	if listingID.IsZero() || currency.IsZero() {
		return PriceEntry{}, domainerrors.ErrInvalidInput
	}
	return PriceEntry{
		ListingID: listingID,
		Currency:  currency,
		Amount:    amount,
		UpdatedAt: at.UTC(),
	}, nil
}

// OwnedBy reports whether account is the listing's seller.
func (l Listing) OwnedBy(account AccountID) bool {
	return l.Seller == account
}

// Matches reports whether the entry is denominated in currency.
func (p PriceEntry) Matches(currency CurrencyTag) bool {
	return p.Currency == currency
}
