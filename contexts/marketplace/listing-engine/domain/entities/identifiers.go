package entities

import "strings"

// AccountID is a verified account identity supplied by the authorization layer.
type AccountID string

// ListingID is the address of the custody container that holds a listed asset.
type ListingID string

// AssetHandle is an opaque reference to a uniquely owned asset or container.
type AssetHandle string

// CustodyCapability authorizes moving assets out of, and deleting, a container.
type CustodyCapability string

// CurrencyTag names the currency a price is denominated in.
type CurrencyTag string

// Amount is an integer quantity of the smallest currency unit.
type Amount uint64

func (a AccountID) IsZero() bool {
	return strings.TrimSpace(string(a)) == ""
}

func (l ListingID) IsZero() bool {
	return strings.TrimSpace(string(l)) == ""
}

func (h AssetHandle) IsZero() bool {
	return strings.TrimSpace(string(h)) == ""
}

func (c CurrencyTag) IsZero() bool {
	return strings.TrimSpace(string(c)) == ""
}
