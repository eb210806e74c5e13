package entities

// Tokens are currency withdrawn from an account and not yet deposited.
type Tokens struct {
	Currency CurrencyTag
	Amount   Amount
}

// Container is a custody container created for one listing.
type Container struct {
	Handle     AssetHandle
	Capability CustodyCapability
}

// Account is the address assets are transferred to when moved into the container.
func (c Container) Account() AccountID {
	return AccountID(c.Handle)
}
