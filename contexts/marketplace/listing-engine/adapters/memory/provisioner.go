package memory

import (
	"context"

	"bazaar/contexts/marketplace/listing-engine/domain/entities"
	domainerrors "bazaar/contexts/marketplace/listing-engine/domain/errors"
	"bazaar/contexts/marketplace/listing-engine/ports"
)

// Provisioner funds the in-memory custody and ledger.
type Provisioner struct {
	Custody *Custody
	Ledger  *Ledger
}

func (p Provisioner) RegisterAsset(_ context.Context, asset entities.AssetHandle, owner entities.AccountID) error {
	if asset.IsZero() || owner.IsZero() {
		return domainerrors.ErrInvalidInput
	}
	p.Custody.RegisterAsset(asset, owner)
	return nil
}

func (p Provisioner) Credit(_ context.Context, account entities.AccountID, currency entities.CurrencyTag, amount entities.Amount) error {
	if account.IsZero() || currency.IsZero() {
		return domainerrors.ErrInvalidInput
	}
	p.Ledger.Credit(account, currency, amount)
	return nil
}

var _ ports.Provisioning = Provisioner{}
