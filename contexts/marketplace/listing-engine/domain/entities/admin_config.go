package entities

import (
	"time"

	domainerrors "bazaar/contexts/marketplace/listing-engine/domain/errors"
)

// MaxFeeRatePercent caps the fee so the seller amount can never underflow.
const MaxFeeRatePercent uint64 = 100

// AdminConfig is the fee configuration registered under an account key.
type AdminConfig struct {
	Key            AccountID
	FeeRecipient   AccountID
	FeeRatePercent uint64
	UpdatedAt      time.Time
}

func NewAdminConfig(key AccountID, recipient AccountID, feeRatePercent uint64, at time.Time) (AdminConfig, error) {
	if key.IsZero() || recipient.IsZero() || feeRatePercent > MaxFeeRatePercent {
		return AdminConfig{}, domainerrors.ErrInvalidInput
	}
	return AdminConfig{
		Key:            key,
		FeeRecipient:   recipient,
		FeeRatePercent: feeRatePercent,
		UpdatedAt:      at.UTC(),
	}, nil
}
