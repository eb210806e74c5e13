package services

import (
	"bazaar/contexts/marketplace/listing-engine/domain/entities"
	domainerrors "bazaar/contexts/marketplace/listing-engine/domain/errors"
)

// FeeSplit is the division of a sale price between the seller and the fee recipient.
type FeeSplit struct {
	Price        entities.Amount
	Fee          entities.Amount
	SellerAmount entities.Amount
}

// ComputeFeeSplit divides by 100 before multiplying by the rate. The
// truncation order is part of the settlement contract: 999 at 3% yields a
// fee of 27, not 29.
func ComputeFeeSplit(price entities.Amount, feeRatePercent uint64) (FeeSplit, error) {
	if feeRatePercent > entities.MaxFeeRatePercent {
		return FeeSplit{}, domainerrors.ErrInvalidInput
	}
	fee := (uint64(price) / 100) * feeRatePercent
	return FeeSplit{
		Price:        price,
		Fee:          entities.Amount(fee),
		SellerAmount: price - entities.Amount(fee),
	}, nil
}
