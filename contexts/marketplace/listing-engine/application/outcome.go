package application

import (
	"errors"

	domainerrors "bazaar/contexts/marketplace/listing-engine/domain/errors"
	"bazaar/contexts/marketplace/listing-engine/ports"
)

const (
	OutcomeSuccess             = "success"
	OutcomeNotFound            = "not_found"
	OutcomeForbidden           = "forbidden"
	OutcomeUnauthorized        = "unauthorized"
	OutcomeInsufficientBalance = "insufficient_balance"
	OutcomeInvalidInput        = "invalid_input"
	OutcomeRollbackIncomplete  = "rollback_incomplete"
	OutcomeError               = "error"
)

// Outcome classifies err into a low-cardinality label.
func Outcome(err error) string {
	switch {
	case err == nil:
		return OutcomeSuccess
	case errors.Is(err, domainerrors.ErrRollbackIncomplete):
		return OutcomeRollbackIncomplete
	case errors.Is(err, domainerrors.ErrNotFound):
		return OutcomeNotFound
	case errors.Is(err, domainerrors.ErrForbidden):
		return OutcomeForbidden
	case errors.Is(err, domainerrors.ErrUnauthorized):
		return OutcomeUnauthorized
	case errors.Is(err, domainerrors.ErrInsufficientBalance):
		return OutcomeInsufficientBalance
	case errors.Is(err, domainerrors.ErrInvalidInput):
		return OutcomeInvalidInput
	default:
		return OutcomeError
	}
}

func Observe(metrics ports.Metrics, operation string, err error) {
	if metrics == nil {
		return
	}
	metrics.ObserveOperation(operation, Outcome(err))
}
