package errors

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound            = errors.New("not found")
	ErrForbidden           = errors.New("caller is not permitted to perform this operation")
	ErrUnauthorized        = errors.New("no admin config registered at the supplied key")
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrInvalidInput        = errors.New("listing engine input is invalid")

	ErrListingNotFound          = fmt.Errorf("listing %w", ErrNotFound)
	ErrPriceNotFound            = fmt.Errorf("price entry %w", ErrNotFound)
	ErrSellerIndexEntryNotFound = fmt.Errorf("seller index entry %w", ErrNotFound)
	ErrSellerNotFound           = fmt.Errorf("seller %w", ErrNotFound)
	ErrAdminConfigNotFound      = fmt.Errorf("admin config %w", ErrNotFound)
	ErrContainerNotFound        = fmt.Errorf("custody container %w", ErrNotFound)
	ErrAssetNotFound            = fmt.Errorf("asset %w", ErrNotFound)

	ErrTransferDisabled         = errors.New("asset transfer is disabled outside custody")
	ErrRepositoryInvariantBroke = errors.New("repository invariant violated")
	ErrRollbackIncomplete       = errors.New("operation failed and could not be fully rolled back")
	ErrOperationPanicked        = errors.New("listing engine operation panicked")
)
