package commands

import (
	"context"
	"log/slog"

	application "bazaar/contexts/marketplace/listing-engine/application"
	"bazaar/contexts/marketplace/listing-engine/domain/entities"
	domainerrors "bazaar/contexts/marketplace/listing-engine/domain/errors"
	"bazaar/contexts/marketplace/listing-engine/ports"
)

const OperationSetFeeRecipient = "set_fee_recipient"

type SetFeeRecipientCommand struct {
	Caller         entities.AccountID
	Recipient      entities.AccountID
	FeeRatePercent uint64
}

type SetFeeRecipientResult struct {
	Config entities.AdminConfig
}

type SetFeeRecipientUseCase struct {
	// Administrator is the single identity allowed to register fee config.
	Administrator entities.AccountID
	UnitOfWork    ports.UnitOfWork
	Clock         ports.Clock
	IDGenerator   ports.IDGenerator
	Metrics       ports.Metrics
	Logger        *slog.Logger
}

// Execute upserts the fee config keyed by the administrator's own account.
func (u SetFeeRecipientUseCase) Execute(ctx context.Context, cmd SetFeeRecipientCommand) (result SetFeeRecipientResult, err error) {
	logger := application.ResolveLogger(u.Logger)
	defer func() { application.Observe(u.Metrics, OperationSetFeeRecipient, err) }()

	if u.Administrator.IsZero() || cmd.Caller != u.Administrator {
		logger.Warn("fee recipient change rejected",
			"event", "set_fee_recipient_forbidden",
			"module", application.ModuleName,
			"layer", "application",
			"caller", cmd.Caller,
		)
		return SetFeeRecipientResult{}, domainerrors.ErrForbidden
	}

	now := resolveNow(u.Clock)
	config, err := entities.NewAdminConfig(u.Administrator, cmd.Recipient, cmd.FeeRatePercent, now)
	if err != nil {
		return SetFeeRecipientResult{}, err
	}

	err = withinUnit(ctx, u.UnitOfWork, func(ctx context.Context, stores ports.Stores) error {
		if err := stores.UpsertAdminConfig(ctx, config); err != nil {
			return err
		}
		return appendEvent(ctx, stores, u.IDGenerator, EventFeeRecipientSet, string(config.Key), now, map[string]any{
			"admin_config_key": config.Key,
			"fee_recipient":    config.FeeRecipient,
			"fee_rate_percent": config.FeeRatePercent,
		})
	})
	if err != nil {
		logger.Error("set fee recipient failed",
			"event", "set_fee_recipient_failed",
			"module", application.ModuleName,
			"layer", "application",
			"error", err.Error(),
		)
		return SetFeeRecipientResult{}, err
	}

	logger.Info("fee recipient set",
		"event", "fee_recipient_set",
		"module", application.ModuleName,
		"layer", "application",
		"admin_config_key", config.Key,
		"fee_recipient", config.FeeRecipient,
		"fee_rate_percent", config.FeeRatePercent,
	)
	return SetFeeRecipientResult{Config: config}, nil
}
