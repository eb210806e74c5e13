package postgresadapter

import (
	"context"
	"errors"
	"log/slog"
	"math"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	application "bazaar/contexts/marketplace/listing-engine/application"
	"bazaar/contexts/marketplace/listing-engine/domain/entities"
	domainerrors "bazaar/contexts/marketplace/listing-engine/domain/errors"
	"bazaar/contexts/marketplace/listing-engine/ports"
)

// Ledger is the durable multi-currency balance book. Balances are stored as
// BIGINT, so no single balance may exceed math.MaxInt64.
type Ledger struct {
	db     *gorm.DB
	clock  ports.Clock
	logger *slog.Logger
}

func NewLedger(db *gorm.DB, clock ports.Clock, logger *slog.Logger) *Ledger {
	if clock == nil {
		clock = SystemClock{}
	}
	return &Ledger{
		db:     db,
		clock:  clock,
		logger: application.ResolveLogger(logger),
	}
}

// Balance returns zero for accounts that never held the currency.
func (l *Ledger) Balance(ctx context.Context, account entities.AccountID, currency entities.CurrencyTag) (entities.Amount, error) {
	var row ledgerBalanceModel
	err := l.db.WithContext(ctx).
		Where("account = ? AND currency = ?", string(account), string(currency)).
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, l.logError("ledger_balance_failed", err, "account", account, "currency", currency)
	}
	return entities.Amount(row.Amount), nil
}

func (l *Ledger) Withdraw(ctx context.Context, account entities.AccountID, currency entities.CurrencyTag, amount entities.Amount) (entities.Tokens, error) {
	err := l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var row ledgerBalanceModel
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("account = ? AND currency = ?", string(account), string(currency)).
			First(&row).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			if amount == 0 {
				return nil
			}
			return domainerrors.ErrInsufficientBalance
		}
		if err != nil {
			return err
		}
		if entities.Amount(row.Amount) < amount {
			return domainerrors.ErrInsufficientBalance
		}
		return tx.Model(&ledgerBalanceModel{}).
			Where("account = ? AND currency = ?", string(account), string(currency)).
			Updates(map[string]any{
				"amount":     row.Amount - int64(amount),
				"updated_at": l.clock.Now().UTC(),
			}).Error
	})
	if err != nil {
		if isDomainError(err) {
			return entities.Tokens{}, err
		}
		return entities.Tokens{}, l.logError("ledger_withdraw_failed", err, "account", account, "currency", currency)
	}
	return entities.Tokens{Currency: currency, Amount: amount}, nil
}

func (l *Ledger) Deposit(ctx context.Context, account entities.AccountID, tokens entities.Tokens) error {
	return l.Credit(ctx, account, tokens.Currency, tokens.Amount)
}

// Credit adds amount to the account's balance, creating it when missing.
func (l *Ledger) Credit(ctx context.Context, account entities.AccountID, currency entities.CurrencyTag, amount entities.Amount) error {
	if account.IsZero() || currency.IsZero() || amount > math.MaxInt64 {
		return domainerrors.ErrInvalidInput
	}
	now := l.clock.Now().UTC()
	err := l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		seed := ledgerBalanceModel{Account: string(account), Currency: string(currency), UpdatedAt: now}
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "account"}, {Name: "currency"}},
			DoNothing: true,
		}).Create(&seed).Error; err != nil {
			return err
		}

		var row ledgerBalanceModel
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("account = ? AND currency = ?", string(account), string(currency)).
			First(&row).Error; err != nil {
			return err
		}
		if row.Amount > math.MaxInt64-int64(amount) {
			return domainerrors.ErrInvalidInput
		}
		return tx.Model(&ledgerBalanceModel{}).
			Where("account = ? AND currency = ?", string(account), string(currency)).
			Updates(map[string]any{
				"amount":     row.Amount + int64(amount),
				"updated_at": now,
			}).Error
	})
	if err != nil && !isDomainError(err) {
		return l.logError("ledger_credit_failed", err, "account", account, "currency", currency)
	}
	return err
}

func (l *Ledger) logError(event string, err error, attrs ...any) error {
	fields := make([]any, 0, len(attrs)+8)
	fields = append(fields,
		"event", event,
		"module", application.ModuleName,
		"layer", "adapter",
		"error", err.Error(),
	)
	fields = append(fields, attrs...)
	l.logger.Error("ledger operation failed", fields...)
	return err
}

// Provisioner funds the durable custody and ledger.
type Provisioner struct {
	Custody *Custody
	Ledger  *Ledger
}

func (p Provisioner) RegisterAsset(ctx context.Context, asset entities.AssetHandle, owner entities.AccountID) error {
	return p.Custody.RegisterAsset(ctx, asset, owner)
}

func (p Provisioner) Credit(ctx context.Context, account entities.AccountID, currency entities.CurrencyTag, amount entities.Amount) error {
	return p.Ledger.Credit(ctx, account, currency, amount)
}

var (
	_ ports.Ledger       = (*Ledger)(nil)
	_ ports.Provisioning = Provisioner{}
)
