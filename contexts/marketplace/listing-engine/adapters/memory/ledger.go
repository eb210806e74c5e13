package memory

import (
	"context"
	"sync"

	"bazaar/contexts/marketplace/listing-engine/domain/entities"
	domainerrors "bazaar/contexts/marketplace/listing-engine/domain/errors"
)

// Ledger operation names accepted by FailOn.
const (
	LedgerOpWithdraw = "withdraw"
	LedgerOpDeposit  = "deposit"
)

type balanceKey struct {
	account  entities.AccountID
	currency entities.CurrencyTag
}

// Ledger is an in-memory multi-currency balance book.
type Ledger struct {
	mu       sync.Mutex
	balances map[balanceKey]entities.Amount
	faults   map[string]error
	calls    map[string]int
}

func NewLedger() *Ledger {
	return &Ledger{
		balances: make(map[balanceKey]entities.Amount),
		faults:   make(map[string]error),
		calls:    make(map[string]int),
	}
}

// Credit mints amount into account. Used to fund accounts in local runs and tests.
func (l *Ledger) Credit(account entities.AccountID, currency entities.CurrencyTag, amount entities.Amount) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.balances[balanceKey{account: account, currency: currency}] += amount
}

func (l *Ledger) Balance(account entities.AccountID, currency entities.CurrencyTag) entities.Amount {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.balances[balanceKey{account: account, currency: currency}]
}

// FailOn makes the next call of op return err.
func (l *Ledger) FailOn(op string, err error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.faults[op] = err
}

func (l *Ledger) Calls(op string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.calls[op]
}

func (l *Ledger) Withdraw(_ context.Context, account entities.AccountID, currency entities.CurrencyTag, amount entities.Amount) (entities.Tokens, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.enter(LedgerOpWithdraw); err != nil {
		return entities.Tokens{}, err
	}

	key := balanceKey{account: account, currency: currency}
	if l.balances[key] < amount {
		return entities.Tokens{}, domainerrors.ErrInsufficientBalance
	}
	l.balances[key] -= amount
	return entities.Tokens{Currency: currency, Amount: amount}, nil
}

func (l *Ledger) Deposit(_ context.Context, account entities.AccountID, tokens entities.Tokens) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.enter(LedgerOpDeposit); err != nil {
		return err
	}

	l.balances[balanceKey{account: account, currency: tokens.Currency}] += tokens.Amount
	return nil
}

func (l *Ledger) enter(op string) error {
	l.calls[op]++
	if err, ok := l.faults[op]; ok {
		delete(l.faults, op)
		return err
	}
	return nil
}
