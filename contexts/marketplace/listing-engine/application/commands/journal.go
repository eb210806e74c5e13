package commands

import (
	"context"
	"errors"
	"fmt"

	domainerrors "bazaar/contexts/marketplace/listing-engine/domain/errors"
	"bazaar/contexts/marketplace/listing-engine/ports"
)

type compensation struct {
	step string
	undo func(ctx context.Context) error
}

// journal records the inverse of every external adapter effect performed
// inside one operation so a failure can restore the adapters' prior state.
type journal struct {
	steps        []compensation
	irreversible []string
}

func (j *journal) record(step string, undo func(ctx context.Context) error) {
	j.steps = append(j.steps, compensation{step: step, undo: undo})
}

// markIrreversible notes an effect that has no inverse. Rollback after such a
// step reports ErrRollbackIncomplete.
func (j *journal) markIrreversible(step string) {
	j.irreversible = append(j.irreversible, step)
}

// rollback runs compensations newest first. It keeps going after a failed
// compensation so the remaining effects are still undone.
func (j *journal) rollback(ctx context.Context) error {
	ctx = context.WithoutCancel(ctx)

	var errs []error
	for i := len(j.steps) - 1; i >= 0; i-- {
		step := j.steps[i]
		if err := step.undo(ctx); err != nil {
			errs = append(errs, fmt.Errorf("undo %s: %w", step.step, err))
		}
	}
	for _, step := range j.irreversible {
		errs = append(errs, fmt.Errorf("%s cannot be undone", step))
	}
	j.steps = nil
	j.irreversible = nil

	if len(errs) == 0 {
		return nil
	}
	return errors.Join(append([]error{domainerrors.ErrRollbackIncomplete}, errs...)...)
}

// settle combines an operation error with the result of rolling back.
func (j *journal) settle(ctx context.Context, err error) error {
	if err == nil {
		return nil
	}
	if rbErr := j.rollback(ctx); rbErr != nil {
		return errors.Join(err, rbErr)
	}
	return err
}

// withinUnit runs fn in one unit of work. A panic inside fn becomes an
// ErrOperationPanicked error, so the store discards its draft and the caller
// can still settle the journal.
func withinUnit(ctx context.Context, uow ports.UnitOfWork, fn func(ctx context.Context, stores ports.Stores) error) error {
	return uow.WithinTx(ctx, func(ctx context.Context, stores ports.Stores) (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("%w: %v", domainerrors.ErrOperationPanicked, r)
			}
		}()
		return fn(ctx, stores)
	})
}
