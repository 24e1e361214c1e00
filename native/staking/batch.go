package staking

import (
	"math/big"

	"github.com/0xKurt/FlexStake/core/events"
)

// Batch operations execute each element through the exact single-item path in
// array order inside one overlay, so a failure anywhere aborts the entire
// batch with no element's state change observable. Each batch publishes one
// aggregate event in addition to the singular events the elements raised.

// BatchStake creates one stake per element of the parallel input arrays.
func (e *Engine) BatchStake(caller [20]byte, optionIDs []uint64, amounts []*big.Int, lockDurations []int64, data [][]byte) error {
	if len(optionIDs) == 0 {
		return ErrEmptyBatch
	}
	if len(amounts) != len(optionIDs) || len(lockDurations) != len(optionIDs) || len(data) != len(optionIDs) {
		return ErrArrayLengthMismatch
	}
	return e.execute(func(st State, emit emitFn) error {
		results := make([]events.BatchResult, 0, len(optionIDs))
		for i, optionID := range optionIDs {
			if err := e.stakeOp(st, emit, caller, optionID, amounts[i], lockDurations[i], data[i]); err != nil {
				return err
			}
			results = append(results, events.BatchResult{OptionID: optionID, Amount: cloneBigInt(amounts[i])})
		}
		emit(events.BatchExecuted{Kind: events.TypeBatchStaked, Caller: caller, Results: results})
		return nil
	})
}

// BatchExtendStake extends one stake per element of the parallel input arrays.
func (e *Engine) BatchExtendStake(caller [20]byte, optionIDs []uint64, additional []int64) error {
	if len(optionIDs) == 0 {
		return ErrEmptyBatch
	}
	if len(additional) != len(optionIDs) {
		return ErrArrayLengthMismatch
	}
	return e.execute(func(st State, emit emitFn) error {
		results := make([]events.BatchResult, 0, len(optionIDs))
		for i, optionID := range optionIDs {
			if err := e.extendOp(st, emit, caller, optionID, additional[i]); err != nil {
				return err
			}
			results = append(results, events.BatchResult{OptionID: optionID})
		}
		emit(events.BatchExecuted{Kind: events.TypeBatchExtended, Caller: caller, Results: results})
		return nil
	})
}

// BatchWithdraw fully exits one stake per element, returning the payouts in
// array order.
func (e *Engine) BatchWithdraw(caller [20]byte, optionIDs []uint64) ([]*big.Int, error) {
	if len(optionIDs) == 0 {
		return nil, ErrEmptyBatch
	}
	payouts := make([]*big.Int, 0, len(optionIDs))
	err := e.execute(func(st State, emit emitFn) error {
		results := make([]events.BatchResult, 0, len(optionIDs))
		for _, optionID := range optionIDs {
			payout, err := e.withdrawOp(st, emit, caller, optionID)
			if err != nil {
				return err
			}
			payouts = append(payouts, payout)
			results = append(results, events.BatchResult{OptionID: optionID, Amount: cloneBigInt(payout)})
		}
		emit(events.BatchExecuted{Kind: events.TypeBatchWithdrawn, Caller: caller, Results: results})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return payouts, nil
}

// BatchMigrateStake migrates one flexible stake per element of the parallel
// input arrays.
func (e *Engine) BatchMigrateStake(caller [20]byte, fromOptionIDs, toOptionIDs []uint64) error {
	if len(fromOptionIDs) == 0 {
		return ErrEmptyBatch
	}
	if len(toOptionIDs) != len(fromOptionIDs) {
		return ErrArrayLengthMismatch
	}
	return e.execute(func(st State, emit emitFn) error {
		results := make([]events.BatchResult, 0, len(fromOptionIDs))
		for i, fromID := range fromOptionIDs {
			if err := e.migrateOp(st, emit, caller, fromID, toOptionIDs[i]); err != nil {
				return err
			}
			results = append(results, events.BatchResult{OptionID: toOptionIDs[i]})
		}
		emit(events.BatchExecuted{Kind: events.TypeBatchMigrated, Caller: caller, Results: results})
		return nil
	})
}
