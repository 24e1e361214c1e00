package staking

import (
	"github.com/0xKurt/FlexStake/core/types"
)

type stakeKey struct {
	optionID uint64
	owner    [20]byte
}

// overlayState buffers every mutation an operation makes on top of the base
// state. Reads fall through to the base until a key is written. Commit flushes
// the buffered writes; an abandoned overlay leaves the base untouched, which
// is what gives single operations and batches their all-or-nothing semantics.
type overlayState struct {
	base State

	options  map[uint64]*Option
	stakes   map[stakeKey]*Stake
	deleted  map[stakeKey]struct{}
	accounts map[[20]byte]*types.Account
	pause    *bool
}

func newOverlayState(base State) *overlayState {
	return &overlayState{
		base:     base,
		options:  make(map[uint64]*Option),
		stakes:   make(map[stakeKey]*Stake),
		deleted:  make(map[stakeKey]struct{}),
		accounts: make(map[[20]byte]*types.Account),
	}
}

func (o *overlayState) OptionGet(id uint64) (*Option, bool) {
	if opt, ok := o.options[id]; ok {
		return opt.Clone(), true
	}
	return o.base.OptionGet(id)
}

func (o *overlayState) OptionPut(opt *Option) error {
	if opt == nil {
		return ErrOptionNotFound
	}
	o.options[opt.ID] = opt.Clone()
	return nil
}

// NextOptionID bypasses the overlay: identifier allocation happens only in the
// registry's option-creation path, which is never batched.
func (o *overlayState) NextOptionID() (uint64, error) {
	return o.base.NextOptionID()
}

func (o *overlayState) StakeGet(optionID uint64, owner [20]byte) (*Stake, bool) {
	key := stakeKey{optionID: optionID, owner: owner}
	if _, gone := o.deleted[key]; gone {
		return nil, false
	}
	if st, ok := o.stakes[key]; ok {
		return st.Clone(), true
	}
	return o.base.StakeGet(optionID, owner)
}

func (o *overlayState) StakePut(optionID uint64, owner [20]byte, st *Stake) error {
	if st == nil {
		return ErrStakeNotFound
	}
	key := stakeKey{optionID: optionID, owner: owner}
	delete(o.deleted, key)
	o.stakes[key] = st.Clone()
	return nil
}

func (o *overlayState) StakeDelete(optionID uint64, owner [20]byte) error {
	key := stakeKey{optionID: optionID, owner: owner}
	delete(o.stakes, key)
	o.deleted[key] = struct{}{}
	return nil
}

func (o *overlayState) GetAccount(addr [20]byte) (*types.Account, error) {
	if acct, ok := o.accounts[addr]; ok {
		return acct.Clone(), nil
	}
	acct, err := o.base.GetAccount(addr)
	if err != nil {
		return nil, err
	}
	return acct.Clone(), nil
}

func (o *overlayState) PutAccount(addr [20]byte, acct *types.Account) error {
	if acct == nil {
		acct = types.NewAccount()
	}
	o.accounts[addr] = acct.Clone()
	return nil
}

func (o *overlayState) EmergencyPaused() bool {
	if o.pause != nil {
		return *o.pause
	}
	return o.base.EmergencyPaused()
}

func (o *overlayState) SetEmergencyPaused(paused bool) error {
	o.pause = &paused
	return nil
}

// Commit flushes the buffered writes to the base state.
func (o *overlayState) Commit() error {
	for _, opt := range o.options {
		if err := o.base.OptionPut(opt); err != nil {
			return err
		}
	}
	for key := range o.deleted {
		if err := o.base.StakeDelete(key.optionID, key.owner); err != nil {
			return err
		}
	}
	for key, st := range o.stakes {
		if err := o.base.StakePut(key.optionID, key.owner, st); err != nil {
			return err
		}
	}
	for addr, acct := range o.accounts {
		if err := o.base.PutAccount(addr, acct); err != nil {
			return err
		}
	}
	if o.pause != nil {
		if err := o.base.SetEmergencyPaused(*o.pause); err != nil {
			return err
		}
	}
	return nil
}
