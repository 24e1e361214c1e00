package stakestore

import (
	"math/big"
	"sync"

	"github.com/0xKurt/FlexStake/core/types"
	"github.com/0xKurt/FlexStake/native/staking"
)

type stakeKey struct {
	optionID uint64
	owner    [20]byte
}

// Memory is a map-backed implementation of the staking state, used by tests
// and single-process deployments that do not need durability.
type Memory struct {
	mu           sync.RWMutex
	options      map[uint64]*staking.Option
	stakes       map[stakeKey]*staking.Stake
	accounts     map[[20]byte]*types.Account
	nextOptionID uint64
	paused       bool
}

// NewMemory returns an empty in-memory state.
func NewMemory() *Memory {
	return &Memory{
		options:  make(map[uint64]*staking.Option),
		stakes:   make(map[stakeKey]*staking.Stake),
		accounts: make(map[[20]byte]*types.Account),
	}
}

// OptionGet implements staking.State.
func (m *Memory) OptionGet(id uint64) (*staking.Option, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	opt, ok := m.options[id]
	if !ok {
		return nil, false
	}
	return opt.Clone(), true
}

// OptionPut implements staking.State.
func (m *Memory) OptionPut(opt *staking.Option) error {
	if opt == nil {
		return staking.ErrOptionNotFound
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.options[opt.ID] = opt.Clone()
	return nil
}

// NextOptionID implements staking.State. Identifiers start at 1 and are never
// reused.
func (m *Memory) NextOptionID() (uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextOptionID++
	return m.nextOptionID, nil
}

// StakeGet implements staking.State.
func (m *Memory) StakeGet(optionID uint64, owner [20]byte) (*staking.Stake, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	st, ok := m.stakes[stakeKey{optionID: optionID, owner: owner}]
	if !ok {
		return nil, false
	}
	return st.Clone(), true
}

// StakePut implements staking.State.
func (m *Memory) StakePut(optionID uint64, owner [20]byte, st *staking.Stake) error {
	if st == nil {
		return staking.ErrStakeNotFound
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stakes[stakeKey{optionID: optionID, owner: owner}] = st.Clone()
	return nil
}

// StakeDelete implements staking.State.
func (m *Memory) StakeDelete(optionID uint64, owner [20]byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.stakes, stakeKey{optionID: optionID, owner: owner})
	return nil
}

// GetAccount implements staking.State.
func (m *Memory) GetAccount(addr [20]byte) (*types.Account, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	acct, ok := m.accounts[addr]
	if !ok {
		return types.NewAccount(), nil
	}
	return acct.Clone(), nil
}

// PutAccount implements staking.State.
func (m *Memory) PutAccount(addr [20]byte, acct *types.Account) error {
	if acct == nil {
		acct = types.NewAccount()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.accounts[addr] = acct.Clone()
	return nil
}

// EmergencyPaused implements staking.State.
func (m *Memory) EmergencyPaused() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.paused
}

// SetEmergencyPaused implements staking.State.
func (m *Memory) SetEmergencyPaused(paused bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.paused = paused
	return nil
}

// Credit adds balance to an account, used to seed the external token ledger.
func (m *Memory) Credit(addr [20]byte, token string, amount *big.Int) error {
	acct, err := m.GetAccount(addr)
	if err != nil {
		return err
	}
	acct.SetBalance(token, new(big.Int).Add(acct.Balance(token), amount))
	return m.PutAccount(addr, acct)
}
