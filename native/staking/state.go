package staking

import (
	"math/big"

	"github.com/0xKurt/FlexStake/core/types"
)

// State is the persistence boundary for the staking ledger. The registry
// exclusively owns option records and the engine exclusively owns stake
// records; nothing else mutates these maps. Account records front the external
// token ledger: every balance move either fully succeeds or fails the
// enclosing operation.
type State interface {
	OptionGet(id uint64) (*Option, bool)
	OptionPut(opt *Option) error
	// NextOptionID returns the next ascending identifier and advances the
	// counter. Identifiers start at 1 and are never reused.
	NextOptionID() (uint64, error)

	StakeGet(optionID uint64, owner [20]byte) (*Stake, bool)
	StakePut(optionID uint64, owner [20]byte, st *Stake) error
	StakeDelete(optionID uint64, owner [20]byte) error

	GetAccount(addr [20]byte) (*types.Account, error)
	PutAccount(addr [20]byte, acct *types.Account) error

	EmergencyPaused() bool
	SetEmergencyPaused(paused bool) error
}

// Authorizer answers whether an address holds the single-owner administrative
// capability. The mechanism itself lives outside the core.
type Authorizer interface {
	IsOwner(addr [20]byte) bool
}

// AuthorizerFunc adapts a function to the Authorizer interface.
type AuthorizerFunc func(addr [20]byte) bool

// IsOwner implements Authorizer.
func (f AuthorizerFunc) IsOwner(addr [20]byte) bool { return f(addr) }

func transferBalance(state State, from, to [20]byte, token string, amount *big.Int) error {
	if state == nil {
		return ErrNilState
	}
	amt := cloneBigInt(amount)
	if amt.Sign() == 0 {
		return nil
	}
	if amt.Sign() < 0 {
		return ErrInvalidWithdrawalAmount
	}
	fromAcc, err := state.GetAccount(from)
	if err != nil {
		return err
	}
	toAcc, err := state.GetAccount(to)
	if err != nil {
		return err
	}
	if fromAcc == nil {
		fromAcc = types.NewAccount()
	}
	if toAcc == nil {
		toAcc = types.NewAccount()
	}
	if fromAcc.Balance(token).Cmp(amt) < 0 {
		return ErrInsufficientBalance
	}
	fromAcc.SetBalance(token, new(big.Int).Sub(fromAcc.Balance(token), amt))
	toAcc.SetBalance(token, new(big.Int).Add(toAcc.Balance(token), amt))
	if err := state.PutAccount(from, fromAcc); err != nil {
		return err
	}
	return state.PutAccount(to, toAcc)
}
