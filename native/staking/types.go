package staking

import (
	"math/big"
	"strings"
)

// OptionStatus tracks the administrative lifecycle of a staking option.
// Released implies paused; the combination released-without-paused is not
// representable.
type OptionStatus uint8

const (
	OptionActive OptionStatus = iota
	OptionPaused
	OptionPausedAndReleased
)

// Valid reports whether the status value is within the supported range.
func (s OptionStatus) Valid() bool {
	switch s {
	case OptionActive, OptionPaused, OptionPausedAndReleased:
		return true
	default:
		return false
	}
}

// Option describes one administrator-defined staking product. Structural
// fields are immutable after creation; only Status mutates, through the
// registry's pause/unpause/pause-and-release transitions.
type Option struct {
	ID                     uint64
	IsLocked               bool
	MinLockDuration        int64
	MaxLockDuration        int64
	HasEarlyExitPenalty    bool
	PenaltyBps             uint32
	PenaltyRecipient       [20]byte
	MinStakeAmount         *big.Int
	MaxStakeAmount         *big.Int
	HasLinearVesting       bool
	VestingStart           int64
	VestingCliff           int64
	VestingDuration        int64
	HasTimeBasedMultiplier bool
	MultiplierRateBps      uint32
	Token                  string
	RequiresData           bool
	HookAddress            [20]byte
	Status                 OptionStatus
}

// Paused reports whether new stakes into the option are blocked.
func (o *Option) Paused() bool {
	return o != nil && o.Status != OptionActive
}

// Released reports whether lock enforcement and penalties are permanently
// disabled for withdrawals on this option.
func (o *Option) Released() bool {
	return o != nil && o.Status == OptionPausedAndReleased
}

// HasHook reports whether the option carries a hook collaborator reference.
func (o *Option) HasHook() bool {
	return o != nil && o.HookAddress != ([20]byte{})
}

// Clone returns a deep copy of the option so callers can safely mutate the
// copy without affecting the stored instance.
func (o *Option) Clone() *Option {
	if o == nil {
		return nil
	}
	clone := *o
	clone.MinStakeAmount = cloneBigInt(o.MinStakeAmount)
	clone.MaxStakeAmount = cloneBigInt(o.MaxStakeAmount)
	return &clone
}

// Stake captures one user's live position against a single option. A missing
// record and a zero amount are equivalent: both mean no stake exists for the
// (option, staker) pair.
type Stake struct {
	Amount         *big.Int
	LockDuration   int64
	CreatedAt      int64
	LastExtendedAt int64
	Data           []byte
}

// Clone returns a deep copy of the stake.
func (s *Stake) Clone() *Stake {
	if s == nil {
		return nil
	}
	clone := *s
	clone.Amount = cloneBigInt(s.Amount)
	clone.Data = append([]byte(nil), s.Data...)
	return &clone
}

// Exists reports whether the stake represents a live position.
func (s *Stake) Exists() bool {
	return s != nil && s.Amount != nil && s.Amount.Sign() > 0
}

// LockEnd returns the unix time at which the stake's lock elapses.
func (s *Stake) LockEnd() int64 {
	if s == nil {
		return 0
	}
	return s.CreatedAt + s.LockDuration
}

// NormalizeToken trims and validates a token identifier, returning the
// canonical uppercase symbol.
func NormalizeToken(symbol string) (string, error) {
	trimmed := strings.ToUpper(strings.TrimSpace(symbol))
	if trimmed == "" {
		return "", ErrInvalidToken
	}
	return trimmed, nil
}

func cloneBigInt(v *big.Int) *big.Int {
	if v == nil {
		return big.NewInt(0)
	}
	return new(big.Int).Set(v)
}
