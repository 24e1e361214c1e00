package staking

import "fmt"

// vestingStartHorizon bounds how far into the future a vesting schedule may
// begin, preventing indefinitely deferred vesting.
const vestingStartHorizon = 7 * secondsPerDay

// ValidateOption checks a candidate option's parameter consistency. It is
// pure: no state is read or written, and the current time is consulted only
// for the vesting-start horizon. The first violation is reported.
func ValidateOption(opt *Option, resolver HookResolver, now int64) error {
	if opt == nil {
		return fmt.Errorf("%w: nil option", ErrInvalidMinStakeAmount)
	}
	if opt.MinStakeAmount == nil || opt.MinStakeAmount.Sign() <= 0 {
		return ErrInvalidMinStakeAmount
	}
	if opt.MaxStakeAmount != nil && opt.MaxStakeAmount.Sign() != 0 &&
		opt.MaxStakeAmount.Cmp(opt.MinStakeAmount) < 0 {
		return ErrInvalidMaxStakeAmount
	}
	if opt.IsLocked {
		if opt.MinLockDuration <= 0 {
			return ErrInvalidLockBounds
		}
		if opt.MaxLockDuration < opt.MinLockDuration {
			return ErrInvalidLockBounds
		}
		if opt.HasEarlyExitPenalty {
			if opt.PenaltyBps == 0 || opt.PenaltyBps > 10_000 {
				return ErrInvalidPenaltyConfig
			}
			if opt.PenaltyRecipient == ([20]byte{}) {
				return ErrInvalidPenaltyConfig
			}
		}
	} else {
		if opt.MinLockDuration != 0 || opt.MaxLockDuration != 0 {
			return ErrFlexibleLockConfig
		}
		if opt.HasEarlyExitPenalty || opt.PenaltyBps != 0 || opt.PenaltyRecipient != ([20]byte{}) {
			return ErrFlexibleLockConfig
		}
	}
	if opt.HasLinearVesting {
		if !opt.IsLocked {
			return ErrVestingRequiresLock
		}
		if opt.VestingDuration <= 0 {
			return ErrInvalidVestingConfig
		}
		if opt.VestingStart <= 0 || opt.VestingStart > now+vestingStartHorizon {
			return ErrInvalidVestingConfig
		}
		if opt.VestingCliff < 0 || opt.VestingCliff > opt.VestingDuration {
			return ErrInvalidVestingConfig
		}
		if opt.VestingDuration > opt.MaxLockDuration {
			return ErrInvalidVestingConfig
		}
	} else if opt.VestingStart != 0 || opt.VestingCliff != 0 || opt.VestingDuration != 0 {
		return ErrInvalidVestingConfig
	}
	if opt.HasTimeBasedMultiplier {
		if opt.MultiplierRateBps == 0 {
			return ErrInvalidMultiplierConfig
		}
	} else if opt.MultiplierRateBps != 0 {
		return ErrInvalidMultiplierConfig
	}
	if _, err := NormalizeToken(opt.Token); err != nil {
		return err
	}
	if opt.HasHook() {
		if _, err := ProbeHook(resolver, opt.HookAddress); err != nil {
			return err
		}
	}
	return nil
}
