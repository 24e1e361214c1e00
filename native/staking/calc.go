package staking

import "math/big"

const secondsPerDay = 24 * 60 * 60

var (
	basisPoints = big.NewInt(10_000)
	// wad is the 18-decimal fixed-point unit used for multiplier math.
	wad = mustBigInt("1000000000000000000")
)

func mustBigInt(value string) *big.Int {
	v, ok := new(big.Int).SetString(value, 10)
	if !ok {
		panic("invalid big integer constant")
	}
	return v
}

// VestedAmount returns the portion of the stake principal released by the
// option's linear vesting schedule at the given time. With vesting disabled
// the full principal is vested. Before the cliff nothing is vested; past the
// full duration everything is. Inside the ramp the elapsed time is measured
// from VestingStart, not from the cliff crossing, so crossing the cliff jumps
// straight to the start-based fraction.
func VestedAmount(opt *Option, st *Stake, now int64) *big.Int {
	if opt == nil || st == nil || st.Amount == nil {
		return big.NewInt(0)
	}
	amount := cloneBigInt(st.Amount)
	if !opt.HasLinearVesting {
		return amount
	}
	if now < opt.VestingStart+opt.VestingCliff {
		return big.NewInt(0)
	}
	if now >= opt.VestingStart+opt.VestingDuration {
		return amount
	}
	elapsed := big.NewInt(now - opt.VestingStart)
	vested := new(big.Int).Mul(amount, elapsed)
	vested.Quo(vested, big.NewInt(opt.VestingDuration))
	return vested
}

// PenaltyAmount returns the early-exit penalty slice for the requested amount
// under the option's penalty configuration, floored at basis-point precision.
func PenaltyAmount(opt *Option, requested *big.Int) *big.Int {
	if opt == nil || requested == nil || !opt.HasEarlyExitPenalty {
		return big.NewInt(0)
	}
	penalty := new(big.Int).Mul(requested, new(big.Int).SetUint64(uint64(opt.PenaltyBps)))
	penalty.Quo(penalty, basisPoints)
	return penalty
}

// MultipliedValue returns the display-only time-multiplied value of a stake.
// It never influences payouts. Days staked are measured in 18-decimal fixed
// point so sub-day accrual is visible, and growth is uncapped.
func MultipliedValue(opt *Option, st *Stake, now int64) *big.Int {
	if opt == nil || st == nil || st.Amount == nil {
		return big.NewInt(0)
	}
	amount := cloneBigInt(st.Amount)
	if !opt.HasTimeBasedMultiplier || opt.MultiplierRateBps == 0 {
		return amount
	}
	elapsed := now - st.CreatedAt
	if elapsed <= 0 {
		return amount
	}
	daysWad := new(big.Int).Mul(big.NewInt(elapsed), wad)
	daysWad.Quo(daysWad, big.NewInt(secondsPerDay))
	fraction := new(big.Int).Mul(daysWad, new(big.Int).SetUint64(uint64(opt.MultiplierRateBps)))
	fraction.Quo(fraction, basisPoints)
	multiplier := new(big.Int).Add(wad, fraction)
	value := new(big.Int).Mul(amount, multiplier)
	value.Quo(value, wad)
	return value
}

// WithdrawableAmount returns the portion of the stake that may currently be
// withdrawn: zero while a lock is still running on an unreleased option,
// otherwise the principal capped by the vested fraction.
func WithdrawableAmount(opt *Option, st *Stake, now int64) *big.Int {
	if opt == nil || !st.Exists() {
		return big.NewInt(0)
	}
	if opt.IsLocked && !opt.Released() && now < st.LockEnd() {
		return big.NewInt(0)
	}
	amount := cloneBigInt(st.Amount)
	vested := VestedAmount(opt, st, now)
	if vested.Cmp(amount) < 0 {
		return vested
	}
	return amount
}
