package staking

import (
	"errors"
	"math/big"
	"testing"
)

const testNow int64 = 1_700_000_000

func validLockedOption() *Option {
	return &Option{
		IsLocked:        true,
		MinLockDuration: 7 * secondsPerDay,
		MaxLockDuration: 365 * secondsPerDay,
		MinStakeAmount:  big.NewInt(100),
		MaxStakeAmount:  big.NewInt(1000),
		Token:           "FLEX",
	}
}

func validFlexibleOption() *Option {
	return &Option{
		MinStakeAmount: big.NewInt(1),
		Token:          "FLEX",
	}
}

func TestValidateOptionAmountBounds(t *testing.T) {
	opt := validFlexibleOption()
	opt.MinStakeAmount = big.NewInt(0)
	if err := ValidateOption(opt, nil, testNow); !errors.Is(err, ErrInvalidMinStakeAmount) {
		t.Fatalf("expected ErrInvalidMinStakeAmount, got %v", err)
	}

	opt = validFlexibleOption()
	opt.MinStakeAmount = big.NewInt(100)
	opt.MaxStakeAmount = big.NewInt(50)
	if err := ValidateOption(opt, nil, testNow); !errors.Is(err, ErrInvalidMaxStakeAmount) {
		t.Fatalf("expected ErrInvalidMaxStakeAmount, got %v", err)
	}

	// Zero max means unbounded and is always acceptable.
	opt = validFlexibleOption()
	opt.MaxStakeAmount = big.NewInt(0)
	if err := ValidateOption(opt, nil, testNow); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidateOptionLockBounds(t *testing.T) {
	opt := validLockedOption()
	opt.MinLockDuration = 0
	if err := ValidateOption(opt, nil, testNow); !errors.Is(err, ErrInvalidLockBounds) {
		t.Fatalf("expected ErrInvalidLockBounds, got %v", err)
	}

	opt = validLockedOption()
	opt.MaxLockDuration = opt.MinLockDuration - 1
	if err := ValidateOption(opt, nil, testNow); !errors.Is(err, ErrInvalidLockBounds) {
		t.Fatalf("expected ErrInvalidLockBounds, got %v", err)
	}
}

func TestValidateOptionPenaltyConfig(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Option)
	}{
		{"zero bps", func(o *Option) { o.PenaltyBps = 0 }},
		{"bps above denominator", func(o *Option) { o.PenaltyBps = 10_001 }},
		{"missing recipient", func(o *Option) { o.PenaltyRecipient = [20]byte{} }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			opt := validLockedOption()
			opt.HasEarlyExitPenalty = true
			opt.PenaltyBps = 1000
			opt.PenaltyRecipient = [20]byte{0x01}
			tc.mutate(opt)
			if err := ValidateOption(opt, nil, testNow); !errors.Is(err, ErrInvalidPenaltyConfig) {
				t.Fatalf("expected ErrInvalidPenaltyConfig, got %v", err)
			}
		})
	}
}

func TestValidateOptionFlexibleMustBeBare(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Option)
	}{
		{"min lock", func(o *Option) { o.MinLockDuration = 1 }},
		{"max lock", func(o *Option) { o.MaxLockDuration = 1 }},
		{"penalty flag", func(o *Option) { o.HasEarlyExitPenalty = true }},
		{"penalty bps", func(o *Option) { o.PenaltyBps = 100 }},
		{"penalty recipient", func(o *Option) { o.PenaltyRecipient = [20]byte{0x02} }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			opt := validFlexibleOption()
			tc.mutate(opt)
			if err := ValidateOption(opt, nil, testNow); !errors.Is(err, ErrFlexibleLockConfig) {
				t.Fatalf("expected ErrFlexibleLockConfig, got %v", err)
			}
		})
	}
}

func TestValidateOptionVesting(t *testing.T) {
	withVesting := func() *Option {
		opt := validLockedOption()
		opt.HasLinearVesting = true
		opt.VestingStart = testNow + secondsPerDay
		opt.VestingCliff = 10 * secondsPerDay
		opt.VestingDuration = 90 * secondsPerDay
		return opt
	}

	if err := ValidateOption(withVesting(), nil, testNow); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	opt := withVesting()
	opt.IsLocked = false
	opt.MinLockDuration = 0
	opt.MaxLockDuration = 0
	if err := ValidateOption(opt, nil, testNow); !errors.Is(err, ErrVestingRequiresLock) {
		t.Fatalf("expected ErrVestingRequiresLock, got %v", err)
	}

	opt = withVesting()
	opt.VestingDuration = 0
	if err := ValidateOption(opt, nil, testNow); !errors.Is(err, ErrInvalidVestingConfig) {
		t.Fatalf("expected ErrInvalidVestingConfig, got %v", err)
	}

	opt = withVesting()
	opt.VestingStart = testNow + 8*secondsPerDay
	if err := ValidateOption(opt, nil, testNow); !errors.Is(err, ErrInvalidVestingConfig) {
		t.Fatalf("expected ErrInvalidVestingConfig for deferred start, got %v", err)
	}

	opt = withVesting()
	opt.VestingCliff = opt.VestingDuration + 1
	if err := ValidateOption(opt, nil, testNow); !errors.Is(err, ErrInvalidVestingConfig) {
		t.Fatalf("expected ErrInvalidVestingConfig for cliff past duration, got %v", err)
	}

	opt = withVesting()
	opt.VestingDuration = opt.MaxLockDuration + 1
	if err := ValidateOption(opt, nil, testNow); !errors.Is(err, ErrInvalidVestingConfig) {
		t.Fatalf("expected ErrInvalidVestingConfig for duration past max lock, got %v", err)
	}

	opt = validLockedOption()
	opt.VestingStart = 5
	if err := ValidateOption(opt, nil, testNow); !errors.Is(err, ErrInvalidVestingConfig) {
		t.Fatalf("expected ErrInvalidVestingConfig for stray vesting fields, got %v", err)
	}
}

func TestValidateOptionMultiplier(t *testing.T) {
	opt := validFlexibleOption()
	opt.HasTimeBasedMultiplier = true
	if err := ValidateOption(opt, nil, testNow); !errors.Is(err, ErrInvalidMultiplierConfig) {
		t.Fatalf("expected ErrInvalidMultiplierConfig, got %v", err)
	}

	opt = validFlexibleOption()
	opt.MultiplierRateBps = 10
	if err := ValidateOption(opt, nil, testNow); !errors.Is(err, ErrInvalidMultiplierConfig) {
		t.Fatalf("expected ErrInvalidMultiplierConfig for stray rate, got %v", err)
	}

	opt = validFlexibleOption()
	opt.HasTimeBasedMultiplier = true
	opt.MultiplierRateBps = 10
	if err := ValidateOption(opt, nil, testNow); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

type probeHook struct {
	noopHook
	supported bool
}

func (p *probeHook) SupportsStakingHooks() bool { return p.supported }

func TestValidateOptionHookProbe(t *testing.T) {
	opt := validFlexibleOption()
	opt.HookAddress = [20]byte{0xAB}

	if err := ValidateOption(opt, nil, testNow); !errors.Is(err, ErrHookProbeFailed) {
		t.Fatalf("expected ErrHookProbeFailed without resolver, got %v", err)
	}

	missing := HookResolverFunc(func([20]byte) (Hook, bool) { return nil, false })
	if err := ValidateOption(opt, missing, testNow); !errors.Is(err, ErrHookProbeFailed) {
		t.Fatalf("expected ErrHookProbeFailed for unresolvable target, got %v", err)
	}

	unsupported := HookResolverFunc(func([20]byte) (Hook, bool) { return &probeHook{}, true })
	if err := ValidateOption(opt, unsupported, testNow); !errors.Is(err, ErrHookProbeFailed) {
		t.Fatalf("expected ErrHookProbeFailed for unsupported target, got %v", err)
	}

	supported := HookResolverFunc(func([20]byte) (Hook, bool) { return &probeHook{supported: true}, true })
	if err := ValidateOption(opt, supported, testNow); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
