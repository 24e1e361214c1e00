package staking

import (
	"errors"
	"fmt"
	"math/big"
	"testing"
)

type recordingHook struct {
	noopHook
	calls     []string
	penalties []bool
	failAt    string
	failErr   error
}

func (h *recordingHook) SupportsStakingHooks() bool { return true }

func (h *recordingHook) record(point string) error {
	h.calls = append(h.calls, point)
	if h.failAt == point {
		return h.failErr
	}
	return nil
}

func (h *recordingHook) BeforeStake(HookContext) error    { return h.record("beforeStake") }
func (h *recordingHook) AfterStake(HookContext) error     { return h.record("afterStake") }
func (h *recordingHook) BeforeWithdraw(HookContext) error { return h.record("beforeWithdraw") }
func (h *recordingHook) BeforeExtend(HookContext) error   { return h.record("beforeExtend") }
func (h *recordingHook) AfterExtend(HookContext) error    { return h.record("afterExtend") }

func (h *recordingHook) AfterWithdraw(_ HookContext, penaltyApplied bool) error {
	h.penalties = append(h.penalties, penaltyApplied)
	return h.record("afterWithdraw")
}

func (f *engineFixture) addHookedOption(id uint64, hook Hook) *Option {
	opt := flexibleOption(id)
	opt.HookAddress = hookAddr
	f.hooks[hookAddr] = hook
	return f.addOption(opt)
}

func equalCalls(got, want []string) bool {
	if len(got) != len(want) {
		return false
	}
	for i := range got {
		if got[i] != want[i] {
			return false
		}
	}
	return true
}

func TestHookLifecycleOrder(t *testing.T) {
	f := newEngineFixture()
	hook := &recordingHook{}
	f.addHookedOption(1, hook)
	f.state.fund(stakerAddr, 500)

	if err := f.engine.Stake(stakerAddr, 1, big.NewInt(500), 0, nil); err != nil {
		t.Fatalf("stake: %v", err)
	}
	if _, err := f.engine.Withdraw(stakerAddr, 1); err != nil {
		t.Fatalf("withdraw: %v", err)
	}
	want := []string{"beforeStake", "afterStake", "beforeWithdraw", "afterWithdraw"}
	if !equalCalls(hook.calls, want) {
		t.Fatalf("expected calls %v, got %v", want, hook.calls)
	}
	if len(hook.penalties) != 1 || hook.penalties[0] {
		t.Fatalf("expected penaltyApplied=false, got %v", hook.penalties)
	}
}

func TestHookPenaltyFlag(t *testing.T) {
	f := newEngineFixture()
	hook := &recordingHook{}
	opt := lockedPenaltyOption(1)
	opt.HookAddress = hookAddr
	f.hooks[hookAddr] = hook
	f.addOption(opt)
	f.state.fund(stakerAddr, 500)

	if err := f.engine.Stake(stakerAddr, 1, big.NewInt(500), 30*secondsPerDay, nil); err != nil {
		t.Fatalf("stake: %v", err)
	}
	f.clock.advanceDays(31)
	if _, err := f.engine.Withdraw(stakerAddr, 1); err != nil {
		t.Fatalf("withdraw: %v", err)
	}
	if len(hook.penalties) != 1 || !hook.penalties[0] {
		t.Fatalf("expected penaltyApplied=true, got %v", hook.penalties)
	}
}

func TestHookBeforeStakeAborts(t *testing.T) {
	f := newEngineFixture()
	hookErr := fmt.Errorf("collateral check failed")
	hook := &recordingHook{failAt: "beforeStake", failErr: hookErr}
	f.addHookedOption(1, hook)
	f.state.fund(stakerAddr, 500)

	if err := f.engine.Stake(stakerAddr, 1, big.NewInt(500), 0, nil); !errors.Is(err, hookErr) {
		t.Fatalf("expected hook error, got %v", err)
	}
	if got := f.state.balance(stakerAddr); got.Cmp(big.NewInt(500)) != 0 {
		t.Fatalf("expected untouched balance, got %s", got)
	}
	if _, err := f.engine.GetStake(1, stakerAddr); !errors.Is(err, ErrStakeNotFound) {
		t.Fatalf("expected no stake record, got %v", err)
	}
}

func TestHookAfterStakeRollsBack(t *testing.T) {
	f := newEngineFixture()
	hookErr := fmt.Errorf("post-stake veto")
	hook := &recordingHook{failAt: "afterStake", failErr: hookErr}
	f.addHookedOption(1, hook)
	f.state.fund(stakerAddr, 500)

	if err := f.engine.Stake(stakerAddr, 1, big.NewInt(500), 0, nil); !errors.Is(err, hookErr) {
		t.Fatalf("expected hook error, got %v", err)
	}
	// The transfer and the record both ran inside the overlay; a failing
	// after hook must leave neither behind.
	if got := f.state.balance(stakerAddr); got.Cmp(big.NewInt(500)) != 0 {
		t.Fatalf("expected balance restored, got %s", got)
	}
	if got := f.state.balance(moduleVault); got.Sign() != 0 {
		t.Fatalf("expected empty vault, got %s", got)
	}
	if _, err := f.engine.GetStake(1, stakerAddr); !errors.Is(err, ErrStakeNotFound) {
		t.Fatalf("expected no stake record, got %v", err)
	}
	if len(f.emitter.events) != 0 {
		t.Fatalf("expected no events, got %d", len(f.emitter.events))
	}
}

func TestHookAfterWithdrawRollsBack(t *testing.T) {
	f := newEngineFixture()
	hookErr := fmt.Errorf("post-withdraw veto")
	hook := &recordingHook{failAt: "afterWithdraw", failErr: hookErr}
	f.addHookedOption(1, hook)
	f.state.fund(stakerAddr, 500)

	if err := f.engine.Stake(stakerAddr, 1, big.NewInt(500), 0, nil); err != nil {
		t.Fatalf("stake: %v", err)
	}
	if _, err := f.engine.Withdraw(stakerAddr, 1); !errors.Is(err, hookErr) {
		t.Fatalf("expected hook error, got %v", err)
	}
	stake, err := f.engine.GetStake(1, stakerAddr)
	if err != nil {
		t.Fatalf("expected stake to survive, got %v", err)
	}
	if stake.Amount.Cmp(big.NewInt(500)) != 0 {
		t.Fatalf("expected amount 500, got %s", stake.Amount)
	}
	if got := f.state.balance(moduleVault); got.Cmp(big.NewInt(500)) != 0 {
		t.Fatalf("expected vault unchanged, got %s", got)
	}
}

func TestHookVanishedResolverFails(t *testing.T) {
	f := newEngineFixture()
	opt := flexibleOption(1)
	opt.HookAddress = hookAddr
	f.addOption(opt) // no hook registered for hookAddr
	f.state.fund(stakerAddr, 500)

	if err := f.engine.Stake(stakerAddr, 1, big.NewInt(500), 0, nil); !errors.Is(err, ErrHookProbeFailed) {
		t.Fatalf("expected ErrHookProbeFailed, got %v", err)
	}
}

type reentrantHook struct {
	noopHook
	engine *Engine
	got    error
}

func (h *reentrantHook) SupportsStakingHooks() bool { return true }

func (h *reentrantHook) BeforeWithdraw(ctx HookContext) error {
	_, h.got = h.engine.Withdraw(ctx.Staker, ctx.OptionID)
	return nil
}

func TestHookReentrancyRejected(t *testing.T) {
	f := newEngineFixture()
	hook := &reentrantHook{engine: f.engine}
	f.addHookedOption(1, hook)
	f.state.fund(stakerAddr, 500)

	if err := f.engine.Stake(stakerAddr, 1, big.NewInt(500), 0, nil); err != nil {
		t.Fatalf("stake: %v", err)
	}
	payout, err := f.engine.Withdraw(stakerAddr, 1)
	if err != nil {
		t.Fatalf("withdraw: %v", err)
	}
	if payout.Cmp(big.NewInt(500)) != 0 {
		t.Fatalf("expected payout 500, got %s", payout)
	}
	if !errors.Is(hook.got, ErrReentrantCall) {
		t.Fatalf("expected inner call to fail with ErrReentrantCall, got %v", hook.got)
	}
}

type stallingHook struct {
	noopHook
	entered chan struct{}
	release chan struct{}
}

func (h *stallingHook) SupportsStakingHooks() bool { return true }

func (h *stallingHook) BeforeStake(HookContext) error {
	close(h.entered)
	<-h.release
	return nil
}

func TestConcurrentCallerWaitsForHookedOperation(t *testing.T) {
	f := newEngineFixture()
	hook := &stallingHook{entered: make(chan struct{}), release: make(chan struct{})}
	f.addHookedOption(1, hook)
	f.addOption(flexibleOption(2))
	other := newTestAddress(0x09)
	f.state.fund(stakerAddr, 500)
	f.state.fund(other, 300)

	firstErr := make(chan error, 1)
	go func() {
		firstErr <- f.engine.Stake(stakerAddr, 1, big.NewInt(500), 0, nil)
	}()
	<-hook.entered

	// An unrelated caller arriving while the first operation sits inside its
	// hook queues behind the lock rather than failing.
	secondErr := make(chan error, 1)
	go func() {
		secondErr <- f.engine.Stake(other, 2, big.NewInt(300), 0, nil)
	}()
	close(hook.release)

	if err := <-firstErr; err != nil {
		t.Fatalf("first stake: %v", err)
	}
	if err := <-secondErr; err != nil {
		t.Fatalf("second stake: %v", err)
	}
	if _, err := f.engine.GetStake(1, stakerAddr); err != nil {
		t.Fatalf("first stake missing: %v", err)
	}
	if _, err := f.engine.GetStake(2, other); err != nil {
		t.Fatalf("second stake missing: %v", err)
	}
}

func TestMigrateDispatchesBothHooks(t *testing.T) {
	f := newEngineFixture()
	hook := &recordingHook{}
	f.addHookedOption(1, hook)
	to := flexibleOption(2)
	to.HookAddress = hookAddr
	f.addOption(to)
	f.state.fund(stakerAddr, 500)

	if err := f.engine.Stake(stakerAddr, 1, big.NewInt(500), 0, nil); err != nil {
		t.Fatalf("stake: %v", err)
	}
	hook.calls = nil
	if err := f.engine.Migrate(stakerAddr, 1, 2); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	want := []string{"beforeWithdraw", "beforeStake", "afterWithdraw", "afterStake"}
	if !equalCalls(hook.calls, want) {
		t.Fatalf("expected calls %v, got %v", want, hook.calls)
	}
}
