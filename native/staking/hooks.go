package staking

import "fmt"

// HookContext carries the immutable view of the operation handed to hook
// collaborators. Hooks observe, they never receive mutable ledger state.
type HookContext struct {
	Staker       [20]byte
	OptionID     uint64
	Amount       string
	LockDuration int64
	Data         []byte
}

// Hook is the lifecycle extension contract implemented by external
// collaborators. Every callback is fallible: a non-nil error aborts the
// enclosing ledger operation before any state is committed. The unstake pair
// belongs to the base capability contract and is not invoked by the main flow.
type Hook interface {
	BeforeStake(ctx HookContext) error
	AfterStake(ctx HookContext) error
	BeforeWithdraw(ctx HookContext) error
	AfterWithdraw(ctx HookContext, penaltyApplied bool) error
	BeforeExtend(ctx HookContext) error
	AfterExtend(ctx HookContext) error
	BeforeUnstake(ctx HookContext) error
	AfterUnstake(ctx HookContext) error
}

// HookCapability is the discovery probe performed once at option registration.
// Targets that do not advertise support are rejected by the validator.
type HookCapability interface {
	SupportsStakingHooks() bool
}

// HookResolver resolves a hook address to its live collaborator. Resolution
// failures surface as option configuration errors.
type HookResolver interface {
	ResolveHook(addr [20]byte) (Hook, bool)
}

// HookResolverFunc adapts a function to the HookResolver interface.
type HookResolverFunc func(addr [20]byte) (Hook, bool)

// ResolveHook implements HookResolver.
func (f HookResolverFunc) ResolveHook(addr [20]byte) (Hook, bool) { return f(addr) }

// ProbeHook performs the one-time capability negotiation for a hook target.
// The target must resolve to a live collaborator and advertise support for the
// staking hook contract.
func ProbeHook(resolver HookResolver, addr [20]byte) (Hook, error) {
	if resolver == nil {
		return nil, fmt.Errorf("%w: no resolver configured", ErrHookProbeFailed)
	}
	hook, ok := resolver.ResolveHook(addr)
	if !ok || hook == nil {
		return nil, fmt.Errorf("%w: target not resolvable", ErrHookProbeFailed)
	}
	probe, ok := hook.(HookCapability)
	if !ok || !probe.SupportsStakingHooks() {
		return nil, fmt.Errorf("%w: capability not advertised", ErrHookProbeFailed)
	}
	return hook, nil
}

// hookPoint identifies one of the lifecycle extension points.
type hookPoint uint8

const (
	hookBeforeStake hookPoint = iota
	hookAfterStake
	hookBeforeWithdraw
	hookAfterWithdraw
	hookBeforeExtend
	hookAfterExtend
)

// dispatchHook invokes the option's hook at the given point. A missing hook is
// a no-op, never an error. The penalty flag is only meaningful for the
// after-withdraw point.
func (e *Engine) dispatchHook(opt *Option, point hookPoint, ctx HookContext, penaltyApplied bool) error {
	if opt == nil || !opt.HasHook() || e.hooks == nil {
		return nil
	}
	hook, ok := e.hooks.ResolveHook(opt.HookAddress)
	if !ok || hook == nil {
		// The probe passed at registration; a vanished collaborator is a
		// configuration fault, not a silent no-op.
		return fmt.Errorf("%w: hook no longer resolvable", ErrHookProbeFailed)
	}
	switch point {
	case hookBeforeStake:
		return hook.BeforeStake(ctx)
	case hookAfterStake:
		return hook.AfterStake(ctx)
	case hookBeforeWithdraw:
		return hook.BeforeWithdraw(ctx)
	case hookAfterWithdraw:
		return hook.AfterWithdraw(ctx, penaltyApplied)
	case hookBeforeExtend:
		return hook.BeforeExtend(ctx)
	case hookAfterExtend:
		return hook.AfterExtend(ctx)
	}
	return nil
}
