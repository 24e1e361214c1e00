package staking

import (
	"sync"
	"time"

	"github.com/0xKurt/FlexStake/core/events"
	nativecommon "github.com/0xKurt/FlexStake/native/common"
)

// Registry manages persistence and retrieval of staking options. Creation is
// owner-gated and validated; after creation only the pause/unpause/release
// status mutates, and options are never deleted. A mutex serializes the
// mutating paths so concurrent admin calls observe each other's transitions.
type Registry struct {
	state   State
	emitter events.Emitter
	auth    Authorizer
	hooks   HookResolver
	nowFn   func() int64

	mu sync.Mutex
}

// NewRegistry creates a registry backed by the provided state.
func NewRegistry(state State) *Registry {
	return &Registry{
		state:   state,
		emitter: events.NoopEmitter{},
		nowFn:   func() int64 { return time.Now().Unix() },
	}
}

// SetEmitter configures the event emitter used to broadcast registry updates.
// Passing nil resets the emitter to a no-op implementation.
func (r *Registry) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		r.emitter = events.NoopEmitter{}
		return
	}
	r.emitter = emitter
}

// SetAuthorizer configures the owner capability check.
func (r *Registry) SetAuthorizer(auth Authorizer) { r.auth = auth }

// SetHookResolver configures the resolver used for hook capability probes.
func (r *Registry) SetHookResolver(resolver HookResolver) { r.hooks = resolver }

// SetNowFunc overrides the time source, primarily for deterministic tests.
func (r *Registry) SetNowFunc(now func() int64) {
	if now == nil {
		r.nowFn = func() int64 { return time.Now().Unix() }
		return
	}
	r.nowFn = now
}

func (r *Registry) emit(evt events.Event) {
	if r == nil || r.emitter == nil || evt == nil {
		return
	}
	r.emitter.Emit(evt)
}

func (r *Registry) authorize(caller [20]byte) error {
	if r.auth == nil || !r.auth.IsOwner(caller) {
		return ErrUnauthorized
	}
	return nil
}

// CreateOption validates and persists a new staking option, assigning the next
// ascending identifier. Identifiers are consumed only after validation passes,
// so a rejected candidate never burns an id.
func (r *Registry) CreateOption(caller [20]byte, opt *Option) (uint64, error) {
	if r == nil || r.state == nil {
		return 0, ErrNilState
	}
	if err := r.authorize(caller); err != nil {
		return 0, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := nativecommon.Guard(r.state); err != nil {
		return 0, err
	}
	candidate := opt.Clone()
	if candidate == nil {
		return 0, ErrInvalidMinStakeAmount
	}
	token, err := NormalizeToken(candidate.Token)
	if err != nil {
		return 0, err
	}
	candidate.Token = token
	candidate.Status = OptionActive
	if err := ValidateOption(candidate, r.hooks, r.nowFn()); err != nil {
		return 0, err
	}
	id, err := r.state.NextOptionID()
	if err != nil {
		return 0, err
	}
	candidate.ID = id
	if err := r.state.OptionPut(candidate); err != nil {
		return 0, err
	}
	r.emit(events.OptionCreated{
		ID:       id,
		Owner:    caller,
		Token:    candidate.Token,
		IsLocked: candidate.IsLocked,
	})
	return id, nil
}

// GetOption returns the stored option by id.
func (r *Registry) GetOption(id uint64) (*Option, error) {
	if r == nil || r.state == nil {
		return nil, ErrNilState
	}
	opt, ok := r.state.OptionGet(id)
	if !ok {
		return nil, ErrOptionNotFound
	}
	return opt.Clone(), nil
}

// PauseOption blocks new stakes into the option. Pausing an already paused
// option fails.
func (r *Registry) PauseOption(caller [20]byte, id uint64) error {
	return r.setStatus(caller, id, func(opt *Option) error {
		if opt.Paused() {
			return ErrOptionAlreadyPaused
		}
		opt.Status = OptionPaused
		return nil
	}, func() events.Event {
		return events.OptionStatusChanged{ID: id, Caller: caller, Paused: true}
	})
}

// UnpauseOption resumes stakes into a paused option. Released options stay
// paused forever; unpausing them fails like any other invalid transition.
func (r *Registry) UnpauseOption(caller [20]byte, id uint64) error {
	return r.setStatus(caller, id, func(opt *Option) error {
		if opt.Status != OptionPaused {
			return ErrOptionNotPaused
		}
		opt.Status = OptionActive
		return nil
	}, func() events.Event {
		return events.OptionStatusChanged{ID: id, Caller: caller}
	})
}

// PauseAndReleaseOption pauses the option and permanently disables lock
// enforcement and penalties for its withdrawals. The transition is one-way and
// safe to repeat, including on an already paused option.
func (r *Registry) PauseAndReleaseOption(caller [20]byte, id uint64) error {
	return r.setStatus(caller, id, func(opt *Option) error {
		opt.Status = OptionPausedAndReleased
		return nil
	}, func() events.Event {
		return events.OptionStatusChanged{ID: id, Caller: caller, Paused: true, Released: true}
	})
}

func (r *Registry) setStatus(caller [20]byte, id uint64, transition func(*Option) error, evt func() events.Event) error {
	if r == nil || r.state == nil {
		return ErrNilState
	}
	if err := r.authorize(caller); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := nativecommon.Guard(r.state); err != nil {
		return err
	}
	opt, ok := r.state.OptionGet(id)
	if !ok {
		return ErrOptionNotFound
	}
	updated := opt.Clone()
	if err := transition(updated); err != nil {
		return err
	}
	if err := r.state.OptionPut(updated); err != nil {
		return err
	}
	r.emit(evt())
	return nil
}
