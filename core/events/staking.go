package events

import (
	"math/big"
	"strconv"

	"github.com/ethereum/go-ethereum/common"

	"github.com/0xKurt/FlexStake/core/types"
)

const (
	// TypeOptionCreated is emitted when the registry accepts a new option.
	TypeOptionCreated = "staking.option.created"
	// TypeOptionPaused is emitted when new stakes into an option are blocked.
	TypeOptionPaused = "staking.option.paused"
	// TypeOptionUnpaused is emitted when an option resumes accepting stakes.
	TypeOptionUnpaused = "staking.option.unpaused"
	// TypeOptionReleased is emitted for the one-way pause-and-release toggle.
	TypeOptionReleased = "staking.option.released"
	// TypeStaked captures a new stake position.
	TypeStaked = "staking.staked"
	// TypeStakeExtended captures a lock duration extension.
	TypeStakeExtended = "staking.extended"
	// TypeWithdrawn captures a full or partial withdrawal and its penalty split.
	TypeWithdrawn = "staking.withdrawn"
	// TypeStakeMigrated captures a flexible stake relocating between options.
	TypeStakeMigrated = "staking.migrated"
	// TypeEmergencyWithdrawn captures the emergency exit path.
	TypeEmergencyWithdrawn = "staking.emergencyWithdrawn"
	// TypeEmergencyPauseSet captures toggles of the process-wide emergency pause.
	TypeEmergencyPauseSet = "staking.emergencyPause"
	// TypeBatchStaked aggregates a batch of stake operations.
	TypeBatchStaked = "staking.batch.staked"
	// TypeBatchExtended aggregates a batch of extensions.
	TypeBatchExtended = "staking.batch.extended"
	// TypeBatchWithdrawn aggregates a batch of withdrawals.
	TypeBatchWithdrawn = "staking.batch.withdrawn"
	// TypeBatchMigrated aggregates a batch of migrations.
	TypeBatchMigrated = "staking.batch.migrated"
)

func formatAmount(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}

func addrString(a [20]byte) string {
	return common.BytesToAddress(a[:]).Hex()
}

func zeroAddress(a [20]byte) bool { return a == ([20]byte{}) }

// OptionCreated captures the acceptance of a new staking option.
type OptionCreated struct {
	ID       uint64
	Owner    [20]byte
	Token    string
	IsLocked bool
}

// EventType satisfies the Event interface.
func (OptionCreated) EventType() string { return TypeOptionCreated }

// Event converts the structured payload into a broadcastable event.
func (e OptionCreated) Event() *types.Event {
	attrs := map[string]string{
		"optionId": strconv.FormatUint(e.ID, 10),
		"token":    e.Token,
		"locked":   strconv.FormatBool(e.IsLocked),
	}
	if !zeroAddress(e.Owner) {
		attrs["owner"] = addrString(e.Owner)
	}
	return &types.Event{Type: TypeOptionCreated, Attributes: attrs}
}

// OptionStatusChanged captures pause, unpause and release transitions.
type OptionStatusChanged struct {
	ID       uint64
	Caller   [20]byte
	Released bool
	Paused   bool
}

func (e OptionStatusChanged) eventType() string {
	switch {
	case e.Released:
		return TypeOptionReleased
	case e.Paused:
		return TypeOptionPaused
	default:
		return TypeOptionUnpaused
	}
}

// EventType satisfies the Event interface.
func (e OptionStatusChanged) EventType() string { return e.eventType() }

// Event converts the structured payload into a broadcastable event.
func (e OptionStatusChanged) Event() *types.Event {
	attrs := map[string]string{
		"optionId": strconv.FormatUint(e.ID, 10),
	}
	if !zeroAddress(e.Caller) {
		attrs["caller"] = addrString(e.Caller)
	}
	return &types.Event{Type: e.eventType(), Attributes: attrs}
}

// Staked captures a freshly created stake position.
type Staked struct {
	OptionID     uint64
	Staker       [20]byte
	Amount       *big.Int
	LockDuration int64
	CreatedAt    int64
	HasData      bool
}

// EventType satisfies the Event interface.
func (Staked) EventType() string { return TypeStaked }

// Event converts the structured payload into a broadcastable event.
func (e Staked) Event() *types.Event {
	attrs := map[string]string{
		"optionId":  strconv.FormatUint(e.OptionID, 10),
		"staker":    addrString(e.Staker),
		"amount":    formatAmount(e.Amount),
		"createdAt": strconv.FormatInt(e.CreatedAt, 10),
	}
	if e.LockDuration > 0 {
		attrs["lockDuration"] = strconv.FormatInt(e.LockDuration, 10)
	}
	if e.HasData {
		attrs["hasData"] = "true"
	}
	return &types.Event{Type: TypeStaked, Attributes: attrs}
}

// StakeExtended captures the lock duration increase for an active stake.
type StakeExtended struct {
	OptionID    uint64
	Staker      [20]byte
	NewDuration int64
	ExtendedAt  int64
}

// EventType satisfies the Event interface.
func (StakeExtended) EventType() string { return TypeStakeExtended }

// Event converts the structured payload into a broadcastable event.
func (e StakeExtended) Event() *types.Event {
	attrs := map[string]string{
		"optionId":     strconv.FormatUint(e.OptionID, 10),
		"staker":       addrString(e.Staker),
		"lockDuration": strconv.FormatInt(e.NewDuration, 10),
		"extendedAt":   strconv.FormatInt(e.ExtendedAt, 10),
	}
	return &types.Event{Type: TypeStakeExtended, Attributes: attrs}
}

// Withdrawn captures full and partial withdrawals, including the penalty slice
// routed to the option's penalty recipient when an early exit applies.
type Withdrawn struct {
	OptionID  uint64
	Staker    [20]byte
	Requested *big.Int
	Payout    *big.Int
	Penalty   *big.Int
	Recipient [20]byte
	Partial   bool
	Remaining *big.Int
}

// EventType satisfies the Event interface.
func (Withdrawn) EventType() string { return TypeWithdrawn }

// Event converts the structured payload into a broadcastable event.
func (e Withdrawn) Event() *types.Event {
	attrs := map[string]string{
		"optionId":  strconv.FormatUint(e.OptionID, 10),
		"staker":    addrString(e.Staker),
		"requested": formatAmount(e.Requested),
		"payout":    formatAmount(e.Payout),
	}
	if e.Penalty != nil && e.Penalty.Sign() > 0 {
		attrs["penalty"] = formatAmount(e.Penalty)
		if !zeroAddress(e.Recipient) {
			attrs["penaltyRecipient"] = addrString(e.Recipient)
		}
	}
	if e.Partial {
		attrs["partial"] = "true"
		attrs["remaining"] = formatAmount(e.Remaining)
	}
	return &types.Event{Type: TypeWithdrawn, Attributes: attrs}
}

// StakeMigrated captures a flexible stake moving to a new option.
type StakeMigrated struct {
	FromOptionID uint64
	ToOptionID   uint64
	Staker       [20]byte
	Amount       *big.Int
	MigratedAt   int64
}

// EventType satisfies the Event interface.
func (StakeMigrated) EventType() string { return TypeStakeMigrated }

// Event converts the structured payload into a broadcastable event.
func (e StakeMigrated) Event() *types.Event {
	attrs := map[string]string{
		"fromOptionId": strconv.FormatUint(e.FromOptionID, 10),
		"toOptionId":   strconv.FormatUint(e.ToOptionID, 10),
		"staker":       addrString(e.Staker),
		"amount":       formatAmount(e.Amount),
		"migratedAt":   strconv.FormatInt(e.MigratedAt, 10),
	}
	return &types.Event{Type: TypeStakeMigrated, Attributes: attrs}
}

// EmergencyWithdrawn captures the hook-free emergency exit of a stake.
type EmergencyWithdrawn struct {
	OptionID uint64
	Staker   [20]byte
	Amount   *big.Int
}

// EventType satisfies the Event interface.
func (EmergencyWithdrawn) EventType() string { return TypeEmergencyWithdrawn }

// Event converts the structured payload into a broadcastable event.
func (e EmergencyWithdrawn) Event() *types.Event {
	attrs := map[string]string{
		"optionId": strconv.FormatUint(e.OptionID, 10),
		"staker":   addrString(e.Staker),
		"amount":   formatAmount(e.Amount),
	}
	return &types.Event{Type: TypeEmergencyWithdrawn, Attributes: attrs}
}

// EmergencyPauseSet captures toggles of the process-wide emergency switch.
type EmergencyPauseSet struct {
	Caller [20]byte
	Paused bool
}

// EventType satisfies the Event interface.
func (EmergencyPauseSet) EventType() string { return TypeEmergencyPauseSet }

// Event converts the structured payload into a broadcastable event.
func (e EmergencyPauseSet) Event() *types.Event {
	attrs := map[string]string{
		"paused": strconv.FormatBool(e.Paused),
	}
	if !zeroAddress(e.Caller) {
		attrs["caller"] = addrString(e.Caller)
	}
	return &types.Event{Type: TypeEmergencyPauseSet, Attributes: attrs}
}

// BatchResult summarises a single element of a batch operation.
type BatchResult struct {
	OptionID uint64
	Amount   *big.Int
}

// BatchExecuted aggregates the per-element results of one batch call.
type BatchExecuted struct {
	Kind    string
	Caller  [20]byte
	Results []BatchResult
}

// EventType satisfies the Event interface.
func (e BatchExecuted) EventType() string { return e.Kind }

// Event converts the structured payload into a broadcastable event.
func (e BatchExecuted) Event() *types.Event {
	attrs := map[string]string{
		"caller": addrString(e.Caller),
		"count":  strconv.Itoa(len(e.Results)),
	}
	total := big.NewInt(0)
	for i, res := range e.Results {
		prefix := "item" + strconv.Itoa(i)
		attrs[prefix+".optionId"] = strconv.FormatUint(res.OptionID, 10)
		if res.Amount != nil {
			attrs[prefix+".amount"] = res.Amount.String()
			total.Add(total, res.Amount)
		}
	}
	if total.Sign() > 0 {
		attrs["totalAmount"] = total.String()
	}
	return &types.Event{Type: e.Kind, Attributes: attrs}
}
