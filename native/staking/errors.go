package staking

import "errors"

// Configuration errors reported while validating a candidate option.
var (
	ErrInvalidToken            = errors.New("staking: invalid token symbol")
	ErrInvalidMinStakeAmount   = errors.New("staking: min stake amount must be positive")
	ErrInvalidMaxStakeAmount   = errors.New("staking: max stake amount below min")
	ErrInvalidLockBounds       = errors.New("staking: invalid lock duration bounds")
	ErrInvalidPenaltyConfig    = errors.New("staking: invalid early exit penalty configuration")
	ErrFlexibleLockConfig      = errors.New("staking: flexible option cannot carry lock or penalty configuration")
	ErrVestingRequiresLock     = errors.New("staking: vesting requires a locked option")
	ErrInvalidVestingConfig    = errors.New("staking: invalid vesting configuration")
	ErrInvalidMultiplierConfig = errors.New("staking: invalid multiplier configuration")
	ErrHookProbeFailed         = errors.New("staking: hook capability probe failed")
)

// Lifecycle errors reported by registry and ledger transitions.
var (
	ErrUnauthorized        = errors.New("staking: unauthorized")
	ErrOptionNotFound      = errors.New("staking: option not found")
	ErrOptionAlreadyPaused = errors.New("staking: option already paused")
	ErrOptionNotPaused     = errors.New("staking: option not paused")
	ErrStakingPaused       = errors.New("staking: option paused")
	ErrStakeNotFound       = errors.New("staking: stake not found")
	ErrStakeExists         = errors.New("staking: stake already exists")
	ErrDataRequired        = errors.New("staking: option requires attached data")
	ErrNoDataAllowed       = errors.New("staking: option does not accept attached data")
	ErrInvalidStakeAmount  = errors.New("staking: stake amount outside option bounds")
	ErrFlexibleLockPeriod  = errors.New("staking: flexible staking cannot have lock periods")
	ErrLockOutOfRange      = errors.New("staking: lock duration outside option bounds")
	ErrLockTooShortForVest = errors.New("staking: lock duration too short to cover vesting")
	ErrMigrateLockedOption = errors.New("staking: cannot migrate from a locked option")
	ErrMigrateTokenChange  = errors.New("staking: migration cannot change token")
)

// Withdrawal errors.
var (
	ErrWithdrawBeforeLock      = errors.New("staking: withdraw before lock period elapsed")
	ErrExceedsWithdrawable     = errors.New("staking: amount exceeds withdrawable balance")
	ErrNoPenaltyRecipient      = errors.New("staking: penalty recipient unavailable")
	ErrInsufficientBalance     = errors.New("staking: insufficient token balance")
	ErrInvalidWithdrawalAmount = errors.New("staking: withdrawal amount must be positive")
)

// Batch, availability and concurrency errors.
var (
	ErrArrayLengthMismatch = errors.New("staking: batch array length mismatch")
	ErrEmptyBatch          = errors.New("staking: batch must contain at least one element")
	ErrNotEmergencyPaused  = errors.New("staking: emergency withdraw requires emergency pause")
	ErrReentrantCall       = errors.New("staking: reentrant call rejected")
	ErrNilState            = errors.New("staking: state not configured")
)
