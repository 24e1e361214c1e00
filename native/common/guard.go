package common

import "errors"

// ErrEmergencyPaused rejects non-emergency mutations while the process-wide
// emergency switch is set.
var ErrEmergencyPaused = errors.New("staking halted: emergency pause active")

// EmergencyView exposes the current emergency-pause flag. Implementations must
// return the live value on every call; callers never cache the result.
type EmergencyView interface {
	EmergencyPaused() bool
}

// Guard rejects the calling operation when the emergency switch is set.
func Guard(v EmergencyView) error {
	if v == nil {
		return nil
	}
	if v.EmergencyPaused() {
		return ErrEmergencyPaused
	}
	return nil
}
