package shared

import "errors"

// Period statuses reused outside the periods package.
const (
	PeriodStatusOpen   = "OPEN"
	PeriodStatusClosed = "CLOSED"
	PeriodStatusLocked = "LOCKED"
)

// ErrInvalidPeriodTransition indicates status change not allowed.
var ErrInvalidPeriodTransition = errors.New("period transition invalid")

// ValidatePeriodTransition checks OPEN -> CLOSED -> LOCKED with CLOSED -> OPEN as the
// only way back. LOCKED is terminal.
func ValidatePeriodTransition(current, target string) error {
	switch current {
	case PeriodStatusOpen:
		if target == PeriodStatusClosed {
			return nil
		}
	case PeriodStatusClosed:
		if target == PeriodStatusOpen || target == PeriodStatusLocked {
			return nil
		}
	}
	return ErrInvalidPeriodTransition
}
