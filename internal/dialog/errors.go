package dialog

import (
	"errors"

	"agroguru/internal/calendar"
	"agroguru/internal/dosage"
)

var (
	ErrInvalidDateFormat = errors.New("invalid date format, expected YYYY-MM-DD")
	ErrInvalidArea       = errors.New("area must be a positive number")
	ErrNoPendingDialog   = errors.New("no pending dialog")
	ErrUnknownCommand    = errors.New("unknown command")
)

// IsUsageError reports whether err is a recoverable user-facing error.
// Such errors are turned into replies and never escape Machine.
func IsUsageError(err error) bool {
	switch {
	case errors.Is(err, ErrInvalidDateFormat),
		errors.Is(err, ErrInvalidArea),
		errors.Is(err, ErrNoPendingDialog),
		errors.Is(err, ErrUnknownCommand),
		errors.Is(err, calendar.ErrMissingPlantingDate),
		errors.Is(err, dosage.ErrUnknownStage):
		return true
	}
	return false
}
