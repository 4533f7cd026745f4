package ledger

import "errors"

var (
	// ErrInvalidAmount is returned for a zero or negative amount.
	// Rejected before any store access.
	ErrInvalidAmount = errors.New("amount must be a positive number of minor units")

	// ErrAmountOverLimit is returned when a single transfer exceeds the
	// configured per-transfer ceiling. Rejected before any store access.
	ErrAmountOverLimit = errors.New("amount exceeds the per-transfer ceiling")

	// ErrInvalidSelector is returned when a destination selector is empty
	// or ambiguous. Rejected before any store access.
	ErrInvalidSelector = errors.New("destination selector must name exactly one account")

	// ErrDescriptionTooLong is returned for descriptions over 255 characters.
	ErrDescriptionTooLong = errors.New("description too long")

	// ErrAccountNotFound is returned when a selector resolves to no account.
	ErrAccountNotFound = errors.New("account not found")

	// ErrSelfTransfer is returned when source and destination share an owner.
	ErrSelfTransfer = errors.New("cannot transfer to your own account")

	// ErrInsufficientFunds is returned when the locked source balance does
	// not cover the amount.
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrDailyLimitExceeded is returned when today's transfer aggregate plus
	// the requested amount would exceed the configured daily ceiling.
	ErrDailyLimitExceeded = errors.New("daily transfer limit exceeded")

	// ErrConfig is returned for invalid configuration.
	ErrConfig = errors.New("invalid config")
)

// IsRejection reports whether err is a business or validation rejection
// rather than an infrastructure failure. Rejections are safe to surface to
// callers; anything else is reported as a generic internal failure.
func IsRejection(err error) bool {
	for _, kind := range []error{
		ErrInvalidAmount,
		ErrAmountOverLimit,
		ErrInvalidSelector,
		ErrDescriptionTooLong,
		ErrAccountNotFound,
		ErrSelfTransfer,
		ErrInsufficientFunds,
		ErrDailyLimitExceeded,
	} {
		if errors.Is(err, kind) {
			return true
		}
	}
	return false
}
