package amount

import "errors"

var (
	// ErrMalformedAmount indicates the amount string is not a valid decimal number.
	ErrMalformedAmount = errors.New("amount: malformed amount")

	// ErrAmountTooLarge indicates the scaled amount does not fit in a uint64.
	ErrAmountTooLarge = errors.New("amount: amount too large")

	// ErrInvalidScale indicates the smallest-unit scale is invalid.
	ErrInvalidScale = errors.New("amount: invalid scale")
)
