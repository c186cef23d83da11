package intent

import "errors"

var (
	// ErrInvalidIntentData indicates the intent payload is malformed.
	ErrInvalidIntentData = errors.New("intent: invalid intent data")

	// ErrIntentTooLarge indicates the intent payload exceeds MaxIntentDataSize.
	ErrIntentTooLarge = errors.New("intent: intent data too large")

	// ErrPercentageSum indicates percentage shares do not sum to 100.
	ErrPercentageSum = errors.New("intent: percentage shares must sum to 100")

	// ErrPlanOvercommitted indicates fixed shares sum past the plan total.
	ErrPlanOvercommitted = errors.New("intent: fixed shares exceed total amount")
)
