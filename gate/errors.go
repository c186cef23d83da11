package gate

import "errors"

var (
	// ErrInactivityPeriodNotMet indicates the inactivity window has not elapsed.
	ErrInactivityPeriodNotMet = errors.New("gate: inactivity period not met")

	// ErrInvalidProof indicates the proof or its public inputs failed a check.
	ErrInvalidProof = errors.New("gate: invalid proof")

	// ErrProofRejected indicates the public inputs do not match the capsule record.
	ErrProofRejected = errors.New("gate: proof rejected")
)
