package capsule

import "errors"

var (
	// ErrCapsuleNotFound indicates no capsule record exists for the owner.
	ErrCapsuleNotFound = errors.New("capsule: capsule not found")

	// ErrCapsuleExists indicates a capsule record already exists for the owner.
	ErrCapsuleExists = errors.New("capsule: capsule already exists")

	// ErrCapsuleInactive indicates the operation requires an active capsule.
	ErrCapsuleInactive = errors.New("capsule: capsule is not active")

	// ErrCapsuleActive indicates the operation requires an inactive capsule.
	ErrCapsuleActive = errors.New("capsule: capsule is still active")

	// ErrCapsuleNotExecuted indicates recreation was attempted on a capsule
	// that never executed (e.g. one that was deactivated).
	ErrCapsuleNotExecuted = errors.New("capsule: capsule has not been executed")

	// ErrUnauthorized indicates the caller is not the capsule owner or the
	// fee config authority.
	ErrUnauthorized = errors.New("capsule: unauthorized")

	// ErrInvalidPeriod indicates a non-positive inactivity period.
	ErrInvalidPeriod = errors.New("capsule: inactivity period must be positive")

	// ErrInvalidCapsuleData indicates malformed binary capsule data.
	ErrInvalidCapsuleData = errors.New("capsule: invalid capsule data")

	// ErrUnknownBeneficiary indicates a plan names a beneficiary with no
	// ledger account.
	ErrUnknownBeneficiary = errors.New("capsule: unknown beneficiary account")

	// ErrFeeConfigExists indicates the fee config was already initialized.
	ErrFeeConfigExists = errors.New("capsule: fee config already initialized")

	// ErrFeeConfigNotFound indicates the fee config has not been initialized.
	ErrFeeConfigNotFound = errors.New("capsule: fee config not initialized")
)
