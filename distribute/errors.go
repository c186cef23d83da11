package distribute

import "errors"

var (
	// ErrNoBeneficiaries indicates the plan has no beneficiary entries.
	ErrNoBeneficiaries = errors.New("distribute: no beneficiaries")

	// ErrInvalidShare indicates a beneficiary's share cannot be interpreted.
	ErrInvalidShare = errors.New("distribute: invalid share")

	// ErrOvercommitted indicates the scaled shares exceed the net amount.
	ErrOvercommitted = errors.New("distribute: plan overcommits the net amount")

	// ErrArithmeticOverflow indicates a payout product cannot be represented.
	ErrArithmeticOverflow = errors.New("distribute: arithmetic overflow")
)
