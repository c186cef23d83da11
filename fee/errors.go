package fee

import "errors"

var (
	// ErrInvalidFeeConfig indicates fee parameters are out of range.
	ErrInvalidFeeConfig = errors.New("fee: invalid fee config")

	// ErrInvalidFeeConfigData indicates the stored config record is malformed.
	ErrInvalidFeeConfigData = errors.New("fee: invalid fee config data")

	// ErrArithmeticOverflow indicates a fee product cannot be represented.
	ErrArithmeticOverflow = errors.New("fee: arithmetic overflow")
)
