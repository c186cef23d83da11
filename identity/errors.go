package identity

import "errors"

var (
	// ErrInvalidAddress indicates the address string cannot be decoded.
	ErrInvalidAddress = errors.New("identity: invalid address")
)
