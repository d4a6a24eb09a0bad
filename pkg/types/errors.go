package types

import "errors"

// Entity validation errors.
var (
	ErrInvalidStatus = errors.New("invalid task status")
	ErrInvalidName   = errors.New("invalid name")
	ErrInvalidID     = errors.New("invalid id")
)
