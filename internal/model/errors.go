package model

import "errors"

// Client errors. Anything else reaching a caller is an internal error.
var (
	ErrInvalidRequest = errors.New("invalid request")
	ErrBatchTooLarge  = errors.New("batch too large")
)
