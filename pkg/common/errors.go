package common

import "errors"

var (
	// ErrInvalidInput is returned when a caller passes an empty opinion set or
	// parameters outside their valid range.
	ErrInvalidInput = errors.New("invalid input")

	// ErrNotFound is returned when an opinion does not exist.
	ErrNotFound = errors.New("not found")
)
