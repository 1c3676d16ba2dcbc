package core

import "errors"

var (
	// ErrInvalidInput marks a precondition violation. It is deterministic: retrying the same input fails the same way.
	ErrInvalidInput = errors.New("invalid input")

	// ErrNoTierMatch marks a fee schedule authoring defect: no tier covers the bid.
	ErrNoTierMatch = errors.New("no fee tier matches bid")
)
