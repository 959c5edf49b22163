package feature

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidInput reports a caller contract violation: mismatched
	// dimensionality, a negative radius, weights not summing to 1, or
	// malformed identifiers.
	ErrInvalidInput = errors.New("invalid input")

	// ErrEmptyIndex marks an index built from zero items. Range queries never
	// return it; they return an empty result instead.
	ErrEmptyIndex = errors.New("empty index")

	// ErrUnknownIdentifier is returned when an identifier is not among the
	// loaded items.
	ErrUnknownIdentifier = errors.New("unknown identifier")
)

// DimensionMismatchError indicates a vector/query dimensionality mismatch.
// It unwraps to ErrInvalidInput.
type DimensionMismatchError struct {
	Expected int
	Actual   int
}

func (e *DimensionMismatchError) Error() string {
	return fmt.Sprintf("dimension mismatch: expected %d, got %d", e.Expected, e.Actual)
}

func (e *DimensionMismatchError) Unwrap() error { return ErrInvalidInput }

// UnknownIdentifierError names the identifier that could not be resolved.
type UnknownIdentifierError struct {
	ID string
}

func (e *UnknownIdentifierError) Error() string {
	return fmt.Sprintf("unknown identifier %q", e.ID)
}

func (e *UnknownIdentifierError) Unwrap() error { return ErrUnknownIdentifier }
