package calculator

import "errors"

var (
	// ErrInvalidQuantity is returned when the total quantity is negative or not a finite number.
	ErrInvalidQuantity = errors.New("quantity must be a finite, non-negative number")
	// ErrUnknownUnitKind is returned when the unit kind has no container catalog.
	ErrUnknownUnitKind = errors.New("unit kind has no container catalog")
)
