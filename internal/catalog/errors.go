package catalog

import "errors"

var (
	// ErrProviderUnavailable is returned when the product list could not be fetched.
	ErrProviderUnavailable = errors.New("product provider unavailable")
	// ErrProductNotFound is returned when no approved product has the requested registration number.
	ErrProductNotFound = errors.New("product not found")
)
