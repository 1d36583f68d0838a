package storage

import "errors"

var (
	// ErrPlotNotFound indicates the referenced plot does not exist.
	ErrPlotNotFound = errors.New("plot not found")
	// ErrTreatmentNotFound indicates the referenced treatment does not exist.
	ErrTreatmentNotFound = errors.New("treatment not found")
	// ErrInvalidArea indicates the plot area is not a finite number.
	ErrInvalidArea = errors.New("area must be a finite number")
	// ErrInvalidDose indicates the treatment dose is not a positive number.
	ErrInvalidDose = errors.New("dose must be a positive number")
	// ErrInvalidDoseUnit indicates the dose unit is neither ml nor g.
	ErrInvalidDoseUnit = errors.New("dose unit must be ml or g")
	// ErrInvalidProduct indicates the treatment product has no registration number.
	ErrInvalidProduct = errors.New("product must have a registration number")
)
