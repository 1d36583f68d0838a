package calculator

import "github.com/eugenenazirov/plantevern/internal/units"

// Package is one container size and how many of it to buy.
type Package struct {
	Size  int `json:"size"`
	Count int `json:"count"`
}

// Result represents a summary of the packing calculation.
// TotalQuantity is in dose units (ml or g), TotalInCanonicalUnit in L or kg.
type Result struct {
	TotalQuantity        float64   `json:"totalQuantity"`
	TotalInCanonicalUnit float64   `json:"totalInLitersOrKg"`
	UnitLabel            string    `json:"unitLabel"`
	Packages             []Package `json:"packagesNeeded"`
}

// Capacity is the combined volume or mass of all recommended containers.
func (r Result) Capacity() int {
	total := 0
	for _, p := range r.Packages {
		total += p.Size * p.Count
	}
	return total
}

// TotalContainers is the number of containers to buy.
func (r Result) TotalContainers() int {
	total := 0
	for _, p := range r.Packages {
		total += p.Count
	}
	return total
}

// Packer describes the behaviour required from a container packer.
type Packer interface {
	Pack(totalQuantity float64, kind units.Kind) (Result, error)
}
