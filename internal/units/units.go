// Package units defines the two measurement domains the planner works in and
// the container catalogs products are sold in.
package units

import "strings"

// SmallPerCanonical is the factor between dose units and reporting units
// (ml per L, g per kg).
const SmallPerCanonical = 1000

// Kind classifies a product as liquid or solid.
type Kind int

const (
	Liquid Kind = iota
	Solid
)

// DoseUnit is the per-area dose unit entered for a treatment.
type DoseUnit string

const (
	Milliliters DoseUnit = "ml"
	Grams       DoseUnit = "g"
)

var (
	liquidContainerSizes = []int{1, 5, 10, 20}
	solidContainerSizes  = []int{1, 5, 10, 25}
)

func (k Kind) String() string {
	switch k {
	case Liquid:
		return "liquid"
	case Solid:
		return "solid"
	default:
		return "unknown"
	}
}

// Valid reports whether k is one of the known kinds.
func (k Kind) Valid() bool {
	return k == Liquid || k == Solid
}

// Label is the canonical unit label totals are reported in.
func (k Kind) Label() string {
	if k == Solid {
		return "kg"
	}
	return "Liter"
}

// DoseUnit returns the dose unit matching the kind.
func (k Kind) DoseUnit() DoseUnit {
	if k == Solid {
		return Grams
	}
	return Milliliters
}

// ContainerSizes returns a copy of the ascending container catalog for the kind.
func (k Kind) ContainerSizes() []int {
	src := liquidContainerSizes
	if k == Solid {
		src = solidContainerSizes
	}
	out := make([]int, len(src))
	copy(out, src)
	return out
}

// Valid reports whether u is a supported dose unit.
func (u DoseUnit) Valid() bool {
	return u == Milliliters || u == Grams
}

// Kind maps the dose unit to its measurement domain. Anything that is not
// grams is treated as a volume.
func (u DoseUnit) Kind() Kind {
	if u == Grams {
		return Solid
	}
	return Liquid
}

// ParseDoseUnit accepts "ml" or "g" in any case.
func ParseDoseUnit(raw string) (DoseUnit, bool) {
	u := DoseUnit(strings.ToLower(strings.TrimSpace(raw)))
	return u, u.Valid()
}

// KindForFormulation derives the unit kind from a product formulation.
// Granulates are weighed, everything else is measured by volume.
func KindForFormulation(formulation string) Kind {
	if strings.Contains(strings.ToLower(formulation), "granulat") {
		return Solid
	}
	return Liquid
}
