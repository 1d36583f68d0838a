package calculator

import (
	"math"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/eugenenazirov/plantevern/internal/units"
)

// remainderPrecision is the number of significant digits kept after each
// modulo step, enough to absorb binary floating point drift.
const remainderPrecision = 10

type greedyPacker struct{}

// New creates a Packer that fills the largest containers first and rounds the
// final remainder up to one container of a sufficient size.
func New() Packer {
	return &greedyPacker{}
}

func (p *greedyPacker) Pack(totalQuantity float64, kind units.Kind) (Result, error) {
	if math.IsNaN(totalQuantity) || math.IsInf(totalQuantity, 0) || totalQuantity < 0 {
		return Result{}, ErrInvalidQuantity
	}
	if !kind.Valid() {
		return Result{}, ErrUnknownUnitKind
	}

	total := totalQuantity / units.SmallPerCanonical
	sizes := kind.ContainerSizes()

	packages := make([]Package, 0, len(sizes))
	remaining := total
	for i := len(sizes) - 1; i >= 0; i-- {
		size := float64(sizes[i])
		count := int(math.Floor(remaining / size))
		if count > 0 {
			packages = append(packages, Package{Size: sizes[i], Count: count})
			remaining = roundSignificant(math.Mod(remaining, size), remainderPrecision)
		}
	}

	if remaining > 0 {
		packages = coverRemainder(packages, sizes, remaining)
	}

	sort.Slice(packages, func(i, j int) bool {
		return packages[i].Size > packages[j].Size
	})

	return Result{
		TotalQuantity:        totalQuantity,
		TotalInCanonicalUnit: total,
		UnitLabel:            kind.Label(),
		Packages:             packages,
	}, nil
}

// coverRemainder adds one container of the first size (ascending) that holds
// the remainder. If none does, the largest size is inflated instead.
func coverRemainder(packages []Package, sizes []int, remaining float64) []Package {
	for _, size := range sizes {
		if float64(size) >= remaining {
			return addPackages(packages, size, 1)
		}
	}

	largest := sizes[len(sizes)-1]
	count := int(math.Ceil(remaining / float64(largest)))
	return addPackages(packages, largest, count)
}

func addPackages(packages []Package, size, count int) []Package {
	for i := range packages {
		if packages[i].Size == size {
			packages[i].Count += count
			return packages
		}
	}
	return append(packages, Package{Size: size, Count: count})
}

// roundSignificant rounds v to the given number of significant decimal digits.
func roundSignificant(v float64, digits int32) float64 {
	if v == 0 || math.IsNaN(v) || math.IsInf(v, 0) {
		return v
	}
	exponent := int32(math.Floor(math.Log10(math.Abs(v))))
	return decimal.NewFromFloat(v).Round(digits - 1 - exponent).InexactFloat64()
}
