package catalog

import "github.com/eugenenazirov/plantevern/internal/units"

// Category is the closed set of product groups with dose suggestions.
type Category int

const (
	CategoryOther Category = iota
	CategoryHerbicide
	CategoryFungicide
	CategoryInsecticide
	CategoryGrowthRegulator
	CategorySeedTreatment
)

// Suggestion is a recommended dose range per decare.
type Suggestion struct {
	Min  float64        `json:"min"`
	Max  float64        `json:"max"`
	Unit units.DoseUnit `json:"unit"`
}

var categoryByGroup = map[string]Category{
	"Ugrasmidler":             CategoryHerbicide,
	"Soppmidler":              CategoryFungicide,
	"Insektmidler":            CategoryInsecticide,
	"Vekstregulerende midler": CategoryGrowthRegulator,
	"Beisemidler":             CategorySeedTreatment,
	"Annet":                   CategoryOther,
}

var suggestions = map[Category]Suggestion{
	CategoryHerbicide:       {Min: 100, Max: 300, Unit: units.Milliliters},
	CategoryFungicide:       {Min: 50, Max: 150, Unit: units.Milliliters},
	CategoryInsecticide:     {Min: 20, Max: 80, Unit: units.Milliliters},
	CategoryGrowthRegulator: {Min: 50, Max: 200, Unit: units.Milliliters},
	CategorySeedTreatment:   {Min: 100, Max: 400, Unit: units.Milliliters},
	CategoryOther:           {Min: 50, Max: 200, Unit: units.Milliliters},
}

// ParseCategory maps a registry product group to its category. Unknown
// groups fall back to CategoryOther.
func ParseCategory(group string) Category {
	if c, ok := categoryByGroup[group]; ok {
		return c
	}
	return CategoryOther
}

func (c Category) String() string {
	switch c {
	case CategoryHerbicide:
		return "Ugrasmidler"
	case CategoryFungicide:
		return "Soppmidler"
	case CategoryInsecticide:
		return "Insektmidler"
	case CategoryGrowthRegulator:
		return "Vekstregulerende midler"
	case CategorySeedTreatment:
		return "Beisemidler"
	default:
		return "Annet"
	}
}

// Suggestion returns the dose range for the category.
func (c Category) Suggestion() Suggestion {
	if s, ok := suggestions[c]; ok {
		return s
	}
	return suggestions[CategoryOther]
}

// SuggestionFor returns the dose range for the product's group.
func SuggestionFor(p Product) Suggestion {
	return ParseCategory(p.Group).Suggestion()
}

// DefaultDose is the dose prefilled for a new treatment: the lower end of the
// suggested range, in the unit implied by the product formulation.
func DefaultDose(p Product) (float64, units.DoseUnit) {
	return SuggestionFor(p).Min, p.UnitKind().DoseUnit()
}
