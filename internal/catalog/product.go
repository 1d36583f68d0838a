// Package catalog holds the reference data for crop-protection products: the
// product model, the providers that fetch the approved list and the dose
// suggestions offered when a product is picked for a treatment.
package catalog

import (
	"strings"

	"github.com/eugenenazirov/plantevern/internal/units"
)

// approvedStatuses are compared against the lower-cased registry status.
var approvedStatuses = map[string]struct{}{
	"godkjent":                     {},
	"godkjent, fare for utfasing": {},
}

// ActiveSubstance is one active ingredient and its concentration.
type ActiveSubstance struct {
	Name   string  `json:"virkestoff"`
	Amount float64 `json:"mengde"`
	Unit   string  `json:"enhet"`
}

// Product mirrors a record of the approved products registry.
type Product struct {
	Name             string            `json:"navn"`
	RegNr            string            `json:"reg_nr"`
	Status           string            `json:"status"`
	Group            string            `json:"preparatgruppe"`
	Formulation      string            `json:"formulering"`
	TaxClass         *string           `json:"avgiftsklasse"`
	StatusNote       *string           `json:"merknad_til_status"`
	ExpiredAt        *string           `json:"utgatt_dato"`
	ActiveSubstances []ActiveSubstance `json:"innhold_av_virkestoff"`
}

// UnitKind reports whether the product is dosed by volume or by mass.
func (p Product) UnitKind() units.Kind {
	return units.KindForFormulation(p.Formulation)
}

// Approved reports whether the product status is one of the accepted statuses.
func (p Product) Approved() bool {
	_, ok := approvedStatuses[strings.ToLower(p.Status)]
	return ok
}

// FilterApproved returns the approved products, preserving order.
func FilterApproved(products []Product) []Product {
	out := make([]Product, 0, len(products))
	for _, p := range products {
		if p.Approved() {
			out = append(out, p)
		}
	}
	return out
}

// Search returns products whose name contains query, ignoring case.
// An empty query matches nothing.
func Search(products []Product, query string) []Product {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return []Product{}
	}
	out := make([]Product, 0)
	for _, p := range products {
		if strings.Contains(strings.ToLower(p.Name), query) {
			out = append(out, p)
		}
	}
	return out
}
