package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/eugenenazirov/plantevern/internal/units"
)

func TestFilterApproved(t *testing.T) {
	products := []Product{
		{Name: "A", RegNr: "1", Status: "Godkjent"},
		{Name: "B", RegNr: "2", Status: "GODKJENT, FARE FOR UTFASING"},
		{Name: "C", RegNr: "3", Status: "Utgått"},
		{Name: "D", RegNr: "4", Status: ""},
		{Name: "E", RegNr: "5", Status: "godkjent "},
	}

	got := FilterApproved(products)

	var names []string
	for _, p := range got {
		names = append(names, p.Name)
	}
	assert.Equal(t, []string{"A", "B"}, names, "only exact accepted statuses pass")
}

func TestSearch(t *testing.T) {
	products := []Product{
		{Name: "Roundup Max", RegNr: "2010.5"},
		{Name: "Ariane S", RegNr: "2017.3"},
		{Name: "Karate 5 CS", RegNr: "2007.4"},
	}

	assert.Len(t, Search(products, "round"), 1)
	assert.Len(t, Search(products, "A"), 2, "case-insensitive substring on name")
	assert.Empty(t, Search(products, "   "))
	assert.Empty(t, Search(products, "2010"), "registration numbers are not searched")
}

func TestProductUnitKind(t *testing.T) {
	assert.Equal(t, units.Solid, Product{Formulation: "Vannløselig granulat"}.UnitKind())
	assert.Equal(t, units.Liquid, Product{Formulation: "Suspoemulsjon"}.UnitKind())
}
