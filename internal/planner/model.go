// Package planner turns plots and their treatments into a consolidated
// shopping list: one entry per product with the total quantity needed and the
// containers to buy.
package planner

import (
	"github.com/eugenenazirov/plantevern/internal/calculator"
	"github.com/eugenenazirov/plantevern/internal/catalog"
	"github.com/eugenenazirov/plantevern/internal/units"
)

// Plot is a cultivated area. Area is in decares; plots with area <= 0 are
// kept but contribute nothing until they are sized.
type Plot struct {
	ID   string  `json:"id"`
	Name string  `json:"name"`
	Area float64 `json:"area"`
}

// Treatment applies a product to a plot at a dose per decare.
type Treatment struct {
	ID       string          `json:"id"`
	PlotID   string          `json:"cropId"`
	Product  catalog.Product `json:"pesticide"`
	Dose     float64         `json:"dose"`
	DoseUnit units.DoseUnit  `json:"doseUnit"`
}

// Contribution is one plot's share of a product total.
type Contribution struct {
	PlotName string         `json:"cropName"`
	Area     float64        `json:"area"`
	Dose     float64        `json:"dose"`
	DoseUnit units.DoseUnit `json:"doseUnit"`
}

// Quantity returns area × dose in dose units.
func (c Contribution) Quantity() float64 {
	return c.Area * c.Dose
}

// ProductTotal is the summed requirement for one product.
type ProductTotal struct {
	Product       catalog.Product `json:"pesticide"`
	TotalQuantity float64         `json:"totalQuantity"`
	DoseUnit      units.DoseUnit  `json:"doseUnit"`
	Breakdown     []Contribution  `json:"breakdown"`
}

// ShoppingListItem is one line of the purchase list.
type ShoppingListItem struct {
	Product   catalog.Product   `json:"pesticide"`
	Results   calculator.Result `json:"results"`
	Breakdown []Contribution    `json:"breakdown"`
}
