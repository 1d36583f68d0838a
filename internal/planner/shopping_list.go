package planner

import (
	"fmt"

	"github.com/eugenenazirov/plantevern/internal/calculator"
)

// BuildShoppingList aggregates the treatments and packs each product total
// into containers. The unit kind of each item follows the dose unit of the
// first treatment recorded for the product.
func BuildShoppingList(plots []Plot, treatments []Treatment, packer calculator.Packer) ([]ShoppingListItem, error) {
	totals := Aggregate(plots, treatments)

	items := make([]ShoppingListItem, 0, totals.Len())
	for _, total := range totals.All() {
		result, err := packer.Pack(total.TotalQuantity, total.DoseUnit.Kind())
		if err != nil {
			return nil, fmt.Errorf("pack %s (%s): %w", total.Product.Name, total.Product.RegNr, err)
		}
		items = append(items, ShoppingListItem{
			Product:   total.Product,
			Results:   result,
			Breakdown: total.Breakdown,
		})
	}
	return items, nil
}
