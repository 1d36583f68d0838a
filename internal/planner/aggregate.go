package planner

// Totals holds product totals keyed by registration number in the order the
// products were first seen.
type Totals struct {
	order []string
	byKey map[string]*ProductTotal
}

// Len returns the number of products.
func (t *Totals) Len() int {
	return len(t.order)
}

// Keys returns the registration numbers in first-seen order.
func (t *Totals) Keys() []string {
	out := make([]string, len(t.order))
	copy(out, t.order)
	return out
}

// Get returns the total for a registration number.
func (t *Totals) Get(regNr string) (ProductTotal, bool) {
	total, ok := t.byKey[regNr]
	if !ok {
		return ProductTotal{}, false
	}
	return cloneTotal(*total), true
}

// All returns the totals in first-seen order.
func (t *Totals) All() []ProductTotal {
	out := make([]ProductTotal, 0, len(t.order))
	for _, key := range t.order {
		out = append(out, cloneTotal(*t.byKey[key]))
	}
	return out
}

// Aggregate sums area × dose per product over all treatments whose plot
// exists and has a positive area. Treatments are visited in the given order,
// which fixes both the product order and the breakdown order.
func Aggregate(plots []Plot, treatments []Treatment) *Totals {
	plotByID := make(map[string]Plot, len(plots))
	for _, p := range plots {
		plotByID[p.ID] = p
	}

	totals := &Totals{byKey: make(map[string]*ProductTotal)}
	for _, tr := range treatments {
		plot, ok := plotByID[tr.PlotID]
		if !ok || plot.Area <= 0 {
			continue
		}

		contribution := Contribution{
			PlotName: plot.Name,
			Area:     plot.Area,
			Dose:     tr.Dose,
			DoseUnit: tr.DoseUnit,
		}

		key := tr.Product.RegNr
		total, exists := totals.byKey[key]
		if !exists {
			total = &ProductTotal{Product: tr.Product, DoseUnit: tr.DoseUnit}
			totals.byKey[key] = total
			totals.order = append(totals.order, key)
		}
		total.TotalQuantity += contribution.Quantity()
		total.Breakdown = append(total.Breakdown, contribution)
	}

	return totals
}

func cloneTotal(t ProductTotal) ProductTotal {
	breakdown := make([]Contribution, len(t.Breakdown))
	copy(breakdown, t.Breakdown)
	t.Breakdown = breakdown
	return t
}
