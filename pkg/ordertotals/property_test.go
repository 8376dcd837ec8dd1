//go:build property
// +build property

// Property-based tests for totals aggregation identities.
package ordertotals_test

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/tallykeep/tallykeep/pkg/ordertotals"
)

func salesInputs(prices []float64, quantities []int64) []ordertotals.SalesLineInput {
	n := len(prices)
	if len(quantities) < n {
		n = len(quantities)
	}
	inputs := make([]ordertotals.SalesLineInput, 0, n)
	for i := 0; i < n; i++ {
		inputs = append(inputs, ordertotals.SalesLineInput{
			ProductID:       "p",
			Quantity:        quantities[i],
			UnitPrice:       prices[i],
			TaxRate:         int64(i % 30),
			DiscountPercent: float64(i % 50),
		})
	}
	return inputs
}

func TestTotalsIdentities(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("total is always subtotal + tax + shipping", prop.ForAll(
		func(prices []float64, quantities []int64, extraTax, shipping float64) bool {
			lines := ordertotals.BuildSalesLines(salesInputs(prices, quantities))
			r := ordertotals.ComputeSalesTotals(lines, extraTax, shipping)
			return r.Total == r.Subtotal+r.Tax+r.Shipping
		},
		gen.SliceOf(gen.Float64Range(0, 100000)),
		gen.SliceOf(gen.Int64Range(0, 1000)),
		gen.Float64Range(0, 10000),
		gen.Float64Range(0, 10000),
	))

	properties.Property("draft net never undercuts the discounted net", prop.ForAll(
		func(prices []float64, quantities []int64) bool {
			inputs := salesInputs(prices, quantities)
			created := ordertotals.BuildSalesLines(inputs)
			draft := ordertotals.BuildSalesLinesDraft(inputs)
			for i := range created {
				if draft[i].Net < created[i].Net {
					return false
				}
				if draft[i].Gross != created[i].Gross {
					return false
				}
			}
			return true
		},
		gen.SliceOf(gen.Float64Range(0, 100000)),
		gen.SliceOf(gen.Int64Range(0, 1000)),
	))

	properties.TestingRun(t)
}
