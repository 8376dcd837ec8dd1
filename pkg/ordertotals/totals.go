// Package ordertotals computes per-line and order-level monetary totals
// for purchase and sales orders.
//
// All outputs are int64 minor currency units. Every monetary quantity is
// rounded (half away from zero) at the point it is first computed; rounding
// is never deferred to a later aggregate step. Inputs are assumed
// pre-validated by the caller; nothing here can fail.
package ordertotals

import "github.com/tallykeep/tallykeep/pkg/money"

// TotalsResult aggregates an order. Total is always
// Subtotal + Tax + Shipping, each component rounded independently.
type TotalsResult struct {
	Subtotal int64 `json:"subtotal"`
	Tax      int64 `json:"tax"`
	Shipping int64 `json:"shipping"`
	Total    int64 `json:"total"`
}

// PurchaseLineInput is a raw purchase order line as entered on a draft.
// UnitPrice arrives unnormalized (form input) and is rounded here.
type PurchaseLineInput struct {
	ProductID string  `json:"product_id"`
	Quantity  int64   `json:"quantity"`
	UnitPrice float64 `json:"unit_price"`
	TaxRate   int64   `json:"tax_rate"` // percent
	Note      string  `json:"note,omitempty"`
}

// PurchaseLine is a normalized purchase order line. TaxRate is carried on
// the line but never folded into TotalPrice; purchase order tax is an
// order-level amount.
type PurchaseLine struct {
	ProductID  string `json:"product_id"`
	Quantity   int64  `json:"quantity"`
	UnitPrice  int64  `json:"unit_price"`
	TaxRate    int64  `json:"tax_rate"`
	TotalPrice int64  `json:"total_price"`
	Note       string `json:"note,omitempty"`
}

// BuildPurchaseLines normalizes draft input into priced lines.
func BuildPurchaseLines(inputs []PurchaseLineInput) []PurchaseLine {
	lines := make([]PurchaseLine, 0, len(inputs))
	for _, in := range inputs {
		unitPrice := money.RoundHalfAway(in.UnitPrice)
		lines = append(lines, PurchaseLine{
			ProductID:  in.ProductID,
			Quantity:   in.Quantity,
			UnitPrice:  unitPrice,
			TaxRate:    in.TaxRate,
			TotalPrice: money.RoundHalfAway(float64(in.Quantity) * float64(unitPrice)),
			Note:       in.Note,
		})
	}
	return lines
}

// ComputePurchaseTotals aggregates purchase lines with order-level tax and
// shipping amounts.
func ComputePurchaseTotals(lines []PurchaseLine, taxAmount, shippingCost float64) TotalsResult {
	var subtotal int64
	for _, l := range lines {
		subtotal += l.TotalPrice
	}
	tax := money.RoundHalfAway(taxAmount)
	shipping := money.RoundHalfAway(shippingCost)
	return TotalsResult{
		Subtotal: subtotal,
		Tax:      tax,
		Shipping: shipping,
		Total:    subtotal + tax + shipping,
	}
}

// SalesLineInput is a raw sales order line as entered on a draft.
type SalesLineInput struct {
	ProductID       string  `json:"product_id"`
	Quantity        int64   `json:"quantity"`
	UnitPrice       float64 `json:"unit_price"`
	TaxRate         int64   `json:"tax_rate"` // percent
	DiscountPercent float64 `json:"discount_percent"`
	Note            string  `json:"note,omitempty"`
}

// SalesLine is a normalized sales order line. Gross is the pre-discount,
// pre-tax amount that feeds the order subtotal; Net is the discounted
// amount tax applies to.
type SalesLine struct {
	ProductID       string  `json:"product_id"`
	Quantity        int64   `json:"quantity"`
	UnitPrice       int64   `json:"unit_price"`
	TaxRate         int64   `json:"tax_rate"`
	DiscountPercent float64 `json:"discount_percent"`
	Gross           int64   `json:"gross"`
	Net             int64   `json:"net"`
	TaxAmount       int64   `json:"tax_amount"`
	TotalPrice      int64   `json:"total_price"`
	Note            string  `json:"note,omitempty"`
}

// BuildSalesLines prices draft input the way order creation does: the
// line discount is applied to the net before line tax.
func BuildSalesLines(inputs []SalesLineInput) []SalesLine {
	lines := make([]SalesLine, 0, len(inputs))
	for _, in := range inputs {
		net := money.RoundHalfAway(float64(in.Quantity) * in.UnitPrice * (1 - in.DiscountPercent/100))
		lines = append(lines, buildSalesLine(in, net))
	}
	return lines
}

// BuildSalesLinesDraft prices input the way the draft-update path does:
// the discount percentage is carried on the line but NOT applied to the
// net. The divergence from BuildSalesLines is long-standing application
// behavior; both paths are pinned by tests. Do not unify without a
// migration plan for existing draft orders.
func BuildSalesLinesDraft(inputs []SalesLineInput) []SalesLine {
	lines := make([]SalesLine, 0, len(inputs))
	for _, in := range inputs {
		net := money.RoundHalfAway(float64(in.Quantity) * in.UnitPrice)
		lines = append(lines, buildSalesLine(in, net))
	}
	return lines
}

func buildSalesLine(in SalesLineInput, net int64) SalesLine {
	tax := money.RoundHalfAway(float64(net) * float64(in.TaxRate) / 100)
	return SalesLine{
		ProductID:       in.ProductID,
		Quantity:        in.Quantity,
		UnitPrice:       money.RoundHalfAway(in.UnitPrice),
		TaxRate:         in.TaxRate,
		DiscountPercent: in.DiscountPercent,
		Gross:           money.RoundHalfAway(float64(in.Quantity) * in.UnitPrice),
		Net:             net,
		TaxAmount:       tax,
		TotalPrice:      net + tax,
		Note:            in.Note,
	}
}

// ComputeSalesTotals aggregates sales lines. The subtotal is the sum of
// pre-discount gross amounts; line taxes and the order-level additional
// tax amount are rounded independently before summation.
func ComputeSalesTotals(lines []SalesLine, additionalTaxAmount, shippingCost float64) TotalsResult {
	var subtotal, lineTax int64
	for _, l := range lines {
		subtotal += l.Gross
		lineTax += l.TaxAmount
	}
	tax := lineTax + money.RoundHalfAway(additionalTaxAmount)
	shipping := money.RoundHalfAway(shippingCost)
	return TotalsResult{
		Subtotal: subtotal,
		Tax:      tax,
		Shipping: shipping,
		Total:    subtotal + tax + shipping,
	}
}
