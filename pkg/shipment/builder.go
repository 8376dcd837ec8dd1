// Package shipment composes allocation plans across every outstanding
// line of an order into a complete shipment.
//
// The build is full-or-nothing: if any line cannot be fully covered the
// whole call fails and no partial shipment is ever returned. This is what
// distinguishes it from a generic partial-picking workflow.
package shipment

import (
	"errors"
	"fmt"
	"time"

	"github.com/tallykeep/tallykeep/pkg/allocation"
)

// OrderLine is the slice of an order the builder needs: how much was
// ordered and how much already went out.
type OrderLine struct {
	ProductID string `json:"product_id"`
	Quantity  int64  `json:"quantity"`
	Shipped   int64  `json:"shipped"`
}

// Remaining returns the quantity still to ship.
func (l OrderLine) Remaining() int64 {
	return l.Quantity - l.Shipped
}

// Order is the order snapshot handed in by the caller.
type Order struct {
	ID    string      `json:"id"`
	Lines []OrderLine `json:"lines"`
}

// Line is one composed shipment line: a take of one product from one
// bucket.
type Line struct {
	ProductID string `json:"product_id"`
	BucketID  string `json:"bucket_id"`
	Quantity  int64  `json:"quantity"`
}

// ErrNothingToShip is returned when no order line has outstanding
// quantity. An empty shipment is a distinct condition, not a success.
var ErrNothingToShip = errors.New("shipment: no outstanding lines to ship")

// UnshippableLineError identifies the first line whose remaining demand
// could not be covered by its product's buckets.
type UnshippableLineError struct {
	ProductID string
	Requested int64
	Allocated int64
}

func (e *UnshippableLineError) Error() string {
	return fmt.Sprintf("product %s cannot be shipped in full: need %d, allocatable %d",
		e.ProductID, e.Requested, e.Allocated)
}

// BuildLines allocates every outstanding order line smallest-bucket-first
// from that product's candidate buckets. Buckets already consumed by an
// earlier line of the same product are drawn down before the next line
// allocates, so one snapshot is never double-spent within a build.
func BuildLines(order Order, bucketsByProduct map[string][]allocation.StockBucket, now time.Time) ([]Line, error) {
	consumed := map[string]int64{} // bucket ID -> taken by earlier lines

	var lines []Line
	for _, ol := range order.Lines {
		remaining := ol.Remaining()
		if remaining <= 0 {
			continue
		}

		candidates := make([]allocation.StockBucket, 0, len(bucketsByProduct[ol.ProductID]))
		for _, b := range bucketsByProduct[ol.ProductID] {
			b.Reserved += consumed[b.ID]
			candidates = append(candidates, b)
		}

		plan, err := allocation.Allocate(remaining, candidates, allocation.StrategySmallestFirst, now)
		if err != nil {
			var insufficient *allocation.InsufficientStockError
			if errors.As(err, &insufficient) {
				return nil, &UnshippableLineError{
					ProductID: ol.ProductID,
					Requested: insufficient.Requested,
					Allocated: insufficient.Allocated,
				}
			}
			return nil, err
		}
		for _, e := range plan {
			consumed[e.BucketID] += e.Take
			lines = append(lines, Line{ProductID: ol.ProductID, BucketID: e.BucketID, Quantity: e.Take})
		}
	}

	if len(lines) == 0 {
		return nil, ErrNothingToShip
	}
	return lines, nil
}
