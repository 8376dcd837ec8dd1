package allocation

import (
	"fmt"
	"sort"
	"time"
)

// Allocate produces an ordered plan taking demand units from the candidate
// buckets under the given strategy. The caller pre-filters candidates to
// the requested product (and, for picking, warehouse); the engine further
// ignores buckets with nothing available.
//
// The plan either covers the full demand or the call fails with
// *InsufficientStockError. A zero or negative demand yields an empty plan.
//
// Determinism: for equal sort keys the tie is broken by ascending bucket
// ID, so identical snapshots produce identical plans regardless of the
// input ordering.
func Allocate(demand int64, candidates []StockBucket, strategy Strategy, now time.Time) (Plan, error) {
	if demand <= 0 {
		return Plan{}, nil
	}

	var passes [][]StockBucket
	switch strategy {
	case StrategyExpiryThenReceipt:
		passes = expiryThenReceiptPasses(candidates, now)
	case StrategySmallestFirst:
		passes = [][]StockBucket{smallestFirstPass(candidates)}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownStrategy, strategy)
	}

	plan := Plan{}
	remaining := demand
	for _, pass := range passes {
		for _, b := range pass {
			if remaining == 0 {
				break
			}
			take := b.Available()
			if take > remaining {
				take = remaining
			}
			plan = append(plan, Entry{BucketID: b.ID, Take: take})
			remaining -= take
		}
	}

	if remaining > 0 {
		return nil, &InsufficientStockError{
			Requested: demand,
			Allocated: demand - remaining,
			Shortfall: remaining,
		}
	}
	return plan, nil
}

// expiryThenReceiptPasses builds the two FEFO/FIFO passes. Buckets whose
// expiry is at or before now are invisible to both passes: disposing of
// expired stock is a separate workflow, not an allocation concern.
func expiryThenReceiptPasses(candidates []StockBucket, now time.Time) [][]StockBucket {
	var expiring, dated []StockBucket
	for _, b := range candidates {
		if b.Available() <= 0 {
			continue
		}
		switch {
		case b.Expiry == nil:
			dated = append(dated, b)
		case b.Expiry.After(now):
			expiring = append(expiring, b)
		}
	}

	sort.Slice(expiring, func(i, j int) bool {
		if !expiring[i].Expiry.Equal(*expiring[j].Expiry) {
			return expiring[i].Expiry.Before(*expiring[j].Expiry)
		}
		return expiring[i].ID < expiring[j].ID
	})
	sort.Slice(dated, func(i, j int) bool {
		if !dated[i].ReceivedAt.Equal(dated[j].ReceivedAt) {
			return dated[i].ReceivedAt.Before(dated[j].ReceivedAt)
		}
		return dated[i].ID < dated[j].ID
	})
	return [][]StockBucket{expiring, dated}
}

// smallestFirstPass orders every bucket with availability ascending by
// available quantity. Expiry is not consulted on this path; shipment
// composition sees exactly what the caller handed it.
func smallestFirstPass(candidates []StockBucket) []StockBucket {
	var viable []StockBucket
	for _, b := range candidates {
		if b.Available() > 0 {
			viable = append(viable, b)
		}
	}
	sort.Slice(viable, func(i, j int) bool {
		if viable[i].Available() != viable[j].Available() {
			return viable[i].Available() < viable[j].Available()
		}
		return viable[i].ID < viable[j].ID
	})
	return viable
}
