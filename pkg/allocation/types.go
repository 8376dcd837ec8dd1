// Package allocation decides which physical stock buckets satisfy a
// quantity demand and in what order.
//
// The engine is pure: it reads an immutable snapshot of candidate buckets
// and returns an ordered plan or a typed failure. It never mutates a
// bucket; the owning store applies the plan afterwards, under its own
// transactional discipline.
package allocation

import (
	"fmt"
	"time"

	"github.com/tallykeep/tallykeep/pkg/money"
)

// StockBucket is a countable slice of one product at one warehouse,
// optionally pinned to a shelf location and batch/serial.
type StockBucket struct {
	ID          string      `json:"id"`
	ProductID   string      `json:"product_id"`
	WarehouseID string      `json:"warehouse_id"`
	LocationID  string      `json:"location_id,omitempty"`
	Quantity    int64       `json:"quantity"`
	Reserved    int64       `json:"reserved"`
	Batch       string      `json:"batch,omitempty"`
	Serial      string      `json:"serial,omitempty"`
	Expiry      *time.Time  `json:"expiry,omitempty"`
	ReceivedAt  time.Time   `json:"received_at"`
	UnitCost    money.Money `json:"unit_cost"`
}

// Available returns the quantity not held for other orders. It is always
// derived, never stored.
func (b StockBucket) Available() int64 {
	return b.Quantity - b.Reserved
}

// Validate checks the reservation invariant 0 <= Reserved <= Quantity.
func (b StockBucket) Validate() error {
	if b.Reserved < 0 {
		return fmt.Errorf("bucket %s: negative reserved quantity %d", b.ID, b.Reserved)
	}
	if b.Reserved > b.Quantity {
		return fmt.Errorf("bucket %s: reserved %d exceeds quantity %d", b.ID, b.Reserved, b.Quantity)
	}
	return nil
}

// Entry records one take from one bucket.
type Entry struct {
	BucketID string `json:"bucket_id"`
	Take     int64  `json:"take"`
}

// Plan is the ordered sequence of takes that satisfies a demand. The sum
// of Take across entries always equals the requested demand; a plan that
// would fall short is never returned.
type Plan []Entry

// Total returns the summed take across all entries.
func (p Plan) Total() int64 {
	var total int64
	for _, e := range p {
		total += e.Take
	}
	return total
}

// Strategy selects the bucket consumption order.
type Strategy string

const (
	// StrategyExpiryThenReceipt consumes earliest-expiring stock first
	// (FEFO), then oldest-received stock with no expiry (FIFO). Used for
	// warehouse picking.
	StrategyExpiryThenReceipt Strategy = "EXPIRY_THEN_RECEIPT"

	// StrategySmallestFirst consumes the smallest viable bucket first, to
	// minimize leftover fragments. Used for shipment-line composition.
	StrategySmallestFirst Strategy = "SMALLEST_FIRST"
)
