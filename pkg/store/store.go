// Package store persists the snapshots the engines consume and the
// writes that follow an accepted plan.
//
// The engines never touch these interfaces; services load a snapshot,
// invoke the pure computation, and hand the result back here inside
// whatever transaction the backend provides.
package store

import (
	"context"
	"errors"

	"github.com/tallykeep/tallykeep/pkg/allocation"
	"github.com/tallykeep/tallykeep/pkg/catalog"
	"github.com/tallykeep/tallykeep/pkg/kit"
	"github.com/tallykeep/tallykeep/pkg/ordertotals"
	"github.com/tallykeep/tallykeep/pkg/shipment"
)

// ErrStaleSnapshot is returned when applying a plan would violate a
// bucket's reservation invariant, meaning stock moved between snapshot
// and write. Callers re-snapshot and re-allocate.
var ErrStaleSnapshot = errors.New("store: snapshot is stale, re-allocate")

// ErrNotFound is returned for lookups of records that do not exist.
var ErrNotFound = errors.New("store: not found")

// BucketStore reads bucket snapshots and applies accepted plans.
type BucketStore interface {
	// ListAvailable returns buckets of one product, optionally narrowed
	// to one warehouse, with Available() > 0.
	ListAvailable(ctx context.Context, productID, warehouseID string) ([]allocation.StockBucket, error)

	// ApplyPlan raises Reserved per plan entry in one transaction. Fails
	// with ErrStaleSnapshot if any bucket can no longer cover its take.
	ApplyPlan(ctx context.Context, plan allocation.Plan) error

	// ReleasePlan lowers Reserved per plan entry, undoing an ApplyPlan.
	ReleasePlan(ctx context.Context, plan allocation.Plan) error
}

// OrderStore reads order snapshots and persists computed results.
type OrderStore interface {
	Get(ctx context.Context, orderID string) (*shipment.Order, error)
	SaveTotals(ctx context.Context, orderID string, totals ordertotals.TotalsResult) error
	SaveShipment(ctx context.Context, orderID string, lines []shipment.Line) error
}

// CategoryStore reads the parent-pointer forest and persists parent
// edits. Cycle checking happens in the service before SetParent.
type CategoryStore interface {
	List(ctx context.Context) ([]catalog.Category, error)
	Parents(ctx context.Context) (map[string]string, error)
	SetParent(ctx context.Context, categoryID, parentID string) error
}

// KitStore reads the bill-of-materials edges and persists component
// additions. Cycle checking happens in the service before AddComponent.
type KitStore interface {
	Edges(ctx context.Context) ([]kit.Edge, error)
	AddComponent(ctx context.Context, kitID, componentID string) error
}
