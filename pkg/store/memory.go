package store

import (
	"context"
	"fmt"
	"sync"

	"github.com/tallykeep/tallykeep/pkg/allocation"
	"github.com/tallykeep/tallykeep/pkg/catalog"
	"github.com/tallykeep/tallykeep/pkg/kit"
	"github.com/tallykeep/tallykeep/pkg/ordertotals"
	"github.com/tallykeep/tallykeep/pkg/shipment"
)

// Memory is an in-process store implementing every store interface.
// Used by services in tests and by single-node tooling.
type Memory struct {
	mu         sync.RWMutex
	buckets    map[string]allocation.StockBucket
	orders     map[string]shipment.Order
	totals     map[string]ordertotals.TotalsResult
	shipments  map[string][]shipment.Line
	categories map[string]catalog.Category
	catOrder   []string
	kitEdges   []kit.Edge
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		buckets:    make(map[string]allocation.StockBucket),
		orders:     make(map[string]shipment.Order),
		totals:     make(map[string]ordertotals.TotalsResult),
		shipments:  make(map[string][]shipment.Line),
		categories: make(map[string]catalog.Category),
	}
}

// PutBucket seeds or replaces a bucket.
func (m *Memory) PutBucket(b allocation.StockBucket) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.buckets[b.ID] = b
}

// Bucket returns a bucket by ID.
func (m *Memory) Bucket(id string) (allocation.StockBucket, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	b, ok := m.buckets[id]
	return b, ok
}

func (m *Memory) ListAvailable(_ context.Context, productID, warehouseID string) ([]allocation.StockBucket, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []allocation.StockBucket
	for _, b := range m.buckets {
		if b.ProductID != productID {
			continue
		}
		if warehouseID != "" && b.WarehouseID != warehouseID {
			continue
		}
		if b.Available() > 0 {
			out = append(out, b)
		}
	}
	return out, nil
}

func (m *Memory) ApplyPlan(_ context.Context, plan allocation.Plan) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	// A plan may take from the same bucket more than once; validate the
	// summed take per bucket, not each entry in isolation.
	takes := make(map[string]int64, len(plan))
	for _, e := range plan {
		takes[e.BucketID] += e.Take
	}
	for id, take := range takes {
		b, ok := m.buckets[id]
		if !ok {
			return fmt.Errorf("bucket %s: %w", id, ErrNotFound)
		}
		if b.Reserved+take > b.Quantity {
			return fmt.Errorf("bucket %s: %w", id, ErrStaleSnapshot)
		}
	}
	for id, take := range takes {
		b := m.buckets[id]
		b.Reserved += take
		m.buckets[id] = b
	}
	return nil
}

func (m *Memory) ReleasePlan(_ context.Context, plan allocation.Plan) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	takes := make(map[string]int64, len(plan))
	for _, e := range plan {
		takes[e.BucketID] += e.Take
	}
	for id, take := range takes {
		b, ok := m.buckets[id]
		if !ok {
			return fmt.Errorf("bucket %s: %w", id, ErrNotFound)
		}
		if b.Reserved < take {
			return fmt.Errorf("bucket %s: release exceeds reserved", id)
		}
	}
	for id, take := range takes {
		b := m.buckets[id]
		b.Reserved -= take
		m.buckets[id] = b
	}
	return nil
}

// PutOrder seeds or replaces an order.
func (m *Memory) PutOrder(o shipment.Order) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.orders[o.ID] = o
}

func (m *Memory) Get(_ context.Context, orderID string) (*shipment.Order, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	o, ok := m.orders[orderID]
	if !ok {
		return nil, fmt.Errorf("order %s: %w", orderID, ErrNotFound)
	}
	return &o, nil
}

func (m *Memory) SaveTotals(_ context.Context, orderID string, totals ordertotals.TotalsResult) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.totals[orderID] = totals
	return nil
}

// Totals returns the last saved totals for an order.
func (m *Memory) Totals(orderID string) (ordertotals.TotalsResult, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.totals[orderID]
	return t, ok
}

func (m *Memory) SaveShipment(_ context.Context, orderID string, lines []shipment.Line) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.shipments[orderID] = append([]shipment.Line(nil), lines...)
	return nil
}

// Shipment returns the last saved shipment lines for an order.
func (m *Memory) Shipment(orderID string) []shipment.Line {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.shipments[orderID]
}

// PutCategory seeds or replaces a category.
func (m *Memory) PutCategory(c catalog.Category) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.categories[c.ID]; !ok {
		m.catOrder = append(m.catOrder, c.ID)
	}
	m.categories[c.ID] = c
}

func (m *Memory) List(_ context.Context) ([]catalog.Category, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]catalog.Category, 0, len(m.catOrder))
	for _, id := range m.catOrder {
		out = append(out, m.categories[id])
	}
	return out, nil
}

func (m *Memory) Parents(_ context.Context) (map[string]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	parents := make(map[string]string, len(m.categories))
	for id, c := range m.categories {
		parents[id] = c.ParentID
	}
	return parents, nil
}

func (m *Memory) SetParent(_ context.Context, categoryID, parentID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.categories[categoryID]
	if !ok {
		return fmt.Errorf("category %s: %w", categoryID, ErrNotFound)
	}
	c.ParentID = parentID
	m.categories[categoryID] = c
	return nil
}

func (m *Memory) Edges(_ context.Context) ([]kit.Edge, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]kit.Edge(nil), m.kitEdges...), nil
}

func (m *Memory) AddComponent(_ context.Context, kitID, componentID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.kitEdges = append(m.kitEdges, kit.Edge{KitID: kitID, ComponentID: componentID})
	return nil
}
