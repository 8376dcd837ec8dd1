// Package service orchestrates the pure engines against the store
// collaborators: load a snapshot, compute, persist the result. Every
// operation is synchronous and runs inside whatever transactional
// boundary the store provides; typed engine failures pass through to the
// caller unwrapped.
package service

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/tallykeep/tallykeep/pkg/allocation"
	"github.com/tallykeep/tallykeep/pkg/catalog"
	"github.com/tallykeep/tallykeep/pkg/config"
	"github.com/tallykeep/tallykeep/pkg/kit"
	"github.com/tallykeep/tallykeep/pkg/movement"
	"github.com/tallykeep/tallykeep/pkg/observability"
	"github.com/tallykeep/tallykeep/pkg/ordertotals"
	"github.com/tallykeep/tallykeep/pkg/shipment"
	"github.com/tallykeep/tallykeep/pkg/store"
)

// PickingService allocates warehouse stock for picking, expiry-first.
type PickingService struct {
	buckets   store.BucketStore
	movements *movement.Log
	obs       *observability.Provider
	profile   *config.WarehouseProfile
	clock     func() time.Time
}

// NewPickingService wires a picking service.
func NewPickingService(buckets store.BucketStore, movements *movement.Log, obs *observability.Provider, profile *config.WarehouseProfile) *PickingService {
	return &PickingService{
		buckets:   buckets,
		movements: movements,
		obs:       obs,
		profile:   profile,
		clock:     time.Now,
	}
}

// WithClock overrides the clock for testing.
func (s *PickingService) WithClock(clock func() time.Time) *PickingService {
	s.clock = clock
	return s
}

// Pick allocates quantity of a product at a warehouse and applies the
// plan. The site profile's expiry grace shifts the cutoff forward so
// stock about to expire is not handed to a picker.
func (s *PickingService) Pick(ctx context.Context, productID, warehouseID string, quantity int64, actor string) (allocation.Plan, error) {
	ctx, span := s.obs.StartSpan(ctx, "inventory.pick")
	defer span.End()
	start := s.clock()
	attrs := []attribute.KeyValue{
		attribute.String("product.id", productID),
		attribute.String("warehouse.id", warehouseID),
	}
	s.obs.RecordOperation(ctx, attrs...)

	candidates, err := s.buckets.ListAvailable(ctx, productID, warehouseID)
	if err != nil {
		s.obs.RecordError(ctx, err, attrs...)
		return nil, fmt.Errorf("failed to load bucket snapshot: %w", err)
	}

	cutoff := start.Add(time.Duration(s.profile.ExpiryGraceHours) * time.Hour)
	plan, err := allocation.Allocate(quantity, candidates, allocation.StrategyExpiryThenReceipt, cutoff)
	if err != nil {
		s.obs.RecordError(ctx, err, attrs...)
		return nil, err
	}

	if err := s.buckets.ApplyPlan(ctx, plan); err != nil {
		s.obs.RecordError(ctx, err, attrs...)
		return nil, err
	}
	s.recordPlan(plan, movement.KindAllocation, "", productID, actor)

	s.obs.RecordDuration(ctx, s.clock().Sub(start), attrs...)
	return plan, nil
}

// Release undoes a previously applied plan, e.g. when an order is
// cancelled before shipping.
func (s *PickingService) Release(ctx context.Context, productID string, plan allocation.Plan, actor string) error {
	ctx, span := s.obs.StartSpan(ctx, "inventory.release")
	defer span.End()

	if err := s.buckets.ReleasePlan(ctx, plan); err != nil {
		s.obs.RecordError(ctx, err)
		return err
	}
	for _, e := range plan {
		_, _ = s.movements.Append(movement.Movement{
			Kind:      movement.KindRelease,
			ProductID: productID,
			BucketID:  e.BucketID,
			Delta:     e.Take,
			Actor:     actor,
		})
	}
	return nil
}

func (s *PickingService) recordPlan(plan allocation.Plan, kind movement.Kind, orderID, productID, actor string) {
	for _, e := range plan {
		_, _ = s.movements.Append(movement.Movement{
			Kind:      kind,
			OrderID:   orderID,
			ProductID: productID,
			BucketID:  e.BucketID,
			Delta:     -e.Take,
			Actor:     actor,
		})
	}
}

// ShipmentService composes complete shipments for sales orders.
type ShipmentService struct {
	orders    store.OrderStore
	buckets   store.BucketStore
	movements *movement.Log
	obs       *observability.Provider
	clock     func() time.Time
}

// NewShipmentService wires a shipment service.
func NewShipmentService(orders store.OrderStore, buckets store.BucketStore, movements *movement.Log, obs *observability.Provider) *ShipmentService {
	return &ShipmentService{
		orders:    orders,
		buckets:   buckets,
		movements: movements,
		obs:       obs,
		clock:     time.Now,
	}
}

// WithClock overrides the clock for testing.
func (s *ShipmentService) WithClock(clock func() time.Time) *ShipmentService {
	s.clock = clock
	return s
}

// Ship builds and persists a complete shipment for the order, or fails
// without any partial effect.
func (s *ShipmentService) Ship(ctx context.Context, orderID, actor string) ([]shipment.Line, error) {
	ctx, span := s.obs.StartSpan(ctx, "inventory.ship")
	defer span.End()
	attrs := []attribute.KeyValue{attribute.String("order.id", orderID)}
	s.obs.RecordOperation(ctx, attrs...)

	order, err := s.orders.Get(ctx, orderID)
	if err != nil {
		s.obs.RecordError(ctx, err, attrs...)
		return nil, err
	}

	byProduct := make(map[string][]allocation.StockBucket)
	for _, line := range order.Lines {
		if line.Remaining() <= 0 {
			continue
		}
		if _, ok := byProduct[line.ProductID]; ok {
			continue
		}
		buckets, err := s.buckets.ListAvailable(ctx, line.ProductID, "")
		if err != nil {
			s.obs.RecordError(ctx, err, attrs...)
			return nil, fmt.Errorf("failed to load buckets for %s: %w", line.ProductID, err)
		}
		byProduct[line.ProductID] = buckets
	}

	lines, err := shipment.BuildLines(*order, byProduct, s.clock())
	if err != nil {
		s.obs.RecordError(ctx, err, attrs...)
		return nil, err
	}

	plan := make(allocation.Plan, 0, len(lines))
	for _, l := range lines {
		plan = append(plan, allocation.Entry{BucketID: l.BucketID, Take: l.Quantity})
	}
	if err := s.buckets.ApplyPlan(ctx, plan); err != nil {
		s.obs.RecordError(ctx, err, attrs...)
		return nil, err
	}
	if err := s.orders.SaveShipment(ctx, orderID, lines); err != nil {
		// Roll the reservation back; the shipment was never persisted.
		_ = s.buckets.ReleasePlan(ctx, plan)
		s.obs.RecordError(ctx, err, attrs...)
		return nil, err
	}

	for _, l := range lines {
		_, _ = s.movements.Append(movement.Movement{
			Kind:      movement.KindShipment,
			OrderID:   orderID,
			ProductID: l.ProductID,
			BucketID:  l.BucketID,
			Delta:     -l.Quantity,
			Actor:     actor,
		})
	}
	return lines, nil
}

// CatalogService guards and lists the category forest.
type CatalogService struct {
	categories store.CategoryStore
	obs        *observability.Provider
	marker     string
}

// NewCatalogService wires a catalog service. The profile's indent marker
// is used for display listings when set.
func NewCatalogService(categories store.CategoryStore, obs *observability.Provider, profile *config.WarehouseProfile) *CatalogService {
	marker := catalog.DefaultIndentMarker
	if profile != nil && profile.IndentMarker != "" {
		marker = profile.IndentMarker
	}
	return &CatalogService{categories: categories, obs: obs, marker: marker}
}

// Reparent moves a category under a new parent after the ancestry check.
func (s *CatalogService) Reparent(ctx context.Context, categoryID, parentID string) error {
	ctx, span := s.obs.StartSpan(ctx, "catalog.reparent")
	defer span.End()
	s.obs.RecordOperation(ctx)

	parents, err := s.categories.Parents(ctx)
	if err != nil {
		s.obs.RecordError(ctx, err)
		return fmt.Errorf("failed to load ancestry: %w", err)
	}
	if err := catalog.AssertNoCycle(categoryID, parentID, parents); err != nil {
		s.obs.RecordError(ctx, err)
		return err
	}
	return s.categories.SetParent(ctx, categoryID, parentID)
}

// DisplayList returns the linearized category hierarchy, omitting the
// excluded IDs (e.g. the category being edited).
func (s *CatalogService) DisplayList(ctx context.Context, excluded map[string]bool) ([]catalog.Node, error) {
	ctx, span := s.obs.StartSpan(ctx, "catalog.display_list")
	defer span.End()

	categories, err := s.categories.List(ctx)
	if err != nil {
		s.obs.RecordError(ctx, err)
		return nil, fmt.Errorf("failed to load categories: %w", err)
	}
	return catalog.BuildHierarchyIndent(categories, excluded, s.marker), nil
}

// KitService guards bill-of-materials edits.
type KitService struct {
	kits store.KitStore
	obs  *observability.Provider
}

// NewKitService wires a kit service.
func NewKitService(kits store.KitStore, obs *observability.Provider) *KitService {
	return &KitService{kits: kits, obs: obs}
}

// AddComponent persists a kit -> component edge after the cycle check.
func (s *KitService) AddComponent(ctx context.Context, kitID, componentID string) error {
	ctx, span := s.obs.StartSpan(ctx, "kit.add_component")
	defer span.End()
	s.obs.RecordOperation(ctx)

	edges, err := s.kits.Edges(ctx)
	if err != nil {
		s.obs.RecordError(ctx, err)
		return fmt.Errorf("failed to load kit edges: %w", err)
	}
	graph := kit.BuildGraph(nil, edges)
	if err := graph.CheckComponent(kitID, componentID); err != nil {
		s.obs.RecordError(ctx, err)
		return err
	}
	return s.kits.AddComponent(ctx, kitID, componentID)
}

// OrderService computes and persists order totals.
type OrderService struct {
	orders store.OrderStore
	obs    *observability.Provider
}

// NewOrderService wires an order service.
func NewOrderService(orders store.OrderStore, obs *observability.Provider) *OrderService {
	return &OrderService{orders: orders, obs: obs}
}

// PricePurchaseOrder builds purchase lines, aggregates and persists the
// totals.
func (s *OrderService) PricePurchaseOrder(ctx context.Context, orderID string, inputs []ordertotals.PurchaseLineInput, taxAmount, shippingCost float64) ([]ordertotals.PurchaseLine, ordertotals.TotalsResult, error) {
	ctx, span := s.obs.StartSpan(ctx, "orders.price_purchase")
	defer span.End()
	s.obs.RecordOperation(ctx, attribute.String("order.id", orderID))

	lines := ordertotals.BuildPurchaseLines(inputs)
	totals := ordertotals.ComputePurchaseTotals(lines, taxAmount, shippingCost)
	if err := s.orders.SaveTotals(ctx, orderID, totals); err != nil {
		s.obs.RecordError(ctx, err)
		return nil, ordertotals.TotalsResult{}, fmt.Errorf("failed to save totals: %w", err)
	}
	return lines, totals, nil
}

// PriceSalesOrder builds sales lines, aggregates and persists the
// totals. draft selects the draft-update pricing path, which does not
// apply line discounts.
func (s *OrderService) PriceSalesOrder(ctx context.Context, orderID string, inputs []ordertotals.SalesLineInput, additionalTaxAmount, shippingCost float64, draft bool) ([]ordertotals.SalesLine, ordertotals.TotalsResult, error) {
	ctx, span := s.obs.StartSpan(ctx, "orders.price_sales")
	defer span.End()
	s.obs.RecordOperation(ctx, attribute.String("order.id", orderID))

	var lines []ordertotals.SalesLine
	if draft {
		lines = ordertotals.BuildSalesLinesDraft(inputs)
	} else {
		lines = ordertotals.BuildSalesLines(inputs)
	}
	totals := ordertotals.ComputeSalesTotals(lines, additionalTaxAmount, shippingCost)
	if err := s.orders.SaveTotals(ctx, orderID, totals); err != nil {
		s.obs.RecordError(ctx, err)
		return nil, ordertotals.TotalsResult{}, fmt.Errorf("failed to save totals: %w", err)
	}
	return lines, totals, nil
}
