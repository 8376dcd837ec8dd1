package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

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

func testProvider(t *testing.T) *observability.Provider {
	t.Helper()
	p, err := observability.New(context.Background(), &observability.Config{Enabled: false})
	require.NoError(t, err)
	return p
}

func testProfile() *config.WarehouseProfile {
	return &config.WarehouseProfile{Name: "Test", Code: "TST", Currency: "USD"}
}

func expiryAt(t time.Time) *time.Time { return &t }

func TestPickingServicePicksExpiryFirst(t *testing.T) {
	mem := store.NewMemory()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	mem.PutBucket(allocation.StockBucket{
		ID: "b-late", ProductID: "p1", WarehouseID: "w1", Quantity: 10,
		Expiry: expiryAt(now.Add(72 * time.Hour)), ReceivedAt: now.Add(-time.Hour),
	})
	mem.PutBucket(allocation.StockBucket{
		ID: "b-soon", ProductID: "p1", WarehouseID: "w1", Quantity: 10,
		Expiry: expiryAt(now.Add(24 * time.Hour)), ReceivedAt: now.Add(-2 * time.Hour),
	})

	svc := NewPickingService(mem, movement.NewLog(), testProvider(t), testProfile()).
		WithClock(func() time.Time { return now })

	plan, err := svc.Pick(context.Background(), "p1", "w1", 12, "tester")
	require.NoError(t, err)
	require.Len(t, plan, 2)
	assert.Equal(t, "b-soon", plan[0].BucketID)
	assert.Equal(t, int64(10), plan[0].Take)
	assert.Equal(t, "b-late", plan[1].BucketID)
	assert.Equal(t, int64(2), plan[1].Take)

	soon, _ := mem.Bucket("b-soon")
	assert.Equal(t, int64(10), soon.Reserved)
	late, _ := mem.Bucket("b-late")
	assert.Equal(t, int64(2), late.Reserved)
}

func TestPickingServiceGraceExcludesNearExpiry(t *testing.T) {
	mem := store.NewMemory()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	mem.PutBucket(allocation.StockBucket{
		ID: "b-near", ProductID: "p1", WarehouseID: "w1", Quantity: 5,
		Expiry: expiryAt(now.Add(12 * time.Hour)),
	})
	mem.PutBucket(allocation.StockBucket{
		ID: "b-fresh", ProductID: "p1", WarehouseID: "w1", Quantity: 5,
		Expiry: expiryAt(now.Add(96 * time.Hour)),
	})

	profile := testProfile()
	profile.ExpiryGraceHours = 48
	svc := NewPickingService(mem, movement.NewLog(), testProvider(t), profile).
		WithClock(func() time.Time { return now })

	plan, err := svc.Pick(context.Background(), "p1", "w1", 5, "tester")
	require.NoError(t, err)
	require.Len(t, plan, 1)
	assert.Equal(t, "b-fresh", plan[0].BucketID)
}

func TestPickingServiceRecordsMovements(t *testing.T) {
	mem := store.NewMemory()
	mem.PutBucket(allocation.StockBucket{ID: "b1", ProductID: "p1", WarehouseID: "w1", Quantity: 8})

	log := movement.NewLog()
	svc := NewPickingService(mem, log, testProvider(t), testProfile())

	plan, err := svc.Pick(context.Background(), "p1", "w1", 3, "tester")
	require.NoError(t, err)
	require.NoError(t, svc.Release(context.Background(), "p1", plan, "tester"))

	entries := log.Entries()
	require.Len(t, entries, 2)
	assert.Equal(t, movement.KindAllocation, entries[0].Kind)
	assert.Equal(t, int64(-3), entries[0].Delta)
	assert.Equal(t, movement.KindRelease, entries[1].Kind)
	assert.Equal(t, int64(3), entries[1].Delta)
	require.NoError(t, log.Verify())

	b, _ := mem.Bucket("b1")
	assert.Equal(t, int64(0), b.Reserved)
}

func TestPickingServiceInsufficientStock(t *testing.T) {
	mem := store.NewMemory()
	mem.PutBucket(allocation.StockBucket{ID: "b1", ProductID: "p1", WarehouseID: "w1", Quantity: 2})

	svc := NewPickingService(mem, movement.NewLog(), testProvider(t), testProfile())

	_, err := svc.Pick(context.Background(), "p1", "w1", 5, "tester")
	var insufficient *allocation.InsufficientStockError
	require.ErrorAs(t, err, &insufficient)
	assert.Equal(t, int64(3), insufficient.Shortfall)

	// Nothing was reserved.
	b, _ := mem.Bucket("b1")
	assert.Equal(t, int64(0), b.Reserved)
}

func TestShipmentServiceShipsCompleteOrder(t *testing.T) {
	mem := store.NewMemory()
	mem.PutBucket(allocation.StockBucket{ID: "b1", ProductID: "p1", Quantity: 4})
	mem.PutBucket(allocation.StockBucket{ID: "b2", ProductID: "p1", Quantity: 10})
	mem.PutBucket(allocation.StockBucket{ID: "b3", ProductID: "p2", Quantity: 6})
	mem.PutOrder(shipment.Order{ID: "o1", Lines: []shipment.OrderLine{
		{ProductID: "p1", Quantity: 6},
		{ProductID: "p2", Quantity: 6},
	}})

	log := movement.NewLog()
	svc := NewShipmentService(mem, mem, log, testProvider(t))

	lines, err := svc.Ship(context.Background(), "o1", "tester")
	require.NoError(t, err)
	require.Len(t, lines, 3)

	saved := mem.Shipment("o1")
	assert.Equal(t, lines, saved)

	entries := log.Entries()
	require.Len(t, entries, 3)
	for _, e := range entries {
		assert.Equal(t, movement.KindShipment, e.Kind)
		assert.Equal(t, "o1", e.OrderID)
		assert.Negative(t, e.Delta)
	}
}

func TestShipmentServiceFullOrNothing(t *testing.T) {
	mem := store.NewMemory()
	mem.PutBucket(allocation.StockBucket{ID: "b1", ProductID: "p1", Quantity: 10})
	mem.PutBucket(allocation.StockBucket{ID: "b2", ProductID: "p2", Quantity: 1})
	mem.PutOrder(shipment.Order{ID: "o1", Lines: []shipment.OrderLine{
		{ProductID: "p1", Quantity: 5},
		{ProductID: "p2", Quantity: 3},
	}})

	svc := NewShipmentService(mem, mem, movement.NewLog(), testProvider(t))

	_, err := svc.Ship(context.Background(), "o1", "tester")
	var unshippable *shipment.UnshippableLineError
	require.ErrorAs(t, err, &unshippable)
	assert.Equal(t, "p2", unshippable.ProductID)

	// The shippable line must not have been reserved either.
	b1, _ := mem.Bucket("b1")
	assert.Equal(t, int64(0), b1.Reserved)
	assert.Empty(t, mem.Shipment("o1"))
}

func TestShipmentServiceNothingToShip(t *testing.T) {
	mem := store.NewMemory()
	mem.PutOrder(shipment.Order{ID: "o1", Lines: []shipment.OrderLine{
		{ProductID: "p1", Quantity: 5, Shipped: 5},
	}})

	svc := NewShipmentService(mem, mem, movement.NewLog(), testProvider(t))

	_, err := svc.Ship(context.Background(), "o1", "tester")
	assert.ErrorIs(t, err, shipment.ErrNothingToShip)
}

func TestCatalogServiceReparent(t *testing.T) {
	mem := store.NewMemory()
	mem.PutCategory(catalog.Category{ID: "root", Name: "Root"})
	mem.PutCategory(catalog.Category{ID: "mid", Name: "Mid", ParentID: "root"})
	mem.PutCategory(catalog.Category{ID: "leaf", Name: "Leaf", ParentID: "mid"})

	svc := NewCatalogService(mem, testProvider(t), testProfile())

	// Moving root under its own descendant must fail.
	err := svc.Reparent(context.Background(), "root", "leaf")
	var cycle *catalog.CycleError
	require.ErrorAs(t, err, &cycle)

	// A legal move succeeds and is visible in the next listing.
	require.NoError(t, svc.Reparent(context.Background(), "leaf", "root"))
	nodes, err := svc.DisplayList(context.Background(), nil)
	require.NoError(t, err)
	labels := make([]string, len(nodes))
	for i, n := range nodes {
		labels[i] = n.Label
	}
	assert.Equal(t, []string{"Root", "- Leaf", "- Mid"}, labels)
}

func TestCatalogServiceCustomMarker(t *testing.T) {
	mem := store.NewMemory()
	mem.PutCategory(catalog.Category{ID: "a", Name: "A"})
	mem.PutCategory(catalog.Category{ID: "b", Name: "B", ParentID: "a"})

	profile := testProfile()
	profile.IndentMarker = "> "
	svc := NewCatalogService(mem, testProvider(t), profile)

	nodes, err := svc.DisplayList(context.Background(), nil)
	require.NoError(t, err)
	require.Len(t, nodes, 2)
	assert.Equal(t, "> B", nodes[1].Label)
}

func TestKitServiceRejectsCycle(t *testing.T) {
	mem := store.NewMemory()
	svc := NewKitService(mem, testProvider(t))
	ctx := context.Background()

	require.NoError(t, svc.AddComponent(ctx, "bundle", "widget"))
	require.NoError(t, svc.AddComponent(ctx, "widget", "gadget"))

	err := svc.AddComponent(ctx, "gadget", "bundle")
	var cycle *kit.CycleError
	require.ErrorAs(t, err, &cycle)

	err = svc.AddComponent(ctx, "bundle", "bundle")
	require.ErrorAs(t, err, &cycle)

	edges, _ := mem.Edges(ctx)
	assert.Len(t, edges, 2)
}

func TestOrderServicePurchase(t *testing.T) {
	mem := store.NewMemory()
	svc := NewOrderService(mem, testProvider(t))

	lines, totals, err := svc.PricePurchaseOrder(context.Background(), "po-1",
		[]ordertotals.PurchaseLineInput{
			{ProductID: "p1", Quantity: 3, UnitPrice: 1000.49, TaxRate: 5},
			{ProductID: "p2", Quantity: 7, UnitPrice: 500, TaxRate: 5},
		}, 120, 200)
	require.NoError(t, err)
	require.Len(t, lines, 2)
	assert.Equal(t, int64(3000), lines[0].TotalPrice)

	assert.Equal(t, int64(6500), totals.Subtotal)
	assert.Equal(t, int64(120), totals.Tax)
	assert.Equal(t, int64(200), totals.Shipping)
	assert.Equal(t, int64(6820), totals.Total)

	saved, ok := mem.Totals("po-1")
	require.True(t, ok)
	assert.Equal(t, totals, saved)
}

func TestOrderServiceSalesDraftDivergence(t *testing.T) {
	mem := store.NewMemory()
	svc := NewOrderService(mem, testProvider(t))
	inputs := []ordertotals.SalesLineInput{
		{ProductID: "p1", Quantity: 2, UnitPrice: 1000, DiscountPercent: 10, TaxRate: 18},
	}

	lines, _, err := svc.PriceSalesOrder(context.Background(), "so-1", inputs, 0, 0, false)
	require.NoError(t, err)
	assert.Equal(t, int64(2124), lines[0].TotalPrice)

	draftLines, _, err := svc.PriceSalesOrder(context.Background(), "so-1", inputs, 0, 0, true)
	require.NoError(t, err)
	assert.Equal(t, int64(2360), draftLines[0].TotalPrice)
}

func TestOrderServiceUnknownOrderStore(t *testing.T) {
	svc := NewOrderService(failingOrderStore{}, testProvider(t))
	_, _, err := svc.PricePurchaseOrder(context.Background(), "po-x", nil, 0, 0)
	require.Error(t, err)
	assert.ErrorIs(t, err, errSaveFailed)
}

var errSaveFailed = errors.New("save failed")

type failingOrderStore struct{}

func (failingOrderStore) Get(context.Context, string) (*shipment.Order, error) {
	return nil, store.ErrNotFound
}

func (failingOrderStore) SaveTotals(context.Context, string, ordertotals.TotalsResult) error {
	return errSaveFailed
}

func (failingOrderStore) SaveShipment(context.Context, string, []shipment.Line) error {
	return errSaveFailed
}
