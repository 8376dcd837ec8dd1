package store

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"

	"github.com/tallykeep/tallykeep/pkg/allocation"
	"github.com/tallykeep/tallykeep/pkg/ordertotals"
	"github.com/tallykeep/tallykeep/pkg/shipment"
)

// Postgres implements BucketStore and OrderStore on PostgreSQL. The
// reservation invariant is enforced in the UPDATE predicate, so a plan
// computed from a stale snapshot fails atomically instead of driving a
// bucket negative.
type Postgres struct {
	db *sql.DB
}

// NewPostgres wraps an open database handle.
func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

func (s *Postgres) ListAvailable(ctx context.Context, productID, warehouseID string) ([]allocation.StockBucket, error) {
	query := `
		SELECT id, product_id, warehouse_id, COALESCE(location_id, ''), quantity, reserved,
		       COALESCE(batch, ''), COALESCE(serial, ''), expiry, received_at,
		       unit_cost_minor, unit_cost_currency
		FROM stock_buckets
		WHERE product_id = $1 AND ($2 = '' OR warehouse_id = $2) AND quantity > reserved
		ORDER BY id`
	rows, err := s.db.QueryContext(ctx, query, productID, warehouseID)
	if err != nil {
		return nil, fmt.Errorf("failed to list buckets: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []allocation.StockBucket
	for rows.Next() {
		var b allocation.StockBucket
		var expiry sql.NullTime
		if err := rows.Scan(&b.ID, &b.ProductID, &b.WarehouseID, &b.LocationID,
			&b.Quantity, &b.Reserved, &b.Batch, &b.Serial, &expiry, &b.ReceivedAt,
			&b.UnitCost.AmountMinor, &b.UnitCost.Currency); err != nil {
			return nil, fmt.Errorf("failed to scan bucket: %w", err)
		}
		if expiry.Valid {
			t := expiry.Time
			b.Expiry = &t
		}
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("bucket rows: %w", err)
	}
	return out, nil
}

func (s *Postgres) ApplyPlan(ctx context.Context, plan allocation.Plan) error {
	return s.adjustReserved(ctx, plan, +1)
}

func (s *Postgres) ReleasePlan(ctx context.Context, plan allocation.Plan) error {
	return s.adjustReserved(ctx, plan, -1)
}

func (s *Postgres) adjustReserved(ctx context.Context, plan allocation.Plan, sign int64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, e := range plan {
		res, err := tx.ExecContext(ctx, `
			UPDATE stock_buckets
			SET reserved = reserved + $1
			WHERE id = $2 AND reserved + $1 BETWEEN 0 AND quantity`,
			sign*e.Take, e.BucketID)
		if err != nil {
			return fmt.Errorf("failed to adjust bucket %s: %w", e.BucketID, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to adjust bucket %s: %w", e.BucketID, err)
		}
		if n == 0 {
			return fmt.Errorf("bucket %s: %w", e.BucketID, ErrStaleSnapshot)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit plan: %w", err)
	}
	return nil
}

func (s *Postgres) Get(ctx context.Context, orderID string) (*shipment.Order, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT product_id, quantity, shipped
		FROM order_lines WHERE order_id = $1 ORDER BY line_no`, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to load order %s: %w", orderID, err)
	}
	defer func() { _ = rows.Close() }()

	order := shipment.Order{ID: orderID}
	for rows.Next() {
		var l shipment.OrderLine
		if err := rows.Scan(&l.ProductID, &l.Quantity, &l.Shipped); err != nil {
			return nil, fmt.Errorf("failed to scan order line: %w", err)
		}
		order.Lines = append(order.Lines, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("order rows: %w", err)
	}
	if len(order.Lines) == 0 {
		return nil, fmt.Errorf("order %s: %w", orderID, ErrNotFound)
	}
	return &order, nil
}

func (s *Postgres) SaveTotals(ctx context.Context, orderID string, totals ordertotals.TotalsResult) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO order_totals (order_id, subtotal, tax, shipping, total)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (order_id) DO UPDATE SET
			subtotal = EXCLUDED.subtotal,
			tax = EXCLUDED.tax,
			shipping = EXCLUDED.shipping,
			total = EXCLUDED.total`,
		orderID, totals.Subtotal, totals.Tax, totals.Shipping, totals.Total)
	if err != nil {
		return fmt.Errorf("failed to save totals for %s: %w", orderID, err)
	}
	return nil
}

func (s *Postgres) SaveShipment(ctx context.Context, orderID string, lines []shipment.Line) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for i, l := range lines {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO shipment_lines (order_id, line_no, product_id, bucket_id, quantity)
			VALUES ($1, $2, $3, $4, $5)`,
			orderID, i+1, l.ProductID, l.BucketID, l.Quantity); err != nil {
			return fmt.Errorf("failed to save shipment line %d: %w", i+1, err)
		}
		if _, err := tx.ExecContext(ctx, `
			UPDATE order_lines SET shipped = shipped + $1
			WHERE order_id = $2 AND product_id = $3`,
			l.Quantity, orderID, l.ProductID); err != nil {
			return fmt.Errorf("failed to advance shipped quantity: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit shipment: %w", err)
	}
	return nil
}
