package repository

import (
	"context"
	"database/sql"

	"github.com/shopspring/decimal"

	"github.com/iliyamo/backoffice-api/internal/model"
)

// OrderRepo provides persistence for orders and their items.  Items carry
// the product name and SKU joined at read time.
type OrderRepo struct{ q Querier }

const orderSelect = `SELECT o.id, o.user_id, COALESCE(u.username, ''), o.total_amount, o.status, o.created_at, o.updated_at
  FROM orders o
  LEFT JOIN users u ON u.id = o.user_id`

func scanOrder(row interface{ Scan(...any) error }) (*model.Order, error) {
	var o model.Order
	if err := row.Scan(&o.ID, &o.UserID, &o.Username, &o.TotalAmount, &o.Status, &o.CreatedAt, &o.UpdatedAt); err != nil {
		return nil, mapErr(err)
	}
	return &o, nil
}

// Create inserts the order row and all its items in a single multi-row
// statement, then reads the items back to learn their ids.
func (r *OrderRepo) Create(ctx context.Context, o *model.Order) error {
	res, err := r.q.ExecContext(ctx,
		"INSERT INTO orders (user_id, total_amount, status, created_at, updated_at) VALUES (?, ?, ?, ?, ?)",
		o.UserID, o.TotalAmount, o.Status, o.CreatedAt, o.CreatedAt)
	if err != nil {
		return mapErr(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	o.ID = uint64(id)
	o.UpdatedAt = o.CreatedAt
	if len(o.Items) == 0 {
		return nil
	}

	query := `INSERT INTO order_items (order_id, product_id, quantity, unit_price) VALUES `
	args := make([]interface{}, 0, len(o.Items)*4)
	for i, it := range o.Items {
		if i > 0 {
			query += ","
		}
		query += "(?, ?, ?, ?)"
		args = append(args, o.ID, it.ProductID, it.Quantity, it.UnitPrice)
	}
	if _, err := r.q.ExecContext(ctx, query, args...); err != nil {
		return mapErr(err)
	}
	items, err := r.items(ctx, o.ID)
	if err != nil {
		return err
	}
	o.Items = items
	return nil
}

func (r *OrderRepo) items(ctx context.Context, orderID uint64) ([]model.OrderItem, error) {
	rows, err := r.q.QueryContext(ctx,
		`SELECT i.id, i.order_id, i.product_id, COALESCE(p.name, ''), COALESCE(p.sku, ''), i.quantity, i.unit_price
		   FROM order_items i
		   LEFT JOIN products p ON p.id = i.product_id
		  WHERE i.order_id = ?
		  ORDER BY i.id`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.OrderItem{}
	for rows.Next() {
		var it model.OrderItem
		if err := rows.Scan(&it.ID, &it.OrderID, &it.ProductID, &it.ProductName, &it.ProductSKU, &it.Quantity, &it.UnitPrice); err != nil {
			return nil, err
		}
		out = append(out, it)
	}
	return out, rows.Err()
}

func (r *OrderRepo) withItems(ctx context.Context, o *model.Order, err error) (*model.Order, error) {
	if err != nil {
		return nil, err
	}
	if o.Items, err = r.items(ctx, o.ID); err != nil {
		return nil, err
	}
	return o, nil
}

func (r *OrderRepo) GetByID(ctx context.Context, id uint64) (*model.Order, error) {
	o, err := scanOrder(r.q.QueryRowContext(ctx, orderSelect+" WHERE o.id = ?", id))
	return r.withItems(ctx, o, err)
}

// GetForUpdate locks the order row; the items are read without a lock
// since they never change after creation.
func (r *OrderRepo) GetForUpdate(ctx context.Context, id uint64) (*model.Order, error) {
	o, err := scanOrder(r.q.QueryRowContext(ctx, orderSelect+" WHERE o.id = ? FOR UPDATE OF o", id))
	return r.withItems(ctx, o, err)
}

func orderWhere(f model.OrderFilter) *where {
	w := &where{}
	if f.Status != nil {
		w.add("o.status = ?", *f.Status)
	}
	if f.UserID != nil {
		w.add("o.user_id = ?", *f.UserID)
	}
	w.dateRange("o.created_at", f.DateFrom, f.DateTo)
	return w
}

func (r *OrderRepo) List(ctx context.Context, f model.OrderFilter) ([]model.Order, error) {
	w := orderWhere(f)
	args := append(w.args, clampLimit(f.Limit))
	rows, err := r.q.QueryContext(ctx, orderSelect+w.String()+" ORDER BY o.created_at DESC, o.id DESC LIMIT ?", args...)
	if err != nil {
		return nil, err
	}
	var out []model.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		out = append(out, *o)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i := range out {
		if out[i].Items, err = r.items(ctx, out[i].ID); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (r *OrderRepo) UpdateStatus(ctx context.Context, id uint64, status model.OrderStatus) error {
	res, err := r.q.ExecContext(ctx, "UPDATE orders SET status = ? WHERE id = ?", status, id)
	if err != nil {
		return mapErr(err)
	}
	return requireRow(res, func() error {
		_, err := scanOrder(r.q.QueryRowContext(ctx, orderSelect+" WHERE o.id = ?", id))
		return err
	})
}

// Statistics aggregates the orders matching f.  Revenue and the average
// order value leave cancelled orders out.
func (r *OrderRepo) Statistics(ctx context.Context, f model.OrderFilter) (*model.OrderStatistics, error) {
	w := orderWhere(f)
	var (
		st       model.OrderStatistics
		revenue  decimal.NullDecimal
		average  decimal.NullDecimal
		complete sql.NullInt64
		cancel   sql.NullInt64
	)
	err := r.q.QueryRowContext(ctx,
		`SELECT COUNT(*),
		        SUM(CASE WHEN o.status <> 'cancelled' THEN o.total_amount END),
		        SUM(o.status = 'completed'),
		        SUM(o.status = 'cancelled'),
		        AVG(CASE WHEN o.status <> 'cancelled' THEN o.total_amount END)
		   FROM orders o`+w.String(), w.args...).
		Scan(&st.TotalOrders, &revenue, &complete, &cancel, &average)
	if err != nil {
		return nil, err
	}
	st.TotalRevenue = revenue.Decimal
	st.AverageOrderValue = average.Decimal.Round(2)
	st.CompletedOrders = complete.Int64
	st.CancelledOrders = cancel.Int64
	return &st, nil
}

func (r *OrderRepo) GetItemForUpdate(ctx context.Context, itemID uint64) (*model.OrderItem, error) {
	var it model.OrderItem
	err := r.q.QueryRowContext(ctx,
		"SELECT id, order_id, product_id, quantity, unit_price FROM order_items WHERE id = ? FOR UPDATE", itemID).
		Scan(&it.ID, &it.OrderID, &it.ProductID, &it.Quantity, &it.UnitPrice)
	if err != nil {
		return nil, mapErr(err)
	}
	return &it, nil
}

func (r *OrderRepo) CountByUser(ctx context.Context, userID uint64) (int, error) {
	var n int
	err := r.q.QueryRowContext(ctx, "SELECT COUNT(*) FROM orders WHERE user_id = ?", userID).Scan(&n)
	return n, err
}
