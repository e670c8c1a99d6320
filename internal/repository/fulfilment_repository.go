package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iliyamo/backoffice-api/internal/model"
)

// DeliveryRepo provides persistence for deliveries.
type DeliveryRepo struct{ q Querier }

const deliveryColumns = "id, order_id, tracking_number, status, expected_delivery_date, actual_delivery_date, created_at, updated_at"

func scanDelivery(row interface{ Scan(...any) error }) (*model.Delivery, error) {
	var (
		d      model.Delivery
		actual sql.NullTime
	)
	err := row.Scan(&d.ID, &d.OrderID, &d.TrackingNumber, &d.Status, &d.ExpectedDeliveryDate, &actual, &d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		return nil, mapErr(err)
	}
	if actual.Valid {
		t := actual.Time
		d.ActualDeliveryDate = &t
	}
	return &d, nil
}

func (r *DeliveryRepo) Create(ctx context.Context, d *model.Delivery) error {
	res, err := r.q.ExecContext(ctx,
		`INSERT INTO deliveries (order_id, tracking_number, status, expected_delivery_date, created_at, updated_at)
		 VALUES (?,?,?,?,?,?)`,
		d.OrderID, d.TrackingNumber, d.Status, d.ExpectedDeliveryDate, d.CreatedAt, d.CreatedAt)
	if err != nil {
		return mapErr(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	d.ID = uint64(id)
	d.UpdatedAt = d.CreatedAt
	return nil
}

func (r *DeliveryRepo) GetByID(ctx context.Context, id uint64) (*model.Delivery, error) {
	return scanDelivery(r.q.QueryRowContext(ctx, "SELECT "+deliveryColumns+" FROM deliveries WHERE id = ?", id))
}

func (r *DeliveryRepo) GetForUpdate(ctx context.Context, id uint64) (*model.Delivery, error) {
	return scanDelivery(r.q.QueryRowContext(ctx, "SELECT "+deliveryColumns+" FROM deliveries WHERE id = ? FOR UPDATE", id))
}

func (r *DeliveryRepo) GetByOrderID(ctx context.Context, orderID uint64) (*model.Delivery, error) {
	return scanDelivery(r.q.QueryRowContext(ctx, "SELECT "+deliveryColumns+" FROM deliveries WHERE order_id = ?", orderID))
}

func (r *DeliveryRepo) List(ctx context.Context, f model.DeliveryFilter) ([]model.Delivery, error) {
	var w where
	if f.Status != nil {
		w.add("status = ?", *f.Status)
	}
	if f.OrderID != nil {
		w.add("order_id = ?", *f.OrderID)
	}
	w.dateRange("created_at", f.DateFrom, f.DateTo)
	args := append(w.args, clampLimit(f.Limit))
	rows, err := r.q.QueryContext(ctx,
		"SELECT "+deliveryColumns+" FROM deliveries"+w.String()+" ORDER BY created_at DESC, id DESC LIMIT ?", args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Delivery
	for rows.Next() {
		d, err := scanDelivery(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *d)
	}
	return out, rows.Err()
}

func (r *DeliveryRepo) UpdateStatus(ctx context.Context, id uint64, status model.DeliveryStatus, delivered *time.Time) error {
	_, err := r.q.ExecContext(ctx,
		"UPDATE deliveries SET status = ?, actual_delivery_date = ? WHERE id = ?", status, delivered, id)
	return mapErr(err)
}

// ReturnRepo provides persistence for return requests.  Reads join the
// order item, its product and the processing user.
type ReturnRepo struct{ q Querier }

const returnSelect = `SELECT r.id, r.order_item_id, i.order_id, i.product_id, COALESCE(p.name, ''), COALESCE(p.sku, ''),
       i.quantity, r.quantity_returned, r.reason, r.status, r.processed_by, u.username, r.created_at, r.updated_at
  FROM returns r
  JOIN order_items i ON i.id = r.order_item_id
  LEFT JOIN products p ON p.id = i.product_id
  LEFT JOIN users u ON u.id = r.processed_by`

func scanReturn(row interface{ Scan(...any) error }) (*model.Return, error) {
	var (
		ret         model.Return
		reason      sql.NullString
		processedBy sql.NullInt64
		username    sql.NullString
	)
	err := row.Scan(&ret.ID, &ret.OrderItemID, &ret.OrderID, &ret.ProductID, &ret.ProductName, &ret.ProductSKU,
		&ret.OrderedQuantity, &ret.QuantityReturned, &reason, &ret.Status, &processedBy, &username,
		&ret.CreatedAt, &ret.UpdatedAt)
	if err != nil {
		return nil, mapErr(err)
	}
	ret.Reason = nullString(reason)
	ret.ProcessedByUsername = nullString(username)
	if processedBy.Valid {
		id := uint64(processedBy.Int64)
		ret.ProcessedBy = &id
	}
	return &ret, nil
}

func (r *ReturnRepo) Create(ctx context.Context, ret *model.Return) error {
	res, err := r.q.ExecContext(ctx,
		`INSERT INTO returns (order_item_id, quantity_returned, reason, status, created_at, updated_at)
		 VALUES (?,?,?,?,?,?)`,
		ret.OrderItemID, ret.QuantityReturned, ret.Reason, ret.Status, ret.CreatedAt, ret.CreatedAt)
	if err != nil {
		return mapErr(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	ret.ID = uint64(id)
	ret.UpdatedAt = ret.CreatedAt
	return nil
}

func (r *ReturnRepo) GetByID(ctx context.Context, id uint64) (*model.Return, error) {
	return scanReturn(r.q.QueryRowContext(ctx, returnSelect+" WHERE r.id = ?", id))
}

func (r *ReturnRepo) GetForUpdate(ctx context.Context, id uint64) (*model.Return, error) {
	return scanReturn(r.q.QueryRowContext(ctx, returnSelect+" WHERE r.id = ? FOR UPDATE OF r", id))
}

func returnWhere(f model.ReturnFilter) *where {
	w := &where{}
	if f.Status != nil {
		w.add("r.status = ?", *f.Status)
	}
	if f.ProductID != nil {
		w.add("i.product_id = ?", *f.ProductID)
	}
	w.dateRange("r.created_at", f.DateFrom, f.DateTo)
	return w
}

func (r *ReturnRepo) List(ctx context.Context, f model.ReturnFilter) ([]model.Return, error) {
	w := returnWhere(f)
	args := append(w.args, clampLimit(f.Limit))
	rows, err := r.q.QueryContext(ctx, returnSelect+w.String()+" ORDER BY r.created_at DESC, r.id DESC LIMIT ?", args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Return
	for rows.Next() {
		ret, err := scanReturn(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *ret)
	}
	return out, rows.Err()
}

func (r *ReturnRepo) UpdateStatus(ctx context.Context, id uint64, status model.ReturnStatus, processedBy *uint64) error {
	_, err := r.q.ExecContext(ctx,
		"UPDATE returns SET status = ?, processed_by = COALESCE(?, processed_by) WHERE id = ?", status, processedBy, id)
	return mapErr(err)
}

func (r *ReturnRepo) OpenQuantity(ctx context.Context, orderItemID uint64) (int, error) {
	var n int
	err := r.q.QueryRowContext(ctx,
		"SELECT COALESCE(SUM(quantity_returned), 0) FROM returns WHERE order_item_id = ? AND status <> 'rejected'",
		orderItemID).Scan(&n)
	return n, err
}

func (r *ReturnRepo) Statistics(ctx context.Context, f model.ReturnFilter) (*model.ReturnStatistics, error) {
	w := returnWhere(f)
	var (
		st                          model.ReturnStatistics
		approved, rejected, pending sql.NullInt64
		items                       sql.NullInt64
		avg                         decimal.NullDecimal
	)
	err := r.q.QueryRowContext(ctx,
		`SELECT COUNT(*),
		        SUM(r.status = 'approved'),
		        SUM(r.status = 'rejected'),
		        SUM(r.status = 'requested'),
		        SUM(r.quantity_returned),
		        AVG(r.quantity_returned)
		   FROM returns r
		   JOIN order_items i ON i.id = r.order_item_id`+w.String(), w.args...).
		Scan(&st.TotalReturns, &approved, &rejected, &pending, &items, &avg)
	if err != nil {
		return nil, err
	}
	st.ApprovedReturns = approved.Int64
	st.RejectedReturns = rejected.Int64
	st.PendingReturns = pending.Int64
	st.TotalItemsReturned = items.Int64
	st.AvgReturnQuantity = avg.Decimal.Round(2)
	return &st, nil
}
