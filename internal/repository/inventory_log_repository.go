package repository

import (
	"context"
	"database/sql"

	"github.com/iliyamo/backoffice-api/internal/model"
)

// InventoryLogRepo appends to and reads the stock ledger.  Rows are never
// updated or deleted; reads join users and products at query time.
type InventoryLogRepo struct{ q Querier }

const inventoryLogSelect = `SELECT l.id, l.product_id, l.user_id, l.old_quantity, l.new_quantity, l.change_type, l.created_at,
       u.username, p.name, p.sku
  FROM inventory_logs l
  LEFT JOIN users u ON u.id = l.user_id
  LEFT JOIN products p ON p.id = l.product_id`

func scanInventoryLog(row interface{ Scan(...any) error }) (*model.InventoryLogRow, error) {
	var (
		l                     model.InventoryLogRow
		userID                sql.NullInt64
		username, pname, psku sql.NullString
	)
	err := row.Scan(&l.ID, &l.ProductID, &userID, &l.OldQuantity, &l.NewQuantity, &l.ChangeType, &l.CreatedAt,
		&username, &pname, &psku)
	if err != nil {
		return nil, mapErr(err)
	}
	if userID.Valid {
		uid := uint64(userID.Int64)
		l.UserID = &uid
	}
	l.Username = nullString(username)
	l.ProductName = nullString(pname)
	l.ProductSKU = nullString(psku)
	return &l, nil
}

func nullString(s sql.NullString) *string {
	if !s.Valid {
		return nil
	}
	v := s.String
	return &v
}

func (r *InventoryLogRepo) Append(ctx context.Context, l *model.InventoryLog) error {
	res, err := r.q.ExecContext(ctx,
		`INSERT INTO inventory_logs (product_id, user_id, old_quantity, new_quantity, change_type, created_at)
		 VALUES (?,?,?,?,?,?)`,
		l.ProductID, l.UserID, l.OldQuantity, l.NewQuantity, l.ChangeType, l.CreatedAt)
	if err != nil {
		return mapErr(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	l.ID = uint64(id)
	return nil
}

func (r *InventoryLogRepo) GetByID(ctx context.Context, id uint64) (*model.InventoryLogRow, error) {
	return scanInventoryLog(r.q.QueryRowContext(ctx, inventoryLogSelect+" WHERE l.id = ?", id))
}

func (r *InventoryLogRepo) LastForProduct(ctx context.Context, productID uint64) (*model.InventoryLogRow, error) {
	return scanInventoryLog(r.q.QueryRowContext(ctx,
		inventoryLogSelect+" WHERE l.product_id = ? ORDER BY l.created_at DESC, l.id DESC LIMIT 1", productID))
}

func (r *InventoryLogRepo) List(ctx context.Context, f model.InventoryLogFilter) ([]model.InventoryLogRow, error) {
	var w where
	if f.ProductID != nil {
		w.add("l.product_id = ?", *f.ProductID)
	}
	if f.UserID != nil {
		w.add("l.user_id = ?", *f.UserID)
	}
	if f.ChangeType != nil {
		w.add("l.change_type = ?", *f.ChangeType)
	}
	w.dateRange("l.created_at", f.DateFrom, f.DateTo)
	args := append(w.args, clampLimit(f.Limit))
	rows, err := r.q.QueryContext(ctx, inventoryLogSelect+w.String()+" ORDER BY l.created_at DESC, l.id DESC LIMIT ?", args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.InventoryLogRow
	for rows.Next() {
		l, err := scanInventoryLog(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *l)
	}
	return out, rows.Err()
}
