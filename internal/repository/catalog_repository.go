package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/iliyamo/backoffice-api/internal/model"
)

// CategoryRepo provides CRUD operations for categories.
type CategoryRepo struct{ q Querier }

func (r *CategoryRepo) Create(ctx context.Context, c *model.Category) error {
	res, err := r.q.ExecContext(ctx, "INSERT INTO categories (name, created_at) VALUES (?, ?)", c.Name, c.CreatedAt)
	if err != nil {
		return mapErr(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	c.ID = uint64(id)
	return nil
}

func (r *CategoryRepo) GetByID(ctx context.Context, id uint64) (*model.Category, error) {
	var c model.Category
	err := r.q.QueryRowContext(ctx, "SELECT id, name, created_at FROM categories WHERE id=?", id).
		Scan(&c.ID, &c.Name, &c.CreatedAt)
	if err != nil {
		return nil, mapErr(err)
	}
	return &c, nil
}

func (r *CategoryRepo) List(ctx context.Context, limit int) ([]model.Category, error) {
	rows, err := r.q.QueryContext(ctx, "SELECT id, name, created_at FROM categories ORDER BY name LIMIT ?", clampLimit(limit))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Category
	for rows.Next() {
		var c model.Category
		if err := rows.Scan(&c.ID, &c.Name, &c.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *CategoryRepo) Rename(ctx context.Context, id uint64, name string) error {
	res, err := r.q.ExecContext(ctx, "UPDATE categories SET name=? WHERE id=?", name, id)
	if err != nil {
		return mapErr(err)
	}
	return requireRow(res, func() error {
		_, err := r.GetByID(ctx, id)
		return err
	})
}

func (r *CategoryRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.q.ExecContext(ctx, "DELETE FROM categories WHERE id=?", id)
	if err != nil {
		return mapErr(err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

// ProductRepo provides persistence for products.  Stock is written through
// SetStock only, always next to an inventory log append.
type ProductRepo struct{ q Querier }

const productColumns = "id, name, description, sku, price, quantity_in_stock, category_id, created_at, updated_at"

func scanProduct(row interface{ Scan(...any) error }) (*model.Product, error) {
	var (
		p    model.Product
		desc sql.NullString
	)
	err := row.Scan(&p.ID, &p.Name, &desc, &p.SKU, &p.Price, &p.QuantityInStock, &p.CategoryID, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, mapErr(err)
	}
	if desc.Valid {
		d := desc.String
		p.Description = &d
	}
	return &p, nil
}

func (r *ProductRepo) Create(ctx context.Context, p *model.Product) error {
	res, err := r.q.ExecContext(ctx,
		`INSERT INTO products (name, description, sku, price, quantity_in_stock, category_id, created_at, updated_at)
		 VALUES (?,?,?,?,?,?,?,?)`,
		p.Name, p.Description, p.SKU, p.Price, p.QuantityInStock, p.CategoryID, p.CreatedAt, p.CreatedAt)
	if err != nil {
		return mapErr(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	p.ID = uint64(id)
	p.UpdatedAt = p.CreatedAt
	return nil
}

func (r *ProductRepo) GetByID(ctx context.Context, id uint64) (*model.Product, error) {
	return scanProduct(r.q.QueryRowContext(ctx, "SELECT "+productColumns+" FROM products WHERE id=?", id))
}

func (r *ProductRepo) GetForUpdate(ctx context.Context, id uint64) (*model.Product, error) {
	return scanProduct(r.q.QueryRowContext(ctx, "SELECT "+productColumns+" FROM products WHERE id=? FOR UPDATE", id))
}

func (r *ProductRepo) List(ctx context.Context, f model.ProductFilter) ([]model.Product, error) {
	var w where
	if f.CategoryID != nil {
		w.add("category_id = ?", *f.CategoryID)
	}
	if f.PriceMin != nil {
		w.add("price >= ?", *f.PriceMin)
	}
	if f.PriceMax != nil {
		w.add("price <= ?", *f.PriceMax)
	}
	args := append(w.args, clampLimit(f.Limit))
	rows, err := r.q.QueryContext(ctx,
		"SELECT "+productColumns+" FROM products"+w.String()+" ORDER BY id LIMIT ?", args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}

func (r *ProductRepo) NameTaken(ctx context.Context, categoryID uint64, name string, excludeID uint64) (bool, error) {
	var n int
	err := r.q.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM products WHERE category_id=? AND LOWER(name)=? AND id<>?",
		categoryID, strings.ToLower(strings.TrimSpace(name)), excludeID).Scan(&n)
	return n > 0, err
}

// Update writes the descriptive fields of p (not its stock).
func (r *ProductRepo) Update(ctx context.Context, p *model.Product) error {
	_, err := r.q.ExecContext(ctx,
		"UPDATE products SET name=?, description=?, price=?, updated_at=? WHERE id=?",
		p.Name, p.Description, p.Price, p.UpdatedAt, p.ID)
	return mapErr(err)
}

func (r *ProductRepo) SetStock(ctx context.Context, id uint64, qty int) error {
	_, err := r.q.ExecContext(ctx, "UPDATE products SET quantity_in_stock=? WHERE id=?", qty, id)
	return mapErr(err)
}

func (r *ProductRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.q.ExecContext(ctx, "DELETE FROM products WHERE id=?", id)
	if err != nil {
		return mapErr(err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}
