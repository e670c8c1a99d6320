package service

import (
	"context"
	"errors"
	"strings"

	"github.com/iliyamo/backoffice-api/internal/apperr"
	"github.com/iliyamo/backoffice-api/internal/model"
	"github.com/iliyamo/backoffice-api/internal/repository"
	"github.com/iliyamo/backoffice-api/internal/utils"
)

// CatalogService manages categories and products.  Every stock change of
// a product goes through the ledger.
type CatalogService struct {
	deps   Deps
	store  repository.Store
	ledger *Ledger
}

func NewCatalogService(store repository.Store, ledger *Ledger, d Deps) *CatalogService {
	return &CatalogService{deps: d.withDefaults(), store: store, ledger: ledger}
}

func categoryNotFound(err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return apperr.NotFound("Category not found")
	}
	return dbErr(err)
}

func productNotFound(err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return apperr.NotFound("Product not found")
	}
	return dbErr(err)
}

func categoryName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", apperr.Validation("Category name cannot be empty")
	}
	if len(name) > 100 {
		return "", apperr.Validation("Invalid category name")
	}
	return name, nil
}

// ---- Categories ----

func (s *CatalogService) CreateCategory(ctx context.Context, name string) (*model.Category, error) {
	name, err := categoryName(name)
	if err != nil {
		return nil, err
	}
	c := &model.Category{Name: name, CreatedAt: s.deps.now()}
	if err := s.store.Categories().Create(ctx, c); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, apperr.Conflict("Category already exists")
		}
		return nil, dbErr(err)
	}
	return c, nil
}

func (s *CatalogService) GetCategory(ctx context.Context, id uint64) (*model.Category, error) {
	if id == 0 {
		return nil, apperr.Validation("Invalid category ID")
	}
	c, err := s.store.Categories().GetByID(ctx, id)
	if err != nil {
		return nil, categoryNotFound(err)
	}
	return c, nil
}

func (s *CatalogService) ListCategories(ctx context.Context, limit int) ([]model.Category, error) {
	if err := checkLimit(limit); err != nil {
		return nil, err
	}
	cs, err := s.store.Categories().List(ctx, limit)
	if err != nil {
		return nil, dbErr(err)
	}
	return cs, nil
}

func (s *CatalogService) UpdateCategory(ctx context.Context, id uint64, name string) (*model.Category, error) {
	name, err := categoryName(name)
	if err != nil {
		return nil, err
	}
	if err := s.store.Categories().Rename(ctx, id, name); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, apperr.Conflict("Category already exists")
		}
		return nil, categoryNotFound(err)
	}
	return s.GetCategory(ctx, id)
}

func (s *CatalogService) DeleteCategory(ctx context.Context, id uint64) error {
	if id == 0 {
		return apperr.Validation("Invalid category ID")
	}
	if err := s.store.Categories().Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrReferenced) {
			return apperr.Conflict("Category has products and cannot be deleted")
		}
		return categoryNotFound(err)
	}
	return nil
}

// ---- Products ----

// CreateProduct derives the SKU from the category and product names and
// records the opening stock as an "initial" ledger entry.
func (s *CatalogService) CreateProduct(ctx context.Context, actorID uint64, in model.NewProduct) (*model.Product, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, apperr.Validation("Product name cannot be empty")
	}
	if in.CategoryID == 0 {
		return nil, apperr.Validation("Invalid category ID")
	}
	if !in.Price.IsPositive() {
		return nil, apperr.Validation("Price must be greater than 0")
	}
	qty := 0
	if in.QuantityInStock != nil {
		qty = *in.QuantityInStock
	}
	if qty < 0 {
		return nil, apperr.Validation("Stock quantity cannot be negative")
	}

	var created *model.Product
	err := s.store.WithinTx(ctx, func(tx repository.Repos) error {
		cat, err := tx.Categories().GetByID(ctx, in.CategoryID)
		if err != nil {
			return categoryNotFound(err)
		}
		taken, err := tx.Products().NameTaken(ctx, cat.ID, name, 0)
		if err != nil {
			return dbErr(err)
		}
		if taken {
			return apperr.Conflict("Product name already exists in this category")
		}
		now := s.deps.now()
		p := &model.Product{
			Name:            name,
			Description:     in.Description,
			SKU:             utils.SKU(cat.Name, name, s.deps.Now()),
			Price:           in.Price.Round(2),
			QuantityInStock: qty,
			CategoryID:      cat.ID,
			CreatedAt:       now,
		}
		if err := tx.Products().Create(ctx, p); err != nil {
			if errors.Is(err, repository.ErrDuplicate) {
				return apperr.Conflict("Product SKU already exists, retry")
			}
			return dbErr(err)
		}
		if err := s.ledger.Record(ctx, tx.InventoryLogs(), p.ID, &actorID, 0, qty, model.ChangeInitial); err != nil {
			return err
		}
		created = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.deps.Logger.Info("product created", "product_id", created.ID, "sku", created.SKU, "actor_id", actorID)
	return created, nil
}

func (s *CatalogService) GetProduct(ctx context.Context, id uint64) (*model.Product, error) {
	if id == 0 {
		return nil, apperr.Validation("Invalid product ID")
	}
	p, err := s.store.Products().GetByID(ctx, id)
	if err != nil {
		return nil, productNotFound(err)
	}
	return p, nil
}

func (s *CatalogService) ListProducts(ctx context.Context, f model.ProductFilter) ([]model.Product, error) {
	if err := checkLimit(f.Limit); err != nil {
		return nil, err
	}
	if f.PriceMin != nil && f.PriceMax != nil && f.PriceMin.GreaterThan(*f.PriceMax) {
		return nil, apperr.Validation("price_min cannot be greater than price_max")
	}
	ps, err := s.store.Products().List(ctx, f)
	if err != nil {
		return nil, dbErr(err)
	}
	return ps, nil
}

// UpdateProduct applies the supplied fields.  A changed quantity is
// written as an "adjustment" ledger entry.
func (s *CatalogService) UpdateProduct(ctx context.Context, actorID, id uint64, upd model.ProductUpdate) (*model.Product, error) {
	if upd.Empty() {
		return nil, apperr.Validation("No valid fields to update. Allowed fields: name, description, price, quantity_in_stock")
	}
	if upd.Name != nil {
		name := strings.TrimSpace(*upd.Name)
		if name == "" {
			return nil, apperr.Validation("Product name cannot be empty")
		}
		upd.Name = &name
	}
	if upd.Price != nil && !upd.Price.IsPositive() {
		return nil, apperr.Validation("Price must be greater than 0")
	}
	if upd.QuantityInStock != nil && *upd.QuantityInStock < 0 {
		return nil, apperr.Validation("Stock quantity cannot be negative")
	}

	var updated *model.Product
	err := s.store.WithinTx(ctx, func(tx repository.Repos) error {
		p, err := tx.Products().GetForUpdate(ctx, id)
		if err != nil {
			return productNotFound(err)
		}
		descriptive := upd.Name != nil || upd.Description != nil || upd.Price != nil
		if upd.Name != nil && !strings.EqualFold(*upd.Name, p.Name) {
			taken, err := tx.Products().NameTaken(ctx, p.CategoryID, *upd.Name, p.ID)
			if err != nil {
				return dbErr(err)
			}
			if taken {
				return apperr.Conflict("Product name already exists in this category")
			}
		}
		if upd.Name != nil {
			p.Name = *upd.Name
		}
		if upd.Description != nil {
			p.Description = upd.Description
		}
		if upd.Price != nil {
			p.Price = upd.Price.Round(2)
		}
		if descriptive {
			p.UpdatedAt = s.deps.now()
			if err := tx.Products().Update(ctx, p); err != nil {
				return dbErr(err)
			}
		}
		if upd.QuantityInStock != nil && *upd.QuantityInStock != p.QuantityInStock {
			if err := s.ledger.Apply(ctx, tx, p, *upd.QuantityInStock, &actorID, model.ChangeAdjustment); err != nil {
				return err
			}
		}
		updated = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// AdjustStock moves the stock of a product by delta.  Only manual
// adjustments and supplier restocks are accepted here; sales and returns
// come from the order and return workflows.
func (s *CatalogService) AdjustStock(ctx context.Context, actorID, id uint64, delta int, ct model.ChangeType) (*model.Product, error) {
	switch ct {
	case model.ChangeAdjustment:
	case model.ChangeRestock:
		if delta < 0 {
			return nil, apperr.Validation("A restock cannot decrease stock")
		}
	default:
		return nil, apperr.Validation("Change type must be adjustment or restock")
	}
	if delta == 0 {
		return nil, apperr.Validation("Quantity change cannot be zero")
	}

	var adjusted *model.Product
	err := s.store.WithinTx(ctx, func(tx repository.Repos) error {
		p, err := tx.Products().GetForUpdate(ctx, id)
		if err != nil {
			return productNotFound(err)
		}
		if err := s.ledger.Apply(ctx, tx, p, p.QuantityInStock+delta, &actorID, ct); err != nil {
			return err
		}
		adjusted = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	return adjusted, nil
}

// DeleteProduct clears the stock through a "deletion" ledger entry and
// removes the product.  Products already sold cannot be deleted; the
// ledger entry is rolled back with the rest.
func (s *CatalogService) DeleteProduct(ctx context.Context, actorID, id uint64) error {
	err := s.store.WithinTx(ctx, func(tx repository.Repos) error {
		p, err := tx.Products().GetForUpdate(ctx, id)
		if err != nil {
			return productNotFound(err)
		}
		if err := s.ledger.Record(ctx, tx.InventoryLogs(), p.ID, &actorID, p.QuantityInStock, 0, model.ChangeDeletion); err != nil {
			return err
		}
		if err := tx.Products().Delete(ctx, p.ID); err != nil {
			if errors.Is(err, repository.ErrReferenced) {
				return apperr.Conflict("Product is referenced by orders and cannot be deleted")
			}
			return productNotFound(err)
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.deps.Logger.Info("product deleted", "product_id", id, "actor_id", actorID)
	return nil
}
