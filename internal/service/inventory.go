package service

import (
	"context"
	"errors"

	"github.com/iliyamo/backoffice-api/internal/apperr"
	"github.com/iliyamo/backoffice-api/internal/metrics"
	"github.com/iliyamo/backoffice-api/internal/model"
	"github.com/iliyamo/backoffice-api/internal/repository"
)

// Ledger appends stock movements to the inventory log.  It always writes
// through the repositories it is handed, so the entry shares the caller's
// transaction.
type Ledger struct {
	deps Deps
}

func NewLedger(d Deps) *Ledger { return &Ledger{deps: d.withDefaults()} }

// Record appends one ledger row.  A nil userID marks a system change.
func (l *Ledger) Record(ctx context.Context, logs repository.InventoryLogRepository,
	productID uint64, userID *uint64, oldQty, newQty int, ct model.ChangeType) error {
	if !ct.Valid() {
		return apperr.Validation("Invalid change type: %s", ct)
	}
	if userID != nil && *userID == 0 {
		return apperr.Validation("Invalid user ID")
	}
	if productID == 0 {
		return apperr.Validation("Invalid product ID")
	}
	entry := &model.InventoryLog{
		ProductID:   productID,
		UserID:      userID,
		OldQuantity: oldQty,
		NewQuantity: newQty,
		ChangeType:  ct,
		CreatedAt:   l.deps.Now().UTC(),
	}
	if err := logs.Append(ctx, entry); err != nil {
		return apperr.Internal(err, "Failed to create inventory log entry")
	}
	metrics.ObserveStockMovement(string(ct), newQty-oldQty)
	return nil
}

// Apply sets the stock of a locked product to newQty and records the
// movement.  p is updated in place.
func (l *Ledger) Apply(ctx context.Context, tx repository.Repos, p *model.Product, newQty int,
	actor *uint64, ct model.ChangeType) error {
	if newQty < 0 {
		return apperr.Validation("Stock quantity cannot be negative")
	}
	if err := tx.Products().SetStock(ctx, p.ID, newQty); err != nil {
		return dbErr(err)
	}
	if err := l.Record(ctx, tx.InventoryLogs(), p.ID, actor, p.QuantityInStock, newQty, ct); err != nil {
		return err
	}
	p.QuantityInStock = newQty
	return nil
}

// InventoryService serves the read side of the ledger.
type InventoryService struct {
	store repository.Store
}

func NewInventoryService(store repository.Store) *InventoryService {
	return &InventoryService{store: store}
}

func (s *InventoryService) Get(ctx context.Context, id uint64) (*model.InventoryLogEntry, error) {
	if id == 0 {
		return nil, apperr.Validation("Invalid log ID")
	}
	row, err := s.store.InventoryLogs().GetByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperr.NotFound("Log not found")
	}
	if err != nil {
		return nil, dbErr(err)
	}
	e := render(*row)
	return &e, nil
}

func (s *InventoryService) List(ctx context.Context, f model.InventoryLogFilter) ([]model.InventoryLogEntry, error) {
	if err := checkLimit(f.Limit); err != nil {
		return nil, err
	}
	if f.ChangeType != nil && !f.ChangeType.Valid() {
		return nil, apperr.Validation("Invalid change type: %s", *f.ChangeType)
	}
	rows, err := s.store.InventoryLogs().List(ctx, f)
	if err != nil {
		return nil, dbErr(err)
	}
	out := make([]model.InventoryLogEntry, 0, len(rows))
	for _, r := range rows {
		out = append(out, render(r))
	}
	return out, nil
}

// Last returns the most recent ledger entry of a product.
func (s *InventoryService) Last(ctx context.Context, productID uint64) (*model.InventoryLogEntry, error) {
	if productID == 0 {
		return nil, apperr.Validation("Invalid product ID")
	}
	row, err := s.store.InventoryLogs().LastForProduct(ctx, productID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperr.NotFound("No inventory log found for product %d", productID)
	}
	if err != nil {
		return nil, dbErr(err)
	}
	e := render(*row)
	return &e, nil
}

// render replaces missing joined rows with display sentinels.
func render(r model.InventoryLogRow) model.InventoryLogEntry {
	e := model.InventoryLogEntry{
		ID:                    r.ID,
		ProductID:             r.ProductID,
		ProductName:           model.DeletedProduct,
		ProductSKU:            model.MissingSKU,
		UserID:                r.UserID,
		OldQuantity:           r.OldQuantity,
		NewQuantity:           r.NewQuantity,
		QuantityChange:        r.NewQuantity - r.OldQuantity,
		ChangeType:            r.ChangeType,
		ChangeTypeDescription: r.ChangeType.Description(),
		CreatedAt:             r.CreatedAt,
	}
	switch {
	case r.UserID == nil:
		e.Username = model.SystemUser
	case r.Username == nil:
		e.Username = model.UnknownUser
	default:
		e.Username = *r.Username
	}
	if r.ProductName != nil {
		e.ProductName = *r.ProductName
		if r.ProductSKU != nil {
			e.ProductSKU = *r.ProductSKU
		}
	}
	return e
}
