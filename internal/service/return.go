package service

import (
	"context"
	"errors"
	"strings"

	"github.com/iliyamo/backoffice-api/internal/apperr"
	"github.com/iliyamo/backoffice-api/internal/metrics"
	"github.com/iliyamo/backoffice-api/internal/model"
	"github.com/iliyamo/backoffice-api/internal/queue"
	"github.com/iliyamo/backoffice-api/internal/repository"
)

// ReturnService handles return requests against completed orders.
//
//	requested → approved → refunded
//	requested → rejected
//
// Approval puts the returned quantity back in stock through the ledger.
type ReturnService struct {
	deps   Deps
	store  repository.Store
	ledger *Ledger
}

func NewReturnService(store repository.Store, ledger *Ledger, d Deps) *ReturnService {
	return &ReturnService{deps: d.withDefaults(), store: store, ledger: ledger}
}

func returnNotFound(err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return apperr.NotFound("Return request not found")
	}
	return dbErr(err)
}

// Create opens a return request for part of an order item.  The quantity
// of all non-rejected returns of the item may not exceed what was ordered.
func (s *ReturnService) Create(ctx context.Context, in model.NewReturn) (*model.Return, error) {
	if in.OrderItemID == 0 {
		return nil, apperr.Validation("Invalid order item ID")
	}
	if in.QuantityReturned <= 0 {
		return nil, apperr.Validation("Quantity must be greater than 0")
	}
	var reason *string
	if in.Reason != nil {
		if r := strings.TrimSpace(*in.Reason); r != "" {
			reason = &r
		}
	}

	var id uint64
	err := s.store.WithinTx(ctx, func(tx repository.Repos) error {
		item, err := tx.Orders().GetItemForUpdate(ctx, in.OrderItemID)
		if errors.Is(err, repository.ErrNotFound) {
			return apperr.NotFound("Order item not found")
		}
		if err != nil {
			return dbErr(err)
		}
		order, err := tx.Orders().GetByID(ctx, item.OrderID)
		if err != nil {
			return orderNotFound(err)
		}
		if order.Status != model.OrderCompleted {
			return apperr.Conflict("Can only return items from completed orders")
		}
		open, err := tx.Returns().OpenQuantity(ctx, item.ID)
		if err != nil {
			return dbErr(err)
		}
		if open+in.QuantityReturned > item.Quantity {
			return apperr.Validation("Return quantity exceeds ordered quantity: ordered %d, already returned %d",
				item.Quantity, open)
		}
		r := &model.Return{
			OrderItemID:      item.ID,
			QuantityReturned: in.QuantityReturned,
			Reason:           reason,
			Status:           model.ReturnRequested,
			CreatedAt:        s.deps.now(),
		}
		if err := tx.Returns().Create(ctx, r); err != nil {
			return apperr.Internal(err, "Failed to create return")
		}
		id = r.ID
		return nil
	})
	if err != nil {
		return nil, err
	}
	metrics.ObserveReturn(string(model.ReturnRequested))
	return s.Get(ctx, id)
}

// Process approves or rejects a requested return.  A return is processed
// once; approval restocks the product in the same transaction.
func (s *ReturnService) Process(ctx context.Context, id uint64, status model.ReturnStatus, processedBy uint64) (*model.Return, error) {
	if processedBy == 0 {
		return nil, apperr.Validation("Invalid user ID")
	}
	var processed *model.Return
	err := s.store.WithinTx(ctx, func(tx repository.Repos) error {
		r, err := tx.Returns().GetForUpdate(ctx, id)
		if err != nil {
			return returnNotFound(err)
		}
		if r.Status != model.ReturnRequested {
			return apperr.Conflict("Return request has already been processed")
		}
		if status != model.ReturnApproved && status != model.ReturnRejected {
			return apperr.Validation("Invalid status: must be approved or rejected")
		}
		if status == model.ReturnApproved {
			p, err := tx.Products().GetForUpdate(ctx, r.ProductID)
			if err != nil {
				return productNotFound(err)
			}
			if err := s.ledger.Apply(ctx, tx, p, p.QuantityInStock+r.QuantityReturned, &processedBy, model.ChangeReturn); err != nil {
				return err
			}
		}
		if err := tx.Returns().UpdateStatus(ctx, r.ID, status, &processedBy); err != nil {
			return dbErr(err)
		}
		r.Status = status
		r.ProcessedBy = &processedBy
		processed = r
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.ObserveReturn(string(status))
	s.deps.Logger.Info("return processed", "return_id", id, "status", status, "processed_by", processedBy)
	s.deps.publish(ctx, queue.ReturnProcessed, &processedBy, returnEvent(processed))
	return s.reload(ctx, processed), nil
}

// Refund closes an approved return.
func (s *ReturnService) Refund(ctx context.Context, id, actorID uint64) (*model.Return, error) {
	var refunded *model.Return
	err := s.store.WithinTx(ctx, func(tx repository.Repos) error {
		r, err := tx.Returns().GetForUpdate(ctx, id)
		if err != nil {
			return returnNotFound(err)
		}
		if r.Status != model.ReturnApproved {
			return apperr.Conflict("Only approved returns can be refunded")
		}
		if err := tx.Returns().UpdateStatus(ctx, r.ID, model.ReturnRefunded, nil); err != nil {
			return dbErr(err)
		}
		r.Status = model.ReturnRefunded
		refunded = r
		return nil
	})
	if err != nil {
		return nil, err
	}
	metrics.ObserveReturn(string(model.ReturnRefunded))
	s.deps.publish(ctx, queue.ReturnProcessed, &actorID, returnEvent(refunded))
	return s.reload(ctx, refunded), nil
}

func returnEvent(r *model.Return) queue.ReturnEvent {
	return queue.ReturnEvent{
		ReturnID:    r.ID,
		OrderItemID: r.OrderItemID,
		ProductID:   r.ProductID,
		Quantity:    r.QuantityReturned,
		Status:      string(r.Status),
	}
}

func (s *ReturnService) reload(ctx context.Context, r *model.Return) *model.Return {
	if full, err := s.store.Returns().GetByID(ctx, r.ID); err == nil {
		return full
	}
	return r
}

func (s *ReturnService) Get(ctx context.Context, id uint64) (*model.Return, error) {
	if id == 0 {
		return nil, apperr.Validation("Invalid return ID")
	}
	r, err := s.store.Returns().GetByID(ctx, id)
	if err != nil {
		return nil, returnNotFound(err)
	}
	return r, nil
}

func (s *ReturnService) List(ctx context.Context, f model.ReturnFilter) ([]model.Return, error) {
	if err := checkLimit(f.Limit); err != nil {
		return nil, err
	}
	if f.Status != nil && !f.Status.Valid() {
		return nil, apperr.Validation("Invalid status")
	}
	rs, err := s.store.Returns().List(ctx, f)
	if err != nil {
		return nil, apperr.Internal(err, "Failed to fetch returns")
	}
	return rs, nil
}

// ListByProduct lists the returns of one product, newest first.
func (s *ReturnService) ListByProduct(ctx context.Context, productID uint64, limit int) ([]model.Return, error) {
	if productID == 0 {
		return nil, apperr.Validation("Invalid product ID")
	}
	if _, err := s.store.Products().GetByID(ctx, productID); err != nil {
		return nil, productNotFound(err)
	}
	return s.List(ctx, model.ReturnFilter{ProductID: &productID, Limit: limit})
}

func (s *ReturnService) Statistics(ctx context.Context, f model.ReturnFilter) (*model.ReturnStatistics, error) {
	if f.Status != nil && !f.Status.Valid() {
		return nil, apperr.Validation("Invalid status")
	}
	st, err := s.store.Returns().Statistics(ctx, f)
	if err != nil {
		return nil, apperr.Internal(err, "Failed to fetch statistics")
	}
	return st, nil
}
