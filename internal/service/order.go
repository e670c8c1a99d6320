package service

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/iliyamo/backoffice-api/internal/apperr"
	"github.com/iliyamo/backoffice-api/internal/metrics"
	"github.com/iliyamo/backoffice-api/internal/model"
	"github.com/iliyamo/backoffice-api/internal/queue"
	"github.com/iliyamo/backoffice-api/internal/repository"
)

// OrderService runs the order state machine.  Creating an order takes the
// stock out as "sale" ledger entries; cancelling puts it back as "return"
// entries.  Completed and cancelled orders are terminal.
type OrderService struct {
	deps   Deps
	store  repository.Store
	ledger *Ledger
}

func NewOrderService(store repository.Store, ledger *Ledger, d Deps) *OrderService {
	return &OrderService{deps: d.withDefaults(), store: store, ledger: ledger}
}

func orderNotFound(err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return apperr.NotFound("Order not found")
	}
	return dbErr(err)
}

// mergeLines validates the requested lines and folds duplicates of the same
// product together.  The result is sorted by product id, the order in which
// product rows are locked.
func mergeLines(lines []model.OrderLine) ([]model.OrderLine, error) {
	if len(lines) == 0 {
		return nil, apperr.Validation("Order items are required")
	}
	qty := make(map[uint64]int, len(lines))
	for _, l := range lines {
		if l.ProductID == 0 {
			return nil, apperr.Validation("Each item must have product_id and quantity")
		}
		if l.Quantity <= 0 {
			return nil, apperr.Validation("Quantity must be greater than 0")
		}
		qty[l.ProductID] += l.Quantity
	}
	merged := make([]model.OrderLine, 0, len(qty))
	for id, q := range qty {
		merged = append(merged, model.OrderLine{ProductID: id, Quantity: q})
	}
	sort.Slice(merged, func(i, j int) bool { return merged[i].ProductID < merged[j].ProductID })
	return merged, nil
}

func orderEvent(o *model.Order, old model.OrderStatus) queue.OrderEvent {
	ev := queue.OrderEvent{
		OrderID:     o.ID,
		UserID:      o.UserID,
		Status:      string(o.Status),
		TotalAmount: o.TotalAmount,
	}
	if old != "" {
		ev.OldStatus = string(old)
	}
	for _, it := range o.Items {
		ev.Lines = append(ev.Lines, queue.OrderLineEvent{ProductID: it.ProductID, Quantity: it.Quantity, UnitPrice: it.UnitPrice})
	}
	return ev
}

// Create places an order for userID.  All product rows are locked, checked
// for stock and decremented in one transaction; the unit prices are
// snapshotted on the items.
func (s *OrderService) Create(ctx context.Context, userID uint64, lines []model.OrderLine) (*model.Order, error) {
	if userID == 0 {
		return nil, apperr.Validation("Invalid user ID")
	}
	merged, err := mergeLines(lines)
	if err != nil {
		return nil, err
	}

	var order *model.Order
	err = s.store.WithinTx(ctx, func(tx repository.Repos) error {
		products := make([]*model.Product, 0, len(merged))
		items := make([]model.OrderItem, 0, len(merged))
		total := decimal.Zero
		for _, l := range merged {
			p, err := tx.Products().GetForUpdate(ctx, l.ProductID)
			if errors.Is(err, repository.ErrNotFound) {
				return apperr.NotFound("Product not found: %d", l.ProductID)
			}
			if err != nil {
				return dbErr(err)
			}
			if l.Quantity > p.QuantityInStock {
				return apperr.Validation("Insufficient stock for product %d: requested %d, available %d",
					p.ID, l.Quantity, p.QuantityInStock)
			}
			item := model.OrderItem{ProductID: p.ID, Quantity: l.Quantity, UnitPrice: p.Price}
			total = total.Add(item.Subtotal())
			products = append(products, p)
			items = append(items, item)
		}

		o := &model.Order{
			UserID:      userID,
			TotalAmount: total,
			Status:      model.OrderPending,
			CreatedAt:   s.deps.now(),
			Items:       items,
		}
		if err := tx.Orders().Create(ctx, o); err != nil {
			if errors.Is(err, repository.ErrReferenced) {
				return apperr.NotFound("User not found")
			}
			return dbErr(err)
		}
		for i, p := range products {
			if err := s.ledger.Apply(ctx, tx, p, p.QuantityInStock-merged[i].Quantity, &userID, model.ChangeSale); err != nil {
				return err
			}
		}
		order = o
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.ObserveOrder(string(model.OrderPending))
	s.deps.Logger.Info("order created", "order_id", order.ID, "user_id", userID, "total", order.TotalAmount.StringFixed(2))
	s.deps.publish(ctx, queue.OrderCreated, &userID, orderEvent(order, ""))
	if full, err := s.store.Orders().GetByID(ctx, order.ID); err == nil {
		return full, nil
	}
	return order, nil
}

// Cancel cancels a pending or processing order and puts its items back in
// stock.  Each restored quantity is read back and compared with the
// expected value; a mismatch aborts the whole cancellation.
func (s *OrderService) Cancel(ctx context.Context, orderID, actorID uint64) (*model.Order, error) {
	var (
		order *model.Order
		old   model.OrderStatus
	)
	err := s.store.WithinTx(ctx, func(tx repository.Repos) error {
		o, err := tx.Orders().GetForUpdate(ctx, orderID)
		if err != nil {
			return orderNotFound(err)
		}
		switch o.Status {
		case model.OrderCancelled:
			return apperr.Conflict("Order is already cancelled")
		case model.OrderCompleted:
			return apperr.Conflict("Completed orders cannot be cancelled")
		}
		old = o.Status
		if err := tx.Orders().UpdateStatus(ctx, o.ID, model.OrderCancelled); err != nil {
			return dbErr(err)
		}

		items := append([]model.OrderItem(nil), o.Items...)
		sort.Slice(items, func(i, j int) bool { return items[i].ProductID < items[j].ProductID })
		for _, it := range items {
			p, err := tx.Products().GetForUpdate(ctx, it.ProductID)
			if err != nil {
				return apperr.Internal(err, "Failed to cancel order: product missing")
			}
			expected := p.QuantityInStock + it.Quantity
			if err := s.ledger.Apply(ctx, tx, p, expected, &actorID, model.ChangeReturn); err != nil {
				return err
			}
			check, err := tx.Products().GetByID(ctx, it.ProductID)
			if err != nil {
				return dbErr(err)
			}
			if check.QuantityInStock != expected {
				return apperr.Internal(
					fmt.Errorf("product %d: stock is %d, expected %d", it.ProductID, check.QuantityInStock, expected),
					"Stock verification failed while cancelling order")
			}
		}
		o.Status = model.OrderCancelled
		order = o
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.ObserveOrder(string(model.OrderCancelled))
	s.deps.Logger.Info("order cancelled", "order_id", orderID, "actor_id", actorID)
	s.deps.publish(ctx, queue.OrderCancelled, &actorID, orderEvent(order, old))
	return s.reload(ctx, order), nil
}

// UpdateStatus moves an order along pending → processing → completed.
// Cancelling is not a status update: it restores stock and goes through
// Cancel, which only admins may call.
func (s *OrderService) UpdateStatus(ctx context.Context, orderID uint64, status model.OrderStatus, actorID uint64) (*model.Order, error) {
	if status == "" {
		return nil, apperr.Validation("Status is required")
	}
	if !status.Valid() {
		return nil, apperr.Validation("Invalid status")
	}
	if status == model.OrderCancelled {
		return nil, apperr.Validation("Use the cancel endpoint to cancel an order")
	}

	var (
		order *model.Order
		old   model.OrderStatus
	)
	err := s.store.WithinTx(ctx, func(tx repository.Repos) error {
		o, err := tx.Orders().GetForUpdate(ctx, orderID)
		if err != nil {
			return orderNotFound(err)
		}
		switch {
		case o.Status == model.OrderCancelled:
			return apperr.Conflict("Cannot update status of cancelled order")
		case o.Status == model.OrderCompleted:
			return apperr.Conflict("Cannot update status of completed order")
		case o.Status == status:
			return apperr.Conflict("Order is already %s", status)
		case !o.Status.CanMoveTo(status):
			return apperr.Conflict("Cannot move order from %s to %s", o.Status, status)
		}
		if err := tx.Orders().UpdateStatus(ctx, o.ID, status); err != nil {
			return dbErr(err)
		}
		old = o.Status
		o.Status = status
		order = o
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.ObserveOrder(string(status))
	s.deps.publish(ctx, queue.OrderStatusChanged, &actorID, orderEvent(order, old))
	return s.reload(ctx, order), nil
}

// reload returns the stored view of o, falling back to o itself.
func (s *OrderService) reload(ctx context.Context, o *model.Order) *model.Order {
	if full, err := s.store.Orders().GetByID(ctx, o.ID); err == nil {
		return full
	}
	return o
}

func (s *OrderService) Get(ctx context.Context, id uint64) (*model.Order, error) {
	if id == 0 {
		return nil, apperr.Validation("Order ID is required")
	}
	o, err := s.store.Orders().GetByID(ctx, id)
	if err != nil {
		return nil, orderNotFound(err)
	}
	return o, nil
}

func (s *OrderService) List(ctx context.Context, f model.OrderFilter) ([]model.Order, error) {
	if err := checkLimit(f.Limit); err != nil {
		return nil, err
	}
	if f.Status != nil && !f.Status.Valid() {
		return nil, apperr.Validation("Invalid status")
	}
	orders, err := s.store.Orders().List(ctx, f)
	if err != nil {
		return nil, dbErr(err)
	}
	return orders, nil
}

// Statistics aggregates the orders matching f.  Cancelled orders count
// towards the totals but not towards revenue.
func (s *OrderService) Statistics(ctx context.Context, f model.OrderFilter) (*model.OrderStatistics, error) {
	if f.Status != nil && !f.Status.Valid() {
		return nil, apperr.Validation("Invalid status")
	}
	st, err := s.store.Orders().Statistics(ctx, f)
	if err != nil {
		return nil, apperr.Internal(err, "Failed to fetch statistics")
	}
	return st, nil
}
