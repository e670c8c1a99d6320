package service

import (
	"context"
	"errors"
	"time"

	"github.com/iliyamo/backoffice-api/internal/apperr"
	"github.com/iliyamo/backoffice-api/internal/model"
	"github.com/iliyamo/backoffice-api/internal/queue"
	"github.com/iliyamo/backoffice-api/internal/repository"
	"github.com/iliyamo/backoffice-api/internal/utils"
)

// Working days between the creation of a delivery and its expected arrival.
const deliveryLeadDays = 5

// DeliveryService ships completed orders.  An order has at most one
// delivery; a delivered delivery no longer changes.
type DeliveryService struct {
	deps   Deps
	store  repository.Store
	suffix func() string
}

func NewDeliveryService(store repository.Store, d Deps) *DeliveryService {
	return &DeliveryService{
		deps:   d.withDefaults(),
		store:  store,
		suffix: func() string { return utils.RandomSuffix(4) },
	}
}

func deliveryNotFound(err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return apperr.NotFound("Delivery not found")
	}
	return dbErr(err)
}

func deliveryEvent(d *model.Delivery) queue.DeliveryEvent {
	return queue.DeliveryEvent{
		DeliveryID:     d.ID,
		OrderID:        d.OrderID,
		TrackingNumber: d.TrackingNumber,
		Status:         string(d.Status),
	}
}

// Create opens the delivery of a completed order.
func (s *DeliveryService) Create(ctx context.Context, orderID, actorID uint64) (*model.Delivery, error) {
	if orderID == 0 {
		return nil, apperr.Validation("Order ID is required")
	}
	var created *model.Delivery
	err := s.store.WithinTx(ctx, func(tx repository.Repos) error {
		o, err := tx.Orders().GetForUpdate(ctx, orderID)
		if err != nil {
			return orderNotFound(err)
		}
		if o.Status != model.OrderCompleted {
			return apperr.Conflict("Can only create delivery for completed orders")
		}
		if _, err := tx.Deliveries().GetByOrderID(ctx, o.ID); err == nil {
			return apperr.Conflict("A delivery already exists for this order")
		} else if !errors.Is(err, repository.ErrNotFound) {
			return dbErr(err)
		}

		now := s.deps.now()
		expected := utils.AddWeekdays(now, deliveryLeadDays)
		d := &model.Delivery{
			OrderID:              o.ID,
			TrackingNumber:       utils.TrackingNumber(o.CreatedAt, o.ID, o.UserID, s.suffix()),
			Status:               model.DeliveryPending,
			ExpectedDeliveryDate: time.Date(expected.Year(), expected.Month(), expected.Day(), 0, 0, 0, 0, time.UTC),
			CreatedAt:            now,
		}
		if err := tx.Deliveries().Create(ctx, d); err != nil {
			if errors.Is(err, repository.ErrDuplicate) {
				return apperr.Conflict("A delivery already exists for this order")
			}
			return apperr.Internal(err, "Failed to create delivery")
		}
		created = d
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.deps.Logger.Info("delivery created", "delivery_id", created.ID, "order_id", orderID, "tracking", created.TrackingNumber)
	s.deps.publish(ctx, queue.DeliveryUpdated, &actorID, deliveryEvent(created))
	return created, nil
}

// UpdateStatus moves a delivery to status.  The actual delivery date is
// stamped when it becomes delivered.
func (s *DeliveryService) UpdateStatus(ctx context.Context, id uint64, status model.DeliveryStatus, actorID uint64) (*model.Delivery, error) {
	if status == "" {
		return nil, apperr.Validation("Status is required")
	}
	if !status.Valid() {
		return nil, apperr.Validation("Invalid status")
	}
	var updated *model.Delivery
	err := s.store.WithinTx(ctx, func(tx repository.Repos) error {
		d, err := tx.Deliveries().GetForUpdate(ctx, id)
		if err != nil {
			return deliveryNotFound(err)
		}
		if d.Status == model.DeliveryDelivered {
			return apperr.Conflict("Delivery has already been delivered")
		}
		var delivered *time.Time
		if status == model.DeliveryDelivered {
			delivered = ptr(s.deps.now())
		}
		if err := tx.Deliveries().UpdateStatus(ctx, d.ID, status, delivered); err != nil {
			return apperr.Internal(err, "Failed to update delivery")
		}
		d.Status = status
		d.ActualDeliveryDate = delivered
		updated = d
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.deps.publish(ctx, queue.DeliveryUpdated, &actorID, deliveryEvent(updated))
	if full, err := s.store.Deliveries().GetByID(ctx, id); err == nil {
		return full, nil
	}
	return updated, nil
}

func (s *DeliveryService) Get(ctx context.Context, id uint64) (*model.Delivery, error) {
	if id == 0 {
		return nil, apperr.Validation("Invalid delivery ID")
	}
	d, err := s.store.Deliveries().GetByID(ctx, id)
	if err != nil {
		return nil, deliveryNotFound(err)
	}
	return d, nil
}

func (s *DeliveryService) List(ctx context.Context, f model.DeliveryFilter) ([]model.Delivery, error) {
	if err := checkLimit(f.Limit); err != nil {
		return nil, err
	}
	if f.Status != nil && !f.Status.Valid() {
		return nil, apperr.Validation("Invalid status")
	}
	ds, err := s.store.Deliveries().List(ctx, f)
	if err != nil {
		return nil, apperr.Internal(err, "Failed to fetch deliveries")
	}
	return ds, nil
}

// ListByOrder returns the deliveries of an order (zero or one).
func (s *DeliveryService) ListByOrder(ctx context.Context, orderID uint64) ([]model.Delivery, error) {
	if orderID == 0 {
		return nil, apperr.Validation("Order ID is required")
	}
	if _, err := s.store.Orders().GetByID(ctx, orderID); err != nil {
		return nil, orderNotFound(err)
	}
	ds, err := s.store.Deliveries().List(ctx, model.DeliveryFilter{OrderID: &orderID})
	if err != nil {
		return nil, apperr.Internal(err, "Failed to fetch order deliveries")
	}
	return ds, nil
}
