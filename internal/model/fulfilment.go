package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// DeliveryStatus is the shipping state of a delivery.
type DeliveryStatus string

const (
	DeliveryPending   DeliveryStatus = "pending"
	DeliveryShipped   DeliveryStatus = "shipped"
	DeliveryDelivered DeliveryStatus = "delivered"
	DeliveryFailed    DeliveryStatus = "failed"
)

func (s DeliveryStatus) Valid() bool {
	switch s {
	case DeliveryPending, DeliveryShipped, DeliveryDelivered, DeliveryFailed:
		return true
	}
	return false
}

// Delivery tracks the shipment of a completed order.  There is at most one
// delivery per order.
type Delivery struct {
	ID                   uint64         `json:"id"`
	OrderID              uint64         `json:"order_id"`
	TrackingNumber       string         `json:"tracking_number"`
	Status               DeliveryStatus `json:"status"`
	ExpectedDeliveryDate time.Time      `json:"expected_delivery_date"`
	ActualDeliveryDate   *time.Time     `json:"actual_delivery_date"`
	CreatedAt            time.Time      `json:"created_at"`
	UpdatedAt            time.Time      `json:"updated_at"`
}

// DeliveryFilter narrows delivery listings.
type DeliveryFilter struct {
	Status   *DeliveryStatus
	OrderID  *uint64
	DateFrom *time.Time
	DateTo   *time.Time
	Limit    int
}

// ReturnStatus is the processing state of a return request.
type ReturnStatus string

const (
	ReturnRequested ReturnStatus = "requested"
	ReturnApproved  ReturnStatus = "approved"
	ReturnRejected  ReturnStatus = "rejected"
	ReturnRefunded  ReturnStatus = "refunded"
)

func (s ReturnStatus) Valid() bool {
	switch s {
	case ReturnRequested, ReturnApproved, ReturnRejected, ReturnRefunded:
		return true
	}
	return false
}

// Return is a request to send back part of an order item.  The product
// and order fields are joined for display.
type Return struct {
	ID                  uint64       `json:"id"`
	OrderItemID         uint64       `json:"order_item_id"`
	OrderID             uint64       `json:"order_id"`
	ProductID           uint64       `json:"product_id"`
	ProductName         string       `json:"product_name,omitempty"`
	ProductSKU          string       `json:"product_sku,omitempty"`
	OrderedQuantity     int          `json:"ordered_quantity"`
	QuantityReturned    int          `json:"quantity_returned"`
	Reason              *string      `json:"reason"`
	Status              ReturnStatus `json:"status"`
	ProcessedBy         *uint64      `json:"processed_by"`
	ProcessedByUsername *string      `json:"processed_by_username,omitempty"`
	CreatedAt           time.Time    `json:"created_at"`
	UpdatedAt           time.Time    `json:"updated_at"`
}

// NewReturn is the input of a return request.
type NewReturn struct {
	OrderItemID      uint64  `json:"order_item_id"`
	QuantityReturned int     `json:"quantity_returned"`
	Reason           *string `json:"reason"`
}

// ReturnFilter narrows return listings and statistics.
type ReturnFilter struct {
	Status    *ReturnStatus
	ProductID *uint64
	DateFrom  *time.Time
	DateTo    *time.Time
	Limit     int
}

// ReturnStatistics aggregates returns matching a filter.
type ReturnStatistics struct {
	TotalReturns       int64           `json:"total_returns"`
	ApprovedReturns    int64           `json:"approved_returns"`
	RejectedReturns    int64           `json:"rejected_returns"`
	PendingReturns     int64           `json:"pending_returns"`
	TotalItemsReturned int64           `json:"total_items_returned"`
	AvgReturnQuantity  decimal.Decimal `json:"avg_return_quantity"`
}
