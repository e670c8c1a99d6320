package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderStatus is the lifecycle state of an order.
type OrderStatus string

const (
	OrderPending    OrderStatus = "pending"
	OrderProcessing OrderStatus = "processing"
	OrderCompleted  OrderStatus = "completed"
	OrderCancelled  OrderStatus = "cancelled"
)

// Valid reports whether s is one of the enumerated statuses.
func (s OrderStatus) Valid() bool {
	switch s {
	case OrderPending, OrderProcessing, OrderCompleted, OrderCancelled:
		return true
	}
	return false
}

// Terminal reports whether no further transition is allowed out of s.
func (s OrderStatus) Terminal() bool { return s == OrderCompleted || s == OrderCancelled }

// CanMoveTo reports whether the order state machine allows s → next.
// Cancellation is allowed from every non terminal state.
func (s OrderStatus) CanMoveTo(next OrderStatus) bool {
	switch s {
	case OrderPending:
		return next == OrderProcessing || next == OrderCancelled
	case OrderProcessing:
		return next == OrderCompleted || next == OrderCancelled
	}
	return false
}

// Order groups the items bought in one checkout.
//
// Fields:
//
//	ID          – primary key identifier.
//	UserID      – back-office user who placed the order.
//	Username    – joined from users, empty when the user is gone.
//	TotalAmount – Σ unit_price × quantity, fixed at creation.
//	Status      – pending, processing, completed or cancelled.
//	Items       – lines of the order.
type Order struct {
	ID          uint64          `json:"id"`
	UserID      uint64          `json:"user_id"`
	Username    string          `json:"username,omitempty"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	Status      OrderStatus     `json:"status"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
	Items       []OrderItem     `json:"items"`
}

// OrderItem is one line of an order.  UnitPrice is the product price at
// the time the order was placed.
type OrderItem struct {
	ID          uint64          `json:"id"`
	OrderID     uint64          `json:"order_id"`
	ProductID   uint64          `json:"product_id"`
	ProductName string          `json:"product_name,omitempty"`
	ProductSKU  string          `json:"product_sku,omitempty"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
}

// Subtotal returns unit price × quantity.
func (i OrderItem) Subtotal() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// OrderLine is a requested line of a new order.
type OrderLine struct {
	ProductID uint64 `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

// OrderFilter narrows order listings and statistics.
type OrderFilter struct {
	Status   *OrderStatus
	UserID   *uint64
	DateFrom *time.Time
	DateTo   *time.Time
	Limit    int
}

// OrderStatistics aggregates orders matching a filter.  TotalRevenue and
// AverageOrderValue are computed over non-cancelled orders only, so a
// status=cancelled filter reports both as zero; TotalOrders and
// CancelledOrders still count cancelled orders.
type OrderStatistics struct {
	TotalOrders       int64           `json:"total_orders"`
	TotalRevenue      decimal.Decimal `json:"total_revenue"`
	CompletedOrders   int64           `json:"completed_orders"`
	CancelledOrders   int64           `json:"cancelled_orders"`
	AverageOrderValue decimal.Decimal `json:"average_order_value"`
}
