package model

import "time"

// ChangeType is the reason recorded for a stock movement.
type ChangeType string

const (
	ChangeAdjustment ChangeType = "adjustment"
	ChangeSale       ChangeType = "sale"
	ChangeReturn     ChangeType = "return"
	ChangeRestock    ChangeType = "restock"
	ChangeInitial    ChangeType = "initial"
	ChangeDeletion   ChangeType = "deletion"
)

var changeDescriptions = map[ChangeType]string{
	ChangeAdjustment: "Manual stock adjustment or correction",
	ChangeSale:       "Stock decrease due to a sale",
	ChangeReturn:     "Stock increase due to a product return",
	ChangeRestock:    "Stock increase from a supplier delivery",
	ChangeInitial:    "Initial stock when the product was created",
	ChangeDeletion:   "Stock cleared because the product was deleted",
}

// Valid reports whether c is one of the enumerated change types.
func (c ChangeType) Valid() bool {
	_, ok := changeDescriptions[c]
	return ok
}

// Description returns a human readable explanation of c.
func (c ChangeType) Description() string { return changeDescriptions[c] }

// Display values used when a joined row no longer exists.
const (
	SystemUser     = "System"
	UnknownUser    = "Unknown User"
	DeletedProduct = "Deleted Product"
	MissingSKU     = "N/A"
)

// InventoryLog is one immutable row of the stock ledger.  UserID is nil for
// system-triggered changes.
type InventoryLog struct {
	ID          uint64
	ProductID   uint64
	UserID      *uint64
	OldQuantity int
	NewQuantity int
	ChangeType  ChangeType
	CreatedAt   time.Time
}

// InventoryLogRow is a ledger row joined with the user and product tables.
// The joined columns are nil when the referenced row is gone.
type InventoryLogRow struct {
	InventoryLog
	Username    *string
	ProductName *string
	ProductSKU  *string
}

// InventoryLogEntry is the rendered, client facing view of a ledger row.
type InventoryLogEntry struct {
	ID                    uint64     `json:"id"`
	ProductID             uint64     `json:"product_id"`
	ProductName           string     `json:"product_name"`
	ProductSKU            string     `json:"product_sku"`
	UserID                *uint64    `json:"user_id"`
	Username              string     `json:"username"`
	OldQuantity           int        `json:"old_quantity"`
	NewQuantity           int        `json:"new_quantity"`
	QuantityChange        int        `json:"quantity_change"`
	ChangeType            ChangeType `json:"change_type"`
	ChangeTypeDescription string     `json:"change_type_description"`
	CreatedAt             time.Time  `json:"created_at"`
}

// InventoryLogFilter narrows ledger listings.
type InventoryLogFilter struct {
	ProductID  *uint64
	UserID     *uint64
	ChangeType *ChangeType
	DateFrom   *time.Time
	DateTo     *time.Time
	Limit      int
}
