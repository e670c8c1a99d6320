package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Money is written to JSON as a number, the same form clients send it in.
func init() { decimal.MarshalJSONWithoutQuotes = true }

// Category groups products.  The first letters of its name become the
// SKU prefix of the products created in it.
type Category struct {
	ID        uint64    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// Product mirrors the `products` table.  QuantityInStock is only changed
// together with an inventory log entry.
type Product struct {
	ID              uint64          `json:"id"`
	Name            string          `json:"name"`
	Description     *string         `json:"description"`
	SKU             string          `json:"sku"`
	Price           decimal.Decimal `json:"price"`
	QuantityInStock int             `json:"quantity_in_stock"`
	CategoryID      uint64          `json:"category_id"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// NewProduct is the input of product creation.
type NewProduct struct {
	Name            string          `json:"name"`
	Description     *string         `json:"description"`
	Price           decimal.Decimal `json:"price"`
	QuantityInStock *int            `json:"quantity_in_stock"`
	CategoryID      uint64          `json:"category_id"`
}

// ProductUpdate lists the fields that may be changed after creation.  A nil
// pointer leaves the column untouched.
type ProductUpdate struct {
	Name            *string          `json:"name"`
	Description     *string          `json:"description"`
	Price           *decimal.Decimal `json:"price"`
	QuantityInStock *int             `json:"quantity_in_stock"`
}

func (u ProductUpdate) Empty() bool {
	return u.Name == nil && u.Description == nil && u.Price == nil && u.QuantityInStock == nil
}

// ProductFilter narrows product listings.
type ProductFilter struct {
	CategoryID *uint64
	PriceMin   *decimal.Decimal
	PriceMax   *decimal.Decimal
	Limit      int
}
