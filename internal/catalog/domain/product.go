package domain

import "time"

// Money is an amount in minor units (cents) plus its currency code.
type Money struct {
	Currency string
	Amount   int64
}

type ProductStatus string

const (
	ProductOnSale     ProductStatus = "ON_SALE"
	ProductOffSale    ProductStatus = "OFF_SALE"
	ProductOutOfStock ProductStatus = "OUT_OF_STOCK"
	ProductDeleted    ProductStatus = "DELETED"
)

// Product belongs to exactly one seller. Stock is mutated only through the
// inventory ledger operations; everything else is seller-editable.
type Product struct {
	ID          string
	SellerID    string
	Name        string
	Description string
	Category    string
	ImageURL    string
	Price       Money
	Stock       int32
	Status      ProductStatus
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Buyable reports whether the product can appear on a new order line.
func (p Product) Buyable() bool {
	return p.Status == ProductOnSale
}
