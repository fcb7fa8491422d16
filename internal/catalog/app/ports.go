package app

import (
	"context"
	"errors"

	"github.com/ishopping/marketplace/internal/catalog/domain"
)

var (
	ErrInvalidInput       = errors.New("invalid input")
	ErrNotFound           = errors.New("not found")
	ErrRoleViolation      = errors.New("role not permitted")
	ErrAccessDenied       = errors.New("access denied")
	ErrInsufficientStock  = errors.New("insufficient stock")
	ErrProductUnavailable = errors.New("product unavailable")
)

// ProductUpdate carries a partial update; nil fields are left untouched.
type ProductUpdate struct {
	Name        *string
	Description *string
	Category    *string
	ImageURL    *string
	Price       *domain.Money
	Stock       *int32
	Status      *domain.ProductStatus
}

type ProductRepo interface {
	Create(ctx context.Context, p domain.Product) (domain.Product, error)
	Get(ctx context.Context, id string) (domain.Product, error)
	Update(ctx context.Context, p domain.Product) (domain.Product, error)

	// ListOnSale returns ON_SALE products, newest first. page is 0-based.
	ListOnSale(ctx context.Context, page, size int) ([]domain.Product, error)
	ListBySeller(ctx context.Context, sellerID string, page, size int) ([]domain.Product, error)

	// DecrementStock atomically runs "stock -= qty where stock >= qty and
	// status = ON_SALE". It fails with ErrInsufficientStock,
	// ErrProductUnavailable or ErrNotFound without mutating anything.
	DecrementStock(ctx context.Context, id string, qty int32) error

	// IncrementStock atomically runs "stock += qty", flipping OUT_OF_STOCK
	// back to ON_SALE. It does not resurrect OFF_SALE or DELETED products.
	IncrementStock(ctx context.Context, id string, qty int32) error
}
