package app

import (
	"context"
	"errors"

	"github.com/ishopping/marketplace/internal/cart/domain"
	catalogdomain "github.com/ishopping/marketplace/internal/catalog/domain"
)

var (
	ErrInvalidInput = errors.New("invalid input")
	ErrNotFound     = errors.New("cart item not found")
)

type CartRepo interface {
	List(ctx context.Context, userID string) ([]domain.CartItem, error)
	Get(ctx context.Context, userID, productID string) (domain.CartItem, error)

	// Upsert inserts the line or replaces its quantity.
	Upsert(ctx context.Context, item domain.CartItem) (domain.CartItem, error)

	Remove(ctx context.Context, userID, productID string) error
	Clear(ctx context.Context, userID string) error
}

type CatalogReader interface {
	GetProduct(ctx context.Context, productID string) (catalogdomain.Product, error)
}
