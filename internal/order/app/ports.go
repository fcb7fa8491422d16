package app

import (
	"context"
	"errors"

	catalogdomain "github.com/ishopping/marketplace/internal/catalog/domain"
	"github.com/ishopping/marketplace/internal/order/domain"
)

var (
	ErrInvalidInput      = errors.New("invalid input")
	ErrNotFound          = errors.New("order not found")
	ErrEmptyOrder        = errors.New("order has no items")
	ErrMultiSellerOrder  = errors.New("order items span multiple sellers")
	ErrInvalidTransition = errors.New("invalid status transition")
	// ErrAuthorization: the caller's role is not permitted to perform this
	// class of operation at all.
	ErrAuthorization = errors.New("operation not permitted for role")
	// ErrAccessDenied: the role is fine, but not against this order.
	ErrAccessDenied = errors.New("access denied")
)

// CatalogReader is the read-only product lookup the checkout builder runs
// against. Stock arbitration does not happen here; the store re-checks
// atomically at commit time.
type CatalogReader interface {
	GetProduct(ctx context.Context, productID string) (catalogdomain.Product, error)
}

// Filter narrows order listings. Zero values mean "no constraint";
// OrderNumber matches as a case-insensitive substring.
type Filter struct {
	UserID      string
	SellerID    string
	Status      domain.OrderStatus
	OrderNumber string
}

type Stats struct {
	TotalOrders   int64
	TotalAmount   int64
	CountByStatus map[domain.OrderStatus]int64
}

type OrderRepo interface {
	// CreateOrderTx persists the order, its items and every stock
	// reservation as one unit of work. A failed reservation aborts the
	// whole create; no partial decrement or partial order survives. The
	// store owns order-number uniqueness and regenerates on conflict.
	CreateOrderTx(ctx context.Context, order domain.Order) (domain.Order, error)

	// Get returns the order with its items eagerly loaded.
	Get(ctx context.Context, id string) (domain.Order, error)

	// List returns matching orders newest-first. page is 0-based.
	List(ctx context.Context, f Filter, page, size int) ([]domain.Order, error)

	UpdateStatus(ctx context.Context, id string, status domain.OrderStatus) (domain.Order, error)

	// CancelOrderTx re-checks that the order is still cancellable, sets
	// CANCELLED and releases the stock of every line in one unit of work.
	// A concurrent cancel that loses the status flip gets
	// ErrInvalidTransition and releases nothing.
	CancelOrderTx(ctx context.Context, order domain.Order) (domain.Order, error)

	// Delete removes the items, then the order.
	Delete(ctx context.Context, id string) error

	Stats(ctx context.Context, f Filter) (Stats, error)
}
