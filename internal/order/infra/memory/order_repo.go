package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	catalogmem "github.com/ishopping/marketplace/internal/catalog/infra/memory"
	"github.com/ishopping/marketplace/internal/order/app"
	"github.com/ishopping/marketplace/internal/order/domain"
)

// OrderRepo keeps orders in memory and arbitrates stock through the shared
// in-memory product store, mirroring the observable behavior of the
// postgres repo: creation and cancellation are all-or-nothing.
type OrderRepo struct {
	mu       sync.Mutex
	orders   map[string]domain.Order
	numbers  map[string]struct{}
	products *catalogmem.ProductRepo
}

func NewOrderRepo(products *catalogmem.ProductRepo) *OrderRepo {
	return &OrderRepo{
		orders:   make(map[string]domain.Order),
		numbers:  make(map[string]struct{}),
		products: products,
	}
}

func (r *OrderRepo) CreateOrderTx(ctx context.Context, order domain.Order) (domain.Order, error) {
	// All reservations land under the product store lock; if one line
	// fails, the earlier lines are compensated before the lock drops, so
	// no partial decrement is ever observable.
	err := r.products.WithLock(func(tx catalogmem.StockTx) error {
		for i, item := range order.Items {
			if err := tx.Reserve(item.ProductID, item.Quantity); err != nil {
				for _, done := range order.Items[:i] {
					_ = tx.Release(done.ProductID, done.Quantity)
				}
				return err
			}
		}
		return nil
	})
	if err != nil {
		return domain.Order{}, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for _, taken := r.numbers[order.OrderNumber]; taken; _, taken = r.numbers[order.OrderNumber] {
		order.OrderNumber = app.NewOrderNumber()
	}
	r.numbers[order.OrderNumber] = struct{}{}

	now := time.Now().UTC()
	order.ID = uuid.NewString()
	order.CreatedAt = now
	order.UpdatedAt = now
	for i := range order.Items {
		order.Items[i].ID = uuid.NewString()
		order.Items[i].OrderID = order.ID
	}

	r.orders[order.ID] = cloneOrder(order)
	return order, nil
}

func (r *OrderRepo) Get(ctx context.Context, id string) (domain.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	o, ok := r.orders[id]
	if !ok {
		return domain.Order{}, app.ErrNotFound
	}
	return cloneOrder(o), nil
}

func (r *OrderRepo) List(ctx context.Context, f app.Filter, page, size int) ([]domain.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []domain.Order
	for _, o := range r.orders {
		if matches(o, f) {
			out = append(out, cloneOrder(o))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })

	start := page * size
	if start >= len(out) {
		return nil, nil
	}
	end := start + size
	if end > len(out) {
		end = len(out)
	}
	return out[start:end], nil
}

func (r *OrderRepo) UpdateStatus(ctx context.Context, id string, status domain.OrderStatus) (domain.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	o, ok := r.orders[id]
	if !ok {
		return domain.Order{}, app.ErrNotFound
	}
	o.Status = status
	o.UpdatedAt = time.Now().UTC()
	r.orders[id] = o
	return cloneOrder(o), nil
}

// CancelOrderTx flips the status under the store lock before touching
// stock, so of two concurrent cancels only the one that wins the flip
// releases; the loser returns ErrInvalidTransition.
func (r *OrderRepo) CancelOrderTx(ctx context.Context, order domain.Order) (domain.Order, error) {
	r.mu.Lock()
	o, ok := r.orders[order.ID]
	if !ok {
		r.mu.Unlock()
		return domain.Order{}, app.ErrNotFound
	}
	if !o.Cancellable() {
		r.mu.Unlock()
		return domain.Order{}, fmt.Errorf("%w: %s -> %s", app.ErrInvalidTransition, o.Status, domain.OrderCancelled)
	}
	o.Status = domain.OrderCancelled
	o.UpdatedAt = time.Now().UTC()
	r.orders[order.ID] = o
	r.mu.Unlock()

	err := r.products.WithLock(func(tx catalogmem.StockTx) error {
		for _, item := range o.Items {
			if err := tx.Release(item.ProductID, item.Quantity); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return domain.Order{}, err
	}
	return cloneOrder(o), nil
}

func (r *OrderRepo) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	o, ok := r.orders[id]
	if !ok {
		return app.ErrNotFound
	}
	delete(r.numbers, o.OrderNumber)
	delete(r.orders, id)
	return nil
}

func (r *OrderRepo) Stats(ctx context.Context, f app.Filter) (app.Stats, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	stats := app.Stats{CountByStatus: make(map[domain.OrderStatus]int64)}
	for _, o := range r.orders {
		if !matches(o, f) {
			continue
		}
		stats.TotalOrders++
		stats.TotalAmount += o.TotalAmount
		stats.CountByStatus[o.Status]++
	}
	return stats, nil
}

func matches(o domain.Order, f app.Filter) bool {
	if f.UserID != "" && o.UserID != f.UserID {
		return false
	}
	if f.SellerID != "" && o.SellerID != f.SellerID {
		return false
	}
	if f.Status != "" && o.Status != f.Status {
		return false
	}
	if f.OrderNumber != "" && !strings.Contains(strings.ToLower(o.OrderNumber), strings.ToLower(f.OrderNumber)) {
		return false
	}
	return true
}

func cloneOrder(o domain.Order) domain.Order {
	items := make([]domain.OrderItem, len(o.Items))
	copy(items, o.Items)
	o.Items = items
	return o
}
