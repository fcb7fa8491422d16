package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/ishopping/marketplace/internal/catalog/app"
	"github.com/ishopping/marketplace/internal/catalog/domain"
)

// ProductRepo is a mutex-guarded in-memory implementation of
// app.ProductRepo with the same observable semantics as the postgres repo.
// It backs tests and DB-less runs.
type ProductRepo struct {
	mu       sync.Mutex
	products map[string]domain.Product
}

func NewProductRepo() *ProductRepo {
	return &ProductRepo{products: make(map[string]domain.Product)}
}

func (r *ProductRepo) Create(ctx context.Context, p domain.Product) (domain.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now().UTC()
	p.ID = uuid.NewString()
	p.CreatedAt = now
	p.UpdatedAt = now
	r.products[p.ID] = p
	return p, nil
}

func (r *ProductRepo) Get(ctx context.Context, id string) (domain.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.get(id)
}

func (r *ProductRepo) get(id string) (domain.Product, error) {
	p, ok := r.products[id]
	if !ok {
		return domain.Product{}, app.ErrNotFound
	}
	return p, nil
}

func (r *ProductRepo) Update(ctx context.Context, p domain.Product) (domain.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.products[p.ID]; !ok {
		return domain.Product{}, app.ErrNotFound
	}
	p.UpdatedAt = time.Now().UTC()
	r.products[p.ID] = p
	return p, nil
}

func (r *ProductRepo) ListOnSale(ctx context.Context, page, size int) ([]domain.Product, error) {
	return r.list(func(p domain.Product) bool { return p.Status == domain.ProductOnSale }, page, size)
}

func (r *ProductRepo) ListBySeller(ctx context.Context, sellerID string, page, size int) ([]domain.Product, error) {
	return r.list(func(p domain.Product) bool {
		return p.SellerID == sellerID && p.Status != domain.ProductDeleted
	}, page, size)
}

func (r *ProductRepo) list(keep func(domain.Product) bool, page, size int) ([]domain.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []domain.Product
	for _, p := range r.products {
		if keep(p) {
			out = append(out, p)
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

func (r *ProductRepo) DecrementStock(ctx context.Context, id string, qty int32) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.decrement(id, qty)
}

func (r *ProductRepo) IncrementStock(ctx context.Context, id string, qty int32) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.increment(id, qty)
}

// decrement and increment are exposed through WithLock for callers that
// need several stock moves to land or fail as one unit.

func (r *ProductRepo) decrement(id string, qty int32) error {
	p, err := r.get(id)
	if err != nil {
		return err
	}
	if p.Status != domain.ProductOnSale {
		return app.ErrProductUnavailable
	}
	if p.Stock < qty {
		return app.ErrInsufficientStock
	}

	p.Stock -= qty
	if p.Stock == 0 {
		p.Status = domain.ProductOutOfStock
	}
	p.UpdatedAt = time.Now().UTC()
	r.products[id] = p
	return nil
}

func (r *ProductRepo) increment(id string, qty int32) error {
	p, err := r.get(id)
	if err != nil {
		return err
	}

	p.Stock += qty
	if p.Status == domain.ProductOutOfStock {
		p.Status = domain.ProductOnSale
	}
	p.UpdatedAt = time.Now().UTC()
	r.products[id] = p
	return nil
}

// StockTx runs fn while holding the store lock. fn reserves and releases
// through the passed ops; any error it returns must be preceded by its own
// compensation, the store does not snapshot.
type StockTx struct{ repo *ProductRepo }

func (t StockTx) Reserve(id string, qty int32) error { return t.repo.decrement(id, qty) }
func (t StockTx) Release(id string, qty int32) error { return t.repo.increment(id, qty) }

func (r *ProductRepo) WithLock(fn func(tx StockTx) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return fn(StockTx{repo: r})
}
