package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/ishopping/marketplace/internal/cart/app"
	"github.com/ishopping/marketplace/internal/cart/domain"
)

type key struct{ userID, productID string }

type CartRepo struct {
	mu    sync.Mutex
	items map[key]domain.CartItem
}

func NewCartRepo() *CartRepo {
	return &CartRepo{items: make(map[key]domain.CartItem)}
}

func (r *CartRepo) List(ctx context.Context, userID string) ([]domain.CartItem, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []domain.CartItem
	for k, it := range r.items {
		if k.userID == userID {
			out = append(out, it)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (r *CartRepo) Get(ctx context.Context, userID, productID string) (domain.CartItem, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	it, ok := r.items[key{userID, productID}]
	if !ok {
		return domain.CartItem{}, app.ErrNotFound
	}
	return it, nil
}

func (r *CartRepo) Upsert(ctx context.Context, item domain.CartItem) (domain.CartItem, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	k := key{item.UserID, item.ProductID}
	now := time.Now().UTC()
	if existing, ok := r.items[k]; ok {
		item.CreatedAt = existing.CreatedAt
	} else {
		item.CreatedAt = now
	}
	item.UpdatedAt = now
	r.items[k] = item
	return item, nil
}

func (r *CartRepo) Remove(ctx context.Context, userID, productID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	k := key{userID, productID}
	if _, ok := r.items[k]; !ok {
		return app.ErrNotFound
	}
	delete(r.items, k)
	return nil
}

func (r *CartRepo) Clear(ctx context.Context, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for k := range r.items {
		if k.userID == userID {
			delete(r.items, k)
		}
	}
	return nil
}
