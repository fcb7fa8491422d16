package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/ishopping/marketplace/internal/cart/domain"
	catalogapp "github.com/ishopping/marketplace/internal/catalog/app"
	"github.com/ishopping/marketplace/internal/identity"
)

type Service struct {
	repo    CartRepo
	catalog CatalogReader
}

func NewService(repo CartRepo, catalog CatalogReader) *Service {
	return &Service{repo: repo, catalog: catalog}
}

func (s *Service) GetCart(ctx context.Context, who identity.Identity) ([]domain.CartItem, error) {
	return s.repo.List(ctx, who.UserID)
}

// AddToCart increments the line for (user, product), validating that the
// product is buyable and that the resulting quantity fits current stock.
// The check is advisory; checkout re-arbitrates atomically.
func (s *Service) AddToCart(ctx context.Context, who identity.Identity, productID string, qty int32) (domain.CartItem, error) {
	if qty <= 0 {
		return domain.CartItem{}, fmt.Errorf("%w: quantity must be positive, got %d", ErrInvalidInput, qty)
	}

	existing, err := s.repo.Get(ctx, who.UserID, productID)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return domain.CartItem{}, err
	}
	total := existing.Quantity + qty

	if err := s.checkStock(ctx, productID, total); err != nil {
		return domain.CartItem{}, err
	}

	return s.repo.Upsert(ctx, domain.CartItem{
		UserID:    who.UserID,
		ProductID: productID,
		Quantity:  total,
	})
}

// UpdateItem sets the line quantity outright; zero or less removes the
// line, matching the storefront's "set to 0 to drop" behavior.
func (s *Service) UpdateItem(ctx context.Context, who identity.Identity, productID string, qty int32) (domain.CartItem, error) {
	if _, err := s.repo.Get(ctx, who.UserID, productID); err != nil {
		return domain.CartItem{}, err
	}

	if qty <= 0 {
		return domain.CartItem{}, s.repo.Remove(ctx, who.UserID, productID)
	}

	if err := s.checkStock(ctx, productID, qty); err != nil {
		return domain.CartItem{}, err
	}

	return s.repo.Upsert(ctx, domain.CartItem{
		UserID:    who.UserID,
		ProductID: productID,
		Quantity:  qty,
	})
}

func (s *Service) RemoveFromCart(ctx context.Context, who identity.Identity, productID string) error {
	return s.repo.Remove(ctx, who.UserID, productID)
}

func (s *Service) ClearCart(ctx context.Context, who identity.Identity) error {
	return s.repo.Clear(ctx, who.UserID)
}

func (s *Service) checkStock(ctx context.Context, productID string, qty int32) error {
	p, err := s.catalog.GetProduct(ctx, productID)
	if err != nil {
		return err
	}
	if !p.Buyable() {
		return fmt.Errorf("%w: %s", catalogapp.ErrProductUnavailable, p.Name)
	}
	if p.Stock < qty {
		return fmt.Errorf("%w: %s has %d in stock, requested %d",
			catalogapp.ErrInsufficientStock, p.Name, p.Stock, qty)
	}
	return nil
}
