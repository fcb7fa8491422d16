package app

import (
	"context"
	"fmt"
	"strings"

	"github.com/ishopping/marketplace/internal/catalog/domain"
	"github.com/ishopping/marketplace/internal/identity"
)

type Service struct {
	repo   ProductRepo
	ledger *Ledger
}

func NewService(repo ProductRepo) *Service {
	return &Service{repo: repo, ledger: NewLedger(repo)}
}

func (s *Service) CreateProduct(ctx context.Context, who identity.Identity, p domain.Product) (domain.Product, error) {
	if !who.IsSeller() {
		return domain.Product{}, fmt.Errorf("%w: only sellers can create products", ErrRoleViolation)
	}

	p.Name = strings.TrimSpace(p.Name)
	p.Price.Currency = strings.TrimSpace(p.Price.Currency)

	if p.Name == "" || p.Price.Currency == "" {
		return domain.Product{}, fmt.Errorf("%w: name and currency are required", ErrInvalidInput)
	}
	if p.Price.Amount <= 0 {
		return domain.Product{}, fmt.Errorf("%w: price must be positive, got %d", ErrInvalidInput, p.Price.Amount)
	}
	if p.Stock < 0 {
		return domain.Product{}, fmt.Errorf("%w: stock cannot be negative, got %d", ErrInvalidInput, p.Stock)
	}

	p.SellerID = who.UserID
	p.Status = domain.ProductOnSale

	return s.repo.Create(ctx, p)
}

func (s *Service) GetProduct(ctx context.Context, id string) (domain.Product, error) {
	if strings.TrimSpace(id) == "" {
		return domain.Product{}, ErrInvalidInput
	}
	return s.repo.Get(ctx, id)
}

func (s *Service) UpdateProduct(ctx context.Context, who identity.Identity, id string, upd ProductUpdate) (domain.Product, error) {
	existing, err := s.repo.Get(ctx, id)
	if err != nil {
		return domain.Product{}, err
	}
	if existing.SellerID != who.UserID {
		return domain.Product{}, fmt.Errorf("%w: product belongs to another seller", ErrAccessDenied)
	}

	if upd.Name != nil {
		if strings.TrimSpace(*upd.Name) == "" {
			return domain.Product{}, fmt.Errorf("%w: name cannot be blank", ErrInvalidInput)
		}
		existing.Name = strings.TrimSpace(*upd.Name)
	}
	if upd.Description != nil {
		existing.Description = *upd.Description
	}
	if upd.Category != nil {
		existing.Category = *upd.Category
	}
	if upd.ImageURL != nil {
		existing.ImageURL = *upd.ImageURL
	}
	if upd.Price != nil {
		if upd.Price.Amount <= 0 {
			return domain.Product{}, fmt.Errorf("%w: price must be positive, got %d", ErrInvalidInput, upd.Price.Amount)
		}
		existing.Price = *upd.Price
	}
	if upd.Stock != nil {
		if *upd.Stock < 0 {
			return domain.Product{}, fmt.Errorf("%w: stock cannot be negative, got %d", ErrInvalidInput, *upd.Stock)
		}
		existing.Stock = *upd.Stock
	}
	if upd.Status != nil {
		existing.Status = *upd.Status
	}

	return s.repo.Update(ctx, existing)
}

// DeleteProduct soft-deletes: the row stays so historical order lines keep
// resolving, but the product disappears from listings and checkout.
func (s *Service) DeleteProduct(ctx context.Context, who identity.Identity, id string) error {
	existing, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	if existing.SellerID != who.UserID {
		return fmt.Errorf("%w: product belongs to another seller", ErrAccessDenied)
	}

	existing.Status = domain.ProductDeleted
	_, err = s.repo.Update(ctx, existing)
	return err
}

// Restock tops up inventory through the ledger, so an OUT_OF_STOCK product
// comes back on sale the same way a cancellation would revive it.
func (s *Service) Restock(ctx context.Context, who identity.Identity, id string, qty int32) (domain.Product, error) {
	existing, err := s.repo.Get(ctx, id)
	if err != nil {
		return domain.Product{}, err
	}
	if existing.SellerID != who.UserID {
		return domain.Product{}, fmt.Errorf("%w: product belongs to another seller", ErrAccessDenied)
	}

	if err := s.ledger.Release(ctx, id, qty); err != nil {
		return domain.Product{}, err
	}
	return s.repo.Get(ctx, id)
}

func (s *Service) ListOnSale(ctx context.Context, page, size int) ([]domain.Product, error) {
	page, size = clampPage(page, size)
	return s.repo.ListOnSale(ctx, page, size)
}

func (s *Service) ListMine(ctx context.Context, who identity.Identity, page, size int) ([]domain.Product, error) {
	if !who.IsSeller() {
		return nil, fmt.Errorf("%w: only sellers have a product list", ErrRoleViolation)
	}
	page, size = clampPage(page, size)
	return s.repo.ListBySeller(ctx, who.UserID, page, size)
}

func clampPage(page, size int) (int, int) {
	if page < 0 {
		page = 0
	}
	if size <= 0 {
		size = 20
	}
	if size > 100 {
		size = 100
	}
	return page, size
}
