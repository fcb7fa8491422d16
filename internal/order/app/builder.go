package app

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	catalogapp "github.com/ishopping/marketplace/internal/catalog/app"
	catalogdomain "github.com/ishopping/marketplace/internal/catalog/domain"
	"github.com/ishopping/marketplace/internal/identity"
	"github.com/ishopping/marketplace/internal/order/domain"
	"golang.org/x/sync/errgroup"
)

type CreateOrderRequest struct {
	ShippingAddr   string
	ReceiverName   string
	ReceiverPhone  string
	PaymentMethod  string
	DiscountAmount int64
	ShippingFee    int64
	Items          []OrderItemRequest
}

type OrderItemRequest struct {
	ProductID string
	Quantity  int32
}

// Builder turns a checkout request into an unsaved order aggregate. It is
// pure computation over read-only product lookups; nothing is persisted and
// no stock moves until the orchestrator commits.
type Builder struct {
	catalog CatalogReader

	maxConcurrent int
}

func NewBuilder(catalog CatalogReader, maxConcurrent int) *Builder {
	if maxConcurrent <= 0 {
		maxConcurrent = 10
	}
	return &Builder{catalog: catalog, maxConcurrent: maxConcurrent}
}

func (b *Builder) Build(ctx context.Context, who identity.Identity, req CreateOrderRequest) (domain.Order, error) {
	if !who.IsCustomer() {
		return domain.Order{}, fmt.Errorf("%w: only customers can place orders", ErrAuthorization)
	}
	if len(req.Items) == 0 {
		return domain.Order{}, ErrEmptyOrder
	}
	if req.DiscountAmount < 0 {
		return domain.Order{}, fmt.Errorf("%w: discount cannot be negative, got %d", ErrInvalidInput, req.DiscountAmount)
	}
	if req.ShippingFee < 0 {
		return domain.Order{}, fmt.Errorf("%w: shipping fee cannot be negative, got %d", ErrInvalidInput, req.ShippingFee)
	}
	for i, it := range req.Items {
		if it.Quantity <= 0 {
			return domain.Order{}, fmt.Errorf("%w: item %d: quantity must be positive, got %d", ErrInvalidInput, i, it.Quantity)
		}
	}

	products := make([]catalogdomain.Product, len(req.Items))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.maxConcurrent)

	for idx := range req.Items {
		idx := idx
		g.Go(func() error {
			it := req.Items[idx]
			p, err := b.catalog.GetProduct(gctx, it.ProductID)
			if err != nil {
				return fmt.Errorf("product %s: %w", it.ProductID, err)
			}
			products[idx] = p
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return domain.Order{}, err
	}

	// Validation runs in request order so the first offending line wins,
	// and the seller of line one fixes the seller for the whole order.
	order := domain.Order{
		UserID:         who.UserID,
		OrderNumber:    NewOrderNumber(),
		Status:         domain.OrderPending,
		DiscountAmount: req.DiscountAmount,
		ShippingFee:    req.ShippingFee,
		ShippingAddr:   req.ShippingAddr,
		ReceiverName:   req.ReceiverName,
		ReceiverPhone:  req.ReceiverPhone,
		PaymentMethod:  req.PaymentMethod,
	}

	for i, it := range req.Items {
		p := products[i]

		if !p.Buyable() {
			return domain.Order{}, fmt.Errorf("%w: %s", catalogapp.ErrProductUnavailable, p.Name)
		}
		if p.Stock < it.Quantity {
			return domain.Order{}, fmt.Errorf("%w: %s has %d in stock, requested %d",
				catalogapp.ErrInsufficientStock, p.Name, p.Stock, it.Quantity)
		}

		if i == 0 {
			order.SellerID = p.SellerID
			order.Currency = p.Price.Currency
		} else {
			if p.SellerID != order.SellerID {
				return domain.Order{}, fmt.Errorf("%w: %s belongs to a different seller", ErrMultiSellerOrder, p.Name)
			}
			if p.Price.Currency != order.Currency {
				return domain.Order{}, fmt.Errorf("%w: %s is priced in %s, order is in %s",
					ErrInvalidInput, p.Name, p.Price.Currency, order.Currency)
			}
		}

		lineTotal := p.Price.Amount * int64(it.Quantity)
		order.Items = append(order.Items, domain.OrderItem{
			ProductID:       p.ID,
			Name:            p.Name,
			UnitAmount:      p.Price.Amount,
			Quantity:        it.Quantity,
			LineTotalAmount: lineTotal,
		})
		order.TotalAmount += lineTotal
	}

	order.ActualAmount = order.TotalAmount - order.DiscountAmount + order.ShippingFee
	if order.ActualAmount < 0 {
		return domain.Order{}, fmt.Errorf("%w: discount %d exceeds order total %d",
			ErrInvalidInput, order.DiscountAmount, order.TotalAmount+order.ShippingFee)
	}

	return order, nil
}

// NewOrderNumber generates an opaque order number. The format is not a
// contract; uniqueness is, and the store enforces it, regenerating on
// conflict.
func NewOrderNumber() string {
	return fmt.Sprintf("ORD%d%04d", time.Now().UnixMilli(), rand.Intn(10000))
}
