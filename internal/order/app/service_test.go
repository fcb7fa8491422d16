package app_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	catalogapp "github.com/ishopping/marketplace/internal/catalog/app"
	catalogdomain "github.com/ishopping/marketplace/internal/catalog/domain"
	catalogmem "github.com/ishopping/marketplace/internal/catalog/infra/memory"
	"github.com/ishopping/marketplace/internal/identity"
	"github.com/ishopping/marketplace/internal/order/app"
	"github.com/ishopping/marketplace/internal/order/domain"
	ordermem "github.com/ishopping/marketplace/internal/order/infra/memory"
)

var (
	buyer      = identity.Identity{UserID: "c1", Role: identity.RoleCustomer, Username: "buyer"}
	otherBuyer = identity.Identity{UserID: "c2", Role: identity.RoleCustomer, Username: "lurker"}
	merchant   = identity.Identity{UserID: "s1", Role: identity.RoleSeller, Username: "shop"}
	rival      = identity.Identity{UserID: "s2", Role: identity.RoleSeller, Username: "rival"}
	admin      = identity.Identity{UserID: "a1", Role: identity.RoleAdmin, Username: "root"}
)

// catalogReader bridges the in-memory product store to the builder's
// lookup without going through the catalog service.
type catalogReader struct {
	repo *catalogmem.ProductRepo
}

func (r catalogReader) GetProduct(ctx context.Context, id string) (catalogdomain.Product, error) {
	return r.repo.Get(ctx, id)
}

type env struct {
	products *catalogmem.ProductRepo
	orders   *ordermem.OrderRepo
	svc      *app.Service
}

func newEnv(t *testing.T) env {
	t.Helper()
	products := catalogmem.NewProductRepo()
	orders := ordermem.NewOrderRepo(products)
	builder := app.NewBuilder(catalogReader{repo: products}, 0)
	svc := app.NewService(orders, builder, nil, nil, nil)
	return env{products: products, orders: orders, svc: svc}
}

func (e env) seed(t *testing.T, sellerID, name string, amount int64, stock int32) catalogdomain.Product {
	t.Helper()
	p, err := e.products.Create(context.Background(), catalogdomain.Product{
		SellerID: sellerID,
		Name:     name,
		Price:    catalogdomain.Money{Currency: "USD", Amount: amount},
		Stock:    stock,
		Status:   catalogdomain.ProductOnSale,
	})
	if err != nil {
		t.Fatalf("seed %s: %v", name, err)
	}
	return p
}

func (e env) stockOf(t *testing.T, id string) (int32, catalogdomain.ProductStatus) {
	t.Helper()
	p, err := e.products.Get(context.Background(), id)
	if err != nil {
		t.Fatalf("get product: %v", err)
	}
	return p.Stock, p.Status
}

func TestCreateOrder(t *testing.T) {
	ctx := context.Background()

	t.Run("totals, snapshot and stock decrement", func(t *testing.T) {
		e := newEnv(t)
		p := e.seed(t, merchant.UserID, "Mug", 2599, 5)

		order, err := e.svc.CreateOrder(ctx, buyer, app.CreateOrderRequest{
			ShippingAddr:   "1 Main St",
			ReceiverName:   "Buyer",
			ReceiverPhone:  "555-0100",
			PaymentMethod:  "CARD",
			DiscountAmount: 100,
			ShippingFee:    500,
			Items:          []app.OrderItemRequest{{ProductID: p.ID, Quantity: 3}},
		})
		if err != nil {
			t.Fatalf("CreateOrder: %v", err)
		}

		if order.Status != domain.OrderPending {
			t.Fatalf("status = %q, want PENDING", order.Status)
		}
		if order.OrderNumber == "" || order.ID == "" {
			t.Fatalf("order missing identifiers: %+v", order)
		}
		if order.SellerID != merchant.UserID || order.UserID != buyer.UserID {
			t.Fatalf("parties wrong: seller=%q user=%q", order.SellerID, order.UserID)
		}
		if want := int64(3 * 2599); order.TotalAmount != want {
			t.Fatalf("total = %d, want %d", order.TotalAmount, want)
		}
		if want := int64(3*2599 - 100 + 500); order.ActualAmount != want {
			t.Fatalf("actual = %d, want %d", order.ActualAmount, want)
		}
		if len(order.Items) != 1 {
			t.Fatalf("items = %d, want 1", len(order.Items))
		}
		item := order.Items[0]
		if item.Name != "Mug" || item.UnitAmount != 2599 || item.LineTotalAmount != 3*2599 {
			t.Fatalf("item snapshot wrong: %+v", item)
		}

		stock, _ := e.stockOf(t, p.ID)
		if stock != 2 {
			t.Fatalf("stock after order = %d, want 2", stock)
		}
	})

	t.Run("cancel restores stock", func(t *testing.T) {
		e := newEnv(t)
		p := e.seed(t, merchant.UserID, "Mug", 2599, 5)

		order, err := e.svc.CreateOrder(ctx, buyer, app.CreateOrderRequest{
			Items: []app.OrderItemRequest{{ProductID: p.ID, Quantity: 3}},
		})
		if err != nil {
			t.Fatalf("CreateOrder: %v", err)
		}

		cancelled, err := e.svc.CancelOrder(ctx, buyer, order.ID)
		if err != nil {
			t.Fatalf("CancelOrder: %v", err)
		}
		if cancelled.Status != domain.OrderCancelled {
			t.Fatalf("status = %q, want CANCELLED", cancelled.Status)
		}
		stock, _ := e.stockOf(t, p.ID)
		if stock != 5 {
			t.Fatalf("stock after cancel = %d, want 5", stock)
		}
	})

	t.Run("last unit flips product out of stock, cancel revives it", func(t *testing.T) {
		e := newEnv(t)
		p := e.seed(t, merchant.UserID, "Mug", 2599, 1)

		order, err := e.svc.CreateOrder(ctx, buyer, app.CreateOrderRequest{
			Items: []app.OrderItemRequest{{ProductID: p.ID, Quantity: 1}},
		})
		if err != nil {
			t.Fatalf("CreateOrder: %v", err)
		}
		stock, status := e.stockOf(t, p.ID)
		if stock != 0 || status != catalogdomain.ProductOutOfStock {
			t.Fatalf("got stock=%d status=%q, want 0 OUT_OF_STOCK", stock, status)
		}

		if _, err := e.svc.CancelOrder(ctx, buyer, order.ID); err != nil {
			t.Fatalf("CancelOrder: %v", err)
		}
		stock, status = e.stockOf(t, p.ID)
		if stock != 1 || status != catalogdomain.ProductOnSale {
			t.Fatalf("got stock=%d status=%q, want 1 ON_SALE", stock, status)
		}
	})

	t.Run("multi-seller cart rejected before any mutation", func(t *testing.T) {
		e := newEnv(t)
		p1 := e.seed(t, merchant.UserID, "Mug", 2599, 5)
		p2 := e.seed(t, rival.UserID, "Lamp", 1099, 5)

		_, err := e.svc.CreateOrder(ctx, buyer, app.CreateOrderRequest{
			Items: []app.OrderItemRequest{
				{ProductID: p1.ID, Quantity: 1},
				{ProductID: p2.ID, Quantity: 1},
			},
		})
		if !errors.Is(err, app.ErrMultiSellerOrder) {
			t.Fatalf("expected ErrMultiSellerOrder, got %v", err)
		}
		for _, id := range []string{p1.ID, p2.ID} {
			if stock, _ := e.stockOf(t, id); stock != 5 {
				t.Fatalf("stock of %s mutated: %d", id, stock)
			}
		}
	})

	t.Run("insufficient stock", func(t *testing.T) {
		e := newEnv(t)
		p := e.seed(t, merchant.UserID, "Mug", 2599, 2)

		_, err := e.svc.CreateOrder(ctx, buyer, app.CreateOrderRequest{
			Items: []app.OrderItemRequest{{ProductID: p.ID, Quantity: 3}},
		})
		if !errors.Is(err, catalogapp.ErrInsufficientStock) {
			t.Fatalf("expected ErrInsufficientStock, got %v", err)
		}
		if stock, _ := e.stockOf(t, p.ID); stock != 2 {
			t.Fatalf("stock mutated on rejected order: %d", stock)
		}
	})

	t.Run("off sale product rejected", func(t *testing.T) {
		e := newEnv(t)
		p := e.seed(t, merchant.UserID, "Mug", 2599, 5)
		p.Status = catalogdomain.ProductOffSale
		if _, err := e.products.Update(ctx, p); err != nil {
			t.Fatalf("update: %v", err)
		}

		_, err := e.svc.CreateOrder(ctx, buyer, app.CreateOrderRequest{
			Items: []app.OrderItemRequest{{ProductID: p.ID, Quantity: 1}},
		})
		if !errors.Is(err, catalogapp.ErrProductUnavailable) {
			t.Fatalf("expected ErrProductUnavailable, got %v", err)
		}
	})

	t.Run("only customers order", func(t *testing.T) {
		e := newEnv(t)
		p := e.seed(t, merchant.UserID, "Mug", 2599, 5)

		_, err := e.svc.CreateOrder(ctx, merchant, app.CreateOrderRequest{
			Items: []app.OrderItemRequest{{ProductID: p.ID, Quantity: 1}},
		})
		if !errors.Is(err, app.ErrAuthorization) {
			t.Fatalf("expected ErrAuthorization, got %v", err)
		}
	})

	t.Run("empty order", func(t *testing.T) {
		e := newEnv(t)
		_, err := e.svc.CreateOrder(ctx, buyer, app.CreateOrderRequest{})
		if !errors.Is(err, app.ErrEmptyOrder) {
			t.Fatalf("expected ErrEmptyOrder, got %v", err)
		}
	})

	t.Run("discount exceeding total rejected", func(t *testing.T) {
		e := newEnv(t)
		p := e.seed(t, merchant.UserID, "Mug", 100, 5)

		_, err := e.svc.CreateOrder(ctx, buyer, app.CreateOrderRequest{
			DiscountAmount: 1000,
			Items:          []app.OrderItemRequest{{ProductID: p.ID, Quantity: 1}},
		})
		if !errors.Is(err, app.ErrInvalidInput) {
			t.Fatalf("expected ErrInvalidInput, got %v", err)
		}
	})
}

func TestCreateOrderConcurrentLastUnit(t *testing.T) {
	e := newEnv(t)
	p := e.seed(t, merchant.UserID, "Mug", 2599, 1)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := range errs {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = e.svc.CreateOrder(context.Background(), buyer, app.CreateOrderRequest{
				Items: []app.OrderItemRequest{{ProductID: p.ID, Quantity: 1}},
			})
		}()
	}
	wg.Wait()

	var ok, failed int
	for _, err := range errs {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, catalogapp.ErrInsufficientStock) || errors.Is(err, catalogapp.ErrProductUnavailable):
			failed++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if ok != 1 || failed != 1 {
		t.Fatalf("want exactly one winner, got ok=%d failed=%d", ok, failed)
	}
	if stock, _ := e.stockOf(t, p.ID); stock != 0 {
		t.Fatalf("stock = %d, want 0", stock)
	}
}

func TestCancelOrderReleasesOnce(t *testing.T) {
	ctx := context.Background()

	t.Run("second cancel loses", func(t *testing.T) {
		e := newEnv(t)
		p := e.seed(t, merchant.UserID, "Mug", 2599, 5)
		order, err := e.svc.CreateOrder(ctx, buyer, app.CreateOrderRequest{
			Items: []app.OrderItemRequest{{ProductID: p.ID, Quantity: 3}},
		})
		if err != nil {
			t.Fatalf("CreateOrder: %v", err)
		}

		// Both callers hold the same PENDING aggregate; the store must
		// arbitrate, not the stale reads.
		if _, err := e.orders.CancelOrderTx(ctx, order); err != nil {
			t.Fatalf("first cancel: %v", err)
		}
		if _, err := e.orders.CancelOrderTx(ctx, order); !errors.Is(err, app.ErrInvalidTransition) {
			t.Fatalf("second cancel: expected ErrInvalidTransition, got %v", err)
		}

		if stock, _ := e.stockOf(t, p.ID); stock != 5 {
			t.Fatalf("stock = %d, want 5 (released exactly once)", stock)
		}
	})

	t.Run("concurrent cancels, one winner", func(t *testing.T) {
		e := newEnv(t)
		p := e.seed(t, merchant.UserID, "Mug", 2599, 5)
		order, err := e.svc.CreateOrder(ctx, buyer, app.CreateOrderRequest{
			Items: []app.OrderItemRequest{{ProductID: p.ID, Quantity: 3}},
		})
		if err != nil {
			t.Fatalf("CreateOrder: %v", err)
		}

		var wg sync.WaitGroup
		errs := make([]error, 4)
		for i := range errs {
			i := i
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, errs[i] = e.svc.CancelOrder(ctx, buyer, order.ID)
			}()
		}
		wg.Wait()

		var ok int
		for _, err := range errs {
			switch {
			case err == nil:
				ok++
			case errors.Is(err, app.ErrInvalidTransition):
			default:
				t.Fatalf("unexpected error: %v", err)
			}
		}
		if ok != 1 {
			t.Fatalf("winners = %d, want 1", ok)
		}
		if stock, _ := e.stockOf(t, p.ID); stock != 5 {
			t.Fatalf("stock = %d, want 5 (released exactly once)", stock)
		}
	})
}

func TestRefundedOrderIsFrozen(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	order := placeOrder(t, e, 1)

	// REFUNDED is only ever written by the external payment process; the
	// repo write stands in for it here.
	if _, err := e.orders.UpdateStatus(ctx, order.ID, domain.OrderRefunded); err != nil {
		t.Fatalf("UpdateStatus: %v", err)
	}

	if _, err := e.svc.UpdateOrderStatus(ctx, admin, order.ID, domain.OrderPaid); !errors.Is(err, app.ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}
	if _, err := e.svc.CancelOrder(ctx, buyer, order.ID); !errors.Is(err, app.ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}

	// Terminal, so the customer may hard-delete it.
	if err := e.svc.DeleteOrder(ctx, buyer, order.ID); err != nil {
		t.Fatalf("DeleteOrder: %v", err)
	}
}

func TestCreateOrderTxAllOrNothing(t *testing.T) {
	// Drive the repo directly with a stale aggregate so the second line
	// fails reservation after the first already decremented.
	e := newEnv(t)
	p1 := e.seed(t, merchant.UserID, "Mug", 2599, 5)
	p2 := e.seed(t, merchant.UserID, "Lamp", 1099, 1)

	_, err := e.orders.CreateOrderTx(context.Background(), domain.Order{
		UserID:   buyer.UserID,
		SellerID: merchant.UserID,
		Status:   domain.OrderPending,
		Items: []domain.OrderItem{
			{ProductID: p1.ID, Quantity: 2},
			{ProductID: p2.ID, Quantity: 3},
		},
	})
	if !errors.Is(err, catalogapp.ErrInsufficientStock) {
		t.Fatalf("expected ErrInsufficientStock, got %v", err)
	}
	if stock, _ := e.stockOf(t, p1.ID); stock != 5 {
		t.Fatalf("first line not compensated, stock = %d, want 5", stock)
	}
	if stock, _ := e.stockOf(t, p2.ID); stock != 1 {
		t.Fatalf("second line mutated, stock = %d, want 1", stock)
	}
}

func placeOrder(t *testing.T, e env, qty int32) domain.Order {
	t.Helper()
	p := e.seed(t, merchant.UserID, "Mug", 2599, 10)
	order, err := e.svc.CreateOrder(context.Background(), buyer, app.CreateOrderRequest{
		Items: []app.OrderItemRequest{{ProductID: p.ID, Quantity: qty}},
	})
	if err != nil {
		t.Fatalf("place order: %v", err)
	}
	return order
}

func TestUpdateOrderStatus(t *testing.T) {
	ctx := context.Background()

	t.Run("happy path chain", func(t *testing.T) {
		e := newEnv(t)
		order := placeOrder(t, e, 1)

		for _, to := range []domain.OrderStatus{domain.OrderPaid, domain.OrderDelivered, domain.OrderCompleted} {
			updated, err := e.svc.UpdateOrderStatus(ctx, admin, order.ID, to)
			if err != nil {
				t.Fatalf("transition to %s: %v", to, err)
			}
			if updated.Status != to {
				t.Fatalf("status = %q, want %q", updated.Status, to)
			}
		}
	})

	t.Run("skipping a step rejected", func(t *testing.T) {
		e := newEnv(t)
		order := placeOrder(t, e, 1)

		_, err := e.svc.UpdateOrderStatus(ctx, admin, order.ID, domain.OrderDelivered)
		if !errors.Is(err, app.ErrInvalidTransition) {
			t.Fatalf("expected ErrInvalidTransition, got %v", err)
		}
	})

	t.Run("terminal order is frozen", func(t *testing.T) {
		e := newEnv(t)
		order := placeOrder(t, e, 1)
		if _, err := e.svc.CancelOrder(ctx, admin, order.ID); err != nil {
			t.Fatalf("CancelOrder: %v", err)
		}

		_, err := e.svc.UpdateOrderStatus(ctx, admin, order.ID, domain.OrderPaid)
		if !errors.Is(err, app.ErrInvalidTransition) {
			t.Fatalf("expected ErrInvalidTransition, got %v", err)
		}
	})

	t.Run("unknown status rejected", func(t *testing.T) {
		e := newEnv(t)
		order := placeOrder(t, e, 1)

		_, err := e.svc.UpdateOrderStatus(ctx, admin, order.ID, domain.OrderStatus("SHIPPED"))
		if !errors.Is(err, app.ErrInvalidInput) {
			t.Fatalf("expected ErrInvalidInput, got %v", err)
		}
	})

	t.Run("cancellation via status update releases stock", func(t *testing.T) {
		e := newEnv(t)
		p := e.seed(t, merchant.UserID, "Lamp", 1099, 4)
		order, err := e.svc.CreateOrder(ctx, buyer, app.CreateOrderRequest{
			Items: []app.OrderItemRequest{{ProductID: p.ID, Quantity: 4}},
		})
		if err != nil {
			t.Fatalf("CreateOrder: %v", err)
		}

		updated, err := e.svc.UpdateOrderStatus(ctx, admin, order.ID, domain.OrderCancelled)
		if err != nil {
			t.Fatalf("UpdateOrderStatus: %v", err)
		}
		if updated.Status != domain.OrderCancelled {
			t.Fatalf("status = %q, want CANCELLED", updated.Status)
		}
		if stock, _ := e.stockOf(t, p.ID); stock != 4 {
			t.Fatalf("stock = %d, want 4", stock)
		}
	})

	t.Run("seller cannot complete", func(t *testing.T) {
		e := newEnv(t)
		order := placeOrder(t, e, 1)
		if _, err := e.svc.UpdateOrderStatus(ctx, admin, order.ID, domain.OrderPaid); err != nil {
			t.Fatalf("to PAID: %v", err)
		}
		if _, err := e.svc.UpdateOrderStatus(ctx, merchant, order.ID, domain.OrderDelivered); err != nil {
			t.Fatalf("seller to DELIVERED: %v", err)
		}

		_, err := e.svc.UpdateOrderStatus(ctx, merchant, order.ID, domain.OrderCompleted)
		if !errors.Is(err, app.ErrAuthorization) {
			t.Fatalf("expected ErrAuthorization, got %v", err)
		}
	})

	t.Run("seller cannot touch another seller's sale", func(t *testing.T) {
		e := newEnv(t)
		order := placeOrder(t, e, 1)

		_, err := e.svc.UpdateOrderStatus(ctx, rival, order.ID, domain.OrderPaid)
		if !errors.Is(err, app.ErrAccessDenied) {
			t.Fatalf("expected ErrAccessDenied, got %v", err)
		}
	})

	t.Run("customer cannot mark paid", func(t *testing.T) {
		e := newEnv(t)
		order := placeOrder(t, e, 1)

		_, err := e.svc.UpdateOrderStatus(ctx, buyer, order.ID, domain.OrderPaid)
		if !errors.Is(err, app.ErrAuthorization) {
			t.Fatalf("expected ErrAuthorization, got %v", err)
		}
	})

	t.Run("customer cannot cancel someone else's order", func(t *testing.T) {
		e := newEnv(t)
		order := placeOrder(t, e, 1)

		_, err := e.svc.CancelOrder(ctx, otherBuyer, order.ID)
		if !errors.Is(err, app.ErrAccessDenied) {
			t.Fatalf("expected ErrAccessDenied, got %v", err)
		}
	})
}

func TestConfirmOrder(t *testing.T) {
	ctx := context.Background()

	deliver := func(t *testing.T, e env, id string) {
		t.Helper()
		if _, err := e.svc.UpdateOrderStatus(ctx, admin, id, domain.OrderPaid); err != nil {
			t.Fatalf("to PAID: %v", err)
		}
		if _, err := e.svc.UpdateOrderStatus(ctx, admin, id, domain.OrderDelivered); err != nil {
			t.Fatalf("to DELIVERED: %v", err)
		}
	}

	t.Run("delivered order completes", func(t *testing.T) {
		e := newEnv(t)
		order := placeOrder(t, e, 1)
		deliver(t, e, order.ID)

		confirmed, err := e.svc.ConfirmOrder(ctx, buyer, order.ID)
		if err != nil {
			t.Fatalf("ConfirmOrder: %v", err)
		}
		if confirmed.Status != domain.OrderCompleted {
			t.Fatalf("status = %q, want COMPLETED", confirmed.Status)
		}
	})

	t.Run("only the buyer confirms", func(t *testing.T) {
		e := newEnv(t)
		order := placeOrder(t, e, 1)
		deliver(t, e, order.ID)

		if _, err := e.svc.ConfirmOrder(ctx, otherBuyer, order.ID); !errors.Is(err, app.ErrAccessDenied) {
			t.Fatalf("expected ErrAccessDenied, got %v", err)
		}
		if _, err := e.svc.ConfirmOrder(ctx, merchant, order.ID); !errors.Is(err, app.ErrAuthorization) {
			t.Fatalf("expected ErrAuthorization, got %v", err)
		}
	})

	t.Run("undelivered order cannot be confirmed", func(t *testing.T) {
		e := newEnv(t)
		order := placeOrder(t, e, 1)

		_, err := e.svc.ConfirmOrder(ctx, buyer, order.ID)
		if !errors.Is(err, app.ErrInvalidTransition) {
			t.Fatalf("expected ErrInvalidTransition, got %v", err)
		}
	})
}

func TestGetOrderVisibility(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	order := placeOrder(t, e, 1)

	for _, who := range []identity.Identity{buyer, merchant, admin} {
		if _, err := e.svc.GetOrder(ctx, who, order.ID); err != nil {
			t.Fatalf("%s should see order: %v", who.Role, err)
		}
	}
	for _, who := range []identity.Identity{otherBuyer, rival} {
		if _, err := e.svc.GetOrder(ctx, who, order.ID); !errors.Is(err, app.ErrAccessDenied) {
			t.Fatalf("%s/%s should be denied, got %v", who.Role, who.UserID, err)
		}
	}

	if _, err := e.svc.GetOrder(ctx, admin, "missing"); !errors.Is(err, app.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestListAndSearch(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	order := placeOrder(t, e, 1)

	t.Run("customer list scoped to own purchases", func(t *testing.T) {
		mine, err := e.svc.ListOrders(ctx, buyer, 0, 20)
		if err != nil {
			t.Fatalf("ListOrders: %v", err)
		}
		if len(mine) != 1 || mine[0].ID != order.ID {
			t.Fatalf("buyer list = %+v", mine)
		}

		theirs, err := e.svc.ListOrders(ctx, otherBuyer, 0, 20)
		if err != nil {
			t.Fatalf("ListOrders: %v", err)
		}
		if len(theirs) != 0 {
			t.Fatalf("other buyer sees %d orders", len(theirs))
		}
	})

	t.Run("filter by status", func(t *testing.T) {
		pending, err := e.svc.ListOrdersByStatus(ctx, buyer, domain.OrderPending, 0, 20)
		if err != nil {
			t.Fatalf("ListOrdersByStatus: %v", err)
		}
		if len(pending) != 1 {
			t.Fatalf("pending = %d, want 1", len(pending))
		}

		if _, err := e.svc.ListOrdersByStatus(ctx, buyer, "NOPE", 0, 20); !errors.Is(err, app.ErrInvalidInput) {
			t.Fatalf("expected ErrInvalidInput, got %v", err)
		}
	})

	t.Run("search is for sellers and admins", func(t *testing.T) {
		if _, err := e.svc.SearchOrders(ctx, buyer, "ORD", 0, 20); !errors.Is(err, app.ErrAuthorization) {
			t.Fatalf("expected ErrAuthorization, got %v", err)
		}

		hits, err := e.svc.SearchOrders(ctx, merchant, order.OrderNumber[:6], 0, 20)
		if err != nil {
			t.Fatalf("SearchOrders: %v", err)
		}
		if len(hits) != 1 || hits[0].ID != order.ID {
			t.Fatalf("search hits = %+v", hits)
		}

		none, err := e.svc.SearchOrders(ctx, rival, order.OrderNumber, 0, 20)
		if err != nil {
			t.Fatalf("SearchOrders: %v", err)
		}
		if len(none) != 0 {
			t.Fatalf("rival seller found %d orders", len(none))
		}
	})
}

func TestOrderStats(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	order := placeOrder(t, e, 2)

	if _, err := e.svc.OrderStats(ctx, buyer); !errors.Is(err, app.ErrAuthorization) {
		t.Fatalf("expected ErrAuthorization, got %v", err)
	}

	stats, err := e.svc.OrderStats(ctx, admin)
	if err != nil {
		t.Fatalf("OrderStats: %v", err)
	}
	if stats.TotalOrders != 1 {
		t.Fatalf("total orders = %d, want 1", stats.TotalOrders)
	}
	if stats.TotalAmount != order.TotalAmount {
		t.Fatalf("total amount = %d, want %d", stats.TotalAmount, order.TotalAmount)
	}
	if stats.CountByStatus[domain.OrderPending] != 1 {
		t.Fatalf("pending count = %d, want 1", stats.CountByStatus[domain.OrderPending])
	}
}

func TestDeleteOrder(t *testing.T) {
	ctx := context.Background()

	t.Run("non-terminal order cannot be deleted", func(t *testing.T) {
		e := newEnv(t)
		order := placeOrder(t, e, 1)

		if err := e.svc.DeleteOrder(ctx, buyer, order.ID); !errors.Is(err, app.ErrInvalidInput) {
			t.Fatalf("expected ErrInvalidInput, got %v", err)
		}
	})

	t.Run("buyer deletes own cancelled order", func(t *testing.T) {
		e := newEnv(t)
		order := placeOrder(t, e, 1)
		if _, err := e.svc.CancelOrder(ctx, buyer, order.ID); err != nil {
			t.Fatalf("CancelOrder: %v", err)
		}

		if err := e.svc.DeleteOrder(ctx, buyer, order.ID); err != nil {
			t.Fatalf("DeleteOrder: %v", err)
		}
		if _, err := e.svc.GetOrder(ctx, admin, order.ID); !errors.Is(err, app.ErrNotFound) {
			t.Fatalf("expected ErrNotFound after delete, got %v", err)
		}
	})

	t.Run("seller cannot delete", func(t *testing.T) {
		e := newEnv(t)
		order := placeOrder(t, e, 1)
		if _, err := e.svc.CancelOrder(ctx, buyer, order.ID); err != nil {
			t.Fatalf("CancelOrder: %v", err)
		}

		if err := e.svc.DeleteOrder(ctx, merchant, order.ID); !errors.Is(err, app.ErrAccessDenied) {
			t.Fatalf("expected ErrAccessDenied, got %v", err)
		}
	})

	t.Run("batch collects per-id outcomes", func(t *testing.T) {
		e := newEnv(t)
		done := placeOrder(t, e, 1)
		if _, err := e.svc.CancelOrder(ctx, buyer, done.ID); err != nil {
			t.Fatalf("CancelOrder: %v", err)
		}
		pending := placeOrder(t, e, 1)

		results := e.svc.BatchDeleteOrders(ctx, buyer, []string{done.ID, pending.ID, "missing"})
		if len(results) != 3 {
			t.Fatalf("results = %d, want 3", len(results))
		}
		if results[0].Err != nil {
			t.Fatalf("cancelled order should delete: %v", results[0].Err)
		}
		if !errors.Is(results[1].Err, app.ErrInvalidInput) {
			t.Fatalf("pending order: expected ErrInvalidInput, got %v", results[1].Err)
		}
		if !errors.Is(results[2].Err, app.ErrNotFound) {
			t.Fatalf("missing order: expected ErrNotFound, got %v", results[2].Err)
		}
	})
}
