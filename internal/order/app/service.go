package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	catalogapp "github.com/ishopping/marketplace/internal/catalog/app"
	"github.com/ishopping/marketplace/internal/events"
	"github.com/ishopping/marketplace/internal/identity"
	"github.com/ishopping/marketplace/internal/order/domain"
	"github.com/ishopping/marketplace/pkg/metrics"
)

// Service orchestrates the order lifecycle: it runs the builder, commits
// through the repo's transactional operations, and applies the state
// machine plus role gating to every mutation.
type Service struct {
	repo    OrderRepo
	builder *Builder
	log     *slog.Logger
	metrics *metrics.OrderMetrics
	events  *events.Publisher
}

func NewService(repo OrderRepo, builder *Builder, log *slog.Logger, m *metrics.OrderMetrics, pub *events.Publisher) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{repo: repo, builder: builder, log: log, metrics: m, events: pub}
}

func (s *Service) CreateOrder(ctx context.Context, who identity.Identity, req CreateOrderRequest) (domain.Order, error) {
	order, err := s.builder.Build(ctx, who, req)
	if err != nil {
		return domain.Order{}, err
	}

	created, err := s.repo.CreateOrderTx(ctx, order)
	if err != nil {
		if errors.Is(err, catalogapp.ErrInsufficientStock) || errors.Is(err, catalogapp.ErrProductUnavailable) {
			s.metrics.IncReservationFailure()
		}
		return domain.Order{}, err
	}

	s.metrics.IncCreated()
	s.publish(ctx, events.OrderCreated, created)
	s.log.Info("order created",
		slog.String("order_id", created.ID),
		slog.String("order_number", created.OrderNumber),
		slog.Int64("actual_amount", created.ActualAmount),
	)
	return created, nil
}

func (s *Service) GetOrder(ctx context.Context, who identity.Identity, orderID string) (domain.Order, error) {
	order, err := s.repo.Get(ctx, orderID)
	if err != nil {
		return domain.Order{}, err
	}
	if !canView(who, order) {
		return domain.Order{}, fmt.Errorf("%w: order %s", ErrAccessDenied, orderID)
	}
	return order, nil
}

// ListOrders is role-scoped: customers see their purchases, sellers their
// sales, admins everything. Newest first.
func (s *Service) ListOrders(ctx context.Context, who identity.Identity, page, size int) ([]domain.Order, error) {
	page, size = clampPage(page, size)
	return s.repo.List(ctx, s.scope(who), page, size)
}

func (s *Service) ListOrdersByStatus(ctx context.Context, who identity.Identity, status domain.OrderStatus, page, size int) ([]domain.Order, error) {
	if !domain.ValidStatus(status) {
		return nil, fmt.Errorf("%w: unknown status %q", ErrInvalidInput, status)
	}
	f := s.scope(who)
	f.Status = status
	page, size = clampPage(page, size)
	return s.repo.List(ctx, f, page, size)
}

func (s *Service) UpdateOrderStatus(ctx context.Context, who identity.Identity, orderID string, to domain.OrderStatus) (domain.Order, error) {
	if !domain.ValidStatus(to) {
		return domain.Order{}, fmt.Errorf("%w: unknown status %q", ErrInvalidInput, to)
	}

	order, err := s.repo.Get(ctx, orderID)
	if err != nil {
		return domain.Order{}, err
	}
	if err := checkTransition(who, order, to); err != nil {
		return domain.Order{}, err
	}
	if !domain.CanTransition(order.Status, to) {
		return domain.Order{}, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, order.Status, to)
	}

	// Cancellation is not a plain status write: reserved stock goes back.
	if to == domain.OrderCancelled {
		return s.cancel(ctx, order)
	}

	updated, err := s.repo.UpdateStatus(ctx, orderID, to)
	if err != nil {
		return domain.Order{}, err
	}

	if to == domain.OrderCompleted {
		s.metrics.IncCompleted()
	}
	s.publish(ctx, events.OrderStatusChanged, updated)
	s.log.Info("order status updated",
		slog.String("order_id", orderID),
		slog.String("from", string(order.Status)),
		slog.String("to", string(to)),
	)
	return updated, nil
}

func (s *Service) CancelOrder(ctx context.Context, who identity.Identity, orderID string) (domain.Order, error) {
	order, err := s.repo.Get(ctx, orderID)
	if err != nil {
		return domain.Order{}, err
	}
	if err := checkTransition(who, order, domain.OrderCancelled); err != nil {
		return domain.Order{}, err
	}
	if !order.Cancellable() {
		return domain.Order{}, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, order.Status, domain.OrderCancelled)
	}
	return s.cancel(ctx, order)
}

func (s *Service) cancel(ctx context.Context, order domain.Order) (domain.Order, error) {
	cancelled, err := s.repo.CancelOrderTx(ctx, order)
	if err != nil {
		return domain.Order{}, err
	}

	s.metrics.IncCancelled()
	s.publish(ctx, events.OrderCancelled, cancelled)
	s.log.Info("order cancelled, stock restored",
		slog.String("order_id", cancelled.ID),
		slog.Int("lines", len(cancelled.Items)),
	)
	return cancelled, nil
}

// ConfirmOrder is the customer's confirm-receipt shortcut: DELIVERED
// becomes COMPLETED on their own order, nothing else.
func (s *Service) ConfirmOrder(ctx context.Context, who identity.Identity, orderID string) (domain.Order, error) {
	if !who.IsCustomer() {
		return domain.Order{}, fmt.Errorf("%w: only customers confirm receipt", ErrAuthorization)
	}

	order, err := s.repo.Get(ctx, orderID)
	if err != nil {
		return domain.Order{}, err
	}
	if order.UserID != who.UserID {
		return domain.Order{}, fmt.Errorf("%w: order %s belongs to another customer", ErrAccessDenied, orderID)
	}
	if order.Status != domain.OrderDelivered {
		return domain.Order{}, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, order.Status, domain.OrderCompleted)
	}

	updated, err := s.repo.UpdateStatus(ctx, orderID, domain.OrderCompleted)
	if err != nil {
		return domain.Order{}, err
	}

	s.metrics.IncCompleted()
	s.publish(ctx, events.OrderStatusChanged, updated)
	return updated, nil
}

// SearchOrders matches order numbers by substring. Admins search globally,
// sellers within their own sales; customers are not permitted.
func (s *Service) SearchOrders(ctx context.Context, who identity.Identity, keyword string, page, size int) ([]domain.Order, error) {
	if who.IsCustomer() {
		return nil, fmt.Errorf("%w: search is for sellers and admins", ErrAuthorization)
	}
	f := s.scope(who)
	f.OrderNumber = keyword
	page, size = clampPage(page, size)
	return s.repo.List(ctx, f, page, size)
}

func (s *Service) OrderStats(ctx context.Context, who identity.Identity) (Stats, error) {
	if who.IsCustomer() {
		return Stats{}, fmt.Errorf("%w: statistics are for sellers and admins", ErrAuthorization)
	}
	return s.repo.Stats(ctx, s.scope(who))
}

// DeleteOrder hard-deletes a terminal order and its items. Allowed to the
// admin or the customer who placed it.
func (s *Service) DeleteOrder(ctx context.Context, who identity.Identity, orderID string) error {
	order, err := s.repo.Get(ctx, orderID)
	if err != nil {
		return err
	}
	if !canDelete(who, order) {
		return fmt.Errorf("%w: order %s", ErrAccessDenied, orderID)
	}
	if !domain.IsTerminal(order.Status) {
		return fmt.Errorf("%w: order %s is %s, only cancelled or completed orders can be deleted",
			ErrInvalidInput, orderID, order.Status)
	}
	return s.repo.Delete(ctx, orderID)
}

type BatchDeleteResult struct {
	OrderID string
	Err     error
}

// BatchDeleteOrders processes each id independently, collecting per-id
// outcomes instead of aborting the batch on the first failure.
func (s *Service) BatchDeleteOrders(ctx context.Context, who identity.Identity, orderIDs []string) []BatchDeleteResult {
	results := make([]BatchDeleteResult, 0, len(orderIDs))
	for _, id := range orderIDs {
		results = append(results, BatchDeleteResult{
			OrderID: id,
			Err:     s.DeleteOrder(ctx, who, id),
		})
	}
	return results
}

func (s *Service) scope(who identity.Identity) Filter {
	switch who.Role {
	case identity.RoleAdmin:
		return Filter{}
	case identity.RoleSeller:
		return Filter{SellerID: who.UserID}
	default:
		return Filter{UserID: who.UserID}
	}
}

// publish is best effort: a broker outage must never fail the business
// operation that already committed.
func (s *Service) publish(ctx context.Context, eventType string, o domain.Order) {
	err := s.events.PublishOrderEvent(ctx, events.OrderEvent{
		Type:        eventType,
		OrderID:     o.ID,
		OrderNumber: o.OrderNumber,
		UserID:      o.UserID,
		SellerID:    o.SellerID,
		Status:      string(o.Status),
		Amount:      o.ActualAmount,
	})
	if err != nil {
		s.log.Warn("order event publish failed",
			slog.String("type", eventType),
			slog.String("order_id", o.ID),
			slog.Any("err", err),
		)
	}
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
