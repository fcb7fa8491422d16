package domain

import "time"

type OrderStatus string

const (
	OrderPending   OrderStatus = "PENDING"
	OrderPaid      OrderStatus = "PAID"
	OrderDelivered OrderStatus = "DELIVERED"
	OrderCompleted OrderStatus = "COMPLETED"
	OrderCancelled OrderStatus = "CANCELLED"
	// OrderRefunded is terminal and only ever set by an external payment
	// process; no modeled transition leads into it.
	OrderRefunded OrderStatus = "REFUNDED"
)

// transitions is the full legality table. Role gating sits on top of it in
// the application layer; nothing bypasses the table itself.
var transitions = map[OrderStatus][]OrderStatus{
	OrderPending:   {OrderPaid, OrderCancelled},
	OrderPaid:      {OrderDelivered, OrderCancelled},
	OrderDelivered: {OrderCompleted},
	OrderCompleted: {},
	OrderCancelled: {},
	OrderRefunded:  {},
}

func ValidStatus(s OrderStatus) bool {
	_, ok := transitions[s]
	return ok
}

func CanTransition(from, to OrderStatus) bool {
	for _, allowed := range transitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further transitions exist. Orders may only
// be hard-deleted from a terminal status.
func IsTerminal(s OrderStatus) bool {
	return ValidStatus(s) && len(transitions[s]) == 0
}

// OrderItem snapshots the product name and unit price at purchase time, so
// historical totals survive later price changes or product deletion.
type OrderItem struct {
	ID              string
	OrderID         string
	ProductID       string
	Name            string
	UnitAmount      int64
	Quantity        int32
	LineTotalAmount int64
}

// Order is the aggregate root; it exclusively owns its items. All items
// reference products of the single seller recorded on the order.
type Order struct {
	ID             string
	OrderNumber    string
	UserID         string
	SellerID       string
	Currency       string
	TotalAmount    int64
	DiscountAmount int64
	ShippingFee    int64
	ActualAmount   int64
	Status         OrderStatus
	ShippingAddr   string
	ReceiverName   string
	ReceiverPhone  string
	PaymentMethod  string
	Items          []OrderItem
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

func (o Order) Cancellable() bool {
	return o.Status == OrderPending || o.Status == OrderPaid
}
