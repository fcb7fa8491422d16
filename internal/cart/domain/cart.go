package domain

import "time"

// CartItem is one (user, product) line. The cart holds intent only: no
// stock is reserved until checkout, where stock is the sole arbiter.
type CartItem struct {
	UserID    string
	ProductID string
	Quantity  int32
	CreatedAt time.Time
	UpdatedAt time.Time
}
