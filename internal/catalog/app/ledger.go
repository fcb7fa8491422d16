package app

import (
	"context"
	"fmt"
)

// Ledger is the only writer of product stock. Reserve and Release delegate
// to the repo's atomic conditional updates so two concurrent reservations
// against the same product can never both win the last unit.
type Ledger struct {
	repo ProductRepo
}

func NewLedger(repo ProductRepo) *Ledger {
	return &Ledger{repo: repo}
}

// Reserve decrements stock by qty, failing with ErrInsufficientStock or
// ErrProductUnavailable before any mutation is committed.
func (l *Ledger) Reserve(ctx context.Context, productID string, qty int32) error {
	if qty <= 0 {
		return fmt.Errorf("%w: reserve quantity must be positive, got %d", ErrInvalidInput, qty)
	}
	return l.repo.DecrementStock(ctx, productID, qty)
}

// Release returns qty units to stock. Used on cancellation; there is no
// upper bound to enforce.
func (l *Ledger) Release(ctx context.Context, productID string, qty int32) error {
	if qty <= 0 {
		return fmt.Errorf("%w: release quantity must be positive, got %d", ErrInvalidInput, qty)
	}
	return l.repo.IncrementStock(ctx, productID, qty)
}
