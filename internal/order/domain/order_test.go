package domain

import "testing"

func TestTransitionTable(t *testing.T) {
	allowed := []struct{ from, to OrderStatus }{
		{OrderPending, OrderPaid},
		{OrderPending, OrderCancelled},
		{OrderPaid, OrderDelivered},
		{OrderPaid, OrderCancelled},
		{OrderDelivered, OrderCompleted},
	}
	for _, tc := range allowed {
		if !CanTransition(tc.from, tc.to) {
			t.Errorf("%s -> %s should be allowed", tc.from, tc.to)
		}
	}

	rejected := []struct{ from, to OrderStatus }{
		{OrderPending, OrderDelivered},
		{OrderPending, OrderCompleted},
		{OrderPaid, OrderCompleted},
		{OrderDelivered, OrderCancelled},
		{OrderCompleted, OrderPaid},
		{OrderCompleted, OrderCancelled},
		{OrderCancelled, OrderPending},
		{OrderRefunded, OrderPending},
		{OrderPending, OrderRefunded},
	}
	for _, tc := range rejected {
		if CanTransition(tc.from, tc.to) {
			t.Errorf("%s -> %s should be rejected", tc.from, tc.to)
		}
	}

	// REFUNDED is written by the external payment process only; once there,
	// nothing moves the order again.
	for _, to := range []OrderStatus{OrderPending, OrderPaid, OrderDelivered, OrderCompleted, OrderCancelled, OrderRefunded} {
		if CanTransition(OrderRefunded, to) {
			t.Errorf("REFUNDED -> %s should be rejected", to)
		}
	}
}

func TestTerminalStatuses(t *testing.T) {
	for _, s := range []OrderStatus{OrderCompleted, OrderCancelled, OrderRefunded} {
		if !IsTerminal(s) {
			t.Errorf("%s should be terminal", s)
		}
	}
	for _, s := range []OrderStatus{OrderPending, OrderPaid, OrderDelivered} {
		if IsTerminal(s) {
			t.Errorf("%s should not be terminal", s)
		}
	}
	if IsTerminal("BOGUS") {
		t.Error("unknown status must not count as terminal")
	}
}

func TestCancellable(t *testing.T) {
	for s, want := range map[OrderStatus]bool{
		OrderPending:   true,
		OrderPaid:      true,
		OrderDelivered: false,
		OrderCompleted: false,
		OrderCancelled: false,
	} {
		if got := (Order{Status: s}).Cancellable(); got != want {
			t.Errorf("Cancellable(%s) = %v, want %v", s, got, want)
		}
	}
}
