package app

import (
	"fmt"

	"github.com/ishopping/marketplace/internal/identity"
	"github.com/ishopping/marketplace/internal/order/domain"
)

// Capability checks live here so every operation applies the same rules:
// ADMIN is unconstrained by ownership, SELLER acts on orders sold by them,
// CUSTOMER acts on orders they placed.

func canView(who identity.Identity, o domain.Order) bool {
	switch who.Role {
	case identity.RoleAdmin:
		return true
	case identity.RoleSeller:
		return o.SellerID == who.UserID
	default:
		return o.UserID == who.UserID
	}
}

func canDelete(who identity.Identity, o domain.Order) bool {
	return who.IsAdmin() || o.UserID == who.UserID
}

// checkTransition enforces the role gating that sits on top of the
// transition table: customers may only cancel or confirm-receive their own
// orders, sellers drive everything except completion on orders they sell.
func checkTransition(who identity.Identity, o domain.Order, to domain.OrderStatus) error {
	switch who.Role {
	case identity.RoleAdmin:
		return nil
	case identity.RoleSeller:
		if o.SellerID != who.UserID {
			return fmt.Errorf("%w: order %s is sold by another seller", ErrAccessDenied, o.ID)
		}
		if to == domain.OrderCompleted {
			return fmt.Errorf("%w: only the customer can complete an order", ErrAuthorization)
		}
		return nil
	case identity.RoleCustomer:
		if o.UserID != who.UserID {
			return fmt.Errorf("%w: order %s belongs to another customer", ErrAccessDenied, o.ID)
		}
		if to != domain.OrderCancelled && to != domain.OrderCompleted {
			return fmt.Errorf("%w: customers can only cancel or confirm receipt", ErrAuthorization)
		}
		return nil
	default:
		return fmt.Errorf("%w: unknown role %q", ErrAuthorization, who.Role)
	}
}
