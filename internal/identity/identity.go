package identity

import (
	"context"
	"fmt"
	"strings"
)

// Role classifies what a caller is allowed to do. Roles are assigned at
// registration and never change mid-request.
type Role string

const (
	RoleCustomer Role = "CUSTOMER"
	RoleSeller   Role = "SELLER"
	RoleAdmin    Role = "ADMIN"
)

func ParseRole(s string) (Role, error) {
	switch Role(strings.ToUpper(strings.TrimSpace(s))) {
	case RoleCustomer:
		return RoleCustomer, nil
	case RoleSeller:
		return RoleSeller, nil
	case RoleAdmin:
		return RoleAdmin, nil
	default:
		return "", fmt.Errorf("unknown role %q", s)
	}
}

// Identity is the authenticated caller, resolved by the auth layer before
// any core operation runs. It is passed explicitly; the package never keeps
// process-global state.
type Identity struct {
	UserID   string
	Role     Role
	Username string
}

func (id Identity) IsCustomer() bool { return id.Role == RoleCustomer }
func (id Identity) IsSeller() bool   { return id.Role == RoleSeller }
func (id Identity) IsAdmin() bool    { return id.Role == RoleAdmin }

type ctxKey struct{}

// WithIdentity binds the caller to a request context. The binding dies with
// the context, so teardown at request completion is automatic.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

func FromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(ctxKey{}).(Identity)
	return id, ok
}
