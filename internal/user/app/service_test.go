package app_test

import (
	"context"
	"errors"
	"testing"

	"github.com/ishopping/marketplace/internal/identity"
	"github.com/ishopping/marketplace/internal/user/app"
	"github.com/ishopping/marketplace/internal/user/infra/memory"
)

func TestRegister(t *testing.T) {
	ctx := context.Background()

	t.Run("defaults role to customer", func(t *testing.T) {
		svc := app.NewService(memory.NewUserRepo())
		u, err := svc.Register(ctx, app.RegisterRequest{Username: "alice", Role: "wizard"})
		if err != nil {
			t.Fatalf("Register: %v", err)
		}
		if u.Role != identity.RoleCustomer {
			t.Fatalf("role = %q, want CUSTOMER", u.Role)
		}
		if u.ID == "" {
			t.Fatal("id not assigned")
		}
	})

	t.Run("accepts explicit role, case-insensitive", func(t *testing.T) {
		svc := app.NewService(memory.NewUserRepo())
		u, err := svc.Register(ctx, app.RegisterRequest{Username: "bob", Role: "seller"})
		if err != nil {
			t.Fatalf("Register: %v", err)
		}
		if u.Role != identity.RoleSeller {
			t.Fatalf("role = %q, want SELLER", u.Role)
		}
	})

	t.Run("blank username rejected", func(t *testing.T) {
		svc := app.NewService(memory.NewUserRepo())
		if _, err := svc.Register(ctx, app.RegisterRequest{Username: "  "}); !errors.Is(err, app.ErrInvalidInput) {
			t.Fatalf("expected ErrInvalidInput, got %v", err)
		}
	})

	t.Run("duplicate username rejected", func(t *testing.T) {
		svc := app.NewService(memory.NewUserRepo())
		if _, err := svc.Register(ctx, app.RegisterRequest{Username: "alice"}); err != nil {
			t.Fatalf("Register: %v", err)
		}
		if _, err := svc.Register(ctx, app.RegisterRequest{Username: "alice"}); !errors.Is(err, app.ErrUsernameTaken) {
			t.Fatalf("expected ErrUsernameTaken, got %v", err)
		}
	})

	t.Run("duplicate email rejected", func(t *testing.T) {
		svc := app.NewService(memory.NewUserRepo())
		if _, err := svc.Register(ctx, app.RegisterRequest{Username: "alice", Email: "a@example.com"}); err != nil {
			t.Fatalf("Register: %v", err)
		}
		if _, err := svc.Register(ctx, app.RegisterRequest{Username: "bob", Email: "a@example.com"}); !errors.Is(err, app.ErrEmailTaken) {
			t.Fatalf("expected ErrEmailTaken, got %v", err)
		}
	})
}

func TestUpdateProfile(t *testing.T) {
	ctx := context.Background()
	svc := app.NewService(memory.NewUserRepo())

	alice, err := svc.Register(ctx, app.RegisterRequest{Username: "alice", Email: "a@example.com"})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if _, err := svc.Register(ctx, app.RegisterRequest{Username: "bob", Email: "b@example.com"}); err != nil {
		t.Fatalf("Register: %v", err)
	}
	who := alice.Identity()

	t.Run("updates email and phone", func(t *testing.T) {
		email, phone := "alice@example.com", "555-0101"
		u, err := svc.UpdateProfile(ctx, who, app.ProfileUpdate{Email: &email, Phone: &phone})
		if err != nil {
			t.Fatalf("UpdateProfile: %v", err)
		}
		if u.Email != email || u.Phone != phone {
			t.Fatalf("got email=%q phone=%q", u.Email, u.Phone)
		}
	})

	t.Run("cannot take another user's email", func(t *testing.T) {
		email := "b@example.com"
		if _, err := svc.UpdateProfile(ctx, who, app.ProfileUpdate{Email: &email}); !errors.Is(err, app.ErrEmailTaken) {
			t.Fatalf("expected ErrEmailTaken, got %v", err)
		}
	})

	t.Run("nil fields untouched", func(t *testing.T) {
		before, err := svc.GetUser(ctx, alice.ID)
		if err != nil {
			t.Fatalf("GetUser: %v", err)
		}
		u, err := svc.UpdateProfile(ctx, who, app.ProfileUpdate{})
		if err != nil {
			t.Fatalf("UpdateProfile: %v", err)
		}
		if u.Email != before.Email || u.Phone != before.Phone {
			t.Fatalf("profile mutated: %+v", u)
		}
	})
}

func TestLookups(t *testing.T) {
	ctx := context.Background()
	svc := app.NewService(memory.NewUserRepo())

	alice, err := svc.Register(ctx, app.RegisterRequest{Username: "alice"})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}

	if u, err := svc.GetUser(ctx, alice.ID); err != nil || u.Username != "alice" {
		t.Fatalf("GetUser: %v %+v", err, u)
	}
	if u, err := svc.GetUserByUsername(ctx, "alice"); err != nil || u.ID != alice.ID {
		t.Fatalf("GetUserByUsername: %v %+v", err, u)
	}
	if _, err := svc.GetUser(ctx, "missing"); !errors.Is(err, app.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := svc.GetUser(ctx, ""); !errors.Is(err, app.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestListUsers(t *testing.T) {
	ctx := context.Background()
	svc := app.NewService(memory.NewUserRepo())

	for _, name := range []string{"alice", "bob", "carol"} {
		if _, err := svc.Register(ctx, app.RegisterRequest{Username: name}); err != nil {
			t.Fatalf("Register %s: %v", name, err)
		}
	}

	root := identity.Identity{UserID: "a1", Role: identity.RoleAdmin, Username: "root"}
	users, err := svc.ListUsers(ctx, root, 0, 20)
	if err != nil {
		t.Fatalf("ListUsers: %v", err)
	}
	if len(users) != 3 {
		t.Fatalf("users = %d, want 3", len(users))
	}

	mortal := identity.Identity{UserID: "c1", Role: identity.RoleCustomer, Username: "buyer"}
	if _, err := svc.ListUsers(ctx, mortal, 0, 20); !errors.Is(err, app.ErrRoleViolation) {
		t.Fatalf("expected ErrRoleViolation, got %v", err)
	}
}
