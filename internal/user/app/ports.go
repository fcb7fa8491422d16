package app

import (
	"context"
	"errors"

	"github.com/ishopping/marketplace/internal/user/domain"
)

var (
	ErrInvalidInput  = errors.New("invalid input")
	ErrNotFound      = errors.New("user not found")
	ErrUsernameTaken = errors.New("username already exists")
	ErrEmailTaken    = errors.New("email already registered")
	ErrRoleViolation = errors.New("role not permitted")
)

type UserRepo interface {
	Create(ctx context.Context, u domain.User) (domain.User, error)
	GetByID(ctx context.Context, id string) (domain.User, error)
	GetByUsername(ctx context.Context, username string) (domain.User, error)
	ExistsByUsername(ctx context.Context, username string) (bool, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	Update(ctx context.Context, u domain.User) (domain.User, error)
	ListAll(ctx context.Context, page, size int) ([]domain.User, error)
}
