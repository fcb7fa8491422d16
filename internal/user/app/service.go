package app

import (
	"context"
	"fmt"
	"strings"

	"github.com/ishopping/marketplace/internal/identity"
	"github.com/ishopping/marketplace/internal/user/domain"
)

type RegisterRequest struct {
	Username string
	Email    string
	Phone    string
	Role     string
}

type ProfileUpdate struct {
	Email *string
	Phone *string
}

type Service struct {
	repo UserRepo
}

func NewService(repo UserRepo) *Service {
	return &Service{repo: repo}
}

func (s *Service) Register(ctx context.Context, req RegisterRequest) (domain.User, error) {
	username := strings.TrimSpace(req.Username)
	if username == "" {
		return domain.User{}, fmt.Errorf("%w: username is required", ErrInvalidInput)
	}

	taken, err := s.repo.ExistsByUsername(ctx, username)
	if err != nil {
		return domain.User{}, err
	}
	if taken {
		return domain.User{}, fmt.Errorf("%w: %s", ErrUsernameTaken, username)
	}

	email := strings.TrimSpace(req.Email)
	if email != "" {
		taken, err := s.repo.ExistsByEmail(ctx, email)
		if err != nil {
			return domain.User{}, err
		}
		if taken {
			return domain.User{}, fmt.Errorf("%w: %s", ErrEmailTaken, email)
		}
	}

	// Unknown or blank roles fall back to CUSTOMER rather than failing
	// registration.
	role, err := identity.ParseRole(req.Role)
	if err != nil {
		role = identity.RoleCustomer
	}

	return s.repo.Create(ctx, domain.User{
		Username: username,
		Email:    email,
		Phone:    strings.TrimSpace(req.Phone),
		Role:     role,
	})
}

func (s *Service) GetUser(ctx context.Context, id string) (domain.User, error) {
	if strings.TrimSpace(id) == "" {
		return domain.User{}, ErrInvalidInput
	}
	return s.repo.GetByID(ctx, id)
}

func (s *Service) GetUserByUsername(ctx context.Context, username string) (domain.User, error) {
	if strings.TrimSpace(username) == "" {
		return domain.User{}, ErrInvalidInput
	}
	return s.repo.GetByUsername(ctx, username)
}

func (s *Service) UpdateProfile(ctx context.Context, who identity.Identity, upd ProfileUpdate) (domain.User, error) {
	u, err := s.repo.GetByID(ctx, who.UserID)
	if err != nil {
		return domain.User{}, err
	}

	if upd.Email != nil {
		email := strings.TrimSpace(*upd.Email)
		if email != "" && email != u.Email {
			taken, err := s.repo.ExistsByEmail(ctx, email)
			if err != nil {
				return domain.User{}, err
			}
			if taken {
				return domain.User{}, fmt.Errorf("%w: %s", ErrEmailTaken, email)
			}
		}
		u.Email = email
	}
	if upd.Phone != nil {
		u.Phone = strings.TrimSpace(*upd.Phone)
	}

	return s.repo.Update(ctx, u)
}

func (s *Service) ListUsers(ctx context.Context, who identity.Identity, page, size int) ([]domain.User, error) {
	if !who.IsAdmin() {
		return nil, fmt.Errorf("%w: only admins can list users", ErrRoleViolation)
	}
	if page < 0 {
		page = 0
	}
	if size <= 0 || size > 100 {
		size = 20
	}
	return s.repo.ListAll(ctx, page, size)
}
