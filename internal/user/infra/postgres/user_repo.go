package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/ishopping/marketplace/internal/user/app"
	"github.com/ishopping/marketplace/internal/user/domain"
	_ "github.com/lib/pq"
)

type UserRepo struct {
	db *sql.DB
}

func NewUserRepo(db *sql.DB) (*UserRepo, error) {
	r := &UserRepo{db: db}
	if err := r.ensureSchema(); err != nil {
		return nil, fmt.Errorf("user schema: %w", err)
	}
	return r, nil
}

func (r *UserRepo) ensureSchema() error {
	_, err := r.db.Exec(`CREATE TABLE IF NOT EXISTS users (
		id UUID PRIMARY KEY,
		username TEXT NOT NULL UNIQUE,
		email TEXT NOT NULL DEFAULT '',
		phone TEXT NOT NULL DEFAULT '',
		role TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	);`)
	return err
}

const userCols = `id, username, email, phone, role, created_at, updated_at`

func (r *UserRepo) Create(ctx context.Context, u domain.User) (domain.User, error) {
	u.ID = uuid.NewString()
	row := r.db.QueryRowContext(ctx,
		`INSERT INTO users (id, username, email, phone, role)
		 VALUES ($1,$2,$3,$4,$5)
		 RETURNING `+userCols,
		u.ID, u.Username, u.Email, u.Phone, u.Role,
	)
	return scanUser(row)
}

func (r *UserRepo) GetByID(ctx context.Context, id string) (domain.User, error) {
	return r.getWhere(ctx, `id = $1`, id)
}

func (r *UserRepo) GetByUsername(ctx context.Context, username string) (domain.User, error) {
	return r.getWhere(ctx, `username = $1`, username)
}

func (r *UserRepo) getWhere(ctx context.Context, cond string, arg any) (domain.User, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+userCols+` FROM users WHERE `+cond, arg)
	u, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.User{}, app.ErrNotFound
	}
	return u, err
}

func (r *UserRepo) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	return r.exists(ctx, `username = $1`, username)
}

func (r *UserRepo) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	return r.exists(ctx, `email = $1 AND email <> ''`, email)
}

func (r *UserRepo) exists(ctx context.Context, cond string, arg any) (bool, error) {
	var found bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM users WHERE `+cond+`)`, arg).Scan(&found)
	return found, err
}

func (r *UserRepo) Update(ctx context.Context, u domain.User) (domain.User, error) {
	row := r.db.QueryRowContext(ctx,
		`UPDATE users SET email=$2, phone=$3, updated_at=now()
		 WHERE id=$1
		 RETURNING `+userCols,
		u.ID, u.Email, u.Phone,
	)
	out, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.User{}, app.ErrNotFound
	}
	return out, err
}

func (r *UserRepo) ListAll(ctx context.Context, page, size int) ([]domain.User, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+userCols+` FROM users ORDER BY created_at DESC LIMIT $1 OFFSET $2`,
		size, page*size,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (domain.User, error) {
	var u domain.User
	err := row.Scan(&u.ID, &u.Username, &u.Email, &u.Phone, &u.Role, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return domain.User{}, err
	}
	return u, nil
}
