package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/ishopping/marketplace/internal/cart/app"
	"github.com/ishopping/marketplace/internal/cart/domain"
	_ "github.com/lib/pq"
)

type CartRepo struct {
	db *sql.DB
}

func NewCartRepo(db *sql.DB) (*CartRepo, error) {
	r := &CartRepo{db: db}
	if err := r.ensureSchema(); err != nil {
		return nil, fmt.Errorf("cart schema: %w", err)
	}
	return r, nil
}

func (r *CartRepo) ensureSchema() error {
	_, err := r.db.Exec(`CREATE TABLE IF NOT EXISTS cart_items (
		user_id TEXT NOT NULL,
		product_id UUID NOT NULL,
		quantity INT NOT NULL CHECK (quantity > 0),
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		PRIMARY KEY (user_id, product_id)
	);`)
	return err
}

const cartCols = `user_id, product_id, quantity, created_at, updated_at`

func (r *CartRepo) List(ctx context.Context, userID string) ([]domain.CartItem, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+cartCols+` FROM cart_items WHERE user_id = $1 ORDER BY created_at`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.CartItem
	for rows.Next() {
		var it domain.CartItem
		if err := rows.Scan(&it.UserID, &it.ProductID, &it.Quantity, &it.CreatedAt, &it.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, it)
	}
	return out, rows.Err()
}

func (r *CartRepo) Get(ctx context.Context, userID, productID string) (domain.CartItem, error) {
	var it domain.CartItem
	err := r.db.QueryRowContext(ctx,
		`SELECT `+cartCols+` FROM cart_items WHERE user_id = $1 AND product_id = $2`,
		userID, productID,
	).Scan(&it.UserID, &it.ProductID, &it.Quantity, &it.CreatedAt, &it.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.CartItem{}, app.ErrNotFound
	}
	if err != nil {
		return domain.CartItem{}, err
	}
	return it, nil
}

func (r *CartRepo) Upsert(ctx context.Context, item domain.CartItem) (domain.CartItem, error) {
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO cart_items (user_id, product_id, quantity)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (user_id, product_id)
		 DO UPDATE SET quantity = EXCLUDED.quantity, updated_at = now()
		 RETURNING `+cartCols,
		item.UserID, item.ProductID, item.Quantity,
	).Scan(&item.UserID, &item.ProductID, &item.Quantity, &item.CreatedAt, &item.UpdatedAt)
	if err != nil {
		return domain.CartItem{}, err
	}
	return item, nil
}

func (r *CartRepo) Remove(ctx context.Context, userID, productID string) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM cart_items WHERE user_id = $1 AND product_id = $2`, userID, productID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return app.ErrNotFound
	}
	return nil
}

func (r *CartRepo) Clear(ctx context.Context, userID string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM cart_items WHERE user_id = $1`, userID)
	return err
}
