package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/ishopping/marketplace/internal/catalog/app"
	"github.com/ishopping/marketplace/internal/catalog/domain"
	_ "github.com/lib/pq"
)

type ProductRepo struct {
	db *sql.DB
}

func NewProductRepo(db *sql.DB) (*ProductRepo, error) {
	r := &ProductRepo{db: db}
	if err := r.ensureSchema(); err != nil {
		return nil, fmt.Errorf("product schema: %w", err)
	}
	return r, nil
}

func (r *ProductRepo) ensureSchema() error {
	_, err := r.db.Exec(`CREATE TABLE IF NOT EXISTS products (
		id UUID PRIMARY KEY,
		seller_id TEXT NOT NULL,
		name TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		category TEXT NOT NULL DEFAULT '',
		image_url TEXT NOT NULL DEFAULT '',
		price_amount BIGINT NOT NULL,
		currency TEXT NOT NULL,
		stock INT NOT NULL CHECK (stock >= 0),
		status TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	);`)
	return err
}

const productCols = `id, seller_id, name, description, category, image_url, price_amount, currency, stock, status, created_at, updated_at`

func (r *ProductRepo) Create(ctx context.Context, p domain.Product) (domain.Product, error) {
	p.ID = uuid.NewString()
	row := r.db.QueryRowContext(ctx,
		`INSERT INTO products (id, seller_id, name, description, category, image_url, price_amount, currency, stock, status)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
		 RETURNING `+productCols,
		p.ID, p.SellerID, p.Name, p.Description, p.Category, p.ImageURL,
		p.Price.Amount, p.Price.Currency, p.Stock, p.Status,
	)
	return scanProduct(row)
}

func (r *ProductRepo) Get(ctx context.Context, id string) (domain.Product, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+productCols+` FROM products WHERE id = $1`, id)
	p, err := scanProduct(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Product{}, app.ErrNotFound
	}
	return p, err
}

func (r *ProductRepo) Update(ctx context.Context, p domain.Product) (domain.Product, error) {
	row := r.db.QueryRowContext(ctx,
		`UPDATE products SET name=$2, description=$3, category=$4, image_url=$5,
		 price_amount=$6, currency=$7, stock=$8, status=$9, updated_at=now()
		 WHERE id=$1
		 RETURNING `+productCols,
		p.ID, p.Name, p.Description, p.Category, p.ImageURL,
		p.Price.Amount, p.Price.Currency, p.Stock, p.Status,
	)
	out, err := scanProduct(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Product{}, app.ErrNotFound
	}
	return out, err
}

func (r *ProductRepo) ListOnSale(ctx context.Context, page, size int) ([]domain.Product, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+productCols+` FROM products
		 WHERE status = $1
		 ORDER BY created_at DESC
		 LIMIT $2 OFFSET $3`,
		domain.ProductOnSale, size, page*size,
	)
	if err != nil {
		return nil, err
	}
	return scanProducts(rows)
}

func (r *ProductRepo) ListBySeller(ctx context.Context, sellerID string, page, size int) ([]domain.Product, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+productCols+` FROM products
		 WHERE seller_id = $1 AND status <> $2
		 ORDER BY created_at DESC
		 LIMIT $3 OFFSET $4`,
		sellerID, domain.ProductDeleted, size, page*size,
	)
	if err != nil {
		return nil, err
	}
	return scanProducts(rows)
}

// DecrementStock is a single conditional UPDATE so concurrent reservations
// against the same row serialize on the row lock and the stock >= qty guard.
func (r *ProductRepo) DecrementStock(ctx context.Context, id string, qty int32) error {
	return ReserveStock(ctx, r.db, id, qty)
}

func (r *ProductRepo) IncrementStock(ctx context.Context, id string, qty int32) error {
	return ReleaseStock(ctx, r.db, id, qty)
}

// Execer lets the same stock statements run on *sql.DB or inside *sql.Tx,
// so order creation and cancellation reuse them within their transactions.
type Execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// ReserveStock is the atomic check-and-decrement behind every reservation.
func ReserveStock(ctx context.Context, ex Execer, id string, qty int32) error {
	res, err := ex.ExecContext(ctx,
		`UPDATE products
		 SET stock = stock - $2,
		     status = CASE WHEN stock - $2 = 0 THEN $3 ELSE status END,
		     updated_at = now()
		 WHERE id = $1 AND status = $4 AND stock >= $2`,
		id, qty, domain.ProductOutOfStock, domain.ProductOnSale,
	)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 1 {
		return nil
	}

	// Zero rows: classify why without having mutated anything.
	var status string
	var stock int32
	err = ex.QueryRowContext(ctx, `SELECT status, stock FROM products WHERE id = $1`, id).Scan(&status, &stock)
	if errors.Is(err, sql.ErrNoRows) {
		return app.ErrNotFound
	}
	if err != nil {
		return err
	}
	if domain.ProductStatus(status) != domain.ProductOnSale {
		return app.ErrProductUnavailable
	}
	return app.ErrInsufficientStock
}

// ReleaseStock returns quantity to stock, reviving OUT_OF_STOCK rows.
func ReleaseStock(ctx context.Context, ex Execer, id string, qty int32) error {
	res, err := ex.ExecContext(ctx,
		`UPDATE products
		 SET stock = stock + $2,
		     status = CASE WHEN status = $3 THEN $4 ELSE status END,
		     updated_at = now()
		 WHERE id = $1`,
		id, qty, domain.ProductOutOfStock, domain.ProductOnSale,
	)
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

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProduct(row rowScanner) (domain.Product, error) {
	var p domain.Product
	err := row.Scan(
		&p.ID, &p.SellerID, &p.Name, &p.Description, &p.Category, &p.ImageURL,
		&p.Price.Amount, &p.Price.Currency, &p.Stock, &p.Status,
		&p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return domain.Product{}, err
	}
	return p, nil
}

func scanProducts(rows *sql.Rows) ([]domain.Product, error) {
	defer rows.Close()

	var out []domain.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
