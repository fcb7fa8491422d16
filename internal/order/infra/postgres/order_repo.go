package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	catalogpg "github.com/ishopping/marketplace/internal/catalog/infra/postgres"
	"github.com/ishopping/marketplace/internal/order/app"
	"github.com/ishopping/marketplace/internal/order/domain"
	"github.com/lib/pq"
)

// maxNumberAttempts bounds order-number regeneration when the unique index
// reports a collision.
const maxNumberAttempts = 3

type OrderRepo struct {
	db *sql.DB
}

func NewOrderRepo(db *sql.DB) (*OrderRepo, error) {
	r := &OrderRepo{db: db}
	if err := r.ensureSchema(); err != nil {
		return nil, fmt.Errorf("order schema: %w", err)
	}
	return r, nil
}

func (r *OrderRepo) ensureSchema() error {
	_, err := r.db.Exec(`CREATE TABLE IF NOT EXISTS orders (
		id UUID PRIMARY KEY,
		order_number TEXT NOT NULL UNIQUE,
		user_id TEXT NOT NULL,
		seller_id TEXT NOT NULL,
		currency TEXT NOT NULL,
		total_amount BIGINT NOT NULL,
		discount_amount BIGINT NOT NULL DEFAULT 0,
		shipping_fee BIGINT NOT NULL DEFAULT 0,
		actual_amount BIGINT NOT NULL,
		status TEXT NOT NULL,
		shipping_address TEXT NOT NULL DEFAULT '',
		receiver_name TEXT NOT NULL DEFAULT '',
		receiver_phone TEXT NOT NULL DEFAULT '',
		payment_method TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	);`)
	if err != nil {
		return err
	}
	_, err = r.db.Exec(`CREATE TABLE IF NOT EXISTS order_items (
		id UUID PRIMARY KEY,
		order_id UUID NOT NULL REFERENCES orders(id),
		product_id UUID NOT NULL,
		name TEXT NOT NULL,
		unit_amount BIGINT NOT NULL,
		quantity INT NOT NULL,
		line_total_amount BIGINT NOT NULL
	);`)
	return err
}

func (r *OrderRepo) execTX(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("tx err: %w; rollback err: %v", err, rbErr)
		}
		return err
	}

	return tx.Commit()
}

// CreateOrderTx writes the header, reserves stock line by line and writes
// the items, all inside one transaction. Any failure rolls the whole unit
// back, so a rejected line leaves no partial decrement behind. An
// order-number collision aborts the transaction, so the retry regenerates
// the number and reruns the unit of work from scratch.
func (r *OrderRepo) CreateOrderTx(ctx context.Context, order domain.Order) (domain.Order, error) {
	var created domain.Order
	var err error

	for attempt := 0; attempt < maxNumberAttempts; attempt++ {
		created, err = r.createOnce(ctx, order)
		if !isUniqueViolation(err) {
			return created, err
		}
		order.OrderNumber = app.NewOrderNumber()
	}
	return domain.Order{}, fmt.Errorf("order number collisions exhausted retries: %w", err)
}

func (r *OrderRepo) createOnce(ctx context.Context, order domain.Order) (domain.Order, error) {
	var created domain.Order

	err := r.execTX(ctx, func(tx *sql.Tx) error {
		order.ID = uuid.NewString()

		err := tx.QueryRowContext(ctx,
			`INSERT INTO orders (id, order_number, user_id, seller_id, currency, total_amount,
			 discount_amount, shipping_fee, actual_amount, status, shipping_address,
			 receiver_name, receiver_phone, payment_method)
			 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)
			 RETURNING created_at, updated_at`,
			order.ID, order.OrderNumber, order.UserID, order.SellerID, order.Currency,
			order.TotalAmount, order.DiscountAmount, order.ShippingFee, order.ActualAmount,
			order.Status, order.ShippingAddr, order.ReceiverName, order.ReceiverPhone,
			order.PaymentMethod,
		).Scan(&order.CreatedAt, &order.UpdatedAt)
		if err != nil {
			if isUniqueViolation(err) {
				return err
			}
			return fmt.Errorf("insert order: %w", err)
		}

		for i := range order.Items {
			item := &order.Items[i]
			item.ID = uuid.NewString()
			item.OrderID = order.ID

			if err := catalogpg.ReserveStock(ctx, tx, item.ProductID, item.Quantity); err != nil {
				return err
			}

			_, err := tx.ExecContext(ctx,
				`INSERT INTO order_items (id, order_id, product_id, name, unit_amount, quantity, line_total_amount)
				 VALUES ($1,$2,$3,$4,$5,$6,$7)`,
				item.ID, item.OrderID, item.ProductID, item.Name,
				item.UnitAmount, item.Quantity, item.LineTotalAmount,
			)
			if err != nil {
				return fmt.Errorf("insert item %d: %w", i, err)
			}
		}

		created = order
		return nil
	})
	if err != nil {
		return domain.Order{}, err
	}
	return created, nil
}

const orderCols = `id, order_number, user_id, seller_id, currency, total_amount, discount_amount,
	shipping_fee, actual_amount, status, shipping_address, receiver_name, receiver_phone,
	payment_method, created_at, updated_at`

func (r *OrderRepo) Get(ctx context.Context, id string) (domain.Order, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+orderCols+` FROM orders WHERE id = $1`, id)
	order, err := scanOrder(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Order{}, app.ErrNotFound
	}
	if err != nil {
		return domain.Order{}, err
	}

	items, err := r.itemsFor(ctx, order.ID)
	if err != nil {
		return domain.Order{}, err
	}
	order.Items = items
	return order, nil
}

func (r *OrderRepo) itemsFor(ctx context.Context, orderID string) ([]domain.OrderItem, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, order_id, product_id, name, unit_amount, quantity, line_total_amount
		 FROM order_items WHERE order_id = $1 ORDER BY id`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []domain.OrderItem
	for rows.Next() {
		var it domain.OrderItem
		if err := rows.Scan(&it.ID, &it.OrderID, &it.ProductID, &it.Name,
			&it.UnitAmount, &it.Quantity, &it.LineTotalAmount); err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

// List applies the filter dynamically and always orders newest first, which
// keeps 0-based pagination stable under concurrent inserts.
func (r *OrderRepo) List(ctx context.Context, f app.Filter, page, size int) ([]domain.Order, error) {
	where, args := buildWhere(f)
	args = append(args, size, page*size)

	q := fmt.Sprintf(`SELECT `+orderCols+` FROM orders %s ORDER BY created_at DESC LIMIT $%d OFFSET $%d`,
		where, len(args)-1, len(args))

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range out {
		items, err := r.itemsFor(ctx, out[i].ID)
		if err != nil {
			return nil, err
		}
		out[i].Items = items
	}
	return out, nil
}

func (r *OrderRepo) UpdateStatus(ctx context.Context, id string, status domain.OrderStatus) (domain.Order, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE orders SET status = $2, updated_at = now() WHERE id = $1`, id, status)
	if err != nil {
		return domain.Order{}, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return domain.Order{}, err
	}
	if n == 0 {
		return domain.Order{}, app.ErrNotFound
	}
	return r.Get(ctx, id)
}

// CancelOrderTx flips the status and restores every line's stock inside one
// transaction. The flip is conditional on the order still being cancellable,
// so of two concurrent cancels only one releases stock; the loser aborts
// with ErrInvalidTransition.
func (r *OrderRepo) CancelOrderTx(ctx context.Context, order domain.Order) (domain.Order, error) {
	err := r.execTX(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			`UPDATE orders SET status = $2, updated_at = now()
			 WHERE id = $1 AND status IN ($3, $4)`,
			order.ID, domain.OrderCancelled, domain.OrderPending, domain.OrderPaid)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			var status domain.OrderStatus
			err := tx.QueryRowContext(ctx,
				`SELECT status FROM orders WHERE id = $1`, order.ID).Scan(&status)
			if errors.Is(err, sql.ErrNoRows) {
				return app.ErrNotFound
			}
			if err != nil {
				return err
			}
			return fmt.Errorf("%w: %s -> %s", app.ErrInvalidTransition, status, domain.OrderCancelled)
		}

		for _, item := range order.Items {
			if err := catalogpg.ReleaseStock(ctx, tx, item.ProductID, item.Quantity); err != nil {
				return fmt.Errorf("release stock for product %s: %w", item.ProductID, err)
			}
		}
		return nil
	})
	if err != nil {
		return domain.Order{}, err
	}
	return r.Get(ctx, order.ID)
}

func (r *OrderRepo) Delete(ctx context.Context, id string) error {
	return r.execTX(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM order_items WHERE order_id = $1`, id); err != nil {
			return err
		}
		res, err := tx.ExecContext(ctx, `DELETE FROM orders WHERE id = $1`, id)
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
	})
}

func (r *OrderRepo) Stats(ctx context.Context, f app.Filter) (app.Stats, error) {
	where, args := buildWhere(f)

	stats := app.Stats{CountByStatus: make(map[domain.OrderStatus]int64)}
	err := r.db.QueryRowContext(ctx,
		fmt.Sprintf(`SELECT COUNT(*), COALESCE(SUM(total_amount), 0) FROM orders %s`, where),
		args...,
	).Scan(&stats.TotalOrders, &stats.TotalAmount)
	if err != nil {
		return app.Stats{}, err
	}

	rows, err := r.db.QueryContext(ctx,
		fmt.Sprintf(`SELECT status, COUNT(*) FROM orders %s GROUP BY status`, where),
		args...,
	)
	if err != nil {
		return app.Stats{}, err
	}
	defer rows.Close()

	for rows.Next() {
		var status domain.OrderStatus
		var count int64
		if err := rows.Scan(&status, &count); err != nil {
			return app.Stats{}, err
		}
		stats.CountByStatus[status] = count
	}
	return stats, rows.Err()
}

func buildWhere(f app.Filter) (string, []any) {
	var conds []string
	var args []any

	add := func(cond string, v any) {
		args = append(args, v)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}

	if f.UserID != "" {
		add("user_id = $%d", f.UserID)
	}
	if f.SellerID != "" {
		add("seller_id = $%d", f.SellerID)
	}
	if f.Status != "" {
		add("status = $%d", f.Status)
	}
	if f.OrderNumber != "" {
		add("order_number ILIKE $%d", "%"+f.OrderNumber+"%")
	}

	if len(conds) == 0 {
		return "", nil
	}
	return "WHERE " + strings.Join(conds, " AND "), args
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOrder(row rowScanner) (domain.Order, error) {
	var o domain.Order
	err := row.Scan(
		&o.ID, &o.OrderNumber, &o.UserID, &o.SellerID, &o.Currency,
		&o.TotalAmount, &o.DiscountAmount, &o.ShippingFee, &o.ActualAmount,
		&o.Status, &o.ShippingAddr, &o.ReceiverName, &o.ReceiverPhone,
		&o.PaymentMethod, &o.CreatedAt, &o.UpdatedAt,
	)
	if err != nil {
		return domain.Order{}, err
	}
	return o, nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}
