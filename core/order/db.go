package order

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/doorstep-app/doorstep/database"
	"github.com/jmoiron/sqlx"
)

var ErrNotFound = errors.New("order not found")

func Create(ctx context.Context, db sqlx.ExtContext, ord Order) error {
	const q = `
	INSERT INTO orders
		(order_id, token, user_id, shop_id, customer_name, customer_phone,
		 hostel, room, total_amount, status, payment_ref,
		 partner_name, partner_phone, created_at, updated_at)
	VALUES
		(:order_id, :token, :user_id, :shop_id, :customer_name, :customer_phone,
		 :hostel, :room, :total_amount, :status, :payment_ref,
		 :partner_name, :partner_phone, :created_at, :updated_at)`

	if _, err := sqlx.NamedExecContext(ctx, db, q, ord); err != nil {
		return fmt.Errorf("inserting order: %w", err)
	}
	return nil
}

func CreateItem(ctx context.Context, db sqlx.ExtContext, it Item) error {
	const q = `
	INSERT INTO order_items
		(order_id, product_id, name, price, quantity, image_url, shop_id)
	VALUES
		(:order_id, :product_id, :name, :price, :quantity, :image_url, :shop_id)`

	if _, err := sqlx.NamedExecContext(ctx, db, q, it); err != nil {
		return fmt.Errorf("inserting order item: %w", err)
	}
	return nil
}

func Fetch(ctx context.Context, db *sqlx.DB, id string) (Order, error) {
	const q = `SELECT * FROM orders WHERE order_id = $1`

	var ord Order
	if err := db.GetContext(ctx, &ord, q, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Order{}, ErrNotFound
		}
		return Order{}, fmt.Errorf("fetching order[%s]: %w", id, err)
	}

	items, err := FetchItems(ctx, db, ord.ID)
	if err != nil {
		return Order{}, err
	}
	ord.Items = items

	return ord, nil
}

func FetchItems(ctx context.Context, db *sqlx.DB, orderID string) ([]Item, error) {
	const q = `SELECT * FROM order_items WHERE order_id = $1 ORDER BY product_id`

	items := []Item{}
	if err := db.SelectContext(ctx, &items, q, orderID); err != nil {
		return nil, fmt.Errorf("fetching items of order[%s]: %w", orderID, err)
	}
	return items, nil
}

func ListByUser(ctx context.Context, db *sqlx.DB, userID string) ([]Order, error) {
	const q = `SELECT * FROM orders WHERE user_id = $1 ORDER BY created_at DESC`

	orders := []Order{}
	if err := db.SelectContext(ctx, &orders, q, userID); err != nil {
		return nil, fmt.Errorf("listing orders of user[%s]: %w", userID, err)
	}

	return withItems(ctx, db, orders)
}

func ListByShop(ctx context.Context, db *sqlx.DB, shopID string, limit int) ([]Order, error) {
	q := `SELECT * FROM orders WHERE shop_id = $1 ORDER BY created_at DESC`
	args := []interface{}{shopID}
	if limit > 0 {
		q += ` LIMIT $2`
		args = append(args, limit)
	}

	orders := []Order{}
	if err := db.SelectContext(ctx, &orders, q, args...); err != nil {
		return nil, fmt.Errorf("listing orders of shop[%s]: %w", shopID, err)
	}

	return withItems(ctx, db, orders)
}

func withItems(ctx context.Context, db *sqlx.DB, orders []Order) ([]Order, error) {
	for i := range orders {
		items, err := FetchItems(ctx, db, orders[i].ID)
		if err != nil {
			return nil, err
		}
		orders[i].Items = items
	}
	return orders, nil
}

func UpdateStatus(ctx context.Context, db sqlx.ExtContext, up StatusUp) error {
	const q = `UPDATE orders SET status = :status, updated_at = :updated_at WHERE order_id = :order_id`

	if _, err := sqlx.NamedExecContext(ctx, db, q, up); err != nil {
		return fmt.Errorf("updating status of order[%s]: %w", up.ID, err)
	}
	return nil
}

func UpdatePartner(ctx context.Context, db sqlx.ExtContext, up PartnerUp) error {
	const q = `
	UPDATE orders SET
		partner_name = :partner_name,
		partner_phone = :partner_phone,
		updated_at = :updated_at
	WHERE order_id = :order_id`

	if _, err := sqlx.NamedExecContext(ctx, db, q, up); err != nil {
		return fmt.Errorf("assigning partner on order[%s]: %w", up.ID, err)
	}
	return nil
}

// SQLStore persists one composed order and its item snapshot atomically.
// The transaction scope is a single shop's order on purpose: the composer
// writes each shop independently and reports per-shop failures.
type SQLStore struct {
	db *sqlx.DB
}

func NewSQLStore(db *sqlx.DB) *SQLStore {
	return &SQLStore{db: db}
}

func (s *SQLStore) Save(ctx context.Context, ord Order) error {
	return database.Transaction(s.db, func(tx sqlx.ExtContext) error {
		if err := Create(ctx, tx, ord); err != nil {
			return err
		}
		for _, it := range ord.Items {
			if err := CreateItem(ctx, tx, it); err != nil {
				return err
			}
		}
		return nil
	})
}
