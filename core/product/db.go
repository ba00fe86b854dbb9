package product

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
)

var ErrNotFound = errors.New("product not found")

func Create(ctx context.Context, db sqlx.ExtContext, prd Product) error {
	const q = `
	INSERT INTO products
		(product_id, shop_id, name, description, price, category, image_url, available, created_at, updated_at)
	VALUES
		(:product_id, :shop_id, :name, :description, :price, :category, :image_url, :available, :created_at, :updated_at)`

	if _, err := sqlx.NamedExecContext(ctx, db, q, prd); err != nil {
		return fmt.Errorf("inserting product: %w", err)
	}

	return nil
}

func Fetch(ctx context.Context, db sqlx.ExtContext, id string) (Product, error) {
	const q = `SELECT * FROM products WHERE product_id = $1`

	var prd Product
	if err := sqlx.GetContext(ctx, db, &prd, q, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Product{}, ErrNotFound
		}
		return Product{}, fmt.Errorf("selecting product[%s]: %w", id, err)
	}

	return prd, nil
}

func ListByShop(ctx context.Context, db sqlx.ExtContext, shopID string) ([]Product, error) {
	const q = `SELECT * FROM products WHERE shop_id = $1 ORDER BY name`

	prds := []Product{}
	if err := sqlx.SelectContext(ctx, db, &prds, q, shopID); err != nil {
		return nil, fmt.Errorf("selecting products of shop[%s]: %w", shopID, err)
	}

	return prds, nil
}

// ListByCategory backs the storefront browse view, so it only returns
// products a student can actually order.
func ListByCategory(ctx context.Context, db sqlx.ExtContext, category string) ([]Product, error) {
	const q = `SELECT * FROM products WHERE category = $1 AND available ORDER BY name`

	prds := []Product{}
	if err := sqlx.SelectContext(ctx, db, &prds, q, category); err != nil {
		return nil, fmt.Errorf("selecting products in category[%s]: %w", category, err)
	}

	return prds, nil
}

func Update(ctx context.Context, db sqlx.ExtContext, prd Product) error {
	const q = `
	UPDATE products SET
		name = :name,
		description = :description,
		price = :price,
		category = :category,
		image_url = :image_url,
		available = :available,
		updated_at = :updated_at
	WHERE product_id = :product_id`

	if _, err := sqlx.NamedExecContext(ctx, db, q, prd); err != nil {
		return fmt.Errorf("updating product[%s]: %w", prd.ID, err)
	}

	return nil
}

func Delete(ctx context.Context, db sqlx.ExtContext, id string) error {
	const q = `DELETE FROM products WHERE product_id = $1`

	if _, err := db.ExecContext(ctx, q, id); err != nil {
		return fmt.Errorf("deleting product[%s]: %w", id, err)
	}

	return nil
}
