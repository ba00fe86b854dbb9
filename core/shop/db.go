package shop

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
)

var ErrNotFound = errors.New("shop not found")

func Create(ctx context.Context, db sqlx.ExtContext, shp Shop) error {
	const q = `
	INSERT INTO shops
		(shop_id, owner_id, name, description, location, cuisine, image_url, delivery_time, active, created_at, updated_at)
	VALUES
		(:shop_id, :owner_id, :name, :description, :location, :cuisine, :image_url, :delivery_time, :active, :created_at, :updated_at)`

	if _, err := sqlx.NamedExecContext(ctx, db, q, shp); err != nil {
		return fmt.Errorf("inserting shop: %w", err)
	}

	return nil
}

func Fetch(ctx context.Context, db sqlx.ExtContext, id string) (Shop, error) {
	const q = `SELECT * FROM shops WHERE shop_id = $1`

	var shp Shop
	if err := sqlx.GetContext(ctx, db, &shp, q, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Shop{}, ErrNotFound
		}
		return Shop{}, fmt.Errorf("selecting shop[%s]: %w", id, err)
	}

	return shp, nil
}

func FetchByOwner(ctx context.Context, db sqlx.ExtContext, ownerID string) (Shop, error) {
	const q = `SELECT * FROM shops WHERE owner_id = $1`

	var shp Shop
	if err := sqlx.GetContext(ctx, db, &shp, q, ownerID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Shop{}, ErrNotFound
		}
		return Shop{}, fmt.Errorf("selecting shop by owner: %w", err)
	}

	return shp, nil
}

func ListActive(ctx context.Context, db sqlx.ExtContext) ([]Shop, error) {
	const q = `SELECT * FROM shops WHERE active ORDER BY name`

	shops := []Shop{}
	if err := sqlx.SelectContext(ctx, db, &shops, q); err != nil {
		return nil, fmt.Errorf("selecting active shops: %w", err)
	}

	return shops, nil
}

func Update(ctx context.Context, db sqlx.ExtContext, shp Shop) error {
	const q = `
	UPDATE shops SET
		name = :name,
		description = :description,
		location = :location,
		cuisine = :cuisine,
		image_url = :image_url,
		delivery_time = :delivery_time,
		active = :active,
		updated_at = :updated_at
	WHERE shop_id = :shop_id`

	if _, err := sqlx.NamedExecContext(ctx, db, q, shp); err != nil {
		return fmt.Errorf("updating shop[%s]: %w", shp.ID, err)
	}

	return nil
}
