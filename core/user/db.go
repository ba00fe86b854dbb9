package user

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
)

var ErrNotFound = errors.New("user not found")

func Create(ctx context.Context, db sqlx.ExtContext, usr User) error {
	const q = `
	INSERT INTO users
		(user_id, name, email, phone, role, shop_id, password_hash, created_at, updated_at)
	VALUES
		(:user_id, :name, :email, :phone, :role, :shop_id, :password_hash, :created_at, :updated_at)`

	if _, err := sqlx.NamedExecContext(ctx, db, q, usr); err != nil {
		return fmt.Errorf("inserting user: %w", err)
	}

	return nil
}

func FetchByID(ctx context.Context, db sqlx.ExtContext, id string) (User, error) {
	const q = `SELECT * FROM users WHERE user_id = $1`

	var usr User
	if err := sqlx.GetContext(ctx, db, &usr, q, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return User{}, ErrNotFound
		}
		return User{}, fmt.Errorf("selecting user[%s]: %w", id, err)
	}

	return usr, nil
}

func FetchByEmail(ctx context.Context, db sqlx.ExtContext, email string) (User, error) {
	const q = `SELECT * FROM users WHERE email = $1`

	var usr User
	if err := sqlx.GetContext(ctx, db, &usr, q, email); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return User{}, ErrNotFound
		}
		return User{}, fmt.Errorf("selecting user by email: %w", err)
	}

	return usr, nil
}

// UpdateShop links a shopkeeper to the shop they own and flips their role.
func UpdateShop(ctx context.Context, db sqlx.ExtContext, userID string, shopID string, role string) error {
	const q = `
	UPDATE users SET
		shop_id = $2,
		role = $3,
		updated_at = now()
	WHERE user_id = $1`

	if _, err := db.ExecContext(ctx, q, userID, shopID, role); err != nil {
		return fmt.Errorf("updating user[%s] shop: %w", userID, err)
	}

	return nil
}
