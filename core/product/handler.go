package product

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/doorstep-app/doorstep/api/web"
	"github.com/doorstep-app/doorstep/api/weberr"
	"github.com/doorstep-app/doorstep/core/claims"
	"github.com/doorstep-app/doorstep/validate"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

func HandleShow(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		prd, err := Fetch(ctx, db, web.Param(r, "id"))
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				return weberr.NotFound(err)
			}
			return err
		}

		return web.Respond(ctx, w, prd, http.StatusOK)
	}
}

func HandleListByShop(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		prds, err := ListByShop(ctx, db, web.Param(r, "id"))
		if err != nil {
			return err
		}

		return web.Respond(ctx, w, prds, http.StatusOK)
	}
}

func HandleListByCategory(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		prds, err := ListByCategory(ctx, db, web.Param(r, "slug"))
		if err != nil {
			return err
		}

		return web.Respond(ctx, w, prds, http.StatusOK)
	}
}

// HandleCreate adds a product to the shopkeeper's own shop.
func HandleCreate(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		clm, err := claims.Get(ctx)
		if err != nil {
			return weberr.NotAuthorized(errors.New("user not authenticated"))
		}
		if clm.ShopID == "" {
			return weberr.NewError(errors.New("user owns no shop"), "open a shop before adding products", http.StatusForbidden)
		}

		var p ProductNew
		if err := web.Decode(w, r, &p); err != nil {
			return weberr.BadRequest(fmt.Errorf("unable to decode payload: %w", err))
		}

		if err := validate.Check(p); err != nil {
			return weberr.NewError(err, err.Error(), http.StatusUnprocessableEntity)
		}

		now := time.Now().UTC()
		prd := Product{
			ID:          uuid.NewString(),
			ShopID:      clm.ShopID,
			Name:        p.Name,
			Description: p.Description,
			Price:       p.Price,
			Category:    p.Category,
			ImageURL:    p.ImageURL,
			Available:   true,
			CreatedAt:   now,
			UpdatedAt:   now,
		}

		if err := Create(ctx, db, prd); err != nil {
			return err
		}

		return web.Respond(ctx, w, prd, http.StatusCreated)
	}
}

func HandleUpdate(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		var up ProductUp
		if err := web.Decode(w, r, &up); err != nil {
			return weberr.BadRequest(fmt.Errorf("unable to decode payload: %w", err))
		}

		if err := validate.Check(up); err != nil {
			return weberr.NewError(err, err.Error(), http.StatusUnprocessableEntity)
		}

		prd, err := fetchOwned(ctx, db, web.Param(r, "id"))
		if err != nil {
			return err
		}

		if up.Name != nil {
			prd.Name = *up.Name
		}
		if up.Description != nil {
			prd.Description = *up.Description
		}
		if up.Price != nil {
			prd.Price = *up.Price
		}
		if up.Category != nil {
			prd.Category = *up.Category
		}
		if up.ImageURL != nil {
			prd.ImageURL = *up.ImageURL
		}
		if up.Available != nil {
			prd.Available = *up.Available
		}
		prd.UpdatedAt = time.Now().UTC()

		if err := Update(ctx, db, prd); err != nil {
			return err
		}

		return web.Respond(ctx, w, prd, http.StatusOK)
	}
}

func HandleDelete(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		prd, err := fetchOwned(ctx, db, web.Param(r, "id"))
		if err != nil {
			return err
		}

		if err := Delete(ctx, db, prd.ID); err != nil {
			return err
		}

		return web.Respond(ctx, w, nil, http.StatusNoContent)
	}
}

// fetchOwned loads a product and checks the caller may modify it.
func fetchOwned(ctx context.Context, db *sqlx.DB, id string) (Product, error) {
	clm, err := claims.Get(ctx)
	if err != nil {
		return Product{}, weberr.NotAuthorized(errors.New("user not authenticated"))
	}

	prd, err := Fetch(ctx, db, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Product{}, weberr.NotFound(err)
		}
		return Product{}, err
	}

	if prd.ShopID != clm.ShopID && !claims.IsAdmin(ctx) {
		return Product{}, weberr.NewError(errors.New("product is not yours"), "not allowed to modify this product", http.StatusForbidden)
	}

	return prd, nil
}
