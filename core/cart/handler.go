package cart

import (
	"context"
	"errors"
	"net/http"

	"github.com/doorstep-app/doorstep/api/web"
	"github.com/doorstep-app/doorstep/api/weberr"
	"github.com/doorstep-app/doorstep/core/claims"
	"github.com/doorstep-app/doorstep/validate"
)

func HandleShow(carts *Store) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		clm, err := claims.Get(ctx)
		if err != nil {
			return weberr.NotAuthorized(errors.New("user not authenticated"))
		}

		c, err := carts.Get(ctx, clm.UserID)
		if err != nil {
			return translate(err)
		}

		return web.Respond(ctx, w, c, http.StatusOK)
	}
}

func HandleCreateItem(carts *Store) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		clm, err := claims.Get(ctx)
		if err != nil {
			return weberr.NotAuthorized(errors.New("user not authenticated"))
		}

		var it Item
		if err := web.Decode(w, r, &it); err != nil {
			return weberr.BadRequest(err)
		}

		if err := validate.Check(it); err != nil {
			return weberr.NewError(err, err.Error(), http.StatusUnprocessableEntity)
		}

		c, err := carts.Add(ctx, clm.UserID, it)
		if err != nil {
			return translate(err)
		}

		return web.Respond(ctx, w, c, http.StatusOK)
	}
}

func HandleUpdateItem(carts *Store) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		clm, err := claims.Get(ctx)
		if err != nil {
			return weberr.NotAuthorized(errors.New("user not authenticated"))
		}

		var up struct {
			Quantity int `json:"quantity" validate:"gte=0"`
		}
		if err := web.Decode(w, r, &up); err != nil {
			return weberr.BadRequest(err)
		}

		if err := validate.Check(up); err != nil {
			return weberr.NewError(err, err.Error(), http.StatusUnprocessableEntity)
		}

		c, err := carts.SetQuantity(ctx, clm.UserID, web.Param(r, "product_id"), up.Quantity)
		if err != nil {
			return translate(err)
		}

		return web.Respond(ctx, w, c, http.StatusOK)
	}
}

func HandleDeleteItem(carts *Store) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		clm, err := claims.Get(ctx)
		if err != nil {
			return weberr.NotAuthorized(errors.New("user not authenticated"))
		}

		c, err := carts.Remove(ctx, clm.UserID, web.Param(r, "product_id"))
		if err != nil {
			return translate(err)
		}

		return web.Respond(ctx, w, c, http.StatusOK)
	}
}

func HandleDelete(carts *Store) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		clm, err := claims.Get(ctx)
		if err != nil {
			return weberr.NotAuthorized(errors.New("user not authenticated"))
		}

		if _, err := carts.Clear(ctx, clm.UserID); err != nil {
			return translate(err)
		}

		return web.Respond(ctx, w, nil, http.StatusNoContent)
	}
}

// translate maps store errors onto HTTP responses. A failed document write
// surfaces as 503 so the client can tell the change may not be saved and
// offer a retry.
func translate(err error) error {
	switch {
	case errors.Is(err, ErrAuthRequired):
		return weberr.NotAuthorized(err)
	case errors.Is(err, ErrBadQuantity):
		return weberr.NewError(err, err.Error(), http.StatusUnprocessableEntity)
	default:
		return weberr.NewError(err, "the change may not have been saved, please retry", http.StatusServiceUnavailable)
	}
}
