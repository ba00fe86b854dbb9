package shop

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/alexedwards/scs/v2"
	"github.com/doorstep-app/doorstep/api/web"
	"github.com/doorstep-app/doorstep/api/weberr"
	"github.com/doorstep-app/doorstep/core/auth"
	"github.com/doorstep-app/doorstep/core/claims"
	"github.com/doorstep-app/doorstep/core/user"
	"github.com/doorstep-app/doorstep/database"
	"github.com/doorstep-app/doorstep/validate"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

// HandleCreate opens a shop for the signed-in user and promotes them to
// shopkeeper. The unique owner constraint enforces one shop per owner.
func HandleCreate(db *sqlx.DB, session *scs.SessionManager) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		clm, err := claims.Get(ctx)
		if err != nil {
			return weberr.NotAuthorized(errors.New("user not authenticated"))
		}

		var s ShopNew
		if err := web.Decode(w, r, &s); err != nil {
			return weberr.BadRequest(fmt.Errorf("unable to decode payload: %w", err))
		}

		if err := validate.Check(s); err != nil {
			return weberr.NewError(err, err.Error(), http.StatusUnprocessableEntity)
		}

		now := time.Now().UTC()
		shp := Shop{
			ID:           uuid.NewString(),
			OwnerID:      clm.UserID,
			Name:         s.Name,
			Description:  s.Description,
			Location:     s.Location,
			Cuisine:      s.Cuisine,
			ImageURL:     s.ImageURL,
			DeliveryTime: s.DeliveryTime,
			Active:       true,
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		if shp.DeliveryTime == "" {
			shp.DeliveryTime = "30-40 min"
		}

		err = database.Transaction(db, func(tx sqlx.ExtContext) error {
			if err := Create(ctx, tx, shp); err != nil {
				return err
			}
			return user.UpdateShop(ctx, tx, clm.UserID, shp.ID, claims.RoleShopkeeper)
		})
		if err != nil {
			var pqerr *pq.Error
			if errors.As(err, &pqerr) && pqerr.Code.Name() == "unique_violation" {
				return weberr.NewError(err, "you already own a shop", http.StatusConflict)
			}
			return err
		}

		auth.Refresh(ctx, session, claims.RoleShopkeeper, shp.ID)

		return web.Respond(ctx, w, shp, http.StatusCreated)
	}
}

func HandleShow(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		shp, err := Fetch(ctx, db, web.Param(r, "id"))
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				return weberr.NotFound(err)
			}
			return err
		}

		return web.Respond(ctx, w, shp, http.StatusOK)
	}
}

func HandleList(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		shops, err := ListActive(ctx, db)
		if err != nil {
			return err
		}

		return web.Respond(ctx, w, shops, http.StatusOK)
	}
}

// HandleUpdate lets the owning shopkeeper (or an admin) edit the shop.
func HandleUpdate(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		clm, err := claims.Get(ctx)
		if err != nil {
			return weberr.NotAuthorized(errors.New("user not authenticated"))
		}

		shopID := web.Param(r, "id")
		if clm.ShopID != shopID && !claims.IsAdmin(ctx) {
			return weberr.NewError(errors.New("shop is not yours"), "not allowed to edit this shop", http.StatusForbidden)
		}

		var up ShopUp
		if err := web.Decode(w, r, &up); err != nil {
			return weberr.BadRequest(fmt.Errorf("unable to decode payload: %w", err))
		}

		if err := validate.Check(up); err != nil {
			return weberr.NewError(err, err.Error(), http.StatusUnprocessableEntity)
		}

		shp, err := Fetch(ctx, db, shopID)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				return weberr.NotFound(err)
			}
			return err
		}

		if up.Name != nil {
			shp.Name = *up.Name
		}
		if up.Description != nil {
			shp.Description = *up.Description
		}
		if up.Location != nil {
			shp.Location = *up.Location
		}
		if up.Cuisine != nil {
			shp.Cuisine = *up.Cuisine
		}
		if up.ImageURL != nil {
			shp.ImageURL = *up.ImageURL
		}
		if up.DeliveryTime != nil {
			shp.DeliveryTime = *up.DeliveryTime
		}
		if up.Active != nil {
			shp.Active = *up.Active
		}
		shp.UpdatedAt = time.Now().UTC()

		if err := Update(ctx, db, shp); err != nil {
			return err
		}

		return web.Respond(ctx, w, shp, http.StatusOK)
	}
}
