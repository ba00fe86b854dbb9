package order

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/doorstep-app/doorstep/api/web"
	"github.com/doorstep-app/doorstep/api/weberr"
	"github.com/doorstep-app/doorstep/core/claims"
	"github.com/doorstep-app/doorstep/validate"
	"github.com/jmoiron/sqlx"
)

// EventPublisher receives order lifecycle notifications. Satisfied by
// events.Kafka and events.Noop.
type EventPublisher interface {
	OrderStatusChanged(ctx context.Context, ord Order, previous Status) error
}

func HandleListMine(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		clm, err := claims.Get(ctx)
		if err != nil {
			return weberr.NotAuthorized(errors.New("user not authenticated"))
		}

		orders, err := ListByUser(ctx, db, clm.UserID)
		if err != nil {
			return fmt.Errorf("listing orders: %w", err)
		}

		return web.Respond(ctx, w, orders, http.StatusOK)
	}
}

func HandleShow(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		clm, err := claims.Get(ctx)
		if err != nil {
			return weberr.NotAuthorized(errors.New("user not authenticated"))
		}

		id := web.Param(r, "id")
		if err := validate.CheckID(id); err != nil {
			return weberr.BadRequest(err)
		}

		ord, err := Fetch(ctx, db, id)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				return weberr.NotFound(err)
			}
			return fmt.Errorf("fetching order[%s]: %w", id, err)
		}

		if !canSee(clm, ord) {
			return weberr.NotAuthorized(errors.New("not allowed to view this order"))
		}

		return web.Respond(ctx, w, ord, http.StatusOK)
	}
}

func HandleListByShop(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		clm, err := claims.Get(ctx)
		if err != nil {
			return weberr.NotAuthorized(errors.New("user not authenticated"))
		}

		shopID := web.Param(r, "id")
		if !claims.CanAccess(clm, claims.ResourceShopPanel) || (clm.Role == claims.RoleShopkeeper && clm.ShopID != shopID) {
			return weberr.NotAuthorized(errors.New("not the keeper of this shop"))
		}

		// limit is optional; the shopkeeper dashboard asks for the
		// recent few, the orders page omits it.
		limit := 0
		if raw := r.URL.Query().Get("limit"); raw != "" {
			limit, err = strconv.Atoi(raw)
			if err != nil || limit < 0 {
				return weberr.BadRequest(errors.New("limit must be a non-negative integer"))
			}
		}

		orders, err := ListByShop(ctx, db, shopID, limit)
		if err != nil {
			return fmt.Errorf("listing shop orders: %w", err)
		}

		return web.Respond(ctx, w, orders, http.StatusOK)
	}
}

func HandleUpdateStatus(db *sqlx.DB, events EventPublisher) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		clm, err := claims.Get(ctx)
		if err != nil {
			return weberr.NotAuthorized(errors.New("user not authenticated"))
		}

		var up struct {
			Status string `json:"status" validate:"required"`
		}
		if err := web.Decode(w, r, &up); err != nil {
			return weberr.BadRequest(err)
		}
		if err := validate.Check(up); err != nil {
			return weberr.NewError(err, err.Error(), http.StatusUnprocessableEntity)
		}

		next, ok := ParseStatus(up.Status)
		if !ok {
			return weberr.BadRequest(fmt.Errorf("unknown status %q", up.Status))
		}

		id := web.Param(r, "id")
		ord, err := Fetch(ctx, db, id)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				return weberr.NotFound(err)
			}
			return fmt.Errorf("fetching order[%s]: %w", id, err)
		}

		if !keeps(clm, ord) {
			return weberr.NotAuthorized(errors.New("not the keeper of this order's shop"))
		}

		if !ord.Status.CanTransition(next) {
			err := fmt.Errorf("cannot move order from %q to %q", ord.Status, next)
			return weberr.NewError(err, err.Error(), http.StatusConflict)
		}

		previous := ord.Status
		if err := UpdateStatus(ctx, db, StatusUp{ID: ord.ID, Status: next, UpdatedAt: time.Now().UTC()}); err != nil {
			return fmt.Errorf("updating order status: %w", err)
		}

		ord.Status = next

		// Best effort: the status change is already committed, a
		// publish failure must not fail the request. The publisher
		// logs its own errors.
		_ = events.OrderStatusChanged(ctx, ord, previous)

		return web.Respond(ctx, w, ord, http.StatusOK)
	}
}

func HandleAssignPartner(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		clm, err := claims.Get(ctx)
		if err != nil {
			return weberr.NotAuthorized(errors.New("user not authenticated"))
		}

		var up struct {
			Name  string `json:"name" validate:"required"`
			Phone string `json:"phone" validate:"required"`
		}
		if err := web.Decode(w, r, &up); err != nil {
			return weberr.BadRequest(err)
		}
		if err := validate.Check(up); err != nil {
			return weberr.NewError(err, err.Error(), http.StatusUnprocessableEntity)
		}

		id := web.Param(r, "id")
		ord, err := Fetch(ctx, db, id)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				return weberr.NotFound(err)
			}
			return fmt.Errorf("fetching order[%s]: %w", id, err)
		}

		if !keeps(clm, ord) {
			return weberr.NotAuthorized(errors.New("not the keeper of this order's shop"))
		}

		pu := PartnerUp{ID: ord.ID, PartnerName: up.Name, PartnerPhone: up.Phone, UpdatedAt: time.Now().UTC()}
		if err := UpdatePartner(ctx, db, pu); err != nil {
			return fmt.Errorf("assigning delivery partner: %w", err)
		}

		return web.Respond(ctx, w, nil, http.StatusNoContent)
	}
}

func canSee(clm claims.Claims, ord Order) bool {
	if clm.UserID == ord.UserID {
		return true
	}
	return keeps(clm, ord)
}

func keeps(clm claims.Claims, ord Order) bool {
	if clm.Role == claims.RoleAdmin {
		return true
	}
	return clm.Role == claims.RoleShopkeeper && clm.ShopID == ord.ShopID
}
