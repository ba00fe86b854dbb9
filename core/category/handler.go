package category

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/doorstep-app/doorstep/api/web"
	"github.com/doorstep-app/doorstep/api/weberr"
	"github.com/doorstep-app/doorstep/validate"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

func HandleList(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		cats, err := ListActive(ctx, db)
		if err != nil {
			return err
		}

		return web.Respond(ctx, w, cats, http.StatusOK)
	}
}

func HandleCreate(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		var c CategoryNew
		if err := web.Decode(w, r, &c); err != nil {
			return weberr.BadRequest(fmt.Errorf("unable to decode payload: %w", err))
		}

		if err := validate.Check(c); err != nil {
			return weberr.NewError(err, err.Error(), http.StatusUnprocessableEntity)
		}

		now := time.Now().UTC()
		cat := Category{
			ID:          uuid.NewString(),
			Name:        c.Name,
			Slug:        c.Slug,
			Description: c.Description,
			ImageURL:    c.ImageURL,
			Color:       c.Color,
			Active:      true,
			CreatedAt:   now,
			UpdatedAt:   now,
		}

		if err := Create(ctx, db, cat); err != nil {
			var pqerr *pq.Error
			if errors.As(err, &pqerr) && pqerr.Code.Name() == "unique_violation" {
				return weberr.NewError(err, "slug already in use", http.StatusConflict)
			}
			return err
		}

		return web.Respond(ctx, w, cat, http.StatusCreated)
	}
}

func HandleUpdate(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		var up CategoryUp
		if err := web.Decode(w, r, &up); err != nil {
			return weberr.BadRequest(fmt.Errorf("unable to decode payload: %w", err))
		}

		if err := validate.Check(up); err != nil {
			return weberr.NewError(err, err.Error(), http.StatusUnprocessableEntity)
		}

		cat, err := Fetch(ctx, db, web.Param(r, "id"))
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				return weberr.NotFound(err)
			}
			return err
		}

		if up.Name != nil {
			cat.Name = *up.Name
		}
		if up.Description != nil {
			cat.Description = *up.Description
		}
		if up.ImageURL != nil {
			cat.ImageURL = *up.ImageURL
		}
		if up.Color != nil {
			cat.Color = *up.Color
		}
		if up.Active != nil {
			cat.Active = *up.Active
		}
		cat.UpdatedAt = time.Now().UTC()

		if err := Update(ctx, db, cat); err != nil {
			return err
		}

		return web.Respond(ctx, w, cat, http.StatusOK)
	}
}

func HandleDelete(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		if err := Delete(ctx, db, web.Param(r, "id")); err != nil {
			return err
		}

		return web.Respond(ctx, w, nil, http.StatusNoContent)
	}
}
