// Package auth owns sessions and the role gate. Authorization decisions
// delegate to the claims predicate so route middleware stays declarative.
package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/alexedwards/scs/v2"
	"github.com/doorstep-app/doorstep/api/web"
	"github.com/doorstep-app/doorstep/api/weberr"
	"github.com/doorstep-app/doorstep/core/claims"
)

const (
	userIDKey = "user_id"
	roleKey   = "role"
	shopIDKey = "shop_id"
	stateKey  = "oauth_state"
)

// LoadAndSave adapts the session manager to the handler chain. It loads
// the session from the request cookie, promotes the stored identity to
// claims in the context, and commits the session on the way out.
func LoadAndSave(session *scs.SessionManager) web.Middleware {
	m := func(handler web.Handler) web.Handler {
		h := func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
			var err error

			sh := session.LoadAndSave(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				ctx := r.Context()

				if id := session.GetString(ctx, userIDKey); id != "" {
					ctx = claims.Set(ctx, claims.Claims{
						UserID: id,
						Role:   session.GetString(ctx, roleKey),
						ShopID: session.GetString(ctx, shopIDKey),
					})
				}

				err = handler(ctx, w, r)
			}))

			sh.ServeHTTP(w, r)
			return err
		}
		return h
	}
	return m
}

// Authenticate rejects requests without a signed-in user.
func Authenticate(session *scs.SessionManager) web.Middleware {
	m := func(handler web.Handler) web.Handler {
		h := func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
			if _, err := claims.Get(ctx); err != nil {
				return weberr.NotAuthorized(errors.New("user not authenticated"))
			}

			return handler(ctx, w, r)
		}
		return h
	}
	return m
}

// Allow gates a route on one resource of the role model.
func Allow(session *scs.SessionManager, resource string) web.Middleware {
	m := func(handler web.Handler) web.Handler {
		h := func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
			clm, err := claims.Get(ctx)
			if err != nil {
				return weberr.NotAuthorized(errors.New("user not authenticated"))
			}

			if !claims.CanAccess(clm, resource) {
				err := fmt.Errorf("user[%s] with role[%s] cannot access %s", clm.UserID, clm.Role, resource)
				return weberr.NewError(err, "not allowed to access resource", http.StatusForbidden)
			}

			return handler(ctx, w, r)
		}
		return h
	}
	return m
}

// Refresh rewrites the stored role and shop after a mid-session role
// change, so the next request's claims see it without a new login.
func Refresh(ctx context.Context, session *scs.SessionManager, role string, shopID string) {
	session.Put(ctx, roleKey, role)
	session.Put(ctx, shopIDKey, shopID)
}

func Admin(session *scs.SessionManager) web.Middleware {
	return Allow(session, claims.ResourceAdminPanel)
}

func Shopkeeper(session *scs.SessionManager) web.Middleware {
	return Allow(session, claims.ResourceShopPanel)
}
