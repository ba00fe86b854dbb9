package claims

import (
	"context"
	"errors"
)

const (
	RoleAdmin      = "ADMIN"
	RoleShopkeeper = "SHOPKEEPER"
	RoleStudent    = "STUDENT"
)

// Resources gated by CanAccess. The router consults the predicate through
// role middleware; nothing else encodes role rules.
const (
	ResourceStorefront = "storefront"
	ResourceShopPanel  = "shop"
	ResourceAdminPanel = "admin"
)

type Claims struct {
	UserID string
	Role   string
	ShopID string
}

type ctxKey int

const claimsKey ctxKey = 1

func Set(ctx context.Context, claims Claims) context.Context {
	return context.WithValue(ctx, claimsKey, claims)
}

func Get(ctx context.Context) (Claims, error) {
	v, ok := ctx.Value(claimsKey).(Claims)
	if !ok {
		return Claims{}, errors.New("claim value missing from context")
	}
	return v, nil
}

// CanAccess is the authorization predicate for role-gated surfaces.
// Admins reach everything, shopkeepers reach the shop panel, any signed-in
// user reaches the storefront.
func CanAccess(c Claims, resource string) bool {
	switch resource {
	case ResourceAdminPanel:
		return c.Role == RoleAdmin
	case ResourceShopPanel:
		return c.Role == RoleShopkeeper || c.Role == RoleAdmin
	case ResourceStorefront:
		return c.UserID != ""
	}
	return false
}

func IsAdmin(ctx context.Context) bool {
	c, err := Get(ctx)
	if err != nil {
		return false
	}

	return c.Role == RoleAdmin
}

func IsUser(ctx context.Context, id string) bool {
	c, err := Get(ctx)
	if err != nil {
		return false
	}

	return c.UserID == id
}
