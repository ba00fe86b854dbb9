package api

import (
	"context"
	"net/http"

	"github.com/alexedwards/scs/v2"
	"github.com/doorstep-app/doorstep/api/middleware"
	"github.com/doorstep-app/doorstep/api/web"
	"github.com/doorstep-app/doorstep/config"
	"github.com/doorstep-app/doorstep/core/auth"
	"github.com/doorstep-app/doorstep/core/cart"
	"github.com/doorstep-app/doorstep/core/category"
	"github.com/doorstep-app/doorstep/core/checkout"
	"github.com/doorstep-app/doorstep/core/order"
	"github.com/doorstep-app/doorstep/core/product"
	"github.com/doorstep-app/doorstep/core/shop"
	"github.com/doorstep-app/doorstep/core/user"
	"github.com/doorstep-app/doorstep/metrics"
	"github.com/doorstep-app/doorstep/rate"
	"github.com/gorilla/mux"
	"github.com/jmoiron/sqlx"
	"github.com/plutov/paypal/v4"
	"github.com/sirupsen/logrus"
)

type APIConfig struct {
	CorsOrigin       string
	Log              logrus.FieldLogger
	DB               *sqlx.DB
	Session          *scs.SessionManager
	Carts            *cart.Store
	Checkout         *checkout.Adapter
	Stripe           *checkout.StripeGateway
	Paypal           *checkout.PaypalGateway
	PaypalClient     *paypal.Client
	StripeCfg        config.Stripe
	Events           order.EventPublisher
	Providers        map[string]auth.Provider
	LoginRedirectURL string
	Limiter          *rate.Limiter
}

type api struct {
	*mux.Router
	mw  []web.Middleware
	log logrus.FieldLogger
}

func APIMux(cfg APIConfig) http.Handler {
	a := &api{
		Router: mux.NewRouter(),
		log:    cfg.Log,
	}

	a.mw = append(a.mw, auth.LoadAndSave(cfg.Session))
	a.mw = append(a.mw, middleware.RequestID())
	a.mw = append(a.mw, middleware.Logger(cfg.Log))
	a.mw = append(a.mw, middleware.Errors(cfg.Log))
	a.mw = append(a.mw, middleware.Panics())

	if cfg.CorsOrigin != "" {
		a.mw = append(a.mw, middleware.Cors(cfg.CorsOrigin))

		h := func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
			w.WriteHeader(http.StatusNoContent)
			return nil
		}

		a.Handle(http.MethodOptions, "/{path:.*}", h)
	}

	authen := auth.Authenticate(cfg.Session)
	keeper := auth.Shopkeeper(cfg.Session)
	admin := auth.Admin(cfg.Session)

	var limited web.Middleware
	if cfg.Limiter != nil {
		limited = middleware.RateLimit(cfg.Limiter)
	}

	a.Handle(http.MethodPost, "/auth/signup", auth.HandleSignup(cfg.DB, cfg.Session), limited)
	a.Handle(http.MethodPost, "/auth/login", auth.HandleLogin(cfg.DB, cfg.Session), limited)
	a.Handle(http.MethodPost, "/auth/logout", auth.HandleLogout(cfg.Session))
	a.Handle(http.MethodGet, "/auth/oauth-login/{provider}", auth.HandleOauthLogin(cfg.Session, cfg.Providers))
	a.Handle(http.MethodGet, "/auth/oauth-callback/{provider}", auth.HandleOauthCallback(cfg.DB, cfg.Session, cfg.Providers, cfg.LoginRedirectURL))

	a.Handle(http.MethodGet, "/users/current", user.HandleShowCurrent(cfg.DB), authen)

	a.Handle(http.MethodGet, "/categories", category.HandleList(cfg.DB))
	a.Handle(http.MethodGet, "/categories/{slug}/products", product.HandleListByCategory(cfg.DB))
	a.Handle(http.MethodPost, "/categories", category.HandleCreate(cfg.DB), admin)
	a.Handle(http.MethodPut, "/categories/{id}", category.HandleUpdate(cfg.DB), admin)
	a.Handle(http.MethodDelete, "/categories/{id}", category.HandleDelete(cfg.DB), admin)

	a.Handle(http.MethodGet, "/shops", shop.HandleList(cfg.DB))
	a.Handle(http.MethodPost, "/shops", shop.HandleCreate(cfg.DB, cfg.Session), authen)
	a.Handle(http.MethodGet, "/shops/{id}/products", product.HandleListByShop(cfg.DB))
	a.Handle(http.MethodGet, "/shops/{id}/orders", order.HandleListByShop(cfg.DB), keeper)
	a.Handle(http.MethodGet, "/shops/{id}", shop.HandleShow(cfg.DB))
	a.Handle(http.MethodPut, "/shops/{id}", shop.HandleUpdate(cfg.DB), keeper)

	a.Handle(http.MethodGet, "/products/{id}", product.HandleShow(cfg.DB))
	a.Handle(http.MethodPost, "/products", product.HandleCreate(cfg.DB), keeper)
	a.Handle(http.MethodPut, "/products/{id}", product.HandleUpdate(cfg.DB), keeper)
	a.Handle(http.MethodDelete, "/products/{id}", product.HandleDelete(cfg.DB), keeper)

	a.Handle(http.MethodGet, "/cart", cart.HandleShow(cfg.Carts), authen)
	a.Handle(http.MethodDelete, "/cart", cart.HandleDelete(cfg.Carts), authen)
	a.Handle(http.MethodPut, "/cart/items", cart.HandleCreateItem(cfg.Carts), authen)
	a.Handle(http.MethodPut, "/cart/items/{product_id}", cart.HandleUpdateItem(cfg.Carts), authen)
	a.Handle(http.MethodDelete, "/cart/items/{product_id}", cart.HandleDeleteItem(cfg.Carts), authen)

	a.Handle(http.MethodPost, "/checkout/stripe", checkout.HandleStripeCheckout(cfg.Checkout, cfg.Stripe), authen, limited)
	a.Handle(http.MethodPost, "/checkout/stripe/capture", checkout.HandleStripeCapture(cfg.Checkout, cfg.StripeCfg))
	a.Handle(http.MethodPost, "/checkout/paypal", checkout.HandlePaypalCheckout(cfg.Checkout, cfg.Paypal), authen, limited)
	a.Handle(http.MethodPost, "/checkout/paypal/{id}/capture", checkout.HandlePaypalCapture(cfg.Checkout, cfg.PaypalClient), authen)
	a.Handle(http.MethodPost, "/checkout/{id}/dismiss", checkout.HandleDismiss(cfg.Checkout), authen)

	a.Handle(http.MethodGet, "/orders", order.HandleListMine(cfg.DB), authen)
	a.Handle(http.MethodGet, "/orders/{id}", order.HandleShow(cfg.DB), authen)
	a.Handle(http.MethodPut, "/orders/{id}/status", order.HandleUpdateStatus(cfg.DB, cfg.Events), keeper)
	a.Handle(http.MethodPut, "/orders/{id}/partner", order.HandleAssignPartner(cfg.DB), keeper)

	a.Router.Handle("/metrics", metrics.Handler()).Methods(http.MethodGet)

	return a.Router
}

func (a *api) Handle(method string, path string, handler web.Handler, mw ...web.Middleware) {

	handler = web.WrapMiddleware(mw, handler)

	handler = web.WrapMiddleware(a.mw, handler)

	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {

		ctx := r.Context()

		if err := handler(ctx, w, r); err != nil {

			a.log.WithFields(logrus.Fields{
				"req_id":  middleware.ContextRequestID(ctx),
				"message": err,
			}).Error("ERROR")
		}
	})

	a.Router.Handle(path, h).Methods(method)
}
