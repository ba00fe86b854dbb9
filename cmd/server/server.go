package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alexedwards/scs/v2"
	"github.com/ardanlabs/conf/v3"
	"github.com/doorstep-app/doorstep/api"
	"github.com/doorstep-app/doorstep/api/background"
	"github.com/doorstep-app/doorstep/config"
	"github.com/doorstep-app/doorstep/core/auth"
	"github.com/doorstep-app/doorstep/core/cart"
	"github.com/doorstep-app/doorstep/core/checkout"
	"github.com/doorstep-app/doorstep/core/order"
	"github.com/doorstep-app/doorstep/database"
	"github.com/doorstep-app/doorstep/docstore"
	"github.com/doorstep-app/doorstep/events"
	"github.com/doorstep-app/doorstep/rate"
	"github.com/plutov/paypal/v4"
	"github.com/sirupsen/logrus"
	stripecl "github.com/stripe/stripe-go/v74/client"
)

func main() {
	log := logrus.New()
	log.SetOutput(os.Stdout)

	if err := Run(log); err != nil {
		log.Error(err)
		os.Exit(1)
	}
}

func Run(logger *logrus.Logger) error {
	logger.Infof("starting server")
	defer logger.Info("shutdown complete")

	const prefix = "DOORSTEP"
	var cfg config.Config
	if _, err := conf.Parse(prefix, &cfg); err != nil {
		return fmt.Errorf("parsing config: %w", err)
	}

	lw := logger.Writer()
	defer lw.Close()
	errLog := log.New(lw, "", 0)

	db, err := database.Open(cfg.DB)
	if err != nil {
		return fmt.Errorf("failed to open db connection: %w", err)
	}

	if err := database.Migrate(db); err != nil {
		return fmt.Errorf("migrating database: %w", err)
	}

	docsCtx, docsCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer docsCancel()
	docs, err := docstore.Open(docsCtx, cfg.Redis)
	if err != nil {
		return fmt.Errorf("failed to open the document store: %w", err)
	}
	defer docs.Close()

	var pub interface {
		order.EventPublisher
		checkout.Events
	} = events.Noop{}

	var kfk *events.Kafka
	if !cfg.Kafka.Disabled {
		kfk = events.NewKafka(cfg.Kafka, logger)
		defer kfk.Close()
		pub = kfk
	}

	sessionManager := scs.New()
	sessionManager.Lifetime = cfg.Session.Lifetime

	bg := background.New(logger)

	pp, err := paypal.NewClient(
		cfg.Paypal.ClientID,
		cfg.Paypal.Secret,
		cfg.Paypal.URL,
	)
	if err != nil {
		return fmt.Errorf("failed to build the paypal client: %w", err)
	}

	if _, err = pp.GetAccessToken(context.TODO()); err != nil {
		return fmt.Errorf("failed to get the first paypal access token: %w", err)
	}

	strp := &stripecl.API{}
	strp.Init(cfg.Stripe.APISecret, nil)

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Oauth.DiscoveryTimeout)
	defer cancel()
	google := cfg.Oauth.Google
	oauthProvs, err := auth.MakeProviders(ctx, []auth.ProviderConfig{
		{Name: "google", Client: google.Client, Secret: google.Secret, URL: google.URL, RedirectURL: google.RedirectURL},
	})
	if err != nil {
		return fmt.Errorf("failed to discover oauth providers: %w", err)
	}

	carts := cart.NewStore(docs)
	composer := order.NewComposer(order.NewSQLStore(db))

	adapter := checkout.NewAdapter(checkout.AdapterConfig{
		Log:        logger,
		Docs:       docs,
		Carts:      carts,
		Orders:     composer,
		Events:     pub,
		Background: bg,
		Fee:        cfg.Delivery.Fee,
		Currency:   cfg.Delivery.Currency,
		AttemptTTL: cfg.Checkout.AttemptTTL,
	})

	limiter := rate.NewLimiter(10, 5, rate.Every(time.Second))

	mux := api.APIMux(api.APIConfig{
		CorsOrigin:       cfg.Cors.Origin,
		Log:              logger,
		DB:               db,
		Session:          sessionManager,
		Carts:            carts,
		Checkout:         adapter,
		Stripe:           checkout.NewStripeGateway(strp, cfg.Stripe),
		Paypal:           checkout.NewPaypalGateway(pp),
		PaypalClient:     pp,
		StripeCfg:        cfg.Stripe,
		Events:           pub,
		Providers:        oauthProvs,
		LoginRedirectURL: cfg.Oauth.LoginRedirectURL,
		Limiter:          limiter,
	})

	api := http.Server{
		Handler:      mux,
		Addr:         cfg.Web.Address,
		ReadTimeout:  cfg.Web.ReadTimeout,
		WriteTimeout: cfg.Web.WriteTimeout,
		IdleTimeout:  cfg.Web.IdleTimeout,
		ErrorLog:     errLog,
	}

	serverErrors := make(chan error, 1)

	go func() {
		logger.Infof("starting api router at %s", api.Addr)
		serverErrors <- api.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)

	case sig := <-shutdown:
		logger.Infof("shutting down: signal %s", sig)

		ctx, cancel := context.WithTimeout(context.Background(), cfg.Web.ShutdownTimeout)
		defer cancel()

		if err := api.Shutdown(ctx); err != nil {
			api.Close()
			return fmt.Errorf("could not stop server gracefully: %w", err)
		}

		if err := bg.Shutdown(ctx); err != nil {
			return fmt.Errorf("could not complete all background tasks: %w", err)
		}
	}
	return nil
}
