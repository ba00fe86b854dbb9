package checkout

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/doorstep-app/doorstep/api/web"
	"github.com/doorstep-app/doorstep/api/weberr"
	"github.com/doorstep-app/doorstep/config"
	"github.com/doorstep-app/doorstep/core/cart"
	"github.com/doorstep-app/doorstep/core/claims"
	"github.com/doorstep-app/doorstep/core/order"
	"github.com/doorstep-app/doorstep/validate"
	"github.com/plutov/paypal/v4"
	"github.com/stripe/stripe-go/v74"
	"github.com/stripe/stripe-go/v74/webhook"
)

type beginResponse struct {
	Ref         string `json:"checkoutRef"`
	ProviderRef string `json:"providerRef"`
	RedirectURL string `json:"redirectUrl"`
	Amount      int    `json:"amount"`
	Currency    string `json:"currency"`
}

func handleBegin(a *Adapter, gw Gateway) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		clm, err := claims.Get(ctx)
		if err != nil {
			return weberr.NotAuthorized(errors.New("user not authenticated"))
		}

		var del order.Delivery
		if err := web.Decode(w, r, &del); err != nil {
			return weberr.BadRequest(err)
		}
		if err := validate.Check(del); err != nil {
			return weberr.NewError(err, err.Error(), http.StatusUnprocessableEntity)
		}

		att, sess, err := a.Begin(ctx, gw, clm.UserID, del)
		if err != nil {
			return translate(err)
		}

		resp := beginResponse{
			Ref:         att.Ref,
			ProviderRef: sess.ProviderRef,
			RedirectURL: sess.RedirectURL,
			Amount:      att.Amount,
			Currency:    att.Currency,
		}
		return web.Respond(ctx, w, resp, http.StatusOK)
	}
}

func HandleStripeCheckout(a *Adapter, gw *StripeGateway) web.Handler {
	return handleBegin(a, gw)
}

func HandlePaypalCheckout(a *Adapter, gw *PaypalGateway) web.Handler {
	return handleBegin(a, gw)
}

// HandleStripeCapture consumes the signed checkout.session.completed
// webhook and drives the attempt to its terminal state.
func HandleStripeCapture(a *Adapter, cfg config.Stripe) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		b, err := io.ReadAll(r.Body)
		if err != nil {
			return weberr.BadRequest(fmt.Errorf("cannot read the request body: %w", err))
		}

		sig := r.Header.Get("Stripe-Signature")
		if sig == "" {
			return weberr.BadRequest(errors.New("received stripe event is not signed"))
		}

		event, err := webhook.ConstructEvent(b, sig, cfg.WebhookSecret)
		if err != nil {
			return weberr.BadRequest(fmt.Errorf("cannot construct stripe event: %w", err))
		}

		if event.Type != "checkout.session.completed" {
			return web.Respond(ctx, w, nil, http.StatusNoContent)
		}

		var session stripe.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
			return weberr.BadRequest(fmt.Errorf("unable to decode stripe event: %w", err))
		}

		if session.Mode != stripe.CheckoutSessionModePayment {
			return web.Respond(ctx, w, nil, http.StatusNoContent)
		}

		paymentRef := session.ID
		if session.PaymentIntent != nil {
			paymentRef = session.PaymentIntent.ID
		}

		if _, res, err := a.Complete(ctx, session.ID, paymentRef); err != nil {
			return translateCommit(err, res)
		}

		return web.Respond(ctx, w, nil, http.StatusNoContent)
	}
}

// HandlePaypalCapture captures an approved PayPal order and drives the
// attempt to its terminal state.
func HandlePaypalCapture(a *Adapter, pp *paypal.Client) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		providerRef := web.Param(r, "id")

		resp, err := pp.CaptureOrder(ctx, providerRef, paypal.CaptureOrderRequest{})
		if err != nil {
			return fmt.Errorf("capturing paypal order[%s]: %w", providerRef, err)
		}

		if resp.Status != "COMPLETED" {
			return fmt.Errorf("captured order[%s] with status[%s] different from 'COMPLETED'", providerRef, resp.Status)
		}

		if _, res, err := a.Complete(ctx, providerRef, resp.ID); err != nil {
			return translateCommit(err, res)
		}

		return web.Respond(ctx, w, nil, http.StatusNoContent)
	}
}

// HandleDismiss records the widget's failure or dismissal callback. No
// cart or order state is touched either way.
func HandleDismiss(a *Adapter) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		if _, err := claims.Get(ctx); err != nil {
			return weberr.NotAuthorized(errors.New("user not authenticated"))
		}

		var body struct {
			Cancelled bool `json:"cancelled"`
		}
		if err := web.Decode(w, r, &body); err != nil {
			return weberr.BadRequest(err)
		}

		att, err := a.Dismiss(ctx, web.Param(r, "id"), body.Cancelled)
		if err != nil {
			return translate(err)
		}

		return web.Respond(ctx, w, att, http.StatusOK)
	}
}

func translate(err error) error {
	switch {
	case errors.Is(err, cart.ErrAuthRequired):
		return weberr.NotAuthorized(err)
	case errors.Is(err, order.ErrEmptyCart):
		return weberr.NewError(err, err.Error(), http.StatusUnprocessableEntity)
	case errors.Is(err, ErrAttemptNotFound):
		return weberr.NotFound(err)
	case errors.Is(err, ErrNotAwaiting):
		return weberr.NewError(err, err.Error(), http.StatusConflict)
	default:
		return err
	}
}

// translateCommit keeps the partial-commit detail visible to both the
// caller and the error log instead of collapsing it into a 500.
func translateCommit(err error, res order.Result) error {
	if errors.Is(err, ErrPartialCommit) {
		return weberr.NewError(err, err.Error(), http.StatusInternalServerError,
			weberr.WithFields(map[string]interface{}{
				"committed": res.Committed,
				"failed":    res.Failed,
			}),
		)
	}
	return translate(err)
}
