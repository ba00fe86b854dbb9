package checkout

import (
	"context"
	"fmt"
	"strings"

	"github.com/doorstep-app/doorstep/config"
	"github.com/stripe/stripe-go/v74"
	stripecl "github.com/stripe/stripe-go/v74/client"
)

// StripeGateway opens hosted checkout sessions. Capture arrives through
// the signed webhook handled by HandleStripeCapture.
type StripeGateway struct {
	api *stripecl.API
	cfg config.Stripe
}

func NewStripeGateway(api *stripecl.API, cfg config.Stripe) *StripeGateway {
	return &StripeGateway{api: api, cfg: cfg}
}

func (g *StripeGateway) Name() string { return "stripe" }

func (g *StripeGateway) CreateSession(ctx context.Context, amount int64, currency string, ref string) (Session, error) {
	params := &stripe.CheckoutSessionParams{
		SuccessURL:        stripe.String(g.cfg.SuccessURL),
		CancelURL:         stripe.String(g.cfg.CancelURL),
		Mode:              stripe.String(string(stripe.CheckoutSessionModePayment)),
		ClientReferenceID: stripe.String(ref),

		LineItems: []*stripe.CheckoutSessionLineItemParams{{
			Quantity: stripe.Int64(1),

			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency:   stripe.String(strings.ToLower(currency)),
				UnitAmount: stripe.Int64(amount),

				ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
					Name:        stripe.String("Doorstep order"),
					Description: stripe.String(fmt.Sprintf("Campus delivery checkout %s", ref)),
				},
			},
		}},
	}
	params.Context = ctx

	s, err := g.api.CheckoutSessions.New(params)
	if err != nil {
		return Session{}, fmt.Errorf("creating stripe session: %w", err)
	}

	return Session{ProviderRef: s.ID, RedirectURL: s.URL}, nil
}
