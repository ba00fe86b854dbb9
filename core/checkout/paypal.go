package checkout

import (
	"context"
	"fmt"

	"github.com/plutov/paypal/v4"
)

// PaypalGateway opens capture-intent PayPal orders. Capture happens
// through HandlePaypalCapture once the buyer approves.
type PaypalGateway struct {
	client *paypal.Client
}

func NewPaypalGateway(client *paypal.Client) *PaypalGateway {
	return &PaypalGateway{client: client}
}

func (g *PaypalGateway) Name() string { return "paypal" }

func (g *PaypalGateway) CreateSession(ctx context.Context, amount int64, currency string, ref string) (Session, error) {
	value := fmt.Sprintf("%d.%02d", amount/100, amount%100)

	units := []paypal.PurchaseUnitRequest{{
		ReferenceID: ref,
		Amount: &paypal.PurchaseUnitAmount{
			Currency: currency,
			Value:    value,
		},
	}}

	ord, err := g.client.CreateOrder(ctx, paypal.OrderIntentCapture, units, nil, &paypal.ApplicationContext{})
	if err != nil {
		return Session{}, fmt.Errorf("creating paypal order: %w", err)
	}

	sess := Session{ProviderRef: ord.ID}
	for _, link := range ord.Links {
		if link.Rel == "approve" {
			sess.RedirectURL = link.Href
		}
	}

	return sess, nil
}
