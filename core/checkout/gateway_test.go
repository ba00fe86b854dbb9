package checkout

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/doorstep-app/doorstep/api/web"
	"github.com/doorstep-app/doorstep/config"
	"github.com/doorstep-app/doorstep/core/order"
	"github.com/gorilla/mux"
	"github.com/plutov/paypal/v4"
	"github.com/stripe/stripe-go/v74"
	stripecl "github.com/stripe/stripe-go/v74/client"
	"github.com/stripe/stripe-go/v74/webhook"
	mock "github.com/stripe/stripe-mock/param"
)

type mockStripe struct {
	expectedAmount int64
}

func (m *mockStripe) handle() http.Handler {
	checkout := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		params, _ := mock.ParseParams(r)

		if params["mode"] != "payment" {
			web.Respond(context.Background(), w, nil, 400)
			return
		}
		if params["client_reference_id"] == "" {
			web.Respond(context.Background(), w, nil, 400)
			return
		}

		lines := params["line_items"].(map[string]any)
		if len(lines) != 1 {
			web.Respond(context.Background(), w, nil, 400)
			return
		}

		it := lines["0"].(map[string]any)
		if it["quantity"] != "1" {
			web.Respond(context.Background(), w, nil, 400)
			return
		}

		pd := it["price_data"].(map[string]any)
		if pd["unit_amount"] != strconv.FormatInt(m.expectedAmount, 10) {
			web.Respond(context.Background(), w, nil, 400)
			return
		}

		sess := map[string]any{"id": "cs_test_1", "url": "https://checkout.stripe.test/pay/cs_test_1"}
		web.Respond(context.Background(), w, sess, 201)
	})

	r := mux.NewRouter()
	r.Handle("/v1/checkout/sessions", checkout).Methods("POST")
	return r
}

func stripeTestClient(srvURL string) *stripecl.API {
	api := &stripecl.API{}
	api.Init("sk_test_doorstep", &stripe.Backends{
		API: stripe.GetBackendWithConfig(stripe.APIBackend, &stripe.BackendConfig{
			URL:           stripe.String(srvURL),
			LeveledLogger: &stripe.LeveledLogger{Level: stripe.LevelError},
		}),
	})
	return api
}

func TestStripeGatewaySession(t *testing.T) {
	ms := &mockStripe{expectedAmount: 11000}
	srv := httptest.NewServer(ms.handle())
	defer srv.Close()

	gw := NewStripeGateway(stripeTestClient(srv.URL), config.Stripe{
		SuccessURL: "http://localhost:3000/orders",
		CancelURL:  "http://localhost:3000/checkout",
	})

	sess, err := gw.CreateSession(context.Background(), 11000, "INR", "chk_abcdefghijkl")
	if err != nil {
		t.Fatalf("creating stripe session: %v", err)
	}

	if sess.ProviderRef != "cs_test_1" {
		t.Errorf("provider ref: got %q, want cs_test_1", sess.ProviderRef)
	}
	if sess.RedirectURL != "https://checkout.stripe.test/pay/cs_test_1" {
		t.Errorf("redirect url: got %q", sess.RedirectURL)
	}
}

type mockPaypal struct {
	expectedValue string
}

func (m *mockPaypal) handle() http.Handler {
	token := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tok := map[string]any{
			"access_token": "test-token",
			"token_type":   "Bearer",
			"expires_in":   3600,
		}
		web.Respond(context.Background(), w, tok, 200)
	})

	checkout := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var pu struct {
			Units []paypal.PurchaseUnitRequest `json:"purchase_units"`
		}
		if err := json.NewDecoder(r.Body).Decode(&pu); err != nil {
			web.Respond(context.Background(), w, nil, 400)
			return
		}

		if len(pu.Units) != 1 {
			web.Respond(context.Background(), w, nil, 400)
			return
		}
		if pu.Units[0].Amount.Value != m.expectedValue {
			web.Respond(context.Background(), w, nil, 400)
			return
		}

		ord := paypal.Order{
			ID: "pp_order_1",
			Links: []paypal.Link{
				{Href: "https://paypal.test/self/pp_order_1", Rel: "self"},
				{Href: "https://paypal.test/approve/pp_order_1", Rel: "approve"},
			},
		}
		web.Respond(context.Background(), w, ord, 201)
	})

	r := mux.NewRouter()
	r.Handle("/v1/oauth2/token", token).Methods("POST")
	r.Handle("/v2/checkout/orders", checkout).Methods("POST")
	return r
}

func TestPaypalGatewaySession(t *testing.T) {
	mp := &mockPaypal{expectedValue: "110.00"}
	srv := httptest.NewServer(mp.handle())
	defer srv.Close()

	pp, err := paypal.NewClient("client-id", "secret", srv.URL)
	if err != nil {
		t.Fatalf("building paypal client: %v", err)
	}
	if _, err := pp.GetAccessToken(context.Background()); err != nil {
		t.Fatalf("getting paypal token: %v", err)
	}

	gw := NewPaypalGateway(pp)
	sess, err := gw.CreateSession(context.Background(), 11000, "INR", "chk_abcdefghijkl")
	if err != nil {
		t.Fatalf("creating paypal session: %v", err)
	}

	if sess.ProviderRef != "pp_order_1" {
		t.Errorf("provider ref: got %q, want pp_order_1", sess.ProviderRef)
	}
	if sess.RedirectURL != "https://paypal.test/approve/pp_order_1" {
		t.Errorf("redirect url: got %q, want the approve link", sess.RedirectURL)
	}
}

func TestStripeCaptureWebhook(t *testing.T) {
	ctx := context.Background()
	const secret = "whsec_test"

	a, _, carts, comp, _ := testAdapter(twoShopCart())
	comp.res = order.Result{
		Orders:    []order.Order{{Token: "ord_aaaaaaaaaa", ShopID: "shopA"}},
		Committed: []string{"shopA", "shopB"},
	}

	att, _, err := a.Begin(ctx, &fakeGateway{}, "u1", order.Delivery{Hostel: "H4", Room: "212", Name: "Asha", Phone: "9876543210"})
	if err != nil {
		t.Fatalf("beginning checkout: %v", err)
	}

	obj := map[string]any{
		"id":   att.ProviderRef,
		"mode": stripe.CheckoutSessionModePayment,
	}
	raw, err := json.Marshal(obj)
	if err != nil {
		t.Fatal(err)
	}

	evt := stripe.Event{
		APIVersion: "2022-11-15",
		Type:       "checkout.session.completed",
		Data: &stripe.EventData{
			Raw: json.RawMessage(raw),
		},
	}
	b, err := json.Marshal(evt)
	if err != nil {
		t.Fatal(err)
	}

	signed := webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
		Payload:   b,
		Secret:    secret,
		Timestamp: time.Now(),
	})

	r := httptest.NewRequest(http.MethodPost, "/checkout/stripe/capture", bytes.NewBuffer(b))
	r.Header.Set("Stripe-Signature", signed.Header)
	w := httptest.NewRecorder()

	h := HandleStripeCapture(a, config.Stripe{WebhookSecret: secret})
	if err := h(ctx, w, r); err != nil {
		t.Fatalf("handling stripe capture: %v", err)
	}

	if w.Code != http.StatusNoContent {
		t.Errorf("status: got %d, want %d", w.Code, http.StatusNoContent)
	}
	if comp.calls != 1 {
		t.Errorf("composer called %d times, want 1", comp.calls)
	}
	if comp.paymentRef != att.ProviderRef {
		t.Errorf("payment ref: got %q, want the session id %q", comp.paymentRef, att.ProviderRef)
	}
	if carts.clears != 1 {
		t.Errorf("cart cleared %d times, want 1", carts.clears)
	}

	if _, _, err := a.Complete(ctx, att.ProviderRef, att.ProviderRef); err != ErrNotAwaiting {
		t.Errorf("replayed webhook: got %v, want ErrNotAwaiting", err)
	}
}
