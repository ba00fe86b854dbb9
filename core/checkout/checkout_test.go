package checkout

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/doorstep-app/doorstep/core/cart"
	"github.com/doorstep-app/doorstep/core/order"
	"github.com/doorstep-app/doorstep/events"
	"github.com/sirupsen/logrus"
)

type fakeDocs struct {
	mu   sync.Mutex
	docs map[string][]byte
	sets int
}

func newFakeDocs() *fakeDocs {
	return &fakeDocs{docs: make(map[string][]byte)}
}

func (f *fakeDocs) Get(ctx context.Context, key string) ([]byte, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	raw, ok := f.docs[key]
	return raw, ok, nil
}

func (f *fakeDocs) Set(ctx context.Context, key string, doc []byte, ttl time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sets++
	f.docs[key] = doc
	return nil
}

type fakeCarts struct {
	crt    cart.Cart
	getErr error
	clears int
}

func (f *fakeCarts) Get(ctx context.Context, userID string) (cart.Cart, error) {
	if f.getErr != nil {
		return cart.Cart{}, f.getErr
	}
	return f.crt, nil
}

func (f *fakeCarts) Clear(ctx context.Context, userID string) (cart.Cart, error) {
	f.clears++
	f.crt = cart.Cart{Items: []cart.Item{}}
	return f.crt, nil
}

type fakeComposer struct {
	res        order.Result
	err        error
	calls      int
	paymentRef string
}

func (f *fakeComposer) Compose(ctx context.Context, crt cart.Cart, del order.Delivery, paymentRef string) (order.Result, error) {
	f.calls++
	f.paymentRef = paymentRef
	if f.err != nil {
		return order.Result{}, f.err
	}
	return f.res, nil
}

type fakeGateway struct {
	err   error
	calls int
	ref   string
}

func (f *fakeGateway) Name() string { return "testpay" }

func (f *fakeGateway) CreateSession(ctx context.Context, amount int64, currency string, ref string) (Session, error) {
	f.calls++
	f.ref = ref
	if f.err != nil {
		return Session{}, f.err
	}
	return Session{ProviderRef: "pay_123", RedirectURL: "https://pay.test/s/pay_123"}, nil
}

type recordEvents struct {
	created []order.Order
	recs    []events.Reconciliation
}

func (r *recordEvents) OrderCreated(ctx context.Context, ord order.Order) error {
	r.created = append(r.created, ord)
	return nil
}

func (r *recordEvents) ReconciliationRequired(ctx context.Context, rec events.Reconciliation) error {
	r.recs = append(r.recs, rec)
	return nil
}

func testLog() logrus.FieldLogger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func twoShopCart() cart.Cart {
	items := []cart.Item{
		{ProductID: "p1", Name: "samosa", Price: 30, Quantity: 2, ShopID: "shopA"},
		{ProductID: "p2", Name: "notebook", Price: 40, Quantity: 1, ShopID: "shopB"},
	}
	return cart.Cart{UserID: "u1", Items: items, Total: 100}
}

func testAdapter(crt cart.Cart) (*Adapter, *fakeDocs, *fakeCarts, *fakeComposer, *recordEvents) {
	docs := newFakeDocs()
	carts := &fakeCarts{crt: crt}
	comp := &fakeComposer{}
	evs := &recordEvents{}

	a := NewAdapter(AdapterConfig{
		Log:        testLog(),
		Docs:       docs,
		Carts:      carts,
		Orders:     comp,
		Events:     evs,
		Fee:        10,
		Currency:   "INR",
		AttemptTTL: 30 * time.Minute,
	})
	return a, docs, carts, comp, evs
}

func TestBeginOpensSession(t *testing.T) {
	ctx := context.Background()
	a, docs, _, _, _ := testAdapter(twoShopCart())
	gw := &fakeGateway{}

	att, sess, err := a.Begin(ctx, gw, "u1", order.Delivery{Hostel: "H4", Room: "212", Name: "Asha", Phone: "9876543210"})
	if err != nil {
		t.Fatalf("beginning checkout: %v", err)
	}

	if want := (100 + 10) * 100; att.Amount != want {
		t.Errorf("amount: got %d, want %d", att.Amount, want)
	}
	if att.Currency != "INR" {
		t.Errorf("currency: got %q, want INR", att.Currency)
	}
	if att.State != StateAwaitingPayment {
		t.Errorf("state: got %q, want %q", att.State, StateAwaitingPayment)
	}
	if att.ProviderRef != "pay_123" || sess.ProviderRef != "pay_123" {
		t.Errorf("provider ref not threaded through: att %q, sess %q", att.ProviderRef, sess.ProviderRef)
	}
	if sess.RedirectURL == "" {
		t.Error("session redirect URL is empty")
	}
	if gw.ref != att.Ref {
		t.Errorf("gateway saw ref %q, attempt has %q", gw.ref, att.Ref)
	}

	if _, ok, _ := docs.Get(ctx, "checkouts/pay_123"); !ok {
		t.Error("attempt was not stored under the provider ref")
	}
}

func TestBeginEmptyCart(t *testing.T) {
	ctx := context.Background()
	a, docs, _, _, _ := testAdapter(cart.Cart{UserID: "u1"})
	gw := &fakeGateway{}

	_, _, err := a.Begin(ctx, gw, "u1", order.Delivery{})
	if !errors.Is(err, order.ErrEmptyCart) {
		t.Fatalf("got %v, want ErrEmptyCart", err)
	}
	if gw.calls != 0 {
		t.Error("gateway session opened for an empty cart")
	}
	if docs.sets != 0 {
		t.Error("attempt stored for an empty cart")
	}
}

func TestCompleteFullCommit(t *testing.T) {
	ctx := context.Background()
	a, _, carts, comp, evs := testAdapter(twoShopCart())
	comp.res = order.Result{
		Orders: []order.Order{
			{Token: "ord_aaaaaaaaaa", ShopID: "shopA"},
			{Token: "ord_bbbbbbbbbb", ShopID: "shopB"},
		},
		Committed: []string{"shopA", "shopB"},
	}

	att, _, err := a.Begin(ctx, &fakeGateway{}, "u1", order.Delivery{Hostel: "H4", Room: "212", Name: "Asha", Phone: "9876543210"})
	if err != nil {
		t.Fatalf("beginning checkout: %v", err)
	}

	got, res, err := a.Complete(ctx, att.ProviderRef, "pay_ref_77")
	if err != nil {
		t.Fatalf("completing checkout: %v", err)
	}

	if got.State != StateSucceeded {
		t.Errorf("state: got %q, want %q", got.State, StateSucceeded)
	}
	if got.PaymentRef != "pay_ref_77" {
		t.Errorf("payment ref: got %q", got.PaymentRef)
	}
	if comp.paymentRef != "pay_ref_77" {
		t.Errorf("composer saw payment ref %q", comp.paymentRef)
	}
	if len(res.Orders) != 2 {
		t.Fatalf("got %d orders, want 2", len(res.Orders))
	}
	if carts.clears != 1 {
		t.Errorf("cart cleared %d times, want 1", carts.clears)
	}
	if len(evs.created) != 2 {
		t.Errorf("published %d order events, want 2", len(evs.created))
	}
	if len(evs.recs) != 0 {
		t.Error("reconciliation flagged on a fully committed checkout")
	}
}

func TestCompletePartialCommit(t *testing.T) {
	ctx := context.Background()
	a, _, carts, comp, evs := testAdapter(twoShopCart())
	comp.res = order.Result{
		Orders:    []order.Order{{Token: "ord_aaaaaaaaaa", ShopID: "shopA"}},
		Committed: []string{"shopA"},
		Failed:    []order.ShopFailure{{ShopID: "shopB", Reason: "insert failed"}},
	}

	att, _, err := a.Begin(ctx, &fakeGateway{}, "u1", order.Delivery{Hostel: "H4", Room: "212", Name: "Asha", Phone: "9876543210"})
	if err != nil {
		t.Fatalf("beginning checkout: %v", err)
	}

	got, res, err := a.Complete(ctx, att.ProviderRef, "pay_ref_77")
	if !errors.Is(err, ErrPartialCommit) {
		t.Fatalf("got %v, want ErrPartialCommit", err)
	}

	// Payment went through, so the attempt still records success even
	// though the composition needs reconciling.
	if got.State != StateSucceeded {
		t.Errorf("state: got %q, want %q", got.State, StateSucceeded)
	}
	if carts.clears != 0 {
		t.Error("cart cleared despite a failed shop")
	}
	if len(evs.recs) != 1 {
		t.Fatalf("got %d reconciliation events, want 1", len(evs.recs))
	}
	rec := evs.recs[0]
	if rec.PaymentRef != "pay_ref_77" || rec.UserID != "u1" {
		t.Errorf("reconciliation event misses identifiers: %+v", rec)
	}
	if len(rec.Failed) != 1 || rec.Failed[0].ShopID != "shopB" {
		t.Errorf("reconciliation failed shops: %+v", rec.Failed)
	}
	if len(res.Committed) != 1 || res.Committed[0] != "shopA" {
		t.Errorf("committed shops: %+v", res.Committed)
	}
	if len(evs.created) != 0 {
		t.Error("order created events published for a partial commit")
	}
}

func TestCompleteComposeError(t *testing.T) {
	ctx := context.Background()
	a, _, carts, comp, evs := testAdapter(twoShopCart())
	comp.err = errors.New("database unreachable")

	att, _, err := a.Begin(ctx, &fakeGateway{}, "u1", order.Delivery{Hostel: "H4", Room: "212", Name: "Asha", Phone: "9876543210"})
	if err != nil {
		t.Fatalf("beginning checkout: %v", err)
	}

	_, _, err = a.Complete(ctx, att.ProviderRef, "pay_ref_77")
	if err == nil {
		t.Fatal("expected an error when composition fails entirely")
	}
	if carts.clears != 0 {
		t.Error("cart cleared despite no committed orders")
	}
	if len(evs.recs) != 1 {
		t.Errorf("got %d reconciliation events, want 1", len(evs.recs))
	}
}

func TestDismissIssuesNoWrites(t *testing.T) {
	ctx := context.Background()

	cases := []struct {
		name      string
		cancelled bool
		want      State
	}{
		{"failed", false, StateFailed},
		{"cancelled", true, StateCancelled},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			a, _, carts, comp, _ := testAdapter(twoShopCart())
			att, _, err := a.Begin(ctx, &fakeGateway{}, "u1", order.Delivery{Hostel: "H4", Room: "212", Name: "Asha", Phone: "9876543210"})
			if err != nil {
				t.Fatalf("beginning checkout: %v", err)
			}

			got, err := a.Dismiss(ctx, att.ProviderRef, tc.cancelled)
			if err != nil {
				t.Fatalf("dismissing checkout: %v", err)
			}
			if got.State != tc.want {
				t.Errorf("state: got %q, want %q", got.State, tc.want)
			}
			if carts.clears != 0 {
				t.Error("cart touched by a dismissed checkout")
			}
			if comp.calls != 0 {
				t.Error("orders composed for a dismissed checkout")
			}
		})
	}
}

func TestUnknownProviderRef(t *testing.T) {
	ctx := context.Background()
	a, _, _, _, _ := testAdapter(twoShopCart())

	if _, _, err := a.Complete(ctx, "pay_unknown", "pay_ref_77"); !errors.Is(err, ErrAttemptNotFound) {
		t.Errorf("complete: got %v, want ErrAttemptNotFound", err)
	}
	if _, err := a.Dismiss(ctx, "pay_unknown", false); !errors.Is(err, ErrAttemptNotFound) {
		t.Errorf("dismiss: got %v, want ErrAttemptNotFound", err)
	}
}

func TestTerminalAttemptRejectsFurtherMoves(t *testing.T) {
	ctx := context.Background()
	a, _, carts, comp, _ := testAdapter(twoShopCart())
	comp.res = order.Result{
		Orders:    []order.Order{{Token: "ord_aaaaaaaaaa", ShopID: "shopA"}},
		Committed: []string{"shopA", "shopB"},
	}

	att, _, err := a.Begin(ctx, &fakeGateway{}, "u1", order.Delivery{Hostel: "H4", Room: "212", Name: "Asha", Phone: "9876543210"})
	if err != nil {
		t.Fatalf("beginning checkout: %v", err)
	}
	if _, _, err := a.Complete(ctx, att.ProviderRef, "pay_ref_77"); err != nil {
		t.Fatalf("completing checkout: %v", err)
	}

	// A retried webhook must not compose a second batch of orders.
	if _, _, err := a.Complete(ctx, att.ProviderRef, "pay_ref_77"); !errors.Is(err, ErrNotAwaiting) {
		t.Errorf("second complete: got %v, want ErrNotAwaiting", err)
	}
	if comp.calls != 1 {
		t.Errorf("composer called %d times, want 1", comp.calls)
	}
	if _, err := a.Dismiss(ctx, att.ProviderRef, true); !errors.Is(err, ErrNotAwaiting) {
		t.Errorf("dismiss after success: got %v, want ErrNotAwaiting", err)
	}
	if carts.clears != 1 {
		t.Errorf("cart cleared %d times, want 1", carts.clears)
	}
}
