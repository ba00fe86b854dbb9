package order

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/doorstep-app/doorstep/core/cart"
	"github.com/google/go-cmp/cmp"
)

// fakeSaver records saved orders and fails the shops listed in failShops.
type fakeSaver struct {
	saved     []Order
	failShops map[string]error
}

func (f *fakeSaver) Save(ctx context.Context, ord Order) error {
	if err, ok := f.failShops[ord.ShopID]; ok {
		return err
	}
	f.saved = append(f.saved, ord)
	return nil
}

func twoShopCart() cart.Cart {
	items := []cart.Item{
		{ProductID: "P1", Name: "Maggi", Price: 50, Quantity: 2, ShopID: "A"},
		{ProductID: "P2", Name: "Notebook", Price: 80, Quantity: 1, ShopID: "B"},
		{ProductID: "P3", Name: "Samosa", Price: 20, Quantity: 3, ShopID: "A"},
	}
	total := 0
	for _, it := range items {
		total += it.Price * it.Quantity
	}
	return cart.Cart{UserID: "u1", Items: items, Total: total}
}

var testDelivery = Delivery{Hostel: "Aagar", Room: "20", Name: "Asha", Phone: "9999999999"}

func TestComposeSplitsByShop(t *testing.T) {
	saver := &fakeSaver{}
	c := NewComposer(saver)

	crt := twoShopCart()
	res, err := c.Compose(context.Background(), crt, testDelivery, "pay_1")
	if err != nil {
		t.Fatal(err)
	}

	if len(res.Orders) != 2 {
		t.Fatalf("got %d orders, want 2", len(res.Orders))
	}
	if !res.FullyCommitted() {
		t.Fatalf("unexpected failures: %+v", res.Failed)
	}

	byShop := map[string]Order{}
	for _, ord := range res.Orders {
		byShop[ord.ShopID] = ord
	}

	if got, want := byShop["A"].TotalAmount, 50*2+20*3; got != want {
		t.Fatalf("shop A total = %d, want %d", got, want)
	}
	if got, want := byShop["B"].TotalAmount, 80; got != want {
		t.Fatalf("shop B total = %d, want %d", got, want)
	}

	// No delivery fee at this layer: order totals sum to the cart total.
	if byShop["A"].TotalAmount+byShop["B"].TotalAmount != crt.Total {
		t.Fatalf("order totals do not sum to cart total")
	}

	for _, ord := range res.Orders {
		if ord.Status != Pending {
			t.Fatalf("order for shop %s created with status %q, want pending", ord.ShopID, ord.Status)
		}
		if !strings.HasPrefix(ord.Token, "ord_") || len(ord.Token) != len("ord_")+10 {
			t.Fatalf("unexpected order token %q", ord.Token)
		}
		if ord.PaymentRef != "pay_1" {
			t.Fatalf("order missing payment reference: %+v", ord)
		}
	}

	if byShop["A"].Token == byShop["B"].Token {
		t.Fatalf("orders share a token")
	}
}

func TestComposeEmptyCart(t *testing.T) {
	saver := &fakeSaver{}
	c := NewComposer(saver)

	for i := 0; i < 3; i++ {
		res, err := c.Compose(context.Background(), cart.Cart{UserID: "u1"}, testDelivery, "pay_1")
		if !errors.Is(err, ErrEmptyCart) {
			t.Fatalf("attempt %d: got %v, want ErrEmptyCart", i, err)
		}
		if len(res.Orders) != 0 {
			t.Fatalf("attempt %d: empty cart produced orders", i)
		}
	}

	if len(saver.saved) != 0 {
		t.Fatalf("empty cart wrote %d orders", len(saver.saved))
	}
}

func TestComposeSnapshotIsolation(t *testing.T) {
	saver := &fakeSaver{}
	c := NewComposer(saver)

	crt := twoShopCart()
	res, err := c.Compose(context.Background(), crt, testDelivery, "pay_1")
	if err != nil {
		t.Fatal(err)
	}

	snapshot := append([]Item(nil), res.Orders[0].Items...)

	// Mutating the cart after composition must not reach the snapshot.
	crt.Items[0].Quantity = 99
	crt.Items[0].Price = 1

	if diff := cmp.Diff(snapshot, res.Orders[0].Items); diff != "" {
		t.Fatalf("order items changed after cart mutation:\n%s", diff)
	}
}

func TestComposePartialCommit(t *testing.T) {
	saver := &fakeSaver{failShops: map[string]error{"B": errors.New("write refused")}}
	c := NewComposer(saver)

	res, err := c.Compose(context.Background(), twoShopCart(), testDelivery, "pay_1")
	if err != nil {
		t.Fatal(err)
	}

	if res.FullyCommitted() {
		t.Fatal("expected a partial commit")
	}
	if diff := cmp.Diff([]string{"A"}, res.Committed); diff != "" {
		t.Fatalf("committed shops:\n%s", diff)
	}
	if len(res.Failed) != 1 || res.Failed[0].ShopID != "B" {
		t.Fatalf("failed shops = %+v, want B", res.Failed)
	}
	if res.Failed[0].Reason == "" {
		t.Fatal("failure carries no reason")
	}

	// Shop A's order stays committed; there is no cross-shop rollback.
	if len(saver.saved) != 1 || saver.saved[0].ShopID != "A" {
		t.Fatalf("saved orders = %+v, want exactly shop A", saver.saved)
	}
}

func TestTokenShape(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 1000; i++ {
		tok := Token()
		if !strings.HasPrefix(tok, "ord_") || len(tok) != 14 {
			t.Fatalf("unexpected token %q", tok)
		}
		if seen[tok] {
			t.Fatalf("duplicate token %q after %d draws", tok, i)
		}
		seen[tok] = true
	}
}

func TestStatusTransitions(t *testing.T) {
	allowed := map[Status][]Status{
		Pending:    {Processing, Cancelled},
		Processing: {Assigned, Cancelled},
		Assigned:   {Delivered, Cancelled},
		Delivered:  {},
		Cancelled:  {},
	}

	all := []Status{Pending, Processing, Assigned, Delivered, Cancelled}
	for from, nexts := range allowed {
		ok := map[Status]bool{}
		for _, n := range nexts {
			ok[n] = true
		}
		for _, to := range all {
			if got := from.CanTransition(to); got != ok[to] {
				t.Errorf("%s -> %s = %v, want %v", from, to, got, ok[to])
			}
		}
	}
}
