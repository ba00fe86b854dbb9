package order

import (
	"context"
	"errors"
	"time"

	"github.com/doorstep-app/doorstep/core/cart"
	"github.com/doorstep-app/doorstep/random"
	"github.com/doorstep-app/doorstep/validate"
)

// ErrEmptyCart rejects a checkout with nothing in it. Composing an empty
// cart any number of times yields the same error and zero orders.
var ErrEmptyCart = errors.New("no items to checkout")

// Saver persists one shop's order. The production implementation is
// SQLStore; tests inject fakes that fail selected shops.
type Saver interface {
	Save(ctx context.Context, ord Order) error
}

// ShopFailure names a shop whose order could not be persisted and why.
type ShopFailure struct {
	ShopID string `json:"shopId"`
	Reason string `json:"reason"`
}

// Result is the structured outcome of composing one checkout. There is no
// cross-shop transaction, so orders already written stay committed when a
// later one fails; callers get the full per-shop picture, never a bool.
type Result struct {
	Orders    []Order       `json:"orders"`
	Committed []string      `json:"committed"`
	Failed    []ShopFailure `json:"failed"`
}

// FullyCommitted reports whether every shop's order was persisted.
func (r Result) FullyCommitted() bool {
	return len(r.Failed) == 0
}

// Token builds the human-readable order reference. Ten characters over a
// 62-symbol alphabet leave collisions to chance at ~8e17; the unique index
// on orders.token is the backstop.
func Token() string {
	return "ord_" + random.String(10)
}

// Composer turns a cart into one pending order per shop.
type Composer struct {
	store Saver
	now   func() time.Time
}

func NewComposer(store Saver) *Composer {
	return &Composer{
		store: store,
		now:   time.Now,
	}
}

// Compose partitions the cart's items by originating shop and persists one
// order per shop, each with its own total and a snapshot copy of that
// shop's items. paymentRef ties the orders back to the captured payment.
func (c *Composer) Compose(ctx context.Context, crt cart.Cart, del Delivery, paymentRef string) (Result, error) {
	if len(crt.Items) == 0 {
		return Result{}, ErrEmptyCart
	}

	// Group by shop, keeping the first-seen shop order stable.
	shops := []string{}
	groups := map[string][]cart.Item{}
	for _, it := range crt.Items {
		if _, ok := groups[it.ShopID]; !ok {
			shops = append(shops, it.ShopID)
		}
		groups[it.ShopID] = append(groups[it.ShopID], it)
	}

	var res Result
	now := c.now().UTC()

	for _, shopID := range shops {
		ord := Order{
			ID:           validate.GenerateID(),
			Token:        Token(),
			UserID:       crt.UserID,
			ShopID:       shopID,
			CustomerName: del.Name,
			Phone:        del.Phone,
			Hostel:       del.Hostel,
			Room:         del.Room,
			Status:       Pending,
			PaymentRef:   paymentRef,
			CreatedAt:    now,
			UpdatedAt:    now,
		}

		for _, it := range groups[shopID] {
			ord.Items = append(ord.Items, Item{
				OrderID:   ord.ID,
				ProductID: it.ProductID,
				Name:      it.Name,
				Price:     it.Price,
				Quantity:  it.Quantity,
				ImageURL:  it.ImageURL,
				ShopID:    it.ShopID,
			})
			ord.TotalAmount += it.Price * it.Quantity
		}

		if err := c.store.Save(ctx, ord); err != nil {
			res.Failed = append(res.Failed, ShopFailure{ShopID: shopID, Reason: err.Error()})
			continue
		}

		res.Orders = append(res.Orders, ord)
		res.Committed = append(res.Committed, shopID)
	}

	return res, nil
}
