package cart

import (
	"errors"
	"time"
)

// ErrAuthRequired is returned by every store operation invoked without a
// signed-in user. Handlers translate it into a 401 so the client can
// redirect to sign-in instead of silently retrying.
var ErrAuthRequired = errors.New("authentication required")

// Cart is the whole document persisted at carts/{userID}. Total is always
// derived from Items on write, never edited independently.
type Cart struct {
	UserID    string    `json:"-"`
	Items     []Item    `json:"items"`
	Total     int       `json:"total"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Item is one product line, keyed by ProductID within the cart. Price and
// ShopID are copied from the product at add time.
type Item struct {
	ProductID string `json:"productId" validate:"required"`
	Name      string `json:"name" validate:"required"`
	Price     int    `json:"price" validate:"required,gt=0"`
	Quantity  int    `json:"quantity" validate:"required,gte=1"`
	ImageURL  string `json:"imageUrl"`
	ShopID    string `json:"shopId" validate:"required"`
}

func total(items []Item) int {
	var tot int
	for _, it := range items {
		tot += it.Price * it.Quantity
	}
	return tot
}

// Quantity reports the quantity of the given product, zero if absent.
func (c Cart) Quantity(productID string) int {
	for _, it := range c.Items {
		if it.ProductID == productID {
			return it.Quantity
		}
	}
	return 0
}
