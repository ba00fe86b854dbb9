package cart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/doorstep-app/doorstep/docstore"
)

// ErrBadQuantity rejects Add calls with a quantity below one.
var ErrBadQuantity = errors.New("quantity must be at least 1")

// Store holds a user's cart against the document store. Every mutation is
// read-modify-write: fetch the whole document, change the item list in
// memory, write the whole document back. Two concurrent mutations for the
// same user (two browser tabs) therefore race and the later write wins.
// That last-writer-wins behavior is an accepted property of the design,
// not a bug; TestStoreLastWriterWins pins it down.
type Store struct {
	docs docstore.Docs
	now  func() time.Time
}

func NewStore(docs docstore.Docs) *Store {
	return &Store{
		docs: docs,
		now:  time.Now,
	}
}

func key(userID string) string {
	return "carts/" + userID
}

// Get returns the user's current cart, lazily creating and persisting an
// empty one when none exists yet.
func (s *Store) Get(ctx context.Context, userID string) (Cart, error) {
	if userID == "" {
		return Cart{}, ErrAuthRequired
	}

	raw, ok, err := s.docs.Get(ctx, key(userID))
	if err != nil {
		return Cart{}, fmt.Errorf("reading cart document: %w", err)
	}

	if !ok {
		c := Cart{UserID: userID, Items: []Item{}}
		if err := s.write(ctx, &c); err != nil {
			return Cart{}, err
		}
		return c, nil
	}

	var c Cart
	if err := json.Unmarshal(raw, &c); err != nil {
		return Cart{}, fmt.Errorf("decoding cart document: %w", err)
	}

	c.UserID = userID
	if c.Items == nil {
		c.Items = []Item{}
	}

	return c, nil
}

// Add appends the item, or sums quantities when a line with the same
// ProductID already exists.
func (s *Store) Add(ctx context.Context, userID string, it Item) (Cart, error) {
	if userID == "" {
		return Cart{}, ErrAuthRequired
	}
	if it.Quantity < 1 {
		return Cart{}, ErrBadQuantity
	}

	c, err := s.Get(ctx, userID)
	if err != nil {
		return Cart{}, err
	}

	merged := false
	for i := range c.Items {
		if c.Items[i].ProductID == it.ProductID {
			c.Items[i].Quantity += it.Quantity
			merged = true
			break
		}
	}
	if !merged {
		c.Items = append(c.Items, it)
	}

	if err := s.write(ctx, &c); err != nil {
		return Cart{}, err
	}
	return c, nil
}

// Remove drops the matching line. A missing product is a no-op, not an
// error.
func (s *Store) Remove(ctx context.Context, userID string, productID string) (Cart, error) {
	if userID == "" {
		return Cart{}, ErrAuthRequired
	}

	c, err := s.Get(ctx, userID)
	if err != nil {
		return Cart{}, err
	}

	items := c.Items[:0]
	for _, it := range c.Items {
		if it.ProductID != productID {
			items = append(items, it)
		}
	}
	c.Items = items

	if err := s.write(ctx, &c); err != nil {
		return Cart{}, err
	}
	return c, nil
}

// SetQuantity overwrites the line's quantity. A quantity below one behaves
// exactly like Remove: the cart never holds zero-quantity lines.
func (s *Store) SetQuantity(ctx context.Context, userID string, productID string, quantity int) (Cart, error) {
	if quantity < 1 {
		return s.Remove(ctx, userID, productID)
	}

	if userID == "" {
		return Cart{}, ErrAuthRequired
	}

	c, err := s.Get(ctx, userID)
	if err != nil {
		return Cart{}, err
	}

	for i := range c.Items {
		if c.Items[i].ProductID == productID {
			c.Items[i].Quantity = quantity
			break
		}
	}

	if err := s.write(ctx, &c); err != nil {
		return Cart{}, err
	}
	return c, nil
}

// Clear persists an empty cart document.
func (s *Store) Clear(ctx context.Context, userID string) (Cart, error) {
	if userID == "" {
		return Cart{}, ErrAuthRequired
	}

	c := Cart{UserID: userID, Items: []Item{}}
	if err := s.write(ctx, &c); err != nil {
		return Cart{}, err
	}
	return c, nil
}

func (s *Store) write(ctx context.Context, c *Cart) error {
	c.Total = total(c.Items)
	c.UpdatedAt = s.now().UTC()

	raw, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("encoding cart document: %w", err)
	}

	if err := s.docs.Set(ctx, key(c.UserID), raw, 0); err != nil {
		return fmt.Errorf("writing cart document: %w", err)
	}
	return nil
}
