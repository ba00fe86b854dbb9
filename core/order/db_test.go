package order

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/doorstep-app/doorstep/database/dbtest"
	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"
)

func TestSQLStore(t *testing.T) {
	db := dbtest.NewDB(t)
	ctx := context.Background()
	store := NewSQLStore(db)

	now := time.Now().UTC().Truncate(time.Microsecond)
	ord := Order{
		ID:           uuid.NewString(),
		Token:        "ord_aaaaaaaaaa",
		UserID:       "u1",
		ShopID:       "shopA",
		CustomerName: "Asha",
		Phone:        "9876543210",
		Hostel:       "H4",
		Room:         "212",
		TotalAmount:  160,
		Status:       Pending,
		PaymentRef:   "pay_ref_77",
		CreatedAt:    now,
		UpdatedAt:    now,
		Items: []Item{
			{ProductID: "p1", Name: "samosa", Price: 30, Quantity: 2, ShopID: "shopA"},
			{ProductID: "p2", Name: "chai", Price: 50, Quantity: 2, ShopID: "shopA"},
		},
	}
	for i := range ord.Items {
		ord.Items[i].OrderID = ord.ID
	}

	if err := store.Save(ctx, ord); err != nil {
		t.Fatalf("saving order: %v", err)
	}

	got, err := Fetch(ctx, db, ord.ID)
	if err != nil {
		t.Fatalf("fetching order: %v", err)
	}
	if got.Token != ord.Token || got.TotalAmount != ord.TotalAmount || got.Status != Pending {
		t.Errorf("fetched order differs: %+v", got)
	}
	if diff := cmp.Diff(ord.Items, got.Items); diff != "" {
		t.Errorf("items mismatch (-want +got):\n%s", diff)
	}

	second := ord
	second.ID = uuid.NewString()
	second.Token = "ord_bbbbbbbbbb"
	second.CreatedAt = now.Add(time.Second)
	second.UpdatedAt = second.CreatedAt
	second.Items = nil
	if err := store.Save(ctx, second); err != nil {
		t.Fatalf("saving second order: %v", err)
	}

	mine, err := ListByUser(ctx, db, "u1")
	if err != nil {
		t.Fatalf("listing user orders: %v", err)
	}
	if len(mine) != 2 {
		t.Fatalf("got %d orders, want 2", len(mine))
	}
	if mine[0].ID != second.ID {
		t.Error("orders are not sorted most recent first")
	}

	recent, err := ListByShop(ctx, db, "shopA", 1)
	if err != nil {
		t.Fatalf("listing shop orders: %v", err)
	}
	if len(recent) != 1 || recent[0].ID != second.ID {
		t.Errorf("limited shop listing: %+v", recent)
	}

	up := StatusUp{ID: ord.ID, Status: Processing, UpdatedAt: now.Add(time.Minute)}
	if err := UpdateStatus(ctx, db, up); err != nil {
		t.Fatalf("updating status: %v", err)
	}

	pu := PartnerUp{ID: ord.ID, PartnerName: "Ravi", PartnerPhone: "9123456780", UpdatedAt: now.Add(2 * time.Minute)}
	if err := UpdatePartner(ctx, db, pu); err != nil {
		t.Fatalf("assigning partner: %v", err)
	}

	got, err = Fetch(ctx, db, ord.ID)
	if err != nil {
		t.Fatalf("refetching order: %v", err)
	}
	if got.Status != Processing {
		t.Errorf("status: got %q, want %q", got.Status, Processing)
	}
	if got.PartnerName != "Ravi" || got.PartnerPhone != "9123456780" {
		t.Errorf("partner not assigned: %+v", got)
	}

	if _, err := Fetch(ctx, db, uuid.NewString()); !errors.Is(err, ErrNotFound) {
		t.Errorf("missing order: got %v, want ErrNotFound", err)
	}

	dup := ord
	dup.ID = uuid.NewString()
	dup.Items = nil
	if err := store.Save(ctx, dup); err == nil {
		t.Error("expected the unique token constraint to reject a duplicate")
	}
}
