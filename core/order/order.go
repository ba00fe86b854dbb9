package order

import "time"

type Status string

const (
	Pending    Status = "pending"
	Processing Status = "processing"
	Assigned   Status = "assigned"
	Delivered  Status = "delivered"
	Cancelled  Status = "cancelled"
)

// CanTransition reports whether a shopkeeper may move an order from s to
// next. Delivered and cancelled are terminal.
func (s Status) CanTransition(next Status) bool {
	switch s {
	case Pending:
		return next == Processing || next == Cancelled
	case Processing:
		return next == Assigned || next == Cancelled
	case Assigned:
		return next == Delivered || next == Cancelled
	}
	return false
}

func ParseStatus(s string) (Status, bool) {
	switch Status(s) {
	case Pending, Processing, Assigned, Delivered, Cancelled:
		return Status(s), true
	}
	return "", false
}

// Order is the immutable per-shop snapshot produced at checkout. Only the
// status and delivery-partner fields change after creation; the item rows
// never do.
type Order struct {
	ID           string    `json:"id" db:"order_id"`
	Token        string    `json:"orderId" db:"token"`
	UserID       string    `json:"userId" db:"user_id"`
	ShopID       string    `json:"shopId" db:"shop_id"`
	CustomerName string    `json:"name" db:"customer_name"`
	Phone        string    `json:"phone" db:"customer_phone"`
	Hostel       string    `json:"hostel" db:"hostel"`
	Room         string    `json:"room" db:"room"`
	TotalAmount  int       `json:"totalAmount" db:"total_amount"`
	Status       Status    `json:"status" db:"status"`
	PaymentRef   string    `json:"-" db:"payment_ref"`
	PartnerName  string    `json:"partnerName,omitempty" db:"partner_name"`
	PartnerPhone string    `json:"partnerPhone,omitempty" db:"partner_phone"`
	CreatedAt    time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt    time.Time `json:"updatedAt" db:"updated_at"`
	Items        []Item    `json:"items" db:"-"`
}

type Item struct {
	OrderID   string `json:"-" db:"order_id"`
	ProductID string `json:"productId" db:"product_id"`
	Name      string `json:"name" db:"name"`
	Price     int    `json:"price" db:"price"`
	Quantity  int    `json:"quantity" db:"quantity"`
	ImageURL  string `json:"imageUrl" db:"image_url"`
	ShopID    string `json:"shopId" db:"shop_id"`
}

// Delivery is the checkout form: where to bring the order and who to call.
type Delivery struct {
	Hostel string `json:"hostel" validate:"required"`
	Room   string `json:"room" validate:"required"`
	Name   string `json:"name" validate:"required"`
	Phone  string `json:"phone" validate:"required"`
}

type StatusUp struct {
	ID        string    `db:"order_id"`
	Status    Status    `db:"status"`
	UpdatedAt time.Time `db:"updated_at"`
}

type PartnerUp struct {
	ID           string    `db:"order_id"`
	PartnerName  string    `db:"partner_name"`
	PartnerPhone string    `db:"partner_phone"`
	UpdatedAt    time.Time `db:"updated_at"`
}
