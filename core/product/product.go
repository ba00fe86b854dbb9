package product

import "time"

type Product struct {
	ID          string    `json:"id" db:"product_id"`
	ShopID      string    `json:"shopId" db:"shop_id"`
	Name        string    `json:"name" db:"name"`
	Description string    `json:"description" db:"description"`
	Price       int       `json:"price" db:"price"`
	Category    string    `json:"category" db:"category"`
	ImageURL    string    `json:"imageUrl" db:"image_url"`
	Available   bool      `json:"available" db:"available"`
	CreatedAt   time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt   time.Time `json:"updatedAt" db:"updated_at"`
}

type ProductNew struct {
	Name        string `json:"name" validate:"required"`
	Description string `json:"description"`
	Price       int    `json:"price" validate:"required,gt=0"`
	Category    string `json:"category"`
	ImageURL    string `json:"imageUrl"`
}

type ProductUp struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	Price       *int    `json:"price" validate:"omitempty,gt=0"`
	Category    *string `json:"category"`
	ImageURL    *string `json:"imageUrl"`
	Available   *bool   `json:"available"`
}
