package shop

import "time"

type Shop struct {
	ID           string    `json:"id" db:"shop_id"`
	OwnerID      string    `json:"ownerId" db:"owner_id"`
	Name         string    `json:"name" db:"name"`
	Description  string    `json:"description" db:"description"`
	Location     string    `json:"location" db:"location"`
	Cuisine      string    `json:"cuisine" db:"cuisine"`
	ImageURL     string    `json:"imageUrl" db:"image_url"`
	DeliveryTime string    `json:"deliveryTime" db:"delivery_time"`
	Active       bool      `json:"active" db:"active"`
	CreatedAt    time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt    time.Time `json:"updatedAt" db:"updated_at"`
}

type ShopNew struct {
	Name         string `json:"name" validate:"required"`
	Description  string `json:"description"`
	Location     string `json:"location" validate:"required"`
	Cuisine      string `json:"cuisine"`
	ImageURL     string `json:"imageUrl"`
	DeliveryTime string `json:"deliveryTime"`
}

type ShopUp struct {
	Name         *string `json:"name"`
	Description  *string `json:"description"`
	Location     *string `json:"location"`
	Cuisine      *string `json:"cuisine"`
	ImageURL     *string `json:"imageUrl"`
	DeliveryTime *string `json:"deliveryTime"`
	Active       *bool   `json:"active"`
}
