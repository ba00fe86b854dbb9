package category

import "time"

type Category struct {
	ID          string    `json:"id" db:"category_id"`
	Name        string    `json:"name" db:"name"`
	Slug        string    `json:"slug" db:"slug"`
	Description string    `json:"description" db:"description"`
	ImageURL    string    `json:"imageUrl" db:"image_url"`
	Color       string    `json:"color" db:"color"`
	Active      bool      `json:"active" db:"active"`
	CreatedAt   time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt   time.Time `json:"updatedAt" db:"updated_at"`
}

type CategoryNew struct {
	Name        string `json:"name" validate:"required"`
	Slug        string `json:"slug" validate:"required,lowercase,excludesall= "`
	Description string `json:"description"`
	ImageURL    string `json:"imageUrl"`
	Color       string `json:"color"`
}

type CategoryUp struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	ImageURL    *string `json:"imageUrl"`
	Color       *string `json:"color"`
	Active      *bool   `json:"active"`
}
