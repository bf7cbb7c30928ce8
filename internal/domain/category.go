package domain

import (
	"time"

	"github.com/google/uuid"
)

// Category represents a product category
type Category struct {
	ID          uuid.UUID `json:"id" db:"id"`
	Name        string    `json:"name" db:"name"`
	Description *string   `json:"description" db:"description"`
	ImageURL    *string   `json:"imageUrl" db:"image_url"`
	IsActive    bool      `json:"isActive" db:"is_active"`
	CreatedAt   time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt   time.Time `json:"updatedAt" db:"updated_at"`
}

// CategoryUpdate lists the fields of a category that may be changed. Nil
// fields are left untouched.
type CategoryUpdate struct {
	Name        *string
	Description *string
	ImageURL    *string
	IsActive    *bool
}

// Apply merges the supplied fields into c.
func (u CategoryUpdate) Apply(c *Category) {
	if u.Name != nil {
		c.Name = *u.Name
	}
	if u.Description != nil {
		c.Description = u.Description
	}
	if u.ImageURL != nil {
		c.ImageURL = u.ImageURL
	}
	if u.IsActive != nil {
		c.IsActive = *u.IsActive
	}
}
