package catalog

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/sumanshinde/Rpos/internal/aws"
)

// Category groups menu products. Slugs are unique.
type Category struct {
	ID        string    `json:"id" dynamodbav:"category_id"` // PK
	Name      string    `json:"name" dynamodbav:"name"`
	Slug      string    `json:"slug" dynamodbav:"slug"`
	Image     string    `json:"image,omitempty" dynamodbav:"image,omitempty"`
	CreatedAt time.Time `json:"createdAt" dynamodbav:"created_at"`
}

// Product is a sellable menu item.
type Product struct {
	ID          string      `json:"id" dynamodbav:"product_id"` // PK
	Name        string      `json:"name" dynamodbav:"name"`
	Price       aws.Decimal `json:"price" dynamodbav:"price"`
	CategoryID  string      `json:"categoryId" dynamodbav:"category_id"`
	Image       string      `json:"image,omitempty" dynamodbav:"image,omitempty"`
	Description string      `json:"description" dynamodbav:"description"`
	IsAvailable bool        `json:"isAvailable" dynamodbav:"is_available"`
	CreatedAt   time.Time   `json:"createdAt" dynamodbav:"created_at"`
	UpdatedAt   time.Time   `json:"updatedAt" dynamodbav:"updated_at"`
}

type CategoryInput struct {
	Name  string
	Slug  string // derived from Name when empty
	Image string
}

type ProductInput struct {
	Name        string
	Price       decimal.Decimal
	CategoryID  string
	Image       string
	Description string
	IsAvailable *bool // defaults to true
}

// ProductUpdate changes a product; nil fields are kept.
type ProductUpdate struct {
	Name        *string
	Price       *decimal.Decimal
	CategoryID  *string
	Image       *string
	Description *string
	IsAvailable *bool
}

// ProductFilter narrows List. Zero values match everything.
type ProductFilter struct {
	Available  *bool
	CategoryID string
}
