package customers

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/sumanshinde/Rpos/internal/aws"
)

type Customer struct {
	ID            string          `json:"id"`
	Name          string          `json:"name"`
	Phone         string          `json:"phone"`
	Email         string          `json:"email,omitempty"`
	Address       string          `json:"address,omitempty"`
	LoyaltyPoints int64           `json:"loyaltyPoints"`
	TotalOrders   int64           `json:"totalOrders"`
	TotalSpent    decimal.Decimal `json:"totalSpent"`
	CreatedAt     time.Time       `json:"createdAt"`
	UpdatedAt     time.Time       `json:"updatedAt"`
}

type CreateInput struct {
	Name    string
	Phone   string
	Email   string
	Address string
}

// UpdateInput changes contact details; nil fields are kept. Stats are only
// changed by RecordOrder.
type UpdateInput struct {
	Name    *string
	Phone   *string
	Email   *string
	Address *string
}

type record struct {
	CustomerID    string      `dynamodbav:"customer_id"` // PK
	Name          string      `dynamodbav:"name"`
	Phone         string      `dynamodbav:"phone"`
	Email         string      `dynamodbav:"email,omitempty"`
	Address       string      `dynamodbav:"address,omitempty"`
	LoyaltyPoints int64       `dynamodbav:"loyalty_points"`
	TotalOrders   int64       `dynamodbav:"total_orders"`
	TotalSpent    aws.Decimal `dynamodbav:"total_spent"`
	CreatedAt     time.Time   `dynamodbav:"created_at"`
	UpdatedAt     time.Time   `dynamodbav:"updated_at"`
}

func toRecord(c *Customer) record {
	return record{
		CustomerID:    c.ID,
		Name:          c.Name,
		Phone:         c.Phone,
		Email:         c.Email,
		Address:       c.Address,
		LoyaltyPoints: c.LoyaltyPoints,
		TotalOrders:   c.TotalOrders,
		TotalSpent:    aws.NewDecimal(c.TotalSpent),
		CreatedAt:     c.CreatedAt,
		UpdatedAt:     c.UpdatedAt,
	}
}

func (r record) customer() *Customer {
	return &Customer{
		ID:            r.CustomerID,
		Name:          r.Name,
		Phone:         r.Phone,
		Email:         r.Email,
		Address:       r.Address,
		LoyaltyPoints: r.LoyaltyPoints,
		TotalOrders:   r.TotalOrders,
		TotalSpent:    r.TotalSpent.Decimal,
		CreatedAt:     r.CreatedAt,
		UpdatedAt:     r.UpdatedAt,
	}
}
