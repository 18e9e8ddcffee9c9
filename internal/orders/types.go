package orders

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/sumanshinde/Rpos/internal/pricing"
)

type Status string

// Order statuses. Kitchen progress runs pending -> preparing -> ready ->
// served; paid and cancelled are terminal.
const (
	StatusPending   Status = "pending"
	StatusPreparing Status = "preparing"
	StatusReady     Status = "ready"
	StatusServed    Status = "served"
	StatusPaid      Status = "paid"
	StatusCancelled Status = "cancelled"
)

type OrderType string

const (
	TypeDineIn   OrderType = "dine-in"
	TypeTakeaway OrderType = "takeaway"
	TypeDelivery OrderType = "delivery"
)

type PaymentMethod string

const (
	MethodCash PaymentMethod = "cash"
	MethodCard PaymentMethod = "card"
	MethodQR   PaymentMethod = "qr"
)

type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "pending"
	PaymentCompleted PaymentStatus = "completed"
	PaymentFailed    PaymentStatus = "failed"
)

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusPreparing, StatusReady, StatusServed, StatusPaid, StatusCancelled:
		return true
	}
	return false
}

// Open reports whether the order is still in the kitchen flow.
func (s Status) Open() bool {
	return s == StatusPending || s == StatusPreparing || s == StatusReady
}

func (t OrderType) Valid() bool {
	return t == TypeDineIn || t == TypeTakeaway || t == TypeDelivery
}

func (m PaymentMethod) Valid() bool {
	return m == MethodCash || m == MethodCard || m == MethodQR
}

// Item is a snapshot of a cart line at order time.
type Item struct {
	ProductID string          `json:"productId,omitempty"`
	Name      string          `json:"name"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"price"`
	Notes     string          `json:"notes,omitempty"`
}

// Customer is the contact snapshot stored on takeaway/delivery orders.
type Customer struct {
	Name    string `json:"name,omitempty"`
	Phone   string `json:"phone,omitempty"`
	Address string `json:"address,omitempty"`
}

type Order struct {
	ID              string          `json:"id"`
	OrderNumber     string          `json:"orderNumber"`
	TableID         string          `json:"tableId,omitempty"`
	TableNumber     string          `json:"tableNumber,omitempty"`
	Waiter          string          `json:"waiter"`
	Items           []Item          `json:"items"`
	Status          Status          `json:"status"`
	OrderType       OrderType       `json:"orderType"`
	DiscountPercent decimal.Decimal `json:"discountPercent"`
	Subtotal        decimal.Decimal `json:"subtotal"`
	Discount        decimal.Decimal `json:"discount"`
	Tax             decimal.Decimal `json:"tax"`
	Total           decimal.Decimal `json:"total"`
	PaymentMethod   PaymentMethod   `json:"paymentMethod"`
	PaymentStatus   PaymentStatus   `json:"paymentStatus"`
	PaymentID       string          `json:"paymentId,omitempty"`
	InvoiceNumber   string          `json:"invoiceNumber,omitempty"`
	Customer        *Customer       `json:"customer,omitempty"`
	CreatedBy       string          `json:"createdBy,omitempty"`
	CreatedAt       time.Time       `json:"createdAt"`
	UpdatedAt       time.Time       `json:"updatedAt"`
}

// Totals returns the stored amounts as a pricing breakdown.
func (o *Order) Totals() pricing.Totals {
	return pricing.Totals{Subtotal: o.Subtotal, DiscountAmount: o.Discount, Tax: o.Tax, Total: o.Total}
}

// Lines converts the items for pricing.
func Lines(items []Item) []pricing.Line {
	out := make([]pricing.Line, 0, len(items))
	for _, it := range items {
		out = append(out, pricing.Line{UnitPrice: it.UnitPrice, Quantity: it.Quantity})
	}
	return out
}

// CreateInput is everything needed to create an order. Claimed carries the
// totals the client computed, if it sent any; they are checked, never stored.
type CreateInput struct {
	TableID         string
	Waiter          string
	OrderType       OrderType
	Items           []Item
	DiscountPercent decimal.Decimal
	PaymentMethod   PaymentMethod
	Customer        *Customer
	Claimed         *pricing.Totals
	CreatedBy       string
}

// UpdateInput edits a pending, unpaid order. Nil fields are left unchanged.
type UpdateInput struct {
	Waiter          *string
	Items           []Item
	DiscountPercent *decimal.Decimal
	PaymentMethod   *PaymentMethod
	Customer        *Customer
}

// Payment describes a completed settlement applied to an order.
// Payment describes how an order is settled. When InvoiceNumber is empty,
// Invoice is called for one after the order has passed every check, right
// before the settlement is written.
type Payment struct {
	Method        PaymentMethod
	ID            string
	InvoiceNumber string
	Invoice       func(ctx context.Context) (string, error)
}
