// Package cart keeps the lines of an order being rung up and turns them into
// an order creation request.
package cart

import (
	"github.com/shopspring/decimal"

	"github.com/sumanshinde/Rpos/internal/apperr"
	"github.com/sumanshinde/Rpos/internal/orders"
	"github.com/sumanshinde/Rpos/internal/pricing"
)

// Product is the catalog entry a line is created from.
type Product struct {
	ID    string
	Name  string
	Price decimal.Decimal
}

type Line struct {
	ProductID string          `json:"productId"`
	Name      string          `json:"name"`
	UnitPrice decimal.Decimal `json:"price"`
	Quantity  int             `json:"quantity"`
	Notes     string          `json:"notes,omitempty"`
}

// Cart is not safe for concurrent use.
type Cart struct {
	lines    []Line
	discount decimal.Decimal
	method   orders.PaymentMethod
}

func New() *Cart {
	return &Cart{method: orders.MethodCard}
}

// AddItem merges into an existing line for the same product, summing
// quantities. Notes are replaced only by non-empty notes. A quantity below 1
// is ignored. Products without an id always get their own line.
func (c *Cart) AddItem(p Product, quantity int, notes string) {
	if quantity < 1 {
		return
	}
	for i := range c.lines {
		if p.ID == "" || c.lines[i].ProductID != p.ID {
			continue
		}
		c.lines[i].Quantity += quantity
		if notes != "" {
			c.lines[i].Notes = notes
		}
		return
	}
	c.lines = append(c.lines, Line{
		ProductID: p.ID,
		Name:      p.Name,
		UnitPrice: p.Price,
		Quantity:  quantity,
		Notes:     notes,
	})
}

// SetQuantity replaces a line's quantity; below 1 the line is removed.
// It reports whether the product was in the cart.
func (c *Cart) SetQuantity(productID string, quantity int) bool {
	if quantity < 1 {
		return c.RemoveItem(productID)
	}
	for i := range c.lines {
		if c.lines[i].ProductID == productID {
			c.lines[i].Quantity = quantity
			return true
		}
	}
	return false
}

func (c *Cart) RemoveItem(productID string) bool {
	for i := range c.lines {
		if c.lines[i].ProductID == productID {
			c.lines = append(c.lines[:i], c.lines[i+1:]...)
			return true
		}
	}
	return false
}

// Clear empties the cart and resets the discount.
func (c *Cart) Clear() {
	c.lines = nil
	c.discount = decimal.Zero
}

// SetDiscount stores pct clamped to [0, 100].
func (c *Cart) SetDiscount(pct decimal.Decimal) {
	c.discount = pricing.ClampPercent(pct)
}

func (c *Cart) Discount() decimal.Decimal { return c.discount }

func (c *Cart) SetPaymentMethod(m orders.PaymentMethod) error {
	if !m.Valid() {
		return apperr.Validation("unknown payment method %q", m)
	}
	c.method = m
	return nil
}

func (c *Cart) PaymentMethod() orders.PaymentMethod { return c.method }

// Lines returns a copy of the cart lines in insertion order.
func (c *Cart) Lines() []Line {
	out := make([]Line, len(c.lines))
	copy(out, c.lines)
	return out
}

func (c *Cart) Empty() bool { return len(c.lines) == 0 }

// Count is the number of units across all lines.
func (c *Cart) Count() int {
	n := 0
	for _, l := range c.lines {
		n += l.Quantity
	}
	return n
}

func (c *Cart) Totals() pricing.Totals {
	lines := make([]pricing.Line, 0, len(c.lines))
	for _, l := range c.lines {
		lines = append(lines, pricing.Line{UnitPrice: l.UnitPrice, Quantity: l.Quantity})
	}
	return pricing.ComputeTotals(lines, c.discount)
}
