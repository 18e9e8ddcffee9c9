package cart

import (
	"strings"

	"github.com/sumanshinde/Rpos/internal/apperr"
	"github.com/sumanshinde/Rpos/internal/orders"
)

// Meta is the order metadata collected at checkout.
type Meta struct {
	TableID   string
	Waiter    string
	OrderType orders.OrderType
	Customer  *orders.Customer
	CreatedBy string
}

// Assemble builds the creation request for the cart's current contents. The
// request owns copies of the lines; later cart edits do not affect it.
// Totals are left for the order service to compute.
func Assemble(c *Cart, m Meta) (orders.CreateInput, error) {
	if c == nil || c.Empty() {
		return orders.CreateInput{}, apperr.Validation("cart is empty")
	}
	orderType := m.OrderType
	if orderType == "" {
		orderType = orders.TypeDineIn
	}

	var customer *orders.Customer
	if m.Customer != nil {
		cp := *m.Customer
		customer = &cp
	}

	return orders.CreateInput{
		TableID:         strings.TrimSpace(m.TableID),
		Waiter:          strings.TrimSpace(m.Waiter),
		OrderType:       orderType,
		Items:           c.Items(),
		DiscountPercent: c.discount,
		PaymentMethod:   c.method,
		Customer:        customer,
		CreatedBy:       m.CreatedBy,
	}, nil
}

// Items converts the cart lines to order items.
func (c *Cart) Items() []orders.Item {
	items := make([]orders.Item, 0, len(c.lines))
	for _, l := range c.lines {
		items = append(items, orders.Item{
			ProductID: l.ProductID,
			Name:      l.Name,
			Quantity:  l.Quantity,
			UnitPrice: l.UnitPrice,
			Notes:     l.Notes,
		})
	}
	return items
}
