package validation

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/sumanshinde/Rpos/internal/auth"
	"github.com/sumanshinde/Rpos/internal/cart"
	"github.com/sumanshinde/Rpos/internal/catalog"
	"github.com/sumanshinde/Rpos/internal/customers"
	"github.com/sumanshinde/Rpos/internal/orders"
	"github.com/sumanshinde/Rpos/internal/payment"
	"github.com/sumanshinde/Rpos/internal/pricing"
	"github.com/sumanshinde/Rpos/internal/tables"
)

// --- auth ---

type RegisterRequest struct {
	Name     string `json:"name" validate:"required,max=100"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
	Role     string `json:"role" validate:"omitempty,oneof=admin cashier waiter kitchen"`
}

func (r RegisterRequest) ToInput() auth.RegisterInput {
	return auth.RegisterInput{Name: r.Name, Email: r.Email, Password: r.Password, Role: auth.Role(r.Role)}
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// UpdateMeRequest accepts password fields only so they can be refused.
type UpdateMeRequest struct {
	Name            *string `json:"name" validate:"omitempty,min=1,max=100"`
	Email           *string `json:"email" validate:"omitempty,email"`
	Password        *string `json:"password"`
	PasswordConfirm *string `json:"passwordConfirm"`
}

func (r UpdateMeRequest) ToInput() auth.UpdateMeInput {
	pw := r.Password
	if pw == nil {
		pw = r.PasswordConfirm
	}
	return auth.UpdateMeInput{Name: r.Name, Email: r.Email, Password: pw}
}

// --- customers ---

type CreateCustomerRequest struct {
	Name    string `json:"name" validate:"required,max=100"`
	Phone   string `json:"phone" validate:"required,phone10"`
	Email   string `json:"email" validate:"omitempty,email"`
	Address string `json:"address" validate:"max=300"`
}

func (r CreateCustomerRequest) ToInput() customers.CreateInput {
	return customers.CreateInput{Name: r.Name, Phone: r.Phone, Email: r.Email, Address: r.Address}
}

type UpdateCustomerRequest struct {
	Name    *string `json:"name" validate:"omitempty,min=1,max=100"`
	Phone   *string `json:"phone" validate:"omitempty,phone10"`
	Email   *string `json:"email" validate:"omitempty,email"`
	Address *string `json:"address" validate:"omitempty,max=300"`
}

func (r UpdateCustomerRequest) ToInput() customers.UpdateInput {
	return customers.UpdateInput{Name: r.Name, Phone: r.Phone, Email: r.Email, Address: r.Address}
}

// --- orders ---

// Item represents a single order line item.
type Item struct {
	ProductID string          `json:"productId"`
	Name      string          `json:"name" validate:"required"`
	Quantity  int             `json:"quantity" validate:"required,min=1"`
	Price     decimal.Decimal `json:"price" validate:"gte=0"`
	Notes     string          `json:"notes" validate:"max=200"`
}

type CustomerSnapshot struct {
	Name    string `json:"name" validate:"max=100"`
	Phone   string `json:"phone" validate:"omitempty,phone10"`
	Address string `json:"address" validate:"max=300"`
}

func (c *CustomerSnapshot) toOrder() *orders.Customer {
	if c == nil {
		return nil
	}
	return &orders.Customer{Name: c.Name, Phone: c.Phone, Address: c.Address}
}

func toItems(in []Item) []orders.Item {
	out := make([]orders.Item, 0, len(in))
	for _, it := range in {
		out = append(out, orders.Item{
			ProductID: it.ProductID,
			Name:      strings.TrimSpace(it.Name),
			Quantity:  it.Quantity,
			UnitPrice: it.Price,
			Notes:     it.Notes,
		})
	}
	return out
}

// CreateOrderRequest is the payload for POST /orders and the orderData of
// settlement requests. Subtotal, discount, tax and total are what the client
// computed; they are checked against the server's figures when present.
type CreateOrderRequest struct {
	Table           string            `json:"table"`
	Waiter          string            `json:"waiter" validate:"required"`
	OrderType       string            `json:"orderType" validate:"omitempty,oneof=dine-in takeaway delivery"`
	Items           []Item            `json:"items" validate:"required,min=1,dive"`
	DiscountPercent decimal.Decimal   `json:"discountPercent" validate:"gte=0,lte=100"`
	PaymentMethod   string            `json:"paymentMethod" validate:"omitempty,oneof=cash card qr"`
	Customer        *CustomerSnapshot `json:"customer"`
	Subtotal        *decimal.Decimal  `json:"subtotal"`
	Discount        *decimal.Decimal  `json:"discount"`
	Tax             *decimal.Decimal  `json:"tax"`
	Total           *decimal.Decimal  `json:"total"`
}

func (r CreateOrderRequest) ToInput(createdBy string) orders.CreateInput {
	in := orders.CreateInput{
		TableID:         strings.TrimSpace(r.Table),
		Waiter:          strings.TrimSpace(r.Waiter),
		OrderType:       orders.OrderType(r.OrderType),
		Items:           toItems(r.Items),
		DiscountPercent: r.DiscountPercent,
		PaymentMethod:   orders.PaymentMethod(r.PaymentMethod),
		Customer:        r.Customer.toOrder(),
		CreatedBy:       createdBy,
	}
	if r.Total != nil {
		claimed := pricing.Totals{Total: *r.Total}
		if r.Subtotal != nil && r.Discount != nil && r.Tax != nil {
			claimed.Subtotal, claimed.DiscountAmount, claimed.Tax = *r.Subtotal, *r.Discount, *r.Tax
		} else {
			// only the total was sent; the other amounts are taken as agreed
			want := pricing.ComputeTotals(orders.Lines(in.Items), r.DiscountPercent)
			claimed.Subtotal, claimed.DiscountAmount, claimed.Tax = want.Subtotal, want.DiscountAmount, want.Tax
		}
		in.Claimed = &claimed
	}
	return in
}

type UpdateOrderRequest struct {
	Waiter          *string           `json:"waiter" validate:"omitempty,min=1"`
	Items           []Item            `json:"items" validate:"omitempty,min=1,dive"`
	DiscountPercent *decimal.Decimal  `json:"discountPercent" validate:"omitempty,gte=0,lte=100"`
	PaymentMethod   *string           `json:"paymentMethod" validate:"omitempty,oneof=cash card qr"`
	Customer        *CustomerSnapshot `json:"customer"`
}

func (r UpdateOrderRequest) ToInput() orders.UpdateInput {
	in := orders.UpdateInput{
		Waiter:          r.Waiter,
		DiscountPercent: r.DiscountPercent,
		Customer:        r.Customer.toOrder(),
	}
	if r.Items != nil {
		in.Items = toItems(r.Items)
	}
	if r.PaymentMethod != nil {
		m := orders.PaymentMethod(*r.PaymentMethod)
		in.PaymentMethod = &m
	}
	return in
}

type OrderStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=pending preparing ready served paid cancelled"`
}

type QuoteRequest struct {
	Items           []Item          `json:"items" validate:"required,min=1,dive"`
	DiscountPercent decimal.Decimal `json:"discountPercent" validate:"gte=0,lte=100"`
}

func (r QuoteRequest) Cart() *cart.Cart {
	c := cart.New()
	for _, it := range r.Items {
		c.AddItem(cart.Product{ID: it.ProductID, Name: strings.TrimSpace(it.Name), Price: it.Price}, it.Quantity, it.Notes)
	}
	c.SetDiscount(r.DiscountPercent)
	return c
}

// --- catalog ---

type CreateCategoryRequest struct {
	Name  string `json:"name" validate:"required,max=100"`
	Slug  string `json:"slug" validate:"omitempty,max=100"`
	Image string `json:"image" validate:"omitempty,url"`
}

func (r CreateCategoryRequest) ToInput() catalog.CategoryInput {
	return catalog.CategoryInput{Name: r.Name, Slug: r.Slug, Image: r.Image}
}

type CreateProductRequest struct {
	Name        string          `json:"name" validate:"required,max=200"`
	Price       decimal.Decimal `json:"price" validate:"gt=0"`
	Category    string          `json:"category" validate:"required"`
	Image       string          `json:"image" validate:"omitempty,url"`
	Description string          `json:"description"`
	IsAvailable *bool           `json:"is_available"`
}

func (r CreateProductRequest) ToInput() catalog.ProductInput {
	return catalog.ProductInput{
		Name:        r.Name,
		Price:       r.Price,
		CategoryID:  r.Category,
		Image:       r.Image,
		Description: r.Description,
		IsAvailable: r.IsAvailable,
	}
}

// UpdateProductRequest is a partial update; price is checked by the store.
type UpdateProductRequest struct {
	Name        *string          `json:"name" validate:"omitempty,min=1,max=200"`
	Price       *decimal.Decimal `json:"price"`
	Category    *string          `json:"category" validate:"omitempty,min=1"`
	Image       *string          `json:"image" validate:"omitempty,url"`
	Description *string          `json:"description"`
	IsAvailable *bool            `json:"is_available"`
}

func (r UpdateProductRequest) ToInput() catalog.ProductUpdate {
	return catalog.ProductUpdate{
		Name:        r.Name,
		Price:       r.Price,
		CategoryID:  r.Category,
		Image:       r.Image,
		Description: r.Description,
		IsAvailable: r.IsAvailable,
	}
}

// --- tables ---

type CreateTableRequest struct {
	TableNumber string `json:"tableNumber" validate:"required,max=20"`
	Capacity    int    `json:"capacity" validate:"required,min=1"`
	Section     string `json:"section" validate:"required,oneof=Indoor Outdoor Bar"`
	Status      string `json:"status" validate:"omitempty,oneof=available occupied reserved cleaning"`
}

func (r CreateTableRequest) ToInput() tables.CreateInput {
	return tables.CreateInput{
		TableNumber: strings.TrimSpace(r.TableNumber),
		Capacity:    r.Capacity,
		Section:     tables.Section(r.Section),
		Status:      tables.Status(r.Status),
	}
}

type UpdateTableRequest struct {
	TableNumber *string `json:"tableNumber" validate:"omitempty,min=1,max=20"`
	Capacity    *int    `json:"capacity" validate:"omitempty,min=1"`
	Section     *string `json:"section" validate:"omitempty,oneof=Indoor Outdoor Bar"`
}

func (r UpdateTableRequest) ToInput() tables.UpdateInput {
	in := tables.UpdateInput{TableNumber: r.TableNumber, Capacity: r.Capacity}
	if r.Section != nil {
		s := tables.Section(*r.Section)
		in.Section = &s
	}
	return in
}

type TableStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=available occupied reserved cleaning"`
}

// --- payment ---

type CreateIntentRequest struct {
	Amount   decimal.Decimal `json:"amount" validate:"gt=0"`
	Currency string          `json:"currency" validate:"omitempty,len=3"`
}

// OrderData names what a payment is for: an existing order by id, or a new
// order described inline. Its order fields are only checked for the inline
// form, see CheckOrderData.
type OrderData struct {
	OrderID string `json:"orderId"`
	CreateOrderRequest
}

func (d *OrderData) ToInput(createdBy string) *payment.OrderData {
	if d == nil {
		return nil
	}
	if d.OrderID != "" {
		return &payment.OrderData{OrderID: d.OrderID, Create: orders.CreateInput{PaymentMethod: orders.PaymentMethod(d.PaymentMethod)}}
	}
	return &payment.OrderData{Create: d.CreateOrderRequest.ToInput(createdBy)}
}

type VerifyPaymentRequest struct {
	OrderID   string     `json:"razorpay_order_id" validate:"required"`
	PaymentID string     `json:"razorpay_payment_id" validate:"required"`
	Signature string     `json:"razorpay_signature"`
	OrderData *OrderData `json:"orderData" validate:"-"`
}

type CashPaymentRequest struct {
	OrderData *OrderData `json:"orderData" validate:"-"`
}
