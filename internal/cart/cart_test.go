package cart

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sumanshinde/Rpos/internal/apperr"
	"github.com/sumanshinde/Rpos/internal/orders"
)

var (
	burger = Product{ID: "p1", Name: "Burger", Price: decimal.NewFromInt(100)}
	fries  = Product{ID: "p2", Name: "Fries", Price: decimal.RequireFromString("49.50")}
)

func TestAddItemMergesSameProduct(t *testing.T) {
	c := New()
	c.AddItem(burger, 2, "no onion")
	c.AddItem(burger, 3, "")

	lines := c.Lines()
	require.Len(t, lines, 1)
	assert.Equal(t, 5, lines[0].Quantity)
	assert.Equal(t, "no onion", lines[0].Notes)

	c.AddItem(burger, 1, "extra cheese")
	assert.Equal(t, "extra cheese", c.Lines()[0].Notes)
}

func TestAddItemIgnoresNonPositiveQuantity(t *testing.T) {
	c := New()
	c.AddItem(burger, 0, "")
	c.AddItem(fries, -2, "")
	assert.True(t, c.Empty())
}

func TestSetQuantityZeroRemovesExactlyOneLine(t *testing.T) {
	c := New()
	c.AddItem(burger, 1, "")
	c.AddItem(fries, 2, "")

	assert.True(t, c.SetQuantity("p1", 0))
	lines := c.Lines()
	require.Len(t, lines, 1)
	assert.Equal(t, "p2", lines[0].ProductID)

	assert.False(t, c.SetQuantity("missing", 4))
	assert.True(t, c.SetQuantity("p2", 4))
	assert.Equal(t, 4, c.Count())
}

func TestClearResetsDiscount(t *testing.T) {
	c := New()
	c.AddItem(burger, 1, "")
	c.SetDiscount(decimal.NewFromInt(15))
	c.Clear()
	assert.True(t, c.Empty())
	assert.True(t, c.Discount().IsZero())
}

func TestDiscountIsClamped(t *testing.T) {
	c := New()
	c.SetDiscount(decimal.NewFromInt(150))
	assert.True(t, c.Discount().Equal(decimal.NewFromInt(100)))
	c.SetDiscount(decimal.NewFromInt(-5))
	assert.True(t, c.Discount().IsZero())
}

func TestPaymentMethod(t *testing.T) {
	c := New()
	assert.Equal(t, orders.MethodCard, c.PaymentMethod())
	require.NoError(t, c.SetPaymentMethod(orders.MethodQR))
	err := c.SetPaymentMethod("cheque")
	assert.True(t, apperr.Is(err, apperr.KindValidation))
	assert.Equal(t, orders.MethodQR, c.PaymentMethod())
}

func TestTotals(t *testing.T) {
	c := New()
	c.AddItem(burger, 2, "")
	c.SetDiscount(decimal.NewFromInt(10))

	tot := c.Totals()
	assert.Equal(t, "200", tot.Subtotal.String())
	assert.Equal(t, "20", tot.DiscountAmount.String())
	assert.Equal(t, "18", tot.Tax.String())
	assert.Equal(t, "198", tot.Total.String())
}

func TestAssembleCopiesLines(t *testing.T) {
	c := New()
	c.AddItem(burger, 2, "")
	c.AddItem(fries, 1, "crispy")
	c.SetDiscount(decimal.NewFromInt(5))

	in, err := Assemble(c, Meta{TableID: " t1 ", Waiter: "Asha", CreatedBy: "u1"})
	require.NoError(t, err)
	assert.Equal(t, "t1", in.TableID)
	assert.Equal(t, orders.TypeDineIn, in.OrderType)
	assert.Equal(t, orders.MethodCard, in.PaymentMethod)
	assert.True(t, in.DiscountPercent.Equal(decimal.NewFromInt(5)))
	require.Len(t, in.Items, 2)
	assert.Equal(t, "crispy", in.Items[1].Notes)

	c.SetQuantity("p1", 9)
	c.Clear()
	assert.Equal(t, 2, in.Items[0].Quantity)
}

func TestAssembleEmptyCart(t *testing.T) {
	_, err := Assemble(New(), Meta{Waiter: "Asha"})
	assert.True(t, apperr.Is(err, apperr.KindValidation))
}

func TestAddItemWithoutProductIDKeepsLines(t *testing.T) {
	c := New()
	c.AddItem(Product{Name: "Special", Price: decimal.NewFromInt(80)}, 1, "")
	c.AddItem(Product{Name: "Soup", Price: decimal.NewFromInt(60)}, 1, "")
	require.Len(t, c.Lines(), 2)
	assert.Equal(t, "Soup", c.Items()[1].Name)
}
