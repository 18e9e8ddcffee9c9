package validation

import (
	"reflect"
	"regexp"
	"strings"

	validatorv10 "github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/sumanshinde/Rpos/internal/orders"
	"github.com/sumanshinde/Rpos/internal/pricing"
)

var phoneRE = regexp.MustCompile(`^[0-9]{10}$`)

// New returns a validator that reports json field names, compares decimals
// numerically and knows the POS-specific tags.
func New() *validatorv10.Validate {
	v := validatorv10.New()

	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		if name == "" {
			return f.Name
		}
		return name
	})
	v.RegisterCustomTypeFunc(func(f reflect.Value) interface{} {
		d, ok := f.Interface().(decimal.Decimal)
		if !ok {
			return nil
		}
		return d.InexactFloat64()
	}, decimal.Decimal{})

	_ = v.RegisterValidation("phone10", func(fl validatorv10.FieldLevel) bool {
		return phoneRE.MatchString(fl.Field().String())
	})

	v.RegisterStructValidation(createOrderStructValidation, CreateOrderRequest{})
	return v
}

// createOrderStructValidation checks client-computed totals, when sent,
// against the server formula.
func createOrderStructValidation(sl validatorv10.StructLevel) {
	req := sl.Current().Interface().(CreateOrderRequest)
	if req.Total == nil {
		return
	}
	items := make([]orders.Item, 0, len(req.Items))
	for _, it := range req.Items {
		items = append(items, orders.Item{Quantity: it.Quantity, UnitPrice: it.Price})
	}
	want := pricing.ComputeTotals(orders.Lines(items), pricing.ClampPercent(req.DiscountPercent))
	if want.Total.Sub(*req.Total).Abs().GreaterThan(pricing.Tolerance) {
		sl.ReportError(req.Total, "total", "Total", "total_match_items", want.Total.StringFixed(2))
	}
}
