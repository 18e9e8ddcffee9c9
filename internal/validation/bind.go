package validation

import (
	"errors"
	"fmt"

	"github.com/gin-gonic/gin"
	validatorv10 "github.com/go-playground/validator/v10"

	"github.com/sumanshinde/Rpos/internal/apperr"
)

// BindAndValidate binds the JSON body into out and runs validation. Failures
// come back as a Validation error carrying per-field messages.
func BindAndValidate(c *gin.Context, out interface{}, v *validatorv10.Validate) error {
	if err := c.ShouldBindJSON(out); err != nil {
		return apperr.Validation("invalid request body").Wrap(err)
	}
	return Check(v, out)
}

// Check validates an already decoded value.
func Check(v *validatorv10.Validate, out interface{}) error {
	if err := v.Struct(out); err != nil {
		return apperr.Validation("validation failed").WithFields(validationErrorsToMap(err))
	}
	return nil
}

// CheckOrderData validates an inline order. A nil d passes; the settlement
// service reports missing order data itself.
func CheckOrderData(v *validatorv10.Validate, d *OrderData) error {
	if d == nil || d.OrderID != "" {
		return nil
	}
	return Check(v, &d.CreateOrderRequest)
}

func validationErrorsToMap(err error) map[string]string {
	out := map[string]string{}
	var ve validatorv10.ValidationErrors
	if !errors.As(err, &ve) {
		out["error"] = err.Error()
		return out
	}
	for _, fe := range ve {
		out[fieldPath(fe)] = message(fe)
	}
	return out
}

// fieldPath drops the top-level struct name from the namespace.
func fieldPath(fe validatorv10.FieldError) string {
	ns := fe.Namespace()
	for i := 0; i < len(ns); i++ {
		if ns[i] == '.' {
			return ns[i+1:]
		}
	}
	return ns
}

func message(fe validatorv10.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "min":
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "max":
		return fmt.Sprintf("must be at most %s", fe.Param())
	case "gt":
		return fmt.Sprintf("must be greater than %s", fe.Param())
	case "gte":
		return fmt.Sprintf("must be %s or more", fe.Param())
	case "lte":
		return fmt.Sprintf("must be %s or less", fe.Param())
	case "len":
		return fmt.Sprintf("must be %s characters", fe.Param())
	case "oneof":
		return fmt.Sprintf("must be one of [%s]", fe.Param())
	case "phone10":
		return "must be exactly 10 digits"
	case "total_match_items":
		return fmt.Sprintf("does not match items, expected %s", fe.Param())
	}
	return fmt.Sprintf("failed %q", fe.Tag())
}
