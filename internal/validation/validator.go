package validation

import (
	validatorv10 "github.com/go-playground/validator/v10"

	"github.com/JBI871/BuyTem-MAD-sub000/internal/orders"
)

// New returns a configured validator with the custom tags registered.
func New() *validatorv10.Validate {
	v := validatorv10.New()

	// order_status accepts only the order lifecycle statuses
	_ = v.RegisterValidation("order_status", func(fl validatorv10.FieldLevel) bool {
		return orders.ValidStatus(fl.Field().String())
	})

	return v
}
