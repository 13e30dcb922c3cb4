package app

import (
	"github.com/brewhouse/cafe-orders/internal/domain"
)

// fieldRule is one pure predicate over the placement input. Rules run in
// order and the first failure wins, so error precedence is explicit rather
// than a side effect of map iteration.
type fieldRule struct {
	field string
	check func(in PlaceOrderInput) (ok bool, reason string)
}

var placeOrderRules = []fieldRule{
	{
		field: "user_id",
		check: func(in PlaceOrderInput) (bool, string) {
			if in.UserID == "" {
				return false, "required"
			}
			return true, ""
		},
	},
	{
		field: "order_type",
		check: func(in PlaceOrderInput) (bool, string) {
			if !in.Type.Valid() {
				return false, "must be dine_in, takeout, or delivery"
			}
			return true, ""
		},
	},
	{
		field: "table_number",
		check: func(in PlaceOrderInput) (bool, string) {
			if in.Type == domain.OrderTypeDineIn {
				if in.TableNumber == nil {
					return false, "required for dine_in orders"
				}
				if *in.TableNumber < 1 || *in.TableNumber > domain.MaxTableNumber {
					return false, "must be between 1 and 100"
				}
				return true, ""
			}
			if in.TableNumber != nil {
				return false, "only allowed for dine_in orders"
			}
			return true, ""
		},
	},
}

func validatePlaceOrder(in PlaceOrderInput) error {
	for _, rule := range placeOrderRules {
		if ok, reason := rule.check(in); !ok {
			return &domain.ValidationError{Field: rule.field, Reason: reason}
		}
	}
	return nil
}
