package coupon

import (
	"github.com/shopspring/decimal"

	"github.com/perkly/coupon-engine/internal/domain/cart"
)

var hundred = decimal.NewFromInt(100)

// DiscountAmount computes the monetary discount c grants on the given cart.
// It assumes c already passed eligibility; the result is never negative.
//
// FLAT coupons never discount more than the cart is worth. PERCENT coupons
// take a fraction of the cart value, capped at MaxDiscountAmount when set.
func DiscountAmount(c *Coupon, crt cart.Cart) decimal.Decimal {
	cartValue := crt.Value()

	switch c.DiscountType {
	case DiscountFlat:
		return decimal.Min(c.DiscountValue, cartValue)
	case DiscountPercent:
		amount := cartValue.Mul(c.DiscountValue).Div(hundred)
		if c.MaxDiscountAmount != nil {
			amount = decimal.Min(amount, *c.MaxDiscountAmount)
		}
		return amount
	default:
		return decimal.Zero
	}
}
