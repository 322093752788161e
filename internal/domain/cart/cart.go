// Package cart holds the per-request shopping context: the cart being checked
// out and the user it belongs to. Nothing in this package is persisted.
package cart

import "github.com/shopspring/decimal"

// Item is a single cart line.
type Item struct {
	ProductID string
	Category  string
	UnitPrice decimal.Decimal
	Quantity  int
}

// Cart is an ordered sequence of items.
type Cart struct {
	Items []Item
}

// Value returns the sum of unit price * quantity across all items.
func (c Cart) Value() decimal.Decimal {
	total := decimal.Zero
	for _, item := range c.Items {
		line := item.UnitPrice.Mul(decimal.NewFromInt(int64(item.Quantity)))
		total = total.Add(line)
	}
	return total
}

// Categories returns the distinct categories present in the cart.
func (c Cart) Categories() map[string]struct{} {
	set := make(map[string]struct{}, len(c.Items))
	for _, item := range c.Items {
		set[item.Category] = struct{}{}
	}
	return set
}

// ItemCount returns the total quantity across all items.
func (c Cart) ItemCount() int {
	total := 0
	for _, item := range c.Items {
		total += item.Quantity
	}
	return total
}

// UserContext describes the user a coupon is being matched for.
// It is supplied by the caller on every request.
type UserContext struct {
	UserID        string
	UserTier      string
	Country       string
	LifetimeSpend decimal.Decimal
	OrdersPlaced  int
}
