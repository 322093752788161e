package coupon

import (
	"context"
	"slices"

	"github.com/go-faster/errors"

	"github.com/perkly/coupon-engine/internal/domain/cart"
)

// Evaluator decides whether a single coupon applies to a user and cart.
// Predicates are independent and AND-combined; the first failing one
// short-circuits. Evaluation order never changes the outcome.
type Evaluator struct {
	usage UsageReader
}

// NewEvaluator creates an Evaluator that reads per-user usage counts from the
// given store.
func NewEvaluator(usage UsageReader) *Evaluator {
	return &Evaluator{usage: usage}
}

// IsEligible checks every eligibility predicate of c against the user and
// cart. A coupon with an empty eligibility record passes everything except
// the usage-limit check.
func (e *Evaluator) IsEligible(ctx context.Context, c *Coupon, user cart.UserContext, crt cart.Cart) (bool, error) {
	if c.UsageLimitPerUser != nil {
		used, err := e.usage.GetUsageCount(ctx, c.ID, user.UserID)
		if err != nil {
			return false, errors.Wrap(err, "get usage count")
		}
		if used >= *c.UsageLimitPerUser {
			return false, nil
		}
	}

	el := c.Eligibility

	// User-based predicates.
	if len(el.AllowedUserTiers) > 0 && !slices.Contains(el.AllowedUserTiers, user.UserTier) {
		return false, nil
	}
	if el.MinLifetimeSpend != nil && user.LifetimeSpend.LessThan(*el.MinLifetimeSpend) {
		return false, nil
	}
	if el.MinOrdersPlaced != nil && user.OrdersPlaced < *el.MinOrdersPlaced {
		return false, nil
	}
	if el.FirstOrderOnly && user.OrdersPlaced != 0 {
		return false, nil
	}
	if len(el.AllowedCountries) > 0 && !slices.Contains(el.AllowedCountries, user.Country) {
		return false, nil
	}

	// Cart-based predicates.
	if el.MinCartValue != nil && crt.Value().LessThan(*el.MinCartValue) {
		return false, nil
	}

	categories := crt.Categories()
	if len(el.ApplicableCategories) > 0 && !anyInSet(el.ApplicableCategories, categories) {
		return false, nil
	}
	if len(el.ExcludedCategories) > 0 && anyInSet(el.ExcludedCategories, categories) {
		return false, nil
	}

	if el.MinItemsCount != nil && crt.ItemCount() < *el.MinItemsCount {
		return false, nil
	}

	return true, nil
}

// anyInSet reports whether at least one of the given categories is present in
// the cart's category set.
func anyInSet(categories []string, set map[string]struct{}) bool {
	for _, c := range categories {
		if _, ok := set[c]; ok {
			return true
		}
	}
	return false
}
