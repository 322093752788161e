package coupon

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// DiscountType enumerates the supported coupon discount mechanics.
type DiscountType string

const (
	// DiscountFlat subtracts a fixed amount, capped at the cart value.
	DiscountFlat DiscountType = "FLAT"
	// DiscountPercent subtracts a percentage of the cart value, optionally
	// capped at MaxDiscountAmount.
	DiscountPercent DiscountType = "PERCENT"
)

// Valid reports whether t is one of the two known discount types.
func (t DiscountType) Valid() bool {
	return t == DiscountFlat || t == DiscountPercent
}

var (
	// ErrDuplicateCode is returned by Store.Create when a coupon with the
	// same code already exists.
	ErrDuplicateCode = errors.New("coupon code already exists")
	// ErrNotFound is returned by lookups on absent coupon codes.
	ErrNotFound = errors.New("coupon not found")
)

// Eligibility is a set of optional, independent predicates. A zero-value
// field means "no constraint of this kind"; all present predicates must pass.
type Eligibility struct {
	AllowedUserTiers     []string         `json:"allowedUserTiers,omitempty"`
	MinLifetimeSpend     *decimal.Decimal `json:"minLifetimeSpend,omitempty"`
	MinOrdersPlaced      *int             `json:"minOrdersPlaced,omitempty"`
	FirstOrderOnly       bool             `json:"firstOrderOnly,omitempty"`
	AllowedCountries     []string         `json:"allowedCountries,omitempty"`
	MinCartValue         *decimal.Decimal `json:"minCartValue,omitempty"`
	ApplicableCategories []string         `json:"applicableCategories,omitempty"`
	ExcludedCategories   []string         `json:"excludedCategories,omitempty"`
	MinItemsCount        *int             `json:"minItemsCount,omitempty"`
}

// Coupon is an immutable discount definition. Coupons are never updated in
// place; a changed promotion is issued as a new coupon.
type Coupon struct {
	ID                string
	Code              string
	Description       string
	DiscountType      DiscountType
	DiscountValue     decimal.Decimal
	MaxDiscountAmount *decimal.Decimal
	StartDate         time.Time
	EndDate           time.Time
	UsageLimitPerUser *int
	Eligibility       Eligibility
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// Definition holds the caller-supplied fields for a new coupon. The store
// assigns the ID and audit timestamps.
type Definition struct {
	Code              string
	Description       string
	DiscountType      DiscountType
	DiscountValue     decimal.Decimal
	MaxDiscountAmount *decimal.Decimal
	StartDate         time.Time
	EndDate           time.Time
	UsageLimitPerUser *int
	Eligibility       Eligibility
}

// Store owns all coupon definitions and per-user usage counters. Every
// operation is atomic on its own; no cross-call transaction is offered.
type Store interface {
	Create(ctx context.Context, def Definition) (*Coupon, error)
	FindAll(ctx context.Context) ([]Coupon, error)
	FindByCode(ctx context.Context, code string) (*Coupon, error)
	FindAllValid(ctx context.Context, asOf time.Time) ([]Coupon, error)
	GetUsageCount(ctx context.Context, couponID, userID string) (int, error)
	IncrementUsage(ctx context.Context, couponID, userID string) error
	DeleteByCode(ctx context.Context, code string) (bool, error)
}

// UsageReader is the read-only slice of Store the evaluator needs.
type UsageReader interface {
	GetUsageCount(ctx context.Context, couponID, userID string) (int, error)
}
