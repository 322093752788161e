// Package handler exposes the coupon core over HTTP. Request validation
// lives here, at the boundary: the core below only ever sees well-formed
// input.
package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/perkly/coupon-engine/internal/domain/cart"
	"github.com/perkly/coupon-engine/internal/domain/coupon"
)

// Handler serves the coupon API, delegating to the store and selector.
type Handler struct {
	store    coupon.Store
	selector *coupon.Selector
	metrics  *handlerMetrics
	now      func() time.Time
}

// NewHandler constructs a Handler with the required domain dependencies.
func NewHandler(store coupon.Store, selector *coupon.Selector) *Handler {
	return &Handler{
		store:    store,
		selector: selector,
		metrics:  newHandlerMetrics(),
		now:      time.Now,
	}
}

// errorResponse is the uniform error body for all endpoints.
type errorResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, message string) {
	writeJSON(w, code, errorResponse{Code: code, Message: message})
}

// internalError logs err and responds with a generic 500. No internal detail
// reaches the client.
func internalError(w http.ResponseWriter, r *http.Request, err error) {
	zctx.From(r.Context()).Error("internal error",
		zap.String("path", r.URL.Path),
		zap.Error(err),
	)
	writeError(w, http.StatusInternalServerError, "internal server error")
}

// parseDate accepts RFC3339 timestamps and bare YYYY-MM-DD dates.
func parseDate(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}, errors.Errorf("invalid date %q: use RFC3339 or YYYY-MM-DD", s)
	}
	return t, nil
}

// --- Wire DTOs ---
//
// Money crosses the wire as JSON numbers; decimal is used internally only.

type eligibilityJSON struct {
	AllowedUserTiers     []string `json:"allowedUserTiers,omitempty"`
	MinLifetimeSpend     *float64 `json:"minLifetimeSpend,omitempty"`
	MinOrdersPlaced      *int     `json:"minOrdersPlaced,omitempty"`
	FirstOrderOnly       bool     `json:"firstOrderOnly,omitempty"`
	AllowedCountries     []string `json:"allowedCountries,omitempty"`
	MinCartValue         *float64 `json:"minCartValue,omitempty"`
	ApplicableCategories []string `json:"applicableCategories,omitempty"`
	ExcludedCategories   []string `json:"excludedCategories,omitempty"`
	MinItemsCount        *int     `json:"minItemsCount,omitempty"`
}

type couponJSON struct {
	ID                string          `json:"id"`
	Code              string          `json:"code"`
	Description       string          `json:"description"`
	DiscountType      string          `json:"discountType"`
	DiscountValue     float64         `json:"discountValue"`
	MaxDiscountAmount *float64        `json:"maxDiscountAmount,omitempty"`
	StartDate         time.Time       `json:"startDate"`
	EndDate           time.Time       `json:"endDate"`
	UsageLimitPerUser *int            `json:"usageLimitPerUser,omitempty"`
	Eligibility       eligibilityJSON `json:"eligibility"`
	CreatedAt         time.Time       `json:"createdAt"`
	UpdatedAt         time.Time       `json:"updatedAt"`
}

type userContextJSON struct {
	UserID        string  `json:"userId"`
	UserTier      string  `json:"userTier"`
	Country       string  `json:"country"`
	LifetimeSpend float64 `json:"lifetimeSpend"`
	OrdersPlaced  int     `json:"ordersPlaced"`
}

type cartItemJSON struct {
	ProductID string  `json:"productId"`
	Category  string  `json:"category"`
	UnitPrice float64 `json:"unitPrice"`
	Quantity  int     `json:"quantity"`
}

type cartJSON struct {
	Items []cartItemJSON `json:"items"`
}

// --- DTO conversions ---

func decimalPtr(f *float64) *decimal.Decimal {
	if f == nil {
		return nil
	}
	d := decimal.NewFromFloat(*f)
	return &d
}

func floatPtr(d *decimal.Decimal) *float64 {
	if d == nil {
		return nil
	}
	f := d.InexactFloat64()
	return &f
}

func toEligibility(e eligibilityJSON) coupon.Eligibility {
	return coupon.Eligibility{
		AllowedUserTiers:     e.AllowedUserTiers,
		MinLifetimeSpend:     decimalPtr(e.MinLifetimeSpend),
		MinOrdersPlaced:      e.MinOrdersPlaced,
		FirstOrderOnly:       e.FirstOrderOnly,
		AllowedCountries:     e.AllowedCountries,
		MinCartValue:         decimalPtr(e.MinCartValue),
		ApplicableCategories: e.ApplicableCategories,
		ExcludedCategories:   e.ExcludedCategories,
		MinItemsCount:        e.MinItemsCount,
	}
}

func toEligibilityJSON(e coupon.Eligibility) eligibilityJSON {
	return eligibilityJSON{
		AllowedUserTiers:     e.AllowedUserTiers,
		MinLifetimeSpend:     floatPtr(e.MinLifetimeSpend),
		MinOrdersPlaced:      e.MinOrdersPlaced,
		FirstOrderOnly:       e.FirstOrderOnly,
		AllowedCountries:     e.AllowedCountries,
		MinCartValue:         floatPtr(e.MinCartValue),
		ApplicableCategories: e.ApplicableCategories,
		ExcludedCategories:   e.ExcludedCategories,
		MinItemsCount:        e.MinItemsCount,
	}
}

func toCouponJSON(c *coupon.Coupon) couponJSON {
	return couponJSON{
		ID:                c.ID,
		Code:              c.Code,
		Description:       c.Description,
		DiscountType:      string(c.DiscountType),
		DiscountValue:     c.DiscountValue.InexactFloat64(),
		MaxDiscountAmount: floatPtr(c.MaxDiscountAmount),
		StartDate:         c.StartDate,
		EndDate:           c.EndDate,
		UsageLimitPerUser: c.UsageLimitPerUser,
		Eligibility:       toEligibilityJSON(c.Eligibility),
		CreatedAt:         c.CreatedAt,
		UpdatedAt:         c.UpdatedAt,
	}
}

func toCart(c cartJSON) cart.Cart {
	items := make([]cart.Item, len(c.Items))
	for i, item := range c.Items {
		items[i] = cart.Item{
			ProductID: item.ProductID,
			Category:  item.Category,
			UnitPrice: decimal.NewFromFloat(item.UnitPrice),
			Quantity:  item.Quantity,
		}
	}
	return cart.Cart{Items: items}
}

func toUserContext(u userContextJSON) cart.UserContext {
	return cart.UserContext{
		UserID:        u.UserID,
		UserTier:      u.UserTier,
		Country:       u.Country,
		LifetimeSpend: decimal.NewFromFloat(u.LifetimeSpend),
		OrdersPlaced:  u.OrdersPlaced,
	}
}
