package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/perkly/coupon-engine/internal/domain/coupon"
)

type createCouponRequest struct {
	Code              string          `json:"code"`
	Description       string          `json:"description"`
	DiscountType      string          `json:"discountType"`
	DiscountValue     float64         `json:"discountValue"`
	MaxDiscountAmount *float64        `json:"maxDiscountAmount,omitempty"`
	StartDate         string          `json:"startDate"`
	EndDate           string          `json:"endDate"`
	UsageLimitPerUser *int            `json:"usageLimitPerUser,omitempty"`
	Eligibility       eligibilityJSON `json:"eligibility"`
}

// toDefinition validates the request and converts it to a domain definition.
// The returned message is a caller-facing validation error, empty when valid.
func (req *createCouponRequest) toDefinition() (coupon.Definition, string) {
	if req.Code == "" || req.Description == "" || req.DiscountType == "" || req.DiscountValue == 0 {
		return coupon.Definition{}, "missing required fields: code, description, discountType, discountValue"
	}
	if !coupon.DiscountType(req.DiscountType).Valid() {
		return coupon.Definition{}, "discountType must be FLAT or PERCENT"
	}
	if req.DiscountValue <= 0 {
		return coupon.Definition{}, "discountValue must be positive"
	}

	startDate, err := parseDate(req.StartDate)
	if err != nil {
		return coupon.Definition{}, err.Error()
	}
	endDate, err := parseDate(req.EndDate)
	if err != nil {
		return coupon.Definition{}, err.Error()
	}

	return coupon.Definition{
		Code:              req.Code,
		Description:       req.Description,
		DiscountType:      coupon.DiscountType(req.DiscountType),
		DiscountValue:     decimal.NewFromFloat(req.DiscountValue),
		MaxDiscountAmount: decimalPtr(req.MaxDiscountAmount),
		StartDate:         startDate,
		EndDate:           endDate,
		UsageLimitPerUser: req.UsageLimitPerUser,
		Eligibility:       toEligibility(req.Eligibility),
	}, ""
}

// CreateCoupon handles POST /coupons.
func (h *Handler) CreateCoupon(w http.ResponseWriter, r *http.Request) {
	var req createCouponRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	def, msg := req.toDefinition()
	if msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	created, err := h.store.Create(r.Context(), def)
	if err != nil {
		if errors.Is(err, coupon.ErrDuplicateCode) {
			writeError(w, http.StatusConflict, "coupon with code "+def.Code+" already exists")
			return
		}
		internalError(w, r, err)
		return
	}

	h.metrics.couponsCreated.Add(r.Context(), 1)
	writeJSON(w, http.StatusCreated, toCouponJSON(created))
}

// ListCoupons handles GET /coupons.
func (h *Handler) ListCoupons(w http.ResponseWriter, r *http.Request) {
	coupons, err := h.store.FindAll(r.Context())
	if err != nil {
		internalError(w, r, err)
		return
	}

	out := make([]couponJSON, len(coupons))
	for i := range coupons {
		out[i] = toCouponJSON(&coupons[i])
	}
	writeJSON(w, http.StatusOK, out)
}

// GetCoupon handles GET /coupons/{code}.
func (h *Handler) GetCoupon(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")

	c, err := h.store.FindByCode(r.Context(), code)
	if err != nil {
		if errors.Is(err, coupon.ErrNotFound) {
			writeError(w, http.StatusNotFound, "coupon not found")
			return
		}
		internalError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, toCouponJSON(c))
}

// DeleteCoupon handles DELETE /coupons/{code}.
func (h *Handler) DeleteCoupon(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")

	deleted, err := h.store.DeleteByCode(r.Context(), code)
	if err != nil {
		internalError(w, r, err)
		return
	}
	if !deleted {
		writeError(w, http.StatusNotFound, "coupon not found")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

type redeemRequest struct {
	UserID string `json:"userId"`
}

type redeemResponse struct {
	Code       string `json:"code"`
	UserID     string `json:"userId"`
	UsageCount int    `json:"usageCount"`
}

// Redeem handles POST /coupons/{code}/redeem. Redemption is the only
// operation that increments usage; best-match lookups never do.
func (h *Handler) Redeem(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")

	var req redeemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.UserID == "" {
		writeError(w, http.StatusBadRequest, "userId is required")
		return
	}

	c, err := h.store.FindByCode(r.Context(), code)
	if err != nil {
		if errors.Is(err, coupon.ErrNotFound) {
			writeError(w, http.StatusNotFound, "coupon not found")
			return
		}
		internalError(w, r, err)
		return
	}

	if err := h.store.IncrementUsage(r.Context(), c.ID, req.UserID); err != nil {
		internalError(w, r, err)
		return
	}

	count, err := h.store.GetUsageCount(r.Context(), c.ID, req.UserID)
	if err != nil {
		internalError(w, r, err)
		return
	}

	h.metrics.redemptions.Add(r.Context(), 1)
	writeJSON(w, http.StatusOK, redeemResponse{
		Code:       c.Code,
		UserID:     req.UserID,
		UsageCount: count,
	})
}

type seedResponse struct {
	Message string       `json:"message"`
	Count   int          `json:"count"`
	Coupons []couponJSON `json:"coupons"`
}

// SeedDemo handles POST /coupons/seed. It bulk-creates a fixed demo set,
// silently skipping coupons whose code already exists.
func (h *Handler) SeedDemo(w http.ResponseWriter, r *http.Request) {
	created := make([]couponJSON, 0)
	for _, def := range demoCoupons(h.now()) {
		c, err := h.store.Create(r.Context(), def)
		if err != nil {
			if errors.Is(err, coupon.ErrDuplicateCode) {
				continue
			}
			internalError(w, r, err)
			return
		}
		created = append(created, toCouponJSON(c))
	}

	zctx.From(r.Context()).Info("seeded demo coupons", zap.Int("count", len(created)))
	writeJSON(w, http.StatusOK, seedResponse{
		Message: "demo coupons seeded",
		Count:   len(created),
		Coupons: created,
	})
}

// demoCoupons returns the demo catalog with validity windows anchored to now,
// so the set is usable whenever it is seeded.
func demoCoupons(now time.Time) []coupon.Definition {
	yearStart := now.AddDate(0, -1, 0)
	yearEnd := now.AddDate(1, 0, 0)
	summerEnd := now.AddDate(0, 3, 0)

	one := 1
	minCart500 := decimal.NewFromInt(500)
	minCart1000 := decimal.NewFromInt(1000)
	maxDiscount500 := decimal.NewFromInt(500)

	return []coupon.Definition{
		{
			Code:              "WELCOME100",
			Description:       "100 off on first order",
			DiscountType:      coupon.DiscountFlat,
			DiscountValue:     decimal.NewFromInt(100),
			StartDate:         yearStart,
			EndDate:           yearEnd,
			UsageLimitPerUser: &one,
			Eligibility: coupon.Eligibility{
				FirstOrderOnly: true,
				MinCartValue:   &minCart500,
			},
		},
		{
			Code:              "SUMMER20",
			Description:       "20% off on fashion",
			DiscountType:      coupon.DiscountPercent,
			DiscountValue:     decimal.NewFromInt(20),
			MaxDiscountAmount: &maxDiscount500,
			StartDate:         yearStart,
			EndDate:           summerEnd,
			Eligibility: coupon.Eligibility{
				ApplicableCategories: []string{"fashion"},
				MinCartValue:         &minCart1000,
			},
		},
		{
			Code:          "GOLD50",
			Description:   "50 flat discount for gold members",
			DiscountType:  coupon.DiscountFlat,
			DiscountValue: decimal.NewFromInt(50),
			StartDate:     yearStart,
			EndDate:       yearEnd,
			Eligibility: coupon.Eligibility{
				AllowedUserTiers: []string{"GOLD"},
			},
		},
	}
}
