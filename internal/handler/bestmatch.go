package handler

import (
	"encoding/json"
	"net/http"
)

type bestMatchRequest struct {
	UserContext *userContextJSON `json:"userContext"`
	Cart        *cartJSON        `json:"cart"`
}

type bestMatchResponse struct {
	Coupon         *couponJSON `json:"coupon"`
	DiscountAmount float64     `json:"discountAmount"`
}

// BestMatch handles POST /coupons/best-match. The lookup is read-only:
// finding the best coupon never counts as a redemption.
func (h *Handler) BestMatch(w http.ResponseWriter, r *http.Request) {
	var req bestMatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.UserContext == nil || req.Cart == nil {
		writeError(w, http.StatusBadRequest, "userContext and cart are required")
		return
	}

	match, err := h.selector.BestMatch(r.Context(), toUserContext(*req.UserContext), toCart(*req.Cart))
	if err != nil {
		internalError(w, r, err)
		return
	}

	resp := bestMatchResponse{DiscountAmount: match.DiscountAmount.Round(2).InexactFloat64()}
	if match.Coupon != nil {
		c := toCouponJSON(match.Coupon)
		resp.Coupon = &c
		h.metrics.matchesFound.Add(r.Context(), 1)
		h.metrics.discountAmount.Record(r.Context(), resp.DiscountAmount)
	} else {
		h.metrics.matchesEmpty.Add(r.Context(), 1)
	}
	writeJSON(w, http.StatusOK, resp)
}

// Demo login credentials and the fixed user context they resolve to.
// This endpoint exists so the API can be exercised without a user service.
const (
	demoEmail    = "demo@perkly.dev"
	demoPassword = "TryMe@2025!"
)

type demoLoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type demoLoginResponse struct {
	Success bool            `json:"success"`
	User    userContextJSON `json:"user"`
}

// DemoLogin handles POST /demo-login with hard-coded demo credentials.
func (h *Handler) DemoLogin(w http.ResponseWriter, r *http.Request) {
	var req demoLoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Email != demoEmail || req.Password != demoPassword {
		writeError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	writeJSON(w, http.StatusOK, demoLoginResponse{
		Success: true,
		User: userContextJSON{
			UserID:        "demo-user-001",
			UserTier:      "GOLD",
			Country:       "IN",
			LifetimeSpend: 10000,
			OrdersPlaced:  5,
		},
	})
}
