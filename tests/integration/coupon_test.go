//go:build integration

package integration

import (
	"net/http"
	"testing"
	"time"
)

func goldUser() userContext {
	return userContext{
		UserID:        "int-gold",
		UserTier:      "GOLD",
		Country:       "IN",
		LifetimeSpend: 10000,
		OrdersPlaced:  5,
	}
}

func fashionCart(price float64) cartRequest {
	return cartRequest{Items: []cartItem{
		{ProductID: "p1", Category: "fashion", UnitPrice: price, Quantity: 1},
	}}
}

func TestListCoupons_SeededCatalog(t *testing.T) {
	resp := doGet(t, "/api/coupons")
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	coupons := decodeJSON[[]couponResponse](t, resp)
	codes := make(map[string]bool, len(coupons))
	for _, c := range coupons {
		codes[c.Code] = true
	}
	for _, want := range []string{"WELCOME100", "SUMMER20", "GOLD50"} {
		if !codes[want] {
			t.Errorf("seeded coupon %s not found", want)
		}
	}
}

func TestCreateCoupon_RoundTrip(t *testing.T) {
	now := time.Now().UTC()
	body := map[string]any{
		"code":          "INTTEST10",
		"description":   "integration test coupon",
		"discountType":  "FLAT",
		"discountValue": 10,
		"startDate":     now.AddDate(0, -1, 0).Format(time.RFC3339),
		"endDate":       now.AddDate(0, 1, 0).Format(time.RFC3339),
	}

	resp := doPost(t, "/api/coupons", body)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}

	created := decodeJSON[couponResponse](t, resp)
	if created.ID == "" {
		t.Error("created coupon has no ID")
	}
	if created.Code != "INTTEST10" {
		t.Errorf("code: got %q", created.Code)
	}

	// Duplicate code is rejected.
	dup := doPost(t, "/api/coupons", body)
	defer dup.Body.Close()
	if dup.StatusCode != http.StatusConflict {
		t.Fatalf("expected 409 for duplicate, got %d", dup.StatusCode)
	}

	// Cleanup.
	del := doDelete(t, "/api/coupons/INTTEST10")
	defer del.Body.Close()
	if del.StatusCode != http.StatusNoContent {
		t.Fatalf("expected 204 on delete, got %d", del.StatusCode)
	}
}

func TestCreateCoupon_Validation(t *testing.T) {
	resp := doPost(t, "/api/coupons", map[string]any{"code": "ONLYCODE"})
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}

	body := decodeJSON[errorResponse](t, resp)
	if body.Message == "" {
		t.Error("expected a validation message")
	}
}

func TestBestMatch_GoldFashionCart(t *testing.T) {
	// 20% of 2000 = 400 beats GOLD50's flat 50; WELCOME100 requires a first
	// order.
	resp := doPost(t, "/api/coupons/best-match", bestMatchRequest{
		UserContext: goldUser(),
		Cart:        fashionCart(2000),
	})
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	match := decodeJSON[bestMatchResponse](t, resp)
	if match.Coupon == nil {
		t.Fatal("expected a matching coupon")
	}
	if match.Coupon.Code != "SUMMER20" {
		t.Errorf("code: got %q, want SUMMER20", match.Coupon.Code)
	}
	if match.DiscountAmount != 400 {
		t.Errorf("discountAmount: got %v, want 400", match.DiscountAmount)
	}
}

func TestBestMatch_NewUserFirstOrder(t *testing.T) {
	newUser := userContext{
		UserID:  "int-new",
		Country: "IN",
	}

	resp := doPost(t, "/api/coupons/best-match", bestMatchRequest{
		UserContext: newUser,
		Cart:        fashionCart(600),
	})
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	match := decodeJSON[bestMatchResponse](t, resp)
	if match.Coupon == nil {
		t.Fatal("expected a matching coupon")
	}
	if match.Coupon.Code != "WELCOME100" {
		t.Errorf("code: got %q, want WELCOME100", match.Coupon.Code)
	}
	if match.DiscountAmount != 100 {
		t.Errorf("discountAmount: got %v, want 100", match.DiscountAmount)
	}
}

func TestBestMatch_NoEligibleCoupon(t *testing.T) {
	// SILVER user, tiny grocery cart: nothing in the demo catalog applies.
	user := userContext{
		UserID:       "int-silver",
		UserTier:     "SILVER",
		Country:      "IN",
		OrdersPlaced: 2,
	}
	cart := cartRequest{Items: []cartItem{
		{ProductID: "p1", Category: "grocery", UnitPrice: 50, Quantity: 1},
	}}

	resp := doPost(t, "/api/coupons/best-match", bestMatchRequest{UserContext: user, Cart: cart})
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	match := decodeJSON[bestMatchResponse](t, resp)
	if match.Coupon != nil {
		t.Fatalf("expected no coupon, got %s", match.Coupon.Code)
	}
	if match.DiscountAmount != 0 {
		t.Errorf("discountAmount: got %v, want 0", match.DiscountAmount)
	}
}

func TestRedeem_ConsumesUsageLimit(t *testing.T) {
	user := userContext{
		UserID:  "int-redeemer",
		Country: "IN",
	}

	// First order user qualifies for WELCOME100.
	resp := doPost(t, "/api/coupons/best-match", bestMatchRequest{
		UserContext: user,
		Cart:        fashionCart(600),
	})
	match := decodeJSON[bestMatchResponse](t, resp)
	resp.Body.Close()
	if match.Coupon == nil || match.Coupon.Code != "WELCOME100" {
		t.Fatalf("expected WELCOME100 before redemption, got %+v", match.Coupon)
	}

	// Redeem it once; the per-user limit is 1.
	redeem := doPost(t, "/api/coupons/WELCOME100/redeem", map[string]any{"userId": user.UserID})
	defer redeem.Body.Close()
	if redeem.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 on redeem, got %d", redeem.StatusCode)
	}
	if got := decodeJSON[redeemResponse](t, redeem); got.UsageCount != 1 {
		t.Errorf("usageCount: got %d, want 1", got.UsageCount)
	}

	// The coupon no longer matches for this user.
	resp = doPost(t, "/api/coupons/best-match", bestMatchRequest{
		UserContext: user,
		Cart:        fashionCart(600),
	})
	defer resp.Body.Close()
	match = decodeJSON[bestMatchResponse](t, resp)
	if match.Coupon != nil && match.Coupon.Code == "WELCOME100" {
		t.Error("WELCOME100 still matches after exhausting its usage limit")
	}
}

func TestDeleteCoupon_NotFound(t *testing.T) {
	resp := doDelete(t, "/api/coupons/DOES-NOT-EXIST")
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
}

func TestDemoLogin(t *testing.T) {
	resp := doPost(t, "/api/demo-login", map[string]any{
		"email":    "demo@perkly.dev",
		"password": "TryMe@2025!",
	})
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	type loginResponse struct {
		Success bool        `json:"success"`
		User    userContext `json:"user"`
	}
	body := decodeJSON[loginResponse](t, resp)
	if !body.Success {
		t.Error("expected success=true")
	}
	if body.User.UserID == "" {
		t.Error("expected a demo user in the response")
	}
}
