package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// NewRouter builds the API router. Health probes are mounted separately by
// the application wiring so they bypass rate limiting and logging.
func NewRouter(h *Handler) http.Handler {
	r := chi.NewRouter()

	r.Route("/coupons", func(r chi.Router) {
		r.Post("/", h.CreateCoupon)
		r.Get("/", h.ListCoupons)
		r.Post("/best-match", h.BestMatch)
		r.Post("/seed", h.SeedDemo)
		r.Get("/{code}", h.GetCoupon)
		r.Delete("/{code}", h.DeleteCoupon)
		r.Post("/{code}/redeem", h.Redeem)
	})

	r.Post("/demo-login", h.DemoLogin)

	return r
}
