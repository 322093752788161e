package handler

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

// handlerMetrics are the domain-level counters exposed alongside the standard
// HTTP instrumentation.
type handlerMetrics struct {
	couponsCreated metric.Int64Counter
	redemptions    metric.Int64Counter
	matchesFound   metric.Int64Counter
	matchesEmpty   metric.Int64Counter
	discountAmount metric.Float64Histogram
}

func newHandlerMetrics() *handlerMetrics {
	meter := otel.Meter("github.com/perkly/coupon-engine/internal/handler")

	couponsCreated, _ := meter.Int64Counter("coupons.created",
		metric.WithDescription("Coupons created"))
	redemptions, _ := meter.Int64Counter("coupons.redemptions",
		metric.WithDescription("Coupon redemptions"))
	matchesFound, _ := meter.Int64Counter("coupons.matches.found",
		metric.WithDescription("Best-match requests that returned a coupon"))
	matchesEmpty, _ := meter.Int64Counter("coupons.matches.empty",
		metric.WithDescription("Best-match requests with no eligible coupon"))
	discountAmount, _ := meter.Float64Histogram("coupons.discount.amount",
		metric.WithDescription("Discount granted per best-match"))

	return &handlerMetrics{
		couponsCreated: couponsCreated,
		redemptions:    redemptions,
		matchesFound:   matchesFound,
		matchesEmpty:   matchesEmpty,
		discountAmount: discountAmount,
	}
}
