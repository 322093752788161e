package coupon

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/perkly/coupon-engine/internal/domain/cart"
)

// evalConcurrency bounds the fan-out when checking coupon eligibility.
const evalConcurrency = 8

// Match is the outcome of a best-coupon selection. Coupon is nil when no
// coupon applies; DiscountAmount is zero in that case.
type Match struct {
	Coupon         *Coupon
	DiscountAmount decimal.Decimal
}

// Selector orchestrates store, evaluator, and discount calculation to pick
// the single best coupon for a user and cart.
type Selector struct {
	store  Store
	eval   *Evaluator
	tracer trace.Tracer
	now    func() time.Time
}

// NewSelector creates a Selector over the given store.
func NewSelector(store Store) *Selector {
	return &Selector{
		store:  store,
		eval:   NewEvaluator(store),
		tracer: otel.Tracer("github.com/perkly/coupon-engine/internal/domain/coupon"),
		now:    time.Now,
	}
}

type candidate struct {
	coupon   Coupon
	discount decimal.Decimal
	eligible bool
}

// BestMatch returns the eligible coupon granting the highest discount for the
// given user and cart. Ties break on earlier end date, then lexicographically
// smaller code, so the winner is deterministic. No eligible coupon is a
// normal outcome, not an error.
func (s *Selector) BestMatch(ctx context.Context, user cart.UserContext, crt cart.Cart) (Match, error) {
	ctx, span := s.tracer.Start(ctx, "Selector.BestMatch")
	defer span.End()

	valid, err := s.store.FindAllValid(ctx, s.now())
	if err != nil {
		return Match{}, errors.Wrap(err, "find valid coupons")
	}
	span.SetAttributes(attribute.Int("coupons.valid", len(valid)))

	// Eligibility checks are independent per coupon; fan out with bounded
	// concurrency and collect by index to keep ranking deterministic.
	candidates := make([]candidate, len(valid))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(evalConcurrency)
	for i := range valid {
		g.Go(func() error {
			c := valid[i]
			ok, err := s.eval.IsEligible(gctx, &c, user, crt)
			if err != nil {
				return errors.Wrapf(err, "evaluate coupon %s", c.Code)
			}
			if !ok {
				return nil
			}
			candidates[i] = candidate{
				coupon:   c,
				discount: DiscountAmount(&c, crt),
				eligible: true,
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Match{}, err
	}

	survivors := candidates[:0]
	for _, cand := range candidates {
		if cand.eligible {
			survivors = append(survivors, cand)
		}
	}
	if len(survivors) == 0 {
		return Match{DiscountAmount: decimal.Zero}, nil
	}

	// Strict priority chain: each criterion applies only on exact equality
	// of the previous one.
	sort.Slice(survivors, func(i, j int) bool {
		a, b := survivors[i], survivors[j]
		if cmp := a.discount.Cmp(b.discount); cmp != 0 {
			return cmp > 0
		}
		if !a.coupon.EndDate.Equal(b.coupon.EndDate) {
			return a.coupon.EndDate.Before(b.coupon.EndDate)
		}
		return strings.Compare(a.coupon.Code, b.coupon.Code) < 0
	})

	best := survivors[0]
	return Match{Coupon: &best.coupon, DiscountAmount: best.discount}, nil
}
